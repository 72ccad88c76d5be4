package osched

import (
	"context"
	"encoding/csv"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/spf13/afero"
)

const (
	// DefaultSchtasksDateLayout matches the en-US short date schtasks
	// expects for /SD. Other locales need the config override.
	DefaultSchtasksDateLayout = "01/02/2006"
	schtasksTimeLayout        = "15:04"
	taskPrefix                = "playat-"
)

// SchtasksBackend registers one-shot tasks with the Windows Task Scheduler.
// /TR is limited to 261 characters, so the command is written to a .cmd
// wrapper next to the job database and the task runs that file.
type SchtasksBackend struct {
	fs         afero.Fs
	dir        string
	runner     Runner
	timeout    time.Duration
	dateLayout string
}

func NewSchtasksBackend(fs afero.Fs, dir string, runner Runner, timeout time.Duration, dateLayout string) *SchtasksBackend {
	if dateLayout == "" {
		dateLayout = DefaultSchtasksDateLayout
	}
	return &SchtasksBackend{fs: fs, dir: dir, runner: runner, timeout: timeout, dateLayout: dateLayout}
}

func (b *SchtasksBackend) Name() string { return "schtasks" }

func (b *SchtasksBackend) Available() error {
	return available("schtasks")
}

func (b *SchtasksBackend) Register(ctx context.Context, t Task) (string, error) {
	name := taskPrefix + uuid.NewString()
	script := b.scriptPath(name)
	if err := writeScript(b.fs, script, t.Invocation.CmdScript(), 0o700); err != nil {
		return "", fmt.Errorf("%w: writing %s: %v", ErrRegistrationFailed, script, err)
	}
	start, day := FormatSchtasksTime(t.fireAt(), b.dateLayout)
	_, err := toolCall(ctx, b.runner, b.timeout, ErrRegistrationFailed, nil, "schtasks",
		"/Create", "/SC", "ONCE", "/TN", name, "/TR", cmdQuote(script),
		"/ST", start, "/SD", day, "/F")
	if err != nil {
		_ = b.fs.Remove(script)
		return "", err
	}
	return name, nil
}

func (b *SchtasksBackend) Cancel(ctx context.Context, id string) error {
	if _, err := toolCall(ctx, b.runner, b.timeout, ErrCancellationFailed, nil, "schtasks", "/Delete", "/TN", id, "/F"); err != nil {
		return asCancelErr(err)
	}
	_ = b.fs.Remove(b.scriptPath(id))
	return nil
}

// Prune deletes a ONCE task that already ran. The wrapper goes even when
// the task is gone already.
func (b *SchtasksBackend) Prune(ctx context.Context, id string) error {
	_, err := toolCall(ctx, b.runner, b.timeout, ErrCancellationFailed, nil, "schtasks", "/Delete", "/TN", id, "/F")
	if rerr := b.fs.Remove(b.scriptPath(id)); rerr != nil && !os.IsNotExist(rerr) && err == nil {
		err = rerr
	}
	return err
}

// Pending lists playat tasks that still have a next run time. A ONCE task
// stays registered after it ran, with "N/A" as its next run time.
func (b *SchtasksBackend) Pending(ctx context.Context) ([]string, error) {
	out, err := toolCall(ctx, b.runner, b.timeout, ErrSchedulerUnavailable, nil, "schtasks", "/Query", "/FO", "CSV", "/NH")
	if err != nil {
		return nil, err
	}
	r := csv.NewReader(strings.NewReader(string(out)))
	r.FieldsPerRecord = -1
	rows, err := r.ReadAll()
	if err != nil {
		return nil, fmt.Errorf("%w: parsing schtasks output: %v", ErrSchedulerUnavailable, err)
	}
	var ids []string
	for _, row := range rows {
		if len(row) < 2 {
			continue
		}
		name := strings.TrimPrefix(row[0], `\`)
		if !strings.HasPrefix(name, taskPrefix) {
			continue
		}
		if strings.EqualFold(strings.TrimSpace(row[1]), "N/A") {
			continue
		}
		ids = append(ids, name)
	}
	return ids, nil
}

func (b *SchtasksBackend) scriptPath(name string) string {
	return filepath.Join(b.dir, name+".cmd")
}

// FormatSchtasksTime returns the /ST and /SD values for t. schtasks only
// takes minutes, so the fire command waits out any remaining seconds.
func FormatSchtasksTime(t time.Time, dateLayout string) (start, day string) {
	return t.Format(schtasksTimeLayout), t.Format(dateLayout)
}

func writeScript(fs afero.Fs, path, content string, perm os.FileMode) error {
	if err := fs.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		return err
	}
	return afero.WriteFile(fs, path, []byte(content), perm)
}

var (
	_ Backend = (*SchtasksBackend)(nil)
	_ Pruner  = (*SchtasksBackend)(nil)
)
