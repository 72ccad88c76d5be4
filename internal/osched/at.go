package osched

import (
	"bufio"
	"bytes"
	"context"
	"fmt"
	"regexp"
	"strings"
	"time"
)

// atTimeLayout is the `at -t` format: [[CC]YY]MMDDhhmm[.SS].
const atTimeLayout = "200601021504.05"

var atJobRe = regexp.MustCompile(`job\s+(\d+)\s+at`)

// AtBackend schedules jobs with at(1) and manages them with atq/atrm. The
// wrapper script is passed on stdin; at keeps its own copy in the spool.
type AtBackend struct {
	runner  Runner
	timeout time.Duration
}

func NewAtBackend(runner Runner, timeout time.Duration) *AtBackend {
	return &AtBackend{runner: runner, timeout: timeout}
}

func (b *AtBackend) Name() string { return "at" }

func (b *AtBackend) Available() error {
	return available("at", "atq", "atrm")
}

func (b *AtBackend) Register(ctx context.Context, t Task) (string, error) {
	stdin := strings.NewReader(t.Invocation.POSIXScript())
	out, err := toolCall(ctx, b.runner, b.timeout, ErrRegistrationFailed, stdin,
		"at", "-t", FormatAtTime(t.fireAt()))
	if err != nil {
		return "", err
	}
	m := atJobRe.FindSubmatch(out)
	if m == nil {
		return "", fmt.Errorf("%w: no job number in at output: %s", ErrRegistrationFailed, strings.TrimSpace(string(out)))
	}
	return string(m[1]), nil
}

func (b *AtBackend) Cancel(ctx context.Context, id string) error {
	_, err := toolCall(ctx, b.runner, b.timeout, ErrCancellationFailed, nil, "atrm", id)
	return asCancelErr(err)
}

// Pending lists queued job numbers from atq.
func (b *AtBackend) Pending(ctx context.Context) ([]string, error) {
	out, err := toolCall(ctx, b.runner, b.timeout, ErrSchedulerUnavailable, nil, "atq")
	if err != nil {
		return nil, err
	}
	var ids []string
	sc := bufio.NewScanner(bytes.NewReader(out))
	for sc.Scan() {
		fields := strings.Fields(sc.Text())
		if len(fields) == 0 {
			continue
		}
		ids = append(ids, fields[0])
	}
	return ids, sc.Err()
}

// FormatAtTime renders t in its own location for `at -t`.
func FormatAtTime(t time.Time) string {
	return t.Format(atTimeLayout)
}

var _ Backend = (*AtBackend)(nil)
