// Package osched compiles a resolved job into a one-shot job for the host
// operating system's scheduler (`schtasks` on Windows, `at` elsewhere) and
// manages those jobs afterwards.
//
// Every backend re-invokes playat in "fire" mode with the normalized media
// and device baked in, so the time is never resolved a second time.
package osched

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"io"
	"os/exec"
	"strings"
	"time"
)

var (
	ErrSchedulerUnavailable = errors.New("scheduler unavailable")
	ErrRegistrationFailed   = errors.New("registration failed")
	ErrCancellationFailed   = errors.New("cancellation failed")
	ErrOrphanedJob          = errors.New("job registered with the OS scheduler but not recorded")
)

// DefaultToolTimeout bounds every call to a scheduler tool.
const DefaultToolTimeout = 15 * time.Second

// Backend is one platform's scheduler.
type Backend interface {
	Name() string
	// Available returns ErrSchedulerUnavailable if the tool is missing.
	Available() error
	// Register creates the job and returns the scheduler's job id.
	Register(ctx context.Context, t Task) (string, error)
	Cancel(ctx context.Context, id string) error
	// Pending returns the ids of jobs that have not run yet.
	Pending(ctx context.Context) ([]string, error)
}

// Pruner is implemented by backends whose jobs stay registered after
// they ran. Prune removes such a finished job and its files.
type Pruner interface {
	Prune(ctx context.Context, id string) error
}

// Task is what a backend registers: run Invocation at Deadline.
type Task struct {
	Deadline time.Time
	// Trigger is the whole minute the OS scheduler fires at. Zero means
	// Deadline.
	Trigger    time.Time
	Invocation Invocation
}

func (t Task) fireAt() time.Time {
	if t.Trigger.IsZero() {
		return t.Deadline
	}
	return t.Trigger
}

// TriggerTime returns the minute to hand to a scheduler for deadline.
// Both schedulers fire on whole minutes, so deadline is floored; a minute
// that is not after now becomes the next one. The fire command waits out
// the seconds up to the deadline itself.
func TriggerTime(deadline, now time.Time) time.Time {
	t := floorMinute(deadline)
	if !t.After(now) {
		t = floorMinute(now).Add(time.Minute)
	}
	return t
}

func floorMinute(t time.Time) time.Time {
	return time.Date(t.Year(), t.Month(), t.Day(), t.Hour(), t.Minute(), 0, 0, t.Location())
}

// Runner executes a scheduler tool.
type Runner interface {
	Run(ctx context.Context, stdin io.Reader, name string, args ...string) ([]byte, error)
}

// ExecRunner runs tools with os/exec and returns combined output.
type ExecRunner struct{}

func (ExecRunner) Run(ctx context.Context, stdin io.Reader, name string, args ...string) ([]byte, error) {
	cmd := exec.CommandContext(ctx, name, args...)
	cmd.Stdin = stdin
	var out bytes.Buffer
	cmd.Stdout = &out
	cmd.Stderr = &out
	err := cmd.Run()
	return out.Bytes(), err
}

var lookPath = exec.LookPath

// toolCall runs name with a bounded wait. A timeout or missing binary is
// reported as ErrSchedulerUnavailable; a non-zero exit as failKind with the
// tool's own diagnostic text.
func toolCall(ctx context.Context, r Runner, timeout time.Duration, failKind error, stdin io.Reader, name string, args ...string) ([]byte, error) {
	if timeout <= 0 {
		timeout = DefaultToolTimeout
	}
	cctx, cancel := context.WithTimeout(ctx, timeout)
	defer cancel()
	out, err := r.Run(cctx, stdin, name, args...)
	if err == nil {
		return out, nil
	}
	if errors.Is(cctx.Err(), context.DeadlineExceeded) {
		kind := ErrSchedulerUnavailable
		if failKind == ErrCancellationFailed {
			kind = ErrCancellationFailed
		}
		return out, fmt.Errorf("%w: %s timed out after %s", kind, name, timeout)
	}
	var execErr *exec.Error
	if errors.As(err, &execErr) {
		return out, fmt.Errorf("%w: %v", ErrSchedulerUnavailable, err)
	}
	msg := strings.TrimSpace(string(out))
	if msg == "" {
		msg = err.Error()
	}
	return out, fmt.Errorf("%w: %s: %s", failKind, name, msg)
}

func available(tools ...string) error {
	for _, t := range tools {
		if _, err := lookPath(t); err != nil {
			return fmt.Errorf("%w: %s not found in PATH", ErrSchedulerUnavailable, t)
		}
	}
	return nil
}

// asCancelErr makes sure every cancel failure matches ErrCancellationFailed.
func asCancelErr(err error) error {
	if err == nil || errors.Is(err, ErrCancellationFailed) {
		return err
	}
	return fmt.Errorf("%w: %w", ErrCancellationFailed, err)
}
