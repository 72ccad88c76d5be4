// Package dispatch runs a resolved job.Spec in the mode the selector chose.
package dispatch

import (
	"context"
	"errors"
	"fmt"

	"github.com/playat/playat/internal/job"
	"github.com/playat/playat/internal/osched"
	"github.com/playat/playat/internal/waiter"
	"github.com/playat/playat/pkg/logger"
	"github.com/playat/playat/pkg/media"
)

var (
	// ErrModeNotAllowed is returned by Schedule for anything but an
	// OS-scheduled job; request handlers must never block on a wait.
	ErrModeNotAllowed = errors.New("only OS-scheduled jobs can be submitted here")
	ErrNoScheduler    = errors.New("no OS scheduler configured")
)

// Player starts playback on a device chosen by name at execution time.
type Player interface {
	Play(ctx context.Context, deviceName string, ref media.Ref) error
}

// Scheduler hands a spec to the OS scheduler. *osched.Compiler implements it.
type Scheduler interface {
	CompileAndRegister(ctx context.Context, spec job.Spec) (*job.Record, error)
}

var _ Scheduler = (*osched.Compiler)(nil)

// Dispatcher executes specs.
type Dispatcher struct {
	player    Player
	waiter    *waiter.Waiter
	scheduler Scheduler
	log       logger.Logger
}

// New returns a Dispatcher. scheduler may be nil on hosts without an OS
// scheduler backend; w defaults to a wall-clock waiter.
func New(player Player, w *waiter.Waiter, scheduler Scheduler, l logger.Logger) *Dispatcher {
	if w == nil {
		w = waiter.New(nil)
	}
	if l == nil {
		l = logger.NewNopLogger()
	}
	return &Dispatcher{player: player, waiter: w, scheduler: scheduler, log: l}
}

// Run executes spec in mode. Only ModeOSScheduled returns a record. A
// failed play call is terminal; it is not retried.
func (d *Dispatcher) Run(ctx context.Context, spec job.Spec, mode job.Mode) (*job.Record, error) {
	switch mode {
	case job.ModeImmediate:
		return nil, d.play(ctx, spec)
	case job.ModeWait:
		if remaining := d.waiter.Remaining(spec.Deadline); remaining > 0 {
			d.log.Info("Waiting for ~%s before starting playback of %s on %s",
				waiter.FormatRemaining(remaining), spec.Media.URI(), spec.DeviceLabel())
		}
		if err := d.waiter.Wait(ctx, spec.Deadline); err != nil {
			return nil, err
		}
		return nil, d.play(ctx, spec)
	case job.ModeOSScheduled:
		if d.scheduler == nil {
			return nil, ErrNoScheduler
		}
		return d.scheduler.CompileAndRegister(ctx, spec)
	}
	return nil, fmt.Errorf("unknown execution mode %q", mode)
}

// Schedule is Run restricted to ModeOSScheduled.
func (d *Dispatcher) Schedule(ctx context.Context, spec job.Spec, mode job.Mode) (*job.Record, error) {
	if mode != job.ModeOSScheduled {
		return nil, fmt.Errorf("%w: got %s", ErrModeNotAllowed, mode)
	}
	return d.Run(ctx, spec, mode)
}

func (d *Dispatcher) play(ctx context.Context, spec job.Spec) error {
	if err := d.player.Play(ctx, spec.Device, spec.Media); err != nil {
		d.log.Error("playback of %s on %s failed: %v", spec.Media.URI(), spec.DeviceLabel(), err)
		return err
	}
	d.log.Info("started %s on %s", spec.Media.URI(), spec.DeviceLabel())
	return nil
}
