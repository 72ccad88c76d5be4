package osched

import (
	"context"
	"fmt"
	"time"

	"github.com/playat/playat/internal/job"
	"github.com/playat/playat/pkg/logger"
)

// FireCommand is the hidden subcommand scheduled jobs run.
const FireCommand = "fire"

// Recorder stores records of registered jobs. The job registry implements it.
type Recorder interface {
	Add(ctx context.Context, rec job.Record) error
}

// Environment is what the scheduled invocation needs from the interactive
// one so that both have the same capabilities.
type Environment struct {
	// Exe is the absolute path of the playat binary.
	Exe string
	// Env holds variables to export, e.g. the config dir.
	Env map[string]string
	// Activate is an optional shell line run before playat.
	Activate string
}

// Compiler turns a job.Spec into an OS job and records it.
type Compiler struct {
	backend  Backend
	recorder Recorder
	env      Environment
	log      logger.Logger
	now      func() time.Time
}

func NewCompiler(backend Backend, recorder Recorder, env Environment, l logger.Logger) *Compiler {
	if l == nil {
		l = logger.NewNopLogger()
	}
	return &Compiler{backend: backend, recorder: recorder, env: env, log: l, now: time.Now}
}

// Backend returns the backend jobs are registered with.
func (c *Compiler) Backend() Backend {
	return c.backend
}

// FireArgs returns the arguments of the fire invocation for spec. The media
// and device are already normalized; the deadline is passed only as a
// lower bound, never re-resolved.
func FireArgs(spec job.Spec) []string {
	args := []string{
		FireCommand,
		"--kind", string(spec.Media.Kind),
		"--id", spec.Media.ID,
		"--not-before", spec.Deadline.Format(time.RFC3339),
	}
	if spec.Device != "" {
		args = append(args, "--device", spec.Device)
	}
	return args
}

// Invocation builds the scheduled command for spec.
func (c *Compiler) Invocation(spec job.Spec) Invocation {
	return Invocation{
		Exe:      c.env.Exe,
		Args:     FireArgs(spec),
		Env:      c.env.Env,
		Activate: c.env.Activate,
		Comment:  fmt.Sprintf("playat: %s on %s at %s", spec.Media.URI(), spec.DeviceLabel(), spec.Deadline.Format(time.RFC3339)),
	}
}

// CompileAndRegister registers spec with the OS scheduler and records it as
// pending. If recording fails the OS job already exists; the returned error
// wraps ErrOrphanedJob and names it, and the record is still returned.
func (c *Compiler) CompileAndRegister(ctx context.Context, spec job.Spec) (*job.Record, error) {
	if err := spec.Validate(); err != nil {
		return nil, err
	}
	if err := c.backend.Available(); err != nil {
		return nil, err
	}
	task := Task{
		Deadline:   spec.Deadline,
		Trigger:    TriggerTime(spec.Deadline, c.now()),
		Invocation: c.Invocation(spec),
	}
	id, err := c.backend.Register(ctx, task)
	if err != nil {
		return nil, err
	}
	now := c.now()
	rec := job.Record{
		ID:        id,
		Backend:   c.backend.Name(),
		Spec:      spec,
		Status:    job.StatusPending,
		CreatedAt: now,
		UpdatedAt: now,
	}
	c.log.Info("registered %s job %s: %s at %s", rec.Backend, id, spec.Media.URI(), spec.Deadline.Format(time.RFC3339))
	if err := c.recorder.Add(ctx, rec); err != nil {
		c.log.Error("%s job %s is registered but untracked: %v", rec.Backend, id, err)
		return &rec, fmt.Errorf("%w: %s job %s: %v", ErrOrphanedJob, rec.Backend, id, err)
	}
	return &rec, nil
}
