package server

import (
	"context"
	"time"

	"github.com/playat/playat/internal/dispatch"
	"github.com/playat/playat/internal/job"
	"github.com/playat/playat/internal/playback"
	"github.com/playat/playat/internal/registry"
)

// Jobs is what the web form and the RPC methods operate on.
type Jobs interface {
	Create(ctx context.Context, req job.Request) (*job.Record, error)
	List(ctx context.Context) ([]job.Record, error)
	Cancel(ctx context.Context, id string) (job.Record, error)
	Reconcile(ctx context.Context) ([]job.Record, error)
	Devices(ctx context.Context) ([]playback.Device, error)
}

// JobService implements Jobs on top of the registry and the dispatcher.
// Submitted jobs are always handed to the OS scheduler: a request handler
// never waits in-process.
type JobService struct {
	Registry   *registry.Registry
	Dispatcher *dispatch.Dispatcher
	// DeviceLister may be nil; Devices then returns an empty list.
	DeviceLister  playback.DeviceLister
	Platform      string
	Backends      job.BackendSet
	DefaultDevice string
	Now           func() time.Time
}

func (s *JobService) now() time.Time {
	if s.Now != nil {
		return s.Now()
	}
	return time.Now()
}

func (s *JobService) Create(ctx context.Context, req job.Request) (*job.Record, error) {
	if req.Device == "" {
		req.Device = s.DefaultDevice
	}
	spec, err := job.NewSpec(s.now(), req)
	if err != nil {
		return nil, err
	}
	mode, err := job.Select(spec, true, s.Platform, s.Backends)
	if err != nil {
		return nil, err
	}
	return s.Dispatcher.Schedule(ctx, spec, mode)
}

func (s *JobService) List(ctx context.Context) ([]job.Record, error) {
	return s.Registry.List(ctx)
}

func (s *JobService) Cancel(ctx context.Context, id string) (job.Record, error) {
	return s.Registry.Cancel(ctx, id)
}

func (s *JobService) Reconcile(ctx context.Context) ([]job.Record, error) {
	return s.Registry.Reconcile(ctx)
}

// Devices lists devices sorted case-insensitively by name.
func (s *JobService) Devices(ctx context.Context) ([]playback.Device, error) {
	if s.DeviceLister == nil {
		return nil, nil
	}
	devices, err := s.DeviceLister.Devices(ctx)
	if err != nil {
		return nil, err
	}
	playback.SortByName(devices)
	return devices, nil
}

var _ Jobs = (*JobService)(nil)
