// Package registry tracks the jobs playat handed to the OS scheduler. The
// scheduler is the source of truth: records are advisory and only move
// away from pending through an explicit cancel or a reconciliation.
package registry

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"time"

	"github.com/playat/playat/internal/job"
	"github.com/playat/playat/internal/osched"
	"github.com/playat/playat/pkg/logger"
)

var (
	ErrNotFound   = errors.New("job not found")
	ErrNotPending = errors.New("job is not pending")
	// ErrCancellationFailed is the scheduler's error; the record stays pending.
	ErrCancellationFailed = osched.ErrCancellationFailed
	// ErrRecordNotSaved means the scheduler side changed but the store
	// write failed. The registry retries the write on the next reconcile.
	ErrRecordNotSaved = errors.New("job record not saved")
)

func errNotFound(id string) error  { return fmt.Errorf("%w: %s", ErrNotFound, id) }
func errDuplicate(id string) error { return fmt.Errorf("job %s already recorded", id) }

// Event types sent to the Observer.
const (
	EventCreated   = "job.created"
	EventCancelled = "job.cancelled"
	EventUpdated   = "job.updated"
)

// Event describes one registry change.
type Event struct {
	Type   string     `json:"type"`
	Record job.Record `json:"record"`
}

// Observer receives events after the change is stored. It must not call
// back into the Registry synchronously.
type Observer func(Event)

// Registry serializes every mutation behind one lock. Throughput is a
// handful of requests per minute, so a global lock is enough to keep a
// cancel and a concurrent reconcile from losing each other's update.
type Registry struct {
	mu       sync.Mutex
	store    Store
	backends map[string]osched.Backend
	log      logger.Logger
	now      func() time.Time
	// unsaved holds statuses applied in the scheduler whose store write
	// failed, keyed by job id.
	unsaved map[string]job.Status

	obsMu    sync.RWMutex
	observer Observer
}

// New returns a registry over store. backends are looked up by Name()
// for cancel and reconcile.
func New(store Store, l logger.Logger, backends ...osched.Backend) *Registry {
	if l == nil {
		l = logger.NewNopLogger()
	}
	r := &Registry{
		store:    store,
		backends: make(map[string]osched.Backend, len(backends)),
		log:      l,
		now:      time.Now,
		unsaved:  make(map[string]job.Status),
	}
	for _, b := range backends {
		r.backends[b.Name()] = b
	}
	return r
}

// SetObserver installs o, replacing any previous observer.
func (r *Registry) SetObserver(o Observer) {
	r.obsMu.Lock()
	r.observer = o
	r.obsMu.Unlock()
}

func (r *Registry) emit(events ...Event) {
	r.obsMu.RLock()
	o := r.observer
	r.obsMu.RUnlock()
	if o == nil {
		return
	}
	for _, e := range events {
		o(e)
	}
}

// Add records a freshly registered job. A settled record with the same
// id (schedulers recycle job numbers) is replaced; a pending one is an
// error.
func (r *Registry) Add(ctx context.Context, rec job.Record) error {
	if rec.ID == "" {
		return errors.New("job record without id")
	}
	if rec.Status == "" {
		rec.Status = job.StatusPending
	}
	r.mu.Lock()
	old, err := r.store.Get(ctx, rec.ID)
	switch {
	case err == nil && old.IsPending() && r.unsaved[rec.ID] == "":
		r.mu.Unlock()
		return errDuplicate(rec.ID)
	case err == nil:
		delete(r.unsaved, rec.ID)
		if err := r.store.Delete(ctx, rec.ID); err != nil {
			r.mu.Unlock()
			return err
		}
		r.log.Warning("job id %s reused by %s; dropping the %s record", rec.ID, rec.Backend, old.Status)
	case !errors.Is(err, ErrNotFound):
		r.mu.Unlock()
		return err
	}
	err = r.store.Insert(ctx, rec)
	r.mu.Unlock()
	if err != nil {
		return err
	}
	r.emit(Event{Type: EventCreated, Record: rec})
	return nil
}

// List returns every record in creation order.
func (r *Registry) List(ctx context.Context) ([]job.Record, error) {
	all, err := r.store.All(ctx)
	if err != nil {
		return nil, err
	}
	r.mu.Lock()
	for i := range all {
		r.overlay(&all[i])
	}
	r.mu.Unlock()
	return all, nil
}

// Pending returns the pending records in creation order.
func (r *Registry) Pending(ctx context.Context) ([]job.Record, error) {
	all, err := r.List(ctx)
	if err != nil {
		return nil, err
	}
	out := all[:0]
	for _, rec := range all {
		if rec.IsPending() {
			out = append(out, rec)
		}
	}
	return out, nil
}

func (r *Registry) Get(ctx context.Context, id string) (job.Record, error) {
	rec, err := r.store.Get(ctx, id)
	if err != nil {
		return rec, err
	}
	r.mu.Lock()
	r.overlay(&rec)
	r.mu.Unlock()
	return rec, nil
}

// overlay applies a status the store has not caught up with yet.
// Callers hold r.mu.
func (r *Registry) overlay(rec *job.Record) {
	if st := r.unsaved[rec.ID]; st != "" && rec.IsPending() {
		rec.Status = st
	}
}

// Cancel removes the OS job and marks the record cancelled. If the
// scheduler refuses, the error wraps ErrCancellationFailed and the record
// is left pending.
func (r *Registry) Cancel(ctx context.Context, id string) (job.Record, error) {
	r.mu.Lock()
	rec, err := r.store.Get(ctx, id)
	if err != nil {
		r.mu.Unlock()
		return job.Record{}, err
	}
	r.overlay(&rec)
	if !rec.IsPending() {
		r.mu.Unlock()
		return rec, fmt.Errorf("%w: %s is %s", ErrNotPending, id, rec.Status)
	}
	b, ok := r.backends[rec.Backend]
	if !ok {
		r.mu.Unlock()
		return rec, fmt.Errorf("%w: no %s scheduler on this host", ErrCancellationFailed, rec.Backend)
	}
	if err := b.Cancel(ctx, id); err != nil {
		r.mu.Unlock()
		if !errors.Is(err, ErrCancellationFailed) {
			err = fmt.Errorf("%w: %w", ErrCancellationFailed, err)
		}
		return rec, err
	}
	rec.Status = job.StatusCancelled
	rec.UpdatedAt = r.now()
	err = r.store.Update(ctx, rec)
	if err != nil {
		r.unsaved[id] = job.StatusCancelled
	}
	r.mu.Unlock()
	r.emit(Event{Type: EventCancelled, Record: rec})
	if err != nil {
		r.log.Error("%s job %s is cancelled but its record was not saved: %v", rec.Backend, id, err)
		return rec, fmt.Errorf("%w: %s job %s is cancelled in the scheduler: %v", ErrRecordNotSaved, rec.Backend, id, err)
	}
	r.log.Info("cancelled %s job %s", rec.Backend, id)
	return rec, nil
}

// Reconcile compares pending records with what each backend still lists.
// A job the scheduler no longer reports is assumed to have fired; when
// the scheduler cannot be queried the record becomes unknown. It returns
// the records that changed and never fails on divergence.
func (r *Registry) Reconcile(ctx context.Context) ([]job.Record, error) {
	r.mu.Lock()
	all, err := r.store.All(ctx)
	if err != nil {
		r.mu.Unlock()
		return nil, err
	}
	answers := make(map[string]pendingSet)
	var changed []job.Record
	for _, rec := range all {
		if !rec.IsPending() {
			continue
		}
		if st := r.unsaved[rec.ID]; st != "" {
			rec.Status = st
			rec.UpdatedAt = r.now()
			if err := r.store.Update(ctx, rec); err != nil {
				r.log.Error("reconcile: saving job %s: %v", rec.ID, err)
				continue
			}
			delete(r.unsaved, rec.ID)
			changed = append(changed, rec)
			continue
		}
		a, seen := answers[rec.Backend]
		if !seen {
			a = r.query(ctx, rec.Backend)
			answers[rec.Backend] = a
		}
		switch {
		case a.err != nil:
			rec.Status = job.StatusUnknown
		case a.ids[rec.ID]:
			continue
		default:
			rec.Status = job.StatusFired
		}
		rec.UpdatedAt = r.now()
		if err := r.store.Update(ctx, rec); err != nil {
			r.log.Error("reconcile: saving job %s: %v", rec.ID, err)
			continue
		}
		changed = append(changed, rec)
	}
	r.mu.Unlock()

	for b, a := range answers {
		if a.err != nil {
			r.log.Warning("reconcile: querying %s: %v", b, a.err)
		}
	}
	events := make([]Event, 0, len(changed))
	for _, rec := range changed {
		events = append(events, Event{Type: EventUpdated, Record: rec})
		if rec.Status == job.StatusFired {
			r.prune(ctx, rec)
		}
	}
	r.emit(events...)
	return changed, nil
}

// prune removes what a fired job left behind in its scheduler.
func (r *Registry) prune(ctx context.Context, rec job.Record) {
	p, ok := r.backends[rec.Backend].(osched.Pruner)
	if !ok {
		return
	}
	if err := p.Prune(ctx, rec.ID); err != nil {
		r.log.Warning("reconcile: removing finished %s job %s: %v", rec.Backend, rec.ID, err)
	}
}

// pendingSet is one backend's answer during a reconcile.
type pendingSet struct {
	ids map[string]bool
	err error
}

func (r *Registry) query(ctx context.Context, backend string) (a pendingSet) {
	b, ok := r.backends[backend]
	if !ok {
		a.err = fmt.Errorf("%w: no %s scheduler on this host", osched.ErrSchedulerUnavailable, backend)
		return
	}
	ids, err := b.Pending(ctx)
	if err != nil {
		a.err = err
		return
	}
	a.ids = make(map[string]bool, len(ids))
	for _, id := range ids {
		a.ids[id] = true
	}
	return
}

// Close closes the store.
func (r *Registry) Close() error {
	return r.store.Close()
}

var _ osched.Recorder = (*Registry)(nil)
