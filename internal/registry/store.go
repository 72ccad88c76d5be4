package registry

import (
	"context"
	"sync"

	"github.com/playat/playat/internal/job"
)

// Store persists job records. Implementations only need to be safe for
// concurrent reads; writes are serialized by the Registry.
type Store interface {
	// Insert adds a record; the id must not exist yet.
	Insert(ctx context.Context, rec job.Record) error
	// Update replaces the record with the same id.
	Update(ctx context.Context, rec job.Record) error
	Delete(ctx context.Context, id string) error
	// Get returns ErrNotFound for an unknown id.
	Get(ctx context.Context, id string) (job.Record, error)
	// All returns every record in insertion order.
	All(ctx context.Context) ([]job.Record, error)
	Close() error
}

// MemoryStore keeps records in memory. It is used by tests and when no
// database can be opened.
type MemoryStore struct {
	mu    sync.RWMutex
	order []string
	recs  map[string]job.Record
}

func NewMemoryStore() *MemoryStore {
	return &MemoryStore{recs: make(map[string]job.Record)}
}

func (m *MemoryStore) Insert(_ context.Context, rec job.Record) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if _, ok := m.recs[rec.ID]; ok {
		return errDuplicate(rec.ID)
	}
	m.recs[rec.ID] = rec
	m.order = append(m.order, rec.ID)
	return nil
}

func (m *MemoryStore) Update(_ context.Context, rec job.Record) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if _, ok := m.recs[rec.ID]; !ok {
		return errNotFound(rec.ID)
	}
	m.recs[rec.ID] = rec
	return nil
}

func (m *MemoryStore) Delete(_ context.Context, id string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if _, ok := m.recs[id]; !ok {
		return errNotFound(id)
	}
	delete(m.recs, id)
	for i, v := range m.order {
		if v == id {
			m.order = append(m.order[:i], m.order[i+1:]...)
			break
		}
	}
	return nil
}

func (m *MemoryStore) Get(_ context.Context, id string) (job.Record, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	rec, ok := m.recs[id]
	if !ok {
		return job.Record{}, errNotFound(id)
	}
	return rec, nil
}

func (m *MemoryStore) All(_ context.Context) ([]job.Record, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	out := make([]job.Record, 0, len(m.order))
	for _, id := range m.order {
		out = append(out, m.recs[id])
	}
	return out, nil
}

func (m *MemoryStore) Close() error { return nil }

var _ Store = (*MemoryStore)(nil)
