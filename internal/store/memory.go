package store

import (
	"context"
	"sort"
	"sync"

	"github.com/google/uuid"
)

// MemoryStore keeps runs in process memory. Useful for tests and demos.
type MemoryStore struct {
	mu   sync.RWMutex
	runs map[uuid.UUID]RunRecord
}

func NewMemoryStore() *MemoryStore {
	return &MemoryStore{runs: map[uuid.UUID]RunRecord{}}
}

func (m *MemoryStore) Save(_ context.Context, rec *RunRecord) error {
	if err := prepare(rec); err != nil {
		return err
	}
	m.mu.Lock()
	defer m.mu.Unlock()
	m.runs[rec.ID] = *rec
	return nil
}

func (m *MemoryStore) Get(_ context.Context, id uuid.UUID) (*RunRecord, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	rec, ok := m.runs[id]
	if !ok {
		return nil, ErrRunNotFound
	}
	return &rec, nil
}

func (m *MemoryStore) List(_ context.Context, limit int) ([]RunRecord, error) {
	m.mu.RLock()
	out := make([]RunRecord, 0, len(m.runs))
	for _, rec := range m.runs {
		rec.Result = nil
		rec.Backtest = nil
		out = append(out, rec)
	}
	m.mu.RUnlock()

	sort.Slice(out, func(i, j int) bool {
		if !out[i].CreatedAt.Equal(out[j].CreatedAt) {
			return out[i].CreatedAt.After(out[j].CreatedAt)
		}
		return out[i].ID.String() < out[j].ID.String()
	})
	if n := listLimit(limit); len(out) > n {
		out = out[:n]
	}
	return out, nil
}

func (m *MemoryStore) Close() error { return nil }
