package memory

import (
	"context"
	"fmt"
	"sort"
	"sync"

	"github.com/leapstack-labs/leapquery/pkg/core"
)

// MemStore is an in-process Store.
type MemStore struct {
	mu      sync.RWMutex
	records []core.MemoryRecord
	ids     map[string]bool
}

var _ Store = (*MemStore)(nil)

// NewMemStore creates an empty store.
func NewMemStore() *MemStore {
	return &MemStore{ids: make(map[string]bool)}
}

// Append implements Store.
func (m *MemStore) Append(ctx context.Context, rec core.MemoryRecord) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.ids[rec.ID] {
		return fmt.Errorf("%w: %s", ErrDuplicate, rec.ID)
	}
	m.ids[rec.ID] = true
	m.records = append(m.records, rec)
	return nil
}

// FindSimilar implements Store.
func (m *MemStore) FindSimilar(ctx context.Context, utterance string, limit int) ([]core.MemoryRecord, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	m.mu.RLock()
	defer m.mu.RUnlock()
	return rank(m.records, utterance, limit), nil
}

// List implements Store.
func (m *MemStore) List(ctx context.Context, limit int) ([]core.MemoryRecord, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	m.mu.RLock()
	out := make([]core.MemoryRecord, 0, len(m.records))
	for i := len(m.records) - 1; i >= 0; i-- {
		out = append(out, m.records[i])
	}
	m.mu.RUnlock()

	sort.SliceStable(out, func(i, j int) bool {
		return out[i].CreatedAt.After(out[j].CreatedAt)
	})
	if limit > 0 && len(out) > limit {
		out = out[:limit]
	}
	return out, nil
}

// Close implements Store.
func (m *MemStore) Close() error { return nil }
