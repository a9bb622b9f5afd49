package store

import (
	"context"
	"errors"
	"sync"
)

var errClosed = errors.New("store is closed")

// MemoryStore keeps collections in process memory.
type MemoryStore struct {
	mu          sync.RWMutex
	collections map[string][]Record
	closed      bool
}

// NewMemoryStore returns an empty store.
func NewMemoryStore() *MemoryStore {
	return &MemoryStore{collections: make(map[string][]Record)}
}

// Find returns copies of the collection's records.
func (m *MemoryStore) Find(ctx context.Context, collection string) ([]Record, error) {
	if err := ctx.Err(); err != nil {
		return nil, readErr(collection, err)
	}
	m.mu.RLock()
	defer m.mu.RUnlock()
	if m.closed {
		return nil, readErr(collection, errClosed)
	}
	return copyRecords(m.collections[collection]), nil
}

func (m *MemoryStore) BulkInsert(ctx context.Context, collection string, records []Record) (int, error) {
	if err := ctx.Err(); err != nil {
		return 0, writeErr(collection, err)
	}
	keyed := withKeys(records)
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.closed {
		return 0, writeErr(collection, errClosed)
	}
	m.collections[collection] = append(m.collections[collection], keyed...)
	return len(keyed), nil
}

func (m *MemoryStore) BulkRemove(ctx context.Context, collection string, keys []string) (int, error) {
	if err := ctx.Err(); err != nil {
		return 0, writeErr(collection, err)
	}
	drop := make(map[string]bool, len(keys))
	for _, k := range keys {
		drop[k] = true
	}
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.closed {
		return 0, writeErr(collection, errClosed)
	}
	kept := m.collections[collection][:0]
	removed := 0
	for _, r := range m.collections[collection] {
		if drop[r.Key()] {
			removed++
			continue
		}
		kept = append(kept, r)
	}
	m.collections[collection] = kept
	return removed, nil
}

// Snapshot reads all collections under one lock.
func (m *MemoryStore) Snapshot(ctx context.Context, collections ...string) (map[string][]Record, error) {
	if err := ctx.Err(); err != nil {
		return nil, readErr(firstOf(collections), err)
	}
	m.mu.RLock()
	defer m.mu.RUnlock()
	if m.closed {
		return nil, readErr(firstOf(collections), errClosed)
	}
	out := make(map[string][]Record, len(collections))
	for _, c := range collections {
		out[c] = copyRecords(m.collections[c])
	}
	return out, nil
}

func (m *MemoryStore) Close() error {
	m.mu.Lock()
	m.closed = true
	m.mu.Unlock()
	return nil
}

func copyRecords(in []Record) []Record {
	out := make([]Record, len(in))
	for i, r := range in {
		out[i] = r.Clone()
	}
	return out
}

func firstOf(s []string) string {
	if len(s) == 0 {
		return ""
	}
	return s[0]
}
