// Package store persists pipeline records in named collections.
//
// Every backend offers the same four operations. Replace builds
// clear-then-insert on top of them, and Snapshot reads several collections
// as of one point in time so reconciliation never sees a half-written pair.
package store

import (
	"context"
	"fmt"

	"github.com/google/uuid"
)

// KeyField is the record key assigned by the store.
const KeyField = "_id"

// Record is one stored document.
type Record map[string]any

// Key returns the record's store key, or "" when unset.
func (r Record) Key() string {
	if s, ok := r[KeyField].(string); ok {
		return s
	}
	return ""
}

// String returns the field as a string. Non-string scalars are formatted.
func (r Record) String(field string) string {
	v, ok := r[field]
	if !ok || v == nil {
		return ""
	}
	if s, ok := v.(string); ok {
		return s
	}
	return fmt.Sprint(v)
}

// Clone returns a shallow copy.
func (r Record) Clone() Record {
	out := make(Record, len(r))
	for k, v := range r {
		out[k] = v
	}
	return out
}

// Store is a collection-oriented record store.
type Store interface {
	// Find returns every record in the collection in insertion order.
	Find(ctx context.Context, collection string) ([]Record, error)

	// BulkInsert stores records, assigning KeyField where absent, and
	// returns the number inserted.
	BulkInsert(ctx context.Context, collection string, records []Record) (int, error)

	// BulkRemove deletes records by key and returns the number removed.
	BulkRemove(ctx context.Context, collection string, keys []string) (int, error)

	// Snapshot reads several collections consistently.
	Snapshot(ctx context.Context, collections ...string) (map[string][]Record, error)

	Close() error
}

// Replace empties a collection and fills it with records.
func Replace(ctx context.Context, s Store, collection string, records []Record) (removed, inserted int, err error) {
	existing, err := s.Find(ctx, collection)
	if err != nil {
		return 0, 0, err
	}
	if len(existing) > 0 {
		keys := make([]string, 0, len(existing))
		for _, r := range existing {
			keys = append(keys, r.Key())
		}
		if removed, err = s.BulkRemove(ctx, collection, keys); err != nil {
			return removed, 0, err
		}
	}
	if len(records) == 0 {
		return removed, 0, nil
	}
	inserted, err = s.BulkInsert(ctx, collection, records)
	return removed, inserted, err
}

// withKeys copies records and assigns a key to each that lacks one.
func withKeys(records []Record) []Record {
	out := make([]Record, len(records))
	for i, r := range records {
		c := r.Clone()
		if c.Key() == "" {
			c[KeyField] = uuid.NewString()
		}
		out[i] = c
	}
	return out
}

// IOError is a failed store operation.
type IOError struct {
	Collection string
	Op         string // "read" or "write"
	Err        error
}

func (e *IOError) Error() string {
	return fmt.Sprintf("store %s %s: %v", e.Op, e.Collection, e.Err)
}

func (e *IOError) Unwrap() error {
	return e.Err
}

func readErr(collection string, err error) error {
	return &IOError{Collection: collection, Op: "read", Err: err}
}

func writeErr(collection string, err error) error {
	return &IOError{Collection: collection, Op: "write", Err: err}
}
