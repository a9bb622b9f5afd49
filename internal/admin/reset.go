// Package admin provides administrative operations for store management.
package admin

import (
	"context"
	"errors"
	"fmt"
	"slices"
	"time"

	"github.com/JonMunkholm/smartsync/internal/core"
	"github.com/JonMunkholm/smartsync/internal/logging"
	"github.com/JonMunkholm/smartsync/internal/store"
)

// ResetTimeout is the maximum duration for store reset operations.
const ResetTimeout = 30 * time.Second

// Resetter clears pipeline collections.
type Resetter struct {
	Store       store.Store
	Collections core.Collections
}

// CollectionNames lists every collection the pipeline writes, in reset order.
func CollectionNames(c core.Collections) []string {
	return []string{c.Products, c.PendingImages, c.ImageRecords, c.InvalidRows, c.Listings}
}

// ResetAll empties every pipeline collection and returns removed counts by
// collection. This is a destructive operation - use with caution.
func (r *Resetter) ResetAll(ctx context.Context) (map[string]int, error) {
	return r.Reset(ctx, CollectionNames(r.Collections)...)
}

// ErrUnknownCollection is returned by Reset for a name the pipeline does not write.
var ErrUnknownCollection = errors.New("unknown collection")

// Reset empties the named collections, stopping at the first failure.
// Names are checked before anything is removed.
func (r *Resetter) Reset(ctx context.Context, collections ...string) (map[string]int, error) {
	known := CollectionNames(r.Collections)
	for _, name := range collections {
		if !slices.Contains(known, name) {
			return nil, fmt.Errorf("%w: %q", ErrUnknownCollection, name)
		}
	}

	ctx, cancel := context.WithTimeout(ctx, ResetTimeout)
	defer cancel()

	removed := make(map[string]int, len(collections))
	for _, name := range collections {
		n, _, err := store.Replace(ctx, r.Store, name, nil)
		if err != nil {
			return removed, fmt.Errorf("reset %s: %w", name, err)
		}
		removed[name] = n
	}

	logging.FromContext(ctx).Warn("collections reset", "removed", removed)
	return removed, nil
}
