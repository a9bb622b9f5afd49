package admin

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/JonMunkholm/smartsync/internal/core"
	"github.com/JonMunkholm/smartsync/internal/store"
)

func TestResetAll(t *testing.T) {
	ctx := context.Background()
	st := store.NewMemoryStore()
	defer st.Close()

	cols := core.DefaultCollections
	_, err := st.BulkInsert(ctx, cols.Products, []store.Record{{"name": "Mug"}, {"name": "Lamp"}})
	require.NoError(t, err)
	_, err = st.BulkInsert(ctx, cols.Listings, []store.Record{{"name": "Mug"}})
	require.NoError(t, err)
	_, err = st.BulkInsert(ctx, "unrelated", []store.Record{{"keep": true}})
	require.NoError(t, err)

	r := &Resetter{Store: st, Collections: cols}
	removed, err := r.ResetAll(ctx)
	require.NoError(t, err)

	assert.Equal(t, 2, removed[cols.Products])
	assert.Equal(t, 1, removed[cols.Listings])
	assert.Equal(t, 0, removed[cols.PendingImages])

	for _, name := range CollectionNames(cols) {
		recs, err := st.Find(ctx, name)
		require.NoError(t, err)
		assert.Empty(t, recs, name)
	}
	kept, err := st.Find(ctx, "unrelated")
	require.NoError(t, err)
	assert.Len(t, kept, 1)
}

func TestReset_ClosedStore(t *testing.T) {
	st := store.NewMemoryStore()
	require.NoError(t, st.Close())

	r := &Resetter{Store: st, Collections: core.DefaultCollections}
	_, err := r.Reset(context.Background(), "products")

	var ioErr *store.IOError
	assert.ErrorAs(t, err, &ioErr)
}

func TestReset_UnknownCollection(t *testing.T) {
	ctx := context.Background()
	st := store.NewMemoryStore()
	defer st.Close()
	_, err := st.BulkInsert(ctx, "products", []store.Record{{"name": "Mug"}})
	require.NoError(t, err)

	r := &Resetter{Store: st, Collections: core.DefaultCollections}
	_, err = r.Reset(ctx, "products", "users")
	assert.ErrorIs(t, err, ErrUnknownCollection)

	recs, err := st.Find(ctx, "products")
	require.NoError(t, err)
	assert.Len(t, recs, 1, "nothing removed when a name is rejected")
}
