package core

import (
	"context"
	"errors"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/JonMunkholm/smartsync/internal/schema"
	"github.com/JonMunkholm/smartsync/internal/store"
	"github.com/JonMunkholm/smartsync/internal/tabular"
)

func newTestService(t *testing.T, limiter *RunLimiter) (*Service, *store.MemoryStore) {
	t.Helper()
	st := store.NewMemoryStore()
	t.Cleanup(func() { _ = st.Close() })

	svc, err := NewService(schema.NewStaticProvider(nil), st, ServiceConfig{Limiter: limiter})
	require.NoError(t, err)
	return svc, st
}

func parseCSV(t *testing.T, text string) *tabular.Table {
	t.Helper()
	table, err := tabular.Parse("products.csv", strings.NewReader(text), 0)
	require.NoError(t, err)
	return table
}

func TestService_IngestAllCallable(t *testing.T) {
	svc, _ := newTestService(t, nil)
	table := parseCSV(t, "Product Name,Category,Price,Image URL\n"+
		"Mug,Kitchen,12.5,https://images.unsplash.com/mug.jpg\n"+
		"Lamp,Home,40,https://cdn.shopify.com/lamp.png\n")

	res, err := svc.Ingest(context.Background(), table)
	require.NoError(t, err)

	assert.Equal(t, OutcomeReady, res.Outcome)
	assert.NotEmpty(t, res.RunID)
	require.Len(t, res.Rows.Valid, 2)
	assert.Equal(t, "12.50", res.Rows.Valid[0].Fields["unitPrice"])
	assert.Equal(t, "$12.50", res.Rows.Valid[0].FormattedPrice)
	assert.Equal(t, CaseAllCallable, res.Batch.Case)
	assert.Equal(t, "processCallableUrls", res.Remediation.NextAction)
}

func TestService_IngestMissingHeaders(t *testing.T) {
	svc, _ := newTestService(t, nil)
	table := parseCSV(t, "name,unitPrice,mainImg\nMug,5,mug.jpg\n")

	res, err := svc.Ingest(context.Background(), table)
	require.NoError(t, err)

	assert.Equal(t, OutcomeHeadersMissing, res.Outcome)
	assert.Nil(t, res.Rows, "rows must not be normalized when headers are missing")
	require.Len(t, res.MissingHeaders, 1)
	assert.Equal(t, "category", res.MissingHeaders[0].Header)
	assert.Contains(t, res.MissingHeaders[0].Solution, "category")
	require.NotEmpty(t, res.Notices)
	assert.Equal(t, NoticeError, res.Notices[len(res.Notices)-1].Level)

	_, err = svc.Persist(context.Background(), res)
	var missing *MissingHeadersError
	require.ErrorAs(t, err, &missing)
	assert.Equal(t, []string{"category"}, missing.Fields)
}

func TestService_IngestNoValidRows(t *testing.T) {
	svc, _ := newTestService(t, nil)
	table := parseCSV(t, "name,category,unitPrice,mainImg\n,Kitchen,5,x.jpg\n")

	res, err := svc.Ingest(context.Background(), table)
	require.NoError(t, err)
	assert.Equal(t, OutcomeNoValidRows, res.Outcome)
	assert.Len(t, res.Rows.Invalid, 1)

	_, err = svc.Persist(context.Background(), res)
	assert.ErrorIs(t, err, ErrNoValidRows)
}

func TestService_IngestNoImages(t *testing.T) {
	svc, _ := newTestService(t, nil)
	table := parseCSV(t, "name,category,unitPrice,mainImg\nMug,Kitchen,5,\n")

	res, err := svc.Ingest(context.Background(), table)
	require.NoError(t, err)
	assert.Equal(t, OutcomeImagesMissing, res.Outcome)
	assert.Equal(t, "addImages", res.Remediation.NextAction)
	assert.ErrorIs(t, res.Err(), ErrNoImages)
}

func TestService_PersistMixedAndReconcileOrphan(t *testing.T) {
	svc, st := newTestService(t, nil)
	ctx := context.Background()
	table := parseCSV(t, "ID,name,category,unitPrice,mainImg\n"+
		"A1,Mug,Kitchen,12.5,https://images.unsplash.com/mug.jpg\n"+
		"A2,Lamp,Home,40,wix:image://v1/lamp.jpg\n"+
		"A3,Vase,Home,9,\n"+
		"A4,,Home,9,\n")

	res, err := svc.Ingest(ctx, table)
	require.NoError(t, err)
	assert.Equal(t, CaseMixed, res.Batch.Case)

	out, err := svc.Persist(ctx, res)
	require.NoError(t, err)
	assert.Equal(t, 3, out.Products)
	assert.Equal(t, 1, out.PendingImages)
	assert.Equal(t, 1, out.ImageRecords)
	assert.Equal(t, 1, out.InvalidRows)

	products, err := st.Find(ctx, "products")
	require.NoError(t, err)
	for _, p := range products {
		_, hasImage := p["mainImg"]
		assert.False(t, hasImage, "product records must not carry the raw image reference")
	}

	report, err := svc.Reconcile(ctx)
	require.NoError(t, err)
	assert.True(t, report.Result.HasErrors())
	assert.False(t, report.Persisted)
	assert.ErrorIs(t, report.Err(), ErrUnmatchedRecords)
	assert.Equal(t, 2, report.Result.Stats.UnmatchedProducts)

	listings, err := svc.Listings(ctx)
	require.NoError(t, err)
	assert.Empty(t, listings, "listings must not be written while records are unmatched")

	invalid, err := svc.InvalidRows(ctx)
	require.NoError(t, err)
	require.Len(t, invalid, 1)
	assert.Equal(t, "A4", invalid[0].String("ID"))
}

func TestService_ResolveAndReconcile(t *testing.T) {
	svc, st := newTestService(t, nil)
	ctx := context.Background()
	table := parseCSV(t, "ID,name,category,unitPrice,mainImg\n"+
		"A1,Mug,Kitchen,12.5,https://images.unsplash.com/mug.jpg\n"+
		"A2,Lamp,Home,40,wix:image://v1/lamp.jpg\n")

	res, err := svc.Ingest(ctx, table)
	require.NoError(t, err)
	_, err = svc.Persist(ctx, res)
	require.NoError(t, err)

	mug := res.Rows.Valid[0]
	n, err := svc.ResolveImages(ctx, []ResolvedImage{{
		RowID:       mug.RowID,
		ID:          "A1",
		ProductName: "Mug",
		Image:       "wix:image://v1/mug.jpg",
		OriginalURL: "https://images.unsplash.com/mug.jpg",
	}})
	require.NoError(t, err)
	assert.Equal(t, 1, n)

	pending, err := st.Find(ctx, "pending_images")
	require.NoError(t, err)
	assert.Empty(t, pending, "resolved images leave the pending queue")

	report, err := svc.Reconcile(ctx)
	require.NoError(t, err)
	require.False(t, report.Result.HasErrors(), "unmatched: %+v", report.Result.Unmatched)
	assert.True(t, report.Persisted)
	assert.Equal(t, "100.0%", report.Result.Stats.MatchRateDisplay)

	listings, err := svc.Listings(ctx)
	require.NoError(t, err)
	require.Len(t, listings, 2)
	for _, l := range listings {
		assert.Equal(t, string(StrategyRowID), l.String("matchStrategy"))
		assert.True(t, strings.HasPrefix(l.String("mainImg"), "wix:image://"))
	}
}

func TestService_PersistReplacesPreviousIngest(t *testing.T) {
	svc, st := newTestService(t, nil)
	ctx := context.Background()

	first := parseCSV(t, "name,category,unitPrice,mainImg\nMug,Kitchen,5,mug.jpg\nCup,Kitchen,5,cup.jpg\n")
	res, err := svc.Ingest(ctx, first)
	require.NoError(t, err)
	_, err = svc.Persist(ctx, res)
	require.NoError(t, err)

	second := parseCSV(t, "name,category,unitPrice,mainImg\nLamp,Home,9,lamp.jpg\n")
	res, err = svc.Ingest(ctx, second)
	require.NoError(t, err)
	_, err = svc.Persist(ctx, res)
	require.NoError(t, err)

	products, err := st.Find(ctx, "products")
	require.NoError(t, err)
	require.Len(t, products, 1)
	assert.Equal(t, "Lamp", products[0].String("name"))
}

func TestService_LimiterRejectsWhenFull(t *testing.T) {
	limiter := NewRunLimiter(1, 20*time.Millisecond)
	svc, _ := newTestService(t, limiter)

	require.True(t, limiter.TryAcquire())
	defer limiter.Release()

	_, err := svc.Ingest(context.Background(), parseCSV(t, "name\nMug\n"))
	assert.True(t, errors.Is(err, ErrTooManyRuns), "err = %v", err)
	assert.Equal(t, "UPL002", MapError(err).Code)
}

func TestService_IngestNilTable(t *testing.T) {
	svc, _ := newTestService(t, nil)
	_, err := svc.Ingest(context.Background(), nil)
	assert.True(t, IsStructural(err))
}

func TestNewService_RequiresDependencies(t *testing.T) {
	_, err := NewService(nil, store.NewMemoryStore(), ServiceConfig{})
	assert.Error(t, err)
	_, err = NewService(schema.NewStaticProvider(nil), nil, ServiceConfig{})
	assert.Error(t, err)
}
