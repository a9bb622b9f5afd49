package application

import (
	"context"
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/JonMunkholm/smartsync/internal/config"
	"github.com/JonMunkholm/smartsync/internal/schema"
	"github.com/JonMunkholm/smartsync/internal/tabular"
)

func testConfig(t *testing.T) *config.Config {
	t.Helper()
	return &config.Config{
		Store:   config.StoreConfig{Driver: "sqlite", SQLitePath: filepath.Join(t.TempDir(), "nested", "app.db")},
		Upload:  config.UploadConfig{MaxConcurrent: 2, MaxWaitTime: time.Second, Timeout: time.Minute},
		Probe:   config.ProbeConfig{Enabled: false, Concurrency: 2},
		Pricing: config.PricingConfig{Locale: "en-US", Currency: "EUR", Symbol: "€"},
	}
}

func TestBuild_SQLiteEndToEnd(t *testing.T) {
	ctx := context.Background()
	app, err := Build(ctx, testConfig(t))
	require.NoError(t, err)
	defer func() { assert.NoError(t, app.Close(ctx)) }()

	table, err := tabular.Parse("catalog.csv", strings.NewReader(
		"name,category,unitPrice,mainImg\nMug,Kitchen,1234.5,wix:image://v1/mug.jpg\n"), 0)
	require.NoError(t, err)

	res, err := app.Service.Ingest(ctx, table)
	require.NoError(t, err)
	assert.Equal(t, "€1,234.50", res.Rows.Valid[0].FormattedPrice)

	_, err = app.Service.Persist(ctx, res)
	require.NoError(t, err)

	report, err := app.Service.Reconcile(ctx)
	require.NoError(t, err)
	assert.True(t, report.Persisted)

	removed, err := app.Resetter.ResetAll(ctx)
	require.NoError(t, err)
	assert.Equal(t, 1, removed["products"])
	assert.Equal(t, 1, removed["product_listings"])
}

func TestBuild_InvalidCurrency(t *testing.T) {
	cfg := testConfig(t)
	cfg.Pricing.Currency = "NOPE"

	_, err := Build(context.Background(), cfg)
	assert.ErrorContains(t, err, "price formatter")
}

func TestBuild_SchemaFileErrorsSurface(t *testing.T) {
	cfg := testConfig(t)
	cfg.Schema.File = filepath.Join(t.TempDir(), "missing.yaml")

	_, err := Build(context.Background(), cfg)
	assert.ErrorContains(t, err, "load schema")
}

func TestSchemaProvider(t *testing.T) {
	ctx := context.Background()

	fields, err := SchemaProvider(config.SchemaConfig{}).Fields(ctx)
	require.NoError(t, err)
	assert.Len(t, fields, len(schema.CatalogFields))

	path := filepath.Join(t.TempDir(), "schema.yaml")
	require.NoError(t, os.WriteFile(path, []byte("fields:\n  - name: title\n    essential: true\n"), 0o644))
	fields, err = SchemaProvider(config.SchemaConfig{File: path}).Fields(ctx)
	require.NoError(t, err)
	require.Len(t, fields, 1)
	assert.Equal(t, "title", fields[0].Name)
}

func TestNewClassifier_ProbingDisabled(t *testing.T) {
	c := NewClassifier(config.ProbeConfig{Enabled: false, TrustedHosts: []string{"img.example.com"}})

	got := c.Classify(context.Background(), "r1", "https://img.example.com/a.png")
	assert.Equal(t, "callable", string(got.Category))

	got = c.Classify(context.Background(), "r1", "https://elsewhere.example.com/a.png")
	assert.Equal(t, "not_callable", string(got.Category))
}
