// Package application assembles the pipeline from configuration. Both the
// HTTP server and the CLI build their dependencies through Build.
package application

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"strings"

	"golang.org/x/time/rate"

	"github.com/JonMunkholm/smartsync/internal/admin"
	"github.com/JonMunkholm/smartsync/internal/config"
	"github.com/JonMunkholm/smartsync/internal/core"
	"github.com/JonMunkholm/smartsync/internal/schema"
	"github.com/JonMunkholm/smartsync/internal/store"
)

// App holds the wired pipeline and the resources it owns.
type App struct {
	Config   *config.Config
	Store    store.Store
	Schemas  schema.Provider
	Service  *core.Service
	Limiter  *core.RunLimiter
	Resetter *admin.Resetter
}

// Build opens the store and wires the service. The caller must Close the App.
func Build(ctx context.Context, cfg *config.Config) (*App, error) {
	prices, err := core.NewPriceFormatter(cfg.Pricing.Locale, cfg.Pricing.Currency, cfg.Pricing.Symbol)
	if err != nil {
		return nil, fmt.Errorf("price formatter: %w", err)
	}

	schemas := SchemaProvider(cfg.Schema)
	fields, err := schemas.Fields(ctx)
	if err != nil {
		return nil, fmt.Errorf("load schema: %w", err)
	}

	st, err := store.Open(ctx, store.Options{
		Driver:          strings.ToLower(cfg.Store.Driver),
		URL:             cfg.Store.URL,
		SQLitePath:      cfg.Store.SQLitePath,
		MaxConns:        cfg.Store.MaxConns,
		MinConns:        cfg.Store.MinConns,
		MaxConnLifetime: cfg.Store.MaxConnLifetime,
		MaxConnIdleTime: cfg.Store.MaxConnIdleTime,
	})
	if err != nil {
		return nil, fmt.Errorf("open store: %w", err)
	}

	limiter := core.NewRunLimiter(cfg.Upload.MaxConcurrent, cfg.Upload.MaxWaitTime)
	svc, err := core.NewService(schemas, st, core.ServiceConfig{
		Prices:     prices,
		Classifier: NewClassifier(cfg.Probe),
		Limiter:    limiter,
		RunTimeout: cfg.Upload.Timeout,
	})
	if err != nil {
		_ = st.Close()
		return nil, err
	}

	slog.Info("pipeline ready",
		"store", cfg.Store.Driver,
		"schema_fields", len(fields),
		"probe", cfg.Probe.Enabled,
		"currency", prices.Currency(),
	)

	return &App{
		Config:   cfg,
		Store:    st,
		Schemas:  schemas,
		Service:  svc,
		Limiter:  limiter,
		Resetter: &admin.Resetter{Store: st, Collections: core.DefaultCollections},
	}, nil
}

// SchemaProvider returns the YAML file provider when a file is configured,
// else the built-in catalog schema.
func SchemaProvider(cfg config.SchemaConfig) schema.Provider {
	if cfg.File != "" {
		return schema.NewFileProvider(cfg.File)
	}
	return schema.NewStaticProvider(nil)
}

// NewClassifier builds the image classifier. Probing disabled leaves the
// classifier without a prober.
func NewClassifier(cfg config.ProbeConfig) *core.Classifier {
	cc := core.ClassifierConfig{
		TrustedHosts: cfg.TrustedHosts,
		Concurrency:  cfg.Concurrency,
	}
	if cfg.Enabled {
		cc.Prober = core.NewHTTPProber(core.HTTPProberConfig{
			Timeout:   cfg.Timeout,
			PerHost:   rate.Limit(cfg.RatePerHost),
			Burst:     cfg.Burst,
			UserAgent: cfg.UserAgent,
		})
	}
	return core.NewClassifier(cc)
}

// Close waits for in-flight runs, bounded by ctx, then closes the store.
func (a *App) Close(ctx context.Context) error {
	drainErr := a.Service.WaitForRuns(ctx)
	if drainErr != nil {
		slog.Warn("runs still active at shutdown", "active", a.Limiter.ActiveCount())
	}
	return errors.Join(drainErr, a.Store.Close())
}
