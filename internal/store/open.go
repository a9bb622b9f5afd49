package store

import (
	"context"
	"fmt"
	"os"
	"path/filepath"
	"time"

	"github.com/jackc/pgx/v5/pgxpool"
)

// Supported drivers.
const (
	DriverMemory   = "memory"
	DriverSQLite   = "sqlite"
	DriverPostgres = "postgres"
)

// Options selects and configures a backend.
type Options struct {
	Driver          string
	URL             string // postgres connection string
	SQLitePath      string
	MaxConns        int
	MinConns        int
	MaxConnLifetime time.Duration
	MaxConnIdleTime time.Duration
}

// Open creates the store named by opts.Driver.
func Open(ctx context.Context, opts Options) (Store, error) {
	switch opts.Driver {
	case DriverMemory, "":
		return NewMemoryStore(), nil

	case DriverSQLite:
		if dir := filepath.Dir(opts.SQLitePath); dir != "." && dir != "" {
			if err := os.MkdirAll(dir, 0o755); err != nil {
				return nil, fmt.Errorf("create sqlite directory: %w", err)
			}
		}
		return OpenSQLite(ctx, opts.SQLitePath)

	case DriverPostgres:
		poolConfig, err := pgxpool.ParseConfig(opts.URL)
		if err != nil {
			return nil, fmt.Errorf("parse database URL: %w", err)
		}
		if opts.MaxConns > 0 {
			poolConfig.MaxConns = int32(opts.MaxConns)
		}
		if opts.MinConns > 0 {
			poolConfig.MinConns = int32(opts.MinConns)
		}
		if opts.MaxConnLifetime > 0 {
			poolConfig.MaxConnLifetime = opts.MaxConnLifetime
		}
		if opts.MaxConnIdleTime > 0 {
			poolConfig.MaxConnIdleTime = opts.MaxConnIdleTime
		}
		pool, err := pgxpool.NewWithConfig(ctx, poolConfig)
		if err != nil {
			return nil, fmt.Errorf("connect to database: %w", err)
		}
		if err := pool.Ping(ctx); err != nil {
			pool.Close()
			return nil, fmt.Errorf("ping database: %w", err)
		}
		s, err := NewPostgresStore(ctx, pool)
		if err != nil {
			pool.Close()
			return nil, err
		}
		return &ownedPool{PostgresStore: s, pool: pool}, nil

	default:
		return nil, fmt.Errorf("unknown store driver %q", opts.Driver)
	}
}

// ownedPool closes the pool it was opened with.
type ownedPool struct {
	*PostgresStore
	pool *pgxpool.Pool
}

func (o *ownedPool) Close() error {
	o.pool.Close()
	return nil
}
