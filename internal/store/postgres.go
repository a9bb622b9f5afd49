package store

import (
	"context"
	"encoding/json"
	"fmt"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
)

const postgresSchema = `
CREATE TABLE IF NOT EXISTS smartsync_records (
	seq        BIGSERIAL PRIMARY KEY,
	id         TEXT NOT NULL,
	collection TEXT NOT NULL,
	data       JSONB NOT NULL,
	created_at TIMESTAMPTZ NOT NULL DEFAULT now(),
	UNIQUE (collection, id)
);
CREATE INDEX IF NOT EXISTS smartsync_records_collection_idx ON smartsync_records (collection, seq);
`

// PostgresStore keeps records as JSONB rows in a single table.
type PostgresStore struct {
	pool *pgxpool.Pool
}

// querier is satisfied by both *pgxpool.Pool and pgx.Tx.
type querier interface {
	Query(ctx context.Context, sql string, args ...any) (pgx.Rows, error)
}

// NewPostgresStore wraps pool and creates the records table if needed.
func NewPostgresStore(ctx context.Context, pool *pgxpool.Pool) (*PostgresStore, error) {
	if _, err := pool.Exec(ctx, postgresSchema); err != nil {
		return nil, fmt.Errorf("migrate records table: %w", err)
	}
	return &PostgresStore{pool: pool}, nil
}

func (p *PostgresStore) Find(ctx context.Context, collection string) ([]Record, error) {
	recs, err := findIn(ctx, p.pool, collection)
	if err != nil {
		return nil, readErr(collection, err)
	}
	return recs, nil
}

// BulkInsert streams records with COPY.
func (p *PostgresStore) BulkInsert(ctx context.Context, collection string, records []Record) (int, error) {
	if len(records) == 0 {
		return 0, nil
	}
	keyed := withKeys(records)
	rows := make([][]any, 0, len(keyed))
	for _, r := range keyed {
		data, err := json.Marshal(r)
		if err != nil {
			return 0, writeErr(collection, fmt.Errorf("encode record: %w", err))
		}
		rows = append(rows, []any{r.Key(), collection, data})
	}

	n, err := p.pool.CopyFrom(ctx,
		pgx.Identifier{"smartsync_records"},
		[]string{"id", "collection", "data"},
		pgx.CopyFromRows(rows),
	)
	if err != nil {
		return int(n), writeErr(collection, err)
	}
	return int(n), nil
}

func (p *PostgresStore) BulkRemove(ctx context.Context, collection string, keys []string) (int, error) {
	if len(keys) == 0 {
		return 0, nil
	}
	tag, err := p.pool.Exec(ctx,
		`DELETE FROM smartsync_records WHERE collection = $1 AND id = ANY($2)`,
		collection, keys,
	)
	if err != nil {
		return 0, writeErr(collection, err)
	}
	return int(tag.RowsAffected()), nil
}

// Snapshot reads inside one repeatable-read, read-only transaction.
func (p *PostgresStore) Snapshot(ctx context.Context, collections ...string) (map[string][]Record, error) {
	tx, err := p.pool.BeginTx(ctx, pgx.TxOptions{
		IsoLevel:   pgx.RepeatableRead,
		AccessMode: pgx.ReadOnly,
	})
	if err != nil {
		return nil, readErr(firstOf(collections), fmt.Errorf("begin snapshot: %w", err))
	}
	defer tx.Rollback(ctx)

	out := make(map[string][]Record, len(collections))
	for _, c := range collections {
		recs, err := findIn(ctx, tx, c)
		if err != nil {
			return nil, readErr(c, err)
		}
		out[c] = recs
	}
	if err := tx.Commit(ctx); err != nil {
		return nil, readErr(firstOf(collections), fmt.Errorf("commit snapshot: %w", err))
	}
	return out, nil
}

// Close is a no-op; the pool belongs to the caller.
func (p *PostgresStore) Close() error {
	return nil
}

func findIn(ctx context.Context, q querier, collection string) ([]Record, error) {
	rows, err := q.Query(ctx,
		`SELECT data FROM smartsync_records WHERE collection = $1 ORDER BY seq`,
		collection,
	)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var out []Record
	for rows.Next() {
		var data []byte
		if err := rows.Scan(&data); err != nil {
			return nil, fmt.Errorf("scan record: %w", err)
		}
		var r Record
		if err := json.Unmarshal(data, &r); err != nil {
			return nil, fmt.Errorf("decode record: %w", err)
		}
		out = append(out, r)
	}
	return out, rows.Err()
}
