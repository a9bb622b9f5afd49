package store

import (
	"context"
	"database/sql"
	"encoding/json"
	"fmt"
	"strings"

	_ "modernc.org/sqlite"
)

const sqliteSchema = `
CREATE TABLE IF NOT EXISTS records (
	seq        INTEGER PRIMARY KEY AUTOINCREMENT,
	id         TEXT NOT NULL,
	collection TEXT NOT NULL,
	data       TEXT NOT NULL,
	created_at TEXT NOT NULL DEFAULT CURRENT_TIMESTAMP,
	UNIQUE (collection, id)
);
CREATE INDEX IF NOT EXISTS records_collection_idx ON records (collection, seq);
`

// SQLiteStore keeps records as JSON text in a single SQLite table.
type SQLiteStore struct {
	db *sql.DB
}

// OpenSQLite opens (or creates) the database file at path.
func OpenSQLite(ctx context.Context, path string) (*SQLiteStore, error) {
	db, err := sql.Open("sqlite", path)
	if err != nil {
		return nil, fmt.Errorf("open sqlite %s: %w", path, err)
	}
	// One writer at a time; SQLite serializes writes anyway.
	db.SetMaxOpenConns(1)

	for _, pragma := range []string{
		"PRAGMA journal_mode = WAL",
		"PRAGMA busy_timeout = 5000",
	} {
		if _, err := db.ExecContext(ctx, pragma); err != nil {
			db.Close()
			return nil, fmt.Errorf("sqlite %s: %w", pragma, err)
		}
	}
	if _, err := db.ExecContext(ctx, sqliteSchema); err != nil {
		db.Close()
		return nil, fmt.Errorf("migrate records table: %w", err)
	}
	return &SQLiteStore{db: db}, nil
}

func (s *SQLiteStore) Find(ctx context.Context, collection string) ([]Record, error) {
	recs, err := sqliteFind(ctx, s.db, collection)
	if err != nil {
		return nil, readErr(collection, err)
	}
	return recs, nil
}

func (s *SQLiteStore) BulkInsert(ctx context.Context, collection string, records []Record) (int, error) {
	if len(records) == 0 {
		return 0, nil
	}
	keyed := withKeys(records)

	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return 0, writeErr(collection, err)
	}
	defer tx.Rollback()

	stmt, err := tx.PrepareContext(ctx, `INSERT INTO records (id, collection, data) VALUES (?, ?, ?)`)
	if err != nil {
		return 0, writeErr(collection, err)
	}
	defer stmt.Close()

	for _, r := range keyed {
		data, err := json.Marshal(r)
		if err != nil {
			return 0, writeErr(collection, fmt.Errorf("encode record: %w", err))
		}
		if _, err := stmt.ExecContext(ctx, r.Key(), collection, string(data)); err != nil {
			return 0, writeErr(collection, err)
		}
	}
	if err := tx.Commit(); err != nil {
		return 0, writeErr(collection, err)
	}
	return len(keyed), nil
}

func (s *SQLiteStore) BulkRemove(ctx context.Context, collection string, keys []string) (int, error) {
	if len(keys) == 0 {
		return 0, nil
	}
	removed := 0
	// Stay well under SQLite's bound-parameter limit.
	const chunk = 500
	for start := 0; start < len(keys); start += chunk {
		end := min(start+chunk, len(keys))
		part := keys[start:end]

		args := make([]any, 0, len(part)+1)
		args = append(args, collection)
		for _, k := range part {
			args = append(args, k)
		}
		query := `DELETE FROM records WHERE collection = ? AND id IN (?` + strings.Repeat(",?", len(part)-1) + `)`
		res, err := s.db.ExecContext(ctx, query, args...)
		if err != nil {
			return removed, writeErr(collection, err)
		}
		n, _ := res.RowsAffected()
		removed += int(n)
	}
	return removed, nil
}

// Snapshot reads inside one read-only transaction.
func (s *SQLiteStore) Snapshot(ctx context.Context, collections ...string) (map[string][]Record, error) {
	tx, err := s.db.BeginTx(ctx, &sql.TxOptions{ReadOnly: true})
	if err != nil {
		return nil, readErr(firstOf(collections), fmt.Errorf("begin snapshot: %w", err))
	}
	defer tx.Rollback()

	out := make(map[string][]Record, len(collections))
	for _, c := range collections {
		recs, err := sqliteFind(ctx, tx, c)
		if err != nil {
			return nil, readErr(c, err)
		}
		out[c] = recs
	}
	return out, nil
}

func (s *SQLiteStore) Close() error {
	return s.db.Close()
}

type sqlQuerier interface {
	QueryContext(ctx context.Context, query string, args ...any) (*sql.Rows, error)
}

func sqliteFind(ctx context.Context, q sqlQuerier, collection string) ([]Record, error) {
	rows, err := q.QueryContext(ctx,
		`SELECT data FROM records WHERE collection = ? ORDER BY seq`, collection)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var out []Record
	for rows.Next() {
		var data string
		if err := rows.Scan(&data); err != nil {
			return nil, fmt.Errorf("scan record: %w", err)
		}
		var r Record
		if err := json.Unmarshal([]byte(data), &r); err != nil {
			return nil, fmt.Errorf("decode record: %w", err)
		}
		out = append(out, r)
	}
	return out, rows.Err()
}
