// Package store keeps a small local log of export snapshots so the Export
// tab and the exports subcommand can show what was downloaded and with
// which filters. Losing this store never blocks an export.
package store

import (
	"context"
	"database/sql"
	"time"

	"github.com/google/uuid"
	"github.com/rotisserie/eris"
	_ "modernc.org/sqlite"
)

// ExportRecord is one logged export download.
type ExportRecord struct {
	ID        string    `json:"id"`
	Format    string    `json:"format"`
	Rows      int       `json:"rows"`
	Filter    string    `json:"filter"` // filter.Spec JSON as sent by the client
	CreatedAt time.Time `json:"created_at"`
}

// Store records and lists export snapshots.
type Store interface {
	Migrate(ctx context.Context) error
	RecordExport(ctx context.Context, format string, rows int, filterJSON string) (*ExportRecord, error)
	ListExports(ctx context.Context, limit int) ([]ExportRecord, error)
	Close() error
}

// SQLiteStore implements Store using modernc.org/sqlite.
type SQLiteStore struct {
	db *sql.DB
}

// NewSQLite opens a SQLite database at the given path and configures WAL mode.
func NewSQLite(dsn string) (*SQLiteStore, error) {
	db, err := sql.Open("sqlite", dsn)
	if err != nil {
		return nil, eris.Wrap(err, "sqlite: open")
	}
	for _, pragma := range []string{
		"PRAGMA journal_mode=WAL",
		"PRAGMA busy_timeout=5000",
		"PRAGMA synchronous=NORMAL",
	} {
		if _, err := db.Exec(pragma); err != nil {
			db.Close()
			return nil, eris.Wrapf(err, "sqlite: exec %s", pragma)
		}
	}
	return &SQLiteStore{db: db}, nil
}

const sqliteMigration = `
CREATE TABLE IF NOT EXISTS exports (
	id         TEXT PRIMARY KEY,
	format     TEXT NOT NULL,
	row_count  INTEGER NOT NULL,
	filter     TEXT NOT NULL DEFAULT '{}',
	created_at DATETIME NOT NULL DEFAULT (datetime('now'))
);

CREATE INDEX IF NOT EXISTS idx_exports_created_at ON exports(created_at);
`

func (s *SQLiteStore) Migrate(ctx context.Context) error {
	_, err := s.db.ExecContext(ctx, sqliteMigration)
	return eris.Wrap(err, "sqlite: migrate")
}

func (s *SQLiteStore) Close() error {
	return s.db.Close()
}

func (s *SQLiteStore) RecordExport(ctx context.Context, format string, rows int, filterJSON string) (*ExportRecord, error) {
	if filterJSON == "" {
		filterJSON = "{}"
	}
	rec := &ExportRecord{
		ID:        uuid.New().String(),
		Format:    format,
		Rows:      rows,
		Filter:    filterJSON,
		CreatedAt: time.Now().UTC(),
	}

	_, err := s.db.ExecContext(ctx,
		`INSERT INTO exports (id, format, row_count, filter, created_at) VALUES (?, ?, ?, ?, ?)`,
		rec.ID, rec.Format, rec.Rows, rec.Filter, rec.CreatedAt,
	)
	if err != nil {
		return nil, eris.Wrap(err, "sqlite: insert export")
	}
	return rec, nil
}

func (s *SQLiteStore) ListExports(ctx context.Context, limit int) ([]ExportRecord, error) {
	if limit <= 0 {
		limit = 50
	}

	rows, err := s.db.QueryContext(ctx,
		`SELECT id, format, row_count, filter, created_at FROM exports
		 ORDER BY created_at DESC LIMIT ?`,
		limit,
	)
	if err != nil {
		return nil, eris.Wrap(err, "sqlite: list exports")
	}
	defer rows.Close()

	var records []ExportRecord
	for rows.Next() {
		var rec ExportRecord
		if err := rows.Scan(&rec.ID, &rec.Format, &rec.Rows, &rec.Filter, &rec.CreatedAt); err != nil {
			return nil, eris.Wrap(err, "sqlite: scan export")
		}
		records = append(records, rec)
	}
	return records, eris.Wrap(rows.Err(), "sqlite: list exports iterate")
}
