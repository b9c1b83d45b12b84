// Package audit keeps a history of validation runs in an embedded sqlite
// database: one row per run with its counts and timing. Lookup results are
// never persisted, only run summaries.
package audit

import (
	"context"
	"database/sql"
	"fmt"
	"os"
	"path/filepath"
	"time"

	_ "github.com/mattn/go-sqlite3"
)

const schemaSQL = `
CREATE TABLE IF NOT EXISTS runs (
	id           TEXT PRIMARY KEY,
	file_name    TEXT NOT NULL,
	rows         INTEGER NOT NULL,
	row_errors   INTEGER NOT NULL,
	warnings     INTEGER NOT NULL,
	corrections  INTEGER NOT NULL,
	lookup_used  INTEGER NOT NULL,
	duration_ms  INTEGER NOT NULL,
	created_at   TIMESTAMP NOT NULL DEFAULT CURRENT_TIMESTAMP
);
CREATE INDEX IF NOT EXISTS idx_runs_created_at ON runs(created_at DESC);
`

// Run is one recorded validation run.
type Run struct {
	ID          string    `json:"id"`
	FileName    string    `json:"file_name"`
	Rows        int       `json:"rows"`
	RowErrors   int       `json:"row_errors"`
	Warnings    int       `json:"warnings"`
	Corrections int       `json:"corrections"`
	LookupUsed  bool      `json:"lookup_used"`
	Duration    int64     `json:"duration_ms"`
	CreatedAt   time.Time `json:"created_at"`
}

// Store is a sqlite-backed run history.
type Store struct {
	db *sql.DB
}

// Open opens (creating if needed) the run-history database at path.
func Open(path string) (*Store, error) {
	if dir := filepath.Dir(path); dir != "." {
		if err := os.MkdirAll(dir, 0o755); err != nil {
			return nil, fmt.Errorf("ensure data dir: %w", err)
		}
	}

	db, err := sql.Open("sqlite3", path)
	if err != nil {
		return nil, fmt.Errorf("open sqlite: %w", err)
	}

	if _, err := db.Exec(`PRAGMA journal_mode = WAL;`); err != nil {
		_ = db.Close()
		return nil, fmt.Errorf("pragma journal_mode: %w", err)
	}
	if _, err := db.Exec(schemaSQL); err != nil {
		_ = db.Close()
		return nil, fmt.Errorf("apply schema: %w", err)
	}

	return &Store{db: db}, nil
}

// Close releases the underlying database handle.
func (s *Store) Close() error {
	return s.db.Close()
}

// Record inserts one run. A zero CreatedAt is stamped with the current time.
func (s *Store) Record(ctx context.Context, run Run) error {
	if run.CreatedAt.IsZero() {
		run.CreatedAt = time.Now().UTC()
	}
	_, err := s.db.ExecContext(ctx, `
		INSERT INTO runs (id, file_name, rows, row_errors, warnings, corrections, lookup_used, duration_ms, created_at)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?)`,
		run.ID, run.FileName, run.Rows, run.RowErrors, run.Warnings,
		run.Corrections, run.LookupUsed, run.Duration, run.CreatedAt,
	)
	if err != nil {
		return fmt.Errorf("recording run %s: %w", run.ID, err)
	}
	return nil
}

// Recent returns the most recent runs, newest first.
func (s *Store) Recent(ctx context.Context, limit int) ([]Run, error) {
	if limit <= 0 {
		limit = 50
	}
	rows, err := s.db.QueryContext(ctx, `
		SELECT id, file_name, rows, row_errors, warnings, corrections, lookup_used, duration_ms, created_at
		FROM runs ORDER BY created_at DESC, id LIMIT ?`, limit)
	if err != nil {
		return nil, fmt.Errorf("querying runs: %w", err)
	}
	defer rows.Close()

	var runs []Run
	for rows.Next() {
		var r Run
		if err := rows.Scan(&r.ID, &r.FileName, &r.Rows, &r.RowErrors, &r.Warnings,
			&r.Corrections, &r.LookupUsed, &r.Duration, &r.CreatedAt); err != nil {
			return nil, fmt.Errorf("scanning run: %w", err)
		}
		runs = append(runs, r)
	}
	return runs, rows.Err()
}
