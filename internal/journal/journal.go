// Package journal persists per-folder processing outcomes to SQLite so
// operators can inspect what the crawler did across passes. The journal is
// reporting only: idempotency decisions always come from the remote marker
// and the in-run tracker, never from these rows.
package journal

import (
	"context"
	"database/sql"
	"fmt"
	"os"
	"path/filepath"
	"time"

	_ "modernc.org/sqlite"
)

// Outcome labels the result of one folder visit.
type Outcome string

const (
	OutcomeProcessed    Outcome = "processed"
	OutcomeMissingInput Outcome = "missing_input"
	OutcomeFailed       Outcome = "failed"
	OutcomeMarkerError  Outcome = "marker_error"
)

// Event is one journal row.
type Event struct {
	ID         int64
	FolderID   string
	FolderName string
	Outcome    Outcome
	Detail     string
	CreatedAt  time.Time
}

// Store manages journal persistence backed by SQLite.
type Store struct {
	db   *sql.DB
	path string
}

const schemaSQL = `
CREATE TABLE IF NOT EXISTS folder_events (
    id INTEGER PRIMARY KEY AUTOINCREMENT,
    folder_id TEXT NOT NULL,
    folder_name TEXT NOT NULL,
    outcome TEXT NOT NULL,
    detail TEXT NOT NULL DEFAULT '',
    created_at TEXT NOT NULL
);
CREATE INDEX IF NOT EXISTS idx_folder_events_folder ON folder_events(folder_id);
CREATE INDEX IF NOT EXISTS idx_folder_events_outcome ON folder_events(outcome);
`

// Open initializes or connects to the journal database.
func Open(path string) (*Store, error) {
	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		return nil, fmt.Errorf("ensure journal directory: %w", err)
	}
	db, err := sql.Open("sqlite", path)
	if err != nil {
		return nil, fmt.Errorf("open sqlite db: %w", err)
	}

	pragmas := []string{
		"PRAGMA journal_mode=WAL",
		"PRAGMA busy_timeout = 5000",
	}
	for _, pragma := range pragmas {
		if _, execErr := db.Exec(pragma); execErr != nil {
			_ = db.Close()
			return nil, fmt.Errorf("apply pragma %q: %w", pragma, execErr)
		}
	}

	if _, err := db.Exec(schemaSQL); err != nil {
		_ = db.Close()
		return nil, fmt.Errorf("create schema: %w", err)
	}
	return &Store{db: db, path: path}, nil
}

// Close closes the underlying database connection.
func (s *Store) Close() error {
	if s == nil || s.db == nil {
		return nil
	}
	return s.db.Close()
}

// Path returns the on-disk location backing the journal.
func (s *Store) Path() string {
	if s == nil {
		return ""
	}
	return s.path
}

// Record appends one outcome row.
func (s *Store) Record(ctx context.Context, folderID, folderName string, outcome Outcome, detail string) error {
	if s == nil || s.db == nil {
		return nil
	}
	timestamp := time.Now().UTC().Format(time.RFC3339Nano)
	_, err := s.db.ExecContext(ctx,
		`INSERT INTO folder_events (folder_id, folder_name, outcome, detail, created_at)
         VALUES (?, ?, ?, ?, ?)`,
		folderID, folderName, string(outcome), detail, timestamp,
	)
	if err != nil {
		return fmt.Errorf("insert event: %w", err)
	}
	return nil
}

// Recent returns the newest events, most recent first.
func (s *Store) Recent(ctx context.Context, limit int) ([]Event, error) {
	if s == nil || s.db == nil {
		return nil, nil
	}
	if limit <= 0 {
		limit = 50
	}
	rows, err := s.db.QueryContext(ctx,
		`SELECT id, folder_id, folder_name, outcome, detail, created_at
         FROM folder_events ORDER BY id DESC LIMIT ?`, limit)
	if err != nil {
		return nil, fmt.Errorf("query events: %w", err)
	}
	defer rows.Close()

	var events []Event
	for rows.Next() {
		var evt Event
		var outcome, createdAt string
		if err := rows.Scan(&evt.ID, &evt.FolderID, &evt.FolderName, &outcome, &evt.Detail, &createdAt); err != nil {
			return nil, fmt.Errorf("scan event: %w", err)
		}
		evt.Outcome = Outcome(outcome)
		if ts, parseErr := time.Parse(time.RFC3339Nano, createdAt); parseErr == nil {
			evt.CreatedAt = ts
		}
		events = append(events, evt)
	}
	return events, rows.Err()
}

// CountByOutcome returns event totals grouped by outcome.
func (s *Store) CountByOutcome(ctx context.Context) (map[Outcome]int, error) {
	if s == nil || s.db == nil {
		return nil, nil
	}
	rows, err := s.db.QueryContext(ctx,
		`SELECT outcome, COUNT(1) FROM folder_events GROUP BY outcome`)
	if err != nil {
		return nil, fmt.Errorf("count events: %w", err)
	}
	defer rows.Close()

	counts := make(map[Outcome]int)
	for rows.Next() {
		var outcome string
		var count int
		if err := rows.Scan(&outcome, &count); err != nil {
			return nil, fmt.Errorf("scan count: %w", err)
		}
		counts[Outcome(outcome)] = count
	}
	return counts, rows.Err()
}
