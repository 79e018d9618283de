// Copyright Mesh Intelligence Inc., 2026. All rights reserved.

// Package ledger records the outcome of every analyze action in SQLite.
// Entries hold metadata only: no document text and no analysis results.
package ledger

import (
	"context"
	"database/sql"
	"fmt"
	"os"
	"path/filepath"
	"time"

	_ "github.com/mattn/go-sqlite3"

	"github.com/pdiddy/one-pager/pkg/types"
)

const defaultRecent = 20

// timeLayout has fixed width so started_at sorts lexically.
const timeLayout = "2006-01-02T15:04:05.000000000Z07:00"

// Store manages the run ledger database.
type Store struct {
	db *sql.DB
}

// Open opens or creates the ledger at cfg.Path and creates the schema if it
// does not exist.
func Open(cfg types.LedgerConfig) (*Store, error) {
	if cfg.Path == "" {
		return nil, fmt.Errorf("ledger path is empty")
	}
	if dir := filepath.Dir(cfg.Path); dir != "." {
		if err := os.MkdirAll(dir, 0o755); err != nil {
			return nil, fmt.Errorf("creating ledger directory: %w", err)
		}
	}

	db, err := sql.Open("sqlite3", cfg.Path+"?_journal_mode=WAL&_busy_timeout=5000")
	if err != nil {
		return nil, fmt.Errorf("opening database: %w", err)
	}

	s := &Store{db: db}
	if err := s.createSchema(); err != nil {
		db.Close()
		return nil, fmt.Errorf("creating schema: %w", err)
	}
	return s, nil
}

// Close releases the database connection.
func (s *Store) Close() error {
	return s.db.Close()
}

func (s *Store) createSchema() error {
	statements := []string{
		`CREATE TABLE IF NOT EXISTS runs (
			id TEXT PRIMARY KEY,
			session_id TEXT NOT NULL,
			profile TEXT NOT NULL,
			model TEXT,
			outcome TEXT NOT NULL,
			failure_kind TEXT,
			status_code INTEGER,
			document_chars INTEGER,
			pages INTEGER,
			sentinels INTEGER,
			started_at TEXT NOT NULL,
			duration_ms INTEGER
		)`,
		`CREATE INDEX IF NOT EXISTS idx_runs_started_at ON runs(started_at)`,
		`CREATE INDEX IF NOT EXISTS idx_runs_outcome ON runs(outcome)`,
	}

	for _, stmt := range statements {
		if _, err := s.db.Exec(stmt); err != nil {
			return fmt.Errorf("executing schema statement: %w", err)
		}
	}
	return nil
}

// Record inserts one run.
func (s *Store) Record(ctx context.Context, run types.Run) error {
	_, err := s.db.ExecContext(ctx,
		`INSERT INTO runs (id, session_id, profile, model, outcome, failure_kind, status_code,
			document_chars, pages, sentinels, started_at, duration_ms)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)`,
		run.ID, run.SessionID, run.Profile, run.Model, string(run.Outcome),
		nullString(string(run.FailureKind)), run.StatusCode,
		run.DocumentChars, run.Pages, run.Sentinels,
		run.StartedAt.UTC().Format(timeLayout), run.Duration.Milliseconds(),
	)
	if err != nil {
		return fmt.Errorf("inserting run %s: %w", run.ID, err)
	}
	return nil
}

// Recent returns up to limit runs, newest first.
func (s *Store) Recent(ctx context.Context, limit int) ([]types.Run, error) {
	if limit <= 0 {
		limit = defaultRecent
	}
	rows, err := s.db.QueryContext(ctx,
		`SELECT id, session_id, profile, model, outcome, failure_kind, status_code,
			document_chars, pages, sentinels, started_at, duration_ms
		FROM runs ORDER BY started_at DESC LIMIT ?`, limit)
	if err != nil {
		return nil, fmt.Errorf("querying runs: %w", err)
	}
	defer rows.Close()

	var runs []types.Run
	for rows.Next() {
		var (
			run       types.Run
			model     sql.NullString
			kind      sql.NullString
			status    sql.NullInt64
			startedAt string
			duration  int64
		)
		if err := rows.Scan(&run.ID, &run.SessionID, &run.Profile, &model, &run.Outcome, &kind, &status,
			&run.DocumentChars, &run.Pages, &run.Sentinels, &startedAt, &duration); err != nil {
			return nil, fmt.Errorf("scanning run: %w", err)
		}
		run.Model = model.String
		run.FailureKind = types.FailureKind(kind.String)
		run.StatusCode = int(status.Int64)
		run.Duration = time.Duration(duration) * time.Millisecond
		if t, err := time.Parse(timeLayout, startedAt); err == nil {
			run.StartedAt = t
		}
		runs = append(runs, run)
	}
	return runs, rows.Err()
}

// Summary counts runs by outcome, failure kind and profile.
func (s *Store) Summary(ctx context.Context) (types.RunSummary, error) {
	sum := types.RunSummary{
		ByFailure: map[types.FailureKind]int{},
		ByProfile: map[string]int{},
	}

	rows, err := s.db.QueryContext(ctx,
		`SELECT outcome, COALESCE(failure_kind, ''), profile, count(*) FROM runs
		GROUP BY outcome, failure_kind, profile`)
	if err != nil {
		return sum, fmt.Errorf("summarizing runs: %w", err)
	}
	defer rows.Close()

	for rows.Next() {
		var outcome, kind, profile string
		var n int
		if err := rows.Scan(&outcome, &kind, &profile, &n); err != nil {
			return sum, fmt.Errorf("scanning summary: %w", err)
		}
		sum.Total += n
		sum.ByProfile[profile] += n
		switch types.Outcome(outcome) {
		case types.OutcomeDone:
			sum.Done += n
		case types.OutcomeFailed:
			sum.Failed += n
			sum.ByFailure[types.FailureKind(kind)] += n
		}
	}
	return sum, rows.Err()
}

func nullString(s string) sql.NullString {
	return sql.NullString{String: s, Valid: s != ""}
}
