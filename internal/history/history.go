// Package history records sync runs in a local SQLite database so operators
// can see past outcomes and which documents failed.
package history

import (
	"context"
	"database/sql"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"sync"
	"time"

	_ "modernc.org/sqlite" // Pure Go SQLite driver (no CGO)
)

// Run is one recorded sync run.
type Run struct {
	ID        int64
	StartedAt time.Time
	Duration  time.Duration
	Backend   string
	Index     string
	Outcome   string
	Selected  int
	Omitted   int
	Total     int
	Failed    int
	DryRun    bool
	Error     string
	Failures  []Failure
}

// Failure is one document that failed during a run.
type Failure struct {
	DocID    string
	Title    string
	Reason   string
	CausedBy string
}

// Store persists runs.
type Store struct {
	mu     sync.Mutex
	db     *sql.DB
	path   string
	closed bool
}

// Open opens or creates the history database at path.
// An empty path opens an in-memory database.
func Open(path string) (*Store, error) {
	dsn := ":memory:"
	if path != "" {
		if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
			return nil, fmt.Errorf("failed to create directory for %s: %w", path, err)
		}
		dsn = path
	}

	db, err := sql.Open("sqlite", dsn)
	if err != nil {
		return nil, fmt.Errorf("failed to open database: %w", err)
	}

	// Single connection: one CLI process writes at a time and :memory: is per-connection.
	db.SetMaxOpenConns(1)
	db.SetMaxIdleConns(1)
	db.SetConnMaxLifetime(0)

	pragmas := []string{
		"PRAGMA journal_mode = WAL",
		"PRAGMA busy_timeout = 5000",
		"PRAGMA synchronous = NORMAL",
		"PRAGMA foreign_keys = ON",
	}
	for _, pragma := range pragmas {
		if _, err := db.Exec(pragma); err != nil {
			_ = db.Close()
			return nil, fmt.Errorf("failed to set pragma: %w", err)
		}
	}

	s := &Store{db: db, path: path}
	if err := s.initSchema(); err != nil {
		_ = db.Close()
		return nil, fmt.Errorf("failed to initialize schema: %w", err)
	}

	return s, nil
}

func (s *Store) initSchema() error {
	schema := `
	CREATE TABLE IF NOT EXISTS schema_version (
		version INTEGER PRIMARY KEY
	);

	CREATE TABLE IF NOT EXISTS runs (
		id          INTEGER PRIMARY KEY AUTOINCREMENT,
		started_at  INTEGER NOT NULL,
		duration_ms INTEGER NOT NULL,
		backend     TEXT NOT NULL,
		index_name  TEXT NOT NULL,
		outcome     TEXT NOT NULL,
		selected    INTEGER NOT NULL,
		omitted     INTEGER NOT NULL,
		total       INTEGER NOT NULL,
		failed      INTEGER NOT NULL,
		dry_run     INTEGER NOT NULL,
		error       TEXT NOT NULL DEFAULT ''
	);

	CREATE TABLE IF NOT EXISTS run_failures (
		run_id    INTEGER NOT NULL REFERENCES runs(id) ON DELETE CASCADE,
		doc_id    TEXT NOT NULL,
		title     TEXT NOT NULL,
		reason    TEXT NOT NULL,
		caused_by TEXT NOT NULL
	);

	CREATE INDEX IF NOT EXISTS idx_run_failures_run ON run_failures(run_id);

	INSERT OR IGNORE INTO schema_version (version) VALUES (1);
	`

	_, err := s.db.Exec(schema)
	return err
}

// Record stores run and its failures, returning the new run ID.
func (s *Store) Record(ctx context.Context, run *Run) (int64, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.closed {
		return 0, fmt.Errorf("history store is closed")
	}

	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return 0, fmt.Errorf("failed to begin transaction: %w", err)
	}
	defer func() { _ = tx.Rollback() }()

	res, err := tx.ExecContext(ctx, `
		INSERT INTO runs (started_at, duration_ms, backend, index_name, outcome,
			selected, omitted, total, failed, dry_run, error)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)`,
		run.StartedAt.UnixNano(), run.Duration.Milliseconds(), run.Backend, run.Index, run.Outcome,
		run.Selected, run.Omitted, run.Total, run.Failed, boolToInt(run.DryRun), run.Error)
	if err != nil {
		return 0, fmt.Errorf("failed to insert run: %w", err)
	}

	id, err := res.LastInsertId()
	if err != nil {
		return 0, fmt.Errorf("failed to read run id: %w", err)
	}

	if len(run.Failures) > 0 {
		stmt, err := tx.PrepareContext(ctx,
			`INSERT INTO run_failures (run_id, doc_id, title, reason, caused_by) VALUES (?, ?, ?, ?, ?)`)
		if err != nil {
			return 0, fmt.Errorf("failed to prepare failure insert: %w", err)
		}
		defer func() { _ = stmt.Close() }()

		for _, f := range run.Failures {
			if _, err := stmt.ExecContext(ctx, id, f.DocID, f.Title, f.Reason, f.CausedBy); err != nil {
				return 0, fmt.Errorf("failed to insert failure %s: %w", f.DocID, err)
			}
		}
	}

	if err := tx.Commit(); err != nil {
		return 0, fmt.Errorf("failed to commit run: %w", err)
	}

	run.ID = id
	slog.Debug("history_recorded",
		slog.Int64("run_id", id),
		slog.String("outcome", run.Outcome))

	return id, nil
}

// Recent returns up to limit runs, newest first, without failures.
func (s *Store) Recent(ctx context.Context, limit int) ([]Run, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.closed {
		return nil, fmt.Errorf("history store is closed")
	}
	if limit <= 0 {
		limit = 10
	}

	rows, err := s.db.QueryContext(ctx, `
		SELECT id, started_at, duration_ms, backend, index_name, outcome,
			selected, omitted, total, failed, dry_run, error
		FROM runs ORDER BY id DESC LIMIT ?`, limit)
	if err != nil {
		return nil, fmt.Errorf("failed to query runs: %w", err)
	}
	defer func() { _ = rows.Close() }()

	var runs []Run
	for rows.Next() {
		var (
			r          Run
			startedAt  int64
			durationMs int64
			dryRun     int
		)
		if err := rows.Scan(&r.ID, &startedAt, &durationMs, &r.Backend, &r.Index, &r.Outcome,
			&r.Selected, &r.Omitted, &r.Total, &r.Failed, &dryRun, &r.Error); err != nil {
			return nil, fmt.Errorf("failed to scan run: %w", err)
		}
		r.StartedAt = time.Unix(0, startedAt)
		r.Duration = time.Duration(durationMs) * time.Millisecond
		r.DryRun = dryRun != 0
		runs = append(runs, r)
	}
	return runs, rows.Err()
}

// Failures returns the failed documents of a run.
func (s *Store) Failures(ctx context.Context, runID int64) ([]Failure, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.closed {
		return nil, fmt.Errorf("history store is closed")
	}

	rows, err := s.db.QueryContext(ctx,
		`SELECT doc_id, title, reason, caused_by FROM run_failures WHERE run_id = ? ORDER BY rowid`, runID)
	if err != nil {
		return nil, fmt.Errorf("failed to query failures: %w", err)
	}
	defer func() { _ = rows.Close() }()

	var failures []Failure
	for rows.Next() {
		var f Failure
		if err := rows.Scan(&f.DocID, &f.Title, &f.Reason, &f.CausedBy); err != nil {
			return nil, fmt.Errorf("failed to scan failure: %w", err)
		}
		failures = append(failures, f)
	}
	return failures, rows.Err()
}

// Prune deletes all but the newest keep runs and returns how many were removed.
func (s *Store) Prune(ctx context.Context, keep int) (int64, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.closed {
		return 0, fmt.Errorf("history store is closed")
	}

	res, err := s.db.ExecContext(ctx,
		`DELETE FROM runs WHERE id NOT IN (SELECT id FROM runs ORDER BY id DESC LIMIT ?)`, keep)
	if err != nil {
		return 0, fmt.Errorf("failed to prune runs: %w", err)
	}
	return res.RowsAffected()
}

// Close closes the database.
func (s *Store) Close() error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.closed {
		return nil
	}
	s.closed = true
	return s.db.Close()
}

func boolToInt(b bool) int {
	if b {
		return 1
	}
	return 0
}
