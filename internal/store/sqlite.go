package store

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"time"

	"github.com/ashureev/lohmm-traces/internal/domain"
	"github.com/ashureev/lohmm-traces/internal/shared"
	_ "modernc.org/sqlite"
)

const (
	saveRetries   = 3
	saveBaseDelay = 100 * time.Millisecond
)

// SQLiteStore implements Repository using SQLite.
type SQLiteStore struct {
	db *sql.DB
}

// NewSQLite creates a new SQLite-backed repository.
func NewSQLite(dbPath string) (Repository, error) {
	if err := os.MkdirAll(filepath.Dir(dbPath), 0o755); err != nil {
		return nil, fmt.Errorf("create database directory: %w", err)
	}

	dsn := dbPath + "?_pragma=busy_timeout(5000)&_pragma=journal_mode(WAL)&_pragma=foreign_keys(1)"
	db, err := sql.Open("sqlite", dsn)
	if err != nil {
		return nil, fmt.Errorf("open database: %w", err)
	}

	// A single writer keeps SQLITE_BUSY rare; runs are written once.
	db.SetMaxOpenConns(1)
	db.SetConnMaxLifetime(5 * time.Minute)

	if err := db.Ping(); err != nil {
		_ = db.Close()
		return nil, fmt.Errorf("ping database: %w", err)
	}

	store := &SQLiteStore{db: db}
	if err := store.initSchema(); err != nil {
		_ = db.Close()
		return nil, fmt.Errorf("initialize schema: %w", err)
	}

	return store, nil
}

func (s *SQLiteStore) initSchema() error {
	query := `
	CREATE TABLE IF NOT EXISTS runs (
		run_id TEXT PRIMARY KEY,
		started_at INTEGER NOT NULL,
		finished_at INTEGER NOT NULL,
		window_size INTEGER NOT NULL,
		sources_json TEXT NOT NULL,
		stats_json TEXT NOT NULL,
		manifest_digest TEXT
	);
	CREATE INDEX IF NOT EXISTS idx_runs_started ON runs(started_at);

	CREATE TABLE IF NOT EXISTS run_sessions (
		run_id TEXT NOT NULL REFERENCES runs(run_id) ON DELETE CASCADE,
		seq INTEGER NOT NULL,
		source TEXT NOT NULL,
		ordinal INTEGER NOT NULL,
		base TEXT NOT NULL,
		event_count INTEGER NOT NULL,
		fact TEXT NOT NULL,
		PRIMARY KEY (run_id, seq)
	);

	CREATE TABLE IF NOT EXISTS run_paths (
		run_id TEXT NOT NULL REFERENCES runs(run_id) ON DELETE CASCADE,
		path TEXT NOT NULL,
		PRIMARY KEY (run_id, path)
	);
	`
	if _, err := s.db.Exec(query); err != nil {
		return fmt.Errorf("create schema: %w", err)
	}
	return nil
}

// Ping verifies database connectivity.
func (s *SQLiteStore) Ping(ctx context.Context) error {
	return s.db.PingContext(ctx)
}

// Close closes the database connection.
func (s *SQLiteStore) Close() error {
	if err := s.db.Close(); err != nil {
		return fmt.Errorf("close database: %w", err)
	}
	return nil
}

// SaveRun stores run, its sessions and its paths atomically.
// SQLITE_BUSY failures are retried with exponential backoff.
func (s *SQLiteStore) SaveRun(ctx context.Context, run *domain.Run, sessions []domain.StoredSession, paths []string) error {
	return shared.RetryOnConflict(ctx, saveRetries, saveBaseDelay, "save_run", func() error {
		return s.saveRunOnce(ctx, run, sessions, paths)
	})
}

func (s *SQLiteStore) saveRunOnce(ctx context.Context, run *domain.Run, sessions []domain.StoredSession, paths []string) (err error) {
	sourcesJSON, err := json.Marshal(run.Sources)
	if err != nil {
		return fmt.Errorf("marshal sources: %w", err)
	}
	statsJSON, err := json.Marshal(run.Stats)
	if err != nil {
		return fmt.Errorf("marshal stats: %w", err)
	}

	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("begin transaction: %w", err)
	}
	defer func() {
		if err != nil {
			if rbErr := tx.Rollback(); rbErr != nil && !errors.Is(rbErr, sql.ErrTxDone) {
				slog.Warn("Failed to roll back run save", "run_id", run.RunID, "error", rbErr)
			}
		}
	}()

	var digest interface{}
	if run.ManifestDigest != "" {
		digest = run.ManifestDigest
	}

	_, err = tx.ExecContext(ctx, `
		INSERT INTO runs (run_id, started_at, finished_at, window_size, sources_json, stats_json, manifest_digest)
		VALUES (?, ?, ?, ?, ?, ?, ?)`,
		run.RunID, run.StartedAt.Unix(), run.FinishedAt.Unix(), run.Window,
		string(sourcesJSON), string(statsJSON), digest,
	)
	if err != nil {
		return fmt.Errorf("insert run: %w", err)
	}

	sessionStmt, err := tx.PrepareContext(ctx, `
		INSERT INTO run_sessions (run_id, seq, source, ordinal, base, event_count, fact)
		VALUES (?, ?, ?, ?, ?, ?, ?)`)
	if err != nil {
		return fmt.Errorf("prepare session insert: %w", err)
	}
	defer func() { _ = sessionStmt.Close() }()

	for i, sess := range sessions {
		if _, err = sessionStmt.ExecContext(ctx, run.RunID, i, sess.Source, sess.Ordinal, sess.Base, sess.EventCount, sess.Fact); err != nil {
			return fmt.Errorf("insert session %s#%d: %w", sess.Source, sess.Ordinal, err)
		}
	}

	pathStmt, err := tx.PrepareContext(ctx, `INSERT OR IGNORE INTO run_paths (run_id, path) VALUES (?, ?)`)
	if err != nil {
		return fmt.Errorf("prepare path insert: %w", err)
	}
	defer func() { _ = pathStmt.Close() }()

	for _, p := range paths {
		if _, err = pathStmt.ExecContext(ctx, run.RunID, p); err != nil {
			return fmt.Errorf("insert path: %w", err)
		}
	}

	if err = tx.Commit(); err != nil {
		return fmt.Errorf("commit run: %w", err)
	}
	return nil
}

const runColumns = `run_id, started_at, finished_at, window_size, sources_json, stats_json, manifest_digest`

type rowScanner interface {
	Scan(dest ...interface{}) error
}

func scanRun(row rowScanner) (*domain.Run, error) {
	var run domain.Run
	var startedAt, finishedAt int64
	var sourcesJSON, statsJSON string
	var digest sql.NullString

	if err := row.Scan(&run.RunID, &startedAt, &finishedAt, &run.Window, &sourcesJSON, &statsJSON, &digest); err != nil {
		return nil, err
	}

	run.StartedAt = time.Unix(startedAt, 0)
	run.FinishedAt = time.Unix(finishedAt, 0)
	run.ManifestDigest = digest.String
	if err := json.Unmarshal([]byte(sourcesJSON), &run.Sources); err != nil {
		return nil, fmt.Errorf("decode sources: %w", err)
	}
	if err := json.Unmarshal([]byte(statsJSON), &run.Stats); err != nil {
		return nil, fmt.Errorf("decode stats: %w", err)
	}
	return &run, nil
}

// GetRun retrieves a run by ID.
func (s *SQLiteStore) GetRun(ctx context.Context, runID string) (*domain.Run, error) {
	row := s.db.QueryRowContext(ctx, `SELECT `+runColumns+` FROM runs WHERE run_id = ?`, runID)
	run, err := scanRun(row)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("scan run row: %w", err)
	}
	return run, nil
}

// ListRuns returns the most recent runs first.
func (s *SQLiteStore) ListRuns(ctx context.Context, limit int) ([]*domain.Run, error) {
	if limit <= 0 {
		limit = 50
	}
	rows, err := s.db.QueryContext(ctx,
		`SELECT `+runColumns+` FROM runs ORDER BY started_at DESC, run_id LIMIT ?`, limit)
	if err != nil {
		return nil, fmt.Errorf("query runs: %w", err)
	}
	defer func() {
		if closeErr := rows.Close(); closeErr != nil {
			slog.Warn("failed to close runs rows", "error", closeErr)
		}
	}()

	var runs []*domain.Run
	for rows.Next() {
		run, err := scanRun(rows)
		if err != nil {
			return nil, fmt.Errorf("scan run row: %w", err)
		}
		runs = append(runs, run)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate runs: %w", err)
	}
	return runs, nil
}

// ListSessions returns the sessions of a run in corpus order.
// A limit of zero or less returns every session.
func (s *SQLiteStore) ListSessions(ctx context.Context, runID string, limit, offset int) ([]domain.StoredSession, error) {
	if limit <= 0 {
		limit = -1
	}
	if offset < 0 {
		offset = 0
	}
	rows, err := s.db.QueryContext(ctx, `
		SELECT run_id, source, ordinal, base, event_count, fact
		FROM run_sessions WHERE run_id = ?
		ORDER BY seq LIMIT ? OFFSET ?`, runID, limit, offset)
	if err != nil {
		return nil, fmt.Errorf("query sessions: %w", err)
	}
	defer func() {
		if closeErr := rows.Close(); closeErr != nil {
			slog.Warn("failed to close session rows", "error", closeErr)
		}
	}()

	var sessions []domain.StoredSession
	for rows.Next() {
		var sess domain.StoredSession
		if err := rows.Scan(&sess.RunID, &sess.Source, &sess.Ordinal, &sess.Base, &sess.EventCount, &sess.Fact); err != nil {
			return nil, fmt.Errorf("scan session row: %w", err)
		}
		sessions = append(sessions, sess)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate sessions: %w", err)
	}
	return sessions, nil
}

// ListPaths returns the path domain of a run in lexical order.
func (s *SQLiteStore) ListPaths(ctx context.Context, runID string) ([]string, error) {
	rows, err := s.db.QueryContext(ctx, `SELECT path FROM run_paths WHERE run_id = ? ORDER BY path`, runID)
	if err != nil {
		return nil, fmt.Errorf("query paths: %w", err)
	}
	defer func() {
		if closeErr := rows.Close(); closeErr != nil {
			slog.Warn("failed to close path rows", "error", closeErr)
		}
	}()

	var paths []string
	for rows.Next() {
		var p string
		if err := rows.Scan(&p); err != nil {
			return nil, fmt.Errorf("scan path row: %w", err)
		}
		paths = append(paths, p)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate paths: %w", err)
	}
	return paths, nil
}

// DeleteRun removes a run. With foreign keys on, its sessions and paths go with it.
func (s *SQLiteStore) DeleteRun(ctx context.Context, runID string) (bool, error) {
	var rows int64
	err := shared.RetryOnConflict(ctx, saveRetries, saveBaseDelay, "delete_run", func() error {
		result, err := s.db.ExecContext(ctx, `DELETE FROM runs WHERE run_id = ?`, runID)
		if err != nil {
			return fmt.Errorf("delete run: %w", err)
		}
		rows, err = result.RowsAffected()
		if err != nil {
			return fmt.Errorf("get rows affected: %w", err)
		}
		return nil
	})
	if err != nil {
		return false, err
	}
	return rows > 0, nil
}
