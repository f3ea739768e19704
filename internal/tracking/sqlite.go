// Copyright Mesh Intelligence Inc., 2026. All rights reserved.

package tracking

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"time"

	"github.com/google/uuid"
	_ "github.com/mattn/go-sqlite3"
	"github.com/rs/zerolog"
)

// SQLiteStore persists runs in a SQLite database.
type SQLiteStore struct {
	db     *sql.DB
	logger zerolog.Logger
}

// NewSQLiteStore opens or creates the tracking database at path and creates
// the schema if it does not exist.
func NewSQLiteStore(path string, logger zerolog.Logger) (*SQLiteStore, error) {
	if dir := filepath.Dir(path); dir != "" {
		if err := os.MkdirAll(dir, 0o755); err != nil {
			return nil, fmt.Errorf("creating tracking directory: %w", err)
		}
	}

	db, err := sql.Open("sqlite3", path+"?_journal_mode=WAL&_foreign_keys=on&_busy_timeout=5000")
	if err != nil {
		return nil, fmt.Errorf("opening database: %w", err)
	}

	s := &SQLiteStore{
		db:     db,
		logger: logger.With().Str("component", "tracking").Logger(),
	}
	if err := s.createSchema(); err != nil {
		db.Close()
		return nil, fmt.Errorf("creating schema: %w", err)
	}
	return s, nil
}

// Close releases the database connection.
func (s *SQLiteStore) Close() error {
	return s.db.Close()
}

func (s *SQLiteStore) createSchema() error {
	statements := []string{
		`CREATE TABLE IF NOT EXISTS runs (
			seq INTEGER PRIMARY KEY AUTOINCREMENT,
			id TEXT NOT NULL UNIQUE,
			name TEXT NOT NULL,
			parent_id TEXT,
			status TEXT NOT NULL,
			started_at TEXT NOT NULL,
			ended_at TEXT
		)`,
		`CREATE INDEX IF NOT EXISTS idx_runs_parent_id ON runs(parent_id)`,
		`CREATE TABLE IF NOT EXISTS params (
			run_id TEXT NOT NULL REFERENCES runs(id),
			key TEXT NOT NULL,
			value TEXT NOT NULL,
			PRIMARY KEY (run_id, key)
		)`,
		`CREATE TABLE IF NOT EXISTS artifacts (
			rowid INTEGER PRIMARY KEY AUTOINCREMENT,
			run_id TEXT NOT NULL REFERENCES runs(id),
			path TEXT NOT NULL,
			category TEXT NOT NULL,
			logged_at TEXT NOT NULL
		)`,
		`CREATE INDEX IF NOT EXISTS idx_artifacts_run_id ON artifacts(run_id)`,
	}

	for _, stmt := range statements {
		if _, err := s.db.Exec(stmt); err != nil {
			return fmt.Errorf("executing schema statement: %w", err)
		}
	}
	return nil
}

// StartRun implements Recorder.
func (s *SQLiteStore) StartRun(ctx context.Context, name string, parent Run) (Run, error) {
	id := uuid.NewString()
	var parentCol sql.NullString
	if p := parentID(parent); p != "" {
		parentCol = sql.NullString{String: p, Valid: true}
	}

	if _, err := s.db.ExecContext(ctx,
		`INSERT INTO runs (id, name, parent_id, status, started_at) VALUES (?, ?, ?, ?, ?)`,
		id, name, parentCol, string(StatusRunning), formatTime(time.Now()),
	); err != nil {
		return nil, fmt.Errorf("starting run %s: %w", name, err)
	}

	return &sqliteRun{
		store: s,
		id:    id,
		name:  name,
		// Recording continues after the caller's context is cancelled so a
		// cancelled run can still be closed as FAILED.
		ctx: context.WithoutCancel(ctx),
	}, nil
}

// ListRuns implements Reader.
func (s *SQLiteStore) ListRuns(ctx context.Context, limit int) ([]RunRecord, error) {
	query := `SELECT id, name, parent_id, status, started_at, ended_at FROM runs ORDER BY seq DESC`
	args := []any{}
	if limit > 0 {
		query += ` LIMIT ?`
		args = append(args, limit)
	}

	rows, err := s.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("listing runs: %w", err)
	}
	defer rows.Close()

	var out []RunRecord
	for rows.Next() {
		rec, err := scanRun(rows)
		if err != nil {
			return nil, err
		}
		out = append(out, *rec)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("listing runs: %w", err)
	}
	return out, nil
}

// GetRun implements Reader.
func (s *SQLiteStore) GetRun(ctx context.Context, id string) (*RunRecord, error) {
	row := s.db.QueryRowContext(ctx,
		`SELECT id, name, parent_id, status, started_at, ended_at FROM runs WHERE id = ?`, id)
	rec, err := scanRun(row)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, fmt.Errorf("%w: %s", ErrRunNotFound, id)
	}
	if err != nil {
		return nil, err
	}

	rec.Params = map[string]string{}
	prows, err := s.db.QueryContext(ctx, `SELECT key, value FROM params WHERE run_id = ?`, id)
	if err != nil {
		return nil, fmt.Errorf("reading params: %w", err)
	}
	defer prows.Close()
	for prows.Next() {
		var k, v string
		if err := prows.Scan(&k, &v); err != nil {
			return nil, fmt.Errorf("scanning param: %w", err)
		}
		rec.Params[k] = v
	}
	if err := prows.Err(); err != nil {
		return nil, fmt.Errorf("reading params: %w", err)
	}

	arows, err := s.db.QueryContext(ctx,
		`SELECT path, category, logged_at FROM artifacts WHERE run_id = ? ORDER BY rowid`, id)
	if err != nil {
		return nil, fmt.Errorf("reading artifacts: %w", err)
	}
	defer arows.Close()
	for arows.Next() {
		var a ArtifactRecord
		var logged string
		if err := arows.Scan(&a.Path, &a.Category, &logged); err != nil {
			return nil, fmt.Errorf("scanning artifact: %w", err)
		}
		a.LoggedAt = parseTime(logged)
		rec.Artifacts = append(rec.Artifacts, a)
	}
	if err := arows.Err(); err != nil {
		return nil, fmt.Errorf("reading artifacts: %w", err)
	}
	return rec, nil
}

type rowScanner interface {
	Scan(dest ...any) error
}

func scanRun(row rowScanner) (*RunRecord, error) {
	var (
		rec      RunRecord
		parent   sql.NullString
		status   string
		started  string
		endedCol sql.NullString
	)
	if err := row.Scan(&rec.ID, &rec.Name, &parent, &status, &started, &endedCol); err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, err
		}
		return nil, fmt.Errorf("scanning run: %w", err)
	}
	rec.ParentID = parent.String
	rec.Status = Status(status)
	rec.StartedAt = parseTime(started)
	if endedCol.Valid {
		t := parseTime(endedCol.String)
		rec.EndedAt = &t
	}
	return &rec, nil
}

func formatTime(t time.Time) string {
	return t.UTC().Format(time.RFC3339Nano)
}

func parseTime(s string) time.Time {
	t, _ := time.Parse(time.RFC3339Nano, s)
	return t
}

type sqliteRun struct {
	store *SQLiteStore
	id    string
	name  string
	ctx   context.Context
}

func (r *sqliteRun) ID() string   { return r.id }
func (r *sqliteRun) Name() string { return r.name }

func (r *sqliteRun) LogParam(key string, value any) {
	_, err := r.store.db.ExecContext(r.ctx,
		`INSERT INTO params (run_id, key, value) VALUES (?, ?, ?)
		 ON CONFLICT(run_id, key) DO UPDATE SET value = excluded.value`,
		r.id, key, FormatParam(value))
	if err != nil {
		r.store.logger.Warn().Err(err).Str("run_id", r.id).Str("param", key).Msg("recording param failed")
	}
}

func (r *sqliteRun) LogArtifact(path, category string) {
	_, err := r.store.db.ExecContext(r.ctx,
		`INSERT INTO artifacts (run_id, path, category, logged_at) VALUES (?, ?, ?, ?)`,
		r.id, path, category, formatTime(time.Now()))
	if err != nil {
		r.store.logger.Warn().Err(err).Str("run_id", r.id).Str("path", path).Msg("recording artifact failed")
	}
}

func (r *sqliteRun) End(status Status) {
	_, err := r.store.db.ExecContext(r.ctx,
		`UPDATE runs SET status = ?, ended_at = ? WHERE id = ? AND status = ?`,
		string(status), formatTime(time.Now()), r.id, string(StatusRunning))
	if err != nil {
		r.store.logger.Warn().Err(err).Str("run_id", r.id).Str("status", string(status)).Msg("ending run failed")
	}
}
