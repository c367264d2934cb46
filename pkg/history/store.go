// Package history persists scenario run outcomes to SQLite so past runs can
// be inspected from the CLI and the gateway after the process that ran them
// is gone.
package history

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"

	_ "github.com/mattn/go-sqlite3"
	"github.com/rs/zerolog"
)

// Run is one recorded scenario run. Steps is only populated by Get.
type Run struct {
	ID         string       `json:"id"`
	Scenario   string       `json:"scenario"`
	Status     string       `json:"status"`
	Error      string       `json:"error,omitempty"`
	StartedAt  time.Time    `json:"started_at"`
	FinishedAt *time.Time   `json:"finished_at,omitempty"`
	Steps      []StepRecord `json:"steps,omitempty"`
}

// StepRecord is one recorded step outcome.
type StepRecord struct {
	Index      int    `json:"index"`
	Action     string `json:"action"`
	Status     string `json:"status"`
	Error      string `json:"error,omitempty"`
	DurationMS int64  `json:"duration_ms"`
}

// Store is the SQLite-backed run history.
type Store struct {
	db      *sql.DB
	logger  zerolog.Logger
	maxRuns int
	maxAge  time.Duration
}

// Config holds history store configuration.
type Config struct {
	DBPath  string
	Logger  zerolog.Logger
	MaxRuns int           // newest runs kept by Prune; 0 means 1000
	MaxAge  time.Duration // runs older than this are pruned; 0 disables
}

const defaultMaxRuns = 1000

// NewStore opens (creating if needed) the history database.
func NewStore(cfg Config) (*Store, error) {
	if cfg.DBPath == "" {
		return nil, errors.New("database path is required")
	}
	if cfg.MaxRuns <= 0 {
		cfg.MaxRuns = defaultMaxRuns
	}

	db, err := sql.Open("sqlite3", cfg.DBPath+"?_foreign_keys=on&_busy_timeout=5000")
	if err != nil {
		return nil, fmt.Errorf("failed to open database: %w", err)
	}

	// WAL lets gateway reads run alongside the recorder's writes.
	if _, err := db.Exec("PRAGMA journal_mode=WAL"); err != nil {
		db.Close()
		return nil, fmt.Errorf("failed to enable WAL mode: %w", err)
	}

	s := &Store{
		db:      db,
		logger:  cfg.Logger.With().Str("component", "history").Logger(),
		maxRuns: cfg.MaxRuns,
		maxAge:  cfg.MaxAge,
	}

	if err := s.initSchema(); err != nil {
		db.Close()
		return nil, fmt.Errorf("failed to initialize schema: %w", err)
	}

	s.logger.Info().Str("path", cfg.DBPath).Msg("History store opened")
	return s, nil
}

func (s *Store) initSchema() error {
	schema := `
		CREATE TABLE IF NOT EXISTS runs (
			id TEXT PRIMARY KEY,
			scenario TEXT NOT NULL,
			status TEXT NOT NULL,
			error TEXT NOT NULL DEFAULT '',
			started_at INTEGER NOT NULL,
			finished_at INTEGER
		);
		CREATE INDEX IF NOT EXISTS idx_runs_started ON runs(started_at);
		CREATE INDEX IF NOT EXISTS idx_runs_scenario ON runs(scenario);

		CREATE TABLE IF NOT EXISTS steps (
			run_id TEXT NOT NULL,
			idx INTEGER NOT NULL,
			action TEXT NOT NULL,
			status TEXT NOT NULL,
			error TEXT NOT NULL DEFAULT '',
			duration_ms INTEGER NOT NULL,
			PRIMARY KEY (run_id, idx),
			FOREIGN KEY (run_id) REFERENCES runs(id) ON DELETE CASCADE
		);
	`

	_, err := s.db.Exec(schema)
	return err
}

// StartRun records a run as running.
func (s *Store) StartRun(ctx context.Context, id, scenario string, startedAt time.Time) error {
	_, err := s.db.ExecContext(ctx,
		"INSERT INTO runs (id, scenario, status, started_at) VALUES (?, ?, 'running', ?)",
		id, scenario, startedAt.UnixMilli(),
	)
	if err != nil {
		return fmt.Errorf("failed to record run start: %w", err)
	}
	return nil
}

// RecordStep records one finished step of a run.
func (s *Store) RecordStep(ctx context.Context, runID string, step StepRecord) error {
	_, err := s.db.ExecContext(ctx,
		"INSERT INTO steps (run_id, idx, action, status, error, duration_ms) VALUES (?, ?, ?, ?, ?, ?)",
		runID, step.Index, step.Action, step.Status, step.Error, step.DurationMS,
	)
	if err != nil {
		return fmt.Errorf("failed to record step: %w", err)
	}
	return nil
}

// FinishRun records a run's final status.
func (s *Store) FinishRun(ctx context.Context, id, status, errMsg string, finishedAt time.Time) error {
	res, err := s.db.ExecContext(ctx,
		"UPDATE runs SET status = ?, error = ?, finished_at = ? WHERE id = ?",
		status, errMsg, finishedAt.UnixMilli(), id,
	)
	if err != nil {
		return fmt.Errorf("failed to record run finish: %w", err)
	}
	if n, err := res.RowsAffected(); err == nil && n == 0 {
		return fmt.Errorf("run %s not found", id)
	}
	return nil
}

// List returns the most recent runs, newest first, without their steps. A
// non-positive limit returns up to 50.
func (s *Store) List(ctx context.Context, limit int) ([]Run, error) {
	if limit <= 0 {
		limit = 50
	}

	rows, err := s.db.QueryContext(ctx, `
		SELECT id, scenario, status, error, started_at, finished_at
		FROM runs
		ORDER BY started_at DESC, id DESC
		LIMIT ?
	`, limit)
	if err != nil {
		return nil, fmt.Errorf("failed to list runs: %w", err)
	}
	defer rows.Close()

	var runs []Run
	for rows.Next() {
		run, err := scanRun(rows)
		if err != nil {
			return nil, err
		}
		runs = append(runs, run)
	}
	return runs, rows.Err()
}

// Get returns one run with its steps.
func (s *Store) Get(ctx context.Context, id string) (*Run, error) {
	row := s.db.QueryRowContext(ctx, `
		SELECT id, scenario, status, error, started_at, finished_at
		FROM runs
		WHERE id = ?
	`, id)

	run, err := scanRun(row)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, fmt.Errorf("run %s not found", id)
	}
	if err != nil {
		return nil, err
	}

	rows, err := s.db.QueryContext(ctx, `
		SELECT idx, action, status, error, duration_ms
		FROM steps
		WHERE run_id = ?
		ORDER BY idx
	`, id)
	if err != nil {
		return nil, fmt.Errorf("failed to load steps: %w", err)
	}
	defer rows.Close()

	for rows.Next() {
		var step StepRecord
		if err := rows.Scan(&step.Index, &step.Action, &step.Status, &step.Error, &step.DurationMS); err != nil {
			return nil, fmt.Errorf("failed to scan step: %w", err)
		}
		run.Steps = append(run.Steps, step)
	}
	if err := rows.Err(); err != nil {
		return nil, err
	}
	return &run, nil
}

// Prune deletes everything but the newest maxRuns runs, plus any run older
// than maxAge when one is configured, and returns how many runs were removed.
// Steps go with their run.
func (s *Store) Prune(ctx context.Context) (int, error) {
	var total int64

	res, err := s.db.ExecContext(ctx, `
		DELETE FROM runs
		WHERE id NOT IN (
			SELECT id FROM runs ORDER BY started_at DESC, id DESC LIMIT ?
		)
	`, s.maxRuns)
	if err != nil {
		return 0, fmt.Errorf("failed to prune runs: %w", err)
	}
	if n, err := res.RowsAffected(); err == nil {
		total += n
	}

	if s.maxAge > 0 {
		cutoff := time.Now().Add(-s.maxAge).UnixMilli()
		res, err := s.db.ExecContext(ctx, `DELETE FROM runs WHERE started_at < ?`, cutoff)
		if err != nil {
			return int(total), fmt.Errorf("failed to prune expired runs: %w", err)
		}
		if n, err := res.RowsAffected(); err == nil {
			total += n
		}
	}

	if total > 0 {
		s.logger.Debug().Int64("pruned", total).Msg("Pruned old runs")
	}
	return int(total), nil
}

// Close closes the underlying database.
func (s *Store) Close() error {
	return s.db.Close()
}

type rowScanner interface {
	Scan(dest ...interface{}) error
}

func scanRun(row rowScanner) (Run, error) {
	var run Run
	var startedAt int64
	var finishedAt sql.NullInt64

	if err := row.Scan(&run.ID, &run.Scenario, &run.Status, &run.Error, &startedAt, &finishedAt); err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return Run{}, err
		}
		return Run{}, fmt.Errorf("failed to scan run: %w", err)
	}

	run.StartedAt = time.UnixMilli(startedAt)
	if finishedAt.Valid {
		t := time.UnixMilli(finishedAt.Int64)
		run.FinishedAt = &t
	}
	return run, nil
}
