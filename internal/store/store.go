// Package store persists analysis runs in SQLite.
package store

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"math"
	"os"
	"path/filepath"
	"time"

	_ "modernc.org/sqlite" // SQLite driver.

	"github.com/cwbudde/algo-ringdown/internal/pipeline"
)

// ErrNotFound reports a missing run.
var ErrNotFound = errors.New("store: not found")

// timeLayout has fixed-width fractions so stored times sort as text.
const timeLayout = "2006-01-02T15:04:05.000000000Z07:00"

// Store wraps SQLite access for run results.
type Store struct {
	db *sql.DB
}

// Run is a stored run header.
type Run struct {
	ID         int64
	StartedAt  time.Time
	FinishedAt time.Time
	Events     int
	Failed     int
}

// EventRow is a stored per-event result. Optional values are invalid when
// the analysis did not produce them.
type EventRow struct {
	Name               string
	Mass               float64
	Spin               float64
	Redshift           float64
	ReferenceFrequency sql.NullFloat64
	MeanFrequency      sql.NullFloat64
	FrequencyDeviation sql.NullFloat64
	MaxDeviation       sql.NullFloat64
	Significance       sql.NullFloat64
	Detected           bool
	Flagged            bool
	Fundamental        sql.NullFloat64
	FundamentalErr     sql.NullFloat64
	Overtone           sql.NullFloat64
	OvertoneErr        sql.NullFloat64
	RatioDeviation     sql.NullFloat64
	RatioUncertainty   sql.NullFloat64
	Error              string
}

// CombinedRow is a stored combined statistic.
type CombinedRow struct {
	Field        string
	Mean         float64
	StdErr       float64
	Significance float64
	Level        string
	Count        int
	Mode         string
}

// Open opens or creates the database at path and applies migrations.
func Open(path string) (*Store, error) {
	if dir := filepath.Dir(path); dir != "." {
		if err := os.MkdirAll(dir, 0o755); err != nil {
			return nil, fmt.Errorf("store: %w", err)
		}
	}
	db, err := sql.Open("sqlite", path)
	if err != nil {
		return nil, fmt.Errorf("store: %w", err)
	}
	s := &Store{db: db}
	if err := s.migrate(); err != nil {
		_ = db.Close()
		return nil, fmt.Errorf("store: migrate: %w", err)
	}
	return s, nil
}

// Close closes the database.
func (s *Store) Close() error {
	return s.db.Close()
}

func (s *Store) migrate() error {
	stmts := []string{
		`CREATE TABLE IF NOT EXISTS runs (
			id INTEGER PRIMARY KEY,
			started_at TEXT NOT NULL,
			finished_at TEXT NOT NULL,
			events INTEGER NOT NULL,
			failed INTEGER NOT NULL
		);`,
		`CREATE TABLE IF NOT EXISTS event_results (
			run_id INTEGER NOT NULL REFERENCES runs(id),
			position INTEGER NOT NULL,
			name TEXT NOT NULL,
			mass REAL NOT NULL,
			spin REAL NOT NULL,
			redshift REAL NOT NULL,
			ref_freq REAL,
			mean_freq REAL,
			freq_dev REAL,
			max_dev REAL,
			significance REAL,
			detected INTEGER NOT NULL,
			flagged INTEGER NOT NULL,
			f0 REAL,
			f0_err REAL,
			f1 REAL,
			f1_err REAL,
			ratio_dev REAL,
			ratio_err REAL,
			error TEXT NOT NULL,
			PRIMARY KEY (run_id, name)
		);`,
		`CREATE TABLE IF NOT EXISTS combined_results (
			run_id INTEGER NOT NULL REFERENCES runs(id),
			field TEXT NOT NULL,
			mean REAL NOT NULL,
			stderr REAL NOT NULL,
			significance REAL NOT NULL,
			level TEXT NOT NULL,
			count INTEGER NOT NULL,
			mode TEXT NOT NULL,
			PRIMARY KEY (run_id, field)
		);`,
		`CREATE INDEX IF NOT EXISTS idx_runs_started_at ON runs(started_at);`,
	}
	for _, stmt := range stmts {
		if _, err := s.db.Exec(stmt); err != nil {
			return err
		}
	}
	return nil
}

// SaveRun stores a summary and returns its run ID.
func (s *Store) SaveRun(ctx context.Context, sum pipeline.Summary) (id int64, err error) {
	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return 0, fmt.Errorf("store: %w", err)
	}
	defer func() {
		if err != nil {
			_ = tx.Rollback()
		}
	}()

	res, err := tx.ExecContext(ctx,
		`INSERT INTO runs (started_at, finished_at, events, failed) VALUES (?, ?, ?, ?)`,
		sum.StartedAt.UTC().Format(timeLayout),
		sum.FinishedAt.UTC().Format(timeLayout),
		len(sum.Events),
		sum.Failed(),
	)
	if err != nil {
		return 0, fmt.Errorf("store: insert run: %w", err)
	}
	if id, err = res.LastInsertId(); err != nil {
		return 0, fmt.Errorf("store: %w", err)
	}

	for i, ev := range sum.Events {
		if err = insertEvent(ctx, tx, id, i, ev); err != nil {
			return 0, fmt.Errorf("store: insert event %q: %w", ev.Name, err)
		}
	}

	for _, c := range sum.Combined {
		_, err = tx.ExecContext(ctx,
			`INSERT INTO combined_results (run_id, field, mean, stderr, significance, level, count, mode)
			 VALUES (?, ?, ?, ?, ?, ?, ?, ?)`,
			id, c.Field, c.Mean, c.StdErr, c.Significance, c.Level.String(), c.Count, c.Mode.String())
		if err != nil {
			return 0, fmt.Errorf("store: insert combined %q: %w", c.Field, err)
		}
	}

	if err = tx.Commit(); err != nil {
		return 0, fmt.Errorf("store: commit: %w", err)
	}
	return id, nil
}

func insertEvent(ctx context.Context, tx *sql.Tx, runID int64, pos int, ev pipeline.EventResult) error {
	tracked := ev.Error == ""

	var f0, f0Err, f1, f1Err, ratioDev, ratioErr sql.NullFloat64
	if fit := ev.Fit; fit != nil {
		f0, f0Err = nullable(fit.Fundamental.Frequency, true), nullable(fit.Fundamental.FrequencyErr, true)
		f1, f1Err = nullable(fit.Overtone.Frequency, true), nullable(fit.Overtone.FrequencyErr, true)
		ratioDev, ratioErr = nullable(fit.RatioDeviation, true), nullable(fit.RatioUncertainty, true)
	}

	_, err := tx.ExecContext(ctx,
		`INSERT INTO event_results (run_id, position, name, mass, spin, redshift, ref_freq, mean_freq, freq_dev,
			max_dev, significance, detected, flagged, f0, f0_err, f1, f1_err, ratio_dev, ratio_err, error)
		 VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)`,
		runID, pos, ev.Name, ev.Mass, ev.Spin, ev.Redshift,
		nullable(ev.ReferenceFrequency, ev.ReferenceFrequency > 0),
		nullable(ev.MeanFrequency, tracked),
		nullable(ev.FrequencyDeviation, tracked),
		nullable(ev.Anomaly.MaxDeviation, tracked),
		nullable(ev.Anomaly.Significance, tracked),
		ev.Anomaly.Detected, ev.Flagged,
		f0, f0Err, f1, f1Err, ratioDev, ratioErr,
		ev.Error,
	)
	return err
}

func nullable(v float64, valid bool) sql.NullFloat64 {
	return sql.NullFloat64{Float64: v, Valid: valid && !math.IsNaN(v) && !math.IsInf(v, 0)}
}

// LatestRun returns the most recently started run.
func (s *Store) LatestRun(ctx context.Context) (Run, error) {
	row := s.db.QueryRowContext(ctx,
		`SELECT id, started_at, finished_at, events, failed FROM runs ORDER BY started_at DESC, id DESC LIMIT 1`)

	var (
		r                 Run
		started, finished string
	)
	if err := row.Scan(&r.ID, &started, &finished, &r.Events, &r.Failed); err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return Run{}, ErrNotFound
		}
		return Run{}, fmt.Errorf("store: %w", err)
	}

	var err error
	if r.StartedAt, err = time.Parse(timeLayout, started); err != nil {
		return Run{}, fmt.Errorf("store: started_at: %w", err)
	}
	if r.FinishedAt, err = time.Parse(timeLayout, finished); err != nil {
		return Run{}, fmt.Errorf("store: finished_at: %w", err)
	}
	return r, nil
}

// EventResults returns the events of a run in catalogue order.
func (s *Store) EventResults(ctx context.Context, runID int64) ([]EventRow, error) {
	rows, err := s.db.QueryContext(ctx,
		`SELECT name, mass, spin, redshift, ref_freq, mean_freq, freq_dev, max_dev, significance, detected, flagged,
			f0, f0_err, f1, f1_err, ratio_dev, ratio_err, error
		 FROM event_results WHERE run_id = ? ORDER BY position`, runID)
	if err != nil {
		return nil, fmt.Errorf("store: %w", err)
	}
	defer rows.Close()

	var out []EventRow
	for rows.Next() {
		var e EventRow
		if err := rows.Scan(&e.Name, &e.Mass, &e.Spin, &e.Redshift, &e.ReferenceFrequency, &e.MeanFrequency,
			&e.FrequencyDeviation, &e.MaxDeviation, &e.Significance, &e.Detected, &e.Flagged,
			&e.Fundamental, &e.FundamentalErr, &e.Overtone, &e.OvertoneErr, &e.RatioDeviation, &e.RatioUncertainty,
			&e.Error); err != nil {
			return nil, fmt.Errorf("store: %w", err)
		}
		out = append(out, e)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("store: %w", err)
	}
	if len(out) == 0 {
		return nil, ErrNotFound
	}
	return out, nil
}

// CombinedResults returns the combined statistics of a run ordered by field.
func (s *Store) CombinedResults(ctx context.Context, runID int64) ([]CombinedRow, error) {
	rows, err := s.db.QueryContext(ctx,
		`SELECT field, mean, stderr, significance, level, count, mode
		 FROM combined_results WHERE run_id = ? ORDER BY field`, runID)
	if err != nil {
		return nil, fmt.Errorf("store: %w", err)
	}
	defer rows.Close()

	var out []CombinedRow
	for rows.Next() {
		var c CombinedRow
		if err := rows.Scan(&c.Field, &c.Mean, &c.StdErr, &c.Significance, &c.Level, &c.Count, &c.Mode); err != nil {
			return nil, fmt.Errorf("store: %w", err)
		}
		out = append(out, c)
	}
	return out, rows.Err()
}
