package recorder

import (
	"database/sql"
	"fmt"
	"os"
	"path/filepath"
	"sync"
	"time"

	"github.com/rs/zerolog"
	_ "modernc.org/sqlite"

	"LMPSentinel/internal/model"
)

// SQLiteRecorder persists run history to a SQLite database.
type SQLiteRecorder struct {
	db  *sql.DB
	mu  sync.Mutex
	log zerolog.Logger
}

// NewSQLiteRecorder opens (or creates) the SQLite database and runs migrations.
func NewSQLiteRecorder(dbPath string, log zerolog.Logger) (*SQLiteRecorder, error) {
	if err := os.MkdirAll(filepath.Dir(dbPath), 0o755); err != nil {
		return nil, fmt.Errorf("create db dir: %w", err)
	}
	db, err := sql.Open("sqlite", dbPath)
	if err != nil {
		return nil, fmt.Errorf("open sqlite: %w", err)
	}

	// WAL so dashboards can read while runs are written.
	if _, err := db.Exec("PRAGMA journal_mode=WAL"); err != nil {
		db.Close()
		return nil, fmt.Errorf("set WAL mode: %w", err)
	}

	r := &SQLiteRecorder{db: db, log: log}
	if err := r.migrate(); err != nil {
		db.Close()
		return nil, fmt.Errorf("migrate: %w", err)
	}

	log.Info().Str("path", dbPath).Msg("sqlite recorder opened")
	return r, nil
}

func (r *SQLiteRecorder) migrate() error {
	stmts := []string{
		`CREATE TABLE IF NOT EXISTS runs (
			id           INTEGER PRIMARY KEY AUTOINCREMENT,
			timestamp    INTEGER NOT NULL,
			source       TEXT,
			status       TEXT NOT NULL,
			error        TEXT,
			points       INTEGER,
			series_start INTEGER,
			series_end   INTEGER,
			model_order  TEXT,
			window_size  INTEGER,
			css          REAL,
			iterations   INTEGER,
			sigma2       REAL,
			adf_stat     REAL,
			stationary   INTEGER,
			mode         TEXT,
			upper_cut    REAL,
			lower_cut    REAL,
			flags        INTEGER
		)`,
		`CREATE INDEX IF NOT EXISTS idx_runs_ts ON runs(timestamp)`,

		`CREATE TABLE IF NOT EXISTS outliers (
			id        INTEGER PRIMARY KEY AUTOINCREMENT,
			run_id    INTEGER NOT NULL REFERENCES runs(id),
			hour      INTEGER NOT NULL,
			value     REAL,
			fitted    REAL,
			residual  REAL,
			direction TEXT
		)`,
		`CREATE INDEX IF NOT EXISTS idx_outliers_hour ON outliers(hour)`,
		`CREATE INDEX IF NOT EXISTS idx_outliers_run ON outliers(run_id)`,
	}

	for _, s := range stmts {
		if _, err := r.db.Exec(s); err != nil {
			return fmt.Errorf("exec %q: %w", s[:40], err)
		}
	}
	return nil
}

func (r *SQLiteRecorder) RecordRun(run *RunRecord) (int64, error) {
	r.mu.Lock()
	defer r.mu.Unlock()

	ts := run.Timestamp
	if ts.IsZero() {
		ts = time.Now()
	}
	res, err := r.db.Exec(`INSERT INTO runs
		(timestamp, source, status, error, points, series_start, series_end,
		 model_order, window_size, css, iterations, sigma2, adf_stat, stationary,
		 mode, upper_cut, lower_cut, flags)
		VALUES (?,?,?,?,?,?,?,?,?,?,?,?,?,?,?,?,?,?)`,
		ts.Unix(), run.Source, run.Status, run.Error, run.Points,
		unixOrZero(run.Start), unixOrZero(run.End),
		run.Order, run.Window, run.CSS, run.Iterations, run.Sigma2,
		run.ADFStat, run.Stationary,
		run.Mode, run.Upper, run.Lower, run.Flags,
	)
	if err != nil {
		return 0, err
	}
	return res.LastInsertId()
}

// RecordOutliers writes every flag of a run in one transaction.
func (r *SQLiteRecorder) RecordOutliers(runID int64, flags []model.OutlierFlag) error {
	if len(flags) == 0 {
		return nil
	}
	r.mu.Lock()
	defer r.mu.Unlock()

	tx, err := r.db.Begin()
	if err != nil {
		return err
	}
	stmt, err := tx.Prepare(`INSERT INTO outliers
		(run_id, hour, value, fitted, residual, direction)
		VALUES (?,?,?,?,?,?)`)
	if err != nil {
		tx.Rollback()
		return err
	}
	defer stmt.Close()
	for _, f := range flags {
		if _, err := stmt.Exec(runID, f.Time.Unix(), f.Value, f.Fitted, f.Residual, string(f.Direction)); err != nil {
			tx.Rollback()
			return fmt.Errorf("insert outlier %s: %w", f.Time.Format(time.DateTime), err)
		}
	}
	return tx.Commit()
}

// LatestRuns returns up to limit runs, newest first.
func (r *SQLiteRecorder) LatestRuns(limit int) ([]RunRecord, error) {
	rows, err := r.db.Query(`SELECT id, timestamp, source, status, error, points,
		series_start, series_end, model_order, window_size, css, iterations, sigma2,
		adf_stat, stationary, mode, upper_cut, lower_cut, flags
		FROM runs ORDER BY id DESC LIMIT ?`, limit)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var out []RunRecord
	for rows.Next() {
		var (
			rec            RunRecord
			ts, start, end int64
		)
		if err := rows.Scan(&rec.ID, &ts, &rec.Source, &rec.Status, &rec.Error, &rec.Points,
			&start, &end, &rec.Order, &rec.Window, &rec.CSS, &rec.Iterations, &rec.Sigma2,
			&rec.ADFStat, &rec.Stationary, &rec.Mode, &rec.Upper, &rec.Lower, &rec.Flags); err != nil {
			return nil, err
		}
		rec.Timestamp = time.Unix(ts, 0)
		rec.Start = timeOrZero(start)
		rec.End = timeOrZero(end)
		out = append(out, rec)
	}
	return out, rows.Err()
}

func (r *SQLiteRecorder) Close() error {
	r.log.Info().Msg("closing sqlite recorder")
	return r.db.Close()
}

func unixOrZero(t time.Time) int64 {
	if t.IsZero() {
		return 0
	}
	return t.Unix()
}

func timeOrZero(sec int64) time.Time {
	if sec == 0 {
		return time.Time{}
	}
	return time.Unix(sec, 0).UTC()
}
