package recorder

import (
	"context"
	"database/sql"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"sync"
	"time"

	_ "modernc.org/sqlite"

	"mp-daytype/internal/model"
)

// SQLiteRecorder persists day records to a SQLite database.
type SQLiteRecorder struct {
	db *sql.DB
	mu sync.Mutex
}

// NewSQLiteRecorder opens (or creates) the SQLite database and runs migrations.
func NewSQLiteRecorder(dbPath string) (*SQLiteRecorder, error) {
	if err := os.MkdirAll(filepath.Dir(dbPath), 0o755); err != nil {
		return nil, fmt.Errorf("create db dir: %w", err)
	}
	db, err := sql.Open("sqlite", dbPath)
	if err != nil {
		return nil, fmt.Errorf("open sqlite: %w", err)
	}
	// pragmas are per connection
	db.SetMaxOpenConns(1)

	pragmas := []string{
		"PRAGMA journal_mode=WAL",
		"PRAGMA busy_timeout=3000",
		"PRAGMA synchronous=NORMAL",
	}
	for _, p := range pragmas {
		if _, err := db.Exec(p); err != nil {
			db.Close()
			return nil, fmt.Errorf("set pragma %s: %w", p, err)
		}
	}

	r := &SQLiteRecorder{db: db}
	if err := r.migrate(); err != nil {
		db.Close()
		return nil, fmt.Errorf("migrate: %w", err)
	}

	slog.Info("sqlite recorder opened", "path", dbPath)
	return r, nil
}

func (r *SQLiteRecorder) migrate() error {
	stmts := []string{
		`CREATE TABLE IF NOT EXISTS day_records (
			instrument  TEXT NOT NULL,
			date        TEXT NOT NULL,
			day_type    TEXT NOT NULL,
			ib_size     TEXT,
			ib_pct      REAL,
			ib_ratio    REAL,
			range_ratio REAL,
			ib_range    REAL,
			day_range   REAL,
			close       REAL,
			extension   TEXT,
			run_id      TEXT,
			updated_at  INTEGER NOT NULL,
			PRIMARY KEY (instrument, date)
		)`,
		`CREATE INDEX IF NOT EXISTS idx_day_records_type ON day_records(instrument, day_type)`,
		`CREATE TABLE IF NOT EXISTS runs (
			run_id     TEXT PRIMARY KEY,
			started_at INTEGER NOT NULL,
			days       INTEGER NOT NULL
		)`,
	}

	for _, s := range stmts {
		if _, err := r.db.Exec(s); err != nil {
			return fmt.Errorf("exec %q: %w", s[:40], err)
		}
	}
	return nil
}

// RecordDays upserts recs in one transaction.
func (r *SQLiteRecorder) RecordDays(ctx context.Context, runID string, recs []model.DayRecord) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	tx, err := r.db.BeginTx(ctx, nil)
	if err != nil {
		return err
	}
	defer tx.Rollback()

	stmt, err := tx.PrepareContext(ctx, `INSERT INTO day_records
		(instrument, date, day_type, ib_size, ib_pct, ib_ratio, range_ratio,
		 ib_range, day_range, close, extension, run_id, updated_at)
		VALUES (?,?,?,?,?,?,?,?,?,?,?,?,?)
		ON CONFLICT(instrument, date) DO UPDATE SET
			day_type=excluded.day_type, ib_size=excluded.ib_size, ib_pct=excluded.ib_pct,
			ib_ratio=excluded.ib_ratio, range_ratio=excluded.range_ratio,
			ib_range=excluded.ib_range, day_range=excluded.day_range, close=excluded.close,
			extension=excluded.extension, run_id=excluded.run_id, updated_at=excluded.updated_at`)
	if err != nil {
		return err
	}
	defer stmt.Close()

	now := time.Now().Unix()
	for _, d := range recs {
		if _, err := stmt.ExecContext(ctx,
			d.Instrument, d.Date, d.DayType, d.IBSize, d.IBPct, d.IBRatio, d.RangeRatio,
			d.IBRange, d.DayRange, d.Close, d.Extension, runID, now,
		); err != nil {
			return fmt.Errorf("upsert %s %s: %w", d.Instrument, d.Date, err)
		}
	}
	if _, err := tx.ExecContext(ctx, `INSERT INTO runs (run_id, started_at, days) VALUES (?,?,?)
		ON CONFLICT(run_id) DO UPDATE SET days=days+excluded.days`, runID, now, len(recs)); err != nil {
		return err
	}
	return tx.Commit()
}

func (r *SQLiteRecorder) LoadDays(ctx context.Context, instrument string) ([]model.DayRecord, error) {
	query := `SELECT instrument, date, day_type, ib_size, ib_pct, ib_ratio, range_ratio,
		ib_range, day_range, close, extension FROM day_records`
	var args []any
	if instrument != "" {
		query += ` WHERE instrument = ?`
		args = append(args, instrument)
	}
	query += ` ORDER BY instrument, date`

	rows, err := r.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var out []model.DayRecord
	for rows.Next() {
		var d model.DayRecord
		var ibSize, ext sql.NullString
		if err := rows.Scan(&d.Instrument, &d.Date, &d.DayType, &ibSize, &d.IBPct, &d.IBRatio,
			&d.RangeRatio, &d.IBRange, &d.DayRange, &d.Close, &ext); err != nil {
			return nil, err
		}
		d.IBSize, d.Extension = ibSize.String, ext.String
		out = append(out, d)
	}
	return out, rows.Err()
}

func (r *SQLiteRecorder) Close() error {
	return r.db.Close()
}
