package recorder

import (
	"context"
	"log/slog"

	"mp-daytype/internal/model"
)

// Recorder persists classified days for later reporting.
type Recorder interface {
	// RecordDays upserts recs keyed by (instrument, date), tagging rows with runID.
	RecordDays(ctx context.Context, runID string, recs []model.DayRecord) error
	// LoadDays returns recorded days ordered by instrument and date; an empty
	// instrument returns all of them.
	LoadDays(ctx context.Context, instrument string) ([]model.DayRecord, error)
	Close() error
}

// Open returns a SQLite recorder at path, or a NoopRecorder when path is empty or the
// database cannot be opened.
func Open(path string) Recorder {
	if path == "" {
		return NewNoopRecorder()
	}
	r, err := NewSQLiteRecorder(path)
	if err != nil {
		slog.Warn("sqlite recorder disabled", "path", path, "error", err)
		return NewNoopRecorder()
	}
	return r
}
