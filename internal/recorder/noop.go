package recorder

import (
	"context"

	"mp-daytype/internal/model"
)

// NoopRecorder is a no-op implementation used when SQLite is not configured.
type NoopRecorder struct{}

func NewNoopRecorder() *NoopRecorder { return &NoopRecorder{} }

func (n *NoopRecorder) RecordDays(context.Context, string, []model.DayRecord) error { return nil }
func (n *NoopRecorder) LoadDays(context.Context, string) ([]model.DayRecord, error) {
	return nil, nil
}
func (n *NoopRecorder) Close() error { return nil }
