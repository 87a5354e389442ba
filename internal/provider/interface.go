package provider

import (
	"context"
	"time"

	"mp-daytype/internal/model"
)

// DataProvider is the abstraction used by the application when accessing a data source.
// Implementations are responsible for their own internal fetch logic and resource cleanup.
type DataProvider interface {
	GetName() string
	// FetchCandles returns the instrument's candles for the calendar dates [from, to],
	// sorted by timestamp without duplicates.
	FetchCandles(ctx context.Context, inst Instrument, from, to time.Time) ([]model.Candle, error)
	Close() error
}
