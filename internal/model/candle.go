package model

import "time"

// Candle represents one OHLCV candle (minute/15minute etc.).
// Shared by provider, saver and serialization (json, parquet).
type Candle struct {
	Timestamp int64   `json:"t" parquet:"t"` // Unix timestamp in milliseconds
	Open      float64 `json:"o" parquet:"o"`
	High      float64 `json:"h" parquet:"h"`
	Low       float64 `json:"l" parquet:"l"`
	Close     float64 `json:"c" parquet:"c"`
	Volume    int64   `json:"v" parquet:"v"`
	OI        int64   `json:"oi,omitempty" parquet:"oi,optional"` // Open interest, 0 for cash indices
}

// Time returns the candle start time in loc.
func (c Candle) Time(loc *time.Location) time.Time {
	return time.UnixMilli(c.Timestamp).In(loc)
}
