package kite

import (
	"encoding/json"
	"fmt"
	"strconv"
	"time"

	"mp-daytype/internal/model"
)

// timestampLayout is the candle time format returned by the historical endpoint,
// e.g. 2024-03-04T09:15:00+0530.
const timestampLayout = "2006-01-02T15:04:05-0700"

// HistoricalResponse is the envelope of /instruments/historical.
type HistoricalResponse struct {
	Status    string `json:"status"`
	Message   string `json:"message,omitempty"`
	ErrorType string `json:"error_type,omitempty"`
	Data      struct {
		Candles []CandleRaw `json:"candles"`
	} `json:"data"`
}

// CandleRaw is one positional candle: [timestamp, open, high, low, close, volume(, oi)].
type CandleRaw []json.RawMessage

// ToCandle converts CandleRaw to model.Candle.
func (cr CandleRaw) ToCandle() (model.Candle, error) {
	if len(cr) < 6 {
		return model.Candle{}, fmt.Errorf("candle has %d fields, want at least 6", len(cr))
	}
	var ts string
	if err := json.Unmarshal(cr[0], &ts); err != nil {
		return model.Candle{}, fmt.Errorf("candle timestamp: %w", err)
	}
	t, err := time.Parse(timestampLayout, ts)
	if err != nil {
		// some responses carry a colon in the offset
		t, err = time.Parse(time.RFC3339, ts)
		if err != nil {
			return model.Candle{}, fmt.Errorf("candle timestamp %q: %w", ts, err)
		}
	}
	var prices [4]float64
	for i := range prices {
		if err := json.Unmarshal(cr[i+1], &prices[i]); err != nil {
			return model.Candle{}, fmt.Errorf("candle field %d: %w", i+1, err)
		}
	}
	var vol, oi FlexibleInt64
	if err := vol.UnmarshalJSON(cr[5]); err != nil {
		return model.Candle{}, fmt.Errorf("candle volume: %w", err)
	}
	if len(cr) > 6 {
		if err := oi.UnmarshalJSON(cr[6]); err != nil {
			return model.Candle{}, fmt.Errorf("candle oi: %w", err)
		}
	}
	return model.Candle{
		Timestamp: t.UnixMilli(),
		Open:      prices[0],
		High:      prices[1],
		Low:       prices[2],
		Close:     prices[3],
		Volume:    vol.Int64(),
		OI:        oi.Int64(),
	}, nil
}

// FlexibleInt64 parses int, float (scientific notation) or a quoted number to int64.
type FlexibleInt64 int64

// UnmarshalJSON parses int or float
func (f *FlexibleInt64) UnmarshalJSON(data []byte) error {
	if string(data) == "null" {
		*f = 0
		return nil
	}
	var str string
	if err := json.Unmarshal(data, &str); err == nil {
		val, err := strconv.ParseFloat(str, 64)
		if err != nil {
			return err
		}
		*f = FlexibleInt64(int64(val))
		return nil
	}

	var floatVal float64
	if err := json.Unmarshal(data, &floatVal); err == nil {
		*f = FlexibleInt64(int64(floatVal))
		return nil
	}

	return fmt.Errorf("cannot parse as int64: %s", string(data))
}

// Int64 returns int64 value
func (f FlexibleInt64) Int64() int64 {
	return int64(f)
}
