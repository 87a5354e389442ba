package session

import (
	"sort"
	"time"

	"mp-daytype/internal/model"
)

// Session is the ordered candles of one instrument on one exchange-local trading date.
type Session struct {
	Instrument string
	Date       time.Time // midnight, exchange-local
	Candles    []model.Candle
}

// Key returns the session date as YYYY-MM-DD.
func (s Session) Key() string {
	return s.Date.Format("2006-01-02")
}

// Split groups candles into sessions by exchange-local date.
// Candles outside regular hours are dropped, the rest sorted by timestamp with duplicate
// timestamps removed (first one wins). Dates without candles produce no session.
func Split(instrument string, candles []model.Candle, h Hours) []Session {
	if len(candles) == 0 {
		return nil
	}
	sorted := make([]model.Candle, 0, len(candles))
	for _, c := range candles {
		if h.InSession(c.Time(h.Location)) {
			sorted = append(sorted, c)
		}
	}
	sort.SliceStable(sorted, func(i, j int) bool { return sorted[i].Timestamp < sorted[j].Timestamp })

	var sessions []Session
	var cur *Session
	var lastTs int64
	for i, c := range sorted {
		if i > 0 && c.Timestamp == lastTs {
			continue
		}
		lastTs = c.Timestamp
		t := c.Time(h.Location)
		day := time.Date(t.Year(), t.Month(), t.Day(), 0, 0, 0, 0, h.Location)
		if cur == nil || !cur.Date.Equal(day) {
			sessions = append(sessions, Session{Instrument: instrument, Date: day})
			cur = &sessions[len(sessions)-1]
		}
		cur.Candles = append(cur.Candles, c)
	}
	return sessions
}

// Merge concatenates candle batches, sorts by timestamp and drops duplicate timestamps.
func Merge(batches ...[]model.Candle) []model.Candle {
	n := 0
	for _, b := range batches {
		n += len(b)
	}
	out := make([]model.Candle, 0, n)
	for _, b := range batches {
		out = append(out, b...)
	}
	sort.SliceStable(out, func(i, j int) bool { return out[i].Timestamp < out[j].Timestamp })
	dedup := out[:0]
	for _, c := range out {
		if len(dedup) > 0 && c.Timestamp == dedup[len(dedup)-1].Timestamp {
			continue
		}
		dedup = append(dedup, c)
	}
	return dedup
}

// IsWeekend reports whether d is a Saturday or Sunday.
func IsWeekend(d time.Time) bool {
	wd := d.Weekday()
	return wd == time.Saturday || wd == time.Sunday
}

// TradingDays returns the weekdays in [from, to], by calendar date.
// Exchange holidays are not known here; a holiday simply yields no candles.
func TradingDays(from, to time.Time) []time.Time {
	start := time.Date(from.Year(), from.Month(), from.Day(), 0, 0, 0, 0, from.Location())
	end := time.Date(to.Year(), to.Month(), to.Day(), 0, 0, 0, 0, from.Location())
	var days []time.Time
	for d := start; !d.After(end); d = d.AddDate(0, 0, 1) {
		if IsWeekend(d) {
			continue
		}
		days = append(days, d)
	}
	return days
}
