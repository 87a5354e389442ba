package session

import (
	"testing"
	"time"

	"mp-daytype/internal/model"
)

func candleAt(day time.Time, hhmm string, price float64) model.Candle {
	t := NSE().At(day, MustClock(hhmm))
	return model.Candle{Timestamp: t.UnixMilli(), Open: price, High: price + 1, Low: price - 1, Close: price}
}

func TestHoursInIBHalfOpen(t *testing.T) {
	h := NSE()
	day := time.Date(2024, 3, 4, 0, 0, 0, 0, IST)
	cases := []struct {
		clock string
		want  bool
	}{
		{"09:14", false},
		{"09:15", true},
		{"10:00", true},
		{"10:14", true},
		{"10:15", false},
		{"15:15", false},
	}
	for _, c := range cases {
		if got := h.InIB(h.At(day, MustClock(c.clock))); got != c.want {
			t.Errorf("InIB(%s) = %v, want %v", c.clock, got, c.want)
		}
	}
}

func TestHoursInSessionUsesExchangeZone(t *testing.T) {
	h := NSE()
	// 03:45 UTC is 09:15 IST
	ts := time.Date(2024, 3, 4, 3, 45, 0, 0, time.UTC)
	if !h.InSession(ts) {
		t.Fatalf("expected 03:45 UTC to be inside NSE session")
	}
	if h.InSession(ts.Add(-time.Minute)) {
		t.Fatalf("expected 03:44 UTC to be outside NSE session")
	}
	if !h.InSession(h.At(ts, MustClock("15:30"))) {
		t.Fatalf("close minute should be inside session")
	}
}

func TestHoursValidate(t *testing.T) {
	if err := NSE().Validate(); err != nil {
		t.Fatalf("NSE hours invalid: %v", err)
	}
	h := NSE()
	h.IBEnd = h.IBStart
	if err := h.Validate(); err == nil {
		t.Fatalf("expected error for empty IB window")
	}
	h = NSE()
	h.IBStart = MustClock("09:00")
	if err := h.Validate(); err == nil {
		t.Fatalf("expected error for IB before open")
	}
}

func TestSplitGroupsFiltersAndDedups(t *testing.T) {
	h := NSE()
	d1 := time.Date(2024, 3, 4, 0, 0, 0, 0, IST)
	d2 := d1.AddDate(0, 0, 1)
	candles := []model.Candle{
		candleAt(d2, "09:15", 200),
		candleAt(d1, "09:30", 101),
		candleAt(d1, "09:15", 100),
		candleAt(d1, "09:15", 999), // duplicate timestamp
		candleAt(d1, "08:00", 50),  // pre-open
		candleAt(d1, "15:45", 60),  // after close
		candleAt(d2, "10:30", 201),
	}

	sessions := Split("NIFTY_50", candles, h)
	if len(sessions) != 2 {
		t.Fatalf("expected 2 sessions, got %d", len(sessions))
	}
	if sessions[0].Key() != "2024-03-04" || sessions[1].Key() != "2024-03-05" {
		t.Fatalf("unexpected session dates %s %s", sessions[0].Key(), sessions[1].Key())
	}
	if len(sessions[0].Candles) != 2 {
		t.Fatalf("expected 2 candles on day 1, got %d", len(sessions[0].Candles))
	}
	if sessions[0].Candles[0].Open != 100 {
		t.Fatalf("expected first duplicate to win, got open %.0f", sessions[0].Candles[0].Open)
	}
	if sessions[1].Instrument != "NIFTY_50" {
		t.Fatalf("instrument not propagated")
	}
}

func TestSplitEmpty(t *testing.T) {
	if s := Split("X", nil, NSE()); s != nil {
		t.Fatalf("expected nil, got %v", s)
	}
}

func TestMerge(t *testing.T) {
	a := []model.Candle{{Timestamp: 3}, {Timestamp: 1}}
	b := []model.Candle{{Timestamp: 2}, {Timestamp: 3}, {Timestamp: 3}}
	got := Merge(a, b)
	if len(got) != 3 {
		t.Fatalf("expected 3 candles, got %d", len(got))
	}
	for i, want := range []int64{1, 2, 3} {
		if got[i].Timestamp != want {
			t.Fatalf("index %d: want %d got %d", i, want, got[i].Timestamp)
		}
	}
}

func TestTradingDaysSkipsWeekends(t *testing.T) {
	from := time.Date(2024, 3, 1, 0, 0, 0, 0, IST) // Friday
	to := time.Date(2024, 3, 5, 0, 0, 0, 0, IST)   // Tuesday
	days := TradingDays(from, to)
	if len(days) != 3 {
		t.Fatalf("expected 3 weekdays, got %d", len(days))
	}
	for _, d := range days {
		if IsWeekend(d) {
			t.Fatalf("weekend day %s returned", d.Format("2006-01-02"))
		}
	}
}

func TestParseClock(t *testing.T) {
	c, err := ParseClock("10:15")
	if err != nil {
		t.Fatalf("ParseClock: %v", err)
	}
	if c.String() != "10:15" || int(c) != 615 {
		t.Fatalf("unexpected clock %s (%d)", c, int(c))
	}
	if _, err := ParseClock("25:00"); err == nil {
		t.Fatalf("expected error for 25:00")
	}
}
