package daytype

import (
	"errors"
	"math"
	"math/rand"
	"testing"
	"time"

	"mp-daytype/internal/model"
	"mp-daytype/internal/session"
)

var testDay = time.Date(2024, 3, 4, 0, 0, 0, 0, session.IST)

func bar(hhmm string, open, high, low, close float64) model.Candle {
	t := session.NSE().At(testDay, session.MustClock(hhmm))
	return model.Candle{Timestamp: t.UnixMilli(), Open: open, High: high, Low: low, Close: close}
}

func newSession(candles ...model.Candle) session.Session {
	return session.Session{Instrument: "NIFTY_50", Date: testDay, Candles: candles}
}

// ibSession has an IB of 100/95 and one post-IB candle with the given extremes and close.
func ibSession(dayHigh, dayLow, close float64) session.Session {
	return newSession(
		bar("09:15", 97, 100, 95, 98),
		bar("09:30", 98, 99, 96, 97),
		bar("10:15", 97, dayHigh, dayLow, close),
	)
}

func TestClassifyScenarios(t *testing.T) {
	th := DefaultThresholds()
	cases := []struct {
		name    string
		s       session.Session
		want    DayType
		ratio   float64
		extUp   bool
		extDown bool
	}{
		{"trend up", ibSession(105, 95, 104), Trend, 2.0, true, false},
		{"neutral center flat day", ibSession(100, 95, 97), NeutralCenter, 1.0, false, false},
		{"neutral center precedence", ibSession(102, 95, 96), NeutralCenter, 1.4, true, false},
		{"neutral center at neutral boundary", ibSession(102.5, 95, 96), NeutralCenter, 1.5, true, false},
		{"neutral extreme", ibSession(102, 95, 101.5), NeutralExtreme, 1.4, true, false},
		{"normal variation", ibSession(103, 95, 102), NormalVariation, 1.6, true, false},
		{"normal variation at trend boundary", ibSession(104, 95, 103), NormalVariation, 1.8, true, false},
		{"trend down", ibSession(100, 88, 89), Trend, 2.4, false, true},
		{"non-trend two-sided", ibSession(102, 93, 97), NonTrend, 1.8, true, true},
	}
	for _, c := range cases {
		t.Run(c.name, func(t *testing.T) {
			res, err := Classify(c.s, th)
			if err != nil {
				t.Fatalf("Classify: %v", err)
			}
			if res.DayType != c.want {
				t.Fatalf("want %s, got %s (rule %s, ratio %.3f)", c.want, res.DayType, res.Rule, res.Metrics.RangeRatio)
			}
			m := res.Metrics
			if m.IBHigh != 100 || m.IBLow != 95 || m.IBRange != 5 {
				t.Fatalf("unexpected IB %g/%g range %g", m.IBHigh, m.IBLow, m.IBRange)
			}
			if diff := m.RangeRatio - c.ratio; diff > 1e-9 || diff < -1e-9 {
				t.Fatalf("want ratio %.3f, got %.3f", c.ratio, m.RangeRatio)
			}
			if m.ExtensionUp != c.extUp || m.ExtensionDown != c.extDown {
				t.Fatalf("want extensions up=%v down=%v, got up=%v down=%v", c.extUp, c.extDown, m.ExtensionUp, m.ExtensionDown)
			}
		})
	}
}

func TestClassifyTrendWithExplicitThreshold(t *testing.T) {
	th := Thresholds{NeutralRatioMax: 1.5, TrendRatioMin: 1.8}
	res, err := Classify(ibSession(105, 95, 104), th)
	if err != nil {
		t.Fatalf("Classify: %v", err)
	}
	if res.DayType != Trend {
		t.Fatalf("want Trend, got %s", res.DayType)
	}
	if res.Metrics.Extension != ExtUp || res.Metrics.ExtUpSize != 5 || res.Metrics.ExtDownSize != 0 {
		t.Fatalf("unexpected extension %s up=%g down=%g", res.Metrics.Extension, res.Metrics.ExtUpSize, res.Metrics.ExtDownSize)
	}
}

func TestClassifyNormalReachableBelowOne(t *testing.T) {
	th := Thresholds{NeutralRatioMax: 0.5, TrendRatioMin: 1.8, NormalRatioTolerance: 0.05}
	res, err := Classify(ibSession(100, 95, 97), th)
	if err != nil {
		t.Fatalf("Classify: %v", err)
	}
	if res.DayType != Normal {
		t.Fatalf("want Normal, got %s", res.DayType)
	}
}

func TestCloseTolerance(t *testing.T) {
	th := DefaultThresholds()
	s := ibSession(102, 95, 100.2) // 0.2 above IB high, 4% of ib_range

	res, err := Classify(s, th)
	if err != nil {
		t.Fatalf("Classify: %v", err)
	}
	if res.DayType != NeutralExtreme {
		t.Fatalf("strict tolerance: want Neutral Extreme, got %s", res.DayType)
	}

	th.CloseTolerance = 0.05
	res, err = Classify(s, th)
	if err != nil {
		t.Fatalf("Classify: %v", err)
	}
	if res.DayType != NeutralCenter {
		t.Fatalf("5%% tolerance: want Neutral Center, got %s", res.DayType)
	}
}

func TestClassifyDataInsufficient(t *testing.T) {
	th := DefaultThresholds()
	cases := []struct {
		name string
		s    session.Session
	}{
		{"empty", newSession()},
		{"no ib candles", newSession(bar("10:15", 100, 101, 99, 100), bar("10:30", 100, 102, 98, 101))},
		{"no post-ib candles", newSession(bar("09:15", 100, 101, 99, 100), bar("10:00", 100, 102, 98, 101))},
		{"flat ib", newSession(bar("09:15", 100, 100, 100, 100), bar("10:15", 100, 103, 99, 101))},
		{"nan ib price", newSession(bar("09:15", 100, math.NaN(), 95, 98), bar("10:15", 98, 103, 94, 101))},
		{"nan post-ib price", newSession(bar("09:15", 97, 100, 95, 98), bar("10:15", 98, math.NaN(), 94, 101))},
		{"nan close", newSession(bar("09:15", 97, 100, 95, 98), bar("10:15", 98, 103, 94, math.NaN()))},
	}
	for _, c := range cases {
		t.Run(c.name, func(t *testing.T) {
			res, err := Classify(c.s, th)
			if !errors.Is(err, ErrDataInsufficient) {
				t.Fatalf("want ErrDataInsufficient, got %v", err)
			}
			if res.DayType != 0 {
				t.Fatalf("no label expected on failure, got %s", res.DayType)
			}
		})
	}
}

func TestClassifyInvalidConfigurationBeforeMetrics(t *testing.T) {
	cases := []Thresholds{
		{NeutralRatioMax: 1.8, TrendRatioMin: 1.8},
		{NeutralRatioMax: 2.0, TrendRatioMin: 1.5},
		{NeutralRatioMax: 0, TrendRatioMin: 1.5},
		{NeutralRatioMax: 1.2, TrendRatioMin: 1.5, CloseTolerance: -0.1},
		{NeutralRatioMax: 1.2, TrendRatioMin: 1.5, NormalRatioTolerance: -1},
		{NeutralRatioMax: math.NaN(), TrendRatioMin: 1.8},
		{NeutralRatioMax: 1.5, TrendRatioMin: math.NaN()},
		{NeutralRatioMax: 1.5, TrendRatioMin: math.Inf(1)},
		{NeutralRatioMax: 1.5, TrendRatioMin: 1.8, NormalRatioTolerance: math.NaN()},
		{NeutralRatioMax: 1.5, TrendRatioMin: 1.8, CloseTolerance: math.NaN()},
	}
	for _, th := range cases {
		// an empty session would otherwise fail with ErrDataInsufficient
		_, err := Classify(newSession(), th)
		if !errors.Is(err, ErrInvalidConfiguration) {
			t.Fatalf("%+v: want ErrInvalidConfiguration, got %v", th, err)
		}
	}
}

func TestNewClassifierRejectsBadHours(t *testing.T) {
	h := session.NSE()
	h.IBEnd = h.IBStart
	if _, err := NewClassifier(DefaultThresholds(), h); !errors.Is(err, ErrInvalidConfiguration) {
		t.Fatalf("want ErrInvalidConfiguration, got %v", err)
	}
}

func TestClassifyIdempotent(t *testing.T) {
	c, err := NewClassifier(DefaultThresholds(), session.NSE())
	if err != nil {
		t.Fatalf("NewClassifier: %v", err)
	}
	s := ibSession(103, 94, 96)
	first, err := c.Classify(s)
	if err != nil {
		t.Fatalf("Classify: %v", err)
	}
	second, err := c.Classify(s)
	if err != nil {
		t.Fatalf("Classify: %v", err)
	}
	if first != second {
		t.Fatalf("results differ:\n%+v\n%+v", first, second)
	}
}

func TestClassifyNeverLeavesTrendAsRangeGrows(t *testing.T) {
	c, err := NewClassifier(DefaultThresholds(), session.NSE())
	if err != nil {
		t.Fatalf("NewClassifier: %v", err)
	}
	seenTrend := false
	for high := 100.0; high <= 130; high += 0.25 {
		res, err := c.Classify(ibSession(high, 95, 97))
		if err != nil {
			t.Fatalf("high %.2f: %v", high, err)
		}
		if res.Metrics.RangeRatio > c.Thresholds().TrendRatioMin && res.DayType != Trend {
			t.Fatalf("high %.2f ratio %.2f: want Trend, got %s", high, res.Metrics.RangeRatio, res.DayType)
		}
		if seenTrend && res.DayType != Trend {
			t.Fatalf("high %.2f: moved back from Trend to %s", high, res.DayType)
		}
		if res.DayType == Trend {
			seenTrend = true
		}
	}
	if !seenTrend {
		t.Fatalf("expected Trend to be reached")
	}
}

func TestClassifyAlwaysOneOfSix(t *testing.T) {
	c, err := NewClassifier(DefaultThresholds(), session.NSE())
	if err != nil {
		t.Fatalf("NewClassifier: %v", err)
	}
	rng := rand.New(rand.NewSource(42))
	clocks := []string{"09:15", "09:30", "09:45", "10:00", "10:15", "11:00", "12:30", "14:00", "15:15"}
	for i := 0; i < 2000; i++ {
		var candles []model.Candle
		price := 100 + rng.Float64()*10
		for _, hhmm := range clocks {
			if rng.Intn(5) == 0 {
				continue
			}
			o := price
			cl := price + rng.NormFloat64()
			hi := max(o, cl) + rng.Float64()
			lo := min(o, cl) - rng.Float64()
			candles = append(candles, bar(hhmm, o, hi, lo, cl))
			price = cl
		}
		res, err := c.Classify(newSession(candles...))
		if err != nil {
			if !errors.Is(err, ErrDataInsufficient) {
				t.Fatalf("iteration %d: unexpected error %v", i, err)
			}
			continue
		}
		if !res.DayType.Valid() {
			t.Fatalf("iteration %d: invalid label %d", i, res.DayType)
		}
		if res.Metrics.RangeRatio < 1 {
			t.Fatalf("iteration %d: range ratio %.3f below 1", i, res.Metrics.RangeRatio)
		}
	}
}

func TestLabelRuleOrder(t *testing.T) {
	th := DefaultThresholds()
	// both neutral rules and the fallback could apply on ratio alone; the close decides
	m := Metrics{IBHigh: 100, IBLow: 95, IBRange: 5, RangeRatio: 1.2, ExtensionUp: true, ExtensionDown: true, Close: 98}
	if got, name := Label(m, th); got != NeutralCenter || name != "neutral-close-inside-ib" {
		t.Fatalf("want Neutral Center via first rule, got %s via %s", got, name)
	}
}

func BenchmarkClassify(b *testing.B) {
	c, err := NewClassifier(DefaultThresholds(), session.NSE())
	if err != nil {
		b.Fatalf("NewClassifier: %v", err)
	}
	var candles []model.Candle
	start := session.NSE().At(testDay, session.MustClock("09:15"))
	for i := 0; i < 375; i++ {
		ts := start.Add(time.Duration(i) * time.Minute)
		p := 100 + float64(i%37)/10
		candles = append(candles, model.Candle{Timestamp: ts.UnixMilli(), Open: p, High: p + 0.5, Low: p - 0.5, Close: p})
	}
	s := newSession(candles...)
	b.ResetTimer()
	for i := 0; i < b.N; i++ {
		if _, err := c.Classify(s); err != nil {
			b.Fatal(err)
		}
	}
}
