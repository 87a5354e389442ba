package daytype

import (
	"fmt"
	"math"

	"mp-daytype/internal/session"
)

// Metrics are the values derived from one session that drive its classification.
type Metrics struct {
	IBHigh  float64
	IBLow   float64
	IBRange float64

	DayHigh  float64
	DayLow   float64
	DayRange float64

	RangeRatio float64 // DayRange / IBRange

	ExtensionUp   bool
	ExtensionDown bool
	Extension     Extension
	ExtUpSize     float64 // DayHigh - IBHigh, 0 without upside extension
	ExtDownSize   float64 // IBLow - DayLow, 0 without downside extension

	Open  float64 // open of the IB-start candle, else of the first candle
	Close float64 // close of the last candle

	IBPct            float64 // IBRange / Open * 100
	IBRatio          float64 // IBRange / DayRange
	ClosePosMid      float64 // |Close - mid| / DayRange
	CloseDistExtreme float64 // min distance of Close to a day extreme / DayRange
	IBSize           IBSize
}

// ComputeMetrics derives IB and day metrics for s using hours h.
// It fails with ErrDataInsufficient when the IB window or the rest of the session has no
// candles, or when the IB range is zero.
func ComputeMetrics(s session.Session, h session.Hours) (Metrics, error) {
	var m Metrics
	if len(s.Candles) == 0 {
		return m, fmt.Errorf("%w: session %s has no candles", ErrDataInsufficient, s.Key())
	}

	m.IBHigh, m.IBLow = math.Inf(-1), math.Inf(1)
	m.DayHigh, m.DayLow = math.Inf(-1), math.Inf(1)
	var ibCount, restCount int
	openSet := false
	for _, c := range s.Candles {
		t := c.Time(h.Location)
		if h.InIB(t) {
			ibCount++
			m.IBHigh = math.Max(m.IBHigh, c.High)
			m.IBLow = math.Min(m.IBLow, c.Low)
			if !openSet && session.ClockOf(t) == h.IBStart {
				m.Open = c.Open
				openSet = true
			}
		} else {
			restCount++
		}
		m.DayHigh = math.Max(m.DayHigh, c.High)
		m.DayLow = math.Min(m.DayLow, c.Low)
	}
	if ibCount == 0 {
		return Metrics{}, fmt.Errorf("%w: session %s has no candles in IB window %s-%s",
			ErrDataInsufficient, s.Key(), h.IBStart, h.IBEnd)
	}
	if restCount == 0 {
		return Metrics{}, fmt.Errorf("%w: session %s has no candles after the IB window",
			ErrDataInsufficient, s.Key())
	}

	m.IBRange = m.IBHigh - m.IBLow
	m.DayRange = m.DayHigh - m.DayLow
	if !(m.IBRange > 0) || math.IsNaN(m.DayRange) {
		return Metrics{}, fmt.Errorf("%w: session %s has a flat or unpriced IB (range %g)", ErrDataInsufficient, s.Key(), m.IBRange)
	}
	m.RangeRatio = m.DayRange / m.IBRange

	m.ExtensionUp = m.DayHigh > m.IBHigh
	m.ExtensionDown = m.DayLow < m.IBLow
	m.Extension = extensionOf(m.ExtensionUp, m.ExtensionDown)
	m.ExtUpSize = m.DayHigh - m.IBHigh
	m.ExtDownSize = m.IBLow - m.DayLow

	if !openSet {
		m.Open = s.Candles[0].Open
	}
	m.Close = s.Candles[len(s.Candles)-1].Close
	if math.IsNaN(m.Close) {
		return Metrics{}, fmt.Errorf("%w: session %s has no closing price", ErrDataInsufficient, s.Key())
	}

	if m.Open != 0 {
		m.IBPct = m.IBRange / m.Open * 100
	}
	m.IBSize = ClassifyIBSize(m.IBPct)
	// DayRange >= IBRange > 0 here
	m.IBRatio = m.IBRange / m.DayRange
	mid := (m.DayHigh + m.DayLow) / 2
	m.ClosePosMid = math.Abs(m.Close-mid) / m.DayRange
	m.CloseDistExtreme = math.Min(math.Abs(m.Close-m.DayLow), math.Abs(m.Close-m.DayHigh)) / m.DayRange
	return m, nil
}
