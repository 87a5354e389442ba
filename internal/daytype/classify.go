package daytype

import (
	"fmt"
	"math"

	"mp-daytype/internal/session"
)

// Result is the label assigned to one session and the metrics behind it.
type Result struct {
	DayType DayType
	Rule    string // name of the rule that matched
	Metrics Metrics
}

type rule struct {
	name  string
	label DayType
	match func(m Metrics, t Thresholds) bool
}

// rules is evaluated top to bottom; the first match wins. Labels overlap on raw metrics,
// so the order is part of the definition.
var rules = []rule{
	{
		name:  "neutral-close-inside-ib",
		label: NeutralCenter,
		match: func(m Metrics, t Thresholds) bool {
			return m.RangeRatio <= t.NeutralRatioMax && closeInsideIB(m, t)
		},
	},
	{
		name:  "neutral-close-outside-ib",
		label: NeutralExtreme,
		match: func(m Metrics, t Thresholds) bool {
			return m.RangeRatio <= t.NeutralRatioMax && !closeInsideIB(m, t)
		},
	},
	{
		name:  "one-sided-beyond-trend",
		label: Trend,
		match: func(m Metrics, t Thresholds) bool {
			return oneSided(m) && m.RangeRatio > t.TrendRatioMin
		},
	},
	{
		name:  "one-sided-moderate",
		label: NormalVariation,
		match: func(m Metrics, t Thresholds) bool {
			return oneSided(m) && m.RangeRatio > t.NeutralRatioMax && m.RangeRatio <= t.TrendRatioMin
		},
	},
	{
		name:  "no-extension",
		label: Normal,
		match: func(m Metrics, t Thresholds) bool {
			return !m.ExtensionUp && !m.ExtensionDown && math.Abs(m.RangeRatio-1) <= t.NormalRatioTolerance
		},
	},
	{
		name:  "fallback",
		label: NonTrend,
		match: func(Metrics, Thresholds) bool { return true },
	},
}

func oneSided(m Metrics) bool {
	return m.ExtensionUp != m.ExtensionDown
}

func closeInsideIB(m Metrics, t Thresholds) bool {
	slack := t.CloseTolerance * m.IBRange
	return m.Close >= m.IBLow-slack && m.Close <= m.IBHigh+slack
}

// Label applies the rule list to precomputed metrics.
func Label(m Metrics, t Thresholds) (DayType, string) {
	for _, r := range rules {
		if r.match(m, t) {
			return r.label, r.name
		}
	}
	// unreachable: the last rule always matches
	return NonTrend, "fallback"
}

// Classifier labels sessions with a fixed, validated configuration. It holds no state
// between calls and is safe for concurrent use.
type Classifier struct {
	thresholds Thresholds
	hours      session.Hours
}

// NewClassifier validates t and h once. Errors wrap ErrInvalidConfiguration.
func NewClassifier(t Thresholds, h session.Hours) (*Classifier, error) {
	if err := t.Validate(); err != nil {
		return nil, err
	}
	if err := h.Validate(); err != nil {
		return nil, fmt.Errorf("%w: %v", ErrInvalidConfiguration, err)
	}
	return &Classifier{thresholds: t, hours: h}, nil
}

// Thresholds returns the configured thresholds.
func (c *Classifier) Thresholds() Thresholds { return c.thresholds }

// Hours returns the configured exchange hours.
func (c *Classifier) Hours() session.Hours { return c.hours }

// Classify computes the metrics of s and assigns exactly one day type.
func (c *Classifier) Classify(s session.Session) (Result, error) {
	m, err := ComputeMetrics(s, c.hours)
	if err != nil {
		return Result{}, err
	}
	label, name := Label(m, c.thresholds)
	return Result{DayType: label, Rule: name, Metrics: m}, nil
}

// Classify is the one-shot form for NSE hours. The thresholds are validated before any
// metric is computed.
func Classify(s session.Session, t Thresholds) (Result, error) {
	c, err := NewClassifier(t, session.NSE())
	if err != nil {
		return Result{}, err
	}
	return c.Classify(s)
}
