package daytype

import (
	"fmt"
	"math"
)

// Thresholds are the range-ratio cut-offs of the classification rules.
type Thresholds struct {
	// NeutralRatioMax is the largest range_ratio still counted as neutral (inclusive).
	NeutralRatioMax float64 `yaml:"neutral_ratio_max"`
	// TrendRatioMin is the range_ratio a one-sided extension must exceed to be a trend.
	TrendRatioMin float64 `yaml:"trend_ratio_min"`
	// NormalRatioTolerance is how far range_ratio may sit from 1 for a Normal day.
	NormalRatioTolerance float64 `yaml:"normal_ratio_tolerance"`
	// CloseTolerance widens the IB by this fraction of ib_range on each side when
	// deciding whether the close is inside the IB.
	CloseTolerance float64 `yaml:"close_tolerance"`
}

// DefaultThresholds returns the thresholds used when none are configured.
func DefaultThresholds() Thresholds {
	return Thresholds{
		NeutralRatioMax:      1.5,
		TrendRatioMin:        1.8,
		NormalRatioTolerance: 0.05,
		CloseTolerance:       0,
	}
}

// Validate returns an error wrapping ErrInvalidConfiguration when t is unusable.
// Checks are written so that NaN fails them.
func (t Thresholds) Validate() error {
	if !(t.NeutralRatioMax > 0) {
		return fmt.Errorf("%w: neutral_ratio_max must be positive, got %g", ErrInvalidConfiguration, t.NeutralRatioMax)
	}
	if !(t.NeutralRatioMax < t.TrendRatioMin) || math.IsInf(t.TrendRatioMin, 0) {
		return fmt.Errorf("%w: neutral_ratio_max %g must be below a finite trend_ratio_min %g",
			ErrInvalidConfiguration, t.NeutralRatioMax, t.TrendRatioMin)
	}
	if !(t.NormalRatioTolerance >= 0) {
		return fmt.Errorf("%w: normal_ratio_tolerance must not be negative, got %g", ErrInvalidConfiguration, t.NormalRatioTolerance)
	}
	if !(t.CloseTolerance >= 0) {
		return fmt.Errorf("%w: close_tolerance must not be negative, got %g", ErrInvalidConfiguration, t.CloseTolerance)
	}
	return nil
}
