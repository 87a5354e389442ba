package daytype

import "errors"

var (
	// ErrDataInsufficient is returned when a session lacks IB or post-IB candles,
	// or its IB range is zero.
	ErrDataInsufficient = errors.New("data insufficient")

	// ErrInvalidConfiguration is returned when thresholds or hours are inconsistent.
	ErrInvalidConfiguration = errors.New("invalid configuration")
)
