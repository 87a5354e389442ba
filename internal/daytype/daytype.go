// Package daytype classifies a trading session into a Market Profile day type from its
// Initial Balance (IB) and range-extension behaviour.
package daytype

import (
	"fmt"
	"strings"
)

// DayType is a Market Profile day-type label.
type DayType int

const (
	NonTrend DayType = iota + 1
	Normal
	NormalVariation
	NeutralCenter
	NeutralExtreme
	Trend
)

var dayTypeNames = map[DayType]string{
	NonTrend:        "Non-trend",
	Normal:          "Normal",
	NormalVariation: "Normal Variation",
	NeutralCenter:   "Neutral Center",
	NeutralExtreme:  "Neutral Extreme",
	Trend:           "Trend",
}

// All returns every day type in report column order.
func All() []DayType {
	return []DayType{NonTrend, Normal, NormalVariation, NeutralCenter, NeutralExtreme, Trend}
}

func (d DayType) String() string {
	if s, ok := dayTypeNames[d]; ok {
		return s
	}
	return fmt.Sprintf("DayType(%d)", int(d))
}

// Valid reports whether d is one of the six labels.
func (d DayType) Valid() bool {
	_, ok := dayTypeNames[d]
	return ok
}

// ParseDayType accepts a label with or without the trailing " Day", case-insensitive.
func ParseDayType(s string) (DayType, error) {
	norm := strings.ToLower(strings.TrimSpace(s))
	norm = strings.TrimSuffix(norm, " day")
	for d, name := range dayTypeNames {
		if strings.ToLower(name) == norm {
			return d, nil
		}
	}
	return 0, fmt.Errorf("unknown day type %q", s)
}

// IBSize buckets the IB range as a percentage of the opening price.
type IBSize string

const (
	IBSmall  IBSize = "Small"
	IBMedium IBSize = "Medium"
	IBLarge  IBSize = "Large"
)

// IB size cut-offs in percent of the opening price.
const (
	ibSmallBelow = 0.33
	ibMediumUpTo = 1.00
)

// ClassifyIBSize maps ib_pct to Small (< 0.33), Medium (<= 1.00) or Large.
func ClassifyIBSize(ibPct float64) IBSize {
	if ibPct < ibSmallBelow {
		return IBSmall
	}
	if ibPct <= ibMediumUpTo {
		return IBMedium
	}
	return IBLarge
}

// Extension is the direction the session extended beyond its IB.
type Extension string

const (
	ExtNone Extension = "none"
	ExtUp   Extension = "up"
	ExtDown Extension = "down"
	ExtBoth Extension = "both"
)

func extensionOf(up, down bool) Extension {
	switch {
	case up && down:
		return ExtBoth
	case up:
		return ExtUp
	case down:
		return ExtDown
	default:
		return ExtNone
	}
}
