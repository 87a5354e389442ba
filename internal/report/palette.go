package report

import "github.com/shopspring/decimal"

// ylGnBu is a 9-step yellow-green-blue ramp, light to dark.
var ylGnBu = []string{
	"#ffffd9", "#edf8b1", "#c7e9b4", "#7fcdbb", "#41b6c4",
	"#1d91c0", "#225ea8", "#253494", "#081d58",
}

// shade maps v in [0, max] to a palette index.
func shade(v, max decimal.Decimal) int {
	if max.Sign() <= 0 || v.Sign() <= 0 {
		return 0
	}
	i := int(v.Div(max).Mul(decimal.NewFromInt(int64(len(ylGnBu) - 1))).Round(0).IntPart())
	if i >= len(ylGnBu) {
		i = len(ylGnBu) - 1
	}
	return i
}

// fill returns the background and a readable text color for v.
func fill(v, max decimal.Decimal) (bg, fg string) {
	i := shade(v, max)
	if i >= 5 {
		return ylGnBu[i], "#ffffff"
	}
	return ylGnBu[i], "#000000"
}

func axisTitle(a Axis) string {
	if a == ByMonth {
		return "Month"
	}
	return "Year"
}
