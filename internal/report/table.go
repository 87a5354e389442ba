// Package report turns classified days into Year x DayType and Month x DayType
// percentage tables and renders them as terminal or SVG heatmaps.
package report

import (
	"log/slog"
	"sort"

	"github.com/shopspring/decimal"

	"mp-daytype/internal/daytype"
	"mp-daytype/internal/model"
)

// Axis names the row dimension of a table.
type Axis string

const (
	ByYear  Axis = "year"
	ByMonth Axis = "month"
)

var hundred = decimal.NewFromInt(100)

// Table is a row-normalized percentage table. Columns follow daytype.All().
type Table struct {
	Instrument string
	Axis       Axis
	Rows       []string
	Columns    []string
	Counts     [][]int
	Pct        [][]decimal.Decimal // one decimal place
}

// Max returns the largest percentage cell, or zero for an empty table.
func (t Table) Max() decimal.Decimal {
	m := decimal.Zero
	for _, row := range t.Pct {
		for _, v := range row {
			if v.GreaterThan(m) {
				m = v
			}
		}
	}
	return m
}

// InstrumentReport holds both tables for one instrument.
type InstrumentReport struct {
	Instrument string
	Year       Table
	Month      Table
	Days       int
}

// Build groups records by instrument (sorted by name) and computes both tables.
// Records whose day type does not parse are skipped.
func Build(records []model.DayRecord) []InstrumentReport {
	byInst := make(map[string][]model.DayRecord)
	for _, r := range records {
		byInst[r.Instrument] = append(byInst[r.Instrument], r)
	}
	names := make([]string, 0, len(byInst))
	for name := range byInst {
		names = append(names, name)
	}
	sort.Strings(names)

	out := make([]InstrumentReport, 0, len(names))
	for _, name := range names {
		recs := byInst[name]
		out = append(out, InstrumentReport{
			Instrument: name,
			Year:       buildTable(name, ByYear, recs),
			Month:      buildTable(name, ByMonth, recs),
			Days:       len(recs),
		})
	}
	return out
}

func buildTable(instrument string, axis Axis, recs []model.DayRecord) Table {
	labels := daytype.All()
	cols := make([]string, len(labels))
	for i, d := range labels {
		cols[i] = d.String()
	}

	counts := make(map[string][]int)
	for _, r := range recs {
		d, err := daytype.ParseDayType(r.DayType)
		if err != nil {
			slog.Warn("report: skipping record", "instrument", instrument, "date", r.Date, "error", err)
			continue
		}
		key := r.Year()
		if axis == ByMonth {
			key = r.Month()
		}
		if key == "" {
			continue
		}
		if counts[key] == nil {
			counts[key] = make([]int, len(labels))
		}
		counts[key][int(d)-1]++
	}

	t := Table{Instrument: instrument, Axis: axis, Columns: cols}
	for key := range counts {
		t.Rows = append(t.Rows, key)
	}
	sort.Strings(t.Rows)
	for _, key := range t.Rows {
		row := counts[key]
		total := 0
		for _, n := range row {
			total += n
		}
		pct := make([]decimal.Decimal, len(row))
		for i, n := range row {
			pct[i] = decimal.NewFromInt(int64(n)).Mul(hundred).Div(decimal.NewFromInt(int64(total))).Round(1)
		}
		t.Counts = append(t.Counts, row)
		t.Pct = append(t.Pct, pct)
	}
	return t
}
