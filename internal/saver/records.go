package saver

import (
	"encoding/csv"
	"fmt"
	"os"
	"path/filepath"
	"strconv"
	"time"

	"mp-daytype/internal/model"
)

var recordHeader = []string{
	"date", "instrument", "day_type", "ib_size", "ib_pct", "ib_ratio",
	"range_ratio", "ib_range", "day_range", "close", "extension",
}

// StatsFileName returns mp_daytype_stats_{YYYY-MM-DD}.csv for the run date.
func StatsFileName(runDate time.Time) string {
	return fmt.Sprintf("mp_daytype_stats_%s.csv", runDate.Format("2006-01-02"))
}

// WriteRecords writes day records as CSV to path, creating the parent directory.
func WriteRecords(path string, records []model.DayRecord) error {
	if err := os.MkdirAll(filepath.Dir(path), 0755); err != nil {
		return err
	}
	f, err := os.Create(path)
	if err != nil {
		return err
	}
	defer f.Close()
	w := csv.NewWriter(f)
	if err := w.Write(recordHeader); err != nil {
		return err
	}
	for _, r := range records {
		if err := w.Write([]string{
			r.Date,
			r.Instrument,
			r.DayType,
			r.IBSize,
			floatStr(r.IBPct),
			floatStr(r.IBRatio),
			floatStr(r.RangeRatio),
			floatStr(r.IBRange),
			floatStr(r.DayRange),
			floatStr(r.Close),
			r.Extension,
		}); err != nil {
			return err
		}
	}
	w.Flush()
	return w.Error()
}

// ReadRecords reads a stats CSV. Columns are matched by header name, so files written by
// older runs with fewer numeric columns still load.
func ReadRecords(path string) ([]model.DayRecord, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, err
	}
	defer f.Close()
	rows, err := csv.NewReader(f).ReadAll()
	if err != nil {
		return nil, fmt.Errorf("read %s: %w", path, err)
	}
	if len(rows) == 0 {
		return nil, nil
	}
	col := make(map[string]int, len(rows[0]))
	for i, name := range rows[0] {
		col[name] = i
	}
	for _, required := range []string{"date", "day_type"} {
		if _, ok := col[required]; !ok {
			return nil, fmt.Errorf("%s: missing column %q", path, required)
		}
	}
	_, hasInstrument := col["instrument"]
	_, hasIndex := col["index"]
	if !hasInstrument && !hasIndex {
		return nil, fmt.Errorf("%s: missing column %q", path, "instrument")
	}

	records := make([]model.DayRecord, 0, len(rows)-1)
	for line, row := range rows[1:] {
		get := func(name string) string {
			if i, ok := col[name]; ok && i < len(row) {
				return row[i]
			}
			return ""
		}
		num := func(name string) (float64, error) {
			s := get(name)
			if s == "" {
				return 0, nil
			}
			v, err := strconv.ParseFloat(s, 64)
			if err != nil {
				return 0, fmt.Errorf("%s line %d column %s: %w", path, line+2, name, err)
			}
			return v, nil
		}
		r := model.DayRecord{
			Date:       get("date"),
			Instrument: get("instrument"),
			DayType:    get("day_type"),
			IBSize:     get("ib_size"),
			Extension:  get("extension"),
		}
		// older files name the instrument column "index"
		if r.Instrument == "" {
			r.Instrument = get("index")
		}
		for name, dst := range map[string]*float64{
			"ib_pct":      &r.IBPct,
			"ib_ratio":    &r.IBRatio,
			"range_ratio": &r.RangeRatio,
			"ib_range":    &r.IBRange,
			"day_range":   &r.DayRange,
			"close":       &r.Close,
		} {
			v, err := num(name)
			if err != nil {
				return nil, err
			}
			*dst = v
		}
		records = append(records, r)
	}
	return records, nil
}
