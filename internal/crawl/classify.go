package crawl

import (
	"errors"
	"fmt"

	"mp-daytype/internal/daytype"
	"mp-daytype/internal/metrics"
	"mp-daytype/internal/model"
	"mp-daytype/internal/session"
)

// Outcome is the result of classifying one instrument's candles.
type Outcome struct {
	Records  []model.DayRecord
	Sessions int
	Skipped  int
	LastDate string // date of the last session seen, classified or skipped
}

// NewDayRecord flattens a classified session into its stats row.
func NewDayRecord(s session.Session, r daytype.Result) model.DayRecord {
	m := r.Metrics
	return model.DayRecord{
		Date:       s.Key(),
		Instrument: s.Instrument,
		DayType:    r.DayType.String(),
		IBSize:     string(m.IBSize),
		IBPct:      m.IBPct,
		IBRatio:    m.IBRatio,
		RangeRatio: m.RangeRatio,
		IBRange:    m.IBRange,
		DayRange:   m.DayRange,
		Close:      m.Close,
		Extension:  string(m.Extension),
	}
}

// ClassifyCandles splits candles into sessions and classifies each. Sessions without
// enough data are counted and skipped, unless strict is set, in which case the first one
// aborts with its error. mr may be nil.
func ClassifyCandles(instrument string, candles []model.Candle, c *daytype.Classifier, strict bool, mr *metrics.Recorder) (Outcome, error) {
	var out Outcome
	for _, s := range session.Split(instrument, candles, c.Hours()) {
		out.Sessions++
		out.LastDate = s.Key()
		res, err := c.Classify(s)
		if err != nil {
			if errors.Is(err, daytype.ErrDataInsufficient) && !strict {
				out.Skipped++
				if mr != nil {
					mr.RecordSkipped(instrument, "data_insufficient")
				}
				continue
			}
			return out, fmt.Errorf("classify %s: %w", s.Key(), err)
		}
		if mr != nil {
			mr.RecordClassified(instrument, res.DayType.String())
		}
		out.Records = append(out.Records, NewDayRecord(s, res))
	}
	return out, nil
}
