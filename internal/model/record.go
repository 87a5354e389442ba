package model

// DayRecord is one classified session as written to the stats CSV and the recorder.
type DayRecord struct {
	Date       string  `json:"date"` // YYYY-MM-DD, exchange-local
	Instrument string  `json:"instrument"`
	DayType    string  `json:"day_type"`
	IBSize     string  `json:"ib_size"`
	IBPct      float64 `json:"ib_pct"`
	IBRatio    float64 `json:"ib_ratio"`
	RangeRatio float64 `json:"range_ratio"`
	IBRange    float64 `json:"ib_range"`
	DayRange   float64 `json:"day_range"`
	Close      float64 `json:"close"`
	Extension  string  `json:"extension"` // none | up | down | both
}

// Year returns the four-digit year of the record date.
func (r DayRecord) Year() string {
	if len(r.Date) < 4 {
		return ""
	}
	return r.Date[:4]
}

// Month returns the two-digit month of the record date.
func (r DayRecord) Month() string {
	if len(r.Date) < 7 {
		return ""
	}
	return r.Date[5:7]
}
