package saver

import (
	"encoding/csv"
	"fmt"
	"os"
	"strconv"

	"mp-daytype/internal/model"
)

var candleHeader = []string{"t", "o", "h", "l", "c", "v", "oi"}

// CSVSaver stores a packet as CSV (header: t,o,h,l,c,v,oi).
type CSVSaver struct{}

func (CSVSaver) Extension() string { return "csv" }

func (CSVSaver) Save(candles []model.Candle, path string) error {
	f, err := os.Create(path)
	if err != nil {
		return err
	}
	defer f.Close()
	w := csv.NewWriter(f)

	if err := w.Write(candleHeader); err != nil {
		return err
	}
	for _, c := range candles {
		if err := w.Write([]string{
			strconv.FormatInt(c.Timestamp, 10),
			floatStr(c.Open),
			floatStr(c.High),
			floatStr(c.Low),
			floatStr(c.Close),
			strconv.FormatInt(c.Volume, 10),
			strconv.FormatInt(c.OI, 10),
		}); err != nil {
			return err
		}
	}
	w.Flush()
	return w.Error()
}

func (CSVSaver) Load(path string) ([]model.Candle, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, err
	}
	defer f.Close()
	rows, err := csv.NewReader(f).ReadAll()
	if err != nil {
		return nil, fmt.Errorf("read csv %s: %w", path, err)
	}
	if len(rows) == 0 {
		return nil, nil
	}
	candles := make([]model.Candle, 0, len(rows)-1)
	for i, row := range rows[1:] {
		if len(row) < 6 {
			return nil, fmt.Errorf("%s line %d: want at least 6 fields, got %d", path, i+2, len(row))
		}
		var c model.Candle
		var perr error
		parseInt := func(s string) int64 {
			v, err := strconv.ParseInt(s, 10, 64)
			if err != nil && perr == nil {
				perr = err
			}
			return v
		}
		parseFloat := func(s string) float64 {
			v, err := strconv.ParseFloat(s, 64)
			if err != nil && perr == nil {
				perr = err
			}
			return v
		}
		c.Timestamp = parseInt(row[0])
		c.Open = parseFloat(row[1])
		c.High = parseFloat(row[2])
		c.Low = parseFloat(row[3])
		c.Close = parseFloat(row[4])
		c.Volume = parseInt(row[5])
		if len(row) > 6 && row[6] != "" {
			c.OI = parseInt(row[6])
		}
		if perr != nil {
			return nil, fmt.Errorf("%s line %d: %w", path, i+2, perr)
		}
		candles = append(candles, c)
	}
	return candles, nil
}

func floatStr(f float64) string { return strconv.FormatFloat(f, 'f', -1, 64) }
