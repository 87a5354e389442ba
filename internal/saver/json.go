package saver

import (
	"encoding/json"
	"os"

	"mp-daytype/internal/model"
)

// JSONSaver stores a packet as an indented JSON array.
type JSONSaver struct{}

func (JSONSaver) Extension() string { return "json" }

func (JSONSaver) Save(candles []model.Candle, path string) error {
	f, err := os.Create(path)
	if err != nil {
		return err
	}
	defer f.Close()
	enc := json.NewEncoder(f)
	enc.SetIndent("", "  ")
	return enc.Encode(candles)
}

func (JSONSaver) Load(path string) ([]model.Candle, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, err
	}
	defer f.Close()
	var candles []model.Candle
	if err := json.NewDecoder(f).Decode(&candles); err != nil {
		return nil, err
	}
	return candles, nil
}
