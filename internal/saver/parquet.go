package saver

import (
	"github.com/parquet-go/parquet-go"

	"mp-daytype/internal/model"
)

// ParquetSaver stores a packet as a Parquet file with one row per candle.
type ParquetSaver struct{}

func (ParquetSaver) Extension() string { return "parquet" }

func (ParquetSaver) Save(candles []model.Candle, path string) error {
	return parquet.WriteFile(path, candles)
}

func (ParquetSaver) Load(path string) ([]model.Candle, error) {
	return parquet.ReadFile[model.Candle](path)
}
