package saver

import (
	"strings"

	"mp-daytype/internal/model"
)

// PacketSaver persists one packet (chunk) of candles.
// High-level code injects the implementation; the crawler only depends on the interface.
type PacketSaver interface {
	Save(candles []model.Candle, path string) error
	Extension() string
}

// PacketLoader reads back a packet written by the PacketSaver of the same format.
type PacketLoader interface {
	Load(path string) ([]model.Candle, error)
	Extension() string
}

// Codec both saves and loads packets of one format.
type Codec interface {
	PacketSaver
	PacketLoader
}

// NewCodec returns the codec for format (csv, parquet, json), or nil if not supported.
func NewCodec(format string) Codec {
	switch strings.ToLower(strings.TrimSpace(format)) {
	case "csv":
		return CSVSaver{}
	case "parquet":
		return ParquetSaver{}
	case "json":
		return JSONSaver{}
	default:
		return nil
	}
}

// NewPacketSaver creates the saver for format (csv, parquet, json).
// Returns nil if format not supported.
func NewPacketSaver(format string) PacketSaver {
	c := NewCodec(format)
	if c == nil {
		return nil
	}
	return c
}

// NewPacketLoader creates the loader for format (csv, parquet, json).
// Returns nil if format not supported.
func NewPacketLoader(format string) PacketLoader {
	c := NewCodec(format)
	if c == nil {
		return nil
	}
	return c
}
