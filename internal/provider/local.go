package provider

import (
	"context"
	"fmt"
	"os"
	"path/filepath"
	"sort"
	"strings"
	"time"

	"mp-daytype/internal/model"
	"mp-daytype/internal/saver"
	"mp-daytype/internal/session"
)

// LocalProvider replays packets previously saved by the Kite crawler from
// {dir}/{INSTRUMENT}/*.{ext}.
type LocalProvider struct {
	dir    string
	loader saver.PacketLoader
}

// NewLocalProvider creates a provider reading packets of the given format from dir.
func NewLocalProvider(dir, format string) (*LocalProvider, error) {
	loader := saver.NewPacketLoader(format)
	if loader == nil {
		return nil, fmt.Errorf("unsupported packet format %q", format)
	}
	if _, err := os.Stat(dir); err != nil {
		return nil, fmt.Errorf("packet dir: %w", err)
	}
	return &LocalProvider{dir: dir, loader: loader}, nil
}

// GetName returns provider name
func (p *LocalProvider) GetName() string {
	return "Local"
}

// FetchCandles loads every packet of inst and keeps candles on calendar dates [from, to].
func (p *LocalProvider) FetchCandles(ctx context.Context, inst Instrument, from, to time.Time) ([]model.Candle, error) {
	pattern := filepath.Join(p.dir, inst.Name, "*."+p.loader.Extension())
	files, err := filepath.Glob(pattern)
	if err != nil {
		return nil, err
	}
	sort.Strings(files)

	from, to = from.In(session.IST), to.In(session.IST)
	lo := time.Date(from.Year(), from.Month(), from.Day(), 0, 0, 0, 0, session.IST).UnixMilli()
	hi := time.Date(to.Year(), to.Month(), to.Day(), 0, 0, 0, 0, session.IST).AddDate(0, 0, 1).UnixMilli()

	batches := make([][]model.Candle, 0, len(files))
	for _, f := range files {
		if err := ctx.Err(); err != nil {
			return nil, err
		}
		if !strings.HasPrefix(filepath.Base(f), strings.ToLower(inst.Name)+"_") {
			continue
		}
		candles, err := p.loader.Load(f)
		if err != nil {
			return nil, fmt.Errorf("load %s: %w", f, err)
		}
		kept := candles[:0]
		for _, c := range candles {
			if c.Timestamp >= lo && c.Timestamp < hi {
				kept = append(kept, c)
			}
		}
		batches = append(batches, kept)
	}
	return session.Merge(batches...), nil
}

// Close is a no-op.
func (p *LocalProvider) Close() error {
	return nil
}
