package provider

import (
	"context"
	"time"

	"mp-daytype/internal/model"
	"mp-daytype/internal/provider/kite"
	"mp-daytype/internal/saver"
)

// KiteProvider is a DataProvider implementation backed by the Kite historical API.
// It embeds *kite.Crawler to expose fetch capabilities with minimal boilerplate.
type KiteProvider struct {
	*kite.Crawler
}

// NewKiteProvider creates a new Kite-backed DataProvider.
func NewKiteProvider(cfg kite.Config) (*KiteProvider, error) {
	crawler, err := kite.NewCrawler(cfg)
	if err != nil {
		return nil, err
	}
	return &KiteProvider{Crawler: crawler}, nil
}

// GetName returns provider name
func (p *KiteProvider) GetName() string {
	return "Kite"
}

// FetchCandles fetches inst's candles through the crawler.
func (p *KiteProvider) FetchCandles(ctx context.Context, inst Instrument, from, to time.Time) ([]model.Candle, error) {
	return p.Crawler.FetchCandles(ctx, inst.Name, inst.Token, from, to)
}

// SetSavePacketDir sets directory for crawler to save packets (one file per chunk).
// Dir is typically data/Kite. File extension depends on PacketSaver (csv/parquet/json).
func (p *KiteProvider) SetSavePacketDir(dir string) {
	p.Crawler.SavePacketDir = dir
}

// SetPacketSaver injects packet save implementation. Call after SetSavePacketDir.
func (p *KiteProvider) SetPacketSaver(s saver.PacketSaver) {
	p.Crawler.PacketSaver = s
}

// SetLogFunc sets fan-in logger. When set, crawler sends logs here instead of slog.
func (p *KiteProvider) SetLogFunc(fn kite.LogFunc) {
	p.Crawler.LogFunc = fn
}

// SetObserver sets a hook called after every historical request.
func (p *KiteProvider) SetObserver(fn kite.RequestObserver) {
	p.Crawler.Observer = fn
}
