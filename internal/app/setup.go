package app

import (
	"fmt"
	"log/slog"
	"strings"

	"mp-daytype/internal/metrics"
	"mp-daytype/internal/provider"
	"mp-daytype/internal/saver"
)

// CreateProvider creates DataProvider from config (kite or local)
func CreateProvider(cfg *Config, ps saver.PacketSaver, mr *metrics.Recorder) (provider.DataProvider, error) {
	switch strings.ToLower(cfg.DataProvider) {
	case "kite":
		p, err := createKiteProvider(cfg, ps, mr)
		if err != nil {
			return nil, err
		}
		return p, nil
	case "local":
		p, err := createLocalProvider(cfg)
		if err != nil {
			return nil, err
		}
		return p, nil
	default:
		return nil, fmt.Errorf("unsupported data provider: %s. Options: kite, local", cfg.DataProvider)
	}
}

func createKiteProvider(cfg *Config, ps saver.PacketSaver, mr *metrics.Recorder) (*provider.KiteProvider, error) {
	p, err := provider.NewKiteProvider(cfg.KiteConfig())
	if err != nil {
		return nil, err
	}
	WireKitePacketSave(p, cfg.SaveBaseDir(), ps)
	if mr != nil {
		p.SetObserver(mr.ObserveFetch)
	}
	return p, nil
}

func createLocalProvider(cfg *Config) (*provider.LocalProvider, error) {
	p, err := provider.NewLocalProvider(cfg.SaveBaseDir(), cfg.SaveFormat)
	if err != nil {
		return nil, fmt.Errorf("local provider: %w", err)
	}
	slog.Info("wire", "provider", p.GetName(), "format", cfg.SaveFormat, "dir", cfg.SaveBaseDir())
	return p, nil
}

// WireKitePacketSave injects PacketSaver into the Kite provider
func WireKitePacketSave(p *provider.KiteProvider, saveBaseDir string, ps saver.PacketSaver) {
	if ps == nil {
		return
	}
	p.SetSavePacketDir(saveBaseDir)
	p.SetPacketSaver(ps)
	slog.Info("wire", "provider", p.GetName(), "format", ps.Extension(), "dir", saveBaseDir,
		"pattern", "{INSTRUMENT}/{instrument}_{from}_to_{to}."+ps.Extension())
}
