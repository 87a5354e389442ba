package app

import (
	"fmt"
	"log/slog"

	"github.com/google/uuid"

	"mp-daytype/internal/daytype"
	"mp-daytype/internal/metrics"
	"mp-daytype/internal/provider"
	"mp-daytype/internal/recorder"
	"mp-daytype/internal/saver"
	"mp-daytype/internal/session"
)

// App bundles everything a run needs. The injector's cleanup releases the provider and
// the recorder.
type App struct {
	Config      *Config
	Provider    provider.DataProvider
	Classifier  *daytype.Classifier
	Recorder    recorder.Recorder
	Metrics     *metrics.Recorder
	Instruments []provider.Instrument
}

// NewApp assembles an App (for Wire).
func NewApp(cfg *Config, dp provider.DataProvider, c *daytype.Classifier, rec recorder.Recorder, mr *metrics.Recorder, insts []provider.Instrument) *App {
	return &App{Config: cfg, Provider: dp, Classifier: c, Recorder: rec, Metrics: mr, Instruments: insts}
}

// NewRunID returns a fresh run identifier.
func NewRunID() string {
	return uuid.NewString()
}

// ProvideConfig loads config from .env, YAML and environment (for Wire).
func ProvideConfig() (*Config, error) {
	return LoadConfig()
}

// ProvidePacketSaver creates PacketSaver from config (for Wire).
// Returns error if SaveFormat is not supported.
func ProvidePacketSaver(cfg *Config) (saver.PacketSaver, error) {
	ps := saver.NewPacketSaver(cfg.SaveFormat)
	if ps == nil {
		return nil, fmt.Errorf("unsupported SAVE_FORMAT %q (use: csv, parquet, json)", cfg.SaveFormat)
	}
	return ps, nil
}

// ProvideMetrics creates the run metrics recorder (for Wire).
func ProvideMetrics() *metrics.Recorder {
	return metrics.New()
}

// ProvideDataProvider creates the configured DataProvider (for Wire).
// The returned cleanup closes it.
func ProvideDataProvider(cfg *Config, ps saver.PacketSaver, mr *metrics.Recorder) (provider.DataProvider, func(), error) {
	dp, err := CreateProvider(cfg, ps, mr)
	if err != nil {
		return nil, nil, err
	}
	return dp, closeFunc("data provider", dp.Close), nil
}

// ProvideLocalProvider creates a packet replay provider regardless of DATA_PROVIDER (for Wire).
func ProvideLocalProvider(cfg *Config) (provider.DataProvider, func(), error) {
	p, err := createLocalProvider(cfg)
	if err != nil {
		return nil, nil, err
	}
	return p, closeFunc("data provider", p.Close), nil
}

// ProvideClassifier builds the classifier from configured thresholds and NSE hours (for Wire).
func ProvideClassifier(cfg *Config) (*daytype.Classifier, error) {
	return daytype.NewClassifier(cfg.Thresholds, session.NSE())
}

// ProvideRecorder opens the SQLite recorder, or a noop one when disabled (for Wire).
// The returned cleanup closes it.
func ProvideRecorder(cfg *Config) (recorder.Recorder, func()) {
	rec := recorder.Open(cfg.RecorderPath())
	return rec, closeFunc("recorder", rec.Close)
}

func closeFunc(what string, close func() error) func() {
	return func() {
		if err := close(); err != nil {
			slog.Warn("close failed", "what", what, "error", err)
		}
	}
}

// ProvideInstruments loads the instrument list or the default indices (for Wire).
func ProvideInstruments(cfg *Config) ([]provider.Instrument, error) {
	return provider.LoadInstrumentsOrDefault(cfg.InstrumentsFile)
}
