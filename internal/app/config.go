package app

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strconv"
	"strings"
	"time"

	"github.com/creasty/defaults"
	"github.com/go-playground/validator/v10"
	"github.com/joho/godotenv"
	"gopkg.in/yaml.v3"

	"mp-daytype/internal/daytype"
	"mp-daytype/internal/provider/kite"
)

// DefaultConfigPath is read when CONFIG_PATH is unset. A missing file is not an error.
const DefaultConfigPath = "configs/config.yaml"

// recorderOff disables the SQLite recorder when used as SQLITE_PATH.
const recorderOff = "off"

// Config holds application configuration from .env, an optional YAML file and the
// environment, in increasing precedence.
type Config struct {
	DataProvider    string        `yaml:"data_provider" default:"kite" validate:"oneof=kite local"`
	DataDir         string        `yaml:"data_dir" default:"data" validate:"required"`
	SaveFormat      string        `yaml:"save_format" default:"parquet" validate:"oneof=csv json parquet"`
	LogLevel        string        `yaml:"log_level" default:"info" validate:"oneof=debug info warn warning error"`
	LogFormat       string        `yaml:"log_format" default:"text" validate:"oneof=text json"`
	KiteEncToken    string        `yaml:"kite_enctoken"`
	KiteAPIKey      string        `yaml:"kite_api_key"`
	KiteAccessToken string        `yaml:"kite_access_token"`
	KiteBaseURL     string        `yaml:"kite_base_url" validate:"omitempty,url"`
	Interval        string        `yaml:"interval" default:"minute" validate:"oneof=minute 3minute 5minute 10minute 15minute 30minute 60minute"`
	YearsBack       int           `yaml:"years_back" default:"10" validate:"gte=1,lte=30"`
	ChunkDays       int           `yaml:"chunk_days" default:"60" validate:"gte=1,lte=60"`
	RequestInterval time.Duration `yaml:"request_interval" default:"500ms" validate:"gte=0"`
	Retries         int           `yaml:"retries" default:"3" validate:"gte=1,lte=10"` // attempts per request, first included
	Workers         int           `yaml:"workers" default:"2" validate:"gte=1,lte=16"`
	InstrumentsFile string        `yaml:"instruments_file"`
	SQLitePath      string        `yaml:"sqlite_path" default:"data/mpdaytype.db"`
	ScheduleCron    string        `yaml:"schedule_cron" default:"0 30 16 * * 1-5"`
	ReportsDir      string        `yaml:"reports_dir" default:"reports" validate:"required"`
	StrictSessions  bool          `yaml:"strict_sessions"`

	Thresholds daytype.Thresholds `yaml:"thresholds"`
}

var validate = validator.New()

// LoadConfig reads .env (if present), the YAML file at CONFIG_PATH and environment
// overrides, applies defaults and validates the result.
func LoadConfig() (*Config, error) {
	_ = godotenv.Load()
	return LoadConfigFile(getEnv("CONFIG_PATH", DefaultConfigPath))
}

// LoadConfigFile is LoadConfig without .env loading, reading YAML from path.
func LoadConfigFile(path string) (*Config, error) {
	cfg := &Config{Thresholds: daytype.DefaultThresholds()}
	if err := defaults.Set(cfg); err != nil {
		return nil, fmt.Errorf("config defaults: %w", err)
	}

	data, err := os.ReadFile(path)
	if err != nil && !errors.Is(err, os.ErrNotExist) {
		return nil, fmt.Errorf("read config: %w", err)
	}
	if len(data) > 0 {
		if err := yaml.Unmarshal(data, cfg); err != nil {
			return nil, fmt.Errorf("parse config %s: %w", path, err)
		}
	}

	if err := cfg.applyEnv(); err != nil {
		return nil, err
	}
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return cfg, nil
}

func (c *Config) applyEnv() error {
	setString(&c.DataProvider, "DATA_PROVIDER")
	setString(&c.DataDir, "DATA_DIR")
	setString(&c.SaveFormat, "SAVE_FORMAT")
	setString(&c.LogLevel, "LOG_LEVEL")
	setString(&c.LogFormat, "LOG_FORMAT")
	setString(&c.KiteEncToken, "KITE_ENCTOKEN")
	setString(&c.KiteAPIKey, "KITE_API_KEY")
	setString(&c.KiteAccessToken, "KITE_ACCESS_TOKEN")
	setString(&c.KiteBaseURL, "KITE_BASE_URL")
	setString(&c.Interval, "INTERVAL")
	setString(&c.InstrumentsFile, "INSTRUMENTS_FILE")
	setString(&c.SQLitePath, "SQLITE_PATH")
	setString(&c.ScheduleCron, "SCHEDULE_CRON")
	setString(&c.ReportsDir, "REPORTS_DIR")
	c.DataProvider = strings.ToLower(c.DataProvider)
	c.SaveFormat = strings.ToLower(c.SaveFormat)
	c.LogFormat = strings.ToLower(c.LogFormat)
	c.LogLevel = strings.ToLower(c.LogLevel)

	for _, p := range []struct {
		key string
		set func(string) error
	}{
		{"YEARS_BACK", intSetter(&c.YearsBack)},
		{"CHUNK_DAYS", intSetter(&c.ChunkDays)},
		{"WORKERS", intSetter(&c.Workers)},
		{"RETRIES", intSetter(&c.Retries)},
		{"REQUEST_INTERVAL", durationSetter(&c.RequestInterval)},
		{"STRICT_SESSIONS", boolSetter(&c.StrictSessions)},
		{"NEUTRAL_RATIO_MAX", floatSetter(&c.Thresholds.NeutralRatioMax)},
		{"TREND_RATIO_MIN", floatSetter(&c.Thresholds.TrendRatioMin)},
		{"NORMAL_RATIO_TOLERANCE", floatSetter(&c.Thresholds.NormalRatioTolerance)},
		{"CLOSE_TOLERANCE", floatSetter(&c.Thresholds.CloseTolerance)},
	} {
		v := os.Getenv(p.key)
		if v == "" {
			continue
		}
		if err := p.set(strings.TrimSpace(v)); err != nil {
			return fmt.Errorf("%s=%q: %w", p.key, v, err)
		}
	}
	return nil
}

// Validate checks field constraints and thresholds. Kite credentials are checked when
// the kite provider is built, so offline commands run without them.
func (c *Config) Validate() error {
	if err := validate.Struct(c); err != nil {
		var verrs validator.ValidationErrors
		if errors.As(err, &verrs) {
			msgs := make([]string, 0, len(verrs))
			for _, e := range verrs {
				msgs = append(msgs, fmt.Sprintf("%s failed %s=%s (got %v)", e.Field(), e.Tag(), e.Param(), e.Value()))
			}
			return fmt.Errorf("invalid config: %s", strings.Join(msgs, "; "))
		}
		return fmt.Errorf("invalid config: %w", err)
	}
	if err := c.Thresholds.Validate(); err != nil {
		return fmt.Errorf("invalid config: %w", err)
	}
	return nil
}

// KiteConfig maps the config onto the Kite client settings. Retry waits follow a
// 1s..8s exponential schedule.
func (c *Config) KiteConfig() kite.Config {
	return kite.Config{
		BaseURL:         c.KiteBaseURL,
		EncToken:        c.KiteEncToken,
		APIKey:          c.KiteAPIKey,
		AccessToken:     c.KiteAccessToken,
		Interval:        c.Interval,
		ChunkDays:       c.ChunkDays,
		RequestInterval: c.RequestInterval,
		Timeout:         2 * time.Minute,
		Retries:         c.Retries,
		RetryWait:       time.Second,
		RetryMaxWait:    8 * time.Second,
	}
}

// SaveBaseDir returns data/Kite, where raw packets live.
func (c *Config) SaveBaseDir() string {
	return filepath.Join(c.DataDir, "Kite")
}

// ProgressPath returns path to .lastday.json
func (c *Config) ProgressPath() string {
	return filepath.Join(c.DataDir, ".lastday.json")
}

// RecorderPath returns the SQLite path, or "" when the recorder is disabled.
func (c *Config) RecorderPath() string {
	if strings.EqualFold(c.SQLitePath, recorderOff) {
		return ""
	}
	return c.SQLitePath
}

func getEnv(key, def string) string {
	if v := os.Getenv(key); v != "" {
		return v
	}
	return def
}

func setString(dst *string, key string) {
	if v := strings.TrimSpace(os.Getenv(key)); v != "" {
		*dst = v
	}
}

func intSetter(dst *int) func(string) error {
	return func(s string) error {
		v, err := strconv.Atoi(s)
		if err == nil {
			*dst = v
		}
		return err
	}
}

func floatSetter(dst *float64) func(string) error {
	return func(s string) error {
		v, err := strconv.ParseFloat(s, 64)
		if err == nil {
			*dst = v
		}
		return err
	}
}

func boolSetter(dst *bool) func(string) error {
	return func(s string) error {
		v, err := strconv.ParseBool(s)
		if err == nil {
			*dst = v
		}
		return err
	}
}

func durationSetter(dst *time.Duration) func(string) error {
	return func(s string) error {
		v, err := time.ParseDuration(s)
		if err == nil {
			*dst = v
		}
		return err
	}
}
