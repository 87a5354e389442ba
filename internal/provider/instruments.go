package provider

import (
	"encoding/json"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"strings"

	"gopkg.in/yaml.v3"
)

// Instrument identifies one tradable series by display name and broker token.
type Instrument struct {
	Name     string `json:"name" yaml:"name"`
	Token    string `json:"token" yaml:"token"`
	Exchange string `json:"exchange,omitempty" yaml:"exchange,omitempty"`
}

// DefaultInstruments returns the two NSE indices classified when no list is configured.
func DefaultInstruments() []Instrument {
	return []Instrument{
		{Name: "NIFTY_50", Token: "256265", Exchange: "NSE"},
		{Name: "NIFTY_BANK", Token: "260105", Exchange: "NSE"},
	}
}

// LoadInstrumentsFromFile reads an instrument list.
// Supported formats:
//   - .txt         : one NAME,TOKEN[,EXCHANGE] per line, '#' lines are treated as comments
//   - .json        : JSON array of {name, token, exchange}
//   - .yaml / .yml : YAML list of {name, token, exchange}
func LoadInstrumentsFromFile(path string) ([]Instrument, error) {
	content, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("read file %s: %w", path, err)
	}

	var list []Instrument
	switch strings.ToLower(filepath.Ext(path)) {
	case ".json":
		if err := json.Unmarshal(content, &list); err != nil {
			return nil, fmt.Errorf("parse JSON: %w", err)
		}
	case ".yaml", ".yml":
		if err := yaml.Unmarshal(content, &list); err != nil {
			return nil, fmt.Errorf("parse YAML: %w", err)
		}
	case ".txt":
		list, err = parseInstrumentsFromText(string(content))
		if err != nil {
			return nil, err
		}
	default:
		return nil, fmt.Errorf("unsupported instrument file extension %q (use .txt, .json or .yaml)", filepath.Ext(path))
	}

	// Normalize, drop duplicates by name
	seen := make(map[string]bool)
	var unique []Instrument
	for _, in := range list {
		in.Name = strings.TrimSpace(strings.ToUpper(in.Name))
		in.Token = strings.TrimSpace(in.Token)
		if in.Exchange == "" {
			in.Exchange = "NSE"
		}
		if in.Name == "" || in.Token == "" {
			return nil, fmt.Errorf("%s: instrument %q has no token", path, in.Name)
		}
		if !seen[in.Name] {
			seen[in.Name] = true
			unique = append(unique, in)
		}
	}

	slog.Info("loaded instruments from file", "count", len(unique), "path", path)
	return unique, nil
}

func parseInstrumentsFromText(s string) ([]Instrument, error) {
	var list []Instrument
	for i, line := range strings.Split(s, "\n") {
		line = strings.TrimSpace(line)
		if line == "" || strings.HasPrefix(line, "#") {
			continue
		}
		parts := strings.Split(line, ",")
		if len(parts) < 2 {
			return nil, fmt.Errorf("line %d: want NAME,TOKEN, got %q", i+1, line)
		}
		in := Instrument{Name: parts[0], Token: strings.TrimSpace(parts[1])}
		if len(parts) > 2 {
			in.Exchange = strings.TrimSpace(parts[2])
		}
		list = append(list, in)
	}
	return list, nil
}

// LoadInstrumentsOrDefault loads path when set and present, else the default indices.
func LoadInstrumentsOrDefault(path string) ([]Instrument, error) {
	if path != "" {
		if _, err := os.Stat(path); err == nil {
			return LoadInstrumentsFromFile(path)
		}
		slog.Info("instrument file not found, using defaults", "path", path)
	}
	return DefaultInstruments(), nil
}
