package crawl

import (
	"encoding/json"
	"log/slog"
	"os"
	"path/filepath"
)

// ProgressFileName maps instrument -> last classified session date (YYYY-MM-DD).
const ProgressFileName = ".lastday.json"

// ProgressUpdate is sent when an instrument job succeeds
type ProgressUpdate struct {
	Instrument string
	Date       string
}

// LoadProgress reads the progress file. A missing or corrupt file yields an empty map.
func LoadProgress(path string) map[string]string {
	data, err := os.ReadFile(path)
	if err != nil {
		return make(map[string]string)
	}
	var m map[string]string
	if err := json.Unmarshal(data, &m); err != nil {
		slog.Warn("progress file unreadable, starting fresh", "path", path, "error", err)
		return make(map[string]string)
	}
	return m
}

// RunProgressWriter receives updates and persists to file (run as goroutine).
// Dates only move forward.
func RunProgressWriter(path string, updates <-chan ProgressUpdate) {
	m := LoadProgress(path)
	for u := range updates {
		if prev, ok := m[u.Instrument]; ok && prev >= u.Date {
			continue
		}
		m[u.Instrument] = u.Date
		data, err := json.MarshalIndent(m, "", "  ")
		if err != nil {
			slog.Warn("progress marshal error", "error", err)
			continue
		}
		if err := os.MkdirAll(filepath.Dir(path), 0755); err != nil {
			slog.Warn("progress dir error", "error", err)
			continue
		}
		if err := os.WriteFile(path, data, 0644); err != nil {
			slog.Warn("progress write error", "error", err)
		}
	}
}
