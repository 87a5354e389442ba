package kite

import (
	"context"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/go-resty/resty/v2"
	"golang.org/x/time/rate"

	"mp-daytype/internal/model"
	"mp-daytype/internal/saver"
	"mp-daytype/internal/session"
)

const (
	// WebBaseURL is the historical endpoint used by the Kite web app (enctoken auth).
	WebBaseURL = "https://kite.zerodha.com/oms"
	// APIBaseURL is the Kite Connect endpoint (api_key:access_token auth).
	APIBaseURL = "https://api.kite.trade"

	historicalPath = "/instruments/historical/{token}/{interval}"

	// Max days per historical request for intraday intervals
	maxDaysPerRequest = 60

	// Minutes per regular NSE session
	minPerDay = 375
)

// Config holds Kite client settings.
type Config struct {
	BaseURL         string
	EncToken        string
	APIKey          string
	AccessToken     string
	Interval        string // minute, 3minute, 5minute, 15minute, 60minute, day
	ChunkDays       int
	RequestInterval time.Duration // minimum spacing between requests
	Timeout         time.Duration
	Retries         int // attempts per request, the first one included
	RetryWait       time.Duration
	RetryMaxWait    time.Duration
}

func (c Config) baseURL() string {
	if c.BaseURL != "" {
		return strings.TrimRight(c.BaseURL, "/")
	}
	if c.EncToken != "" {
		return WebBaseURL
	}
	return APIBaseURL
}

func (c Config) authorization() string {
	if c.EncToken != "" {
		return "enctoken " + c.EncToken
	}
	return "token " + c.APIKey + ":" + c.AccessToken
}

// Validate checks credentials and limits.
func (c Config) Validate() error {
	if c.EncToken == "" && (c.APIKey == "" || c.AccessToken == "") {
		return fmt.Errorf("kite: KITE_ENCTOKEN or KITE_API_KEY and KITE_ACCESS_TOKEN must be set")
	}
	if c.Interval == "" {
		return fmt.Errorf("kite: interval is required")
	}
	if c.ChunkDays <= 0 || c.ChunkDays > maxDaysPerRequest {
		return fmt.Errorf("kite: chunk days must be in 1..%d, got %d", maxDaysPerRequest, c.ChunkDays)
	}
	return nil
}

// estimatedCandles returns pre-alloc capacity for [from, to] at the given interval.
func estimatedCandles(from, to time.Time, interval string) int {
	if to.Before(from) {
		return 0
	}
	days := int(to.Sub(from).Hours()/24) + 1
	perDay := minPerDay
	switch interval {
	case "day":
		perDay = 1
	case "3minute":
		perDay = minPerDay / 3
	case "5minute":
		perDay = minPerDay / 5
	case "10minute":
		perDay = minPerDay / 10
	case "15minute":
		perDay = minPerDay / 15
	case "30minute":
		perDay = minPerDay / 30
	case "60minute":
		perDay = minPerDay / 60
	}
	n := days * 5 / 7 * perDay
	if n > 500000 {
		n = 500000
	}
	return n
}

// LogFunc emits a log line. When set, used instead of slog (fan-in logger).
type LogFunc func(msg string)

// RequestObserver is told about every historical request once it completes.
type RequestObserver func(instrument string, elapsed time.Duration, err error)

// Crawler fetches historical candles from Kite and optionally persists raw packets.
type Crawler struct {
	client   *resty.Client
	limiter  *rate.Limiter
	interval string
	chunk    int

	SavePacketDir string
	PacketSaver   saver.PacketSaver // When non-nil, each chunk is persisted.
	LogFunc       LogFunc           // Optional fan-in logger for crawl progress and diagnostics.
	Observer      RequestObserver
}

// NewCrawler constructs a Crawler. All requests of one Crawler share its rate limiter.
func NewCrawler(cfg Config) (*Crawler, error) {
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	if cfg.Timeout <= 0 {
		cfg.Timeout = 2 * time.Minute
	}
	limit := rate.Inf
	if cfg.RequestInterval > 0 {
		limit = rate.Every(cfg.RequestInterval)
	}
	return &Crawler{
		client:   newRestyClient(cfg),
		limiter:  rate.NewLimiter(limit, 1),
		interval: cfg.Interval,
		chunk:    cfg.ChunkDays,
	}, nil
}

func (c *Crawler) logf(format string, args ...interface{}) {
	msg := fmt.Sprintf(format, args...)
	if c.LogFunc != nil {
		c.LogFunc(msg)
	} else {
		slog.Info(msg)
	}
}

// Close releases idle connections.
func (c *Crawler) Close() error {
	c.client.GetClient().CloseIdleConnections()
	return nil
}

// savePacket writes candles to SavePacketDir using PacketSaver if configured.
func (c *Crawler) savePacket(name string, from, to time.Time, candles []model.Candle) {
	if c.SavePacketDir == "" || c.PacketSaver == nil || len(candles) == 0 {
		return
	}
	dir := filepath.Join(c.SavePacketDir, name)
	if err := os.MkdirAll(dir, 0755); err != nil {
		c.logf("[%s] Save: cannot create folder %s: %v", name, dir, err)
		return
	}
	ext := c.PacketSaver.Extension()
	packetName := fmt.Sprintf("%s_%s_to_%s.%s", strings.ToLower(name), from.Format("2006-01-02"), to.Format("2006-01-02"), ext)
	packetPath := filepath.Join(dir, packetName)
	if err := c.PacketSaver.Save(candles, packetPath); err != nil {
		c.logf("[%s] Save: failed to write %s: %v", name, packetPath, err)
	} else {
		c.logf("[%s] Saved 1 file (%s): %s (%d candles)", name, ext, packetPath, len(candles))
	}
}

// splitDateRangeIntoChunks splits [from, to] by calendar date into chunks of at most
// maxDays days each, both ends inclusive.
func splitDateRangeIntoChunks(from, to time.Time, maxDays int) [][2]time.Time {
	var chunks [][2]time.Time
	start := time.Date(from.Year(), from.Month(), from.Day(), 0, 0, 0, 0, from.Location())
	end := time.Date(to.Year(), to.Month(), to.Day(), 0, 0, 0, 0, from.Location())

	if start.After(end) || maxDays <= 0 {
		return chunks
	}

	for currentStart := start; !currentStart.After(end); {
		currentEnd := currentStart.AddDate(0, 0, maxDays-1)
		if currentEnd.After(end) {
			currentEnd = end
		}

		chunks = append(chunks, [2]time.Time{currentStart, currentEnd})

		if currentEnd.Equal(end) {
			break
		}

		currentStart = currentEnd.AddDate(0, 0, 1)
	}

	return chunks
}

// fetchChunk runs one paced historical request for [from, to] (dates, inclusive).
func (c *Crawler) fetchChunk(ctx context.Context, name, token string, from, to time.Time) ([]model.Candle, error) {
	if err := c.limiter.Wait(ctx); err != nil {
		return nil, err
	}
	start := time.Now()
	var result HistoricalResponse
	resp, err := c.client.R().
		SetContext(ctx).
		SetPathParams(map[string]string{"token": token, "interval": c.interval}).
		SetQueryParams(map[string]string{
			"from": from.Format("2006-01-02"),
			"to":   to.Format("2006-01-02"),
			"oi":   "1",
		}).
		ForceContentType("application/json").
		SetResult(&result).
		SetError(&result).
		Get(historicalPath)
	if err == nil && resp.IsError() {
		msg := result.Message
		if msg == "" {
			msg = strings.TrimSpace(resp.String())
		}
		err = fmt.Errorf("kite status %d: %s", resp.StatusCode(), msg)
	}
	if err == nil && result.Status != "success" {
		err = fmt.Errorf("kite status %q: %s %s", result.Status, result.ErrorType, result.Message)
	}
	if c.Observer != nil {
		c.Observer(name, time.Since(start), err)
	}
	if err != nil {
		return nil, fmt.Errorf("historical %s %s..%s: %w", name, from.Format("2006-01-02"), to.Format("2006-01-02"), err)
	}

	candles := make([]model.Candle, 0, len(result.Data.Candles))
	for i, raw := range result.Data.Candles {
		cd, err := raw.ToCandle()
		if err != nil {
			return nil, fmt.Errorf("historical %s candle %d: %w", name, i, err)
		}
		candles = append(candles, cd)
	}
	return candles, nil
}

// FetchCandles fetches candles of instrument token for the calendar dates [from, to].
// Chunks are fetched in order; the result is sorted with duplicate timestamps removed.
func (c *Crawler) FetchCandles(ctx context.Context, name, token string, from, to time.Time) ([]model.Candle, error) {
	from, to = from.In(session.IST), to.In(session.IST)
	chunks := splitDateRangeIntoChunks(from, to, c.chunk)
	if len(chunks) == 0 {
		c.logf("[%s] No chunks in date range %s to %s", name, from.Format("2006-01-02"), to.Format("2006-01-02"))
		return nil, nil
	}
	c.logf("[%s] Split into %d chunks (%s, %d days each)", name, len(chunks), c.interval, c.chunk)

	batches := make([][]model.Candle, 0, len(chunks))
	for i, ch := range chunks {
		candles, err := c.fetchChunk(ctx, name, token, ch[0], ch[1])
		if err != nil {
			return nil, err
		}
		c.logf("[%s] chunk %d/%d %s..%s: %d candles", name, i+1, len(chunks),
			ch[0].Format("2006-01-02"), ch[1].Format("2006-01-02"), len(candles))
		c.savePacket(name, ch[0], ch[1], candles)
		batches = append(batches, candles)
	}

	all := make([]model.Candle, 0, estimatedCandles(from, to, c.interval))
	all = append(all, session.Merge(batches...)...)
	return all, nil
}
