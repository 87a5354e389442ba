package crawl

import (
	"context"
	"fmt"
	"io"
	"log/slog"
	"sync"
	"time"
)

func runLogWriter(w io.Writer, lines <-chan string) {
	for s := range lines {
		fmt.Fprintln(w, s)
	}
}

type errorEntry struct {
	Instrument string
	Err        error
}

func runErrorHandler(errors <-chan errorEntry, logger *slog.Logger) {
	for e := range errors {
		logger.Error("job error", "instrument", e.Instrument, "error", e.Err)
	}
}

// tally is the collector's running state, read by the heartbeat under mu.
type tally struct {
	mu       sync.Mutex
	success  int
	failed   int
	sessions int
	skipped  int
}

func (t *tally) snapshot() (success, failed, sessions, skipped int) {
	t.mu.Lock()
	defer t.mu.Unlock()
	return t.success, t.failed, t.sessions, t.skipped
}

func runHeartbeat(ctx context.Context, interval time.Duration, totalJobs int, t *tally, logger *slog.Logger) {
	ticker := time.NewTicker(interval)
	defer ticker.Stop()
	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			s, f, n, sk := t.snapshot()
			logger.Info("heartbeat", "done", s+f, "total", totalJobs, "success", s, "failed", f, "sessions", n, "skipped", sk)
		}
	}
}
