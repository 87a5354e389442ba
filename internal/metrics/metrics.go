package metrics

import (
	"fmt"
	"os"
	"path/filepath"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

// TextfileName is the metrics file written under the data dir at the end of a run.
const TextfileName = "mpdaytype.prom"

// Recorder collects run metrics on a private registry.
type Recorder struct {
	reg *prometheus.Registry

	classified   *prometheus.CounterVec
	skipped      *prometheus.CounterVec
	fetchErrors  *prometheus.CounterVec
	fetchLatency *prometheus.HistogramVec
	lastRun      prometheus.Gauge
}

// New creates a new Prometheus metrics recorder.
func New() *Recorder {
	reg := prometheus.NewRegistry()
	f := promauto.With(reg)
	return &Recorder{
		reg: reg,
		classified: f.NewCounterVec(
			prometheus.CounterOpts{
				Name: "mpdaytype_sessions_classified_total",
				Help: "Sessions classified by instrument and day type",
			},
			[]string{"instrument", "day_type"},
		),
		skipped: f.NewCounterVec(
			prometheus.CounterOpts{
				Name: "mpdaytype_sessions_skipped_total",
				Help: "Sessions skipped by instrument and reason",
			},
			[]string{"instrument", "reason"},
		),
		fetchErrors: f.NewCounterVec(
			prometheus.CounterOpts{
				Name: "mpdaytype_fetch_errors_total",
				Help: "Failed historical requests by instrument",
			},
			[]string{"instrument"},
		),
		fetchLatency: f.NewHistogramVec(
			prometheus.HistogramOpts{
				Name:    "mpdaytype_fetch_duration_seconds",
				Help:    "Duration of historical requests in seconds",
				Buckets: prometheus.DefBuckets,
			},
			[]string{"instrument"},
		),
		lastRun: f.NewGauge(prometheus.GaugeOpts{
			Name: "mpdaytype_last_run_timestamp_seconds",
			Help: "Unix time the last run finished",
		}),
	}
}

// RecordClassified counts one classified session.
func (r *Recorder) RecordClassified(instrument, dayType string) {
	r.classified.WithLabelValues(instrument, dayType).Inc()
}

// RecordSkipped counts one session that could not be classified.
func (r *Recorder) RecordSkipped(instrument, reason string) {
	r.skipped.WithLabelValues(instrument, reason).Inc()
}

// ObserveFetch records one historical request. Its signature matches kite.RequestObserver.
func (r *Recorder) ObserveFetch(instrument string, elapsed time.Duration, err error) {
	r.fetchLatency.WithLabelValues(instrument).Observe(elapsed.Seconds())
	if err != nil {
		r.fetchErrors.WithLabelValues(instrument).Inc()
	}
}

// Registry exposes the underlying registry.
func (r *Recorder) Registry() *prometheus.Registry { return r.reg }

// WriteTextfile stamps the run end time and writes all metrics to dir/mpdaytype.prom.
func (r *Recorder) WriteTextfile(dir string) (string, error) {
	r.lastRun.SetToCurrentTime()
	if err := os.MkdirAll(dir, 0755); err != nil {
		return "", err
	}
	path := filepath.Join(dir, TextfileName)
	if err := prometheus.WriteToTextfile(path, r.reg); err != nil {
		return "", fmt.Errorf("write metrics: %w", err)
	}
	return path, nil
}
