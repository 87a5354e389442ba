package crawl

import (
	"context"
	"io"
	"log/slog"
	"os"
	"path/filepath"
	"sort"
	"sync"
	"time"

	"github.com/dustin/go-humanize"

	"mp-daytype/internal/daytype"
	"mp-daytype/internal/metrics"
	"mp-daytype/internal/model"
	"mp-daytype/internal/provider"
	"mp-daytype/internal/provider/kite"
	"mp-daytype/internal/recorder"
	"mp-daytype/internal/saver"
	"mp-daytype/internal/session"
	"mp-daytype/internal/slogx"
)

// Job represents one fetch unit (instrument + inclusive date range)
type Job struct {
	Instrument provider.Instrument
	From       time.Time
	To         time.Time
}

// DateRange formats the job window as from..to.
func (j Job) DateRange() string {
	return j.From.Format("2006-01-02") + ".." + j.To.Format("2006-01-02")
}

// JobResult is sent by workers for fan-in
type JobResult struct {
	Ok         bool
	Instrument string
	DateRange  string
	Reason     string
	Candles    int
	Outcome    Outcome
}

// Cmd triggers a run
type Cmd struct{}

// Done signals run completion
type Done struct{}

// PlanJobs returns one job per instrument that is behind: no progress means the full
// yearsBack window ending yesterday, progress means last date + 1 through yesterday.
// Windows holding only weekend dates are skipped. Dates are exchange-local.
func PlanJobs(instruments []provider.Instrument, progress map[string]string, now time.Time, yearsBack int) []Job {
	local := now.In(session.IST)
	today := time.Date(local.Year(), local.Month(), local.Day(), 0, 0, 0, 0, session.IST)
	yesterday := today.AddDate(0, 0, -1)

	var jobs []Job
	for _, inst := range instruments {
		from := today.AddDate(-yearsBack, 0, 0)
		if last, ok := progress[inst.Name]; ok {
			d, err := time.ParseInLocation("2006-01-02", last, session.IST)
			if err != nil {
				slog.Warn("bad progress date, refetching full window", "instrument", inst.Name, "date", last)
			} else {
				from = d.AddDate(0, 0, 1)
			}
		}
		if from.After(yesterday) || len(session.TradingDays(from, yesterday)) == 0 {
			continue
		}
		jobs = append(jobs, Job{Instrument: inst, From: from, To: yesterday})
	}
	return jobs
}

// Options configures one run.
type Options struct {
	RunID        string
	Workers      int
	Classifier   *daytype.Classifier
	Strict       bool   // abort a job on the first session without enough data
	DataDir      string // run report, progress and stats CSV
	ProgressPath string
	YearsBack    int
	Recorder     recorder.Recorder
	Metrics      *metrics.Recorder
	Heartbeat    time.Duration
	LogOutput    io.Writer // fan-in log sink, stdout when nil
}

// Summary is what one run produced.
type Summary struct {
	RunID       string
	Jobs        int
	Success     int
	Failed      int
	Sessions    int
	Skipped     int
	Records     []model.DayRecord
	SuccessList []string
	FailedList  []FailedEntry
	StatsPath   string
}

// RunOnce plans jobs from the progress file, runs them and writes the run outputs:
// run report, stats CSV and recorder rows. It sends on done when finished, if done is
// not nil.
func RunOnce(
	ctx context.Context,
	dp provider.DataProvider,
	instruments []provider.Instrument,
	opts Options,
	progressUpdates chan<- ProgressUpdate,
	done chan<- Done,
) (sum Summary, err error) {
	if done != nil {
		defer func() { done <- Done{} }()
	}
	now := time.Now()
	jobs := PlanJobs(instruments, LoadProgress(opts.ProgressPath), now, opts.YearsBack)
	if len(jobs) == 0 {
		slog.Info("no jobs to run, all instruments up to date")
		return Summary{RunID: opts.RunID}, nil
	}
	if skipped := len(instruments) - len(jobs); skipped > 0 {
		slog.Info("instruments up to date, jobs to run", "skipped", skipped, "jobs", len(jobs))
	} else {
		slog.Info("jobs to run", "jobs", len(jobs))
	}

	sum = RunParallel(ctx, dp, jobs, opts, progressUpdates)
	err = Finish(ctx, &sum, opts, now)
	return sum, err
}

// Finish writes the outputs of a finished run: run report, stats CSV named after now and
// recorder rows. It returns ctx.Err() when the run was cancelled.
func Finish(ctx context.Context, sum *Summary, opts Options, now time.Time) error {
	if len(sum.SuccessList) > 0 || len(sum.FailedList) > 0 {
		if err := writeRunReport(opts.DataDir, sum.SuccessList, sum.FailedList); err != nil {
			slog.Warn("could not write run report", "error", err)
		} else {
			slog.Info("run report saved", "success", len(sum.SuccessList), "failed", len(sum.FailedList))
		}
	}
	if len(sum.Records) == 0 {
		return ctx.Err()
	}

	sum.StatsPath = filepath.Join(opts.DataDir, saver.StatsFileName(now.In(session.IST)))
	if err := saver.WriteRecords(sum.StatsPath, sum.Records); err != nil {
		return err
	}
	slog.Info("stats saved", "path", sum.StatsPath, "days", humanize.Comma(int64(len(sum.Records))))

	if opts.Recorder != nil {
		// the run's records are written even if ctx was cancelled mid-run
		if err := opts.Recorder.RecordDays(context.WithoutCancel(ctx), opts.RunID, sum.Records); err != nil {
			return err
		}
	}
	return ctx.Err()
}

// logFuncSetter is implemented by providers that can route their logs to the fan-in.
type logFuncSetter interface {
	SetLogFunc(kite.LogFunc)
}

func runJobResultCollector(results <-chan JobResult, t *tally, sum *Summary, progressUpdates chan<- ProgressUpdate, logger *slog.Logger) {
	for r := range results {
		t.mu.Lock()
		t.sessions += r.Outcome.Sessions
		t.skipped += r.Outcome.Skipped
		if r.Ok {
			t.success++
			sum.SuccessList = appendSuccess(sum.SuccessList, r.Instrument)
			sum.Records = append(sum.Records, r.Outcome.Records...)
		} else {
			t.failed++
			sum.FailedList = append(sum.FailedList, FailedEntry{Instrument: r.Instrument, DateRange: r.DateRange, Reason: r.Reason})
		}
		t.mu.Unlock()

		if r.Ok && r.Outcome.LastDate != "" && progressUpdates != nil {
			select {
			case progressUpdates <- ProgressUpdate{Instrument: r.Instrument, Date: r.Outcome.LastDate}:
			default:
				logger.Warn("progress channel full, skip update", "instrument", r.Instrument)
			}
		}
	}
}

// RunParallel runs jobs on opts.Workers workers and collects their results.
func RunParallel(
	ctx context.Context,
	dp provider.DataProvider,
	jobs []Job,
	opts Options,
	progressUpdates chan<- ProgressUpdate,
) Summary {
	workers := opts.Workers
	if workers <= 0 {
		workers = 1
	}
	if workers > len(jobs) {
		workers = len(jobs)
	}
	heartbeat := opts.Heartbeat
	if heartbeat <= 0 {
		heartbeat = 30 * time.Second
	}
	out := opts.LogOutput
	if out == nil {
		out = os.Stdout
	}

	logs := make(chan string, 2048)
	logger := slogx.NewChanLogger(logs)
	errs := make(chan errorEntry, 64)
	var logWg sync.WaitGroup
	logWg.Add(1)
	go func() {
		defer logWg.Done()
		runLogWriter(out, logs)
	}()
	var errWg sync.WaitGroup
	errWg.Add(1)
	go func() {
		defer errWg.Done()
		runErrorHandler(errs, logger)
	}()

	hbCtx, cancel := context.WithCancel(ctx)
	defer cancel()

	if ls, ok := dp.(logFuncSetter); ok {
		ls.SetLogFunc(func(msg string) { logger.Info(msg) })
		defer ls.SetLogFunc(nil)
	}
	defer func() {
		close(errs)
		errWg.Wait()
		close(logs)
		logWg.Wait()
	}()

	pending := make(chan Job, len(jobs))
	for _, j := range jobs {
		pending <- j
	}
	close(pending)

	results := make(chan JobResult, len(jobs))
	sum := Summary{RunID: opts.RunID, Jobs: len(jobs)}
	var t tally
	var resWg sync.WaitGroup
	resWg.Add(1)
	go func() {
		defer resWg.Done()
		runJobResultCollector(results, &t, &sum, progressUpdates, logger)
	}()

	var hbWg sync.WaitGroup
	hbWg.Add(1)
	go func() {
		defer hbWg.Done()
		runHeartbeat(hbCtx, heartbeat, len(jobs), &t, logger)
	}()

	var wg sync.WaitGroup
	wg.Add(workers)
	for i := 0; i < workers; i++ {
		go func() {
			defer wg.Done()
			for {
				select {
				case <-ctx.Done():
					return
				case job, ok := <-pending:
					if !ok {
						return
					}
					results <- runJob(ctx, dp, job, opts, logger, errs)
				}
			}
		}()
	}
	wg.Wait()
	close(results)
	resWg.Wait()
	cancel()
	hbWg.Wait()

	sort.Slice(sum.Records, func(i, j int) bool {
		if sum.Records[i].Instrument != sum.Records[j].Instrument {
			return sum.Records[i].Instrument < sum.Records[j].Instrument
		}
		return sum.Records[i].Date < sum.Records[j].Date
	})
	sum.Success, sum.Failed, sum.Sessions, sum.Skipped = t.snapshot()

	logger.Info("summary", "days", humanize.Comma(int64(len(sum.Records))), "sessions", sum.Sessions,
		"skipped", sum.Skipped, "success", sum.Success, "failed", sum.Failed)
	counts := make(map[string]int)
	for _, r := range sum.Records {
		counts[r.Instrument]++
	}
	names := make([]string, 0, len(counts))
	for n := range counts {
		names = append(names, n)
	}
	sort.Strings(names)
	for _, n := range names {
		logger.Info("summary instrument", "instrument", n, "days", counts[n])
	}
	if len(sum.FailedList) > 0 {
		logger.Info("summary failed", "count", len(sum.FailedList), "reasons", joinFailedReasons(sum.FailedList))
	}
	return sum
}

func runJob(ctx context.Context, dp provider.DataProvider, job Job, opts Options, logger *slog.Logger, errs chan<- errorEntry) JobResult {
	name := job.Instrument.Name
	dateRange := job.DateRange()
	fail := func(err error) JobResult {
		logger.Error("job fail", "instrument", name, "date_range", dateRange, "reason", err.Error())
		select {
		case errs <- errorEntry{Instrument: name, Err: err}:
		default:
		}
		return JobResult{Ok: false, Instrument: name, DateRange: dateRange, Reason: err.Error()}
	}

	start := time.Now()
	candles, err := dp.FetchCandles(ctx, job.Instrument, job.From, job.To)
	if err != nil {
		return fail(err)
	}
	if len(candles) == 0 {
		// holidays and not-yet-published days return nothing; progress stays put
		logger.Info("job no data", "instrument", name, "date_range", dateRange)
		return JobResult{Ok: true, Instrument: name, DateRange: dateRange}
	}

	outcome, err := ClassifyCandles(name, candles, opts.Classifier, opts.Strict, opts.Metrics)
	if err != nil {
		return fail(err)
	}
	logger.Info("job ok", "instrument", name, "date_range", dateRange,
		"candles", humanize.Comma(int64(len(candles))), "days", len(outcome.Records),
		"skipped", outcome.Skipped, "took", time.Since(start).Round(time.Millisecond))
	return JobResult{Ok: true, Instrument: name, DateRange: dateRange, Candles: len(candles), Outcome: outcome}
}
