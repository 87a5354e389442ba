package app

import (
	"context"
	"fmt"
	"io"
	"log/slog"
	"os"
	"time"

	"github.com/robfig/cron/v3"

	"mp-daytype/internal/crawl"
	"mp-daytype/internal/model"
	"mp-daytype/internal/recorder"
	"mp-daytype/internal/report"
	"mp-daytype/internal/saver"
	"mp-daytype/internal/session"
)

func (a *App) crawlOptions(runID string) crawl.Options {
	cfg := a.Config
	return crawl.Options{
		RunID:        runID,
		Workers:      cfg.Workers,
		Classifier:   a.Classifier,
		Strict:       cfg.StrictSessions,
		DataDir:      cfg.DataDir,
		ProgressPath: cfg.ProgressPath(),
		YearsBack:    cfg.YearsBack,
		Recorder:     a.Recorder,
		Metrics:      a.Metrics,
	}
}

// RunFlow runs one fetch+classify+report cycle. With schedule set it keeps running,
// triggering a cycle on every SCHEDULE_CRON tick (exchange time) until ctx is done.
// A tick that arrives while a cycle is running and another is queued is skipped.
func RunFlow(ctx context.Context, a *App, schedule bool, out io.Writer) error {
	progressUpdates := make(chan crawl.ProgressUpdate, 256)
	progressDone := make(chan struct{})
	go func() {
		defer close(progressDone)
		crawl.RunProgressWriter(a.Config.ProgressPath(), progressUpdates)
	}()

	trigger := make(chan crawl.Cmd, 1)
	done := make(chan error, 1)
	cycleExit := make(chan struct{})
	go func() {
		defer close(cycleExit)
		for range trigger {
			err := a.runCycle(ctx, progressUpdates, out)
			select {
			case done <- err:
			case <-ctx.Done():
			}
		}
	}()
	defer func() {
		close(trigger)
		<-cycleExit
		close(progressUpdates)
		<-progressDone
	}()

	trigger <- crawl.Cmd{}
	if !schedule {
		return waitCycle(ctx, done)
	}

	c := cron.New(cron.WithSeconds(), cron.WithLocation(session.IST))
	if _, err := c.AddFunc(a.Config.ScheduleCron, func() {
		select {
		case trigger <- crawl.Cmd{}:
			slog.Info("scheduled run triggered")
		default:
			slog.Warn("previous run still in progress, skip tick")
		}
	}); err != nil {
		_ = waitCycle(ctx, done)
		return fmt.Errorf("schedule %q: %w", a.Config.ScheduleCron, err)
	}
	c.Start()
	slog.Info("scheduler started", "cron", a.Config.ScheduleCron, "next_run", nextRun(c))

	for {
		select {
		case err := <-done:
			if err != nil {
				slog.Error("run failed", "error", err)
			}
			slog.Info("done, wait until next run", "next_run", nextRun(c))
		case <-ctx.Done():
			slog.Info("shutdown, stopping scheduler")
			<-c.Stop().Done()
			return nil
		}
	}
}

// waitCycle returns the result of the running cycle, or ctx.Err() once ctx is done.
func waitCycle(ctx context.Context, done <-chan error) error {
	select {
	case err := <-done:
		return err
	case <-ctx.Done():
		return ctx.Err()
	}
}

func nextRun(c *cron.Cron) string {
	entries := c.Entries()
	if len(entries) == 0 {
		return ""
	}
	return entries[0].Next.Format("2006-01-02 15:04")
}

// runCycle runs one planned fetch and classification, then writes metrics and reports.
func (a *App) runCycle(ctx context.Context, progressUpdates chan<- crawl.ProgressUpdate, out io.Writer) error {
	runID := NewRunID()
	start := time.Now()
	slog.Info("run start", "run_id", runID, "provider", a.Provider.GetName(), "instruments", len(a.Instruments))
	sum, err := crawl.RunOnce(ctx, a.Provider, a.Instruments, a.crawlOptions(runID), progressUpdates, nil)
	if err != nil {
		return err
	}
	slog.Info("run done", "run_id", runID, "success", sum.Success, "failed", sum.Failed,
		"days", len(sum.Records), "took", time.Since(start).Round(time.Second))
	return a.finishCycle(ctx, sum.Records, out)
}

// finishCycle writes the metrics textfile and renders reports from the recorder, falling
// back to this run's records when the recorder holds none.
func (a *App) finishCycle(ctx context.Context, runRecords []model.DayRecord, out io.Writer) error {
	if path, err := a.Metrics.WriteTextfile(a.Config.DataDir); err != nil {
		slog.Warn("metrics not written", "error", err)
	} else {
		slog.Info("metrics saved", "path", path)
	}
	days, err := a.Recorder.LoadDays(ctx, "")
	if err != nil {
		slog.Warn("recorder load failed, reporting this run only", "error", err)
	}
	if len(days) == 0 {
		days = runRecords
	}
	return RenderReports(ctx, a.Config.ReportsDir, days, out)
}

// RunClassify classifies every instrument's saved packets over the configured window,
// ignoring progress, and writes the same outputs as a fetch run.
func RunClassify(ctx context.Context, a *App, out io.Writer) error {
	now := time.Now()
	jobs := crawl.PlanJobs(a.Instruments, nil, now, a.Config.YearsBack)
	opts := a.crawlOptions(NewRunID())
	sum := crawl.RunParallel(ctx, a.Provider, jobs, opts, nil)
	if err := crawl.Finish(ctx, &sum, opts, now); err != nil {
		return err
	}
	slog.Info("classify done", "days", len(sum.Records), "sessions", sum.Sessions, "skipped", sum.Skipped)
	return a.finishCycle(ctx, sum.Records, out)
}

// RunReport renders reports from the given stats CSVs, or from rec when none are given.
func RunReport(ctx context.Context, cfg *Config, rec recorder.Recorder, csvFiles []string, out io.Writer) error {
	var days []model.DayRecord
	if len(csvFiles) > 0 {
		for _, f := range csvFiles {
			recs, err := saver.ReadRecords(f)
			if err != nil {
				return err
			}
			days = append(days, recs...)
		}
	} else {
		var err error
		if days, err = rec.LoadDays(ctx, ""); err != nil {
			return err
		}
	}
	if len(days) == 0 {
		return fmt.Errorf("no classified days to report")
	}
	return RenderReports(ctx, cfg.ReportsDir, days, out)
}

// RenderReports prints the terminal heatmaps to out and writes SVG heatmaps to dir.
func RenderReports(ctx context.Context, dir string, days []model.DayRecord, out io.Writer) error {
	if len(days) == 0 {
		slog.Info("no days to report")
		return nil
	}
	if out == nil {
		out = os.Stdout
	}
	reports := report.Build(days)
	for _, r := range reports {
		for _, t := range []report.Table{r.Year, r.Month} {
			if err := report.RenderTerminal(out, t); err != nil {
				return err
			}
			fmt.Fprintln(out)
		}
	}
	paths, err := report.WriteAll(ctx, dir, reports)
	if err != nil {
		return err
	}
	slog.Info("heatmaps saved", "dir", dir, "files", len(paths))
	return nil
}
