package crawl

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"os"
	"path/filepath"
	"testing"
	"time"

	"mp-daytype/internal/daytype"
	"mp-daytype/internal/metrics"
	"mp-daytype/internal/model"
	"mp-daytype/internal/provider"
	"mp-daytype/internal/recorder"
	"mp-daytype/internal/saver"
	"mp-daytype/internal/session"
)

func at(day time.Time, hhmm string) int64 {
	return session.NSE().At(day, session.MustClock(hhmm)).UnixMilli()
}

// trendDay: IB 100..110, then a one-sided run to 130.
func trendDay(day time.Time) []model.Candle {
	return []model.Candle{
		{Timestamp: at(day, "09:15"), Open: 105, High: 110, Low: 100, Close: 108},
		{Timestamp: at(day, "10:15"), Open: 108, High: 120, Low: 107, Close: 119},
		{Timestamp: at(day, "14:00"), Open: 119, High: 130, Low: 118, Close: 129},
	}
}

// ibOnlyDay has no candles after the IB window.
func ibOnlyDay(day time.Time) []model.Candle {
	return trendDay(day)[:1]
}

type fakeProvider struct {
	days map[string]func(time.Time) []model.Candle
	err  map[string]error
}

func (f *fakeProvider) GetName() string { return "fake" }
func (f *fakeProvider) Close() error    { return nil }

func (f *fakeProvider) FetchCandles(ctx context.Context, inst provider.Instrument, from, to time.Time) ([]model.Candle, error) {
	if err := f.err[inst.Name]; err != nil {
		return nil, err
	}
	gen, ok := f.days[inst.Name]
	if !ok {
		return nil, nil
	}
	var out []model.Candle
	for _, d := range session.TradingDays(from, to) {
		out = append(out, gen(d)...)
	}
	return out, nil
}

func newClassifier(t *testing.T) *daytype.Classifier {
	t.Helper()
	c, err := daytype.NewClassifier(daytype.DefaultThresholds(), session.NSE())
	if err != nil {
		t.Fatal(err)
	}
	return c
}

func TestPlanJobs(t *testing.T) {
	insts := []provider.Instrument{{Name: "A", Token: "1"}, {Name: "B", Token: "2"}, {Name: "C", Token: "3"}}
	now := time.Date(2024, 3, 8, 3, 0, 0, 0, time.UTC) // 08:30 IST
	progress := map[string]string{
		"B": "2024-03-05",
		"C": "2024-03-07",
	}
	jobs := PlanJobs(insts, progress, now, 10)
	if len(jobs) != 2 {
		t.Fatalf("want 2 jobs, got %+v", jobs)
	}
	if jobs[0].Instrument.Name != "A" || jobs[0].DateRange() != "2014-03-08..2024-03-07" {
		t.Fatalf("full window job wrong: %s %s", jobs[0].Instrument.Name, jobs[0].DateRange())
	}
	if jobs[1].Instrument.Name != "B" || jobs[1].DateRange() != "2024-03-06..2024-03-07" {
		t.Fatalf("gap job wrong: %s %s", jobs[1].Instrument.Name, jobs[1].DateRange())
	}
}

func TestPlanJobsSkipsWeekendOnlyGap(t *testing.T) {
	insts := []provider.Instrument{{Name: "A", Token: "1"}, {Name: "B", Token: "2"}}
	now := time.Date(2024, 3, 11, 3, 0, 0, 0, time.UTC) // Monday 08:30 IST
	progress := map[string]string{
		"A": "2024-03-08", // Friday: only Sat and Sun remain
		"B": "2024-03-07",
	}
	jobs := PlanJobs(insts, progress, now, 10)
	if len(jobs) != 1 || jobs[0].Instrument.Name != "B" {
		t.Fatalf("want only B, got %+v", jobs)
	}
	if jobs[0].DateRange() != "2024-03-08..2024-03-10" {
		t.Fatalf("gap job wrong: %s", jobs[0].DateRange())
	}
}

func TestClassifyCandlesSkipsInsufficientUnlessStrict(t *testing.T) {
	c := newClassifier(t)
	mon := time.Date(2024, 3, 4, 0, 0, 0, 0, session.IST)
	candles := append(trendDay(mon), ibOnlyDay(mon.AddDate(0, 0, 1))...)
	candles = append(candles, trendDay(mon.AddDate(0, 0, 2))...)

	mr := metrics.New()
	out, err := ClassifyCandles("NIFTY_50", candles, c, false, mr)
	if err != nil {
		t.Fatalf("lenient: %v", err)
	}
	if out.Sessions != 3 || out.Skipped != 1 || len(out.Records) != 2 || out.LastDate != "2024-03-06" {
		t.Fatalf("unexpected outcome %+v", out)
	}
	if out.Records[0].DayType != "Trend" || out.Records[0].Extension != "up" || out.Records[0].RangeRatio != 3 {
		t.Fatalf("unexpected record %+v", out.Records[0])
	}

	_, err = ClassifyCandles("NIFTY_50", candles, c, true, nil)
	if !errors.Is(err, daytype.ErrDataInsufficient) {
		t.Fatalf("strict: want ErrDataInsufficient, got %v", err)
	}
}

func TestRunOnceWritesOutputs(t *testing.T) {
	dir := t.TempDir()
	progressPath := filepath.Join(dir, ProgressFileName)
	yesterday := time.Now().In(session.IST).AddDate(0, 0, -1)
	// start a week back so the gap job has trading days in it
	if err := os.WriteFile(progressPath, []byte(`{"NIFTY_50":"`+yesterday.AddDate(0, 0, -8).Format("2006-01-02")+`"}`), 0644); err != nil {
		t.Fatal(err)
	}

	dp := &fakeProvider{
		days: map[string]func(time.Time) []model.Candle{"NIFTY_50": trendDay},
		err:  map[string]error{"NIFTY_BANK": errors.New("kite status 403: token expired")},
	}
	rec, err := recorder.NewSQLiteRecorder(filepath.Join(dir, "mp.db"))
	if err != nil {
		t.Fatal(err)
	}
	defer rec.Close()

	updates := make(chan ProgressUpdate, 8)
	done := make(chan Done, 1)
	var logs bytes.Buffer
	sum, err := RunOnce(context.Background(), dp, provider.DefaultInstruments(), Options{
		RunID:        "run-test",
		Workers:      2,
		Classifier:   newClassifier(t),
		DataDir:      dir,
		ProgressPath: progressPath,
		YearsBack:    1,
		Recorder:     rec,
		Metrics:      metrics.New(),
		LogOutput:    &logs,
	}, updates, done)
	if err != nil {
		t.Fatalf("RunOnce: %v", err)
	}
	select {
	case <-done:
	default:
		t.Fatalf("done not signalled")
	}

	if sum.Success != 1 || sum.Failed != 1 || len(sum.FailedList) != 1 || sum.FailedList[0].Instrument != "NIFTY_BANK" {
		t.Fatalf("unexpected summary %+v", sum)
	}
	if len(sum.Records) == 0 || len(sum.Records) > 6 {
		t.Fatalf("want the gap's trading days, got %d records", len(sum.Records))
	}

	stats, err := saver.ReadRecords(sum.StatsPath)
	if err != nil {
		t.Fatal(err)
	}
	if len(stats) != len(sum.Records) {
		t.Fatalf("stats has %d rows, want %d", len(stats), len(sum.Records))
	}
	stored, err := rec.LoadDays(context.Background(), "NIFTY_50")
	if err != nil || len(stored) != len(sum.Records) {
		t.Fatalf("recorder has %d rows (%v), want %d", len(stored), err, len(sum.Records))
	}

	var failed []FailedEntry
	b, err := os.ReadFile(filepath.Join(dir, ".lastrun.failed.json"))
	if err != nil {
		t.Fatal(err)
	}
	if err := json.Unmarshal(b, &failed); err != nil || failed[0].Reason == "" {
		t.Fatalf("bad failed report %s", b)
	}

	select {
	case u := <-updates:
		if u.Instrument != "NIFTY_50" || u.Date != sum.Records[len(sum.Records)-1].Date {
			t.Fatalf("unexpected progress update %+v", u)
		}
	default:
		t.Fatalf("no progress update sent")
	}
	if !bytes.Contains(logs.Bytes(), []byte("job fail")) {
		t.Fatalf("fan-in log missing failure line:\n%s", logs.String())
	}
}

func TestRunOnceNothingToDo(t *testing.T) {
	dir := t.TempDir()
	progressPath := filepath.Join(dir, ProgressFileName)
	yesterday := time.Now().In(session.IST).AddDate(0, 0, -1).Format("2006-01-02")
	if err := os.WriteFile(progressPath, []byte(`{"NIFTY_50":"`+yesterday+`","NIFTY_BANK":"`+yesterday+`"}`), 0644); err != nil {
		t.Fatal(err)
	}
	sum, err := RunOnce(context.Background(), &fakeProvider{}, provider.DefaultInstruments(), Options{
		ProgressPath: progressPath,
		DataDir:      dir,
		YearsBack:    1,
		Classifier:   newClassifier(t),
	}, nil, nil)
	if err != nil || sum.Jobs != 0 {
		t.Fatalf("want empty run, got %+v %v", sum, err)
	}
}

func TestRunProgressWriterOnlyMovesForward(t *testing.T) {
	path := filepath.Join(t.TempDir(), "sub", ProgressFileName)
	updates := make(chan ProgressUpdate, 3)
	updates <- ProgressUpdate{Instrument: "NIFTY_50", Date: "2024-03-05"}
	updates <- ProgressUpdate{Instrument: "NIFTY_50", Date: "2024-03-01"}
	updates <- ProgressUpdate{Instrument: "NIFTY_BANK", Date: "2024-03-04"}
	close(updates)
	RunProgressWriter(path, updates)

	m := LoadProgress(path)
	if m["NIFTY_50"] != "2024-03-05" || m["NIFTY_BANK"] != "2024-03-04" {
		t.Fatalf("unexpected progress %v", m)
	}
}

func TestJoinFailedReasonsTruncates(t *testing.T) {
	var list []FailedEntry
	for i := 0; i < 8; i++ {
		list = append(list, FailedEntry{Instrument: "X", Reason: "boom"})
	}
	got := joinFailedReasons(list)
	if !bytes.Contains([]byte(got), []byte("(+3 more)")) {
		t.Fatalf("unexpected %q", got)
	}
}
