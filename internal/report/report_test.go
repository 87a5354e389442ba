package report

import (
	"bytes"
	"context"
	"encoding/xml"
	"errors"
	"io"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/shopspring/decimal"

	"mp-daytype/internal/model"
)

func rec(inst, date, dt string) model.DayRecord {
	return model.DayRecord{Instrument: inst, Date: date, DayType: dt}
}

func sampleRecords() []model.DayRecord {
	return []model.DayRecord{
		rec("NIFTY_50", "2023-01-02", "Trend"),
		rec("NIFTY_50", "2023-01-03", "Neutral Center"),
		rec("NIFTY_50", "2023-02-01", "Normal Variation Day"),
		rec("NIFTY_50", "2024-01-02", "Trend"),
		rec("NIFTY_50", "2024-01-03", "Non-trend"),
		rec("NIFTY_50", "2024-01-04", "Non-trend"),
		rec("NIFTY_BANK", "2024-01-02", "Neutral Extreme"),
		rec("NIFTY_BANK", "2024-01-03", "bogus"),
	}
}

func TestBuildTables(t *testing.T) {
	reports := Build(sampleRecords())
	if len(reports) != 2 || reports[0].Instrument != "NIFTY_50" || reports[1].Instrument != "NIFTY_BANK" {
		t.Fatalf("unexpected instruments %+v", reports)
	}
	year := reports[0].Year
	if strings.Join(year.Rows, ",") != "2023,2024" {
		t.Fatalf("year rows %v", year.Rows)
	}
	want := []string{"Non-trend", "Normal", "Normal Variation", "Neutral Center", "Neutral Extreme", "Trend"}
	if strings.Join(year.Columns, "|") != strings.Join(want, "|") {
		t.Fatalf("columns %v", year.Columns)
	}
	// 2023: Trend, Neutral Center, Normal Variation -> 33.3 each
	if got := year.Pct[0][5].StringFixed(1); got != "33.3" {
		t.Fatalf("2023 Trend = %s", got)
	}
	// 2024: Non-trend 2/3, Trend 1/3
	if got := year.Pct[1][0].StringFixed(1); got != "66.7" {
		t.Fatalf("2024 Non-trend = %s", got)
	}
	if !year.Pct[1][1].IsZero() {
		t.Fatalf("missing cell should be 0, got %s", year.Pct[1][1])
	}

	month := reports[0].Month
	if strings.Join(month.Rows, ",") != "01,02" {
		t.Fatalf("month rows %v", month.Rows)
	}
	if month.Counts[0][5] != 2 {
		t.Fatalf("January Trend count %d, want 2", month.Counts[0][5])
	}

	bank := reports[1].Year
	if len(bank.Rows) != 1 || bank.Counts[0][4] != 1 || !bank.Pct[0][4].Equal(decimal.NewFromInt(100)) {
		t.Fatalf("unparseable day type should be skipped: %+v", bank)
	}
}

func TestRowsSumToHundred(t *testing.T) {
	for _, r := range Build(sampleRecords()) {
		for _, table := range []Table{r.Year, r.Month} {
			for i, row := range table.Pct {
				sum := decimal.Zero
				for _, v := range row {
					sum = sum.Add(v)
				}
				diff := sum.Sub(decimal.NewFromInt(100)).Abs()
				if diff.GreaterThan(decimal.NewFromFloat(0.3)) {
					t.Fatalf("%s %s row %s sums to %s", r.Instrument, table.Axis, table.Rows[i], sum)
				}
			}
		}
	}
}

func TestRenderTerminal(t *testing.T) {
	var buf bytes.Buffer
	if err := RenderTerminal(&buf, Build(sampleRecords())[0].Year); err != nil {
		t.Fatal(err)
	}
	out := buf.String()
	for _, want := range []string{"NIFTY_50 Year x Day Type", "Neutral Extreme", "2024", "66.7"} {
		if !strings.Contains(out, want) {
			t.Fatalf("output missing %q:\n%s", want, out)
		}
	}
}

func TestWriteAll(t *testing.T) {
	dir := filepath.Join(t.TempDir(), "reports")
	paths, err := WriteAll(context.Background(), dir, Build(sampleRecords()))
	if err != nil {
		t.Fatal(err)
	}
	want := []string{
		"nifty_50_year_daytype_heatmap.svg",
		"nifty_50_month_daytype_heatmap.svg",
		"nifty_bank_year_daytype_heatmap.svg",
		"nifty_bank_month_daytype_heatmap.svg",
	}
	if len(paths) != len(want) {
		t.Fatalf("want %d files, got %v", len(want), paths)
	}
	for i, p := range paths {
		if filepath.Base(p) != want[i] {
			t.Fatalf("file %d = %s, want %s", i, filepath.Base(p), want[i])
		}
	}
	b, err := os.ReadFile(paths[0])
	if err != nil {
		t.Fatal(err)
	}
	svg := string(b)
	if !strings.HasPrefix(svg, "<?xml") || !strings.Contains(svg, "</svg>") || !strings.Contains(svg, ">66.7<") {
		t.Fatalf("unexpected svg:\n%s", svg)
	}
	if strings.Count(svg, "<rect") != 1+2*6 {
		t.Fatalf("want background plus 12 cells, got %d rects", strings.Count(svg, "<rect"))
	}
}

func TestRenderSVGEscapesNames(t *testing.T) {
	reports := Build([]model.DayRecord{
		rec("M&M", "2024-01-02", "Trend"),
		rec("M&M", "2024-01-03", "Non-trend"),
	})
	for _, tbl := range []Table{reports[0].Year, reports[0].Month} {
		b, err := RenderSVG(tbl)
		if err != nil {
			t.Fatal(err)
		}
		dec := xml.NewDecoder(bytes.NewReader(b))
		var text strings.Builder
		for {
			tok, err := dec.Token()
			if errors.Is(err, io.EOF) {
				break
			}
			if err != nil {
				t.Fatalf("%s svg is not well-formed: %v\n%s", tbl.Axis, err, b)
			}
			if cd, ok := tok.(xml.CharData); ok {
				text.Write(cd)
			}
		}
		if !strings.Contains(text.String(), "M&M - ") {
			t.Fatalf("%s svg lost the instrument name:\n%s", tbl.Axis, b)
		}
	}
}

func TestShade(t *testing.T) {
	max := decimal.NewFromInt(80)
	if shade(decimal.Zero, max) != 0 || shade(max, max) != len(ylGnBu)-1 {
		t.Fatalf("shade endpoints wrong")
	}
	if shade(decimal.NewFromInt(10), decimal.Zero) != 0 {
		t.Fatalf("zero max should map to lightest")
	}
}
