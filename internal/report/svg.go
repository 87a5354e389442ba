package report

import (
	"bytes"
	"context"
	"embed"
	"encoding/xml"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"text/template"

	"golang.org/x/sync/errgroup"
)

//go:embed templates/heatmap.svg.tmpl
var templatesFS embed.FS

var heatmapTmpl = template.Must(template.New("heatmap.svg.tmpl").
	Funcs(template.FuncMap{
		"half": func(v int) int { return v / 2 },
		"xml":  xmlText,
	}).
	ParseFS(templatesFS, "templates/heatmap.svg.tmpl"))

// xmlText escapes s for use as SVG text content or attribute value.
func xmlText(s string) (string, error) {
	var b strings.Builder
	if err := xml.EscapeText(&b, []byte(s)); err != nil {
		return "", err
	}
	return b.String(), nil
}

const (
	svgMarginLeft = 80
	svgMarginTop  = 60
	svgCellW      = 120
	svgCellH      = 28
	svgBottom     = 50
)

type svgLabel struct {
	X, Y  int
	Label string
}

type svgCell struct {
	X, Y, W, H int
	TX, TY     int
	Fill, Text string
	Value      string
}

type svgRow struct {
	X, Y  int
	Label string
	Cells []svgCell
}

type svgView struct {
	Title         string
	Axis          string
	Width, Height int
	XLabelY       int
	Columns       []svgLabel
	Rows          []svgRow
}

func newSVGView(t Table) svgView {
	v := svgView{
		Title:  fmt.Sprintf("%s - %s x Day Type (%%)", t.Instrument, axisTitle(t.Axis)),
		Axis:   axisTitle(t.Axis),
		Width:  svgMarginLeft + len(t.Columns)*svgCellW + 20,
		Height: svgMarginTop + len(t.Rows)*svgCellH + svgBottom,
	}
	v.XLabelY = v.Height - 16
	for j, c := range t.Columns {
		v.Columns = append(v.Columns, svgLabel{X: svgMarginLeft + j*svgCellW + svgCellW/2, Y: svgMarginTop - 8, Label: c})
	}
	max := t.Max()
	for i, name := range t.Rows {
		y := svgMarginTop + i*svgCellH
		row := svgRow{X: svgMarginLeft - 8, Y: y + svgCellH/2, Label: name}
		for j, p := range t.Pct[i] {
			bg, fg := fill(p, max)
			x := svgMarginLeft + j*svgCellW
			row.Cells = append(row.Cells, svgCell{
				X: x, Y: y, W: svgCellW, H: svgCellH,
				TX: x + svgCellW/2, TY: y + svgCellH/2,
				Fill: bg, Text: fg, Value: p.StringFixed(1),
			})
		}
		v.Rows = append(v.Rows, row)
	}
	return v
}

// RenderSVG renders t as an SVG heatmap.
func RenderSVG(t Table) ([]byte, error) {
	var buf bytes.Buffer
	if err := heatmapTmpl.Execute(&buf, newSVGView(t)); err != nil {
		return nil, fmt.Errorf("render %s %s heatmap: %w", t.Instrument, t.Axis, err)
	}
	return buf.Bytes(), nil
}

// HeatmapFileName returns {instrument}_{axis}_daytype_heatmap.svg, lower-cased.
func HeatmapFileName(instrument string, axis Axis) string {
	return fmt.Sprintf("%s_%s_daytype_heatmap.svg", strings.ToLower(instrument), axis)
}

// WriteSVG renders t and writes it to path, creating the parent directory.
func WriteSVG(path string, t Table) error {
	b, err := RenderSVG(t)
	if err != nil {
		return err
	}
	if err := os.MkdirAll(filepath.Dir(path), 0755); err != nil {
		return err
	}
	return os.WriteFile(path, b, 0644)
}

// WriteAll writes both heatmaps of every report into dir concurrently and returns the
// written paths in report order.
func WriteAll(ctx context.Context, dir string, reports []InstrumentReport) ([]string, error) {
	paths := make([]string, 2*len(reports))
	g, ctx := errgroup.WithContext(ctx)
	for i, rep := range reports {
		for k, t := range []Table{rep.Year, rep.Month} {
			slot, t := 2*i+k, t
			g.Go(func() error {
				if err := ctx.Err(); err != nil {
					return err
				}
				p := filepath.Join(dir, HeatmapFileName(t.Instrument, t.Axis))
				if err := WriteSVG(p, t); err != nil {
					return err
				}
				paths[slot] = p
				return nil
			})
		}
	}
	if err := g.Wait(); err != nil {
		return nil, err
	}
	return paths, nil
}
