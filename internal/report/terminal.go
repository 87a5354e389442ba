package report

import (
	"fmt"
	"io"
	"strings"

	"github.com/charmbracelet/lipgloss"
)

const (
	rowHeaderWidth = 7
	cellWidth      = 18
)

// RenderTerminal writes t as a colored grid. Colors degrade to plain text when w is not
// a terminal.
func RenderTerminal(w io.Writer, t Table) error {
	r := lipgloss.NewRenderer(w)
	title := r.NewStyle().
		Bold(true).
		Foreground(lipgloss.Color("#7C3AED")).
		Padding(0, 1)
	header := r.NewStyle().
		Bold(true).
		Foreground(lipgloss.Color("#3B82F6")).
		Width(cellWidth).
		Align(lipgloss.Center)
	rowHeader := r.NewStyle().
		Bold(true).
		Width(rowHeaderWidth)

	var b strings.Builder
	b.WriteString(title.Render(fmt.Sprintf("%s %s x Day Type (%%)", t.Instrument, axisTitle(t.Axis))))
	b.WriteString("\n")

	cells := []string{rowHeader.Render(axisTitle(t.Axis))}
	for _, c := range t.Columns {
		cells = append(cells, header.Render(c))
	}
	b.WriteString(lipgloss.JoinHorizontal(lipgloss.Top, cells...))
	b.WriteString("\n")

	max := t.Max()
	for i, row := range t.Rows {
		cells = cells[:0]
		cells = append(cells, rowHeader.Render(row))
		for _, v := range t.Pct[i] {
			bg, fg := fill(v, max)
			cells = append(cells, r.NewStyle().
				Width(cellWidth).
				Align(lipgloss.Center).
				Background(lipgloss.Color(bg)).
				Foreground(lipgloss.Color(fg)).
				Render(v.StringFixed(1)))
		}
		b.WriteString(lipgloss.JoinHorizontal(lipgloss.Top, cells...))
		b.WriteString("\n")
	}
	_, err := io.WriteString(w, b.String())
	return err
}
