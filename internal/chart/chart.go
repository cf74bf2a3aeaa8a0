// Package chart provides ASCII terminal charts for five-element tallies.
// Two renderers are available:
//
//   - Elements: one bar per element for a single reading, with the strongest
//     and weakest elements marked
//   - Bar: generic labelled horizontal bars, used for totals across records
//
// Labels are measured in display cells so CJK names line up.
package chart

import (
	"fmt"
	"io"
	"math"
	"os"
	"strconv"
	"strings"

	"github.com/mattn/go-runewidth"

	"github.com/derickschaefer/bazi/internal/model"
)

// BarOptions controls horizontal bar chart rendering.
type BarOptions struct {
	// Width is the total character width available for the chart.
	// If 0, auto-detects from $COLUMNS, falls back to 80.
	Width int
	// Scale fixes the value that maps to a full-width bar. If 0, the
	// largest value is used.
	Scale int
}

// Row is one labelled bar.
type Row struct {
	Label  string
	Value  int
	Marker string
}

// ─── Bar ─────────────────────────────────────────────────────────────────────

// Bar renders rows as horizontal bars under title. Zero values draw no
// block; any positive value draws at least one.
//
// Output example:
//
//	五行  total 8
//	木  1  ████
//	火  2  ████████  ▲
func Bar(w io.Writer, title string, rows []Row, opts BarOptions) error {
	if len(rows) == 0 {
		return fmt.Errorf("chart bar: no rows to render")
	}
	totalWidth := opts.Width
	if totalWidth <= 0 {
		totalWidth = termWidth()
	}

	labelWidth, valWidth, markWidth := 0, 0, 0
	maxVal := opts.Scale
	for _, r := range rows {
		if r.Value < 0 {
			return fmt.Errorf("chart bar: negative value %d for %q", r.Value, r.Label)
		}
		labelWidth = max(labelWidth, runewidth.StringWidth(r.Label))
		valWidth = max(valWidth, len(strconv.Itoa(r.Value)))
		markWidth = max(markWidth, runewidth.StringWidth(r.Marker))
		if opts.Scale <= 0 {
			maxVal = max(maxVal, r.Value)
		}
	}

	// label, value, bar and optional marker separated by two spaces each
	barAreaWidth := totalWidth - labelWidth - valWidth - 4
	if markWidth > 0 {
		barAreaWidth -= markWidth + 2
	}
	if barAreaWidth < 4 {
		barAreaWidth = 4
	}

	if title != "" {
		fmt.Fprintln(w, title)
	}
	for _, r := range rows {
		bar := strings.Repeat("█", barLen(r.Value, maxVal, barAreaWidth))
		line := fmt.Sprintf("%s  %*d  %s",
			runewidth.FillRight(r.Label, labelWidth),
			valWidth, r.Value,
			runewidth.FillRight(bar, barAreaWidth),
		)
		if r.Marker != "" {
			line += "  " + r.Marker
		}
		fmt.Fprintln(w, strings.TrimRight(line, " "))
	}
	return nil
}

func barLen(v, maxVal, width int) int {
	if v <= 0 || maxVal <= 0 {
		return 0
	}
	n := int(math.Round(float64(v) / float64(maxVal) * float64(width)))
	if n < 1 {
		n = 1
	}
	if n > width {
		n = width
	}
	return n
}

// ─── Elements ────────────────────────────────────────────────────────────────

// Elements renders the five-element tally of a reading in the fixed
// 木 火 土 金 水 order. Absent elements count as 0. The strongest element
// is marked ▲ and the weakest ▼ when the analysis names them.
func Elements(w io.Writer, wa *model.WuxingAnalysis, opts BarOptions) error {
	if wa == nil {
		return fmt.Errorf("chart elements: no wuxing analysis")
	}
	rows := make([]Row, 0, len(model.Elements))
	total := 0
	for _, el := range model.Elements {
		n := wa.Count[el]
		total += n
		r := Row{Label: el, Value: n}
		switch el {
		case wa.Strongest:
			r.Marker = "▲"
		case wa.Weakest:
			r.Marker = "▼"
		}
		rows = append(rows, r)
	}
	if wa.Total > 0 {
		total = wa.Total
	}
	return Bar(w, fmt.Sprintf("五行  total %d", total), rows, opts)
}

// Totals sums element counts across several analyses in the fixed element
// order. Nil analyses are skipped.
func Totals(analyses []*model.WuxingAnalysis) []Row {
	rows := make([]Row, len(model.Elements))
	for i, el := range model.Elements {
		rows[i].Label = el
		for _, wa := range analyses {
			if wa != nil {
				rows[i].Value += wa.Count[el]
			}
		}
	}
	return rows
}

// ─── Utilities ────────────────────────────────────────────────────────────────

// termWidth returns the terminal width from $COLUMNS, defaulting to 80.
func termWidth() int {
	if cols := os.Getenv("COLUMNS"); cols != "" {
		if n, err := strconv.Atoi(cols); err == nil && n > 20 {
			return n
		}
	}
	return 80
}
