// Package report renders CLI-facing tables and status labels.
package report

import (
	"fmt"
	"strings"

	"github.com/gookit/color"
	"github.com/mattn/go-runewidth"
)

// Table accumulates rows and renders them with aligned columns. Alignment
// uses display width, not byte length, so wide characters in catalog or
// owner names don't break the layout.
type Table struct {
	headers []string
	rows    [][]string
}

// NewTable creates a table with the given column headers.
func NewTable(headers ...string) *Table {
	return &Table{headers: headers}
}

// AddRow appends one row. Missing cells render empty; extra cells are
// dropped.
func (t *Table) AddRow(cells ...string) {
	row := make([]string, len(t.headers))
	for i := range row {
		if i < len(cells) {
			row[i] = cells[i]
		}
	}
	t.rows = append(t.rows, row)
}

// Len returns the number of data rows.
func (t *Table) Len() int {
	return len(t.rows)
}

// Render returns the table as plain text with a dashed header rule.
func (t *Table) Render() string {
	widths := make([]int, len(t.headers))
	for i, h := range t.headers {
		widths[i] = runewidth.StringWidth(h)
	}
	for _, row := range t.rows {
		for i, cell := range row {
			if w := runewidth.StringWidth(cell); w > widths[i] {
				widths[i] = w
			}
		}
	}

	var sb strings.Builder
	writeRow := func(cells []string) {
		for i, cell := range cells {
			if i > 0 {
				sb.WriteString("  ")
			}
			sb.WriteString(cell)
			// No trailing padding on the last column.
			if i < len(cells)-1 {
				sb.WriteString(strings.Repeat(" ", widths[i]-runewidth.StringWidth(cell)))
			}
		}
		sb.WriteString("\n")
	}

	writeRow(t.headers)
	rule := make([]string, len(t.headers))
	for i, w := range widths {
		rule[i] = strings.Repeat("-", w)
	}
	writeRow(rule)
	for _, row := range t.rows {
		writeRow(row)
	}
	return sb.String()
}

// FreshnessLabel colorizes a freshness status for terminal output.
func FreshnessLabel(status string) string {
	switch status {
	case "FRESH":
		return color.Green.Sprint(status)
	case "ACCEPTABLE":
		return color.Yellow.Sprint(status)
	case "STALE", "NEVER_SYNCED":
		return color.Red.Sprint(status)
	default:
		return status
	}
}

// RiskLabel colorizes a PII risk level for terminal output.
func RiskLabel(level string) string {
	switch level {
	case "HIGH":
		return color.Red.Sprint(level)
	case "MEDIUM":
		return color.Yellow.Sprint(level)
	case "LOW", "NONE":
		return color.Green.Sprint(level)
	default:
		return level
	}
}

// ScoreLabel colorizes a 0-100 compliance score.
func ScoreLabel(score float64) string {
	text := fmt.Sprintf("%.1f", score)
	switch {
	case score >= 80:
		return color.Green.Sprint(text)
	case score >= 50:
		return color.Yellow.Sprint(text)
	default:
		return color.Red.Sprint(text)
	}
}
