package report

import (
	"strings"
	"testing"

	"github.com/mattn/go-runewidth"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestTable_RenderAlignsColumns(t *testing.T) {
	table := NewTable("CATALOG", "TABLES")
	table.AddRow("main", "120")
	table.AddRow("analytics_platform", "7")

	out := table.Render()
	lines := strings.Split(strings.TrimRight(out, "\n"), "\n")
	require.Len(t, lines, 4) // header, rule, two rows

	assert.True(t, strings.HasPrefix(lines[0], "CATALOG"))
	assert.True(t, strings.HasPrefix(lines[1], "-------"))

	// Number column starts at the same offset in every row.
	idx := strings.Index(lines[2], "120")
	assert.Equal(t, idx, strings.Index(lines[3], "7"))
}

func TestTable_MissingAndExtraCells(t *testing.T) {
	table := NewTable("A", "B")
	table.AddRow("only")
	table.AddRow("x", "y", "dropped")

	out := table.Render()
	assert.Contains(t, out, "only")
	assert.Contains(t, out, "y")
	assert.NotContains(t, out, "dropped")
	assert.Equal(t, 2, table.Len())
}

func TestTable_WideCharactersAlign(t *testing.T) {
	table := NewTable("OWNER", "N")
	table.AddRow("山田太郎", "1")
	table.AddRow("alice", "2")

	out := table.Render()
	lines := strings.Split(strings.TrimRight(out, "\n"), "\n")

	// Alignment is by display width, not byte offset.
	col := func(line, cell string) int {
		return runewidth.StringWidth(line[:strings.Index(line, cell)])
	}
	assert.Equal(t, col(lines[2], "1"), col(lines[3], "2"))
}

func TestFreshnessLabel(t *testing.T) {
	// Labels always contain the raw status regardless of color codes.
	for _, status := range []string{"FRESH", "ACCEPTABLE", "STALE", "NEVER_SYNCED", "UNKNOWN"} {
		assert.Contains(t, FreshnessLabel(status), status)
	}
}

func TestRiskLabel(t *testing.T) {
	for _, level := range []string{"HIGH", "MEDIUM", "LOW", "NONE", "OTHER"} {
		assert.Contains(t, RiskLabel(level), level)
	}
}

func TestScoreLabel(t *testing.T) {
	assert.Contains(t, ScoreLabel(92.35), "92.3")
	assert.Contains(t, ScoreLabel(55.0), "55.0")
	assert.Contains(t, ScoreLabel(12.5), "12.5")
}
