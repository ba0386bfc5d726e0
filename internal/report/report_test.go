package report

import (
	"context"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/xuri/excelize/v2"

	"panelscore/domain/agreement"
	"panelscore/internal/analysis"
	"panelscore/internal/parse"
	"panelscore/internal/testkit"
	"panelscore/models"
)

func syntheticAnalysis(t *testing.T) (*agreement.FullAnalysis, []*models.CallRecord) {
	t.Helper()
	gen := testkit.NewGenerator(testkit.DefaultConfig())
	responses := gen.Batch()

	results, err := parse.Batch(context.Background(), responses)
	require.NoError(t, err)

	records := make([]*models.CallRecord, len(responses))
	for i, r := range responses {
		records[i] = &models.CallRecord{
			RunID:        r.RunID,
			PanelID:      r.PanelID,
			RaterID:      r.Envelope.RaterID,
			Trial:        r.Envelope.Trial,
			Temperature:  r.Envelope.Temperature,
			InputTokens:  1000,
			OutputTokens: 500,
			CostUSD:      0.01,
			RawText:      r.RawText,
		}
	}
	return analysis.Analyze(results, models.Panels), records
}

// TestWriteAll verifies every artifact lands in the output directory
func TestWriteAll(t *testing.T) {
	full, records := syntheticAnalysis(t)
	dir := t.TempDir()

	reporter := NewReporter(dir, nil)
	require.NoError(t, reporter.WriteAll(full, records))

	for _, name := range []string{"summary.json", "report.md", "report.html", "scores.xlsx"} {
		info, err := os.Stat(filepath.Join(dir, name))
		require.NoError(t, err, name)
		assert.Greater(t, info.Size(), int64(0), name)
	}
}

// TestMarkdownContent spot-checks the report sections
func TestMarkdownContent(t *testing.T) {
	full, records := syntheticAnalysis(t)
	md := buildMarkdown(full, records)

	assert.Contains(t, md, "# Panel Evaluation Report")
	assert.Contains(t, md, "## Overall Score")
	assert.Contains(t, md, "## Panels")
	assert.Contains(t, md, "## Rater Bias")
	for _, p := range full.Panels {
		assert.Contains(t, md, p.PanelName)
	}
	for _, rb := range full.RaterBiases {
		assert.Contains(t, md, rb.RaterName)
	}
	assert.Contains(t, md, "Conformance")
}

// TestHTMLRendering verifies the markdown survives conversion
func TestHTMLRendering(t *testing.T) {
	full, records := syntheticAnalysis(t)
	dir := t.TempDir()
	reporter := NewReporter(dir, nil)
	require.NoError(t, reporter.WriteAll(full, records))

	html, err := os.ReadFile(filepath.Join(dir, "report.html"))
	require.NoError(t, err)
	assert.Contains(t, string(html), "<h1")
	assert.Contains(t, string(html), "Panel Evaluation Report")
	assert.Contains(t, string(html), "<table")
}

// TestWorkbookSheets verifies the xlsx layout
func TestWorkbookSheets(t *testing.T) {
	full, records := syntheticAnalysis(t)
	dir := t.TempDir()
	path := filepath.Join(dir, "scores.xlsx")
	require.NoError(t, writeWorkbook(path, full, records))

	f, err := excelize.OpenFile(path)
	require.NoError(t, err)
	defer f.Close()

	sheets := f.GetSheetList()
	for _, want := range []string{"Metrics", "Panels", "Calls"} {
		assert.Contains(t, sheets, want)
	}

	rows, err := f.GetRows("Metrics")
	require.NoError(t, err)
	require.NotEmpty(t, rows)
	assert.Equal(t, "Metric", rows[0][0])
	assert.Len(t, rows, len(full.Metrics)+1)

	callRows, err := f.GetRows("Calls")
	require.NoError(t, err)
	assert.Len(t, callRows, len(records)+1)
}

// TestSummaryJSON verifies the envelope accounting
func TestSummaryJSON(t *testing.T) {
	full, records := syntheticAnalysis(t)
	dir := t.TempDir()
	reporter := NewReporter(dir, nil)
	require.NoError(t, reporter.WriteAll(full, records))

	data, err := os.ReadFile(filepath.Join(dir, "summary.json"))
	require.NoError(t, err)
	s := string(data)
	assert.True(t, strings.Contains(s, `"total_calls"`), "summary missing call count")
	assert.True(t, strings.Contains(s, `"total_cost_usd"`), "summary missing cost")
	assert.True(t, strings.Contains(s, `"analysis"`), "summary missing analysis")
}
