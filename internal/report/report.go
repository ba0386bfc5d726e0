// Package report renders a finished batch analysis into the delivery
// formats: a JSON summary, a markdown report, an HTML rendering of that
// markdown, and an xlsx workbook with the raw score matrices.
package report

import (
	"encoding/json"
	"os"
	"path/filepath"
	"time"

	"github.com/gomarkdown/markdown"
	"github.com/gomarkdown/markdown/html"
	"github.com/gomarkdown/markdown/parser"

	"panelscore/domain/agreement"
	"panelscore/internal"
	"panelscore/internal/errors"
	"panelscore/models"
)

// Reporter writes all report artifacts into a single output directory.
type Reporter struct {
	OutputDir string
	logger    *internal.Logger
}

func NewReporter(outputDir string, logger *internal.Logger) *Reporter {
	if logger == nil {
		logger = internal.DefaultLogger
	}
	return &Reporter{OutputDir: outputDir, logger: logger}
}

// Summary is the JSON envelope around the analysis: batch accounting
// that the analysis itself does not carry.
type Summary struct {
	GeneratedAt time.Time               `json:"generated_at"`
	TotalCalls  int                     `json:"total_calls"`
	FailedCalls int                     `json:"failed_calls"`
	TotalCost   float64                 `json:"total_cost_usd"`
	Analysis    *agreement.FullAnalysis `json:"analysis"`
}

// WriteAll renders every artifact. Artifacts are independent; the first
// failure aborts so a partial directory is visible rather than silently
// incomplete.
func (r *Reporter) WriteAll(analysis *agreement.FullAnalysis, records []*models.CallRecord) error {
	if err := os.MkdirAll(r.OutputDir, 0o755); err != nil {
		return errors.ReportError("failed to create report directory", err)
	}

	if err := r.writeJSON(analysis, records); err != nil {
		return err
	}

	md := buildMarkdown(analysis, records)
	mdPath := filepath.Join(r.OutputDir, "report.md")
	if err := os.WriteFile(mdPath, []byte(md), 0o644); err != nil {
		return errors.ReportError("failed to write markdown report", err)
	}

	if err := r.writeHTML(md); err != nil {
		return err
	}

	if err := writeWorkbook(filepath.Join(r.OutputDir, "scores.xlsx"), analysis, records); err != nil {
		return errors.ReportError("failed to write score workbook", err)
	}

	r.logger.Info("reports written to %s", r.OutputDir)
	return nil
}

func (r *Reporter) writeJSON(analysis *agreement.FullAnalysis, records []*models.CallRecord) error {
	summary := Summary{
		GeneratedAt: time.Now().UTC(),
		TotalCalls:  len(records),
		Analysis:    analysis,
	}
	for _, rec := range records {
		summary.TotalCost += rec.CostUSD
		if rec.Failed {
			summary.FailedCalls++
		}
	}

	data, err := json.MarshalIndent(summary, "", "  ")
	if err != nil {
		return errors.ReportError("failed to encode summary", err)
	}
	path := filepath.Join(r.OutputDir, "summary.json")
	if err := os.WriteFile(path, data, 0o644); err != nil {
		return errors.ReportError("failed to write summary", err)
	}
	return nil
}

func (r *Reporter) writeHTML(md string) error {
	p := parser.NewWithExtensions(parser.CommonExtensions | parser.AutoHeadingIDs | parser.Tables)
	doc := p.Parse([]byte(md))
	renderer := html.NewRenderer(html.RendererOptions{Flags: html.CommonFlags | html.CompletePage})
	out := markdown.Render(doc, renderer)

	path := filepath.Join(r.OutputDir, "report.html")
	if err := os.WriteFile(path, out, 0o644); err != nil {
		return errors.ReportError("failed to write HTML report", err)
	}
	return nil
}
