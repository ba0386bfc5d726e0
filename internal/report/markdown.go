package report

import (
	"fmt"
	"strings"
	"time"

	"panelscore/domain/agreement"
	"panelscore/models"
)

// buildMarkdown assembles the human-facing report. Sections run from
// batch-level verdicts down to per-metric detail so a reader can stop
// at whatever depth they need.
func buildMarkdown(a *agreement.FullAnalysis, records []*models.CallRecord) string {
	var b strings.Builder

	totalCost := 0.0
	failed := 0
	for _, rec := range records {
		totalCost += rec.CostUSD
		if rec.Failed {
			failed++
		}
	}

	fmt.Fprintf(&b, "# Panel Evaluation Report\n\n")
	fmt.Fprintf(&b, "Generated %s\n\n", time.Now().UTC().Format("2006-01-02 15:04 UTC"))

	fmt.Fprintf(&b, "## Batch\n\n")
	fmt.Fprintf(&b, "| | |\n|---|---|\n")
	fmt.Fprintf(&b, "| Calls | %d (%d failed) |\n", len(records), failed)
	fmt.Fprintf(&b, "| Valid evaluations | %d |\n", a.TotalEvaluations)
	fmt.Fprintf(&b, "| Conformance | %.0f%% |\n", a.ConformanceRate*100)
	fmt.Fprintf(&b, "| Cost | $%.2f |\n\n", totalCost)

	fmt.Fprintf(&b, "## Overall Score\n\n")
	fmt.Fprintf(&b, "**%.1f / 10** [95%% CI: %.1f, %.1f]\n\n",
		a.GrandComposite, a.GrandCompositeCI.Lower, a.GrandCompositeCI.Upper)

	writePanelTable(&b, a)
	writeFindings(&b, a)
	writeBiasTable(&b, a)
	writePanelDetail(&b, a)

	return b.String()
}

func writePanelTable(b *strings.Builder, a *agreement.FullAnalysis) {
	fmt.Fprintf(b, "## Panels\n\n")
	fmt.Fprintf(b, "| Panel | Composite | 95%% CI | Tier |\n")
	fmt.Fprintf(b, "|---|---|---|---|\n")
	for _, p := range a.Panels {
		fmt.Fprintf(b, "| %s %s | %.1f | [%.1f, %.1f] | %s |\n",
			p.PanelID, p.PanelName, p.Composite, p.CompositeCI.Lower, p.CompositeCI.Upper, p.Tier)
	}
	fmt.Fprintf(b, "\n")
}

func writeFindings(b *strings.Builder, a *agreement.FullAnalysis) {
	writeFindingList(b, "Confirmed Strengths", a.ConfirmedStrengths,
		"No metric scored high with rater consensus.")
	writeFindingList(b, "Confirmed Weaknesses", a.ConfirmedWeaknesses,
		"No metric scored low with rater consensus.")
	writeFindingList(b, "Key Disagreements", a.KeyDisagreements,
		"Raters did not diverge sharply on any metric.")
}

func writeFindingList(b *strings.Builder, title string, metrics []*agreement.MetricAnalysis, empty string) {
	fmt.Fprintf(b, "## %s\n\n", title)
	if len(metrics) == 0 {
		fmt.Fprintf(b, "%s\n\n", empty)
		return
	}
	for _, m := range metrics {
		fmt.Fprintf(b, "- %s\n", m.SummaryLine())
	}
	fmt.Fprintf(b, "\n")
}

func writeBiasTable(b *strings.Builder, a *agreement.FullAnalysis) {
	fmt.Fprintf(b, "## Rater Bias\n\n")
	fmt.Fprintf(b, "| Rater | Mean | Bias | Correction |\n")
	fmt.Fprintf(b, "|---|---|---|---|\n")
	for _, rb := range a.RaterBiases {
		correction := "none"
		if rb.NeedsCorrection {
			correction = fmt.Sprintf("%+.2f", -rb.Correction)
		}
		fmt.Fprintf(b, "| %s | %.2f | %+.2f | %s |\n", rb.RaterName, rb.GrandMean, rb.Bias, correction)
	}
	fmt.Fprintf(b, "\n")
}

func writePanelDetail(b *strings.Builder, a *agreement.FullAnalysis) {
	fmt.Fprintf(b, "## Panel Detail\n\n")
	for _, p := range a.Panels {
		fmt.Fprintf(b, "### %s %s\n\n", p.PanelID, p.PanelName)
		fmt.Fprintf(b, "| Metric | Mean | 95%% CI | ICC | Alpha | Range | Tier |\n")
		fmt.Fprintf(b, "|---|---|---|---|---|---|---|\n")
		for _, m := range p.Metrics {
			ci := m.CI()
			alpha := "n/a"
			if m.KrippendorffAlpha.Defined {
				alpha = fmt.Sprintf("%.2f", m.KrippendorffAlpha.Value)
			}
			fmt.Fprintf(b, "| %s %s | %.1f | [%.1f, %.1f] | %.2f | %s | %d | %s |\n",
				m.MetricID, m.MetricName, m.GrandMean, ci.Lower, ci.Upper, m.ICC, alpha, m.ScoreRange(), m.Tier)
		}
		fmt.Fprintf(b, "\n")
		if p.Strongest != nil {
			fmt.Fprintf(b, "Strongest: %s (%.1f). ", p.Strongest.MetricName, p.Strongest.GrandMean)
		}
		if p.Weakest != nil {
			fmt.Fprintf(b, "Weakest: %s (%.1f).", p.Weakest.MetricName, p.Weakest.GrandMean)
		}
		if p.Strongest != nil || p.Weakest != nil {
			fmt.Fprintf(b, "\n\n")
		}
	}
}
