package report

import (
	"sort"

	"github.com/xuri/excelize/v2"

	"panelscore/domain/agreement"
	"panelscore/models"
)

// writeWorkbook emits the raw numbers behind the report: one sheet per
// granularity so downstream spreadsheet work does not have to re-derive
// anything from the markdown.
func writeWorkbook(path string, a *agreement.FullAnalysis, records []*models.CallRecord) error {
	f := excelize.NewFile()
	defer f.Close()

	if err := f.SetSheetName("Sheet1", "Metrics"); err != nil {
		return err
	}
	if err := writeMetricsSheet(f, a); err != nil {
		return err
	}
	if err := writePanelsSheet(f, a); err != nil {
		return err
	}
	if err := writeCallsSheet(f, records); err != nil {
		return err
	}
	return f.SaveAs(path)
}

func writeMetricsSheet(f *excelize.File, a *agreement.FullAnalysis) error {
	raters := raterColumns(a)

	header := []interface{}{"Metric", "Name", "Panel", "N", "Mean", "Median", "SD", "Q1", "Q3",
		"ICC", "ICC Low", "ICC High", "Alpha", "Within Var", "Between Var", "Tier"}
	for _, id := range raters {
		header = append(header, id+" mean")
	}
	if err := writeRow(f, "Metrics", 1, header); err != nil {
		return err
	}

	ids := make([]string, 0, len(a.Metrics))
	for id := range a.Metrics {
		ids = append(ids, id)
	}
	sort.Strings(ids)

	for i, id := range ids {
		m := a.Metrics[id]
		var alpha interface{}
		if m.KrippendorffAlpha.Defined {
			alpha = m.KrippendorffAlpha.Value
		} else {
			alpha = "n/a"
		}
		row := []interface{}{m.MetricID, m.MetricName, m.PanelID, m.NObservations,
			m.GrandMean, m.GrandMedian, m.GrandSD, m.Q1, m.Q3,
			m.ICC, m.ICCCI.Lower, m.ICCCI.Upper, alpha,
			m.WithinRaterVariance, m.BetweenRaterVariance, string(m.Tier)}
		for _, rid := range raters {
			if mean, ok := m.RaterMeans[rid]; ok {
				row = append(row, mean)
			} else {
				row = append(row, "")
			}
		}
		if err := writeRow(f, "Metrics", i+2, row); err != nil {
			return err
		}
	}
	return nil
}

func writePanelsSheet(f *excelize.File, a *agreement.FullAnalysis) error {
	if _, err := f.NewSheet("Panels"); err != nil {
		return err
	}
	header := []interface{}{"Panel", "Name", "Metrics", "Composite", "CI Low", "CI High", "Tier"}
	if err := writeRow(f, "Panels", 1, header); err != nil {
		return err
	}
	for i, p := range a.Panels {
		row := []interface{}{p.PanelID, p.PanelName, len(p.Metrics),
			p.Composite, p.CompositeCI.Lower, p.CompositeCI.Upper, string(p.Tier)}
		if err := writeRow(f, "Panels", i+2, row); err != nil {
			return err
		}
	}
	return nil
}

func writeCallsSheet(f *excelize.File, records []*models.CallRecord) error {
	if _, err := f.NewSheet("Calls"); err != nil {
		return err
	}
	header := []interface{}{"Run ID", "Panel", "Rater", "Trial", "Temperature", "Timestamp",
		"Input Tokens", "Output Tokens", "Cost USD", "Duration s", "Stop Reason", "Failed", "Failure"}
	if err := writeRow(f, "Calls", 1, header); err != nil {
		return err
	}
	for i, rec := range records {
		row := []interface{}{rec.RunID, rec.PanelID, rec.RaterID, rec.Trial, rec.Temperature,
			rec.Timestamp.Format("2006-01-02 15:04:05"),
			rec.InputTokens, rec.OutputTokens, rec.CostUSD, rec.DurationSeconds,
			rec.StopReason, rec.Failed, rec.FailureReason}
		if err := writeRow(f, "Calls", i+2, row); err != nil {
			return err
		}
	}
	return nil
}

func writeRow(f *excelize.File, sheet string, row int, values []interface{}) error {
	for col, v := range values {
		cell, err := excelize.CoordinatesToCellName(col+1, row)
		if err != nil {
			return err
		}
		if err := f.SetCellValue(sheet, cell, v); err != nil {
			return err
		}
	}
	return nil
}

// raterColumns returns every rater id seen in the analysis, sorted, so
// per-rater columns line up across rows.
func raterColumns(a *agreement.FullAnalysis) []string {
	seen := map[string]bool{}
	for _, m := range a.Metrics {
		for id := range m.RaterMeans {
			seen[id] = true
		}
	}
	ids := make([]string, 0, len(seen))
	for id := range seen {
		ids = append(ids, id)
	}
	sort.Strings(ids)
	return ids
}
