package parse

import (
	"time"

	"panelscore/domain/eval"
	"panelscore/models"
)

// FromRecords converts persisted call records into parser inputs.
// Failed calls carry no response text and are skipped; conformance
// accounting happens over the records that actually returned content.
func FromRecords(records []*models.CallRecord) []eval.RawResponse {
	out := make([]eval.RawResponse, 0, len(records))
	for _, rec := range records {
		if rec.Failed {
			continue
		}
		expected := 0
		if panel, err := models.PanelByID(rec.PanelID); err == nil {
			expected = panel.MetricCount
		}
		out = append(out, eval.RawResponse{
			RunID:         rec.RunID,
			PanelID:       rec.PanelID,
			ExpectedItems: expected,
			RawText:       rec.RawText,
			Envelope: eval.Envelope{
				RaterID:     rec.RaterID,
				Trial:       rec.Trial,
				Temperature: rec.Temperature,
				Timestamp:   rec.Timestamp.UTC().Format(time.RFC3339),
				PanelName:   rec.PanelName,
			},
		})
	}
	return out
}
