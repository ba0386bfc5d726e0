package parse

import (
	"context"
	"fmt"
	"strings"
	"testing"

	"panelscore/domain/eval"
)

func validResponse(panelID string, items int) eval.RawResponse {
	var b strings.Builder
	b.WriteString(fmt.Sprintf(`{"panel_id": %q, "overall_assessment": "fine", "metrics": [`, panelID))
	for i := 0; i < items; i++ {
		if i > 0 {
			b.WriteString(",")
		}
		b.WriteString(fmt.Sprintf(`{"id": "%s.%d", "name": "m%d", "score": %d, "justification": "ok"}`,
			panelID, i+1, i+1, 5+i%3))
	}
	b.WriteString("]}")
	return eval.RawResponse{
		RunID:         "r1",
		PanelID:       panelID,
		ExpectedItems: items,
		RawText:       b.String(),
		Envelope: eval.Envelope{
			RaterID:     "model-a",
			Trial:       1,
			Temperature: 0.5,
			Timestamp:   "2026-01-15T12:00:00Z",
		},
	}
}

// TestResponse_Valid verifies a clean response parses with no warnings
func TestResponse_Valid(t *testing.T) {
	res := Response(validResponse("101", 3))
	if !res.Success {
		t.Fatalf("expected success, got errors %v", res.Errors)
	}
	if len(res.Warnings) != 0 {
		t.Errorf("unexpected warnings: %v", res.Warnings)
	}
	if res.Evaluation.RaterID != "model-a" {
		t.Errorf("envelope rater not applied: %s", res.Evaluation.RaterID)
	}
	if len(res.Evaluation.Items) != 3 {
		t.Errorf("expected 3 items, got %d", len(res.Evaluation.Items))
	}
}

// TestResponse_FencedOutOfRangeScore verifies a fenced response with an
// out-of-range score is excluded, not clamped
func TestResponse_FencedOutOfRangeScore(t *testing.T) {
	raw := eval.RawResponse{
		RunID:   "r2",
		PanelID: "101",
		RawText: "```json\n{\"panel_id\": \"101\", \"metrics\": [{\"id\": \"101.1\", \"score\": 11}]}\n```",
	}
	res := Response(raw)
	if res.Success {
		t.Fatal("out-of-range score must fail validation")
	}
	found := false
	for _, e := range res.Errors {
		if strings.Contains(e, "score") {
			found = true
		}
	}
	if !found {
		t.Errorf("expected a score violation, got %v", res.Errors)
	}
}

// TestResponse_NonIntegralScore verifies fractional scores are
// structural violations rather than being silently rounded
func TestResponse_NonIntegralScore(t *testing.T) {
	raw := eval.RawResponse{
		RunID:   "r3",
		PanelID: "101",
		RawText: `{"panel_id": "101", "metrics": [{"id": "101.1", "score": 7.5}]}`,
	}
	res := Response(raw)
	if res.Success {
		t.Fatal("non-integral score must fail validation")
	}
}

func TestResponse_NoJSON(t *testing.T) {
	for _, text := range []string{"I refuse to answer.", "", "   \n"} {
		res := Response(eval.RawResponse{RunID: "r4", RawText: text})
		if res.Success {
			t.Fatalf("expected failure for %q", text)
		}
		if len(res.Errors) != 1 || !strings.Contains(res.Errors[0], "no JSON object") {
			t.Errorf("unexpected errors for %q: %v", text, res.Errors)
		}
	}
}

func TestResponse_MalformedJSON(t *testing.T) {
	res := Response(eval.RawResponse{RunID: "r5", RawText: `{"panel_id": "101", "metrics": [`})
	if res.Success {
		t.Fatal("expected failure")
	}
	if !strings.Contains(res.Errors[0], "invalid JSON") {
		t.Errorf("unexpected errors: %v", res.Errors)
	}
}

// TestResponse_CrossCheckWarnings verifies panel and count mismatches
// warn without excluding the record
func TestResponse_CrossCheckWarnings(t *testing.T) {
	raw := validResponse("101", 3)
	raw.PanelID = "102"
	raw.ExpectedItems = 8

	res := Response(raw)
	if !res.Success {
		t.Fatalf("cross-check mismatches must not exclude: %v", res.Errors)
	}

	var panelWarn, countWarn, idWarn bool
	for _, w := range res.Warnings {
		if strings.Contains(w, "panel ID mismatch") {
			panelWarn = true
		}
		if strings.Contains(w, "metric count mismatch") {
			countWarn = true
		}
		if strings.Contains(w, "doesn't match panel") {
			idWarn = true
		}
	}
	if !panelWarn || !countWarn || !idWarn {
		t.Errorf("expected all three advisory warnings, got %v", res.Warnings)
	}
}

// TestBatch_PreservesOrder verifies results line up with inputs
func TestBatch_PreservesOrder(t *testing.T) {
	var responses []eval.RawResponse
	for i := 0; i < 20; i++ {
		r := validResponse("101", 2)
		r.RunID = fmt.Sprintf("run-%d", i)
		responses = append(responses, r)
	}
	// Sprinkle in failures so ordering is observable per outcome.
	responses[3].RawText = "garbage"
	responses[17].RawText = "garbage"

	results, err := Batch(context.Background(), responses)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if len(results) != len(responses) {
		t.Fatalf("expected %d results, got %d", len(responses), len(results))
	}
	for i, res := range results {
		if res.RunID != fmt.Sprintf("run-%d", i) {
			t.Errorf("result %d out of order: %s", i, res.RunID)
		}
	}
	if results[3].Success || results[17].Success {
		t.Error("garbage responses should fail")
	}
	if !results[0].Success || !results[19].Success {
		t.Error("valid responses should succeed")
	}
}

// TestBatch_Cancelled verifies a cancelled context aborts the batch
func TestBatch_Cancelled(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	_, err := Batch(ctx, []eval.RawResponse{validResponse("101", 1)})
	if err == nil {
		t.Fatal("expected cancellation error")
	}
}
