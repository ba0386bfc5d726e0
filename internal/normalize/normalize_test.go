package normalize

import (
	"testing"

	"panelscore/domain/eval"
)

// TestEvaluation_ContainerAliases verifies list-shaped siblings are
// renamed to the canonical metrics container
func TestEvaluation_ContainerAliases(t *testing.T) {
	raw := map[string]any{
		"panel_id": "101",
		"scores": []any{
			map[string]any{"id": "101.1", "score": float64(7)},
		},
	}
	got := Evaluation(raw, nil)

	if _, ok := got["scores"]; ok {
		t.Error("alias container should be removed")
	}
	items, ok := got["metrics"].([]any)
	if !ok || len(items) != 1 {
		t.Fatalf("expected 1 item under metrics, got %v", got["metrics"])
	}
}

// TestEvaluation_InputNotMutated verifies the source map is untouched
func TestEvaluation_InputNotMutated(t *testing.T) {
	raw := map[string]any{
		"panel_id": "101",
		"scores":   []any{map[string]any{"score": float64(5)}},
	}
	Evaluation(raw, &eval.Envelope{RaterID: "m", Trial: 2})
	if _, ok := raw["metrics"]; ok {
		t.Error("input map was mutated")
	}
	if _, ok := raw["evaluator_model"]; ok {
		t.Error("envelope leaked into input map")
	}
}

func TestEvaluation_ItemFieldAliases(t *testing.T) {
	raw := map[string]any{
		"panel_id": "103",
		"metrics": []any{
			map[string]any{
				"metric_id":  "103.2",
				"score":      float64(6),
				"reasoning":  "solid input validation",
				"criticisms": []any{"no rate limiting", "verbose errors"},
				"evidence":   "auth.go",
			},
		},
	}
	got := Evaluation(raw, nil)
	item := got["metrics"].([]any)[0].(map[string]any)

	if item["id"] != "103.2" {
		t.Errorf("metric_id alias: got %v", item["id"])
	}
	if item["justification"] != "solid input validation" {
		t.Errorf("reasoning alias: got %v", item["justification"])
	}
	if item["strongest_criticism"] != "no rate limiting; verbose errors" {
		t.Errorf("criticism join: got %v", item["strongest_criticism"])
	}
	ev, ok := item["evidence"].([]any)
	if !ok || len(ev) != 1 || ev[0] != "auth.go" {
		t.Errorf("scalar evidence not wrapped: got %v", item["evidence"])
	}
}

// TestEvaluation_CanonicalKeyPriority verifies a canonical field is
// never displaced by a synonym. The input is rebuilt every iteration
// so map iteration order gets reshuffled; resolution must not depend
// on it.
func TestEvaluation_CanonicalKeyPriority(t *testing.T) {
	for i := 0; i < 200; i++ {
		raw := map[string]any{
			"panel_id": "101",
			"metrics": []any{
				map[string]any{
					"id":            "101.1",
					"metric_id":     "999.9",
					"score":         float64(8),
					"justification": "canonical",
					"reasoning":     "synonym",
				},
			},
		}
		got := Evaluation(raw, nil)
		item := got["metrics"].([]any)[0].(map[string]any)
		if item["id"] != "101.1" {
			t.Fatalf("canonical id displaced: got %v", item["id"])
		}
		if item["justification"] != "canonical" {
			t.Fatalf("canonical value overwritten: got %v", item["justification"])
		}
		if _, ok := item["metric_id"]; ok {
			t.Fatal("losing synonym should be consumed, not kept")
		}
	}
}

// TestEvaluation_AliasPriorityOrder verifies competing synonyms resolve
// in table order when the canonical key is absent
func TestEvaluation_AliasPriorityOrder(t *testing.T) {
	for i := 0; i < 200; i++ {
		raw := map[string]any{
			"panel_id": "101",
			"metrics": []any{
				map[string]any{
					"id":        "101.1",
					"score":     float64(6),
					"summary":   "lower priority",
					"reasoning": "higher priority",
				},
			},
		}
		got := Evaluation(raw, nil)
		item := got["metrics"].([]any)[0].(map[string]any)
		if item["justification"] != "higher priority" {
			t.Fatalf("alias order not honored: got %v", item["justification"])
		}
	}
}

// TestEvaluation_DictOfItems covers the mapping-keyed-by-id shape:
// object entries keep their fields, bare numbers become minimal items,
// and entries without a usable score are dropped
func TestEvaluation_DictOfItems(t *testing.T) {
	raw := map[string]any{
		"panel_id": "105",
		"metric_scores": map[string]any{
			"105.2": float64(7),
			"105.1": map[string]any{"score": float64(9), "justification": "good"},
			"105.3": map[string]any{"justification": "no score here"},
			"105.4": "not a number",
		},
	}
	got := Evaluation(raw, nil)
	items, ok := got["metrics"].([]any)
	if !ok {
		t.Fatalf("expected metrics list, got %T", got["metrics"])
	}
	if len(items) != 2 {
		t.Fatalf("expected 2 usable items, got %d", len(items))
	}

	first := items[0].(map[string]any)
	if first["id"] != "105.1" || first["score"] != float64(9) {
		t.Errorf("object entry wrong: %v", first)
	}
	second := items[1].(map[string]any)
	if second["id"] != "105.2" || second["score"] != 7 {
		t.Errorf("bare number entry wrong: %v", second)
	}
}

// TestEvaluation_ItemsWithoutScoreDropped verifies unusable list items
// are filtered while the rest of the record survives
func TestEvaluation_ItemsWithoutScoreDropped(t *testing.T) {
	raw := map[string]any{
		"panel_id": "101",
		"metrics": []any{
			map[string]any{"id": "101.1", "score": float64(7)},
			map[string]any{"id": "101.2", "justification": "scoreless"},
			"not an object",
		},
	}
	got := Evaluation(raw, nil)
	items := got["metrics"].([]any)
	if len(items) != 1 {
		t.Fatalf("expected 1 item after filtering, got %d", len(items))
	}
}

// TestEvaluation_IDSynthesis verifies missing ids derive from panel and position
func TestEvaluation_IDSynthesis(t *testing.T) {
	raw := map[string]any{
		"panel_id": "108",
		"metrics": []any{
			map[string]any{"score": float64(5)},
			map[string]any{"score": float64(6)},
		},
	}
	got := Evaluation(raw, nil)
	items := got["metrics"].([]any)
	if id := items[0].(map[string]any)["id"]; id != "108.1" {
		t.Errorf("first synthesized id: got %v", id)
	}
	if id := items[1].(map[string]any)["id"]; id != "108.2" {
		t.Errorf("second synthesized id: got %v", id)
	}
}

// TestEvaluation_EnvelopeWins verifies trusted metadata overrides
// whatever the rater claimed about itself
func TestEvaluation_EnvelopeWins(t *testing.T) {
	raw := map[string]any{
		"panel_id":        "101",
		"evaluator_model": "claimed-model",
		"iteration":       float64(99),
		"temperature":     float64(1.9),
		"timestamp":       "1999-01-01T00:00:00Z",
	}
	env := &eval.Envelope{
		RaterID:     "actual-model",
		Trial:       2,
		Temperature: 0.5,
		Timestamp:   "2026-01-15T12:00:00Z",
		PanelName:   "Architecture & Systems Design",
	}
	got := Evaluation(raw, env)

	if got["evaluator_model"] != "actual-model" {
		t.Errorf("rater identity not overridden: %v", got["evaluator_model"])
	}
	if got["iteration"] != 2 {
		t.Errorf("trial not overridden: %v", got["iteration"])
	}
	if got["temperature"] != 0.5 {
		t.Errorf("temperature not overridden: %v", got["temperature"])
	}
	if got["timestamp"] != "2026-01-15T12:00:00Z" {
		t.Errorf("timestamp not overridden: %v", got["timestamp"])
	}
	if got["panel_name"] != "Architecture & Systems Design" {
		t.Errorf("panel name not injected: %v", got["panel_name"])
	}
}

func TestEvaluation_AssessmentAliases(t *testing.T) {
	raw := map[string]any{
		"panel_id":        "101",
		"overall_summary": "strong showing",
	}
	got := Evaluation(raw, nil)
	if got["overall_assessment"] != "strong showing" {
		t.Errorf("assessment alias: got %v", got["overall_assessment"])
	}
	if _, ok := got["overall_summary"]; ok {
		t.Error("alias key should be removed")
	}
}

// TestEvaluation_ActionShapes verifies string and object actions unify
// into {priority, action} objects
func TestEvaluation_ActionShapes(t *testing.T) {
	raw := map[string]any{
		"panel_id": "101",
		"recommendations": []any{
			"add integration tests",
			map[string]any{"description": "split the service", "priority": float64(5)},
			map[string]any{"action": "already canonical"},
		},
	}
	got := Evaluation(raw, nil)
	actions, ok := got["recommended_actions"].([]any)
	if !ok || len(actions) != 3 {
		t.Fatalf("expected 3 actions, got %v", got["recommended_actions"])
	}

	first := actions[0].(map[string]any)
	if first["action"] != "add integration tests" || first["priority"] != 1 {
		t.Errorf("string action wrong: %v", first)
	}
	second := actions[1].(map[string]any)
	if second["action"] != "split the service" || second["priority"] != float64(5) {
		t.Errorf("object action wrong: %v", second)
	}
	third := actions[2].(map[string]any)
	if third["priority"] != 3 {
		t.Errorf("missing priority should default to position: %v", third)
	}
}
