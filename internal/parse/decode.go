package parse

import (
	"fmt"
	"math"

	"panelscore/domain/eval"
)

// decodeEvaluation maps a normalized object onto the canonical record.
// Prose fields coerce permissively; the numeric score is strict: a
// non-integral score is a structural violation, not a rounding
// opportunity.
func decodeEvaluation(m map[string]any) (*eval.PanelEvaluation, []eval.Violation) {
	var violations []eval.Violation

	e := &eval.PanelEvaluation{
		PanelID:           asString(m["panel_id"]),
		PanelName:         asString(m["panel_name"]),
		RaterID:           asString(m["evaluator_model"]),
		Trial:             asInt(m["iteration"], 1),
		Temperature:       asFloat(m["temperature"]),
		Timestamp:         asString(m["timestamp"]),
		OverallAssessment: asString(m["overall_assessment"]),
		TopStrengths:      asStringList(m["top_3_strengths"]),
		TopRisks:          asStringList(m["top_3_risks"]),
	}

	if items, ok := m["metrics"].([]any); ok {
		for i, entry := range items {
			im, ok := entry.(map[string]any)
			if !ok {
				continue
			}
			item := eval.ItemScore{
				ID:                 asString(im["id"]),
				Name:               asString(im["name"]),
				Justification:      asString(im["justification"]),
				StrongestCriticism: asString(im["strongest_criticism"]),
				StrongestDefence:   asString(im["strongest_defence"]),
				Evidence:           asStringList(im["evidence"]),
			}
			score, ok := asNumber(im["score"])
			switch {
			case !ok:
				violations = append(violations, eval.Violation{
					Loc: fmt.Sprintf("metrics[%d].score", i),
					Msg: "score must be a number",
				})
			case score != math.Trunc(score):
				violations = append(violations, eval.Violation{
					Loc: fmt.Sprintf("metrics[%d].score", i),
					Msg: fmt.Sprintf("score must be an integer, got %g", score),
				})
				item.Score = int(math.Round(score))
			default:
				item.Score = int(score)
			}
			e.Items = append(e.Items, item)
		}
	}

	if actions, ok := m["recommended_actions"].([]any); ok {
		for i, entry := range actions {
			am, ok := entry.(map[string]any)
			if !ok {
				continue
			}
			e.RecommendedActions = append(e.RecommendedActions, eval.RecommendedAction{
				Priority: asInt(am["priority"], i+1),
				Action:   asString(am["action"]),
				Effort:   asString(am["effort"]),
				Impact:   asString(am["impact"]),
			})
		}
	}

	return e, violations
}

func asString(v any) string {
	switch s := v.(type) {
	case string:
		return s
	case nil:
		return ""
	default:
		return fmt.Sprint(s)
	}
}

func asStringList(v any) []string {
	switch list := v.(type) {
	case []any:
		out := make([]string, 0, len(list))
		for _, item := range list {
			out = append(out, asString(item))
		}
		return out
	case []string:
		return list
	case string:
		return []string{list}
	default:
		return nil
	}
}

func asNumber(v any) (float64, bool) {
	switch n := v.(type) {
	case float64:
		return n, true
	case float32:
		return float64(n), true
	case int:
		return float64(n), true
	case int64:
		return float64(n), true
	default:
		return 0, false
	}
}

func asInt(v any, def int) int {
	if n, ok := asNumber(v); ok && n == math.Trunc(n) {
		return int(n)
	}
	return def
}

func asFloat(v any) float64 {
	n, _ := asNumber(v)
	return n
}
