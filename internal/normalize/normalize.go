// Package normalize rewrites arbitrarily-shaped rater output into the
// canonical evaluation shape. It is best-effort and never fails:
// unresolved ambiguities are dropped rather than guessed, and all
// failure signaling is left to the validation stage.
//
// The synonym tables are empirically derived from observed output
// variance across the registered raters.
package normalize

import (
	"fmt"
	"sort"
	"strings"

	"panelscore/domain/eval"
)

// itemFieldAliases lists observed per-item field synonyms in priority
// order. Canonical keys are copied before any alias applies, and a
// field that already has a value is never overwritten, so resolution
// is deterministic regardless of map iteration order.
var itemFieldAliases = []fieldAlias{
	{"metric_id", "id"},
	{"metric_name", "name"},
	{"reasoning", "justification"},
	{"summary", "justification"},
	{"details", "justification"},
	{"description", "justification"},
	{"criticism", "strongest_criticism"},
	{"criticisms", "strongest_criticism"},
	{"weaknesses", "strongest_criticism"},
	{"risks", "strongest_criticism"},
	{"defence", "strongest_defence"},
	{"defences", "strongest_defence"},
	{"defense", "strongest_defence"},
	{"defenses", "strongest_defence"},
	{"strengths", "strongest_defence"},
}

type fieldAlias struct {
	from, to string
}

var itemAliasNames = func() map[string]bool {
	names := make(map[string]bool, len(itemFieldAliases))
	for _, a := range itemFieldAliases {
		names[a.from] = true
	}
	return names
}()

// listContainerAliases are sibling names accepted for the items list,
// in priority order, when they hold a non-empty list of objects.
var listContainerAliases = []string{"scores", "evaluations"}

// mapContainerAliases are names accepted for a mapping keyed by item id.
var mapContainerAliases = []string{"scores", "metric_scores"}

// assessmentAliases are accepted top-level names for the overall
// assessment, in priority order.
var assessmentAliases = []string{"overall_summary", "summary", "assessment", "overall"}

// actionAliases are accepted top-level names for the recommended
// actions list, in priority order.
var actionAliases = []string{"recommendations", "actions", "action_items"}

// Evaluation normalizes a decoded rater object into the canonical
// shape, injecting trusted envelope metadata. env may be nil when no
// trusted metadata is available. The input map is not mutated.
func Evaluation(raw map[string]any, env *eval.Envelope) map[string]any {
	result := make(map[string]any, len(raw))
	for k, v := range raw {
		result[k] = v
	}
	panelID, _ := result["panel_id"].(string)

	normalizeContainer(result)
	normalizeItemMap(result)

	if items, ok := result["metrics"].([]any); ok {
		kept := make([]any, 0, len(items))
		for i, entry := range items {
			m, ok := entry.(map[string]any)
			if !ok {
				continue
			}
			// An item without a numeric score is unusable for
			// statistics; drop it and keep the rest of the record.
			if _, ok := numeric(m["score"]); !ok {
				continue
			}
			kept = append(kept, normalizeItem(m, panelID, i))
		}
		result["metrics"] = kept
	}

	injectEnvelope(result, env)
	normalizeTopLevel(result)

	return result
}

// normalizeContainer renames a known list-shaped sibling to "metrics"
// when the canonical container is absent.
func normalizeContainer(result map[string]any) {
	if _, ok := result["metrics"]; ok {
		return
	}
	for _, alias := range listContainerAliases {
		list, ok := result[alias].([]any)
		if !ok || len(list) == 0 {
			continue
		}
		if _, ok := list[0].(map[string]any); !ok {
			continue
		}
		result["metrics"] = list
		delete(result, alias)
		return
	}
}

// normalizeItemMap converts a mapping keyed by item id into the items
// list. Object entries with a numeric score become full items; bare
// numeric entries become minimal {id, score} items.
func normalizeItemMap(result map[string]any) {
	if _, ok := result["metrics"]; ok {
		return
	}
	for _, alias := range mapContainerAliases {
		byID, ok := result[alias].(map[string]any)
		if !ok || len(byID) == 0 {
			continue
		}
		items := make([]any, 0, len(byID))
		for _, id := range sortedKeys(byID) {
			entry := byID[id]
			switch v := entry.(type) {
			case map[string]any:
				if _, ok := numeric(v["score"]); !ok {
					continue
				}
				item := make(map[string]any, len(v)+1)
				for k, val := range v {
					item[k] = val
				}
				item["id"] = id
				items = append(items, item)
			default:
				if score, ok := numeric(entry); ok {
					items = append(items, map[string]any{"id": id, "score": int(score)})
				}
			}
		}
		if len(items) > 0 {
			result["metrics"] = items
			delete(result, alias)
			return
		}
	}
}

// normalizeItem rewrites one item's field names to canonical form,
// synthesizes a missing id from (panelID, index), wraps scalar
// evidence, and joins list-valued criticism/defence.
func normalizeItem(raw map[string]any, panelID string, index int) map[string]any {
	normalized := make(map[string]any, len(raw))
	for key, value := range raw {
		if !itemAliasNames[key] {
			normalized[key] = value
		}
	}
	for _, a := range itemFieldAliases {
		value, ok := raw[a.from]
		if !ok {
			continue
		}
		if _, exists := normalized[a.to]; !exists {
			normalized[a.to] = value
		}
	}

	if _, ok := normalized["id"]; !ok {
		normalized["id"] = fmt.Sprintf("%s.%d", panelID, index+1)
	}

	if ev, ok := normalized["evidence"].(string); ok {
		normalized["evidence"] = []any{ev}
	}

	for _, field := range []string{"strongest_criticism", "strongest_defence"} {
		if list, ok := normalized[field].([]any); ok {
			parts := make([]string, 0, len(list))
			for _, v := range list {
				parts = append(parts, fmt.Sprint(v))
			}
			normalized[field] = strings.Join(parts, "; ")
		}
	}

	return normalized
}

// injectEnvelope stamps the trusted caller metadata onto the record.
// The envelope is authoritative: a rater cannot spoof its own identity,
// trial number, temperature, or timestamp via its response text.
func injectEnvelope(result map[string]any, env *eval.Envelope) {
	if env == nil {
		return
	}
	if env.RaterID != "" {
		result["evaluator_model"] = env.RaterID
	}
	if env.Trial > 0 {
		result["iteration"] = env.Trial
	}
	result["temperature"] = env.Temperature
	if env.Timestamp != "" {
		result["timestamp"] = env.Timestamp
	}
	if env.PanelName != "" {
		result["panel_name"] = env.PanelName
	}
}

// normalizeTopLevel applies the synonym tables to top-level fields and
// unifies the recommended-action shapes.
func normalizeTopLevel(result map[string]any) {
	if _, ok := result["overall_assessment"]; !ok {
		for _, alias := range assessmentAliases {
			if v, ok := result[alias]; ok {
				result["overall_assessment"] = v
				delete(result, alias)
				break
			}
		}
	}
	switch v := result["overall_assessment"].(type) {
	case string:
	case nil:
		result["overall_assessment"] = ""
	default:
		result["overall_assessment"] = fmt.Sprint(v)
	}

	if _, ok := result["recommended_actions"]; !ok {
		for _, alias := range actionAliases {
			if list, ok := result[alias].([]any); ok {
				result["recommended_actions"] = list
				delete(result, alias)
				break
			}
		}
	}

	if actions, ok := result["recommended_actions"].([]any); ok {
		normalized := make([]any, 0, len(actions))
		for i, action := range actions {
			switch a := action.(type) {
			case map[string]any:
				item := make(map[string]any, len(a))
				for k, val := range a {
					item[k] = val
				}
				if _, ok := item["action"]; !ok {
					for _, alias := range []string{"description", "title", "recommendation"} {
						if v, ok := item[alias]; ok {
							item["action"] = v
							break
						}
					}
				}
				if _, ok := item["priority"]; !ok {
					item["priority"] = i + 1
				}
				normalized = append(normalized, item)
			case string:
				normalized = append(normalized, map[string]any{"priority": i + 1, "action": a})
			}
		}
		result["recommended_actions"] = normalized
	}
}

// sortedKeys returns map keys in stable order; JSON decoding loses the
// source ordering, so item ids sort lexically.
func sortedKeys(m map[string]any) []string {
	keys := make([]string, 0, len(m))
	for k := range m {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	return keys
}

// numeric unwraps any JSON number representation.
func numeric(v any) (float64, bool) {
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
