package models

import "fmt"

// PanelDef defines one rubric panel: a named collection of scored items
// evaluated together in a single request.
type PanelDef struct {
	PanelID     string
	Name        string
	MetricCount int
}

// Panels is the rubric registry, in presentation order.
var Panels = []PanelDef{
	{"101", "Architecture & Systems Design", 8},
	{"102", "Code Quality & Craft", 8},
	{"103", "Security Engineering", 10},
	{"104", "Type System & Safety", 6},
	{"105", "Database Engineering", 8},
	{"106", "API Design", 7},
	{"107", "AI/LLM Integration", 8},
	{"108", "Frontend Engineering", 7},
	{"109", "DevOps & Operational Readiness", 7},
	{"110", "Engineering Culture & Practice", 6},
	{"111", "Scalability & Production Readiness", 7},
	{"112", "Testing Philosophy", 12},
}

// TotalMetrics is the number of scored items across all panels.
func TotalMetrics() int {
	total := 0
	for _, p := range Panels {
		total += p.MetricCount
	}
	return total
}

// PanelByID looks up a panel definition.
func PanelByID(id string) (PanelDef, error) {
	for _, p := range Panels {
		if p.PanelID == id {
			return p, nil
		}
	}
	return PanelDef{}, fmt.Errorf("unknown panel %q", id)
}
