package eval

import (
	"fmt"
	"strings"
	"time"
)

// ItemScore is a single scored rubric item inside a panel evaluation.
// Only ID and Score are load-bearing; the prose fields default to empty
// because upstream raters are unreliable about producing them.
type ItemScore struct {
	ID                 string   `json:"id"`
	Name               string   `json:"name"`
	Score              int      `json:"score"`
	Justification      string   `json:"justification"`
	StrongestCriticism string   `json:"strongest_criticism"`
	StrongestDefence   string   `json:"strongest_defence"`
	Evidence           []string `json:"evidence"`
}

// RecommendedAction is a prioritized follow-up action from an evaluation.
type RecommendedAction struct {
	Priority int    `json:"priority"`
	Action   string `json:"action"`
	Effort   string `json:"effort"`
	Impact   string `json:"impact"`
}

// PanelEvaluation is the canonical record recovered from one rater response.
type PanelEvaluation struct {
	PanelID     string  `json:"panel_id"`
	PanelName   string  `json:"panel_name"`
	RaterID     string  `json:"evaluator_model"`
	Trial       int     `json:"iteration"`
	Temperature float64 `json:"temperature"`
	Timestamp   string  `json:"timestamp"`

	Items []ItemScore `json:"metrics"`

	OverallAssessment  string              `json:"overall_assessment"`
	TopStrengths       []string            `json:"top_3_strengths"`
	TopRisks           []string            `json:"top_3_risks"`
	RecommendedActions []RecommendedAction `json:"recommended_actions"`
}

// Envelope carries trusted metadata captured by the caller at request
// time. Envelope values always win over whatever the rater's own text
// claims for these fields.
type Envelope struct {
	RaterID     string  `json:"model_requested"`
	Trial       int     `json:"iteration"`
	Temperature float64 `json:"temperature"`
	Timestamp   string  `json:"timestamp"`
	PanelName   string  `json:"panel_name"`
}

// RawResponse is one rater response plus its trusted envelope.
type RawResponse struct {
	RunID         string   `json:"run_id"`
	PanelID       string   `json:"panel_id"`
	ExpectedItems int      `json:"expected_items"`
	RawText       string   `json:"raw_text"`
	Envelope      Envelope `json:"envelope"`
}

// ParseResult is the outcome of one record's trip through the pipeline.
// A non-empty Errors list excludes the record from statistics; Warnings
// are advisory and never exclude.
type ParseResult struct {
	RunID      string           `json:"run_id"`
	Success    bool             `json:"success"`
	Evaluation *PanelEvaluation `json:"evaluation,omitempty"`
	Errors     []string         `json:"errors,omitempty"`
	Warnings   []string         `json:"warnings,omitempty"`
}

func (r ParseResult) String() string {
	if r.Success {
		return fmt.Sprintf("ParseResult(%s: OK)", r.RunID)
	}
	return fmt.Sprintf("ParseResult(%s: FAIL (%d errors))", r.RunID, len(r.Errors))
}

// Violation is a single structural contract failure.
type Violation struct {
	Loc string
	Msg string
}

func (v Violation) String() string {
	return fmt.Sprintf("%s: %s", v.Loc, v.Msg)
}

// Timestamp layouts accepted by Validate. A trailing literal "Z" is
// covered by RFC 3339; the remaining layouts cover the ISO variants the
// raters actually emit.
var timestampLayouts = []string{
	time.RFC3339Nano,
	time.RFC3339,
	"2006-01-02T15:04:05",
	"2006-01-02T15:04:05.999999",
	"2006-01-02 15:04:05",
	"2006-01-02",
}

// ParseTimestamp reports whether s is an acceptable calendar timestamp.
func ParseTimestamp(s string) (time.Time, error) {
	trimmed := strings.TrimSpace(s)
	if trimmed == "" {
		return time.Time{}, fmt.Errorf("empty timestamp")
	}
	for _, layout := range timestampLayouts {
		if t, err := time.Parse(layout, trimmed); err == nil {
			return t, nil
		}
	}
	return time.Time{}, fmt.Errorf("unparseable timestamp %q", s)
}

// Validate enforces the structural contract. The schema is deliberately
// permissive: prose fields default rather than reject, only the numeric
// score, the items list, the temperature range, and the timestamp are
// hard requirements.
func (e *PanelEvaluation) Validate() []Violation {
	var violations []Violation

	if len(e.Items) == 0 {
		violations = append(violations, Violation{Loc: "metrics", Msg: "at least one item score is required"})
	}
	for i, item := range e.Items {
		loc := fmt.Sprintf("metrics[%d].score", i)
		if item.Score < 1 || item.Score > 10 {
			violations = append(violations, Violation{Loc: loc, Msg: fmt.Sprintf("score must be in [1,10], got %d", item.Score)})
		}
	}
	if e.Temperature < 0 || e.Temperature > 2 {
		violations = append(violations, Violation{Loc: "temperature", Msg: fmt.Sprintf("temperature must be in [0,2], got %g", e.Temperature)})
	}
	if _, err := ParseTimestamp(e.Timestamp); err != nil {
		violations = append(violations, Violation{Loc: "timestamp", Msg: err.Error()})
	}
	return violations
}
