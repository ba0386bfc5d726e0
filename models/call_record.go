package models

import "time"

// CallRecord is one persisted rater call: the trusted envelope captured
// at request time plus the raw response text and usage accounting. The
// raw text is stored verbatim so a batch can be re-parsed and
// re-analyzed without re-spending API budget.
type CallRecord struct {
	RunID           string    `db:"run_id" json:"run_id"`
	PanelID         string    `db:"panel_id" json:"panel_id"`
	PanelName       string    `db:"panel_name" json:"panel_name"`
	RaterID         string    `db:"rater_id" json:"model_requested"`
	RaterReported   string    `db:"rater_reported" json:"model_reported"`
	Trial           int       `db:"trial" json:"iteration"`
	Temperature     float64   `db:"temperature" json:"temperature"`
	Timestamp       time.Time `db:"created_at" json:"timestamp"`
	InputTokens     int       `db:"input_tokens" json:"input_tokens"`
	OutputTokens    int       `db:"output_tokens" json:"output_tokens"`
	CostUSD         float64   `db:"cost_usd" json:"cost_usd"`
	DurationSeconds float64   `db:"duration_seconds" json:"duration_seconds"`
	StopReason      string    `db:"stop_reason" json:"stop_reason"`
	RawText         string    `db:"raw_text" json:"raw_text"`
	Failed          bool      `db:"failed" json:"failed"`
	FailureReason   string    `db:"failure_reason" json:"failure_reason,omitempty"`
}
