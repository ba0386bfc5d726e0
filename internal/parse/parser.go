// Package parse turns raw rater responses into validated canonical
// records. It chains extraction, JSON decoding, normalization,
// structural validation, and advisory cross-checks; per-record failures
// never abort a batch.
package parse

import (
	"context"
	"encoding/json"
	"fmt"
	"strings"

	"golang.org/x/sync/errgroup"

	"panelscore/domain/eval"
	"panelscore/internal/extract"
	"panelscore/internal/normalize"
)

// DefaultWorkers bounds batch fan-out. Records are independent, so the
// per-record stage parallelizes freely; the aggregate stage does not.
const DefaultWorkers = 8

// Response parses and validates a single raw rater response.
func Response(raw eval.RawResponse) eval.ParseResult {
	// The extractor passes brace-less text through unchanged, so
	// anything not starting with an object is an extraction failure,
	// not a decode failure.
	jsonStr := extract.JSONObject(raw.RawText)
	if !strings.HasPrefix(jsonStr, "{") {
		return eval.ParseResult{
			RunID:  raw.RunID,
			Errors: []string{"no JSON object found in response"},
		}
	}

	var decoded map[string]any
	if err := json.Unmarshal([]byte(jsonStr), &decoded); err != nil {
		return eval.ParseResult{
			RunID:  raw.RunID,
			Errors: []string{fmt.Sprintf("invalid JSON: %v", err)},
		}
	}

	env := raw.Envelope
	normalized := normalize.Evaluation(decoded, &env)

	evaluation, violations := decodeEvaluation(normalized)
	violations = append(violations, evaluation.Validate()...)
	if len(violations) > 0 {
		errs := make([]string, len(violations))
		for i, v := range violations {
			errs[i] = v.String()
		}
		return eval.ParseResult{RunID: raw.RunID, Errors: errs}
	}

	return eval.ParseResult{
		RunID:      raw.RunID,
		Success:    true,
		Evaluation: evaluation,
		Warnings:   crossCheck(evaluation, raw.PanelID, raw.ExpectedItems),
	}
}

// crossCheck compares a validated record against its panel
// expectations. Mismatches are advisories for the audit trail, never
// grounds for exclusion.
func crossCheck(e *eval.PanelEvaluation, expectedPanel string, expectedItems int) []string {
	var warnings []string
	if expectedPanel != "" && e.PanelID != expectedPanel {
		warnings = append(warnings, fmt.Sprintf("panel ID mismatch: expected %s, got %s", expectedPanel, e.PanelID))
	}
	if expectedItems > 0 && len(e.Items) != expectedItems {
		warnings = append(warnings, fmt.Sprintf("metric count mismatch: expected %d, got %d", expectedItems, len(e.Items)))
	}
	if expectedPanel != "" {
		prefix := expectedPanel + "."
		for _, item := range e.Items {
			if !strings.HasPrefix(item.ID, prefix) {
				warnings = append(warnings, fmt.Sprintf("metric ID %s doesn't match panel %s", item.ID, expectedPanel))
			}
		}
	}
	return warnings
}

// Batch parses a batch of responses with bounded concurrency,
// preserving input order. Parse failures surface as failed results, so
// the only returned error is context cancellation.
func Batch(ctx context.Context, responses []eval.RawResponse) ([]eval.ParseResult, error) {
	return BatchN(ctx, responses, DefaultWorkers)
}

// BatchN is Batch with an explicit worker count.
func BatchN(ctx context.Context, responses []eval.RawResponse, workers int) ([]eval.ParseResult, error) {
	if workers < 1 {
		workers = DefaultWorkers
	}
	results := make([]eval.ParseResult, len(responses))

	g, ctx := errgroup.WithContext(ctx)
	g.SetLimit(workers)
	for i, raw := range responses {
		g.Go(func() error {
			if err := ctx.Err(); err != nil {
				return err
			}
			results[i] = Response(raw)
			return nil
		})
	}
	if err := g.Wait(); err != nil {
		return nil, err
	}
	return results, nil
}
