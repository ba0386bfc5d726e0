// Package collect drives the rater panels: for every panel, rater, and
// trial it submits one request, prices the usage, and persists the raw
// response. Collection is resumable; calls that already have a
// successful record are skipped, so re-running a partially failed batch
// only spends budget on the gaps.
package collect

import (
	"context"
	"fmt"
	"os"
	"path/filepath"
	"time"

	"github.com/google/uuid"

	"panelscore/internal"
	"panelscore/internal/errors"
	"panelscore/models"
	"panelscore/ports"
)

// Collector runs a full evaluation batch against the rater registry.
type Collector struct {
	clients map[models.Provider]ports.RaterClient
	store   ports.ResultStore
	prompts PromptSource
	trials  int
	logger  *internal.Logger
}

// PromptSource supplies the system prompt and per-panel user prompts.
type PromptSource interface {
	SystemPrompt() (string, error)
	PanelPrompt(panel models.PanelDef) (string, error)
}

// NewCollector wires a collector over the given provider clients.
func NewCollector(clients map[models.Provider]ports.RaterClient, store ports.ResultStore, prompts PromptSource, trials int, logger *internal.Logger) *Collector {
	if logger == nil {
		logger = internal.DefaultLogger
	}
	return &Collector{
		clients: clients,
		store:   store,
		prompts: prompts,
		trials:  trials,
		logger:  logger,
	}
}

// BatchSummary reports what a Run did.
type BatchSummary struct {
	Submitted int
	Skipped   int
	Failed    int
	CostUSD   float64
}

// Run executes the batch: panels in registry order, raters in registry
// order, trials 1..N. Each call gets exactly one attempt. A failed call
// is recorded with its failure reason and the batch continues; the only
// error Run returns is context cancellation or a store failure.
func (c *Collector) Run(ctx context.Context, raters []models.RaterConfig, panels []models.PanelDef) (*BatchSummary, error) {
	existing, err := c.completedCalls(ctx)
	if err != nil {
		return nil, errors.Wrap(err, "failed to load prior call records")
	}

	system, err := c.prompts.SystemPrompt()
	if err != nil {
		return nil, errors.Wrap(err, "failed to load system prompt")
	}

	summary := &BatchSummary{}
	for _, panel := range panels {
		user, err := c.prompts.PanelPrompt(panel)
		if err != nil {
			return nil, errors.Wrapf(err, "failed to load prompt for panel %s", panel.PanelID)
		}
		for _, rater := range raters {
			for trial := 1; trial <= c.trials; trial++ {
				if err := ctx.Err(); err != nil {
					return summary, err
				}
				key := callKey(panel.PanelID, rater.APIModelID, trial)
				if existing[key] {
					summary.Skipped++
					continue
				}
				record := c.call(ctx, rater, panel, trial, system, user)
				if err := c.store.Save(ctx, record); err != nil {
					return summary, errors.Wrap(err, "failed to persist call record")
				}
				summary.Submitted++
				summary.CostUSD += record.CostUSD
				if record.Failed {
					summary.Failed++
				}
			}
		}
	}
	c.logger.Info("batch complete: %d submitted, %d skipped, %d failed, $%.2f",
		summary.Submitted, summary.Skipped, summary.Failed, summary.CostUSD)
	return summary, nil
}

// call performs a single rater request and packages the outcome. Errors
// never escape; they become failed records so the batch keeps moving.
func (c *Collector) call(ctx context.Context, rater models.RaterConfig, panel models.PanelDef, trial int, system, user string) *models.CallRecord {
	record := &models.CallRecord{
		RunID:       uuid.New().String(),
		PanelID:     panel.PanelID,
		PanelName:   panel.Name,
		RaterID:     rater.APIModelID,
		Trial:       trial,
		Temperature: rater.TemperatureForTrial(trial),
		Timestamp:   time.Now().UTC(),
	}

	client, ok := c.clients[rater.Provider]
	if !ok {
		record.Failed = true
		record.FailureReason = fmt.Sprintf("no client for provider %s", rater.Provider)
		c.logger.Warn("skipping %s: %s", rater.DisplayName, record.FailureReason)
		return record
	}

	c.logger.Info("panel %s / %s trial %d (temp %.2f)", panel.PanelID, rater.DisplayName, trial, record.Temperature)
	start := time.Now()
	resp, err := client.Submit(ctx, ports.RaterRequest{
		Model:           rater.APIModelID,
		System:          system,
		User:            user,
		Temperature:     record.Temperature,
		MaxOutputTokens: rater.MaxOutputTokens,
	})
	record.DurationSeconds = time.Since(start).Seconds()

	if err != nil {
		record.Failed = true
		record.FailureReason = errors.RaterError(rater.DisplayName, err).Error()
		c.logger.Error("panel %s / %s trial %d failed: %v", panel.PanelID, rater.DisplayName, trial, err)
		return record
	}

	record.RawText = resp.Content
	record.StopReason = resp.StopReason
	record.RaterReported = resp.Usage.Model
	record.InputTokens = resp.Usage.InputTokens
	record.OutputTokens = resp.Usage.OutputTokens
	record.CostUSD = rater.Cost(resp.Usage.InputTokens, resp.Usage.OutputTokens)
	return record
}

// completedCalls returns the (panel, rater, trial) keys that already
// have a successful record. Failed records do not count; a re-run gives
// them their one fresh attempt.
func (c *Collector) completedCalls(ctx context.Context) (map[string]bool, error) {
	records, err := c.store.List(ctx)
	if err != nil {
		return nil, err
	}
	done := make(map[string]bool, len(records))
	for _, r := range records {
		if !r.Failed {
			done[callKey(r.PanelID, r.RaterID, r.Trial)] = true
		}
	}
	return done, nil
}

func callKey(panelID, raterID string, trial int) string {
	return fmt.Sprintf("%s|%s|%d", panelID, raterID, trial)
}

// FilePrompts loads prompts from a directory: system.md for the shared
// system prompt and <panel id>.md per panel.
type FilePrompts struct {
	Dir string
}

func (p FilePrompts) SystemPrompt() (string, error) {
	data, err := os.ReadFile(filepath.Join(p.Dir, "system.md"))
	if err != nil {
		return "", err
	}
	return string(data), nil
}

func (p FilePrompts) PanelPrompt(panel models.PanelDef) (string, error) {
	data, err := os.ReadFile(filepath.Join(p.Dir, panel.PanelID+".md"))
	if err != nil {
		return "", err
	}
	return string(data), nil
}
