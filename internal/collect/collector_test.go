package collect

import (
	"context"
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"panelscore/adapters/memory"
	"panelscore/models"
	"panelscore/ports"
)

// stubClient returns a canned response, or an error for panels listed
// in failOn.
type stubClient struct {
	calls  int
	failOn map[string]bool
}

func (s *stubClient) Submit(ctx context.Context, req ports.RaterRequest) (*ports.RaterResponse, error) {
	s.calls++
	if s.failOn[req.User] {
		return nil, errors.New("rate limited")
	}
	return &ports.RaterResponse{
		Content:    `{"panel_id": "101", "metrics": [{"id": "101.1", "score": 7}]}`,
		StopReason: "end_turn",
		Usage:      ports.RaterUsage{InputTokens: 1000, OutputTokens: 200, Model: req.Model},
	}, nil
}

type stubPrompts struct{}

func (stubPrompts) SystemPrompt() (string, error) { return "system", nil }
func (stubPrompts) PanelPrompt(p models.PanelDef) (string, error) {
	return "panel " + p.PanelID, nil
}

func testRater(provider models.Provider) models.RaterConfig {
	return models.RaterConfig{
		Provider:           provider,
		APIModelID:         "test-model",
		DisplayName:        "Test Model",
		InputCostPerMTok:   2.0,
		OutputCostPerMTok:  10.0,
		TemperatureCenter:  0.5,
		TemperatureOffsets: []float64{-0.1, 0.0},
		MaxOutputTokens:    1000,
	}
}

func TestCollector_RunsFullGrid(t *testing.T) {
	client := &stubClient{}
	store := memory.NewResultStore()
	c := NewCollector(map[models.Provider]ports.RaterClient{models.ProviderOpenAI: client},
		store, stubPrompts{}, 2, nil)

	raters := []models.RaterConfig{testRater(models.ProviderOpenAI)}
	panels := models.Panels[:3]

	summary, err := c.Run(context.Background(), raters, panels)
	require.NoError(t, err)

	assert.Equal(t, 6, summary.Submitted)
	assert.Equal(t, 0, summary.Skipped)
	assert.Equal(t, 0, summary.Failed)
	assert.Equal(t, 6, client.calls)

	records, err := store.List(context.Background())
	require.NoError(t, err)
	require.Len(t, records, 6)

	rec := records[0]
	assert.Equal(t, "101", rec.PanelID)
	assert.Equal(t, "test-model", rec.RaterID)
	assert.NotEmpty(t, rec.RunID)
	assert.False(t, rec.Timestamp.IsZero())
	assert.InDelta(t, 1000.0/1e6*2.0+200.0/1e6*10.0, rec.CostUSD, 1e-9)
	assert.Equal(t, "end_turn", rec.StopReason)
}

// TestCollector_ResumeSkipsCompleted verifies a second run only spends
// budget on the gaps
func TestCollector_ResumeSkipsCompleted(t *testing.T) {
	client := &stubClient{}
	store := memory.NewResultStore()
	c := NewCollector(map[models.Provider]ports.RaterClient{models.ProviderOpenAI: client},
		store, stubPrompts{}, 2, nil)

	raters := []models.RaterConfig{testRater(models.ProviderOpenAI)}
	panels := models.Panels[:2]

	_, err := c.Run(context.Background(), raters, panels)
	require.NoError(t, err)
	require.Equal(t, 4, client.calls)

	summary, err := c.Run(context.Background(), raters, panels)
	require.NoError(t, err)
	assert.Equal(t, 0, summary.Submitted)
	assert.Equal(t, 4, summary.Skipped)
	assert.Equal(t, 4, client.calls, "no additional API calls on resume")
}

// TestCollector_FailureRecordedAndRetriedOnResume verifies one attempt
// per run, with failed calls eligible again next run
func TestCollector_FailureRecordedAndRetriedOnResume(t *testing.T) {
	client := &stubClient{failOn: map[string]bool{"panel 101": true}}
	store := memory.NewResultStore()
	c := NewCollector(map[models.Provider]ports.RaterClient{models.ProviderOpenAI: client},
		store, stubPrompts{}, 1, nil)

	raters := []models.RaterConfig{testRater(models.ProviderOpenAI)}
	panels := models.Panels[:2]

	summary, err := c.Run(context.Background(), raters, panels)
	require.NoError(t, err)
	assert.Equal(t, 2, summary.Submitted)
	assert.Equal(t, 1, summary.Failed)
	assert.Equal(t, 2, client.calls, "exactly one attempt per call")

	records, _ := store.List(context.Background())
	var failed *models.CallRecord
	for _, rec := range records {
		if rec.Failed {
			failed = rec
		}
	}
	require.NotNil(t, failed)
	assert.Equal(t, "101", failed.PanelID)
	assert.Contains(t, failed.FailureReason, "rate limited")
	assert.Empty(t, failed.RawText)

	// Next run retries only the failed cell.
	client.failOn = nil
	summary, err = c.Run(context.Background(), raters, panels)
	require.NoError(t, err)
	assert.Equal(t, 1, summary.Submitted)
	assert.Equal(t, 1, summary.Skipped)
	assert.Equal(t, 0, summary.Failed)
}

// TestCollector_MissingProviderRecordsFailure verifies a rater without
// a configured client degrades to failed records, not an abort
func TestCollector_MissingProviderRecordsFailure(t *testing.T) {
	store := memory.NewResultStore()
	c := NewCollector(map[models.Provider]ports.RaterClient{}, store, stubPrompts{}, 1, nil)

	summary, err := c.Run(context.Background(),
		[]models.RaterConfig{testRater(models.ProviderAnthropic)}, models.Panels[:1])
	require.NoError(t, err)
	assert.Equal(t, 1, summary.Failed)

	records, _ := store.List(context.Background())
	require.Len(t, records, 1)
	assert.Contains(t, records[0].FailureReason, "no client for provider")
}

// TestCollector_TemperatureSchedule verifies trials carry the
// schedule's temperatures
func TestCollector_TemperatureSchedule(t *testing.T) {
	client := &stubClient{}
	store := memory.NewResultStore()
	c := NewCollector(map[models.Provider]ports.RaterClient{models.ProviderOpenAI: client},
		store, stubPrompts{}, 2, nil)

	_, err := c.Run(context.Background(),
		[]models.RaterConfig{testRater(models.ProviderOpenAI)}, models.Panels[:1])
	require.NoError(t, err)

	records, _ := store.List(context.Background())
	require.Len(t, records, 2)
	assert.InDelta(t, 0.4, records[0].Temperature, 1e-9)
	assert.InDelta(t, 0.5, records[1].Temperature, 1e-9)
}

func TestCollector_Cancelled(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	c := NewCollector(map[models.Provider]ports.RaterClient{}, memory.NewResultStore(), stubPrompts{}, 1, nil)
	_, err := c.Run(ctx, []models.RaterConfig{testRater(models.ProviderOpenAI)}, models.Panels[:1])
	assert.Error(t, err)
}
