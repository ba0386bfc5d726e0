// Package testkit generates seeded synthetic rater responses so the
// full pipeline can be exercised without spending API budget.
package testkit

import (
	"encoding/json"
	"fmt"
	"math"
	"math/rand"

	"panelscore/domain/eval"
	"panelscore/models"
)

// GeneratorConfig controls the synthetic batch shape.
type GeneratorConfig struct {
	Raters []models.RaterConfig
	Panels []models.PanelDef
	Trials int

	// BaseScore is the latent quality each rater estimates; NoiseSD is
	// the per-observation spread, RaterBias a systematic per-rater shift
	// (indexed in Raters order).
	BaseScore float64
	NoiseSD   float64
	RaterBias []float64

	// WrapFenceRate is the fraction of responses wrapped in a markdown
	// code fence; PreambleRate the fraction prefixed with prose. Both
	// must survive extraction unchanged.
	WrapFenceRate float64
	PreambleRate  float64

	Seed int64
}

// DefaultConfig returns a small three-rater batch with mild noise.
func DefaultConfig() GeneratorConfig {
	return GeneratorConfig{
		Raters:        models.AllRaters,
		Panels:        models.Panels[:2],
		Trials:        3,
		BaseScore:     7.0,
		NoiseSD:       0.8,
		WrapFenceRate: 0.3,
		PreambleRate:  0.2,
		Seed:          42,
	}
}

// Generator produces deterministic synthetic batches.
type Generator struct {
	cfg GeneratorConfig
	rng *rand.Rand
}

func NewGenerator(cfg GeneratorConfig) *Generator {
	return &Generator{cfg: cfg, rng: rand.New(rand.NewSource(cfg.Seed))}
}

// Batch generates one raw response per panel, rater, and trial.
func (g *Generator) Batch() []eval.RawResponse {
	var out []eval.RawResponse
	for _, panel := range g.cfg.Panels {
		for ri, rater := range g.cfg.Raters {
			for trial := 1; trial <= g.cfg.Trials; trial++ {
				out = append(out, g.response(panel, rater, ri, trial))
			}
		}
	}
	return out
}

func (g *Generator) response(panel models.PanelDef, rater models.RaterConfig, raterIdx, trial int) eval.RawResponse {
	body := g.evaluationJSON(panel, rater, raterIdx, trial)

	text := body
	switch {
	case g.rng.Float64() < g.cfg.WrapFenceRate:
		text = "```json\n" + body + "\n```"
	case g.rng.Float64() < g.cfg.PreambleRate:
		text = "Here is my evaluation:\n\n" + body + "\n\nLet me know if you need detail."
	}

	return eval.RawResponse{
		RunID:         fmt.Sprintf("synthetic-%s-%s-%d", panel.PanelID, rater.APIModelID, trial),
		PanelID:       panel.PanelID,
		ExpectedItems: panel.MetricCount,
		RawText:       text,
		Envelope: eval.Envelope{
			RaterID:     rater.APIModelID,
			Trial:       trial,
			Temperature: rater.TemperatureForTrial(trial),
			Timestamp:   "2026-01-15T12:00:00Z",
			PanelName:   panel.Name,
		},
	}
}

func (g *Generator) evaluationJSON(panel models.PanelDef, rater models.RaterConfig, raterIdx, trial int) string {
	items := make([]map[string]any, panel.MetricCount)
	for i := 0; i < panel.MetricCount; i++ {
		items[i] = map[string]any{
			"id":            fmt.Sprintf("%s.%d", panel.PanelID, i+1),
			"name":          fmt.Sprintf("Criterion %d", i+1),
			"score":         g.sampleScore(raterIdx),
			"justification": "Synthetic assessment.",
			"evidence":      []string{"observed in fixture"},
		}
	}

	doc := map[string]any{
		"panel_id":           panel.PanelID,
		"panel_name":         panel.Name,
		"evaluator_model":    rater.APIModelID,
		"iteration":          trial,
		"timestamp":          "2026-01-15T12:00:00Z",
		"overall_assessment": "Synthetic batch evaluation.",
		"metrics":            items,
	}

	data, err := json.MarshalIndent(doc, "", "  ")
	if err != nil {
		panic(err)
	}
	return string(data)
}

// sampleScore draws an integer 1..10 around the configured base plus
// the rater's systematic bias.
func (g *Generator) sampleScore(raterIdx int) int {
	bias := 0.0
	if raterIdx < len(g.cfg.RaterBias) {
		bias = g.cfg.RaterBias[raterIdx]
	}
	v := g.cfg.BaseScore + bias + g.rng.NormFloat64()*g.cfg.NoiseSD
	score := int(math.Round(v))
	if score < 1 {
		score = 1
	}
	if score > 10 {
		score = 10
	}
	return score
}
