package analysis

import (
	"context"
	"math"
	"testing"

	"panelscore/internal/parse"
	"panelscore/internal/testkit"
	"panelscore/models"
)

// TestPipeline_SyntheticBatch runs a full generated batch through
// parsing and analysis and checks the batch-level invariants
func TestPipeline_SyntheticBatch(t *testing.T) {
	gen := testkit.NewGenerator(testkit.DefaultConfig())
	responses := gen.Batch()

	results, err := parse.Batch(context.Background(), responses)
	if err != nil {
		t.Fatalf("batch parse failed: %v", err)
	}
	if len(results) != len(responses) {
		t.Fatalf("expected %d results, got %d", len(responses), len(results))
	}
	for _, r := range results {
		if !r.Success {
			t.Fatalf("synthetic response %s failed to parse: %v", r.RunID, r.Errors)
		}
	}

	full := Analyze(results, models.Panels)

	if full.ConformanceRate != 1.0 {
		t.Errorf("conformance = %f, want 1.0", full.ConformanceRate)
	}

	cfg := testkit.DefaultConfig()
	wantMetrics := 0
	for _, p := range cfg.Panels {
		wantMetrics += p.MetricCount
	}
	if len(full.Metrics) != wantMetrics {
		t.Errorf("expected %d metrics, got %d", wantMetrics, len(full.Metrics))
	}
	if len(full.Panels) != len(cfg.Panels) {
		t.Errorf("expected %d panels, got %d", len(cfg.Panels), len(full.Panels))
	}

	for id, ma := range full.Metrics {
		if ma.GrandMean < 1 || ma.GrandMean > 10 {
			t.Errorf("%s mean %f outside score range", id, ma.GrandMean)
		}
		if math.IsNaN(ma.GrandSD) || math.IsNaN(ma.ICC) || math.IsNaN(ma.WithinRaterVariance) {
			t.Errorf("%s carries NaN statistics", id)
		}
		if ma.ICC > 1.0 {
			t.Errorf("%s ICC %f above 1", id, ma.ICC)
		}
		if ma.NObservations != len(cfg.Raters)*cfg.Trials {
			t.Errorf("%s has %d observations, want %d", id, ma.NObservations, len(cfg.Raters)*cfg.Trials)
		}
	}

	for _, p := range full.Panels {
		if p.Composite < 1 || p.Composite > 10 {
			t.Errorf("panel %s composite %f outside score range", p.PanelID, p.Composite)
		}
		if p.CompositeCI.Lower > p.Composite || p.CompositeCI.Upper < p.Composite {
			t.Errorf("panel %s CI does not bracket composite", p.PanelID)
		}
	}

	if full.GrandComposite < 1 || full.GrandComposite > 10 {
		t.Errorf("grand composite %f outside score range", full.GrandComposite)
	}
	if len(full.RaterBiases) != len(cfg.Raters) {
		t.Errorf("expected %d rater biases, got %d", len(cfg.Raters), len(full.RaterBiases))
	}
}

// TestPipeline_DeterministicSeed verifies two generators with the same
// seed produce identical analyses
func TestPipeline_DeterministicSeed(t *testing.T) {
	run := func() float64 {
		gen := testkit.NewGenerator(testkit.DefaultConfig())
		results, err := parse.Batch(context.Background(), gen.Batch())
		if err != nil {
			t.Fatalf("parse failed: %v", err)
		}
		return Analyze(results, models.Panels).GrandComposite
	}
	if a, b := run(), run(); a != b {
		t.Errorf("same seed gave different composites: %f vs %f", a, b)
	}
}

// TestPipeline_InjectedBiasDetected verifies a deliberately generous
// rater is flagged for correction
func TestPipeline_InjectedBiasDetected(t *testing.T) {
	cfg := testkit.DefaultConfig()
	cfg.NoiseSD = 0.3
	cfg.RaterBias = []float64{2.0, -1.0, -1.0}
	gen := testkit.NewGenerator(cfg)

	results, err := parse.Batch(context.Background(), gen.Batch())
	if err != nil {
		t.Fatalf("parse failed: %v", err)
	}
	full := Analyze(results, models.Panels)

	generous := cfg.Raters[0].APIModelID
	found := false
	for _, rb := range full.RaterBiases {
		if rb.RaterID == generous {
			found = true
			if rb.Bias <= 0.5 {
				t.Errorf("generous rater bias %f should exceed threshold", rb.Bias)
			}
			if !rb.NeedsCorrection {
				t.Error("generous rater should need correction")
			}
		}
	}
	if !found {
		t.Fatalf("rater %s missing from bias list", generous)
	}
}
