package agreement

import (
	"fmt"
	"math"
)

// SignalTier is the discrete trust classification for a metric or panel.
type SignalTier string

const (
	TierSignal         SignalTier = "Signal"
	TierProbableSignal SignalTier = "Probable Signal"
	TierAmbiguous      SignalTier = "Ambiguous"
	TierNoise          SignalTier = "Noise"
)

// Interval is a two-sided confidence interval.
type Interval struct {
	Lower float64 `json:"lower"`
	Upper float64 `json:"upper"`
}

// Estimate carries either a numeric estimator outcome or an explicit
// undefined sentinel. Consumers must check Defined rather than treating
// a missing value as zero implicitly.
type Estimate struct {
	Value   float64  `json:"value"`
	CI      Interval `json:"ci"`
	Defined bool     `json:"defined"`
}

// Undefined is the conservative sentinel for a failed estimator.
func Undefined() Estimate {
	return Estimate{}
}

// Defined wraps a successful estimate.
func Defined(value float64, ci Interval) Estimate {
	return Estimate{Value: value, CI: ci, Defined: true}
}

// Or resolves the estimate, substituting def when undefined.
func (e Estimate) Or(def float64) float64 {
	if e.Defined {
		return e.Value
	}
	return def
}

// MetricAnalysis aggregates one scored item across the whole batch.
type MetricAnalysis struct {
	MetricID   string `json:"metric_id"`
	MetricName string `json:"metric_name"`
	PanelID    string `json:"panel_id"`

	GrandMean   float64 `json:"grand_mean"`
	GrandMedian float64 `json:"grand_median"`
	GrandSD     float64 `json:"grand_sd"`
	Q1          float64 `json:"q1"`
	Q3          float64 `json:"q3"`

	RaterMeans map[string]float64 `json:"rater_means"`
	RaterSDs   map[string]float64 `json:"rater_sds"`

	WithinRaterVariance  float64 `json:"within_rater_variance"`
	BetweenRaterVariance float64 `json:"between_rater_variance"`

	// ICC(2,1) point estimate with 95% CI. Estimator failure is folded
	// into a zero estimate with a zero-width interval.
	ICC   float64  `json:"icc"`
	ICCCI Interval `json:"icc_ci"`

	// Ordinal chance-corrected agreement; undefined when the coefficient
	// cannot be computed (degenerate variance, too little data).
	KrippendorffAlpha Estimate `json:"krippendorff_alpha"`

	Tier          SignalTier `json:"signal_tier"`
	NObservations int        `json:"n_observations"`
	Scores        []int      `json:"scores"`
}

// StandardError of the grand mean.
func (m *MetricAnalysis) StandardError() float64 {
	if m.NObservations == 0 {
		return 0
	}
	return m.GrandSD / math.Sqrt(float64(m.NObservations))
}

// CI is the 95% normal-approximation interval around the grand mean.
func (m *MetricAnalysis) CI() Interval {
	se := m.StandardError()
	return Interval{Lower: m.GrandMean - 1.96*se, Upper: m.GrandMean + 1.96*se}
}

// ScoreRange is max - min over the raw score list.
func (m *MetricAnalysis) ScoreRange() int {
	if len(m.Scores) == 0 {
		return 0
	}
	lo, hi := m.Scores[0], m.Scores[0]
	for _, s := range m.Scores[1:] {
		if s < lo {
			lo = s
		}
		if s > hi {
			hi = s
		}
	}
	return hi - lo
}

// AgreementLabel is the coarse convergence label used in reports.
func (m *MetricAnalysis) AgreementLabel() string {
	switch {
	case m.ICC >= 0.75:
		return "Converged"
	case m.ICC >= 0.50:
		return "Moderate"
	default:
		return "Divergent"
	}
}

func (m *MetricAnalysis) SummaryLine() string {
	ci := m.CI()
	return fmt.Sprintf("%s %s: %.1f [95%% CI: %.1f, %.1f] | ICC=%.2f | %s | %s",
		m.MetricID, m.MetricName, m.GrandMean, ci.Lower, ci.Upper, m.ICC, m.AgreementLabel(), m.Tier)
}

// PanelAnalysis is one panel's ICC-weighted composite.
type PanelAnalysis struct {
	PanelID     string            `json:"panel_id"`
	PanelName   string            `json:"panel_name"`
	Metrics     []*MetricAnalysis `json:"metrics"`
	Composite   float64           `json:"composite_score"`
	CompositeCI Interval          `json:"composite_ci"`
	Tier        SignalTier        `json:"signal_tier"`
	Strongest   *MetricAnalysis   `json:"strongest_metric,omitempty"`
	Weakest     *MetricAnalysis   `json:"weakest_metric,omitempty"`
}

// RaterBias is the systematic deviation of one rater from the batch
// grand mean. Correction is zero unless |Bias| exceeds the threshold.
type RaterBias struct {
	RaterID         string  `json:"rater_id"`
	RaterName       string  `json:"rater_name"`
	GrandMean       float64 `json:"grand_mean"`
	Bias            float64 `json:"bias"`
	Correction      float64 `json:"correction_factor"`
	NeedsCorrection bool    `json:"needs_correction"`
}

// FullAnalysis is the terminal batch-level result handed to reporting.
type FullAnalysis struct {
	Metrics          map[string]*MetricAnalysis `json:"metric_analyses"`
	Panels           []*PanelAnalysis           `json:"panel_analyses"`
	RaterBiases      []RaterBias                `json:"rater_biases"`
	GrandComposite   float64                    `json:"grand_composite"`
	GrandCompositeCI Interval                   `json:"grand_composite_ci"`
	TotalEvaluations int                        `json:"total_evaluations"`
	ConformanceRate  float64                    `json:"conformance_rate"`

	ConfirmedStrengths  []*MetricAnalysis `json:"confirmed_strengths"`
	ConfirmedWeaknesses []*MetricAnalysis `json:"confirmed_weaknesses"`
	KeyDisagreements    []*MetricAnalysis `json:"key_disagreements"`
}

