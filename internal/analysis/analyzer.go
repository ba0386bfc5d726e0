// Package analysis computes inter-rater agreement and signal-quality
// statistics over a batch of validated evaluation records: variance
// decomposition, ICC(2,1), ordinal chance-corrected agreement, signal
// tiers, ICC-weighted composites, and systematic rater bias. Estimator
// failures degrade to conservative defaults; they never propagate.
package analysis

import (
	"math"
	"sort"

	"panelscore/domain/agreement"
	"panelscore/domain/eval"
	"panelscore/models"
)

// biasThreshold is the absolute rater bias (score points) above which
// a correction factor is recommended.
const biasThreshold = 0.5

// compositeWeightFloor keeps a zero-ICC metric sharply down-weighted in
// composites without erasing its influence entirely.
const compositeWeightFloor = 0.01

// scoreRow is one flattened observation.
type scoreRow struct {
	metricID   string
	metricName string
	panelID    string
	raterID    string
	trial      int
	score      int
}

// Analyze runs the full statistical pipeline over a batch of parse
// outcomes. Failed outcomes count toward the conformance denominator
// and are otherwise excluded. The panel registry partitions metrics
// into panels; panels with no observed metrics are omitted.
func Analyze(parseResults []eval.ParseResult, panels []models.PanelDef) *agreement.FullAnalysis {
	total := len(parseResults)
	var valid []*eval.PanelEvaluation
	for _, pr := range parseResults {
		if pr.Success && pr.Evaluation != nil {
			valid = append(valid, pr.Evaluation)
		}
	}
	conformance := 0.0
	if total > 0 {
		conformance = float64(len(valid)) / float64(total)
	}

	var rows []scoreRow
	for _, ev := range valid {
		for _, item := range ev.Items {
			rows = append(rows, scoreRow{
				metricID:   item.ID,
				metricName: item.Name,
				panelID:    ev.PanelID,
				raterID:    ev.RaterID,
				trial:      ev.Trial,
				score:      item.Score,
			})
		}
	}

	full := &agreement.FullAnalysis{
		Metrics:          map[string]*agreement.MetricAnalysis{},
		TotalEvaluations: total,
		ConformanceRate:  conformance,
	}
	if len(rows) == 0 {
		return full
	}

	for metricID, group := range groupRows(rows) {
		full.Metrics[metricID] = analyzeMetric(metricID, group)
	}

	full.Panels = analyzePanels(full.Metrics, panels)
	full.RaterBiases = analyzeBiases(rows)

	if len(full.Panels) > 0 {
		composites := make([]float64, len(full.Panels))
		for i, pa := range full.Panels {
			composites[i] = pa.Composite
		}
		grand := mean(composites)
		se := sampleSD(composites) / math.Sqrt(float64(len(composites)))
		full.GrandComposite = grand
		full.GrandCompositeCI = agreement.Interval{Lower: grand - 1.96*se, Upper: grand + 1.96*se}
	}

	collectFindings(full)
	return full
}

func groupRows(rows []scoreRow) map[string][]scoreRow {
	grouped := make(map[string][]scoreRow)
	for _, r := range rows {
		grouped[r.metricID] = append(grouped[r.metricID], r)
	}
	return grouped
}

func analyzeMetric(metricID string, group []scoreRow) *agreement.MetricAnalysis {
	allScores := make([]float64, len(group))
	rawScores := make([]int, len(group))
	for i, r := range group {
		allScores[i] = float64(r.score)
		rawScores[i] = r.score
	}

	// Per-rater decomposition.
	byRater := make(map[string][]float64)
	for _, r := range group {
		byRater[r.raterID] = append(byRater[r.raterID], float64(r.score))
	}
	raterIDs := make([]string, 0, len(byRater))
	for id := range byRater {
		raterIDs = append(raterIDs, id)
	}
	sort.Strings(raterIDs)

	raterMeans := make(map[string]float64, len(byRater))
	raterSDs := make(map[string]float64, len(byRater))
	var withinVars, meansList []float64
	for _, id := range raterIDs {
		scores := byRater[id]
		m := mean(scores)
		sd := sampleSD(scores) // a single trial contributes zero variance
		raterMeans[id] = m
		raterSDs[id] = sd
		withinVars = append(withinVars, sd*sd)
		meansList = append(meansList, m)
	}

	// ICC targets are trial indices, each scored once per rater.
	matrix := newICCMatrix()
	for _, r := range group {
		matrix.add(r.trial, r.raterID, float64(r.score))
	}
	iccEst := icc21(matrix)
	icc := iccEst.Or(0)
	iccCI := agreement.Interval{}
	if iccEst.Defined {
		iccCI = iccEst.CI
	}

	withinVariance := mean(withinVars)
	alpha := krippendorffOrdinal(reliabilityMatrix(group, raterIDs))

	return &agreement.MetricAnalysis{
		MetricID:             metricID,
		MetricName:           group[0].metricName,
		PanelID:              group[0].panelID,
		GrandMean:            mean(allScores),
		GrandMedian:          median(allScores),
		GrandSD:              sampleSD(allScores),
		Q1:                   percentile(allScores, 25),
		Q3:                   percentile(allScores, 75),
		RaterMeans:           raterMeans,
		RaterSDs:             raterSDs,
		WithinRaterVariance:  withinVariance,
		BetweenRaterVariance: sampleVariance(meansList),
		ICC:                  icc,
		ICCCI:                iccCI,
		KrippendorffAlpha:    alpha,
		Tier:                 classifyTier(icc, withinVariance),
		NObservations:        len(group),
		Scores:               rawScores,
	}
}

// reliabilityMatrix lays the group out as raters x trial indices for
// the ordinal agreement coefficient, NaN for missing observations.
func reliabilityMatrix(group []scoreRow, raterIDs []string) [][]float64 {
	trialSet := make(map[int]bool)
	for _, r := range group {
		trialSet[r.trial] = true
	}
	trials := make([]int, 0, len(trialSet))
	for t := range trialSet {
		trials = append(trials, t)
	}
	sort.Ints(trials)

	matrix := make([][]float64, len(raterIDs))
	for i, rater := range raterIDs {
		row := make([]float64, len(trials))
		for j, trial := range trials {
			row[j] = math.NaN()
			for _, r := range group {
				if r.raterID == rater && r.trial == trial {
					row[j] = float64(r.score)
					break
				}
			}
		}
		matrix[i] = row
	}
	return matrix
}

func analyzePanels(metrics map[string]*agreement.MetricAnalysis, panels []models.PanelDef) []*agreement.PanelAnalysis {
	var analyses []*agreement.PanelAnalysis
	for _, def := range panels {
		var panelMetrics []*agreement.MetricAnalysis
		for _, id := range sortedMetricIDs(metrics) {
			if metrics[id].PanelID == def.PanelID {
				panelMetrics = append(panelMetrics, metrics[id])
			}
		}
		if len(panelMetrics) == 0 {
			continue
		}

		var weightedSum, totalWeight float64
		for _, ma := range panelMetrics {
			w := math.Max(ma.ICC, compositeWeightFloor)
			weightedSum += ma.GrandMean * w
			totalWeight += w
		}
		composite := weightedSum / totalWeight

		var se float64
		if len(panelMetrics) > 1 {
			means := make([]float64, len(panelMetrics))
			for i, ma := range panelMetrics {
				means[i] = ma.GrandMean
			}
			se = sampleSD(means) / math.Sqrt(float64(len(means)))
		} else {
			se = panelMetrics[0].StandardError()
		}

		iccs := make([]float64, len(panelMetrics))
		withins := make([]float64, len(panelMetrics))
		for i, ma := range panelMetrics {
			iccs[i] = ma.ICC
			withins[i] = ma.WithinRaterVariance
		}

		sortedByMean := make([]*agreement.MetricAnalysis, len(panelMetrics))
		copy(sortedByMean, panelMetrics)
		sort.Slice(sortedByMean, func(i, j int) bool {
			return sortedByMean[i].GrandMean < sortedByMean[j].GrandMean
		})

		analyses = append(analyses, &agreement.PanelAnalysis{
			PanelID:     def.PanelID,
			PanelName:   def.Name,
			Metrics:     panelMetrics,
			Composite:   composite,
			CompositeCI: agreement.Interval{Lower: composite - 1.96*se, Upper: composite + 1.96*se},
			Tier:        classifyTier(median(iccs), mean(withins)),
			Strongest:   sortedByMean[len(sortedByMean)-1],
			Weakest:     sortedByMean[0],
		})
	}
	return analyses
}

func analyzeBiases(rows []scoreRow) []agreement.RaterBias {
	byRater := make(map[string][]float64)
	var all []float64
	for _, r := range rows {
		byRater[r.raterID] = append(byRater[r.raterID], float64(r.score))
		all = append(all, float64(r.score))
	}
	overall := mean(all)

	raterIDs := make([]string, 0, len(byRater))
	for id := range byRater {
		raterIDs = append(raterIDs, id)
	}
	sort.Strings(raterIDs)

	biases := make([]agreement.RaterBias, 0, len(raterIDs))
	for _, id := range raterIDs {
		grand := mean(byRater[id])
		bias := grand - overall
		name := id
		if cfg, err := models.RaterByName(id); err == nil {
			name = cfg.DisplayName
		}
		correction := 0.0
		needs := math.Abs(bias) > biasThreshold
		if needs {
			correction = bias
		}
		biases = append(biases, agreement.RaterBias{
			RaterID:         id,
			RaterName:       name,
			GrandMean:       grand,
			Bias:            bias,
			Correction:      correction,
			NeedsCorrection: needs,
		})
	}
	return biases
}

func collectFindings(full *agreement.FullAnalysis) {
	for _, id := range sortedMetricIDs(full.Metrics) {
		ma := full.Metrics[id]
		switch {
		case ma.GrandMean >= 7.0 && ma.ICC >= 0.75:
			full.ConfirmedStrengths = append(full.ConfirmedStrengths, ma)
		case ma.GrandMean <= 4.0 && ma.ICC >= 0.75:
			full.ConfirmedWeaknesses = append(full.ConfirmedWeaknesses, ma)
		}
		if ma.ICC < 0.50 && ma.ScoreRange() > 3 {
			full.KeyDisagreements = append(full.KeyDisagreements, ma)
		}
	}
	sort.SliceStable(full.ConfirmedStrengths, func(i, j int) bool {
		return full.ConfirmedStrengths[i].GrandMean > full.ConfirmedStrengths[j].GrandMean
	})
	sort.SliceStable(full.ConfirmedWeaknesses, func(i, j int) bool {
		return full.ConfirmedWeaknesses[i].GrandMean < full.ConfirmedWeaknesses[j].GrandMean
	})
	sort.SliceStable(full.KeyDisagreements, func(i, j int) bool {
		return full.KeyDisagreements[i].ICC < full.KeyDisagreements[j].ICC
	})
}

func sortedMetricIDs(metrics map[string]*agreement.MetricAnalysis) []string {
	ids := make([]string, 0, len(metrics))
	for id := range metrics {
		ids = append(ids, id)
	}
	sort.Strings(ids)
	return ids
}
