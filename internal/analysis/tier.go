package analysis

import "panelscore/domain/agreement"

// classifyTier maps (ICC, within-rater variance) to a signal tier.
// The rules are evaluated in order; the first match wins. The same
// rule applies at metric and panel level.
func classifyTier(icc, withinVariance float64) agreement.SignalTier {
	switch {
	case icc >= 0.75 && withinVariance <= 1.5:
		return agreement.TierSignal
	case icc >= 0.50 && withinVariance <= 2.5:
		return agreement.TierProbableSignal
	case icc >= 0.30 || withinVariance > 2.5:
		return agreement.TierAmbiguous
	default:
		return agreement.TierNoise
	}
}
