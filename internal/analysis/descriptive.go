package analysis

import (
	"math"
	"sort"

	"github.com/montanaflynn/stats"
)

// mean of a sample; 0 for empty input.
func mean(data []float64) float64 {
	if len(data) == 0 {
		return 0
	}
	m, err := stats.Mean(data)
	if err != nil {
		return 0
	}
	return m
}

func median(data []float64) float64 {
	if len(data) == 0 {
		return 0
	}
	m, err := stats.Median(data)
	if err != nil {
		return 0
	}
	return m
}

// sampleSD is the n-1 standard deviation, defined as 0 for n < 2.
func sampleSD(data []float64) float64 {
	if len(data) < 2 {
		return 0
	}
	sd, err := stats.StandardDeviationSample(data)
	if err != nil {
		return 0
	}
	return sd
}

// sampleVariance is the n-1 variance, defined as 0 for n < 2.
func sampleVariance(data []float64) float64 {
	if len(data) < 2 {
		return 0
	}
	v, err := stats.SampleVariance(data)
	if err != nil {
		return 0
	}
	return v
}

// percentile computes the p-th percentile with linear interpolation
// between closest ranks. stats.Percentile uses the nearest-rank
// convention, which disagrees with the interpolated quartiles the
// confidence math expects, so this stays local.
func percentile(data []float64, p float64) float64 {
	if len(data) == 0 {
		return 0
	}
	sorted := make([]float64, len(data))
	copy(sorted, data)
	sort.Float64s(sorted)

	pos := p / 100 * float64(len(sorted)-1)
	lo := int(math.Floor(pos))
	hi := int(math.Ceil(pos))
	if lo == hi {
		return sorted[lo]
	}
	frac := pos - float64(lo)
	return sorted[lo]*(1-frac) + sorted[hi]*frac
}
