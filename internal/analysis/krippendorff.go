package analysis

import (
	"math"
	"sort"

	"panelscore/domain/agreement"
)

// krippendorffOrdinal computes Krippendorff's alpha for ordinal data
// over a raters x units reliability matrix, with NaN marking missing
// cells. Units rated fewer than two times contribute nothing. Any
// degenerate outcome (no pairable values, zero expected disagreement,
// NaN) is reported as undefined rather than a number.
func krippendorffOrdinal(reliability [][]float64) agreement.Estimate {
	if len(reliability) == 0 {
		return agreement.Undefined()
	}
	units := 0
	for _, row := range reliability {
		if len(row) > units {
			units = len(row)
		}
	}

	// Category frequencies from pairable units only.
	type unitCounts map[float64]int
	var pairable []unitCounts
	freq := make(map[float64]int)
	n := 0
	for u := 0; u < units; u++ {
		counts := make(unitCounts)
		m := 0
		for _, row := range reliability {
			if u >= len(row) {
				continue
			}
			v := row[u]
			if math.IsNaN(v) {
				continue
			}
			counts[v]++
			m++
		}
		if m < 2 {
			continue
		}
		pairable = append(pairable, counts)
		for v, c := range counts {
			freq[v] += c
		}
		n += m
	}
	if n < 2 || len(freq) < 2 {
		return agreement.Undefined()
	}

	categories := make([]float64, 0, len(freq))
	for v := range freq {
		categories = append(categories, v)
	}
	sort.Float64s(categories)
	index := make(map[float64]int, len(categories))
	for i, c := range categories {
		index[c] = i
	}

	// Ordinal distance: squared difference of cumulative frequencies
	// between the two categories, counting each endpoint at half weight.
	delta := func(ci, cj int) float64 {
		if ci > cj {
			ci, cj = cj, ci
		}
		sum := 0.0
		for g := ci; g <= cj; g++ {
			sum += float64(freq[categories[g]])
		}
		sum -= (float64(freq[categories[ci]]) + float64(freq[categories[cj]])) / 2
		return sum * sum
	}

	// Observed coincidences.
	observed := 0.0
	for _, counts := range pairable {
		m := 0
		for _, c := range counts {
			m += c
		}
		for vi, ci := range counts {
			for vj, cj := range counts {
				if vi == vj {
					continue
				}
				pairs := float64(ci * cj)
				observed += pairs * delta(index[vi], index[vj]) / float64(m-1)
			}
		}
	}

	// Expected coincidences under chance assignment.
	expected := 0.0
	for vi, ci := range freq {
		for vj, cj := range freq {
			if vi == vj {
				continue
			}
			expected += float64(ci) * float64(cj) * delta(index[vi], index[vj])
		}
	}
	expected /= float64(n - 1)

	if expected <= 0 || math.IsNaN(expected) {
		return agreement.Undefined()
	}
	alpha := 1 - observed/expected
	if math.IsNaN(alpha) || math.IsInf(alpha, 0) {
		return agreement.Undefined()
	}
	return agreement.Defined(alpha, agreement.Interval{Lower: alpha, Upper: alpha})
}
