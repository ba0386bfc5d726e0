package analysis

import (
	"math"

	"gonum.org/v1/gonum/stat/distuv"

	"panelscore/domain/agreement"
)

// iccMatrix holds one metric's ratings as targets x raters, where a
// target is one trial index scored once by each rater. NaN marks a
// missing cell.
type iccMatrix struct {
	raters  []string
	targets []int
	cells   map[int]map[string]float64
}

func newICCMatrix() *iccMatrix {
	return &iccMatrix{cells: make(map[int]map[string]float64)}
}

func (m *iccMatrix) add(target int, rater string, score float64) {
	row, ok := m.cells[target]
	if !ok {
		row = make(map[string]float64)
		m.cells[target] = row
		m.targets = append(m.targets, target)
	}
	if _, seen := row[rater]; !seen {
		if !containsString(m.raters, rater) {
			m.raters = append(m.raters, rater)
		}
	}
	row[rater] = score
}

// complete returns the targets x raters grid restricted to targets
// every rater actually scored. ICC's two-way ANOVA needs a complete
// grid; incomplete targets are dropped rather than imputed.
func (m *iccMatrix) complete() [][]float64 {
	var grid [][]float64
	for _, t := range m.targets {
		row := make([]float64, 0, len(m.raters))
		ok := true
		for _, r := range m.raters {
			score, present := m.cells[t][r]
			if !present {
				ok = false
				break
			}
			row = append(row, score)
		}
		if ok {
			grid = append(grid, row)
		}
	}
	return grid
}

// icc21 computes ICC(2,1): two-way random effects, absolute agreement,
// single measures. It returns an undefined estimate whenever the data
// cannot support the model (fewer than 3 complete targets, fewer than
// 2 raters, or a degenerate mean-squares decomposition).
//
// Convention for zero total variance: when every retained rating is
// identical the mean-squares ratio is 0/0, which the underlying model
// leaves unspecified. We report perfect agreement (1.0 with a
// zero-width interval) because unanimous raters are the strongest
// agreement evidence the data can express, not an estimator failure.
func icc21(m *iccMatrix) agreement.Estimate {
	grid := m.complete()
	n := len(grid)
	if n < 3 {
		return agreement.Undefined()
	}
	k := len(m.raters)
	if k < 2 {
		return agreement.Undefined()
	}

	identical := true
	first := grid[0][0]
	var grand float64
	for _, row := range grid {
		for _, v := range row {
			grand += v
			if v != first {
				identical = false
			}
		}
	}
	if identical {
		return agreement.Defined(1.0, agreement.Interval{Lower: 1.0, Upper: 1.0})
	}
	grand /= float64(n * k)

	rowMeans := make([]float64, n)
	colMeans := make([]float64, k)
	for i, row := range grid {
		for j, v := range row {
			rowMeans[i] += v / float64(k)
			colMeans[j] += v / float64(n)
		}
	}

	var ssr, ssc, sst float64
	for _, rm := range rowMeans {
		ssr += (rm - grand) * (rm - grand)
	}
	ssr *= float64(k)
	for _, cm := range colMeans {
		ssc += (cm - grand) * (cm - grand)
	}
	ssc *= float64(n)
	for _, row := range grid {
		for _, v := range row {
			sst += (v - grand) * (v - grand)
		}
	}
	sse := sst - ssr - ssc
	if sse < 0 {
		sse = 0
	}

	nf, kf := float64(n), float64(k)
	msr := ssr / (nf - 1)
	msc := ssc / (kf - 1)
	mse := sse / ((nf - 1) * (kf - 1))

	denom := msr + (kf-1)*mse + kf*(msc-mse)/nf
	if denom <= 0 || math.IsNaN(denom) || math.IsInf(denom, 0) {
		return agreement.Undefined()
	}
	icc := (msr - mse) / denom
	if math.IsNaN(icc) || math.IsInf(icc, 0) {
		return agreement.Undefined()
	}

	ci := icc21CI(icc, msr, msc, mse, nf, kf)
	return agreement.Defined(icc, ci)
}

// icc21CI is the 95% interval for ICC(2,1) via the Satterthwaite
// approximation (McGraw & Wong 1996). A zero residual mean square
// breaks the approximation; the interval collapses to the estimate.
func icc21CI(icc, msr, msc, mse, n, k float64) agreement.Interval {
	if mse <= 0 {
		return agreement.Interval{Lower: icc, Upper: icc}
	}
	fj := msc / mse
	a := k*icc*fj + n*(1+(k-1)*icc) - k*icc
	vn := (k - 1) * (n - 1) * a * a
	vd := (n-1)*k*k*icc*icc*fj*fj + (n*(1+(k-1)*icc)-k*icc)*(n*(1+(k-1)*icc)-k*icc)
	if vd <= 0 {
		return agreement.Interval{Lower: icc, Upper: icc}
	}
	v := vn / vd
	if v <= 0 || math.IsNaN(v) || math.IsInf(v, 0) {
		return agreement.Interval{Lower: icc, Upper: icc}
	}

	const alpha = 0.05
	fu := distuv.F{D1: n - 1, D2: v}.Quantile(1 - alpha/2)
	fl := distuv.F{D1: v, D2: n - 1}.Quantile(1 - alpha/2)

	lower := n * (msr - fu*mse) / (fu*(k*msc+(k*n-k-n)*mse) + n*msr)
	upper := n * (fl*msr - mse) / (k*msc + (k*n-k-n)*mse + n*fl*msr)
	if math.IsNaN(lower) || math.IsInf(lower, 0) || math.IsNaN(upper) || math.IsInf(upper, 0) {
		return agreement.Interval{Lower: icc, Upper: icc}
	}
	return agreement.Interval{Lower: lower, Upper: upper}
}

func containsString(list []string, s string) bool {
	for _, v := range list {
		if v == s {
			return true
		}
	}
	return false
}
