package wafermap

import (
	"fmt"
	"math"

	"gonum.org/v1/gonum/stat"
)

// ParamSeries is one named parameter measured over a shared site layout,
// for side-by-side comparison of several measurements on the same wafer.
type ParamSeries struct {
	Name  string
	Cloud *PointCloud
}

// SharedRange returns the combined min and max over every valid value of
// every series, so comparison heatmaps can share one color scale. ok is
// false when no series contributes a numeric value.
func SharedRange(params []ParamSeries) (min, max float64, ok bool) {
	min, max = math.Inf(1), math.Inf(-1)
	for _, p := range params {
		if p.Cloud == nil {
			continue
		}
		for _, v := range p.Cloud.validData() {
			min = math.Min(min, v)
			max = math.Max(max, v)
			ok = true
		}
	}
	if !ok {
		return 0, 0, false
	}
	return min, max, true
}

// CorrelationMatrix computes the Pearson correlation between every pair of
// parameter series, aligned by site index. Sites where either series is
// NaN are skipped pairwise. Series must share the same site count and
// carry at least 3 sites; pairs left with fewer than 3 shared numeric
// sites, or a constant series, report NaN.
func CorrelationMatrix(params []ParamSeries) ([][]float64, error) {
	if len(params) < 2 {
		return nil, fmt.Errorf("%w: need at least 2 parameter series", ErrInvalidInput)
	}
	if params[0].Cloud == nil {
		return nil, fmt.Errorf("%w: series %q has no point cloud", ErrInvalidInput, params[0].Name)
	}
	n := params[0].Cloud.Len()
	if n < 3 {
		return nil, fmt.Errorf("%w: correlation needs at least 3 sites, got %d", ErrTooFewPoints, n)
	}
	cols := make([][]float64, len(params))
	for i, p := range params {
		if p.Cloud == nil || p.Cloud.Len() != n {
			return nil, fmt.Errorf("%w: series %q site count differs", ErrInvalidInput, p.Name)
		}
		_, _, cols[i] = p.Cloud.Columns()
	}

	m := make([][]float64, len(params))
	for i := range m {
		m[i] = make([]float64, len(params))
		m[i][i] = 1
	}
	for i := 0; i < len(params); i++ {
		for j := i + 1; j < len(params); j++ {
			c := pairwiseCorrelation(cols[i], cols[j])
			m[i][j], m[j][i] = c, c
		}
	}
	return m, nil
}

func pairwiseCorrelation(a, b []float64) float64 {
	var xs, ys []float64
	for i := range a {
		if math.IsNaN(a[i]) || math.IsNaN(b[i]) {
			continue
		}
		xs = append(xs, a[i])
		ys = append(ys, b[i])
	}
	if len(xs) < 3 {
		return math.NaN()
	}
	return stat.Correlation(xs, ys, nil)
}
