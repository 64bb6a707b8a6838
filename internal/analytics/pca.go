package analytics

import (
	"fmt"

	"gonum.org/v1/gonum/mat"
	"gonum.org/v1/gonum/stat"
)

// maxComponents caps the PCA dimensionality. Scatter views only consume
// the first two components; anything past ten adds memory without signal.
const maxComponents = 10

// ProjectionResult is the low-dimensional representation of a wafer
// cohort. Components is n_wafers x NComponents; ExplainedVariance holds
// the fraction of total variance carried by each kept component.
type ProjectionResult struct {
	Components        *mat.Dense
	ExplainedVariance []float64
	NComponents       int
}

// Project reduces the feature matrix with PCA. The component count is
// min(n-1, 10) clamped to at least 2 and at most the feature
// dimensionality. SVD-based principal components are deterministic, so
// identical inputs always produce identical projections.
func Project(features *mat.Dense) (*ProjectionResult, error) {
	n, d := features.Dims()
	if n < 2 {
		return nil, fmt.Errorf("%w: %d feature rows", ErrInsufficientSamples, n)
	}

	k := n - 1
	if k > maxComponents {
		k = maxComponents
	}
	if k < 2 {
		k = 2
	}
	if k > d {
		k = d
	}

	var pc stat.PC
	if ok := pc.PrincipalComponents(features, nil); !ok {
		return nil, fmt.Errorf("analytics: principal component decomposition failed")
	}

	var vecs mat.Dense
	pc.VectorsTo(&vecs)
	vars := pc.VarsTo(nil)

	var total float64
	for _, v := range vars {
		total += v
	}
	ratio := make([]float64, k)
	for i := 0; i < k; i++ {
		if total > 0 {
			ratio[i] = vars[i] / total
		}
	}

	// Center the columns, then project onto the leading k directions.
	centered := mat.NewDense(n, d, nil)
	means := make([]float64, d)
	for j := 0; j < d; j++ {
		col := mat.Col(nil, j, features)
		means[j] = stat.Mean(col, nil)
	}
	for i := 0; i < n; i++ {
		for j := 0; j < d; j++ {
			centered.Set(i, j, features.At(i, j)-means[j])
		}
	}

	var proj mat.Dense
	proj.Mul(centered, vecs.Slice(0, d, 0, k))

	out := mat.NewDense(n, k, nil)
	out.Copy(&proj)
	return &ProjectionResult{
		Components:        out,
		ExplainedVariance: ratio,
		NComponents:       k,
	}, nil
}
