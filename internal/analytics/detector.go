package analytics

import (
	"fmt"
	"sort"
)

// DetectionResult holds the outcome of isolation-forest scoring over a
// projected cohort. Scores are min-max normalized to [0, 1] with higher
// meaning more anomalous; Predictions use -1 for anomalous and 1 for
// normal. Threshold is the lowest normalized score among flagged wafers,
// or 1.0 when nothing was flagged.
type DetectionResult struct {
	Predictions       []int     `json:"predictions"`
	Scores            []float64 `json:"scores"`
	AnomalyIndices    []int     `json:"anomaly_indices"`
	Threshold         float64   `json:"threshold"`
	ContaminationUsed float64   `json:"contamination_used"`
}

// Detect runs the isolation forest over PCA components and flags the most
// isolated wafers. The requested contamination is clamped to
// min(0.49, (n-1)/n - 0.01) so tiny cohorts cannot be asked to flag
// everything. The decision boundary is the contamination quantile of the
// raw scores; samples strictly below it are anomalous, which leaves a
// degenerate cohort of identical scores entirely unflagged.
func Detect(proj *ProjectionResult, contamination float64, forest *IsolationForest) (*DetectionResult, error) {
	if proj == nil || proj.Components == nil {
		return nil, fmt.Errorf("%w: no projection", ErrInsufficientSamples)
	}
	n, _ := proj.Components.Dims()
	if n < 2 {
		return nil, fmt.Errorf("%w: %d projected rows", ErrInsufficientSamples, n)
	}
	if contamination <= 0 {
		return nil, fmt.Errorf("analytics: contamination must be positive, got %v", contamination)
	}

	maxContamination := (float64(n)-1)/float64(n) - 0.01
	if maxContamination > 0.49 {
		maxContamination = 0.49
	}
	used := contamination
	if used > maxContamination {
		used = maxContamination
	}

	if forest == nil {
		forest = NewIsolationForest()
	}
	forest.Fit(proj.Components)
	raw := forest.ScoreSamples(proj.Components)

	offset := percentile(raw, 100*used)

	res := &DetectionResult{
		Predictions:       make([]int, n),
		Scores:            normalizeScores(raw),
		ContaminationUsed: used,
		Threshold:         1.0,
	}
	for i, r := range raw {
		if r < offset {
			res.Predictions[i] = -1
			res.AnomalyIndices = append(res.AnomalyIndices, i)
			if res.Scores[i] < res.Threshold || len(res.AnomalyIndices) == 1 {
				res.Threshold = res.Scores[i]
			}
		} else {
			res.Predictions[i] = 1
		}
	}
	return res, nil
}

// normalizeScores flips raw scores positive and min-max scales to [0, 1].
func normalizeScores(raw []float64) []float64 {
	inv := make([]float64, len(raw))
	min, max := -raw[0], -raw[0]
	for i, r := range raw {
		inv[i] = -r
		if inv[i] < min {
			min = inv[i]
		}
		if inv[i] > max {
			max = inv[i]
		}
	}
	out := make([]float64, len(inv))
	for i, v := range inv {
		out[i] = (v - min) / (max - min + 1e-12)
	}
	return out
}

// percentile computes the p-th percentile (0-100) with linear
// interpolation between order statistics.
func percentile(vals []float64, p float64) float64 {
	sorted := make([]float64, len(vals))
	copy(sorted, vals)
	sort.Float64s(sorted)

	if p <= 0 {
		return sorted[0]
	}
	if p >= 100 {
		return sorted[len(sorted)-1]
	}
	pos := p / 100 * float64(len(sorted)-1)
	lo := int(pos)
	frac := pos - float64(lo)
	if lo+1 >= len(sorted) {
		return sorted[lo]
	}
	return sorted[lo] + frac*(sorted[lo+1]-sorted[lo])
}
