package analytics

import (
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gonum.org/v1/gonum/mat"

	"github.com/fabsight-data/wafer.report/internal/wafermap"
)

func cohort(t *testing.T) []Wafer {
	t.Helper()
	return []Wafer{
		testWafer(t, "flat", func(x, y float64) float64 { return 100 }),
		testWafer(t, "tilt-x", func(x, y float64) float64 { return 100 + 0.2*x }),
		testWafer(t, "tilt-y", func(x, y float64) float64 { return 100 + 0.2*y }),
		testWafer(t, "bowl", func(x, y float64) float64 { return 100 + 0.1*(x*x+y*y) }),
		testWafer(t, "spike", func(x, y float64) float64 {
			if x > 8 {
				return 500
			}
			return 100
		}),
	}
}

// countingEngine wraps the projection step to count how often it runs.
func countingEngine(counter *int) *Engine {
	e := NewEngine()
	inner := e.reduce
	e.reduce = func(m *mat.Dense) (*ProjectionResult, error) {
		*counter++
		return inner(m)
	}
	return e
}

func TestRunProducesFullResult(t *testing.T) {
	e := NewEngine()
	sess := NewSession()

	res, err := e.Run(sess, cohort(t), 16, 0.2)
	require.NoError(t, err)

	assert.Len(t, res.Names, 5)
	assert.Equal(t, []bool{true, true, true, true, true}, res.ValidMask)
	rows, cols := res.Projection.Components.Dims()
	assert.Equal(t, 5, rows)
	assert.Equal(t, 4, cols) // min(n-1, 10)
	assert.Len(t, res.Detection.Scores, 5)
	assert.Len(t, res.Patterns, 5)
	assert.False(t, res.ProjectionReused)
	assert.False(t, res.DetectionReused)
	assert.Equal(t, wafermap.PatternNormal, res.Patterns["flat"])
}

func TestRunContaminationSweepReusesProjection(t *testing.T) {
	projections := 0
	e := countingEngine(&projections)
	sess := NewSession()
	wafers := cohort(t)

	sweep := []float64{0.1, 0.15, 0.2, 0.25, 0.3}
	for _, c := range sweep {
		res, err := e.Run(sess, wafers, 16, c)
		require.NoError(t, err)
		if c != sweep[0] {
			assert.True(t, res.ProjectionReused, "contamination %v", c)
		}
		assert.False(t, res.DetectionReused, "contamination %v", c)
	}
	assert.Equal(t, 1, projections, "one projection must serve the whole sweep")
}

func TestRunIdenticalParamsReuseBothTiers(t *testing.T) {
	e := NewEngine()
	sess := NewSession()
	wafers := cohort(t)

	first, err := e.Run(sess, wafers, 16, 0.2)
	require.NoError(t, err)
	second, err := e.Run(sess, wafers, 16, 0.2)
	require.NoError(t, err)

	assert.True(t, second.ProjectionReused)
	assert.True(t, second.DetectionReused)
	assert.Equal(t, first.Detection.Scores, second.Detection.Scores)
}

func TestRunResolutionChangeInvalidatesProjection(t *testing.T) {
	projections := 0
	e := countingEngine(&projections)
	sess := NewSession()
	wafers := cohort(t)

	_, err := e.Run(sess, wafers, 16, 0.2)
	require.NoError(t, err)
	res, err := e.Run(sess, wafers, 20, 0.2)
	require.NoError(t, err)

	assert.False(t, res.ProjectionReused)
	assert.Equal(t, 2, projections)
}

func TestRunWaferOrderIrrelevant(t *testing.T) {
	projections := 0
	e := countingEngine(&projections)
	sess := NewSession()
	wafers := cohort(t)

	_, err := e.Run(sess, wafers, 16, 0.2)
	require.NoError(t, err)

	reversed := make([]Wafer, len(wafers))
	for i, w := range wafers {
		reversed[len(wafers)-1-i] = w
	}
	res, err := e.Run(sess, reversed, 16, 0.2)
	require.NoError(t, err)

	assert.True(t, res.ProjectionReused)
	assert.Equal(t, 1, projections)
}

func TestRunDeterministicAcrossSessions(t *testing.T) {
	e := NewEngine()
	wafers := cohort(t)

	a, err := e.Run(NewSession(), wafers, 16, 0.2)
	require.NoError(t, err)
	b, err := e.Run(NewSession(), wafers, 16, 0.2)
	require.NoError(t, err)

	assert.Equal(t, a.Detection.Scores, b.Detection.Scores)
	assert.Equal(t, a.Detection.AnomalyIndices, b.Detection.AnomalyIndices)
}

func TestRunInsufficientCohort(t *testing.T) {
	e := NewEngine()
	wafers := []Wafer{
		testWafer(t, "w1", func(x, y float64) float64 { return 1 }),
		testWafer(t, "w2", func(x, y float64) float64 { return 2 }),
	}
	_, err := e.Run(NewSession(), wafers, 16, 0.2)
	assert.ErrorIs(t, err, ErrInsufficientSamples)
}

func TestRunUnusableWafersExcludedWithWarning(t *testing.T) {
	e := NewEngine()
	wafers := []Wafer{
		testWafer(t, "w1", func(x, y float64) float64 { return 100 }),
		nanWafer(t, "broken"),
		testWafer(t, "w2", func(x, y float64) float64 { return 100 + x }),
		testWafer(t, "w3", func(x, y float64) float64 { return 100 - y }),
	}
	res, err := e.Run(NewSession(), wafers, 16, 0.2)
	require.NoError(t, err)

	assert.Equal(t, []bool{true, false, true, true}, res.ValidMask)
	assert.Len(t, res.Names, 3)
	assert.NotContains(t, res.Names, "broken")
	require.NotEmpty(t, res.Warnings)

	var excluded, lowConfidence bool
	for _, w := range res.Warnings {
		if assert.NotEmpty(t, w) {
			if containsAll(w, "broken", "excluded") {
				excluded = true
			}
			if containsAll(w, "confidence") {
				lowConfidence = true
			}
		}
	}
	assert.True(t, excluded, "missing exclusion warning: %v", res.Warnings)
	assert.True(t, lowConfidence, "missing low-confidence warning: %v", res.Warnings)
}

func TestRunNilEngineUnavailable(t *testing.T) {
	var e *Engine
	_, err := e.Run(NewSession(), nil, 16, 0.2)
	assert.ErrorIs(t, err, ErrModelUnavailable)
}

func containsAll(s string, subs ...string) bool {
	for _, sub := range subs {
		if !strings.Contains(s, sub) {
			return false
		}
	}
	return true
}
