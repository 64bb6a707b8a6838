package wafermap

import (
	"errors"
	"math"
	"testing"
)

func seriesOf(t *testing.T, name string, data []float64) ParamSeries {
	t.Helper()
	xs := make([]float64, len(data))
	ys := make([]float64, len(data))
	for i := range data {
		xs[i] = float64(i)
	}
	pc, err := NewPointCloudFromSlices(xs, ys, data)
	if err != nil {
		t.Fatalf("series %s: %v", name, err)
	}
	return ParamSeries{Name: name, Cloud: pc}
}

func TestCorrelationMatrix(t *testing.T) {
	a := seriesOf(t, "thickness", []float64{1, 2, 3, 4, 5})
	b := seriesOf(t, "rs", []float64{2, 4, 6, 8, 10})
	c := seriesOf(t, "stress", []float64{5, 4, 3, 2, 1})

	m, err := CorrelationMatrix([]ParamSeries{a, b, c})
	if err != nil {
		t.Fatalf("CorrelationMatrix: %v", err)
	}
	if m[0][0] != 1 || m[1][1] != 1 || m[2][2] != 1 {
		t.Errorf("diagonal should be 1, got %v", m)
	}
	if math.Abs(m[0][1]-1) > 1e-12 {
		t.Errorf("corr(a, b) = %v, want 1", m[0][1])
	}
	if math.Abs(m[0][2]+1) > 1e-12 {
		t.Errorf("corr(a, c) = %v, want -1", m[0][2])
	}
	if m[1][2] != m[2][1] {
		t.Errorf("matrix not symmetric")
	}
}

func TestCorrelationMatrixPairwiseNaN(t *testing.T) {
	a := seriesOf(t, "a", []float64{1, 2, 3, 4, math.NaN()})
	b := seriesOf(t, "b", []float64{2, 4, 6, 8, 100})

	m, err := CorrelationMatrix([]ParamSeries{a, b})
	if err != nil {
		t.Fatalf("CorrelationMatrix: %v", err)
	}
	// The NaN site drops out pairwise, leaving a perfect correlation.
	if math.Abs(m[0][1]-1) > 1e-12 {
		t.Errorf("corr = %v, want 1", m[0][1])
	}
}

func TestCorrelationMatrixValidation(t *testing.T) {
	a := seriesOf(t, "a", []float64{1, 2, 3})
	short := seriesOf(t, "short", []float64{1, 2})

	if _, err := CorrelationMatrix([]ParamSeries{a}); !errors.Is(err, ErrInvalidInput) {
		t.Errorf("single series: err = %v, want ErrInvalidInput", err)
	}
	if _, err := CorrelationMatrix([]ParamSeries{a, short}); !errors.Is(err, ErrInvalidInput) {
		t.Errorf("length mismatch: err = %v, want ErrInvalidInput", err)
	}

	tiny := seriesOf(t, "tiny", []float64{1, 2})
	tiny2 := seriesOf(t, "tiny2", []float64{3, 4})
	if _, err := CorrelationMatrix([]ParamSeries{tiny, tiny2}); !errors.Is(err, ErrTooFewPoints) {
		t.Errorf("two sites: err = %v, want ErrTooFewPoints", err)
	}
}

func TestSharedRange(t *testing.T) {
	a := seriesOf(t, "a", []float64{5, 10, math.NaN()})
	b := seriesOf(t, "b", []float64{-2, 7, 3})

	min, max, ok := SharedRange([]ParamSeries{a, b})
	if !ok {
		t.Fatal("ok = false, want true")
	}
	if min != -2 || max != 10 {
		t.Errorf("range = [%v, %v], want [-2, 10]", min, max)
	}

	if _, _, ok := SharedRange(nil); ok {
		t.Error("empty input should report ok = false")
	}
}
