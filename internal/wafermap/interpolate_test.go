package wafermap

import (
	"errors"
	"math"
	"testing"
)

// discCloud builds a point set covering the disc of the given radius: ring
// points at several radii plus the centre, with data from f.
func discCloud(t *testing.T, radius float64, f func(x, y float64) float64) *PointCloud {
	t.Helper()
	var xs, ys, ds []float64
	add := func(x, y float64) {
		xs = append(xs, x)
		ys = append(ys, y)
		ds = append(ds, f(x, y))
	}
	add(0, 0)
	for _, r := range []float64{radius * 0.35, radius * 0.7, radius} {
		for k := 0; k < 12; k++ {
			a := float64(k) * math.Pi / 6
			add(r*math.Cos(a), r*math.Sin(a))
		}
	}
	pc, err := NewPointCloudFromSlices(xs, ys, ds)
	if err != nil {
		t.Fatalf("building cloud: %v", err)
	}
	return pc
}

func TestInterpolateLinearRecoversPlane(t *testing.T) {
	plane := func(x, y float64) float64 { return 2*x + 3*y + 10 }
	pc := discCloud(t, 10, plane)

	g, err := Interpolate(pc, 21)
	if err != nil {
		t.Fatalf("Interpolate: %v", err)
	}
	if g.Method != "linear" {
		t.Fatalf("Method = %q, want linear", g.Method)
	}

	// Interior nodes well inside the hull must reproduce the plane.
	for _, node := range []struct{ ix, iy int }{
		{10, 10}, // (0, 0)
		{12, 13}, // (2, 3)
		{7, 9},   // (-3, -1)
	} {
		x, y := g.XAxis[node.ix], g.YAxis[node.iy]
		got := g.Values[node.iy][node.ix]
		want := plane(x, y)
		if math.Abs(got-want) > 1e-9 {
			t.Errorf("value at (%v, %v) = %v, want %v", x, y, got, want)
		}
	}
}

func TestInterpolateMasksOutsideDisc(t *testing.T) {
	pc := discCloud(t, 10, func(x, y float64) float64 { return 1 })
	g, err := Interpolate(pc, 21)
	if err != nil {
		t.Fatalf("Interpolate: %v", err)
	}
	// Corner node (10, 10) lies outside the disc.
	if v := g.Values[20][20]; !math.IsNaN(v) {
		t.Errorf("corner cell = %v, want NaN", v)
	}
	// Every non-NaN cell must be inside the disc.
	for iy, row := range g.Values {
		for ix, v := range row {
			if !math.IsNaN(v) && math.Hypot(g.XAxis[ix], g.YAxis[iy]) > g.Radius {
				t.Fatalf("cell (%d, %d) outside disc holds %v", ix, iy, v)
			}
		}
	}
}

func TestInterpolateCollinearFallsBackToNearest(t *testing.T) {
	pc, err := NewPointCloudFromSlices(
		[]float64{-4, 0, 4},
		[]float64{0, 0, 0},
		[]float64{1, 2, 3},
	)
	if err != nil {
		t.Fatalf("cloud: %v", err)
	}
	g, err := Interpolate(pc, 9)
	if err != nil {
		t.Fatalf("Interpolate: %v", err)
	}
	if g.Method != "nearest" {
		t.Fatalf("Method = %q, want nearest", g.Method)
	}
	// Centre cell sits at (0, 0), nearest site holds 2.
	if v := g.Values[4][4]; v != 2 {
		t.Errorf("centre cell = %v, want 2", v)
	}
}

func TestInterpolateAllInvalidDataYieldsEmptyGrid(t *testing.T) {
	nan := math.NaN()
	pc, err := NewPointCloudFromSlices(
		[]float64{-1, 0, 1},
		[]float64{0, 1, 0},
		[]float64{nan, nan, nan},
	)
	if err != nil {
		t.Fatalf("cloud: %v", err)
	}
	g, err := Interpolate(pc, 5)
	if err != nil {
		t.Fatalf("Interpolate: %v", err)
	}
	if g.Method != "empty" {
		t.Errorf("Method = %q, want empty", g.Method)
	}
	if n := g.ValidCount(); n != 0 {
		t.Errorf("ValidCount = %d, want 0", n)
	}
}

func TestInterpolateRejectsBadInput(t *testing.T) {
	pc := discCloud(t, 10, func(x, y float64) float64 { return 1 })
	if _, err := Interpolate(pc, 1); !errors.Is(err, ErrInvalidInput) {
		t.Errorf("resolution 1: err = %v, want ErrInvalidInput", err)
	}
	if _, err := Interpolate(nil, 10); !errors.Is(err, ErrInvalidInput) {
		t.Errorf("nil cloud: err = %v, want ErrInvalidInput", err)
	}
}

func TestInterpolateDuplicateSites(t *testing.T) {
	pc, err := NewPointCloudFromSlices(
		[]float64{0, 0, 5, -5, 0, 0},
		[]float64{0, 0, 0, 0, 5, -5},
		[]float64{10, 99, 20, 20, 20, 20},
	)
	if err != nil {
		t.Fatalf("cloud: %v", err)
	}
	g, err := Interpolate(pc, 11)
	if err != nil {
		t.Fatalf("Interpolate: %v", err)
	}
	if g.Method != "linear" {
		t.Fatalf("Method = %q, want linear", g.Method)
	}
	// First value at the duplicated site wins.
	if v := g.Values[5][5]; math.Abs(v-10) > 1e-9 {
		t.Errorf("centre cell = %v, want 10", v)
	}
}

func TestGridFlattenRowMajor(t *testing.T) {
	g := &Grid{
		Resolution: 2,
		Values:     [][]float64{{1, 2}, {3, 4}},
	}
	flat := g.Flatten()
	want := []float64{1, 2, 3, 4}
	for i := range want {
		if flat[i] != want[i] {
			t.Fatalf("Flatten = %v, want %v", flat, want)
		}
	}
}
