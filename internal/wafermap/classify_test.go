package wafermap

import (
	"math"
	"testing"
)

// ringLayout places n points on a circle of radius r with values from f.
func ringLayout(xs, ys, ds *[]float64, r float64, n int, f func(k int, x, y float64) float64) {
	for k := 0; k < n; k++ {
		a := 2 * math.Pi * float64(k) / float64(n)
		x, y := r*math.Cos(a), r*math.Sin(a)
		*xs = append(*xs, x)
		*ys = append(*ys, y)
		*ds = append(*ds, f(k, x, y))
	}
}

func cloudFor(t *testing.T, build func(xs, ys, ds *[]float64)) *PointCloud {
	t.Helper()
	var xs, ys, ds []float64
	build(&xs, &ys, &ds)
	pc, err := NewPointCloudFromSlices(xs, ys, ds)
	if err != nil {
		t.Fatalf("cloud: %v", err)
	}
	return pc
}

func TestClassify(t *testing.T) {
	th := DefaultClassifierThresholds()

	cases := []struct {
		name  string
		build func(xs, ys, ds *[]float64)
		want  PatternLabel
	}{
		{
			name: "uniform map is normal",
			build: func(xs, ys, ds *[]float64) {
				ringLayout(xs, ys, ds, 2, 8, func(k int, x, y float64) float64 { return 100 })
				ringLayout(xs, ys, ds, 9, 8, func(k int, x, y float64) float64 { return 100.5 })
			},
			want: PatternNormal,
		},
		{
			name: "single extreme peak is hotspot",
			build: func(xs, ys, ds *[]float64) {
				ringLayout(xs, ys, ds, 5, 10, func(k int, x, y float64) float64 { return 100 })
				ringLayout(xs, ys, ds, 9, 10, func(k int, x, y float64) float64 { return 100 })
				*xs = append(*xs, 1)
				*ys = append(*ys, 1)
				*ds = append(*ds, 200)
			},
			want: PatternHotspot,
		},
		{
			name: "center-edge contrast with mid reversal is ring",
			build: func(xs, ys, ds *[]float64) {
				ringLayout(xs, ys, ds, 2, 8, func(k int, x, y float64) float64 { return 100 })
				ringLayout(xs, ys, ds, 5, 8, func(k int, x, y float64) float64 { return 120 })
				ringLayout(xs, ys, ds, 10, 8, func(k int, x, y float64) float64 { return 108 })
			},
			want: PatternRing,
		},
		{
			name: "depressed edge is edge degradation",
			build: func(xs, ys, ds *[]float64) {
				ringLayout(xs, ys, ds, 2, 8, func(k int, x, y float64) float64 { return 100 })
				ringLayout(xs, ys, ds, 5, 8, func(k int, x, y float64) float64 { return 95 })
				ringLayout(xs, ys, ds, 10, 8, func(k int, x, y float64) float64 { return 85 })
			},
			want: PatternEdgeDegradation,
		},
		{
			name: "linear tilt along x is x-gradient",
			build: func(xs, ys, ds *[]float64) {
				ringLayout(xs, ys, ds, 4, 12, func(k int, x, y float64) float64 { return 100 + 2*x })
				ringLayout(xs, ys, ds, 10, 12, func(k int, x, y float64) float64 { return 100 + 2*x })
			},
			want: PatternXGradient,
		},
		{
			name: "linear tilt along y is y-gradient",
			build: func(xs, ys, ds *[]float64) {
				ringLayout(xs, ys, ds, 4, 12, func(k int, x, y float64) float64 { return 100 + 2*y })
				ringLayout(xs, ys, ds, 10, 12, func(k int, x, y float64) float64 { return 100 + 2*y })
			},
			want: PatternYGradient,
		},
		{
			name: "structureless high spread is global shift",
			build: func(xs, ys, ds *[]float64) {
				alt := func(k int, x, y float64) float64 {
					if k%2 == 0 {
						return 90
					}
					return 110
				}
				ringLayout(xs, ys, ds, 5, 8, alt)
				ringLayout(xs, ys, ds, 9, 8, alt)
			},
			want: PatternGlobalShift,
		},
		{
			name: "moderate structureless spread is mixed",
			build: func(xs, ys, ds *[]float64) {
				alt := func(k int, x, y float64) float64 {
					if k%2 == 0 {
						return 97
					}
					return 103
				}
				ringLayout(xs, ys, ds, 5, 8, alt)
				ringLayout(xs, ys, ds, 9, 8, alt)
			},
			want: PatternMixed,
		},
	}

	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			pc := cloudFor(t, tc.build)
			if got := Classify(pc, th); got != tc.want {
				t.Errorf("Classify = %q, want %q", got, tc.want)
			}
		})
	}
}

func TestClassifyInsufficientData(t *testing.T) {
	pc, _ := NewPointCloudFromSlices(
		[]float64{0, 1, 2, 3},
		[]float64{0, 1, 2, 3},
		[]float64{1, 2, 3, 4},
	)
	if got := Classify(pc, DefaultClassifierThresholds()); got != PatternInsufficientData {
		t.Errorf("Classify = %q, want %q", got, PatternInsufficientData)
	}
	if got := Classify(nil, DefaultClassifierThresholds()); got != PatternInsufficientData {
		t.Errorf("Classify(nil) = %q, want %q", got, PatternInsufficientData)
	}
}

func TestClassifyNaNValuesIgnored(t *testing.T) {
	pc := cloudFor(t, func(xs, ys, ds *[]float64) {
		ringLayout(xs, ys, ds, 2, 8, func(k int, x, y float64) float64 { return 100 })
		ringLayout(xs, ys, ds, 9, 8, func(k int, x, y float64) float64 { return 100 })
		*xs = append(*xs, 3)
		*ys = append(*ys, 3)
		*ds = append(*ds, math.NaN())
	})
	if got := Classify(pc, DefaultClassifierThresholds()); got != PatternNormal {
		t.Errorf("Classify = %q, want Normal", got)
	}
}
