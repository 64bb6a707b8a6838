// Package analytics implements multi-wafer anomaly detection: grid
// feature extraction, PCA projection, isolation-forest scoring and the
// two-tier result cache that lets a contamination sweep reuse an existing
// projection.
package analytics

import (
	"errors"
	"fmt"
	"math"
	"runtime"

	"golang.org/x/sync/errgroup"
	"gonum.org/v1/gonum/mat"

	"github.com/fabsight-data/wafer.report/internal/monitoring"
	"github.com/fabsight-data/wafer.report/internal/wafermap"
)

// Sentinel errors of the detection pipeline.
var (
	// ErrInsufficientSamples marks a run with fewer than MinWafers usable
	// wafers after feature extraction.
	ErrInsufficientSamples = errors.New("analytics: insufficient wafer samples")

	// ErrModelUnavailable marks a request against a disabled detection
	// engine.
	ErrModelUnavailable = errors.New("analytics: detection engine unavailable")
)

// MinWafers is the smallest cohort the detector accepts. Below
// LowConfidenceWafers results carry a reliability warning but still run.
const (
	MinWafers           = 3
	LowConfidenceWafers = 5
)

// Wafer pairs a display name with its point cloud for a detection run.
type Wafer struct {
	Name  string
	Cloud *wafermap.PointCloud
}

// FeatureMatrix is the vectorized form of a wafer cohort. Matrix rows
// align with Names; ValidMask preserves the original cohort order and
// records which wafers survived extraction.
type FeatureMatrix struct {
	Matrix    *mat.Dense
	Names     []string
	ValidMask []bool
}

// minValidCells is the fewest non-NaN grid cells a wafer may contribute
// and still be vectorized.
const minValidCells = 3

// ExtractFeatures rasterizes each wafer at the given resolution and turns
// the raster into a fixed-length feature vector. Each wafer is z-score
// normalized over its own valid cells, then masked cells are zero-filled
// so they sit at the normalized mean. Normalizing first keeps the outside
// zeros from polluting the per-wafer mean and sigma. Per-wafer
// normalization makes the features encode spatial shape, not absolute
// magnitude, so a uniformly thicker wafer is not an anomaly by itself.
//
// Wafers that fail extraction are skipped, not fatal; their slot in
// ValidMask is false.
func ExtractFeatures(wafers []Wafer, resolution int) (*FeatureMatrix, error) {
	if len(wafers) == 0 {
		return nil, fmt.Errorf("%w: 0 wafers", ErrInsufficientSamples)
	}

	rows := make([][]float64, len(wafers))
	var g errgroup.Group
	g.SetLimit(runtime.NumCPU())
	for i := range wafers {
		g.Go(func() error {
			row, err := featureRow(wafers[i].Cloud, resolution)
			if err != nil {
				monitoring.Logf("analytics: wafer %q excluded from features: %v", wafers[i].Name, err)
				return nil
			}
			rows[i] = row
			return nil
		})
	}
	if err := g.Wait(); err != nil {
		return nil, err
	}

	fm := &FeatureMatrix{ValidMask: make([]bool, len(wafers))}
	var flat []float64
	n := 0
	for i, row := range rows {
		if row == nil {
			continue
		}
		fm.ValidMask[i] = true
		fm.Names = append(fm.Names, wafers[i].Name)
		flat = append(flat, row...)
		n++
	}
	if n == 0 {
		return fm, nil
	}
	fm.Matrix = mat.NewDense(n, resolution*resolution, flat)
	return fm, nil
}

func featureRow(pc *wafermap.PointCloud, resolution int) ([]float64, error) {
	grid, err := wafermap.Interpolate(pc, resolution)
	if err != nil {
		return nil, err
	}
	flat := grid.Flatten()

	var sum float64
	valid := 0
	for _, v := range flat {
		if !math.IsNaN(v) {
			sum += v
			valid++
		}
	}
	if valid < minValidCells {
		return nil, fmt.Errorf("%d valid grid cells, need %d", valid, minValidCells)
	}
	mean := sum / float64(valid)

	var ss float64
	for _, v := range flat {
		if !math.IsNaN(v) {
			d := v - mean
			ss += d * d
		}
	}
	std := math.Sqrt(ss / float64(valid))

	row := make([]float64, len(flat))
	for i, v := range flat {
		if math.IsNaN(v) {
			row[i] = 0
			continue
		}
		row[i] = (v - mean) / (std + 1e-10)
	}
	return row, nil
}
