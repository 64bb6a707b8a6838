package wafermap

import (
	"fmt"
	"math"
	"sort"

	"gonum.org/v1/gonum/stat"
)

// CycleMode selects how the cycle count is supplied when deriving growth
// per cycle from thickness measurements.
type CycleMode string

const (
	// CycleModeColumn divides each thickness by a per-point cycle count,
	// for multi-cycle split experiments.
	CycleModeColumn CycleMode = "column"

	// CycleModeFixed divides every thickness by one shared cycle count,
	// the standard single-recipe case.
	CycleModeFixed CycleMode = "fixed"
)

// GPCRequest describes a growth-per-cycle derivation. Thickness is the
// measured film thickness per point; Cycles is required in column mode and
// ignored in fixed mode.
type GPCRequest struct {
	X         []float64
	Y         []float64
	Thickness []float64
	Mode      CycleMode
	Cycles    []float64
	Fixed     float64
}

// ComputeGPC derives a growth-per-cycle point cloud from thickness data.
// Growth per cycle is physically positive, so non-positive cycle counts
// and non-positive quotients become NaN and drop out of downstream maps
// rather than poisoning them. The result uses the canonical x/y/data
// schema and chains directly into grids, stats and the classifier.
func ComputeGPC(req GPCRequest) (*PointCloud, error) {
	n := len(req.Thickness)
	if n == 0 || len(req.X) != n || len(req.Y) != n {
		return nil, fmt.Errorf("%w: thickness and coordinate columns must align", ErrInvalidInput)
	}

	gpc := make([]float64, n)
	switch req.Mode {
	case CycleModeColumn:
		if len(req.Cycles) != n {
			return nil, fmt.Errorf("%w: column cycle mode needs a cycle count per point", ErrInvalidInput)
		}
		for i, t := range req.Thickness {
			c := req.Cycles[i]
			if !(c > 0) {
				gpc[i] = math.NaN()
				continue
			}
			gpc[i] = t / c
		}
	case CycleModeFixed:
		if !(req.Fixed > 0) {
			return nil, fmt.Errorf("%w: fixed cycle count must be positive, got %v", ErrInvalidInput, req.Fixed)
		}
		for i, t := range req.Thickness {
			gpc[i] = t / req.Fixed
		}
	default:
		return nil, fmt.Errorf("%w: unknown cycle mode %q", ErrInvalidInput, req.Mode)
	}

	for i, v := range gpc {
		if !(v > 0) {
			gpc[i] = math.NaN()
		}
	}
	return NewPointCloudFromSlices(req.X, req.Y, gpc)
}

// RadialSample is one point of a radius-ordered profile: the raw value at
// that radius plus a centered rolling mean for trend reading.
type RadialSample struct {
	R        float64 `json:"r"`
	Value    float64 `json:"value"`
	Smoothed float64 `json:"smoothed"`
}

// RadialProfile orders the samples by distance from centre and attaches a
// centered rolling mean. The window adapts to the sample count (10% of
// points, clipped to [5, min(25, window)]) so sparse maps are not smoothed
// into a single flat line. NaN values are carried but excluded from the
// rolling mean.
func RadialProfile(pc *PointCloud, window int) ([]RadialSample, error) {
	if pc == nil || pc.Len() == 0 {
		return nil, fmt.Errorf("%w: empty point cloud", ErrInvalidInput)
	}

	samples := make([]RadialSample, 0, pc.Len())
	for _, p := range pc.points {
		samples = append(samples, RadialSample{R: math.Hypot(p.X, p.Y), Value: p.Data})
	}
	sort.Slice(samples, func(i, j int) bool { return samples[i].R < samples[j].R })

	w := window
	if auto := len(samples) / 10; auto < w {
		w = auto
	}
	if w > 25 {
		w = 25
	}
	if w < 5 {
		w = 5
	}

	half := w / 2
	for i := range samples {
		lo, hi := i-half, i+half
		if lo < 0 {
			lo = 0
		}
		if hi >= len(samples) {
			hi = len(samples) - 1
		}
		var sum float64
		var n int
		for j := lo; j <= hi; j++ {
			if v := samples[j].Value; !math.IsNaN(v) {
				sum += v
				n++
			}
		}
		if n > 0 {
			samples[i].Smoothed = sum / float64(n)
		} else {
			samples[i].Smoothed = math.NaN()
		}
	}
	return samples, nil
}

// ZoneSummary extends per-zone stats with the zone's raw values, for
// box-style distribution views.
type ZoneSummary struct {
	ZoneStats
	Values []float64 `json:"values"`
}

// ZoneSummaries partitions valid samples into radial bands and returns
// stats plus raw values per band. Std here is the population deviation, in
// line with the profile view it feeds.
func ZoneSummaries(pc *PointCloud, bounds ZoneBounds) []ZoneSummary {
	radius := pc.Radius()
	if radius == 0 {
		radius = 1
	}
	byZone := map[Zone][]float64{}
	for _, p := range pc.points {
		if math.IsNaN(p.Data) || math.IsInf(p.Data, 0) {
			continue
		}
		z := bounds.ZoneOf(math.Hypot(p.X, p.Y) / radius)
		byZone[z] = append(byZone[z], p.Data)
	}

	out := make([]ZoneSummary, 0, 3)
	for _, z := range []Zone{ZoneCenter, ZoneMid, ZoneEdge} {
		vals := byZone[z]
		zs := ZoneSummary{
			ZoneStats: ZoneStats{Zone: z, Mean: math.NaN(), Std: math.NaN(), Sites: len(vals)},
			Values:    vals,
		}
		if len(vals) > 0 {
			zs.Mean = stat.Mean(vals, nil)
			zs.Std = popStdDev(vals, zs.Mean)
		}
		out = append(out, zs)
	}
	return out
}
