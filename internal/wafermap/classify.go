package wafermap

import (
	"math"

	"gonum.org/v1/gonum/stat"
)

// PatternLabel names a recognized spatial signature on a wafer map.
type PatternLabel string

const (
	PatternNormal           PatternLabel = "Normal"
	PatternHotspot          PatternLabel = "Hotspot"
	PatternRing             PatternLabel = "Ring"
	PatternEdgeDegradation  PatternLabel = "Edge Degradation"
	PatternXGradient        PatternLabel = "X-Gradient"
	PatternYGradient        PatternLabel = "Y-Gradient"
	PatternGlobalShift      PatternLabel = "Global Shift"
	PatternMixed            PatternLabel = "Mixed"
	PatternInsufficientData PatternLabel = "Insufficient Data"
)

// ClassifierThresholds hold the cut points of the rule cascade. The zero
// value is not usable; start from DefaultClassifierThresholds.
type ClassifierThresholds struct {
	// NormalUniformity is the uniformity percentage below which the
	// wafer is declared Normal regardless of shape.
	NormalUniformity float64

	// HotspotSigma flags a Hotspot when max > mean + HotspotSigma*sigma.
	HotspotSigma float64

	// RingCenterEdge is the minimum |center-edge|/mean contrast for a
	// Ring candidate.
	RingCenterEdge float64

	// EdgeDegradation flags when edge mean falls below
	// center mean * EdgeDegradation.
	EdgeDegradation float64

	// GradientCorr is the minimum |Pearson correlation| between a
	// coordinate axis and the measurement for a gradient call.
	GradientCorr float64

	// ShiftUniformity is the uniformity percentage above which an
	// otherwise featureless map is a Global Shift.
	ShiftUniformity float64

	// MinPoints is the minimum sample count for any classification.
	MinPoints int

	Zones ZoneBounds
}

// DefaultClassifierThresholds are the production cut points.
func DefaultClassifierThresholds() ClassifierThresholds {
	return ClassifierThresholds{
		NormalUniformity: 2.0,
		HotspotSigma:     4.0,
		RingCenterEdge:   0.05,
		EdgeDegradation:  0.90,
		GradientCorr:     0.40,
		ShiftUniformity:  5.0,
		MinPoints:        5,
		Zones:            DefaultZoneBounds,
	}
}

// Classify runs the rule cascade over a point cloud and returns the first
// matching pattern. Order matters: rules are checked strongest-signal
// first, so a map that is both a hotspot and a gradient reports Hotspot.
//
// The cascade, in order: Normal (uniformity under the normal threshold),
// Hotspot (extreme positive peak), Ring (center/edge contrast with a
// direction reversal across the mid band), Edge Degradation (depressed
// edge), X/Y-Gradient (linear tilt along an axis, stronger axis wins),
// Global Shift (high uniformity spread with no spatial structure), and
// Mixed when nothing else fires.
func Classify(pc *PointCloud, th ClassifierThresholds) PatternLabel {
	if pc == nil {
		return PatternInsufficientData
	}

	var xs, ys, ds []float64
	for _, p := range pc.points {
		if math.IsNaN(p.Data) || math.IsInf(p.Data, 0) {
			continue
		}
		xs = append(xs, p.X)
		ys = append(ys, p.Y)
		ds = append(ds, p.Data)
	}
	if len(ds) < th.MinPoints {
		return PatternInsufficientData
	}

	mean := stat.Mean(ds, nil)
	std := popStdDev(ds, mean)
	maxVal := ds[0]
	for _, v := range ds {
		maxVal = math.Max(maxVal, v)
	}

	uniformity := math.Inf(1)
	if mean != 0 {
		uniformity = std / mean * 100
	}

	if uniformity < th.NormalUniformity {
		return PatternNormal
	}

	if mean != 0 && maxVal > mean+th.HotspotSigma*std {
		return PatternHotspot
	}

	radius := 0.0
	for i := range xs {
		radius = math.Max(radius, math.Hypot(xs[i], ys[i]))
	}
	if radius == 0 {
		radius = 1
	}
	centerMean, midMean, edgeMean := zoneMeans(xs, ys, ds, radius, th.Zones)

	if !math.IsNaN(centerMean) && !math.IsNaN(edgeMean) && mean != 0 {
		if math.Abs(centerMean-edgeMean)/mean > th.RingCenterEdge && !math.IsNaN(midMean) {
			// A ring shows a direction reversal across the bands: the
			// center-to-mid and mid-to-edge deltas disagree in sign.
			if (midMean-centerMean)*(edgeMean-midMean) < 0 {
				return PatternRing
			}
		}
	}

	if !math.IsNaN(centerMean) && !math.IsNaN(edgeMean) && centerMean != 0 {
		if edgeMean < centerMean*th.EdgeDegradation {
			return PatternEdgeDegradation
		}
	}

	if std > 0 {
		var corrX, corrY float64
		if len(ds) > 2 {
			corrX = stat.Correlation(xs, ds, nil)
			corrY = stat.Correlation(ys, ds, nil)
		}
		absX, absY := math.Abs(corrX), math.Abs(corrY)
		if absX > th.GradientCorr || absY > th.GradientCorr {
			if absX >= absY {
				return PatternXGradient
			}
			return PatternYGradient
		}
	}

	if uniformity > th.ShiftUniformity {
		return PatternGlobalShift
	}
	return PatternMixed
}

// popStdDev is the population (n-denominator) standard deviation. The
// cascade thresholds were calibrated against population sigma, unlike the
// sample sigma reported by CalculateStats.
func popStdDev(vals []float64, mean float64) float64 {
	if len(vals) == 0 {
		return 0
	}
	var ss float64
	for _, v := range vals {
		d := v - mean
		ss += d * d
	}
	return math.Sqrt(ss / float64(len(vals)))
}

func zoneMeans(xs, ys, ds []float64, radius float64, zb ZoneBounds) (center, mid, edge float64) {
	var sums, counts [3]float64
	for i := range ds {
		var zi int
		switch zb.ZoneOf(math.Hypot(xs[i], ys[i]) / radius) {
		case ZoneCenter:
			zi = 0
		case ZoneMid:
			zi = 1
		default:
			zi = 2
		}
		sums[zi] += ds[i]
		counts[zi]++
	}
	means := [3]float64{}
	for i := range means {
		if counts[i] > 0 {
			means[i] = sums[i] / counts[i]
		} else {
			means[i] = math.NaN()
		}
	}
	return means[0], means[1], means[2]
}
