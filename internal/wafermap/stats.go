package wafermap

import (
	"fmt"
	"math"

	"gonum.org/v1/gonum/stat"
)

// Stats summarizes one wafer's measurement distribution. Uniformity is the
// coefficient of variation as a percentage (sigma/mean * 100), the standard
// within-wafer non-uniformity figure.
type Stats struct {
	Mean       float64 `json:"mean"`
	Max        float64 `json:"max"`
	Min        float64 `json:"min"`
	Std        float64 `json:"std"`
	Uniformity float64 `json:"uniformity_pct"`
	Range      float64 `json:"range"`
	Sites      int     `json:"sites"`
}

// CalculateStats computes summary statistics over the valid (non-NaN) samples.
// Std is the sample standard deviation. A zero mean yields NaN uniformity
// rather than a division panic.
func (pc *PointCloud) CalculateStats() (Stats, error) {
	vals := pc.validData()
	if len(vals) == 0 {
		return Stats{}, fmt.Errorf("%w: no numeric measurements", ErrInvalidInput)
	}

	s := Stats{
		Mean:  stat.Mean(vals, nil),
		Max:   vals[0],
		Min:   vals[0],
		Sites: len(vals),
	}
	for _, v := range vals {
		s.Max = math.Max(s.Max, v)
		s.Min = math.Min(s.Min, v)
	}
	s.Range = s.Max - s.Min
	if len(vals) > 1 {
		s.Std = stat.StdDev(vals, nil)
	}
	if s.Mean != 0 {
		s.Uniformity = s.Std / s.Mean * 100
	} else {
		s.Uniformity = math.NaN()
	}
	return s, nil
}

func (pc *PointCloud) validData() []float64 {
	out := make([]float64, 0, len(pc.points))
	for _, p := range pc.points {
		if !math.IsNaN(p.Data) && !math.IsInf(p.Data, 0) {
			out = append(out, p.Data)
		}
	}
	return out
}

// Zone identifies a radial band of the wafer.
type Zone string

const (
	ZoneCenter Zone = "center"
	ZoneMid    Zone = "mid"
	ZoneEdge   Zone = "edge"
)

// ZoneStats carries per-band summary figures for radial comparisons.
type ZoneStats struct {
	Zone  Zone    `json:"zone"`
	Mean  float64 `json:"mean"`
	Std   float64 `json:"std"`
	Sites int     `json:"sites"`
}

// ZoneBounds are the radial band cut points as fractions of the wafer
// radius. Center spans [0, Center), mid [Center, Edge), edge [Edge, 1].
type ZoneBounds struct {
	Center float64
	Edge   float64
}

// DefaultZoneBounds matches the conventional 30/70 radial split.
var DefaultZoneBounds = ZoneBounds{Center: 0.30, Edge: 0.70}

// ZoneOf classifies a normalized radius r/R into a band.
func (zb ZoneBounds) ZoneOf(rNorm float64) Zone {
	switch {
	case rNorm < zb.Center:
		return ZoneCenter
	case rNorm < zb.Edge:
		return ZoneMid
	default:
		return ZoneEdge
	}
}

// ZoneStats partitions the valid samples into radial bands and summarizes
// each. Bands with no samples report NaN means and zero sites.
func (pc *PointCloud) ZoneStats(bounds ZoneBounds) []ZoneStats {
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

	out := make([]ZoneStats, 0, 3)
	for _, z := range []Zone{ZoneCenter, ZoneMid, ZoneEdge} {
		zs := ZoneStats{Zone: z, Mean: math.NaN(), Sites: len(byZone[z])}
		if vals := byZone[z]; len(vals) > 0 {
			zs.Mean = stat.Mean(vals, nil)
			if len(vals) > 1 {
				zs.Std = stat.StdDev(vals, nil)
			}
		}
		out = append(out, zs)
	}
	return out
}
