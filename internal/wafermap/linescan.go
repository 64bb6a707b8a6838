package wafermap

import (
	"fmt"
	"math"
)

// LineScanPoint is one sample of a diameter cross-section profile.
// Position runs from -radius to +radius along the scan direction; Value is
// NaN outside the wafer disc or where interpolation has no support.
type LineScanPoint struct {
	Position float64 `json:"position"`
	X        float64 `json:"x"`
	Y        float64 `json:"y"`
	Value    float64 `json:"value"`
}

// LineScan samples an interpolated cross-section through the wafer centre
// at the given angle (degrees, 0 = +x axis). The profile uses the same
// linear-then-nearest interpolation chain as the full grid so the two
// views never disagree.
func LineScan(pc *PointCloud, angleDeg float64, resolution int) ([]LineScanPoint, error) {
	if pc == nil || pc.Len() == 0 {
		return nil, fmt.Errorf("%w: empty point cloud", ErrInvalidInput)
	}
	if resolution < 2 {
		return nil, fmt.Errorf("%w: resolution %d below minimum 2", ErrInvalidInput, resolution)
	}

	radius := pc.Radius()
	if radius == 0 {
		radius = 1
	}
	angle := angleDeg * math.Pi / 180
	cos, sin := math.Cos(angle), math.Sin(angle)

	valid := make([]Point, 0, pc.Len())
	for _, p := range pc.points {
		if !math.IsNaN(p.Data) && !math.IsInf(p.Data, 0) {
			valid = append(valid, p)
		}
	}

	var at func(x, y float64) float64
	switch {
	case len(valid) == 0:
		at = func(x, y float64) float64 { return math.NaN() }
	default:
		if li, err := newLinearInterpolator(valid); err == nil {
			at = li.At
		} else {
			at = newNearestInterpolator(valid).At
		}
	}

	out := make([]LineScanPoint, resolution)
	for i, pos := range linspace(-radius, radius, resolution) {
		px, py := pos*cos, pos*sin
		v := math.NaN()
		if math.Hypot(px, py) <= radius {
			v = at(px, py)
		}
		out[i] = LineScanPoint{Position: pos, X: px, Y: py, Value: v}
	}
	return out, nil
}
