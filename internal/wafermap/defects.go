package wafermap

import (
	"fmt"
	"math"
)

// Defect is one inspection hit to overlay on a wafer map. Class is the
// inspection tool's defect category; Size is optional (NaN when absent).
type Defect struct {
	X     float64 `json:"x"`
	Y     float64 `json:"y"`
	Class string  `json:"class"`
	Size  float64 `json:"size"`
}

// DefectOverlay is the numeric result of reconciling a defect list with a
// wafer map: scaled in-disc defects, per-zone and per-class counts, and a
// coordinate-scale warning when the two data sources disagree on units.
type DefectOverlay struct {
	Defects      []Defect       `json:"defects"`
	Inside       int            `json:"inside"`
	Outside      int            `json:"outside"`
	ZoneCounts   map[Zone]int   `json:"zone_counts"`
	ClassCounts  map[string]int `json:"class_counts"`
	ScaleWarning string         `json:"scale_warning,omitempty"`
}

// OverlayDefects scales defect coordinates by coordScale, filters to the
// wafer disc and tallies zone and class counts. Defect files commonly come
// out of inspection tools in micrometres while metrology maps use
// millimetres, so the scaled coordinate extent is checked against the
// wafer radius: more than 5x the radius, or under 1/100th of it, triggers
// a units warning instead of a silent empty overlay.
func OverlayDefects(defects []Defect, radius, coordScale float64, bounds ZoneBounds) (*DefectOverlay, error) {
	if radius <= 0 {
		return nil, fmt.Errorf("%w: wafer radius must be positive", ErrInvalidInput)
	}
	if coordScale == 0 {
		coordScale = 1
	}

	out := &DefectOverlay{
		ZoneCounts:  map[Zone]int{ZoneCenter: 0, ZoneMid: 0, ZoneEdge: 0},
		ClassCounts: map[string]int{},
	}

	maxAbs := 0.0
	for _, d := range defects {
		d.X *= coordScale
		d.Y *= coordScale
		r := math.Hypot(d.X, d.Y)
		maxAbs = math.Max(maxAbs, r)
		if r > radius {
			out.Outside++
			continue
		}
		out.Inside++
		out.ZoneCounts[bounds.ZoneOf(r/radius)]++
		out.ClassCounts[d.Class]++
		out.Defects = append(out.Defects, d)
	}

	switch {
	case maxAbs > 5*radius:
		out.ScaleWarning = fmt.Sprintf(
			"defect coordinate extent %.1f mm is %.0fx the wafer radius %.1f mm; check for um vs mm units",
			maxAbs, maxAbs/radius, radius)
	case maxAbs > 0 && maxAbs < radius/100:
		out.ScaleWarning = fmt.Sprintf(
			"defect coordinate extent %.4f mm is under 1/100th of the wafer radius %.1f mm; check coordinate units",
			maxAbs, radius)
	}
	return out, nil
}
