// Package plotout renders wafer maps and profiles to PNG files for
// offline reports. Charts served over HTTP live in internal/charts;
// this package covers the file-based export path.
package plotout

import (
	"bytes"
	"fmt"
	"math"
	"path/filepath"
	"time"

	"gonum.org/v1/plot"
	"gonum.org/v1/plot/palette"
	"gonum.org/v1/plot/plotter"
	"gonum.org/v1/plot/vg"

	"github.com/fabsight-data/wafer.report/internal/fsutil"
	"github.com/fabsight-data/wafer.report/internal/wafermap"
)

const paletteColors = 255

// Exporter writes PNG renderings of wafer data beneath a base directory.
type Exporter struct {
	fs      fsutil.FileSystem
	baseDir string
}

// NewExporter creates an exporter rooted at baseDir. A nil fs uses the
// real filesystem.
func NewExporter(fs fsutil.FileSystem, baseDir string) *Exporter {
	if fs == nil {
		fs = fsutil.OSFileSystem{}
	}
	return &Exporter{fs: fs, baseDir: baseDir}
}

// FormatTimestamp generates a timestamp string for directory naming.
func FormatTimestamp(t time.Time) string {
	return t.Format("20060102_150405")
}

// MakeOutputDir creates a timestamped directory for one export run:
// <base>/<label>/<timestamp>. Returns the created path.
func (e *Exporter) MakeOutputDir(label string, now time.Time) (string, error) {
	dir := filepath.Join(e.baseDir, label, FormatTimestamp(now))
	if err := e.fs.MkdirAll(dir, 0755); err != nil {
		return "", fmt.Errorf("failed to create output dir: %w", err)
	}
	return dir, nil
}

// HeatmapPNG renders an interpolated grid as a heat map and writes it
// to dir/<name>.png. Masked cells are left blank.
func (e *Exporter) HeatmapPNG(dir, name string, g *wafermap.Grid, title, unit string) (string, error) {
	if g == nil {
		return "", fmt.Errorf("no grid to plot")
	}

	p := plot.New()
	p.Title.Text = title
	p.X.Label.Text = "X (mm)"
	p.Y.Label.Text = "Y (mm)"

	hm := plotter.NewHeatMap(gridXYZ{g}, palette.Heat(paletteColors, 1))
	min, max, ok := gridRange(g)
	if !ok {
		return "", fmt.Errorf("grid has no finite values")
	}
	hm.Min = min
	hm.Max = max
	p.Add(hm)

	if unit != "" {
		p.Title.Text = fmt.Sprintf("%s (%s)", title, unit)
	}

	return e.save(p, dir, name, 8*vg.Inch, 7*vg.Inch)
}

// LineScanPNG renders a cross-section profile and writes it to
// dir/<name>.png. Positions outside the wafer are dropped.
func (e *Exporter) LineScanPNG(dir, name string, scan []wafermap.LineScanPoint, angleDeg float64, unit string) (string, error) {
	pts := make(plotter.XYs, 0, len(scan))
	for _, s := range scan {
		if math.IsNaN(s.Value) {
			continue
		}
		pts = append(pts, plotter.XY{X: s.Position, Y: s.Value})
	}
	if len(pts) == 0 {
		return "", fmt.Errorf("line scan has no finite values")
	}

	p := plot.New()
	p.Title.Text = fmt.Sprintf("Line Scan - %.0f deg", angleDeg)
	p.X.Label.Text = "Position (mm)"
	p.Y.Label.Text = unit

	line, err := plotter.NewLine(pts)
	if err != nil {
		return "", err
	}
	line.Width = vg.Points(1)
	p.Add(line)
	p.Add(plotter.NewGrid())

	return e.save(p, dir, name, 10*vg.Inch, 5*vg.Inch)
}

// RadialProfilePNG renders raw and smoothed radial averages and writes
// them to dir/<name>.png.
func (e *Exporter) RadialProfilePNG(dir, name string, samples []wafermap.RadialSample, unit string) (string, error) {
	raw := make(plotter.XYs, 0, len(samples))
	smoothed := make(plotter.XYs, 0, len(samples))
	for _, s := range samples {
		if !math.IsNaN(s.Value) {
			raw = append(raw, plotter.XY{X: s.R, Y: s.Value})
		}
		if !math.IsNaN(s.Smoothed) {
			smoothed = append(smoothed, plotter.XY{X: s.R, Y: s.Smoothed})
		}
	}
	if len(raw) == 0 {
		return "", fmt.Errorf("radial profile has no finite values")
	}

	p := plot.New()
	p.Title.Text = "Radial Profile"
	p.X.Label.Text = "Radius (mm)"
	p.Y.Label.Text = unit

	rawLine, err := plotter.NewLine(raw)
	if err != nil {
		return "", err
	}
	rawLine.Width = vg.Points(1)
	p.Add(rawLine)
	p.Legend.Add("raw", rawLine)

	if len(smoothed) > 0 {
		smoothLine, err := plotter.NewLine(smoothed)
		if err != nil {
			return "", err
		}
		smoothLine.Width = vg.Points(2)
		smoothLine.Dashes = []vg.Length{vg.Points(4), vg.Points(2)}
		p.Add(smoothLine)
		p.Legend.Add("smoothed", smoothLine)
	}

	p.Legend.Top = true
	p.Legend.Left = false
	p.Add(plotter.NewGrid())

	return e.save(p, dir, name, 10*vg.Inch, 5*vg.Inch)
}

// save renders the plot through an in-memory buffer and writes it via
// the configured filesystem, so exports work against MemoryFileSystem.
func (e *Exporter) save(p *plot.Plot, dir, name string, w, h vg.Length) (string, error) {
	wt, err := p.WriterTo(w, h, "png")
	if err != nil {
		return "", fmt.Errorf("render plot: %w", err)
	}

	var buf bytes.Buffer
	if _, err := wt.WriteTo(&buf); err != nil {
		return "", fmt.Errorf("render plot: %w", err)
	}

	path := filepath.Join(dir, name+".png")
	if err := e.fs.WriteFile(path, buf.Bytes(), 0644); err != nil {
		return "", fmt.Errorf("save plot: %w", err)
	}
	return path, nil
}

// gridXYZ adapts a wafermap.Grid to the plotter.GridXYZ interface.
type gridXYZ struct {
	g *wafermap.Grid
}

func (g gridXYZ) Dims() (c, r int)   { return len(g.g.XAxis), len(g.g.YAxis) }
func (g gridXYZ) X(c int) float64    { return g.g.XAxis[c] }
func (g gridXYZ) Y(r int) float64    { return g.g.YAxis[r] }
func (g gridXYZ) Z(c, r int) float64 { return g.g.Values[r][c] }

func gridRange(g *wafermap.Grid) (min, max float64, ok bool) {
	min, max = math.Inf(1), math.Inf(-1)
	for _, row := range g.Values {
		for _, v := range row {
			if math.IsNaN(v) {
				continue
			}
			if v < min {
				min = v
			}
			if v > max {
				max = v
			}
			ok = true
		}
	}
	return min, max, ok
}
