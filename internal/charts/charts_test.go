package charts

import (
	"bytes"
	"math"
	"strings"
	"testing"

	"gonum.org/v1/gonum/mat"

	"github.com/fabsight-data/wafer.report/internal/analytics"
	"github.com/fabsight-data/wafer.report/internal/wafermap"
)

func testGrid(t *testing.T) *wafermap.Grid {
	t.Helper()
	var xs, ys, ds []float64
	add := func(x, y, d float64) {
		xs = append(xs, x)
		ys = append(ys, y)
		ds = append(ds, d)
	}
	add(0, 0, 10)
	for k := 0; k < 12; k++ {
		a := float64(k) * math.Pi / 6
		add(10*math.Cos(a), 10*math.Sin(a), 12)
		add(5*math.Cos(a), 5*math.Sin(a), 11)
	}
	pc, err := wafermap.NewPointCloudFromSlices(xs, ys, ds)
	if err != nil {
		t.Fatalf("cloud: %v", err)
	}
	g, err := wafermap.Interpolate(pc, 15)
	if err != nil {
		t.Fatalf("Interpolate: %v", err)
	}
	return g
}

func testRunResult() *analytics.RunResult {
	return &analytics.RunResult{
		Names: []string{"w1", "w2", "w3"},
		Projection: &analytics.ProjectionResult{
			Components:        mat.NewDense(3, 2, []float64{0, 0, 0.1, 0.1, 5, 5}),
			ExplainedVariance: []float64{0.6, 0.3},
			NComponents:       2,
		},
		Detection: &analytics.DetectionResult{
			Predictions:       []int{1, 1, -1},
			Scores:            []float64{0.1, 0.2, 1.0},
			AnomalyIndices:    []int{2},
			Threshold:         1.0,
			ContaminationUsed: 0.3,
		},
	}
}

func TestWaferHeatmapRenders(t *testing.T) {
	hm := WaferHeatmap(testGrid(t), "Thickness Map", "angstrom", math.NaN(), math.NaN())

	var buf bytes.Buffer
	if err := hm.Render(&buf); err != nil {
		t.Fatalf("Render: %v", err)
	}
	out := buf.String()
	if !strings.Contains(out, "Thickness Map") {
		t.Error("rendered document missing title")
	}
	if !strings.Contains(out, "heatmap") {
		t.Error("rendered document missing heatmap series")
	}
}

func TestWaferHeatmapPinnedRange(t *testing.T) {
	hm := WaferHeatmap(testGrid(t), "t", "nm", 0, 100)
	var buf bytes.Buffer
	if err := hm.Render(&buf); err != nil {
		t.Fatalf("Render: %v", err)
	}
	if !strings.Contains(buf.String(), "100") {
		t.Error("pinned max not present in visual map")
	}
}

func TestPCAScatterSeries(t *testing.T) {
	sc := PCAScatter(testRunResult())
	var buf bytes.Buffer
	if err := sc.Render(&buf); err != nil {
		t.Fatalf("Render: %v", err)
	}
	out := buf.String()
	for _, want := range []string{"normal", "anomalous", "PC1 (60.0%)", "PC2 (30.0%)"} {
		if !strings.Contains(out, want) {
			t.Errorf("rendered document missing %q", want)
		}
	}
}

func TestScoreBarRenders(t *testing.T) {
	res := testRunResult()
	bar := ScoreBar(res.Names, res.Detection)
	var buf bytes.Buffer
	if err := bar.Render(&buf); err != nil {
		t.Fatalf("Render: %v", err)
	}
	if !strings.Contains(buf.String(), "threshold") {
		t.Error("rendered document missing threshold mark line")
	}
}

func TestLineScanChartHandlesNaN(t *testing.T) {
	scan := []wafermap.LineScanPoint{
		{Position: -10, Value: math.NaN()},
		{Position: 0, Value: 5},
		{Position: 10, Value: math.NaN()},
	}
	line := LineScanChart(scan, 45, "angstrom")
	var buf bytes.Buffer
	if err := line.Render(&buf); err != nil {
		t.Fatalf("Render: %v", err)
	}
	if !strings.Contains(buf.String(), "profile") {
		t.Error("rendered document missing profile series")
	}
}

func TestRenderPageCombinesCharts(t *testing.T) {
	res := testRunResult()
	var buf bytes.Buffer
	err := RenderPage(&buf, PCAScatter(res), ScoreBar(res.Names, res.Detection))
	if err != nil {
		t.Fatalf("RenderPage: %v", err)
	}
	out := buf.String()
	if !strings.Contains(out, "Cohort Projection") || !strings.Contains(out, "Anomaly Scores") {
		t.Error("combined page missing chart titles")
	}
}

func TestRadialProfileChartRenders(t *testing.T) {
	samples := []wafermap.RadialSample{
		{R: 0, Value: 1, Smoothed: 1},
		{R: 5, Value: 2, Smoothed: 1.5},
		{R: 10, Value: math.NaN(), Smoothed: math.NaN()},
	}
	line := RadialProfileChart(samples, "angstrom/cycle")
	var buf bytes.Buffer
	if err := line.Render(&buf); err != nil {
		t.Fatalf("Render: %v", err)
	}
	out := buf.String()
	if !strings.Contains(out, "raw") || !strings.Contains(out, "smoothed") {
		t.Error("rendered document missing series names")
	}
}
