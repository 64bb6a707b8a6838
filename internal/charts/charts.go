// Package charts builds the interactive dashboard views: wafer heatmaps,
// PCA scatter plots, anomaly score bars and radial profiles, rendered
// server-side as self-contained HTML documents.
package charts

import (
	"fmt"
	"io"
	"math"
	"strconv"

	"github.com/go-echarts/go-echarts/v2/charts"
	"github.com/go-echarts/go-echarts/v2/components"
	"github.com/go-echarts/go-echarts/v2/opts"

	"github.com/fabsight-data/wafer.report/internal/analytics"
	"github.com/fabsight-data/wafer.report/internal/wafermap"
)

const echartsAssetsHost = "https://go-echarts.github.io/go-echarts-assets/assets/"

// viridis color ramp for measurement heatmaps.
var viridisColors = []string{
	"#440154", "#482777", "#3e4989", "#31688e", "#26828e",
	"#1f9e89", "#35b779", "#6ece58", "#b5de2b", "#fde725",
}

// WaferHeatmap renders an interpolated grid as a 2D heatmap. Cells
// outside the wafer disc are omitted entirely, which draws the circular
// outline without a mask overlay. An explicit value range pins the color
// scale, for side-by-side parameter comparison; pass NaNs to autoscale.
func WaferHeatmap(g *wafermap.Grid, title, unit string, zmin, zmax float64) *charts.HeatMap {
	var data []opts.HeatMapData
	min, max := math.Inf(1), math.Inf(-1)
	for iy, row := range g.Values {
		for ix, v := range row {
			if math.IsNaN(v) {
				continue
			}
			min = math.Min(min, v)
			max = math.Max(max, v)
			data = append(data, opts.HeatMapData{Value: [3]interface{}{ix, iy, v}})
		}
	}
	if !math.IsNaN(zmin) {
		min = zmin
	}
	if !math.IsNaN(zmax) {
		max = zmax
	}
	if len(data) == 0 || min > max {
		min, max = 0, 1
	}

	axisLabels := make([]string, len(g.XAxis))
	for i, x := range g.XAxis {
		axisLabels[i] = strconv.FormatFloat(x, 'f', 1, 64)
	}

	hm := charts.NewHeatMap()
	hm.SetGlobalOptions(
		charts.WithInitializationOpts(opts.Initialization{PageTitle: title, Width: "760px", Height: "720px", AssetsHost: echartsAssetsHost}),
		charts.WithTitleOpts(opts.Title{Title: title, Subtitle: fmt.Sprintf("resolution=%d radius=%.1f mm method=%s", g.Resolution, g.Radius, g.Method)}),
		charts.WithTooltipOpts(opts.Tooltip{Show: opts.Bool(true)}),
		charts.WithXAxisOpts(opts.XAxis{Type: "category", Data: axisLabels, Name: "X (mm)", NameLocation: "middle", NameGap: 25}),
		charts.WithYAxisOpts(opts.YAxis{Type: "category", Data: axisLabels, Name: "Y (mm)", NameLocation: "middle", NameGap: 30}),
		charts.WithVisualMapOpts(opts.VisualMap{
			Show:       opts.Bool(true),
			Calculable: opts.Bool(true),
			Min:        float32(min),
			Max:        float32(max),
			Text:       []string{unit, ""},
			InRange:    &opts.VisualMapInRange{Color: viridisColors},
		}),
	)
	hm.AddSeries("wafer", data)
	return hm
}

// PCAScatter plots the cohort in its first two principal components,
// normal wafers in one series and flagged wafers in another. Axis labels
// carry the explained variance share of each component.
func PCAScatter(res *analytics.RunResult) *charts.Scatter {
	var normal, anomalous []opts.ScatterData
	for i, name := range res.Names {
		pt := opts.ScatterData{
			Name:  name,
			Value: []interface{}{res.Projection.Components.At(i, 0), res.Projection.Components.At(i, 1)},
		}
		if res.Detection.Predictions[i] == -1 {
			pt.Symbol = "triangle"
			anomalous = append(anomalous, pt)
		} else {
			normal = append(normal, pt)
		}
	}

	xLabel := fmt.Sprintf("PC1 (%.1f%%)", res.Projection.ExplainedVariance[0]*100)
	yLabel := fmt.Sprintf("PC2 (%.1f%%)", res.Projection.ExplainedVariance[1]*100)

	sc := charts.NewScatter()
	sc.SetGlobalOptions(
		charts.WithInitializationOpts(opts.Initialization{PageTitle: "Wafer Cohort PCA", Width: "900px", Height: "720px", AssetsHost: echartsAssetsHost}),
		charts.WithTitleOpts(opts.Title{Title: "Cohort Projection", Subtitle: fmt.Sprintf("%d wafers, %d flagged", len(res.Names), len(res.Detection.AnomalyIndices))}),
		charts.WithTooltipOpts(opts.Tooltip{Show: opts.Bool(true)}),
		charts.WithXAxisOpts(opts.XAxis{Name: xLabel, NameLocation: "middle", NameGap: 25}),
		charts.WithYAxisOpts(opts.YAxis{Name: yLabel, NameLocation: "middle", NameGap: 30}),
		charts.WithLegendOpts(opts.Legend{Show: opts.Bool(true)}),
	)
	sc.AddSeries("normal", normal, charts.WithScatterChartOpts(opts.ScatterChart{SymbolSize: 10}))
	sc.AddSeries("anomalous", anomalous, charts.WithScatterChartOpts(opts.ScatterChart{SymbolSize: 14}))
	return sc
}

// ScoreBar renders per-wafer anomaly scores with a mark line at the
// decision threshold.
func ScoreBar(names []string, det *analytics.DetectionResult) *charts.Bar {
	data := make([]opts.BarData, len(names))
	for i := range names {
		data[i] = opts.BarData{Value: det.Scores[i]}
	}

	bar := charts.NewBar()
	bar.SetGlobalOptions(
		charts.WithInitializationOpts(opts.Initialization{PageTitle: "Anomaly Scores", Width: "900px", Height: "560px", AssetsHost: echartsAssetsHost}),
		charts.WithTitleOpts(opts.Title{Title: "Anomaly Scores", Subtitle: fmt.Sprintf("contamination=%.2f threshold=%.3f", det.ContaminationUsed, det.Threshold)}),
		charts.WithTooltipOpts(opts.Tooltip{Show: opts.Bool(true)}),
		charts.WithYAxisOpts(opts.YAxis{Name: "score", Min: 0, Max: 1}),
	)
	bar.SetXAxis(names).
		AddSeries("score", data,
			charts.WithLabelOpts(opts.Label{Show: opts.Bool(true), Position: "top"}),
			charts.WithMarkLineNameYAxisItemOpts(opts.MarkLineNameYAxisItem{Name: "threshold", YAxis: det.Threshold}),
		)
	return bar
}

// LineScanChart renders a diameter cross-section profile.
func LineScanChart(scan []wafermap.LineScanPoint, angleDeg float64, unit string) *charts.Line {
	x := make([]string, len(scan))
	y := make([]opts.LineData, len(scan))
	for i, s := range scan {
		x[i] = strconv.FormatFloat(s.Position, 'f', 1, 64)
		if math.IsNaN(s.Value) {
			y[i] = opts.LineData{Value: "-"}
		} else {
			y[i] = opts.LineData{Value: s.Value}
		}
	}

	line := charts.NewLine()
	line.SetGlobalOptions(
		charts.WithInitializationOpts(opts.Initialization{PageTitle: "Line Scan", Width: "900px", Height: "420px", AssetsHost: echartsAssetsHost}),
		charts.WithTitleOpts(opts.Title{Title: fmt.Sprintf("Line Scan - %.0f°", angleDeg)}),
		charts.WithTooltipOpts(opts.Tooltip{Show: opts.Bool(true)}),
		charts.WithXAxisOpts(opts.XAxis{Name: "Position (mm)", NameLocation: "middle", NameGap: 25}),
		charts.WithYAxisOpts(opts.YAxis{Name: unit}),
	)
	line.SetXAxis(x).AddSeries("profile", y,
		charts.WithLineChartOpts(opts.LineChart{ShowSymbol: opts.Bool(true)}))
	return line
}

// RadialProfileChart renders raw values and their rolling mean against
// radius.
func RadialProfileChart(samples []wafermap.RadialSample, unit string) *charts.Line {
	x := make([]string, len(samples))
	raw := make([]opts.LineData, len(samples))
	smoothed := make([]opts.LineData, len(samples))
	for i, s := range samples {
		x[i] = strconv.FormatFloat(s.R, 'f', 1, 64)
		if math.IsNaN(s.Value) {
			raw[i] = opts.LineData{Value: "-"}
		} else {
			raw[i] = opts.LineData{Value: s.Value}
		}
		if math.IsNaN(s.Smoothed) {
			smoothed[i] = opts.LineData{Value: "-"}
		} else {
			smoothed[i] = opts.LineData{Value: s.Smoothed}
		}
	}

	line := charts.NewLine()
	line.SetGlobalOptions(
		charts.WithInitializationOpts(opts.Initialization{PageTitle: "Radial Profile", Width: "900px", Height: "480px", AssetsHost: echartsAssetsHost}),
		charts.WithTitleOpts(opts.Title{Title: "Radial Profile"}),
		charts.WithTooltipOpts(opts.Tooltip{Show: opts.Bool(true)}),
		charts.WithXAxisOpts(opts.XAxis{Name: "Radius (mm)", NameLocation: "middle", NameGap: 25}),
		charts.WithYAxisOpts(opts.YAxis{Name: unit}),
		charts.WithLegendOpts(opts.Legend{Show: opts.Bool(true)}),
	)
	line.SetXAxis(x).
		AddSeries("raw", raw, charts.WithLineChartOpts(opts.LineChart{ShowSymbol: opts.Bool(true)})).
		AddSeries("smoothed", smoothed, charts.WithLineChartOpts(opts.LineChart{Smooth: opts.Bool(true)}))
	return line
}

// RenderPage renders one or more charts into a single HTML document.
func RenderPage(w io.Writer, cs ...components.Charter) error {
	page := components.NewPage()
	page.SetAssetsHost(echartsAssetsHost)
	page.AddCharts(cs...)
	return page.Render(w)
}
