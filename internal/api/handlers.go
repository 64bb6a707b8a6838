package api

import (
	"encoding/json"
	"errors"
	"fmt"
	"math"
	"net/http"
	"strconv"
	"time"

	"github.com/fabsight-data/wafer.report/internal/analytics"
	"github.com/fabsight-data/wafer.report/internal/charts"
	"github.com/fabsight-data/wafer.report/internal/httputil"
	"github.com/fabsight-data/wafer.report/internal/units"
	"github.com/fabsight-data/wafer.report/internal/version"
	"github.com/fabsight-data/wafer.report/internal/wafermap"
)

// maxUploadBytes caps wafer upload bodies. Metrology maps are a few
// hundred sites; a megabyte of JSON is already generous.
const maxUploadBytes = 8 << 20

func (ws *WebServer) handleHealth(w http.ResponseWriter, r *http.Request) {
	httputil.WriteJSONOK(w, map[string]string{
		"status":    "ok",
		"service":   "wafer-report",
		"version":   version.Version,
		"timestamp": time.Now().UTC().Format(time.RFC3339),
	})
}

func (ws *WebServer) handleCreateSession(w http.ResponseWriter, r *http.Request) {
	s := ws.store.Create()
	httputil.WriteJSON(w, http.StatusCreated, map[string]string{"session_id": s.ID})
}

type uploadRequest struct {
	Name   string            `json:"name"`
	Points []wafermap.Record `json:"points"`
}

func (ws *WebServer) handleUploadWafer(w http.ResponseWriter, r *http.Request) {
	sess, ok := ws.session(w, r.PathValue("id"))
	if !ok {
		return
	}

	var req uploadRequest
	if err := json.NewDecoder(http.MaxBytesReader(w, r.Body, maxUploadBytes)).Decode(&req); err != nil {
		httputil.BadRequest(w, fmt.Sprintf("invalid request body: %v", err))
		return
	}

	pc, err := wafermap.NewPointCloud(req.Points)
	if err != nil {
		httputil.BadRequest(w, err.Error())
		return
	}
	if err := sess.AddWafer(req.Name, pc); err != nil {
		httputil.BadRequest(w, err.Error())
		return
	}

	httputil.WriteJSON(w, http.StatusCreated, WaferInfo{
		Name:        req.Name,
		Sites:       pc.Len(),
		Radius:      pc.Radius(),
		Fingerprint: pc.Fingerprint(),
	})
}

func (ws *WebServer) handleListWafers(w http.ResponseWriter, r *http.Request) {
	sess, ok := ws.session(w, r.PathValue("id"))
	if !ok {
		return
	}
	httputil.WriteJSONOK(w, map[string]interface{}{"wafers": sess.Wafers()})
}

func (ws *WebServer) handleDeleteWafer(w http.ResponseWriter, r *http.Request) {
	sess, ok := ws.session(w, r.PathValue("id"))
	if !ok {
		return
	}
	name := r.PathValue("name")
	if !sess.RemoveWafer(name) {
		httputil.NotFound(w, fmt.Sprintf("wafer %q not found", name))
		return
	}
	httputil.WriteJSONOK(w, map[string]string{"deleted": name})
}

type zoneStatsResponse struct {
	Zone  wafermap.Zone `json:"zone"`
	Mean  *float64      `json:"mean"`
	Std   *float64      `json:"std"`
	Sites int           `json:"sites"`
}

type statsResponse struct {
	Name       string              `json:"name"`
	Units      string              `json:"units"`
	Mean       *float64            `json:"mean"`
	Max        *float64            `json:"max"`
	Min        *float64            `json:"min"`
	Std        *float64            `json:"std"`
	Uniformity *float64            `json:"uniformity_pct"`
	Range      *float64            `json:"range"`
	Sites      int                 `json:"sites"`
	Zones      []zoneStatsResponse `json:"zones"`
}

func (ws *WebServer) handleWaferStats(w http.ResponseWriter, r *http.Request) {
	name, pc, ok := ws.wafer(w, r)
	if !ok {
		return
	}
	unit, ok := unitParam(w, r)
	if !ok {
		return
	}

	st, err := pc.CalculateStats()
	if err != nil {
		httputil.BadRequest(w, err.Error())
		return
	}

	conv := func(v float64) *float64 { return fptr(units.ConvertThickness(v, unit)) }
	resp := statsResponse{
		Name:       name,
		Units:      unit,
		Mean:       conv(st.Mean),
		Max:        conv(st.Max),
		Min:        conv(st.Min),
		Std:        conv(st.Std),
		Uniformity: fptr(st.Uniformity),
		Range:      conv(st.Range),
		Sites:      st.Sites,
	}
	for _, zs := range pc.ZoneStats(ws.tuning.ZoneBounds()) {
		resp.Zones = append(resp.Zones, zoneStatsResponse{
			Zone:  zs.Zone,
			Mean:  conv(zs.Mean),
			Std:   conv(zs.Std),
			Sites: zs.Sites,
		})
	}
	httputil.WriteJSONOK(w, resp)
}

type gridResponse struct {
	Name       string       `json:"name"`
	Units      string       `json:"units"`
	XAxis      []float64    `json:"x_axis"`
	YAxis      []float64    `json:"y_axis"`
	Values     [][]*float64 `json:"values"`
	Radius     float64      `json:"radius"`
	Resolution int          `json:"resolution"`
	Method     string       `json:"method"`
}

func (ws *WebServer) handleWaferGrid(w http.ResponseWriter, r *http.Request) {
	sess, ok := ws.session(w, r.URL.Query().Get("session_id"))
	if !ok {
		return
	}
	name := r.PathValue("name")
	if _, found := sess.Cloud(name); !found {
		httputil.NotFound(w, fmt.Sprintf("wafer %q not found", name))
		return
	}
	resolution, ok := ws.resolutionParam(w, r)
	if !ok {
		return
	}
	unit, ok := unitParam(w, r)
	if !ok {
		return
	}

	g, err := sess.Grid(name, resolution)
	if err != nil {
		writeDomainError(w, err)
		return
	}

	values := make([][]*float64, len(g.Values))
	for iy, row := range g.Values {
		out := make([]*float64, len(row))
		for ix, v := range row {
			out[ix] = fptr(units.ConvertThickness(v, unit))
		}
		values[iy] = out
	}
	httputil.WriteJSONOK(w, gridResponse{
		Name:       name,
		Units:      unit,
		XAxis:      g.XAxis,
		YAxis:      g.YAxis,
		Values:     values,
		Radius:     g.Radius,
		Resolution: g.Resolution,
		Method:     g.Method,
	})
}

type lineScanPointResponse struct {
	Position float64  `json:"position"`
	X        float64  `json:"x"`
	Y        float64  `json:"y"`
	Value    *float64 `json:"value"`
}

func (ws *WebServer) handleWaferLineScan(w http.ResponseWriter, r *http.Request) {
	name, pc, ok := ws.wafer(w, r)
	if !ok {
		return
	}
	unit, ok := unitParam(w, r)
	if !ok {
		return
	}
	angle, ok := floatParam(w, r, "angle_deg", 0)
	if !ok {
		return
	}

	scan, err := wafermap.LineScan(pc, angle, ws.tuning.GetLineScanResolution())
	if err != nil {
		writeDomainError(w, err)
		return
	}

	points := make([]lineScanPointResponse, len(scan))
	for i, p := range scan {
		points[i] = lineScanPointResponse{
			Position: p.Position,
			X:        p.X,
			Y:        p.Y,
			Value:    fptr(units.ConvertThickness(p.Value, unit)),
		}
	}
	httputil.WriteJSONOK(w, map[string]interface{}{
		"name":      name,
		"units":     unit,
		"angle_deg": angle,
		"points":    points,
	})
}

func (ws *WebServer) handleWaferClassify(w http.ResponseWriter, r *http.Request) {
	name, pc, ok := ws.wafer(w, r)
	if !ok {
		return
	}
	label := wafermap.Classify(pc, ws.tuning.ClassifierThresholds())
	httputil.WriteJSONOK(w, map[string]string{"name": name, "pattern": string(label)})
}

type anomalyRunRequest struct {
	Resolution    int     `json:"resolution"`
	Contamination float64 `json:"contamination"`
}

type anomalyRunResponse struct {
	Names             []string                         `json:"names"`
	ValidMask         []bool                           `json:"valid_mask"`
	Components        [][]float64                      `json:"components"`
	ExplainedVariance []float64                        `json:"explained_variance"`
	NComponents       int                              `json:"n_components"`
	Detection         *analytics.DetectionResult       `json:"detection"`
	Patterns          map[string]wafermap.PatternLabel `json:"patterns"`
	ProjectionReused  bool                             `json:"projection_reused"`
	DetectionReused   bool                             `json:"detection_reused"`
	Warnings          []string                         `json:"warnings,omitempty"`
}

func (ws *WebServer) handleAnomalyRun(w http.ResponseWriter, r *http.Request) {
	if ws.engine == nil {
		httputil.ServiceUnavailable(w, "anomaly detection is disabled")
		return
	}
	sess, ok := ws.session(w, r.PathValue("id"))
	if !ok {
		return
	}

	req := anomalyRunRequest{
		Resolution:    ws.tuning.GetDefaultResolution(),
		Contamination: ws.tuning.GetDefaultContamination(),
	}
	if r.Body != nil && r.ContentLength != 0 {
		if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
			httputil.BadRequest(w, fmt.Sprintf("invalid request body: %v", err))
			return
		}
	}
	if req.Resolution == 0 {
		req.Resolution = ws.tuning.GetDefaultResolution()
	}
	if req.Contamination == 0 {
		req.Contamination = ws.tuning.GetDefaultContamination()
	}
	if req.Resolution < ws.tuning.GetMinResolution() || req.Resolution > ws.tuning.GetMaxResolution() {
		httputil.BadRequest(w, fmt.Sprintf("resolution must be between %d and %d",
			ws.tuning.GetMinResolution(), ws.tuning.GetMaxResolution()))
		return
	}
	if req.Contamination < ws.tuning.GetMinContamination() {
		httputil.BadRequest(w, fmt.Sprintf("contamination must be at least %g", ws.tuning.GetMinContamination()))
		return
	}

	res, err := ws.engine.Run(sess.Model(), sess.Cohort(), req.Resolution, req.Contamination)
	if err != nil {
		writeDomainError(w, err)
		return
	}
	sess.SetLastRun(res)

	n, k := res.Projection.Components.Dims()
	components := make([][]float64, n)
	for i := 0; i < n; i++ {
		row := make([]float64, k)
		for j := 0; j < k; j++ {
			row[j] = res.Projection.Components.At(i, j)
		}
		components[i] = row
	}

	httputil.WriteJSONOK(w, anomalyRunResponse{
		Names:             res.Names,
		ValidMask:         res.ValidMask,
		Components:        components,
		ExplainedVariance: res.Projection.ExplainedVariance,
		NComponents:       res.Projection.NComponents,
		Detection:         res.Detection,
		Patterns:          res.Patterns,
		ProjectionReused:  res.ProjectionReused,
		DetectionReused:   res.DetectionReused,
		Warnings:          res.Warnings,
	})
}

type multiParamRequest struct {
	Wafers []string `json:"wafers"`
	Units  string   `json:"units"`
}

type paramStatsResponse struct {
	Name  string   `json:"name"`
	Mean  *float64 `json:"mean"`
	Std   *float64 `json:"std"`
	Min   *float64 `json:"min"`
	Max   *float64 `json:"max"`
	Sites int      `json:"sites"`
}

func (ws *WebServer) handleMultiParam(w http.ResponseWriter, r *http.Request) {
	sess, ok := ws.session(w, r.PathValue("id"))
	if !ok {
		return
	}

	var req multiParamRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		httputil.BadRequest(w, fmt.Sprintf("invalid request body: %v", err))
		return
	}
	if len(req.Wafers) < 2 {
		httputil.BadRequest(w, "at least two wafers are required for comparison")
		return
	}
	if req.Units == "" {
		req.Units = units.Angstrom
	}
	if !units.IsValid(req.Units) {
		httputil.BadRequest(w, fmt.Sprintf("invalid units; valid values: %s", units.GetValidUnitsString()))
		return
	}

	params := make([]wafermap.ParamSeries, 0, len(req.Wafers))
	stats := make([]paramStatsResponse, 0, len(req.Wafers))
	for _, name := range req.Wafers {
		pc, found := sess.Cloud(name)
		if !found {
			httputil.NotFound(w, fmt.Sprintf("wafer %q not found", name))
			return
		}
		params = append(params, wafermap.ParamSeries{Name: name, Cloud: pc})

		st, err := pc.CalculateStats()
		if err != nil {
			httputil.BadRequest(w, fmt.Sprintf("wafer %q: %v", name, err))
			return
		}
		conv := func(v float64) *float64 { return fptr(units.ConvertThickness(v, req.Units)) }
		stats = append(stats, paramStatsResponse{
			Name: name, Mean: conv(st.Mean), Std: conv(st.Std),
			Min: conv(st.Min), Max: conv(st.Max), Sites: st.Sites,
		})
	}

	corr, err := wafermap.CorrelationMatrix(params)
	if err != nil {
		writeDomainError(w, err)
		return
	}
	corrOut := make([][]*float64, len(corr))
	for i, row := range corr {
		out := make([]*float64, len(row))
		for j, v := range row {
			out[j] = fptr(v)
		}
		corrOut[i] = out
	}

	minV, maxV, rangeOK := wafermap.SharedRange(params)
	resp := map[string]interface{}{
		"wafers":      req.Wafers,
		"units":       req.Units,
		"stats":       stats,
		"correlation": corrOut,
	}
	if rangeOK {
		resp["shared_min"] = units.ConvertThickness(minV, req.Units)
		resp["shared_max"] = units.ConvertThickness(maxV, req.Units)
	}
	httputil.WriteJSONOK(w, resp)
}

type defectInput struct {
	X     float64  `json:"x"`
	Y     float64  `json:"y"`
	Class string   `json:"class"`
	Size  *float64 `json:"size"`
}

type defectOverlayRequest struct {
	Defects    []defectInput `json:"defects"`
	CoordScale float64       `json:"coord_scale"`
}

type defectResponse struct {
	X     float64  `json:"x"`
	Y     float64  `json:"y"`
	Class string   `json:"class"`
	Size  *float64 `json:"size,omitempty"`
}

func (ws *WebServer) handleDefectOverlay(w http.ResponseWriter, r *http.Request) {
	sess, ok := ws.session(w, r.PathValue("id"))
	if !ok {
		return
	}
	name := r.PathValue("name")
	pc, found := sess.Cloud(name)
	if !found {
		httputil.NotFound(w, fmt.Sprintf("wafer %q not found", name))
		return
	}

	var req defectOverlayRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		httputil.BadRequest(w, fmt.Sprintf("invalid request body: %v", err))
		return
	}

	defects := make([]wafermap.Defect, len(req.Defects))
	for i, d := range req.Defects {
		size := math.NaN()
		if d.Size != nil {
			size = *d.Size
		}
		defects[i] = wafermap.Defect{X: d.X, Y: d.Y, Class: d.Class, Size: size}
	}

	overlay, err := wafermap.OverlayDefects(defects, pc.Radius(), req.CoordScale, ws.tuning.ZoneBounds())
	if err != nil {
		writeDomainError(w, err)
		return
	}

	out := make([]defectResponse, len(overlay.Defects))
	for i, d := range overlay.Defects {
		out[i] = defectResponse{X: d.X, Y: d.Y, Class: d.Class, Size: fptr(d.Size)}
	}
	resp := map[string]interface{}{
		"name":         name,
		"defects":      out,
		"inside":       overlay.Inside,
		"outside":      overlay.Outside,
		"zone_counts":  overlay.ZoneCounts,
		"class_counts": overlay.ClassCounts,
	}
	if overlay.ScaleWarning != "" {
		resp["scale_warning"] = overlay.ScaleWarning
	}
	httputil.WriteJSONOK(w, resp)
}

type gpcRequest struct {
	X           []float64 `json:"x"`
	Y           []float64 `json:"y"`
	Thickness   []float64 `json:"thickness"`
	Mode        string    `json:"mode"`
	Cycles      []float64 `json:"cycles,omitempty"`
	FixedCycles float64   `json:"fixed_cycles,omitempty"`
}

type gpcPointResponse struct {
	X    float64  `json:"x"`
	Y    float64  `json:"y"`
	Data *float64 `json:"data"`
}

type zoneSummaryResponse struct {
	Zone   wafermap.Zone `json:"zone"`
	Mean   *float64      `json:"mean"`
	Std    *float64      `json:"std"`
	Sites  int           `json:"sites"`
	Values []float64     `json:"values"`
}

type radialSampleResponse struct {
	R        float64  `json:"r"`
	Value    *float64 `json:"value"`
	Smoothed *float64 `json:"smoothed"`
}

func (ws *WebServer) handleGPC(w http.ResponseWriter, r *http.Request) {
	var req gpcRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		httputil.BadRequest(w, fmt.Sprintf("invalid request body: %v", err))
		return
	}

	mode := wafermap.CycleMode(req.Mode)
	if mode != wafermap.CycleModeColumn && mode != wafermap.CycleModeFixed {
		httputil.BadRequest(w, `cycle mode must be "column" or "fixed"`)
		return
	}

	pc, err := wafermap.ComputeGPC(wafermap.GPCRequest{
		X:         req.X,
		Y:         req.Y,
		Thickness: req.Thickness,
		Mode:      mode,
		Cycles:    req.Cycles,
		Fixed:     req.FixedCycles,
	})
	if err != nil {
		writeDomainError(w, err)
		return
	}

	points := make([]gpcPointResponse, 0, pc.Len())
	for _, p := range pc.Points() {
		points = append(points, gpcPointResponse{X: p.X, Y: p.Y, Data: fptr(p.Data)})
	}

	var zones []zoneSummaryResponse
	for _, zs := range wafermap.ZoneSummaries(pc, ws.tuning.ZoneBounds()) {
		zones = append(zones, zoneSummaryResponse{
			Zone: zs.Zone, Mean: fptr(zs.Mean), Std: fptr(zs.Std),
			Sites: zs.Sites, Values: zs.Values,
		})
	}

	var radial []radialSampleResponse
	if samples, err := wafermap.RadialProfile(pc, ws.tuning.GetSmoothingWindow()); err == nil {
		radial = make([]radialSampleResponse, len(samples))
		for i, s := range samples {
			radial[i] = radialSampleResponse{R: s.R, Value: fptr(s.Value), Smoothed: fptr(s.Smoothed)}
		}
	}

	httputil.WriteJSONOK(w, map[string]interface{}{
		"points": points,
		"sites":  pc.Len(),
		"radius": pc.Radius(),
		"zones":  zones,
		"radial": radial,
	})
}

type exportRequest struct {
	Resolution int    `json:"resolution"`
	Units      string `json:"units"`
}

func (ws *WebServer) handleExportPNG(w http.ResponseWriter, r *http.Request) {
	if ws.exporter == nil {
		httputil.ServiceUnavailable(w, "plot export is disabled")
		return
	}
	sess, ok := ws.session(w, r.PathValue("id"))
	if !ok {
		return
	}
	name := r.PathValue("name")
	if _, found := sess.Cloud(name); !found {
		httputil.NotFound(w, fmt.Sprintf("wafer %q not found", name))
		return
	}

	req := exportRequest{Resolution: ws.tuning.GetDefaultResolution(), Units: units.Angstrom}
	if r.Body != nil && r.ContentLength != 0 {
		if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
			httputil.BadRequest(w, fmt.Sprintf("invalid request body: %v", err))
			return
		}
	}
	if req.Resolution == 0 {
		req.Resolution = ws.tuning.GetDefaultResolution()
	}

	g, err := sess.Grid(name, req.Resolution)
	if err != nil {
		writeDomainError(w, err)
		return
	}

	dir, err := ws.exporter.MakeOutputDir(sess.ID, time.Now())
	if err != nil {
		httputil.InternalServerError(w, err.Error())
		return
	}
	path, err := ws.exporter.HeatmapPNG(dir, name, g, name, units.Label(req.Units))
	if err != nil {
		httputil.InternalServerError(w, err.Error())
		return
	}
	httputil.WriteJSONOK(w, map[string]string{"path": path})
}

func (ws *WebServer) handleChartHeatmap(w http.ResponseWriter, r *http.Request) {
	sess, ok := ws.session(w, r.URL.Query().Get("session_id"))
	if !ok {
		return
	}
	name := r.URL.Query().Get("wafer")
	if _, found := sess.Cloud(name); !found {
		httputil.NotFound(w, fmt.Sprintf("wafer %q not found", name))
		return
	}
	resolution, ok := ws.resolutionParam(w, r)
	if !ok {
		return
	}
	unit, ok := unitParam(w, r)
	if !ok {
		return
	}

	g, err := sess.Grid(name, resolution)
	if err != nil {
		writeDomainError(w, err)
		return
	}

	w.Header().Set("Content-Type", "text/html")
	hm := charts.WaferHeatmap(convertGrid(g, unit), name, units.Label(unit), math.NaN(), math.NaN())
	if err := hm.Render(w); err != nil {
		httputil.InternalServerError(w, err.Error())
	}
}

func (ws *WebServer) handleChartPCA(w http.ResponseWriter, r *http.Request) {
	run, ok := ws.lastRun(w, r)
	if !ok {
		return
	}
	w.Header().Set("Content-Type", "text/html")
	if err := charts.PCAScatter(run).Render(w); err != nil {
		httputil.InternalServerError(w, err.Error())
	}
}

func (ws *WebServer) handleChartScores(w http.ResponseWriter, r *http.Request) {
	run, ok := ws.lastRun(w, r)
	if !ok {
		return
	}
	w.Header().Set("Content-Type", "text/html")
	if err := charts.ScoreBar(run.Names, run.Detection).Render(w); err != nil {
		httputil.InternalServerError(w, err.Error())
	}
}

func (ws *WebServer) handleChartRadial(w http.ResponseWriter, r *http.Request) {
	sess, ok := ws.session(w, r.URL.Query().Get("session_id"))
	if !ok {
		return
	}
	name := r.URL.Query().Get("wafer")
	pc, found := sess.Cloud(name)
	if !found {
		httputil.NotFound(w, fmt.Sprintf("wafer %q not found", name))
		return
	}
	unit, ok := unitParam(w, r)
	if !ok {
		return
	}

	samples, err := wafermap.RadialProfile(pc, ws.tuning.GetSmoothingWindow())
	if err != nil {
		writeDomainError(w, err)
		return
	}

	w.Header().Set("Content-Type", "text/html")
	if err := charts.RadialProfileChart(samples, units.Label(unit)).Render(w); err != nil {
		httputil.InternalServerError(w, err.Error())
	}
}

// session resolves a session ID and writes the error response when it is
// missing or unknown.
func (ws *WebServer) session(w http.ResponseWriter, id string) (*Session, bool) {
	if id == "" {
		httputil.BadRequest(w, "missing session id")
		return nil, false
	}
	sess, ok := ws.store.Get(id)
	if !ok {
		httputil.NotFound(w, fmt.Sprintf("session %q not found", id))
		return nil, false
	}
	return sess, true
}

// wafer resolves the {name} path wafer inside the session_id query
// session.
func (ws *WebServer) wafer(w http.ResponseWriter, r *http.Request) (string, *wafermap.PointCloud, bool) {
	sess, ok := ws.session(w, r.URL.Query().Get("session_id"))
	if !ok {
		return "", nil, false
	}
	name := r.PathValue("name")
	pc, found := sess.Cloud(name)
	if !found {
		httputil.NotFound(w, fmt.Sprintf("wafer %q not found", name))
		return "", nil, false
	}
	return name, pc, true
}

func (ws *WebServer) lastRun(w http.ResponseWriter, r *http.Request) (*analytics.RunResult, bool) {
	sess, ok := ws.session(w, r.URL.Query().Get("session_id"))
	if !ok {
		return nil, false
	}
	run, has := sess.LastRun()
	if !has {
		httputil.NotFound(w, "no anomaly run for this session yet")
		return nil, false
	}
	return run, true
}

func (ws *WebServer) resolutionParam(w http.ResponseWriter, r *http.Request) (int, bool) {
	resolution := ws.tuning.GetDefaultResolution()
	if q := r.URL.Query().Get("resolution"); q != "" {
		v, err := strconv.Atoi(q)
		if err != nil {
			httputil.BadRequest(w, "resolution must be an integer")
			return 0, false
		}
		resolution = v
	}
	if resolution < ws.tuning.GetMinResolution() || resolution > ws.tuning.GetMaxResolution() {
		httputil.BadRequest(w, fmt.Sprintf("resolution must be between %d and %d",
			ws.tuning.GetMinResolution(), ws.tuning.GetMaxResolution()))
		return 0, false
	}
	return resolution, true
}

func unitParam(w http.ResponseWriter, r *http.Request) (string, bool) {
	unit := r.URL.Query().Get("units")
	if unit == "" {
		return units.Angstrom, true
	}
	if !units.IsValid(unit) {
		httputil.BadRequest(w, fmt.Sprintf("invalid units; valid values: %s", units.GetValidUnitsString()))
		return "", false
	}
	return unit, true
}

func floatParam(w http.ResponseWriter, r *http.Request, name string, def float64) (float64, bool) {
	q := r.URL.Query().Get(name)
	if q == "" {
		return def, true
	}
	v, err := strconv.ParseFloat(q, 64)
	if err != nil {
		httputil.BadRequest(w, fmt.Sprintf("%s must be a number", name))
		return 0, false
	}
	return v, true
}

// writeDomainError maps pipeline sentinel errors onto HTTP statuses.
func writeDomainError(w http.ResponseWriter, err error) {
	switch {
	case errors.Is(err, analytics.ErrModelUnavailable):
		httputil.ServiceUnavailable(w, err.Error())
	case errors.Is(err, analytics.ErrInsufficientSamples),
		errors.Is(err, wafermap.ErrInvalidInput),
		errors.Is(err, wafermap.ErrTooFewPoints):
		httputil.BadRequest(w, err.Error())
	default:
		httputil.InternalServerError(w, err.Error())
	}
}

// fptr converts a float to a JSON-safe pointer: NaN and infinities
// become null.
func fptr(v float64) *float64 {
	if math.IsNaN(v) || math.IsInf(v, 0) {
		return nil
	}
	return &v
}

// convertGrid returns a copy of g with values converted to unit, or g
// itself when no conversion applies.
func convertGrid(g *wafermap.Grid, unit string) *wafermap.Grid {
	if unit == units.Angstrom || unit == units.AngstromPerCycle {
		return g
	}
	out := &wafermap.Grid{
		XAxis:      g.XAxis,
		YAxis:      g.YAxis,
		Values:     make([][]float64, len(g.Values)),
		Radius:     g.Radius,
		Resolution: g.Resolution,
		Method:     g.Method,
	}
	for iy, row := range g.Values {
		conv := make([]float64, len(row))
		for ix, v := range row {
			conv[ix] = units.ConvertThickness(v, unit)
		}
		out.Values[iy] = conv
	}
	return out
}
