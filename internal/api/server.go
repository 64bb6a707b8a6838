// Package api exposes the wafer analysis pipeline over HTTP: session
// and wafer management, map and profile views, anomaly detection runs
// and chart pages.
package api

import (
	"context"
	"net/http"
	"strconv"
	"time"

	"github.com/fabsight-data/wafer.report/internal/analytics"
	"github.com/fabsight-data/wafer.report/internal/config"
	"github.com/fabsight-data/wafer.report/internal/monitoring"
	"github.com/fabsight-data/wafer.report/internal/plotout"
)

// ANSI escape codes for request log coloring
const colorCyan = "\033[36m"
const colorReset = "\033[0m"
const colorYellow = "\033[33m"
const colorBoldGreen = "\033[1;32m"
const colorBoldRed = "\033[1;31m"

// Config carries the web server's dependencies. A nil Engine disables
// the anomaly endpoints; a nil Exporter disables PNG export.
type Config struct {
	Addr     string
	Tuning   *config.TuningConfig
	Engine   *analytics.Engine
	Store    *Store
	Exporter *plotout.Exporter
}

// WebServer handles the HTTP interface for wafer map analysis.
type WebServer struct {
	addr     string
	tuning   *config.TuningConfig
	engine   *analytics.Engine
	store    *Store
	exporter *plotout.Exporter
	server   *http.Server
}

// NewWebServer creates a web server with the provided configuration.
func NewWebServer(cfg Config) *WebServer {
	ws := &WebServer{
		addr:     cfg.Addr,
		tuning:   cfg.Tuning,
		engine:   cfg.Engine,
		store:    cfg.Store,
		exporter: cfg.Exporter,
	}
	if ws.tuning == nil {
		ws.tuning = config.EmptyTuningConfig()
	}
	if ws.store == nil {
		ws.store = NewStore(nil, DefaultSessionTTL)
	}

	ws.server = &http.Server{
		Addr:    ws.addr,
		Handler: LoggingMiddleware(ws.setupRoutes()),
	}
	return ws
}

// Handler returns the routed handler, for tests.
func (ws *WebServer) Handler() http.Handler {
	return ws.server.Handler
}

// Start begins the HTTP server and blocks until ctx is cancelled, then
// shuts down gracefully.
func (ws *WebServer) Start(ctx context.Context) error {
	errCh := make(chan error, 1)
	go func() {
		monitoring.Logf("starting HTTP server on %s", ws.addr)
		if err := ws.server.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			errCh <- err
		}
	}()

	select {
	case err := <-errCh:
		return err
	case <-ctx.Done():
	}
	monitoring.Logf("shutting down HTTP server...")

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()

	if err := ws.server.Shutdown(shutdownCtx); err != nil {
		monitoring.Logf("HTTP server shutdown error: %v", err)
		if err := ws.server.Close(); err != nil {
			monitoring.Logf("HTTP server force close error: %v", err)
		}
	}
	monitoring.Logf("HTTP server stopped")
	return nil
}

// setupRoutes configures the HTTP routes and handlers.
func (ws *WebServer) setupRoutes() *http.ServeMux {
	mux := http.NewServeMux()

	mux.HandleFunc("GET /health", ws.handleHealth)

	mux.HandleFunc("POST /api/sessions", ws.handleCreateSession)
	mux.HandleFunc("GET /api/sessions/{id}/wafers", ws.handleListWafers)
	mux.HandleFunc("POST /api/sessions/{id}/wafers", ws.handleUploadWafer)
	mux.HandleFunc("DELETE /api/sessions/{id}/wafers/{name}", ws.handleDeleteWafer)

	mux.HandleFunc("GET /api/wafers/{name}/stats", ws.handleWaferStats)
	mux.HandleFunc("GET /api/wafers/{name}/grid", ws.handleWaferGrid)
	mux.HandleFunc("GET /api/wafers/{name}/linescan", ws.handleWaferLineScan)
	mux.HandleFunc("GET /api/wafers/{name}/classify", ws.handleWaferClassify)

	mux.HandleFunc("POST /api/sessions/{id}/anomaly/run", ws.handleAnomalyRun)
	mux.HandleFunc("POST /api/sessions/{id}/multiparam", ws.handleMultiParam)
	mux.HandleFunc("POST /api/sessions/{id}/wafers/{name}/defects", ws.handleDefectOverlay)
	mux.HandleFunc("POST /api/sessions/{id}/wafers/{name}/export", ws.handleExportPNG)
	mux.HandleFunc("POST /api/gpc", ws.handleGPC)

	mux.HandleFunc("GET /charts/heatmap", ws.handleChartHeatmap)
	mux.HandleFunc("GET /charts/pca", ws.handleChartPCA)
	mux.HandleFunc("GET /charts/scores", ws.handleChartScores)
	mux.HandleFunc("GET /charts/radial", ws.handleChartRadial)

	return mux
}

type loggingResponseWriter struct {
	http.ResponseWriter
	statusCode int
}

func (lrw *loggingResponseWriter) WriteHeader(code int) {
	lrw.statusCode = code
	lrw.ResponseWriter.WriteHeader(code)
}

func (lrw *loggingResponseWriter) Flush() {
	if flusher, ok := lrw.ResponseWriter.(http.Flusher); ok {
		flusher.Flush()
	}
}

func statusCodeColor(statusCode int) string {
	switch {
	case statusCode >= 200 && statusCode < 300:
		return colorBoldGreen + strconv.Itoa(statusCode) + colorReset
	case statusCode >= 300 && statusCode < 400:
		return colorYellow + strconv.Itoa(statusCode) + colorReset
	case statusCode >= 400:
		return colorBoldRed + strconv.Itoa(statusCode) + colorReset
	default:
		return strconv.Itoa(statusCode)
	}
}

// LoggingMiddleware logs method, path, status, and duration.
func LoggingMiddleware(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		start := time.Now()
		lrw := &loggingResponseWriter{w, http.StatusOK}
		next.ServeHTTP(lrw, r)
		monitoring.Logf(
			"[%s] %s %s%s%s %vms",
			statusCodeColor(lrw.statusCode), r.Method,
			colorCyan, r.RequestURI, colorReset,
			float64(time.Since(start).Nanoseconds())/1e6,
		)
	})
}
