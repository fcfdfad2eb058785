// Package api serves stored analysis runs over HTTP: run listings, area and
// change results as JSON, stored artifacts and the echarts dashboard.
package api

import (
	"bytes"
	"errors"
	"fmt"
	"io"
	"log"
	"net/http"
	"path"
	"strconv"
	"time"

	"github.com/banshee-data/landcover.report/internal/blob"
	"github.com/banshee-data/landcover.report/internal/config"
	"github.com/banshee-data/landcover.report/internal/db"
	"github.com/banshee-data/landcover.report/internal/httputil"
	"github.com/banshee-data/landcover.report/internal/monitoring"
	"github.com/banshee-data/landcover.report/internal/render"
)

// ANSI escape codes for cyan and reset
const colorCyan = "\033[36m"
const colorReset = "\033[0m"
const colorYellow = "\033[33m"
const colorBoldGreen = "\033[1;32m"
const colorBoldRed = "\033[1;31m"

const (
	defaultRunLimit = 20
	maxRunLimit     = 500
	presignExpiry   = 15 * time.Minute
)

type Server struct {
	db        *db.DB
	blobs     blob.Store
	cfg       *config.Config
	metrics   *monitoring.Metrics
	dashboard *render.Dashboard
}

// NewServer returns a Server reading runs from database and artifacts from
// blobs. metrics may be nil, in which case /metrics is not registered.
func NewServer(database *db.DB, blobs blob.Store, cfg *config.Config, metrics *monitoring.Metrics) *Server {
	return &Server{
		db:        database,
		blobs:     blobs,
		cfg:       cfg,
		metrics:   metrics,
		dashboard: &render.Dashboard{Units: cfg.GetAreaUnits()},
	}
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

// LoggingMiddleware logs method, path, query, status, and duration
func LoggingMiddleware(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		start := time.Now()
		lrw := &loggingResponseWriter{w, http.StatusOK}
		next.ServeHTTP(lrw, r)
		log.Printf(
			"[%s] %s %s%s%s %vms",
			statusCodeColor(lrw.statusCode), r.Method,
			colorCyan, r.RequestURI, colorReset,
			float64(time.Since(start).Nanoseconds())/1e6,
		)
	})
}

func (s *Server) ServeMux() *http.ServeMux {
	mux := http.NewServeMux()
	mux.HandleFunc("GET /api/runs", s.listRuns)
	mux.HandleFunc("GET /api/runs/{id}", s.getRun)
	mux.HandleFunc("GET /api/runs/{id}/area", s.runArea)
	mux.HandleFunc("GET /api/runs/{id}/changes", s.runChanges)
	mux.HandleFunc("GET /api/runs/{id}/artifacts", s.runArtifacts)
	mux.HandleFunc("GET /runs/{id}/dashboard", s.runDashboard)
	mux.HandleFunc("GET /runs/{id}/plots/{name}", s.runPlot)
	if s.metrics != nil {
		mux.Handle("GET /metrics", s.metrics.Handler())
	}
	// SQL console and backups, loopback and tailnet only
	if err := s.db.AttachAdminRoutes(mux); err != nil {
		monitoring.Logf("admin routes disabled: %v", err)
	}
	return mux
}

func (s *Server) listRuns(w http.ResponseWriter, r *http.Request) {
	limit := defaultRunLimit
	if v := r.URL.Query().Get("limit"); v != "" {
		n, err := strconv.Atoi(v)
		if err != nil || n <= 0 || n > maxRunLimit {
			httputil.BadRequest(w, fmt.Sprintf("limit must be between 1 and %d", maxRunLimit))
			return
		}
		limit = n
	}

	runs, err := s.db.ListRuns(limit)
	if err != nil {
		httputil.InternalServerError(w, fmt.Sprintf("failed to list runs: %v", err))
		return
	}
	httputil.WriteJSONOK(w, runs)
}

func (s *Server) getRun(w http.ResponseWriter, r *http.Request) {
	run, ok := s.lookupRun(w, r)
	if !ok {
		return
	}
	httputil.WriteJSONOK(w, run)
}

func (s *Server) runArea(w http.ResponseWriter, r *http.Request) {
	run, ok := s.lookupRun(w, r)
	if !ok {
		return
	}
	areas, err := s.db.LoadAreaResults(run.ID)
	if err != nil {
		s.writeLoadError(w, err)
		return
	}
	httputil.WriteJSONOK(w, areas)
}

func (s *Server) runChanges(w http.ResponseWriter, r *http.Request) {
	run, ok := s.lookupRun(w, r)
	if !ok {
		return
	}
	change, err := s.db.LoadChangeResult(run.ID)
	if err != nil {
		s.writeLoadError(w, err)
		return
	}
	httputil.WriteJSONOK(w, change)
}

// runArtifacts lists the run's stored documents and charts. URLs are filled
// in when the backend can presign them.
func (s *Server) runArtifacts(w http.ResponseWriter, r *http.Request) {
	run, ok := s.lookupRun(w, r)
	if !ok {
		return
	}

	infos := make([]blob.Info, 0)
	for _, prefix := range []string{
		path.Join(s.cfg.GetResultsPrefix(), run.ID) + "/",
		path.Join(s.cfg.GetPlotsPrefix(), run.ID) + "/",
	} {
		listed, err := s.blobs.List(r.Context(), prefix)
		if err != nil {
			httputil.InternalServerError(w, fmt.Sprintf("failed to list artifacts: %v", err))
			return
		}
		infos = append(infos, listed...)
	}

	for i := range infos {
		url, err := s.blobs.PresignURL(r.Context(), infos[i].Key, blob.SignedURLOptions{Method: http.MethodGet, Expiry: presignExpiry})
		switch {
		case err == nil:
			infos[i].URL = url
		case errors.Is(err, blob.ErrUnsupported):
		default:
			monitoring.Logf("failed to presign %s: %v", infos[i].Key, err)
		}
	}
	httputil.WriteJSONOK(w, infos)
}

// runDashboard renders the echarts page from the stored results.
func (s *Server) runDashboard(w http.ResponseWriter, r *http.Request) {
	run, ok := s.lookupRun(w, r)
	if !ok {
		return
	}
	areas, err := s.db.LoadAreaResults(run.ID)
	if err != nil {
		s.writeLoadError(w, err)
		return
	}
	change, err := s.db.LoadChangeResult(run.ID)
	if err != nil && !errors.Is(err, db.ErrNoResults) {
		s.writeLoadError(w, err)
		return
	}

	var buf bytes.Buffer
	if err := s.dashboard.Render(&buf, areas, change); err != nil {
		httputil.InternalServerError(w, fmt.Sprintf("render error: %v", err))
		return
	}
	httputil.WriteBody(w, render.HTMLContentType, buf.Bytes())
}

// runPlot streams one stored chart.
func (s *Server) runPlot(w http.ResponseWriter, r *http.Request) {
	key := path.Join(s.cfg.GetPlotsPrefix(), r.PathValue("id"), r.PathValue("name"))
	info, rc, err := s.blobs.Get(r.Context(), key)
	if errors.Is(err, blob.ErrNotFound) {
		httputil.NotFound(w, "plot not found")
		return
	}
	if err != nil {
		httputil.InternalServerError(w, fmt.Sprintf("failed to read plot: %v", err))
		return
	}
	defer rc.Close()

	if info.ContentType != "" {
		w.Header().Set("Content-Type", info.ContentType)
	}
	w.Header().Set("Content-Length", strconv.FormatInt(info.Size, 10))
	if _, err := io.Copy(w, rc); err != nil {
		monitoring.Logf("failed to stream %s: %v", key, err)
	}
}

func (s *Server) lookupRun(w http.ResponseWriter, r *http.Request) (*db.Run, bool) {
	run, err := s.db.GetRun(r.PathValue("id"))
	if errors.Is(err, db.ErrRunNotFound) {
		httputil.NotFound(w, err.Error())
		return nil, false
	}
	if err != nil {
		httputil.InternalServerError(w, fmt.Sprintf("failed to load run: %v", err))
		return nil, false
	}
	return run, true
}

func (s *Server) writeLoadError(w http.ResponseWriter, err error) {
	if errors.Is(err, db.ErrNoResults) {
		httputil.NotFound(w, err.Error())
		return
	}
	httputil.InternalServerError(w, err.Error())
}
