// Package api exposes the HTTP surface: starting runs, polling progress,
// listing detections with unit conversion, and run statistics.
package api

import (
	"encoding/json"
	"fmt"
	"net/http"
	"path/filepath"
	"strconv"
	"time"

	"github.com/trafficlens/speedcam/internal/db"
	"github.com/trafficlens/speedcam/internal/monitoring"
	"github.com/trafficlens/speedcam/internal/units"
	"github.com/trafficlens/speedcam/internal/version"
)

// ANSI escape codes for request log colouring.
const colorCyan = "\033[36m"
const colorReset = "\033[0m"
const colorYellow = "\033[33m"
const colorBoldGreen = "\033[1;32m"
const colorBoldRed = "\033[1;31m"

type Server struct {
	db    *db.DB
	runs  *RunManager
	units string
}

func NewServer(database *db.DB, runs *RunManager, apiUnits string) *Server {
	return &Server{
		db:    database,
		runs:  runs,
		units: apiUnits,
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

func (s *Server) ServeMux() *http.ServeMux {
	mux := http.NewServeMux()
	mux.HandleFunc("POST /api/runs", s.startRun)
	mux.HandleFunc("GET /api/runs", s.listRuns)
	mux.HandleFunc("GET /api/runs/{id}", s.showRun)
	mux.HandleFunc("GET /api/runs/{id}/progress", s.showProgress)
	mux.HandleFunc("GET /api/runs/{id}/detections", s.listDetections)
	mux.HandleFunc("GET /api/runs/{id}/stats", s.showStats)
	mux.HandleFunc("GET /api/runs/{id}/csv", s.downloadCSV)
	mux.HandleFunc("GET /api/runs/{id}/video", s.downloadVideo)
	mux.HandleFunc("GET /api/config", s.showConfig)
	return mux
}

func (s *Server) writeJSONError(w http.ResponseWriter, status int, msg string) {
	w.WriteHeader(status)
	json.NewEncoder(w).Encode(map[string]string{"error": msg})
}

func (s *Server) startRun(w http.ResponseWriter, r *http.Request) {
	w.Header().Set("Content-Type", "application/json")

	var req struct {
		InputPath string `json:"input_path"`
	}
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil || req.InputPath == "" {
		s.writeJSONError(w, http.StatusBadRequest, "Missing or invalid 'input_path'")
		return
	}

	id, err := s.runs.Start(req.InputPath)
	if err != nil {
		s.writeJSONError(w, http.StatusBadRequest, fmt.Sprintf("Failed to start run: %v", err))
		return
	}

	w.WriteHeader(http.StatusAccepted)
	json.NewEncoder(w).Encode(map[string]string{"id": id})
}

func (s *Server) listRuns(w http.ResponseWriter, r *http.Request) {
	w.Header().Set("Content-Type", "application/json")

	runs, err := s.db.Runs(100)
	if err != nil {
		s.writeJSONError(w, http.StatusInternalServerError, fmt.Sprintf("Failed to list runs: %v", err))
		return
	}
	if runs == nil {
		runs = []db.Run{}
	}
	json.NewEncoder(w).Encode(runs)
}

func (s *Server) showRun(w http.ResponseWriter, r *http.Request) {
	w.Header().Set("Content-Type", "application/json")

	run, err := s.db.GetRun(r.PathValue("id"))
	if err != nil {
		s.writeJSONError(w, http.StatusNotFound, "Run not found")
		return
	}
	json.NewEncoder(w).Encode(run)
}

func (s *Server) showProgress(w http.ResponseWriter, r *http.Request) {
	w.Header().Set("Content-Type", "application/json")

	percent, message, err := s.runs.Progress(r.PathValue("id"))
	if err != nil {
		s.writeJSONError(w, http.StatusNotFound, "Run not found")
		return
	}
	json.NewEncoder(w).Encode(map[string]interface{}{
		"progress": percent,
		"message":  message,
	})
}

func (s *Server) listDetections(w http.ResponseWriter, r *http.Request) {
	w.Header().Set("Content-Type", "application/json")

	records, err := s.db.Detections(r.PathValue("id"))
	if err != nil {
		s.writeJSONError(w, http.StatusInternalServerError,
			fmt.Sprintf("Failed to retrieve detections: %v", err))
		return
	}

	// Unit conversion happens on the way out; stored values stay km/h.
	for i := range records {
		records[i].SpeedKmh = units.ConvertSpeed(records[i].SpeedKmh, s.units)
	}
	json.NewEncoder(w).Encode(records)
}

func (s *Server) showStats(w http.ResponseWriter, r *http.Request) {
	w.Header().Set("Content-Type", "application/json")

	stats, err := s.db.Stats(r.PathValue("id"))
	if err != nil {
		s.writeJSONError(w, http.StatusInternalServerError,
			fmt.Sprintf("Failed to retrieve stats: %v", err))
		return
	}
	stats.AverageSpeed = units.ConvertSpeed(stats.AverageSpeed, s.units)
	stats.MaxSpeed = units.ConvertSpeed(stats.MaxSpeed, s.units)
	json.NewEncoder(w).Encode(stats)
}

// downloadCSV serves a completed run's detection records CSV.
func (s *Server) downloadCSV(w http.ResponseWriter, r *http.Request) {
	s.serveArtifact(w, r, "text/csv", func(run *db.Run) string { return run.CSVPath })
}

// downloadVideo serves a completed run's annotated output video.
func (s *Server) downloadVideo(w http.ResponseWriter, r *http.Request) {
	s.serveArtifact(w, r, "video/mp4", func(run *db.Run) string { return run.OutputPath })
}

// serveArtifact streams one of a run's output files. Artifacts only exist
// once a run has completed; earlier requests get a conflict.
func (s *Server) serveArtifact(w http.ResponseWriter, r *http.Request, contentType string, pick func(*db.Run) string) {
	run, err := s.db.GetRun(r.PathValue("id"))
	if err != nil {
		w.Header().Set("Content-Type", "application/json")
		s.writeJSONError(w, http.StatusNotFound, "Run not found")
		return
	}
	if run.Status != db.StatusCompleted {
		w.Header().Set("Content-Type", "application/json")
		s.writeJSONError(w, http.StatusConflict, "Run has not completed")
		return
	}

	path := pick(run)
	w.Header().Set("Content-Type", contentType)
	w.Header().Set("Content-Disposition",
		fmt.Sprintf("attachment; filename=%q", filepath.Base(path)))
	http.ServeFile(w, r, path)
}

func (s *Server) showConfig(w http.ResponseWriter, r *http.Request) {
	w.Header().Set("Content-Type", "application/json")

	config := map[string]interface{}{
		"units":   s.units,
		"version": version.Version,
	}
	json.NewEncoder(w).Encode(config)
}
