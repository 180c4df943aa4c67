package api

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"net/http/httptest"
	"os"
	"path/filepath"
	"sync/atomic"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/trafficlens/speedcam/internal/db"
	"github.com/trafficlens/speedcam/internal/engine"
	"github.com/trafficlens/speedcam/internal/record"
	"github.com/trafficlens/speedcam/internal/testutil"
	"github.com/trafficlens/speedcam/internal/timeutil"
	"github.com/trafficlens/speedcam/internal/video"
)

// stubProcessor completes instantly with canned records, or fails.
type stubProcessor struct {
	records []record.DetectionRecord
	err     error
}

func (p *stubProcessor) Run(ctx context.Context, job engine.Job, prog *engine.Progress) (*engine.Summary, error) {
	if p.err != nil {
		prog.Fail(p.err)
		return nil, p.err
	}
	prog.Finish(fmt.Sprintf("Completed: %d vehicle detections", len(p.records)))
	return &engine.Summary{
		Meta:    video.Meta{Width: 1280, Height: 720, FPS: 30, TotalFrames: 100},
		Frames:  100,
		Records: p.records,
	}, nil
}

func newTestServer(t *testing.T, proc Processor) (*Server, *db.DB) {
	t.Helper()
	database := testutil.TempDB(t)
	dir := t.TempDir()
	runs := NewRunManager(context.Background(), database, proc,
		RunDirs{MediaDir: dir, ProcessedDir: dir, CSVDir: dir},
		timeutil.NewMockClock(time.Date(2026, 8, 1, 0, 0, 0, 0, time.UTC)))
	return NewServer(database, runs, "kmph"), database
}

// writeTempVideo drops a placeholder input file inside the server's media
// directory so path validation admits it.
func writeTempVideo(t *testing.T, srv *Server) string {
	t.Helper()
	path := filepath.Join(srv.runs.dirs.MediaDir, "input.mp4")
	require.NoError(t, os.WriteFile(path, []byte("not really a video"), 0o644))
	return path
}

func postRun(t *testing.T, srv *Server, inputPath string) string {
	t.Helper()
	body, _ := json.Marshal(map[string]string{"input_path": inputPath})
	req := httptest.NewRequest(http.MethodPost, "/api/runs", bytes.NewReader(body))
	w := httptest.NewRecorder()
	srv.ServeMux().ServeHTTP(w, req)
	require.Equal(t, http.StatusAccepted, w.Code, w.Body.String())

	var resp map[string]string
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &resp))
	require.NotEmpty(t, resp["id"])
	return resp["id"]
}

func waitForStatus(t *testing.T, database *db.DB, id, status string) {
	t.Helper()
	require.Eventually(t, func() bool {
		run, err := database.GetRun(id)
		return err == nil && run.Status == status
	}, 5*time.Second, 10*time.Millisecond)
}

func TestStartRunCompletes(t *testing.T) {
	recs := []record.DetectionRecord{{
		FrameNumber: 3, VehicleID: 1, SpeedKmh: 72,
		LicensePlate: "KA01AB1234", VehicleClass: "car",
		Confidence: 0.9, Timestamp: 0.1,
	}}
	srv, database := newTestServer(t, &stubProcessor{records: recs})

	id := postRun(t, srv, writeTempVideo(t, srv))
	waitForStatus(t, database, id, db.StatusCompleted)

	run, err := database.GetRun(id)
	require.NoError(t, err)
	assert.Equal(t, 100, run.Frames)
	assert.Equal(t, 1280, run.Width)

	stored, err := database.Detections(id)
	require.NoError(t, err)
	require.Len(t, stored, 1)
	assert.Equal(t, "KA01AB1234", stored[0].LicensePlate)
}

// overlapProcessor records whether two runs were ever in flight at once.
type overlapProcessor struct {
	active  atomic.Int32
	overlap atomic.Bool
}

func (p *overlapProcessor) Run(ctx context.Context, job engine.Job, prog *engine.Progress) (*engine.Summary, error) {
	if p.active.Add(1) > 1 {
		p.overlap.Store(true)
	}
	time.Sleep(20 * time.Millisecond)
	p.active.Add(-1)
	prog.Finish("Completed: 0 vehicle detections")
	return &engine.Summary{
		Meta:   video.Meta{Width: 1280, Height: 720, FPS: 30, TotalFrames: 100},
		Frames: 100,
	}, nil
}

// The processor owns single model handles, so concurrent starts must queue
// behind the running one.
func TestConcurrentStartsAreSerialized(t *testing.T) {
	proc := &overlapProcessor{}
	srv, database := newTestServer(t, proc)
	input := writeTempVideo(t, srv)

	first := postRun(t, srv, input)
	second := postRun(t, srv, input)
	waitForStatus(t, database, first, db.StatusCompleted)
	waitForStatus(t, database, second, db.StatusCompleted)

	assert.False(t, proc.overlap.Load(), "two runs were in flight at once")
}

func TestStartRunRejectsMissingInput(t *testing.T) {
	srv, _ := newTestServer(t, &stubProcessor{})

	body, _ := json.Marshal(map[string]string{"input_path": "/no/such/file.mp4"})
	req := httptest.NewRequest(http.MethodPost, "/api/runs", bytes.NewReader(body))
	w := httptest.NewRecorder()
	srv.ServeMux().ServeHTTP(w, req)
	assert.Equal(t, http.StatusBadRequest, w.Code)
}

func TestStartRunRejectsPathOutsideMediaDir(t *testing.T) {
	srv, _ := newTestServer(t, &stubProcessor{})

	// Exists on disk but lives outside the configured media directory.
	outside := filepath.Join(t.TempDir(), "input.mp4")
	require.NoError(t, os.WriteFile(outside, []byte("not really a video"), 0o644))

	body, _ := json.Marshal(map[string]string{"input_path": outside})
	req := httptest.NewRequest(http.MethodPost, "/api/runs", bytes.NewReader(body))
	w := httptest.NewRecorder()
	srv.ServeMux().ServeHTTP(w, req)
	assert.Equal(t, http.StatusBadRequest, w.Code)
}

func TestStartRunRejectsBadBody(t *testing.T) {
	srv, _ := newTestServer(t, &stubProcessor{})

	req := httptest.NewRequest(http.MethodPost, "/api/runs", bytes.NewReader([]byte("{")))
	w := httptest.NewRecorder()
	srv.ServeMux().ServeHTTP(w, req)
	assert.Equal(t, http.StatusBadRequest, w.Code)
}

func TestProgressAfterCompletion(t *testing.T) {
	srv, database := newTestServer(t, &stubProcessor{})
	id := postRun(t, srv, writeTempVideo(t, srv))
	waitForStatus(t, database, id, db.StatusCompleted)

	req := httptest.NewRequest(http.MethodGet, "/api/runs/"+id+"/progress", nil)
	w := httptest.NewRecorder()
	srv.ServeMux().ServeHTTP(w, req)
	require.Equal(t, http.StatusOK, w.Code)

	var resp struct {
		Progress float64 `json:"progress"`
		Message  string  `json:"message"`
	}
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &resp))
	assert.Equal(t, 100.0, resp.Progress)
	assert.Contains(t, resp.Message, "Completed")
}

func TestProgressFailedRun(t *testing.T) {
	srv, database := newTestServer(t, &stubProcessor{err: errors.New("decode failure")})
	id := postRun(t, srv, writeTempVideo(t, srv))
	waitForStatus(t, database, id, db.StatusFailed)

	req := httptest.NewRequest(http.MethodGet, "/api/runs/"+id+"/progress", nil)
	w := httptest.NewRecorder()
	srv.ServeMux().ServeHTTP(w, req)
	require.Equal(t, http.StatusOK, w.Code)

	var resp struct {
		Progress float64 `json:"progress"`
		Message  string  `json:"message"`
	}
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &resp))
	assert.Equal(t, -1.0, resp.Progress)
	assert.Equal(t, "Error: decode failure", resp.Message)
}

func TestProgressUnknownRun(t *testing.T) {
	srv, _ := newTestServer(t, &stubProcessor{})

	req := httptest.NewRequest(http.MethodGet, "/api/runs/nope/progress", nil)
	w := httptest.NewRecorder()
	srv.ServeMux().ServeHTTP(w, req)
	assert.Equal(t, http.StatusNotFound, w.Code)
}

func TestDetectionsConvertUnits(t *testing.T) {
	recs := []record.DetectionRecord{{
		FrameNumber: 3, VehicleID: 1, SpeedKmh: 72,
		LicensePlate: record.MissingPlate, VehicleClass: "car",
		Confidence: 0.9, Timestamp: 0.1,
	}}
	srv, database := newTestServer(t, &stubProcessor{records: recs})
	srv.units = "mps"

	id := postRun(t, srv, writeTempVideo(t, srv))
	waitForStatus(t, database, id, db.StatusCompleted)

	req := httptest.NewRequest(http.MethodGet, "/api/runs/"+id+"/detections", nil)
	w := httptest.NewRecorder()
	srv.ServeMux().ServeHTTP(w, req)
	require.Equal(t, http.StatusOK, w.Code)

	var got []record.DetectionRecord
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &got))
	require.Len(t, got, 1)
	assert.InDelta(t, 20.0, got[0].SpeedKmh, 1e-9) // 72 km/h = 20 m/s

	// The stored value stays in km/h.
	stored, err := database.Detections(id)
	require.NoError(t, err)
	assert.Equal(t, 72.0, stored[0].SpeedKmh)
}

func TestShowRunAndList(t *testing.T) {
	srv, database := newTestServer(t, &stubProcessor{})
	id := postRun(t, srv, writeTempVideo(t, srv))
	waitForStatus(t, database, id, db.StatusCompleted)

	req := httptest.NewRequest(http.MethodGet, "/api/runs/"+id, nil)
	w := httptest.NewRecorder()
	srv.ServeMux().ServeHTTP(w, req)
	require.Equal(t, http.StatusOK, w.Code)

	var run db.Run
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &run))
	assert.Equal(t, id, run.ID)

	req = httptest.NewRequest(http.MethodGet, "/api/runs", nil)
	w = httptest.NewRecorder()
	srv.ServeMux().ServeHTTP(w, req)
	require.Equal(t, http.StatusOK, w.Code)

	var runs []db.Run
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &runs))
	assert.Len(t, runs, 1)
}

func TestDownloadCSV(t *testing.T) {
	srv, database := newTestServer(t, &stubProcessor{})
	id := postRun(t, srv, writeTempVideo(t, srv))
	waitForStatus(t, database, id, db.StatusCompleted)

	run, err := database.GetRun(id)
	require.NoError(t, err)
	csv := "frame_number,vehicle_id\n3,1\n"
	require.NoError(t, os.WriteFile(run.CSVPath, []byte(csv), 0o644))

	req := httptest.NewRequest(http.MethodGet, "/api/runs/"+id+"/csv", nil)
	w := httptest.NewRecorder()
	srv.ServeMux().ServeHTTP(w, req)
	require.Equal(t, http.StatusOK, w.Code)
	assert.Equal(t, "text/csv", w.Header().Get("Content-Type"))
	assert.Contains(t, w.Header().Get("Content-Disposition"), ".csv")
	assert.Equal(t, csv, w.Body.String())
}

func TestDownloadVideo(t *testing.T) {
	srv, database := newTestServer(t, &stubProcessor{})
	id := postRun(t, srv, writeTempVideo(t, srv))
	waitForStatus(t, database, id, db.StatusCompleted)

	run, err := database.GetRun(id)
	require.NoError(t, err)
	require.NoError(t, os.WriteFile(run.OutputPath, []byte("annotated frames"), 0o644))

	req := httptest.NewRequest(http.MethodGet, "/api/runs/"+id+"/video", nil)
	w := httptest.NewRecorder()
	srv.ServeMux().ServeHTTP(w, req)
	require.Equal(t, http.StatusOK, w.Code)
	assert.Equal(t, "video/mp4", w.Header().Get("Content-Type"))
	assert.Equal(t, "annotated frames", w.Body.String())
}

func TestDownloadBeforeCompletion(t *testing.T) {
	srv, database := newTestServer(t, &stubProcessor{})
	require.NoError(t, database.CreateRun("pending-run", "in.mp4", "out.mp4", "out.csv"))

	req := httptest.NewRequest(http.MethodGet, "/api/runs/pending-run/csv", nil)
	w := httptest.NewRecorder()
	srv.ServeMux().ServeHTTP(w, req)
	assert.Equal(t, http.StatusConflict, w.Code)
}

func TestDownloadUnknownRun(t *testing.T) {
	srv, _ := newTestServer(t, &stubProcessor{})

	req := httptest.NewRequest(http.MethodGet, "/api/runs/nope/csv", nil)
	w := httptest.NewRecorder()
	srv.ServeMux().ServeHTTP(w, req)
	assert.Equal(t, http.StatusNotFound, w.Code)
}

func TestShowConfig(t *testing.T) {
	srv, _ := newTestServer(t, &stubProcessor{})

	req := httptest.NewRequest(http.MethodGet, "/api/config", nil)
	w := httptest.NewRecorder()
	srv.ServeMux().ServeHTTP(w, req)
	require.Equal(t, http.StatusOK, w.Code)

	var cfg map[string]interface{}
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &cfg))
	assert.Equal(t, "kmph", cfg["units"])
}
