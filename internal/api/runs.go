package api

import (
	"context"
	"fmt"
	"os"
	"path/filepath"
	"sync"

	"github.com/google/uuid"

	"github.com/trafficlens/speedcam/internal/db"
	"github.com/trafficlens/speedcam/internal/engine"
	"github.com/trafficlens/speedcam/internal/monitoring"
	"github.com/trafficlens/speedcam/internal/security"
	"github.com/trafficlens/speedcam/internal/timeutil"
)

// Processor runs the detection pipeline over one video. Satisfied by
// *engine.Engine; stubbed in tests.
type Processor interface {
	Run(ctx context.Context, job engine.Job, prog *engine.Progress) (*engine.Summary, error)
}

// RunDirs holds the media directories a run may read from and write to.
// Input videos must live under MediaDir.
type RunDirs struct {
	MediaDir     string
	ProcessedDir string
	CSVDir       string
}

// RunManager starts processing runs and tracks their live progress.
// Completed runs fall out of the in-memory map; their terminal state lives
// in the database.
type RunManager struct {
	db    *db.DB
	proc  Processor
	dirs  RunDirs
	clock timeutil.Clock

	// baseCtx bounds run lifetimes: runs survive the requests that start
	// them and are cancelled only at server shutdown.
	baseCtx context.Context

	// procMu serializes runs: the processor owns single model handles
	// that are not safe for concurrent Detect calls. A second start is
	// accepted immediately but queues behind the running one.
	procMu sync.Mutex

	mu       sync.RWMutex
	progress map[string]*engine.Progress
}

// NewRunManager creates a run manager writing outputs under dirs.
func NewRunManager(ctx context.Context, database *db.DB, proc Processor, dirs RunDirs, clock timeutil.Clock) *RunManager {
	return &RunManager{
		db:       database,
		proc:     proc,
		dirs:     dirs,
		clock:    clock,
		baseCtx:  ctx,
		progress: make(map[string]*engine.Progress),
	}
}

// Start registers a run for inputPath and launches it in the background.
// It returns the run id immediately; progress is polled separately.
func (m *RunManager) Start(inputPath string) (string, error) {
	if err := security.ValidatePathWithinDirectory(inputPath, m.dirs.MediaDir); err != nil {
		return "", fmt.Errorf("input video: %w", err)
	}
	if _, err := os.Stat(inputPath); err != nil {
		return "", fmt.Errorf("input video: %w", err)
	}

	id := uuid.NewString()
	job := engine.Job{
		InputPath:  inputPath,
		OutputPath: filepath.Join(m.dirs.ProcessedDir, id+".mp4"),
		CSVPath:    filepath.Join(m.dirs.CSVDir, id+".csv"),
	}
	if err := m.db.CreateRun(id, job.InputPath, job.OutputPath, job.CSVPath); err != nil {
		return "", err
	}

	prog := &engine.Progress{}
	m.mu.Lock()
	m.progress[id] = prog
	m.mu.Unlock()

	go m.run(m.baseCtx, id, job, prog)
	return id, nil
}

// Progress returns a run's completion percentage and status message. Runs
// no longer in memory fall back to their database status: 100 for
// completed, the failure sentinel (with the stored error) for failed,
// 0 otherwise.
func (m *RunManager) Progress(id string) (float64, string, error) {
	m.mu.RLock()
	prog, ok := m.progress[id]
	m.mu.RUnlock()
	if ok {
		percent, message := prog.Status()
		return percent, message, nil
	}

	run, err := m.db.GetRun(id)
	if err != nil {
		return 0, "", err
	}
	switch run.Status {
	case db.StatusCompleted:
		return 100, "Completed", nil
	case db.StatusFailed:
		return engine.ProgressFailed, "Error: " + run.Error, nil
	default:
		return 0, "Starting", nil
	}
}

func (m *RunManager) run(ctx context.Context, id string, job engine.Job, prog *engine.Progress) {
	defer func() {
		m.mu.Lock()
		delete(m.progress, id)
		m.mu.Unlock()
	}()

	m.procMu.Lock()
	defer m.procMu.Unlock()

	start := m.clock.Now()
	if err := m.db.StartRun(id); err != nil {
		monitoring.Logf("run %s: %v", id, err)
	}

	summary, err := m.proc.Run(ctx, job, prog)
	if err != nil {
		monitoring.Logf("run %s failed after %s: %v", id, m.clock.Since(start), err)
		if dbErr := m.db.FailRun(id, err); dbErr != nil {
			monitoring.Logf("run %s: %v", id, dbErr)
		}
		return
	}

	if err := m.db.InsertDetections(id, summary.Records); err != nil {
		monitoring.Logf("run %s: %v", id, err)
		if dbErr := m.db.FailRun(id, err); dbErr != nil {
			monitoring.Logf("run %s: %v", id, dbErr)
		}
		prog.Fail(err)
		return
	}
	if err := m.db.FinishRun(id, summary.Frames, summary.Meta.TotalFrames,
		summary.Meta.FPS, summary.Meta.Width, summary.Meta.Height); err != nil {
		monitoring.Logf("run %s: %v", id, err)
	}
	monitoring.Logf("run %s completed in %s: %d frames, %d records",
		id, m.clock.Since(start), summary.Frames, len(summary.Records))
}
