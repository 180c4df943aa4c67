package engine

import (
	"context"
	"fmt"
	"os"

	"gocv.io/x/gocv"

	"github.com/trafficlens/speedcam/internal/config"
	"github.com/trafficlens/speedcam/internal/monitoring"
	"github.com/trafficlens/speedcam/internal/plate"
	"github.com/trafficlens/speedcam/internal/record"
	"github.com/trafficlens/speedcam/internal/render"
	"github.com/trafficlens/speedcam/internal/video"
	"github.com/trafficlens/speedcam/internal/vision"
)

// Job names the input and output paths of one processing run.
type Job struct {
	InputPath  string
	OutputPath string
	CSVPath    string
}

// Summary describes a completed run.
type Summary struct {
	Meta    video.Meta
	Frames  int
	Records []record.DetectionRecord
}

// Engine runs the detection pipeline over whole videos. It owns the model
// handles and is safe to reuse across sequential runs; runs themselves are
// single-threaded.
type Engine struct {
	cfg      *config.TuningConfig
	detector vision.Detector
	plates   *plate.Recognizer // nil disables plate recognition
}

// New builds an engine. plates may be nil when no OCR engine is available;
// runs then emit records without plate reads.
func New(cfg *config.TuningConfig, detector vision.Detector, plates *plate.Recognizer) *Engine {
	return &Engine{cfg: cfg, detector: detector, plates: plates}
}

// Run processes one video end to end: decode, detect, track, estimate,
// read plates on cadence, annotate, and write the output video and CSV.
// Progress lands on prog throughout; on any failure, including a panic in
// a vision backend, prog reports the failure sentinel and Run returns the
// error. The context is checked between frames.
func (e *Engine) Run(ctx context.Context, job Job, prog *Progress) (summary *Summary, err error) {
	defer func() {
		if r := recover(); r != nil {
			err = fmt.Errorf("processing %s: panic: %v", job.InputPath, r)
		}
		if err != nil {
			prog.Fail(err)
		}
	}()

	src, err := video.Open(job.InputPath)
	if err != nil {
		return nil, err
	}
	defer src.Close()
	meta := src.Meta()

	out, err := video.NewWriter(job.OutputPath, meta)
	if err != nil {
		return nil, err
	}
	defer out.Close()

	pl := NewPipeline(e.cfg, meta)
	annotator := render.NewAnnotator(pl.Band())

	frame := gocv.NewMat()
	defer frame.Close()

	for src.Next(&frame) {
		if err := ctx.Err(); err != nil {
			return nil, fmt.Errorf("processing %s: %w", job.InputPath, err)
		}

		detections, err := e.detector.Detect(frame)
		if err != nil {
			return nil, fmt.Errorf("detecting on frame %d: %w", pl.Frame()+1, err)
		}

		states := pl.Begin(detections)
		for i := range states {
			s := &states[i]
			if e.plates != nil && s.PlateDue {
				e.readPlate(frame, s)
			}
			annotator.Vehicle(&frame, s.Track, s.Detection.Box, s.Overspeed)
		}
		pl.Commit(states)

		annotator.Zone(&frame)
		annotator.Status(&frame, pl.Frame(), meta.TotalFrames, len(states))
		if err := out.Write(frame); err != nil {
			return nil, fmt.Errorf("writing frame %d: %w", pl.Frame(), err)
		}

		if meta.TotalFrames > 0 {
			prog.Set(float64(pl.Frame())/float64(meta.TotalFrames)*100,
				fmt.Sprintf("Processing frame %d/%d", pl.Frame(), meta.TotalFrames))
		}
	}

	records := pl.Records()
	if err := writeCSV(job.CSVPath, records); err != nil {
		return nil, err
	}

	prog.Finish(fmt.Sprintf("Completed: %d vehicle detections", len(records)))
	monitoring.Logf("processed %s: %d frames, %d records", job.InputPath, pl.Frame(), len(records))
	return &Summary{Meta: meta, Frames: pl.Frame(), Records: records}, nil
}

// readPlate attempts a plate read for one vehicle and caches an accepted
// result on its track. Read failures are logged and swallowed; a broken
// OCR engine must not abort the run.
func (e *Engine) readPlate(frame gocv.Mat, s *VehicleState) {
	best, ok, err := e.plates.Read(frame, s.Detection.Box)
	if err != nil {
		monitoring.Tracef("plate read failed for vehicle %d: %v", s.Track.ID, err)
		return
	}
	if ok {
		s.Track.SetPlate(best.Text, best.Confidence, best.Box)
	}
}

func writeCSV(path string, records []record.DetectionRecord) error {
	f, err := os.Create(path)
	if err != nil {
		return fmt.Errorf("creating csv %s: %w", path, err)
	}
	if err := record.WriteCSV(f, records); err != nil {
		f.Close()
		return err
	}
	return f.Close()
}
