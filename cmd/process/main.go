// Command process runs the detection pipeline over a single video without
// the server: input video in, annotated video and CSV out.
package main

import (
	"context"
	"flag"
	"log"
	"os/signal"
	"syscall"
	"time"

	"github.com/trafficlens/speedcam/internal/config"
	"github.com/trafficlens/speedcam/internal/engine"
	"github.com/trafficlens/speedcam/internal/plate"
	"github.com/trafficlens/speedcam/internal/vision"
)

var (
	inputPath     = flag.String("input", "", "Input video path")
	outputPath    = flag.String("output", "output.mp4", "Annotated output video path")
	csvPath       = flag.String("csv", "detections.csv", "Detection records CSV path")
	tuningPath    = flag.String("tuning", "", "Tuning config JSON (empty uses defaults)")
	detectorModel = flag.String("detector-model", "models/yolov8n.onnx", "Vehicle detector ONNX model")
	plateModel    = flag.String("plate-model", "", "Plate reader ONNX model (empty disables plate recognition)")
)

func main() {
	flag.Parse()
	if *inputPath == "" {
		log.Fatal("-input is required")
	}

	tuning := config.EmptyTuningConfig()
	if *tuningPath != "" {
		var err error
		tuning, err = config.LoadTuningConfig(*tuningPath)
		if err != nil {
			log.Fatalf("Failed to load tuning config: %v", err)
		}
	}

	detector, err := vision.NewYOLODetector(*detectorModel)
	if err != nil {
		log.Fatalf("Failed to load detector: %v", err)
	}
	defer detector.Close()

	var recognizer *plate.Recognizer
	if *plateModel != "" {
		reader, err := vision.NewLPRNetReader(*plateModel, nil)
		if err != nil {
			log.Fatalf("Failed to load plate model: %v", err)
		}
		recognizer = plate.NewRecognizer(reader, plate.PolicyFromTuning(tuning))
		defer recognizer.Close()
	}

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	prog := &engine.Progress{}
	done := make(chan struct{})
	go func() {
		ticker := time.NewTicker(2 * time.Second)
		defer ticker.Stop()
		for {
			select {
			case <-ticker.C:
				percent, message := prog.Status()
				log.Printf("progress: %.1f%% (%s)", percent, message)
			case <-done:
				return
			}
		}
	}()

	summary, err := engine.New(tuning, detector, recognizer).Run(ctx, engine.Job{
		InputPath:  *inputPath,
		OutputPath: *outputPath,
		CSVPath:    *csvPath,
	}, prog)
	close(done)
	if err != nil {
		log.Fatalf("Processing failed: %v", err)
	}

	log.Printf("Processed %d frames (%dx%d @ %.1f fps), %d records written to %s",
		summary.Frames, summary.Meta.Width, summary.Meta.Height,
		summary.Meta.FPS, len(summary.Records), *csvPath)
}
