package main

import (
	"context"
	"flag"
	"log"
	"net/http"
	"os"
	"os/signal"
	"sync"
	"syscall"
	"time"

	"github.com/trafficlens/speedcam/internal/api"
	"github.com/trafficlens/speedcam/internal/config"
	"github.com/trafficlens/speedcam/internal/db"
	"github.com/trafficlens/speedcam/internal/engine"
	"github.com/trafficlens/speedcam/internal/monitoring"
	"github.com/trafficlens/speedcam/internal/plate"
	"github.com/trafficlens/speedcam/internal/timeutil"
	"github.com/trafficlens/speedcam/internal/version"
	"github.com/trafficlens/speedcam/internal/vision"
)

var (
	configPath    = flag.String("config", "config.yml", "Application config file")
	listen        = flag.String("listen", "", "Listen address (overrides config)")
	tuningPath    = flag.String("tuning", "", "Tuning config file (overrides config)")
	detectorModel = flag.String("detector-model", "models/yolov8n.onnx", "Vehicle detector ONNX model")
	plateModel    = flag.String("plate-model", "", "Plate reader ONNX model (empty disables plate recognition)")
)

func main() {
	flag.Parse()

	monitoring.Logf("speedcam %s (%s, built %s)", version.Version, version.GitSHA, version.BuildTime)

	appCfg, err := config.LoadAppConfig(*configPath)
	if err != nil {
		log.Fatalf("Failed to load config: %v", err)
	}
	if *listen != "" {
		appCfg.Server.Listen = *listen
	}
	if *tuningPath != "" {
		appCfg.Tuning = *tuningPath
	}

	tuning := config.EmptyTuningConfig()
	if appCfg.Tuning != "" {
		tuning, err = config.LoadTuningConfig(appCfg.Tuning)
		if err != nil {
			log.Fatalf("Failed to load tuning config: %v", err)
		}
	}

	for _, dir := range []string{appCfg.Storage.MediaDir, appCfg.Storage.ProcessedDir, appCfg.Storage.CSVDir} {
		if err := os.MkdirAll(dir, 0o755); err != nil {
			log.Fatalf("Failed to create directory %s: %v", dir, err)
		}
	}

	database, err := db.Open(appCfg.Storage.DBPath)
	if err != nil {
		log.Fatalf("Failed to open database: %v", err)
	}
	defer database.Close()

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
	} else {
		monitoring.Logf("plate recognition disabled: no plate model configured")
	}

	proc := engine.New(tuning, detector, recognizer)

	var wg sync.WaitGroup
	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	runs := api.NewRunManager(ctx, database, proc, api.RunDirs{
		MediaDir:     appCfg.Storage.MediaDir,
		ProcessedDir: appCfg.Storage.ProcessedDir,
		CSVDir:       appCfg.Storage.CSVDir,
	}, timeutil.RealClock{})

	// HTTP server goroutine
	wg.Add(1)
	go func() {
		defer wg.Done()

		mux, err := buildMux(database, api.NewServer(database, runs, appCfg.Units))
		if err != nil {
			log.Fatalf("Failed to build HTTP routes: %v", err)
		}

		server := &http.Server{
			Addr:    appCfg.Server.Listen,
			Handler: api.LoggingMiddleware(mux),
		}

		go func() {
			monitoring.Logf("listening on %s", appCfg.Server.Listen)
			if err := server.ListenAndServe(); err != nil && err != http.ErrServerClosed {
				log.Fatalf("failed to start server: %v", err)
			}
		}()

		// Wait for context cancellation to shut down server
		<-ctx.Done()
		monitoring.Logf("shutting down HTTP server...")

		shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		if err := server.Shutdown(shutdownCtx); err != nil {
			monitoring.Logf("HTTP server shutdown error: %v", err)
		}
	}()

	wg.Wait()
	monitoring.Logf("graceful shutdown complete")
}
