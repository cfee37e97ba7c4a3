package main

import (
	"context"
	"log"
	"os"
	"os/signal"
	"syscall"

	"autosendpic/internal/app"
	"autosendpic/internal/config"
	"autosendpic/internal/logger"
	"autosendpic/internal/service/camera"
	"autosendpic/internal/service/capture"
)

func main() {
	cfg := config.Load()
	appLogger := logger.NewLogger(cfg)
	defer appLogger.Close()

	var source capture.Source
	switch cfg.CameraSource {
	case config.CameraSourcePattern:
		source = capture.NewPatternSource(cfg.PreviewWidth, cfg.PreviewHeight, cfg.PictureWidth, cfg.PictureHeight, cfg.PatternFPS)
	default:
		source = camera.NewDevice(camera.ConfigFrom(cfg), appLogger)
	}

	application, err := app.NewApp(cfg, appLogger, source)
	if err != nil {
		log.Fatalf("Failed to initialize application: %v", err)
	}

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	if err := application.Run(ctx); err != nil {
		log.Fatalf("Server stopped with error: %v", err)
	}
}
