package main

import (
	"context"
	"log/slog"
	"os"
	"os/signal"

	"github.com/gin-gonic/gin"
	ort "github.com/yalue/onnxruntime_go"

	"github.com/visiony/vydetect/config"
	"github.com/visiony/vydetect/onnx"
	"github.com/visiony/vydetect/server"
	"github.com/visiony/vydetect/service"
)

func main() {
	ctx, cancel := signal.NotifyContext(context.Background(), os.Interrupt)
	defer cancel()
	slog.Info("Starting vydetect")

	cfg := config.C()

	ort.SetSharedLibraryPath(onnx.LibPath())
	if err := ort.InitializeEnvironment(); err != nil {
		slog.Error("Failed to initialize ONNX Runtime environment", slog.String("error", err.Error()))
		os.Exit(1)
	}
	defer ort.DestroyEnvironment()

	detector, err := service.NewDetector(cfg)
	if err != nil {
		slog.Error("Failed to load detection model",
			slog.String("weights", cfg.Weights),
			slog.String("error", err.Error()))
		os.Exit(1)
	}
	defer detector.Close()
	slog.Info("Detection model loaded",
		slog.String("weights", cfg.Weights),
		slog.String("device", detector.Device()))

	if cfg.Env != "development" {
		gin.SetMode(gin.ReleaseMode)
	}
	r := gin.Default()
	server.New(detector, cfg).Register(r)

	addr := cfg.Host + ":" + cfg.Port
	slog.Info("Listening on", slog.String("address", addr))
	go func() {
		if err := r.Run(addr); err != nil {
			slog.Error("Server error", slog.String("error", err.Error()))
			cancel()
		}
	}()

	<-ctx.Done()
	slog.Info("shutting down")
}
