package main

import (
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/saturnino-fabrica-de-software/muzzle/internal/analysis"
	"github.com/saturnino-fabrica-de-software/muzzle/internal/api"
	"github.com/saturnino-fabrica-de-software/muzzle/internal/config"
	"github.com/saturnino-fabrica-de-software/muzzle/internal/imagecodec"
	"github.com/saturnino-fabrica-de-software/muzzle/internal/model"
	"github.com/saturnino-fabrica-de-software/muzzle/internal/model/onnx"
	"github.com/saturnino-fabrica-de-software/muzzle/internal/model/rekognition"
)

func main() {
	if err := run(); err != nil {
		fmt.Fprintf(os.Stderr, "error: %v\n", err)
		os.Exit(1)
	}
}

func run() error {
	// Load configuration
	cfg, err := config.Load()
	if err != nil {
		return fmt.Errorf("failed to load config: %w", err)
	}

	// Initialize logger
	logger, closeLog, err := newLogger(cfg)
	if err != nil {
		return err
	}
	defer func() {
		_ = closeLog.Close()
	}()
	slog.SetDefault(logger)

	logger.Info("starting Muzzle API",
		slog.String("environment", cfg.Environment),
		slog.String("addr", cfg.Addr()),
		slog.String("model_root", cfg.ModelRoot),
		slog.String("detection_backend", cfg.DetectionBackend),
	)

	// Model runtime
	rt, err := onnx.NewRuntime(onnx.RuntimeConfig{
		LibraryPath:    cfg.ONNXRuntimeLib,
		Providers:      cfg.ExecutionProviders,
		IntraOpThreads: cfg.IntraOpThreads,
	}, logger)
	if err != nil {
		return fmt.Errorf("failed to init onnx runtime: %w", err)
	}
	defer func() {
		_ = rt.Close()
	}()

	registry := model.NewRegistry(logger, cfg.AllowedModules)
	defer func() {
		if err := registry.Close(); err != nil {
			logger.Error("close models", slog.Any("error", err))
		}
	}()

	if cfg.DetectionBackend == config.BackendRekognition {
		client, err := rekognition.NewClient(context.Background(), rekognition.Config{Region: cfg.AWSRegion})
		if err != nil {
			return fmt.Errorf("failed to create rekognition client: %w", err)
		}
		registry.Register(rekognition.Source, rekognition.NewDetector(client))
	}

	if err := registry.LoadDir(cfg.ModelRoot, onnx.NewLoader(rt, logger, nil)); err != nil {
		return fmt.Errorf("failed to load models: %w", err)
	}
	if err := registry.Validate(); err != nil {
		return fmt.Errorf("model registry: %w", err)
	}

	// Face analysis pipeline
	fa, err := analysis.New(registry, logger)
	if err != nil {
		return err
	}
	if err := fa.Prepare(model.ExecutionTarget(cfg.CtxID), cfg.DetThresh, cfg.DetSize.Point()); err != nil {
		return fmt.Errorf("failed to prepare models: %w", err)
	}

	// Setup router
	router := api.NewRouter(logger, &api.Dependencies{
		Analyzer:  fa,
		Decoder:   imagecodec.NewDecoder(cfg.ReclaimMemory),
		BodyLimit: cfg.BodyLimit(),
	})
	router.Setup()

	// Graceful shutdown
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	// Start server in goroutine
	errChan := make(chan error, 1)
	go func() {
		addr := cfg.Addr()
		logger.Info("server listening", slog.String("addr", addr))
		if err := router.Listen(addr); err != nil {
			errChan <- err
		}
	}()

	// Wait for shutdown signal or error
	select {
	case <-ctx.Done():
		logger.Info("shutdown signal received")
	case err := <-errChan:
		return fmt.Errorf("server error: %w", err)
	}

	logger.Info("shutting down server...")
	done := make(chan error, 1)
	go func() {
		done <- router.Shutdown()
	}()

	select {
	case err := <-done:
		if err != nil {
			logger.Error("shutdown error", slog.Any("error", err))
		}
	case <-time.After(10 * time.Second):
		logger.Error("shutdown error", slog.Any("error", errors.New("timed out waiting for in-flight requests")))
	}

	logger.Info("server stopped")
	return nil
}

func newLogger(cfg *config.Config) (*slog.Logger, io.Closer, error) {
	if cfg.LogFile == "" {
		return config.NewLogger(cfg.Environment), io.NopCloser(nil), nil
	}
	logger, closer, err := config.NewFileLogger(cfg.Environment, cfg.LogFile)
	if err != nil {
		return nil, nil, fmt.Errorf("failed to open log file: %w", err)
	}
	return logger, closer, nil
}
