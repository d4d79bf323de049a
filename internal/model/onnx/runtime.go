// Package onnx runs serialized face models through onnxruntime. Each model
// file becomes a model.Handler whose task is inferred from the graph's
// declared inputs and outputs.
package onnx

import (
	"errors"
	"fmt"
	"log/slog"
	"strconv"
	"strings"
	"sync"

	ort "github.com/yalue/onnxruntime_go"

	"github.com/saturnino-fabrica-de-software/muzzle/internal/model"
)

// Execution provider names accepted in RuntimeConfig.Providers
const (
	ProviderCUDA = "cuda"
	ProviderCPU  = "cpu"
)

var (
	// ErrNotPrepared is returned when inference runs before Prepare
	ErrNotPrepared = errors.New("onnx handler not prepared")
	// ErrUnexpectedOutput is returned when a graph output is not float32
	ErrUnexpectedOutput = errors.New("unexpected onnx output type")
)

// RuntimeConfig configures the shared onnxruntime environment
type RuntimeConfig struct {
	// LibraryPath points at libonnxruntime; empty uses the platform default
	LibraryPath string
	// Providers lists execution providers in preference order
	Providers []string
	// IntraOpThreads bounds per-session CPU threads, 0 lets onnxruntime decide
	IntraOpThreads int
}

// Runtime owns the process-wide onnxruntime environment
type Runtime struct {
	cfg    RuntimeConfig
	logger *slog.Logger
}

var (
	envOnce sync.Once
	envErr  error
)

// NewRuntime initializes onnxruntime once per process
func NewRuntime(cfg RuntimeConfig, logger *slog.Logger) (*Runtime, error) {
	envOnce.Do(func() {
		if cfg.LibraryPath != "" {
			ort.SetSharedLibraryPath(cfg.LibraryPath)
		}
		envErr = ort.InitializeEnvironment()
	})
	if envErr != nil {
		return nil, fmt.Errorf("initialize onnxruntime: %w", envErr)
	}

	if len(cfg.Providers) == 0 {
		cfg.Providers = []string{ProviderCPU}
	}

	return &Runtime{cfg: cfg, logger: logger}, nil
}

// Close tears down the onnxruntime environment
func (r *Runtime) Close() error {
	if !ort.IsInitialized() {
		return nil
	}
	return ort.DestroyEnvironment()
}

func (r *Runtime) wantsCUDA() bool {
	for _, p := range r.cfg.Providers {
		if strings.EqualFold(p, ProviderCUDA) {
			return true
		}
	}
	return false
}

// sessionOptions builds options for the execution target. CUDA is attempted
// only for non-negative targets and falls back to CPU when unavailable.
func (r *Runtime) sessionOptions(target model.ExecutionTarget) (*ort.SessionOptions, error) {
	opts, err := ort.NewSessionOptions()
	if err != nil {
		return nil, fmt.Errorf("create session options: %w", err)
	}

	if r.cfg.IntraOpThreads > 0 {
		if err := opts.SetIntraOpNumThreads(r.cfg.IntraOpThreads); err != nil {
			_ = opts.Destroy()
			return nil, fmt.Errorf("set intra-op threads: %w", err)
		}
	}

	if target >= 0 && r.wantsCUDA() {
		if err := appendCUDA(opts, int(target)); err != nil {
			r.logger.Warn("cuda execution provider unavailable, using cpu",
				slog.Int("device_id", int(target)),
				slog.Any("error", err),
			)
		}
	}

	return opts, nil
}

func appendCUDA(opts *ort.SessionOptions, deviceID int) error {
	cudaOpts, err := ort.NewCUDAProviderOptions()
	if err != nil {
		return err
	}
	defer func() {
		_ = cudaOpts.Destroy()
	}()

	if err := cudaOpts.Update(map[string]string{
		"device_id": strconv.Itoa(deviceID),
	}); err != nil {
		return err
	}

	return opts.AppendExecutionProviderCUDA(cudaOpts)
}
