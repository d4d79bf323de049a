// Package analysis runs a registry of face models as one pipeline: the
// detection handler finds regions, every other handler decorates them.
package analysis

import (
	"context"
	"errors"
	"fmt"
	"image"
	"log/slog"
	"sync/atomic"

	"github.com/saturnino-fabrica-de-software/muzzle/internal/domain"
	"github.com/saturnino-fabrica-de-software/muzzle/internal/model"
)

const (
	DefaultDetThreshold = 0.5
	DefaultMetric       = "default"
)

// DefaultDetSize is the detector input used when none is configured
var DefaultDetSize = image.Pt(640, 640)

var (
	// ErrNotPrepared is returned by Detect and Get before Prepare succeeds
	ErrNotPrepared = errors.New("face analysis not prepared")
	// ErrAlreadyPrepared is returned by a second Prepare call
	ErrAlreadyPrepared = errors.New("face analysis already prepared")
)

// Registry is the view of model.Registry the facade needs
type Registry interface {
	Detector() (model.Detector, error)
	Handlers() []model.Handler
	Models() []model.ModelInfo
}

// FaceAnalysis is safe for concurrent Detect/Get once prepared
type FaceAnalysis struct {
	registry Registry
	detector model.Detector
	logger   *slog.Logger

	detThreshold float32
	detSize      image.Point
	prepared     atomic.Bool
}

// New binds the facade to a registry that must hold a detection handler
func New(registry Registry, logger *slog.Logger) (*FaceAnalysis, error) {
	det, err := registry.Detector()
	if err != nil {
		return nil, fmt.Errorf("face analysis: %w", err)
	}
	return &FaceAnalysis{
		registry: registry,
		detector: det,
		logger:   logger,
	}, nil
}

// Prepare configures every handler once. The detector also receives the
// input size and score threshold; zero values fall back to the defaults.
func (a *FaceAnalysis) Prepare(target model.ExecutionTarget, detThreshold float32, detSize image.Point) error {
	if a.prepared.Load() {
		return ErrAlreadyPrepared
	}
	if detThreshold <= 0 {
		detThreshold = DefaultDetThreshold
	}
	if detSize == (image.Point{}) {
		detSize = DefaultDetSize
	}

	a.logger.Info("set det-size",
		slog.Int("width", detSize.X),
		slog.Int("height", detSize.Y),
		slog.Float64("det_thresh", float64(detThreshold)),
		slog.Int("ctx_id", int(target)),
	)

	for _, h := range a.registry.Handlers() {
		opts := model.PrepareOptions{Target: target}
		if h.TaskName() == model.TaskDetection {
			opts.InputSize = detSize
			opts.Threshold = detThreshold
		}
		if err := h.Prepare(opts); err != nil {
			return fmt.Errorf("prepare %s: %w", h.TaskName(), err)
		}
	}

	a.detThreshold = detThreshold
	a.detSize = detSize
	a.prepared.Store(true)
	return nil
}

// Ready reports whether Prepare completed
func (a *FaceAnalysis) Ready() bool {
	return a.prepared.Load()
}

// Models lists the registered handlers
func (a *FaceAnalysis) Models() []model.ModelInfo {
	return a.registry.Models()
}

// Detect returns the number of regions found. maxNum <= 0 is unbounded.
func (a *FaceAnalysis) Detect(ctx context.Context, img image.Image, maxNum int, metric string) (int, error) {
	dets, err := a.detect(ctx, img, maxNum, metric)
	if err != nil {
		return 0, err
	}
	return len(dets), nil
}

// Get returns one face per detected region, in detection order, each
// decorated by every non-detection handler in registry order. The result is
// empty, never nil, when nothing is found.
func (a *FaceAnalysis) Get(ctx context.Context, img image.Image, maxNum int, metric string) ([]*domain.Face, error) {
	dets, err := a.detect(ctx, img, maxNum, metric)
	if err != nil {
		return nil, err
	}

	faces := make([]*domain.Face, 0, len(dets))
	if len(dets) == 0 {
		return faces, nil
	}

	handlers := a.registry.Handlers()
	for _, det := range dets {
		face := domain.NewFace(det.BBox, det.Score, det.Kps)
		for _, h := range handlers {
			if h.TaskName() == model.TaskDetection {
				continue
			}
			attr, ok := h.(model.Attributer)
			if !ok {
				continue
			}
			if err := attr.Get(ctx, img, face); err != nil {
				return nil, fmt.Errorf("%s: %w", h.TaskName(), err)
			}
		}
		faces = append(faces, face)
	}

	return faces, nil
}

func (a *FaceAnalysis) detect(ctx context.Context, img image.Image, maxNum int, metric string) ([]model.Detection, error) {
	if !a.prepared.Load() {
		return nil, ErrNotPrepared
	}
	if metric == "" {
		metric = DefaultMetric
	}

	dets, err := a.detector.Detect(ctx, img, maxNum, metric)
	if err != nil {
		return nil, fmt.Errorf("detection: %w", err)
	}
	return dets, nil
}
