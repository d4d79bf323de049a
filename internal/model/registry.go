package model

import (
	"errors"
	"fmt"
	"log/slog"
	"path/filepath"
	"sort"
)

// ModelExt is the extension of serialized model files scanned by LoadDir
const ModelExt = ".onnx"

var (
	// ErrDetectionRequired is returned when no detection handler was registered
	ErrDetectionRequired = errors.New("no detection model registered")
	// ErrNotDetector is returned when the detection entry cannot detect
	ErrNotDetector = errors.New("detection handler does not implement Detector")
)

// Registry keeps at most one handler per task type. Registration order is
// preserved because attribute handlers run in that order.
type Registry struct {
	handlers map[string]Handler
	sources  map[string]string
	order    []string
	allowed  map[string]bool
	logger   *slog.Logger
}

// NewRegistry creates an empty registry. A nil or empty allow-list accepts
// every task type.
func NewRegistry(logger *slog.Logger, allowed []string) *Registry {
	r := &Registry{
		handlers: make(map[string]Handler),
		sources:  make(map[string]string),
		logger:   logger,
	}
	if len(allowed) > 0 {
		r.allowed = make(map[string]bool, len(allowed))
		for _, task := range allowed {
			r.allowed[task] = true
		}
	}
	return r
}

// Register adds h unless its task is filtered out or already present.
// It reports whether h was kept; a rejected handler is closed.
func (r *Registry) Register(source string, h Handler) bool {
	task := h.TaskName()

	if r.allowed != nil && !r.allowed[task] {
		r.logger.Info("model ignored",
			slog.String("file", source),
			slog.String("task", task),
		)
		r.discard(source, h)
		return false
	}

	if _, exists := r.handlers[task]; exists {
		r.logger.Warn("duplicated model task type, ignored",
			slog.String("file", source),
			slog.String("task", task),
			slog.String("kept", r.sources[task]),
		)
		r.discard(source, h)
		return false
	}

	r.logger.Info("model found",
		slog.String("file", source),
		slog.String("task", task),
		slog.Any("input_shape", h.InputShape()),
		slog.Float64("input_mean", float64(h.InputMean())),
		slog.Float64("input_std", float64(h.InputStd())),
	)
	r.handlers[task] = h
	r.sources[task] = source
	r.order = append(r.order, task)
	return true
}

func (r *Registry) discard(source string, h Handler) {
	if err := h.Close(); err != nil {
		r.logger.Warn("close discarded model",
			slog.String("file", source),
			slog.Any("error", err),
		)
	}
}

// LoadDir scans root for model files in sorted order and registers each one
// the loader recognizes. Unrecognized files are skipped with a warning; a
// loader error aborts the scan.
func (r *Registry) LoadDir(root string, loader Loader) error {
	files, err := filepath.Glob(filepath.Join(root, "*"+ModelExt))
	if err != nil {
		return fmt.Errorf("scan model root %s: %w", root, err)
	}
	sort.Strings(files)

	for _, file := range files {
		h, err := loader.Load(file)
		if err != nil {
			return fmt.Errorf("load model %s: %w", file, err)
		}
		if h == nil {
			r.logger.Warn("model not recognized", slog.String("file", file))
			continue
		}
		r.Register(file, h)
	}

	return nil
}

// Validate checks that a usable detection handler is registered
func (r *Registry) Validate() error {
	_, err := r.Detector()
	return err
}

// Detector returns the registered detection handler
func (r *Registry) Detector() (Detector, error) {
	h, ok := r.handlers[TaskDetection]
	if !ok {
		return nil, ErrDetectionRequired
	}
	det, ok := h.(Detector)
	if !ok {
		return nil, fmt.Errorf("%s: %w", r.sources[TaskDetection], ErrNotDetector)
	}
	return det, nil
}

// Get returns the handler for a task
func (r *Registry) Get(task string) (Handler, bool) {
	h, ok := r.handlers[task]
	return h, ok
}

// Tasks returns the registered task names in registration order
func (r *Registry) Tasks() []string {
	out := make([]string, len(r.order))
	copy(out, r.order)
	return out
}

// Handlers returns the registered handlers in registration order
func (r *Registry) Handlers() []Handler {
	out := make([]Handler, 0, len(r.order))
	for _, task := range r.order {
		out = append(out, r.handlers[task])
	}
	return out
}

// Models describes every registered handler
func (r *Registry) Models() []ModelInfo {
	infos := make([]ModelInfo, 0, len(r.order))
	for _, task := range r.order {
		h := r.handlers[task]
		infos = append(infos, ModelInfo{
			Task:       task,
			Source:     filepath.Base(r.sources[task]),
			InputShape: h.InputShape(),
			InputMean:  h.InputMean(),
			InputStd:   h.InputStd(),
		})
	}
	return infos
}

// Len returns the number of registered handlers
func (r *Registry) Len() int {
	return len(r.order)
}

// Close releases every handler
func (r *Registry) Close() error {
	var errs []error
	for _, task := range r.order {
		if err := r.handlers[task].Close(); err != nil {
			errs = append(errs, fmt.Errorf("close %s: %w", task, err))
		}
	}
	return errors.Join(errs...)
}
