package model

import (
	"context"
	"image"

	"github.com/saturnino-fabrica-de-software/muzzle/internal/domain"
)

// Task names reported by handlers
const (
	TaskDetection   = "detection"
	TaskRecognition = "recognition"
	TaskGenderAge   = "genderage"
)

// ExecutionTarget selects the compute device. Negative values mean CPU only,
// otherwise it is the accelerator device index.
type ExecutionTarget int

// CPU is the execution target that disables accelerators
const CPU ExecutionTarget = -1

// PrepareOptions configures a handler before first use. InputSize and
// Threshold are only meaningful for detection handlers.
type PrepareOptions struct {
	Target    ExecutionTarget
	InputSize image.Point
	Threshold float32
}

// Handler is a loaded model bound to one task type
type Handler interface {
	TaskName() string
	// InputShape is the declared NCHW input shape; dynamic axes are -1
	InputShape() []int64
	InputMean() float32
	InputStd() float32
	Prepare(opts PrepareOptions) error
	Close() error
}

// Detection is one region found by a Detector
type Detection struct {
	BBox  [4]float32
	Score float32
	// Kps is nil when the model does not predict keypoints
	Kps [][2]float32
}

// Detector finds regions in an image. maxNum <= 0 means unbounded; metric
// selects the handler's ranking policy when maxNum truncates the result.
type Detector interface {
	Handler
	Detect(ctx context.Context, img image.Image, maxNum int, metric string) ([]Detection, error)
}

// Attributer attaches its output (embedding, gender/age, ...) onto a face
type Attributer interface {
	Handler
	Get(ctx context.Context, img image.Image, face *domain.Face) error
}

// Loader builds a Handler from a serialized model file. It returns
// (nil, nil) when the file is readable but its task is not recognized.
type Loader interface {
	Load(path string) (Handler, error)
}

// LoaderFunc adapts a function to Loader
type LoaderFunc func(path string) (Handler, error)

func (f LoaderFunc) Load(path string) (Handler, error) {
	return f(path)
}

// ModelInfo describes a registered handler
type ModelInfo struct {
	Task       string  `json:"task"`
	Source     string  `json:"source"`
	InputShape []int64 `json:"input_shape"`
	InputMean  float32 `json:"input_mean"`
	InputStd   float32 `json:"input_std"`
}
