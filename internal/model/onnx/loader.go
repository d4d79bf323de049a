package onnx

import (
	"fmt"
	"log/slog"

	ort "github.com/yalue/onnxruntime_go"

	"github.com/saturnino-fabrica-de-software/muzzle/internal/model"
)

// Normalization is the per-channel (v-Mean)/Std applied to model input
type Normalization struct {
	Mean float32
	Std  float32
}

// Default normalizations per task
var (
	DetectionNorm   = Normalization{Mean: 127.5, Std: 128.0}
	RecognitionNorm = Normalization{Mean: 127.5, Std: 127.5}
	GenderAgeNorm   = Normalization{Mean: 0.0, Std: 1.0}
)

// Loader turns model files into handlers, implementing model.Loader
type Loader struct {
	rt     *Runtime
	norms  map[string]Normalization
	logger *slog.Logger
}

var _ model.Loader = (*Loader)(nil)

// NewLoader creates a loader. overrides replaces the default normalization
// of the named tasks.
func NewLoader(rt *Runtime, logger *slog.Logger, overrides map[string]Normalization) *Loader {
	norms := map[string]Normalization{
		model.TaskDetection:   DetectionNorm,
		model.TaskRecognition: RecognitionNorm,
		model.TaskGenderAge:   GenderAgeNorm,
	}
	for task, n := range overrides {
		norms[task] = n
	}
	return &Loader{rt: rt, norms: norms, logger: logger}
}

// Load inspects the graph signature; no session is opened until Prepare
func (l *Loader) Load(path string) (model.Handler, error) {
	inputs, outputs, err := ort.GetInputOutputInfo(path)
	if err != nil {
		return nil, fmt.Errorf("read graph signature: %w", err)
	}
	if len(inputs) == 0 {
		return nil, nil
	}

	shapes := make([][]int64, len(inputs))
	for i, in := range inputs {
		shapes[i] = []int64(in.Dimensions)
	}
	task := routeTask(shapes, len(outputs))
	if task == "" {
		l.logger.Debug("unsupported graph signature",
			slog.String("file", path),
			slog.Any("input_shape", shapes[0]),
			slog.Int("outputs", len(outputs)),
		)
		return nil, nil
	}

	outNames := make([]string, len(outputs))
	for i, out := range outputs {
		outNames[i] = out.Name
	}
	norm := l.norms[task]
	b := &base{
		rt:          l.rt,
		task:        task,
		path:        path,
		inputName:   inputs[0].Name,
		outputNames: outNames,
		inputShape:  shapes[0],
		mean:        norm.Mean,
		std:         norm.Std,
	}

	switch task {
	case model.TaskDetection:
		layout, ok := layoutForOutputs(len(outputs))
		if !ok {
			l.logger.Warn("detector output layout not supported",
				slog.String("file", path),
				slog.Int("outputs", len(outputs)),
			)
			return nil, nil
		}
		return newDetector(b, layout), nil
	case model.TaskRecognition:
		return newRecognizer(b), nil
	case model.TaskGenderAge:
		return newAttribute(b), nil
	}
	return nil, nil
}

// routeTask infers the task from the graph signature. Landmark and swapper
// graphs are recognized by shape but not served, so they route to "".
func routeTask(inputShapes [][]int64, numOutputs int) string {
	if len(inputShapes) == 0 {
		return ""
	}
	if numOutputs >= 5 {
		return model.TaskDetection
	}

	shape := inputShapes[0]
	if len(shape) != 4 {
		return ""
	}
	h, w := shape[2], shape[3]

	switch {
	case h == 192 && w == 192:
		return "" // 2d/3d landmark
	case h == 96 && w == 96:
		return model.TaskGenderAge
	case len(inputShapes) == 2 && h == 128 && w == 128:
		return "" // face swapper
	case h == w && h >= 112 && h%16 == 0:
		return model.TaskRecognition
	}
	return ""
}
