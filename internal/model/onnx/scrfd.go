package onnx

import (
	"context"
	"errors"
	"fmt"
	"image"

	"github.com/saturnino-fabrica-de-software/muzzle/internal/model"
)

const defaultDetThreshold = 0.5

// ErrInputSize is returned when no detection input size is known
var ErrInputSize = errors.New("detection input size not set")

// Detector runs SCRFD / RetinaFace style anchor-free face detectors
type Detector struct {
	*base
	layout    headLayout
	inputSize image.Point
	threshold float32
}

var _ model.Detector = (*Detector)(nil)

func newDetector(b *base, layout headLayout) *Detector {
	d := &Detector{
		base:      b,
		layout:    layout,
		threshold: defaultDetThreshold,
	}
	if w, h, ok := fixedSpatial(b.inputShape); ok {
		d.inputSize = image.Pt(w, h)
	}
	return d
}

// Prepare opens the session. A model with a fixed spatial input keeps its
// own size; otherwise opts.InputSize is used.
func (d *Detector) Prepare(opts model.PrepareOptions) error {
	if opts.Threshold > 0 {
		d.threshold = opts.Threshold
	}
	if _, _, fixed := fixedSpatial(d.inputShape); !fixed && opts.InputSize != (image.Point{}) {
		d.inputSize = opts.InputSize
	}
	if d.inputSize.X <= 0 || d.inputSize.Y <= 0 {
		return fmt.Errorf("%s: %w", d.path, ErrInputSize)
	}
	return d.open(opts.Target)
}

// Detect returns regions ordered by descending score, or by the metric
// ranking when maxNum truncates the result.
func (d *Detector) Detect(ctx context.Context, img image.Image, maxNum int, metric string) ([]model.Detection, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}

	src := toNRGBA(img)
	resized, scale := letterbox(src, d.inputSize)
	blob := blobFromImage(resized, d.inputSize.X, d.inputSize.Y, d.mean, d.std)

	outs, err := d.run(blob, d.inputSize.Y, d.inputSize.X)
	if err != nil {
		return nil, err
	}
	if len(outs) < len(d.layout.strides)*2 {
		return nil, fmt.Errorf("detector returned %d outputs: %w", len(outs), ErrUnexpectedOutput)
	}

	candidates := decodeHeads(outs, d.layout, d.inputSize.X, d.inputSize.Y, d.threshold, scale)
	dets := nms(candidates, nmsThreshold)

	b := src.Bounds()
	return limitDetections(dets, maxNum, metric, b.Dx(), b.Dy()), nil
}

// fixedSpatial reports the W and H of an NCHW shape when both are static
func fixedSpatial(shape []int64) (int, int, bool) {
	if len(shape) != 4 || shape[2] <= 0 || shape[3] <= 0 {
		return 0, 0, false
	}
	return int(shape[3]), int(shape[2]), true
}
