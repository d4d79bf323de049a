package onnx

import (
	"context"
	"errors"
	"fmt"
	"image"

	"github.com/saturnino-fabrica-de-software/muzzle/internal/domain"
	"github.com/saturnino-fabrica-de-software/muzzle/internal/model"
)

// ErrMissingKeypoints is returned when alignment needs keypoints the
// detector did not provide
var ErrMissingKeypoints = errors.New("face has no keypoints for alignment")

// Recognizer extracts an identity embedding from an aligned face crop
type Recognizer struct {
	*base
	size int
}

var _ model.Attributer = (*Recognizer)(nil)

func newRecognizer(b *base) *Recognizer {
	return &Recognizer{base: b, size: int(b.inputShape[2])}
}

func (r *Recognizer) Prepare(opts model.PrepareOptions) error {
	return r.open(opts.Target)
}

// Get aligns the face on its keypoints and stores the raw embedding
func (r *Recognizer) Get(ctx context.Context, img image.Image, face *domain.Face) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	if len(face.Kps) == 0 {
		return ErrMissingKeypoints
	}

	m, err := alignMatrix(face.Kps, r.size)
	if err != nil {
		return fmt.Errorf("align face: %w", err)
	}
	crop := warpAffine(toNRGBA(img), m, r.size, r.size)
	blob := blobFromImage(crop, r.size, r.size, r.mean, r.std)

	outs, err := r.run(blob, r.size, r.size)
	if err != nil {
		return err
	}

	face.Embedding = outs[0]
	return nil
}
