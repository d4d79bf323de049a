package onnx

import (
	"context"
	"fmt"
	"image"
	"math"

	"github.com/saturnino-fabrica-de-software/muzzle/internal/domain"
	"github.com/saturnino-fabrica-de-software/muzzle/internal/model"
)

// Attribute predicts gender and age from a box-centered crop
type Attribute struct {
	*base
	size int
}

var _ model.Attributer = (*Attribute)(nil)

func newAttribute(b *base) *Attribute {
	return &Attribute{base: b, size: int(b.inputShape[2])}
}

func (a *Attribute) Prepare(opts model.PrepareOptions) error {
	return a.open(opts.Target)
}

func (a *Attribute) Get(ctx context.Context, img image.Image, face *domain.Face) error {
	if err := ctx.Err(); err != nil {
		return err
	}

	w := float64(face.Width())
	h := float64(face.Height())
	cx := float64(face.BBox[0]+face.BBox[2]) / 2
	cy := float64(face.BBox[1]+face.BBox[3]) / 2
	side := math.Max(w, h) * 1.5
	if side <= 0 {
		return fmt.Errorf("genderage: empty bounding box")
	}

	m := centerScaleMatrix(cx, cy, a.size, float64(a.size)/side)
	crop := warpAffine(toNRGBA(img), m, a.size, a.size)
	blob := blobFromImage(crop, a.size, a.size, a.mean, a.std)

	outs, err := a.run(blob, a.size, a.size)
	if err != nil {
		return err
	}

	gender, age, err := decodeGenderAge(outs[0])
	if err != nil {
		return err
	}
	face.Gender = &gender
	face.Age = &age
	face.SetAttribute("sex", face.Sex())
	return nil
}

// decodeGenderAge reads [female, male, age/100]
func decodeGenderAge(pred []float32) (int, int, error) {
	if len(pred) < 3 {
		return 0, 0, fmt.Errorf("genderage output has %d values: %w", len(pred), ErrUnexpectedOutput)
	}
	gender := 0
	if pred[1] > pred[0] {
		gender = 1
	}
	age := int(math.Round(float64(pred[2]) * 100))
	return gender, age, nil
}
