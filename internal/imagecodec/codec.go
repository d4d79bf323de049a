// Package imagecodec decodes uploaded bytes into an RGB pixel grid owned by
// a single request.
package imagecodec

import (
	"bytes"
	"errors"
	"fmt"
	"image"
	"runtime"
	"sync"

	"github.com/disintegration/imaging"
	_ "golang.org/x/image/bmp"
	_ "golang.org/x/image/webp"
)

// ErrEmpty is returned for a zero-length upload
var ErrEmpty = errors.New("empty image data")

// Buffer owns a decoded image for the duration of one request.
// Release is idempotent and must run on every exit path.
type Buffer struct {
	mu      sync.Mutex
	img     *image.NRGBA
	reclaim bool
}

// Image returns the decoded pixels, or nil after Release
func (b *Buffer) Image() *image.NRGBA {
	b.mu.Lock()
	defer b.mu.Unlock()
	return b.img
}

// Released reports whether Release already ran
func (b *Buffer) Released() bool {
	return b.Image() == nil
}

// Release drops the pixel reference and, when reclaim is set, asks the
// runtime to collect it right away.
func (b *Buffer) Release() {
	b.mu.Lock()
	had := b.img != nil
	b.img = nil
	b.mu.Unlock()

	if had && b.reclaim {
		runtime.GC()
	}
}

// Decoder turns encoded bytes into a Buffer
type Decoder struct {
	reclaim bool
}

// NewDecoder creates a decoder. reclaim forces a collection on Release.
func NewDecoder(reclaim bool) *Decoder {
	return &Decoder{reclaim: reclaim}
}

// Decode accepts any format registered with the image package (JPEG, PNG,
// GIF, BMP, WebP), honors EXIF orientation and returns RGB pixels.
func (d *Decoder) Decode(data []byte) (*Buffer, error) {
	if len(data) == 0 {
		return nil, ErrEmpty
	}

	img, err := imaging.Decode(bytes.NewReader(data), imaging.AutoOrientation(true))
	if err != nil {
		return nil, fmt.Errorf("decode image: %w", err)
	}

	return &Buffer{img: toNRGBA(img), reclaim: d.reclaim}, nil
}

func toNRGBA(img image.Image) *image.NRGBA {
	if n, ok := img.(*image.NRGBA); ok && n.Rect.Min == (image.Point{}) {
		return n
	}
	return imaging.Clone(img)
}
