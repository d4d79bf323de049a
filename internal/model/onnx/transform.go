package onnx

import (
	"errors"
	"image"

	"golang.org/x/image/draw"
	"golang.org/x/image/math/f64"
)

// arcfaceTemplate is the canonical 5-point layout of a 112x112 aligned crop
var arcfaceTemplate = [5][2]float64{
	{38.2946, 51.6963},
	{73.5318, 51.5014},
	{56.0252, 71.7366},
	{41.5493, 92.3655},
	{70.7299, 92.2041},
}

// ErrDegeneratePoints is returned when keypoints cannot define a transform
var ErrDegeneratePoints = errors.New("degenerate keypoints")

// affine is a 2x3 row-major matrix mapping source to destination pixels
type affine [6]float64

func (m affine) apply(x, y float64) (float64, float64) {
	return m[0]*x + m[1]*y + m[2], m[3]*x + m[4]*y + m[5]
}

// estimateSimilarity fits the least-squares rotation+uniform scale+translation
// taking src onto dst.
func estimateSimilarity(src, dst [][2]float64) (affine, error) {
	n := len(src)
	if n < 2 || n != len(dst) {
		return affine{}, ErrDegeneratePoints
	}

	var sx, sy, dx, dy float64
	for i := 0; i < n; i++ {
		sx += src[i][0]
		sy += src[i][1]
		dx += dst[i][0]
		dy += dst[i][1]
	}
	fn := float64(n)
	sx, sy, dx, dy = sx/fn, sy/fn, dx/fn, dy/fn

	var a, b, norm float64
	for i := 0; i < n; i++ {
		px, py := src[i][0]-sx, src[i][1]-sy
		qx, qy := dst[i][0]-dx, dst[i][1]-dy
		a += px*qx + py*qy
		b += px*qy - py*qx
		norm += px*px + py*py
	}
	if norm == 0 {
		return affine{}, ErrDegeneratePoints
	}
	a /= norm
	b /= norm

	return affine{
		a, -b, dx - (a*sx - b*sy),
		b, a, dy - (b*sx + a*sy),
	}, nil
}

// alignMatrix maps 5 keypoints onto the arcface template scaled to size
func alignMatrix(kps [][2]float32, size int) (affine, error) {
	if len(kps) != len(arcfaceTemplate) {
		return affine{}, ErrDegeneratePoints
	}

	var ratio, diffX float64
	if size%112 == 0 {
		ratio = float64(size) / 112.0
	} else {
		ratio = float64(size) / 128.0
		diffX = 8.0 * ratio
	}

	src := make([][2]float64, len(kps))
	dst := make([][2]float64, len(kps))
	for i, p := range kps {
		src[i] = [2]float64{float64(p[0]), float64(p[1])}
		dst[i] = [2]float64{arcfaceTemplate[i][0]*ratio + diffX, arcfaceTemplate[i][1] * ratio}
	}

	return estimateSimilarity(src, dst)
}

// centerScaleMatrix scales around center and moves it to the middle of an
// outputSize square crop.
func centerScaleMatrix(cx, cy float64, outputSize int, scale float64) affine {
	half := float64(outputSize) / 2
	return affine{
		scale, 0, half - cx*scale,
		0, scale, half - cy*scale,
	}
}

// warpAffine renders src through m into a size x size crop. Uncovered
// pixels stay black. m uses integer pixel coordinates; x/image/draw samples
// at pixel centers, so the matrix is shifted by half a pixel on both sides.
func warpAffine(src *image.NRGBA, m affine, width, height int) *image.NRGBA {
	dst := image.NewNRGBA(image.Rect(0, 0, width, height))
	s2d := f64.Aff3{
		m[0], m[1], m[2] + 0.5 - 0.5*(m[0]+m[1]),
		m[3], m[4], m[5] + 0.5 - 0.5*(m[3]+m[4]),
	}
	draw.BiLinear.Transform(dst, s2d, src, src.Bounds(), draw.Src, nil)
	return dst
}
