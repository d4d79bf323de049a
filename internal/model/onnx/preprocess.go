package onnx

import (
	"image"

	"github.com/disintegration/imaging"
)

func toNRGBA(img image.Image) *image.NRGBA {
	if n, ok := img.(*image.NRGBA); ok {
		return n
	}
	return imaging.Clone(img)
}

// blobFromImage lays img out as a 1x3xHxW tensor in RGB channel order,
// normalized as (v-mean)/std. Pixels beyond img's bounds read as black.
func blobFromImage(img *image.NRGBA, width, height int, mean, std float32) []float32 {
	plane := width * height
	blob := make([]float32, 3*plane)
	b := img.Bounds()
	pad := -mean / std

	for y := 0; y < height; y++ {
		for x := 0; x < width; x++ {
			i := y*width + x
			if x >= b.Dx() || y >= b.Dy() {
				blob[i], blob[plane+i], blob[2*plane+i] = pad, pad, pad
				continue
			}
			off := img.PixOffset(b.Min.X+x, b.Min.Y+y)
			blob[i] = (float32(img.Pix[off]) - mean) / std
			blob[plane+i] = (float32(img.Pix[off+1]) - mean) / std
			blob[2*plane+i] = (float32(img.Pix[off+2]) - mean) / std
		}
	}

	return blob
}

// letterbox resizes img to fit inside size keeping its aspect ratio, anchored
// at the top-left corner. It returns the resized image and the scale applied.
func letterbox(img *image.NRGBA, size image.Point) (*image.NRGBA, float32) {
	b := img.Bounds()
	imRatio := float64(b.Dy()) / float64(b.Dx())
	modelRatio := float64(size.Y) / float64(size.X)

	var newW, newH int
	if imRatio > modelRatio {
		newH = size.Y
		newW = int(float64(newH) / imRatio)
	} else {
		newW = size.X
		newH = int(float64(newW) * imRatio)
	}
	if newW < 1 {
		newW = 1
	}
	if newH < 1 {
		newH = 1
	}

	scale := float32(newH) / float32(b.Dy())
	return imaging.Resize(img, newW, newH, imaging.Linear), scale
}
