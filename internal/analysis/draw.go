package analysis

import (
	"fmt"
	"image"
	"image/color"
	"image/draw"

	"github.com/disintegration/imaging"
	"golang.org/x/image/font"
	"golang.org/x/image/font/basicfont"
	"golang.org/x/image/math/fixed"

	"github.com/saturnino-fabrica-de-software/muzzle/internal/domain"
)

const (
	boxThickness = 3
	kpsOuter     = 4
	kpsInner     = 2
	labelPadding = 2
)

var (
	boxColor   = color.NRGBA{G: 255, A: 255}
	labelColor = color.NRGBA{A: 255}
	kpsOuterC  = color.NRGBA{A: 255}
	kpsInnerC  = color.NRGBA{R: 255, G: 255, A: 255}
)

// DrawOn returns a copy of img with every face's box, score label and
// keypoints painted on it. img is left untouched.
func DrawOn(img image.Image, faces []*domain.Face) *image.NRGBA {
	dst := imaging.Clone(img)
	for _, f := range faces {
		if f == nil {
			continue
		}
		box := image.Rect(
			int(f.BBox[0]), int(f.BBox[1]),
			int(f.BBox[2]), int(f.BBox[3]),
		).Canon()

		strokeRect(dst, box, boxThickness, boxColor)
		drawLabel(dst, box.Min, fmt.Sprintf("Conf: %.2f", f.DetScore))

		for _, p := range f.Kps {
			c := image.Pt(int(p[0]), int(p[1]))
			fillSquare(dst, c, kpsOuter, kpsOuterC)
			fillSquare(dst, c, kpsInner, kpsInnerC)
		}
	}
	return dst
}

func strokeRect(dst draw.Image, r image.Rectangle, t int, c color.Color) {
	src := image.NewUniform(c)
	edges := []image.Rectangle{
		image.Rect(r.Min.X, r.Min.Y, r.Max.X, r.Min.Y+t),
		image.Rect(r.Min.X, r.Max.Y-t, r.Max.X, r.Max.Y),
		image.Rect(r.Min.X, r.Min.Y, r.Min.X+t, r.Max.Y),
		image.Rect(r.Max.X-t, r.Min.Y, r.Max.X, r.Max.Y),
	}
	for _, e := range edges {
		draw.Draw(dst, e.Intersect(dst.Bounds()), src, image.Point{}, draw.Src)
	}
}

func fillSquare(dst draw.Image, center image.Point, half int, c color.Color) {
	r := image.Rect(center.X-half, center.Y-half, center.X+half, center.Y+half)
	draw.Draw(dst, r.Intersect(dst.Bounds()), image.NewUniform(c), image.Point{}, draw.Src)
}

// drawLabel paints text on a filled box sitting on top of the face box,
// or just inside it when the face touches the top edge.
func drawLabel(dst draw.Image, anchor image.Point, text string) {
	face := basicfont.Face7x13
	width := font.MeasureString(face, text).Ceil()
	height := face.Metrics().Height.Ceil()

	top := anchor.Y - height - 2*labelPadding
	if top < dst.Bounds().Min.Y {
		top = anchor.Y
	}
	bg := image.Rect(anchor.X, top, anchor.X+width+2*labelPadding, top+height+2*labelPadding)
	draw.Draw(dst, bg.Intersect(dst.Bounds()), image.NewUniform(boxColor), image.Point{}, draw.Src)

	d := &font.Drawer{
		Dst:  dst,
		Src:  image.NewUniform(labelColor),
		Face: face,
		Dot:  fixed.P(anchor.X+labelPadding, top+labelPadding+face.Metrics().Ascent.Ceil()),
	}
	d.DrawString(text)
}
