// Package rekognition provides a detection handler backed by AWS Rekognition
// DetectFaces, for hosts without a local detection graph.
package rekognition

import (
	"bytes"
	"context"
	"fmt"
	"image"
	"sort"

	"github.com/aws/aws-sdk-go-v2/service/rekognition"
	"github.com/aws/aws-sdk-go-v2/service/rekognition/types"
	"github.com/disintegration/imaging"

	"github.com/saturnino-fabrica-de-software/muzzle/internal/model"
)

const (
	// maxImageSize is the largest inline image accepted by DetectFaces (5MB)
	maxImageSize = 5 * 1024 * 1024

	// Source is reported as the model source in the registry
	Source = "aws-rekognition"

	jpegQuality = 90
)

// landmarkOrder matches the five-point layout of the local detectors:
// left eye, right eye, nose, left mouth corner, right mouth corner
var landmarkOrder = []types.LandmarkType{
	types.LandmarkTypeEyeLeft,
	types.LandmarkTypeEyeRight,
	types.LandmarkTypeNose,
	types.LandmarkTypeMouthLeft,
	types.LandmarkTypeMouthRight,
}

var _ model.Detector = (*Detector)(nil)

// Detector implements model.Detector with Rekognition DetectFaces
type Detector struct {
	api       API
	threshold float32
}

// NewDetector wraps an API client
func NewDetector(api API) *Detector {
	return &Detector{api: api}
}

func (d *Detector) TaskName() string    { return model.TaskDetection }
func (d *Detector) InputShape() []int64 { return nil }
func (d *Detector) InputMean() float32  { return 0 }
func (d *Detector) InputStd() float32   { return 1 }
func (d *Detector) Close() error        { return nil }

// Prepare keeps only the score threshold; the remote service picks its own
// input size and device.
func (d *Detector) Prepare(opts model.PrepareOptions) error {
	if opts.Threshold > 0 {
		d.threshold = opts.Threshold
	}
	return nil
}

// Detect sends img as JPEG and converts every face above the threshold.
// Boxes and landmarks come back as ratios of the image size.
func (d *Detector) Detect(ctx context.Context, img image.Image, maxNum int, metric string) ([]model.Detection, error) {
	var buf bytes.Buffer
	if err := imaging.Encode(&buf, img, imaging.JPEG, imaging.JPEGQuality(jpegQuality)); err != nil {
		return nil, fmt.Errorf("encode image: %w", err)
	}
	if buf.Len() > maxImageSize {
		return nil, fmt.Errorf("%w: %d bytes, maximum %d", ErrImageTooLarge, buf.Len(), maxImageSize)
	}

	output, err := d.api.DetectFaces(ctx, &rekognition.DetectFacesInput{
		Image:      &types.Image{Bytes: buf.Bytes()},
		Attributes: []types.Attribute{types.AttributeDefault},
	})
	if err != nil {
		return nil, fmt.Errorf("detect faces: %w", parseAPIError(err))
	}

	b := img.Bounds()
	w, h := float32(b.Dx()), float32(b.Dy())

	dets := make([]model.Detection, 0, len(output.FaceDetails))
	for _, detail := range output.FaceDetails {
		if detail.BoundingBox == nil || detail.Confidence == nil {
			continue
		}
		score := *detail.Confidence / 100
		if score < d.threshold {
			continue
		}
		dets = append(dets, model.Detection{
			BBox:  toBBox(detail.BoundingBox, w, h),
			Score: score,
			Kps:   toKps(detail.Landmarks, w, h),
		})
	}

	return limit(dets, maxNum, metric, w, h), nil
}

func toBBox(bb *types.BoundingBox, w, h float32) [4]float32 {
	left, top := deref(bb.Left)*w, deref(bb.Top)*h
	return [4]float32{
		left,
		top,
		left + deref(bb.Width)*w,
		top + deref(bb.Height)*h,
	}
}

func toKps(landmarks []types.Landmark, w, h float32) [][2]float32 {
	byType := make(map[types.LandmarkType]types.Landmark, len(landmarks))
	for _, lm := range landmarks {
		byType[lm.Type] = lm
	}

	kps := make([][2]float32, 0, len(landmarkOrder))
	for _, t := range landmarkOrder {
		lm, ok := byType[t]
		if !ok {
			return nil
		}
		kps = append(kps, [2]float32{deref(lm.X) * w, deref(lm.Y) * h})
	}
	return kps
}

// limit keeps the maxNum largest faces. Any metric other than "max" also
// penalizes distance from the image center.
func limit(dets []model.Detection, maxNum int, metric string, w, h float32) []model.Detection {
	if maxNum <= 0 || len(dets) <= maxNum {
		return dets
	}

	cx, cy := w/2, h/2
	rank := func(d model.Detection) float32 {
		area := (d.BBox[2] - d.BBox[0]) * (d.BBox[3] - d.BBox[1])
		if metric == "max" {
			return area
		}
		ox := (d.BBox[0]+d.BBox[2])/2 - cx
		oy := (d.BBox[1]+d.BBox[3])/2 - cy
		return area - 2*(ox*ox+oy*oy)
	}

	idx := make([]int, len(dets))
	for i := range idx {
		idx[i] = i
	}
	sort.SliceStable(idx, func(a, b int) bool { return rank(dets[idx[a]]) > rank(dets[idx[b]]) })

	out := make([]model.Detection, 0, maxNum)
	for _, i := range idx[:maxNum] {
		out = append(out, dets[i])
	}
	return out
}

func deref(v *float32) float32 {
	if v == nil {
		return 0
	}
	return *v
}
