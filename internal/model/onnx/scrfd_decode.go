package onnx

import (
	"math"
	"sort"

	"github.com/saturnino-fabrica-de-software/muzzle/internal/model"
)

const (
	nmsThreshold = 0.4
	// MetricMax ranks truncated detections by box area only
	MetricMax = "max"
	// MetricDefault ranks by area penalized by distance from the image center
	MetricDefault = "default"
)

// headLayout describes the stride heads of an anchor-free face detector
type headLayout struct {
	strides    []int
	numAnchors int
	useKps     bool
}

// layoutForOutputs maps the number of graph outputs to the head layout.
// ok is false for counts no supported detector produces.
func layoutForOutputs(n int) (headLayout, bool) {
	switch n {
	case 6:
		return headLayout{strides: []int{8, 16, 32}, numAnchors: 2}, true
	case 9:
		return headLayout{strides: []int{8, 16, 32}, numAnchors: 2, useKps: true}, true
	case 10:
		return headLayout{strides: []int{8, 16, 32, 64, 128}, numAnchors: 1}, true
	case 15:
		return headLayout{strides: []int{8, 16, 32, 64, 128}, numAnchors: 1, useKps: true}, true
	}
	return headLayout{}, false
}

// anchorCenters lists the (x, y) center of every anchor on a stride grid,
// row-major, each center repeated numAnchors times.
func anchorCenters(height, width, stride, numAnchors int) [][2]float32 {
	centers := make([][2]float32, 0, height*width*numAnchors)
	for y := 0; y < height; y++ {
		for x := 0; x < width; x++ {
			c := [2]float32{float32(x * stride), float32(y * stride)}
			for a := 0; a < numAnchors; a++ {
				centers = append(centers, c)
			}
		}
	}
	return centers
}

func distance2bbox(center [2]float32, d []float32) [4]float32 {
	return [4]float32{
		center[0] - d[0],
		center[1] - d[1],
		center[0] + d[2],
		center[1] + d[3],
	}
}

func distance2kps(center [2]float32, d []float32) [][2]float32 {
	kps := make([][2]float32, len(d)/2)
	for i := range kps {
		kps[i] = [2]float32{center[0] + d[2*i], center[1] + d[2*i+1]}
	}
	return kps
}

// decodeHeads turns raw head outputs into candidate detections above thresh,
// in input-image coordinates divided by scale.
func decodeHeads(outs [][]float32, layout headLayout, inputW, inputH int, thresh, scale float32) []model.Detection {
	fmc := len(layout.strides)
	var dets []model.Detection

	for idx, stride := range layout.strides {
		scores := outs[idx]
		boxes := outs[idx+fmc]
		var kpsPreds []float32
		if layout.useKps {
			kpsPreds = outs[idx+2*fmc]
		}

		centers := anchorCenters(inputH/stride, inputW/stride, stride, layout.numAnchors)
		s := float32(stride)

		for i, center := range centers {
			if i >= len(scores) || scores[i] < thresh {
				continue
			}
			d := make([]float32, 4)
			for k := 0; k < 4; k++ {
				d[k] = boxes[i*4+k] * s
			}
			bbox := distance2bbox(center, d)
			for k := range bbox {
				bbox[k] /= scale
			}

			det := model.Detection{BBox: bbox, Score: scores[i]}
			if layout.useKps {
				kd := make([]float32, 10)
				for k := 0; k < 10; k++ {
					kd[k] = kpsPreds[i*10+k] * s
				}
				kps := distance2kps(center, kd)
				for k := range kps {
					kps[k][0] /= scale
					kps[k][1] /= scale
				}
				det.Kps = kps
			}
			dets = append(dets, det)
		}
	}

	return dets
}

// nms sorts dets by descending score and drops boxes overlapping a kept box
// by more than thresh.
func nms(dets []model.Detection, thresh float32) []model.Detection {
	sorted := make([]model.Detection, len(dets))
	copy(sorted, dets)
	sort.SliceStable(sorted, func(i, j int) bool {
		return sorted[i].Score > sorted[j].Score
	})

	area := func(b [4]float32) float32 {
		return (b[2] - b[0] + 1) * (b[3] - b[1] + 1)
	}

	suppressed := make([]bool, len(sorted))
	keep := make([]model.Detection, 0, len(sorted))
	for i := range sorted {
		if suppressed[i] {
			continue
		}
		keep = append(keep, sorted[i])
		bi := sorted[i].BBox
		for j := i + 1; j < len(sorted); j++ {
			if suppressed[j] {
				continue
			}
			bj := sorted[j].BBox
			w := max32(0, min32(bi[2], bj[2])-max32(bi[0], bj[0])+1)
			h := max32(0, min32(bi[3], bj[3])-max32(bi[1], bj[1])+1)
			inter := w * h
			ovr := inter / (area(bi) + area(bj) - inter)
			if ovr > thresh {
				suppressed[j] = true
			}
		}
	}

	return keep
}

// limitDetections keeps the maxNum best detections under metric. Ranking
// uses the box area; any metric other than MetricMax subtracts twice the
// squared distance between box center and image center.
func limitDetections(dets []model.Detection, maxNum int, metric string, imgW, imgH int) []model.Detection {
	if maxNum <= 0 || len(dets) <= maxNum {
		return dets
	}

	cx := float64(imgW / 2)
	cy := float64(imgH / 2)
	values := make([]float64, len(dets))
	for i, d := range dets {
		b := d.BBox
		area := float64(b[2]-b[0]) * float64(b[3]-b[1])
		if metric == MetricMax {
			values[i] = area
			continue
		}
		ox := float64(b[0]+b[2])/2 - cx
		oy := float64(b[1]+b[3])/2 - cy
		values[i] = area - (ox*ox+oy*oy)*2.0
	}

	idx := make([]int, len(dets))
	for i := range idx {
		idx[i] = i
	}
	sort.SliceStable(idx, func(a, b int) bool {
		return values[idx[a]] > values[idx[b]]
	})

	out := make([]model.Detection, maxNum)
	for i := 0; i < maxNum; i++ {
		out[i] = dets[idx[i]]
	}
	return out
}

func min32(a, b float32) float32 { return float32(math.Min(float64(a), float64(b))) }
func max32(a, b float32) float32 { return float32(math.Max(float64(a), float64(b))) }
