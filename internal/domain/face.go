package domain

import "math"

// Face is one detected region plus the attributes attached by models
type Face struct {
	BBox       [4]float32     `json:"bbox"`
	DetScore   float32        `json:"det_score"`
	Kps        [][2]float32   `json:"kps,omitempty"`
	Embedding  []float32      `json:"-"`
	Gender     *int           `json:"gender,omitempty"`
	Age        *int           `json:"age,omitempty"`
	Attributes map[string]any `json:"attributes,omitempty"`
}

// NewFace builds the record from a detection
func NewFace(bbox [4]float32, score float32, kps [][2]float32) *Face {
	return &Face{
		BBox:     bbox,
		DetScore: score,
		Kps:      kps,
	}
}

// SetAttribute attaches a named value produced by a handler
func (f *Face) SetAttribute(name string, value any) {
	if f.Attributes == nil {
		f.Attributes = make(map[string]any)
	}
	f.Attributes[name] = value
}

// EmbeddingNorm returns the L2 norm of the raw embedding, 0 when absent.
func (f *Face) EmbeddingNorm() float64 {
	var sum float64
	for _, v := range f.Embedding {
		sum += float64(v) * float64(v)
	}
	return math.Sqrt(sum)
}

// NormedEmbedding returns the embedding scaled to unit length.
// A face without an embedding yields nil.
func (f *Face) NormedEmbedding() []float32 {
	if f.Embedding == nil {
		return nil
	}
	norm := f.EmbeddingNorm()
	out := make([]float32, len(f.Embedding))
	if norm == 0 {
		return out
	}
	for i, v := range f.Embedding {
		out[i] = float32(float64(v) / norm)
	}
	return out
}

// Sex maps the gender class to a letter, "" when unknown
func (f *Face) Sex() string {
	if f.Gender == nil {
		return ""
	}
	if *f.Gender == 1 {
		return "M"
	}
	return "F"
}

// Width and Height of the bounding box
func (f *Face) Width() float32  { return f.BBox[2] - f.BBox[0] }
func (f *Face) Height() float32 { return f.BBox[3] - f.BBox[1] }
