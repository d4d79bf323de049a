package domain

import (
	"math"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestFace_NormedEmbedding(t *testing.T) {
	f := NewFace([4]float32{0, 0, 10, 10}, 0.9, nil)
	f.Embedding = []float32{3, 4}

	assert.InDelta(t, 5.0, f.EmbeddingNorm(), 1e-9)

	normed := f.NormedEmbedding()
	require.Len(t, normed, 2)
	assert.InDelta(t, 0.6, normed[0], 1e-6)
	assert.InDelta(t, 0.8, normed[1], 1e-6)

	// raw embedding untouched
	assert.Equal(t, []float32{3, 4}, f.Embedding)
}

func TestFace_NormedEmbedding_Edges(t *testing.T) {
	f := NewFace([4]float32{}, 0, nil)
	assert.Nil(t, f.NormedEmbedding())

	f.Embedding = []float32{0, 0, 0}
	out := f.NormedEmbedding()
	require.Len(t, out, 3)
	for _, v := range out {
		assert.False(t, math.IsNaN(float64(v)))
		assert.Zero(t, v)
	}
}

func TestFace_Attributes(t *testing.T) {
	f := NewFace([4]float32{1, 2, 11, 22}, 0.5, nil)
	assert.Equal(t, float32(10), f.Width())
	assert.Equal(t, float32(20), f.Height())
	assert.Equal(t, "", f.Sex())

	male := 1
	f.Gender = &male
	assert.Equal(t, "M", f.Sex())

	f.SetAttribute("landmark_2d_106", []float32{1, 2})
	assert.Contains(t, f.Attributes, "landmark_2d_106")
}
