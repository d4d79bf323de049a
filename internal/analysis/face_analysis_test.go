package analysis

import (
	"context"
	"errors"
	"image"
	"io"
	"log/slog"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"

	"github.com/saturnino-fabrica-de-software/muzzle/internal/domain"
	"github.com/saturnino-fabrica-de-software/muzzle/internal/model"
)

type mockHandler struct {
	mock.Mock
	task string
}

func (m *mockHandler) TaskName() string     { return m.task }
func (m *mockHandler) InputShape() []int64  { return []int64{1, 3, 112, 112} }
func (m *mockHandler) InputMean() float32   { return 127.5 }
func (m *mockHandler) InputStd() float32    { return 127.5 }
func (m *mockHandler) Close() error         { return nil }
func (m *mockHandler) Prepare(opts model.PrepareOptions) error {
	return m.Called(opts).Error(0)
}

type mockDetector struct {
	mockHandler
}

func (m *mockDetector) Detect(ctx context.Context, img image.Image, maxNum int, metric string) ([]model.Detection, error) {
	args := m.Called(ctx, img, maxNum, metric)
	dets, _ := args.Get(0).([]model.Detection)
	return dets, args.Error(1)
}

type mockAttributer struct {
	mockHandler
}

func (m *mockAttributer) Get(ctx context.Context, img image.Image, face *domain.Face) error {
	return m.Called(ctx, img, face).Error(0)
}

type fakeRegistry struct {
	det      model.Detector
	detErr   error
	handlers []model.Handler
}

func (r *fakeRegistry) Detector() (model.Detector, error) { return r.det, r.detErr }
func (r *fakeRegistry) Handlers() []model.Handler        { return r.handlers }
func (r *fakeRegistry) Models() []model.ModelInfo        { return nil }

func discardLogger() *slog.Logger {
	return slog.New(slog.NewTextHandler(io.Discard, nil))
}

func newPrepared(t *testing.T, det *mockDetector, others ...model.Handler) *FaceAnalysis {
	t.Helper()
	det.On("Prepare", mock.Anything).Return(nil)
	for _, h := range others {
		switch m := h.(type) {
		case *mockAttributer:
			m.On("Prepare", mock.Anything).Return(nil)
		}
	}
	reg := &fakeRegistry{det: det, handlers: append([]model.Handler{det}, others...)}
	fa, err := New(reg, discardLogger())
	require.NoError(t, err)
	require.NoError(t, fa.Prepare(0, 0.5, image.Pt(640, 640)))
	return fa
}

func TestNew_RequiresDetector(t *testing.T) {
	_, err := New(&fakeRegistry{detErr: model.ErrDetectionRequired}, discardLogger())
	require.Error(t, err)
	assert.ErrorIs(t, err, model.ErrDetectionRequired)
}

func TestPrepare(t *testing.T) {
	t.Run("detector gets size and threshold, others only target", func(t *testing.T) {
		det := &mockDetector{mockHandler{task: model.TaskDetection}}
		rec := &mockAttributer{mockHandler{task: model.TaskRecognition}}
		det.On("Prepare", model.PrepareOptions{Target: 1, InputSize: image.Pt(320, 320), Threshold: 0.3}).Return(nil)
		rec.On("Prepare", model.PrepareOptions{Target: 1}).Return(nil)

		fa, err := New(&fakeRegistry{det: det, handlers: []model.Handler{det, rec}}, discardLogger())
		require.NoError(t, err)

		require.NoError(t, fa.Prepare(1, 0.3, image.Pt(320, 320)))
		assert.True(t, fa.Ready())
		det.AssertExpectations(t)
		rec.AssertExpectations(t)
	})

	t.Run("zero values use defaults", func(t *testing.T) {
		det := &mockDetector{mockHandler{task: model.TaskDetection}}
		det.On("Prepare", model.PrepareOptions{Target: model.CPU, InputSize: DefaultDetSize, Threshold: DefaultDetThreshold}).Return(nil)

		fa, err := New(&fakeRegistry{det: det, handlers: []model.Handler{det}}, discardLogger())
		require.NoError(t, err)
		require.NoError(t, fa.Prepare(model.CPU, 0, image.Point{}))
		det.AssertExpectations(t)
	})

	t.Run("second call is rejected", func(t *testing.T) {
		det := &mockDetector{mockHandler{task: model.TaskDetection}}
		fa := newPrepared(t, det)
		assert.ErrorIs(t, fa.Prepare(0, 0.5, DefaultDetSize), ErrAlreadyPrepared)
	})

	t.Run("handler failure is returned", func(t *testing.T) {
		det := &mockDetector{mockHandler{task: model.TaskDetection}}
		det.On("Prepare", mock.Anything).Return(errors.New("no cuda"))

		fa, err := New(&fakeRegistry{det: det, handlers: []model.Handler{det}}, discardLogger())
		require.NoError(t, err)
		err = fa.Prepare(0, 0.5, DefaultDetSize)
		require.Error(t, err)
		assert.Contains(t, err.Error(), "no cuda")
		assert.False(t, fa.Ready())
	})
}

func TestDetect(t *testing.T) {
	img := image.NewNRGBA(image.Rect(0, 0, 10, 10))

	t.Run("not prepared", func(t *testing.T) {
		det := &mockDetector{mockHandler{task: model.TaskDetection}}
		fa, err := New(&fakeRegistry{det: det, handlers: []model.Handler{det}}, discardLogger())
		require.NoError(t, err)

		_, err = fa.Detect(context.Background(), img, 0, "")
		assert.ErrorIs(t, err, ErrNotPrepared)
	})

	t.Run("returns count and defaults metric", func(t *testing.T) {
		det := &mockDetector{mockHandler{task: model.TaskDetection}}
		fa := newPrepared(t, det)
		det.On("Detect", mock.Anything, img, 0, DefaultMetric).
			Return([]model.Detection{{Score: 0.9}, {Score: 0.8}}, nil)

		n, err := fa.Detect(context.Background(), img, 0, "")
		require.NoError(t, err)
		assert.Equal(t, 2, n)
	})

	t.Run("detector error is wrapped", func(t *testing.T) {
		det := &mockDetector{mockHandler{task: model.TaskDetection}}
		fa := newPrepared(t, det)
		det.On("Detect", mock.Anything, img, 1, "max").Return(nil, errors.New("boom"))

		_, err := fa.Detect(context.Background(), img, 1, "max")
		require.Error(t, err)
		assert.Contains(t, err.Error(), "boom")
	})
}

func TestGet(t *testing.T) {
	img := image.NewNRGBA(image.Rect(0, 0, 10, 10))

	t.Run("no regions gives empty slice", func(t *testing.T) {
		det := &mockDetector{mockHandler{task: model.TaskDetection}}
		rec := &mockAttributer{mockHandler{task: model.TaskRecognition}}
		fa := newPrepared(t, det, rec)
		det.On("Detect", mock.Anything, img, 0, DefaultMetric).Return([]model.Detection{}, nil)

		faces, err := fa.Get(context.Background(), img, 0, "")
		require.NoError(t, err)
		require.NotNil(t, faces)
		assert.Empty(t, faces)
		rec.AssertNotCalled(t, "Get", mock.Anything, mock.Anything, mock.Anything)
	})

	t.Run("handlers run in registry order per face", func(t *testing.T) {
		det := &mockDetector{mockHandler{task: model.TaskDetection}}
		rec := &mockAttributer{mockHandler{task: model.TaskRecognition}}
		ga := &mockAttributer{mockHandler{task: model.TaskGenderAge}}
		fa := newPrepared(t, det, rec, ga)

		det.On("Detect", mock.Anything, img, 0, DefaultMetric).Return([]model.Detection{
			{BBox: [4]float32{0, 0, 4, 4}, Score: 0.9},
			{BBox: [4]float32{5, 5, 9, 9}, Score: 0.7},
		}, nil)

		var calls []string
		rec.On("Get", mock.Anything, img, mock.Anything).Run(func(args mock.Arguments) {
			f := args.Get(2).(*domain.Face)
			f.Embedding = []float32{3, 4}
			calls = append(calls, "rec")
		}).Return(nil)
		ga.On("Get", mock.Anything, img, mock.Anything).Run(func(args mock.Arguments) {
			require.NotNil(t, args.Get(2).(*domain.Face).Embedding)
			calls = append(calls, "ga")
		}).Return(nil)

		faces, err := fa.Get(context.Background(), img, 0, "")
		require.NoError(t, err)
		require.Len(t, faces, 2)
		assert.Equal(t, float32(0.9), faces[0].DetScore)
		assert.Equal(t, float32(0.7), faces[1].DetScore)
		assert.Equal(t, []string{"rec", "ga", "rec", "ga"}, calls)
		assert.InDeltaSlice(t, []float32{0.6, 0.8}, faces[0].NormedEmbedding(), 1e-6)
	})

	t.Run("attribute error aborts", func(t *testing.T) {
		det := &mockDetector{mockHandler{task: model.TaskDetection}}
		rec := &mockAttributer{mockHandler{task: model.TaskRecognition}}
		fa := newPrepared(t, det, rec)

		det.On("Detect", mock.Anything, img, 0, DefaultMetric).Return([]model.Detection{{Score: 0.9}}, nil)
		rec.On("Get", mock.Anything, img, mock.Anything).Return(errors.New("missing kps"))

		faces, err := fa.Get(context.Background(), img, 0, "")
		require.Error(t, err)
		assert.Nil(t, faces)
		assert.Contains(t, err.Error(), "recognition")
	})
}
