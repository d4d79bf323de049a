package handler

import (
	"bytes"
	"context"
	"fmt"
	"image"
	"io"
	"log/slog"
	"strings"

	"github.com/disintegration/imaging"
	"github.com/gofiber/fiber/v2"

	"github.com/saturnino-fabrica-de-software/muzzle/internal/analysis"
	"github.com/saturnino-fabrica-de-software/muzzle/internal/domain"
	"github.com/saturnino-fabrica-de-software/muzzle/internal/imagecodec"
	"github.com/saturnino-fabrica-de-software/muzzle/internal/model"
)

const (
	formFileField = "file"
	jpegQuality   = 90
)

// Analyzer runs detection and the full face pipeline
type Analyzer interface {
	Detect(ctx context.Context, img image.Image, maxNum int, metric string) (int, error)
	Get(ctx context.Context, img image.Image, maxNum int, metric string) ([]*domain.Face, error)
	Models() []model.ModelInfo
}

// Decoder turns an upload into a request-scoped image buffer
type Decoder interface {
	Decode(data []byte) (*imagecodec.Buffer, error)
}

// AnalysisHandler serves the detection and recognition endpoints
type AnalysisHandler struct {
	analyzer Analyzer
	decoder  Decoder
	logger   *slog.Logger
}

// NewAnalysisHandler creates a new AnalysisHandler instance
func NewAnalysisHandler(analyzer Analyzer, decoder Decoder, logger *slog.Logger) *AnalysisHandler {
	return &AnalysisHandler{
		analyzer: analyzer,
		decoder:  decoder,
		logger:   logger,
	}
}

// DetectionResponse response for detection endpoint
type DetectionResponse struct {
	Num int `json:"num"`
}

// RecognitionResponse response for recognition endpoint
type RecognitionResponse struct {
	Embedding [][]float32 `json:"embedding"`
}

// ModelsResponse response for models endpoint
type ModelsResponse struct {
	Models []model.ModelInfo `json:"models"`
}

// Detect POST /detection - count faces in the uploaded image
func (h *AnalysisHandler) Detect(c *fiber.Ctx) error {
	buf, filename, err := h.readImage(c, "detection")
	if err != nil {
		return err
	}
	defer buf.Release()

	maxNum, metric := pipelineParams(c)
	num, err := h.analyzer.Detect(c.Context(), buf.Image(), maxNum, metric)
	if err != nil {
		h.logger.Error("detection failed",
			slog.String("filename", filename),
			slog.Any("error", err),
		)
		return domain.ErrInference.WithError(err)
	}

	h.logger.Info("detection completed",
		slog.String("filename", filename),
		slog.Int("num", num),
	)

	return c.JSON(DetectionResponse{Num: num})
}

// Recognize POST /recognition - normalized embeddings of every face
func (h *AnalysisHandler) Recognize(c *fiber.Ctx) error {
	buf, filename, err := h.readImage(c, "recognition")
	if err != nil {
		return err
	}
	defer buf.Release()

	maxNum, metric := pipelineParams(c)
	faces, err := h.analyzer.Get(c.Context(), buf.Image(), maxNum, metric)
	if err != nil {
		h.logger.Error("recognition failed",
			slog.String("filename", filename),
			slog.Any("error", err),
		)
		return domain.ErrInference.WithError(err)
	}

	embeddings := make([][]float32, 0, len(faces))
	for _, f := range faces {
		emb := f.NormedEmbedding()
		if emb == nil {
			emb = []float32{}
		}
		embeddings = append(embeddings, emb)
	}

	h.logger.Info("recognition completed",
		slog.String("filename", filename),
		slog.Int("faces", len(faces)),
	)

	return c.JSON(RecognitionResponse{Embedding: embeddings})
}

// Visualize POST /visualize - JPEG with boxes, scores and keypoints drawn
func (h *AnalysisHandler) Visualize(c *fiber.Ctx) error {
	buf, filename, err := h.readImage(c, "visualize")
	if err != nil {
		return err
	}
	defer buf.Release()

	img := buf.Image()
	maxNum, metric := pipelineParams(c)
	faces, err := h.analyzer.Get(c.Context(), img, maxNum, metric)
	if err != nil {
		h.logger.Error("visualize failed",
			slog.String("filename", filename),
			slog.Any("error", err),
		)
		return domain.ErrInference.WithError(err)
	}

	var out bytes.Buffer
	if err := imaging.Encode(&out, analysis.DrawOn(img, faces), imaging.JPEG, imaging.JPEGQuality(jpegQuality)); err != nil {
		return domain.ErrInternal.WithError(fmt.Errorf("encode jpeg: %w", err))
	}

	h.logger.Info("visualize completed",
		slog.String("filename", filename),
		slog.Int("faces", len(faces)),
	)

	c.Set(fiber.HeaderContentType, "image/jpeg")
	return c.Send(out.Bytes())
}

// Models GET /models - registered model handlers
func (h *AnalysisHandler) Models(c *fiber.Ctx) error {
	models := h.analyzer.Models()
	if models == nil {
		models = []model.ModelInfo{}
	}
	return c.JSON(ModelsResponse{Models: models})
}

// readImage validates the multipart upload and decodes it. The caller owns
// the returned buffer and must release it.
func (h *AnalysisHandler) readImage(c *fiber.Ctx, endpoint string) (*imagecodec.Buffer, string, error) {
	file, err := c.FormFile(formFileField)
	if err != nil {
		return nil, "", domain.ErrMissingFile.WithError(err)
	}

	h.logger.Info("image received",
		slog.String("endpoint", endpoint),
		slog.String("filename", file.Filename),
		slog.Int64("size", file.Size),
	)

	contentType := file.Header.Get(fiber.HeaderContentType)
	if !strings.HasPrefix(contentType, "image/") {
		return nil, file.Filename, domain.ErrInvalidContentType.WithError(
			fmt.Errorf("content type %q", contentType),
		)
	}

	f, err := file.Open()
	if err != nil {
		return nil, file.Filename, domain.ErrImageDecode.WithError(err)
	}
	defer func() {
		_ = f.Close()
	}()

	data, err := io.ReadAll(f)
	if err != nil {
		return nil, file.Filename, domain.ErrImageDecode.WithError(err)
	}

	buf, err := h.decoder.Decode(data)
	if err != nil {
		h.logger.Error("image decode failed",
			slog.String("endpoint", endpoint),
			slog.String("filename", file.Filename),
			slog.Any("error", err),
		)
		return nil, file.Filename, domain.ErrImageDecode.WithError(err)
	}

	return buf, file.Filename, nil
}

// pipelineParams reads the optional max_num and metric query parameters
func pipelineParams(c *fiber.Ctx) (int, string) {
	maxNum := c.QueryInt("max_num", 0)
	if maxNum < 0 {
		maxNum = 0
	}
	return maxNum, c.Query("metric", analysis.DefaultMetric)
}
