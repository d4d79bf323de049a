package docs

import (
	"github.com/go-swagno/swagno"
	"github.com/go-swagno/swagno/components/endpoint"
	"github.com/go-swagno/swagno/components/http/response"
	"github.com/go-swagno/swagno/components/mime"
	"github.com/go-swagno/swagno/components/parameter"
)

// DetectionResponse represents the face count for an uploaded image
type DetectionResponse struct {
	Num int `json:"num" example:"2"`
}

// RecognitionResponse represents one L2-normalized embedding per detected face
type RecognitionResponse struct {
	Embedding [][]float32 `json:"embedding"`
}

// ModelInfo describes one registered model handler
type ModelInfo struct {
	Task       string  `json:"task" example:"detection"`
	Source     string  `json:"source" example:"det_10g.onnx"`
	InputShape []int64 `json:"input_shape"`
	InputMean  float32 `json:"input_mean" example:"127.5"`
	InputStd   float32 `json:"input_std" example:"128"`
}

// ModelsResponse lists registered model handlers
type ModelsResponse struct {
	Models []ModelInfo `json:"models"`
}

// HealthResponse represents liveness and readiness probes
type HealthResponse struct {
	Status  string `json:"status" example:"ok"`
	Version string `json:"version,omitempty" example:"0.1.0"`
}

// ImageResponse represents a binary image body
type ImageResponse struct{}

// ErrorResponse represents a standard error response
type ErrorResponse struct {
	Code    string `json:"code" example:"INVALID_CONTENT_TYPE"`
	Message string `json:"message" example:"File must be an image."`
}

func imageUpload(summary, description string, success response.Response, produce mime.MIME, path string) *endpoint.EndPoint {
	return endpoint.New(
		endpoint.POST,
		path,
		endpoint.WithTags("Inference"),
		endpoint.WithSummary(summary),
		endpoint.WithDescription(description),
		endpoint.WithConsume([]mime.MIME{mime.MIME("multipart/form-data")}),
		endpoint.WithProduce([]mime.MIME{produce}),
		endpoint.WithParams(
			parameter.FileParam("file", parameter.WithRequired(), parameter.WithDescription("Image file (JPEG, PNG, GIF, BMP, WebP)")),
			parameter.IntParam("max_num", parameter.Query, parameter.WithDescription("Keep at most this many faces (0 = all)")),
			parameter.StrParam("metric", parameter.Query, parameter.WithDescription("Ranking used with max_num: 'max' (largest) or 'default' (largest and most central)")),
		),
		endpoint.WithSuccessfulReturns([]response.Response{success}),
		endpoint.WithErrors([]response.Response{
			response.New(ErrorResponse{Code: "MISSING_FILE", Message: "Multipart field 'file' is required"}, "400", "Bad Request"),
			response.New(ErrorResponse{Code: "INVALID_CONTENT_TYPE", Message: "File must be an image."}, "400", "Bad Request"),
			response.New(ErrorResponse{Code: "IMAGE_DECODE_FAILED", Message: "image: unknown format"}, "500", "Internal Server Error"),
			response.New(ErrorResponse{Code: "INFERENCE_FAILED", Message: "run session: ..."}, "500", "Internal Server Error"),
		}),
	)
}

// NewSwagger creates and configures the Swagger documentation
func NewSwagger() *swagno.Swagger {
	sw := swagno.New(swagno.Config{
		Title:       "Muzzle Face Analysis API",
		Version:     "v1.0.0",
		Description: "Face and livestock-face detection and recognition backed by ONNX model graphs",
		Host:        "localhost:5004",
		Path:        "/",
	})

	endpoints := []*endpoint.EndPoint{
		imageUpload(
			"Count faces",
			"Runs the detection model and returns the number of faces found",
			response.New(DetectionResponse{}, "200", "Detection completed"),
			mime.JSON,
			"/detection",
		),
		imageUpload(
			"Extract face embeddings",
			"Runs detection and every attribute model, returning one normalized embedding per face in detection order",
			response.New(RecognitionResponse{}, "200", "Recognition completed"),
			mime.JSON,
			"/recognition",
		),
		imageUpload(
			"Draw detections",
			"Returns a JPEG copy of the image with boxes, scores and keypoints",
			response.New(ImageResponse{}, "200", "Annotated image"),
			mime.MIME("image/jpeg"),
			"/visualize",
		),

		endpoint.New(
			endpoint.GET,
			"/models",
			endpoint.WithTags("Models"),
			endpoint.WithSummary("List registered models"),
			endpoint.WithProduce([]mime.MIME{mime.JSON}),
			endpoint.WithSuccessfulReturns([]response.Response{
				response.New(ModelsResponse{}, "200", "Registered models"),
			}),
		),

		endpoint.New(
			endpoint.GET,
			"/health",
			endpoint.WithTags("Health"),
			endpoint.WithSummary("Liveness probe"),
			endpoint.WithProduce([]mime.MIME{mime.JSON}),
			endpoint.WithSuccessfulReturns([]response.Response{
				response.New(HealthResponse{}, "200", "Service is up"),
			}),
		),

		endpoint.New(
			endpoint.GET,
			"/ready",
			endpoint.WithTags("Health"),
			endpoint.WithSummary("Readiness probe"),
			endpoint.WithDescription("Ready once every model handler is prepared"),
			endpoint.WithProduce([]mime.MIME{mime.JSON}),
			endpoint.WithSuccessfulReturns([]response.Response{
				response.New(HealthResponse{Status: "ready"}, "200", "Models prepared"),
			}),
			endpoint.WithErrors([]response.Response{
				response.New(ErrorResponse{Code: "NOT_READY", Message: "Models are not prepared"}, "503", "Service Unavailable"),
			}),
		),
	}

	sw.AddEndpoints(endpoints)

	return sw
}
