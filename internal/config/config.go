package config

import (
	"fmt"
	"image"
	"strconv"
	"strings"

	"github.com/kelseyhightower/envconfig"
)

type Config struct {
	// Server
	Host        string `envconfig:"HOST" default:"0.0.0.0"`
	Port        int    `envconfig:"PORT" default:"5004"`
	Environment string `envconfig:"ENV" default:"development"`
	MaxUploadMB int    `envconfig:"MAX_UPLOAD_MB" default:"32"`
	LogFile     string `envconfig:"LOG_FILE"`

	// Models
	ModelRoot      string   `envconfig:"MODEL_ROOT" default:"./models"`
	AllowedModules []string `envconfig:"ALLOWED_MODULES"`
	CtxID          int      `envconfig:"CTX_ID" default:"0"`
	DetThresh      float32  `envconfig:"DET_THRESH" default:"0.5"`
	DetSize        DetSize  `envconfig:"DET_SIZE" default:"640,640"`

	// Runtime
	ExecutionProviders []string `envconfig:"EXECUTION_PROVIDERS" default:"cuda,cpu"`
	ONNXRuntimeLib     string   `envconfig:"ONNXRUNTIME_LIB"`
	IntraOpThreads     int      `envconfig:"INTRA_OP_THREADS" default:"0"`
	ReclaimMemory      bool     `envconfig:"RECLAIM_MEMORY" default:"true"`

	// Detection backend
	DetectionBackend string `envconfig:"DETECTION_BACKEND" default:"onnx"`
	AWSRegion        string `envconfig:"AWS_REGION" default:"us-east-1"`
}

func Load() (*Config, error) {
	var cfg Config
	if err := envconfig.Process("", &cfg); err != nil {
		return nil, fmt.Errorf("load config: %w", err)
	}
	if err := cfg.validate(); err != nil {
		return nil, fmt.Errorf("load config: %w", err)
	}
	return &cfg, nil
}

func (c *Config) validate() error {
	switch c.DetectionBackend {
	case BackendONNX, BackendRekognition:
	default:
		return fmt.Errorf("DETECTION_BACKEND must be %q or %q, got %q", BackendONNX, BackendRekognition, c.DetectionBackend)
	}
	if c.DetThresh < 0 || c.DetThresh > 1 {
		return fmt.Errorf("DET_THRESH must be within [0,1], got %v", c.DetThresh)
	}
	if c.MaxUploadMB <= 0 {
		return fmt.Errorf("MAX_UPLOAD_MB must be positive, got %d", c.MaxUploadMB)
	}
	return nil
}

const (
	BackendONNX        = "onnx"
	BackendRekognition = "rekognition"
)

func (c *Config) Addr() string {
	return fmt.Sprintf("%s:%d", c.Host, c.Port)
}

func (c *Config) BodyLimit() int {
	return c.MaxUploadMB * 1024 * 1024
}

func (c *Config) IsDevelopment() bool {
	return c.Environment == "development"
}

func (c *Config) IsProduction() bool {
	return c.Environment == "production"
}

// DetSize is the detector input size, written as "width,height"
type DetSize image.Point

// Decode implements envconfig.Decoder
func (d *DetSize) Decode(value string) error {
	parts := strings.Split(value, ",")
	if len(parts) != 2 {
		return fmt.Errorf("det size %q: want width,height", value)
	}

	w, err := strconv.Atoi(strings.TrimSpace(parts[0]))
	if err != nil {
		return fmt.Errorf("det size width: %w", err)
	}
	h, err := strconv.Atoi(strings.TrimSpace(parts[1]))
	if err != nil {
		return fmt.Errorf("det size height: %w", err)
	}
	if w <= 0 || h <= 0 {
		return fmt.Errorf("det size %q: dimensions must be positive", value)
	}

	*d = DetSize{X: w, Y: h}
	return nil
}

func (d DetSize) Point() image.Point {
	return image.Point(d)
}
