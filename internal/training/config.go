// Package training holds the flat configuration record read by the external
// recognition trainer.
package training

import (
	"errors"
	"fmt"
	"os"

	"gopkg.in/yaml.v3"
)

// Config mirrors the trainer's configuration keys
type Config struct {
	MarginList    [3]float64 `yaml:"margin_list"`
	Network       string     `yaml:"network"`
	Resume        bool       `yaml:"resume"`
	Output        string     `yaml:"output,omitempty"`
	EmbeddingSize int        `yaml:"embedding_size"`
	SampleRate    float64    `yaml:"sample_rate"`
	FP16          bool       `yaml:"fp16"`
	Momentum      float64    `yaml:"momentum"`
	WeightDecay   float64    `yaml:"weight_decay"`
	BatchSize     int        `yaml:"batch_size"`
	LR            float64    `yaml:"lr"`
	Verbose       int        `yaml:"verbose"`
	DALI          bool       `yaml:"dali"`
	DALIAug       bool       `yaml:"dali_aug"`
	NumWorkers    int        `yaml:"num_workers"`
	Rec           string     `yaml:"rec"`
	NumClasses    int        `yaml:"num_classes"`
	NumImage      int        `yaml:"num_image"`
	NumEpoch      int        `yaml:"num_epoch"`
	WarmupEpoch   int        `yaml:"warmup_epoch"`
	ValTargets    []string   `yaml:"val_targets"`
}

// Default returns the single-GPU ResNet-50 preset
func Default() Config {
	return Config{
		MarginList:    [3]float64{1.0, 0.4, 0.0},
		Network:       "r50",
		Resume:        false,
		EmbeddingSize: 512,
		SampleRate:    1.0,
		FP16:          true,
		Momentum:      0.9,
		WeightDecay:   5e-4,
		BatchSize:     256,
		LR:            0.05,
		Verbose:       2000,
		DALI:          true,
		DALIAug:       true,
		NumWorkers:    4,
		Rec:           "train_tmp/shuffled_ms1m-retinaface-t1",
		NumClasses:    16,
		NumImage:      48,
		NumEpoch:      40,
		WarmupEpoch:   2,
		ValTargets:    []string{},
	}
}

// Load overlays the YAML file at path on top of Default
func Load(path string) (Config, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return Config{}, fmt.Errorf("read training config: %w", err)
	}

	cfg := Default()
	if err := yaml.Unmarshal(data, &cfg); err != nil {
		return Config{}, fmt.Errorf("parse training config %s: %w", path, err)
	}
	if cfg.ValTargets == nil {
		cfg.ValTargets = []string{}
	}
	return cfg, nil
}

// Save writes cfg as YAML
func (c Config) Save(path string) error {
	data, err := yaml.Marshal(c)
	if err != nil {
		return fmt.Errorf("encode training config: %w", err)
	}
	if err := os.WriteFile(path, data, 0o644); err != nil {
		return fmt.Errorf("write training config: %w", err)
	}
	return nil
}

// Validate reports every out-of-range field
func (c Config) Validate() error {
	var errs []error
	if c.BatchSize <= 0 {
		errs = append(errs, fmt.Errorf("batch_size must be positive, got %d", c.BatchSize))
	}
	if c.LR <= 0 {
		errs = append(errs, fmt.Errorf("lr must be positive, got %v", c.LR))
	}
	if c.NumEpoch <= 0 {
		errs = append(errs, fmt.Errorf("num_epoch must be positive, got %d", c.NumEpoch))
	}
	if c.WarmupEpoch < 0 || (c.NumEpoch > 0 && c.WarmupEpoch >= c.NumEpoch) {
		errs = append(errs, fmt.Errorf("warmup_epoch must be in [0, num_epoch), got %d", c.WarmupEpoch))
	}
	if c.SampleRate <= 0 || c.SampleRate > 1 {
		errs = append(errs, fmt.Errorf("sample_rate must be in (0, 1], got %v", c.SampleRate))
	}
	if c.EmbeddingSize <= 0 {
		errs = append(errs, fmt.Errorf("embedding_size must be positive, got %d", c.EmbeddingSize))
	}
	if c.NumClasses <= 0 {
		errs = append(errs, fmt.Errorf("num_classes must be positive, got %d", c.NumClasses))
	}
	if c.Rec == "" {
		errs = append(errs, errors.New("rec must be set"))
	}
	return errors.Join(errs...)
}

// ApplyPack points the config at a freshly packed dataset
func (c *Config) ApplyPack(recDir string, numImages, numClasses int) {
	c.Rec = recDir
	c.NumImage = numImages
	c.NumClasses = numClasses
}
