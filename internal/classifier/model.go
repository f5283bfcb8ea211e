package classifier

import (
	"context"
	"errors"
	"fmt"
	"os"
)

// ErrModelNotFound is returned when no model artifact is configured or the file does not exist.
var ErrModelNotFound = errors.New("model artifact not found")

// ErrShape is returned when a window does not match the model's input contract.
var ErrShape = errors.New("window shape mismatch")

// Model defines the interface for form model implementations.
type Model interface {
	// Predict scores one window and returns one probability per form-error label.
	// keypoints is shaped N x 99 and angles N x 8.
	Predict(ctx context.Context, keypoints, angles [][]float64) ([]float64, error)

	// Close releases any resources held by the model.
	Close() error
}

// ModelConfig holds configuration options for loading the form model.
type ModelConfig struct {
	// Path is the ONNX export of the trained model.
	Path string `yaml:"path"`

	// URL points at a remote inference service. When set it takes precedence over Path.
	URL string `yaml:"url"`

	// KeypointsInput and AnglesInput are the model's input tensor names.
	KeypointsInput string `yaml:"keypoints_input"`
	AnglesInput    string `yaml:"angles_input"`

	// Output is the output tensor name; empty selects the last layer.
	Output string `yaml:"output"`
}

// DefaultModelConfig returns a ModelConfig with the tensor names of the trained push-up model.
func DefaultModelConfig() ModelConfig {
	return ModelConfig{
		KeypointsInput: "keypoints_input",
		AnglesInput:    "angles_input",
	}
}

// LoadModel opens the configured model backend.
// It returns an error wrapping ErrModelNotFound when nothing usable is configured.
func LoadModel(cfg ModelConfig) (Model, error) {
	if cfg.URL != "" {
		return NewHTTPModel(cfg), nil
	}

	if cfg.Path == "" {
		return nil, ErrModelNotFound
	}
	if _, err := os.Stat(cfg.Path); err != nil {
		return nil, fmt.Errorf("%w: %s", ErrModelNotFound, cfg.Path)
	}

	return loadONNX(cfg)
}
