// Package model provides the image classifier backends: a local ONNX Runtime
// session and a remote HTTP inference endpoint.
package model

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"math"
	"path/filepath"
	"time"

	"tilecls-go/domain/label"
)

// Backend names accepted in Config.Backend.
const (
	BackendONNX = "onnx"
	BackendHTTP = "http"
)

// Common errors for model operations.
var (
	ErrModelUnavailable = errors.New("model is not loaded")
	ErrLabelMismatch    = errors.New("label count does not match model output size")
	ErrAlreadyLoaded    = errors.New("a model is already loaded in this process")
	ErrUnknownBackend   = errors.New("unknown model backend")
	ErrInputSize        = errors.New("input has wrong number of values")
	ErrNonSquareInput   = errors.New("model input is not square")
)

// Classifier runs a single forward pass over a preprocessed image.
type Classifier interface {
	// InputSize returns the square side length of the expected input image.
	InputSize() int

	// OutputSize returns the length of the score vector, or 0 if unknown.
	OutputSize() int

	// Classify runs inference on an NHWC float32 input of
	// InputSize()*InputSize()*3 values and returns the score vector.
	Classify(ctx context.Context, input []float32) ([]float32, error)

	// Close releases resources.
	Close()
}

// Config contains configuration for loading a classifier.
type Config struct {
	// Backend is BackendONNX or BackendHTTP.
	Backend string

	// Dir is the directory holding the model and label files.
	Dir string
	// ModelFile is the ONNX file name inside Dir.
	ModelFile string
	// LabelFile is the newline-delimited class list inside Dir.
	LabelFile string

	// InputSize is the side length used when the model does not declare one.
	InputSize int
	// InputName and OutputName override the tensor names read from the model.
	InputName  string
	OutputName string
	// SharedLibraryPath points at the onnxruntime shared library.
	// Empty uses the platform default lookup.
	SharedLibraryPath string

	// BaseURL is the inference endpoint for BackendHTTP.
	BaseURL        string
	Timeout        time.Duration
	HealthInterval time.Duration
	HealthTimeout  time.Duration

	Logger *slog.Logger
}

// DefaultConfig returns default model configuration.
func DefaultConfig() *Config {
	return &Config{
		Backend:        BackendONNX,
		Dir:            "model",
		ModelFile:      "model.onnx",
		LabelFile:      "labels.txt",
		InputSize:      160,
		BaseURL:        "http://localhost:8080",
		Timeout:        30 * time.Second,
		HealthInterval: 5 * time.Second,
		HealthTimeout:  3 * time.Second,
	}
}

// ModelPath returns the full path of the ONNX model file.
func (c *Config) ModelPath() string {
	return filepath.Join(c.Dir, c.ModelFile)
}

// LabelPath returns the full path of the label file.
func (c *Config) LabelPath() string {
	return filepath.Join(c.Dir, c.LabelFile)
}

// Load creates the configured classifier and checks it against labels.
// On any failure the returned Classifier is nil.
func Load(ctx context.Context, cfg *Config, labels *label.Set) (Classifier, error) {
	if cfg == nil {
		cfg = DefaultConfig()
	}
	if cfg.Logger == nil {
		cfg.Logger = slog.Default()
	}

	var (
		c   Classifier
		err error
	)
	switch cfg.Backend {
	case BackendONNX, "":
		c, err = NewONNXClassifier(cfg)
	case BackendHTTP:
		c, err = NewHTTPClassifier(ctx, cfg)
	default:
		return nil, fmt.Errorf("%w: %q", ErrUnknownBackend, cfg.Backend)
	}
	if err != nil {
		return nil, err
	}

	if err := ValidateLabels(c.OutputSize(), labels.Len()); err != nil {
		c.Close()
		return nil, err
	}

	cfg.Logger.Info("Model loaded",
		"backend", cfg.Backend,
		"input_size", c.InputSize(),
		"outputs", c.OutputSize(),
		"labels", labels.Len())
	return c, nil
}

// ValidateLabels checks that every model output has a label.
// An outputSize of 0 means the backend cannot tell and is accepted.
func ValidateLabels(outputSize, labelCount int) error {
	if labelCount == 0 {
		return fmt.Errorf("%w: no labels", ErrLabelMismatch)
	}
	if outputSize == 0 {
		return nil
	}
	if outputSize != labelCount {
		return fmt.Errorf("%w: model has %d outputs, label file has %d entries",
			ErrLabelMismatch, outputSize, labelCount)
	}
	return nil
}

// ArgMax returns the index and value of the largest score.
// Ties resolve to the lowest index and NaN never wins over a number.
// An empty vector yields (-1, 0).
func ArgMax(scores []float32) (int, float32) {
	if len(scores) == 0 {
		return -1, 0
	}
	best, bestVal := 0, scores[0]
	for i := 1; i < len(scores); i++ {
		if scores[i] > bestVal || math.IsNaN(float64(bestVal)) {
			best, bestVal = i, scores[i]
		}
	}
	return best, bestVal
}
