package model

import (
	"context"
	"fmt"
	"log/slog"
	"os"
	"sync"
	"sync/atomic"

	ort "github.com/yalue/onnxruntime_go"
)

// onnxLoaded guards the one-model-per-process rule; the ONNX Runtime
// environment is global.
var onnxLoaded atomic.Bool

// Layout is the memory order of an image tensor.
type Layout int

const (
	// LayoutNHWC is batch, height, width, channels (Keras default).
	LayoutNHWC Layout = iota
	// LayoutNCHW is batch, channels, height, width (PyTorch default).
	LayoutNCHW
)

func (l Layout) String() string {
	if l == LayoutNCHW {
		return "NCHW"
	}
	return "NHWC"
}

// ONNXClassifier runs a classification model with ONNX Runtime.
// Input and output tensors are allocated once and reused, so Classify calls
// are serialized.
type ONNXClassifier struct {
	session      *ort.AdvancedSession
	inputTensor  *ort.Tensor[float32]
	outputTensor *ort.Tensor[float32]
	inputSize    int
	outputSize   int
	layout       Layout
	logger       *slog.Logger

	mu     sync.Mutex
	closed bool
}

// NewONNXClassifier loads cfg.ModelPath() into a new ONNX Runtime session.
func NewONNXClassifier(cfg *Config) (*ONNXClassifier, error) {
	if cfg.Logger == nil {
		cfg.Logger = slog.Default()
	}

	modelPath := cfg.ModelPath()
	if _, err := os.Stat(modelPath); err != nil {
		return nil, fmt.Errorf("model file %s: %w", modelPath, err)
	}

	if !onnxLoaded.CompareAndSwap(false, true) {
		return nil, ErrAlreadyLoaded
	}

	c, err := newONNXClassifier(cfg, modelPath)
	if err != nil {
		onnxLoaded.Store(false)
		return nil, err
	}
	return c, nil
}

func newONNXClassifier(cfg *Config, modelPath string) (*ONNXClassifier, error) {
	if cfg.SharedLibraryPath != "" {
		ort.SetSharedLibraryPath(cfg.SharedLibraryPath)
	}
	if !ort.IsInitialized() {
		if err := ort.InitializeEnvironment(); err != nil {
			return nil, fmt.Errorf("failed to initialize ONNX environment: %w", err)
		}
	}

	inputs, outputs, err := ort.GetInputOutputInfo(modelPath)
	if err != nil {
		ort.DestroyEnvironment()
		return nil, fmt.Errorf("failed to read model inputs/outputs: %w", err)
	}
	if len(inputs) == 0 || len(outputs) == 0 {
		ort.DestroyEnvironment()
		return nil, fmt.Errorf("model %s declares no inputs or outputs", modelPath)
	}

	inputName := inputs[0].Name
	if cfg.InputName != "" {
		inputName = cfg.InputName
	}
	outputName := outputs[0].Name
	if cfg.OutputName != "" {
		outputName = cfg.OutputName
	}

	inputShape, layout, size, err := resolveInputShape(inputs[0].Dimensions, cfg.InputSize)
	if err != nil {
		ort.DestroyEnvironment()
		return nil, fmt.Errorf("model %s: %w", modelPath, err)
	}
	outputShape := resolveOutputShape(outputs[0].Dimensions)

	inputTensor, err := ort.NewEmptyTensor[float32](inputShape)
	if err != nil {
		ort.DestroyEnvironment()
		return nil, fmt.Errorf("failed to create input tensor: %w", err)
	}

	outputTensor, err := ort.NewEmptyTensor[float32](outputShape)
	if err != nil {
		inputTensor.Destroy()
		ort.DestroyEnvironment()
		return nil, fmt.Errorf("failed to create output tensor: %w", err)
	}

	session, err := ort.NewAdvancedSession(modelPath,
		[]string{inputName}, []string{outputName},
		[]ort.ArbitraryTensor{inputTensor}, []ort.ArbitraryTensor{outputTensor},
		nil)
	if err != nil {
		inputTensor.Destroy()
		outputTensor.Destroy()
		ort.DestroyEnvironment()
		return nil, fmt.Errorf("failed to create ONNX session: %w", err)
	}

	cfg.Logger.Debug("ONNX session created",
		"model", modelPath,
		"input", inputName,
		"input_shape", inputShape.String(),
		"layout", layout,
		"output", outputName,
		"output_shape", outputShape.String())

	return &ONNXClassifier{
		session:      session,
		inputTensor:  inputTensor,
		outputTensor: outputTensor,
		inputSize:    size,
		outputSize:   int(outputShape.FlattenedSize()),
		layout:       layout,
		logger:       cfg.Logger,
	}, nil
}

// resolveInputShape turns the declared input dimensions into a concrete
// batch-of-one shape. Dynamic dimensions (<= 0) take fallbackSize.
// Images are resized to a square, so a fixed h != w is rejected.
func resolveInputShape(dims ort.Shape, fallbackSize int) (ort.Shape, Layout, int, error) {
	fixed := func(d int64) int64 {
		if d <= 0 {
			return int64(fallbackSize)
		}
		return d
	}

	var (
		h, w   int64
		layout Layout
	)
	switch {
	case len(dims) == 4 && dims[1] == 3 && dims[3] != 3:
		h, w, layout = fixed(dims[2]), fixed(dims[3]), LayoutNCHW
	case len(dims) == 4:
		h, w, layout = fixed(dims[1]), fixed(dims[2]), LayoutNHWC
	default:
		s := int64(fallbackSize)
		return ort.NewShape(1, s, s, 3), LayoutNHWC, fallbackSize, nil
	}

	if h != w {
		return nil, layout, 0, fmt.Errorf("%w: %v", ErrNonSquareInput, dims)
	}
	if layout == LayoutNCHW {
		return ort.NewShape(1, 3, h, w), layout, int(h), nil
	}
	return ort.NewShape(1, h, w, 3), layout, int(h), nil
}

// resolveOutputShape pins dynamic dimensions of the output to 1.
func resolveOutputShape(dims ort.Shape) ort.Shape {
	if len(dims) == 0 {
		return ort.NewShape(1, 1)
	}
	out := make([]int64, len(dims))
	for i, d := range dims {
		if d <= 0 {
			d = 1
		}
		out[i] = d
	}
	return ort.NewShape(out...)
}

// InputSize returns the side length of the expected input image.
func (c *ONNXClassifier) InputSize() int {
	return c.inputSize
}

// OutputSize returns the number of classes the model scores.
func (c *ONNXClassifier) OutputSize() int {
	return c.outputSize
}

// Classify runs one forward pass. input must be NHWC; it is reordered for
// NCHW models.
func (c *ONNXClassifier) Classify(ctx context.Context, input []float32) ([]float32, error) {
	want := c.inputSize * c.inputSize * 3
	if len(input) != want {
		return nil, fmt.Errorf("%w: got %d, want %d", ErrInputSize, len(input), want)
	}
	if err := ctx.Err(); err != nil {
		return nil, err
	}

	c.mu.Lock()
	defer c.mu.Unlock()

	if c.closed {
		return nil, ErrModelUnavailable
	}

	dst := c.inputTensor.GetData()
	if c.layout == LayoutNCHW {
		NHWCToNCHW(input, dst, c.inputSize, c.inputSize)
	} else {
		copy(dst, input)
	}

	if err := c.session.Run(); err != nil {
		return nil, fmt.Errorf("inference failed: %w", err)
	}

	out := c.outputTensor.GetData()
	scores := make([]float32, len(out))
	copy(scores, out)
	return scores, nil
}

// Close destroys the session and tensors and releases the process-wide slot.
func (c *ONNXClassifier) Close() {
	c.mu.Lock()
	defer c.mu.Unlock()

	if c.closed {
		return
	}
	c.closed = true

	if c.inputTensor != nil {
		c.inputTensor.Destroy()
	}
	if c.outputTensor != nil {
		c.outputTensor.Destroy()
	}
	if c.session != nil {
		c.session.Destroy()
	}
	if err := ort.DestroyEnvironment(); err != nil {
		c.logger.Warn("Failed to destroy ONNX environment", "error", err)
	}
	onnxLoaded.Store(false)
}

// NHWCToNCHW reorders an interleaved h x w RGB image into planar channels.
func NHWCToNCHW(src, dst []float32, h, w int) {
	plane := h * w
	for i := 0; i < plane; i++ {
		dst[i] = src[i*3]
		dst[plane+i] = src[i*3+1]
		dst[2*plane+i] = src[i*3+2]
	}
}
