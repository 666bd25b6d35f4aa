package model

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"sync"
	"sync/atomic"
	"time"

	ort "github.com/yalue/onnxruntime_go"
)

// ErrServiceUnavailable is returned while the inference endpoint fails its health check.
var ErrServiceUnavailable = errors.New("inference service is currently unavailable")

// Metadata describes a remote model, as served by GET /metadata.
type Metadata struct {
	InputShape  []int64  `json:"input_shape"`
	OutputShape []int64  `json:"output_shape"`
	Classes     []string `json:"classes"`
	ImageSize   int      `json:"image_size"`
}

type predictRequest struct {
	Image []float32 `json:"image"`
}

// predictResponse accepts either a raw score vector or a class-keyed map.
type predictResponse struct {
	Scores      []float32          `json:"scores"`
	Class       string             `json:"class"`
	Confidence  float32            `json:"confidence"`
	Predictions map[string]float32 `json:"predictions"`
}

// HTTPClassifier implements Classifier by calling a remote inference service.
type HTTPClassifier struct {
	config     *Config
	httpClient *http.Client
	logger     *slog.Logger

	metadata   *Metadata
	inputSize  int
	outputSize int
	layout     Layout

	healthy      atomic.Bool
	healthCtx    context.Context
	healthCancel context.CancelFunc
	healthWg     sync.WaitGroup
	closeOnce    sync.Once
}

// NewHTTPClassifier creates a remote classifier and starts its health check loop.
// Metadata is optional; without it the input size comes from cfg and the
// output size is unknown.
func NewHTTPClassifier(ctx context.Context, cfg *Config) (*HTTPClassifier, error) {
	if cfg.BaseURL == "" {
		return nil, fmt.Errorf("inference endpoint URL is empty")
	}
	if cfg.Logger == nil {
		cfg.Logger = slog.Default()
	}
	if cfg.HealthInterval <= 0 {
		cfg.HealthInterval = DefaultConfig().HealthInterval
	}
	if cfg.HealthTimeout <= 0 {
		cfg.HealthTimeout = DefaultConfig().HealthTimeout
	}

	healthCtx, cancel := context.WithCancel(context.Background())

	c := &HTTPClassifier{
		config: cfg,
		httpClient: &http.Client{
			Timeout: cfg.Timeout,
		},
		logger:       cfg.Logger,
		inputSize:    cfg.InputSize,
		layout:       LayoutNHWC,
		healthCtx:    healthCtx,
		healthCancel: cancel,
	}

	meta, err := c.fetchMetadata(ctx)
	if err != nil {
		c.logger.Warn("Inference metadata unavailable, using configured input size",
			"url", cfg.BaseURL, "error", err)
	} else if err := c.applyMetadata(meta); err != nil {
		cancel()
		return nil, err
	}

	// Perform initial health check
	c.performHealthCheck()

	// Start background health check loop
	c.healthWg.Add(1)
	go c.healthCheckLoop()

	return c, nil
}

func (c *HTTPClassifier) applyMetadata(meta *Metadata) error {
	if len(meta.InputShape) == 4 {
		_, layout, size, err := resolveInputShape(ort.Shape(meta.InputShape), c.config.InputSize)
		if err != nil {
			return fmt.Errorf("inference metadata: %w", err)
		}
		c.layout, c.inputSize = layout, size
	} else if meta.ImageSize > 0 {
		c.inputSize = meta.ImageSize
	}

	switch {
	case len(meta.OutputShape) > 0:
		c.outputSize = int(resolveOutputShape(ort.Shape(meta.OutputShape)).FlattenedSize())
	case len(meta.Classes) > 0:
		c.outputSize = len(meta.Classes)
	}
	c.metadata = meta
	return nil
}

func (c *HTTPClassifier) fetchMetadata(ctx context.Context) (*Metadata, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, c.config.BaseURL+"/metadata", nil)
	if err != nil {
		return nil, fmt.Errorf("failed to create request: %w", err)
	}

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return nil, fmt.Errorf("failed to execute request: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return nil, fmt.Errorf("unexpected status %d", resp.StatusCode)
	}

	var meta Metadata
	if err := json.NewDecoder(resp.Body).Decode(&meta); err != nil {
		return nil, fmt.Errorf("failed to parse metadata: %w", err)
	}
	return &meta, nil
}

// InputSize returns the side length of the expected input image.
func (c *HTTPClassifier) InputSize() int {
	return c.inputSize
}

// OutputSize returns the number of classes, or 0 if the service did not say.
func (c *HTTPClassifier) OutputSize() int {
	return c.outputSize
}

// Classify posts the input to POST /predict and returns the score vector.
func (c *HTTPClassifier) Classify(ctx context.Context, input []float32) ([]float32, error) {
	want := c.inputSize * c.inputSize * 3
	if len(input) != want {
		return nil, fmt.Errorf("%w: got %d, want %d", ErrInputSize, len(input), want)
	}
	if !c.IsHealthy() {
		return nil, ErrServiceUnavailable
	}

	payload := input
	if c.layout == LayoutNCHW {
		payload = make([]float32, len(input))
		NHWCToNCHW(input, payload, c.inputSize, c.inputSize)
	}

	body, err := json.Marshal(predictRequest{Image: payload})
	if err != nil {
		return nil, fmt.Errorf("failed to encode request: %w", err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.config.BaseURL+"/predict", bytes.NewReader(body))
	if err != nil {
		return nil, fmt.Errorf("failed to create request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return nil, fmt.Errorf("failed to execute request: %w", err)
	}
	defer resp.Body.Close()

	respBody, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, fmt.Errorf("failed to read response: %w", err)
	}

	if resp.StatusCode != http.StatusOK {
		return nil, fmt.Errorf("unexpected status %d: %s", resp.StatusCode, string(respBody))
	}

	var apiResp predictResponse
	if err := json.Unmarshal(respBody, &apiResp); err != nil {
		return nil, fmt.Errorf("failed to parse response: %w", err)
	}

	return c.scoresFrom(&apiResp)
}

// scoresFrom extracts an ordered score vector from a response.
// A class-keyed map is ordered by the metadata class list.
func (c *HTTPClassifier) scoresFrom(resp *predictResponse) ([]float32, error) {
	if len(resp.Scores) > 0 {
		return resp.Scores, nil
	}
	if len(resp.Predictions) == 0 {
		return nil, fmt.Errorf("response has no scores")
	}
	if c.metadata == nil || len(c.metadata.Classes) == 0 {
		return nil, fmt.Errorf("response is keyed by class but the class order is unknown")
	}

	scores := make([]float32, len(c.metadata.Classes))
	for i, name := range c.metadata.Classes {
		scores[i] = resp.Predictions[name]
	}
	return scores, nil
}

// IsHealthy returns true if the inference service is available.
func (c *HTTPClassifier) IsHealthy() bool {
	return c.healthy.Load()
}

// Close stops the health check loop.
func (c *HTTPClassifier) Close() {
	c.closeOnce.Do(func() {
		if c.healthCancel != nil {
			c.healthCancel()
		}
		c.healthWg.Wait()
	})
}

func (c *HTTPClassifier) healthCheckLoop() {
	defer c.healthWg.Done()

	ticker := time.NewTicker(c.config.HealthInterval)
	defer ticker.Stop()

	for {
		select {
		case <-c.healthCtx.Done():
			return
		case <-ticker.C:
			c.performHealthCheck()
		}
	}
}

func (c *HTTPClassifier) performHealthCheck() {
	ctx, cancel := context.WithTimeout(c.healthCtx, c.config.HealthTimeout)
	defer cancel()

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, c.config.BaseURL+"/health", nil)
	if err != nil {
		c.setHealthy(false)
		return
	}

	resp, err := c.httpClient.Do(req)
	if err != nil {
		c.setHealthy(false)
		return
	}
	defer resp.Body.Close()

	c.setHealthy(resp.StatusCode == http.StatusOK)
}

func (c *HTTPClassifier) setHealthy(ok bool) {
	if c.healthy.Swap(ok) != ok {
		c.logger.Info("Inference service health changed", "url", c.config.BaseURL, "healthy", ok)
	}
}

var _ Classifier = (*HTTPClassifier)(nil)
var _ Classifier = (*ONNXClassifier)(nil)
