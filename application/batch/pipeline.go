// Package batch classifies image files one by one and reports each result.
package batch

import (
	"context"
	"fmt"
	"log/slog"

	"tilecls-go/domain/label"
	"tilecls-go/domain/prediction"
	"tilecls-go/infrastructure/imaging"
	"tilecls-go/infrastructure/logging"
	"tilecls-go/infrastructure/model"
)

// Processor turns an image path into a prediction.
type Processor interface {
	Process(ctx context.Context, path string) prediction.Result
}

// Pipeline decodes, preprocesses, classifies and annotates a single image.
type Pipeline struct {
	classifier model.Classifier
	labels     *label.Set
	logger     *slog.Logger
}

// PipelineConfig holds configuration for the Pipeline.
type PipelineConfig struct {
	// Classifier may be nil when the model failed to load; every image then
	// yields the sentinel result.
	Classifier model.Classifier
	Labels     *label.Set
	Logger     *slog.Logger
}

// NewPipeline creates a new prediction pipeline.
func NewPipeline(cfg *PipelineConfig) *Pipeline {
	if cfg.Logger == nil {
		cfg.Logger = slog.Default()
	}
	return &Pipeline{
		classifier: cfg.Classifier,
		labels:     cfg.Labels,
		logger:     cfg.Logger,
	}
}

// Available reports whether a model is loaded.
func (p *Pipeline) Available() bool {
	return p.classifier != nil
}

// Labels returns the class names.
func (p *Pipeline) Labels() *label.Set {
	return p.labels
}

// Process classifies the image at path. It never panics on bad input:
// any failure before a class is chosen returns prediction.Failed.
// If the original cannot be decoded again for annotation, the class and
// confidence are kept and Annotated is nil.
func (p *Pipeline) Process(ctx context.Context, path string) prediction.Result {
	if p.classifier == nil {
		return prediction.Failed(model.ErrModelUnavailable)
	}

	logger := logging.FromOr(ctx, p.logger)

	img, err := imaging.Decode(path)
	if err != nil {
		logger.Warn("Failed to decode image", "path", path, "error", err)
		return prediction.Failed(err)
	}

	input, err := imaging.Preprocess(img, p.classifier.InputSize())
	if err != nil {
		logger.Warn("Failed to preprocess image", "path", path, "error", err)
		return prediction.Failed(err)
	}

	scores, err := p.classifier.Classify(ctx, input)
	if err != nil {
		logger.Warn("Inference failed", "path", path, "error", err)
		return prediction.Failed(err)
	}

	idx, confidence := model.ArgMax(scores)
	class, ok := p.labels.At(idx)
	if !ok {
		err := fmt.Errorf("%w: index %d with %d labels", model.ErrLabelMismatch, idx, p.labels.Len())
		logger.Warn("Prediction has no label", "path", path, "error", err)
		return prediction.Failed(err)
	}

	result := prediction.Result{
		Class:      class,
		Confidence: confidence,
		Index:      idx,
		Scores:     scores,
	}

	original, err := imaging.Decode(path)
	if err != nil {
		logger.Warn("Failed to reload image for annotation", "path", path, "error", err)
		return result
	}
	result.Annotated = imaging.Annotate(original, result.Text())

	logger.Debug("Image classified", "path", path, "class", class, "confidence", confidence)
	return result
}

var _ Processor = (*Pipeline)(nil)
