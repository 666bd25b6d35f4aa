package batch

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"tilecls-go/core/event"
	"tilecls-go/core/eventbus"
	"tilecls-go/domain/prediction"
	"tilecls-go/infrastructure/logging"
)

// historyTimeout bounds a single history write.
const historyTimeout = 5 * time.Second

// Summary describes a finished batch.
type Summary struct {
	BatchID   string
	Paths     []string
	Results   []prediction.Result
	Failed    int
	Cancelled bool
}

// Processed returns the number of images that produced a result.
func (s *Summary) Processed() int {
	return len(s.Results)
}

// Runner processes a list of images sequentially.
type Runner struct {
	processor Processor
	eventBus  eventbus.EventBus
	history   *prediction.HistoryService
	logger    *slog.Logger
}

// RunnerConfig holds configuration for the Runner.
type RunnerConfig struct {
	Processor Processor
	// EventBus is optional; without it no events are published.
	EventBus eventbus.EventBus
	// History is optional; without it results are not recorded.
	History *prediction.HistoryService
	Logger  *slog.Logger
}

// NewRunner creates a new batch runner.
func NewRunner(cfg *RunnerConfig) *Runner {
	if cfg.Logger == nil {
		cfg.Logger = slog.Default()
	}
	return &Runner{
		processor: cfg.Processor,
		eventBus:  cfg.EventBus,
		history:   cfg.History,
		logger:    cfg.Logger,
	}
}

// Run processes paths in order and blocks until all are done or ctx is
// cancelled. An image whose processing was interrupted by cancellation is
// not reported.
func (r *Runner) Run(ctx context.Context, batchID string, paths []string) *Summary {
	summary := &Summary{
		BatchID: batchID,
		Paths:   paths,
		Results: make([]prediction.Result, 0, len(paths)),
	}
	ctx = logging.WithAttrs(logging.With(ctx, r.logger), "batch_id", batchID)
	logger := logging.From(ctx)

	r.publish(event.NewBatchStarted(batchID, len(paths)))
	logger.Info("Batch started", "images", len(paths))
	start := time.Now()

	for i, path := range paths {
		if ctx.Err() != nil {
			summary.Cancelled = true
			break
		}

		result := r.processOne(ctx, path)
		if ctx.Err() != nil && errors.Is(result.Err, ctx.Err()) {
			summary.Cancelled = true
			break
		}

		summary.Results = append(summary.Results, result)
		if result.IsError() {
			summary.Failed++
		}

		r.publish(event.NewImagePredicted(batchID, i, path, result))
		r.record(ctx, batchID, path, result)
	}

	r.publish(event.NewBatchFinished(batchID, summary.Processed(), summary.Failed, summary.Cancelled))
	logger.Info("Batch finished",
		"processed", summary.Processed(),
		"failed", summary.Failed,
		"cancelled", summary.Cancelled,
		"elapsed", time.Since(start))

	return summary
}

// processOne runs the processor and turns a panic into the sentinel result.
func (r *Runner) processOne(ctx context.Context, path string) (result prediction.Result) {
	defer func() {
		if rec := recover(); rec != nil {
			logging.FromOr(ctx, r.logger).Error("Image processing panicked", "path", path, "error", rec)
			result = prediction.Failed(fmt.Errorf("panic: %v", rec))
		}
	}()
	return r.processor.Process(ctx, path)
}

func (r *Runner) record(ctx context.Context, batchID, path string, result prediction.Result) {
	if r.history == nil {
		return
	}

	ctx, cancel := context.WithTimeout(context.WithoutCancel(ctx), historyTimeout)
	defer cancel()

	if _, err := r.history.Record(ctx, batchID, path, result); err != nil {
		logging.FromOr(ctx, r.logger).Warn("Failed to record prediction", "path", path, "error", err)
	}
}

func (r *Runner) publish(e event.Event) {
	if r.eventBus != nil {
		r.eventBus.Publish(e)
	}
}
