// Package application provides the application layer for orchestrating the
// image selection and prediction batches.
package application

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"sync"
	"time"

	"github.com/google/uuid"

	"tilecls-go/application/batch"
	"tilecls-go/core/command"
	"tilecls-go/core/event"
	"tilecls-go/core/eventbus"
	"tilecls-go/core/state"
	"tilecls-go/domain/selection"
)

// Errors returned by Dispatch.
var (
	ErrNoImages     = errors.New("no images selected")
	ErrBatchRunning = errors.New("a prediction batch is already running")
)

// stopTimeout bounds how long Stop waits for a running batch.
const stopTimeout = 5 * time.Second

// Coordinator owns the selection and the window state and runs batches.
type Coordinator struct {
	mu          sync.Mutex
	selection   *selection.Set
	state       state.WindowState
	batchID     string
	batchCancel context.CancelFunc
	wg          sync.WaitGroup

	// Dependencies
	runner   *batch.Runner
	eventBus eventbus.EventBus
	modelErr error
	logger   *slog.Logger

	// Lifecycle
	ctx    context.Context
	cancel context.CancelFunc
}

// CoordinatorConfig holds configuration for the Coordinator.
type CoordinatorConfig struct {
	Runner   *batch.Runner
	EventBus eventbus.EventBus
	// ModelError is the load failure, nil when a model is available.
	ModelError error
	Logger     *slog.Logger
}

// NewCoordinator creates a new coordinator in the Empty state.
func NewCoordinator(cfg *CoordinatorConfig) *Coordinator {
	if cfg.Logger == nil {
		cfg.Logger = slog.Default()
	}

	ctx, cancel := context.WithCancel(context.Background())

	return &Coordinator{
		state:    state.StateEmpty,
		runner:   cfg.Runner,
		eventBus: cfg.EventBus,
		modelErr: cfg.ModelError,
		logger:   cfg.Logger,
		ctx:      ctx,
		cancel:   cancel,
	}
}

// Start begins the coordinator and reports a missing model once.
func (c *Coordinator) Start() {
	if c.modelErr != nil {
		c.logger.Error("Model unavailable, predictions will report errors", "error", c.modelErr)
		c.publish(event.NewModelUnavailable(c.modelErr))
	}
	c.logger.Info("Coordinator started")
}

// Stop cancels a running batch and waits for it to finish.
func (c *Coordinator) Stop() {
	c.cancel()

	done := make(chan struct{})
	go func() {
		c.wg.Wait()
		close(done)
	}()

	select {
	case <-done:
	case <-time.After(stopTimeout):
		c.logger.Warn("Coordinator stop timeout, batch may not have stopped cleanly")
	}

	c.logger.Info("Coordinator stopped")
}

// State returns the current window state.
func (c *Coordinator) State() state.WindowState {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.state
}

// Selection returns the selected paths in order.
func (c *Coordinator) Selection() []string {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.selection.Paths()
}

// ModelAvailable reports whether predictions can produce classes.
func (c *Coordinator) ModelAvailable() bool {
	return c.modelErr == nil
}

// Dispatch sends a command to the appropriate handler.
func (c *Coordinator) Dispatch(cmd command.Command) error {
	c.logger.Debug("Dispatching command", "command", cmd.CommandName())

	switch cmd := cmd.(type) {
	case *command.SelectImages:
		return c.handleSelectImages(cmd)
	case *command.ClearImages:
		return c.handleClearImages()
	case *command.PredictAll:
		return c.handlePredictAll()
	case *command.CancelBatch:
		return c.handleCancelBatch()
	default:
		return fmt.Errorf("unknown command type: %T", cmd)
	}
}

// Command handlers

func (c *Coordinator) handleSelectImages(cmd *command.SelectImages) error {
	c.mu.Lock()
	defer c.mu.Unlock()

	if !c.state.CanSelect() {
		return ErrBatchRunning
	}

	paths, err := selection.Expand(cmd.Paths)
	if err != nil {
		c.logger.Warn("Some selected paths could not be read", "error", err)
	}

	set := selection.NewSet(paths)
	if set.IsEmpty() {
		return ErrNoImages
	}

	c.selection = set
	c.publish(event.NewSelectionChanged(set.Paths()))
	c.logger.Info("Images selected", "count", set.Len())

	return c.transition(state.StateSelected)
}

func (c *Coordinator) handleClearImages() error {
	c.mu.Lock()
	defer c.mu.Unlock()

	if c.state == state.StateEmpty {
		return nil
	}

	if c.batchCancel != nil {
		c.batchCancel()
		c.logger.Info("Batch cancelled by clear", "batch_id", c.batchID)
	}
	c.batchID = ""
	c.batchCancel = nil
	c.selection = nil

	c.publish(&event.SelectionCleared{})
	return c.transition(state.StateEmpty)
}

func (c *Coordinator) handlePredictAll() error {
	c.mu.Lock()
	defer c.mu.Unlock()

	if c.state.IsBusy() {
		return ErrBatchRunning
	}
	if c.selection.IsEmpty() {
		return ErrNoImages
	}
	if c.runner == nil {
		return fmt.Errorf("no batch runner configured")
	}

	if err := c.transition(state.StatePredicting); err != nil {
		return err
	}

	id := uuid.NewString()
	ctx, cancel := context.WithCancel(c.ctx)
	c.batchID = id
	c.batchCancel = cancel

	paths := c.selection.Paths()
	c.wg.Add(1)
	go c.runBatch(ctx, id, paths)

	return nil
}

func (c *Coordinator) handleCancelBatch() error {
	c.mu.Lock()
	defer c.mu.Unlock()

	if c.batchCancel == nil {
		return nil
	}
	c.batchCancel()
	c.logger.Info("Batch cancel requested", "batch_id", c.batchID)
	return nil
}

func (c *Coordinator) runBatch(ctx context.Context, id string, paths []string) {
	defer c.wg.Done()

	summary := c.runner.Run(ctx, id, paths)
	c.finishBatch(id, summary)
}

// finishBatch moves to Predicted unless the batch was superseded by a clear.
func (c *Coordinator) finishBatch(id string, summary *batch.Summary) {
	c.mu.Lock()
	defer c.mu.Unlock()

	if c.batchID != id {
		c.logger.Debug("Ignoring completion of stale batch", "batch_id", id)
		return
	}

	c.batchCancel()
	c.batchID = ""
	c.batchCancel = nil

	if err := c.transition(state.StatePredicted); err != nil {
		c.logger.Error("Failed to finish batch", "batch_id", id, "error", err)
		return
	}

	c.logger.Info("Predictions complete",
		"batch_id", id,
		"processed", summary.Processed(),
		"failed", summary.Failed,
		"cancelled", summary.Cancelled)
}

// transition changes the state and publishes StateChanged. c.mu must be held.
func (c *Coordinator) transition(to state.WindowState) error {
	from := c.state
	if !from.CanTransitionTo(to) {
		return state.NewTransitionError(from, to, "")
	}
	c.state = to
	if from != to {
		c.publish(event.NewStateChanged(from, to))
	}
	return nil
}

func (c *Coordinator) publish(e event.Event) {
	if c.eventBus != nil {
		c.eventBus.Publish(e)
	}
}
