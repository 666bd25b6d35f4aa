// Package presentation provides the UI layer with event bridging to the application layer.
package presentation

import (
	"log/slog"
	"sync"

	"tilecls-go/application"
	"tilecls-go/core/command"
	"tilecls-go/core/event"
	"tilecls-go/core/eventbus"
	"tilecls-go/core/state"
	"tilecls-go/domain/prediction"
)

// UIEventBridge bridges UI events to the application layer and routes events back to UI.
// It provides a clean separation between UI and business logic.
type UIEventBridge struct {
	coordinator *application.Coordinator
	eventBus    eventbus.EventBus
	logger      *slog.Logger

	// UI callbacks - set by UI components
	callbacks   *UICallbacks
	callbacksMu sync.RWMutex

	// Subscription management
	subscriptionID string
}

// UICallbacks contains callbacks for UI updates.
// They are invoked on the event bus goroutine; UI mutations must go through fyne.Do.
type UICallbacks struct {
	// Selection
	OnSelectionChanged func(paths []string)
	OnSelectionCleared func()
	OnStateChanged     func(oldState, newState state.WindowState)
	OnModelUnavailable func(err error)

	// Batch progress
	OnBatchStarted   func(batchID string, total int)
	OnImagePredicted func(batchID string, index int, path string, result prediction.Result)
	OnBatchFinished  func(batchID string, processed, failed int, cancelled bool)
}

// BridgeConfig holds configuration for UIEventBridge.
type BridgeConfig struct {
	Coordinator *application.Coordinator
	EventBus    eventbus.EventBus
	Logger      *slog.Logger
}

// NewUIEventBridge creates a new UI event bridge.
func NewUIEventBridge(cfg *BridgeConfig) *UIEventBridge {
	if cfg.Logger == nil {
		cfg.Logger = slog.Default()
	}

	b := &UIEventBridge{
		coordinator: cfg.Coordinator,
		eventBus:    cfg.EventBus,
		logger:      cfg.Logger,
		callbacks:   &UICallbacks{},
	}

	if b.eventBus != nil {
		b.subscriptionID = b.eventBus.Subscribe(b.handleEvent)
	}

	return b
}

// SetCallbacks sets the UI callbacks.
func (b *UIEventBridge) SetCallbacks(callbacks *UICallbacks) {
	b.callbacksMu.Lock()
	defer b.callbacksMu.Unlock()
	b.callbacks = callbacks
}

// Close unsubscribes from the event bus.
func (b *UIEventBridge) Close() {
	if b.eventBus != nil && b.subscriptionID != "" {
		b.eventBus.Unsubscribe(b.subscriptionID)
	}
}

// Command dispatching methods

// SelectImages replaces the selection with the given files or folders.
func (b *UIEventBridge) SelectImages(paths ...string) error {
	return b.coordinator.Dispatch(command.NewSelectImages(paths...))
}

// ClearImages removes all tiles, cancelling a running batch.
func (b *UIEventBridge) ClearImages() error {
	return b.coordinator.Dispatch(&command.ClearImages{})
}

// PredictAll starts classifying the selected images.
func (b *UIEventBridge) PredictAll() error {
	return b.coordinator.Dispatch(&command.PredictAll{})
}

// CancelBatch stops the running batch, keeping finished results.
func (b *UIEventBridge) CancelBatch() error {
	return b.coordinator.Dispatch(&command.CancelBatch{})
}

// Query methods

// State returns the current window state.
func (b *UIEventBridge) State() state.WindowState {
	return b.coordinator.State()
}

// Selection returns the selected paths.
func (b *UIEventBridge) Selection() []string {
	return b.coordinator.Selection()
}

// ModelAvailable reports whether a model is loaded.
func (b *UIEventBridge) ModelAvailable() bool {
	return b.coordinator.ModelAvailable()
}

// Event handling

func (b *UIEventBridge) handleEvent(e event.Event) {
	b.callbacksMu.RLock()
	callbacks := b.callbacks
	b.callbacksMu.RUnlock()

	if callbacks == nil {
		return
	}

	switch evt := e.(type) {
	case *event.SelectionChanged:
		if callbacks.OnSelectionChanged != nil {
			callbacks.OnSelectionChanged(evt.Paths)
		}

	case *event.SelectionCleared:
		if callbacks.OnSelectionCleared != nil {
			callbacks.OnSelectionCleared()
		}

	case *event.StateChanged:
		if callbacks.OnStateChanged != nil {
			callbacks.OnStateChanged(evt.OldState, evt.NewState)
		}

	case *event.ModelUnavailable:
		if callbacks.OnModelUnavailable != nil {
			callbacks.OnModelUnavailable(evt.Error)
		}

	case *event.BatchStarted:
		if callbacks.OnBatchStarted != nil {
			callbacks.OnBatchStarted(evt.BatchID(), evt.Total)
		}

	case *event.ImagePredicted:
		if callbacks.OnImagePredicted != nil {
			callbacks.OnImagePredicted(evt.BatchID(), evt.Index, evt.Path, evt.Result)
		}

	case *event.BatchFinished:
		if callbacks.OnBatchFinished != nil {
			callbacks.OnBatchFinished(evt.BatchID(), evt.Processed, evt.Failed, evt.Cancelled)
		}
	}
}
