// Package event defines all events that can be published by the application.
// Events represent state changes and are consumed by the presentation layer.
package event

import "tilecls-go/core/state"

// Event is the base interface for all events.
// Events are published by the application layer and consumed by subscribers.
type Event interface {
	// EventName returns the name of the event for logging/debugging
	EventName() string
}

// BatchEvent is an event that originates from a specific prediction batch.
type BatchEvent interface {
	Event
	// BatchID returns the source batch ID
	BatchID() string
}

// baseBatchEvent provides common implementation for batch events.
type baseBatchEvent struct {
	batchID string
}

func (e *baseBatchEvent) BatchID() string {
	return e.batchID
}

// SelectionChanged is published when the selected image set is replaced.
type SelectionChanged struct {
	Paths []string
}

func NewSelectionChanged(paths []string) *SelectionChanged {
	return &SelectionChanged{Paths: paths}
}

func (e *SelectionChanged) EventName() string {
	return "SelectionChanged"
}

// SelectionCleared is published when the selection and all tiles are removed.
type SelectionCleared struct{}

func (e *SelectionCleared) EventName() string {
	return "SelectionCleared"
}

// StateChanged is published when the window state changes.
type StateChanged struct {
	OldState state.WindowState
	NewState state.WindowState
}

func NewStateChanged(oldState, newState state.WindowState) *StateChanged {
	return &StateChanged{
		OldState: oldState,
		NewState: newState,
	}
}

func (e *StateChanged) EventName() string {
	return "StateChanged"
}

// ModelUnavailable is published when prediction is requested without a model,
// and once at startup if loading failed.
type ModelUnavailable struct {
	Error error
}

func NewModelUnavailable(err error) *ModelUnavailable {
	return &ModelUnavailable{Error: err}
}

func (e *ModelUnavailable) EventName() string {
	return "ModelUnavailable"
}
