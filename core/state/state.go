// Package state defines the main window state machine.
package state

import "fmt"

// WindowState represents what the main window is currently showing.
type WindowState int

const (
	// StateEmpty is the initial state: no images are selected.
	StateEmpty WindowState = iota
	// StateSelected indicates images are selected and tiles show the originals.
	StateSelected
	// StatePredicting indicates a batch is running over the selected images.
	StatePredicting
	// StatePredicted indicates the last batch finished (or was cancelled) and results are shown.
	StatePredicted
)

// String returns the string representation of the state.
func (s WindowState) String() string {
	switch s {
	case StateEmpty:
		return "Empty"
	case StateSelected:
		return "Selected"
	case StatePredicting:
		return "Predicting"
	case StatePredicted:
		return "Predicted"
	default:
		return fmt.Sprintf("Unknown(%d)", s)
	}
}

// validTransitions defines the allowed state transitions.
// Key is the current state, value is a list of valid target states.
var validTransitions = map[WindowState][]WindowState{
	StateEmpty:      {StateSelected},
	StateSelected:   {StateSelected, StatePredicting, StateEmpty},
	StatePredicting: {StatePredicted, StateEmpty},
	StatePredicted:  {StateSelected, StatePredicting, StateEmpty},
}

// CanTransitionTo checks if transitioning from the current state to the target state is valid.
func (s WindowState) CanTransitionTo(target WindowState) bool {
	allowed, ok := validTransitions[s]
	if !ok {
		return false
	}
	for _, t := range allowed {
		if t == target {
			return true
		}
	}
	return false
}

// IsBusy returns true while a batch is running.
func (s WindowState) IsBusy() bool {
	return s == StatePredicting
}

// CanSelect returns true if a new selection may replace the current one.
func (s WindowState) CanSelect() bool {
	return s != StatePredicting
}

// CanPredict returns true if a batch can be started in this state.
func (s WindowState) CanPredict() bool {
	return s == StateSelected || s == StatePredicted
}

// CanClear returns true if the grid can be cleared.
// Clearing while predicting cancels the running batch.
func (s WindowState) CanClear() bool {
	return s != StateEmpty
}

// CanCancel returns true if a running batch can be stopped, keeping its results.
func (s WindowState) CanCancel() bool {
	return s == StatePredicting
}

// TransitionError represents an invalid state transition attempt.
type TransitionError struct {
	From   WindowState
	To     WindowState
	Reason string
}

func (e *TransitionError) Error() string {
	if e.Reason != "" {
		return fmt.Sprintf("invalid state transition from %s to %s: %s", e.From, e.To, e.Reason)
	}
	return fmt.Sprintf("invalid state transition from %s to %s", e.From, e.To)
}

// NewTransitionError creates a new TransitionError.
func NewTransitionError(from, to WindowState, reason string) *TransitionError {
	return &TransitionError{From: from, To: to, Reason: reason}
}
