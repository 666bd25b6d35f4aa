package event

import (
	"errors"
	"testing"

	"tilecls-go/core/state"
	"tilecls-go/domain/prediction"
)

func TestEvent_Names(t *testing.T) {
	tests := []struct {
		event    Event
		expected string
	}{
		{NewSelectionChanged([]string{"a.png"}), "SelectionChanged"},
		{&SelectionCleared{}, "SelectionCleared"},
		{NewStateChanged(state.StateEmpty, state.StateSelected), "StateChanged"},
		{NewModelUnavailable(errors.New("test")), "ModelUnavailable"},
		{NewBatchStarted("b1", 3), "BatchStarted"},
		{NewImagePredicted("b1", 0, "a.png", prediction.Result{}), "ImagePredicted"},
		{NewBatchFinished("b1", 3, 0, false), "BatchFinished"},
	}

	for _, tt := range tests {
		t.Run(tt.expected, func(t *testing.T) {
			if got := tt.event.EventName(); got != tt.expected {
				t.Errorf("EventName() = %v, want %v", got, tt.expected)
			}
		})
	}
}

func TestBatchEvent_BatchID(t *testing.T) {
	tests := []struct {
		name  string
		event BatchEvent
	}{
		{"BatchStarted", NewBatchStarted("b1", 1)},
		{"ImagePredicted", NewImagePredicted("b1", 0, "x.png", prediction.Failed(errors.New("x")))},
		{"BatchFinished", NewBatchFinished("b1", 1, 1, true)},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := tt.event.BatchID(); got != "b1" {
				t.Errorf("BatchID() = %v, want b1", got)
			}
		})
	}
}

func TestGlobalEvents_AreNotBatchEvents(t *testing.T) {
	events := []Event{
		NewSelectionChanged(nil),
		&SelectionCleared{},
		NewStateChanged(state.StateSelected, state.StatePredicting),
		NewModelUnavailable(nil),
	}

	for _, e := range events {
		if _, ok := e.(BatchEvent); ok {
			t.Errorf("%s should not be a BatchEvent", e.EventName())
		}
	}
}

func TestEventFields(t *testing.T) {
	r := prediction.Result{Class: "cat", Confidence: 0.9, Index: 1}
	ip := NewImagePredicted("b", 2, "/img/cat.png", r)
	if ip.Index != 2 || ip.Path != "/img/cat.png" || ip.Result.Class != "cat" {
		t.Errorf("ImagePredicted = %+v", ip)
	}

	bf := NewBatchFinished("b", 4, 1, true)
	if bf.Processed != 4 || bf.Failed != 1 || !bf.Cancelled {
		t.Errorf("BatchFinished = %+v", bf)
	}

	sc := NewStateChanged(state.StatePredicting, state.StatePredicted)
	if sc.OldState != state.StatePredicting || sc.NewState != state.StatePredicted {
		t.Errorf("StateChanged = %+v", sc)
	}
}
