// Package command defines all commands that can be sent to the application.
// Commands represent user intentions and are processed by the application layer.
package command

// Command is the base interface for all commands.
// Commands are sent from the presentation layer to the application layer.
type Command interface {
	// CommandName returns the name of the command for logging/debugging
	CommandName() string
}

// SelectImages replaces the current selection with Paths.
// Non-image paths are filtered out; directories are expanded one level.
type SelectImages struct {
	Paths []string
}

func NewSelectImages(paths ...string) *SelectImages {
	return &SelectImages{Paths: paths}
}

func (c *SelectImages) CommandName() string {
	return "SelectImages"
}

// ClearImages removes the selection and all tiles, cancelling a running batch.
type ClearImages struct{}

func (c *ClearImages) CommandName() string {
	return "ClearImages"
}

// PredictAll classifies every selected image in order.
type PredictAll struct{}

func (c *PredictAll) CommandName() string {
	return "PredictAll"
}

// CancelBatch stops a running batch and keeps the results produced so far.
type CancelBatch struct{}

func (c *CancelBatch) CommandName() string {
	return "CancelBatch"
}
