package event

import "tilecls-go/domain/prediction"

// BatchStarted is published before the first image of a batch is processed.
type BatchStarted struct {
	baseBatchEvent
	Total int
}

func NewBatchStarted(batchID string, total int) *BatchStarted {
	return &BatchStarted{
		baseBatchEvent: baseBatchEvent{batchID: batchID},
		Total:          total,
	}
}

func (e *BatchStarted) EventName() string {
	return "BatchStarted"
}

// ImagePredicted is published once per image, in selection order.
type ImagePredicted struct {
	baseBatchEvent
	Index  int
	Path   string
	Result prediction.Result
}

func NewImagePredicted(batchID string, index int, path string, result prediction.Result) *ImagePredicted {
	return &ImagePredicted{
		baseBatchEvent: baseBatchEvent{batchID: batchID},
		Index:          index,
		Path:           path,
		Result:         result,
	}
}

func (e *ImagePredicted) EventName() string {
	return "ImagePredicted"
}

// BatchFinished is published when a batch completes or is cancelled.
type BatchFinished struct {
	baseBatchEvent
	Processed int
	Failed    int
	Cancelled bool
}

func NewBatchFinished(batchID string, processed, failed int, cancelled bool) *BatchFinished {
	return &BatchFinished{
		baseBatchEvent: baseBatchEvent{batchID: batchID},
		Processed:      processed,
		Failed:         failed,
		Cancelled:      cancelled,
	}
}

func (e *BatchFinished) EventName() string {
	return "BatchFinished"
}
