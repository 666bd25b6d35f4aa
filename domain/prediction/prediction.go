// Package prediction defines classification results and their history records.
package prediction

import (
	"fmt"
	"image"
	"sort"
	"time"
)

// ErrorClass is the class name reported when an image could not be classified.
const ErrorClass = "Erro"

// Result is the outcome of classifying one image.
type Result struct {
	// Class is the predicted label, or ErrorClass.
	Class string

	// Confidence is the score of the predicted class in [0, 1].
	Confidence float32

	// Index is the model output index of Class, -1 for the sentinel.
	Index int

	// Scores holds the raw model output vector. Nil for the sentinel.
	Scores []float32

	// Annotated is the original image with the result banner drawn on it.
	// Nil when annotation was not possible.
	Annotated image.Image

	// Err describes why the sentinel was returned. Nil on success.
	Err error
}

// Failed returns the sentinel result carrying the cause.
func Failed(err error) Result {
	return Result{
		Class:      ErrorClass,
		Confidence: 0,
		Index:      -1,
		Err:        err,
	}
}

// IsError reports whether r is the sentinel error result.
func (r Result) IsError() bool {
	return r.Class == ErrorClass && r.Index < 0
}

// Text formats the result as shown on tiles and banners, e.g. "cat (97.31%)".
func (r Result) Text() string {
	return FormatText(r.Class, r.Confidence)
}

// FormatText formats a class and confidence as "<class> (<pct>%)" with two decimals.
func FormatText(class string, confidence float32) string {
	return fmt.Sprintf("%s (%.2f%%)", class, float64(confidence)*100)
}

// Score pairs a label with its model output.
type Score struct {
	Index int
	Class string
	Value float32
}

// TopK returns the k highest scores in descending order.
// Classes are resolved with nameOf; ties keep the lower index first.
func (r Result) TopK(k int, nameOf func(int) string) []Score {
	if k <= 0 || len(r.Scores) == 0 {
		return nil
	}

	scores := make([]Score, len(r.Scores))
	for i, v := range r.Scores {
		scores[i] = Score{Index: i, Value: v}
	}
	sort.SliceStable(scores, func(i, j int) bool {
		return scores[i].Value > scores[j].Value
	})

	if k > len(scores) {
		k = len(scores)
	}
	scores = scores[:k]
	if nameOf != nil {
		for i := range scores {
			scores[i].Class = nameOf(scores[i].Index)
		}
	}
	return scores
}

// Record is a persisted prediction, one per image per batch.
type Record struct {
	// ID is the storage identifier, empty until inserted.
	ID string

	BatchID    string
	Path       string
	Class      string
	Confidence float32
	Error      string
	CreatedAt  time.Time
}

// NewRecord builds a history record from a result.
func NewRecord(batchID, path string, r Result, at time.Time) *Record {
	rec := &Record{
		BatchID:    batchID,
		Path:       path,
		Class:      r.Class,
		Confidence: r.Confidence,
		CreatedAt:  at,
	}
	if r.Err != nil {
		rec.Error = r.Err.Error()
	}
	return rec
}
