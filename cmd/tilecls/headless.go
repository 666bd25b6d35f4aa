package main

import (
	"context"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strings"

	"github.com/google/uuid"

	"tilecls-go/application/batch"
	"tilecls-go/core/event"
	"tilecls-go/core/eventbus"
	"tilecls-go/domain/label"
	"tilecls-go/domain/prediction"
	"tilecls-go/domain/selection"
	"tilecls-go/infrastructure/imaging"
)

// headlessRun holds what runHeadless writes to and runs with.
type headlessRun struct {
	Out    io.Writer
	Runner *batch.Runner
	Labels *label.Set
	// Progress receives one line per finished image. Optional.
	Progress io.Writer
	// EventBus must be the runner's bus when Progress is set. It is closed
	// once the batch finishes so every progress line precedes the summary.
	EventBus eventbus.EventBus
}

// runHeadless classifies opts.paths and prints one line per image.
func runHeadless(ctx context.Context, h *headlessRun, opts *options) int {
	paths, err := selection.Expand(opts.paths)
	if err != nil {
		fmt.Fprintln(h.Out, "warning:", err)
	}
	set := selection.NewSet(paths)
	if set.IsEmpty() {
		fmt.Fprintln(h.Out, "no images to classify")
		return 1
	}

	batchID := uuid.NewString()
	if h.Progress != nil && h.EventBus != nil {
		total := set.Len()
		h.EventBus.SubscribeBatch(batchID, func(e event.Event) {
			if ev, ok := e.(*event.ImagePredicted); ok {
				fmt.Fprintf(h.Progress, "[%d/%d] %s\n", ev.Index+1, total, ev.Path)
			}
		})
	}

	summary := h.Runner.Run(ctx, batchID, set.Paths())
	if h.EventBus != nil {
		h.EventBus.Close()
	}
	writeSummary(h.Out, summary, h.Labels, opts.topK)

	code := 0
	if opts.outDir != "" {
		if err := saveAnnotated(opts.outDir, summary); err != nil {
			fmt.Fprintln(h.Out, "warning:", err)
			code = 1
		}
	}

	switch {
	case summary.Cancelled:
		return 130
	case summary.Failed > 0:
		return 1
	}
	return code
}

// saveAnnotated writes each annotated result into dir under the source base
// name. Images with the same base name overwrite each other.
func saveAnnotated(dir string, summary *batch.Summary) error {
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return fmt.Errorf("failed to create output directory: %w", err)
	}
	for i, result := range summary.Results {
		if result.Annotated == nil {
			continue
		}
		if err := imaging.Save(result.Annotated, filepath.Join(dir, filepath.Base(summary.Paths[i]))); err != nil {
			return err
		}
	}
	return nil
}

// writeSummary prints "path<TAB>class (xx.xx%)" per result, followed by
// indented top-k scores when k > 0.
func writeSummary(out io.Writer, summary *batch.Summary, labels *label.Set, k int) {
	nameOf := func(i int) string {
		if name, ok := labels.At(i); ok {
			return name
		}
		return fmt.Sprintf("#%d", i)
	}

	for i, result := range summary.Results {
		fmt.Fprintf(out, "%s\t%s\n", summary.Paths[i], result.Text())
		if result.IsError() {
			if result.Err != nil {
				fmt.Fprintf(out, "\terror: %v\n", result.Err)
			}
			continue
		}
		for _, s := range result.TopK(k, nameOf) {
			fmt.Fprintf(out, "\t%s\n", prediction.FormatText(s.Class, s.Value))
		}
	}

	var b strings.Builder
	fmt.Fprintf(&b, "batch %s: %d of %d images", summary.BatchID, summary.Processed(), len(summary.Paths))
	if summary.Failed > 0 {
		fmt.Fprintf(&b, ", %d failed", summary.Failed)
	}
	if summary.Cancelled {
		b.WriteString(" (cancelled)")
	}
	fmt.Fprintln(out, b.String())
}

// printHistory lists the records of batchID, or the newest records when
// batchID is empty, one per line.
func printHistory(ctx context.Context, out io.Writer, history *prediction.HistoryService, batchID string, limit int) int {
	var (
		records []*prediction.Record
		err     error
	)
	if batchID != "" {
		records, err = history.Batch(ctx, batchID)
	} else {
		records, err = history.Recent(ctx, limit)
	}
	if err != nil {
		fmt.Fprintln(out, "failed to read history:", err)
		return 1
	}
	for _, r := range records {
		fmt.Fprintf(out, "%s\t%s\t%s\t%s\n",
			r.CreatedAt.Format("2006-01-02 15:04:05"), r.BatchID, r.Path,
			prediction.FormatText(r.Class, r.Confidence))
	}
	return 0
}
