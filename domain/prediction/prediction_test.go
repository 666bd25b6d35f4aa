package prediction

import (
	"context"
	"errors"
	"fmt"
	"testing"
	"time"
)

func TestFailed(t *testing.T) {
	cause := errors.New("decode failed")
	r := Failed(cause)

	if r.Class != ErrorClass {
		t.Errorf("Class = %q, want %q", r.Class, ErrorClass)
	}
	if r.Confidence != 0 {
		t.Errorf("Confidence = %v, want 0", r.Confidence)
	}
	if r.Annotated != nil {
		t.Error("Annotated should be nil for the sentinel")
	}
	if !r.IsError() {
		t.Error("IsError() = false, want true")
	}
	if !errors.Is(r.Err, cause) {
		t.Errorf("Err = %v, want %v", r.Err, cause)
	}
}

func TestResult_IsError(t *testing.T) {
	// A model may legitimately have a class literally named "Erro".
	r := Result{Class: ErrorClass, Confidence: 0.9, Index: 3}
	if r.IsError() {
		t.Error("a real class named Erro should not be the sentinel")
	}
}

func TestFormatText(t *testing.T) {
	tests := []struct {
		class      string
		confidence float32
		expected   string
	}{
		{"cat", 0.97314, "cat (97.31%)"},
		{"dog", 1, "dog (100.00%)"},
		{ErrorClass, 0, "Erro (0.00%)"},
		{"tiny", 0.00004, "tiny (0.00%)"},
	}

	for _, tt := range tests {
		t.Run(tt.expected, func(t *testing.T) {
			if got := FormatText(tt.class, tt.confidence); got != tt.expected {
				t.Errorf("FormatText() = %q, want %q", got, tt.expected)
			}
		})
	}

	r := Result{Class: "bird", Confidence: 0.5, Index: 0}
	if r.Text() != "bird (50.00%)" {
		t.Errorf("Text() = %q", r.Text())
	}
}

func TestResult_TopK(t *testing.T) {
	r := Result{Scores: []float32{0.1, 0.5, 0.3, 0.5, 0.05}}
	names := []string{"a", "b", "c", "d", "e"}
	nameOf := func(i int) string { return names[i] }

	top := r.TopK(3, nameOf)
	if len(top) != 3 {
		t.Fatalf("len = %d, want 3", len(top))
	}

	want := []Score{
		{Index: 1, Class: "b", Value: 0.5},
		{Index: 3, Class: "d", Value: 0.5},
		{Index: 2, Class: "c", Value: 0.3},
	}
	for i := range want {
		if top[i] != want[i] {
			t.Errorf("top[%d] = %+v, want %+v", i, top[i], want[i])
		}
	}

	if got := r.TopK(10, nil); len(got) != 5 {
		t.Errorf("TopK(10) len = %d, want 5", len(got))
	}
	if got := r.TopK(0, nameOf); got != nil {
		t.Errorf("TopK(0) = %v, want nil", got)
	}
	if got := Failed(nil).TopK(3, nameOf); got != nil {
		t.Errorf("sentinel TopK = %v, want nil", got)
	}
}

func TestNewRecord(t *testing.T) {
	at := time.Date(2025, 3, 1, 12, 0, 0, 0, time.UTC)

	rec := NewRecord("b1", "/img/a.png", Result{Class: "cat", Confidence: 0.8, Index: 0}, at)
	if rec.BatchID != "b1" || rec.Path != "/img/a.png" || rec.Class != "cat" {
		t.Errorf("unexpected record: %+v", rec)
	}
	if rec.Error != "" {
		t.Errorf("Error = %q, want empty", rec.Error)
	}
	if !rec.CreatedAt.Equal(at) {
		t.Errorf("CreatedAt = %v, want %v", rec.CreatedAt, at)
	}

	rec = NewRecord("b1", "/img/b.png", Failed(errors.New("boom")), at)
	if rec.Class != ErrorClass || rec.Error != "boom" {
		t.Errorf("unexpected sentinel record: %+v", rec)
	}
}

// mockRepository is an in-test Repository.
type mockRepository struct {
	records   []*Record
	insertErr error
	lastLimit int
}

func (m *mockRepository) Insert(ctx context.Context, rec *Record) error {
	if m.insertErr != nil {
		return m.insertErr
	}
	rec.ID = fmt.Sprintf("r%d", len(m.records)+1)
	m.records = append(m.records, rec)
	return nil
}

func (m *mockRepository) FindByBatch(ctx context.Context, batchID string) ([]*Record, error) {
	var out []*Record
	for _, r := range m.records {
		if r.BatchID == batchID {
			out = append(out, r)
		}
	}
	return out, nil
}

func (m *mockRepository) FindRecent(ctx context.Context, limit int) ([]*Record, error) {
	m.lastLimit = limit
	return m.records, nil
}

func (m *mockRepository) DeleteBatch(ctx context.Context, batchID string) (int64, error) {
	var kept []*Record
	var n int64
	for _, r := range m.records {
		if r.BatchID == batchID {
			n++
			continue
		}
		kept = append(kept, r)
	}
	m.records = kept
	return n, nil
}

func TestHistoryService(t *testing.T) {
	ctx := context.Background()
	repo := &mockRepository{}
	svc := NewHistoryService(repo)
	fixed := time.Date(2025, 1, 2, 3, 4, 5, 0, time.UTC)
	svc.now = func() time.Time { return fixed }

	rec, err := svc.Record(ctx, "batch-1", "a.png", Result{Class: "cat", Confidence: 0.7})
	if err != nil {
		t.Fatalf("Record() error: %v", err)
	}
	if rec.ID == "" {
		t.Error("Record() should assign an ID")
	}
	if !rec.CreatedAt.Equal(fixed) {
		t.Errorf("CreatedAt = %v, want %v", rec.CreatedAt, fixed)
	}

	if _, err := svc.Record(ctx, "batch-2", "b.png", Failed(nil)); err != nil {
		t.Fatalf("Record() error: %v", err)
	}

	batch, err := svc.Batch(ctx, "batch-1")
	if err != nil {
		t.Fatalf("Batch() error: %v", err)
	}
	if len(batch) != 1 || batch[0].Path != "a.png" {
		t.Errorf("Batch() = %+v", batch)
	}

	if _, err := svc.Batch(ctx, ""); !errors.Is(err, ErrEmptyBatchID) {
		t.Errorf("Batch(\"\") error = %v, want ErrEmptyBatchID", err)
	}

	if _, err := svc.Recent(ctx, 0); err != nil {
		t.Fatalf("Recent() error: %v", err)
	}
	if repo.lastLimit != DefaultRecentLimit {
		t.Errorf("limit = %d, want %d", repo.lastLimit, DefaultRecentLimit)
	}

	n, err := svc.Forget(ctx, "batch-2")
	if err != nil || n != 1 {
		t.Errorf("Forget() = %d, %v; want 1, nil", n, err)
	}
	if _, err := svc.Forget(ctx, ""); !errors.Is(err, ErrEmptyBatchID) {
		t.Errorf("Forget(\"\") error = %v, want ErrEmptyBatchID", err)
	}
}

func TestHistoryService_InsertError(t *testing.T) {
	repo := &mockRepository{insertErr: errors.New("db down")}
	svc := NewHistoryService(repo)

	if _, err := svc.Record(context.Background(), "b", "p", Failed(nil)); err == nil {
		t.Error("Record() should propagate insert errors")
	}
}
