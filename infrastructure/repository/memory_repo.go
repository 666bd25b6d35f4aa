package repository

import (
	"context"
	"sync"

	"github.com/google/uuid"

	"tilecls-go/domain/prediction"
)

// MemoryPredictionRepository keeps prediction history in process memory.
// It is used when no MongoDB is configured; history is lost on exit.
type MemoryPredictionRepository struct {
	mu      sync.RWMutex
	records []*prediction.Record
}

// NewMemoryPredictionRepository creates an empty in-memory repository.
func NewMemoryPredictionRepository() *MemoryPredictionRepository {
	return &MemoryPredictionRepository{}
}

// Insert stores a copy of rec and sets its ID.
func (r *MemoryPredictionRepository) Insert(ctx context.Context, rec *prediction.Record) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	if rec.ID == "" {
		rec.ID = uuid.NewString()
	}

	stored := *rec
	r.mu.Lock()
	r.records = append(r.records, &stored)
	r.mu.Unlock()
	return nil
}

// FindByBatch returns the records of one batch in insertion order.
func (r *MemoryPredictionRepository) FindByBatch(ctx context.Context, batchID string) ([]*prediction.Record, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}

	r.mu.RLock()
	defer r.mu.RUnlock()

	var out []*prediction.Record
	for _, rec := range r.records {
		if rec.BatchID == batchID {
			c := *rec
			out = append(out, &c)
		}
	}
	return out, nil
}

// FindRecent returns up to limit records, newest first.
func (r *MemoryPredictionRepository) FindRecent(ctx context.Context, limit int) ([]*prediction.Record, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	if limit <= 0 {
		return nil, nil
	}

	r.mu.RLock()
	defer r.mu.RUnlock()

	n := min(limit, len(r.records))
	out := make([]*prediction.Record, 0, n)
	for i := len(r.records) - 1; i >= 0 && len(out) < n; i-- {
		c := *r.records[i]
		out = append(out, &c)
	}
	return out, nil
}

// DeleteBatch removes every record of a batch.
func (r *MemoryPredictionRepository) DeleteBatch(ctx context.Context, batchID string) (int64, error) {
	if err := ctx.Err(); err != nil {
		return 0, err
	}

	r.mu.Lock()
	defer r.mu.Unlock()

	kept := r.records[:0]
	var removed int64
	for _, rec := range r.records {
		if rec.BatchID == batchID {
			removed++
			continue
		}
		kept = append(kept, rec)
	}
	clear(r.records[len(kept):])
	r.records = kept
	return removed, nil
}

// Len returns the number of stored records.
func (r *MemoryPredictionRepository) Len() int {
	r.mu.RLock()
	defer r.mu.RUnlock()
	return len(r.records)
}

var _ prediction.Repository = (*MemoryPredictionRepository)(nil)
