package prediction

import (
	"context"
	"errors"
	"time"
)

// ErrEmptyBatchID is returned when a history query has no batch ID.
var ErrEmptyBatchID = errors.New("batch ID is empty")

// DefaultRecentLimit bounds FindRecent when the caller passes a non-positive limit.
const DefaultRecentLimit = 50

// HistoryService provides business logic over the prediction history.
type HistoryService struct {
	repo Repository
	now  func() time.Time
}

// NewHistoryService creates a new history service.
func NewHistoryService(repo Repository) *HistoryService {
	return &HistoryService{repo: repo, now: time.Now}
}

// Record stores the result for path as part of batchID.
func (s *HistoryService) Record(ctx context.Context, batchID, path string, r Result) (*Record, error) {
	rec := NewRecord(batchID, path, r, s.now())
	if err := s.repo.Insert(ctx, rec); err != nil {
		return nil, err
	}
	return rec, nil
}

// Batch returns the records of one batch.
func (s *HistoryService) Batch(ctx context.Context, batchID string) ([]*Record, error) {
	if batchID == "" {
		return nil, ErrEmptyBatchID
	}
	return s.repo.FindByBatch(ctx, batchID)
}

// Recent returns the newest records.
func (s *HistoryService) Recent(ctx context.Context, limit int) ([]*Record, error) {
	if limit <= 0 {
		limit = DefaultRecentLimit
	}
	return s.repo.FindRecent(ctx, limit)
}

// Forget removes a batch from the history.
func (s *HistoryService) Forget(ctx context.Context, batchID string) (int64, error) {
	if batchID == "" {
		return 0, ErrEmptyBatchID
	}
	return s.repo.DeleteBatch(ctx, batchID)
}
