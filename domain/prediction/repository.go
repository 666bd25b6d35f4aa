package prediction

import "context"

// Repository defines the interface for prediction history persistence.
type Repository interface {
	// Insert stores a record and assigns its ID.
	Insert(ctx context.Context, rec *Record) error

	// FindByBatch returns the records of one batch in insertion order.
	FindByBatch(ctx context.Context, batchID string) ([]*Record, error)

	// FindRecent returns up to limit records, newest first.
	FindRecent(ctx context.Context, limit int) ([]*Record, error)

	// DeleteBatch removes all records of a batch and returns how many were removed.
	DeleteBatch(ctx context.Context, batchID string) (int64, error)
}
