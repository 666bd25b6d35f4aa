package repository

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/bson/primitive"
	"go.mongodb.org/mongo-driver/mongo"
	"go.mongodb.org/mongo-driver/mongo/options"

	"tilecls-go/domain/prediction"
)

// predictionDocument is the MongoDB document structure for prediction records.
type predictionDocument struct {
	ID         primitive.ObjectID `bson:"_id,omitempty"`
	BatchID    string             `bson:"batch_id"`
	Path       string             `bson:"path"`
	Class      string             `bson:"class"`
	Confidence float64            `bson:"confidence"`
	Error      string             `bson:"error,omitempty"`
	CreatedAt  time.Time          `bson:"created_at"`
}

// MongoPredictionRepository implements prediction.Repository using MongoDB.
type MongoPredictionRepository struct {
	collection *mongo.Collection
	logger     *slog.Logger
}

// NewMongoPredictionRepository creates a new MongoDB-based prediction repository.
func NewMongoPredictionRepository(db *MongoDB, logger *slog.Logger) *MongoPredictionRepository {
	if logger == nil {
		logger = slog.Default()
	}
	return &MongoPredictionRepository{
		collection: db.Collection("prediction"),
		logger:     logger,
	}
}

// EnsureIndexes creates the indexes used by the batch and recency queries.
func (r *MongoPredictionRepository) EnsureIndexes(ctx context.Context) error {
	models := []mongo.IndexModel{
		{Keys: bson.D{{Key: "batch_id", Value: 1}, {Key: "created_at", Value: 1}}},
		{Keys: bson.D{{Key: "created_at", Value: -1}}},
	}
	if _, err := r.collection.Indexes().CreateMany(ctx, models); err != nil {
		return fmt.Errorf("failed to create prediction indexes: %w", err)
	}
	return nil
}

// Insert stores a record and sets its ID.
func (r *MongoPredictionRepository) Insert(ctx context.Context, rec *prediction.Record) error {
	doc := recordToDocument(rec)
	result, err := r.collection.InsertOne(ctx, doc)
	if err != nil {
		return fmt.Errorf("failed to insert prediction: %w", err)
	}

	if oid, ok := result.InsertedID.(primitive.ObjectID); ok {
		rec.ID = oid.Hex()
	}

	r.logger.Debug("Prediction inserted", "id", rec.ID, "batch_id", rec.BatchID, "class", rec.Class)
	return nil
}

// FindByBatch returns the records of one batch in insertion order.
func (r *MongoPredictionRepository) FindByBatch(ctx context.Context, batchID string) ([]*prediction.Record, error) {
	opts := options.Find().SetSort(bson.D{{Key: "created_at", Value: 1}, {Key: "_id", Value: 1}})
	return r.find(ctx, bson.M{"batch_id": batchID}, opts)
}

// FindRecent returns up to limit records, newest first.
func (r *MongoPredictionRepository) FindRecent(ctx context.Context, limit int) ([]*prediction.Record, error) {
	if limit <= 0 {
		return nil, nil
	}
	opts := options.Find().
		SetSort(bson.D{{Key: "created_at", Value: -1}, {Key: "_id", Value: -1}}).
		SetLimit(int64(limit))
	return r.find(ctx, bson.D{}, opts)
}

func (r *MongoPredictionRepository) find(ctx context.Context, filter any, opts *options.FindOptions) ([]*prediction.Record, error) {
	cursor, err := r.collection.Find(ctx, filter, opts)
	if err != nil {
		if errors.Is(err, mongo.ErrNoDocuments) {
			return nil, nil
		}
		return nil, fmt.Errorf("failed to find predictions: %w", err)
	}
	defer cursor.Close(ctx)

	var docs []predictionDocument
	if err := cursor.All(ctx, &docs); err != nil {
		return nil, fmt.Errorf("failed to decode predictions: %w", err)
	}

	records := make([]*prediction.Record, len(docs))
	for i := range docs {
		records[i] = documentToRecord(&docs[i])
	}
	return records, nil
}

// DeleteBatch removes every record of a batch.
func (r *MongoPredictionRepository) DeleteBatch(ctx context.Context, batchID string) (int64, error) {
	result, err := r.collection.DeleteMany(ctx, bson.M{"batch_id": batchID})
	if err != nil {
		return 0, fmt.Errorf("failed to delete predictions: %w", err)
	}

	r.logger.Info("Prediction batch deleted", "batch_id", batchID, "count", result.DeletedCount)
	return result.DeletedCount, nil
}

// documentToRecord converts a MongoDB document to a domain Record.
func documentToRecord(doc *predictionDocument) *prediction.Record {
	rec := &prediction.Record{
		BatchID:    doc.BatchID,
		Path:       doc.Path,
		Class:      doc.Class,
		Confidence: float32(doc.Confidence),
		Error:      doc.Error,
		CreatedAt:  doc.CreatedAt,
	}
	if !doc.ID.IsZero() {
		rec.ID = doc.ID.Hex()
	}
	return rec
}

// recordToDocument converts a domain Record to a MongoDB document.
func recordToDocument(rec *prediction.Record) *predictionDocument {
	doc := &predictionDocument{
		BatchID:    rec.BatchID,
		Path:       rec.Path,
		Class:      rec.Class,
		Confidence: float64(rec.Confidence),
		Error:      rec.Error,
		CreatedAt:  rec.CreatedAt.UTC(),
	}

	if rec.ID != "" {
		if oid, err := primitive.ObjectIDFromHex(rec.ID); err == nil {
			doc.ID = oid
		}
	}

	return doc
}

// Ensure MongoPredictionRepository implements prediction.Repository
var _ prediction.Repository = (*MongoPredictionRepository)(nil)
