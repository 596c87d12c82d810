package repository

import (
	"context"
	"fmt"
	"time"

	"github.com/mansoorceksport/liftlog/internal/domain"
	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/mongo"
	"go.mongodb.org/mongo-driver/mongo/options"
)

// MongoOutboxRepository implements domain.OutboxRepository
type MongoOutboxRepository struct {
	collection *mongo.Collection
}

func NewMongoOutboxRepository(db *mongo.Database) *MongoOutboxRepository {
	return &MongoOutboxRepository{
		collection: db.Collection("pending_writes"),
	}
}

// EnsureIndexes creates the index used to pick pending writes oldest first
func (r *MongoOutboxRepository) EnsureIndexes(ctx context.Context) error {
	_, err := r.collection.Indexes().CreateOne(ctx, mongo.IndexModel{
		Keys: bson.D{{Key: "attempts", Value: 1}, {Key: "created_at", Value: 1}},
	})
	if err != nil {
		return fmt.Errorf("failed to create outbox index: %w", err)
	}
	return nil
}

func (r *MongoOutboxRepository) Create(ctx context.Context, w *domain.PendingWrite) error {
	if _, err := r.collection.InsertOne(ctx, w); err != nil {
		return fmt.Errorf("failed to create pending write: %w", err)
	}
	return nil
}

func (r *MongoOutboxRepository) ListPending(ctx context.Context, maxAttempts int, limit int64) ([]*domain.PendingWrite, error) {
	opts := options.Find().
		SetSort(bson.D{{Key: "created_at", Value: 1}}).
		SetLimit(limit)

	cursor, err := r.collection.Find(ctx, bson.M{"attempts": bson.M{"$lt": maxAttempts}}, opts)
	if err != nil {
		return nil, fmt.Errorf("failed to list pending writes: %w", err)
	}
	defer cursor.Close(ctx)

	var writes []*domain.PendingWrite
	if err := cursor.All(ctx, &writes); err != nil {
		return nil, err
	}
	return writes, nil
}

func (r *MongoOutboxRepository) MarkFailed(ctx context.Context, id string, lastErr string) error {
	update := bson.M{
		"$inc": bson.M{"attempts": 1},
		"$set": bson.M{
			"last_error": lastErr,
			"updated_at": time.Now(),
		},
	}

	result, err := r.collection.UpdateOne(ctx, bson.M{"_id": id}, update)
	if err != nil {
		return err
	}
	if result.MatchedCount == 0 {
		return domain.ErrNotFound
	}
	return nil
}

func (r *MongoOutboxRepository) Delete(ctx context.Context, id string) error {
	_, err := r.collection.DeleteOne(ctx, bson.M{"_id": id})
	return err
}
