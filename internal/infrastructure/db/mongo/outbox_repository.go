package mongo

import (
	"context"
	"fmt"
	"time"

	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/mongo"
	"go.mongodb.org/mongo-driver/mongo/options"

	"github.com/clinic/backoffice/internal/core/domain"
)

const maxErrorLen = 512

// OutboxRepository implements ports.OutboxRepository using MongoDB.
type OutboxRepository struct {
	coll *mongo.Collection
}

func NewOutboxRepository(db *mongo.Database) *OutboxRepository {
	return &OutboxRepository{coll: db.Collection(outboxCollection)}
}

var pendingFilter = bson.M{"dispatched_at": bson.M{"$exists": false}}

// Pending returns the oldest undispatched events.
func (r *OutboxRepository) Pending(ctx context.Context, limit int) ([]*domain.OutboxEvent, error) {
	opts := options.Find().
		SetSort(bson.D{{Key: "created_at", Value: 1}}).
		SetLimit(int64(limit))

	cur, err := r.coll.Find(ctx, pendingFilter, opts)
	if err != nil {
		return nil, fmt.Errorf("find pending outbox: %w", err)
	}
	defer cur.Close(ctx)

	var events []*domain.OutboxEvent
	if err := cur.All(ctx, &events); err != nil {
		return nil, fmt.Errorf("decode outbox: %w", err)
	}
	return events, nil
}

func (r *OutboxRepository) MarkDispatched(ctx context.Context, id string, at time.Time) error {
	_, err := r.coll.UpdateOne(ctx,
		bson.M{"_id": id},
		bson.M{"$set": bson.M{"dispatched_at": at.UTC()}, "$inc": bson.M{"attempts": 1}},
	)
	if err != nil {
		return fmt.Errorf("mark outbox dispatched: %w", err)
	}
	return nil
}

func (r *OutboxRepository) MarkFailed(ctx context.Context, id string, cause string) error {
	if len(cause) > maxErrorLen {
		cause = cause[:maxErrorLen]
	}
	_, err := r.coll.UpdateOne(ctx,
		bson.M{"_id": id},
		bson.M{"$set": bson.M{"last_error": cause}, "$inc": bson.M{"attempts": 1}},
	)
	if err != nil {
		return fmt.Errorf("mark outbox failed: %w", err)
	}
	return nil
}

func (r *OutboxRepository) CountPending(ctx context.Context) (int64, error) {
	n, err := r.coll.CountDocuments(ctx, pendingFilter)
	if err != nil {
		return 0, fmt.Errorf("count pending outbox: %w", err)
	}
	return n, nil
}
