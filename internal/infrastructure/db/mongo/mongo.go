package mongo

import (
	"context"
	"fmt"
	"time"

	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/mongo"
	"go.mongodb.org/mongo-driver/mongo/options"
)

const defaultTimeout = 10 * time.Second

const (
	usersCollection  = "users"
	tokensCollection = "validation_tokens"
	outboxCollection = "outbox"

	emailIndex = "users_email_unique"
	dniIndex   = "users_dni_unique"
	tokenIndex = "tokens_token_unique"
)

// Config captures the minimal settings required to establish a MongoDB connection.
type Config struct {
	URI      string
	Database string
	Timeout  time.Duration
}

// Connect establishes a MongoDB client, verifies connectivity with a ping, and
// returns both the client and the selected database. A default timeout is
// applied when none is provided.
func Connect(ctx context.Context, cfg Config) (*mongo.Client, *mongo.Database, error) {
	timeout := cfg.Timeout
	if timeout <= 0 {
		timeout = defaultTimeout
	}

	connectCtx, cancel := context.WithTimeout(ctx, timeout)
	defer cancel()

	client, err := mongo.Connect(connectCtx, options.Client().ApplyURI(cfg.URI))
	if err != nil {
		return nil, nil, fmt.Errorf("mongo connect: %w", err)
	}

	if err := client.Ping(connectCtx, nil); err != nil {
		_ = client.Disconnect(connectCtx)
		return nil, nil, fmt.Errorf("mongo ping: %w", err)
	}

	return client, client.Database(cfg.Database), nil
}

// EnsureIndexes creates the unique and TTL indexes the user service relies on.
// Expired validation tokens are removed by the TTL monitor.
func EnsureIndexes(ctx context.Context, db *mongo.Database) error {
	specs := map[string][]mongo.IndexModel{
		usersCollection: {
			{Keys: bson.D{{Key: "email", Value: 1}}, Options: options.Index().SetName(emailIndex).SetUnique(true)},
			{Keys: bson.D{{Key: "dni", Value: 1}}, Options: options.Index().SetName(dniIndex).SetUnique(true)},
		},
		tokensCollection: {
			{Keys: bson.D{{Key: "token", Value: 1}}, Options: options.Index().SetName(tokenIndex).SetUnique(true)},
			{Keys: bson.D{{Key: "email", Value: 1}}},
			{Keys: bson.D{{Key: "expiry_date", Value: 1}}, Options: options.Index().SetExpireAfterSeconds(0)},
		},
		outboxCollection: {
			{Keys: bson.D{{Key: "dispatched_at", Value: 1}, {Key: "created_at", Value: 1}}},
		},
	}

	for coll, models := range specs {
		if _, err := db.Collection(coll).Indexes().CreateMany(ctx, models); err != nil {
			return fmt.Errorf("create indexes on %s: %w", coll, err)
		}
	}
	return nil
}
