package mongo

import (
	"context"
	"errors"
	"fmt"
	"time"

	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/mongo"
	"go.mongodb.org/mongo-driver/mongo/options"

	"github.com/clinic/backoffice/internal/core/domain"
)

// TokenRepository reads validation tokens. Writes go through RegistrationStore.
type TokenRepository struct {
	coll *mongo.Collection
}

func NewTokenRepository(db *mongo.Database) *TokenRepository {
	return &TokenRepository{coll: db.Collection(tokensCollection)}
}

func (r *TokenRepository) FindByToken(ctx context.Context, token string) (*domain.ValidationToken, error) {
	var vt domain.ValidationToken
	if err := r.coll.FindOne(ctx, bson.M{"token": token}).Decode(&vt); err != nil {
		if errors.Is(err, mongo.ErrNoDocuments) {
			return nil, domain.ErrNotFound
		}
		return nil, fmt.Errorf("find validation token: %w", err)
	}
	return &vt, nil
}

func (r *TokenRepository) ExistsActive(ctx context.Context, token string, now time.Time) (bool, error) {
	filter := bson.M{
		"token":       token,
		"expiry_date": bson.M{"$gt": now.UTC()},
	}
	n, err := r.coll.CountDocuments(ctx, filter, options.Count().SetLimit(1))
	if err != nil {
		return false, fmt.Errorf("count validation tokens: %w", err)
	}
	return n > 0, nil
}
