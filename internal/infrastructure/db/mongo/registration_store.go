package mongo

import (
	"context"
	"fmt"
	"strings"
	"time"

	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/mongo"

	"github.com/clinic/backoffice/internal/core/domain"
	"github.com/clinic/backoffice/internal/core/ports"
)

// RegistrationStore writes users, validation tokens and outbox events in a
// single multi-document transaction. It needs a replica set.
type RegistrationStore struct {
	client *mongo.Client
	users  *mongo.Collection
	tokens *mongo.Collection
	outbox *mongo.Collection
}

func NewRegistrationStore(client *mongo.Client, db *mongo.Database) *RegistrationStore {
	return &RegistrationStore{
		client: client,
		users:  db.Collection(usersCollection),
		tokens: db.Collection(tokensCollection),
		outbox: db.Collection(outboxCollection),
	}
}

func (s *RegistrationStore) Register(ctx context.Context, user *domain.Identity, token *domain.ValidationToken, event *domain.OutboxEvent) error {
	return s.inTransaction(ctx, func(sc mongo.SessionContext) error {
		if _, err := s.users.InsertOne(sc, toMongoUser(user)); err != nil {
			return translateWriteError("insert user", err)
		}
		return s.insertTokenAndEvent(sc, token, event)
	})
}

func (s *RegistrationStore) Reissue(ctx context.Context, token *domain.ValidationToken, event *domain.OutboxEvent) error {
	return s.inTransaction(ctx, func(sc mongo.SessionContext) error {
		return s.insertTokenAndEvent(sc, token, event)
	})
}

func (s *RegistrationStore) Activate(ctx context.Context, email, passwordHash string, at time.Time) error {
	return s.inTransaction(ctx, func(sc mongo.SessionContext) error {
		res, err := s.users.UpdateOne(sc,
			bson.M{"email": email},
			bson.M{"$set": bson.M{
				"password_hash": passwordHash,
				"enabled":       true,
				"updated_at":    at.UTC(),
			}},
		)
		if err != nil {
			return fmt.Errorf("activate user: %w", err)
		}
		if res.MatchedCount == 0 {
			return domain.NotFound(domain.MsgUserNotFound)
		}
		if _, err := s.tokens.DeleteMany(sc, bson.M{"email": email}); err != nil {
			return fmt.Errorf("delete validation tokens: %w", err)
		}
		return nil
	})
}

func (s *RegistrationStore) insertTokenAndEvent(sc mongo.SessionContext, token *domain.ValidationToken, event *domain.OutboxEvent) error {
	if _, err := s.tokens.InsertOne(sc, token); err != nil {
		return translateWriteError("insert validation token", err)
	}
	if _, err := s.outbox.InsertOne(sc, event); err != nil {
		return fmt.Errorf("insert outbox event: %w", err)
	}
	return nil
}

func (s *RegistrationStore) inTransaction(ctx context.Context, fn func(mongo.SessionContext) error) error {
	sess, err := s.client.StartSession()
	if err != nil {
		return fmt.Errorf("start session: %w", err)
	}
	defer sess.EndSession(ctx)

	_, err = sess.WithTransaction(ctx, func(sc mongo.SessionContext) (interface{}, error) {
		return nil, fn(sc)
	})
	return err
}

// translateWriteError maps unique index violations to domain errors.
func translateWriteError(op string, err error) error {
	if !mongo.IsDuplicateKeyError(err) {
		return fmt.Errorf("%s: %w", op, err)
	}
	msg := err.Error()
	switch {
	case strings.Contains(msg, emailIndex):
		return domain.BadRequest("Email already exists.")
	case strings.Contains(msg, dniIndex):
		return domain.BadRequest("DNI already exists.")
	case strings.Contains(msg, tokenIndex):
		return ports.ErrTokenCollision
	default:
		return fmt.Errorf("%s: %w", op, err)
	}
}
