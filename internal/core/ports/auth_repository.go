package ports

import (
	"context"
	"errors"
	"time"

	"github.com/clinic/backoffice/internal/core/domain"
)

// UserRepository defines the directory's persistence operations.
type UserRepository interface {
	FindByEmail(ctx context.Context, email string) (*domain.Identity, error)
	ExistsByEmail(ctx context.Context, email string) (bool, error)
	ExistsByDNI(ctx context.Context, dni string) (bool, error)
}

// ValidationTokenRepository stores one-time activation codes.
type ValidationTokenRepository interface {
	FindByToken(ctx context.Context, token string) (*domain.ValidationToken, error)
	// ExistsActive reports whether an unexpired token with this value exists.
	ExistsActive(ctx context.Context, token string, now time.Time) (bool, error)
}

// RegistrationStore commits a registration atomically: the user row (when
// non-nil), its validation token, and the outbox event.
type RegistrationStore interface {
	Register(ctx context.Context, user *domain.Identity, token *domain.ValidationToken, event *domain.OutboxEvent) error
	// Reissue stores a fresh token and outbox event for an existing user.
	Reissue(ctx context.Context, token *domain.ValidationToken, event *domain.OutboxEvent) error
	// Activate sets the password hash, enables the account and deletes every
	// validation token issued for email.
	Activate(ctx context.Context, email, passwordHash string, at time.Time) error
}

// ErrTokenCollision is returned by RegistrationStore when the generated
// validation token clashes with a stored one.
var ErrTokenCollision = errors.New("validation token collision")
