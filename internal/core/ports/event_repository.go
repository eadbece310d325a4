package ports

import (
	"context"
	"time"

	"github.com/clinic/backoffice/internal/core/domain"
)

// OutboxRepository reads and settles pending outbox events.
type OutboxRepository interface {
	// Pending returns up to limit undispatched events, oldest first.
	Pending(ctx context.Context, limit int) ([]*domain.OutboxEvent, error)
	MarkDispatched(ctx context.Context, id string, at time.Time) error
	MarkFailed(ctx context.Context, id string, cause string) error
	CountPending(ctx context.Context) (int64, error)
}
