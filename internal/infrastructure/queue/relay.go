package queue

import (
	"context"
	"time"

	"github.com/rs/zerolog"

	"github.com/clinic/backoffice/internal/api/metrics"
	"github.com/clinic/backoffice/internal/core/ports"
)

const (
	defaultPollInterval = 2 * time.Second
	defaultBatchSize    = 50
)

// OutboxRelay publishes committed outbox events to the event bus. Delivery is
// at least once: an event published but not marked dispatched is sent again.
type OutboxRelay struct {
	repo      ports.OutboxRepository
	publisher ports.EventPublisher
	interval  time.Duration
	batch     int
	wake      chan struct{}
	now       func() time.Time
	log       zerolog.Logger
}

func NewOutboxRelay(repo ports.OutboxRepository, publisher ports.EventPublisher, interval time.Duration, batch int, log zerolog.Logger) *OutboxRelay {
	if interval <= 0 {
		interval = defaultPollInterval
	}
	if batch <= 0 {
		batch = defaultBatchSize
	}
	return &OutboxRelay{
		repo:      repo,
		publisher: publisher,
		interval:  interval,
		batch:     batch,
		wake:      make(chan struct{}, 1),
		now:       time.Now,
		log:       log,
	}
}

// Notify asks the relay to poll now. It never blocks.
func (r *OutboxRelay) Notify() {
	select {
	case r.wake <- struct{}{}:
	default:
	}
}

// Run polls until ctx is cancelled.
func (r *OutboxRelay) Run(ctx context.Context) error {
	ticker := time.NewTicker(r.interval)
	defer ticker.Stop()

	r.log.Info().Dur("interval", r.interval).Int("batch", r.batch).Msg("outbox relay started")
	for {
		r.drain(ctx)

		select {
		case <-ctx.Done():
			r.log.Info().Msg("outbox relay stopped")
			return nil
		case <-ticker.C:
		case <-r.wake:
		}
	}
}

// drain publishes batches until the outbox is empty or a publish fails.
func (r *OutboxRelay) drain(ctx context.Context) {
	for ctx.Err() == nil {
		n, ok := r.dispatchBatch(ctx)
		if !ok || n < r.batch {
			break
		}
	}

	if pending, err := r.repo.CountPending(ctx); err == nil {
		metrics.OutboxPending.Set(float64(pending))
	}
}

// dispatchBatch publishes one batch in creation order and stops at the first
// failure so later events do not overtake it.
func (r *OutboxRelay) dispatchBatch(ctx context.Context) (int, bool) {
	events, err := r.repo.Pending(ctx, r.batch)
	if err != nil {
		r.log.Error().Err(err).Msg("load pending outbox events")
		return 0, false
	}

	for _, e := range events {
		if err := r.publisher.Publish(ctx, e.Topic, e.ID, e.Payload); err != nil {
			metrics.OutboxFailuresTotal.Inc()
			r.log.Error().Err(err).Str("event_id", e.ID).Int("attempts", e.Attempts+1).Msg("outbox publish failed")
			if markErr := r.repo.MarkFailed(ctx, e.ID, err.Error()); markErr != nil {
				r.log.Warn().Err(markErr).Str("event_id", e.ID).Msg("failed to record outbox failure")
			}
			return 0, false
		}

		if err := r.repo.MarkDispatched(ctx, e.ID, r.now()); err != nil {
			r.log.Warn().Err(err).Str("event_id", e.ID).Msg("failed to mark outbox event dispatched")
			return 0, false
		}
		metrics.OutboxDispatchedTotal.Inc()
		r.log.Debug().Str("event_id", e.ID).Str("topic", e.Topic).Msg("outbox event dispatched")
	}
	return len(events), true
}
