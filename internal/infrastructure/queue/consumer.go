package queue

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"strings"
	"sync"
	"time"

	"github.com/redis/go-redis/v9"
	"github.com/rs/zerolog"

	"github.com/clinic/backoffice/internal/api/metrics"
	"github.com/clinic/backoffice/internal/core/domain"
	"github.com/clinic/backoffice/internal/core/ports"
	rdb "github.com/clinic/backoffice/internal/infrastructure/db/redis"
)

// StreamClient is the subset of go-redis used by the consumer.
type StreamClient interface {
	XGroupCreateMkStream(ctx context.Context, stream, group, start string) *redis.StatusCmd
	XReadGroup(ctx context.Context, a *redis.XReadGroupArgs) *redis.XStreamSliceCmd
	XAck(ctx context.Context, stream, group string, ids ...string) *redis.IntCmd
	XPendingExt(ctx context.Context, a *redis.XPendingExtArgs) *redis.XPendingExtCmd
	XClaim(ctx context.Context, a *redis.XClaimArgs) *redis.XMessageSliceCmd
	XAdd(ctx context.Context, a *redis.XAddArgs) *redis.StringCmd
}

// ConsumerConfig names the stream, group and retry limits.
type ConsumerConfig struct {
	Stream        string
	DeadLetter    string
	Group         string
	Consumer      string
	Workers       int
	Block         time.Duration
	BatchSize     int64
	ClaimMinIdle  time.Duration
	MaxDeliveries int64
}

// Consumer reads registration events as a member of a Redis consumer group.
// Entries are acked after a successful send, dead-lettered on permanent
// failure, and left pending on transient failure so the reclaim pass
// redelivers them.
type Consumer struct {
	client  StreamClient
	cfg     ConsumerConfig
	service ports.NotificationService
	log     zerolog.Logger

	// inflight holds entry IDs queued or being processed by this consumer.
	mu       sync.Mutex
	inflight map[string]struct{}
}

func NewConsumer(client StreamClient, cfg ConsumerConfig, svc ports.NotificationService, log zerolog.Logger) *Consumer {
	if cfg.Block <= 0 {
		cfg.Block = 5 * time.Second
	}
	if cfg.BatchSize <= 0 {
		cfg.BatchSize = 16
	}
	if cfg.ClaimMinIdle <= 0 {
		cfg.ClaimMinIdle = time.Minute
	}
	if cfg.MaxDeliveries <= 0 {
		cfg.MaxDeliveries = 5
	}
	if cfg.DeadLetter == "" {
		cfg.DeadLetter = cfg.Stream + ".dlq"
	}
	return &Consumer{
		client:   client,
		cfg:      cfg,
		service:  svc,
		log:      log,
		inflight: make(map[string]struct{}),
	}
}

// EnsureGroup creates the consumer group, and the stream if needed.
func (c *Consumer) EnsureGroup(ctx context.Context) error {
	err := c.client.XGroupCreateMkStream(ctx, c.cfg.Stream, c.cfg.Group, "0").Err()
	if err != nil && !strings.HasPrefix(err.Error(), "BUSYGROUP") {
		return fmt.Errorf("create consumer group %s: %w", c.cfg.Group, err)
	}
	return nil
}

// Run consumes until ctx is cancelled.
func (c *Consumer) Run(ctx context.Context) error {
	if err := c.EnsureGroup(ctx); err != nil {
		return err
	}

	d := NewDispatcher(c.cfg.Workers, c.Process, c.log)
	d.Start(ctx)
	defer d.Wait()

	c.log.Info().
		Str("stream", c.cfg.Stream).
		Str("group", c.cfg.Group).
		Str("consumer", c.cfg.Consumer).
		Msg("consumer started")

	lastReclaim := time.Time{}
	for ctx.Err() == nil {
		if time.Since(lastReclaim) >= c.cfg.ClaimMinIdle/2 {
			c.reclaim(ctx, d)
			lastReclaim = time.Now()
		}

		streams, err := c.client.XReadGroup(ctx, &redis.XReadGroupArgs{
			Group:    c.cfg.Group,
			Consumer: c.cfg.Consumer,
			Streams:  []string{c.cfg.Stream, ">"},
			Count:    c.cfg.BatchSize,
			Block:    c.cfg.Block,
		}).Result()
		if err != nil {
			if errors.Is(err, redis.Nil) || ctx.Err() != nil {
				continue
			}
			c.log.Error().Err(err).Msg("read from stream")
			sleep(ctx, time.Second)
			continue
		}

		for _, s := range streams {
			for _, msg := range s.Messages {
				c.route(ctx, d, msg)
			}
		}
	}

	c.log.Info().Msg("consumer stopped")
	return nil
}

// route decodes msg and enqueues it; undecodable entries go straight to the
// dead-letter stream.
func (c *Consumer) route(ctx context.Context, d *Dispatcher, msg redis.XMessage) {
	del, err := decode(msg)
	if err != nil {
		c.log.Error().Err(err).Str("entry_id", msg.ID).Msg("undecodable registration event")
		c.deadLetter(ctx, msg.ID, msg.Values, "permanent", err)
		return
	}
	if !c.track(del.ID) {
		c.log.Debug().Str("entry_id", del.ID).Msg("entry already in flight, skipping")
		return
	}
	if !d.Enqueue(ctx, del) {
		c.untrack(del.ID)
	}
}

// track marks id as in flight. It reports false when id already was.
func (c *Consumer) track(id string) bool {
	c.mu.Lock()
	defer c.mu.Unlock()
	if _, ok := c.inflight[id]; ok {
		return false
	}
	c.inflight[id] = struct{}{}
	return true
}

func (c *Consumer) untrack(id string) {
	c.mu.Lock()
	delete(c.inflight, id)
	c.mu.Unlock()
}

func (c *Consumer) isInFlight(id string) bool {
	c.mu.Lock()
	defer c.mu.Unlock()
	_, ok := c.inflight[id]
	return ok
}

// Process handles one delivery and settles it according to the ack policy.
func (c *Consumer) Process(ctx context.Context, del Delivery) {
	defer c.untrack(del.ID)
	start := time.Now()
	err := c.service.HandleRegistration(ctx, del.EventID, del.Event)

	result := "sent"
	switch {
	case err == nil:
		c.ack(ctx, del.ID)
	case errors.Is(err, ports.ErrDuplicateEvent):
		result = "duplicate"
		metrics.NotificationDedupTotal.WithLabelValues("hit").Inc()
		c.ack(ctx, del.ID)
	case domain.IsPermanent(err):
		result = "dead_letter"
		c.log.Error().Err(err).Str("event_id", del.EventID).Msg("notification failed permanently")
		c.deadLetter(ctx, del.ID, del.Values, "permanent", err)
	default:
		result = "retry"
		c.log.Warn().Err(err).Str("event_id", del.EventID).Msg("notification failed, leaving pending for redelivery")
	}
	if result == "sent" {
		metrics.NotificationDedupTotal.WithLabelValues("miss").Inc()
	}

	metrics.NotificationsProcessedTotal.WithLabelValues(result).Inc()
	metrics.NotificationDuration.WithLabelValues(result).Observe(time.Since(start).Seconds())
}

// reclaim takes over entries that stayed pending too long, dead-lettering the
// ones that already used up their deliveries. Entries this consumer still has
// queued or in progress are left alone.
func (c *Consumer) reclaim(ctx context.Context, d *Dispatcher) {
	pending, err := c.client.XPendingExt(ctx, &redis.XPendingExtArgs{
		Stream: c.cfg.Stream,
		Group:  c.cfg.Group,
		Idle:   c.cfg.ClaimMinIdle,
		Start:  "-",
		End:    "+",
		Count:  c.cfg.BatchSize,
	}).Result()
	if err != nil {
		if ctx.Err() == nil {
			c.log.Warn().Err(err).Msg("list pending entries")
		}
		return
	}
	if len(pending) == 0 {
		return
	}

	exhausted := make(map[string]bool, len(pending))
	ids := make([]string, 0, len(pending))
	for _, p := range pending {
		ids = append(ids, p.ID)
		if p.RetryCount >= c.cfg.MaxDeliveries {
			exhausted[p.ID] = true
		}
	}

	msgs, err := c.client.XClaim(ctx, &redis.XClaimArgs{
		Stream:   c.cfg.Stream,
		Group:    c.cfg.Group,
		Consumer: c.cfg.Consumer,
		MinIdle:  c.cfg.ClaimMinIdle,
		Messages: ids,
	}).Result()
	if err != nil {
		c.log.Warn().Err(err).Msg("claim pending entries")
		return
	}

	for _, msg := range msgs {
		if c.isInFlight(msg.ID) {
			continue
		}
		if exhausted[msg.ID] {
			c.log.Error().Str("entry_id", msg.ID).Int64("max_deliveries", c.cfg.MaxDeliveries).Msg("delivery limit reached")
			c.deadLetter(ctx, msg.ID, msg.Values, "max_deliveries", nil)
			continue
		}
		c.route(ctx, d, msg)
	}
}

func (c *Consumer) ack(ctx context.Context, id string) {
	if err := c.client.XAck(ctx, c.cfg.Stream, c.cfg.Group, id).Err(); err != nil {
		c.log.Warn().Err(err).Str("entry_id", id).Msg("ack failed")
	}
}

// deadLetter copies the entry to the dead-letter stream and acks it. When the
// copy fails the entry stays pending.
func (c *Consumer) deadLetter(ctx context.Context, id string, values map[string]interface{}, reason string, cause error) {
	fields := make(map[string]interface{}, len(values)+3)
	for k, v := range values {
		fields[k] = v
	}
	fields["source_id"] = id
	fields["reason"] = reason
	if cause != nil {
		fields["error"] = cause.Error()
	}

	if err := c.client.XAdd(ctx, &redis.XAddArgs{Stream: c.cfg.DeadLetter, Values: fields}).Err(); err != nil {
		c.log.Error().Err(err).Str("entry_id", id).Msg("dead-letter publish failed")
		return
	}
	metrics.DeadLetteredTotal.WithLabelValues(reason).Inc()
	c.ack(ctx, id)
}

func decode(msg redis.XMessage) (Delivery, error) {
	raw, ok := msg.Values[rdb.FieldPayload].(string)
	if !ok {
		return Delivery{}, fmt.Errorf("entry %s: missing %s field", msg.ID, rdb.FieldPayload)
	}
	var event domain.RegistrationEvent
	if err := json.Unmarshal([]byte(raw), &event); err != nil {
		return Delivery{}, fmt.Errorf("entry %s: %w", msg.ID, err)
	}
	if event.Email == "" {
		return Delivery{}, fmt.Errorf("entry %s: event has no email", msg.ID)
	}

	eventID, _ := msg.Values[rdb.FieldEventID].(string)
	if eventID == "" {
		eventID = msg.ID
	}
	return Delivery{ID: msg.ID, EventID: eventID, Event: event, Values: msg.Values}, nil
}

func sleep(ctx context.Context, d time.Duration) {
	t := time.NewTimer(d)
	defer t.Stop()
	select {
	case <-ctx.Done():
	case <-t.C:
	}
}
