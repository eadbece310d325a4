package redis

import (
	"context"

	"github.com/redis/go-redis/v9"

	"github.com/clinic/backoffice/internal/core/domain"
)

// Stream entry fields.
const (
	FieldEventID = "event_id"
	FieldPayload = "payload"
)

// StreamPublisher appends events to a Redis stream, one stream per topic.
type StreamPublisher struct {
	client redis.Cmdable
	maxLen int64
}

// NewStreamPublisher returns a publisher that approximately caps each stream
// at maxLen entries. maxLen <= 0 disables trimming.
func NewStreamPublisher(client redis.Cmdable, maxLen int64) *StreamPublisher {
	return &StreamPublisher{client: client, maxLen: maxLen}
}

// Publish XADDs the payload under topic. Failures are reported as BrokerMsg
// errors.
func (p *StreamPublisher) Publish(ctx context.Context, topic, eventID string, payload []byte) error {
	args := &redis.XAddArgs{
		Stream: topic,
		Values: map[string]interface{}{
			FieldEventID: eventID,
			FieldPayload: string(payload),
		},
	}
	if p.maxLen > 0 {
		args.MaxLen = p.maxLen
		args.Approx = true
	}

	if err := p.client.XAdd(ctx, args).Err(); err != nil {
		return domain.BrokerMsg("publish to "+topic, err)
	}
	return nil
}
