package redis

import (
	"context"
	"fmt"
	"time"

	"github.com/redis/go-redis/v9"
)

const defaultDedupTTL = 24 * time.Hour

// DedupChecker remembers which registration events already produced an
// email. Key format: notify:sent:<event_id>
type DedupChecker struct {
	client redis.Cmdable
	ttl    time.Duration
}

// NewDedupChecker creates a DedupChecker whose marks expire after ttl.
func NewDedupChecker(client redis.Cmdable, ttl time.Duration) *DedupChecker {
	if ttl <= 0 {
		ttl = defaultDedupTTL
	}
	return &DedupChecker{client: client, ttl: ttl}
}

// IsDuplicate reports whether eventID has already been handled.
func (d *DedupChecker) IsDuplicate(ctx context.Context, eventID string) (bool, error) {
	n, err := d.client.Exists(ctx, d.key(eventID)).Result()
	if err != nil {
		return false, fmt.Errorf("dedup check: %w", err)
	}
	return n > 0, nil
}

// Mark records that eventID has been handled.
func (d *DedupChecker) Mark(ctx context.Context, eventID string) error {
	if err := d.client.Set(ctx, d.key(eventID), "1", d.ttl).Err(); err != nil {
		return fmt.Errorf("dedup mark: %w", err)
	}
	return nil
}

func (d *DedupChecker) key(eventID string) string {
	return "notify:sent:" + eventID
}
