package redis

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/redis/go-redis/v9"

	"github.com/clinic/backoffice/internal/core/domain"
)

// unreachable returns a client pointed at a closed port.
func unreachable(t *testing.T) *redis.Client {
	t.Helper()
	client := redis.NewClient(&redis.Options{
		Addr:        "127.0.0.1:1",
		DialTimeout: 200 * time.Millisecond,
		MaxRetries:  -1,
	})
	t.Cleanup(func() { _ = client.Close() })
	return client
}

func TestStreamPublisher_FailureIsBrokerError(t *testing.T) {
	pub := NewStreamPublisher(unreachable(t), 1000)

	err := pub.Publish(context.Background(), "userTopic", "evt-1", []byte(`{}`))
	if !errors.Is(err, domain.ErrBrokerMsg) {
		t.Fatalf("expected broker error, got %v", err)
	}
}

func TestDedupChecker_PropagatesErrors(t *testing.T) {
	d := NewDedupChecker(unreachable(t), 0)

	if _, err := d.IsDuplicate(context.Background(), "evt-1"); err == nil {
		t.Fatalf("expected error from unreachable redis")
	}
	if err := d.Mark(context.Background(), "evt-1"); err == nil {
		t.Fatalf("expected error from unreachable redis")
	}
	if d.ttl != defaultDedupTTL {
		t.Fatalf("expected default ttl, got %v", d.ttl)
	}
}

func TestDedupChecker_Key(t *testing.T) {
	d := NewDedupChecker(nil, time.Hour)
	if got := d.key("abc"); got != "notify:sent:abc" {
		t.Fatalf("unexpected key %q", got)
	}
}

func TestConnect_Unreachable(t *testing.T) {
	_, err := Connect(context.Background(), Config{Addr: "127.0.0.1:1", Timeout: 300 * time.Millisecond})
	if err == nil {
		t.Fatalf("expected ping error")
	}
}
