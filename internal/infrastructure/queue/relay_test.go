package queue

import (
	"context"
	"errors"
	"fmt"
	"sort"
	"sync"
	"testing"
	"time"

	"github.com/rs/zerolog"

	"github.com/clinic/backoffice/internal/core/domain"
)

type memOutbox struct {
	events     []*domain.OutboxEvent
	dispatched map[string]bool
	failures   map[string]string
}

func newMemOutbox(n int) *memOutbox {
	m := &memOutbox{dispatched: map[string]bool{}, failures: map[string]string{}}
	base := time.Date(2026, 1, 1, 0, 0, 0, 0, time.UTC)
	for i := 0; i < n; i++ {
		m.events = append(m.events, &domain.OutboxEvent{
			ID:        fmt.Sprintf("evt-%02d", i),
			Topic:     "userTopic",
			Payload:   []byte(`{}`),
			CreatedAt: base.Add(time.Duration(i) * time.Second),
		})
	}
	return m
}

func (m *memOutbox) Pending(_ context.Context, limit int) ([]*domain.OutboxEvent, error) {
	var out []*domain.OutboxEvent
	for _, e := range m.events {
		if !m.dispatched[e.ID] && len(out) < limit {
			out = append(out, e)
		}
	}
	return out, nil
}

func (m *memOutbox) MarkDispatched(_ context.Context, id string, _ time.Time) error {
	m.dispatched[id] = true
	return nil
}

func (m *memOutbox) MarkFailed(_ context.Context, id string, cause string) error {
	m.failures[id] = cause
	for _, e := range m.events {
		if e.ID == id {
			e.Attempts++
		}
	}
	return nil
}

func (m *memOutbox) CountPending(_ context.Context) (int64, error) {
	return int64(len(m.events) - len(m.dispatched)), nil
}

type stubPublisher struct {
	failOn    string
	published []string
}

func (p *stubPublisher) Publish(_ context.Context, topic, eventID string, _ []byte) error {
	if eventID == p.failOn {
		return domain.BrokerMsg("publish to "+topic, errors.New("connection refused"))
	}
	p.published = append(p.published, eventID)
	return nil
}

func TestOutboxRelay_DrainsAllBatches(t *testing.T) {
	repo := newMemOutbox(7)
	pub := &stubPublisher{}
	relay := NewOutboxRelay(repo, pub, time.Hour, 3, zerolog.Nop())

	relay.drain(context.Background())

	if len(pub.published) != 7 {
		t.Fatalf("expected 7 published, got %d", len(pub.published))
	}
	if !sort.StringsAreSorted(pub.published) {
		t.Fatalf("events published out of order: %v", pub.published)
	}
	if n, _ := repo.CountPending(context.Background()); n != 0 {
		t.Fatalf("expected empty outbox, got %d pending", n)
	}
}

func TestOutboxRelay_StopsAtFirstFailure(t *testing.T) {
	repo := newMemOutbox(5)
	pub := &stubPublisher{failOn: "evt-02"}
	relay := NewOutboxRelay(repo, pub, time.Hour, 10, zerolog.Nop())

	relay.drain(context.Background())

	if len(pub.published) != 2 {
		t.Fatalf("expected 2 published before failure, got %v", pub.published)
	}
	if _, ok := repo.failures["evt-02"]; !ok {
		t.Fatalf("expected failure recorded for evt-02")
	}
	if repo.dispatched["evt-03"] {
		t.Fatalf("later events must wait for the failed one")
	}

	pub.failOn = ""
	relay.drain(context.Background())
	if n, _ := repo.CountPending(context.Background()); n != 0 {
		t.Fatalf("expected retry to drain outbox, got %d pending", n)
	}
	if repo.events[2].Attempts != 1 {
		t.Fatalf("expected one recorded failed attempt, got %d", repo.events[2].Attempts)
	}
}

// lockedOutbox lets the test add events while Run polls.
type lockedOutbox struct {
	mu sync.Mutex
	*memOutbox
}

func (l *lockedOutbox) Pending(ctx context.Context, limit int) ([]*domain.OutboxEvent, error) {
	l.mu.Lock()
	defer l.mu.Unlock()
	return l.memOutbox.Pending(ctx, limit)
}

func (l *lockedOutbox) MarkDispatched(ctx context.Context, id string, at time.Time) error {
	l.mu.Lock()
	defer l.mu.Unlock()
	return l.memOutbox.MarkDispatched(ctx, id, at)
}

func (l *lockedOutbox) CountPending(ctx context.Context) (int64, error) {
	l.mu.Lock()
	defer l.mu.Unlock()
	return l.memOutbox.CountPending(ctx)
}

type signalPublisher chan string

func (p signalPublisher) Publish(_ context.Context, _, eventID string, _ []byte) error {
	p <- eventID
	return nil
}

func TestOutboxRelay_NotifyWakesRun(t *testing.T) {
	repo := &lockedOutbox{memOutbox: newMemOutbox(0)}
	pub := make(signalPublisher, 1)
	relay := NewOutboxRelay(repo, pub, time.Hour, 10, zerolog.Nop())

	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan error, 1)
	go func() { done <- relay.Run(ctx) }()

	repo.mu.Lock()
	repo.events = newMemOutbox(1).events
	repo.mu.Unlock()
	relay.Notify()

	select {
	case id := <-pub:
		if id != "evt-00" {
			t.Fatalf("unexpected event %s", id)
		}
	case <-time.After(2 * time.Second):
		t.Fatalf("relay did not publish after Notify")
	}

	cancel()
	if err := <-done; err != nil {
		t.Fatalf("Run returned error: %v", err)
	}
}

func TestOutboxRelay_NotifyNeverBlocks(t *testing.T) {
	relay := NewOutboxRelay(newMemOutbox(0), &stubPublisher{}, time.Hour, 10, zerolog.Nop())
	for i := 0; i < 100; i++ {
		relay.Notify()
	}
}
