package queue

import (
	"context"
	"hash/fnv"
	"strconv"
	"sync"

	"github.com/rs/zerolog"

	"github.com/clinic/backoffice/internal/api/metrics"
	"github.com/clinic/backoffice/internal/core/domain"
)

const (
	defaultWorkers = 4
	channelBuffer  = 64
)

// Delivery is one decoded stream entry awaiting processing.
type Delivery struct {
	ID      string
	EventID string
	Event   domain.RegistrationEvent
	Values  map[string]interface{}
}

// Dispatcher routes deliveries to a fixed set of workers using consistent
// hashing on the recipient email, so emails to one address go out in order.
type Dispatcher struct {
	workers []chan Delivery
	handle  func(context.Context, Delivery)
	log     zerolog.Logger
	wg      sync.WaitGroup
}

// NewDispatcher creates a Dispatcher with numWorkers sharded workers.
// If numWorkers <= 0, defaultWorkers is used.
func NewDispatcher(numWorkers int, handle func(context.Context, Delivery), log zerolog.Logger) *Dispatcher {
	if numWorkers <= 0 {
		numWorkers = defaultWorkers
	}
	d := &Dispatcher{
		workers: make([]chan Delivery, numWorkers),
		handle:  handle,
		log:     log,
	}
	for i := range d.workers {
		d.workers[i] = make(chan Delivery, channelBuffer)
	}
	return d
}

// Start launches all worker goroutines. Workers stop when ctx is cancelled.
func (d *Dispatcher) Start(ctx context.Context) {
	for i, ch := range d.workers {
		d.wg.Add(1)
		go d.runWorker(ctx, i, ch)
	}
}

// Wait blocks until every worker has returned.
func (d *Dispatcher) Wait() {
	d.wg.Wait()
}

// Enqueue hands a delivery to the worker owning its recipient. It blocks
// while that worker's channel is full, and gives up when ctx ends.
func (d *Dispatcher) Enqueue(ctx context.Context, del Delivery) bool {
	idx := d.shardIndex(del.Event.Email)
	select {
	case d.workers[idx] <- del:
		metrics.NotificationQueueDepth.WithLabelValues(strconv.Itoa(idx)).Set(float64(len(d.workers[idx])))
		return true
	case <-ctx.Done():
		return false
	}
}

func (d *Dispatcher) shardIndex(key string) int {
	h := fnv.New32a()
	_, _ = h.Write([]byte(key))
	return int(h.Sum32() % uint32(len(d.workers)))
}

func (d *Dispatcher) runWorker(ctx context.Context, id int, ch <-chan Delivery) {
	defer d.wg.Done()
	label := strconv.Itoa(id)
	for {
		select {
		case <-ctx.Done():
			return
		case del := <-ch:
			metrics.NotificationQueueDepth.WithLabelValues(label).Set(float64(len(ch)))
			d.handle(ctx, del)
		}
	}
}
