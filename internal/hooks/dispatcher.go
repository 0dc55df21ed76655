package hooks

import (
	"context"
	"sync"
	"time"

	"github.com/rs/zerolog"

	"cabdispatch/internal/metrics"
)

// Route decides which sinks receive which events.
type Route struct {
	Sink  Sink
	Types []EventType // empty means every type
}

func (r Route) matches(t EventType) bool {
	if len(r.Types) == 0 {
		return true
	}
	for _, want := range r.Types {
		if want == t {
			return true
		}
	}
	return false
}

// DispatcherConfig tunes the delivery worker pool.
type DispatcherConfig struct {
	BufferSize      int
	Workers         int
	DeliveryTimeout time.Duration
}

// Dispatcher queues events and delivers them from background workers.
// Fire never blocks the caller: when the queue is full the event is dropped.
type Dispatcher struct {
	routes  []Route
	timeout time.Duration
	log     zerolog.Logger

	mu     sync.RWMutex
	closed bool
	queue  chan Event
	wg     sync.WaitGroup
}

// NewDispatcher starts cfg.Workers delivery goroutines.
func NewDispatcher(cfg DispatcherConfig, log zerolog.Logger, routes ...Route) *Dispatcher {
	if cfg.BufferSize <= 0 {
		cfg.BufferSize = 256
	}
	if cfg.Workers <= 0 {
		cfg.Workers = 2
	}
	if cfg.DeliveryTimeout <= 0 {
		cfg.DeliveryTimeout = 5 * time.Second
	}

	d := &Dispatcher{
		routes:  routes,
		timeout: cfg.DeliveryTimeout,
		log:     log,
		queue:   make(chan Event, cfg.BufferSize),
	}

	for i := 0; i < cfg.Workers; i++ {
		d.wg.Add(1)
		go d.worker()
	}

	return d
}

// Fire enqueues e for delivery and reports whether it was accepted.
func (d *Dispatcher) Fire(e Event) bool {
	d.mu.RLock()
	defer d.mu.RUnlock()

	if d.closed {
		metrics.RecordHookDelivery("dispatcher", "dropped")
		d.log.Warn().Str("event_id", e.ID).Str("type", string(e.Type)).Msg("hook dispatcher closed, event dropped")
		return false
	}

	select {
	case d.queue <- e:
		return true
	default:
		metrics.RecordHookDelivery("dispatcher", "dropped")
		d.log.Warn().Str("event_id", e.ID).Str("type", string(e.Type)).Msg("hook queue full, event dropped")
		return false
	}
}

func (d *Dispatcher) worker() {
	defer d.wg.Done()
	for e := range d.queue {
		d.deliver(e)
	}
}

func (d *Dispatcher) deliver(e Event) {
	for _, r := range d.routes {
		if !r.matches(e.Type) {
			continue
		}

		ctx, cancel := context.WithTimeout(context.Background(), d.timeout)
		err := r.Sink.Deliver(ctx, e)
		cancel()

		if err != nil {
			metrics.RecordHookDelivery(r.Sink.Name(), "error")
			d.log.Error().Err(err).
				Str("sink", r.Sink.Name()).
				Str("event_id", e.ID).
				Str("booking_id", e.BookingID).
				Msg("hook delivery failed")
			continue
		}
		metrics.RecordHookDelivery(r.Sink.Name(), "ok")
	}
}

// Close stops accepting events, drains the queue, and closes every sink.
// It returns ctx.Err() if draining outlives ctx.
func (d *Dispatcher) Close(ctx context.Context) error {
	d.mu.Lock()
	if d.closed {
		d.mu.Unlock()
		return nil
	}
	d.closed = true
	close(d.queue)
	d.mu.Unlock()

	done := make(chan struct{})
	go func() {
		d.wg.Wait()
		close(done)
	}()

	select {
	case <-done:
	case <-ctx.Done():
		return ctx.Err()
	}

	seen := make(map[Sink]bool)
	for _, r := range d.routes {
		if seen[r.Sink] {
			continue
		}
		seen[r.Sink] = true
		if err := r.Sink.Close(); err != nil {
			d.log.Warn().Err(err).Str("sink", r.Sink.Name()).Msg("close hook sink")
		}
	}
	return nil
}
