package services

import (
	"context"
	"log/slog"
	"sync"
	"time"

	"ledger/internal/amqp"
)

const (
	defaultEventTimeout = 2 * time.Second
	eventQueueSize      = 256
)

type queuedEvent struct {
	ctx   context.Context
	event *amqp.MovementEvent
}

// eventDispatcher publishes movement events from a single background
// goroutine, so events leave in admission order and request handlers never
// wait on the broker. A full queue drops the event.
type eventDispatcher struct {
	publisher EventPublisher
	timeout   time.Duration

	mu     sync.RWMutex
	closed bool
	queue  chan queuedEvent
	done   chan struct{}
}

func newEventDispatcher(publisher EventPublisher, timeout time.Duration) *eventDispatcher {
	d := &eventDispatcher{
		publisher: publisher,
		timeout:   timeout,
		queue:     make(chan queuedEvent, eventQueueSize),
		done:      make(chan struct{}),
	}
	go d.run()
	return d
}

// enqueue hands the event to the background publisher. The request context
// keeps its values for logging but not its cancellation.
func (d *eventDispatcher) enqueue(ctx context.Context, event *amqp.MovementEvent) {
	d.mu.RLock()
	defer d.mu.RUnlock()

	if d.closed {
		slog.WarnContext(ctx, "Event dispatcher closed, dropping movement event",
			"event", event.Event, "movement_id", event.MovementID)
		return
	}

	select {
	case d.queue <- queuedEvent{ctx: context.WithoutCancel(ctx), event: event}:
	default:
		slog.WarnContext(ctx, "Event queue full, dropping movement event",
			"event", event.Event, "movement_id", event.MovementID)
	}
}

func (d *eventDispatcher) run() {
	defer close(d.done)
	for item := range d.queue {
		ctx, cancel := context.WithTimeout(item.ctx, d.timeout)
		err := d.publisher.PublishMovementEvent(ctx, item.event)
		cancel()
		if err != nil {
			slog.ErrorContext(item.ctx, "Failed to publish movement event",
				"event", item.event.Event,
				"movement_id", item.event.MovementID,
				"message_id", item.event.MessageID,
				"error", err)
		}
	}
}

// close stops accepting events and waits until the queued ones are
// published or ctx expires.
func (d *eventDispatcher) close(ctx context.Context) error {
	d.mu.Lock()
	if !d.closed {
		d.closed = true
		close(d.queue)
	}
	d.mu.Unlock()

	select {
	case <-d.done:
		return nil
	case <-ctx.Done():
		return ctx.Err()
	}
}
