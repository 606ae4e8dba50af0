package events

import (
	"context"
	"errors"
	"sync"

	"go.uber.org/zap"
)

// ErrQueueFull is returned when the async dispatcher cannot accept an event.
var ErrQueueFull = errors.New("event queue full")

// EventHandler handles a published event.
type EventHandler func(context.Context, Event) error

// Dispatcher interface allows event publication/subscription.
type Dispatcher interface {
	Publish(ctx context.Context, event Event) error
	Subscribe(eventType EventType, handler EventHandler)
}

// inMemoryDispatcher is a simple synchronous dispatcher.
type inMemoryDispatcher struct {
	mu        sync.RWMutex
	listeners map[EventType][]EventHandler
	logger    *zap.Logger
}

// NewInMemoryDispatcher creates a dispatcher instance.
func NewInMemoryDispatcher(logger *zap.Logger) Dispatcher {
	return newInMemoryDispatcher(logger)
}

func newInMemoryDispatcher(logger *zap.Logger) *inMemoryDispatcher {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &inMemoryDispatcher{
		listeners: make(map[EventType][]EventHandler),
		logger:    logger,
	}
}

// Publish synchronously invokes handlers for the given event.
func (d *inMemoryDispatcher) Publish(ctx context.Context, event Event) error {
	d.mu.RLock()
	handlers := append([]EventHandler{}, d.listeners[event.Type]...)
	d.mu.RUnlock()

	for _, handler := range handlers {
		// one failing handler must not starve the others
		if err := handler(ctx, event); err != nil {
			d.logger.Warn("event handler failed",
				zap.String("event_type", string(event.Type)),
				zap.String("event_id", event.ID),
				zap.Error(err))
		}
	}
	return nil
}

// Subscribe registers a handler for the given event type.
func (d *inMemoryDispatcher) Subscribe(eventType EventType, handler EventHandler) {
	d.mu.Lock()
	defer d.mu.Unlock()
	d.listeners[eventType] = append(d.listeners[eventType], handler)
}

// AsyncDispatcher queues events and delivers them from Run. Publish never blocks
// the request path; events are dropped when the queue is full.
type AsyncDispatcher struct {
	inner  *inMemoryDispatcher
	queue  chan Event
	logger *zap.Logger
}

// NewAsyncDispatcher creates a dispatcher with a queue of size entries.
func NewAsyncDispatcher(size int, logger *zap.Logger) *AsyncDispatcher {
	if size <= 0 {
		size = 1
	}
	inner := newInMemoryDispatcher(logger)
	return &AsyncDispatcher{
		inner:  inner,
		queue:  make(chan Event, size),
		logger: inner.logger,
	}
}

// Publish enqueues event for delivery.
func (d *AsyncDispatcher) Publish(_ context.Context, event Event) error {
	select {
	case d.queue <- event:
		return nil
	default:
		d.logger.Warn("dropping event", zap.String("event_type", string(event.Type)), zap.String("username", event.Username))
		return ErrQueueFull
	}
}

// Subscribe registers a handler for the given event type.
func (d *AsyncDispatcher) Subscribe(eventType EventType, handler EventHandler) {
	d.inner.Subscribe(eventType, handler)
}

// Run delivers queued events until ctx is done, then drains what is already queued.
func (d *AsyncDispatcher) Run(ctx context.Context) {
	for {
		select {
		case event := <-d.queue:
			_ = d.inner.Publish(ctx, event)
		case <-ctx.Done():
			d.drain()
			return
		}
	}
}

func (d *AsyncDispatcher) drain() {
	// handlers get a fresh context so the final writes are not cut short
	ctx := context.Background()
	for {
		select {
		case event := <-d.queue:
			_ = d.inner.Publish(ctx, event)
		default:
			return
		}
	}
}
