package events

import (
	"context"
	"errors"
	"sync"

	"go.uber.org/zap"
)

// ErrQueueFull is returned by an async Publish when the queue has no room.
var ErrQueueFull = errors.New("events: dispatch queue full")

// EventHandler handles a published event.
type EventHandler func(context.Context, Event) error

// Dispatcher interface allows event publication/subscription.
type Dispatcher interface {
	Publish(ctx context.Context, event Event) error
	Subscribe(eventType EventType, handler EventHandler)
}

// FailureHook observes handler errors and dropped events.
type FailureHook func(event Event, err error)

type registry struct {
	mu        sync.RWMutex
	listeners map[EventType][]EventHandler
}

func (r *registry) handlers(t EventType) []EventHandler {
	r.mu.RLock()
	defer r.mu.RUnlock()
	return append([]EventHandler{}, r.listeners[t]...)
}

// Subscribe registers a handler for the given event type.
func (r *registry) Subscribe(eventType EventType, handler EventHandler) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.listeners[eventType] = append(r.listeners[eventType], handler)
}

// inMemoryDispatcher is a simple synchronous dispatcher.
type inMemoryDispatcher struct {
	registry
	onFailure FailureHook
}

// NewInMemoryDispatcher creates a synchronous dispatcher. Handler errors are
// passed to onFailure (may be nil) and never returned to the publisher.
func NewInMemoryDispatcher(onFailure FailureHook) Dispatcher {
	return &inMemoryDispatcher{
		registry:  registry{listeners: make(map[EventType][]EventHandler)},
		onFailure: onFailure,
	}
}

// Publish synchronously invokes handlers for the given event.
func (d *inMemoryDispatcher) Publish(ctx context.Context, event Event) error {
	for _, handler := range d.handlers(event.Type) {
		if err := handler(ctx, event); err != nil && d.onFailure != nil {
			d.onFailure(event, err)
		}
	}
	return nil
}

// AsyncDispatcher fans events out to a fixed pool of workers through a
// bounded queue. Publish never blocks; when the queue is full the event is
// dropped and reported.
type AsyncDispatcher struct {
	registry
	queue     chan Event
	workers   int
	onFailure FailureHook
	logger    *zap.Logger

	mu      sync.RWMutex
	closed  bool
	wg      sync.WaitGroup
	started sync.Once
}

// NewAsyncDispatcher builds a dispatcher; call Start before publishing.
func NewAsyncDispatcher(workers, queueSize int, logger *zap.Logger, onFailure FailureHook) *AsyncDispatcher {
	if workers <= 0 {
		workers = 1
	}
	if queueSize <= 0 {
		queueSize = 1
	}
	if logger == nil {
		logger = zap.NewNop()
	}
	return &AsyncDispatcher{
		registry:  registry{listeners: make(map[EventType][]EventHandler)},
		queue:     make(chan Event, queueSize),
		workers:   workers,
		onFailure: onFailure,
		logger:    logger,
	}
}

// Start launches the worker pool. Handlers run with ctx, detached from the
// publishing request.
func (d *AsyncDispatcher) Start(ctx context.Context) {
	d.started.Do(func() {
		for i := 0; i < d.workers; i++ {
			d.wg.Add(1)
			go d.run(ctx)
		}
	})
}

func (d *AsyncDispatcher) run(ctx context.Context) {
	defer d.wg.Done()
	for event := range d.queue {
		for _, handler := range d.handlers(event.Type) {
			d.invoke(ctx, handler, event)
		}
	}
}

func (d *AsyncDispatcher) invoke(ctx context.Context, handler EventHandler, event Event) {
	defer func() {
		if r := recover(); r != nil {
			d.logger.Error("event handler panicked", zap.String("event_type", string(event.Type)), zap.Any("panic", r))
		}
	}()
	if err := handler(ctx, event); err != nil && d.onFailure != nil {
		d.onFailure(event, err)
	}
}

// Publish enqueues event without waiting for handlers.
func (d *AsyncDispatcher) Publish(_ context.Context, event Event) error {
	d.mu.RLock()
	defer d.mu.RUnlock()
	if d.closed {
		return ErrQueueFull
	}
	select {
	case d.queue <- event:
		return nil
	default:
		d.logger.Warn("event dropped", zap.String("event_type", string(event.Type)), zap.String("subject_id", event.SubjectID))
		if d.onFailure != nil {
			d.onFailure(event, ErrQueueFull)
		}
		return ErrQueueFull
	}
}

// Close stops accepting events and waits for queued ones to be handled.
func (d *AsyncDispatcher) Close() {
	d.mu.Lock()
	if d.closed {
		d.mu.Unlock()
		return
	}
	d.closed = true
	close(d.queue)
	d.mu.Unlock()
	d.wg.Wait()
}
