package dispatcher

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"sync/atomic"
	"time"

	"github.com/garyjia/trip-expense/internal/domain/event"
)

// ErrClosed is returned by Dispatch after Close
var ErrClosed = errors.New("dispatcher is closed")

// Publisher is the fire-and-forget side of the dispatcher used by application services
type Publisher interface {
	// DispatchAsync hands evt to its handlers without waiting for them
	DispatchAsync(ctx context.Context, evt *event.Event)
}

// Dispatcher routes events to registered handlers
type Dispatcher interface {
	Publisher

	// Subscribe registers one named handler for each of eventTypes
	// Subscribe panics on an event type outside event.Types
	Subscribe(eventTypes []event.Type, name string, handler Handler)

	// Dispatch runs the handlers of evt in registration order and stops at the first error
	Dispatch(ctx context.Context, evt *event.Event) error

	// Handlers returns the handler names registered for eventType
	Handlers(eventType event.Type) []string

	// Close rejects new events and waits for running async handlers
	Close() error
}

// Logger interface for minimal logging dependency
type Logger interface {
	Info(msg string, keysAndValues ...interface{})
	Error(msg string, keysAndValues ...interface{})
}

type nopLogger struct{}

func (nopLogger) Info(string, ...interface{})  {}
func (nopLogger) Error(string, ...interface{}) {}

// eventDispatcher is the concrete implementation of Dispatcher
type eventDispatcher struct {
	mu       sync.RWMutex
	handlers map[event.Type][]subscription

	logger   Logger
	observer HandlerObserver
	timeout  time.Duration

	// lifecycle orders the closed flag against wg.Add so Close never waits on a
	// group that is still growing
	lifecycle sync.Mutex
	wg        sync.WaitGroup
	closed    atomic.Bool
}

// Option configures the dispatcher
type Option func(*eventDispatcher)

// WithLogger sets a logger for the dispatcher
func WithLogger(logger Logger) Option {
	return func(d *eventDispatcher) {
		d.logger = logger
	}
}

// WithHandlerObserver reports every handler outcome to observer
func WithHandlerObserver(observer HandlerObserver) Option {
	return func(d *eventDispatcher) {
		d.observer = observer
	}
}

// WithHandlerTimeout bounds each async handler run; zero means no bound
func WithHandlerTimeout(timeout time.Duration) Option {
	return func(d *eventDispatcher) {
		d.timeout = timeout
	}
}

// NewDispatcher creates a new event dispatcher
func NewDispatcher(opts ...Option) Dispatcher {
	d := &eventDispatcher{
		handlers: make(map[event.Type][]subscription),
		logger:   nopLogger{},
	}

	for _, opt := range opts {
		opt(d)
	}

	return d
}

// Subscribe registers one named handler for each of eventTypes
func (d *eventDispatcher) Subscribe(eventTypes []event.Type, name string, handler Handler) {
	d.mu.Lock()
	defer d.mu.Unlock()

	for _, eventType := range eventTypes {
		if !eventType.IsValid() {
			panic(fmt.Sprintf("dispatcher: %s subscribed to unknown event type %q", name, eventType))
		}
		d.handlers[eventType] = append(d.handlers[eventType], subscription{name: name, handler: handler})
	}

	d.logger.Info("Handler registered", "handler_name", name, "event_types", len(eventTypes))
}

// Handlers returns the handler names registered for eventType
func (d *eventDispatcher) Handlers(eventType event.Type) []string {
	d.mu.RLock()
	defer d.mu.RUnlock()

	names := make([]string, 0, len(d.handlers[eventType]))
	for _, s := range d.handlers[eventType] {
		names = append(names, s.name)
	}
	return names
}

func (d *eventDispatcher) subscriptions(eventType event.Type) []subscription {
	d.mu.RLock()
	defer d.mu.RUnlock()
	return append([]subscription(nil), d.handlers[eventType]...)
}

// Dispatch sends event to all registered handlers synchronously
func (d *eventDispatcher) Dispatch(ctx context.Context, evt *event.Event) error {
	if d.closed.Load() {
		return ErrClosed
	}

	for _, sub := range d.subscriptions(evt.Type) {
		if err := d.run(ctx, evt, sub); err != nil {
			return fmt.Errorf("handler %s failed: %w", sub.name, err)
		}
	}

	return nil
}

// DispatchAsync runs each handler on its own goroutine. Handlers outlive the
// request that raised the event, so the caller's cancellation is dropped.
func (d *eventDispatcher) DispatchAsync(ctx context.Context, evt *event.Event) {
	d.lifecycle.Lock()
	if d.closed.Load() {
		d.lifecycle.Unlock()
		d.logger.Error("Dropping event, dispatcher is closed",
			"event_type", evt.Type,
			"event_id", evt.ID,
		)
		return
	}
	subs := d.subscriptions(evt.Type)
	d.wg.Add(len(subs))
	d.lifecycle.Unlock()

	ctx = context.WithoutCancel(ctx)
	for _, sub := range subs {
		go func(sub subscription) {
			defer d.wg.Done()

			runCtx := ctx
			if d.timeout > 0 {
				var cancel context.CancelFunc
				runCtx, cancel = context.WithTimeout(ctx, d.timeout)
				defer cancel()
			}
			_ = d.run(runCtx, evt, sub)
		}(sub)
	}
}

// Close shuts down the dispatcher and waits for async handlers to complete
func (d *eventDispatcher) Close() error {
	d.lifecycle.Lock()
	if !d.closed.CompareAndSwap(false, true) {
		d.lifecycle.Unlock()
		return ErrClosed
	}
	d.lifecycle.Unlock()

	d.logger.Info("Closing dispatcher, waiting for async handlers")
	d.wg.Wait()
	d.logger.Info("Dispatcher closed")

	return nil
}

// run executes one handler with panic recovery, logging and observation
func (d *eventDispatcher) run(ctx context.Context, evt *event.Event, sub subscription) (err error) {
	start := time.Now()
	defer func() {
		if r := recover(); r != nil {
			err = fmt.Errorf("handler panic: %v", r)
		}
		if err != nil {
			d.logger.Error("Event handler failed",
				"event_type", evt.Type,
				"event_id", evt.ID,
				"correlation_id", evt.CorrelationID,
				"handler_name", sub.name,
				"error", err,
			)
		}
		if d.observer != nil {
			d.observer.ObserveHandler(string(evt.Type), sub.name, time.Since(start), err)
		}
	}()

	return sub.handler(ctx, evt)
}
