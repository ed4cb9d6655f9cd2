package dispatcher

import (
	"context"
	"time"

	"github.com/garyjia/trip-expense/internal/domain/event"
)

// Handler processes domain events
type Handler func(ctx context.Context, evt *event.Event) error

// HandlerObserver is told how each handler invocation ended
type HandlerObserver interface {
	ObserveHandler(eventType, handler string, elapsed time.Duration, err error)
}

// subscription is one named handler bound to an event type
type subscription struct {
	name    string
	handler Handler
}
