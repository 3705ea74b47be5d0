// Package eventbus defines the contract for publishing and subscribing to
// domain events.
package eventbus

import (
	"context"

	"github.com/amirasaad/tradelens/pkg/domain/events"
)

// HandlerFunc consumes one event. Handlers must be safe for concurrent use.
type HandlerFunc func(ctx context.Context, event events.Event) error

// Bus is the event transport. The in-memory implementation dispatches
// synchronously; the Redis implementation (build tag "redis") dispatches via
// streams.
type Bus interface {
	// Emit dispatches the event to all handlers registered for its type.
	Emit(ctx context.Context, event events.Event) error
	// Register adds a handler for a specific event type.
	Register(eventType string, handler HandlerFunc)
}
