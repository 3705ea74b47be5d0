// Package eventbus provides the event bus implementations: an in-memory
// bus for single-process deployments and tests, and a Redis Streams bus
// behind the redis build tag.
package eventbus

import (
	"context"
	"log/slog"
	"sync"

	"github.com/amirasaad/tradelens/pkg/domain/events"
	"github.com/amirasaad/tradelens/pkg/eventbus"
)

// MemoryBus is a synchronous in-memory event bus.
type MemoryBus struct {
	handlers  map[string][]eventbus.HandlerFunc
	mu        sync.RWMutex
	logger    *slog.Logger
	published []events.Event
}

var _ eventbus.Bus = (*MemoryBus)(nil)

// NewWithMemory creates an in-memory event bus.
func NewWithMemory(logger *slog.Logger) *MemoryBus {
	return &MemoryBus{
		handlers: make(map[string][]eventbus.HandlerFunc),
		logger:   logger.With("bus", "memory"),
	}
}

// Register registers a handler for an event type.
func (b *MemoryBus) Register(eventType string, handler eventbus.HandlerFunc) {
	b.mu.Lock()
	defer b.mu.Unlock()
	b.handlers[eventType] = append(b.handlers[eventType], handler)
}

// Emit dispatches the event to all handlers registered for its type.
// Handler errors are logged, not propagated; emitting is fire and forget
// from the caller's perspective.
func (b *MemoryBus) Emit(ctx context.Context, event events.Event) error {
	b.mu.RLock()
	handlers := append([]eventbus.HandlerFunc{}, b.handlers[event.Type()]...)
	b.mu.RUnlock()

	b.mu.Lock()
	b.published = append(b.published, event)
	b.mu.Unlock()

	for _, handler := range handlers {
		if err := handler(ctx, event); err != nil {
			b.logger.Error("event handler failed", "type", event.Type(), "error", err)
		}
	}
	return nil
}

// Published returns every event emitted so far. Useful for tests.
func (b *MemoryBus) Published() []events.Event {
	b.mu.RLock()
	defer b.mu.RUnlock()
	out := make([]events.Event, len(b.published))
	copy(out, b.published)
	return out
}
