//go:build !redis
// +build !redis

package eventbus

import (
	"context"
	"fmt"
	"log/slog"

	"github.com/amirasaad/tradelens/pkg/domain/events"
	"github.com/amirasaad/tradelens/pkg/eventbus"
)

// RedisBus is unavailable without the redis build tag.
type RedisBus struct{}

var _ eventbus.Bus = (*RedisBus)(nil)

// NewWithRedis always fails in builds without the redis tag.
func NewWithRedis(url, stream, group string, types map[string]func() events.Event, logger *slog.Logger) (*RedisBus, error) {
	return nil, fmt.Errorf("redis event bus: build with -tags redis to enable")
}

func (b *RedisBus) Register(eventType string, handler eventbus.HandlerFunc) {}

func (b *RedisBus) Emit(ctx context.Context, event events.Event) error {
	return fmt.Errorf("redis event bus: build with -tags redis to enable")
}
