package eventbus

import (
	"context"
	"errors"
	"log/slog"
	"testing"
	"time"

	"github.com/amirasaad/tradelens/pkg/domain/events"
	"github.com/amirasaad/tradelens/pkg/eventbus"
	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestMemoryBus_DispatchesToRegisteredHandlers(t *testing.T) {
	bus := NewWithMemory(slog.Default())

	var got []events.Event
	bus.Register("AnalysisCompleted", func(ctx context.Context, e events.Event) error {
		got = append(got, e)
		return nil
	})
	bus.Register("AnalysisRefunded", func(ctx context.Context, e events.Event) error {
		t.Fatal("handler for a different type must not fire")
		return nil
	})

	event := events.AnalysisCompleted{
		UserID:    uuid.New(),
		SessionID: uuid.New(),
		Mode:      "OPPORTUNITY",
		Timestamp: time.Now(),
	}
	require.NoError(t, bus.Emit(context.Background(), event))

	require.Len(t, got, 1)
	assert.Equal(t, event, got[0])
	assert.Len(t, bus.Published(), 1)
}

func TestMemoryBus_HandlerErrorDoesNotFailEmit(t *testing.T) {
	bus := NewWithMemory(slog.Default())
	bus.Register("AnalysisRefunded", func(ctx context.Context, e events.Event) error {
		return errors.New("handler broke")
	})

	err := bus.Emit(context.Background(), events.AnalysisRefunded{UserID: uuid.New(), Amount: 1})
	assert.NoError(t, err)
}

func TestMemoryBus_MultipleHandlersAllRun(t *testing.T) {
	bus := NewWithMemory(slog.Default())
	calls := 0
	handler := eventbus.HandlerFunc(func(ctx context.Context, e events.Event) error {
		calls++
		return nil
	})
	bus.Register("AnalysisCompleted", handler)
	bus.Register("AnalysisCompleted", handler)

	require.NoError(t, bus.Emit(context.Background(), events.AnalysisCompleted{}))
	assert.Equal(t, 2, calls)
}
