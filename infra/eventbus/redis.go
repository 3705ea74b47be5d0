//go:build redis
// +build redis

package eventbus

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"github.com/amirasaad/tradelens/pkg/domain/events"
	"github.com/amirasaad/tradelens/pkg/eventbus"
	"github.com/redis/go-redis/v9"
)

type envelope struct {
	Type    string          `json:"type"`
	Payload json.RawMessage `json:"payload"`
}

// RedisBus is an event bus over Redis Streams for multi-process
// deployments. Failed or unparseable events land on a dead-letter stream.
type RedisBus struct {
	client        *redis.Client
	stream        string
	group         string
	typeFactories map[string]func() events.Event
	logger        *slog.Logger
}

var _ eventbus.Bus = (*RedisBus)(nil)

// NewWithRedis creates a Redis-backed event bus. types maps event type
// names to constructors for decoding consumed payloads.
func NewWithRedis(url, stream, group string, types map[string]func() events.Event, logger *slog.Logger) (*RedisBus, error) {
	if url == "" || stream == "" || group == "" {
		return nil, fmt.Errorf("redis event bus: url, stream, and group are required")
	}
	opt, err := redis.ParseURL(url)
	if err != nil {
		return nil, fmt.Errorf("redis event bus: invalid URL: %w", err)
	}
	client := redis.NewClient(opt)
	if err := client.Ping(context.Background()).Err(); err != nil {
		return nil, fmt.Errorf("redis event bus: connection failed: %w", err)
	}

	bus := &RedisBus{
		client:        client,
		stream:        stream,
		group:         group,
		typeFactories: types,
		logger:        logger.With("bus", "redis"),
	}
	_ = client.XGroupCreateMkStream(context.Background(), stream, group, "0")
	return bus, nil
}

// Emit publishes the event to the stream.
func (b *RedisBus) Emit(ctx context.Context, event events.Event) error {
	data, err := json.Marshal(event)
	if err != nil {
		return fmt.Errorf("redis event bus: marshal failed: %w", err)
	}
	envBytes, err := json.Marshal(envelope{Type: event.Type(), Payload: data})
	if err != nil {
		return fmt.Errorf("redis event bus: envelope marshal failed: %w", err)
	}
	if _, err := b.client.XAdd(ctx, &redis.XAddArgs{
		Stream: b.stream,
		Values: map[string]any{"event": string(envBytes)},
	}).Result(); err != nil {
		return fmt.Errorf("redis event bus: emit failed: %w", err)
	}
	return nil
}

// Register starts a consumer goroutine for the event type.
func (b *RedisBus) Register(eventType string, handler eventbus.HandlerFunc) {
	consumer := fmt.Sprintf("consumer-%s-%d", eventType, time.Now().UnixNano())
	log := b.logger.With("event_type", eventType, "consumer", consumer)
	log.Info("registering handler")

	go func() {
		ctx := context.Background()
		for {
			res, err := b.client.XReadGroup(ctx, &redis.XReadGroupArgs{
				Group:    b.group,
				Consumer: consumer,
				Streams:  []string{b.stream, ">"},
				Count:    1,
				Block:    5 * time.Second,
			}).Result()
			if err != nil {
				if !errors.Is(err, redis.Nil) {
					log.Error("stream read failed", "error", err)
				}
				time.Sleep(time.Second)
				continue
			}
			for _, stream := range res {
				for _, msg := range stream.Messages {
					b.consume(ctx, eventType, handler, msg, log)
				}
			}
		}
	}()
}

func (b *RedisBus) consume(
	ctx context.Context,
	eventType string,
	handler eventbus.HandlerFunc,
	msg redis.XMessage,
	log *slog.Logger,
) {
	defer func() {
		if err := b.client.XAck(ctx, b.stream, b.group, msg.ID).Err(); err != nil {
			log.Error("ack failed", "error", err, "msg_id", msg.ID)
		}
	}()

	raw, ok := msg.Values["event"].(string)
	if !ok {
		return
	}
	var env envelope
	if err := json.Unmarshal([]byte(raw), &env); err != nil {
		log.Error("envelope unmarshal failed", "error", err)
		b.pushToDLQ(ctx, msg.Values)
		return
	}
	if env.Type != eventType {
		return
	}
	constructor, ok := b.typeFactories[env.Type]
	if !ok {
		log.Error("unknown event type")
		b.pushToDLQ(ctx, msg.Values)
		return
	}
	evt := constructor()
	if err := json.Unmarshal(env.Payload, evt); err != nil {
		log.Error("payload unmarshal failed", "error", err)
		b.pushToDLQ(ctx, msg.Values)
		return
	}

	defer func() {
		if r := recover(); r != nil {
			log.Error("handler panic recovered", "panic", r)
			b.pushToDLQ(ctx, msg.Values)
		}
	}()
	if err := handler(ctx, evt); err != nil {
		log.Error("handler failed", "error", err)
		b.pushToDLQ(ctx, msg.Values)
	}
}

func (b *RedisBus) pushToDLQ(ctx context.Context, values map[string]any) {
	dlqStream := b.stream + "-DLQ"
	if _, err := b.client.XAdd(ctx, &redis.XAddArgs{
		Stream: dlqStream,
		Values: values,
	}).Result(); err != nil {
		b.logger.Error("DLQ push failed", "error", err, "stream", dlqStream)
	}
}
