package progress

import (
	"context"
	"encoding/json"
	"log/slog"

	"github.com/google/uuid"
	"github.com/redis/go-redis/v9"

	"github.com/JaimeStill/caduceus/internal/protocol"
	"github.com/JaimeStill/caduceus/pkg/lifecycle"
)

type envelope struct {
	Origin string                 `json:"origin"`
	Event  protocol.ProgressEvent `json:"event"`
}

// RedisBus relays hub events between processes over a Redis channel.
// Events published by this process are skipped when they come back.
type RedisBus struct {
	client  *redis.Client
	channel string
	origin  string
	hub     *Hub
	outbox  chan protocol.ProgressEvent
	logger  *slog.Logger
}

// NewRedisBus creates a bus and installs it as the hub's forwarder.
func NewRedisBus(client *redis.Client, cfg *Config, hub *Hub, logger *slog.Logger) *RedisBus {
	b := &RedisBus{
		client:  client,
		channel: cfg.Redis.Channel,
		origin:  uuid.NewString(),
		hub:     hub,
		outbox:  make(chan protocol.ProgressEvent, cfg.BufferSize),
		logger:  logger.With("system", "progress", "bus", "redis"),
	}
	hub.SetForwarder(b.enqueue)
	return b
}

// Origin identifies this process on the channel.
func (b *RedisBus) Origin() string {
	return b.origin
}

func (b *RedisBus) enqueue(e protocol.ProgressEvent) {
	select {
	case b.outbox <- e:
	default:
		b.logger.Warn("dropping progress event; bus outbox full", "correlation_id", e.CorrelationID)
	}
}

// Start registers the publisher and the forwarder. Both run until the
// coordinator context is cancelled.
func (b *RedisBus) Start(lc *lifecycle.Coordinator) error {
	ctx := lc.Context()

	sub := b.client.Subscribe(ctx, b.channel)

	lc.OnShutdown(func() {
		b.publishLoop(ctx)
	})

	lc.OnShutdown(func() {
		b.forwardLoop(ctx, sub)
	})

	b.logger.Info("progress bus started", "channel", b.channel, "origin", b.origin)
	return nil
}

func (b *RedisBus) publishLoop(ctx context.Context) {
	for {
		select {
		case <-ctx.Done():
			return
		case e := <-b.outbox:
			payload, err := b.encode(e)
			if err != nil {
				b.logger.Warn("encode progress event failed", "error", err)
				continue
			}
			if err := b.client.Publish(ctx, b.channel, payload).Err(); err != nil {
				b.logger.Warn("publish progress event failed", "error", err)
			}
		}
	}
}

func (b *RedisBus) forwardLoop(ctx context.Context, sub *redis.PubSub) {
	defer sub.Close()

	if _, err := sub.Receive(ctx); err != nil {
		if ctx.Err() == nil {
			b.logger.Error("progress bus subscribe failed", "error", err)
		}
		return
	}

	ch := sub.Channel()
	for {
		select {
		case <-ctx.Done():
			return
		case msg, ok := <-ch:
			if !ok || msg == nil {
				return
			}
			b.handle([]byte(msg.Payload))
		}
	}
}

func (b *RedisBus) encode(e protocol.ProgressEvent) ([]byte, error) {
	return json.Marshal(envelope{Origin: b.origin, Event: e})
}

func (b *RedisBus) handle(payload []byte) {
	var env envelope
	if err := json.Unmarshal(payload, &env); err != nil {
		b.logger.Warn("bad progress payload", "error", err)
		return
	}
	if env.Origin == b.origin {
		return
	}
	b.hub.Deliver(env.Event)
}
