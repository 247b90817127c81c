package notify

import (
	"context"
	"fmt"
	"log/slog"
	"strings"

	"github.com/redis/go-redis/v9"
)

// RedisPublisher publishes events on prefixed Redis pub/sub channels,
// one channel per event type.
type RedisPublisher struct {
	client        *redis.Client
	channelPrefix string
	logger        *slog.Logger
}

// NewRedisPublisher creates a publisher with its own Redis client.
func NewRedisPublisher(addr, password string, db int, channelPrefix string, logger *slog.Logger) *RedisPublisher {
	client := redis.NewClient(&redis.Options{
		Addr:     addr,
		Password: password,
		DB:       db,
	})
	return NewRedisPublisherWithClient(client, channelPrefix, logger)
}

// NewRedisPublisherWithClient wraps an existing client.
func NewRedisPublisherWithClient(client *redis.Client, channelPrefix string, logger *slog.Logger) *RedisPublisher {
	if logger == nil {
		logger = slog.Default()
	}
	return &RedisPublisher{
		client:        client,
		channelPrefix: channelPrefix,
		logger:        logger,
	}
}

// Name implements Publisher.
func (p *RedisPublisher) Name() string { return "redis" }

// HealthCheck verifies Redis connectivity.
func (p *RedisPublisher) HealthCheck(ctx context.Context) error {
	return p.client.Ping(ctx).Err()
}

// Close shuts down the Redis client.
func (p *RedisPublisher) Close() error {
	return p.client.Close()
}

// Publish sends an event to the channel for its type.
func (p *RedisPublisher) Publish(ctx context.Context, event *Event) error {
	channel := p.ChannelFor(event.Type)
	data, err := event.Marshal()
	if err != nil {
		return fmt.Errorf("marshal event: %w", err)
	}

	if err := p.client.Publish(ctx, channel, data).Err(); err != nil {
		return fmt.Errorf("publish to %s: %w", channel, err)
	}

	p.logger.Debug("published event",
		"event_type", event.Type,
		"channel", channel,
		"id", event.ID,
	)
	return nil
}

// Subscribe delivers events of the given types to handler until ctx is
// cancelled. Undecodable messages are logged and skipped.
func (p *RedisPublisher) Subscribe(ctx context.Context, handler func(*Event), eventTypes ...string) error {
	if len(eventTypes) == 0 {
		return fmt.Errorf("subscribe: no event types")
	}
	channels := make([]string, len(eventTypes))
	for i, t := range eventTypes {
		channels[i] = p.ChannelFor(t)
	}
	pubsub := p.client.Subscribe(ctx, channels...)
	defer pubsub.Close()

	// Wait for the subscription to be confirmed before reading.
	if _, err := pubsub.Receive(ctx); err != nil {
		return fmt.Errorf("subscribe to %s: %w", strings.Join(channels, ","), err)
	}

	ch := pubsub.Channel()
	for {
		select {
		case <-ctx.Done():
			return nil
		case msg, ok := <-ch:
			if !ok {
				return nil
			}
			event, err := UnmarshalEvent([]byte(msg.Payload))
			if err != nil {
				p.logger.Warn("dropping undecodable event", "channel", msg.Channel, "error", err)
				continue
			}
			handler(event)
		}
	}
}

// ChannelFor maps an event type to a Redis channel name.
func (p *RedisPublisher) ChannelFor(eventType string) string {
	return p.channelPrefix + ":" + eventType
}
