package events

import (
	"context"
	"encoding/json"
	"fmt"

	"github.com/redis/go-redis/v9"
)

// RedisPublisher forwards events to a Redis pub/sub channel.
type RedisPublisher struct {
	client  *redis.Client
	channel string
}

// NewRedisPublisher builds a publisher writing to "<prefix>:events".
func NewRedisPublisher(client *redis.Client, prefix string) *RedisPublisher {
	return &RedisPublisher{client: client, channel: ChannelName(prefix)}
}

// ChannelName returns the pub/sub channel for a prefix.
func ChannelName(prefix string) string {
	if prefix == "" {
		return "events"
	}
	return prefix + ":events"
}

// Channel returns the channel name events are published on.
func (p *RedisPublisher) Channel() string {
	return p.channel
}

// Handle publishes the event as JSON. It matches EventHandler.
func (p *RedisPublisher) Handle(ctx context.Context, event Event) error {
	body, err := json.Marshal(event)
	if err != nil {
		return fmt.Errorf("encode event: %w", err)
	}
	if err := p.client.Publish(ctx, p.channel, body).Err(); err != nil {
		return fmt.Errorf("publish %s: %w", event.Type, err)
	}
	return nil
}
