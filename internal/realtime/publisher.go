package realtime

import (
	"context"
	"encoding/json"
	"fmt"

	"github.com/redis/go-redis/v9"
)

// ChannelPrefix is the Redis channel namespace for task events. Each user
// has its own channel.
const ChannelPrefix = "taskflow:events:"

// ChannelFor returns the Redis channel of userID.
func ChannelFor(userID string) string {
	return ChannelPrefix + userID
}

// Publisher hands an event to the delivery layer.
type Publisher interface {
	Publish(ctx context.Context, ev Event) error
}

// RedisPublisher publishes events on the owner's Redis channel.
type RedisPublisher struct {
	client *redis.Client
}

// NewRedisPublisher creates a publisher on client.
func NewRedisPublisher(client *redis.Client) *RedisPublisher {
	return &RedisPublisher{client: client}
}

// Publish encodes ev as JSON and publishes it.
func (p *RedisPublisher) Publish(ctx context.Context, ev Event) error {
	if ev.OwnerID == "" {
		return fmt.Errorf("publish %s: missing owner", ev.Type)
	}
	data, err := json.Marshal(ev)
	if err != nil {
		return fmt.Errorf("marshal event: %w", err)
	}
	if err := p.client.Publish(ctx, ChannelFor(ev.OwnerID), data).Err(); err != nil {
		return fmt.Errorf("publish event: %w", err)
	}
	return nil
}

var (
	_ Publisher = (*RedisPublisher)(nil)
	_ Publisher = (*Hub)(nil)
)
