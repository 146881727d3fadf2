package hub

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"github.com/redis/go-redis/v9"

	"navhunter/internal/entity"
)

// RedisSink mirrors the event stream onto a Redis pub/sub channel for
// subscribers that cannot reach the direct SSE transport.
type RedisSink struct {
	client  *redis.Client
	channel string
}

// NewRedisSink creates a relay sink publishing to the given channel.
func NewRedisSink(client *redis.Client, channel string) *RedisSink {
	return &RedisSink{client: client, channel: channel}
}

// Deliver publishes the event as JSON. A relay failure is reported to
// the hub but never affects the direct transport.
func (s *RedisSink) Deliver(event entity.Event) error {
	payload, err := json.Marshal(event)
	if err != nil {
		return fmt.Errorf("failed to marshal event: %w", err)
	}

	ctx, cancel := context.WithTimeout(context.Background(), 2*time.Second)
	defer cancel()

	if err := s.client.Publish(ctx, s.channel, payload).Err(); err != nil {
		return fmt.Errorf("failed to publish event to redis: %w", err)
	}
	return nil
}

// Close is a no-op; the Redis client is owned by the caller.
func (s *RedisSink) Close() error {
	return nil
}
