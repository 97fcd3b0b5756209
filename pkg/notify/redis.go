// Package notify delivers booking change events to external consumers
package notify

import (
	"context"
	"encoding/json"
	"fmt"

	"github.com/redis/go-redis/v9"

	"github.com/jakechorley/volunteer-booking/pkg/core/booking"
)

// RedisPublisher publishes change events as JSON on a Redis channel
type RedisPublisher struct {
	client  redis.Cmdable
	channel string
}

var _ booking.Notifier = (*RedisPublisher)(nil)

func NewRedisPublisher(client redis.Cmdable, channel string) *RedisPublisher {
	return &RedisPublisher{client: client, channel: channel}
}

// Notify publishes the event
func (p *RedisPublisher) Notify(ctx context.Context, event booking.ChangeEvent) error {
	data, err := json.Marshal(event)
	if err != nil {
		return fmt.Errorf("failed to marshal change event: %w", err)
	}

	if err := p.client.Publish(ctx, p.channel, data).Err(); err != nil {
		return fmt.Errorf("failed to publish change event: %w", err)
	}
	return nil
}
