package messaging

import (
	"context"

	"github.com/redis/go-redis/v9"
)

// GoRedisAdapter adapts a go-redis client to the RedisClient interface used
// by RedisEventBus.
type GoRedisAdapter struct {
	client *redis.Client
}

// NewGoRedisAdapter creates a new adapter around an existing client.
func NewGoRedisAdapter(client *redis.Client) *GoRedisAdapter {
	return &GoRedisAdapter{client: client}
}

// Publish sends a message to the channel.
func (a *GoRedisAdapter) Publish(ctx context.Context, channel string, message interface{}) error {
	return a.client.Publish(ctx, channel, message).Err()
}

// Subscribe opens a subscription and bridges it onto a RedisMessage channel.
// The returned channel closes when ctx is cancelled.
func (a *GoRedisAdapter) Subscribe(ctx context.Context, channels ...string) (<-chan RedisMessage, error) {
	sub := a.client.Subscribe(ctx, channels...)

	// Force the subscription to be established before returning.
	if _, err := sub.Receive(ctx); err != nil {
		_ = sub.Close()
		return nil, err
	}

	out := make(chan RedisMessage)
	go func() {
		defer close(out)
		defer sub.Close()

		ch := sub.Channel()
		for {
			select {
			case <-ctx.Done():
				return
			case msg, ok := <-ch:
				if !ok {
					return
				}
				out <- RedisMessage{Channel: msg.Channel, Payload: msg.Payload}
			}
		}
	}()

	return out, nil
}

// Close closes the underlying client.
func (a *GoRedisAdapter) Close() error {
	return a.client.Close()
}
