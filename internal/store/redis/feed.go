package redis

import (
	"context"
	"fmt"

	"github.com/redis/go-redis/v9"
)

// Feed fans change announcements out over Redis pub/sub so every server
// instance can stream them to its websocket clients.
type Feed struct {
	client *redis.Client
}

func New(ctx context.Context, addr, password string, db int) (*Feed, error) {
	client := redis.NewClient(&redis.Options{
		Addr:     addr,
		Password: password,
		DB:       db,
	})

	if err := client.Ping(ctx).Err(); err != nil {
		_ = client.Close()
		return nil, fmt.Errorf("redis.New: ping: %w", err)
	}

	return &Feed{client: client}, nil
}

func (f *Feed) Close() error {
	if err := f.client.Close(); err != nil {
		return fmt.Errorf("redis.Feed.Close: %w", err)
	}
	return nil
}

func (f *Feed) Publish(ctx context.Context, channel string, payload []byte) error {
	if err := f.client.Publish(ctx, channel, payload).Err(); err != nil {
		return fmt.Errorf("redis.Feed.Publish: %w", err)
	}
	return nil
}

func (f *Feed) Subscribe(ctx context.Context, channel string) (<-chan []byte, func(), error) {
	sub := f.client.Subscribe(ctx, channel)

	// Wait for subscription confirmation.
	if _, err := sub.Receive(ctx); err != nil {
		_ = sub.Close()
		return nil, nil, fmt.Errorf("redis.Feed.Subscribe: receive confirmation: %w", err)
	}

	out := make(chan []byte, 64)
	redisCh := sub.Channel()

	go func() {
		defer close(out)
		for {
			select {
			case <-ctx.Done():
				return
			case msg, ok := <-redisCh:
				if !ok {
					return
				}
				select {
				case out <- []byte(msg.Payload):
				case <-ctx.Done():
					return
				}
			}
		}
	}()

	cleanup := func() {
		_ = sub.Close()
	}

	return out, cleanup, nil
}
