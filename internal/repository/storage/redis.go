package storage

import (
	"context"
	"errors"
	"fmt"

	"github.com/google/uuid"
	"github.com/redis/go-redis/v9"
)

// RedisBackend stores payloads in Redis and relays cross instance writes over
// pub/sub. Every write publishes the writer's instance id on the key's events
// channel so a watcher can skip its own echoes.
type RedisBackend struct {
	client     *redis.Client
	instanceID string
}

func NewRedisBackend(ctx context.Context, addr string) (*RedisBackend, error) {
	client := redis.NewClient(&redis.Options{
		Addr: addr,
	})

	if _, err := client.Ping(ctx).Result(); err != nil {
		return nil, fmt.Errorf("failed to connect to Redis: %w", err)
	}

	return &RedisBackend{
		client:     client,
		instanceID: uuid.NewString(),
	}, nil
}

func (that *RedisBackend) Get(ctx context.Context, key string) (string, error) {
	value, err := that.client.Get(ctx, key).Result()

	if errors.Is(err, redis.Nil) {
		return "", ErrKeyNotFound
	}

	if err != nil {
		return "", fmt.Errorf("failed to get key %q: %w", key, err)
	}

	return value, nil
}

func (that *RedisBackend) Set(ctx context.Context, key, value string) error {
	if err := that.client.Set(ctx, key, value, 0).Err(); err != nil {
		return fmt.Errorf("failed to set key %q: %w", key, err)
	}

	if err := that.client.Publish(ctx, eventsChannel(key), that.instanceID).Err(); err != nil {
		return fmt.Errorf("failed to publish write event: %w", err)
	}

	return nil
}

func (that *RedisBackend) Watch(ctx context.Context, key string) (<-chan struct{}, func()) {
	pubsub := that.client.Subscribe(ctx, eventsChannel(key))
	events := make(chan struct{}, 1)

	go func() {
		defer close(events)

		for message := range pubsub.Channel() {
			if message.Payload == that.instanceID {
				continue
			}

			select {
			case events <- struct{}{}:
			default:
			}
		}
	}()

	cancel := func() {
		_ = pubsub.Close()
	}

	return events, cancel
}

func (that *RedisBackend) Close() error {
	return that.client.Close()
}

func eventsChannel(key string) string {
	return key + ":events"
}
