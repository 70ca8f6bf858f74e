package challenge

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/redis/go-redis/v9"
)

const redisKeyPrefix = "challenge:"

// RedisBackend stores challenges in Redis with the validity window as TTL,
// so eviction happens server-side.
type RedisBackend struct {
	client *redis.Client
}

// NewRedisBackend wraps an already-connected client.
func NewRedisBackend(client *redis.Client) *RedisBackend {
	return &RedisBackend{client: client}
}

func (b *RedisBackend) Put(ctx context.Context, ch *Challenge, ttl time.Duration) error {
	data, err := json.Marshal(ch)
	if err != nil {
		return fmt.Errorf("marshal challenge: %w", err)
	}
	return b.client.Set(ctx, redisKeyPrefix+ch.ID, data, ttl).Err()
}

func (b *RedisBackend) Get(ctx context.Context, id string) (*Challenge, error) {
	data, err := b.client.Get(ctx, redisKeyPrefix+id).Bytes()
	if errors.Is(err, redis.Nil) {
		return nil, ErrNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("redis get: %w", err)
	}
	var ch Challenge
	if err := json.Unmarshal(data, &ch); err != nil {
		// Corrupt entry; drop it rather than serve it.
		b.client.Del(ctx, redisKeyPrefix+id)
		return nil, ErrNotFound
	}
	return &ch, nil
}

// Close is a no-op; the shared client is owned by the caller.
func (b *RedisBackend) Close() error {
	return nil
}
