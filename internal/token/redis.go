package token

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/redis/go-redis/v9"
)

const redisKeyPrefix = "token:"

// RedisBackend stores token payloads in Redis with the validity window as
// TTL, so expired tokens disappear without a sweep.
type RedisBackend struct {
	client *redis.Client
}

// NewRedisBackend wraps an already-connected client.
func NewRedisBackend(client *redis.Client) *RedisBackend {
	return &RedisBackend{client: client}
}

func (b *RedisBackend) Put(ctx context.Context, key string, tok *Token, ttl time.Duration) error {
	data, err := json.Marshal(tok)
	if err != nil {
		return fmt.Errorf("marshal token: %w", err)
	}
	return b.client.Set(ctx, redisKeyPrefix+key, data, ttl).Err()
}

func (b *RedisBackend) Get(ctx context.Context, key string) (*Token, error) {
	data, err := b.client.Get(ctx, redisKeyPrefix+key).Bytes()
	if errors.Is(err, redis.Nil) {
		return nil, ErrNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("redis get: %w", err)
	}
	var tok Token
	if err := json.Unmarshal(data, &tok); err != nil {
		b.client.Del(ctx, redisKeyPrefix+key)
		return nil, ErrNotFound
	}
	tok.Value = key
	return &tok, nil
}

// Close is a no-op; the shared client is owned by the caller.
func (b *RedisBackend) Close() error {
	return nil
}
