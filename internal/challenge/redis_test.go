package challenge

import (
	"context"
	"testing"
	"time"

	"github.com/alicebob/miniredis/v2"
	"github.com/redis/go-redis/v9"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newRedisBackend(t *testing.T) (*RedisBackend, *miniredis.Miniredis) {
	t.Helper()
	mr := miniredis.RunT(t)
	client := redis.NewClient(&redis.Options{Addr: mr.Addr()})
	t.Cleanup(func() { client.Close() })
	return NewRedisBackend(client), mr
}

func TestRedisBackendRoundTrip(t *testing.T) {
	backend, _ := newRedisBackend(t)

	now := time.Now().Truncate(time.Second)
	ch := &Challenge{
		ID:          "abc123",
		Operation:   OpMul,
		A:           7,
		B:           9,
		Expected:    63,
		CreatedAt:   now,
		ExpiresAt:   now.Add(5 * time.Minute),
		Fingerprint: "fp",
	}
	require.NoError(t, backend.Put(context.Background(), ch, 5*time.Minute))

	got, err := backend.Get(context.Background(), "abc123")
	require.NoError(t, err)
	assert.Equal(t, ch.Expected, got.Expected)
	assert.Equal(t, ch.Operation, got.Operation)
	assert.Equal(t, ch.Fingerprint, got.Fingerprint)
}

func TestRedisBackendMiss(t *testing.T) {
	backend, _ := newRedisBackend(t)

	_, err := backend.Get(context.Background(), "missing")
	assert.ErrorIs(t, err, ErrNotFound)
}

func TestRedisBackendTTLEviction(t *testing.T) {
	backend, mr := newRedisBackend(t)

	ch := &Challenge{ID: "short", ExpiresAt: time.Now().Add(time.Minute)}
	require.NoError(t, backend.Put(context.Background(), ch, time.Minute))

	mr.FastForward(2 * time.Minute)

	_, err := backend.Get(context.Background(), "short")
	assert.ErrorIs(t, err, ErrNotFound)
}

func TestRedisBackendCorruptEntryDropped(t *testing.T) {
	backend, mr := newRedisBackend(t)

	require.NoError(t, mr.Set(redisKeyPrefix+"bad", "not json"))

	_, err := backend.Get(context.Background(), "bad")
	assert.ErrorIs(t, err, ErrNotFound)
	assert.False(t, mr.Exists(redisKeyPrefix+"bad"))
}
