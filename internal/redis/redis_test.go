package redis

import (
	"context"
	"os"
	"testing"
	"time"

	"github.com/redis/go-redis/v9"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func testClient(t *testing.T) *redis.Client {
	addr := os.Getenv("REDIS_TEST_ADDR")
	if addr == "" {
		t.Skip("REDIS_TEST_ADDR not set")
	}
	c := redis.NewClient(&redis.Options{Addr: addr})
	require.NoError(t, c.Ping(context.Background()).Err())
	t.Cleanup(func() { _ = c.Close() })
	return c
}

func TestLockerReleaseKeepsOtherHoldersLock(t *testing.T) {
	c := testClient(t)
	ctx := context.Background()
	locker := NewLocker(c)
	key := "test:lock:" + t.Name()
	t.Cleanup(func() { c.Del(ctx, key) })

	acquired, err := locker.Acquire(ctx, key, "first", 50*time.Millisecond)
	require.NoError(t, err)
	require.True(t, acquired)

	acquired, err = locker.Acquire(ctx, key, "second", time.Minute)
	require.NoError(t, err)
	assert.False(t, acquired)

	// first outlives its TTL and second takes over
	time.Sleep(100 * time.Millisecond)
	acquired, err = locker.Acquire(ctx, key, "second", time.Minute)
	require.NoError(t, err)
	require.True(t, acquired)

	assert.ErrorIs(t, locker.Release(ctx, key, "first"), ErrLockNotHeld)
	value, err := c.Get(ctx, key).Result()
	require.NoError(t, err)
	assert.Equal(t, "second", value)

	require.NoError(t, locker.Release(ctx, key, "second"))
	assert.Zero(t, c.Exists(ctx, key).Val())
}
