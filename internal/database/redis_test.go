package database

import (
	"context"
	"testing"
	"time"

	"github.com/alicebob/miniredis/v2"
	"github.com/redis/go-redis/v9"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newTestRedis(t *testing.T) (*RedisClient, *miniredis.Miniredis) {
	t.Helper()
	mr := miniredis.RunT(t)
	client := redis.NewClient(&redis.Options{Addr: mr.Addr()})
	return &RedisClient{Client: client}, mr
}

func TestRedisClient_AcquireRunLock(t *testing.T) {
	rc, _ := newTestRedis(t)
	ctx := context.Background()

	ok, err := rc.AcquireRunLock(ctx, "UBL", "run-1", time.Minute)
	require.NoError(t, err)
	assert.True(t, ok)

	// Second run cannot take the same symbol while the lock is held.
	ok, err = rc.AcquireRunLock(ctx, "UBL", "run-2", time.Minute)
	require.NoError(t, err)
	assert.False(t, ok)

	// Other symbols are independent.
	ok, err = rc.AcquireRunLock(ctx, "PSO", "run-2", time.Minute)
	require.NoError(t, err)
	assert.True(t, ok)
}

func TestRedisClient_ReleaseRunLock(t *testing.T) {
	rc, _ := newTestRedis(t)
	ctx := context.Background()

	ok, err := rc.AcquireRunLock(ctx, "UBL", "run-1", time.Minute)
	require.NoError(t, err)
	require.True(t, ok)

	require.NoError(t, rc.ReleaseRunLock(ctx, "UBL", "run-1"))

	ok, err = rc.AcquireRunLock(ctx, "UBL", "run-2", time.Minute)
	require.NoError(t, err)
	assert.True(t, ok)
}

func TestRedisClient_ReleaseRunLock_NotOwner(t *testing.T) {
	rc, mr := newTestRedis(t)
	ctx := context.Background()

	ok, err := rc.AcquireRunLock(ctx, "UBL", "run-1", time.Minute)
	require.NoError(t, err)
	require.True(t, ok)

	// A different run's release must not drop someone else's lock.
	require.NoError(t, rc.ReleaseRunLock(ctx, "UBL", "run-2"))
	assert.True(t, mr.Exists("pipeline:lock:UBL"))
}

func TestRedisClient_RunLockExpires(t *testing.T) {
	rc, mr := newTestRedis(t)
	ctx := context.Background()

	ok, err := rc.AcquireRunLock(ctx, "UBL", "run-1", time.Minute)
	require.NoError(t, err)
	require.True(t, ok)

	mr.FastForward(2 * time.Minute)

	ok, err = rc.AcquireRunLock(ctx, "UBL", "run-2", time.Minute)
	require.NoError(t, err)
	assert.True(t, ok)
}

func TestRedisClient_SetGetDelete(t *testing.T) {
	rc, _ := newTestRedis(t)
	ctx := context.Background()

	require.NoError(t, rc.Set(ctx, SignalCacheKey("UBL"), `{"direction":"BUY"}`, 0))

	val, err := rc.Get(ctx, SignalCacheKey("UBL"))
	require.NoError(t, err)
	assert.Equal(t, `{"direction":"BUY"}`, val)

	require.NoError(t, rc.Delete(ctx, SignalCacheKey("UBL")))
	_, err = rc.Get(ctx, SignalCacheKey("UBL"))
	assert.Error(t, err)
}

func TestRedisClient_HealthCheck(t *testing.T) {
	rc, mr := newTestRedis(t)

	require.NoError(t, rc.HealthCheck(context.Background()))

	mr.Close()
	assert.Error(t, rc.HealthCheck(context.Background()))
}
