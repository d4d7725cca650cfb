package ratelimit

import (
	"context"
	"testing"
	"time"

	"github.com/alicebob/miniredis/v2"
	redis "github.com/redis/go-redis/v9"
	"github.com/smallbiznis/invoicer/internal/config"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
)

func newRedis(t *testing.T) (*miniredis.Miniredis, redis.UniversalClient) {
	t.Helper()
	srv := miniredis.RunT(t)
	client := redis.NewClient(&redis.Options{Addr: srv.Addr()})
	t.Cleanup(func() { _ = client.Close() })
	return srv, client
}

func TestLockerIsExclusiveUntilReleased(t *testing.T) {
	_, client := newRedis(t)
	locker := NewLocker(client)
	ctx := context.Background()

	token, ok, err := locker.TryLock(ctx, "invoice-number:1:2025", time.Second)
	require.NoError(t, err)
	require.True(t, ok)

	_, ok, err = locker.TryLock(ctx, "invoice-number:1:2025", time.Second)
	require.NoError(t, err)
	assert.False(t, ok)

	// a stale token must not unlock
	require.NoError(t, locker.Release(ctx, "invoice-number:1:2025", "other"))
	_, ok, err = locker.TryLock(ctx, "invoice-number:1:2025", time.Second)
	require.NoError(t, err)
	assert.False(t, ok)

	require.NoError(t, locker.Release(ctx, "invoice-number:1:2025", token))
	_, ok, err = locker.TryLock(ctx, "invoice-number:1:2025", time.Second)
	require.NoError(t, err)
	assert.True(t, ok)
}

func TestLockerExpires(t *testing.T) {
	srv, client := newRedis(t)
	locker := NewLocker(client)
	ctx := context.Background()

	_, ok, err := locker.TryLock(ctx, "k", time.Second)
	require.NoError(t, err)
	require.True(t, ok)

	srv.FastForward(2 * time.Second)
	_, ok, err = locker.TryLock(ctx, "k", time.Second)
	require.NoError(t, err)
	assert.True(t, ok)
}

func TestLockerValidation(t *testing.T) {
	_, client := newRedis(t)
	locker := NewLocker(client)

	_, _, err := locker.TryLock(context.Background(), "", time.Second)
	assert.Error(t, err)
	_, _, err = locker.TryLock(context.Background(), "k", 0)
	assert.Error(t, err)

	var unset *Locker
	_, _, err = unset.TryLock(context.Background(), "k", time.Second)
	assert.Error(t, err)
}

func TestTokenBucketRefills(t *testing.T) {
	srv, client := newRedis(t)
	now := time.Date(2025, 3, 10, 9, 0, 0, 0, time.UTC)
	srv.SetTime(now)
	bucket := NewTokenBucket(client)
	ctx := context.Background()

	for i := 0; i < 2; i++ {
		res, err := bucket.Allow(ctx, "ip", 1, 2)
		require.NoError(t, err)
		assert.True(t, res.Allowed, "request %d", i)
	}

	res, err := bucket.Allow(ctx, "ip", 1, 2)
	require.NoError(t, err)
	assert.False(t, res.Allowed)
	assert.Equal(t, time.Second, res.RetryAfter)

	srv.SetTime(now.Add(time.Second))
	res, err = bucket.Allow(ctx, "ip", 1, 2)
	require.NoError(t, err)
	assert.True(t, res.Allowed)
}

func TestLimiterFailsOpen(t *testing.T) {
	srv, client := newRedis(t)
	cfg := config.Config{Redis: config.RedisConfig{Addr: srv.Addr(), RateLimit: 1, Burst: 1}}
	limiter := NewLimiter(cfg, client, zap.NewNop())
	require.True(t, limiter.Enabled())

	ok, _ := limiter.Allow(context.Background(), "api", "10.0.0.1")
	assert.True(t, ok)
	ok, wait := limiter.Allow(context.Background(), "api", "10.0.0.1")
	assert.False(t, ok)
	assert.Positive(t, wait)

	ok, _ = limiter.Allow(context.Background(), "auth", "10.0.0.1")
	assert.True(t, ok)

	srv.Close()
	ok, _ = limiter.Allow(context.Background(), "api", "10.0.0.1")
	assert.True(t, ok)
}

func TestLimiterDisabledWithoutRedis(t *testing.T) {
	limiter := NewLimiter(config.Config{}, nil, zap.NewNop())
	assert.False(t, limiter.Enabled())
	ok, _ := limiter.Allow(context.Background(), "api", "x")
	assert.True(t, ok)

	_, ok, err := NoopLocker{}.TryLock(context.Background(), "k", time.Second)
	require.NoError(t, err)
	assert.True(t, ok)
}
