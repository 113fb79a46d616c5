package ratelimit

import (
	"context"
	"testing"
	"time"

	"github.com/alicebob/miniredis/v2"
	"github.com/redis/go-redis/v9"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestRedisLimiterWindow(t *testing.T) {
	mr := miniredis.RunT(t)
	client := redis.NewClient(&redis.Options{Addr: mr.Addr()})
	t.Cleanup(func() { _ = client.Close() })

	ctx := context.Background()
	l := NewRedisLimiter(client, "test")

	for i := int64(1); i <= 3; i++ {
		n, err := l.Hit(ctx, "otp_fail:+94771234567", time.Minute)
		require.NoError(t, err)
		assert.Equal(t, i, n)
	}
	n, err := l.Count(ctx, "otp_fail:+94771234567")
	require.NoError(t, err)
	assert.EqualValues(t, 3, n)
	assert.True(t, mr.Exists("test:otp_fail:+94771234567"))
	assert.Equal(t, time.Minute, mr.TTL("test:otp_fail:+94771234567"))

	mr.FastForward(time.Minute + time.Second)
	n, err = l.Count(ctx, "otp_fail:+94771234567")
	require.NoError(t, err)
	assert.Zero(t, n)
}

func TestRedisLimiterSetsTTLOnFirstHit(t *testing.T) {
	mr := miniredis.RunT(t)
	client := redis.NewClient(&redis.Options{Addr: mr.Addr()})
	t.Cleanup(func() { _ = client.Close() })

	ctx := context.Background()
	l := NewRedisLimiter(client, "")

	n, err := l.Hit(ctx, "otp_cooldown:+94771234567", time.Minute)
	require.NoError(t, err)
	assert.EqualValues(t, 1, n)
	assert.Equal(t, time.Minute, mr.TTL("otp_cooldown:+94771234567"))

	// later hits keep the original deadline
	mr.FastForward(20 * time.Second)
	_, err = l.Hit(ctx, "otp_cooldown:+94771234567", time.Minute)
	require.NoError(t, err)
	assert.Equal(t, 40*time.Second, mr.TTL("otp_cooldown:+94771234567"))
}

func TestRedisLimiterHealsCounterWithoutTTL(t *testing.T) {
	mr := miniredis.RunT(t)
	client := redis.NewClient(&redis.Options{Addr: mr.Addr()})
	t.Cleanup(func() { _ = client.Close() })

	ctx := context.Background()
	l := NewRedisLimiter(client, "")
	require.NoError(t, mr.Set("otp_failures:+94771234567", "7"))
	require.Zero(t, mr.TTL("otp_failures:+94771234567"))

	n, err := l.Hit(ctx, "otp_failures:+94771234567", 10*time.Minute)
	require.NoError(t, err)
	assert.EqualValues(t, 8, n)
	assert.Equal(t, 10*time.Minute, mr.TTL("otp_failures:+94771234567"))

	mr.FastForward(10*time.Minute + time.Second)
	assert.False(t, mr.Exists("otp_failures:+94771234567"))
}

func TestRedisLimiterReset(t *testing.T) {
	mr := miniredis.RunT(t)
	client := redis.NewClient(&redis.Options{Addr: mr.Addr()})
	t.Cleanup(func() { _ = client.Close() })

	ctx := context.Background()
	l := NewRedisLimiter(client, "")

	_, err := l.Hit(ctx, "k", time.Minute)
	require.NoError(t, err)
	require.NoError(t, l.Reset(ctx, "k"))

	n, err := l.Count(ctx, "k")
	require.NoError(t, err)
	assert.Zero(t, n)
}

func TestMemoryLimiterWindow(t *testing.T) {
	now := time.Date(2024, 5, 1, 12, 0, 0, 0, time.UTC)
	l := NewMemoryLimiter().WithClock(func() time.Time { return now })
	ctx := context.Background()

	n, _ := l.Hit(ctx, "k", time.Minute)
	assert.EqualValues(t, 1, n)
	n, _ = l.Hit(ctx, "k", time.Minute)
	assert.EqualValues(t, 2, n)

	now = now.Add(59 * time.Second)
	n, _ = l.Count(ctx, "k")
	assert.EqualValues(t, 2, n)

	now = now.Add(time.Second)
	n, _ = l.Count(ctx, "k")
	assert.Zero(t, n)
	n, _ = l.Hit(ctx, "k", time.Minute)
	assert.EqualValues(t, 1, n)

	require.NoError(t, l.Reset(ctx, "k"))
	n, _ = l.Count(ctx, "k")
	assert.Zero(t, n)
}
