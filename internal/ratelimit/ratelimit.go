// Package ratelimit keeps short-lived counters for OTP cooldowns and failed
// verification attempts.
package ratelimit

import (
	"context"
	"errors"
	"sync"
	"time"

	"github.com/redis/go-redis/v9"
)

// Limiter counts hits per key inside a fixed window that starts on the first
// hit.
type Limiter interface {
	Hit(ctx context.Context, key string, window time.Duration) (int64, error)
	Count(ctx context.Context, key string) (int64, error)
	Reset(ctx context.Context, key string) error
}

type RedisLimiter struct {
	Redis  *redis.Client
	Prefix string
}

func NewRedisLimiter(client *redis.Client, prefix string) *RedisLimiter {
	return &RedisLimiter{Redis: client, Prefix: prefix}
}

func (r *RedisLimiter) key(k string) string {
	if r.Prefix == "" {
		return k
	}
	return r.Prefix + ":" + k
}

// Hit increments and sets the expiry in one MULTI/EXEC. EXPIRE NX also gives
// a TTL to a counter that somehow lost it, so a key never outlives its window
// by more than one window. Needs Redis 7.
func (r *RedisLimiter) Hit(ctx context.Context, key string, window time.Duration) (int64, error) {
	k := r.key(key)
	var incr *redis.IntCmd
	_, err := r.Redis.TxPipelined(ctx, func(pipe redis.Pipeliner) error {
		incr = pipe.Incr(ctx, k)
		pipe.ExpireNX(ctx, k, window)
		return nil
	})
	if err != nil {
		return 0, err
	}
	return incr.Val(), nil
}

func (r *RedisLimiter) Count(ctx context.Context, key string) (int64, error) {
	count, err := r.Redis.Get(ctx, r.key(key)).Int64()
	if errors.Is(err, redis.Nil) {
		return 0, nil
	}
	return count, err
}

func (r *RedisLimiter) Reset(ctx context.Context, key string) error {
	return r.Redis.Del(ctx, r.key(key)).Err()
}

type window struct {
	count   int64
	expires time.Time
}

// MemoryLimiter is a process-local Limiter for single-instance deployments.
type MemoryLimiter struct {
	mu      sync.Mutex
	windows map[string]window
	now     func() time.Time
}

func NewMemoryLimiter() *MemoryLimiter {
	return &MemoryLimiter{windows: make(map[string]window), now: time.Now}
}

// WithClock replaces the time source.
func (m *MemoryLimiter) WithClock(now func() time.Time) *MemoryLimiter {
	m.now = now
	return m
}

func (m *MemoryLimiter) Hit(_ context.Context, key string, d time.Duration) (int64, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	now := m.now()
	w, ok := m.windows[key]
	if !ok || !now.Before(w.expires) {
		w = window{expires: now.Add(d)}
	}
	w.count++
	m.windows[key] = w
	m.sweep(now)
	return w.count, nil
}

func (m *MemoryLimiter) Count(_ context.Context, key string) (int64, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	w, ok := m.windows[key]
	if !ok || !m.now().Before(w.expires) {
		return 0, nil
	}
	return w.count, nil
}

func (m *MemoryLimiter) Reset(_ context.Context, key string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	delete(m.windows, key)
	return nil
}

func (m *MemoryLimiter) sweep(now time.Time) {
	if len(m.windows) < 1024 {
		return
	}
	for k, w := range m.windows {
		if !now.Before(w.expires) {
			delete(m.windows, k)
		}
	}
}

var (
	_ Limiter = (*RedisLimiter)(nil)
	_ Limiter = (*MemoryLimiter)(nil)
)
