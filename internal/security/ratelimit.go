package security

import (
	"context"
	"fmt"
	"time"

	"github.com/redis/go-redis/v9"
)

// Counter is a shared TTL counter: Incr returns the count within the current
// window for a key. Backed by Redis so limits hold across server instances
// (an in-process map would reset per instance and defeat the limit under
// horizontal scaling).
type Counter interface {
	Incr(ctx context.Context, key string, window time.Duration) (int64, error)
}

// RedisCounter implements Counter with INCR + first-write EXPIRE.
type RedisCounter struct {
	client *redis.Client
}

// NewRedisCounter creates a Redis-backed TTL counter.
func NewRedisCounter(client *redis.Client) *RedisCounter {
	return &RedisCounter{client: client}
}

// Incr increments the key and sets its expiry when first created.
func (c *RedisCounter) Incr(ctx context.Context, key string, window time.Duration) (int64, error) {
	pipe := c.client.TxPipeline()
	incr := pipe.Incr(ctx, key)
	pipe.ExpireNX(ctx, key, window)
	if _, err := pipe.Exec(ctx); err != nil {
		return 0, fmt.Errorf("incr %s: %w", key, err)
	}
	return incr.Val(), nil
}

// Limiter bounds security-event ingestion per (user, event type) window.
type Limiter struct {
	counter Counter
	limit   int64
	window  time.Duration
}

// NewLimiter creates a rate limiter. limit <= 0 disables limiting.
func NewLimiter(counter Counter, limit int, window time.Duration) *Limiter {
	return &Limiter{counter: counter, limit: int64(limit), window: window}
}

// Allow reports whether another event from this user+type fits in the window.
// Counter failures fail open: a broken limiter must not hide abuse signals.
func (l *Limiter) Allow(ctx context.Context, userID, eventType string) bool {
	if l.limit <= 0 || l.counter == nil {
		return true
	}
	key := fmt.Sprintf("seclimit:%s:%s", userID, eventType)
	n, err := l.counter.Incr(ctx, key, l.window)
	if err != nil {
		return true
	}
	return n <= l.limit
}
