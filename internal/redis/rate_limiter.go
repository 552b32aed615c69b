package redis

import (
	"context"
	"fmt"
	"time"

	"github.com/redis/go-redis/v9"
)

const rateLimitKeyPrefix = "rl:"

// RateLimiter is a fixed-window counter: at most limit hits per key within
// window, the window starting at the first hit.
type RateLimiter struct {
	client *redis.Client
	limit  int64
	window time.Duration
}

// NewRateLimiter creates a RateLimiter allowing limit hits per window.
func NewRateLimiter(client *redis.Client, limit int64, window time.Duration) *RateLimiter {
	return &RateLimiter{client: client, limit: limit, window: window}
}

// Allow records one hit for key and reports whether it is within the limit.
// When it is not, retryAfter is the time left in the current window.
func (l *RateLimiter) Allow(ctx context.Context, key string) (allowed bool, retryAfter time.Duration, err error) {
	k := rateLimitKeyPrefix + key

	pipe := l.client.TxPipeline()
	incr := pipe.Incr(ctx, k)
	ttl := pipe.PTTL(ctx, k)
	if _, err := pipe.Exec(ctx); err != nil {
		return false, 0, fmt.Errorf("rate limit %s: %w", key, err)
	}

	remaining := ttl.Val()
	if remaining < 0 {
		// first hit of a window (or a key that lost its expiry)
		if err := l.client.PExpire(ctx, k, l.window).Err(); err != nil {
			return false, 0, fmt.Errorf("rate limit expiry %s: %w", key, err)
		}
		remaining = l.window
	}

	if incr.Val() > l.limit {
		return false, remaining, nil
	}
	return true, 0, nil
}
