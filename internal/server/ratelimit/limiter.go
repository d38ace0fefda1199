// Package ratelimit provides a Redis-backed fixed-window rate limiter.
package ratelimit

import (
	"context"
	"fmt"
	"time"

	"github.com/go-redis/redis/v8"
)

// Result describes a limiter decision for a single request.
type Result struct {
	Allowed    bool
	Remaining  int
	RetryAfter time.Duration
}

// Limiter counts requests per identity and route in fixed windows. State
// lives in Redis under ratelimit:<route>:<identity> with a TTL equal to the
// window, so stale counters clean themselves up.
type Limiter struct {
	client *redis.Client
	limit  int
	window time.Duration
}

func NewLimiter(client *redis.Client, limit int, window time.Duration) *Limiter {
	return &Limiter{client: client, limit: limit, window: window}
}

// Check counts one request. The caller decides what a backend error means;
// the HTTP middleware fails open.
func (l *Limiter) Check(ctx context.Context, identity string, route string) (*Result, error) {
	key := fmt.Sprintf("ratelimit:%s:%s", route, identity)

	count, err := l.client.Incr(ctx, key).Result()
	if err != nil {
		return nil, fmt.Errorf("redis error: %w", err)
	}
	if count == 1 {
		// первый запрос в окне, ставим TTL
		if err := l.client.Expire(ctx, key, l.window).Err(); err != nil {
			return nil, fmt.Errorf("redis error: %w", err)
		}
	}

	if count > int64(l.limit) {
		retryAfter := l.window
		if ttl, err := l.client.PTTL(ctx, key).Result(); err == nil {
			switch {
			case ttl > 0:
				retryAfter = ttl
			case ttl < 0:
				// key lost its TTL (EXPIRE never landed), re-arm it so the
				// identity is not locked out forever
				l.client.Expire(ctx, key, l.window)
			}
		}
		return &Result{Allowed: false, Remaining: 0, RetryAfter: retryAfter}, nil
	}

	return &Result{Allowed: true, Remaining: l.limit - int(count)}, nil
}
