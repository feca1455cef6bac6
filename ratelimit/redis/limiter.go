// Package redislimiter provides a Redis-backed fixed-window rate limiter
// for the HTTP adapter's per-IP buckets, shared across instances.
package redislimiter

import (
	"context"
	"time"

	"github.com/redis/go-redis/v9"
)

// Limit configures one named bucket.
type Limit struct {
	Limit  int
	Window time.Duration
}

type Limiter struct {
	rdb    *redis.Client
	limits map[string]Limit
}

func New(rdb *redis.Client, limits map[string]Limit) *Limiter {
	return &Limiter{rdb: rdb, limits: limits}
}

func (l *Limiter) AllowNamed(bucket, key string) (bool, error) {
	lim, ok := l.limits[bucket]
	if !ok {
		lim, ok = l.limits["default"]
		if !ok {
			return true, nil
		}
	}
	ctx := context.Background()

	n, err := l.rdb.Incr(ctx, key).Result()
	if err != nil {
		return false, err
	}
	if n == 1 {
		// First hit opens the window.
		if err := l.rdb.PExpire(ctx, key, lim.Window).Err(); err != nil {
			return false, err
		}
	}
	return n <= int64(lim.Limit), nil
}
