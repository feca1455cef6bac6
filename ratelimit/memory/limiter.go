// Package memorylimiter provides an in-process sliding-window rate
// limiter for the HTTP adapter's per-IP buckets.
package memorylimiter

import (
	"sync"
	"time"
)

// Limit configures one named bucket.
type Limit struct {
	Limit  int
	Window time.Duration
}

// Limiter tracks hit timestamps per key. Unknown buckets fall back to the
// "default" bucket when present, otherwise allow.
type Limiter struct {
	mu     sync.Mutex
	limits map[string]Limit
	hits   map[string][]time.Time
	now    func() time.Time
}

func New(limits map[string]Limit) *Limiter {
	return &Limiter{limits: limits, hits: make(map[string][]time.Time), now: time.Now}
}

// WithNow overrides the clock. Test seam.
func (l *Limiter) WithNow(now func() time.Time) *Limiter {
	if now != nil {
		l.now = now
	}
	return l
}

func (l *Limiter) AllowNamed(bucket, key string) (bool, error) {
	lim, ok := l.limits[bucket]
	if !ok {
		lim, ok = l.limits["default"]
		if !ok {
			return true, nil
		}
	}
	now := l.now()

	l.mu.Lock()
	defer l.mu.Unlock()

	kept := l.hits[key][:0:0]
	for _, ts := range l.hits[key] {
		if now.Sub(ts) <= lim.Window {
			kept = append(kept, ts)
		}
	}
	if len(kept) >= lim.Limit {
		l.hits[key] = kept
		return false, nil
	}
	l.hits[key] = append(kept, now)
	return true, nil
}
