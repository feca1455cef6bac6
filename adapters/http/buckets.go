package authhttp

import (
	"time"

	memorylimiter "github.com/open-rails/otpkit/ratelimit/memory"
	redislimiter "github.com/open-rails/otpkit/ratelimit/redis"
)

// Bucket names used by the endpoints.
const (
	RLPhoneSend   = "auth_phone_send"
	RLPhoneVerify = "auth_phone_verify"
)

// Limit configures a named rate limit bucket.
type Limit struct {
	Limit  int
	Window time.Duration
}

// DefaultRateLimits returns the built-in per-endpoint limits, enforced
// per client IP. These sit in front of the per-phone policy in the core;
// hosts can override via WithRateLimiter.
func DefaultRateLimits() map[string]Limit {
	return map[string]Limit{
		"default":     {Limit: 120, Window: time.Minute},
		RLPhoneSend:   {Limit: 30, Window: 10 * time.Minute},
		RLPhoneVerify: {Limit: 60, Window: 10 * time.Minute},
	}
}

func ToMemoryLimits(in map[string]Limit) map[string]memorylimiter.Limit {
	out := make(map[string]memorylimiter.Limit, len(in))
	for k, v := range in {
		out[k] = memorylimiter.Limit{Limit: v.Limit, Window: v.Window}
	}
	return out
}

func ToRedisLimits(in map[string]Limit) map[string]redislimiter.Limit {
	out := make(map[string]redislimiter.Limit, len(in))
	for k, v := range in {
		out[k] = redislimiter.Limit{Limit: v.Limit, Window: v.Window}
	}
	return out
}
