package authhttp

import (
	"net/http"
	"strings"

	"github.com/redis/go-redis/v9"
	"go.uber.org/zap"

	"github.com/open-rails/otpkit/core"
	memorylimiter "github.com/open-rails/otpkit/ratelimit/memory"
	redislimiter "github.com/open-rails/otpkit/ratelimit/redis"
	memorystore "github.com/open-rails/otpkit/storage/memory"
	redisstore "github.com/open-rails/otpkit/storage/redis"
	"github.com/open-rails/otpkit/token"
)

// RateLimiter is the minimal per-IP limiter interface used by the adapter.
type RateLimiter interface {
	AllowNamed(bucket string, key string) (bool, error)
}

// Service wraps core.Service with net/http mounting helpers.
type Service struct {
	svc      *core.Service
	rl       RateLimiter
	clientIP ClientIPFunc
}

// NewService constructs a core.Service and wraps it for net/http
// mounting. Defaults to the in-memory store and limiter for dev and
// single-instance use; call WithRedis for multi-instance deployments.
func NewService(opts core.Options, tokens *token.Service) *Service {
	svc := core.NewService(opts, tokens).WithStore(memorystore.New())
	return &Service{
		svc:      svc,
		rl:       memorylimiter.New(ToMemoryLimits(DefaultRateLimits())),
		clientIP: DefaultClientIP(),
	}
}

// allow applies the per-IP limit for bucket. Fails open on limiter error
// or unknown client IP.
func (s *Service) allow(r *http.Request, bucket string) bool {
	if s == nil || s.rl == nil {
		return true
	}
	ipFn := s.clientIP
	if ipFn == nil {
		ipFn = DefaultClientIP()
	}
	ip := ipFn(r)
	if strings.TrimSpace(ip) == "" {
		return true
	}
	ok, err := s.rl.AllowNamed(bucket, "auth:"+bucket+":ip:"+ip)
	if err != nil {
		return true
	}
	return ok
}

// WithRedis switches both the verification store and the per-IP limiter
// to Redis-backed implementations.
func (s *Service) WithRedis(rdb *redis.Client) *Service {
	if rdb != nil {
		s.svc = s.svc.WithStore(redisstore.New(rdb))
		s.rl = redislimiter.New(rdb, ToRedisLimits(DefaultRateLimits()))
	}
	return s
}

func (s *Service) WithStore(store core.Store) *Service { s.svc = s.svc.WithStore(store); return s }

func (s *Service) WithSMSSender(sender core.SMSSender) *Service {
	s.svc = s.svc.WithSMSSender(sender)
	return s
}

func (s *Service) WithAccounts(accounts core.AccountStore) *Service {
	s.svc = s.svc.WithAccounts(accounts)
	return s
}

func (s *Service) WithLogger(log *zap.Logger) *Service { s.svc = s.svc.WithLogger(log); return s }

func (s *Service) WithRateLimiter(rl RateLimiter) *Service { s.rl = rl; return s }
func (s *Service) DisableRateLimiter() *Service            { s.rl = nil; return s }

func (s *Service) WithClientIPFunc(fn ClientIPFunc) *Service {
	if fn == nil {
		s.clientIP = DefaultClientIP()
		return s
	}
	s.clientIP = fn
	return s
}

func (s *Service) Core() *core.Service { return s.svc }
