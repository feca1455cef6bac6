package core

import (
	"context"
	"time"

	"go.uber.org/zap"

	"github.com/open-rails/otpkit/token"
)

// Options configures issuance and verification policy. Zero values fall
// back to the defaults below; none of these are hard-coded business logic.
type Options struct {
	Cooldown    time.Duration // minimum spacing between sends, default 30s
	CodeTTL     time.Duration // code lifetime, default 120s
	RateWindow  time.Duration // rolling send window, default 10m
	RateCeiling int           // max sends per window, default 5
	CodeLength  int           // numeric code width, default 5
	SessionTTL  time.Duration // session credential lifetime, default 72h
}

const (
	defaultCooldown    = 30 * time.Second
	defaultCodeTTL     = 120 * time.Second
	defaultRateWindow  = 10 * time.Minute
	defaultRateCeiling = 5
	defaultCodeLength  = 5
	defaultSessionTTL  = 72 * time.Hour
)

func (o Options) withDefaults() Options {
	if o.Cooldown <= 0 {
		o.Cooldown = defaultCooldown
	}
	if o.CodeTTL <= 0 {
		o.CodeTTL = defaultCodeTTL
	}
	if o.RateWindow <= 0 {
		o.RateWindow = defaultRateWindow
	}
	if o.RateCeiling <= 0 {
		o.RateCeiling = defaultRateCeiling
	}
	if o.CodeLength <= 0 {
		o.CodeLength = defaultCodeLength
	}
	if o.SessionTTL <= 0 {
		o.SessionTTL = defaultSessionTTL
	}
	return o
}

// SMSSender delivers a verification code over the external channel. The
// channel is fire-and-forget from this subsystem's perspective; a returned
// error is reported as a non-authoritative delivery warning, never as a
// verification failure.
type SMSSender interface {
	SendVerificationCode(ctx context.Context, phone, code string) error
}

// AccountStore looks up or creates the account record for a verified
// phone. It is an external collaborator; attachment is optional.
type AccountStore interface {
	Ensure(ctx context.Context, phone string) (string, error)
}

// Service is the phone verification core used by the HTTP adapter.
type Service struct {
	opts     Options
	store    Store
	tokens   *token.Service
	sms      SMSSender
	accounts AccountStore
	log      *zap.Logger
	now      func() time.Time
}

func NewService(opts Options, tokens *token.Service) *Service {
	return &Service{
		opts:   opts.withDefaults(),
		tokens: tokens,
		log:    zap.NewNop(),
		now:    time.Now,
	}
}

// Options exposes the effective (defaulted) configuration.
func (s *Service) Options() Options { return s.opts }

// WithStore sets the verification state store. The service is inert
// without one.
func (s *Service) WithStore(store Store) *Service { s.store = store; return s }

// Store returns the attached store (may be nil).
func (s *Service) Store() Store { return s.store }

// WithSMSSender sets the SMS delivery dependency.
func (s *Service) WithSMSSender(sender SMSSender) *Service { s.sms = sender; return s }

// HasSMSSender returns true if an SMS sender is configured.
func (s *Service) HasSMSSender() bool { return s.sms != nil }

// WithAccounts sets the optional account store consulted after a
// successful verification.
func (s *Service) WithAccounts(accounts AccountStore) *Service { s.accounts = accounts; return s }

// WithLogger sets the structured logger. Defaults to a no-op logger.
func (s *Service) WithLogger(log *zap.Logger) *Service {
	if log != nil {
		s.log = log
	}
	return s
}

// WithNow overrides the clock. Test and simulation seam.
func (s *Service) WithNow(now func() time.Time) *Service {
	if now != nil {
		s.now = now
	}
	return s
}

// Tokens returns the session token service.
func (s *Service) Tokens() *token.Service { return s.tokens }
