package core

import (
	"context"
	"fmt"
	"time"

	"github.com/google/uuid"
	"go.uber.org/zap"
)

// SendResult is returned from a successful code issuance. The code itself
// never leaves the delivery channel.
type SendResult struct {
	Token     string
	ExpiresAt time.Time
	ExpiresIn time.Duration
}

// SendCode issues a fresh one-time code for rawPhone and dispatches it via
// the SMS channel. The cooldown check, the rate-window count, the ledger
// write and the history append happen as one atomic store operation;
// dispatch runs after the store operation with no lock held.
//
// Failures are classified: KindInvalidPhone, KindCooldownActive,
// KindRateLimited, KindDeliveryFailed. On KindDeliveryFailed the ledger
// entry still stands, so a provider-side retry cannot desynchronize state.
func (s *Service) SendCode(ctx context.Context, rawPhone string) (SendResult, error) {
	if s.store == nil {
		return SendResult{}, fmt.Errorf("verification store unavailable")
	}

	phone, err := NormalizePhone(rawPhone)
	if err != nil {
		return SendResult{}, err
	}

	now := s.now()
	code := randNumericCode(s.opts.CodeLength)
	entry := Entry{
		Phone:     phone,
		Token:     uuid.NewString(),
		CodeHash:  sha256Hex(code),
		IssuedAt:  now,
		ExpiresAt: now.Add(s.opts.CodeTTL),
	}
	pol := IssuePolicy{
		Cooldown:    s.opts.Cooldown,
		RateWindow:  s.opts.RateWindow,
		RateCeiling: s.opts.RateCeiling,
	}
	if err := s.store.BeginIssue(ctx, phone, entry, pol, now); err != nil {
		return SendResult{}, err
	}

	res := SendResult{Token: entry.Token, ExpiresAt: entry.ExpiresAt, ExpiresIn: s.opts.CodeTTL}

	if s.sms == nil {
		// Dev mode: surface the code in logs instead of failing the send.
		s.log.Info("dev-sms: verification code", zap.String("phone", phone), zap.String("code", code))
		return res, nil
	}
	if err := s.sms.SendVerificationCode(ctx, phone, code); err != nil {
		s.log.Warn("sms delivery failed", zap.String("phone", phone), zap.Error(err))
		return res, NewError(KindDeliveryFailed)
	}
	return res, nil
}
