package core

import (
	"context"
	"crypto/subtle"
	"fmt"
	"time"

	"go.uber.org/zap"

	"github.com/open-rails/otpkit/token"
)

// VerifyResult is returned from a successful verification.
type VerifyResult struct {
	SessionToken string
	ExpiresAt    time.Time
	ExpiresIn    time.Duration
	AccountID    string
}

// VerifyCode validates a submitted code against the active entry for the
// phone and, on a full match, consumes the entry and mints a session
// credential.
//
// Failure ordering and classification:
//
//	no entry                      -> KindNotFound
//	past expiry (entry evicted)   -> KindExpired
//	correlation token mismatch    -> KindTokenMismatch (code not inspected)
//	code mismatch (entry intact)  -> KindCodeMismatch, retry allowed until expiry
//
// Code and token comparisons are constant-time over sha256 digests.
func (s *Service) VerifyCode(ctx context.Context, rawPhone, code, correlationToken string) (VerifyResult, error) {
	if s.store == nil {
		return VerifyResult{}, fmt.Errorf("verification store unavailable")
	}

	phone, err := NormalizePhone(rawPhone)
	if err != nil {
		return VerifyResult{}, err
	}

	entry, ok, err := s.store.Get(ctx, phone)
	if err != nil {
		return VerifyResult{}, err
	}
	if !ok {
		return VerifyResult{}, NewError(KindNotFound)
	}

	now := s.now()
	if now.After(entry.ExpiresAt) {
		if err := s.store.Remove(ctx, phone); err != nil {
			s.log.Warn("expired entry eviction failed", zap.String("phone", phone), zap.Error(err))
		}
		return VerifyResult{}, NewError(KindExpired)
	}

	if !constantTimeEqual(correlationToken, entry.Token) {
		return VerifyResult{}, NewError(KindTokenMismatch)
	}
	if !constantTimeEqual(sha256Hex(code), entry.CodeHash) {
		return VerifyResult{}, NewError(KindCodeMismatch)
	}

	// Single use: evict before minting so the entry can never match twice.
	if err := s.store.Remove(ctx, phone); err != nil {
		return VerifyResult{}, err
	}

	tok, expiresAt, err := s.tokens.Sign(token.KindSession, phone, s.opts.SessionTTL)
	if err != nil {
		return VerifyResult{}, err
	}

	res := VerifyResult{SessionToken: tok, ExpiresAt: expiresAt, ExpiresIn: s.opts.SessionTTL}
	if s.accounts != nil {
		// Best effort: the session stands even if the account record lags.
		id, err := s.accounts.Ensure(ctx, phone)
		if err != nil {
			s.log.Warn("account ensure failed", zap.String("phone", phone), zap.Error(err))
		} else {
			res.AccountID = id
		}
	}
	return res, nil
}

// constantTimeEqual compares two equal-purpose strings without leaking
// match position through timing. Inputs are hashed or fixed-format, so
// the length check itself reveals nothing secret.
func constantTimeEqual(a, b string) bool {
	if len(a) != len(b) {
		return false
	}
	return subtle.ConstantTimeCompare([]byte(a), []byte(b)) == 1
}
