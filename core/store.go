package core

import (
	"context"
	"time"
)

// Entry is the single outstanding one-time code for a phone. Only the
// sha256 digest of the code is stored; the cleartext goes to the SMS
// channel and is never persisted.
type Entry struct {
	Phone     string    `json:"phone"`
	Token     string    `json:"token"`
	CodeHash  string    `json:"code_hash"`
	IssuedAt  time.Time `json:"issued_at"`
	ExpiresAt time.Time `json:"expires_at"`
}

// IssuePolicy carries the anti-abuse tunables a store needs to admit or
// reject a send atomically.
type IssuePolicy struct {
	Cooldown    time.Duration
	RateWindow  time.Duration
	RateCeiling int
}

// Store keeps per-phone verification state: the active code entry and the
// rolling send history. Implementations must honor two contracts:
//
//   - BeginIssue is one atomic unit per phone. The cooldown check, the
//     window count, the entry write and the history append either all
//     happen or none do; two racing sends for the same phone must not
//     both pass the rate check without both being counted.
//   - Operations on different phones never contend with each other.
//
// BeginIssue rejections are *Error values: KindCooldownActive when the
// current entry is younger than pol.Cooldown, KindRateLimited when the
// pruned history already holds pol.RateCeiling timestamps inside
// pol.RateWindow (boundary inclusive: now-ts <= window counts). A
// rejected send is never appended to the history.
type Store interface {
	BeginIssue(ctx context.Context, phone string, entry Entry, pol IssuePolicy, now time.Time) error
	Get(ctx context.Context, phone string) (Entry, bool, error)
	Remove(ctx context.Context, phone string) error

	// PurgeExpired reclaims entries whose expiry has passed and stale
	// history. Stores backed by self-expiring keys may return (0, nil).
	PurgeExpired(ctx context.Context, now time.Time) (int, error)
}
