package core

import "errors"

// Kind classifies a caller-visible failure. The values double as the wire
// error codes returned by the HTTP adapter.
type Kind string

const (
	KindInvalidPhone   Kind = "INVALID_PHONE"
	KindCooldownActive Kind = "COOLDOWN_ACTIVE"
	KindRateLimited    Kind = "RATE_LIMITED"
	KindDeliveryFailed Kind = "DELIVERY_FAILED"
	KindNotFound       Kind = "NOT_FOUND"
	KindExpired        Kind = "EXPIRED"
	KindTokenMismatch  Kind = "TOKEN_MISMATCH"
	KindCodeMismatch   Kind = "CODE_MISMATCH"
)

// Error is a failure classified into exactly one Kind. Nothing beyond the
// kind is exposed to callers; internal causes stay in logs.
type Error struct {
	Kind Kind
}

func (e *Error) Error() string { return string(e.Kind) }

// NewError builds a classified error. Store implementations use it for
// cooldown and rate-limit rejections.
func NewError(k Kind) *Error { return &Error{Kind: k} }

// KindOf extracts the classification from err, if it carries one.
func KindOf(err error) (Kind, bool) {
	var ce *Error
	if errors.As(err, &ce) {
		return ce.Kind, true
	}
	return "", false
}
