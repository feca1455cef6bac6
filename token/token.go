// Package token signs and verifies the compact bearer credentials minted
// after a successful phone verification. Tokens are self-contained HS256
// JWTs: claims, expiry and signature check without a database lookup.
package token

import (
	"errors"
	"fmt"
	"time"

	jwt "github.com/golang-jwt/jwt/v5"
)

// Kind distinguishes the two credential flavors.
type Kind string

const (
	// KindVerification is a short-lived "phone verified" assertion, for
	// flows that want an intermediate step before a full session.
	KindVerification Kind = "verification"
	// KindSession is the longer-lived login credential.
	KindSession Kind = "session"
)

// ErrInvalidOrExpired is returned for every verification failure: bad
// signature, unknown key, wrong kind, malformed and expired tokens all
// look identical to the caller, so the error cannot be used as an oracle.
var ErrInvalidOrExpired = errors.New("token invalid or expired")

// KeySource provides signing secrets by key id so keys can rotate without
// touching this package's logic.
type KeySource interface {
	// Active returns the key new tokens are signed with.
	Active() (kid string, secret []byte)
	// Lookup resolves a key id found in a presented token. Retired-but-
	// still-verifiable keys stay resolvable until their tokens age out.
	Lookup(kid string) ([]byte, bool)
}

// StaticKeySource serves a single fixed key. Suitable for single-key
// deployments and tests.
type StaticKeySource struct {
	kid    string
	secret []byte
}

func NewStaticKeySource(kid string, secret []byte) *StaticKeySource {
	return &StaticKeySource{kid: kid, secret: secret}
}

func (s *StaticKeySource) Active() (string, []byte) { return s.kid, s.secret }

func (s *StaticKeySource) Lookup(kid string) ([]byte, bool) {
	if kid != s.kid {
		return nil, false
	}
	return s.secret, true
}

// Claims is the token body: the verified phone plus registered claims.
type Claims struct {
	Phone string `json:"phone"`
	Kind  string `json:"kind"`
	jwt.RegisteredClaims
}

// Service signs and verifies credentials.
type Service struct {
	issuer string
	keys   KeySource
	now    func() time.Time
}

func NewService(issuer string, keys KeySource) *Service {
	return &Service{issuer: issuer, keys: keys, now: time.Now}
}

// WithNow overrides the clock. Test seam.
func (s *Service) WithNow(now func() time.Time) *Service {
	if now != nil {
		s.now = now
	}
	return s
}

// Sign mints a credential of the given kind for phone, valid for ttl.
func (s *Service) Sign(kind Kind, phone string, ttl time.Duration) (string, time.Time, error) {
	if s == nil || s.keys == nil {
		return "", time.Time{}, fmt.Errorf("token: no key source configured")
	}
	kid, secret := s.keys.Active()
	now := s.now()
	expiresAt := now.Add(ttl)
	claims := Claims{
		Phone: phone,
		Kind:  string(kind),
		RegisteredClaims: jwt.RegisteredClaims{
			Issuer:    s.issuer,
			Subject:   phone,
			IssuedAt:  jwt.NewNumericDate(now),
			ExpiresAt: jwt.NewNumericDate(expiresAt),
		},
	}
	tok := jwt.NewWithClaims(jwt.SigningMethodHS256, claims)
	tok.Header["kid"] = kid
	signed, err := tok.SignedString(secret)
	if err != nil {
		return "", time.Time{}, err
	}
	return signed, expiresAt, nil
}

// Verify checks signature, expiry and kind together. Any failure maps to
// ErrInvalidOrExpired.
func (s *Service) Verify(raw string, want Kind) (*Claims, error) {
	if s == nil || s.keys == nil {
		return nil, ErrInvalidOrExpired
	}
	claims := &Claims{}
	tok, err := jwt.ParseWithClaims(raw, claims, func(t *jwt.Token) (any, error) {
		kid, _ := t.Header["kid"].(string)
		secret, ok := s.keys.Lookup(kid)
		if !ok {
			return nil, ErrInvalidOrExpired
		}
		return secret, nil
	},
		jwt.WithValidMethods([]string{jwt.SigningMethodHS256.Alg()}),
		jwt.WithIssuer(s.issuer),
		jwt.WithExpirationRequired(),
		jwt.WithTimeFunc(func() time.Time { return s.now() }),
	)
	if err != nil || !tok.Valid {
		return nil, ErrInvalidOrExpired
	}
	if claims.Kind != string(want) || claims.Phone == "" {
		return nil, ErrInvalidOrExpired
	}
	return claims, nil
}
