// Package identity holds the contract with the external identity provider.
//
// The ledger never validates credentials; it receives a bearer token the
// provider already issued and only needs to check the signature and extract
// the stable owner identifier from it.
package identity

import (
	"crypto/hmac"
	"crypto/sha256"
	"encoding/base64"
	"encoding/json"
	"errors"
	"fmt"
	"strings"
	"time"
)

var (
	ErrInvalidToken = errors.New("invalid token")
	ErrTokenExpired = errors.New("token expired")
)

// Verifier resolves a bearer token to the owner identifier it was issued
// for.
type Verifier interface {
	Authenticate(token string) (ownerID string, err error)
}

type claims struct {
	Subject string `json:"sub"`
	Expires int64  `json:"exp,omitempty"`
}

// TokenVerifier checks HS256 compact JWTs against a shared secret. The
// token's `sub` claim is the owner identifier; `exp`, when present, is
// honored.
type TokenVerifier struct {
	secret []byte
	now    func() time.Time
}

// TokenVerifierOpt configures a TokenVerifier.
type TokenVerifierOpt func(*TokenVerifier)

// WithClock overrides the expiry clock.
func WithClock(now func() time.Time) TokenVerifierOpt {
	return func(v *TokenVerifier) {
		v.now = now
	}
}

func NewTokenVerifier(secret string, opts ...TokenVerifierOpt) *TokenVerifier {
	v := &TokenVerifier{
		secret: []byte(secret),
		now:    time.Now,
	}
	for _, opt := range opts {
		opt(v)
	}
	return v
}

// Authenticate verifies the token signature and expiry and returns the
// subject.
func (v *TokenVerifier) Authenticate(token string) (string, error) {
	parts := strings.Split(token, ".")
	if len(parts) != 3 {
		return "", fmt.Errorf("%w: expected 3 segments, got %d", ErrInvalidToken, len(parts))
	}

	sig, err := base64.RawURLEncoding.DecodeString(parts[2])
	if err != nil {
		return "", fmt.Errorf("%w: bad signature encoding", ErrInvalidToken)
	}
	mac := hmac.New(sha256.New, v.secret)
	mac.Write([]byte(parts[0] + "." + parts[1]))
	if !hmac.Equal(sig, mac.Sum(nil)) {
		return "", fmt.Errorf("%w: signature mismatch", ErrInvalidToken)
	}

	payload, err := base64.RawURLEncoding.DecodeString(parts[1])
	if err != nil {
		return "", fmt.Errorf("%w: bad payload encoding", ErrInvalidToken)
	}
	var c claims
	if err := json.Unmarshal(payload, &c); err != nil {
		return "", fmt.Errorf("%w: bad payload", ErrInvalidToken)
	}
	if c.Subject == "" {
		return "", fmt.Errorf("%w: missing subject", ErrInvalidToken)
	}
	if c.Expires != 0 && c.Expires <= v.now().Unix() {
		return "", ErrTokenExpired
	}
	return c.Subject, nil
}

// SignToken mints a token the verifier accepts. The real provider issues
// tokens on its own; this exists for tests and local tooling. ttl <= 0
// means no expiry.
func SignToken(secret, ownerID string, ttl time.Duration) string {
	header := base64.RawURLEncoding.EncodeToString([]byte(`{"alg":"HS256","typ":"JWT"}`))

	c := claims{Subject: ownerID}
	if ttl > 0 {
		c.Expires = time.Now().Add(ttl).Unix()
	}
	payloadJSON, _ := json.Marshal(c)
	payload := base64.RawURLEncoding.EncodeToString(payloadJSON)

	mac := hmac.New(sha256.New, []byte(secret))
	mac.Write([]byte(header + "." + payload))
	sig := base64.RawURLEncoding.EncodeToString(mac.Sum(nil))

	return header + "." + payload + "." + sig
}

// StaticVerifier maps fixed tokens to owners; test doubles only.
type StaticVerifier map[string]string

func (s StaticVerifier) Authenticate(token string) (string, error) {
	owner, ok := s[token]
	if !ok {
		return "", ErrInvalidToken
	}
	return owner, nil
}
