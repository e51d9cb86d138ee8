package identity

import (
	"errors"
	"strings"
	"testing"
	"time"
)

func TestAuthenticateRoundTrip(t *testing.T) {
	v := NewTokenVerifier("secret")

	token := SignToken("secret", "owner-42", time.Hour)
	owner, err := v.Authenticate(token)
	if err != nil {
		t.Fatalf("authenticate: %v", err)
	}
	if owner != "owner-42" {
		t.Fatalf("owner = %q, want owner-42", owner)
	}
}

func TestAuthenticateNoExpiry(t *testing.T) {
	v := NewTokenVerifier("secret")
	owner, err := v.Authenticate(SignToken("secret", "owner-1", 0))
	if err != nil || owner != "owner-1" {
		t.Fatalf("owner=%q err=%v", owner, err)
	}
}

func TestAuthenticateRejectsBadTokens(t *testing.T) {
	v := NewTokenVerifier("secret")
	good := SignToken("secret", "owner-42", time.Hour)
	parts := strings.Split(good, ".")

	cases := []struct {
		name  string
		token string
	}{
		{"wrong secret", SignToken("other-secret", "owner-42", time.Hour)},
		{"two segments", parts[0] + "." + parts[1]},
		{"garbage", "not-a-token"},
		{"tampered payload", parts[0] + ".eyJzdWIiOiJtYWxsb3J5In0." + parts[2]},
		{"empty", ""},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			if _, err := v.Authenticate(tc.token); !errors.Is(err, ErrInvalidToken) {
				t.Fatalf("expected ErrInvalidToken, got %v", err)
			}
		})
	}
}

func TestAuthenticateRejectsMissingSubject(t *testing.T) {
	v := NewTokenVerifier("secret")
	token := SignToken("secret", "", time.Hour)
	if _, err := v.Authenticate(token); !errors.Is(err, ErrInvalidToken) {
		t.Fatalf("expected ErrInvalidToken, got %v", err)
	}
}

func TestAuthenticateRejectsExpired(t *testing.T) {
	future := time.Now().Add(48 * time.Hour)
	v := NewTokenVerifier("secret", WithClock(func() time.Time { return future }))

	token := SignToken("secret", "owner-42", time.Hour)
	if _, err := v.Authenticate(token); !errors.Is(err, ErrTokenExpired) {
		t.Fatalf("expected ErrTokenExpired, got %v", err)
	}
}

func TestStaticVerifier(t *testing.T) {
	v := StaticVerifier{"tok-a": "alice"}

	owner, err := v.Authenticate("tok-a")
	if err != nil || owner != "alice" {
		t.Fatalf("owner=%q err=%v", owner, err)
	}
	if _, err := v.Authenticate("unknown"); !errors.Is(err, ErrInvalidToken) {
		t.Fatalf("expected ErrInvalidToken, got %v", err)
	}
}
