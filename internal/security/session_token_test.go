package security

import (
	"errors"
	"strings"
	"testing"
	"time"
)

const testTokenSecret = "abcdefghijklmnopqrstuvwxyz123456"

func TestSessionTokenSignAndParse(t *testing.T) {
	mgr := NewSessionTokenManager("bubbles-cafe", testTokenSecret)
	uid := uint(42)

	raw, err := mgr.Sign("sess-abc", &uid, time.Minute)
	if err != nil {
		t.Fatal(err)
	}
	claims, err := mgr.Parse(raw)
	if err != nil {
		t.Fatal(err)
	}
	if claims.Subject != "sess-abc" {
		t.Fatalf("unexpected subject %q", claims.Subject)
	}
	if claims.UserID == nil || *claims.UserID != 42 {
		t.Fatalf("unexpected user id %v", claims.UserID)
	}
}

func TestSessionTokenAnonymous(t *testing.T) {
	mgr := NewSessionTokenManager("bubbles-cafe", testTokenSecret)
	raw, err := mgr.Sign("sess-anon", nil, time.Minute)
	if err != nil {
		t.Fatal(err)
	}
	claims, err := mgr.Parse(raw)
	if err != nil {
		t.Fatal(err)
	}
	if claims.UserID != nil {
		t.Fatalf("expected nil user id, got %v", *claims.UserID)
	}
}

func TestSessionTokenRejectsExpiredAndForeign(t *testing.T) {
	mgr := NewSessionTokenManager("bubbles-cafe", testTokenSecret)

	expired, err := mgr.Sign("sess-old", nil, -time.Minute)
	if err != nil {
		t.Fatal(err)
	}
	if _, err := mgr.Parse(expired); !errors.Is(err, ErrInvalidSessionToken) {
		t.Fatalf("expected ErrInvalidSessionToken for expired token, got %v", err)
	}

	other := NewSessionTokenManager("bubbles-cafe", "zyxwvutsrqponmlkjihgfedcba654321")
	foreign, err := other.Sign("sess-x", nil, time.Minute)
	if err != nil {
		t.Fatal(err)
	}
	if _, err := mgr.Parse(foreign); !errors.Is(err, ErrInvalidSessionToken) {
		t.Fatalf("expected ErrInvalidSessionToken for foreign signature, got %v", err)
	}

	wrongIssuer := NewSessionTokenManager("someone-else", testTokenSecret)
	misIssued, err := wrongIssuer.Sign("sess-y", nil, time.Minute)
	if err != nil {
		t.Fatal(err)
	}
	if _, err := mgr.Parse(misIssued); !errors.Is(err, ErrInvalidSessionToken) {
		t.Fatalf("expected ErrInvalidSessionToken for wrong issuer, got %v", err)
	}
}

func FuzzParseSessionTokenRobustness(f *testing.F) {
	mgr := NewSessionTokenManager("bubbles-cafe", testTokenSecret)
	valid, _ := mgr.Sign("sess-abc", nil, time.Minute)

	f.Add(valid)
	f.Add("")
	f.Add("not-a-jwt")
	f.Add("header.payload.signature")
	f.Add(strings.Repeat("a", 8192))

	f.Fuzz(func(t *testing.T, raw string) {
		if len(raw) > 16384 {
			raw = raw[:16384]
		}
		claims, err := mgr.Parse(raw)
		if err == nil {
			if claims == nil {
				t.Fatal("expected non-nil claims on successful parse")
			}
			if claims.Subject == "" {
				t.Fatal("expected non-empty subject on successful parse")
			}
		}
	})
}
