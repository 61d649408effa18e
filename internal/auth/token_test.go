package auth

import (
	"testing"
	"time"

	"github.com/spec-kit/civic-reporter/internal/domain"
)

func TestTokenRoundTrip(t *testing.T) {
	tm := NewTokenManager("secret", 5)
	token, exp, err := tm.GenerateToken("user-1", domain.RoleAdmin)
	if err != nil {
		t.Fatalf("generate: %v", err)
	}
	if time.Until(exp) <= 0 || time.Until(exp) > 5*time.Minute {
		t.Fatalf("unexpected expiry %v", exp)
	}

	claims, err := tm.ParseToken(token)
	if err != nil {
		t.Fatalf("parse: %v", err)
	}
	if claims.UserID != "user-1" || claims.Role != domain.RoleAdmin || claims.Subject != "user-1" {
		t.Fatalf("unexpected claims %+v", claims)
	}
}

func TestParseTokenRejectsForeignSecret(t *testing.T) {
	token, _, err := NewTokenManager("one", 5).GenerateToken("user-1", domain.RoleUser)
	if err != nil {
		t.Fatalf("generate: %v", err)
	}
	if _, err := NewTokenManager("two", 5).ParseToken(token); err == nil {
		t.Fatalf("expected signature failure")
	}
}

func TestParseTokenRejectsExpired(t *testing.T) {
	tm := &TokenManager{secret: []byte("secret"), ttl: -time.Minute}
	token, _, err := tm.GenerateToken("user-1", domain.RoleUser)
	if err != nil {
		t.Fatalf("generate: %v", err)
	}
	if _, err := tm.ParseToken(token); err == nil {
		t.Fatalf("expected expired token to fail")
	}
}

func TestPasswordHashing(t *testing.T) {
	hash, err := HashPassword("hunter22", 4)
	if err != nil {
		t.Fatalf("hash: %v", err)
	}
	if err := ComparePassword(hash, "hunter22"); err != nil {
		t.Fatalf("expected match: %v", err)
	}
	if err := ComparePassword(hash, "wrong"); err == nil {
		t.Fatalf("expected mismatch")
	}
}
