package auth

import (
	"errors"
	"testing"
	"time"

	"github.com/golang-jwt/jwt/v5"

	"github.com/docflow-labs/docflow-core/internal/core/domain"
)

func TestAdapter_GenerateAndParseToken(t *testing.T) {
	adapter := NewAdapter("test-secret")

	token, err := adapter.GenerateToken("ops-console", time.Hour)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if token == "" {
		t.Fatal("expected non-empty token")
	}

	op, err := adapter.ParseToken(token)
	if err != nil {
		t.Fatalf("unexpected parse error: %v", err)
	}
	if op.Subject != "ops-console" {
		t.Errorf("expected subject ops-console, got %s", op.Subject)
	}
	if op.IsExpired() {
		t.Error("fresh token should not be expired")
	}
	if remaining := time.Until(op.ExpiresAt); remaining < 59*time.Minute || remaining > time.Hour {
		t.Errorf("unexpected expiry window: %v", remaining)
	}
}

func TestAdapter_GenerateToken_EmptySubject(t *testing.T) {
	adapter := NewAdapter("test-secret")

	if _, err := adapter.GenerateToken("", time.Hour); err == nil {
		t.Error("expected error for empty subject")
	}
}

func TestAdapter_ParseToken_Expired(t *testing.T) {
	adapter := NewAdapter("test-secret")

	token, err := adapter.GenerateToken("ops-console", -time.Minute)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	_, err = adapter.ParseToken(token)
	if !errors.Is(err, domain.ErrTokenExpired) {
		t.Errorf("expected ErrTokenExpired, got %v", err)
	}
}

func TestAdapter_ParseToken_WrongSecret(t *testing.T) {
	issuer := NewAdapter("secret-a")
	verifier := NewAdapter("secret-b")

	token, err := issuer.GenerateToken("ops-console", time.Hour)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	_, err = verifier.ParseToken(token)
	if !errors.Is(err, domain.ErrTokenInvalid) {
		t.Errorf("expected ErrTokenInvalid, got %v", err)
	}
}

func TestAdapter_ParseToken_Malformed(t *testing.T) {
	adapter := NewAdapter("test-secret")

	for _, tokenString := range []string{"", "not-a-token", "a.b.c"} {
		if _, err := adapter.ParseToken(tokenString); !errors.Is(err, domain.ErrTokenInvalid) {
			t.Errorf("expected ErrTokenInvalid for %q, got %v", tokenString, err)
		}
	}
}

func TestAdapter_ParseToken_WrongSigningMethod(t *testing.T) {
	adapter := NewAdapter("test-secret")

	claims := jwt.RegisteredClaims{
		Subject:   "ops-console",
		IssuedAt:  jwt.NewNumericDate(time.Now()),
		ExpiresAt: jwt.NewNumericDate(time.Now().Add(time.Hour)),
	}
	unsigned := jwt.NewWithClaims(jwt.SigningMethodNone, claims)
	token, err := unsigned.SignedString(jwt.UnsafeAllowNoneSignatureType)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	if _, err := adapter.ParseToken(token); !errors.Is(err, domain.ErrTokenInvalid) {
		t.Errorf("expected ErrTokenInvalid for none-signed token, got %v", err)
	}
}

func TestAdapter_ParseToken_MissingSubject(t *testing.T) {
	adapter := NewAdapter("test-secret")

	claims := jwt.RegisteredClaims{
		IssuedAt:  jwt.NewNumericDate(time.Now()),
		ExpiresAt: jwt.NewNumericDate(time.Now().Add(time.Hour)),
	}
	token, err := jwt.NewWithClaims(jwt.SigningMethodHS256, claims).SignedString([]byte("test-secret"))
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	if _, err := adapter.ParseToken(token); !errors.Is(err, domain.ErrTokenInvalid) {
		t.Errorf("expected ErrTokenInvalid for missing subject, got %v", err)
	}
}
