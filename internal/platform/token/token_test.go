package token

import (
	"errors"
	"testing"
	"time"
)

var testSecret = []byte("test-secret")

func TestMintAndVerifyRoundTrip(t *testing.T) {
	signed, err := Mint(testSecret, "trainer-1", time.Hour, nil)
	if err != nil {
		t.Fatalf("mint token: %v", err)
	}

	verifier, err := NewVerifier(testSecret)
	if err != nil {
		t.Fatalf("new verifier: %v", err)
	}
	trainerID, err := verifier.Verify(signed)
	if err != nil {
		t.Fatalf("verify token: %v", err)
	}
	if trainerID != "trainer-1" {
		t.Fatalf("trainer id = %q, want trainer-1", trainerID)
	}
}

func TestVerifyRejectsWrongSecret(t *testing.T) {
	signed, err := Mint(testSecret, "trainer-1", time.Hour, nil)
	if err != nil {
		t.Fatalf("mint token: %v", err)
	}

	verifier, err := NewVerifier([]byte("other-secret"))
	if err != nil {
		t.Fatalf("new verifier: %v", err)
	}
	if _, err := verifier.Verify(signed); !errors.Is(err, ErrInvalidToken) {
		t.Fatalf("expected ErrInvalidToken, got %v", err)
	}
}

func TestVerifyRejectsExpiredToken(t *testing.T) {
	past := func() time.Time { return time.Date(2026, time.January, 1, 0, 0, 0, 0, time.UTC) }
	signed, err := Mint(testSecret, "trainer-1", time.Minute, past)
	if err != nil {
		t.Fatalf("mint token: %v", err)
	}

	verifier, err := NewVerifier(testSecret)
	if err != nil {
		t.Fatalf("new verifier: %v", err)
	}
	if _, err := verifier.Verify(signed); !errors.Is(err, ErrInvalidToken) {
		t.Fatalf("expected ErrInvalidToken for expired token, got %v", err)
	}
}

func TestVerifyRejectsEmptyToken(t *testing.T) {
	verifier, err := NewVerifier(testSecret)
	if err != nil {
		t.Fatalf("new verifier: %v", err)
	}
	if _, err := verifier.Verify("  "); !errors.Is(err, ErrInvalidToken) {
		t.Fatalf("expected ErrInvalidToken, got %v", err)
	}
}

func TestNewVerifierRequiresSecret(t *testing.T) {
	if _, err := NewVerifier(nil); !errors.Is(err, ErrEmptySecret) {
		t.Fatalf("expected ErrEmptySecret, got %v", err)
	}
}

func TestMintRequiresTrainerID(t *testing.T) {
	if _, err := Mint(testSecret, " ", time.Hour, nil); err == nil {
		t.Fatal("expected error for empty trainer id")
	}
}
