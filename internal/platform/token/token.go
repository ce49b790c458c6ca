// Package token mints and verifies caller identity tokens.
//
// Tokens are HS256 JWTs carrying the trainer ID as a custom claim. The
// server only consumes them; issuing is done out of band by whatever signs
// trainers in, sharing the same secret.
package token

import (
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/golang-jwt/jwt/v5"
)

// Issuer is the expected issuer claim for trainer tokens.
const Issuer = "wildgrid"

var (
	// ErrEmptySecret indicates the signing secret is not configured.
	ErrEmptySecret = errors.New("token secret is required")
	// ErrInvalidToken indicates the token failed signature or claim checks.
	ErrInvalidToken = errors.New("invalid trainer token")
)

// trainerClaims is the internal claims type used for JWT parsing.
type trainerClaims struct {
	jwt.RegisteredClaims
	TrainerID string `json:"trainer_id"`
}

// Verifier validates trainer tokens against a shared secret.
type Verifier struct {
	secret []byte
	now    func() time.Time
}

// NewVerifier creates a Verifier for the given shared secret.
func NewVerifier(secret []byte) (*Verifier, error) {
	if len(secret) == 0 {
		return nil, ErrEmptySecret
	}
	return &Verifier{secret: secret, now: time.Now}, nil
}

// Verify parses a bearer token and returns the trainer ID it identifies.
func (v *Verifier) Verify(raw string) (string, error) {
	raw = strings.TrimSpace(raw)
	if raw == "" {
		return "", ErrInvalidToken
	}

	claims := &trainerClaims{}
	parsed, err := jwt.ParseWithClaims(raw, claims, func(t *jwt.Token) (any, error) {
		if _, ok := t.Method.(*jwt.SigningMethodHMAC); !ok {
			return nil, fmt.Errorf("unexpected signing method %q", t.Method.Alg())
		}
		return v.secret, nil
	},
		jwt.WithIssuer(Issuer),
		jwt.WithTimeFunc(v.now),
		jwt.WithValidMethods([]string{jwt.SigningMethodHS256.Alg()}),
	)
	if err != nil || !parsed.Valid {
		return "", ErrInvalidToken
	}

	trainerID := strings.TrimSpace(claims.TrainerID)
	if trainerID == "" {
		return "", ErrInvalidToken
	}
	return trainerID, nil
}

// Mint signs a trainer token valid for the given duration.
//
// Services do not mint tokens in normal operation; this exists for seeding
// and tests.
func Mint(secret []byte, trainerID string, ttl time.Duration, now func() time.Time) (string, error) {
	if len(secret) == 0 {
		return "", ErrEmptySecret
	}
	trainerID = strings.TrimSpace(trainerID)
	if trainerID == "" {
		return "", fmt.Errorf("trainer id is required")
	}
	if now == nil {
		now = time.Now
	}

	issuedAt := now().UTC()
	claims := trainerClaims{
		RegisteredClaims: jwt.RegisteredClaims{
			Issuer:    Issuer,
			IssuedAt:  jwt.NewNumericDate(issuedAt),
			ExpiresAt: jwt.NewNumericDate(issuedAt.Add(ttl)),
		},
		TrainerID: trainerID,
	}
	signed, err := jwt.NewWithClaims(jwt.SigningMethodHS256, claims).SignedString(secret)
	if err != nil {
		return "", fmt.Errorf("sign trainer token: %w", err)
	}
	return signed, nil
}
