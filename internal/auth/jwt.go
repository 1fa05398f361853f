// Package auth narrows the teacher's org/user JWT model to a single
// operator-credential model: the service's ingest/ops routes are guarded
// by one set of operator credentials rather than per-tenant document
// scoping, since spec.md's Document has no tenant field. Adapted from
// the teacher's auth+tenant packages.
package auth

import (
	"errors"
	"time"

	"github.com/golang-jwt/jwt/v5"

	"github.com/dwarkesh-labs/transcript-rag/internal/apperr"
)

// Claims is the JWT payload issued to an authenticated operator.
type Claims struct {
	Subject string `json:"sub"`
	Role    string `json:"role"` // "operator"
	jwt.RegisteredClaims
}

type JWTManager struct {
	secret []byte
	expiry time.Duration
}

func NewJWTManager(secret string, expiry time.Duration) *JWTManager {
	return &JWTManager{secret: []byte(secret), expiry: expiry}
}

// Generate creates a signed JWT for the operator identified by subject.
func (m *JWTManager) Generate(subject string) (string, error) {
	claims := Claims{
		Subject: subject,
		Role:    "operator",
		RegisteredClaims: jwt.RegisteredClaims{
			ExpiresAt: jwt.NewNumericDate(time.Now().Add(m.expiry)),
			IssuedAt:  jwt.NewNumericDate(time.Now()),
		},
	}
	token := jwt.NewWithClaims(jwt.SigningMethodHS256, claims)
	signed, err := token.SignedString(m.secret)
	if err != nil {
		return "", apperr.Wrap(apperr.InternalInvariantViolated, "sign jwt", err)
	}
	return signed, nil
}

// Verify parses and validates a token string, returning the claims.
func (m *JWTManager) Verify(tokenStr string) (*Claims, error) {
	token, err := jwt.ParseWithClaims(tokenStr, &Claims{}, func(t *jwt.Token) (interface{}, error) {
		if _, ok := t.Method.(*jwt.SigningMethodHMAC); !ok {
			return nil, errors.New("unexpected signing method")
		}
		return m.secret, nil
	})
	if err != nil {
		return nil, apperr.Wrap(apperr.BadInput, "invalid token", err)
	}

	claims, ok := token.Claims.(*Claims)
	if !ok || !token.Valid {
		return nil, apperr.New(apperr.BadInput, "invalid token")
	}
	return claims, nil
}
