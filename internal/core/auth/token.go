// Package auth verifies the bearer token a job carries before any browser
// work begins. A missing or invalid token aborts the job outright.
package auth

import (
	"fmt"

	"github.com/golang-jwt/jwt/v5"

	"github.com/vietddude/prospector/internal/core/domain"
)

// Verifier checks HS256-signed bearer tokens.
type Verifier struct {
	secret []byte
}

// NewVerifier creates a verifier from the shared signing secret.
func NewVerifier(secret string) *Verifier {
	return &Verifier{secret: []byte(secret)}
}

// Verify parses and validates token, returning its registered claims.
func (v *Verifier) Verify(token string) (*jwt.RegisteredClaims, error) {
	if token == "" {
		return nil, domain.ErrMissingToken
	}

	claims := &jwt.RegisteredClaims{}
	parsed, err := jwt.ParseWithClaims(token, claims, func(t *jwt.Token) (any, error) {
		if _, ok := t.Method.(*jwt.SigningMethodHMAC); !ok {
			return nil, fmt.Errorf("unexpected signing method %v", t.Header["alg"])
		}
		return v.secret, nil
	}, jwt.WithValidMethods([]string{"HS256"}))
	if err != nil {
		return nil, fmt.Errorf("%w: %v", domain.ErrInvalidToken, err)
	}
	if !parsed.Valid {
		return nil, domain.ErrInvalidToken
	}
	return claims, nil
}
