// Package token offers best-effort, unverified peeks into JWT-shaped access
// tokens. The access token is contractually opaque: its real expiry is only
// discovered by a 401 from the backend, and nothing here may gate
// authentication. These helpers exist for logging and diagnostics only.
package token

import (
	"time"

	"github.com/golang-jwt/jwt/v5"
)

// ExpiresAt returns the exp claim of the token without verifying its
// signature. ok is false when the token is not JWT-shaped or carries no
// expiry.
func ExpiresAt(raw string) (time.Time, bool) {
	claims := peek(raw)
	if claims == nil {
		return time.Time{}, false
	}
	exp, err := claims.GetExpirationTime()
	if err != nil || exp == nil {
		return time.Time{}, false
	}
	return exp.Time, true
}

// Subject returns the sub claim of the token without verifying its
// signature.
func Subject(raw string) (string, bool) {
	claims := peek(raw)
	if claims == nil {
		return "", false
	}
	sub, err := claims.GetSubject()
	if err != nil || sub == "" {
		return "", false
	}
	return sub, true
}

func peek(raw string) jwt.MapClaims {
	if raw == "" {
		return nil
	}
	claims := jwt.MapClaims{}
	if _, _, err := jwt.NewParser().ParseUnverified(raw, claims); err != nil {
		return nil
	}
	return claims
}
