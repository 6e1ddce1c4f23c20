package token_test

import (
	"testing"
	"time"

	"github.com/golang-jwt/jwt/v5"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/kadrohq/kadro-go/token"
)

func signedToken(t *testing.T, claims jwt.MapClaims) string {
	t.Helper()
	raw, err := jwt.NewWithClaims(jwt.SigningMethodHS256, claims).SignedString([]byte("test-key"))
	require.NoError(t, err)
	return raw
}

func TestExpiresAt(t *testing.T) {
	exp := time.Now().Add(15 * time.Minute).Truncate(time.Second)
	raw := signedToken(t, jwt.MapClaims{"exp": exp.Unix(), "sub": "u1"})

	got, ok := token.ExpiresAt(raw)
	require.True(t, ok)
	assert.Equal(t, exp.Unix(), got.Unix())
}

func TestExpiresAtWithoutClaim(t *testing.T) {
	raw := signedToken(t, jwt.MapClaims{"sub": "u1"})

	_, ok := token.ExpiresAt(raw)
	assert.False(t, ok)
}

func TestSubject(t *testing.T) {
	raw := signedToken(t, jwt.MapClaims{"sub": "u1"})

	sub, ok := token.Subject(raw)
	require.True(t, ok)
	assert.Equal(t, "u1", sub)
}

// Opaque, non-JWT tokens are fine: the peek just reports nothing.
func TestOpaqueTokensAreTolerated(t *testing.T) {
	for _, raw := range []string{"", "not-a-jwt", "a.b", "a.b.c"} {
		_, ok := token.ExpiresAt(raw)
		assert.False(t, ok, raw)
		_, ok = token.Subject(raw)
		assert.False(t, ok, raw)
	}
}
