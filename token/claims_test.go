package token_test

import (
	"testing"
	"time"

	"github.com/golang-jwt/jwt/v5"
	"github.com/stretchr/testify/require"

	"github.com/jrsteele09/go-credential-broker/token"
)

func TestDecodeClaims(t *testing.T) {
	t.Run("full claim set", func(t *testing.T) {
		exp := time.Date(2026, time.January, 15, 13, 0, 0, 0, time.UTC)
		iat := exp.Add(-time.Hour)
		raw := signedToken(t, jwt.MapClaims{
			"exp": exp.Unix(),
			"iat": iat.Unix(),
			"sub": "user-123",
			"sc":  "voice-admin.v1.read identity:scim.org",
		})

		claims, ok := token.DecodeClaims(raw)
		require.True(t, ok)
		require.Equal(t, exp, claims.ExpiresAt.UTC())
		require.Equal(t, iat, claims.IssuedAt.UTC())
		require.Equal(t, "user-123", claims.Subject)
		require.Equal(t, []string{"voice-admin.v1.read", "identity:scim.org"}, claims.Scopes)
	})

	t.Run("scopes as array", func(t *testing.T) {
		raw := signedToken(t, jwt.MapClaims{"sc": []string{"voice-admin.v1.read"}})

		claims, ok := token.DecodeClaims(raw)
		require.True(t, ok)
		require.Equal(t, []string{"voice-admin.v1.read"}, claims.Scopes)
	})

	t.Run("not a jwt", func(t *testing.T) {
		_, ok := token.DecodeClaims("opaque-token-value")
		require.False(t, ok)
	})

	t.Run("empty token", func(t *testing.T) {
		_, ok := token.DecodeClaims("")
		require.False(t, ok)
	})
}
