package token

import (
	"strings"
	"time"

	"github.com/golang-jwt/jwt/v5"

	"github.com/jrsteele09/go-credential-broker/internal/utils"
)

// Claims is the subset of JWT claims the broker reads out of an upstream
// access token.
type Claims struct {
	ExpiresAt time.Time
	IssuedAt  time.Time
	Subject   string
	Scopes    []string
}

// DecodeClaims extracts claims from an access token without verifying it.
// The broker is not the token's audience; it only needs the embedded
// metadata, so no signature check is performed. Returns false when the
// token is not a decodable JWT - callers fall back to the token response
// fields.
func DecodeClaims(rawToken string) (Claims, bool) {
	parsed, _, err := jwt.NewParser().ParseUnverified(rawToken, jwt.MapClaims{})
	if err != nil {
		return Claims{}, false
	}

	mapClaims, ok := parsed.Claims.(jwt.MapClaims)
	if !ok {
		return Claims{}, false
	}

	var claims Claims
	if exp, err := mapClaims.GetExpirationTime(); err == nil && exp != nil {
		claims.ExpiresAt = exp.Time
	}
	if iat, err := mapClaims.GetIssuedAt(); err == nil && iat != nil {
		claims.IssuedAt = iat.Time
	}
	claims.Subject, _ = mapClaims["sub"].(string)

	// GoTo access tokens carry their granted scopes in the "sc" claim,
	// either space-separated or as an array.
	switch sc := mapClaims["sc"].(type) {
	case string:
		claims.Scopes = strings.Fields(sc)
	case []any:
		claims.Scopes = utils.ToStringSlice(sc)
	}

	return claims, true
}
