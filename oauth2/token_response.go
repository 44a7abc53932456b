package oauth2

import "strings"

// TokenResponse represents the response from an upstream OAuth2 token
// request. This is the standard token endpoint response format as defined
// in RFC 6749, plus the provider-specific extras GoTo returns alongside it.
type TokenResponse struct {
	// AccessToken is the bearer token used to access the provider's APIs.
	// Example: "eyJhbGciOiJSUzI1NiIsInR5cCI6IkpXVCJ9..."
	// Usage: Include in Authorization header: "Bearer <access_token>"
	AccessToken string `json:"access_token"`

	// RefreshToken is an opaque token used to obtain new access tokens.
	// Providers that rotate refresh tokens return a new value here; when
	// the field is absent the previously stored refresh token remains
	// valid and must be retained.
	RefreshToken string `json:"refresh_token,omitempty"`

	// TokenType indicates how to use the access token (always "Bearer"
	// from the providers this broker fronts).
	TokenType string `json:"token_type,omitempty"`

	// ExpiresIn is the lifetime in seconds of the access token.
	// Note: This is a hint - when the access token is a JWT, its "exp"
	// claim is authoritative.
	ExpiresIn int64 `json:"expires_in,omitempty"`

	// Scope is the space-separated list of granted scopes. May be less
	// than requested if some scopes were denied.
	Scope string `json:"scope,omitempty"`

	// Principal is the authenticated principal, typically the email of
	// the account the tokens were authorized for.
	Principal string `json:"principal,omitempty"`

	// AccountKey identifies the provider account the tokens belong to.
	// GoTo-specific; used when constructing voice-admin API requests.
	AccountKey string `json:"account_key,omitempty"`
}

// ScopeList splits the space-separated scope string into individual scopes.
func (tr *TokenResponse) ScopeList() []string {
	return strings.Fields(tr.Scope)
}

// ErrorResponse is the error body a token endpoint returns with a non-2xx
// status, as defined in RFC 6749 section 5.2.
type ErrorResponse struct {
	Error            string `json:"error"`
	ErrorDescription string `json:"error_description,omitempty"`
	ErrorURI         string `json:"error_uri,omitempty"`
}
