package oauth2

// GrantType represents the OAuth 2.0 grant type sent to the token endpoint.
// Determines what credentials accompany the request.
type GrantType string

const (
	// AuthorizationCodeGrant exchanges a bootstrap authorization code for
	// the initial token set.
	// Used in: the one-time connect flow for a tenant
	// Token request includes: code, redirect_uri, client credentials
	// Returns: access_token, refresh_token, expires_in, scope
	AuthorizationCodeGrant GrantType = "authorization_code"

	// RefreshTokenGrant exchanges a stored refresh token for a new access
	// token without re-running the interactive flow.
	// Used in: steady-state proactive refresh
	// Token request includes: refresh_token, client credentials
	// Returns: new access_token, possibly a rotated refresh_token
	RefreshTokenGrant GrantType = "refresh_token"
)
