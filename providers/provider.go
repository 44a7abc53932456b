package providers

import "strings"

// TokenType partitions a tenant's credentials by the API surface their
// scopes grant access to. The tag is assigned once, when a token is issued,
// and stored alongside the token; it is never re-derived at use time.
type TokenType string

const (
	// TokenTypeAdmin covers the provider's administrative REST API.
	// This is the fallback classification when no other surface matches.
	TokenTypeAdmin TokenType = "admin"

	// TokenTypeVoice covers the voice administration API.
	TokenTypeVoice TokenType = "voice"

	// TokenTypeScim covers the SCIM identity API.
	TokenTypeScim TokenType = "scim"

	// TokenTypeOther marks records whose classification was set externally
	// and matches no known surface.
	TokenTypeOther TokenType = "other"
)

// ParseTokenType converts a stored tag back into a TokenType.
func ParseTokenType(s string) (TokenType, bool) {
	switch TokenType(s) {
	case TokenTypeAdmin, TokenTypeVoice, TokenTypeScim, TokenTypeOther:
		return TokenType(s), true
	}
	return "", false
}

// Surface binds a token type to the API base URL it fronts and the scope
// marker that identifies it. A Surface with an empty ScopeMark is the
// classification fallback.
type Surface struct {
	Type       TokenType
	ScopeMark  string
	APIBaseURL string
}

// Provider describes one upstream OAuth provider: where to authorize and
// exchange tokens, which scopes the bootstrap flow requests, and the API
// surfaces its tokens unlock.
type Provider struct {
	Name         string
	AuthorizeURL string
	TokenURL     string

	// IssuerURL enables OIDC endpoint discovery when the authorize or
	// token URL is not configured explicitly.
	IssuerURL string

	// Scopes requested during the bootstrap authorization-code flow.
	Scopes []string

	// Surfaces in classification precedence order. Classification walks
	// the list and returns the first surface whose ScopeMark appears in
	// any granted scope; a surface with an empty ScopeMark terminates the
	// walk as the fallback.
	Surfaces []Surface

	// DefaultAccountKey is used when a token response carries no account
	// key of its own.
	DefaultAccountKey string
}

// ClassifyScope derives the token type tag from the granted scopes.
// Precedence follows the Surfaces order, so a token carrying both a voice
// and a SCIM scope classifies by whichever surface is listed first.
func (p Provider) ClassifyScope(scopes []string) TokenType {
	joined := strings.Join(scopes, " ")
	for _, surface := range p.Surfaces {
		if surface.ScopeMark == "" {
			return surface.Type
		}
		if strings.Contains(joined, surface.ScopeMark) {
			return surface.Type
		}
	}
	return TokenTypeOther
}

// APIBaseFor returns the API base URL fronted by tokens of the given type.
func (p Provider) APIBaseFor(tokenType TokenType) (string, bool) {
	for _, surface := range p.Surfaces {
		if surface.Type == tokenType {
			return surface.APIBaseURL, true
		}
	}
	return "", false
}

// TokenTypes lists the token types this provider is configured with, in
// surface order.
func (p Provider) TokenTypes() []TokenType {
	types := make([]TokenType, 0, len(p.Surfaces))
	for _, surface := range p.Surfaces {
		types = append(types, surface.Type)
	}
	return types
}
