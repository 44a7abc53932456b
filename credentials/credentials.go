package credentials

import (
	"time"

	"github.com/jrsteele09/go-credential-broker/providers"
)

// ClientConfig holds the OAuth client an operator provisioned for a
// (tenant, provider) pair. Immutable except through an explicit
// administrative update.
type ClientConfig struct {
	ClientID     string   `json:"client_id"`
	ClientSecret string   `json:"client_secret"`
	AuthorizeURL string   `json:"authorize_url,omitempty"` // overrides the catalog entry when set
	TokenURL     string   `json:"token_url,omitempty"`     // overrides the catalog entry when set
	RedirectURI  string   `json:"redirect_uri,omitempty"`
	Scopes       []string `json:"scopes,omitempty"`
}

// TokenRecord is the current token material for one
// (tenant, provider, tokenType) key. Only the token lifecycle manager
// mutates it, and only by whole-record replacement on successful refresh.
type TokenRecord struct {
	AccessToken  string              `json:"access_token"`
	RefreshToken string              `json:"refresh_token,omitempty"`
	TokenType    providers.TokenType `json:"token_type"`
	Scopes       []string            `json:"scopes,omitempty"`

	// IssuedAt is the instant the token response was received.
	IssuedAt time.Time `json:"issued_at"`

	// ExpiresIn is the raw lifetime in seconds reported by the provider.
	// Callers never compare against it directly; staleness checks go
	// through AbsoluteExpiry, which already carries the refresh buffer.
	ExpiresIn int64 `json:"expires_in"`

	// AbsoluteExpiry is IssuedAt + ExpiresIn - refresh buffer.
	AbsoluteExpiry time.Time `json:"absolute_expiry"`

	AccountKey string `json:"account_key,omitempty"`
}

// Status reports whether a provisioned provider accepts traffic.
type Status string

const (
	StatusActive   Status = "active"
	StatusInactive Status = "inactive"
)

// ProviderSettings is the per-(tenant, provider) metadata stored next to
// the client config and token records.
type ProviderSettings struct {
	Status          Status   `json:"status"`
	APIBaseURL      string   `json:"api_base_url,omitempty"` // overrides the catalog surface when set
	FeaturesEnabled []string `json:"features_enabled,omitempty"`
	SyncEnabled     bool     `json:"sync_enabled"`
	AccountKey      string   `json:"account_key,omitempty"`
}

// IsActive returns true when the provider should accept traffic.
// Unprovisioned settings default to active.
func (s *ProviderSettings) IsActive() bool {
	if s == nil {
		return true
	}
	return s.Status == "" || s.Status == StatusActive
}
