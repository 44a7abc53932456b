package credentials

import (
	"context"

	"github.com/jrsteele09/go-credential-broker/providers"
)

// Store is the durable credential mapping keyed by (tenant, provider) and,
// for token records, the token type tag. Every operation is scoped by the
// composite key; an implementation must never return or mutate another
// tenant's data. Lookups report absence with internal/errors.ErrNotFound,
// which callers treat as an expected steady state, not a failure.
type Store interface {
	// GetToken returns the token record for the composite key.
	GetToken(ctx context.Context, tenant, provider string, tokenType providers.TokenType) (*TokenRecord, error)

	// PutToken replaces the record stored under the record's token type
	// tag. Last writer wins; refresh serialization happens upstream.
	PutToken(ctx context.Context, tenant, provider string, record *TokenRecord) error

	// DeleteToken removes a single token record.
	DeleteToken(ctx context.Context, tenant, provider string, tokenType providers.TokenType) error

	GetClientConfig(ctx context.Context, tenant, provider string) (*ClientConfig, error)
	PutClientConfig(ctx context.Context, tenant, provider string, config *ClientConfig) error

	GetSettings(ctx context.Context, tenant, provider string) (*ProviderSettings, error)
	PutSettings(ctx context.Context, tenant, provider string, settings *ProviderSettings) error

	// ListProviders returns the provider names provisioned for a tenant.
	ListProviders(ctx context.Context, tenant string) ([]string, error)

	// ListTokenTypes returns the token type tags stored for a
	// (tenant, provider) pair.
	ListTokenTypes(ctx context.Context, tenant, provider string) ([]providers.TokenType, error)

	// DeleteProvider removes the client config, settings, and every token
	// record for the pair.
	DeleteProvider(ctx context.Context, tenant, provider string) error
}
