package providers

import (
	"context"

	"github.com/coreos/go-oidc/v3/oidc"
	"github.com/pkg/errors"
)

// ResolveEndpoints fills in the authorize and token URLs from the
// provider's OIDC discovery document when only an issuer is configured.
// Providers with both URLs already set are returned unchanged without a
// network call.
func ResolveEndpoints(ctx context.Context, p Provider) (Provider, error) {
	if p.AuthorizeURL != "" && p.TokenURL != "" {
		return p, nil
	}
	if p.IssuerURL == "" {
		return p, errors.Errorf("[providers.ResolveEndpoints] provider %q has no endpoints and no issuer", p.Name)
	}

	discovered, err := oidc.NewProvider(ctx, p.IssuerURL)
	if err != nil {
		return p, errors.Wrapf(err, "[providers.ResolveEndpoints] discovery for %q", p.Name)
	}

	endpoint := discovered.Endpoint()
	if p.AuthorizeURL == "" {
		p.AuthorizeURL = endpoint.AuthURL
	}
	if p.TokenURL == "" {
		p.TokenURL = endpoint.TokenURL
	}
	return p, nil
}
