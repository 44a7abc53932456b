package token

import (
	"context"
	"time"

	"github.com/rs/zerolog/log"
	"golang.org/x/sync/singleflight"

	"github.com/jrsteele09/go-credential-broker/credentials"
	"github.com/jrsteele09/go-credential-broker/internal/errors"
	"github.com/jrsteele09/go-credential-broker/oauth2"
	"github.com/jrsteele09/go-credential-broker/providers"
)

// RefreshClient is the slice of the upstream token endpoint client the
// manager depends on.
type RefreshClient interface {
	Refresh(ctx context.Context, tokenURL, clientID, clientSecret, refreshToken string) (*oauth2.TokenResponse, error)
}

// Manager is the token lifecycle manager: it serves read-through access to
// a currently-valid access token, refreshing against the upstream
// authorization server when the buffered expiry has passed and persisting
// the replacement record.
type Manager struct {
	store         credentials.Store
	registry      *providers.Registry
	refreshClient RefreshClient
	refreshBuffer time.Duration
	refreshGroup  singleflight.Group
	nowFunc       func() time.Time
}

type ManagerOption func(*Manager)

// WithRefreshBuffer overrides the safety margin subtracted from token
// lifetimes.
func WithRefreshBuffer(buffer time.Duration) ManagerOption {
	return func(m *Manager) {
		m.refreshBuffer = buffer
	}
}

func WithNowFunc(now func() time.Time) ManagerOption {
	return func(m *Manager) {
		m.nowFunc = now
	}
}

func New(store credentials.Store, registry *providers.Registry, refreshClient RefreshClient, options ...ManagerOption) *Manager {
	m := &Manager{
		store:         store,
		registry:      registry,
		refreshClient: refreshClient,
	}

	for _, opt := range options {
		opt(m)
	}

	if m.refreshBuffer == 0 {
		m.refreshBuffer = DefaultRefreshBuffer
	}
	if m.nowFunc == nil {
		m.nowFunc = time.Now
	}
	return m
}

// RefreshBuffer returns the configured safety margin.
func (m *Manager) RefreshBuffer() time.Duration {
	return m.refreshBuffer
}

// GetValidToken returns a valid token record for the composite key,
// refreshing first when the stored record has gone stale. Concurrent
// callers observing the same stale key share a single upstream refresh;
// unrelated keys never block each other. A failed refresh leaves the
// stale record untouched so the next caller can retry cleanly.
func (m *Manager) GetValidToken(ctx context.Context, tenant, provider string, tokenType providers.TokenType) (*credentials.TokenRecord, error) {
	record, err := m.store.GetToken(ctx, tenant, provider, tokenType)
	if err != nil {
		if errors.Is(err, errors.ErrNotFound) {
			return nil, errors.Wrapf(errors.ErrMissingCredentials, "no %s token for %s/%s", tokenType, tenant, provider)
		}
		return nil, errors.Wrapf(err, "Manager.GetValidToken GetToken %s/%s", tenant, provider)
	}

	if !IsExpired(record, m.nowFunc()) {
		return record, nil
	}

	return m.refresh(ctx, tenant, provider, tokenType, false)
}

// ForceRefresh refreshes the record regardless of its stored expiry. Used
// by the administrative refresh override.
func (m *Manager) ForceRefresh(ctx context.Context, tenant, provider string, tokenType providers.TokenType) (*credentials.TokenRecord, error) {
	return m.refresh(ctx, tenant, provider, tokenType, true)
}

// refresh serializes refresh attempts per composite key. Waiters share
// the leader's result instead of racing the upstream endpoint, which
// matters because refresh tokens may be single-use.
func (m *Manager) refresh(ctx context.Context, tenant, provider string, tokenType providers.TokenType, force bool) (*credentials.TokenRecord, error) {
	key := tenant + "/" + provider + "/" + string(tokenType)

	result, err, _ := m.refreshGroup.Do(key, func() (any, error) {
		// The flight outlives any single caller; the upstream call is
		// bounded by the client timeout, not the caller's context.
		flightCtx := context.WithoutCancel(ctx)

		record, err := m.store.GetToken(flightCtx, tenant, provider, tokenType)
		if err != nil {
			if errors.Is(err, errors.ErrNotFound) {
				return nil, errors.Wrapf(errors.ErrMissingCredentials, "no %s token for %s/%s", tokenType, tenant, provider)
			}
			return nil, errors.Wrapf(err, "Manager.refresh GetToken %s/%s", tenant, provider)
		}

		// A caller that queued behind a completed refresh finds the
		// record the leader just persisted.
		if !force && !IsExpired(record, m.nowFunc()) {
			return record, nil
		}

		return m.doRefresh(flightCtx, tenant, provider, record)
	})
	if err != nil {
		return nil, err
	}
	return result.(*credentials.TokenRecord), nil
}

func (m *Manager) doRefresh(ctx context.Context, tenant, provider string, stale *credentials.TokenRecord) (*credentials.TokenRecord, error) {
	if stale.RefreshToken == "" {
		return nil, errors.Wrapf(errors.ErrReauthorizationRequired, "no refresh token for %s/%s/%s", tenant, provider, stale.TokenType)
	}

	config, err := m.store.GetClientConfig(ctx, tenant, provider)
	if err != nil {
		if errors.Is(err, errors.ErrNotFound) {
			return nil, errors.Wrapf(errors.ErrMissingCredentials, "no client config for %s/%s", tenant, provider)
		}
		return nil, errors.Wrapf(err, "Manager.doRefresh GetClientConfig %s/%s", tenant, provider)
	}

	tokenURL := config.TokenURL
	if tokenURL == "" {
		catalogEntry, err := m.registry.Get(provider)
		if err != nil {
			return nil, errors.Wrapf(err, "Manager.doRefresh no token URL for %s/%s", tenant, provider)
		}
		tokenURL = catalogEntry.TokenURL
	}

	response, err := m.refreshClient.Refresh(ctx, tokenURL, config.ClientID, config.ClientSecret, stale.RefreshToken)
	if err != nil {
		log.Error().Err(err).
			Str("tenant", tenant).
			Str("provider", provider).
			Str("token_type", string(stale.TokenType)).
			Msg("Token refresh failed")
		return nil, err
	}

	record := m.buildRecord(response, stale)
	if err := m.store.PutToken(ctx, tenant, provider, record); err != nil {
		return nil, errors.Wrapf(err, "Manager.doRefresh PutToken %s/%s", tenant, provider)
	}

	log.Info().
		Str("tenant", tenant).
		Str("provider", provider).
		Str("token_type", string(stale.TokenType)).
		Time("absolute_expiry", record.AbsoluteExpiry).
		Msg("Token refreshed")
	return record, nil
}

// buildRecord assembles the replacement record for a refresh response.
// A response that omits the rotated refresh token keeps the previous one,
// and the token type tag set at issuance is never recomputed.
func (m *Manager) buildRecord(response *oauth2.TokenResponse, stale *credentials.TokenRecord) *credentials.TokenRecord {
	now := m.nowFunc()

	refreshToken := response.RefreshToken
	if refreshToken == "" {
		refreshToken = stale.RefreshToken
	}

	scopes := response.ScopeList()
	if len(scopes) == 0 {
		scopes = stale.Scopes
	}

	accountKey := response.AccountKey
	if accountKey == "" {
		accountKey = stale.AccountKey
	}

	effectiveExpiresIn := EffectiveExpiresIn(response.AccessToken, now, response.ExpiresIn)

	return &credentials.TokenRecord{
		AccessToken:    response.AccessToken,
		RefreshToken:   refreshToken,
		TokenType:      stale.TokenType,
		Scopes:         scopes,
		IssuedAt:       now,
		ExpiresIn:      response.ExpiresIn,
		AbsoluteExpiry: ComputeExpiry(now, effectiveExpiresIn, m.refreshBuffer),
		AccountKey:     accountKey,
	}
}

// NewRecordFromResponse builds the initial record for a bootstrap token
// response: classifies its scopes, computes buffered expiry, and fills the
// account key from the provider default when the response has none. Used
// by the authorization callback and the seeding tool so issuance always
// goes through the same arithmetic.
func NewRecordFromResponse(p providers.Provider, response *oauth2.TokenResponse, now time.Time, buffer time.Duration) *credentials.TokenRecord {
	scopes := response.ScopeList()
	if len(scopes) == 0 {
		if claims, ok := DecodeClaims(response.AccessToken); ok {
			scopes = claims.Scopes
		}
	}

	accountKey := response.AccountKey
	if accountKey == "" {
		accountKey = p.DefaultAccountKey
	}

	effectiveExpiresIn := EffectiveExpiresIn(response.AccessToken, now, response.ExpiresIn)

	return &credentials.TokenRecord{
		AccessToken:    response.AccessToken,
		RefreshToken:   response.RefreshToken,
		TokenType:      p.ClassifyScope(scopes),
		Scopes:         scopes,
		IssuedAt:       now,
		ExpiresIn:      response.ExpiresIn,
		AbsoluteExpiry: ComputeExpiry(now, effectiveExpiresIn, buffer),
		AccountKey:     accountKey,
	}
}
