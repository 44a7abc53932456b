package broker

import (
	"context"

	"github.com/rs/zerolog/log"

	"github.com/jrsteele09/go-credential-broker/credentials"
	"github.com/jrsteele09/go-credential-broker/internal/errors"
	"github.com/jrsteele09/go-credential-broker/providers"
	"github.com/jrsteele09/go-credential-broker/sessions"
)

// ResolveRequest identifies the credential a caller wants: either a
// session handle or a direct (tenant, provider) pair. TokenType may be
// left empty to let the broker pick by surface precedence.
type ResolveRequest struct {
	SessionID string
	Tenant    string
	Provider  string
	TokenType providers.TokenType
}

// ResolvedSession is everything the forwarding layer needs to build a
// request against the provider's API: a currently-valid bearer token, the
// surface base URL, and the provider account key.
type ResolvedSession struct {
	Tenant      string
	Provider    string
	TokenType   providers.TokenType
	BearerToken string
	APIBaseURL  string
	AccountKey  string
}

// Connect acquires a token for every token type provisioned for the pair
// (best-effort: a tenant may hold only a voice token and no SCIM token),
// then issues a TTL-bound session handle. The handle's lifetime is fixed
// and independent of any token's expiry.
func (s *Service) Connect(ctx context.Context, tenantID, providerName string) (*sessions.Session, error) {
	tenantData, err := s.repos.Tenants.Get(ctx, tenantID)
	if err != nil {
		return nil, errors.Wrapf(err, "[Service.Connect] tenant %s", tenantID)
	}

	providerName, def, err := s.providerFor(tenantData.PrimaryProvider, providerName)
	if err != nil {
		return nil, err
	}

	settings := s.settingsFor(ctx, tenantID, providerName)
	if !settings.IsActive() {
		return nil, errors.Wrapf(errors.ErrProviderInactive, "[Service.Connect] %s/%s", tenantID, providerName)
	}

	// Provisioned means a client config exists; tokens may still be
	// missing until the bootstrap flow runs.
	if _, err := s.repos.Credentials.GetClientConfig(ctx, tenantID, providerName); err != nil {
		if errors.Is(err, errors.ErrNotFound) {
			return nil, errors.Wrapf(errors.ErrMissingCredentials, "[Service.Connect] %s/%s not provisioned", tenantID, providerName)
		}
		return nil, errors.Wrapf(err, "[Service.Connect] client config %s/%s", tenantID, providerName)
	}

	storedTypes, err := s.repos.Credentials.ListTokenTypes(ctx, tenantID, providerName)
	if err != nil {
		return nil, errors.Wrapf(err, "[Service.Connect] token types %s/%s", tenantID, providerName)
	}

	var acquired []providers.TokenType
	accountKey := ""
	for _, tokenType := range storedTypes {
		record, err := s.tokens.GetValidToken(ctx, tenantID, providerName, tokenType)
		if err != nil {
			log.Warn().Err(err).
				Str("tenant", tenantID).
				Str("provider", providerName).
				Str("token_type", string(tokenType)).
				Msg("Connect could not acquire token")
			continue
		}
		acquired = append(acquired, tokenType)
		if accountKey == "" {
			accountKey = record.AccountKey
		}
	}
	if accountKey == "" {
		accountKey = settings.AccountKey
	}
	if accountKey == "" {
		accountKey = def.DefaultAccountKey
	}

	id, err := sessions.NewID(s.idLength)
	if err != nil {
		return nil, errors.Wrapf(err, "[Service.Connect] session id")
	}

	now := s.nowFunc()
	session := &sessions.Session{
		ID:         id,
		Tenant:     tenantID,
		Provider:   providerName,
		TokenTypes: acquired,
		AccountKey: accountKey,
		CreatedAt:  now,
		ExpiresAt:  now.Add(s.sessionTTL),
	}
	if err := s.repos.Sessions.Create(ctx, session, s.sessionTTL); err != nil {
		return nil, errors.Wrapf(err, "[Service.Connect] store session")
	}

	log.Info().
		Str("tenant", tenantID).
		Str("provider", providerName).
		Int("token_types", len(acquired)).
		Time("expires_at", session.ExpiresAt).
		Msg("Session connected")
	return session, nil
}

// Resolve turns a session handle or a direct pair into a ready-to-use
// bearer token. The session's snapshot is never served verbatim: the
// token is always re-derived through the lifecycle manager, so a handle
// that outlives its token still yields a fresh one.
func (s *Service) Resolve(ctx context.Context, req ResolveRequest) (*ResolvedSession, error) {
	tenantID, providerName := req.Tenant, req.Provider
	var session *sessions.Session

	if req.SessionID != "" {
		var err error
		session, err = s.repos.Sessions.Get(ctx, req.SessionID)
		if err != nil {
			return nil, errors.Wrapf(err, "[Service.Resolve] session")
		}
		if session.IsExpired(s.nowFunc()) {
			return nil, errors.Wrapf(errors.ErrSessionNotFound, "[Service.Resolve] session expired")
		}
		tenantID, providerName = session.Tenant, session.Provider
	} else {
		tenantData, err := s.repos.Tenants.Get(ctx, tenantID)
		if err != nil {
			return nil, errors.Wrapf(err, "[Service.Resolve] tenant %s", tenantID)
		}
		if providerName == "" {
			providerName = tenantData.PrimaryProvider
		}
	}

	_, def, err := s.providerFor(providerName, providerName)
	if err != nil {
		return nil, err
	}

	tokenType, err := s.tokenTypeFor(ctx, def, session, tenantID, providerName, req.TokenType)
	if err != nil {
		return nil, err
	}

	record, err := s.tokens.GetValidToken(ctx, tenantID, providerName, tokenType)
	if err != nil {
		return nil, err
	}

	settings := s.settingsFor(ctx, tenantID, providerName)
	apiBase := settings.APIBaseURL
	if apiBase == "" {
		base, ok := def.APIBaseFor(tokenType)
		if !ok {
			return nil, errors.Wrapf(errors.ErrUnknownTokenType, "[Service.Resolve] no %s surface on %s", tokenType, providerName)
		}
		apiBase = base
	}

	accountKey := record.AccountKey
	if accountKey == "" {
		accountKey = settings.AccountKey
	}
	if accountKey == "" {
		accountKey = def.DefaultAccountKey
	}

	return &ResolvedSession{
		Tenant:      tenantID,
		Provider:    providerName,
		TokenType:   tokenType,
		BearerToken: record.AccessToken,
		APIBaseURL:  apiBase,
		AccountKey:  accountKey,
	}, nil
}

// Disconnect deletes the handle idempotently: true means something was
// deleted, false means it was already gone, and both are success.
func (s *Service) Disconnect(ctx context.Context, sessionID string) (bool, error) {
	deleted, err := s.repos.Sessions.Delete(ctx, sessionID)
	if err != nil {
		return false, errors.Wrapf(err, "[Service.Disconnect] session")
	}
	if deleted {
		log.Info().Msg("Session disconnected")
	}
	return deleted, nil
}

// providerFor resolves the provider name (falling back to the tenant's
// primary provider) and its catalog definition.
func (s *Service) providerFor(defaultName, requested string) (string, providers.Provider, error) {
	name := requested
	if name == "" {
		name = defaultName
	}
	if name == "" {
		return "", providers.Provider{}, errors.Wrapf(errors.ErrProviderNotFound, "[Service] no provider named and no primary provider configured")
	}
	def, err := s.registry.Get(name)
	if err != nil {
		return "", providers.Provider{}, err
	}
	return name, def, nil
}

// settingsFor loads the pair's settings; unprovisioned settings fall back
// to defaults (active, catalog URLs, catalog account key).
func (s *Service) settingsFor(ctx context.Context, tenantID, providerName string) *credentials.ProviderSettings {
	settings, err := s.repos.Credentials.GetSettings(ctx, tenantID, providerName)
	if err != nil {
		return &credentials.ProviderSettings{}
	}
	return settings
}

// tokenTypeFor picks the token type when the caller names none: the
// session snapshot first, then the stored records, walked in the
// provider's surface precedence order.
func (s *Service) tokenTypeFor(ctx context.Context, def providers.Provider, session *sessions.Session, tenantID, providerName string, requested providers.TokenType) (providers.TokenType, error) {
	if requested != "" {
		return requested, nil
	}

	if session != nil && len(session.TokenTypes) > 0 {
		for _, tokenType := range def.TokenTypes() {
			if session.HasTokenType(tokenType) {
				return tokenType, nil
			}
		}
		return session.TokenTypes[0], nil
	}

	stored, err := s.repos.Credentials.ListTokenTypes(ctx, tenantID, providerName)
	if err != nil {
		return "", errors.Wrapf(err, "[Service.tokenTypeFor] %s/%s", tenantID, providerName)
	}
	for _, tokenType := range def.TokenTypes() {
		for _, storedType := range stored {
			if tokenType == storedType {
				return tokenType, nil
			}
		}
	}
	if len(stored) > 0 {
		return stored[0], nil
	}
	return providers.TokenTypeAdmin, nil
}
