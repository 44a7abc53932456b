package server

import (
	"net/http"
	"time"

	"github.com/google/uuid"
	"github.com/rs/zerolog/log"
	"golang.org/x/oauth2"

	"github.com/jrsteele09/go-credential-broker/credentials"
	"github.com/jrsteele09/go-credential-broker/internal/errors"
	oauthwire "github.com/jrsteele09/go-credential-broker/oauth2"
	"github.com/jrsteele09/go-credential-broker/providers"
	"github.com/jrsteele09/go-credential-broker/server/authflowrepo"
	"github.com/jrsteele09/go-credential-broker/token"
)

// AuthorizeStartHandler begins the bootstrap authorization-code flow:
// it parks the (tenant, app) pair under a one-shot state and redirects
// the browser to the provider's authorize endpoint. The interactive part
// (login, MFA, consent) happens entirely upstream.
func (s *Server) AuthorizeStartHandler() http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		query := r.URL.Query()
		tenantID := query.Get("tenant")
		if tenantID == "" {
			writeJSONError(w, "invalid_request", "tenant is required", http.StatusBadRequest)
			return
		}

		tenantData, err := s.tenants.Get(r.Context(), tenantID)
		if err != nil {
			writeBrokerError(w, err)
			return
		}

		providerName := query.Get("app")
		if providerName == "" {
			providerName = tenantData.PrimaryProvider
		}

		def, clientConfig, err := s.providerClient(r, tenantID, providerName)
		if err != nil {
			writeBrokerError(w, err)
			return
		}

		state := uuid.New().String()
		authState := &authflowrepo.State{
			Tenant:    tenantID,
			Provider:  providerName,
			CreatedAt: time.Now(),
		}
		if err := s.authStates.Create(r.Context(), state, authState, s.config.GetAuthStateTimeout()); err != nil {
			writeBrokerError(w, err)
			return
		}

		authURL := s.oauthConfig(def, clientConfig).AuthCodeURL(state, oauth2.AccessTypeOffline)
		http.Redirect(w, r, authURL, http.StatusFound)
	}
}

// AuthCallbackHandler receives the upstream redirect, validates the
// one-shot state, exchanges the code, and deposits the resulting token
// record. Issuance classification and expiry arithmetic are the token
// package's; this handler only moves data.
func (s *Server) AuthCallbackHandler() http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		query := r.URL.Query()

		if authError := query.Get("error"); authError != "" {
			writeJSONError(w, "authorization_denied", "authorization was denied upstream", http.StatusBadRequest)
			return
		}

		code := query.Get("code")
		state := query.Get("state")
		if code == "" || state == "" {
			writeJSONError(w, "invalid_request", "code and state are required", http.StatusBadRequest)
			return
		}

		authState, err := s.authStates.Take(r.Context(), state)
		if err != nil {
			if errors.Is(err, errors.ErrStateNotFound) {
				writeJSONError(w, "invalid_state", "state not found, expired, or already used", http.StatusBadRequest)
				return
			}
			writeBrokerError(w, err)
			return
		}

		def, clientConfig, err := s.providerClient(r, authState.Tenant, authState.Provider)
		if err != nil {
			writeBrokerError(w, err)
			return
		}

		exchanged, err := s.oauthConfig(def, clientConfig).Exchange(r.Context(), code)
		if err != nil {
			log.Error().Err(err).
				Str("tenant", authState.Tenant).
				Str("provider", authState.Provider).
				Msg("Code exchange failed")
			writeJSONError(w, "exchange_failed", "code exchange with the authorization server failed", http.StatusBadGateway)
			return
		}

		response := wireResponse(exchanged)
		record := token.NewRecordFromResponse(def, response, time.Now(), s.config.GetRefreshBuffer())
		if err := s.credentials.PutToken(r.Context(), authState.Tenant, authState.Provider, record); err != nil {
			writeBrokerError(w, err)
			return
		}

		log.Info().
			Str("tenant", authState.Tenant).
			Str("provider", authState.Provider).
			Str("token_type", string(record.TokenType)).
			Time("absolute_expiry", record.AbsoluteExpiry).
			Msg("Authorization complete")

		writeJSON(w, http.StatusOK, map[string]any{
			"status":     "authorized",
			"tenant":     authState.Tenant,
			"app":        authState.Provider,
			"token_type": record.TokenType,
			"expires_at": record.AbsoluteExpiry,
		})
	}
}

// providerClient resolves the catalog definition (discovering endpoints
// when only an issuer is configured) and the pair's client config.
func (s *Server) providerClient(r *http.Request, tenantID, providerName string) (providers.Provider, *credentials.ClientConfig, error) {
	def, err := s.registry.Get(providerName)
	if err != nil {
		return providers.Provider{}, nil, err
	}

	def, err = providers.ResolveEndpoints(r.Context(), def)
	if err != nil {
		return providers.Provider{}, nil, err
	}

	clientConfig, err := s.credentials.GetClientConfig(r.Context(), tenantID, providerName)
	if err != nil {
		if errors.Is(err, errors.ErrNotFound) {
			return providers.Provider{}, nil, errors.Wrapf(errors.ErrMissingCredentials, "[Server.providerClient] %s/%s not provisioned", tenantID, providerName)
		}
		return providers.Provider{}, nil, err
	}
	return def, clientConfig, nil
}

// oauthConfig assembles the x/oauth2 config for the bootstrap exchange.
// Per-tenant overrides in the client config win over the catalog entry.
func (s *Server) oauthConfig(def providers.Provider, clientConfig *credentials.ClientConfig) *oauth2.Config {
	authorizeURL := def.AuthorizeURL
	if clientConfig.AuthorizeURL != "" {
		authorizeURL = clientConfig.AuthorizeURL
	}
	tokenURL := def.TokenURL
	if clientConfig.TokenURL != "" {
		tokenURL = clientConfig.TokenURL
	}
	redirectURI := clientConfig.RedirectURI
	if redirectURI == "" {
		redirectURI = s.config.GetBaseURL() + RouteAuthCallback
	}
	scopes := clientConfig.Scopes
	if len(scopes) == 0 {
		scopes = def.Scopes
	}

	return &oauth2.Config{
		ClientID:     clientConfig.ClientID,
		ClientSecret: clientConfig.ClientSecret,
		RedirectURL:  redirectURI,
		Scopes:       scopes,
		Endpoint: oauth2.Endpoint{
			AuthURL:   authorizeURL,
			TokenURL:  tokenURL,
			AuthStyle: oauth2.AuthStyleInHeader,
		},
	}
}

// wireResponse converts an exchanged x/oauth2 token into the broker's
// wire representation, lifting the provider extras it cares about.
func wireResponse(exchanged *oauth2.Token) *oauthwire.TokenResponse {
	response := &oauthwire.TokenResponse{
		AccessToken:  exchanged.AccessToken,
		RefreshToken: exchanged.RefreshToken,
		TokenType:    exchanged.TokenType,
		ExpiresIn:    exchanged.ExpiresIn,
	}
	if scope, ok := exchanged.Extra("scope").(string); ok {
		response.Scope = scope
	}
	if principal, ok := exchanged.Extra("principal").(string); ok {
		response.Principal = principal
	}
	if accountKey, ok := exchanged.Extra("account_key").(string); ok {
		response.AccountKey = accountKey
	}
	return response
}
