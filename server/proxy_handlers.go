package server

import (
	"io"
	"net/http"
	"net/url"
	"strings"

	"github.com/rs/zerolog/log"

	"github.com/jrsteele09/go-credential-broker/broker"
	"github.com/jrsteele09/go-credential-broker/providers"
)

// surface binds a proxy route to the token type whose credential fronts
// it and the surface-specific request fixups.
type surface struct {
	tokenType providers.TokenType

	// injectAccountKey adds the provider account key as a query
	// parameter when the caller supplied none. Voice-admin calls
	// require it.
	injectAccountKey bool
}

var (
	adminSurface = surface{tokenType: providers.TokenTypeAdmin}
	voiceSurface = surface{tokenType: providers.TokenTypeVoice, injectAccountKey: true}
	scimSurface  = surface{tokenType: providers.TokenTypeScim}
)

// Headers copied from the inbound request onto the forwarded one.
// Authorization is deliberately absent: the broker injects its own.
var forwardedHeaders = []string{"Content-Type", "Accept", "Accept-Encoding", "If-Match", "If-None-Match"}

// ProxyHandler forwards a request to the provider's API surface with a
// freshly resolved bearer token. The broker knows nothing about the
// forwarded method, path, or body; it only rewrites the target and the
// credentials.
func (s *Server) ProxyHandler(apiSurface surface) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		resolved, err := s.resolveForProxy(r, apiSurface.tokenType)
		if err != nil {
			writeBrokerError(w, err)
			return
		}

		targetURL, err := buildTargetURL(resolved, r, apiSurface)
		if err != nil {
			writeJSONError(w, "invalid_request", "malformed proxy path", http.StatusBadRequest)
			return
		}

		outbound, err := http.NewRequestWithContext(r.Context(), r.Method, targetURL, r.Body)
		if err != nil {
			writeJSONError(w, "invalid_request", "could not build upstream request", http.StatusBadRequest)
			return
		}
		for _, header := range forwardedHeaders {
			if value := r.Header.Get(header); value != "" {
				outbound.Header.Set(header, value)
			}
		}
		outbound.Header.Set("Authorization", "Bearer "+resolved.BearerToken)
		if outbound.Header.Get("Accept") == "" {
			outbound.Header.Set("Accept", "application/json")
		}

		response, err := s.proxyClient.Do(outbound)
		if err != nil {
			log.Error().Err(err).
				Str("provider", resolved.Provider).
				Str("token_type", string(resolved.TokenType)).
				Msg("Proxy request failed")
			writeJSONError(w, "upstream_unavailable", "provider API request failed", http.StatusBadGateway)
			return
		}
		defer response.Body.Close()

		copyResponseHeaders(w, response)
		w.WriteHeader(response.StatusCode)
		_, _ = io.Copy(w, response.Body)
	}
}

// resolveForProxy picks the credential source: the session handle from
// the X-Session-Id header (or session_id query parameter), else the
// direct (tenant, app) pair from the query.
func (s *Server) resolveForProxy(r *http.Request, tokenType providers.TokenType) (*broker.ResolvedSession, error) {
	sessionID := r.Header.Get(HeaderSessionID)
	if sessionID == "" {
		sessionID = r.URL.Query().Get("session_id")
	}

	return s.broker.Resolve(r.Context(), broker.ResolveRequest{
		SessionID: sessionID,
		Tenant:    r.URL.Query().Get("tenant"),
		Provider:  r.URL.Query().Get("app"),
		TokenType: tokenType,
	})
}

// buildTargetURL joins the resolved API base with the wildcard path and
// carries the caller's query across, minus the broker's own parameters.
func buildTargetURL(resolved *broker.ResolvedSession, r *http.Request, apiSurface surface) (string, error) {
	target, err := url.Parse(strings.TrimSuffix(resolved.APIBaseURL, "/") + "/" + r.PathValue("path"))
	if err != nil {
		return "", err
	}

	query := r.URL.Query()
	query.Del("session_id")
	query.Del("tenant")
	query.Del("app")
	if apiSurface.injectAccountKey && query.Get("accountKey") == "" && resolved.AccountKey != "" {
		query.Set("accountKey", resolved.AccountKey)
	}
	target.RawQuery = query.Encode()
	return target.String(), nil
}

func copyResponseHeaders(w http.ResponseWriter, response *http.Response) {
	for _, header := range []string{"Content-Type", "Content-Length", "ETag", "Cache-Control"} {
		if value := response.Header.Get(header); value != "" {
			w.Header().Set(header, value)
		}
	}
}
