package server

import (
	"encoding/json"
	"net/http"

	"github.com/rs/zerolog/log"

	"github.com/jrsteele09/go-credential-broker/broker"
	"github.com/jrsteele09/go-credential-broker/internal/errors"
	"github.com/jrsteele09/go-credential-broker/oauthclient"
	"github.com/jrsteele09/go-credential-broker/providers"
)

const contentTypeJSON = "application/json; charset=utf-8"

// HealthHandler reports liveness plus the durable store's reachability.
func (s *Server) HealthHandler() http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		overall := "ok"
		redisStatus := "unconfigured"
		status := http.StatusOK
		if s.health != nil {
			if err := s.health.Ping(r.Context()); err != nil {
				overall = "degraded"
				redisStatus = "unreachable"
				status = http.StatusServiceUnavailable
			} else {
				redisStatus = "ok"
			}
		}
		writeJSON(w, status, map[string]string{
			"status": overall,
			"redis":  redisStatus,
		})
	}
}

type connectRequest struct {
	Tenant string `json:"tenant"`
	App    string `json:"app"`
}

// ConnectHandler issues a session handle for a (tenant, app) pair.
func (s *Server) ConnectHandler() http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		var req connectRequest
		if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
			writeJSONError(w, "invalid_request", "malformed JSON body", http.StatusBadRequest)
			return
		}
		if req.Tenant == "" {
			writeJSONError(w, "invalid_request", "tenant is required", http.StatusBadRequest)
			return
		}

		session, err := s.broker.Connect(r.Context(), req.Tenant, req.App)
		if err != nil {
			writeBrokerError(w, err)
			return
		}

		writeJSON(w, http.StatusOK, map[string]any{
			"session_id": session.ID,
			"expires_in": int64(s.broker.SessionTTL().Seconds()),
		})
	}
}

// StatusHandler reports per-token-type authenticated flags and expiry
// timestamps, by session id or by direct (tenant, app) pair.
func (s *Server) StatusHandler() http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		query := r.URL.Query()
		req := broker.StatusRequest{
			SessionID: query.Get("session_id"),
			Tenant:    query.Get("tenant"),
			Provider:  query.Get("app"),
		}
		if req.SessionID == "" && req.Tenant == "" {
			writeJSONError(w, "invalid_request", "session_id or tenant is required", http.StatusBadRequest)
			return
		}

		report, err := s.broker.Status(r.Context(), req)
		if err != nil {
			writeBrokerError(w, err)
			return
		}
		writeJSON(w, http.StatusOK, report)
	}
}

// DisconnectHandler deletes a session handle. Idempotent: disconnecting
// an absent handle is still a 200.
func (s *Server) DisconnectHandler() http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		sessionID := r.URL.Query().Get("session_id")
		if sessionID == "" {
			var body struct {
				SessionID string `json:"session_id"`
			}
			if err := json.NewDecoder(r.Body).Decode(&body); err == nil {
				sessionID = body.SessionID
			}
		}
		if sessionID == "" {
			writeJSONError(w, "invalid_request", "session_id is required", http.StatusBadRequest)
			return
		}

		disconnected, err := s.broker.Disconnect(r.Context(), sessionID)
		if err != nil {
			writeBrokerError(w, err)
			return
		}
		writeJSON(w, http.StatusOK, map[string]bool{"disconnected": disconnected})
	}
}

type refreshRequest struct {
	Tenant    string `json:"tenant"`
	App       string `json:"app"`
	TokenType string `json:"token_type,omitempty"`
}

// RefreshHandler forces a token refresh regardless of stored expiry.
func (s *Server) RefreshHandler() http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		var req refreshRequest
		if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
			writeJSONError(w, "invalid_request", "malformed JSON body", http.StatusBadRequest)
			return
		}
		if req.Tenant == "" {
			writeJSONError(w, "invalid_request", "tenant is required", http.StatusBadRequest)
			return
		}

		tokenType := providers.TokenType("")
		if req.TokenType != "" {
			parsed, ok := providers.ParseTokenType(req.TokenType)
			if !ok {
				writeJSONError(w, "invalid_request", "unknown token_type", http.StatusBadRequest)
				return
			}
			tokenType = parsed
		}

		if err := s.broker.Refresh(r.Context(), req.Tenant, req.App, tokenType); err != nil {
			writeBrokerError(w, err)
			return
		}
		writeJSON(w, http.StatusOK, map[string]string{"status": "refreshed"})
	}
}

func writeJSON(w http.ResponseWriter, statusCode int, payload any) {
	w.Header().Set("Content-Type", contentTypeJSON)
	w.WriteHeader(statusCode)
	_ = json.NewEncoder(w).Encode(payload)
}

// writeJSONError writes a stable error body
func writeJSONError(w http.ResponseWriter, errorCode, description string, statusCode int) {
	w.Header().Set("Content-Type", contentTypeJSON)
	w.WriteHeader(statusCode)
	_ = json.NewEncoder(w).Encode(map[string]string{
		"error":             errorCode,
		"error_description": description,
	})
}

// writeBrokerError maps the broker's error taxonomy onto stable
// user-visible statuses. Upstream error bodies never pass through here:
// only the broker's own classification is surfaced.
func writeBrokerError(w http.ResponseWriter, err error) {
	var refreshErr *oauthclient.RefreshError

	switch {
	case errors.Is(err, errors.ErrTenantNotFound):
		writeJSONError(w, "unknown_tenant", "tenant not found", http.StatusNotFound)
	case errors.Is(err, errors.ErrProviderNotFound):
		writeJSONError(w, "unknown_provider", "provider not found", http.StatusNotFound)
	case errors.Is(err, errors.ErrProviderInactive):
		writeJSONError(w, "provider_inactive", "provider is not active", http.StatusConflict)
	case errors.Is(err, errors.ErrSessionNotFound):
		writeJSONError(w, "session_invalid", "session not found or expired", http.StatusUnauthorized)
	case errors.Is(err, errors.ErrMissingCredentials):
		writeJSONError(w, "missing_credentials", "credentials not provisioned", http.StatusUnprocessableEntity)
	case errors.Is(err, errors.ErrReauthorizationRequired):
		writeJSONError(w, "reauthorization_required", "refresh token absent or invalid; rerun the authorization flow", http.StatusForbidden)
	case errors.As(err, &refreshErr) && refreshErr.Transient:
		writeJSONError(w, "refresh_failed", "token refresh failed; retry later", http.StatusBadGateway)
	case errors.As(err, &refreshErr):
		writeJSONError(w, "refresh_rejected", "token refresh rejected by the authorization server", http.StatusUnauthorized)
	default:
		log.Error().Err(err).Msg("Unclassified broker error")
		writeJSONError(w, "internal_error", "internal server error", http.StatusInternalServerError)
	}
}
