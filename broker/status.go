package broker

import (
	"context"
	"time"

	"github.com/rs/zerolog/log"

	"github.com/jrsteele09/go-credential-broker/internal/errors"
	"github.com/jrsteele09/go-credential-broker/internal/utils"
	"github.com/jrsteele09/go-credential-broker/providers"
	"github.com/jrsteele09/go-credential-broker/token"
)

// StatusRequest selects what to report on: a session handle, or a direct
// (tenant, provider) pair.
type StatusRequest struct {
	SessionID string
	Tenant    string
	Provider  string
}

// TokenStatus reports one token type's state without triggering a
// refresh. Authenticated means a record exists and its buffered expiry
// has not passed.
type TokenStatus struct {
	TokenType     providers.TokenType `json:"token_type"`
	Authenticated bool                `json:"authenticated"`
	IssuedAt      *time.Time          `json:"issued_at,omitempty"`
	ExpiresAt     *time.Time          `json:"expires_at,omitempty"`
}

// StatusReport is the administrative status view for a pair.
type StatusReport struct {
	Tenant           string        `json:"tenant"`
	Provider         string        `json:"provider"`
	SessionID        string        `json:"session_id,omitempty"`
	SessionExpiresAt *time.Time    `json:"session_expires_at,omitempty"`
	Tokens           []TokenStatus `json:"tokens"`
}

// Status reports per-token-type authenticated flags and expiry
// timestamps. It is read-only: staleness is observed through the same
// expiry arithmetic the lifecycle manager uses, never recomputed and
// never refreshed here.
func (s *Service) Status(ctx context.Context, req StatusRequest) (*StatusReport, error) {
	report := &StatusReport{Tenant: req.Tenant, Provider: req.Provider}

	if req.SessionID != "" {
		session, err := s.repos.Sessions.Get(ctx, req.SessionID)
		if err != nil {
			return nil, errors.Wrapf(err, "[Service.Status] session")
		}
		if session.IsExpired(s.nowFunc()) {
			return nil, errors.Wrapf(errors.ErrSessionNotFound, "[Service.Status] session expired")
		}
		report.Tenant = session.Tenant
		report.Provider = session.Provider
		report.SessionID = session.ID
		report.SessionExpiresAt = &session.ExpiresAt
	} else {
		tenantData, err := s.repos.Tenants.Get(ctx, report.Tenant)
		if err != nil {
			return nil, errors.Wrapf(err, "[Service.Status] tenant %s", report.Tenant)
		}
		if report.Provider == "" {
			report.Provider = tenantData.PrimaryProvider
		}
	}

	providerName, def, err := s.providerFor(report.Provider, report.Provider)
	if err != nil {
		return nil, err
	}
	report.Provider = providerName

	now := s.nowFunc()
	for _, tokenType := range def.TokenTypes() {
		status := TokenStatus{TokenType: tokenType}
		record, err := s.repos.Credentials.GetToken(ctx, report.Tenant, providerName, tokenType)
		if err == nil {
			status.Authenticated = !token.IsExpired(record, now)
			status.IssuedAt = utils.Ptr(record.IssuedAt)
			status.ExpiresAt = utils.Ptr(record.AbsoluteExpiry)
		} else if !errors.Is(err, errors.ErrNotFound) {
			return nil, errors.Wrapf(err, "[Service.Status] token %s/%s/%s", report.Tenant, providerName, tokenType)
		}
		report.Tokens = append(report.Tokens, status)
	}
	return report, nil
}

// Refresh forces a refresh regardless of stored expiry: the manual
// override behind the administrative refresh endpoint. With no token type
// named, every stored record for the pair is refreshed; the first failure
// stops the walk.
func (s *Service) Refresh(ctx context.Context, tenantID, providerName string, tokenType providers.TokenType) error {
	tenantData, err := s.repos.Tenants.Get(ctx, tenantID)
	if err != nil {
		return errors.Wrapf(err, "[Service.Refresh] tenant %s", tenantID)
	}

	providerName, _, err = s.providerFor(tenantData.PrimaryProvider, providerName)
	if err != nil {
		return err
	}

	if tokenType != "" {
		_, err := s.tokens.ForceRefresh(ctx, tenantID, providerName, tokenType)
		return err
	}

	storedTypes, err := s.repos.Credentials.ListTokenTypes(ctx, tenantID, providerName)
	if err != nil {
		return errors.Wrapf(err, "[Service.Refresh] token types %s/%s", tenantID, providerName)
	}
	if len(storedTypes) == 0 {
		return errors.Wrapf(errors.ErrMissingCredentials, "[Service.Refresh] no tokens for %s/%s", tenantID, providerName)
	}

	for _, storedType := range storedTypes {
		if _, err := s.tokens.ForceRefresh(ctx, tenantID, providerName, storedType); err != nil {
			return err
		}
	}

	log.Info().
		Str("tenant", tenantID).
		Str("provider", providerName).
		Int("token_types", len(storedTypes)).
		Msg("Manual refresh complete")
	return nil
}
