package broker

import (
	"time"

	"github.com/pkg/errors"

	"github.com/jrsteele09/go-credential-broker/credentials"
	"github.com/jrsteele09/go-credential-broker/providers"
	"github.com/jrsteele09/go-credential-broker/sessions"
	"github.com/jrsteele09/go-credential-broker/tenants"
	"github.com/jrsteele09/go-credential-broker/token"
)

// Repos holds the repository dependencies for the Service.
type Repos struct {
	Tenants     tenants.Repo      // Tenant registry
	Credentials credentials.Store // Credential store, the single source of truth for token material
	Sessions    sessions.Repo     // TTL-bound session handles
}

// Service is the boundary-facing credential broker: it issues session
// handles, resolves them (or direct tenant/provider pairs) into bearer
// tokens, and drives the administrative status and refresh operations.
// Token validity itself is the token manager's business; the Service
// never duplicates expiry arithmetic.
type Service struct {
	repos      Repos
	tokens     *token.Manager
	registry   *providers.Registry
	sessionTTL time.Duration
	idLength   int
	nowFunc    func() time.Time
}

// ServiceOption modifies the Service instance.
type ServiceOption func(*Service)

// WithSessionTTL overrides the fixed session lifetime.
func WithSessionTTL(ttl time.Duration) ServiceOption {
	return func(s *Service) {
		s.sessionTTL = ttl
	}
}

// WithSessionIDLength sets how many random bytes back a session id.
func WithSessionIDLength(byteLength int) ServiceOption {
	return func(s *Service) {
		s.idLength = byteLength
	}
}

// WithNowFunc sets the clock (primarily for testing).
func WithNowFunc(now func() time.Time) ServiceOption {
	return func(s *Service) {
		s.nowFunc = now
	}
}

// NewService initializes the broker service with required dependencies.
func NewService(repos Repos, tokenManager *token.Manager, registry *providers.Registry, options ...ServiceOption) (*Service, error) {
	if repos.Tenants == nil {
		return nil, errors.New("[NewService] Tenants repo is required")
	}
	if repos.Credentials == nil {
		return nil, errors.New("[NewService] Credentials store is required")
	}
	if repos.Sessions == nil {
		return nil, errors.New("[NewService] Sessions repo is required")
	}
	if tokenManager == nil {
		return nil, errors.New("[NewService] token manager is required")
	}
	if registry == nil {
		return nil, errors.New("[NewService] provider registry is required")
	}

	s := &Service{
		repos:    repos,
		tokens:   tokenManager,
		registry: registry,
	}
	for _, opt := range options {
		opt(s)
	}

	if s.sessionTTL == 0 {
		s.sessionTTL = sessions.DefaultTTL
	}
	if s.idLength == 0 {
		s.idLength = 32
	}
	if s.nowFunc == nil {
		s.nowFunc = time.Now
	}
	return s, nil
}

// SessionTTL returns the configured session lifetime.
func (s *Service) SessionTTL() time.Duration {
	return s.sessionTTL
}
