package server

import (
	"context"
	"fmt"
	"log"
	"net/http"
	"strings"
	"time"

	"github.com/pkg/errors"

	"github.com/jrsteele09/go-credential-broker/broker"
	"github.com/jrsteele09/go-credential-broker/credentials"
	"github.com/jrsteele09/go-credential-broker/internal/config"
	"github.com/jrsteele09/go-credential-broker/providers"
	"github.com/jrsteele09/go-credential-broker/server/authflowrepo"
	"github.com/jrsteele09/go-credential-broker/tenants"
)

// proxyTimeout bounds a single forwarded request to the provider's API.
const proxyTimeout = 60 * time.Second

// HealthChecker is the slice of the durable store the health endpoint
// probes.
type HealthChecker interface {
	Ping(ctx context.Context) error
}

// Dependencies holds everything the HTTP surface talks to.
type Dependencies struct {
	Broker      *broker.Service
	Credentials credentials.Store
	Tenants     tenants.Repo
	Registry    *providers.Registry
	AuthStates  authflowrepo.Repo
	Health      HealthChecker // optional; health reports degraded without it
}

type Server struct {
	env         string // Environment (e.g., "DEV", "production")
	mux         *http.ServeMux
	routes      []string
	config      config.Config
	broker      *broker.Service
	credentials credentials.Store
	tenants     tenants.Repo
	registry    *providers.Registry
	authStates  authflowrepo.Repo
	health      HealthChecker
	proxyClient *http.Client
}

func New(config config.Config, deps Dependencies) (*Server, error) {
	if deps.Broker == nil {
		return nil, errors.New("[Server New] broker service is required")
	}
	if deps.Credentials == nil {
		return nil, errors.New("[Server New] credentials store is required")
	}
	if deps.Tenants == nil {
		return nil, errors.New("[Server New] tenants repo is required")
	}
	if deps.Registry == nil {
		return nil, errors.New("[Server New] provider registry is required")
	}
	if deps.AuthStates == nil {
		return nil, errors.New("[Server New] auth state repo is required")
	}

	s := &Server{
		mux:         http.NewServeMux(),
		config:      config,
		broker:      deps.Broker,
		credentials: deps.Credentials,
		tenants:     deps.Tenants,
		registry:    deps.Registry,
		authStates:  deps.AuthStates,
		health:      deps.Health,
		proxyClient: &http.Client{Timeout: proxyTimeout},
	}
	s.env = config.GetEnv()

	s.initRoutes()
	s.logRoutes()

	return s, nil
}

func (s *Server) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	s.mux.ServeHTTP(w, r)
}

func (s *Server) RegisterRouteHandler(pattern string, handler http.Handler) {
	s.routes = append(s.routes, pattern)
	s.mux.Handle(pattern, handler)
}

func (s *Server) RegisterRouteFunc(pattern string, handler func(http.ResponseWriter, *http.Request)) {
	s.routes = append(s.routes, pattern)
	s.mux.HandleFunc(pattern, handler)
}

func (s *Server) logRoutes() {
	if s.env != "DEV" {
		return // Skip logging in non-development environments
	}
	for _, route := range s.routes {
		parts := strings.SplitN(route, " ", 2)

		if len(parts) > 1 {
			logRoute(parts[0], parts[1])
		} else {
			logRoute("", parts[0])
		}
	}
}

func logRoute(method, path string) {
	var displayMethod string
	paddedMethod := fmt.Sprintf(" %-7s", method)
	if color, ok := methodColors[method]; ok {
		displayMethod = color + paddedMethod + ResetColor
	} else {
		displayMethod = Gray + paddedMethod + ResetColor
	}
	log.Printf("[%-19s] %s\n", displayMethod, path)
}
