package redisrepo

import (
	"context"
	"strings"
	"time"

	"github.com/pkg/errors"
	"github.com/redis/go-redis/v9"
)

// Default timeouts for Redis operations.
const (
	DefaultDialTimeout  = 5 * time.Second
	DefaultReadTimeout  = 3 * time.Second
	DefaultWriteTimeout = 3 * time.Second
)

// Options holds the Redis connection configuration.
type Options struct {
	Addr     string
	Password string
	DB       int

	// KeyPrefix namespaces every key so several deployments can share one
	// Redis instance.
	KeyPrefix string

	DialTimeout  time.Duration
	ReadTimeout  time.Duration
	WriteTimeout time.Duration
}

// core is the shared connection and key namespace behind every repo view.
type core struct {
	client    redis.UniversalClient
	keyPrefix string
}

// Store is the Redis-backed durable store. It implements the credential
// store directly; the session, tenant, and authorization-state repos are
// views sharing its client and key namespace.
type Store struct {
	core
}

// New connects to Redis and verifies the connection with a ping.
func New(ctx context.Context, opts Options) (*Store, error) {
	if opts.Addr == "" {
		return nil, errors.New("[redisrepo.New] redis address is required")
	}
	if opts.DialTimeout == 0 {
		opts.DialTimeout = DefaultDialTimeout
	}
	if opts.ReadTimeout == 0 {
		opts.ReadTimeout = DefaultReadTimeout
	}
	if opts.WriteTimeout == 0 {
		opts.WriteTimeout = DefaultWriteTimeout
	}

	client := redis.NewClient(&redis.Options{
		Addr:         opts.Addr,
		Password:     opts.Password,
		DB:           opts.DB,
		DialTimeout:  opts.DialTimeout,
		ReadTimeout:  opts.ReadTimeout,
		WriteTimeout: opts.WriteTimeout,
	})

	if err := client.Ping(ctx).Err(); err != nil {
		_ = client.Close()
		return nil, errors.Wrap(err, "[redisrepo.New] ping")
	}

	return NewWithClient(client, opts.KeyPrefix), nil
}

// NewWithClient wraps a pre-configured client. Used by tests with
// miniredis.
func NewWithClient(client redis.UniversalClient, keyPrefix string) *Store {
	if keyPrefix == "" {
		keyPrefix = "broker"
	}
	return &Store{core{client: client, keyPrefix: keyPrefix}}
}

// Sessions returns the session-handle repo view.
func (s *Store) Sessions() *SessionRepo {
	return &SessionRepo{s.core}
}

// Tenants returns the tenant-registry repo view.
func (s *Store) Tenants() *TenantRepo {
	return &TenantRepo{s.core}
}

// AuthStates returns the pending authorization-state repo view.
func (s *Store) AuthStates() *AuthStateRepo {
	return &AuthStateRepo{s.core}
}

// Ping checks Redis connectivity, for the health endpoint.
func (s *Store) Ping(ctx context.Context) error {
	return s.client.Ping(ctx).Err()
}

// Close closes the underlying client.
func (s *Store) Close() error {
	return s.client.Close()
}

func (c core) key(parts ...string) string {
	return c.keyPrefix + ":" + strings.Join(parts, ":")
}

func (c core) tenantsKey() string {
	return c.key("tenants")
}

func (c core) tenantKey(tenant string) string {
	return c.key("tenant", tenant, "config")
}

func (c core) providersKey(tenant string) string {
	return c.key("tenant", tenant, "providers")
}

// providerKey is the hash holding everything stored for one
// (tenant, provider) pair: the client config, the settings, and one field
// per token type. Field-level writes keep token replacement atomic
// per (tenant, provider, tokenType).
func (c core) providerKey(tenant, provider string) string {
	return c.key("tenant", tenant, "provider", provider)
}

func (c core) sessionKey(sessionID string) string {
	return c.key("session", sessionID)
}

func (c core) authStateKey(state string) string {
	return c.key("authstate", state)
}
