package storefakes

import (
	"context"
	"sort"
	"sync"

	"github.com/jrsteele09/go-credential-broker/credentials"
	"github.com/jrsteele09/go-credential-broker/internal/errors"
	"github.com/jrsteele09/go-credential-broker/providers"
)

var _ credentials.Store = (*FakeStore)(nil)

// FakeStore is an in-memory credentials.Store for tests.
type FakeStore struct {
	tokens   map[string]*credentials.TokenRecord
	configs  map[string]*credentials.ClientConfig
	settings map[string]*credentials.ProviderSettings
	lock     sync.RWMutex
}

func NewFakeStore() *FakeStore {
	return &FakeStore{
		tokens:   make(map[string]*credentials.TokenRecord),
		configs:  make(map[string]*credentials.ClientConfig),
		settings: make(map[string]*credentials.ProviderSettings),
	}
}

func pairKey(tenant, provider string) string {
	return tenant + "/" + provider
}

func tokenKey(tenant, provider string, tokenType providers.TokenType) string {
	return tenant + "/" + provider + "/" + string(tokenType)
}

func (fs *FakeStore) GetToken(_ context.Context, tenant, provider string, tokenType providers.TokenType) (*credentials.TokenRecord, error) {
	fs.lock.RLock()
	defer fs.lock.RUnlock()

	record, ok := fs.tokens[tokenKey(tenant, provider, tokenType)]
	if !ok {
		return nil, errors.ErrNotFound
	}
	copied := *record
	return &copied, nil
}

func (fs *FakeStore) PutToken(_ context.Context, tenant, provider string, record *credentials.TokenRecord) error {
	fs.lock.Lock()
	defer fs.lock.Unlock()

	copied := *record
	fs.tokens[tokenKey(tenant, provider, record.TokenType)] = &copied
	return nil
}

func (fs *FakeStore) DeleteToken(_ context.Context, tenant, provider string, tokenType providers.TokenType) error {
	fs.lock.Lock()
	defer fs.lock.Unlock()

	delete(fs.tokens, tokenKey(tenant, provider, tokenType))
	return nil
}

func (fs *FakeStore) GetClientConfig(_ context.Context, tenant, provider string) (*credentials.ClientConfig, error) {
	fs.lock.RLock()
	defer fs.lock.RUnlock()

	config, ok := fs.configs[pairKey(tenant, provider)]
	if !ok {
		return nil, errors.ErrNotFound
	}
	copied := *config
	return &copied, nil
}

func (fs *FakeStore) PutClientConfig(_ context.Context, tenant, provider string, config *credentials.ClientConfig) error {
	fs.lock.Lock()
	defer fs.lock.Unlock()

	copied := *config
	fs.configs[pairKey(tenant, provider)] = &copied
	return nil
}

func (fs *FakeStore) GetSettings(_ context.Context, tenant, provider string) (*credentials.ProviderSettings, error) {
	fs.lock.RLock()
	defer fs.lock.RUnlock()

	settings, ok := fs.settings[pairKey(tenant, provider)]
	if !ok {
		return nil, errors.ErrNotFound
	}
	copied := *settings
	return &copied, nil
}

func (fs *FakeStore) PutSettings(_ context.Context, tenant, provider string, settings *credentials.ProviderSettings) error {
	fs.lock.Lock()
	defer fs.lock.Unlock()

	copied := *settings
	fs.settings[pairKey(tenant, provider)] = &copied
	return nil
}

func (fs *FakeStore) ListProviders(_ context.Context, tenant string) ([]string, error) {
	fs.lock.RLock()
	defer fs.lock.RUnlock()

	seen := map[string]struct{}{}
	prefix := tenant + "/"
	for key := range fs.configs {
		if len(key) > len(prefix) && key[:len(prefix)] == prefix {
			seen[key[len(prefix):]] = struct{}{}
		}
	}
	names := make([]string, 0, len(seen))
	for name := range seen {
		names = append(names, name)
	}
	sort.Strings(names)
	return names, nil
}

func (fs *FakeStore) ListTokenTypes(_ context.Context, tenant, provider string) ([]providers.TokenType, error) {
	fs.lock.RLock()
	defer fs.lock.RUnlock()

	prefix := tenant + "/" + provider + "/"
	var types []providers.TokenType
	for key := range fs.tokens {
		if len(key) > len(prefix) && key[:len(prefix)] == prefix {
			types = append(types, providers.TokenType(key[len(prefix):]))
		}
	}
	sort.Slice(types, func(i, j int) bool { return types[i] < types[j] })
	return types, nil
}

func (fs *FakeStore) DeleteProvider(_ context.Context, tenant, provider string) error {
	fs.lock.Lock()
	defer fs.lock.Unlock()

	delete(fs.configs, pairKey(tenant, provider))
	delete(fs.settings, pairKey(tenant, provider))
	prefix := tenant + "/" + provider + "/"
	for key := range fs.tokens {
		if len(key) > len(prefix) && key[:len(prefix)] == prefix {
			delete(fs.tokens, key)
		}
	}
	return nil
}
