package redisrepo

import (
	"context"
	"encoding/json"
	"sort"
	"strings"

	"github.com/redis/go-redis/v9"

	"github.com/jrsteele09/go-credential-broker/credentials"
	"github.com/jrsteele09/go-credential-broker/internal/errors"
	"github.com/jrsteele09/go-credential-broker/providers"
)

var _ credentials.Store = (*Store)(nil)

// Hash fields within a provider key.
const (
	fieldClientConfig = "client_config"
	fieldSettings     = "settings"
	tokenFieldPrefix  = "token:"
)

func tokenField(tokenType providers.TokenType) string {
	return tokenFieldPrefix + string(tokenType)
}

func (s *Store) GetToken(ctx context.Context, tenant, provider string, tokenType providers.TokenType) (*credentials.TokenRecord, error) {
	data, err := s.client.HGet(ctx, s.providerKey(tenant, provider), tokenField(tokenType)).Bytes()
	if err != nil {
		if errors.Is(err, redis.Nil) {
			return nil, errors.ErrNotFound
		}
		return nil, errors.Wrapf(err, "[Store.GetToken] %s/%s/%s", tenant, provider, tokenType)
	}

	var record credentials.TokenRecord
	if err := json.Unmarshal(data, &record); err != nil {
		return nil, errors.Wrapf(err, "[Store.GetToken] unmarshal %s/%s/%s", tenant, provider, tokenType)
	}
	return &record, nil
}

func (s *Store) PutToken(ctx context.Context, tenant, provider string, record *credentials.TokenRecord) error {
	data, err := json.Marshal(record)
	if err != nil {
		return errors.Wrapf(err, "[Store.PutToken] marshal %s/%s", tenant, provider)
	}
	if err := s.client.HSet(ctx, s.providerKey(tenant, provider), tokenField(record.TokenType), data).Err(); err != nil {
		return errors.Wrapf(err, "[Store.PutToken] %s/%s/%s", tenant, provider, record.TokenType)
	}
	return s.indexProvider(ctx, tenant, provider)
}

func (s *Store) DeleteToken(ctx context.Context, tenant, provider string, tokenType providers.TokenType) error {
	if err := s.client.HDel(ctx, s.providerKey(tenant, provider), tokenField(tokenType)).Err(); err != nil {
		return errors.Wrapf(err, "[Store.DeleteToken] %s/%s/%s", tenant, provider, tokenType)
	}
	return nil
}

func (s *Store) GetClientConfig(ctx context.Context, tenant, provider string) (*credentials.ClientConfig, error) {
	data, err := s.client.HGet(ctx, s.providerKey(tenant, provider), fieldClientConfig).Bytes()
	if err != nil {
		if errors.Is(err, redis.Nil) {
			return nil, errors.ErrNotFound
		}
		return nil, errors.Wrapf(err, "[Store.GetClientConfig] %s/%s", tenant, provider)
	}

	var config credentials.ClientConfig
	if err := json.Unmarshal(data, &config); err != nil {
		return nil, errors.Wrapf(err, "[Store.GetClientConfig] unmarshal %s/%s", tenant, provider)
	}
	return &config, nil
}

func (s *Store) PutClientConfig(ctx context.Context, tenant, provider string, config *credentials.ClientConfig) error {
	data, err := json.Marshal(config)
	if err != nil {
		return errors.Wrapf(err, "[Store.PutClientConfig] marshal %s/%s", tenant, provider)
	}
	if err := s.client.HSet(ctx, s.providerKey(tenant, provider), fieldClientConfig, data).Err(); err != nil {
		return errors.Wrapf(err, "[Store.PutClientConfig] %s/%s", tenant, provider)
	}
	return s.indexProvider(ctx, tenant, provider)
}

func (s *Store) GetSettings(ctx context.Context, tenant, provider string) (*credentials.ProviderSettings, error) {
	data, err := s.client.HGet(ctx, s.providerKey(tenant, provider), fieldSettings).Bytes()
	if err != nil {
		if errors.Is(err, redis.Nil) {
			return nil, errors.ErrNotFound
		}
		return nil, errors.Wrapf(err, "[Store.GetSettings] %s/%s", tenant, provider)
	}

	var settings credentials.ProviderSettings
	if err := json.Unmarshal(data, &settings); err != nil {
		return nil, errors.Wrapf(err, "[Store.GetSettings] unmarshal %s/%s", tenant, provider)
	}
	return &settings, nil
}

func (s *Store) PutSettings(ctx context.Context, tenant, provider string, settings *credentials.ProviderSettings) error {
	data, err := json.Marshal(settings)
	if err != nil {
		return errors.Wrapf(err, "[Store.PutSettings] marshal %s/%s", tenant, provider)
	}
	if err := s.client.HSet(ctx, s.providerKey(tenant, provider), fieldSettings, data).Err(); err != nil {
		return errors.Wrapf(err, "[Store.PutSettings] %s/%s", tenant, provider)
	}
	return s.indexProvider(ctx, tenant, provider)
}

func (s *Store) ListProviders(ctx context.Context, tenant string) ([]string, error) {
	names, err := s.client.SMembers(ctx, s.providersKey(tenant)).Result()
	if err != nil {
		return nil, errors.Wrapf(err, "[Store.ListProviders] %s", tenant)
	}
	sort.Strings(names)
	return names, nil
}

func (s *Store) ListTokenTypes(ctx context.Context, tenant, provider string) ([]providers.TokenType, error) {
	fields, err := s.client.HKeys(ctx, s.providerKey(tenant, provider)).Result()
	if err != nil {
		return nil, errors.Wrapf(err, "[Store.ListTokenTypes] %s/%s", tenant, provider)
	}

	var types []providers.TokenType
	for _, field := range fields {
		if !strings.HasPrefix(field, tokenFieldPrefix) {
			continue
		}
		if tokenType, ok := providers.ParseTokenType(strings.TrimPrefix(field, tokenFieldPrefix)); ok {
			types = append(types, tokenType)
		}
	}
	sort.Slice(types, func(i, j int) bool { return types[i] < types[j] })
	return types, nil
}

func (s *Store) DeleteProvider(ctx context.Context, tenant, provider string) error {
	if err := s.client.Del(ctx, s.providerKey(tenant, provider)).Err(); err != nil {
		return errors.Wrapf(err, "[Store.DeleteProvider] %s/%s", tenant, provider)
	}
	if err := s.client.SRem(ctx, s.providersKey(tenant), provider).Err(); err != nil {
		return errors.Wrapf(err, "[Store.DeleteProvider] deindex %s/%s", tenant, provider)
	}
	return nil
}

// indexProvider keeps the tenant's provider set in step with the provider
// hashes, so ListProviders never scans keys.
func (s *Store) indexProvider(ctx context.Context, tenant, provider string) error {
	if err := s.client.SAdd(ctx, s.providersKey(tenant), provider).Err(); err != nil {
		return errors.Wrapf(err, "[Store.indexProvider] %s/%s", tenant, provider)
	}
	return nil
}
