package redisrepo

import (
	"context"
	"encoding/json"
	"sort"

	"github.com/redis/go-redis/v9"

	"github.com/jrsteele09/go-credential-broker/internal/errors"
	"github.com/jrsteele09/go-credential-broker/tenants"
)

var _ tenants.Repo = (*TenantRepo)(nil)

// TenantRepo is the tenant registry: one config value per tenant plus a
// set index for listing.
type TenantRepo struct {
	core
}

func (tr *TenantRepo) Upsert(ctx context.Context, tenantData *tenants.Tenant) error {
	data, err := json.Marshal(tenantData)
	if err != nil {
		return errors.Wrapf(err, "[TenantRepo.Upsert] marshal tenant %s", tenantData.ID)
	}
	if err := tr.client.Set(ctx, tr.tenantKey(tenantData.ID), data, 0).Err(); err != nil {
		return errors.Wrapf(err, "[TenantRepo.Upsert] tenant %s", tenantData.ID)
	}
	if err := tr.client.SAdd(ctx, tr.tenantsKey(), tenantData.ID).Err(); err != nil {
		return errors.Wrapf(err, "[TenantRepo.Upsert] index tenant %s", tenantData.ID)
	}
	return nil
}

func (tr *TenantRepo) Delete(ctx context.Context, tenantID string) error {
	if err := tr.client.Del(ctx, tr.tenantKey(tenantID)).Err(); err != nil {
		return errors.Wrapf(err, "[TenantRepo.Delete] tenant %s", tenantID)
	}
	if err := tr.client.SRem(ctx, tr.tenantsKey(), tenantID).Err(); err != nil {
		return errors.Wrapf(err, "[TenantRepo.Delete] deindex tenant %s", tenantID)
	}
	return nil
}

func (tr *TenantRepo) Get(ctx context.Context, tenantID string) (*tenants.Tenant, error) {
	data, err := tr.client.Get(ctx, tr.tenantKey(tenantID)).Bytes()
	if err != nil {
		if errors.Is(err, redis.Nil) {
			return nil, errors.ErrTenantNotFound
		}
		return nil, errors.Wrapf(err, "[TenantRepo.Get] tenant %s", tenantID)
	}

	var tenantData tenants.Tenant
	if err := json.Unmarshal(data, &tenantData); err != nil {
		return nil, errors.Wrapf(err, "[TenantRepo.Get] unmarshal tenant %s", tenantID)
	}
	return &tenantData, nil
}

func (tr *TenantRepo) List(ctx context.Context) ([]*tenants.Tenant, error) {
	ids, err := tr.client.SMembers(ctx, tr.tenantsKey()).Result()
	if err != nil {
		return nil, errors.Wrapf(err, "[TenantRepo.List] tenants")
	}
	sort.Strings(ids)

	listed := make([]*tenants.Tenant, 0, len(ids))
	for _, id := range ids {
		tenantData, err := tr.Get(ctx, id)
		if err != nil {
			// The set index can briefly outlive a deleted config.
			if errors.Is(err, errors.ErrTenantNotFound) {
				continue
			}
			return nil, err
		}
		listed = append(listed, tenantData)
	}
	return listed, nil
}
