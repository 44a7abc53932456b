package repofakes

import (
	"context"
	"sort"
	"sync"

	"github.com/jrsteele09/go-credential-broker/internal/errors"
	"github.com/jrsteele09/go-credential-broker/tenants"
)

var _ tenants.Repo = (*FakeTenantRepo)(nil)

// FakeTenantRepo is an in-memory tenants.Repo for tests.
type FakeTenantRepo struct {
	tenants map[string]*tenants.Tenant
	lock    sync.RWMutex
}

func NewFakeTenantRepo() *FakeTenantRepo {
	return &FakeTenantRepo{
		tenants: make(map[string]*tenants.Tenant),
	}
}

func (tr *FakeTenantRepo) Upsert(_ context.Context, tenantData *tenants.Tenant) error {
	tr.lock.Lock()
	defer tr.lock.Unlock()

	copied := *tenantData
	tr.tenants[tenantData.ID] = &copied
	return nil
}

func (tr *FakeTenantRepo) Delete(_ context.Context, tenantID string) error {
	tr.lock.Lock()
	defer tr.lock.Unlock()

	delete(tr.tenants, tenantID)
	return nil
}

func (tr *FakeTenantRepo) Get(_ context.Context, tenantID string) (*tenants.Tenant, error) {
	tr.lock.RLock()
	defer tr.lock.RUnlock()

	tenantData, ok := tr.tenants[tenantID]
	if !ok {
		return nil, errors.ErrTenantNotFound
	}
	copied := *tenantData
	return &copied, nil
}

func (tr *FakeTenantRepo) List(_ context.Context) ([]*tenants.Tenant, error) {
	tr.lock.RLock()
	defer tr.lock.RUnlock()

	listed := make([]*tenants.Tenant, 0, len(tr.tenants))
	for _, tenantData := range tr.tenants {
		copied := *tenantData
		listed = append(listed, &copied)
	}
	sort.Slice(listed, func(i, j int) bool {
		return listed[i].ID < listed[j].ID
	})
	return listed, nil
}
