package mock

import (
	"context"

	"github.com/percussion/tenantd"
)

var _ tenantd.TenantService = (*TenantService)(nil)

// TenantService is a mock tenant service.
type TenantService struct {
	FindTenantByIDF func(ctx context.Context, id string) (*tenantd.Tenant, error)
	FindTenantF     func(ctx context.Context, filter tenantd.TenantFilter) (*tenantd.Tenant, error)
	FindTenantsF    func(ctx context.Context, filter tenantd.TenantFilter, opt ...tenantd.FindOptions) ([]*tenantd.Tenant, int, error)
	CreateTenantF   func(ctx context.Context, t *tenantd.Tenant) error
	UpdateTenantF   func(ctx context.Context, id string, upd tenantd.TenantUpdate) (*tenantd.Tenant, error)
	DeleteTenantF   func(ctx context.Context, id string) error
}

// NewTenantService returns a mock TenantService where its methods will return
// zero values.
func NewTenantService() *TenantService {
	return &TenantService{
		FindTenantByIDF: func(ctx context.Context, id string) (*tenantd.Tenant, error) { return nil, nil },
		FindTenantF:     func(ctx context.Context, filter tenantd.TenantFilter) (*tenantd.Tenant, error) { return nil, nil },
		FindTenantsF: func(ctx context.Context, filter tenantd.TenantFilter, opt ...tenantd.FindOptions) ([]*tenantd.Tenant, int, error) {
			return nil, 0, nil
		},
		CreateTenantF: func(ctx context.Context, t *tenantd.Tenant) error { return nil },
		UpdateTenantF: func(ctx context.Context, id string, upd tenantd.TenantUpdate) (*tenantd.Tenant, error) {
			return nil, nil
		},
		DeleteTenantF: func(ctx context.Context, id string) error { return nil },
	}
}

// FindTenantByID calls FindTenantByIDF.
func (s *TenantService) FindTenantByID(ctx context.Context, id string) (*tenantd.Tenant, error) {
	return s.FindTenantByIDF(ctx, id)
}

// FindTenant calls FindTenantF.
func (s *TenantService) FindTenant(ctx context.Context, filter tenantd.TenantFilter) (*tenantd.Tenant, error) {
	return s.FindTenantF(ctx, filter)
}

// FindTenants calls FindTenantsF.
func (s *TenantService) FindTenants(ctx context.Context, filter tenantd.TenantFilter, opt ...tenantd.FindOptions) ([]*tenantd.Tenant, int, error) {
	return s.FindTenantsF(ctx, filter, opt...)
}

// CreateTenant calls CreateTenantF.
func (s *TenantService) CreateTenant(ctx context.Context, t *tenantd.Tenant) error {
	return s.CreateTenantF(ctx, t)
}

// UpdateTenant calls UpdateTenantF.
func (s *TenantService) UpdateTenant(ctx context.Context, id string, upd tenantd.TenantUpdate) (*tenantd.Tenant, error) {
	return s.UpdateTenantF(ctx, id, upd)
}

// DeleteTenant calls DeleteTenantF.
func (s *TenantService) DeleteTenant(ctx context.Context, id string) error {
	return s.DeleteTenantF(ctx, id)
}
