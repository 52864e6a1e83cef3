package tenant

import (
	"context"

	"github.com/percussion/tenantd"
	"go.uber.org/zap"
)

var _ tenantd.TenantService = (*CacheInvalidator)(nil)

// CacheInvalidator drops a tenant's cached authorization whenever the tenant
// changes, so the next request is authorized against the new state.
type CacheInvalidator struct {
	tenantd.TenantService

	log   *zap.Logger
	cache tenantd.TenantCache
}

// NewCacheInvalidator wraps svc so updates and deletes invalidate c.
func NewCacheInvalidator(log *zap.Logger, svc tenantd.TenantService, c tenantd.TenantCache) *CacheInvalidator {
	return &CacheInvalidator{
		TenantService: svc,
		log:           log,
		cache:         c,
	}
}

// UpdateTenant updates the tenant and invalidates its cache entry.
func (s *CacheInvalidator) UpdateTenant(ctx context.Context, id string, upd tenantd.TenantUpdate) (*tenantd.Tenant, error) {
	t, err := s.TenantService.UpdateTenant(ctx, id, upd)
	if err != nil {
		return nil, err
	}
	s.invalidate(ctx, id)
	return t, nil
}

// DeleteTenant deletes the tenant and invalidates its cache entry.
func (s *CacheInvalidator) DeleteTenant(ctx context.Context, id string) error {
	if err := s.TenantService.DeleteTenant(ctx, id); err != nil {
		return err
	}
	s.invalidate(ctx, id)
	return nil
}

// CreateTenant creates the tenant and drops any cached denial for its id.
func (s *CacheInvalidator) CreateTenant(ctx context.Context, t *tenantd.Tenant) error {
	if err := s.TenantService.CreateTenant(ctx, t); err != nil {
		return err
	}
	s.invalidate(ctx, t.ID)
	return nil
}

func (s *CacheInvalidator) invalidate(ctx context.Context, id string) {
	if err := s.cache.Invalidate(ctx, id); err != nil {
		s.log.Warn("Failed to invalidate cached tenant authorization", zap.String("tenant_id", id), zap.Error(err))
	}
}
