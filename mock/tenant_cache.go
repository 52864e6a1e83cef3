package mock

import (
	"context"

	"github.com/percussion/tenantd"
)

var _ tenantd.TenantCache = (*TenantCache)(nil)

// TenantCache is a mock tenantd.TenantCache.
type TenantCache struct {
	LookupFn        func(ctx context.Context, tenantID string) (*tenantd.CacheEntry, error)
	PutFn           func(ctx context.Context, a *tenantd.Authorization) error
	InvalidateFn    func(ctx context.Context, tenantID string) error
	InvalidateAllFn func(ctx context.Context) error
	EntriesFn       func(ctx context.Context) ([]*tenantd.CacheEntry, error)
	ScavengeFn      func(ctx context.Context) (int, error)
}

// NewTenantCache returns a mock TenantCache with no-op defaults.
func NewTenantCache() *TenantCache {
	return &TenantCache{
		LookupFn: func(ctx context.Context, tenantID string) (*tenantd.CacheEntry, error) {
			return &tenantd.CacheEntry{Authorization: tenantd.Authorization{TenantID: tenantID, Status: tenantd.StatusAuthorized}}, nil
		},
		PutFn:           func(context.Context, *tenantd.Authorization) error { return nil },
		InvalidateFn:    func(context.Context, string) error { return nil },
		InvalidateAllFn: func(context.Context) error { return nil },
		EntriesFn:       func(context.Context) ([]*tenantd.CacheEntry, error) { return nil, nil },
		ScavengeFn:      func(context.Context) (int, error) { return 0, nil },
	}
}

// Lookup calls LookupFn.
func (c *TenantCache) Lookup(ctx context.Context, tenantID string) (*tenantd.CacheEntry, error) {
	return c.LookupFn(ctx, tenantID)
}

// Put calls PutFn.
func (c *TenantCache) Put(ctx context.Context, a *tenantd.Authorization) error {
	return c.PutFn(ctx, a)
}

// Invalidate calls InvalidateFn.
func (c *TenantCache) Invalidate(ctx context.Context, tenantID string) error {
	return c.InvalidateFn(ctx, tenantID)
}

// InvalidateAll calls InvalidateAllFn.
func (c *TenantCache) InvalidateAll(ctx context.Context) error {
	return c.InvalidateAllFn(ctx)
}

// Entries calls EntriesFn.
func (c *TenantCache) Entries(ctx context.Context) ([]*tenantd.CacheEntry, error) {
	return c.EntriesFn(ctx)
}

// Scavenge calls ScavengeFn.
func (c *TenantCache) Scavenge(ctx context.Context) (int, error) {
	return c.ScavengeFn(ctx)
}
