package tenantd

import (
	"context"
	"time"
)

// ops for tenant cache errors and logs.
const (
	OpLookupTenant        = "LookupTenant"
	OpPutAuthorization    = "PutAuthorization"
	OpInvalidateTenant    = "InvalidateTenant"
	OpInvalidateAll       = "InvalidateAll"
	OpListCacheEntries    = "ListCacheEntries"
	OpScavengeTenantCache = "ScavengeTenantCache"
)

// CacheEntry is a cached authorization together with its access statistics.
type CacheEntry struct {
	Authorization
	Hits           int64     `json:"hits"`
	LastAccessedAt time.Time `json:"lastAccessedAt"`
	// Stale is set when the authorization outlived its TTL and is being
	// served inside the stale grace window because the authorizer failed.
	Stale bool `json:"stale,omitempty"`
}

// TenantCache caches tenant authorizations for the request path.
type TenantCache interface {
	// Lookup returns the authorization for tenantID, re-authorizing the
	// tenant when no fresh entry is cached.
	Lookup(ctx context.Context, tenantID string) (*CacheEntry, error)

	// Put stores a, replacing any existing entry for the tenant.
	Put(ctx context.Context, a *Authorization) error

	// Invalidate removes the entry for tenantID. Removing a missing entry is not an error.
	Invalidate(ctx context.Context, tenantID string) error

	// InvalidateAll removes every entry.
	InvalidateAll(ctx context.Context) error

	// Entries returns a snapshot of the cache sorted by tenant id.
	Entries(ctx context.Context) ([]*CacheEntry, error)

	// Scavenge removes entries that can no longer be served and returns how many were removed.
	Scavenge(ctx context.Context) (int, error)
}
