package tenantd

import (
	"context"
	"net/url"
	"sort"
	"strings"
	"time"
)

// TenantStatus is the lifecycle state of a tenant in the registry.
type TenantStatus string

// Tenant statuses.
const (
	TenantActive    TenantStatus = "active"
	TenantSuspended TenantStatus = "suspended"
	TenantDisabled  TenantStatus = "disabled"
)

// Valid reports whether s is one of the known statuses.
func (s TenantStatus) Valid() bool {
	switch s {
	case TenantActive, TenantSuspended, TenantDisabled:
		return true
	}
	return false
}

// Tenant is a registered tenant of the delivery tier.
type Tenant struct {
	ID          string       `json:"id" validate:"required,max=64,tenantid"`
	Name        string       `json:"name" validate:"required,max=256"`
	Description string       `json:"description,omitempty" validate:"max=1024"`
	Status      TenantStatus `json:"status" validate:"required,oneof=active suspended disabled"`
	CreatedAt   time.Time    `json:"createdAt"`
	UpdatedAt   time.Time    `json:"updatedAt"`
}

// ops for tenant errors and logs.
const (
	OpFindTenantByID = "FindTenantByID"
	OpFindTenant     = "FindTenant"
	OpFindTenants    = "FindTenants"
	OpCreateTenant   = "CreateTenant"
	OpUpdateTenant   = "UpdateTenant"
	OpDeleteTenant   = "DeleteTenant"
)

// TenantService represents a service for managing tenant data.
type TenantService interface {
	// Returns a single tenant by ID.
	FindTenantByID(ctx context.Context, id string) (*Tenant, error)

	// Returns the first tenant that matches filter.
	FindTenant(ctx context.Context, filter TenantFilter) (*Tenant, error)

	// Returns a list of tenants that match filter and the total count of matching tenants.
	// Additional options provide pagination & sorting.
	FindTenants(ctx context.Context, filter TenantFilter, opts ...FindOptions) ([]*Tenant, int, error)

	// Creates a new tenant and sets t.ID with a new identifier if it is empty.
	CreateTenant(ctx context.Context, t *Tenant) error

	// Updates a single tenant with changeset.
	// Returns the new tenant state after update.
	UpdateTenant(ctx context.Context, id string, upd TenantUpdate) (*Tenant, error)

	// Removes a tenant by ID.
	DeleteTenant(ctx context.Context, id string) error
}

// TenantUpdate represents updates to a tenant.
// Only fields which are set are updated.
type TenantUpdate struct {
	Name        *string       `json:"name,omitempty"`
	Description *string       `json:"description,omitempty"`
	Status      *TenantStatus `json:"status,omitempty"`
}

// Apply updates t with the fields set on u.
func (u TenantUpdate) Apply(t *Tenant) {
	if u.Name != nil {
		t.Name = strings.TrimSpace(*u.Name)
	}
	if u.Description != nil {
		t.Description = *u.Description
	}
	if u.Status != nil {
		t.Status = *u.Status
	}
}

// TenantFilter represents a set of filter that restrict the returned results.
type TenantFilter struct {
	ID     *string
	Name   *string
	Status *TenantStatus
}

// Match reports whether t satisfies every field set on the filter.
func (f TenantFilter) Match(t *Tenant) bool {
	if f.ID != nil && *f.ID != t.ID {
		return false
	}
	if f.Name != nil && *f.Name != t.Name {
		return false
	}
	if f.Status != nil && *f.Status != t.Status {
		return false
	}
	return true
}

// QueryParams turns a tenant filter into query params.
func (f TenantFilter) QueryParams() map[string][]string {
	qp := url.Values{}
	if f.ID != nil {
		qp.Add("id", *f.ID)
	}
	if f.Name != nil {
		qp.Add("name", *f.Name)
	}
	if f.Status != nil {
		qp.Add("status", string(*f.Status))
	}
	return qp
}

// SortTenants sorts a slice of tenants by a field. The default sort is by ID.
func SortTenants(opts FindOptions, ts []*Tenant) {
	var sorter func(i, j int) bool
	switch opts.SortBy {
	case "Name":
		sorter = func(i, j int) bool {
			if opts.Descending {
				return ts[i].Name > ts[j].Name
			}
			return ts[i].Name < ts[j].Name
		}
	case "CreatedAt":
		sorter = func(i, j int) bool {
			if opts.Descending {
				return ts[i].CreatedAt.After(ts[j].CreatedAt)
			}
			return ts[i].CreatedAt.Before(ts[j].CreatedAt)
		}
	default:
		sorter = func(i, j int) bool {
			if opts.Descending {
				return ts[i].ID > ts[j].ID
			}
			return ts[i].ID < ts[j].ID
		}
	}

	sort.SliceStable(ts, sorter)
}
