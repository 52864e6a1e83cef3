package tenant

import (
	"context"

	"github.com/percussion/tenantd"
	"github.com/percussion/tenantd/kit/platform/errors"
)

var _ tenantd.Authorizer = (*Authorizer)(nil)

// Authorizer answers tenant authorizations from the local registry.
type Authorizer struct {
	svc tenantd.TenantService
}

// NewAuthorizer returns an Authorizer reading tenants from svc.
func NewAuthorizer(svc tenantd.TenantService) *Authorizer {
	return &Authorizer{svc: svc}
}

// Authorize looks the tenant up in the registry. A tenant that does not exist
// is denied rather than reported as an error.
func (a *Authorizer) Authorize(ctx context.Context, tenantID string) (*tenantd.Authorization, error) {
	t, err := a.svc.FindTenantByID(ctx, tenantID)
	if isNotFound(err) {
		return &tenantd.Authorization{
			TenantID: tenantID,
			Status:   tenantd.StatusUnauthorized,
			Reason:   "unknown tenant",
			Source:   tenantd.SourceRegistry,
		}, nil
	}
	if err != nil {
		return nil, err
	}
	return AuthorizationFor(t), nil
}

// AuthorizationFor maps a tenant's status onto an authorization.
func AuthorizationFor(t *tenantd.Tenant) *tenantd.Authorization {
	a := &tenantd.Authorization{
		TenantID: t.ID,
		Source:   tenantd.SourceRegistry,
	}
	switch t.Status {
	case tenantd.TenantActive:
		a.Status = tenantd.StatusAuthorized
	case tenantd.TenantSuspended:
		a.Status = tenantd.StatusSuspended
		a.Reason = "tenant is suspended"
	default:
		a.Status = tenantd.StatusUnauthorized
		a.Reason = "tenant is disabled"
	}
	return a
}

func isNotFound(err error) bool {
	return err != nil && errors.ErrorCode(err) == errors.ENotFound
}
