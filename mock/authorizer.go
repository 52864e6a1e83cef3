package mock

import (
	"context"
	"sync/atomic"

	"github.com/percussion/tenantd"
)

var _ tenantd.Authorizer = (*Authorizer)(nil)

// Authorizer is a mock tenantd.Authorizer that counts its calls.
type Authorizer struct {
	AuthorizeFn func(ctx context.Context, tenantID string) (*tenantd.Authorization, error)

	calls int64
}

// NewAuthorizer returns an Authorizer that authorizes every tenant.
func NewAuthorizer() *Authorizer {
	return &Authorizer{
		AuthorizeFn: func(ctx context.Context, tenantID string) (*tenantd.Authorization, error) {
			return &tenantd.Authorization{TenantID: tenantID, Status: tenantd.StatusAuthorized, Source: tenantd.SourceManual}, nil
		},
	}
}

// Authorize calls AuthorizeFn.
func (a *Authorizer) Authorize(ctx context.Context, tenantID string) (*tenantd.Authorization, error) {
	atomic.AddInt64(&a.calls, 1)
	return a.AuthorizeFn(ctx, tenantID)
}

// Calls returns how many times Authorize was called.
func (a *Authorizer) Calls() int {
	return int(atomic.LoadInt64(&a.calls))
}
