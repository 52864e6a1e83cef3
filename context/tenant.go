package context

import (
	"context"

	"github.com/percussion/tenantd"
	"github.com/percussion/tenantd/kit/platform/errors"
)

type contextKey string

const (
	authorizationCtxKey = contextKey("tenantd/authorization/v1")
)

// SetAuthorization sets the tenant authorization on context.
func SetAuthorization(ctx context.Context, a *tenantd.Authorization) context.Context {
	return context.WithValue(ctx, authorizationCtxKey, a)
}

// GetAuthorization retrieves the tenant authorization from context.
func GetAuthorization(ctx context.Context) (*tenantd.Authorization, error) {
	a, ok := ctx.Value(authorizationCtxKey).(*tenantd.Authorization)
	if !ok || a == nil {
		return nil, &errors.Error{
			Msg:  "tenant authorization not found on context",
			Code: errors.EInternal,
		}
	}

	return a, nil
}

// GetTenantID retrieves the authorized tenant id from the context; errors if
// the request has not been through the tenant filter.
func GetTenantID(ctx context.Context) (string, error) {
	a, err := GetAuthorization(ctx)
	if err != nil {
		return "", err
	}
	return a.TenantID, nil
}
