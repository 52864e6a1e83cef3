package tenantd

import (
	"context"
	"time"
)

// AuthorizationStatus is the outcome of authorizing a tenant.
type AuthorizationStatus string

// Authorization statuses.
const (
	StatusAuthorized   AuthorizationStatus = "authorized"
	StatusUnauthorized AuthorizationStatus = "unauthorized"
	StatusSuspended    AuthorizationStatus = "suspended"
)

// Valid reports whether s is one of the known statuses.
func (s AuthorizationStatus) Valid() bool {
	switch s {
	case StatusAuthorized, StatusUnauthorized, StatusSuspended:
		return true
	}
	return false
}

// Authorization sources.
const (
	SourceRegistry = "registry"
	SourceRemote   = "remote"
	SourceManual   = "manual"
)

// Authorization is the decision about whether a tenant may be served.
type Authorization struct {
	TenantID     string              `json:"tenantID"`
	Status       AuthorizationStatus `json:"status"`
	Reason       string              `json:"reason,omitempty"`
	Source       string              `json:"source,omitempty"`
	AuthorizedAt time.Time           `json:"authorizedAt"`
	ExpiresAt    time.Time           `json:"expiresAt"`
}

// Allowed reports whether requests for the tenant may proceed.
func (a *Authorization) Allowed() bool {
	return a != nil && a.Status == StatusAuthorized
}

// Expired reports whether the authorization is no longer fresh at now.
// A zero ExpiresAt never expires.
func (a *Authorization) Expired(now time.Time) bool {
	if a.ExpiresAt.IsZero() {
		return false
	}
	return !now.Before(a.ExpiresAt)
}

// Clone returns a copy of the authorization.
func (a *Authorization) Clone() *Authorization {
	if a == nil {
		return nil
	}
	c := *a
	return &c
}

// ops for authorization errors and logs.
const (
	OpAuthorize = "Authorize"
)

// Authorizer decides whether a tenant is authorized. An error means the
// decision could not be made; a denial is an Authorization whose Status is
// not StatusAuthorized.
type Authorizer interface {
	Authorize(ctx context.Context, tenantID string) (*Authorization, error)
}

// AuthorizerFunc is an adapter to allow the use of ordinary functions as Authorizers.
type AuthorizerFunc func(ctx context.Context, tenantID string) (*Authorization, error)

// Authorize calls f(ctx, tenantID).
func (f AuthorizerFunc) Authorize(ctx context.Context, tenantID string) (*Authorization, error) {
	return f(ctx, tenantID)
}
