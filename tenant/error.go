package tenant

import (
	"fmt"

	"github.com/percussion/tenantd/kit/platform/errors"
)

var (
	// ErrTenantNotFound is used when the tenant is not found.
	ErrTenantNotFound = &errors.Error{
		Msg:  "tenant not found",
		Code: errors.ENotFound,
	}

	// ErrNameisEmpty is when a name is empty
	ErrNameisEmpty = &errors.Error{
		Code: errors.EInvalid,
		Msg:  "name is empty",
	}
)

// TenantNotFoundByName is used when the tenant cannot be found by name.
func TenantNotFoundByName(n string) *errors.Error {
	return &errors.Error{
		Code: errors.ENotFound,
		Msg:  fmt.Sprintf("tenant name %q not found", n),
	}
}

// TenantAlreadyExistsError is used when creating a tenant with a name
// that already exists.
func TenantAlreadyExistsError(n string) *errors.Error {
	return &errors.Error{
		Code: errors.EConflict,
		Msg:  fmt.Sprintf("tenant with name %s already exists", n),
	}
}

// TenantIDAlreadyExistsError is used when creating a tenant with an id
// that already exists.
func TenantIDAlreadyExistsError(id string) *errors.Error {
	return &errors.Error{
		Code: errors.EConflict,
		Msg:  fmt.Sprintf("tenant with id %s already exists", id),
	}
}

// ErrCorruptTenant is used when the tenant cannot be unmarshalled from the bytes
// stored in the kv.
func ErrCorruptTenant(err error) *errors.Error {
	return &errors.Error{
		Code: errors.EInternal,
		Msg:  "tenant could not be unmarshalled",
		Err:  err,
	}
}

// ErrUnprocessableTenant is used when a tenant is not able to be processed.
func ErrUnprocessableTenant(err error) *errors.Error {
	return &errors.Error{
		Code: errors.EInternal,
		Msg:  "tenant could not be marshalled",
		Err:  err,
	}
}

// InvalidTenantError is used when a tenant fails validation.
func InvalidTenantError(err error) *errors.Error {
	return &errors.Error{
		Code: errors.EInvalid,
		Msg:  "tenant is invalid",
		Err:  err,
	}
}
