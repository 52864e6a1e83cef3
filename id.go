package tenantd

import (
	"regexp"
	"strings"

	"github.com/google/uuid"
)

// IDGenerator generates tenant identifiers.
type IDGenerator interface {
	ID() string
}

// UUIDGenerator generates random (version 4) UUID identifiers.
type UUIDGenerator struct{}

// ID returns a new random UUID string.
func (UUIDGenerator) ID() string {
	return uuid.NewString()
}

var tenantIDPattern = regexp.MustCompile(`^[A-Za-z0-9._-]{1,64}$`)

// ValidTenantID reports whether id may be used as a tenant identifier. Ids
// made only of dots are rejected because they are path segments in URLs.
func ValidTenantID(id string) bool {
	return tenantIDPattern.MatchString(id) && strings.Trim(id, ".") != ""
}
