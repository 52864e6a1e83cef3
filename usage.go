package tenantd

import (
	"context"
	"time"
)

// ops for usage errors and logs.
const (
	OpFindUsage  = "FindUsage"
	OpFindUsages = "FindUsages"
	OpFlushUsage = "FlushUsage"
)

// Usage counts the requests the security filter decided for a tenant.
type Usage struct {
	TenantID    string    `json:"tenantID" db:"tenant_id"`
	Allowed     int64     `json:"allowed" db:"allowed"`
	Denied      int64     `json:"denied" db:"denied"`
	FirstSeenAt time.Time `json:"firstSeenAt" db:"first_seen_at"`
	LastSeenAt  time.Time `json:"lastSeenAt" db:"last_seen_at"`
}

// Add folds o into u.
func (u *Usage) Add(o Usage) {
	u.Allowed += o.Allowed
	u.Denied += o.Denied
	if u.FirstSeenAt.IsZero() || (!o.FirstSeenAt.IsZero() && o.FirstSeenAt.Before(u.FirstSeenAt)) {
		u.FirstSeenAt = o.FirstSeenAt
	}
	if o.LastSeenAt.After(u.LastSeenAt) {
		u.LastSeenAt = o.LastSeenAt
	}
}

// UsageService records and reports per-tenant request counts.
type UsageService interface {
	// RecordRequest counts one request. It must not block on I/O.
	RecordRequest(ctx context.Context, tenantID string, allowed bool)

	// FindUsage returns the usage of a single tenant.
	FindUsage(ctx context.Context, tenantID string) (*Usage, error)

	// FindUsages returns the usage of every tenant seen.
	FindUsages(ctx context.Context) ([]*Usage, error)

	// Flush persists pending counts.
	Flush(ctx context.Context) error
}
