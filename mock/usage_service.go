package mock

import (
	"context"
	"sync"

	"github.com/percussion/tenantd"
)

var _ tenantd.UsageService = (*UsageService)(nil)

// UsageService is a mock tenantd.UsageService. RecordRequest calls are kept
// in Recorded when RecordRequestFn is nil.
type UsageService struct {
	RecordRequestFn func(ctx context.Context, tenantID string, allowed bool)
	FindUsageFn     func(ctx context.Context, tenantID string) (*tenantd.Usage, error)
	FindUsagesFn    func(ctx context.Context) ([]*tenantd.Usage, error)
	FlushFn         func(ctx context.Context) error

	mu       sync.Mutex
	Recorded []RecordedRequest
}

// RecordedRequest is one RecordRequest call.
type RecordedRequest struct {
	TenantID string
	Allowed  bool
}

// RecordRequest calls RecordRequestFn.
func (s *UsageService) RecordRequest(ctx context.Context, tenantID string, allowed bool) {
	if s.RecordRequestFn != nil {
		s.RecordRequestFn(ctx, tenantID, allowed)
		return
	}
	s.mu.Lock()
	s.Recorded = append(s.Recorded, RecordedRequest{TenantID: tenantID, Allowed: allowed})
	s.mu.Unlock()
}

// Requests returns a copy of the recorded requests.
func (s *UsageService) Requests() []RecordedRequest {
	s.mu.Lock()
	defer s.mu.Unlock()
	return append([]RecordedRequest(nil), s.Recorded...)
}

// FindUsage calls FindUsageFn.
func (s *UsageService) FindUsage(ctx context.Context, tenantID string) (*tenantd.Usage, error) {
	return s.FindUsageFn(ctx, tenantID)
}

// FindUsages calls FindUsagesFn.
func (s *UsageService) FindUsages(ctx context.Context) ([]*tenantd.Usage, error) {
	return s.FindUsagesFn(ctx)
}

// Flush calls FlushFn.
func (s *UsageService) Flush(ctx context.Context) error {
	return s.FlushFn(ctx)
}
