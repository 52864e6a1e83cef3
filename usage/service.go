package usage

import (
	"context"
	"time"

	"github.com/benbjohnson/clock"
	"github.com/percussion/tenantd"
	"github.com/percussion/tenantd/kit/platform/errors"
	"go.uber.org/zap"
)

const (
	// DefaultFlushInterval is how often pending counts are persisted.
	DefaultFlushInterval = 30 * time.Second

	shutdownFlushTimeout = 5 * time.Second
)

// Storage persists usage counts.
type Storage interface {
	Add(ctx context.Context, deltas []*tenantd.Usage) error
	Find(ctx context.Context, tenantID string) (*tenantd.Usage, error)
	List(ctx context.Context) ([]*tenantd.Usage, error)
}

var _ tenantd.UsageService = (*Service)(nil)

// Service counts requests in memory and flushes them to storage.
type Service struct {
	log           *zap.Logger
	store         Storage
	recorder      *Recorder
	clock         clock.Clock
	flushInterval time.Duration
}

// Option configures a Service.
type Option func(*Service)

// WithClock sets the clock used for timestamps and the flush ticker.
func WithClock(clk clock.Clock) Option {
	return func(s *Service) {
		s.clock = clk
	}
}

// WithFlushInterval sets how often Run flushes.
func WithFlushInterval(d time.Duration) Option {
	return func(s *Service) {
		if d > 0 {
			s.flushInterval = d
		}
	}
}

// NewService returns a usage service persisting to st.
func NewService(log *zap.Logger, st Storage, opts ...Option) *Service {
	s := &Service{
		log:           log,
		store:         st,
		clock:         clock.New(),
		flushInterval: DefaultFlushInterval,
	}
	for _, o := range opts {
		o(s)
	}
	s.recorder = NewRecorder(s.clock)
	return s
}

// RecordRequest counts one request for tenantID in memory.
func (s *Service) RecordRequest(ctx context.Context, tenantID string, allowed bool) {
	if tenantID == "" {
		return
	}
	s.recorder.Record(tenantID, allowed)
}

// FindUsage returns the persisted usage of tenantID plus anything not yet flushed.
func (s *Service) FindUsage(ctx context.Context, tenantID string) (*tenantd.Usage, error) {
	u, err := s.store.Find(ctx, tenantID)
	if err != nil && errors.ErrorCode(err) != errors.ENotFound {
		return nil, err
	}

	pending, ok := s.recorder.Pending(tenantID)
	switch {
	case u == nil && !ok:
		return nil, &errors.Error{
			Code: errors.ENotFound,
			Op:   tenantd.OpFindUsage,
			Msg:  "no usage recorded for tenant",
		}
	case u == nil:
		return &pending, nil
	case ok:
		u.Add(pending)
	}
	return u, nil
}

// FindUsages returns the usage of every tenant seen, sorted by tenant id.
func (s *Service) FindUsages(ctx context.Context) ([]*tenantd.Usage, error) {
	persisted, err := s.store.List(ctx)
	if err != nil {
		return nil, err
	}

	merged := make(map[string]*tenantd.Usage, len(persisted))
	for _, u := range persisted {
		merged[u.TenantID] = u
	}
	for _, p := range s.recorder.Snapshot() {
		if u, ok := merged[p.TenantID]; ok {
			u.Add(*p)
			continue
		}
		merged[p.TenantID] = p
	}
	return sortedUsages(merged), nil
}

// Flush persists pending counts. Counts that fail to persist stay pending.
func (s *Service) Flush(ctx context.Context) error {
	pending := s.recorder.Drain()
	if len(pending) == 0 {
		return nil
	}

	if err := s.store.Add(ctx, pending); err != nil {
		s.recorder.Restore(pending)
		return err
	}

	s.log.Debug("Flushed tenant usage", zap.Int("tenants", len(pending)))
	return nil
}

// Run flushes every flush interval until ctx is done, then flushes once more.
func (s *Service) Run(ctx context.Context) error {
	t := s.clock.Ticker(s.flushInterval)
	defer t.Stop()

	for {
		select {
		case <-ctx.Done():
			fctx, cancel := context.WithTimeout(context.WithoutCancel(ctx), shutdownFlushTimeout)
			defer cancel()
			if err := s.Flush(fctx); err != nil {
				s.log.Error("Final usage flush failed", zap.Error(err))
				return err
			}
			return nil
		case <-t.C:
			if err := s.Flush(ctx); err != nil {
				s.log.Warn("Usage flush failed, will retry", zap.Error(err))
			}
		}
	}
}
