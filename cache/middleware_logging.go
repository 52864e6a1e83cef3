package cache

import (
	"context"
	"time"

	"github.com/percussion/tenantd"
	"go.uber.org/zap"
)

// Logger is a logging middleware for a TenantCache.
type Logger struct {
	logger *zap.Logger
	cache  tenantd.TenantCache
}

var _ tenantd.TenantCache = (*Logger)(nil)

// NewLogger returns a logging service middleware for the tenant cache.
func NewLogger(log *zap.Logger, c tenantd.TenantCache) *Logger {
	return &Logger{
		logger: log,
		cache:  c,
	}
}

func (l *Logger) Lookup(ctx context.Context, tenantID string) (e *tenantd.CacheEntry, err error) {
	defer func(start time.Time) {
		dur := zap.Duration("took", time.Since(start))
		if err != nil {
			l.logger.Debug("failed to look up tenant", zap.String("tenant_id", tenantID), zap.Error(err), dur)
			return
		}
		l.logger.Debug("tenant lookup",
			zap.String("tenant_id", tenantID),
			zap.String("status", string(e.Status)),
			zap.Bool("stale", e.Stale),
			dur)
	}(time.Now())
	return l.cache.Lookup(ctx, tenantID)
}

func (l *Logger) Put(ctx context.Context, a *tenantd.Authorization) (err error) {
	defer func(start time.Time) {
		dur := zap.Duration("took", time.Since(start))
		if err != nil {
			l.logger.Debug("failed to put tenant authorization", zap.Error(err), dur)
			return
		}
		l.logger.Debug("tenant authorization put", zap.String("tenant_id", a.TenantID), dur)
	}(time.Now())
	return l.cache.Put(ctx, a)
}

func (l *Logger) Invalidate(ctx context.Context, tenantID string) (err error) {
	defer func(start time.Time) {
		dur := zap.Duration("took", time.Since(start))
		if err != nil {
			l.logger.Debug("failed to invalidate tenant", zap.String("tenant_id", tenantID), zap.Error(err), dur)
			return
		}
		l.logger.Debug("tenant invalidate", zap.String("tenant_id", tenantID), dur)
	}(time.Now())
	return l.cache.Invalidate(ctx, tenantID)
}

func (l *Logger) InvalidateAll(ctx context.Context) (err error) {
	defer func(start time.Time) {
		dur := zap.Duration("took", time.Since(start))
		if err != nil {
			l.logger.Debug("failed to invalidate tenant cache", zap.Error(err), dur)
			return
		}
		l.logger.Debug("tenant cache invalidate", dur)
	}(time.Now())
	return l.cache.InvalidateAll(ctx)
}

func (l *Logger) Entries(ctx context.Context) (es []*tenantd.CacheEntry, err error) {
	defer func(start time.Time) {
		dur := zap.Duration("took", time.Since(start))
		if err != nil {
			l.logger.Debug("failed to list tenant cache entries", zap.Error(err), dur)
			return
		}
		l.logger.Debug("tenant cache entries", zap.Int("count", len(es)), dur)
	}(time.Now())
	return l.cache.Entries(ctx)
}

func (l *Logger) Scavenge(ctx context.Context) (n int, err error) {
	defer func(start time.Time) {
		dur := zap.Duration("took", time.Since(start))
		if err != nil {
			l.logger.Debug("failed to scavenge tenant cache", zap.Error(err), dur)
			return
		}
		l.logger.Debug("tenant cache scavenge", zap.Int("removed", n), dur)
	}(time.Now())
	return l.cache.Scavenge(ctx)
}
