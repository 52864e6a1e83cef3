package tenant

import (
	"context"
	"fmt"
	"time"

	"github.com/percussion/tenantd"
	"go.uber.org/zap"
)

// Logger is a logging middleware for the tenant service.
type Logger struct {
	logger        *zap.Logger
	tenantService tenantd.TenantService
}

// NewLogger returns a logging service middleware for the Tenant Service.
func NewLogger(log *zap.Logger, s tenantd.TenantService) *Logger {
	return &Logger{
		logger:        log,
		tenantService: s,
	}
}

var _ tenantd.TenantService = (*Logger)(nil)

func (l *Logger) CreateTenant(ctx context.Context, t *tenantd.Tenant) (err error) {
	defer func(start time.Time) {
		dur := zap.Duration("took", time.Since(start))
		if err != nil {
			l.logger.Debug("failed to create tenant", zap.Error(err), dur)
			return
		}
		l.logger.Debug("tenant create", zap.String("tenant_id", t.ID), dur)
	}(time.Now())
	return l.tenantService.CreateTenant(ctx, t)
}

func (l *Logger) FindTenantByID(ctx context.Context, id string) (t *tenantd.Tenant, err error) {
	defer func(start time.Time) {
		dur := zap.Duration("took", time.Since(start))
		if err != nil {
			msg := fmt.Sprintf("failed to find tenant with ID %v", id)
			l.logger.Debug(msg, zap.Error(err), dur)
			return
		}
		l.logger.Debug("tenant find by ID", dur)
	}(time.Now())
	return l.tenantService.FindTenantByID(ctx, id)
}

func (l *Logger) FindTenant(ctx context.Context, filter tenantd.TenantFilter) (t *tenantd.Tenant, err error) {
	defer func(start time.Time) {
		dur := zap.Duration("took", time.Since(start))
		if err != nil {
			l.logger.Debug("failed to find tenant matching the given filter", zap.Error(err), dur)
			return
		}
		l.logger.Debug("tenant find", dur)
	}(time.Now())
	return l.tenantService.FindTenant(ctx, filter)
}

func (l *Logger) FindTenants(ctx context.Context, filter tenantd.TenantFilter, opt ...tenantd.FindOptions) (ts []*tenantd.Tenant, n int, err error) {
	defer func(start time.Time) {
		dur := zap.Duration("took", time.Since(start))
		if err != nil {
			l.logger.Debug("failed to find tenants matching the given filter", zap.Error(err), dur)
			return
		}
		l.logger.Debug("tenants find", zap.Int("total", n), dur)
	}(time.Now())
	return l.tenantService.FindTenants(ctx, filter, opt...)
}

func (l *Logger) UpdateTenant(ctx context.Context, id string, upd tenantd.TenantUpdate) (t *tenantd.Tenant, err error) {
	defer func(start time.Time) {
		dur := zap.Duration("took", time.Since(start))
		if err != nil {
			l.logger.Debug("failed to update tenant", zap.String("tenant_id", id), zap.Error(err), dur)
			return
		}
		l.logger.Debug("tenant update", zap.String("tenant_id", id), dur)
	}(time.Now())
	return l.tenantService.UpdateTenant(ctx, id, upd)
}

func (l *Logger) DeleteTenant(ctx context.Context, id string) (err error) {
	defer func(start time.Time) {
		dur := zap.Duration("took", time.Since(start))
		if err != nil {
			msg := fmt.Sprintf("failed to delete tenant with ID %v", id)
			l.logger.Debug(msg, zap.Error(err), dur)
			return
		}
		l.logger.Debug("tenant delete", zap.String("tenant_id", id), dur)
	}(time.Now())
	return l.tenantService.DeleteTenant(ctx, id)
}
