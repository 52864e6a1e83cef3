package usage

import (
	"context"
	"database/sql"
	stderrors "errors"

	sq "github.com/Masterminds/squirrel"
	"github.com/percussion/tenantd"
	"github.com/percussion/tenantd/kit/platform/errors"
	"github.com/percussion/tenantd/sqlite"
)

// ErrUsageNotFound is returned when a tenant has no recorded usage.
var ErrUsageNotFound = &errors.Error{
	Code: errors.ENotFound,
	Msg:  "no usage recorded for tenant",
}

var usageColumns = []string{"tenant_id", "allowed", "denied", "first_seen_at", "last_seen_at"}

// Store persists usage counts in the tenant_usage table.
type Store struct {
	sqlStore *sqlite.SqlStore
}

// NewStore returns a Store over s. The schema must already be migrated.
func NewStore(s *sqlite.SqlStore) *Store {
	return &Store{sqlStore: s}
}

// Add adds the deltas to the persisted counts in a single transaction.
func (s *Store) Add(ctx context.Context, deltas []*tenantd.Usage) (err error) {
	defer func() {
		err = errors.ErrInternalServiceError(err, errors.WithErrorOp(tenantd.OpFlushUsage))
	}()

	s.sqlStore.Mu.Lock()
	defer s.sqlStore.Mu.Unlock()

	tx, err := s.sqlStore.DB.BeginTxx(ctx, nil)
	if err != nil {
		return err
	}
	defer func() {
		if err != nil {
			_ = tx.Rollback()
		}
	}()

	for _, d := range deltas {
		query, args, err := sq.Select(usageColumns...).
			From("tenant_usage").
			Where(sq.Eq{"tenant_id": d.TenantID}).
			ToSql()
		if err != nil {
			return err
		}

		var cur tenantd.Usage
		err = tx.GetContext(ctx, &cur, query, args...)
		switch {
		case stderrors.Is(err, sql.ErrNoRows):
			cur = *d
		case err != nil:
			return err
		default:
			cur.Add(*d)
		}

		query, args, err = sq.Insert("tenant_usage").
			Columns(usageColumns...).
			Values(cur.TenantID, cur.Allowed, cur.Denied, cur.FirstSeenAt.UTC(), cur.LastSeenAt.UTC()).
			Suffix(`ON CONFLICT (tenant_id) DO UPDATE SET
				allowed = excluded.allowed,
				denied = excluded.denied,
				first_seen_at = excluded.first_seen_at,
				last_seen_at = excluded.last_seen_at`).
			ToSql()
		if err != nil {
			return err
		}
		if _, err := tx.ExecContext(ctx, query, args...); err != nil {
			return err
		}
	}

	return tx.Commit()
}

// Find returns the persisted usage of tenantID.
func (s *Store) Find(ctx context.Context, tenantID string) (u *tenantd.Usage, err error) {
	defer func() {
		err = errors.ErrInternalServiceError(err, errors.WithErrorOp(tenantd.OpFindUsage))
	}()

	s.sqlStore.Mu.RLock()
	defer s.sqlStore.Mu.RUnlock()

	query, args, err := sq.Select(usageColumns...).
		From("tenant_usage").
		Where(sq.Eq{"tenant_id": tenantID}).
		ToSql()
	if err != nil {
		return nil, err
	}

	u = &tenantd.Usage{}
	err = s.sqlStore.DB.GetContext(ctx, u, query, args...)
	if stderrors.Is(err, sql.ErrNoRows) {
		return nil, ErrUsageNotFound
	}
	if err != nil {
		return nil, err
	}
	normalize(u)
	return u, nil
}

// List returns every persisted usage ordered by tenant id.
func (s *Store) List(ctx context.Context) (us []*tenantd.Usage, err error) {
	defer func() {
		err = errors.ErrInternalServiceError(err, errors.WithErrorOp(tenantd.OpFindUsages))
	}()

	s.sqlStore.Mu.RLock()
	defer s.sqlStore.Mu.RUnlock()

	query, args, err := sq.Select(usageColumns...).
		From("tenant_usage").
		OrderBy("tenant_id").
		ToSql()
	if err != nil {
		return nil, err
	}

	us = []*tenantd.Usage{}
	if err := s.sqlStore.DB.SelectContext(ctx, &us, query, args...); err != nil {
		return nil, err
	}
	for _, u := range us {
		normalize(u)
	}
	return us, nil
}

func normalize(u *tenantd.Usage) {
	u.FirstSeenAt = u.FirstSeenAt.UTC()
	u.LastSeenAt = u.LastSeenAt.UTC()
}
