package tenant

import (
	"context"
	"encoding/json"
	"strings"
	"time"

	"github.com/benbjohnson/clock"
	"github.com/percussion/tenantd"
	"github.com/percussion/tenantd/kit/platform/errors"
	"github.com/percussion/tenantd/kv"
)

var (
	tenantBucket = []byte("tenantsv1")
	tenantIndex  = []byte("tenantindexv1")
)

// Store persists tenants in a kv.Store. Tenants are keyed by id in one
// bucket and by name in an index bucket that keeps names unique.
type Store struct {
	kvStore kv.Store
	IDGen   tenantd.IDGenerator
	clock   clock.Clock
}

// StoreOption configures a Store.
type StoreOption func(*Store)

// WithStoreClock sets the clock used for created and updated timestamps.
func WithStoreClock(clk clock.Clock) StoreOption {
	return func(s *Store) {
		s.clock = clk
	}
}

// NewStore returns a tenant store backed by kvStore.
func NewStore(kvStore kv.Store, opts ...StoreOption) *Store {
	s := &Store{
		kvStore: kvStore,
		IDGen:   tenantd.UUIDGenerator{},
		clock:   clock.New(),
	}
	for _, o := range opts {
		o(s)
	}
	return s
}

// View opens up a transaction that will not write to any data. Implementing interfaces
// should take care to ensure that all view transactions do not mutate any data.
func (s *Store) View(ctx context.Context, fn func(kv.Tx) error) error {
	return s.kvStore.View(ctx, fn)
}

// Update opens up a transaction that will mutate data.
func (s *Store) Update(ctx context.Context, fn func(kv.Tx) error) error {
	return s.kvStore.Update(ctx, fn)
}

func (s *Store) now() time.Time {
	return s.clock.Now().UTC().Truncate(time.Millisecond)
}

func tenantIndexKey(n string) []byte {
	return []byte(strings.ToLower(strings.TrimSpace(n)))
}

func unmarshalTenant(v []byte) (*tenantd.Tenant, error) {
	t := &tenantd.Tenant{}
	if err := json.Unmarshal(v, t); err != nil {
		return nil, ErrCorruptTenant(err)
	}
	return t, nil
}

func marshalTenant(t *tenantd.Tenant) ([]byte, error) {
	v, err := json.Marshal(t)
	if err != nil {
		return nil, ErrUnprocessableTenant(err)
	}
	return v, nil
}

func (s *Store) uniqueTenantName(ctx context.Context, tx kv.Tx, name string) error {
	key := tenantIndexKey(name)
	if len(key) == 0 {
		return ErrNameisEmpty
	}

	idx, err := tx.Bucket(tenantIndex)
	if err != nil {
		return errors.ErrInternalServiceError(err)
	}

	_, err = idx.Get(key)
	// if not found then this is  _unique_.
	if kv.IsNotFound(err) {
		return nil
	}

	// no error means this is not unique
	if err == nil {
		return TenantAlreadyExistsError(name)
	}

	// any other error is some sort of internal server error
	return errors.ErrInternalServiceError(err)
}

// GetTenant returns the tenant with id.
func (s *Store) GetTenant(ctx context.Context, tx kv.Tx, id string) (t *tenantd.Tenant, retErr error) {
	defer func() {
		retErr = errors.ErrInternalServiceError(retErr, errors.WithErrorOp(tenantd.OpFindTenantByID))
	}()

	b, err := tx.Bucket(tenantBucket)
	if err != nil {
		return nil, err
	}

	v, err := b.Get([]byte(id))
	if kv.IsNotFound(err) {
		return nil, ErrTenantNotFound
	}
	if err != nil {
		return nil, err
	}

	return unmarshalTenant(v)
}

// GetTenantByName returns the tenant called n. Names compare case-insensitively.
func (s *Store) GetTenantByName(ctx context.Context, tx kv.Tx, n string) (t *tenantd.Tenant, retErr error) {
	defer func() {
		retErr = errors.ErrInternalServiceError(retErr, errors.WithErrorOp(tenantd.OpFindTenant))
	}()

	b, err := tx.Bucket(tenantIndex)
	if err != nil {
		return nil, err
	}

	id, err := b.Get(tenantIndexKey(n))
	if kv.IsNotFound(err) {
		return nil, TenantNotFoundByName(n)
	}
	if err != nil {
		return nil, err
	}

	return s.GetTenant(ctx, tx, string(id))
}

// ListTenants returns every tenant in id order.
func (s *Store) ListTenants(ctx context.Context, tx kv.Tx) (ts []*tenantd.Tenant, retErr error) {
	defer func() {
		retErr = errors.ErrInternalServiceError(retErr, errors.WithErrorOp(tenantd.OpFindTenants))
	}()

	b, err := tx.Bucket(tenantBucket)
	if err != nil {
		return nil, err
	}

	ts = []*tenantd.Tenant{}
	err = b.ForEach(func(k, v []byte) error {
		t, err := unmarshalTenant(v)
		if err != nil {
			return err
		}
		ts = append(ts, t)
		return nil
	})
	if err != nil {
		return nil, err
	}

	return ts, nil
}

// CreateTenant stores t, generating an id when t.ID is empty.
func (s *Store) CreateTenant(ctx context.Context, tx kv.Tx, t *tenantd.Tenant) (err error) {
	defer func() {
		err = errors.ErrInternalServiceError(err, errors.WithErrorOp(tenantd.OpCreateTenant))
	}()

	b, err := tx.Bucket(tenantBucket)
	if err != nil {
		return err
	}

	if t.ID == "" {
		t.ID = s.IDGen.ID()
	}
	if _, err := b.Get([]byte(t.ID)); err == nil {
		return TenantIDAlreadyExistsError(t.ID)
	} else if !kv.IsNotFound(err) {
		return err
	}

	t.Name = strings.TrimSpace(t.Name)
	if err := s.uniqueTenantName(ctx, tx, t.Name); err != nil {
		return err
	}

	now := s.now()
	t.CreatedAt = now
	t.UpdatedAt = now

	v, err := marshalTenant(t)
	if err != nil {
		return err
	}

	idx, err := tx.Bucket(tenantIndex)
	if err != nil {
		return err
	}

	if err := idx.Put(tenantIndexKey(t.Name), []byte(t.ID)); err != nil {
		return err
	}

	return b.Put([]byte(t.ID), v)
}

// UpdateTenant applies upd to the tenant with id and returns the result.
func (s *Store) UpdateTenant(ctx context.Context, tx kv.Tx, id string, upd tenantd.TenantUpdate) (t *tenantd.Tenant, retErr error) {
	defer func() {
		retErr = errors.ErrInternalServiceError(retErr, errors.WithErrorOp(tenantd.OpUpdateTenant))
	}()

	t, err := s.GetTenant(ctx, tx, id)
	if err != nil {
		return nil, err
	}

	if upd.Name != nil && !strings.EqualFold(strings.TrimSpace(*upd.Name), t.Name) {
		if err := s.uniqueTenantName(ctx, tx, *upd.Name); err != nil {
			return nil, err
		}

		idx, err := tx.Bucket(tenantIndex)
		if err != nil {
			return nil, err
		}

		if err := idx.Delete(tenantIndexKey(t.Name)); err != nil {
			return nil, err
		}

		if err := idx.Put(tenantIndexKey(*upd.Name), []byte(id)); err != nil {
			return nil, err
		}
	}

	upd.Apply(t)
	t.UpdatedAt = s.now()

	v, err := marshalTenant(t)
	if err != nil {
		return nil, err
	}

	b, err := tx.Bucket(tenantBucket)
	if err != nil {
		return nil, err
	}
	if err := b.Put([]byte(id), v); err != nil {
		return nil, err
	}

	return t, nil
}

// DeleteTenant removes the tenant with id and its name index entry.
func (s *Store) DeleteTenant(ctx context.Context, tx kv.Tx, id string) (retErr error) {
	defer func() {
		retErr = errors.ErrInternalServiceError(retErr, errors.WithErrorOp(tenantd.OpDeleteTenant))
	}()

	t, err := s.GetTenant(ctx, tx, id)
	if err != nil {
		return err
	}

	idx, err := tx.Bucket(tenantIndex)
	if err != nil {
		return err
	}

	if err := idx.Delete(tenantIndexKey(t.Name)); err != nil {
		return err
	}

	b, err := tx.Bucket(tenantBucket)
	if err != nil {
		return err
	}

	return b.Delete([]byte(id))
}
