package tenant

import (
	"context"
	"strings"

	"github.com/go-playground/validator/v10"
	"github.com/percussion/tenantd"
	"github.com/percussion/tenantd/kv"
)

var _ tenantd.TenantService = (*Service)(nil)

// Service implements tenantd.TenantService on top of a Store.
type Service struct {
	store    *Store
	validate *validator.Validate
}

// NewService returns a tenant service backed by st.
func NewService(st *Store) *Service {
	v := validator.New()
	// registration only fails for an empty tag or a nil func
	_ = v.RegisterValidation("tenantid", func(fl validator.FieldLevel) bool {
		return tenantd.ValidTenantID(fl.Field().String())
	})
	return &Service{
		store:    st,
		validate: v,
	}
}

func (s *Service) validateTenant(t *tenantd.Tenant) error {
	if err := s.validate.Struct(t); err != nil {
		return InvalidTenantError(err)
	}
	return nil
}

// FindTenantByID returns a single tenant by ID.
func (s *Service) FindTenantByID(ctx context.Context, id string) (*tenantd.Tenant, error) {
	var t *tenantd.Tenant
	err := s.store.View(ctx, func(tx kv.Tx) error {
		found, err := s.store.GetTenant(ctx, tx, id)
		if err != nil {
			return err
		}
		t = found
		return nil
	})
	if err != nil {
		return nil, err
	}
	return t, nil
}

// FindTenant returns the first tenant that matches filter.
func (s *Service) FindTenant(ctx context.Context, filter tenantd.TenantFilter) (*tenantd.Tenant, error) {
	if filter.ID != nil {
		t, err := s.FindTenantByID(ctx, *filter.ID)
		if err != nil {
			return nil, err
		}
		if !filter.Match(t) {
			return nil, ErrTenantNotFound
		}
		return t, nil
	}

	if filter.Name != nil {
		var t *tenantd.Tenant
		err := s.store.View(ctx, func(tx kv.Tx) error {
			found, err := s.store.GetTenantByName(ctx, tx, *filter.Name)
			if err != nil {
				return err
			}
			t = found
			return nil
		})
		if err != nil {
			return nil, err
		}
		if filter.Status != nil && *filter.Status != t.Status {
			return nil, ErrTenantNotFound
		}
		return t, nil
	}

	ts, _, err := s.FindTenants(ctx, filter, tenantd.FindOptions{Limit: 1})
	if err != nil {
		return nil, err
	}
	if len(ts) == 0 {
		return nil, ErrTenantNotFound
	}
	return ts[0], nil
}

// FindTenants returns the page of tenants selected by opt that match filter
// and the total number of matches.
func (s *Service) FindTenants(ctx context.Context, filter tenantd.TenantFilter, opt ...tenantd.FindOptions) ([]*tenantd.Tenant, int, error) {
	var o tenantd.FindOptions
	if len(opt) > 0 {
		o = opt[0]
	}

	// an id or a name selects at most one tenant
	if filter.ID != nil || filter.Name != nil {
		t, err := s.FindTenant(ctx, filter)
		if isNotFound(err) {
			return []*tenantd.Tenant{}, 0, nil
		}
		if err != nil {
			return nil, 0, err
		}
		return []*tenantd.Tenant{t}, 1, nil
	}

	var all []*tenantd.Tenant
	err := s.store.View(ctx, func(tx kv.Tx) error {
		ts, err := s.store.ListTenants(ctx, tx)
		if err != nil {
			return err
		}
		all = ts
		return nil
	})
	if err != nil {
		return nil, 0, err
	}

	matched := all[:0]
	for _, t := range all {
		if filter.Match(t) {
			matched = append(matched, t)
		}
	}

	tenantd.SortTenants(o, matched)
	start, end := o.Page(len(matched))
	return matched[start:end], len(matched), nil
}

// CreateTenant validates and stores t. An empty status becomes active and an
// empty id is generated.
func (s *Service) CreateTenant(ctx context.Context, t *tenantd.Tenant) error {
	t.Name = strings.TrimSpace(t.Name)
	if t.Status == "" {
		t.Status = tenantd.TenantActive
	}
	if t.ID == "" {
		t.ID = s.store.IDGen.ID()
	}
	if err := s.validateTenant(t); err != nil {
		return err
	}

	return s.store.Update(ctx, func(tx kv.Tx) error {
		return s.store.CreateTenant(ctx, tx, t)
	})
}

// UpdateTenant applies upd and returns the updated tenant.
func (s *Service) UpdateTenant(ctx context.Context, id string, upd tenantd.TenantUpdate) (*tenantd.Tenant, error) {
	var t *tenantd.Tenant
	err := s.store.Update(ctx, func(tx kv.Tx) error {
		current, err := s.store.GetTenant(ctx, tx, id)
		if err != nil {
			return err
		}

		// validate the result before touching the index
		candidate := *current
		upd.Apply(&candidate)
		if err := s.validateTenant(&candidate); err != nil {
			return err
		}

		updated, err := s.store.UpdateTenant(ctx, tx, id, upd)
		if err != nil {
			return err
		}
		t = updated
		return nil
	})
	if err != nil {
		return nil, err
	}
	return t, nil
}

// DeleteTenant removes a tenant by ID.
func (s *Service) DeleteTenant(ctx context.Context, id string) error {
	return s.store.Update(ctx, func(tx kv.Tx) error {
		return s.store.DeleteTenant(ctx, tx, id)
	})
}
