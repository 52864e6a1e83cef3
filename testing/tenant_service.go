package testing

import (
	"context"
	"sort"
	"testing"
	"time"

	"github.com/google/go-cmp/cmp"
	"github.com/google/go-cmp/cmp/cmpopts"
	"github.com/percussion/tenantd"
	"github.com/percussion/tenantd/kit/platform/errors"
	"github.com/stretchr/testify/require"
)

var tenantCmpOptions = cmp.Options{
	cmpopts.IgnoreFields(tenantd.Tenant{}, "CreatedAt", "UpdatedAt"),
	cmp.Transformer("Sort", func(in []*tenantd.Tenant) []*tenantd.Tenant {
		out := append([]*tenantd.Tenant(nil), in...) // Copy input to avoid mutating it
		sort.Slice(out, func(i, j int) bool {
			return out[i].ID < out[j].ID
		})
		return out
	}),
}

// TenantFields will include the IDGenerator, and tenants
type TenantFields struct {
	IDGenerator tenantd.IDGenerator
	Tenants     []*tenantd.Tenant
}

// TenantService tests all the service functions.
func TenantService(
	init func(TenantFields, *testing.T) (tenantd.TenantService, func()), t *testing.T,
) {
	tests := []struct {
		name string
		fn   func(init func(TenantFields, *testing.T) (tenantd.TenantService, func()),
			t *testing.T)
	}{
		{
			name: "CreateTenant",
			fn:   CreateTenant,
		},
		{
			name: "FindTenantByID",
			fn:   FindTenantByID,
		},
		{
			name: "FindTenant",
			fn:   FindTenant,
		},
		{
			name: "FindTenants",
			fn:   FindTenants,
		},
		{
			name: "UpdateTenant",
			fn:   UpdateTenant,
		},
		{
			name: "DeleteTenant",
			fn:   DeleteTenant,
		},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			tt := tt
			t.Parallel()
			tt.fn(init, t)
		})
	}
}

func tenantFixtures() []*tenantd.Tenant {
	return []*tenantd.Tenant{
		{ID: "acme", Name: "Acme", Status: tenantd.TenantActive},
		{ID: "beta", Name: "Beta Corp", Description: "trial", Status: tenantd.TenantSuspended},
		{ID: "gamma", Name: "Gamma", Status: tenantd.TenantDisabled},
	}
}

func allTenants(ctx context.Context, t *testing.T, s tenantd.TenantService) []*tenantd.Tenant {
	t.Helper()
	ts, _, err := s.FindTenants(ctx, tenantd.TenantFilter{}, tenantd.FindOptions{Limit: tenantd.MaxPageSize})
	require.NoError(t, err)
	return ts
}

// CreateTenant testing
func CreateTenant(
	init func(TenantFields, *testing.T) (tenantd.TenantService, func()),
	t *testing.T,
) {
	type args struct {
		tenant *tenantd.Tenant
	}
	type wants struct {
		err     error
		tenants []*tenantd.Tenant
	}

	tests := []struct {
		name   string
		fields TenantFields
		args   args
		wants  wants
	}{
		{
			name:   "create tenant with empty set generates id and defaults status",
			fields: TenantFields{IDGenerator: staticID("generated-1")},
			args: args{
				tenant: &tenantd.Tenant{Name: "  Acme  "},
			},
			wants: wants{
				tenants: []*tenantd.Tenant{
					{ID: "generated-1", Name: "Acme", Status: tenantd.TenantActive},
				},
			},
		},
		{
			name:   "create tenant with explicit id",
			fields: TenantFields{Tenants: tenantFixtures()[:1]},
			args: args{
				tenant: &tenantd.Tenant{ID: "beta", Name: "Beta Corp", Status: tenantd.TenantSuspended},
			},
			wants: wants{
				tenants: []*tenantd.Tenant{
					{ID: "acme", Name: "Acme", Status: tenantd.TenantActive},
					{ID: "beta", Name: "Beta Corp", Status: tenantd.TenantSuspended},
				},
			},
		},
		{
			name:   "names are unique regardless of case",
			fields: TenantFields{Tenants: tenantFixtures()[:1]},
			args: args{
				tenant: &tenantd.Tenant{ID: "other", Name: "ACME"},
			},
			wants: wants{
				err: &errors.Error{
					Code: errors.EConflict,
					Msg:  "tenant with name ACME already exists",
				},
				tenants: tenantFixtures()[:1],
			},
		},
		{
			name:   "ids are unique",
			fields: TenantFields{Tenants: tenantFixtures()[:1]},
			args: args{
				tenant: &tenantd.Tenant{ID: "acme", Name: "Other"},
			},
			wants: wants{
				err: &errors.Error{
					Code: errors.EConflict,
					Msg:  "tenant with id acme already exists",
				},
				tenants: tenantFixtures()[:1],
			},
		},
		{
			name:   "invalid id is rejected",
			fields: TenantFields{},
			args: args{
				tenant: &tenantd.Tenant{ID: "has space", Name: "Spacey"},
			},
			wants: wants{
				err: &errors.Error{
					Code: errors.EInvalid,
					Msg:  "tenant is invalid",
				},
				tenants: []*tenantd.Tenant{},
			},
		},
		{
			name:   "unknown status is rejected",
			fields: TenantFields{},
			args: args{
				tenant: &tenantd.Tenant{ID: "x", Name: "X", Status: "paused"},
			},
			wants: wants{
				err: &errors.Error{
					Code: errors.EInvalid,
					Msg:  "tenant is invalid",
				},
				tenants: []*tenantd.Tenant{},
			},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			s, done := init(tt.fields, t)
			defer done()
			ctx := context.Background()

			before := time.Now().Add(-time.Second)
			err := s.CreateTenant(ctx, tt.args.tenant)
			ErrorsEqual(t, err, tt.wants.err)
			if err == nil {
				if tt.args.tenant.CreatedAt.Before(before) {
					t.Errorf("created at was not set: %v", tt.args.tenant.CreatedAt)
				}
			}

			ts := allTenants(ctx, t, s)
			if diff := cmp.Diff(ts, tt.wants.tenants, tenantCmpOptions...); diff != "" {
				t.Errorf("tenants are different -got/+want\ndiff %s", diff)
			}
		})
	}
}

// FindTenantByID testing
func FindTenantByID(
	init func(TenantFields, *testing.T) (tenantd.TenantService, func()),
	t *testing.T,
) {
	s, done := init(TenantFields{Tenants: tenantFixtures()}, t)
	defer done()
	ctx := context.Background()

	got, err := s.FindTenantByID(ctx, "beta")
	require.NoError(t, err)
	if diff := cmp.Diff(got, tenantFixtures()[1], tenantCmpOptions...); diff != "" {
		t.Errorf("tenant is different -got/+want\ndiff %s", diff)
	}

	_, err = s.FindTenantByID(ctx, "missing")
	ErrorsEqual(t, err, &errors.Error{Code: errors.ENotFound, Msg: "tenant not found"})
}

// FindTenant testing
func FindTenant(
	init func(TenantFields, *testing.T) (tenantd.TenantService, func()),
	t *testing.T,
) {
	s, done := init(TenantFields{Tenants: tenantFixtures()}, t)
	defer done()
	ctx := context.Background()

	name := "beta corp"
	got, err := s.FindTenant(ctx, tenantd.TenantFilter{Name: &name})
	require.NoError(t, err)
	require.Equal(t, "beta", got.ID)

	disabled := tenantd.TenantDisabled
	got, err = s.FindTenant(ctx, tenantd.TenantFilter{Status: &disabled})
	require.NoError(t, err)
	require.Equal(t, "gamma", got.ID)

	id := "acme"
	_, err = s.FindTenant(ctx, tenantd.TenantFilter{ID: &id, Status: &disabled})
	ErrorsEqual(t, err, &errors.Error{Code: errors.ENotFound, Msg: "tenant not found"})

	missing := "nobody"
	_, err = s.FindTenant(ctx, tenantd.TenantFilter{Name: &missing})
	ErrorsEqual(t, err, &errors.Error{Code: errors.ENotFound, Msg: `tenant name "nobody" not found`})
}

// FindTenants testing
func FindTenants(
	init func(TenantFields, *testing.T) (tenantd.TenantService, func()),
	t *testing.T,
) {
	active := tenantd.TenantActive
	id := "gamma"
	missing := "missing"

	tests := []struct {
		name   string
		filter tenantd.TenantFilter
		opts   tenantd.FindOptions
		ids    []string
		total  int
	}{
		{
			name:  "find all tenants",
			opts:  tenantd.FindOptions{Limit: 10},
			ids:   []string{"acme", "beta", "gamma"},
			total: 3,
		},
		{
			name:  "paging reports the total",
			opts:  tenantd.FindOptions{Limit: 1, Offset: 1},
			ids:   []string{"beta"},
			total: 3,
		},
		{
			name:  "descending by name",
			opts:  tenantd.FindOptions{Limit: 2, SortBy: "Name", Descending: true},
			ids:   []string{"gamma", "beta"},
			total: 3,
		},
		{
			name:   "filter by status",
			filter: tenantd.TenantFilter{Status: &active},
			opts:   tenantd.FindOptions{Limit: 10},
			ids:    []string{"acme"},
			total:  1,
		},
		{
			name:   "filter by id",
			filter: tenantd.TenantFilter{ID: &id},
			ids:    []string{"gamma"},
			total:  1,
		},
		{
			name:   "filter by missing id",
			filter: tenantd.TenantFilter{ID: &missing},
			ids:    []string{},
			total:  0,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			s, done := init(TenantFields{Tenants: tenantFixtures()}, t)
			defer done()

			ts, n, err := s.FindTenants(context.Background(), tt.filter, tt.opts)
			require.NoError(t, err)
			require.Equal(t, tt.total, n)

			ids := make([]string, 0, len(ts))
			for _, tn := range ts {
				ids = append(ids, tn.ID)
			}
			require.Equal(t, tt.ids, ids)
		})
	}
}

// UpdateTenant testing
func UpdateTenant(
	init func(TenantFields, *testing.T) (tenantd.TenantService, func()),
	t *testing.T,
) {
	s, done := init(TenantFields{Tenants: tenantFixtures()}, t)
	defer done()
	ctx := context.Background()

	name := "Acme Holdings"
	suspended := tenantd.TenantSuspended
	got, err := s.UpdateTenant(ctx, "acme", tenantd.TenantUpdate{Name: &name, Status: &suspended})
	require.NoError(t, err)
	require.Equal(t, "Acme Holdings", got.Name)
	require.Equal(t, tenantd.TenantSuspended, got.Status)
	require.False(t, got.UpdatedAt.Before(got.CreatedAt))

	// the old name is free again, the new one is taken
	old := "Acme"
	_, err = s.FindTenant(ctx, tenantd.TenantFilter{Name: &old})
	require.Equal(t, errors.ENotFound, errors.ErrorCode(err))
	found, err := s.FindTenant(ctx, tenantd.TenantFilter{Name: &name})
	require.NoError(t, err)
	require.Equal(t, "acme", found.ID)

	taken := "Gamma"
	_, err = s.UpdateTenant(ctx, "beta", tenantd.TenantUpdate{Name: &taken})
	ErrorsEqual(t, err, &errors.Error{Code: errors.EConflict, Msg: "tenant with name Gamma already exists"})

	// renaming to a different case of the same name is allowed
	shout := "GAMMA"
	got, err = s.UpdateTenant(ctx, "gamma", tenantd.TenantUpdate{Name: &shout})
	require.NoError(t, err)
	require.Equal(t, "GAMMA", got.Name)

	bad := tenantd.TenantStatus("paused")
	_, err = s.UpdateTenant(ctx, "beta", tenantd.TenantUpdate{Status: &bad})
	require.Equal(t, errors.EInvalid, errors.ErrorCode(err))

	_, err = s.UpdateTenant(ctx, "missing", tenantd.TenantUpdate{Name: &name})
	require.Equal(t, errors.ENotFound, errors.ErrorCode(err))
}

// DeleteTenant testing
func DeleteTenant(
	init func(TenantFields, *testing.T) (tenantd.TenantService, func()),
	t *testing.T,
) {
	s, done := init(TenantFields{Tenants: tenantFixtures()}, t)
	defer done()
	ctx := context.Background()

	require.NoError(t, s.DeleteTenant(ctx, "beta"))

	_, err := s.FindTenantByID(ctx, "beta")
	require.Equal(t, errors.ENotFound, errors.ErrorCode(err))

	// the name can be reused
	require.NoError(t, s.CreateTenant(ctx, &tenantd.Tenant{ID: "beta2", Name: "Beta Corp"}))

	err = s.DeleteTenant(ctx, "beta")
	ErrorsEqual(t, err, &errors.Error{Code: errors.ENotFound, Msg: "tenant not found"})

	require.Len(t, allTenants(ctx, t, s), 3)
}

type staticID string

func (s staticID) ID() string { return string(s) }
