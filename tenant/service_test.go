package tenant_test

import (
	"context"
	"testing"

	"github.com/percussion/tenantd"
	"github.com/percussion/tenantd/kv"
	"github.com/percussion/tenantd/tenant"
	tenanttesting "github.com/percussion/tenantd/testing"
)

func TestBoltTenantService(t *testing.T) {
	tenanttesting.TenantService(initBoltTenantService, t)
}

func TestInmemTenantService(t *testing.T) {
	tenanttesting.TenantService(initInmemTenantService, t)
}

func initBoltTenantService(f tenanttesting.TenantFields, t *testing.T) (tenantd.TenantService, func()) {
	s, closeBolt, err := tenanttesting.NewTestBoltStore(t)
	if err != nil {
		t.Fatalf("failed to create new kv store: %v", err)
	}

	svc, closeSvc := initTenantService(s, f, t)
	return svc, func() {
		closeSvc()
		closeBolt()
	}
}

func initInmemTenantService(f tenanttesting.TenantFields, t *testing.T) (tenantd.TenantService, func()) {
	s, closeInmem, err := tenanttesting.NewTestInmemStore(t)
	if err != nil {
		t.Fatalf("failed to create new kv store: %v", err)
	}

	svc, closeSvc := initTenantService(s, f, t)
	return svc, func() {
		closeSvc()
		closeInmem()
	}
}

func initTenantService(s kv.Store, f tenanttesting.TenantFields, t *testing.T) (tenantd.TenantService, func()) {
	storage := tenant.NewStore(s)
	if f.IDGenerator != nil {
		storage.IDGen = f.IDGenerator
	}
	svc := tenant.NewService(storage)

	ctx := context.Background()
	for _, tn := range f.Tenants {
		// copy so the fixtures keep their zero timestamps
		tn := *tn
		if err := svc.CreateTenant(ctx, &tn); err != nil {
			t.Fatalf("failed to populate tenants: %v", err)
		}
	}

	return svc, func() {
		for _, tn := range f.Tenants {
			_ = svc.DeleteTenant(ctx, tn.ID)
		}
	}
}
