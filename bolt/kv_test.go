package bolt_test

import (
	"context"
	"path/filepath"
	"testing"

	"github.com/percussion/tenantd/bolt"
	"github.com/percussion/tenantd/kit/prom/promtest"
	"github.com/percussion/tenantd/kv"
	platformtesting "github.com/percussion/tenantd/testing"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap/zaptest"
)

func initKVStore(f platformtesting.KVStoreFields, t *testing.T) (kv.Store, func()) {
	s, closeFn, err := platformtesting.NewTestBoltStore(t)
	if err != nil {
		t.Fatalf("failed to create new kv store: %v", err)
	}
	platformtesting.SeedKVStore(t, s, f)
	return s, closeFn
}

func TestKVStore(t *testing.T) {
	platformtesting.KVStore(initKVStore, t)
}

func TestKVStore_Reopen(t *testing.T) {
	path := filepath.Join(t.TempDir(), "nested", "tenantd.bolt")
	ctx := context.Background()

	s := bolt.NewKVStore(zaptest.NewLogger(t), path)
	require.NoError(t, s.Open(ctx))
	require.NoError(t, s.Update(ctx, func(tx kv.Tx) error {
		b, err := tx.Bucket([]byte("tenantsv1"))
		if err != nil {
			return err
		}
		return b.Put([]byte("acme"), []byte("{}"))
	}))
	require.NoError(t, s.Close())

	s = bolt.NewKVStore(zaptest.NewLogger(t), path)
	require.NoError(t, s.Open(ctx))
	defer s.Close()
	assert.Equal(t, path, s.Path())

	require.NoError(t, s.View(ctx, func(tx kv.Tx) error {
		b, err := tx.Bucket([]byte("tenantsv1"))
		require.NoError(t, err)
		v, err := b.Get([]byte("acme"))
		require.NoError(t, err)
		assert.Equal(t, "{}", string(v))
		return nil
	}))
}

func TestKVStore_Metrics(t *testing.T) {
	ctx := context.Background()
	s := bolt.NewKVStore(zaptest.NewLogger(t), filepath.Join(t.TempDir(), "tenantd.bolt"), bolt.WithNoSync())

	reg := prometheus.NewRegistry()
	reg.MustRegister(s)
	assert.Empty(t, promtest.MustGather(t, reg), "closed store reports nothing")

	require.NoError(t, s.Open(ctx))
	defer s.Close()

	require.NoError(t, s.Update(ctx, func(tx kv.Tx) error {
		b, err := tx.Bucket([]byte("tenantsv1"))
		if err != nil {
			return err
		}
		return b.Put([]byte("acme"), []byte("{}"))
	}))
	require.NoError(t, s.View(ctx, func(tx kv.Tx) error { return nil }))

	mfs := promtest.MustGather(t, reg)
	assert.GreaterOrEqual(t, promtest.CounterValue(t, mfs, "tenantd_boltdb_reads_total", nil), float64(1))
	assert.Greater(t, promtest.CounterValue(t, mfs, "tenantd_boltdb_writes_total", nil), float64(0))
	promtest.MustFindMetric(t, mfs, "tenantd_boltdb_open_reads", nil)
}

func TestKVStore_CloseTwice(t *testing.T) {
	s := bolt.NewKVStore(zaptest.NewLogger(t), filepath.Join(t.TempDir(), "tenantd.bolt"))
	require.NoError(t, s.Close())
	require.NoError(t, s.Open(context.Background()))
	require.NoError(t, s.Close())
	require.NoError(t, s.Close())
}
