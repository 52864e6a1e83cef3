package usage_test

import (
	"context"
	"sync"
	"testing"
	"time"

	"github.com/benbjohnson/clock"
	"github.com/percussion/tenantd"
	"github.com/percussion/tenantd/kit/platform/errors"
	"github.com/percussion/tenantd/sqlite"
	"github.com/percussion/tenantd/sqlite/migrations"
	"github.com/percussion/tenantd/usage"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap/zaptest"
)

var t0 = time.Date(2026, 5, 4, 10, 0, 0, 0, time.UTC)

func newTestStore(t *testing.T) *usage.Store {
	t.Helper()

	sqlStore, err := sqlite.NewSqlStore(sqlite.InmemPath, zaptest.NewLogger(t))
	require.NoError(t, err)
	t.Cleanup(func() { _ = sqlStore.Close() })

	require.NoError(t, sqlite.NewMigrator(sqlStore, zaptest.NewLogger(t)).Up(context.Background(), migrations.AllUp))
	return usage.NewStore(sqlStore)
}

func TestRecorder(t *testing.T) {
	clk := clock.NewMock()
	clk.Set(t0)
	r := usage.NewRecorder(clk)

	r.Record("acme", true)
	clk.Add(time.Second)
	r.Record("acme", false)
	r.Record("beta", true)

	u, ok := r.Pending("acme")
	require.True(t, ok)
	assert.Equal(t, int64(1), u.Allowed)
	assert.Equal(t, int64(1), u.Denied)
	assert.Equal(t, t0, u.FirstSeenAt)
	assert.Equal(t, t0.Add(time.Second), u.LastSeenAt)

	drained := r.Drain()
	require.Len(t, drained, 2)
	assert.Equal(t, "acme", drained[0].TenantID)
	assert.Equal(t, "beta", drained[1].TenantID)
	assert.Empty(t, r.Snapshot())

	r.Record("acme", true)
	r.Restore(drained)
	u, ok = r.Pending("acme")
	require.True(t, ok)
	assert.Equal(t, int64(2), u.Allowed)
	assert.Equal(t, t0, u.FirstSeenAt)
	assert.Len(t, r.Snapshot(), 2)
}

func TestRecorder_Concurrent(t *testing.T) {
	r := usage.NewRecorder(clock.New())

	var wg sync.WaitGroup
	for i := 0; i < 8; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			for j := 0; j < 100; j++ {
				r.Record("acme", j%2 == 0)
			}
		}()
	}
	wg.Wait()

	u, ok := r.Pending("acme")
	require.True(t, ok)
	assert.Equal(t, int64(400), u.Allowed)
	assert.Equal(t, int64(400), u.Denied)
}

func TestStore(t *testing.T) {
	st := newTestStore(t)
	ctx := context.Background()

	_, err := st.Find(ctx, "acme")
	assert.Equal(t, errors.ENotFound, errors.ErrorCode(err))

	require.NoError(t, st.Add(ctx, []*tenantd.Usage{
		{TenantID: "acme", Allowed: 2, FirstSeenAt: t0.Add(time.Minute), LastSeenAt: t0.Add(time.Minute)},
		{TenantID: "beta", Denied: 1, FirstSeenAt: t0, LastSeenAt: t0},
	}))
	require.NoError(t, st.Add(ctx, []*tenantd.Usage{
		{TenantID: "acme", Allowed: 1, Denied: 3, FirstSeenAt: t0, LastSeenAt: t0.Add(time.Hour)},
	}))

	u, err := st.Find(ctx, "acme")
	require.NoError(t, err)
	assert.Equal(t, int64(3), u.Allowed)
	assert.Equal(t, int64(3), u.Denied)
	assert.True(t, u.FirstSeenAt.Equal(t0))
	assert.True(t, u.LastSeenAt.Equal(t0.Add(time.Hour)))

	us, err := st.List(ctx)
	require.NoError(t, err)
	require.Len(t, us, 2)
	assert.Equal(t, "acme", us[0].TenantID)
	assert.Equal(t, "beta", us[1].TenantID)
	assert.Equal(t, int64(1), us[1].Denied)
}

type failingStorage struct {
	usage.Storage
	fail bool
}

func (f *failingStorage) Add(ctx context.Context, deltas []*tenantd.Usage) error {
	if f.fail {
		return &errors.Error{Code: errors.EInternal, Msg: "disk full"}
	}
	return f.Storage.Add(ctx, deltas)
}

func TestService_RecordFlushFind(t *testing.T) {
	clk := clock.NewMock()
	clk.Set(t0)
	st := &failingStorage{Storage: newTestStore(t)}
	svc := usage.NewService(zaptest.NewLogger(t), st, usage.WithClock(clk))
	ctx := context.Background()

	_, err := svc.FindUsage(ctx, "acme")
	assert.Equal(t, errors.ENotFound, errors.ErrorCode(err))

	svc.RecordRequest(ctx, "", true)
	svc.RecordRequest(ctx, "acme", true)
	svc.RecordRequest(ctx, "acme", false)

	// pending counts are visible before a flush
	u, err := svc.FindUsage(ctx, "acme")
	require.NoError(t, err)
	assert.Equal(t, int64(1), u.Allowed)
	assert.Equal(t, int64(1), u.Denied)

	require.NoError(t, svc.Flush(ctx))
	svc.RecordRequest(ctx, "acme", true)
	svc.RecordRequest(ctx, "beta", false)

	// persisted and pending counts merge
	u, err = svc.FindUsage(ctx, "acme")
	require.NoError(t, err)
	assert.Equal(t, int64(2), u.Allowed)
	assert.Equal(t, int64(1), u.Denied)

	us, err := svc.FindUsages(ctx)
	require.NoError(t, err)
	require.Len(t, us, 2)
	assert.Equal(t, "acme", us[0].TenantID)
	assert.Equal(t, int64(2), us[0].Allowed)
	assert.Equal(t, "beta", us[1].TenantID)

	// a failed flush keeps the counts pending
	st.fail = true
	require.Error(t, svc.Flush(ctx))
	u, err = svc.FindUsage(ctx, "beta")
	require.NoError(t, err)
	assert.Equal(t, int64(1), u.Denied)

	st.fail = false
	require.NoError(t, svc.Flush(ctx))
	u, err = svc.FindUsage(ctx, "acme")
	require.NoError(t, err)
	assert.Equal(t, int64(2), u.Allowed)
}

func TestService_Run(t *testing.T) {
	clk := clock.NewMock()
	clk.Set(t0)
	st := newTestStore(t)
	svc := usage.NewService(zaptest.NewLogger(t), st, usage.WithClock(clk), usage.WithFlushInterval(time.Minute))

	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan error, 1)
	go func() { done <- svc.Run(ctx) }()

	svc.RecordRequest(ctx, "acme", true)
	require.Eventually(t, func() bool {
		clk.Add(time.Minute)
		u, err := st.Find(context.Background(), "acme")
		return err == nil && u.Allowed == 1
	}, 5*time.Second, 10*time.Millisecond)

	// the final flush persists what is left
	svc.RecordRequest(ctx, "beta", false)
	cancel()
	require.NoError(t, <-done)

	u, err := st.Find(context.Background(), "beta")
	require.NoError(t, err)
	assert.Equal(t, int64(1), u.Denied)
}
