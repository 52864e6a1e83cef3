package cache

import (
	"context"
	"fmt"
	"sort"
	"strconv"
	"strings"
	"sync"
	"sync/atomic"
	"time"

	"github.com/benbjohnson/clock"
	"github.com/percussion/tenantd"
	"github.com/percussion/tenantd/kit/platform/errors"
	"github.com/percussion/tenantd/kit/tracing"
	"github.com/prometheus/client_golang/prometheus"
	"go.uber.org/zap"
	"golang.org/x/sync/singleflight"
)

var (
	_ tenantd.TenantCache  = (*SimpleCache)(nil)
	_ prometheus.Collector = (*SimpleCache)(nil)
)

// Option configures a SimpleCache.
type Option func(*SimpleCache)

// WithClock sets the clock used for expiry. Tests pass clock.NewMock().
func WithClock(clk clock.Clock) Option {
	return func(c *SimpleCache) {
		c.clock = clk
	}
}

// WithLogger sets the logger.
func WithLogger(log *zap.Logger) Option {
	return func(c *SimpleCache) {
		c.log = log
	}
}

// SimpleCache is an in-process TenantCache. Entries are authorized through
// an Authorizer on a miss or after they expire, and removed by Scavenge once
// they are past expiry plus the stale grace window.
type SimpleCache struct {
	authorizer tenantd.Authorizer
	config     Config
	clock      clock.Clock
	log        *zap.Logger

	mu      sync.Mutex
	entries map[string]*tenantd.CacheEntry
	// gens records, per tenant, the seq of its last Put or Invalidate.
	// floor is the seq of the last InvalidateAll. A re-authorization stores
	// its result only if neither moved while it ran.
	gens  map[string]uint64
	floor uint64
	seq   uint64

	group singleflight.Group

	hits        uint64
	misses      uint64
	reauths     uint64
	reauthErrs  uint64
	staleServed uint64
	scavenged   uint64
}

// NewSimpleCache returns a cache that authorizes tenants through a.
func NewSimpleCache(a tenantd.Authorizer, config Config, opts ...Option) *SimpleCache {
	c := &SimpleCache{
		authorizer: a,
		config:     config,
		clock:      clock.New(),
		log:        zap.NewNop(),
		entries:    make(map[string]*tenantd.CacheEntry),
		gens:       make(map[string]uint64),
	}
	for _, o := range opts {
		o(c)
	}
	return c
}

// Lookup returns the cached authorization for tenantID. A missing or expired
// entry is re-authorized; concurrent lookups of one tenant share a single
// authorizer call.
func (c *SimpleCache) Lookup(ctx context.Context, tenantID string) (*tenantd.CacheEntry, error) {
	id, err := checkID(tenantID, tenantd.OpLookupTenant)
	if err != nil {
		return nil, err
	}

	now := c.clock.Now()
	c.mu.Lock()
	if e, ok := c.entries[id]; ok && !e.Expired(now) {
		e.Hits++
		e.LastAccessedAt = now
		out := copyEntry(e)
		c.mu.Unlock()
		atomic.AddUint64(&c.hits, 1)
		return out, nil
	}
	gen := c.genLocked(id)
	c.mu.Unlock()
	atomic.AddUint64(&c.misses, 1)

	// Lookups after an invalidation get a new key and so a new call.
	// The shared call must outlive any single waiter, so it does not
	// inherit cancellation. Each waiter still honours its own ctx.
	key := id + "\x00" + strconv.FormatUint(gen, 10)
	ch := c.group.DoChan(key, func() (interface{}, error) {
		return c.reauthorize(context.WithoutCancel(ctx), id, gen)
	})

	select {
	case <-ctx.Done():
		return nil, &errors.Error{
			Code: errors.EUnavailable,
			Op:   tenantd.OpLookupTenant,
			Msg:  fmt.Sprintf("lookup of tenant %q abandoned", id),
			Err:  ctx.Err(),
		}
	case res := <-ch:
		if res.Err != nil {
			return nil, res.Err
		}
		return copyEntry(res.Val.(*tenantd.CacheEntry)), nil
	}
}

// checkID trims id and rejects it unless it is a valid tenant id.
func checkID(id, op string) (string, error) {
	id = strings.TrimSpace(id)
	if id == "" {
		return "", &errors.Error{
			Code: errors.EInvalid,
			Op:   op,
			Msg:  "tenant id is required",
		}
	}
	if !tenantd.ValidTenantID(id) {
		return "", &errors.Error{
			Code: errors.EInvalid,
			Op:   op,
			Msg:  "tenant id is invalid",
		}
	}
	return id, nil
}

// genLocked returns the generation of id. c.mu must be held.
func (c *SimpleCache) genLocked(id string) uint64 {
	if g := c.gens[id]; g > c.floor {
		return g
	}
	return c.floor
}

// bumpLocked starts a new generation for id. c.mu must be held.
func (c *SimpleCache) bumpLocked(id string) {
	c.seq++
	c.gens[id] = c.seq
}

func (c *SimpleCache) reauthorize(ctx context.Context, id string, gen uint64) (_ *tenantd.CacheEntry, err error) {
	span, ctx := tracing.StartTenantSpan(ctx, "cache.reauthorize", id)
	defer func() {
		_ = tracing.LogError(span, err)
		span.Finish()
	}()

	atomic.AddUint64(&c.reauths, 1)
	a, err := c.authorizer.Authorize(ctx, id)
	if err == nil && a == nil {
		err = fmt.Errorf("authorizer returned no authorization for tenant %q", id)
	}
	now := c.clock.Now()

	if err != nil {
		atomic.AddUint64(&c.reauthErrs, 1)
		if e := c.serveStale(id, now); e != nil {
			c.log.Warn("Serving stale tenant authorization",
				zap.String("tenant_id", id),
				zap.Time("expired_at", e.ExpiresAt),
				zap.Error(err))
			return e, nil
		}
		return nil, &errors.Error{
			Code: errors.EUnavailable,
			Op:   tenantd.OpLookupTenant,
			Msg:  fmt.Sprintf("unable to authorize tenant %q", id),
			Err:  err,
		}
	}

	auth := c.normalize(a, id, now)
	e := &tenantd.CacheEntry{
		Authorization:  *auth,
		LastAccessedAt: now,
	}

	c.mu.Lock()
	if c.genLocked(id) == gen {
		c.entries[id] = e
	}
	out := copyEntry(e)
	c.mu.Unlock()

	return out, nil
}

// serveStale returns a copy of the expired entry for id marked stale when it
// is allowed and still inside the grace window, or nil.
func (c *SimpleCache) serveStale(id string, now time.Time) *tenantd.CacheEntry {
	c.mu.Lock()
	defer c.mu.Unlock()

	e, ok := c.entries[id]
	if !ok || !e.Allowed() || !now.Before(e.ExpiresAt.Add(c.config.StaleGrace)) {
		return nil
	}
	e.Hits++
	e.LastAccessedAt = now
	atomic.AddUint64(&c.staleServed, 1)

	out := copyEntry(e)
	out.Stale = true
	return out
}

// normalize copies a, forces the tenant id and fills in the timestamps.
// An authorizer supplied ExpiresAt earlier than the ttl wins.
func (c *SimpleCache) normalize(a *tenantd.Authorization, id string, now time.Time) *tenantd.Authorization {
	out := a.Clone()
	out.TenantID = id
	if out.AuthorizedAt.IsZero() {
		out.AuthorizedAt = now
	}

	ttl := c.config.TTL
	if !out.Allowed() {
		ttl = c.config.NegativeTTL
	}
	exp := now.Add(ttl)
	if out.ExpiresAt.IsZero() || exp.Before(out.ExpiresAt) {
		out.ExpiresAt = exp
	}
	return out
}

// Put stores a, replacing any entry for the tenant.
func (c *SimpleCache) Put(ctx context.Context, a *tenantd.Authorization) error {
	if a == nil {
		return &errors.Error{
			Code: errors.EInvalid,
			Op:   tenantd.OpPutAuthorization,
			Msg:  "tenant id is required",
		}
	}
	id, err := checkID(a.TenantID, tenantd.OpPutAuthorization)
	if err != nil {
		return err
	}
	if !a.Status.Valid() {
		return &errors.Error{
			Code: errors.EInvalid,
			Op:   tenantd.OpPutAuthorization,
			Msg:  fmt.Sprintf("unknown authorization status %q", a.Status),
		}
	}

	now := c.clock.Now()
	auth := c.normalize(a, id, now)

	c.mu.Lock()
	c.bumpLocked(id)
	c.entries[id] = &tenantd.CacheEntry{
		Authorization:  *auth,
		LastAccessedAt: now,
	}
	c.mu.Unlock()
	return nil
}

// Invalidate removes the entry for tenantID.
// Invalidate removes the entry for tenantID. A re-authorization already in
// flight for the tenant will not store its result.
func (c *SimpleCache) Invalidate(ctx context.Context, tenantID string) error {
	id, err := checkID(tenantID, tenantd.OpInvalidateTenant)
	if err != nil {
		return err
	}

	c.mu.Lock()
	c.bumpLocked(id)
	delete(c.entries, id)
	c.mu.Unlock()
	return nil
}

// InvalidateAll empties the cache, discarding in-flight re-authorizations too.
func (c *SimpleCache) InvalidateAll(ctx context.Context) error {
	c.mu.Lock()
	c.seq++
	c.floor = c.seq
	c.gens = make(map[string]uint64)
	c.entries = make(map[string]*tenantd.CacheEntry)
	c.mu.Unlock()
	return nil
}

// Entries returns a snapshot of the cache sorted by tenant id. Entries past
// their expiry are marked stale.
func (c *SimpleCache) Entries(ctx context.Context) ([]*tenantd.CacheEntry, error) {
	now := c.clock.Now()

	c.mu.Lock()
	out := make([]*tenantd.CacheEntry, 0, len(c.entries))
	for _, e := range c.entries {
		ce := copyEntry(e)
		ce.Stale = e.Expired(now)
		out = append(out, ce)
	}
	c.mu.Unlock()

	sort.Slice(out, func(i, j int) bool {
		return out[i].TenantID < out[j].TenantID
	})
	return out, nil
}

// Scavenge removes every entry that can no longer be served, even stale.
func (c *SimpleCache) Scavenge(ctx context.Context) (int, error) {
	now := c.clock.Now()

	c.mu.Lock()
	n := 0
	for id, e := range c.entries {
		if !now.Before(e.ExpiresAt.Add(c.config.StaleGrace)) {
			delete(c.entries, id)
			n++
		}
	}
	c.mu.Unlock()

	atomic.AddUint64(&c.scavenged, uint64(n))
	return n, nil
}

// Run scavenges the cache every ScavengeInterval until ctx is done.
func (c *SimpleCache) Run(ctx context.Context) error {
	ticker := c.clock.Ticker(c.config.ScavengeInterval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return nil
		case <-ticker.C:
			n, err := c.Scavenge(ctx)
			if err != nil {
				c.log.Error("Failed to scavenge tenant cache", zap.Error(err))
				continue
			}
			if n > 0 {
				c.log.Debug("Scavenged tenant cache", zap.Int("removed", n))
			}
		}
	}
}

// Len returns the number of entries, including expired ones not yet scavenged.
func (c *SimpleCache) Len() int {
	c.mu.Lock()
	defer c.mu.Unlock()
	return len(c.entries)
}

func copyEntry(e *tenantd.CacheEntry) *tenantd.CacheEntry {
	out := *e
	return &out
}

var (
	entriesDesc = prometheus.NewDesc(
		"tenantd_tenantcache_entries",
		"Number of tenant authorizations held by the cache",
		nil, nil)

	hitsDesc = prometheus.NewDesc(
		"tenantd_tenantcache_hits_total",
		"Number of lookups answered from a fresh entry",
		nil, nil)

	missesDesc = prometheus.NewDesc(
		"tenantd_tenantcache_misses_total",
		"Number of lookups that found no fresh entry",
		nil, nil)

	reauthsDesc = prometheus.NewDesc(
		"tenantd_tenantcache_reauthorizations_total",
		"Number of calls made to the authorizer",
		nil, nil)

	reauthErrsDesc = prometheus.NewDesc(
		"tenantd_tenantcache_reauthorization_errors_total",
		"Number of authorizer calls that failed",
		nil, nil)

	staleDesc = prometheus.NewDesc(
		"tenantd_tenantcache_stale_served_total",
		"Number of expired authorizations served while the authorizer was failing",
		nil, nil)

	scavengedDesc = prometheus.NewDesc(
		"tenantd_tenantcache_scavenged_total",
		"Number of entries removed by the scavenger",
		nil, nil)
)

// Describe returns all descriptions of the collector.
func (c *SimpleCache) Describe(ch chan<- *prometheus.Desc) {
	ch <- entriesDesc
	ch <- hitsDesc
	ch <- missesDesc
	ch <- reauthsDesc
	ch <- reauthErrsDesc
	ch <- staleDesc
	ch <- scavengedDesc
}

// Collect returns the current state of all metrics of the collector.
func (c *SimpleCache) Collect(ch chan<- prometheus.Metric) {
	ch <- prometheus.MustNewConstMetric(entriesDesc, prometheus.GaugeValue, float64(c.Len()))
	ch <- counter(hitsDesc, &c.hits)
	ch <- counter(missesDesc, &c.misses)
	ch <- counter(reauthsDesc, &c.reauths)
	ch <- counter(reauthErrsDesc, &c.reauthErrs)
	ch <- counter(staleDesc, &c.staleServed)
	ch <- counter(scavengedDesc, &c.scavenged)
}

func counter(d *prometheus.Desc, v *uint64) prometheus.Metric {
	return prometheus.MustNewConstMetric(d, prometheus.CounterValue, float64(atomic.LoadUint64(v)))
}
