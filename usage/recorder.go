package usage

import (
	"sort"
	"sync"

	"github.com/benbjohnson/clock"
	"github.com/percussion/tenantd"
)

// Recorder counts requests per tenant in memory until they are drained.
type Recorder struct {
	mu      sync.Mutex
	pending map[string]*tenantd.Usage
	clock   clock.Clock
}

// NewRecorder returns an empty Recorder.
func NewRecorder(clk clock.Clock) *Recorder {
	return &Recorder{
		pending: make(map[string]*tenantd.Usage),
		clock:   clk,
	}
}

// Record counts one request for tenantID.
func (r *Recorder) Record(tenantID string, allowed bool) {
	now := r.clock.Now().UTC()

	r.mu.Lock()
	defer r.mu.Unlock()

	u, ok := r.pending[tenantID]
	if !ok {
		u = &tenantd.Usage{TenantID: tenantID, FirstSeenAt: now}
		r.pending[tenantID] = u
	}
	if allowed {
		u.Allowed++
	} else {
		u.Denied++
	}
	u.LastSeenAt = now
}

// Drain returns the pending counts sorted by tenant id and resets them.
func (r *Recorder) Drain() []*tenantd.Usage {
	r.mu.Lock()
	pending := r.pending
	r.pending = make(map[string]*tenantd.Usage)
	r.mu.Unlock()

	return sortedUsages(pending)
}

// Restore folds counts that could not be persisted back into the pending set.
func (r *Recorder) Restore(us []*tenantd.Usage) {
	r.mu.Lock()
	defer r.mu.Unlock()

	for _, u := range us {
		if cur, ok := r.pending[u.TenantID]; ok {
			cur.Add(*u)
			continue
		}
		c := *u
		r.pending[u.TenantID] = &c
	}
}

// Pending returns a copy of the pending counts for tenantID.
func (r *Recorder) Pending(tenantID string) (tenantd.Usage, bool) {
	r.mu.Lock()
	defer r.mu.Unlock()

	u, ok := r.pending[tenantID]
	if !ok {
		return tenantd.Usage{}, false
	}
	return *u, true
}

// Snapshot returns copies of every pending count sorted by tenant id.
func (r *Recorder) Snapshot() []*tenantd.Usage {
	r.mu.Lock()
	defer r.mu.Unlock()

	cp := make(map[string]*tenantd.Usage, len(r.pending))
	for id, u := range r.pending {
		c := *u
		cp[id] = &c
	}
	return sortedUsages(cp)
}

func sortedUsages(m map[string]*tenantd.Usage) []*tenantd.Usage {
	out := make([]*tenantd.Usage, 0, len(m))
	for _, u := range m {
		out = append(out, u)
	}
	sort.Slice(out, func(i, j int) bool {
		return out[i].TenantID < out[j].TenantID
	})
	return out
}
