package tracker

import (
	"sync"
	"time"

	"github.com/banky/hyperliquid-exchange/types"
)

// Registry remembers the exchange order id assigned to each resolved cloid
// for ttl after resolution.
type Registry struct {
	mu      sync.Mutex
	entries map[types.Cloid]registryEntry
	ttl     time.Duration
	now     func() time.Time
}

type registryEntry struct {
	oid        int64
	resolvedAt time.Time
}

func NewRegistry(ttl time.Duration) *Registry {
	return &Registry{
		entries: make(map[types.Cloid]registryEntry),
		ttl:     ttl,
		now:     time.Now,
	}
}

func (r *Registry) Put(cloid types.Cloid, oid int64) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.entries[cloid] = registryEntry{oid: oid, resolvedAt: r.now()}
}

// Lookup returns the order id cloid resolved to, unless it has expired.
func (r *Registry) Lookup(cloid types.Cloid) (int64, bool) {
	r.mu.Lock()
	defer r.mu.Unlock()

	e, ok := r.entries[cloid]
	if !ok {
		return 0, false
	}
	if r.expired(e) {
		delete(r.entries, cloid)
		return 0, false
	}
	return e.oid, true
}

// Prune drops expired entries and reports how many were removed.
func (r *Registry) Prune() int {
	r.mu.Lock()
	defer r.mu.Unlock()

	n := 0
	for cloid, e := range r.entries {
		if r.expired(e) {
			delete(r.entries, cloid)
			n++
		}
	}
	return n
}

func (r *Registry) Len() int {
	r.mu.Lock()
	defer r.mu.Unlock()
	return len(r.entries)
}

// A zero ttl keeps entries forever.
func (r *Registry) expired(e registryEntry) bool {
	return r.ttl > 0 && r.now().Sub(e.resolvedAt) > r.ttl
}
