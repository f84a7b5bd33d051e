// Package threatcache holds classifier verdicts keyed by exact URL with
// lazy TTL expiry.
package threatcache

import (
	"sync"
	"sync/atomic"
	"time"

	lru "github.com/hashicorp/golang-lru/v2"

	"github.com/haukened/navguard/internal/guard/common/clock"
	"github.com/haukened/navguard/internal/guard/common/metrics"
	"github.com/haukened/navguard/internal/guard/domain"
)

// TTLFunc returns the current expiry. It is consulted on every lookup so a
// settings change applies to entries already cached.
type TTLFunc func() time.Duration

// Options configures a Cache.
type Options struct {
	Size    int
	TTL     TTLFunc
	Clock   clock.Clock
	Metrics *metrics.Metrics
}

// Cache is an LRU-bounded, TTL-aware verdict cache. Stale entries are
// dropped on lookup; there is no background sweeper.
type Cache struct {
	lru     *lru.Cache[string, domain.ThreatEntry]
	ttl     TTLFunc
	clock   clock.Clock
	metrics *metrics.Metrics

	// mu orders Store against stale-entry removal; reads stay lock-free.
	mu sync.Mutex

	hits    uint64
	misses  uint64
	expired uint64
}

// New returns a Cache holding at most opts.Size entries.
func New(opts Options) (*Cache, error) {
	backing, err := lru.New[string, domain.ThreatEntry](opts.Size)
	if err != nil {
		return nil, err
	}
	if opts.Clock == nil {
		opts.Clock = clock.RealClock{}
	}
	if opts.TTL == nil {
		opts.TTL = func() time.Duration { return domain.DefaultSettings().CacheExpiry() }
	}
	return &Cache{lru: backing, ttl: opts.TTL, clock: opts.Clock, metrics: opts.Metrics}, nil
}

// Lookup returns the entry for url if present and fresh. A stale entry is
// removed and reported absent.
func (c *Cache) Lookup(url string) (domain.ThreatEntry, bool) {
	e, ok := c.lru.Get(url)
	if !ok {
		atomic.AddUint64(&c.misses, 1)
		c.metrics.CacheLookup("miss")
		return domain.ThreatEntry{}, false
	}
	if e.Stale(c.clock.Now(), c.ttl()) {
		c.removeIfUnchanged(url, e)
		atomic.AddUint64(&c.expired, 1)
		c.metrics.CacheLookup("expired")
		return domain.ThreatEntry{}, false
	}
	atomic.AddUint64(&c.hits, 1)
	c.metrics.CacheLookup("hit")
	return e, true
}

// Store overwrites the entry for url, stamped with the current time.
func (c *Cache) Store(url string, a domain.Assessment) {
	e := domain.ThreatEntry{URL: url, Assessment: a, CapturedAt: c.clock.Now()}
	c.mu.Lock()
	defer c.mu.Unlock()
	c.lru.Add(url, e)
}

// removeIfUnchanged drops url only while it still holds stale. A verdict
// stored after stale was read survives.
func (c *Cache) removeIfUnchanged(url string, stale domain.ThreatEntry) {
	c.mu.Lock()
	defer c.mu.Unlock()
	cur, ok := c.lru.Peek(url)
	if ok && cur.CapturedAt.Equal(stale.CapturedAt) && cur.Assessment == stale.Assessment {
		c.lru.Remove(url)
	}
}

// Purge drops every entry.
func (c *Cache) Purge() { c.lru.Purge() }

// Len returns the number of entries, including stale ones not yet looked up.
func (c *Cache) Len() int { return c.lru.Len() }

// Stats returns cumulative hit, miss and expiration counters.
func (c *Cache) Stats() (hits, misses, expired uint64) {
	return atomic.LoadUint64(&c.hits), atomic.LoadUint64(&c.misses), atomic.LoadUint64(&c.expired)
}
