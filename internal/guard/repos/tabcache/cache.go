// Package tabcache remembers the latest decision per browser tab for badge
// and popup display.
package tabcache

import (
	"sync/atomic"

	lru "github.com/hashicorp/golang-lru/v2"

	"github.com/haukened/navguard/internal/guard/domain"
)

// Cache stores the latest Decision per tab.
type Cache interface {
	Get(tabID int) (domain.Decision, bool)
	Put(tabID int, d domain.Decision)
	Remove(tabID int)
	Len() int
	Purge()
	Stats() (hits, misses, evictions uint64)
}

// decisionCache is an LRU-backed Cache that counts hits, misses and
// evictions. Tabs that go quiet age out once the bound is reached.
type decisionCache struct {
	lru       *lru.Cache[int, domain.Decision]
	hits      uint64
	misses    uint64
	evictions uint64
}

// disabledCache is a no-op Cache used when size <= 0.
type disabledCache struct{}

// New creates a Cache with the given capacity. If size <= 0 a disabled cache
// is returned that always misses.
func New(size int) (Cache, error) {
	if size <= 0 {
		return &disabledCache{}, nil
	}

	var dc decisionCache
	cache, err := lru.NewWithEvict(size, func(_ int, _ domain.Decision) {
		atomic.AddUint64(&dc.evictions, 1)
	})
	if err != nil {
		return nil, err
	}
	dc.lru = cache
	return &dc, nil
}

func (c *decisionCache) Get(tabID int) (domain.Decision, bool) {
	if d, ok := c.lru.Get(tabID); ok {
		atomic.AddUint64(&c.hits, 1)
		return d, true
	}
	atomic.AddUint64(&c.misses, 1)
	return domain.Decision{}, false
}

// Put replaces the tab's decision.
func (c *decisionCache) Put(tabID int, d domain.Decision) { c.lru.Add(tabID, d) }

// Remove forgets a closed tab. It counts as an eviction.
func (c *decisionCache) Remove(tabID int) { c.lru.Remove(tabID) }

func (c *decisionCache) Len() int { return c.lru.Len() }

func (c *decisionCache) Purge() { c.lru.Purge() }

func (c *decisionCache) Stats() (hits, misses, evictions uint64) {
	return atomic.LoadUint64(&c.hits), atomic.LoadUint64(&c.misses), atomic.LoadUint64(&c.evictions)
}

func (d *disabledCache) Get(int) (domain.Decision, bool) { return domain.Decision{}, false }

func (d *disabledCache) Put(int, domain.Decision) {}

func (d *disabledCache) Remove(int) {}

func (d *disabledCache) Len() int { return 0 }

func (d *disabledCache) Purge() {}

func (d *disabledCache) Stats() (uint64, uint64, uint64) { return 0, 0, 0 }

var _ Cache = (*decisionCache)(nil)
var _ Cache = (*disabledCache)(nil)
