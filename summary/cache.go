package summary

import (
	"sync"

	"github.com/lucasjlepore/fit-intervals/metric"
)

// CacheKey identifies one formatted metric of one interval. Span changes
// whenever the interval is edited and Zones whenever the thresholds do, so
// stale entries are never read.
type CacheKey struct {
	IntervalID string
	Span       string
	Symbol     metric.Symbol
	Units      metric.UnitSystem
	Language   string
	Zones      string
}

// Cache stores formatted per-interval results.
type Cache interface {
	Get(key CacheKey) (metric.Result, bool, error)
	Put(key CacheKey, res metric.Result) error
	Reset() error
}

// MemoryCache is an in-process Cache.
type MemoryCache struct {
	mu      sync.RWMutex
	entries map[CacheKey]metric.Result
}

func NewMemoryCache() *MemoryCache {
	return &MemoryCache{entries: make(map[CacheKey]metric.Result)}
}

func (c *MemoryCache) Get(key CacheKey) (metric.Result, bool, error) {
	c.mu.RLock()
	defer c.mu.RUnlock()
	res, ok := c.entries[key]
	return res, ok, nil
}

func (c *MemoryCache) Put(key CacheKey, res metric.Result) error {
	c.mu.Lock()
	c.entries[key] = res
	c.mu.Unlock()
	return nil
}

func (c *MemoryCache) Reset() error {
	c.mu.Lock()
	c.entries = make(map[CacheKey]metric.Result)
	c.mu.Unlock()
	return nil
}

func (c *MemoryCache) Len() int {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return len(c.entries)
}
