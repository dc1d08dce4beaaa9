package cache

import (
	"fmt"
	"slices"
	"sync"
	"time"

	"github.com/hashicorp/golang-lru/v2/simplelru"
	"github.com/sha1n/newsdex/internal/domain"
	"github.com/sha1n/newsdex/internal/metrics"
)

const (
	// DefaultTTL is how long a provider result stays fresh.
	DefaultTTL = 10 * time.Minute

	// DefaultMaxEntries bounds the number of distinct queries kept.
	DefaultMaxEntries = 1024
)

type entry struct {
	articles []domain.Document
	cachedAt time.Time
}

// QueryCache holds external provider results keyed by the raw query string.
// Expiry is checked lazily on lookup; nothing sweeps the cache in the background.
// Capacity is bounded by least-recently-used eviction.
type QueryCache struct {
	ttl     time.Duration
	now     func() time.Time
	entries *simplelru.LRU[string, entry]
	mu      sync.Mutex
}

// NewQueryCache creates a cache with the given TTL and capacity.
func NewQueryCache(ttl time.Duration, maxEntries int) (*QueryCache, error) {
	return NewQueryCacheWithClock(ttl, maxEntries, time.Now)
}

// NewQueryCacheWithClock creates a cache that reads the current time from now (for testing).
func NewQueryCacheWithClock(ttl time.Duration, maxEntries int, now func() time.Time) (*QueryCache, error) {
	if ttl <= 0 {
		return nil, fmt.Errorf("ttl must be positive, got %s", ttl)
	}
	entries, err := simplelru.NewLRU[string, entry](maxEntries, nil)
	if err != nil {
		return nil, fmt.Errorf("failed to create lru: %w", err)
	}
	return &QueryCache{
		ttl:     ttl,
		now:     now,
		entries: entries,
	}, nil
}

// Get returns the cached articles for query. An entry older than the TTL is treated as
// absent and removed.
func (c *QueryCache) Get(query string) ([]domain.Document, bool) {
	c.mu.Lock()
	defer c.mu.Unlock()

	e, ok := c.entries.Get(query)
	if !ok {
		metrics.RecordCacheLookup(metrics.OutcomeMiss)
		return nil, false
	}

	if c.now().Sub(e.cachedAt) > c.ttl {
		c.entries.Remove(query)
		metrics.RecordCacheLookup(metrics.OutcomeExpired)
		return nil, false
	}

	metrics.RecordCacheLookup(metrics.OutcomeHit)
	return slices.Clone(e.articles), true
}

// Put stores articles for query, replacing any existing entry with a freshly timestamped one.
func (c *QueryCache) Put(query string, articles []domain.Document) {
	c.mu.Lock()
	defer c.mu.Unlock()

	c.entries.Add(query, entry{
		articles: slices.Clone(articles),
		cachedAt: c.now(),
	})
}

// Len returns the number of entries held, including expired ones not yet looked up.
func (c *QueryCache) Len() int {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.entries.Len()
}
