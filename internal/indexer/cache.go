package indexer

import (
	"sync"

	lru "github.com/hashicorp/golang-lru/v2"

	"github.com/LeJamon/goMarble/internal/storage/relationaldb"
	"github.com/LeJamon/goMarble/internal/types"
)

type historyKey struct {
	contract types.Address
	tokenID  uint64
}

// Cache keeps the settlement history of recently queried tokens.
type Cache struct {
	mu      sync.Mutex
	history *lru.Cache[historyKey, []relationaldb.Settlement]

	hits   uint64
	misses uint64
}

// CacheStats holds cache performance metrics.
type CacheStats struct {
	Hits    uint64  `json:"hits"`
	Misses  uint64  `json:"misses"`
	HitRate float64 `json:"hit_rate"`
	Len     int     `json:"len"`
}

// NewCache creates a cache holding up to size token histories.
func NewCache(size int) (*Cache, error) {
	if size <= 0 {
		size = 1024
	}
	history, err := lru.New[historyKey, []relationaldb.Settlement](size)
	if err != nil {
		return nil, err
	}
	return &Cache{history: history}, nil
}

// Get returns the cached history of a token.
func (c *Cache) Get(contract types.Address, tokenID uint64) ([]relationaldb.Settlement, bool) {
	c.mu.Lock()
	defer c.mu.Unlock()

	h, ok := c.history.Get(historyKey{contract, tokenID})
	if ok {
		c.hits++
		return h, true
	}
	c.misses++
	return nil, false
}

// Put stores the history of a token.
func (c *Cache) Put(contract types.Address, tokenID uint64, h []relationaldb.Settlement) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.history.Add(historyKey{contract, tokenID}, h)
}

// Invalidate drops the history of a token.
func (c *Cache) Invalidate(contract types.Address, tokenID uint64) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.history.Remove(historyKey{contract, tokenID})
}

// Purge empties the cache.
func (c *Cache) Purge() {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.history.Purge()
}

// Stats returns cache statistics.
func (c *Cache) Stats() CacheStats {
	c.mu.Lock()
	defer c.mu.Unlock()

	total := c.hits + c.misses
	hitRate := float64(0)
	if total > 0 {
		hitRate = float64(c.hits) / float64(total)
	}
	return CacheStats{Hits: c.hits, Misses: c.misses, HitRate: hitRate, Len: c.history.Len()}
}
