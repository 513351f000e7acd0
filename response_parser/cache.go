package response_parser

import (
	"sync"
	"time"

	"github.com/fluidflow/fluidflow/response_parser/contracts"
	"github.com/fluidflow/fluidflow/response_parser/models"
	"github.com/zeebo/xxh3"
)

// maxCacheEntries bounds the memo table. A watch loop hands in a longer
// superstring on every poll, so stale prefixes go cold quickly and wholesale
// eviction is cheaper than tracking recency.
const maxCacheEntries = 64

// CacheStats tracks cache performance metrics
type CacheStats struct {
	TotalRequests int64
	CacheHits     int64
	CacheMisses   int64
	LastResetTime time.Time
	mutex         sync.RWMutex
}

// ParseCache memoizes ParseResponse results keyed by an xxh3 hash of the
// input text. The parser is a pure function of its input, so identical text
// always maps to the same result and memoization cannot change behavior.
type ParseCache struct {
	parser  contracts.IResponseParser
	entries map[uint64]*models.MarkerResponse
	mutex   sync.RWMutex
	stats   *CacheStats
}

// NewParseCache creates a parse cache around an existing parser.
func NewParseCache(parser contracts.IResponseParser) *ParseCache {
	return &ParseCache{
		parser:  parser,
		entries: make(map[uint64]*models.MarkerResponse),
		stats: &CacheStats{
			LastResetTime: time.Now(),
		},
	}
}

// ParseResponse returns the memoized result for text, parsing on a miss.
// nil results are not cached: nil also means "wait for more stream", and a
// pinned nil would be wrong once callers retry with the same prefix.
func (c *ParseCache) ParseResponse(text string) *models.MarkerResponse {
	key := xxh3.HashString(text)

	c.mutex.RLock()
	cached, found := c.entries[key]
	c.mutex.RUnlock()

	if found {
		c.recordHit()
		return cached
	}
	c.recordMiss()

	response := c.parser.ParseResponse(text)
	if response == nil {
		return nil
	}

	c.mutex.Lock()
	if len(c.entries) >= maxCacheEntries {
		c.entries = make(map[uint64]*models.MarkerResponse)
	}
	c.entries[key] = response
	c.mutex.Unlock()

	return response
}

// Reset clears all cached entries and statistics.
func (c *ParseCache) Reset() {
	c.mutex.Lock()
	c.entries = make(map[uint64]*models.MarkerResponse)
	c.mutex.Unlock()

	c.stats.mutex.Lock()
	defer c.stats.mutex.Unlock()
	c.stats.TotalRequests = 0
	c.stats.CacheHits = 0
	c.stats.CacheMisses = 0
	c.stats.LastResetTime = time.Now()
}

// recordHit increments cache hit counter
func (c *ParseCache) recordHit() {
	c.stats.mutex.Lock()
	defer c.stats.mutex.Unlock()
	c.stats.TotalRequests++
	c.stats.CacheHits++
}

// recordMiss increments cache miss counter
func (c *ParseCache) recordMiss() {
	c.stats.mutex.Lock()
	defer c.stats.mutex.Unlock()
	c.stats.TotalRequests++
	c.stats.CacheMisses++
}

// GetPerformanceStats returns cache performance statistics
func (c *ParseCache) GetPerformanceStats() map[string]interface{} {
	c.stats.mutex.RLock()
	defer c.stats.mutex.RUnlock()

	hitRate := 0.0
	if c.stats.TotalRequests > 0 {
		hitRate = float64(c.stats.CacheHits) / float64(c.stats.TotalRequests) * 100
	}

	c.mutex.RLock()
	cachedEntries := len(c.entries)
	c.mutex.RUnlock()

	return map[string]interface{}{
		"total_requests":   c.stats.TotalRequests,
		"cache_hits":       c.stats.CacheHits,
		"cache_misses":     c.stats.CacheMisses,
		"hit_rate_percent": hitRate,
		"cached_entries":   cachedEntries,
		"uptime_seconds":   time.Since(c.stats.LastResetTime).Seconds(),
	}
}
