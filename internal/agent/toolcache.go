package agent

import (
	"crypto/sha256"
	"fmt"
	"strings"
	"sync"
	"time"

	"github.com/swarmaid/swarmaid/internal/tools"
)

// ToolCache provides TTL-based caching of tool results keyed by tool and
// query. Agents sharing a cache reuse a lookup when they are asked the same
// question within the TTL.
type ToolCache struct {
	mu      sync.RWMutex
	entries map[string]*cacheEntry
	ttl     time.Duration
	now     func() time.Time
}

type cacheEntry struct {
	result    *tools.Result
	expiresAt time.Time
}

// DefaultToolCacheTTL is the default cache lifetime for tool results.
const DefaultToolCacheTTL = 5 * time.Minute

// NewToolCache creates a cache with the given TTL.
func NewToolCache(ttl time.Duration) *ToolCache {
	if ttl <= 0 {
		ttl = DefaultToolCacheTTL
	}
	return &ToolCache{
		entries: make(map[string]*cacheEntry),
		ttl:     ttl,
		now:     time.Now,
	}
}

// Get returns a cached result if available and not expired.
func (c *ToolCache) Get(toolName, query string) (*tools.Result, bool) {
	key := cacheKey(toolName, query)
	c.mu.RLock()
	entry, ok := c.entries[key]
	c.mu.RUnlock()
	if !ok || c.now().After(entry.expiresAt) {
		return nil, false
	}
	return entry.result, true
}

// Set stores a tool result and drops expired entries.
func (c *ToolCache) Set(toolName, query string, res *tools.Result) {
	key := cacheKey(toolName, query)
	now := c.now()
	c.mu.Lock()
	defer c.mu.Unlock()
	for k, e := range c.entries {
		if now.After(e.expiresAt) {
			delete(c.entries, k)
		}
	}
	c.entries[key] = &cacheEntry{result: res, expiresAt: now.Add(c.ttl)}
}

// Len returns the number of stored entries, expired or not.
func (c *ToolCache) Len() int {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return len(c.entries)
}

func cacheKey(toolName, query string) string {
	h := sha256.Sum256([]byte(toolName + "|" + strings.TrimSpace(query)))
	return fmt.Sprintf("%x", h[:16])
}
