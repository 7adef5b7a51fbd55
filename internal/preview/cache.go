package preview

import (
	"fmt"
	"sync"
	"time"

	"uipreview/internal/render"
	"uipreview/internal/shared/observability"
	"uipreview/internal/shared/util"
)

type cacheEntry struct {
	result     *render.Result
	insertedAt time.Time
}

// renderCache is a TTL plus size-bounded result cache. Eviction removes
// the single oldest insertion when a put would exceed the bound; only
// insertion time is tracked, reads do not refresh entries.
type renderCache struct {
	mu         sync.Mutex
	ttl        time.Duration
	maxEntries int
	entries    map[string]*cacheEntry
	now        func() time.Time
}

func newRenderCache(ttl time.Duration, maxEntries int) *renderCache {
	return &renderCache{
		ttl:        ttl,
		maxEntries: maxEntries,
		entries:    make(map[string]*cacheEntry),
		now:        time.Now,
	}
}

func (c *renderCache) get(key string) (*render.Result, bool) {
	c.mu.Lock()
	defer c.mu.Unlock()
	e, ok := c.entries[key]
	if !ok {
		observability.CacheMissesTotal.Inc()
		return nil, false
	}
	if c.now().Sub(e.insertedAt) > c.ttl {
		delete(c.entries, key)
		observability.CacheEntries.Set(float64(len(c.entries)))
		observability.CacheMissesTotal.Inc()
		return nil, false
	}
	observability.CacheHitsTotal.Inc()
	return e.result, true
}

func (c *renderCache) put(key string, res *render.Result) {
	c.mu.Lock()
	defer c.mu.Unlock()
	if _, exists := c.entries[key]; !exists && len(c.entries) >= c.maxEntries {
		c.evictOldestLocked()
	}
	c.entries[key] = &cacheEntry{result: res, insertedAt: c.now()}
	observability.CacheEntries.Set(float64(len(c.entries)))
}

func (c *renderCache) evictOldestLocked() {
	var oldestKey string
	var oldest time.Time
	for k, e := range c.entries {
		if oldestKey == "" || e.insertedAt.Before(oldest) {
			oldestKey = k
			oldest = e.insertedAt
		}
	}
	if oldestKey != "" {
		delete(c.entries, oldestKey)
	}
}

func (c *renderCache) clear() {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.entries = make(map[string]*cacheEntry)
	observability.CacheEntries.Set(0)
}

func (c *renderCache) len() int {
	c.mu.Lock()
	defer c.mu.Unlock()
	return len(c.entries)
}

// cacheKey folds everything that affects renderer output into the key.
func cacheKey(renderer render.RendererType, text string, opts render.Options) string {
	return util.Key(
		string(renderer),
		text,
		fmt.Sprintf("%dx%d@%g", opts.Width, opts.Height, opts.Scale),
		string(opts.Theme),
		opts.ProjectPath,
	)
}
