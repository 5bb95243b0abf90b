// Package metacache memoizes parsed session-file headers keyed by
// (mtime, size), so an unchanged file never needs to be re-read and
// re-parsed on the next scan.
package metacache

import (
	"sort"
	"sync"
	"time"

	"github.com/brianly1003/cdev/internal/provider"
)

// DefaultMaxEntries is the soft capacity beyond which the cache evicts the
// least-recently-accessed entries, mirroring the forge claudecode
// adapter's sessionMetaCacheEntry eviction (metaCacheMaxEntries = 2048).
const DefaultMaxEntries = 2048

// entry is the cached result of parsing one file at a specific
// (mtimeMs, size). Meta is nil when the file was scanned but found
// unusable (no cwd) — a cached "no" is as valid as a cached "yes".
type entry struct {
	mtimeMs    int64
	size       int64
	meta       *provider.Meta
	lastAccess time.Time
}

// Cache is a (mtime,size)-keyed memoizer of parsed session headers; the
// indexer keeps one Cache shared by every provider. Safe for concurrent use.
type Cache struct {
	mu       sync.Mutex
	entries  map[string]entry
	maxEntries int
}

// New creates an empty Cache with the default soft capacity.
func New() *Cache {
	return &Cache{entries: make(map[string]entry), maxEntries: DefaultMaxEntries}
}

// Lookup returns the cached metadata for path if an entry exists whose
// (mtimeMs, size) matches exactly. ok is true on a cache hit even when the
// cached meta is nil (a memoized "unusable" result).
func (c *Cache) Lookup(path string, mtimeMs, size int64) (meta *provider.Meta, ok bool) {
	c.mu.Lock()
	defer c.mu.Unlock()

	e, exists := c.entries[path]
	if !exists || e.mtimeMs != mtimeMs || e.size != size {
		return nil, false
	}
	e.lastAccess = time.Now()
	c.entries[path] = e
	return e.meta, true
}

// Store records the parse result for path at the given (mtimeMs, size),
// overwriting any prior entry. meta may be nil.
func (c *Cache) Store(path string, mtimeMs, size int64, meta *provider.Meta) {
	c.mu.Lock()
	defer c.mu.Unlock()

	c.entries[path] = entry{
		mtimeMs:    mtimeMs,
		size:       size,
		meta:       meta,
		lastAccess: time.Now(),
	}
	c.enforceLimitLocked()
}

// Sweep evicts every entry whose path is not present in seen, matching the
// full-scan eviction rule: entries for files not visited in the current
// pass are dropped.
func (c *Cache) Sweep(seen map[string]struct{}) {
	c.mu.Lock()
	defer c.mu.Unlock()

	for path := range c.entries {
		if _, ok := seen[path]; !ok {
			delete(c.entries, path)
		}
	}
}

// Invalidate drops the cached entry for path unconditionally, used when the
// indexer knows a file's identity changed (e.g. embedded sessionId
// migrated) and a stale hit must not short-circuit the next parse.
func (c *Cache) Invalidate(path string) {
	c.mu.Lock()
	defer c.mu.Unlock()
	delete(c.entries, path)
}

// Len reports the current entry count, mainly for tests.
func (c *Cache) Len() int {
	c.mu.Lock()
	defer c.mu.Unlock()
	return len(c.entries)
}

func (c *Cache) enforceLimitLocked() {
	if c.maxEntries <= 0 || len(c.entries) <= c.maxEntries {
		return
	}

	type keyed struct {
		path       string
		lastAccess time.Time
	}
	all := make([]keyed, 0, len(c.entries))
	for path, e := range c.entries {
		all = append(all, keyed{path, e.lastAccess})
	}
	sort.Slice(all, func(i, j int) bool { return all[i].lastAccess.Before(all[j].lastAccess) })

	excess := len(all) - c.maxEntries
	for i := 0; i < excess; i++ {
		delete(c.entries, all[i].path)
	}
}
