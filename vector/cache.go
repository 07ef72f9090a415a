package vector

import (
	"sync"

	"github.com/viant/sqlite-kb/index"
)

type cacheKey struct {
	collection string
	kind       IndexKind
}

// indexCache holds built indexes for every Store opened by the same Admin,
// keyed by collection and requested index kind.
type indexCache struct {
	mu      sync.Mutex
	entries map[cacheKey]*cacheEntry
}

func newIndexCache() *indexCache {
	return &indexCache{entries: make(map[cacheKey]*cacheEntry)}
}

func (c *indexCache) entry(collection string, kind IndexKind) *cacheEntry {
	key := cacheKey{collection: collection, kind: kind}
	c.mu.Lock()
	defer c.mu.Unlock()
	e := c.entries[key]
	if e == nil {
		e = newCacheEntry()
		c.entries[key] = e
	}
	return e
}

// invalidate drops cached indexes of collection and returns how many were cleared.
func (c *indexCache) invalidate(collection string) int {
	c.mu.Lock()
	defer c.mu.Unlock()
	count := 0
	for key, e := range c.entries {
		if key.collection == collection {
			e.invalidate()
			count++
		}
	}
	return count
}

// cacheEntry allows a single build at a time. An index is tagged with the
// collection generation it was built from and is served only to readers of
// that generation, so writes made through another Admin or process are
// picked up. version is bumped by invalidate so a build that raced with a
// local write is never cached.
type cacheEntry struct {
	mu         sync.Mutex
	cond       *sync.Cond
	idx        index.Index
	generation int64
	building   bool
	version    uint64
}

func newCacheEntry() *cacheEntry {
	e := &cacheEntry{}
	e.cond = sync.NewCond(&e.mu)
	return e
}

// get returns the cached index when it was built from generation.
func (e *cacheEntry) get(generation int64) index.Index {
	e.mu.Lock()
	defer e.mu.Unlock()
	return e.fresh(generation)
}

func (e *cacheEntry) fresh(generation int64) index.Index {
	if e.idx == nil || e.generation != generation {
		return nil
	}
	return e.idx
}

// startBuild reports whether the caller now owns the build, together with the
// version the result must be tagged with.
func (e *cacheEntry) startBuild(generation int64) (uint64, bool) {
	e.mu.Lock()
	defer e.mu.Unlock()
	if e.building || e.fresh(generation) != nil {
		return 0, false
	}
	e.building = true
	return e.version, true
}

func (e *cacheEntry) waitForBuild() {
	e.mu.Lock()
	for e.building {
		e.cond.Wait()
	}
	e.mu.Unlock()
}

func (e *cacheEntry) finishBuild(idx index.Index, version uint64, generation int64) {
	e.mu.Lock()
	if idx != nil && version == e.version {
		e.idx = idx
		e.generation = generation
	}
	e.building = false
	e.cond.Broadcast()
	e.mu.Unlock()
}

func (e *cacheEntry) invalidate() {
	e.mu.Lock()
	e.idx = nil
	e.version++
	e.mu.Unlock()
}
