package resolve

import (
	"sort"
	"sync"
)

// Key addresses one memoized resolution.
type Key struct {
	Path   string
	Symbol string
}

type entry struct {
	origin Origin
	deps   []string
}

// Cache memoizes resolution results per (file, symbol). It also keeps a
// reverse index from file paths to the entries that depended on them, so
// editing one file invalidates exactly the results it fed into. Safe for
// concurrent use; the first writer of a key wins.
type Cache struct {
	mu      sync.RWMutex
	entries map[Key]entry
	byDep   map[string]map[Key]struct{}
}

func NewCache() *Cache {
	return &Cache{
		entries: make(map[Key]entry),
		byDep:   make(map[string]map[Key]struct{}),
	}
}

// Get returns the memoized origin for k
func (c *Cache) Get(k Key) (Origin, bool) {
	c.mu.RLock()
	defer c.mu.RUnlock()
	e, ok := c.entries[k]
	return e.origin, ok
}

// Put stores the origin for k along with the files the resolution
// touched. A key already present is left untouched.
func (c *Cache) Put(k Key, o Origin, deps []string) {
	c.mu.Lock()
	defer c.mu.Unlock()
	if _, exists := c.entries[k]; exists {
		return
	}
	c.entries[k] = entry{origin: o, deps: deps}
	c.index(k, k.Path)
	for _, d := range deps {
		c.index(k, d)
	}
}

func (c *Cache) index(k Key, path string) {
	keys, ok := c.byDep[path]
	if !ok {
		keys = make(map[Key]struct{})
		c.byDep[path] = keys
	}
	keys[k] = struct{}{}
}

// ClearFile drops every entry keyed by path or derived from it
func (c *Cache) ClearFile(path string) {
	c.mu.Lock()
	defer c.mu.Unlock()
	keys, ok := c.byDep[path]
	if !ok {
		return
	}
	delete(c.byDep, path)
	for k := range keys {
		e, ok := c.entries[k]
		if !ok {
			continue
		}
		delete(c.entries, k)
		// unhook the entry from its other dependency buckets
		for _, d := range e.deps {
			if d == path {
				continue
			}
			if bucket, ok := c.byDep[d]; ok {
				delete(bucket, k)
				if len(bucket) == 0 {
					delete(c.byDep, d)
				}
			}
		}
		if k.Path != path {
			if bucket, ok := c.byDep[k.Path]; ok {
				delete(bucket, k)
				if len(bucket) == 0 {
					delete(c.byDep, k.Path)
				}
			}
		}
	}
}

// FileDeps returns the distinct files that memoized resolutions rooted
// in path depended on, sorted. Only what is currently cached counts, so
// call it after the file has been through the resolver.
func (c *Cache) FileDeps(path string) []string {
	c.mu.RLock()
	defer c.mu.RUnlock()
	seen := make(map[string]bool)
	var deps []string
	for k := range c.byDep[path] {
		if k.Path != path {
			continue
		}
		for _, d := range c.entries[k].deps {
			if !seen[d] {
				seen[d] = true
				deps = append(deps, d)
			}
		}
	}
	sort.Strings(deps)
	return deps
}

// ClearAll drops everything
func (c *Cache) ClearAll() {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.entries = make(map[Key]entry)
	c.byDep = make(map[string]map[Key]struct{})
}

// Len returns the number of memoized entries
func (c *Cache) Len() int {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return len(c.entries)
}
