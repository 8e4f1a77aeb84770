// Package cache persists compiled outputs between runs so builds only
// pay for modules whose inputs changed.
//
// Entries are validated by content, not by trust: each one records the
// source files that produced it and a digest of their bytes at store
// time, and a hit is only served while the digest still matches. An
// edit to a module or to any file it imports therefore invalidates
// every artifact built from it, with no watcher required. The watch
// loop can still purge eagerly through InvalidateDeps to reclaim space
// the moment a file changes.
package cache

import (
	"crypto/sha256"
	"encoding/hex"
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"sync"
	"time"

	"github.com/weftlabs/weft/internal/diag"
	"github.com/weftlabs/weft/internal/emit"
)

// indexVersion guards the on-disk layout. An index written by any other
// version is discarded wholesale and the cache starts cold.
const indexVersion = "weft/2"

// Artifact is one compiled output: the JavaScript text plus whatever
// the compiler produced alongside it. Diagnostics ride along so
// warnings replay on cache hits instead of silently disappearing.
type Artifact struct {
	JS        string            `json:"js"`
	SourceMap string            `json:"map,omitempty"`
	Stats     emit.Stats        `json:"stats"`
	Diags     []diag.Diagnostic `json:"diags,omitempty"`
}

// Entry is the index record for one artifact.
type Entry struct {
	Key      string    `json:"key"`
	Inputs   []string  `json:"inputs"`
	Digest   string    `json:"digest"`
	Size     int64     `json:"size"`
	Created  time.Time `json:"created"`
	LastUsed time.Time `json:"last_used"`
	Uses     int       `json:"uses"`
}

// Policy selects which entry to drop when the cache is over budget.
type Policy int

const (
	// EvictLRU drops the entry that has gone unread the longest
	EvictLRU Policy = iota
	// EvictLFU drops the entry with the fewest reads
	EvictLFU
	// EvictFIFO drops the oldest entry
	EvictFIFO
)

// prefer reports whether a should be evicted before b.
func (p Policy) prefer(a, b *Entry) bool {
	switch p {
	case EvictLFU:
		return a.Uses < b.Uses
	case EvictFIFO:
		return a.Created.Before(b.Created)
	default:
		return a.LastUsed.Before(b.LastUsed)
	}
}

// Config controls where the cache lives and how big it may grow.
type Config struct {
	Dir     string        // cache directory; empty selects DefaultConfig
	MaxSize int64         // byte budget for stored artifacts; <= 0 means unbounded
	MaxAge  time.Duration // entries older than this are dropped; <= 0 means never
	Policy  Policy
}

// DefaultConfig places the cache under the OS user cache directory.
func DefaultConfig() Config {
	dir, err := os.UserCacheDir()
	if err != nil {
		dir = os.TempDir()
	}
	return Config{
		Dir:     filepath.Join(dir, "weft"),
		MaxSize: 1 << 30,
		MaxAge:  7 * 24 * time.Hour,
		Policy:  EvictLRU,
	}
}

// Stats counts cache traffic for the current process plus the totals
// carried over from disk.
type Stats struct {
	Hits      int64 `json:"hits"`
	Misses    int64 `json:"misses"`
	Evictions int64 `json:"evictions"`
	Size      int64 `json:"size"`
	Entries   int   `json:"entries"`
}

type index struct {
	Version string            `json:"version"`
	Entries map[string]*Entry `json:"entries"`
}

// Cache is a disk-backed artifact store. Safe for concurrent use.
type Cache struct {
	mu     sync.Mutex
	cfg    Config
	dir    string
	idx    *index
	size   int64
	hits   int64
	misses int64
	evicts int64
	dirty  bool
}

// Open loads or creates a cache rooted at cfg.Dir. Entries past MaxAge
// are swept immediately so dead artifacts stop counting against the
// size budget.
func Open(cfg Config) (*Cache, error) {
	if cfg.Dir == "" {
		cfg = DefaultConfig()
	}
	if err := os.MkdirAll(filepath.Join(cfg.Dir, "objects"), 0o755); err != nil {
		return nil, fmt.Errorf("create cache directory: %w", err)
	}
	c := &Cache{
		cfg: cfg,
		dir: cfg.Dir,
		idx: &index{Version: indexVersion, Entries: make(map[string]*Entry)},
	}
	c.loadIndex()
	c.sweep()
	return c, nil
}

// Get returns the artifact stored under key if every input that
// produced it is unchanged on disk. A missing, expired, stale, or
// unreadable entry counts as a miss and is dropped.
func (c *Cache) Get(key string) (*Artifact, bool) {
	c.mu.Lock()
	defer c.mu.Unlock()

	e, ok := c.idx.Entries[key]
	if !ok {
		c.misses++
		return nil, false
	}
	if c.expired(e) || c.stale(e) {
		c.drop(key, e)
		c.misses++
		return nil, false
	}
	data, err := os.ReadFile(c.objectPath(key))
	if err != nil {
		c.drop(key, e)
		c.misses++
		return nil, false
	}
	var a Artifact
	if err := json.Unmarshal(data, &a); err != nil {
		c.drop(key, e)
		c.misses++
		return nil, false
	}

	e.LastUsed = time.Now()
	e.Uses++
	c.hits++
	c.dirty = true
	return &a, true
}

// Put stores an artifact under key. inputs must name every file whose
// content fed the artifact; their bytes are digested now so later Gets
// can tell whether the entry still applies.
func (c *Cache) Put(key string, a *Artifact, inputs []string) error {
	digest, err := digestFiles(inputs)
	if err != nil {
		return fmt.Errorf("digest inputs: %w", err)
	}
	data, err := json.Marshal(a)
	if err != nil {
		return err
	}

	c.mu.Lock()
	defer c.mu.Unlock()

	if old, ok := c.idx.Entries[key]; ok {
		c.drop(key, old)
	}
	c.evict(int64(len(data)))

	if err := os.WriteFile(c.objectPath(key), data, 0o644); err != nil {
		return fmt.Errorf("write cache object: %w", err)
	}
	now := time.Now()
	c.idx.Entries[key] = &Entry{
		Key:      key,
		Inputs:   inputs,
		Digest:   digest,
		Size:     int64(len(data)),
		Created:  now,
		LastUsed: now,
	}
	c.size += int64(len(data))
	return c.saveIndex()
}

// Delete removes one entry. Missing keys are a no-op.
func (c *Cache) Delete(key string) error {
	c.mu.Lock()
	defer c.mu.Unlock()
	e, ok := c.idx.Entries[key]
	if !ok {
		return nil
	}
	c.drop(key, e)
	return c.saveIndex()
}

// InvalidateDeps drops every entry whose inputs include path, or a file
// under path when it names a directory, and reports how many went. The
// dev server calls this on change events so rebuilds never serve stale
// imports.
func (c *Cache) InvalidateDeps(path string) int {
	c.mu.Lock()
	defer c.mu.Unlock()

	prefix := path + string(filepath.Separator)
	n := 0
	for key, e := range c.idx.Entries {
		for _, in := range e.Inputs {
			if in == path || strings.HasPrefix(in, prefix) {
				c.drop(key, e)
				n++
				break
			}
		}
	}
	if n > 0 {
		c.saveIndex()
	}
	return n
}

// Clear removes every entry and artifact.
func (c *Cache) Clear() error {
	c.mu.Lock()
	defer c.mu.Unlock()

	objects := filepath.Join(c.dir, "objects")
	if err := os.RemoveAll(objects); err != nil {
		return fmt.Errorf("clear cache objects: %w", err)
	}
	if err := os.MkdirAll(objects, 0o755); err != nil {
		return err
	}
	c.idx = &index{Version: indexVersion, Entries: make(map[string]*Entry)}
	c.size = 0
	return c.saveIndex()
}

// Stats reports traffic counters and current totals.
func (c *Cache) Stats() Stats {
	c.mu.Lock()
	defer c.mu.Unlock()
	return Stats{
		Hits:      c.hits,
		Misses:    c.misses,
		Evictions: c.evicts,
		Size:      c.size,
		Entries:   len(c.idx.Entries),
	}
}

// Close flushes access metadata accumulated since the last write. The
// cache must not be used afterwards.
func (c *Cache) Close() error {
	c.mu.Lock()
	defer c.mu.Unlock()
	if !c.dirty {
		return nil
	}
	return c.saveIndex()
}

// Key derives a cache key from the given parts. Build drivers include
// the compiler version and option fingerprint so artifacts never cross
// either boundary.
func Key(parts ...string) string {
	h := sha256.New()
	for _, p := range parts {
		h.Write([]byte(p))
		h.Write([]byte{0})
	}
	return hex.EncodeToString(h.Sum(nil))
}

func (c *Cache) objectPath(key string) string {
	return filepath.Join(c.dir, "objects", key+".json")
}

func (c *Cache) loadIndex() {
	data, err := os.ReadFile(filepath.Join(c.dir, "index.json"))
	if err != nil {
		return
	}
	var idx index
	if json.Unmarshal(data, &idx) != nil || idx.Version != indexVersion || idx.Entries == nil {
		return
	}
	c.idx = &idx
	for _, e := range idx.Entries {
		c.size += e.Size
	}
}

// saveIndex persists the index. Callers hold c.mu.
func (c *Cache) saveIndex() error {
	data, err := json.MarshalIndent(c.idx, "", "  ")
	if err != nil {
		return err
	}
	if err := os.WriteFile(filepath.Join(c.dir, "index.json"), data, 0o644); err != nil {
		return err
	}
	c.dirty = false
	return nil
}

// sweep drops entries past MaxAge. Runs once at Open, before any
// eviction accounting.
func (c *Cache) sweep() {
	if c.cfg.MaxAge <= 0 {
		return
	}
	for key, e := range c.idx.Entries {
		if c.expired(e) {
			c.drop(key, e)
		}
	}
	if c.dirty {
		c.saveIndex()
	}
}

func (c *Cache) expired(e *Entry) bool {
	return c.cfg.MaxAge > 0 && time.Since(e.Created) > c.cfg.MaxAge
}

// stale reports whether the inputs behind e have changed on disk.
func (c *Cache) stale(e *Entry) bool {
	digest, err := digestFiles(e.Inputs)
	return err != nil || digest != e.Digest
}

// evict makes room for incoming bytes, dropping entries per the
// configured policy until the budget holds.
func (c *Cache) evict(incoming int64) {
	if c.cfg.MaxSize <= 0 {
		return
	}
	for c.size+incoming > c.cfg.MaxSize && len(c.idx.Entries) > 0 {
		var key string
		var victim *Entry
		for k, e := range c.idx.Entries {
			if victim == nil || c.cfg.Policy.prefer(e, victim) {
				key, victim = k, e
			}
		}
		c.drop(key, victim)
		c.evicts++
	}
}

// drop removes an entry and its object file. Callers hold c.mu.
func (c *Cache) drop(key string, e *Entry) {
	if err := os.Remove(c.objectPath(key)); err != nil && !os.IsNotExist(err) {
		fmt.Fprintf(os.Stderr, "weft: cannot remove cache object %s: %v\n", key, err)
	}
	delete(c.idx.Entries, key)
	c.size -= e.Size
	c.dirty = true
}

// digestFiles hashes the contents of every path, with the path and
// length mixed in so reordered or shuffled inputs never collide.
func digestFiles(paths []string) (string, error) {
	h := sha256.New()
	for _, p := range paths {
		data, err := os.ReadFile(p)
		if err != nil {
			return "", err
		}
		fmt.Fprintf(h, "%s %d\n", p, len(data))
		h.Write(data)
	}
	return hex.EncodeToString(h.Sum(nil)), nil
}
