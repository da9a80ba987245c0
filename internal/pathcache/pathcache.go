// Package pathcache indexes executable basenames across $PATH for the line
// editor's highlighter and completer. It is a pure accelerator: spec.md §3
// requires that a negative lookup never block execution, so every caller
// that cares about correctness (the spawner) must still fall through to a
// real PATH search rather than trust a miss here.
package pathcache

import (
	"os"
	"path/filepath"
	"sort"
	"strings"
	"sync"
)

// signature is the invalidation key from spec.md §3: the raw $PATH string
// plus each directory's mtime, so additions without a directory mtime bump
// are the one case (spec.md §9 Open Question) where the cache can go stale
// — harmlessly, since lookups are advisory.
type signature struct {
	path  string
	mtime map[string]int64
}

// Cache is the set of command basenames visible anywhere on $PATH.
type Cache struct {
	mu    sync.Mutex
	names map[string]bool
	dirs  map[string]string
	sig   signature
}

// New builds a cache from the given $PATH value, scanning immediately so the
// very first prompt already has highlighting data (scanning happens once at
// startup, off the per-keystroke path).
func New(path string) *Cache {
	c := &Cache{names: make(map[string]bool)}
	c.rescan(path)
	return c
}

// Refresh rescans $PATH only if path or any directory's mtime changed since
// the last scan, mirroring original_source's PathCache::refresh: compare the
// cheap string first, only then pay for a directory walk.
func (c *Cache) Refresh(path string) {
	c.mu.Lock()
	defer c.mu.Unlock()
	if path == c.sig.path && !c.staleLocked(path) {
		return
	}
	c.rescanLocked(path)
}

func (c *Cache) staleLocked(path string) bool {
	for _, dir := range filepath.SplitList(path) {
		info, err := os.Stat(dir)
		if err != nil {
			if _, had := c.sig.mtime[dir]; had {
				return true
			}
			continue
		}
		if c.sig.mtime[dir] != info.ModTime().UnixNano() {
			return true
		}
	}
	return false
}

func (c *Cache) rescan(path string) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.rescanLocked(path)
}

func (c *Cache) rescanLocked(path string) {
	names := make(map[string]bool)
	dirs := make(map[string]string)
	mtimes := make(map[string]int64)
	for _, dir := range filepath.SplitList(path) {
		if dir == "" {
			continue
		}
		info, err := os.Stat(dir)
		if err != nil {
			continue
		}
		mtimes[dir] = info.ModTime().UnixNano()
		entries, err := os.ReadDir(dir)
		if err != nil {
			continue
		}
		for _, e := range entries {
			if e.IsDir() {
				continue
			}
			fi, err := e.Info()
			if err != nil || fi.Mode()&0o111 == 0 {
				continue
			}
			names[e.Name()] = true
			if _, had := dirs[e.Name()]; !had {
				dirs[e.Name()] = dir
			}
		}
	}
	c.names = names
	c.dirs = dirs
	c.sig = signature{path: path, mtime: mtimes}
}

// Has reports whether name is a known basename anywhere on $PATH. A false
// result is advisory only — see the package doc.
func (c *Cache) Has(name string) bool {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.names[name]
}

// Dir returns the first $PATH directory seen to contain name, and whether
// name is cached at all. Used by the spawner as a hint to skip straight to
// one directory instead of walking all of $PATH; a miss or a stale hit is
// harmless since the spawner always falls back to a real search.
func (c *Cache) Dir(name string) (string, bool) {
	c.mu.Lock()
	defer c.mu.Unlock()
	dir, ok := c.dirs[name]
	return dir, ok
}

// WithPrefix returns every cached basename starting with prefix, sorted, for
// Tab completion.
func (c *Cache) WithPrefix(prefix string) []string {
	c.mu.Lock()
	defer c.mu.Unlock()
	var out []string
	for name := range c.names {
		if strings.HasPrefix(name, prefix) {
			out = append(out, name)
		}
	}
	sort.Strings(out)
	return out
}
