// Package astcache is dlogcover's AST cache: an LRU keyed by canonical
// file path, storing deep-copied node trees invalidated by mtime, size,
// content hash, and the mtimes of the file's direct #include dependencies.
// Grounded on the teacher's internal/cache (sync.Map + atomic-counter
// metrics shape), generalized to a single mutex held over the whole map
// — a hot path, but parse time dominates it in practice.
package astcache

import (
	"bufio"
	"container/list"
	"fmt"
	"os"
	"path/filepath"
	"regexp"
	"strings"
	"sync"
	"sync/atomic"
	"time"

	"github.com/cespare/xxhash/v2"

	"github.com/dlogcover/dlogcover/internal/dlog"
	"github.com/dlogcover/dlogcover/internal/pathutil"
	"github.com/dlogcover/dlogcover/internal/types"
)

var includeRe = regexp.MustCompile(`^\s*#\s*include\s*[<"]([^>"]+)[>"]`)

// Entry is one cached translation unit plus the metadata used to decide
// whether it's still valid.
type Entry struct {
	Path          string
	Root          []*types.ASTNodeInfo
	ModTime       time.Time
	Size          int64
	ContentHash   uint64
	Dependencies  []string // resolved, existing #include targets
	DepsLastCheck time.Time
	LastAccess    time.Time
	AccessCount   int64
}

type node struct {
	entry *Entry
	elem  *list.Element
}

// Cache is the process-wide AST cache. One mutex guards both the map and
// the LRU list.
type Cache struct {
	mu             sync.Mutex
	byPath         map[string]*node
	order          *list.List // front = most recently used
	maxEntries     int
	memoryCeiling  int64
	currentMemory  int64
	hits           int64
	misses         int64
	evictions      int64
}

// New returns a cache with the given entry-count ceiling and estimated
// memory ceiling in bytes. maxEntries <= 0 means unlimited count (only
// the memory ceiling applies); memoryCeiling <= 0 means unlimited memory.
func New(maxEntries int, memoryCeiling int64) *Cache {
	return &Cache{
		byPath:        make(map[string]*node),
		order:         list.New(),
		maxEntries:    maxEntries,
		memoryCeiling: memoryCeiling,
	}
}

// Get looks up path, validating the cached entry against the current
// file state. Returns a deep copy on hit so callers can mutate freely
// without corrupting the cached tree.
func (c *Cache) Get(path string, dependencies []string) (*Entry, bool) {
	canon, err := pathutil.Canonical(path)
	if err != nil {
		canon = path
	}

	info, statErr := os.Stat(canon)

	c.mu.Lock()
	n, ok := c.byPath[canon]
	if !ok {
		c.misses++
		c.mu.Unlock()
		return nil, false
	}

	if statErr != nil {
		c.evictLocked(canon)
		c.misses++
		c.mu.Unlock()
		return nil, false
	}

	if info.ModTime() != n.entry.ModTime || info.Size() != n.entry.Size {
		c.evictLocked(canon)
		c.misses++
		c.mu.Unlock()
		return nil, false
	}

	content, readErr := os.ReadFile(canon)
	if readErr != nil || xxhash.Sum64(content) != n.entry.ContentHash {
		c.evictLocked(canon)
		c.misses++
		c.mu.Unlock()
		return nil, false
	}

	deps := dependencies
	if deps == nil {
		deps = n.entry.Dependencies
	}
	for _, dep := range deps {
		depInfo, err := os.Stat(dep)
		if err != nil {
			continue
		}
		if depInfo.ModTime().After(n.entry.DepsLastCheck) {
			c.evictLocked(canon)
			c.misses++
			c.mu.Unlock()
			return nil, false
		}
	}

	n.entry.LastAccess = time.Now()
	atomic.AddInt64(&n.entry.AccessCount, 1)
	c.order.MoveToFront(n.elem)
	c.hits++
	clone := deepCopyEntry(n.entry)
	c.mu.Unlock()
	return clone, true
}

// Put inserts or replaces the cached entry for path. If dependencies is
// nil, Put scans content for #include directives and resolves them
// relative to the file's own directory, recording only targets that
// exist on disk.
func (c *Cache) Put(path string, root []*types.ASTNodeInfo, content []byte, dependencies []string) error {
	canon, err := pathutil.Canonical(path)
	if err != nil {
		canon = path
	}
	info, err := os.Stat(canon)
	if err != nil {
		return err
	}

	deps := dependencies
	if deps == nil {
		deps = scanIncludes(canon, content)
	}

	entry := &Entry{
		Path:          canon,
		Root:          root,
		ModTime:       info.ModTime(),
		Size:          info.Size(),
		ContentHash:   xxhash.Sum64(content),
		Dependencies:  deps,
		DepsLastCheck: time.Now(),
		LastAccess:    time.Now(),
		AccessCount:   0,
	}
	estimate := estimateMemory(entry)

	c.mu.Lock()
	defer c.mu.Unlock()

	if existing, ok := c.byPath[canon]; ok {
		c.currentMemory -= estimateMemory(existing.entry)
		c.order.Remove(existing.elem)
		delete(c.byPath, canon)
	}

	for c.maxEntries > 0 && len(c.byPath) >= c.maxEntries {
		if !c.evictLRULocked() {
			break
		}
	}
	for c.memoryCeiling > 0 && c.currentMemory+estimate > c.memoryCeiling {
		if !c.evictLRULocked() {
			break
		}
	}

	elem := c.order.PushFront(canon)
	c.byPath[canon] = &node{entry: entry, elem: elem}
	c.currentMemory += estimate
	dlog.Printf(dlog.ComponentAstCache, "cached %s (entries=%d, mem=%d)", canon, len(c.byPath), c.currentMemory)
	return nil
}

// evictLRULocked evicts the least-recently-used entry; caller holds mu.
// Returns false if the cache is already empty.
func (c *Cache) evictLRULocked() bool {
	back := c.order.Back()
	if back == nil {
		return false
	}
	path := back.Value.(string)
	c.evictLocked(path)
	c.evictions++
	return true
}

// evictLocked removes path's entry; caller holds mu.
func (c *Cache) evictLocked(path string) {
	n, ok := c.byPath[path]
	if !ok {
		return
	}
	c.currentMemory -= estimateMemory(n.entry)
	c.order.Remove(n.elem)
	delete(c.byPath, path)
}

// Stats is a point-in-time snapshot of the cache's hit/miss counters.
type Stats struct {
	Entries       int
	MaxEntries    int
	Hits          int64
	Misses        int64
	Evictions     int64
	MemoryUsed    int64
	MemoryCeiling int64
}

// Stats returns a point-in-time snapshot of the cache counters.
func (c *Cache) Stats() Stats {
	c.mu.Lock()
	defer c.mu.Unlock()
	return Stats{
		Entries:       len(c.byPath),
		MaxEntries:    c.maxEntries,
		Hits:          c.hits,
		Misses:        c.misses,
		Evictions:     c.evictions,
		MemoryUsed:    c.currentMemory,
		MemoryCeiling: c.memoryCeiling,
	}
}

// HitRatio returns hits/(hits+misses), or 0 if there have been no
// lookups yet.
func (s Stats) HitRatio() float64 {
	total := s.Hits + s.Misses
	if total == 0 {
		return 0
	}
	return float64(s.Hits) / float64(total)
}

// String renders a human-readable multi-line diagnostic report.
func (s Stats) String() string {
	var b strings.Builder
	fmt.Fprintf(&b, "AST Cache Statistics\n")
	fmt.Fprintf(&b, "--------------------\n")
	fmt.Fprintf(&b, "Entries: %d / %d\n", s.Entries, s.MaxEntries)
	fmt.Fprintf(&b, "Hits: %d\n", s.Hits)
	fmt.Fprintf(&b, "Misses: %d\n", s.Misses)
	fmt.Fprintf(&b, "Evictions: %d\n", s.Evictions)
	fmt.Fprintf(&b, "Total accesses: %d\n", s.Hits+s.Misses)
	fmt.Fprintf(&b, "Hit ratio: %.2f%%\n", s.HitRatio()*100)
	fmt.Fprintf(&b, "Memory used / ceiling: %d / %d bytes\n", s.MemoryUsed, s.MemoryCeiling)
	return b.String()
}

// scanIncludes reads #include directives from content and resolves both
// quoted and angle-bracket includes relative to path's directory,
// keeping only targets that exist on disk.
func scanIncludes(path string, content []byte) []string {
	dir := filepath.Dir(path)
	var deps []string
	scanner := bufio.NewScanner(strings.NewReader(string(content)))
	for scanner.Scan() {
		m := includeRe.FindStringSubmatch(scanner.Text())
		if m == nil {
			continue
		}
		target := m[1]
		candidate := target
		if !filepath.IsAbs(candidate) {
			candidate = filepath.Join(dir, target)
		}
		if _, err := os.Stat(candidate); err == nil {
			deps = append(deps, candidate)
		}
	}
	return deps
}

func deepCopyEntry(e *Entry) *Entry {
	cp := *e
	cp.Root = make([]*types.ASTNodeInfo, len(e.Root))
	for i, n := range e.Root {
		cp.Root[i] = deepCopyNode(n)
	}
	cp.Dependencies = append([]string(nil), e.Dependencies...)
	return &cp
}

func deepCopyNode(n *types.ASTNodeInfo) *types.ASTNodeInfo {
	if n == nil {
		return nil
	}
	cp := *n
	if n.LogCall != nil {
		lc := *n.LogCall
		cp.LogCall = &lc
	}
	if n.Children != nil {
		cp.Children = make([]*types.ASTNodeInfo, len(n.Children))
		for i, c := range n.Children {
			cp.Children[i] = deepCopyNode(c)
		}
	}
	return &cp
}

// estimateMemory approximates an entry's footprint: node tree size plus
// path/hash bytes.
func estimateMemory(e *Entry) int64 {
	var total int64 = int64(len(e.Path)) + 8 // path + content hash
	for _, n := range e.Root {
		total += estimateNode(n)
	}
	for _, d := range e.Dependencies {
		total += int64(len(d))
	}
	return total
}

func estimateNode(n *types.ASTNodeInfo) int64 {
	if n == nil {
		return 0
	}
	const nodeOverhead = 96
	total := int64(nodeOverhead + len(n.Text) + len(n.Name))
	for _, c := range n.Children {
		total += estimateNode(c)
	}
	return total
}
