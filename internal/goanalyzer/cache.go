package goanalyzer

import (
	"fmt"
	"sync"

	"github.com/cespare/xxhash/v2"

	"github.com/dlogcover/dlogcover/internal/types"
)

// cacheEntry is the bridge's own cache record: mirrors the AST cache's
// invalidation semantics but with its own map, keyed by canonical path;
// content hash is the 64-bit hash(content) serialized as hex.
type cacheEntry struct {
	contentHash string
	functions   []*types.ASTNodeInfo
}

type bridgeCache struct {
	mu          sync.Mutex
	byPath      map[string]cacheEntry
	hits        int64
	misses      int64
	approxBytes int64
}

func newBridgeCache() *bridgeCache {
	return &bridgeCache{byPath: make(map[string]cacheEntry)}
}

func contentHashHex(content []byte) string {
	return fmt.Sprintf("%016x", xxhash.Sum64(content))
}

// get returns a deep copy of the cached functions for canonPath if content
// still matches hash, so callers can mutate their own copy freely.
func (c *bridgeCache) get(canonPath string, hash string) ([]*types.ASTNodeInfo, bool) {
	c.mu.Lock()
	defer c.mu.Unlock()

	entry, ok := c.byPath[canonPath]
	if !ok || entry.contentHash != hash {
		c.misses++
		return nil, false
	}
	c.hits++
	return deepCopyForest(entry.functions), true
}

func (c *bridgeCache) put(canonPath string, hash string, functions []*types.ASTNodeInfo) {
	c.mu.Lock()
	defer c.mu.Unlock()

	c.byPath[canonPath] = cacheEntry{contentHash: hash, functions: functions}
	c.approxBytes += estimateForestBytes(functions)
}

func (c *bridgeCache) stats() (hits, misses int64, approxBytes int64) {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.hits, c.misses, c.approxBytes
}

func deepCopyForest(in []*types.ASTNodeInfo) []*types.ASTNodeInfo {
	if in == nil {
		return nil
	}
	out := make([]*types.ASTNodeInfo, len(in))
	for i, n := range in {
		out[i] = deepCopyNode(n)
	}
	return out
}

func deepCopyNode(n *types.ASTNodeInfo) *types.ASTNodeInfo {
	if n == nil {
		return nil
	}
	cp := *n
	if n.LogCall != nil {
		logCopy := *n.LogCall
		cp.LogCall = &logCopy
	}
	cp.Children = deepCopyForest(n.Children)
	return &cp
}

func estimateForestBytes(nodes []*types.ASTNodeInfo) int64 {
	var total int64
	for _, n := range nodes {
		if n == nil {
			continue
		}
		total += int64(len(n.Name) + len(n.Text) + 64)
		total += estimateForestBytes(n.Children)
	}
	return total
}
