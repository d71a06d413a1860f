// Package ownership is dlogcover's File-Ownership Validator: decides
// whether a "declaration file" (e.g. a header) is owned by a "target
// file" (e.g. its corresponding source), at one of four strictness
// levels. Grounded on the teacher's cache-with-counters
// pattern (internal/cache/metrics_cache.go: sync.Map + atomic counters)
// and on go-edlib for the Smart level's Levenshtein path similarity.
package ownership

import (
	"path/filepath"
	"strings"
	"sync"
	"sync/atomic"

	"github.com/bmatcuk/doublestar/v4"
	"github.com/hbollon/go-edlib"

	"github.com/dlogcover/dlogcover/internal/pathutil"
)

// Level is a strictness level, tried in ascending order of tolerance.
type Level int

const (
	Strict Level = iota
	Canonical
	Smart
	Fuzzy
)

func (l Level) String() string {
	switch l {
	case Strict:
		return "strict"
	case Canonical:
		return "canonical"
	case Smart:
		return "smart"
	case Fuzzy:
		return "fuzzy"
	default:
		return "unknown"
	}
}

// Result is a Validation Result: whether target owns decl at the
// requested level, the confidence of that determination, a
// human-readable explanation, and both paths in the normalized
// (canonicalized) form the comparison actually ran against.
type Result struct {
	Owned      bool
	Confidence float64
	Level      Level
	Reason     string

	// NormalizedTarget and NormalizedDecl are target/decl after
	// canonicalization — identical to the inputs unless Canonical()
	// resolved a symlink or cleaned a `..`-laden path.
	NormalizedTarget string
	NormalizedDecl   string
}

var headerExts = map[string]bool{".h": true, ".hpp": true, ".hxx": true, ".h++": true, ".hh": true}
var sourceExts = map[string]bool{".cpp": true, ".cxx": true, ".c++": true, ".cc": true, ".c": true}

// Validator evaluates ownership at a configurable strictness level,
// caching results keyed by (target, decl, level).
type Validator struct {
	mu            sync.RWMutex
	cache         map[string]Result
	excludeGlobs  []string

	totalValidations int64
	cacheHits        int64
	levelMatches     [4]int64 // indexed by Level
}

// New returns a Validator. excludeGlobs are `**`-style patterns checked
// by the Smart level's "excluded by user-supplied glob" rule.
func New(excludeGlobs []string) *Validator {
	return &Validator{
		cache:        make(map[string]Result),
		excludeGlobs: excludeGlobs,
	}
}

// Reset clears the cache and counters; callers invoke this when the
// project root changes.
func (v *Validator) Reset() {
	v.mu.Lock()
	defer v.mu.Unlock()
	v.cache = make(map[string]Result)
	atomic.StoreInt64(&v.totalValidations, 0)
	atomic.StoreInt64(&v.cacheHits, 0)
	for i := range v.levelMatches {
		atomic.StoreInt64(&v.levelMatches[i], 0)
	}
}

// Validate decides whether decl is owned by target, trying levels from
// Strict up to and including maxLevel (stops at the first level that
// confirms ownership).
func (v *Validator) Validate(target, decl string, maxLevel Level) Result {
	atomic.AddInt64(&v.totalValidations, 1)

	key := target + "\x00" + decl + "\x00" + maxLevel.String()
	v.mu.RLock()
	if r, ok := v.cache[key]; ok {
		v.mu.RUnlock()
		atomic.AddInt64(&v.cacheHits, 1)
		return r
	}
	v.mu.RUnlock()

	result := v.validateUncached(target, decl, maxLevel)

	v.mu.Lock()
	v.cache[key] = result
	v.mu.Unlock()

	if result.Owned {
		atomic.AddInt64(&v.levelMatches[result.Level], 1)
	}
	return result
}

// ValidateBatch runs Validate over each (target, decl) pair, preserving
// order.
func (v *Validator) ValidateBatch(pairs [][2]string, maxLevel Level) []Result {
	out := make([]Result, len(pairs))
	for i, p := range pairs {
		out[i] = v.Validate(p[0], p[1], maxLevel)
	}
	return out
}

func (v *Validator) validateUncached(target, decl string, maxLevel Level) Result {
	normTarget, normDecl := target, decl
	if c, err := pathutil.Canonical(target); err == nil {
		normTarget = c
	}
	if c, err := pathutil.Canonical(decl); err == nil {
		normDecl = c
	}
	base := Result{NormalizedTarget: normTarget, NormalizedDecl: normDecl}

	if target == decl {
		r := base
		r.Owned, r.Confidence, r.Level = true, 1.0, Strict
		r.Reason = "target and declaration paths are identical"
		return r
	}
	if maxLevel == Strict {
		r := base
		r.Level = Strict
		r.Reason = "paths differ and strict level disallows any tolerance"
		return r
	}

	if pathutil.SameFile(target, decl) {
		r := base
		r.Owned, r.Confidence, r.Level = true, 0.95, Canonical
		r.Reason = normTarget + " and " + normDecl + " canonicalize to the same file"
		return r
	}
	if maxLevel == Canonical {
		r := base
		r.Level = Canonical
		r.Reason = "paths do not canonicalize to the same file"
		return r
	}

	// Smart level.
	for _, pattern := range v.excludeGlobs {
		if match, _ := doublestar.Match(pattern, decl); match {
			r := base
			r.Level = Smart
			r.Confidence = 0.9
			r.Reason = decl + " is excluded by glob " + pattern
			return r
		}
	}
	if isHeaderSourcePair(target, decl) {
		r := base
		r.Owned, r.Confidence, r.Level = true, 0.8, Smart
		r.Reason = target + " is the corresponding header/source for " + decl
		return r
	}
	if filepath.Dir(target) == filepath.Dir(decl) && filepath.Base(target) == filepath.Base(decl) {
		r := base
		r.Owned, r.Confidence, r.Level = true, 0.7, Smart
		r.Reason = "same filename and directory as " + decl
		return r
	}
	if sim, err := edlib.StringsSimilarity(target, decl, edlib.Levenshtein); err == nil && float64(sim) > 0.8 {
		r := base
		r.Owned, r.Confidence, r.Level = true, float64(sim)*0.6, Smart
		r.Reason = "path similarity to " + decl + " exceeds the Smart-level threshold"
		return r
	}
	if maxLevel == Smart {
		r := base
		r.Level = Smart
		r.Reason = "no header/source pairing, directory match, or sufficient path similarity to " + decl
		return r
	}

	// Fuzzy level.
	if filepath.Base(target) == filepath.Base(decl) {
		r := base
		r.Owned, r.Confidence, r.Level = true, 0.3, Fuzzy
		r.Reason = "same filename as " + decl + " in a different directory"
		return r
	}
	r := base
	r.Level = Fuzzy
	r.Reason = "no filename or path relationship found to " + decl
	return r
}

// isHeaderSourcePair reports whether a and b share a filename stem and
// one is a recognized header extension while the other is a recognized
// source extension.
func isHeaderSourcePair(a, b string) bool {
	stemA, extA := splitExt(a)
	stemB, extB := splitExt(b)
	if stemA != stemB {
		return false
	}
	return (headerExts[extA] && sourceExts[extB]) || (sourceExts[extA] && headerExts[extB])
}

func splitExt(path string) (stem, ext string) {
	base := filepath.Base(path)
	ext = strings.ToLower(filepath.Ext(base))
	stem = strings.TrimSuffix(base, filepath.Ext(base))
	return stem, ext
}

// Counters is a snapshot of the validator's instance counters.
type Counters struct {
	TotalValidations int64
	CacheHits        int64
	LevelMatches     map[Level]int64
}

// Counters returns a snapshot of per-instance counters: total
// validations, cache hits, and per-level match counts.
func (v *Validator) Counters() Counters {
	lm := make(map[Level]int64, 4)
	for i := range v.levelMatches {
		lm[Level(i)] = atomic.LoadInt64(&v.levelMatches[i])
	}
	return Counters{
		TotalValidations: atomic.LoadInt64(&v.totalValidations),
		CacheHits:        atomic.LoadInt64(&v.cacheHits),
		LevelMatches:     lm,
	}
}
