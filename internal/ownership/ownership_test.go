package ownership

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestStrictLevel(t *testing.T) {
	v := New(nil)
	r := v.Validate("/a/b.cpp", "/a/b.cpp", Strict)
	assert.True(t, r.Owned)
	assert.Equal(t, 1.0, r.Confidence)

	r = v.Validate("/a/b.cpp", "/a/c.cpp", Strict)
	assert.False(t, r.Owned)
}

func TestCanonicalLevelViaSymlink(t *testing.T) {
	dir := t.TempDir()
	real := filepath.Join(dir, "real.cpp")
	require.NoError(t, os.WriteFile(real, []byte("x"), 0o644))
	link := filepath.Join(dir, "link.cpp")
	if err := os.Symlink(real, link); err != nil {
		t.Skipf("symlinks unsupported: %v", err)
	}

	v := New(nil)
	r := v.Validate(real, link, Canonical)
	assert.True(t, r.Owned)
	assert.Equal(t, Canonical, r.Level)
}

func TestSmartLevelHeaderSourcePair(t *testing.T) {
	v := New(nil)
	r := v.Validate("/proj/src/widget.cpp", "/proj/src/widget.h", Smart)
	assert.True(t, r.Owned)
	assert.InDelta(t, 0.8, r.Confidence, 0.001)
	assert.Contains(t, r.Reason, "corresponding header/source")
	assert.Equal(t, "/proj/src/widget.cpp", r.NormalizedTarget)
	assert.Equal(t, "/proj/src/widget.h", r.NormalizedDecl)
}

func TestSmartLevelExcludeGlob(t *testing.T) {
	v := New([]string{"**/generated/**"})
	r := v.Validate("/proj/src/widget.cpp", "/proj/generated/widget.h", Smart)
	assert.False(t, r.Owned)
}

func TestFuzzyLevelSameFilenameDifferentDir(t *testing.T) {
	v := New(nil)
	r := v.Validate("/proj/src/a.cpp", "/other/dir/a.cpp", Fuzzy)
	assert.True(t, r.Owned)
	assert.Equal(t, 0.3, r.Confidence)
	assert.Equal(t, Fuzzy, r.Level)
}

func TestFuzzyLevelNoMatch(t *testing.T) {
	v := New(nil)
	r := v.Validate("/proj/src/a.cpp", "/other/dir/b.cpp", Fuzzy)
	assert.False(t, r.Owned)
}

func TestCountersAndCacheHits(t *testing.T) {
	v := New(nil)
	v.Validate("/a.cpp", "/a.cpp", Strict)
	v.Validate("/a.cpp", "/a.cpp", Strict) // cache hit

	c := v.Counters()
	assert.Equal(t, int64(2), c.TotalValidations)
	assert.Equal(t, int64(1), c.CacheHits)
	assert.Equal(t, int64(1), c.LevelMatches[Strict])
}

func TestResetClearsCacheAndCounters(t *testing.T) {
	v := New(nil)
	v.Validate("/a.cpp", "/a.cpp", Strict)
	v.Reset()

	c := v.Counters()
	assert.Equal(t, int64(0), c.TotalValidations)
	assert.Equal(t, int64(0), c.CacheHits)
}

func TestMaxLevelStopsEarly(t *testing.T) {
	v := New(nil)
	r := v.Validate("/proj/src/widget.cpp", "/proj/src/widget.h", Strict)
	assert.False(t, r.Owned)
	assert.Equal(t, Strict, r.Level)
}
