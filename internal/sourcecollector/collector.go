// Package sourcecollector is dlogcover's Source Collector: it walks
// `scan.directories`, filters by `scan.file_extensions` and
// `scan.exclude_patterns`, and produces the immutable SourceFileInfo
// records the rest of the engine consumes. Grounded on the teacher's
// internal/indexing ScanDirectory (symlink-cycle detection, periodic
// memory-baseline monitoring with an emergency abort) and
// internal/config's gitignore.go / build_artifact_detector.go for the
// shape of exclusion handling, generalized onto doublestar glob
// matching instead of the teacher's hand-rolled pattern matcher.
package sourcecollector

import (
	"context"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
	"runtime"
	"time"

	"github.com/bmatcuk/doublestar/v4"

	"github.com/dlogcover/dlogcover/internal/config"
	"github.com/dlogcover/dlogcover/internal/dlog"
	"github.com/dlogcover/dlogcover/internal/types"
)

// memDeltaLimitMB bounds the heap growth a single scan is allowed before
// it aborts, mirroring the teacher's per-scan emergency brake.
const memDeltaLimitMB = 1000

// Collector enumerates source files for one configured run.
type Collector struct {
	cfg        *config.Config
	extensions map[string]bool
}

// New builds a Collector from cfg's scan settings.
func New(cfg *config.Config) *Collector {
	exts := make(map[string]bool, len(cfg.Scan.FileExtensions))
	for _, ext := range cfg.Scan.FileExtensions {
		exts[ext] = true
	}
	return &Collector{cfg: cfg, extensions: exts}
}

// CollectAll walks every configured scan directory and returns the full
// set of matching SourceFileInfo records. Convenience wrapper over
// ScanDirectory for the orchestrator's non-streaming run mode.
func (c *Collector) CollectAll(ctx context.Context) ([]types.SourceFileInfo, error) {
	var all []types.SourceFileInfo
	for _, dir := range c.cfg.Scan.Directories {
		root := dir
		if !filepath.IsAbs(root) {
			root = filepath.Join(c.cfg.Project.Directory, root)
		}
		files, err := c.ScanDirectory(ctx, root)
		if err != nil {
			return nil, err
		}
		all = append(all, files...)
	}
	return all, nil
}

// ScanDirectory walks root, returning one SourceFileInfo per file that
// passes extension and exclude-pattern filtering.
func (c *Collector) ScanDirectory(ctx context.Context, root string) ([]types.SourceFileInfo, error) {
	var results []types.SourceFileInfo
	visitedDirs := make(map[string]bool)

	var memStats runtime.MemStats
	runtime.ReadMemStats(&memStats)
	baselineMB := memStats.HeapAlloc / 1024 / 1024
	scanned := 0
	lastMemCheck := time.Now()

	err := filepath.WalkDir(root, func(path string, d fs.DirEntry, walkErr error) error {
		select {
		case <-ctx.Done():
			return ctx.Err()
		default:
		}

		if walkErr != nil {
			dlog.Printf(dlog.ComponentCollector, "scan error at %s: %v", path, walkErr)
			return nil
		}

		if d.IsDir() {
			real, err := filepath.EvalSymlinks(path)
			if err != nil {
				return nil
			}
			if visitedDirs[real] {
				return filepath.SkipDir
			}
			visitedDirs[real] = true

			if path != root && c.excluded(root, path, true) {
				return filepath.SkipDir
			}
			return nil
		}

		scanned++
		if scanned%1000 == 0 || time.Since(lastMemCheck) > 5*time.Second {
			lastMemCheck = time.Now()
			runtime.ReadMemStats(&memStats)
			currentMB := memStats.HeapAlloc / 1024 / 1024
			var deltaMB uint64
			if currentMB > baselineMB {
				deltaMB = currentMB - baselineMB
			}
			if deltaMB > memDeltaLimitMB {
				return fmt.Errorf("sourcecollector: scan memory usage exceeded %dMB limit", memDeltaLimitMB)
			}
		}

		if !c.extensions[filepath.Ext(path)] {
			return nil
		}
		if c.excluded(root, path, false) {
			return nil
		}

		info, err := d.Info()
		if err != nil {
			dlog.Printf(dlog.ComponentCollector, "stat failed for %s: %v", path, err)
			return nil
		}

		file, err := c.toSourceFile(root, path, info)
		if err != nil {
			dlog.Printf(dlog.ComponentCollector, "read failed for %s: %v", path, err)
			return nil
		}
		results = append(results, file)
		return nil
	})
	if err != nil {
		return nil, err
	}
	return results, nil
}

func (c *Collector) excluded(root, path string, isDir bool) bool {
	rel, err := filepath.Rel(root, path)
	if err != nil {
		rel = path
	}
	rel = filepath.ToSlash(rel)
	if isDir {
		rel += "/"
	}
	for _, pattern := range c.cfg.Scan.ExcludePatterns {
		if match, _ := doublestar.Match(pattern, rel); match {
			return true
		}
	}
	return false
}

func (c *Collector) toSourceFile(root, path string, info fs.FileInfo) (types.SourceFileInfo, error) {
	content, err := os.ReadFile(path)
	if err != nil {
		return types.SourceFileInfo{}, err
	}
	rel, err := filepath.Rel(root, path)
	if err != nil {
		rel = path
	}

	ext := filepath.Ext(path)
	return types.SourceFileInfo{
		AbsPath:  path,
		RelPath:  filepath.ToSlash(rel),
		Content:  string(content),
		Size:     info.Size(),
		IsHeader: isHeaderExt(ext),
		Lang:     types.LanguageFromExtension(ext),
	}, nil
}

func isHeaderExt(ext string) bool {
	switch ext {
	case ".h", ".hpp", ".hxx", ".h++", ".hh":
		return true
	default:
		return false
	}
}
