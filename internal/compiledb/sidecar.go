package compiledb

import (
	"os"
	"path/filepath"

	"github.com/pelletier/go-toml/v2"

	"github.com/dlogcover/dlogcover/internal/dlog"
	"github.com/dlogcover/dlogcover/internal/dlogerrors"
	"github.com/dlogcover/dlogcover/internal/pathutil"
	"github.com/dlogcover/dlogcover/internal/types"
)

// sidecarFile is the decoded shape of compile_commands.extra.toml: a
// project-local override for include paths compile_commands.json itself
// doesn't carry (vendored headers consumed via a build system
// compile_commands.json export doesn't capture, for example).
type sidecarFile struct {
	File []sidecarEntry `toml:"file"`
}

type sidecarEntry struct {
	Path     string   `toml:"path"`
	Includes []string `toml:"includes"`
	Defines  []string `toml:"defines"`
}

// LoadSidecar merges compile_commands.extra.toml (if present alongside
// dbPath) into the store: extra Includes/Defines are appended to any
// existing entry for Path, or a bare entry is created if Path wasn't in
// compile_commands.json at all. Absence of the sidecar file is not an
// error — it's an optional per-project override.
func (s *Store) LoadSidecar(dbPath string) error {
	sidecarPath := filepath.Join(filepath.Dir(dbPath), "compile_commands.extra.toml")
	content, err := os.ReadFile(sidecarPath)
	if err != nil {
		if os.IsNotExist(err) {
			return nil
		}
		return &dlogerrors.ConfigError{Field: "compile_commands.path", Msg: "reading compile_commands.extra.toml", Err: err}
	}

	var decoded sidecarFile
	if err := toml.Unmarshal(content, &decoded); err != nil {
		return &dlogerrors.ConfigError{Field: "compile_commands.path", Msg: "malformed compile_commands.extra.toml", Err: err}
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	for _, e := range decoded.File {
		norm, err := pathutil.Normalize(e.Path)
		if err != nil {
			norm = e.Path
		}
		info := s.byPath[norm]
		info.File = norm
		info.Includes = append(info.Includes, e.Includes...)
		info.Defines = append(info.Defines, e.Defines...)
		s.byPath[norm] = info
		base := filepath.Base(norm)
		found := false
		for _, existing := range s.byName[base] {
			if existing == norm {
				found = true
				break
			}
		}
		if !found {
			s.byName[base] = append(s.byName[base], norm)
		}
	}

	dlog.Printf(dlog.ComponentCompiledb, "merged %d sidecar entries from %s", len(decoded.File), sidecarPath)
	return nil
}
