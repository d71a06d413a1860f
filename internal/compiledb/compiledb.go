// Package compiledb is dlogcover's compile-commands store: it parses a
// compile_commands.json database into per-file CompileInfo
// records, with an optional cmake-invoking generate() helper when the
// database is missing and compile_commands.auto_generate is set.
// Grounded on the original C++ implementation's
// compile_commands_manager.cpp/cmake_parser.cpp, reworked into Go's
// encoding/json + os/exec idiom.
package compiledb

import (
	"encoding/json"
	"fmt"
	"os"
	"os/exec"
	"path/filepath"
	"strings"
	"sync"

	"github.com/dlogcover/dlogcover/internal/dlog"
	"github.com/dlogcover/dlogcover/internal/dlogerrors"
	"github.com/dlogcover/dlogcover/internal/ownership"
	"github.com/dlogcover/dlogcover/internal/pathutil"
	"github.com/dlogcover/dlogcover/internal/types"
)

// rawEntry mirrors one compile_commands.json entry (the LLVM/Clang
// compilation-database format).
type rawEntry struct {
	Directory string   `json:"directory"`
	File      string   `json:"file"`
	Command   string   `json:"command"`
	Arguments []string `json:"arguments"`
}

// Store holds parsed compile info. It is built once per run and treated
// as read-only afterward — concurrent lookups need only a read lock.
type Store struct {
	mu     sync.RWMutex
	byPath map[string]types.CompileInfo
	byName map[string][]string // basename -> normalized paths, for fallback lookup
	owner  *ownership.Validator
}

// New returns an empty store. excludeGlobs, if given, are forwarded to
// the ownership.Validator used to disambiguate basename-fallback
// lookups when a basename collides across directories.
func New(excludeGlobs ...string) *Store {
	return &Store{
		byPath: make(map[string]types.CompileInfo),
		byName: make(map[string][]string),
		owner:  ownership.New(excludeGlobs),
	}
}

// Load parses the compile_commands.json at path into the store. A
// missing file or a malformed root (not a JSON array) is a ConfigError. Individual
// entries missing required fields are skipped with a debug log line,
// matching the original's per-entry tolerance.
func (s *Store) Load(path string) error {
	content, err := os.ReadFile(path)
	if err != nil {
		return &dlogerrors.ConfigError{Field: "compile_commands.path", Msg: "compile_commands.json not found: " + path, Err: err}
	}

	var entries []rawEntry
	if err := json.Unmarshal(content, &entries); err != nil {
		return &dlogerrors.ConfigError{Field: "compile_commands.path", Msg: "malformed compile_commands.json", Err: err}
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	parsed := 0
	for _, e := range entries {
		if e.File == "" || e.Directory == "" {
			dlog.Printf(dlog.ComponentCompiledb, "skipping entry missing file/directory field")
			continue
		}
		info := toCompileInfo(e)
		abs := info.File
		if !filepath.IsAbs(abs) {
			abs = filepath.Join(e.Directory, e.File)
		}
		norm, err := pathutil.Normalize(abs)
		if err != nil {
			continue
		}
		info.File = norm
		s.byPath[norm] = info
		base := filepath.Base(norm)
		s.byName[base] = append(s.byName[base], norm)
		parsed++
	}

	dlog.Printf(dlog.ComponentCompiledb, "parsed %d compile entries from %s", parsed, path)
	if parsed == 0 {
		return &dlogerrors.ConfigError{Field: "compile_commands.path", Msg: "no valid entries parsed from " + path}
	}
	return nil
}

func toCompileInfo(e rawEntry) types.CompileInfo {
	info := types.CompileInfo{
		File:      e.File,
		Directory: e.Directory,
		Command:   e.Command,
	}
	args := e.Arguments
	if len(args) == 0 && e.Command != "" {
		args = splitCommand(e.Command)
	}
	for i := 0; i < len(args); i++ {
		a := args[i]
		switch {
		case strings.HasPrefix(a, "-I"):
			if a == "-I" && i+1 < len(args) {
				i++
				info.Includes = append(info.Includes, args[i])
			} else {
				info.Includes = append(info.Includes, strings.TrimPrefix(a, "-I"))
			}
		case strings.HasPrefix(a, "-D"):
			if a == "-D" && i+1 < len(args) {
				i++
				info.Defines = append(info.Defines, args[i])
			} else {
				info.Defines = append(info.Defines, strings.TrimPrefix(a, "-D"))
			}
		case strings.HasPrefix(a, "-std=") || strings.HasPrefix(a, "-f") || strings.HasPrefix(a, "-W"):
			info.Flags = append(info.Flags, a)
		}
	}
	return info
}

// splitCommand performs a minimal shell-word split of a command string,
// sufficient for the simple quoting compile_commands.json entries use
// (no pipes/redirection to worry about — this is a compiler invocation,
// not a shell script).
func splitCommand(cmd string) []string {
	var out []string
	var cur strings.Builder
	inQuote := rune(0)
	for _, r := range cmd {
		switch {
		case inQuote != 0:
			if r == inQuote {
				inQuote = 0
			} else {
				cur.WriteRune(r)
			}
		case r == '"' || r == '\'':
			inQuote = r
		case r == ' ' || r == '\t':
			if cur.Len() > 0 {
				out = append(out, cur.String())
				cur.Reset()
			}
		default:
			cur.WriteRune(r)
		}
	}
	if cur.Len() > 0 {
		out = append(out, cur.String())
	}
	return out
}

// Lookup returns the CompileInfo for filePath, falling back to a
// basename match across the store if no exact path match exists
// (mirrors the original's filename-fallback lookup for files referenced
// via different relative-path spellings).
func (s *Store) Lookup(filePath string) (types.CompileInfo, bool) {
	norm, err := pathutil.Normalize(filePath)
	if err != nil {
		norm = filePath
	}

	s.mu.RLock()
	defer s.mu.RUnlock()

	if info, ok := s.byPath[norm]; ok {
		return info, true
	}

	base := filepath.Base(norm)
	candidates, ok := s.byName[base]
	if !ok || len(candidates) == 0 {
		return types.CompileInfo{}, false
	}

	best := s.bestCandidate(norm, candidates)
	dlog.Printf(dlog.ComponentCompiledb, "filename fallback: %s -> %s", filePath, best)
	return s.byPath[best], true
}

// bestCandidate picks the basename-fallback candidate most likely to be
// the same logical file as norm, using the ownership validator's Smart
// level: when a basename collides across directories (e.g. two
// "utils.cpp" in different subtrees), the first-seen candidate is
// frequently the wrong one, so candidates are ranked by ownership
// confidence rather than insertion order.
func (s *Store) bestCandidate(norm string, candidates []string) string {
	best := candidates[0]
	bestConfidence := -1.0
	matched := false
	for _, c := range candidates {
		r := s.owner.Validate(norm, c, ownership.Smart)
		if r.Owned && r.Confidence > bestConfidence {
			best = c
			bestConfidence = r.Confidence
			matched = true
		}
	}
	if !matched {
		err := &dlogerrors.OwnershipError{Path: norm, Level: ownership.Smart.String()}
		dlog.Printf(dlog.ComponentCompiledb, "%v; falling back to first-seen candidate %s", err, best)
	}
	return best
}

// Len reports how many file entries the store holds.
func (s *Store) Len() int {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return len(s.byPath)
}

// Generate invokes cmake to (re)generate compile_commands.json in
// buildDir for the CMake project at projectDir, for the
// `compile_commands.auto_generate` config option. Every cmake run gets
// `-DCMAKE_EXPORT_COMPILE_COMMANDS=ON` from runCMake. If the first run
// succeeds but leaves no compile_commands.json, cmake is re-run once
// with that flag also appended to cmakeArgs; a failed run is not retried.
func Generate(projectDir, buildDir string, cmakeArgs []string) (string, error) {
	if _, err := exec.LookPath("cmake"); err != nil {
		return "", &dlogerrors.ConfigError{Field: "compile_commands.auto_generate", Msg: "cmake not found in PATH", Err: err}
	}
	if _, err := os.Stat(filepath.Join(projectDir, "CMakeLists.txt")); err != nil {
		return "", &dlogerrors.ConfigError{Field: "compile_commands.auto_generate", Msg: "no CMakeLists.txt in " + projectDir, Err: err}
	}
	if err := os.MkdirAll(buildDir, 0o755); err != nil {
		return "", &dlogerrors.ConfigError{Field: "compile_commands.auto_generate", Msg: "cannot create build directory", Err: err}
	}

	outPath := filepath.Join(buildDir, "compile_commands.json")

	if err := runCMake(projectDir, buildDir, cmakeArgs); err != nil {
		return "", err
	}
	if _, err := os.Stat(outPath); err == nil {
		return outPath, nil
	}

	dlog.Printf(dlog.ComponentCompiledb, "compile_commands.json missing after first cmake run, retrying with -DCMAKE_EXPORT_COMPILE_COMMANDS=ON")
	retryArgs := append(append([]string{}, cmakeArgs...), "-DCMAKE_EXPORT_COMPILE_COMMANDS=ON")
	if err := runCMake(projectDir, buildDir, retryArgs); err != nil {
		return "", err
	}
	if _, err := os.Stat(outPath); err != nil {
		return "", &dlogerrors.ConfigError{Field: "compile_commands.auto_generate", Msg: "cmake ran but did not produce compile_commands.json", Err: err}
	}
	return outPath, nil
}

func runCMake(projectDir, buildDir string, args []string) error {
	fullArgs := append([]string{projectDir, "-DCMAKE_EXPORT_COMPILE_COMMANDS=ON"}, args...)
	cmd := exec.Command("cmake", fullArgs...)
	cmd.Dir = buildDir
	out, err := cmd.CombinedOutput()
	if err != nil {
		return &dlogerrors.ConfigError{Field: "compile_commands.auto_generate", Msg: fmt.Sprintf("cmake failed: %s", string(out)), Err: err}
	}
	return nil
}
