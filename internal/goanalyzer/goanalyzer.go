package goanalyzer

import (
	"encoding/json"
	"os"
	"os/exec"
	"path/filepath"
	"strconv"

	"github.com/dlogcover/dlogcover/internal/config"
	"github.com/dlogcover/dlogcover/internal/dlog"
	"github.com/dlogcover/dlogcover/internal/dlogerrors"
	"github.com/dlogcover/dlogcover/internal/pathutil"
	"github.com/dlogcover/dlogcover/internal/types"
)

const workerBinaryName = "dlogcover-goworker"

// Bridge implements the shared language-analyzer contract for Go
// source by shelling out to cmd/dlogcover-goworker. Grounded on the
// teacher's own internal/analysis/go_analyzer.go for what a Go source
// analyzer needs to report, but kept out-of-process so a panic in
// go/parser on malformed input can't take down the main analysis run.
type Bridge struct {
	workerPath string
	enabled    bool
	wireConfig WireConfig
	cache      *bridgeCache
}

// New searches a fixed ordered list of candidate locations for the worker
// binary. If none is found the bridge is disabled: every call becomes a
// no-op success.
func New(cfg *config.Config) *Bridge {
	b := &Bridge{cache: newBridgeCache(), wireConfig: toWireConfig(cfg)}

	for _, candidate := range candidateLocations() {
		if info, err := os.Stat(candidate); err == nil && !info.IsDir() && isExecutable(info) {
			b.workerPath = candidate
			b.enabled = true
			break
		}
	}
	if !b.enabled {
		dlog.Printf(dlog.ComponentGoAnalyzer, "worker binary %q not found in any candidate location; Go analysis disabled", workerBinaryName)
	}
	return b
}

func candidateLocations() []string {
	var out []string

	if exe, err := os.Executable(); err == nil {
		out = append(out, filepath.Join(filepath.Dir(exe), workerBinaryName))
	}
	out = append(out, filepath.Join(".", "build", "bin", workerBinaryName))
	out = append(out, filepath.Join(".", "tools", "go-analyzer", workerBinaryName))
	if p, err := exec.LookPath(workerBinaryName); err == nil {
		out = append(out, p)
	}
	return out
}

func isExecutable(info os.FileInfo) bool {
	return info.Mode()&0o111 != 0
}

// IsEnabled reports whether the worker binary was found.
func (b *Bridge) IsEnabled() bool { return b.enabled }

// LanguageName satisfies the analyzer contract.
func (b *Bridge) LanguageName() string { return "go" }

// SupportedExtensions satisfies the analyzer contract.
func (b *Bridge) SupportedExtensions() []string { return []string{".go"} }

// AnalyzeFile runs the worker on a single file and returns its function
// forest. A disabled bridge (no worker) returns an empty, non-error
// result: the worker's absence is the only case that "succeeds" by
// skipping the file. A worker that cannot be run, returns unparsable
// output, or reports its own failure yields a GoWorkerError.
func (b *Bridge) AnalyzeFile(path string, content []byte) ([]*types.ASTNodeInfo, error) {
	if !b.enabled {
		return nil, nil
	}

	canonPath, err := pathutil.Canonical(path)
	if err != nil {
		canonPath = path
	}
	hash := contentHashHex(content)

	if cached, ok := b.cache.get(canonPath, hash); ok {
		return cached, nil
	}

	reqFile, err := writeTempJSON("dlogcover-goreq-*.json", Request{FilePath: path, Config: b.wireConfig})
	if err != nil {
		return nil, &dlogerrors.GoWorkerError{Path: path, Msg: "writing request file", Err: err}
	}
	defer os.Remove(reqFile)

	out, err := exec.Command(b.workerPath, reqFile).Output()
	if err != nil {
		return nil, &dlogerrors.GoWorkerError{Path: path, Msg: "invoking worker", Err: err}
	}

	var resp Response
	if err := json.Unmarshal(out, &resp); err != nil {
		return nil, &dlogerrors.GoWorkerError{Path: path, Msg: "parsing worker response", Err: err}
	}
	if !resp.Success {
		return nil, &dlogerrors.GoWorkerError{Path: path, Msg: resp.Error}
	}

	functions := toNodeForest(resp.Functions, canonPath)
	b.cache.put(canonPath, hash, functions)
	return functions, nil
}

// AnalyzeBatch runs the worker once over every file in paths, keyed by
// original (pre-canonicalization) path in the returned map.
func (b *Bridge) AnalyzeBatch(paths []string, parallel int) (map[string][]*types.ASTNodeInfo, error) {
	if !b.enabled {
		return nil, nil
	}
	if len(paths) <= 1 {
		// The single-file-forces-serial regression guard applies here
		// too: a batch of zero or one file is just AnalyzeFile.
		out := make(map[string][]*types.ASTNodeInfo, len(paths))
		for _, p := range paths {
			content, err := os.ReadFile(p)
			if err != nil {
				continue
			}
			forest, err := b.AnalyzeFile(p, content)
			if err != nil {
				return nil, err
			}
			out[p] = forest
		}
		return out, nil
	}

	reqFile, err := writeTempJSON("dlogcover-gobatch-*.json", BatchRequest{Files: paths, Parallel: parallel, Config: b.wireConfig})
	if err != nil {
		return nil, &dlogerrors.GoWorkerError{Msg: "writing batch request file", Err: err}
	}
	defer os.Remove(reqFile)

	args := []string{
		"--mode=batch",
		"--config=" + reqFile,
		"--parallel=" + strconv.Itoa(parallel),
		"--output=json",
	}
	out, err := exec.Command(b.workerPath, args...).Output()
	if err != nil {
		return nil, &dlogerrors.GoWorkerError{Msg: "invoking worker in batch mode", Err: err}
	}

	var batchResp BatchResponse
	if err := json.Unmarshal(out, &batchResp); err != nil {
		return nil, &dlogerrors.GoWorkerError{Msg: "parsing batch worker response", Err: err}
	}

	results := make(map[string][]*types.ASTNodeInfo, len(batchResp.Results))
	for _, r := range batchResp.Results {
		if !r.Success {
			dlog.Printf(dlog.ComponentGoAnalyzer, "worker reported failure for %s: %s", r.FilePath, r.Error)
			continue
		}
		canonPath, err := pathutil.Canonical(r.FilePath)
		if err != nil {
			canonPath = r.FilePath
		}
		forest := toNodeForest(r.Functions, canonPath)
		results[r.FilePath] = forest
	}
	return results, nil
}

// CacheStats exposes the bridge's own cache counters.
func (b *Bridge) CacheStats() (hits, misses int64, approxBytes int64) {
	return b.cache.stats()
}

func writeTempJSON(pattern string, v any) (string, error) {
	f, err := os.CreateTemp("", pattern)
	if err != nil {
		return "", err
	}
	defer f.Close()

	enc := json.NewEncoder(f)
	if err := enc.Encode(v); err != nil {
		os.Remove(f.Name())
		return "", err
	}
	return f.Name(), nil
}

func toWireConfig(cfg *config.Config) WireConfig {
	return WireConfig{
		StandardLog: WireGoLibrary{Enabled: cfg.Go.StandardLog.Enabled, Functions: cfg.Go.StandardLog.Functions},
		Slog:        WireGoLibrary{Enabled: true, Functions: []string{"Debug", "Info", "Warn", "Error"}},
		Logrus:      WireGoLibrary{Enabled: cfg.Go.Logrus.Enabled, Functions: cfg.Go.Logrus.Functions},
		Zap: WireGoLibrary{
			Enabled:          cfg.Go.Zap.Enabled,
			LoggerFunctions:  cfg.Go.Zap.LoggerFunctions,
			SugaredFunctions: cfg.Go.Zap.SugaredFunctions,
		},
		Golib: WireGoLibrary{Enabled: cfg.Go.Golib.Enabled, Functions: cfg.Go.Golib.Functions},
	}
}

func toNodeForest(functions []Function, file string) []*types.ASTNodeInfo {
	forest := make([]*types.ASTNodeInfo, 0, len(functions))
	for _, fn := range functions {
		node := &types.ASTNodeInfo{
			Kind:        types.KindFunction,
			Name:        fn.Name,
			Location:    types.Location{File: file, Line: fn.Line, Column: fn.Column},
			EndLocation: types.Location{File: file, Line: fn.EndLine, Column: fn.EndColumn},
			HasLogging:  fn.HasLogging,
		}
		for _, call := range fn.LogCalls {
			node.Children = append(node.Children, &types.ASTNodeInfo{
				Kind:       types.KindLogCallExpr,
				Name:       call.FunctionName,
				Location:   types.Location{File: file, Line: call.Line, Column: call.Column},
				HasLogging: true,
				LogCall: &types.LogCallSite{
					Location:     types.Location{File: file, Line: call.Line, Column: call.Column},
					FunctionName: call.FunctionName,
					Library:      libraryFromWire(call.Library),
					Level:        levelFromWire(call.Level),
					Shape:        types.ShapeFunction,
				},
			})
		}
		forest = append(forest, node)
	}
	return forest
}

func libraryFromWire(s string) types.LogLibrary {
	switch s {
	case "standard_log":
		return types.LibGoStd
	case "slog":
		return types.LibGoSlog
	case "logrus":
		return types.LibLogrus
	case "zap":
		return types.LibZap
	case "golib":
		return types.LibGolib
	default:
		return types.LibNone
	}
}

func levelFromWire(s string) types.LogLevel {
	switch s {
	case "debug":
		return types.LevelDebug
	case "info":
		return types.LevelInfo
	case "warn", "warning":
		return types.LevelWarning
	case "error":
		return types.LevelError
	case "fatal":
		return types.LevelFatal
	default:
		return types.LevelUnknown
	}
}
