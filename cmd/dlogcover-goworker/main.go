// Command dlogcover-goworker is the out-of-process Go source analyzer
// the main binary's Go bridge delegates to: it reads a JSON request
// describing one file (or, in --mode=batch, a set of files) from disk, parses each with
// go/parser, classifies calls against the configured logging libraries,
// and writes a JSON response to stdout. Grounded on the teacher's
// internal/analysis/go_analyzer.go for the go/ast + go/parser + go/token
// walk, adapted to the worker wire protocol instead of an in-process API.
package main

import (
	"encoding/json"
	"flag"
	"fmt"
	"go/ast"
	"go/parser"
	"go/token"
	"os"
	"strings"
	"sync"

	"github.com/dlogcover/dlogcover/internal/goanalyzer"
)

func main() {
	mode := flag.String("mode", "single", "single|batch")
	configPath := flag.String("config", "", "path to the batch request JSON file")
	parallel := flag.Int("parallel", 0, "worker goroutine count for batch mode")
	_ = flag.String("output", "json", "output format (json is the only one supported)")
	flag.Parse()

	if *mode == "batch" {
		runBatch(*configPath, *parallel)
		return
	}

	args := flag.Args()
	if len(args) < 1 {
		emitSingleFailure("", "no request file provided")
		os.Exit(1)
	}
	runSingle(args[0])
}

func runSingle(requestPath string) {
	raw, err := os.ReadFile(requestPath)
	if err != nil {
		emitSingleFailure("", fmt.Sprintf("reading request file: %v", err))
		os.Exit(1)
	}

	var req goanalyzer.Request
	if err := json.Unmarshal(raw, &req); err != nil {
		emitSingleFailure("", fmt.Sprintf("parsing request JSON: %v", err))
		os.Exit(1)
	}

	resp := analyzeFile(req.FilePath, req.Config)
	json.NewEncoder(os.Stdout).Encode(resp)
}

func runBatch(requestPath string, parallel int) {
	raw, err := os.ReadFile(requestPath)
	if err != nil {
		emitBatchFailure(fmt.Sprintf("reading batch request file: %v", err))
		os.Exit(1)
	}

	var req goanalyzer.BatchRequest
	if err := json.Unmarshal(raw, &req); err != nil {
		emitBatchFailure(fmt.Sprintf("parsing batch request JSON: %v", err))
		os.Exit(1)
	}

	if parallel <= 0 {
		parallel = req.Parallel
	}
	if parallel <= 0 {
		parallel = 1
	}

	results := make([]goanalyzer.Response, len(req.Files))
	sem := make(chan struct{}, parallel)
	var wg sync.WaitGroup
	for i, path := range req.Files {
		wg.Add(1)
		sem <- struct{}{}
		go func(i int, path string) {
			defer wg.Done()
			defer func() { <-sem }()
			results[i] = analyzeFile(path, req.Config)
		}(i, path)
	}
	wg.Wait()

	stats := &goanalyzer.Statistics{ProcessedFiles: len(results)}
	for _, r := range results {
		stats.TotalFunctions += len(r.Functions)
		for _, fn := range r.Functions {
			stats.TotalLogCalls += len(fn.LogCalls)
		}
	}

	json.NewEncoder(os.Stdout).Encode(goanalyzer.BatchResponse{Results: results, Statistics: stats})
}

func analyzeFile(path string, cfg goanalyzer.WireConfig) goanalyzer.Response {
	fset := token.NewFileSet()
	astFile, err := parser.ParseFile(fset, path, nil, parser.AllErrors)
	if err != nil {
		return goanalyzer.Response{Success: false, Error: err.Error(), FilePath: path}
	}

	var functions []goanalyzer.Function
	for _, decl := range astFile.Decls {
		fn, ok := decl.(*ast.FuncDecl)
		if !ok || fn.Body == nil {
			continue
		}
		functions = append(functions, analyzeFunction(fset, fn, cfg))
	}

	return goanalyzer.Response{Success: true, FilePath: path, Functions: functions}
}

func analyzeFunction(fset *token.FileSet, fn *ast.FuncDecl, cfg goanalyzer.WireConfig) goanalyzer.Function {
	start := fset.Position(fn.Pos())
	end := fset.Position(fn.End())

	out := goanalyzer.Function{
		Name:      fn.Name.Name,
		Line:      start.Line,
		Column:    start.Column,
		EndLine:   end.Line,
		EndColumn: end.Column,
	}

	ast.Inspect(fn.Body, func(n ast.Node) bool {
		call, ok := n.(*ast.CallExpr)
		if !ok {
			return true
		}
		library, level, name, ok := classifyCall(call, cfg)
		if !ok {
			return true
		}
		pos := fset.Position(call.Pos())
		out.HasLogging = true
		out.LogCalls = append(out.LogCalls, goanalyzer.LogCall{
			FunctionName: name,
			Library:      library,
			Level:        level,
			Line:         pos.Line,
			Column:       pos.Column,
		})
		return true
	})

	return out
}

// classifyCall is pure name-set classification, mirroring the C++ front
// end's internal/logident approach: package-qualified calls (log.Print,
// slog.Info) are matched unambiguously by package identifier; receiver-
// style calls (logger.Info, sugar.Infof) are matched by function name
// alone against each configured library's function set, in a fixed
// priority order.
func classifyCall(call *ast.CallExpr, cfg goanalyzer.WireConfig) (library, level, name string, ok bool) {
	sel, isSel := call.Fun.(*ast.SelectorExpr)
	if !isSel {
		return "", "", "", false
	}
	name = sel.Sel.Name

	if ident, isIdent := sel.X.(*ast.Ident); isIdent {
		switch ident.Name {
		case "log":
			if cfg.StandardLog.Enabled && contains(cfg.StandardLog.Functions, name) {
				return "standard_log", levelFromName(name), name, true
			}
		case "slog":
			if cfg.Slog.Enabled && contains(cfg.Slog.Functions, name) {
				return "slog", levelFromName(name), name, true
			}
		}
	}

	if cfg.Logrus.Enabled && contains(cfg.Logrus.Functions, name) {
		return "logrus", levelFromName(name), name, true
	}
	if cfg.Zap.Enabled && (contains(cfg.Zap.LoggerFunctions, name) || contains(cfg.Zap.SugaredFunctions, name)) {
		return "zap", levelFromName(name), name, true
	}
	if cfg.Golib.Enabled && contains(cfg.Golib.Functions, name) {
		return "golib", levelFromName(name), name, true
	}
	return "", "", "", false
}

func contains(set []string, name string) bool {
	for _, s := range set {
		if s == name {
			return true
		}
	}
	return false
}

func levelFromName(name string) string {
	lower := strings.ToLower(name)
	switch {
	case strings.HasPrefix(lower, "fatal"), strings.HasPrefix(lower, "panic"):
		return "fatal"
	case strings.HasPrefix(lower, "debug"):
		return "debug"
	case strings.HasPrefix(lower, "warn"):
		return "warn"
	case strings.HasPrefix(lower, "error"):
		return "error"
	default:
		return "info"
	}
}

func emitSingleFailure(path, msg string) {
	json.NewEncoder(os.Stdout).Encode(goanalyzer.Response{Success: false, Error: msg, FilePath: path})
}

func emitBatchFailure(msg string) {
	json.NewEncoder(os.Stdout).Encode(goanalyzer.BatchResponse{
		Results: []goanalyzer.Response{{Success: false, Error: msg}},
	})
}
