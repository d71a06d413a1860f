// Package dispatcher is dlogcover's multi-language dispatcher: it
// decides which analyzer(s) handle a file set based on analysis.mode,
// routes files to the matching adapter, and merges their
// per-file results into one PipelineResults. Grounded on the teacher's
// internal/indexing/master_index.go scan→process→integrate staged
// orchestration, generalized here to a two-branch (cpp/go) fan-out
// instead of the teacher's N-language plugin registry.
package dispatcher

import (
	"context"
	"errors"
	"fmt"
	"runtime"
	"time"

	"golang.org/x/sync/errgroup"
	"golang.org/x/sync/semaphore"

	"github.com/dlogcover/dlogcover/internal/astcache"
	"github.com/dlogcover/dlogcover/internal/compiledb"
	"github.com/dlogcover/dlogcover/internal/config"
	"github.com/dlogcover/dlogcover/internal/coverage"
	"github.com/dlogcover/dlogcover/internal/cppfrontend"
	"github.com/dlogcover/dlogcover/internal/dlog"
	"github.com/dlogcover/dlogcover/internal/dlogerrors"
	"github.com/dlogcover/dlogcover/internal/goanalyzer"
	"github.com/dlogcover/dlogcover/internal/logident"
	"github.com/dlogcover/dlogcover/internal/pipeline"
	"github.com/dlogcover/dlogcover/internal/types"
)

// streamingDrainTimeout bounds how long Run waits for the three-stage
// pipeline to drain once every file has been submitted and closed.
const streamingDrainTimeout = 5 * time.Minute

// Dispatcher owns the per-language analyzers and the AST cache they
// share.
type Dispatcher struct {
	cfg   *config.Config
	cpp   *cppfrontend.Driver
	go_   *goanalyzer.Bridge
	ident *logident.Identifier
	cache *astcache.Cache
	store *compiledb.Store
	axes  coverage.AxisEnables
}

// New constructs a Dispatcher. The C++ driver is always built (tree-sitter
// has no external process dependency); the Go bridge degrades to
// disabled if the worker binary isn't found, per goanalyzer's own
// contract. store may be nil (no compile_commands.json was available);
// when present it's consulted per C++ file for diagnostic logging of the
// include/define set a real compiler would have seen — tree-sitter
// parses grammar only and doesn't expand macros or resolve includes, so
// the args can't change parse results, only explain them.
func New(cfg *config.Config, store *compiledb.Store) (*Dispatcher, error) {
	cpp, err := cppfrontend.New()
	if err != nil {
		return nil, err
	}
	var cache *astcache.Cache
	if cfg.Performance.EnableASTCache {
		cache = astcache.New(cfg.Performance.MaxCacheSize, 0)
	}
	return &Dispatcher{
		cfg:   cfg,
		cpp:   cpp,
		go_:   goanalyzer.New(cfg),
		ident: logident.New(cfg),
		cache: cache,
		store: store,
		axes: coverage.AxisEnables{
			Function:  cfg.Analysis.FunctionCoverage,
			Branch:    cfg.Analysis.BranchCoverage,
			Exception: cfg.Analysis.ExceptionCoverage,
			KeyPath:   cfg.Analysis.KeyPathCoverage,
		},
	}, nil
}

// logCompileInfo emits a debug line naming the include/define counts a
// real compiler would have used for f, when store has an entry for it.
func (d *Dispatcher) logCompileInfo(f types.SourceFileInfo) {
	if d.store == nil {
		return
	}
	if info, ok := d.store.Lookup(f.AbsPath); ok {
		dlog.Printf(dlog.ComponentDispatcher, "%s: %d include paths, %d defines from compile_commands.json",
			f.AbsPath, len(info.Includes), len(info.Defines))
	}
}

// Close releases the C++ driver's tree-sitter parser.
func (d *Dispatcher) Close() {
	d.cpp.Close()
}

// Run analyzes files according to cfg.Analysis.Mode and returns the
// merged, aggregated result.
//   - cpp_only routes every C++ file straight through the C++ analysis
//     path (batch or streaming, per config), bypassing any Go handling.
//   - go_only collects every Go file and batch-analyzes it.
//   - auto_detect runs both sets, concurrently when performance mode
//     permits parallelism, serially otherwise.
func (d *Dispatcher) Run(ctx context.Context, files []types.SourceFileInfo) (*types.PipelineResults, error) {
	results := types.NewPipelineResults()

	switch d.cfg.Analysis.Mode {
	case config.ModeCppOnly:
		cppFiles := filterLang(files, types.LangCpp)
		pr, err := d.runCpp(ctx, cppFiles)
		if err != nil {
			return nil, err
		}
		mergeProcessed(results, pr)

	case config.ModeGoOnly:
		goFiles := filterLang(files, types.LangGo)
		pr, err := d.runGo(goFiles)
		if err != nil {
			return nil, err
		}
		mergeProcessed(results, pr)

	case config.ModeAutoDetect:
		cppFiles := filterLang(files, types.LangCpp)
		goFiles := filterLang(files, types.LangGo)
		d.logDominantLanguage(files)

		if d.cfg.Performance.EnableParallelAnalysis && len(cppFiles) > 0 && len(goFiles) > 0 {
			var cppPR, goPR *types.PipelineResults
			g, gctx := errgroup.WithContext(ctx)
			g.Go(func() error {
				pr, err := d.runCpp(gctx, cppFiles)
				cppPR = pr
				return err
			})
			g.Go(func() error {
				pr, err := d.runGo(goFiles)
				goPR = pr
				return err
			})
			if err := g.Wait(); err != nil {
				return nil, err
			}
			mergeProcessed(results, cppPR)
			mergeProcessed(results, goPR)
		} else {
			cppPR, err := d.runCpp(ctx, cppFiles)
			if err != nil {
				return nil, err
			}
			goPR, err := d.runGo(goFiles)
			if err != nil {
				return nil, err
			}
			mergeProcessed(results, cppPR)
			mergeProcessed(results, goPR)
		}
	}

	var perFile []types.CoverageStats
	for _, fr := range results.Files {
		perFile = append(perFile, fr.Coverage)
	}
	results.Overall = coverage.Aggregate(perFile, d.axes)
	return results, nil
}

// logDominantLanguage implements the optional sampling heuristic: it
// examines up to AutoDetection.SampleSize files and, if one language
// clears ConfidenceThreshold, logs it as the project's dominant
// language. Informational only — every file is still analyzed by its
// matching analyzer regardless of the outcome.
func (d *Dispatcher) logDominantLanguage(files []types.SourceFileInfo) {
	sampleSize := d.cfg.Analysis.AutoDetection.SampleSize
	if sampleSize <= 0 || len(files) == 0 {
		return
	}
	if sampleSize > len(files) {
		sampleSize = len(files)
	}
	var cppCount, goCount int
	for _, f := range files[:sampleSize] {
		switch f.Lang {
		case types.LangCpp:
			cppCount++
		case types.LangGo:
			goCount++
		}
	}
	threshold := d.cfg.Analysis.AutoDetection.ConfidenceThreshold
	if float64(cppCount)/float64(sampleSize) >= threshold {
		dlog.Printf(dlog.ComponentDispatcher, "sampled %d files: dominant language cpp (informational)", sampleSize)
	} else if float64(goCount)/float64(sampleSize) >= threshold {
		dlog.Printf(dlog.ComponentDispatcher, "sampled %d files: dominant language go (informational)", sampleSize)
	}
}

// analyzeCpp parses and analyzes every C/C++ file, using the AST cache
// and, when performance mode allows it and more than one file is
// present, a worker fan-out bounded by Performance.MaxThreads. A set of
// zero or one file always runs serial, regardless of the flag.
func (d *Dispatcher) analyzeCpp(ctx context.Context, files []types.SourceFileInfo) ([]*types.FileResult, error) {
	if len(files) == 0 {
		return nil, nil
	}
	if !d.cfg.Performance.EnableParallelAnalysis || len(files) <= 1 {
		out := make([]*types.FileResult, 0, len(files))
		for _, f := range files {
			out = append(out, d.analyzeCppFile(f))
		}
		return out, nil
	}

	out := make([]*types.FileResult, len(files))
	sem := semaphore.NewWeighted(int64(workerLimit(d.cfg)))
	g, gctx := errgroup.WithContext(ctx)
	for i, f := range files {
		i, f := i, f
		if err := sem.Acquire(gctx, 1); err != nil {
			break
		}
		g.Go(func() error {
			defer sem.Release(1)
			out[i] = d.analyzeCppFile(f)
			return nil
		})
	}
	if err := g.Wait(); err != nil {
		return nil, err
	}
	return out, nil
}

func (d *Dispatcher) analyzeCppFile(f types.SourceFileInfo) *types.FileResult {
	d.logCompileInfo(f)
	var functions []*types.ASTNodeInfo
	content := []byte(f.Content)

	if d.cache != nil {
		if entry, ok := d.cache.Get(f.AbsPath, nil); ok {
			functions = entry.Root
		}
	}
	if functions == nil {
		result := d.cpp.ParseFile(f.AbsPath, content, d.ident)
		if !result.ParseSuccess {
			return &types.FileResult{Path: f.AbsPath, Lang: types.LangCpp, ParseSuccess: false, ParseError: result.Diagnostic}
		}
		functions = result.Functions
		if d.cache != nil {
			_ = d.cache.Put(f.AbsPath, functions, content, nil)
		}
	}

	return &types.FileResult{
		Path:         f.AbsPath,
		Lang:         types.LangCpp,
		ParseSuccess: true,
		Root:         functions,
		Coverage:     coverage.Compute(functions, f.AbsPath, d.axes),
	}
}

// analyzeGo batch-analyzes every Go file through the bridge in one
// worker invocation; AnalyzeBatch itself applies the single-file serial
// guard.
func (d *Dispatcher) analyzeGo(files []types.SourceFileInfo) ([]*types.FileResult, error) {
	if len(files) == 0 || !d.go_.IsEnabled() {
		return nil, nil
	}
	paths := make([]string, len(files))
	for i, f := range files {
		paths[i] = f.AbsPath
	}

	forests, err := d.go_.AnalyzeBatch(paths, workerLimit(d.cfg))
	if err != nil {
		return nil, err
	}

	out := make([]*types.FileResult, 0, len(files))
	for _, f := range files {
		functions := forests[f.AbsPath]
		out = append(out, &types.FileResult{
			Path:         f.AbsPath,
			Lang:         types.LangGo,
			ParseSuccess: true,
			Root:         functions,
			Coverage:     coverage.Compute(functions, f.AbsPath, d.axes),
		})
	}
	return out, nil
}

// runCpp routes C/C++ files through the streaming three-stage pipeline
// when Performance.EnableStreamingPipeline is set, else through the
// direct per-file batch path.
func (d *Dispatcher) runCpp(ctx context.Context, files []types.SourceFileInfo) (*types.PipelineResults, error) {
	if d.cfg.Performance.EnableStreamingPipeline {
		return d.analyzeCppStreaming(ctx, files)
	}
	frs, err := d.analyzeCpp(ctx, files)
	if err != nil {
		return nil, err
	}
	pr := types.NewPipelineResults()
	addResults(pr, frs)
	return pr, nil
}

func (d *Dispatcher) runGo(files []types.SourceFileInfo) (*types.PipelineResults, error) {
	frs, err := d.analyzeGo(files)
	if err != nil {
		return nil, err
	}
	pr := types.NewPipelineResults()
	addResults(pr, frs)
	return pr, nil
}

// analyzeCppStreaming feeds files through internal/pipeline's bounded
// parse/decompose/analyze stages, an opt-in alternative to the direct
// batch path. Function-level priority scheduling and backpressure-drop
// accounting come from the pipeline package itself; this just wires the
// C++ front end and AST cache in as the stage-1 ParseFunc/Cache.
func (d *Dispatcher) analyzeCppStreaming(ctx context.Context, files []types.SourceFileInfo) (*types.PipelineResults, error) {
	if len(files) == 0 {
		return types.NewPipelineResults(), nil
	}

	p := pipeline.New(pipeline.Config{
		ParseWorkers:       d.cfg.Performance.PipelineParseWorkers,
		DecomposeWorkers:   d.cfg.Performance.PipelineDecomposeWorkers,
		AnalyzeWorkers:     d.cfg.Performance.PipelineAnalyzeWorkers,
		Parse:              d.parseCppForPipeline,
		Cache:              d.cache,
		Axes:               d.axes,
		PriorityScheduling: d.cfg.Performance.PipelinePriorityScheduling,
	})

	p.Start(ctx)
	for _, f := range files {
		if !p.Submit(f, ctx.Done()) {
			break
		}
	}
	p.Close()

	if !p.WaitForCompletion(streamingDrainTimeout) {
		return nil, &dlogerrors.PipelineError{
			Stage: "drain",
			Msg:   fmt.Sprintf("did not drain within %s", streamingDrainTimeout),
		}
	}
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	if err := p.Errors(); err != nil {
		dlog.Printf(dlog.ComponentDispatcher, "streaming pipeline recorded per-function analysis errors: %v", err)
	}
	return p.Results(), nil
}

// parseCppForPipeline adapts the C++ driver to pipeline.ParseFunc; stage
// 1 already consults the shared AST cache before calling this, so it
// always does a real parse.
func (d *Dispatcher) parseCppForPipeline(f types.SourceFileInfo) ([]*types.ASTNodeInfo, error) {
	d.logCompileInfo(f)
	result := d.cpp.ParseFile(f.AbsPath, []byte(f.Content), d.ident)
	if !result.ParseSuccess {
		return nil, errors.New(result.Diagnostic)
	}
	return result.Functions, nil
}

// mergeProcessed folds one language's PipelineResults into the run's
// combined results. Safe to call sequentially after both legs of an
// auto_detect run complete; never call it concurrently from both legs.
func mergeProcessed(into, from *types.PipelineResults) {
	if from == nil {
		return
	}
	for path, fr := range from.Files {
		into.Files[path] = fr
	}
	into.ParseErrors += from.ParseErrors
	into.DroppedPackets += from.DroppedPackets
}

func filterLang(files []types.SourceFileInfo, lang types.Language) []types.SourceFileInfo {
	var out []types.SourceFileInfo
	for _, f := range files {
		if f.Lang == lang {
			out = append(out, f)
		}
	}
	return out
}

func addResults(into *types.PipelineResults, frs []*types.FileResult) {
	for _, fr := range frs {
		if fr == nil {
			continue
		}
		into.Files[fr.Path] = fr
		if !fr.ParseSuccess {
			into.ParseErrors++
		}
	}
}

func workerLimit(cfg *config.Config) int {
	if cfg.Performance.MaxThreads > 0 {
		return cfg.Performance.MaxThreads
	}
	if n := runtime.NumCPU(); n > 0 {
		return n
	}
	return 1
}
