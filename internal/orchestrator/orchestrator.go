// Package orchestrator is dlogcover's run-lifecycle owner: it owns the
// frozen Config snapshot, the source-file
// enumeration result, the compile-commands store, the dispatcher, and
// the coverage calculator, and drives the run: load/validate config,
// enumerate sources, dispatch, drain, aggregate coverage. Grounded on
// the teacher's internal/indexing/master_index.go IndexDirectory run
// sequence and cmd/lci/main.go's config→indexer→reporter wiring.
package orchestrator

import (
	"context"
	"fmt"
	"path/filepath"

	"github.com/dlogcover/dlogcover/internal/compiledb"
	"github.com/dlogcover/dlogcover/internal/config"
	"github.com/dlogcover/dlogcover/internal/dispatcher"
	"github.com/dlogcover/dlogcover/internal/dlog"
	"github.com/dlogcover/dlogcover/internal/sourcecollector"
	"github.com/dlogcover/dlogcover/internal/types"
)

// SourceCollectionError reports a fatal failure enumerating source
// files — distinct from the per-file kinds in internal/dlogerrors
// since no single file is at fault.
type SourceCollectionError struct {
	Dir string
	Err error
}

func (e *SourceCollectionError) Error() string {
	return fmt.Sprintf("orchestrator: enumerating sources under %s: %v", e.Dir, e.Err)
}

func (e *SourceCollectionError) Unwrap() error { return e.Err }

// Orchestrator runs one complete analysis pass over a frozen Config.
type Orchestrator struct {
	Config       *config.Config
	CompileStore *compiledb.Store
	dispatcher   *dispatcher.Dispatcher
	collector    *sourcecollector.Collector
}

// New loads and validates the project configuration rooted at
// projectRoot, then builds an Orchestrator from it.
func New(projectRoot string) (*Orchestrator, error) {
	cfg, err := config.Load(projectRoot)
	if err != nil {
		return nil, err
	}
	return NewWithConfig(cfg)
}

// NewWithConfig builds an Orchestrator from an already-loaded,
// already-validated Config. New calls it after loading the config from
// disk; tests call it with a Config built in memory.
func NewWithConfig(cfg *config.Config) (*Orchestrator, error) {
	store := compiledb.New(cfg.Scan.ExcludePatterns...)
	if err := loadCompileCommands(cfg, store); err != nil {
		dlog.Printf(dlog.ComponentOrch, "compile-commands unavailable, proceeding with fallback args: %v", err)
	}

	disp, err := dispatcher.New(cfg, store)
	if err != nil {
		return nil, err
	}

	return &Orchestrator{
		Config:       cfg,
		CompileStore: store,
		dispatcher:   disp,
		collector:    sourcecollector.New(cfg),
	}, nil
}

// loadCompileCommands resolves compile_commands.json: an explicit path
// is used as-is; otherwise, if auto_generate is set, cmake is invoked
// to produce one in the configured build directory. A failure here is
// a downgraded warning, not a fatal run error — the C++ adapter
// proceeds without compile args.
func loadCompileCommands(cfg *config.Config, store *compiledb.Store) error {
	path := cfg.CompileCommands.Path
	if path == "" && cfg.CompileCommands.AutoGenerate {
		buildDir := cfg.Project.BuildDirectory
		if buildDir == "" {
			buildDir = filepath.Join(cfg.Project.Directory, "build")
		}
		generated, err := compiledb.Generate(cfg.Project.Directory, buildDir, cfg.CompileCommands.CMakeArgs)
		if err != nil {
			return err
		}
		path = generated
	}
	if path == "" {
		return nil
	}
	if err := store.Load(path); err != nil {
		return err
	}
	return store.LoadSidecar(path)
}

// Close releases the dispatcher's per-language adapters.
func (o *Orchestrator) Close() {
	o.dispatcher.Close()
}

// Run executes the full analysis pass: enumerate sources, dispatch,
// drain, and return the aggregated PipelineResults. The returned error,
// when non-nil, is typed for ExitCode's mapping to a process exit code.
func (o *Orchestrator) Run(ctx context.Context) (*types.PipelineResults, error) {
	files, err := o.collector.CollectAll(ctx)
	if err != nil {
		return nil, &SourceCollectionError{Dir: o.Config.Project.Directory, Err: err}
	}
	dlog.Printf(dlog.ComponentOrch, "enumerated %d source files under %s", len(files), o.Config.Project.Directory)

	results, err := o.dispatcher.Run(ctx, files)
	if err != nil {
		return nil, err
	}

	dlog.Printf(dlog.ComponentOrch, "analysis complete: %d files, overall coverage %.2f", len(results.Files), results.Overall.Overall)
	return results, nil
}
