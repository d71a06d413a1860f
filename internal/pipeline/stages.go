package pipeline

import (
	"os"
	"time"

	"github.com/dlogcover/dlogcover/internal/coverage"
	"github.com/dlogcover/dlogcover/internal/dlog"
	"github.com/dlogcover/dlogcover/internal/dlogerrors"
	"github.com/dlogcover/dlogcover/internal/types"
)

// parseOne implements stage 1, AST parsing: check the
// AST cache, and on miss invoke the language-appropriate front end
// through p.cfg.Parse. Only C++ files consult the shared astcache — Go
// files go through internal/goanalyzer's own bridge cache, so a second
// layer here would just duplicate content hashing for no benefit.
func (p *Pipeline) parseOne(file types.SourceFileInfo) *ParsedASTInfo {
	if p.cfg.Cache != nil && file.Lang == types.LangCpp {
		if entry, hit := p.cfg.Cache.Get(file.AbsPath, nil); hit {
			p.cacheHits.Add(1)
			return &ParsedASTInfo{File: file, Functions: entry.Root, FromCache: true}
		}
		p.cacheMisses.Add(1)
	}

	functions, err := p.cfg.Parse(file)
	if err != nil {
		p.parseErrors.Add(1)
		dlog.Printf(dlog.ComponentPipeline, "stage1: parse failed for %s: %v", file.AbsPath, err)
		return nil
	}

	if p.cfg.Cache != nil && file.Lang == types.LangCpp {
		if content, readErr := os.ReadFile(file.AbsPath); readErr == nil {
			if putErr := p.cfg.Cache.Put(file.AbsPath, functions, content, nil); putErr != nil {
				dlog.Printf(dlog.ComponentPipeline, "stage1: cache put failed for %s: %v", file.AbsPath, putErr)
			}
		}
	}

	return &ParsedASTInfo{File: file, Functions: functions}
}

// decomposeOne implements stage 2, function decomposition: one
// FunctionTask per top-level function/method, each carrying its
// computed complexity/priority.
func decomposeOne(info ParsedASTInfo) []FunctionTask {
	tasks := make([]FunctionTask, 0, len(info.Functions))
	for _, fn := range info.Functions {
		complexity := complexityOf(fn)
		tasks = append(tasks, FunctionTask{
			File:       info.File,
			Node:       fn,
			Complexity: complexity,
			Priority:   priorityOf(fn, complexity),
		})
	}
	return tasks
}

// analyzeOne implements stage 3, "Function Analysis": per-function
// coverage via the Coverage Calculator, at single-function granularity.
func analyzeOne(task FunctionTask, axes coverage.AxisEnables) FunctionAnalysisResult {
	start := time.Now()
	if task.Node == nil {
		return FunctionAnalysisResult{
			File:     task.File.AbsPath,
			Duration: time.Since(start),
			Err: &dlogerrors.AnalysisError{
				Path: task.File.AbsPath,
				Msg:  "stage 2 produced a task with no AST node",
			},
		}
	}
	stats := coverage.Compute([]*types.ASTNodeInfo{task.Node}, task.File.AbsPath, axes)
	return FunctionAnalysisResult{
		File:       task.File.AbsPath,
		Function:   task.Node.Name,
		Stats:      stats,
		Complexity: task.Complexity,
		Priority:   task.Priority,
		Duration:   time.Since(start),
	}
}
