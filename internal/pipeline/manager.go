package pipeline

import (
	"context"
	"sync"
	"sync/atomic"
	"time"

	"github.com/dlogcover/dlogcover/internal/astcache"
	"github.com/dlogcover/dlogcover/internal/coverage"
	"github.com/dlogcover/dlogcover/internal/dlogerrors"
	"github.com/dlogcover/dlogcover/internal/types"
)

// Config configures a Pipeline. Worker counts default to 2/1/4
// (parse/decompose/analyze) when left at zero.
type Config struct {
	ParseWorkers     int
	DecomposeWorkers int
	AnalyzeWorkers   int
	QueueCapacity    int

	// Parse is the stage-1 front end; see ParseFunc.
	Parse ParseFunc
	// Cache is consulted (C++ files only) before calling Parse. Nil
	// disables caching.
	Cache *astcache.Cache
	// Axes selects which coverage axes stage 3 computes.
	Axes coverage.AxisEnables
	// PriorityScheduling feeds stage 3 in FunctionTask.Priority order
	// instead of arrival order.
	PriorityScheduling bool
}

func (c Config) withDefaults() Config {
	if c.ParseWorkers <= 0 {
		c.ParseWorkers = 2
	}
	if c.DecomposeWorkers <= 0 {
		c.DecomposeWorkers = 1
	}
	if c.AnalyzeWorkers <= 0 {
		c.AnalyzeWorkers = 4
	}
	if c.QueueCapacity <= 0 {
		c.QueueCapacity = 256
	}
	return c
}

// Pipeline is the three-stage parse -> decompose -> analyze engine.
// Submit files, call Close once input is exhausted, then
// WaitForCompletion to drain every in-flight packet.
type Pipeline struct {
	cfg Config

	stage1In *queue[types.SourceFileInfo]
	stage2In *queue[ParsedASTInfo]
	stage3In taskQueue

	parseErrors atomic.Int64
	cacheHits   atomic.Int64
	cacheMisses atomic.Int64

	resultsMu sync.Mutex
	results   *types.PipelineResults
	errs      dlogerrors.MultiError

	closeOnce sync.Once
	drained   chan struct{}
	started   bool
}

// New builds a Pipeline ready for Start.
func New(cfg Config) *Pipeline {
	cfg = cfg.withDefaults()
	p := &Pipeline{
		cfg:      cfg,
		stage1In: newQueue[types.SourceFileInfo](cfg.QueueCapacity),
		stage2In: newQueue[ParsedASTInfo](cfg.QueueCapacity),
		results:  types.NewPipelineResults(),
		drained:  make(chan struct{}),
	}
	if cfg.PriorityScheduling {
		p.stage3In = newPriorityTaskQueue(cfg.QueueCapacity)
	} else {
		p.stage3In = newFIFOTaskQueue(cfg.QueueCapacity)
	}
	return p
}

// Start launches every stage's worker pool plus the monitor. ctx
// cancellation is the stop-requested signal: workers check it between
// packets and give up without finishing the in-flight backlog.
func (p *Pipeline) Start(ctx context.Context) {
	if p.started {
		return
	}
	p.started = true

	var wg1, wg2, wg3 sync.WaitGroup
	for i := 0; i < p.cfg.ParseWorkers; i++ {
		wg1.Add(1)
		go func() {
			defer wg1.Done()
			p.runParseWorker(ctx)
		}()
	}
	go func() {
		wg1.Wait()
		p.stage2In.close()
	}()

	for i := 0; i < p.cfg.DecomposeWorkers; i++ {
		wg2.Add(1)
		go func() {
			defer wg2.Done()
			p.runDecomposeWorker(ctx)
		}()
	}
	go func() {
		wg2.Wait()
		p.stage3In.close()
	}()

	for i := 0; i < p.cfg.AnalyzeWorkers; i++ {
		wg3.Add(1)
		go func() {
			defer wg3.Done()
			p.runAnalyzeWorker(ctx)
		}()
	}
	go func() {
		wg3.Wait()
		close(p.drained)
	}()

	go p.monitorLoop(ctx)
}

// Submit enqueues one source file into stage 1. It may be called
// concurrently with Start's workers already running, but must not be
// called after Close.
func (p *Pipeline) Submit(file types.SourceFileInfo, done <-chan struct{}) bool {
	return p.stage1In.tryEnqueue(file, done)
}

// Close is idempotent and signals that no more files will be submitted;
// stage 1 workers exit once the queue drains, cascading a close down
// every later stage.
func (p *Pipeline) Close() {
	p.closeOnce.Do(func() { p.stage1In.close() })
}

// WaitForCompletion blocks until every stage has drained or timeout
// elapses, returning false on timeout.
func (p *Pipeline) WaitForCompletion(timeout time.Duration) bool {
	select {
	case <-p.drained:
		return true
	case <-time.After(timeout):
		return false
	}
}

// Results returns the aggregate built from every stage-3 output so far.
// Safe to call before draining completes for a progress snapshot.
func (p *Pipeline) Results() *types.PipelineResults {
	p.resultsMu.Lock()
	defer p.resultsMu.Unlock()
	snapshot := types.NewPipelineResults()
	for k, v := range p.results.Files {
		snapshot.Files[k] = v
	}
	snapshot.DroppedPackets = p.stage1In.droppedCount() + p.stage2In.droppedCount() + p.stage3In.droppedCount()
	snapshot.ParseErrors = p.parseErrors.Load()
	return snapshot
}

func (p *Pipeline) runParseWorker(ctx context.Context) {
	for {
		select {
		case file, ok := <-p.stage1In.ch:
			if !ok {
				return
			}
			if info := p.parseOne(file); info != nil {
				p.stage2In.tryEnqueue(*info, ctx.Done())
			}
		case <-ctx.Done():
			return
		}
	}
}

func (p *Pipeline) runDecomposeWorker(ctx context.Context) {
	for {
		select {
		case info, ok := <-p.stage2In.ch:
			if !ok {
				return
			}
			for _, task := range decomposeOne(info) {
				p.stage3In.enqueue(task, ctx.Done())
			}
		case <-ctx.Done():
			return
		}
	}
}

func (p *Pipeline) runAnalyzeWorker(ctx context.Context) {
	for {
		task, ok := p.stage3In.dequeue(ctx.Done())
		if !ok {
			return
		}
		result := analyzeOne(task, p.cfg.Axes)
		p.recordResult(result)
	}
}

func (p *Pipeline) recordResult(result FunctionAnalysisResult) {
	p.resultsMu.Lock()
	defer p.resultsMu.Unlock()

	if result.Err != nil {
		p.errs.Add(result.Err)
		return
	}

	fr, ok := p.results.Files[result.File]
	if !ok {
		fr = &types.FileResult{Path: result.File, ParseSuccess: true}
		p.results.Files[result.File] = fr
	}
	fr.Coverage = mergeStats(fr.Coverage, result.Stats)
}

// Errors returns the accumulated stage-3 failures as one error (nil if
// none occurred), aggregating them with dlogerrors.MultiError rather
// than surfacing only the first. Safe to call before draining
// completes for a progress snapshot, same as Results.
func (p *Pipeline) Errors() error {
	p.resultsMu.Lock()
	defer p.resultsMu.Unlock()
	return p.errs.ErrOrNil()
}

// mergeStats folds one function's CoverageStats into a running per-file
// total, summing each axis's Total/Covered and concatenating
// uncovered-path records.
func mergeStats(into, add types.CoverageStats) types.CoverageStats {
	if into.Axes == nil {
		into.Axes = make(map[types.CoverageAxis]types.AxisStats)
	}
	for axis, stats := range add.Axes {
		existing := into.Axes[axis]
		existing.Total += stats.Total
		existing.Covered += stats.Covered
		into.Axes[axis] = existing
	}
	into.UncoveredPaths = append(into.UncoveredPaths, add.UncoveredPaths...)
	return into
}
