package pipeline

import (
	"context"
	"fmt"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/goleak"

	"github.com/dlogcover/dlogcover/internal/coverage"
	"github.com/dlogcover/dlogcover/internal/dlogerrors"
	"github.com/dlogcover/dlogcover/internal/types"
)

// TestMain checks the whole package for goroutine leaks once every test
// has run: a worker or monitorLoop that outlives its Pipeline shows up
// here even if the individual test that spawned it doesn't check.
func TestMain(m *testing.M) {
	goleak.VerifyTestMain(m)
}

func fn(name string, hasLogging bool, children ...*types.ASTNodeInfo) *types.ASTNodeInfo {
	return &types.ASTNodeInfo{
		Kind:       types.KindFunction,
		Name:       name,
		Text:       name + "()",
		HasLogging: hasLogging,
		Children:   children,
	}
}

func logCall() *types.ASTNodeInfo {
	return &types.ASTNodeInfo{Kind: types.KindLogCallExpr, HasLogging: true, LogCall: &types.LogCallSite{}}
}

func stubParse(forest map[string][]*types.ASTNodeInfo) ParseFunc {
	return func(file types.SourceFileInfo) ([]*types.ASTNodeInfo, error) {
		nodes, ok := forest[file.AbsPath]
		if !ok {
			return nil, fmt.Errorf("no fixture for %s", file.AbsPath)
		}
		return nodes, nil
	}
}

func TestPipelineEndToEndProducesCoverage(t *testing.T) {
	forest := map[string][]*types.ASTNodeInfo{
		"/a.cpp": {fn("covered", true, logCall()), fn("uncovered", false)},
	}
	p := New(Config{
		Parse: stubParse(forest),
		Axes:  coverage.AxisEnables{Function: true},
	})
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	p.Start(ctx)

	require.True(t, p.Submit(types.SourceFileInfo{AbsPath: "/a.cpp", Lang: types.LangCpp}, ctx.Done()))
	p.Close()
	require.True(t, p.WaitForCompletion(2*time.Second))

	results := p.Results()
	fr, ok := results.Files["/a.cpp"]
	require.True(t, ok)
	axis := fr.Coverage.Axes[types.AxisFunction]
	assert.Equal(t, 2, axis.Total)
	assert.Equal(t, 1, axis.Covered)
	assert.Zero(t, results.ParseErrors)
}

func TestPipelineRecordsParseErrors(t *testing.T) {
	p := New(Config{
		Parse: stubParse(map[string][]*types.ASTNodeInfo{}),
		Axes:  coverage.AxisEnables{Function: true},
	})
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	p.Start(ctx)

	require.True(t, p.Submit(types.SourceFileInfo{AbsPath: "/missing.cpp"}, ctx.Done()))
	p.Close()
	require.True(t, p.WaitForCompletion(2*time.Second))

	results := p.Results()
	assert.Equal(t, int64(1), results.ParseErrors)
	assert.NotContains(t, results.Files, "/missing.cpp")
}

func TestPipelinePrioritySchedulingAnalyzesEveryFunction(t *testing.T) {
	forest := map[string][]*types.ASTNodeInfo{
		"/main.cpp": {fn("main", false), fn("helper", false)},
	}
	p := New(Config{
		Parse:              stubParse(forest),
		Axes:               coverage.AxisEnables{Function: true},
		AnalyzeWorkers:     1,
		PriorityScheduling: true,
	})
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	p.Start(ctx)

	require.True(t, p.Submit(types.SourceFileInfo{AbsPath: "/main.cpp", Lang: types.LangCpp}, ctx.Done()))
	p.Close()
	require.True(t, p.WaitForCompletion(2*time.Second))

	results := p.Results()
	fr, ok := results.Files["/main.cpp"]
	require.True(t, ok)
	axis := fr.Coverage.Axes[types.AxisFunction]
	assert.Equal(t, 2, axis.Total)
}

// TestPipelineCloseIsIdempotentAndLeakFree drives Close concurrently
// from several goroutines (the stated contract: Close may be called
// more than once) and then verifies, via goleak, that every worker and
// the monitor have actually exited rather than blocking on a channel.
func TestPipelineCloseIsIdempotentAndLeakFree(t *testing.T) {
	defer goleak.VerifyNone(t)

	p := New(Config{
		Parse: stubParse(map[string][]*types.ASTNodeInfo{}),
		Axes:  coverage.AxisEnables{Function: true},
	})
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	p.Start(ctx)

	var wg sync.WaitGroup
	for i := 0; i < 8; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			p.Close()
		}()
	}
	wg.Wait()

	require.True(t, p.WaitForCompletion(2*time.Second))
}

// TestPipelineContextCancelDrainsWithoutLeaking exercises the other
// stop path: canceling ctx before Close, confirming every worker
// observes ctx.Done and returns instead of blocking forever on a full
// or empty queue.
func TestPipelineContextCancelDrainsWithoutLeaking(t *testing.T) {
	defer goleak.VerifyNone(t)

	p := New(Config{
		Parse: stubParse(map[string][]*types.ASTNodeInfo{}),
		Axes:  coverage.AxisEnables{Function: true},
	})
	ctx, cancel := context.WithCancel(context.Background())
	p.Start(ctx)
	cancel()
	p.Close()

	require.True(t, p.WaitForCompletion(2*time.Second))
}

func TestAnalyzeOneReportsAnalysisErrorForNilNode(t *testing.T) {
	task := FunctionTask{File: types.SourceFileInfo{AbsPath: "/a.cpp"}}
	result := analyzeOne(task, coverage.AxisEnables{Function: true})
	require.Error(t, result.Err)

	var analysisErr *dlogerrors.AnalysisError
	require.ErrorAs(t, result.Err, &analysisErr)
	assert.Equal(t, "/a.cpp", analysisErr.Path)
}

func TestPipelineAggregatesAnalysisErrorsWithoutFailingTheRun(t *testing.T) {
	forest := map[string][]*types.ASTNodeInfo{
		"/a.cpp": {fn("ok", true, logCall())},
	}
	p := New(Config{
		Parse: stubParse(forest),
		Axes:  coverage.AxisEnables{Function: true},
	})
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	p.Start(ctx)

	p.recordResult(analyzeOne(FunctionTask{File: types.SourceFileInfo{AbsPath: "/bad.cpp"}}, p.cfg.Axes))

	require.True(t, p.Submit(types.SourceFileInfo{AbsPath: "/a.cpp", Lang: types.LangCpp}, ctx.Done()))
	p.Close()
	require.True(t, p.WaitForCompletion(2*time.Second))

	require.Error(t, p.Errors())
	assert.Contains(t, p.Errors().Error(), "analysis")
	_, ok := p.Results().Files["/a.cpp"]
	assert.True(t, ok)
}

func TestComplexityAndPriorityFormulas(t *testing.T) {
	main := &types.ASTNodeInfo{Kind: types.KindFunction, Name: "main", Text: "main()"}
	assert.Equal(t, 1, complexityOf(main))
	assert.Equal(t, 1+mainBonus, priorityOf(main, complexityOf(main)))

	dtor := &types.ASTNodeInfo{Kind: types.KindMethod, Name: "~Widget", Text: "~Widget()"}
	assert.Equal(t, 1+dtorBonus, priorityOf(dtor, complexityOf(dtor)))

	withBranch := &types.ASTNodeInfo{
		Kind: types.KindFunction, Name: "f", Text: "f(int a, int b)",
		Children: []*types.ASTNodeInfo{{Kind: types.KindIfStmt}},
	}
	assert.Equal(t, 1+2+1, complexityOf(withBranch))
}

func TestPriorityTaskQueueServesHighestPriorityFirst(t *testing.T) {
	q := newPriorityTaskQueue(8)
	done := make(chan struct{})
	defer close(done)

	require.True(t, q.enqueue(FunctionTask{Priority: 1, Node: &types.ASTNodeInfo{Name: "low"}}, done))
	require.True(t, q.enqueue(FunctionTask{Priority: 100, Node: &types.ASTNodeInfo{Name: "high"}}, done))
	require.True(t, q.enqueue(FunctionTask{Priority: 50, Node: &types.ASTNodeInfo{Name: "mid"}}, done))

	first, ok := q.dequeue(done)
	require.True(t, ok)
	assert.Equal(t, "high", first.Node.Name)

	second, ok := q.dequeue(done)
	require.True(t, ok)
	assert.Equal(t, "mid", second.Node.Name)
}

func TestQueueDropsAfterBackpressureTimeout(t *testing.T) {
	q := newQueue[int](1)
	done := make(chan struct{})
	defer close(done)

	require.True(t, q.tryEnqueue(1, done))
	accepted := q.tryEnqueue(2, done)
	assert.False(t, accepted)
	assert.Equal(t, int64(1), q.droppedCount())
}
