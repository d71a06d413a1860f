package cppfrontend

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/dlogcover/dlogcover/internal/config"
	"github.com/dlogcover/dlogcover/internal/logident"
	"github.com/dlogcover/dlogcover/internal/types"
)

func testIdentifier() *logident.Identifier {
	return logident.New(config.Default())
}

func newDriver(t *testing.T) *Driver {
	t.Helper()
	d, err := New()
	require.NoError(t, err)
	t.Cleanup(d.Close)
	return d
}

func TestParseFileDirectCallLogging(t *testing.T) {
	d := newDriver(t)
	src := `
void doWork() {
    qWarning("uh oh");
}
`
	result := d.ParseFile("work.cpp", []byte(src), testIdentifier())
	require.True(t, result.ParseSuccess)
	require.Len(t, result.Functions, 1)

	fn := result.Functions[0]
	assert.Equal(t, "doWork", fn.Name)
	assert.Equal(t, types.KindFunction, fn.Kind)
	assert.True(t, fn.HasLogging)
}

func TestParseFileStreamedLogging(t *testing.T) {
	d := newDriver(t)
	src := `
void doWork() {
    qWarning() << "bad things happened";
}
`
	result := d.ParseFile("work.cpp", []byte(src), testIdentifier())
	require.True(t, result.ParseSuccess)
	require.Len(t, result.Functions, 1)
	require.True(t, result.Functions[0].HasLogging)

	leaf := result.Functions[0].Children[0]
	assert.Equal(t, types.KindLogCallExpr, leaf.Kind)
	assert.Equal(t, "bad things happened", leaf.LogCall.Message)
}

func TestParseFileNoLogging(t *testing.T) {
	d := newDriver(t)
	src := `
int add(int a, int b) {
    return a + b;
}
`
	result := d.ParseFile("math.cpp", []byte(src), testIdentifier())
	require.True(t, result.ParseSuccess)
	require.Len(t, result.Functions, 1)
	assert.False(t, result.Functions[0].HasLogging)
}

func TestParseFileIfElseAndTryCatch(t *testing.T) {
	d := newDriver(t)
	src := `
void process(bool ok) {
    if (ok) {
        doSomething();
    } else {
        qCritical("not ok");
    }
    try {
        risky();
    } catch (const std::exception &e) {
        qWarning("caught");
    }
}
`
	result := d.ParseFile("process.cpp", []byte(src), testIdentifier())
	require.True(t, result.ParseSuccess)
	require.Len(t, result.Functions, 1)

	fn := result.Functions[0]
	assert.True(t, fn.HasLogging)

	var sawElse, sawCatch bool
	for _, c := range fn.Children {
		if c.Kind == types.KindIfStmt {
			require.Len(t, c.Children, 2)
			assert.Equal(t, types.KindElseStmt, c.Children[1].Kind)
			assert.True(t, c.Children[1].HasLogging)
			sawElse = true
		}
		if c.Kind == types.KindTryStmt {
			require.Len(t, c.Children, 2)
			assert.Equal(t, types.KindCatchStmt, c.Children[1].Kind)
			assert.True(t, c.Children[1].HasLogging)
			sawCatch = true
		}
	}
	assert.True(t, sawElse)
	assert.True(t, sawCatch)
}

func TestParseFileMethodInClass(t *testing.T) {
	d := newDriver(t)
	src := `
class Widget {
public:
    void render() {
        qDebug("rendering");
    }
};
`
	result := d.ParseFile("widget.cpp", []byte(src), testIdentifier())
	require.True(t, result.ParseSuccess)
	require.Len(t, result.Functions, 1)
	assert.Equal(t, types.KindMethod, result.Functions[0].Kind)
	assert.True(t, result.Functions[0].HasLogging)
}

func TestParseFileToleratesMalformedSource(t *testing.T) {
	d := newDriver(t)
	result := d.ParseFile("broken.cpp", []byte("void f( { qWarning("), testIdentifier())
	assert.True(t, result.ParseSuccess)
}
