package garnet

import (
	"context"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/goleak"

	"github.com/jward/garnet/internal/completion"
	"github.com/jward/garnet/internal/diag"
	"github.com/jward/garnet/internal/graph"
	"github.com/jward/garnet/internal/loader"
	"github.com/jward/garnet/internal/parser"
	"github.com/jward/garnet/internal/store"
	"github.com/jward/garnet/internal/syntax"
	"github.com/jward/garnet/internal/syntax/syntaxtest"
)

func TestMain(m *testing.M) {
	goleak.VerifyTestMain(m)
}

func newTestEngine(t *testing.T, opts ...Option) *Engine {
	t.Helper()
	e, err := New(opts...)
	require.NoError(t, err)
	t.Cleanup(func() { e.Close() })
	return e
}

func writeFile(t *testing.T, path, content string) {
	t.Helper()
	require.NoError(t, os.MkdirAll(filepath.Dir(path), 0o755))
	require.NoError(t, os.WriteFile(path, []byte(content), 0o644))
}

func TestNew_BuiltinsFileErrors(t *testing.T) {
	t.Parallel()
	dir := t.TempDir()

	_, err := New(WithBuiltinsFile(filepath.Join(dir, "missing.rb")))
	require.ErrorIs(t, err, ErrNoBuiltins)

	incomplete := filepath.Join(dir, "core.rb")
	writeFile(t, incomplete, "class Object\nend\n")
	_, err = New(WithBuiltinsFile(incomplete))
	require.ErrorIs(t, err, ErrNoBuiltins)
}

func TestNew_EmbeddedBuiltins(t *testing.T) {
	t.Parallel()
	e := newTestEngine(t)
	require.NotNil(t, e.Builtins())
	assert.NotNil(t, e.Builtins().ClassContext("String"))
	assert.Empty(t, e.Units())
	assert.NotNil(t, e.Query())
}

func TestAnalyze_Publishes(t *testing.T) {
	t.Parallel()
	e := newTestEngine(t)
	b := syntaxtest.New()
	prog := b.Program(b.Assign(b.Ident("x"), b.Int("1")))

	unit, err := e.Analyze(context.Background(), "main.rb", prog, false)
	require.NoError(t, err)
	got, ok := e.Unit("main.rb")
	require.True(t, ok)
	assert.Same(t, unit, got)
	assert.Equal(t, 1, unit.Revision)

	again, err := e.Analyze(context.Background(), "main.rb", prog, true)
	require.NoError(t, err)
	assert.Equal(t, 2, again.Revision)
	require.Len(t, e.Units(), 1)
}

func TestAnalyzeSource_SkipsUnchanged(t *testing.T) {
	t.Parallel()
	e := newTestEngine(t)
	ctx := context.Background()
	src := []byte("x = 1\n")

	first, err := e.AnalyzeSource(ctx, "main.rb", src)
	require.NoError(t, err)
	assert.NotZero(t, first.Hash)

	second, err := e.AnalyzeSource(ctx, "main.rb", src)
	require.NoError(t, err)
	assert.Same(t, first, second)

	e.Invalidate("main.rb")
	third, err := e.AnalyzeSource(ctx, "main.rb", src)
	require.NoError(t, err)
	assert.NotSame(t, first, third)
	assert.Equal(t, first.Revision+1, third.Revision)
}

func TestAnalyzeSource_SyntaxErrorKeepsPreviousUnit(t *testing.T) {
	t.Parallel()
	e := newTestEngine(t)
	ctx := context.Background()

	good, err := e.AnalyzeSource(ctx, "main.rb", []byte("x = 1\n"))
	require.NoError(t, err)
	require.NotNil(t, good.Top.Local("x", graph.Anywhere, nil))

	kept, err := e.AnalyzeSource(ctx, "main.rb", []byte("def foo(\n  1 +\n"))
	require.ErrorIs(t, err, parser.ErrSyntax)
	require.NotNil(t, kept)
	assert.Zero(t, kept.Hash)
	assert.Equal(t, good.Revision, kept.Revision)
	assert.NotNil(t, kept.Top.Local("x", graph.Anywhere, nil), "previous declarations survive")
	require.NotEmpty(t, kept.Diagnostics)
	for _, d := range kept.Diagnostics {
		assert.Equal(t, diag.Parser, d.Category)
	}
	assert.True(t, kept.ParserProblems())

	published, ok := e.Unit("main.rb")
	require.True(t, ok)
	assert.Same(t, kept, published)
	assert.Empty(t, good.Diagnostics, "the earlier unit is not mutated")

	// Fixing the source rebuilds the unit.
	fixed, err := e.AnalyzeSource(ctx, "main.rb", []byte("x = 1\n"))
	require.NoError(t, err)
	assert.False(t, fixed.ParserProblems())
}

func TestAnalyzeSource_SyntaxErrorWithoutPreviousUnit(t *testing.T) {
	t.Parallel()
	e := newTestEngine(t)

	unit, err := e.AnalyzeSource(context.Background(), "new.rb", []byte("def foo(\n  1 +\n"))
	require.ErrorIs(t, err, parser.ErrSyntax)
	require.NotNil(t, unit)
	assert.Empty(t, unit.Declarations())
	assert.True(t, unit.ParserProblems())
	_, ok := e.Unit("new.rb")
	assert.True(t, ok)
}

func TestIndexDirectory_DeferredRequire(t *testing.T) {
	t.Parallel()
	dir := t.TempDir()
	// app.rb sorts before lib/ and is analyzed before what it requires.
	writeFile(t, filepath.Join(dir, "app.rb"), "require \"helpers\"\nn = helper\n")
	writeFile(t, filepath.Join(dir, "lib", "helpers.rb"), "def helper\n  1\nend\n")
	writeFile(t, filepath.Join(dir, "vendor", "skip.rb"), "zzz\n")
	writeFile(t, filepath.Join(dir, "README.md"), "# readme\n")

	e := newTestEngine(t,
		WithResolver(loader.NewSearchPaths(nil, filepath.Join(dir, "lib"))),
		WithParallel(4))
	require.NoError(t, e.IndexDirectory(context.Background(), dir, []string{"vendor/**"}))

	app := filepath.Join(dir, "app.rb")
	helpers := filepath.Join(dir, "lib", "helpers.rb")
	require.Len(t, e.Units(), 2)

	unit, ok := e.Unit(app)
	require.True(t, ok)
	assert.Equal(t, []string{helpers}, unit.Imports)
	assert.Empty(t, unit.Unresolved)
	assert.Empty(t, unit.Diagnostics, "helper resolves once helpers.rb is published")
	assert.Equal(t, 2, unit.Revision)

	// A second run finds nothing changed.
	require.NoError(t, e.IndexDirectory(context.Background(), dir, []string{"vendor/**"}))
	again, _ := e.Unit(app)
	assert.Same(t, unit, again)
}

func TestIndexFiles_ReportsReadErrorsAndContinues(t *testing.T) {
	t.Parallel()
	dir := t.TempDir()
	good := filepath.Join(dir, "good.rb")
	broken := filepath.Join(dir, "broken.rb")
	writeFile(t, good, "x = 1\n")
	writeFile(t, broken, "def foo(\n  1 +\n")

	e := newTestEngine(t)
	err := e.IndexFiles(context.Background(), []string{good, broken, filepath.Join(dir, "gone.rb"), filepath.Join(dir, "notes.txt")})
	require.Error(t, err)
	assert.Contains(t, err.Error(), "1 error(s)")

	_, ok := e.Unit(good)
	assert.True(t, ok)
	unit, ok := e.Unit(broken)
	require.True(t, ok, "syntax errors are published, not failed")
	assert.True(t, unit.ParserProblems())
}

func TestIndexFiles_ReanalyzesDependents(t *testing.T) {
	t.Parallel()
	dir := t.TempDir()
	lib := filepath.Join(dir, "lib.rb")
	main := filepath.Join(dir, "main.rb")
	writeFile(t, lib, "def answer\n  1\nend\n")
	writeFile(t, main, "require_relative \"lib\"\nv = answer\n")

	e := newTestEngine(t, WithResolver(loader.NewSearchPaths(nil)))
	ctx := context.Background()
	require.NoError(t, e.IndexFiles(ctx, []string{lib, main}))
	before, _ := e.Unit(main)
	assert.Equal(t, "Fixnum", before.Top.Local("v", graph.Anywhere, nil).Type().String())

	writeFile(t, lib, "def answer\n  \"one\"\nend\n")
	require.NoError(t, e.IndexFiles(ctx, []string{lib}))
	after, _ := e.Unit(main)
	assert.Greater(t, after.Revision, before.Revision)
	assert.Equal(t, "String", after.Top.Local("v", graph.Anywhere, nil).Type().String())
}

func TestRemove(t *testing.T) {
	t.Parallel()
	dir := t.TempDir()
	lib := filepath.Join(dir, "lib.rb")
	main := filepath.Join(dir, "main.rb")
	writeFile(t, lib, "def answer\n  1\nend\n")
	writeFile(t, main, "require_relative \"lib\"\nanswer\n")

	e := newTestEngine(t, WithResolver(loader.NewSearchPaths(nil)))
	ctx := context.Background()
	require.NoError(t, e.IndexFiles(ctx, []string{lib, main}))

	require.NoError(t, e.Remove(ctx, lib))
	_, ok := e.Unit(lib)
	assert.False(t, ok)
	unit, _ := e.Unit(main)
	assert.Equal(t, []string{lib}, unit.Unresolved, "the file still exists on disk")
	assert.Empty(t, unit.Imports)
	require.Len(t, unit.Diagnostics, 1)
	assert.Equal(t, diag.Hint, unit.Diagnostics[0].Severity)

	assert.ErrorIs(t, e.Remove(ctx, lib), ErrUnknownUnit)
}

func TestWithStore_WritesPublishedUnits(t *testing.T) {
	t.Parallel()
	s, err := store.NewStore(filepath.Join(t.TempDir(), "index.db"))
	require.NoError(t, err)
	e := newTestEngine(t, WithStore(s))
	ctx := context.Background()

	unit, err := e.AnalyzeSource(ctx, "main.rb", []byte("x = 1\n"))
	require.NoError(t, err)
	hash, ok, err := s.UnitHash("main.rb")
	require.NoError(t, err)
	require.True(t, ok)
	assert.Equal(t, unit.Hash, hash)

	_, err = e.AnalyzeSource(ctx, "main.rb", []byte("def foo(\n"))
	require.ErrorIs(t, err, parser.ErrSyntax)
	ds, err := s.Diagnostics("main.rb")
	require.NoError(t, err)
	require.NotEmpty(t, ds)
	assert.Equal(t, "parser", ds[0].Category)

	require.NoError(t, e.Remove(ctx, "main.rb"))
	_, ok, err = s.UnitHash("main.rb")
	require.NoError(t, err)
	assert.False(t, ok)
}

const greeterSource = `class Greeter
  def hello
    "hi"
  end
end
g = Greeter.new
`

func TestComplete(t *testing.T) {
	t.Parallel()
	e := newTestEngine(t)
	ctx := context.Background()
	_, err := e.AnalyzeSource(ctx, "greeter.rb", []byte(greeterSource))
	require.NoError(t, err)

	text := greeterSource + "g."
	res, err := e.Complete(ctx, "greeter.rb", text, syntax.Position{Line: 6, Column: 2}, false)
	require.NoError(t, err)
	assert.Equal(t, completion.MemberAccess, res.Kind)
	assert.Contains(t, itemLabels(res.Items), "hello")
	assert.Empty(t, res.Groups)

	full, err := e.Complete(ctx, "greeter.rb", text, syntax.Position{Line: 6, Column: 2}, true)
	require.NoError(t, err)
	assert.Contains(t, itemLabels(full.Items), "g", "standard completions are merged in")
	require.NotEmpty(t, full.Groups)
	assert.Equal(t, completion.KeywordGroup, full.Groups[0].Name)

	res, err = e.Complete(ctx, "greeter.rb", greeterSource, syntax.Position{Line: 6}, false)
	require.NoError(t, err)
	assert.Equal(t, completion.StandardAccess, res.Kind)
	assert.Contains(t, itemLabels(res.Items), "Greeter")

	_, err = e.Complete(ctx, "missing.rb", "", syntax.Position{}, false)
	assert.ErrorIs(t, err, ErrUnknownUnit)
}

func itemLabels(items []completion.Item) []string {
	out := make([]string, len(items))
	for i, it := range items {
		out[i] = it.Label
	}
	return out
}

func TestOffsetOf(t *testing.T) {
	t.Parallel()
	text := "ab\ncde\n"
	tests := []struct {
		pos  syntax.Position
		want int
	}{
		{syntax.Position{Line: 0, Column: 0}, 0},
		{syntax.Position{Line: 0, Column: 9}, 2},
		{syntax.Position{Line: 1, Column: 1}, 4},
		{syntax.Position{Line: 2, Column: 0}, 7},
		{syntax.Position{Line: 9, Column: 0}, 7},
	}
	for _, tt := range tests {
		assert.Equal(t, tt.want, offsetOf(text, tt.pos), "%v", tt.pos)
	}
}
