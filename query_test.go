package garnet

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/jward/garnet/internal/graph"
	"github.com/jward/garnet/internal/syntax"
	"github.com/jward/garnet/internal/syntax/syntaxtest"
)

type fixedResolver map[string][]string

func (r fixedResolver) Resolve(_ context.Context, required, _ string, _ bool) ([]string, error) {
	return r[required], nil
}

// project publishes
//
//	# lib.rb
//	class Greeter
//	  def hello; "hi"; end
//	end
//	module Polite; end
//	class Loud < Greeter
//	  include Polite
//	end
//
//	# main.rb
//	require "lib"
//	x = Greeter.new
//	y = x
type project struct {
	e       *Engine
	greeter *syntax.Ident // Greeter in main.rb
	xDecl   *syntax.Ident
	xUse    *syntax.Ident
}

func newProject(t *testing.T) *project {
	t.Helper()
	e := newTestEngine(t, WithResolver(fixedResolver{"lib": {"lib.rb"}}))
	ctx := context.Background()
	b := syntaxtest.New()

	lib := b.Program(
		b.Class("Greeter", nil, b.Def("hello", nil, b.Str("hi"))),
		b.Module("Polite"),
		b.Class("Loud", b.Const("Greeter"), b.Call(nil, "include", b.Const("Polite"))),
	)
	_, err := e.Analyze(ctx, "lib.rb", lib, false)
	require.NoError(t, err)

	p := &project{e: e}
	req := b.Call(nil, "require", b.Str("lib"))
	p.xDecl = b.Ident("x")
	p.greeter = b.Ident("Greeter")
	first := b.Assign(p.xDecl, b.Call(p.greeter, "new"))
	y := b.Ident("y")
	p.xUse = b.Ident("x")
	main := b.Program(req, first, b.Assign(y, p.xUse))
	_, err = e.Analyze(ctx, "main.rb", main, false)
	require.NoError(t, err)
	return p
}

func start(n syntax.Node) (int, int) {
	p := n.Range().Start
	return p.Line, p.Column
}

func greeterDecl(t *testing.T, e *Engine) *graph.Declaration {
	t.Helper()
	lib, ok := e.Unit("lib.rb")
	require.True(t, ok)
	d := lib.Top.Local("Greeter", graph.Anywhere, graph.Types)
	require.NotNil(t, d)
	return d
}

func TestQuery_DefinitionAt(t *testing.T) {
	t.Parallel()
	p := newProject(t)
	q := p.e.Query()

	line, col := start(p.xUse)
	locs, err := q.DefinitionAt("main.rb", line, col)
	require.NoError(t, err)
	require.Len(t, locs, 1)
	assert.Equal(t, locationOf("main.rb", p.xDecl.Range()), locs[0])

	line, col = start(p.greeter)
	locs, err = q.DefinitionAt("main.rb", line, col)
	require.NoError(t, err)
	require.Len(t, locs, 1)
	assert.Equal(t, locationOf("lib.rb", greeterDecl(t, p.e).Range), locs[0])

	// A declaration is its own definition.
	line, col = start(p.xDecl)
	locs, err = q.DefinitionAt("main.rb", line, col)
	require.NoError(t, err)
	require.Len(t, locs, 1)
	assert.Equal(t, "main.rb", locs[0].File)

	locs, err = q.DefinitionAt("main.rb", 999, 0)
	require.NoError(t, err)
	assert.Empty(t, locs)

	_, err = q.DefinitionAt("nope.rb", 0, 0)
	assert.ErrorIs(t, err, ErrUnknownUnit)
}

func TestQuery_ReferencesTo(t *testing.T) {
	t.Parallel()
	p := newProject(t)
	q := p.e.Query()

	d := greeterDecl(t, p.e)
	locs, err := q.ReferencesTo("lib.rb", d.Range.Start.Line, d.Range.Start.Column)
	require.NoError(t, err)
	assert.Contains(t, locs, locationOf("main.rb", p.greeter.Range()))
	var inLib int
	for _, l := range locs {
		if l.File == "lib.rb" {
			inLib++
		}
	}
	assert.Positive(t, inLib, "the superclass of Loud refers to Greeter")

	// From a use, the same declaration is found.
	line, col := start(p.greeter)
	fromUse, err := q.ReferencesTo("main.rb", line, col)
	require.NoError(t, err)
	assert.Equal(t, locs, fromUse)

	line, col = start(p.xDecl)
	locs, err = q.ReferencesTo("main.rb", line, col)
	require.NoError(t, err)
	assert.Equal(t, []Location{locationOf("main.rb", p.xUse.Range())}, locs)
}

func TestQuery_TypeAndHover(t *testing.T) {
	t.Parallel()
	p := newProject(t)
	q := p.e.Query()

	line, col := start(p.xUse)
	typ, err := q.TypeAt("main.rb", line, col)
	require.NoError(t, err)
	require.NotNil(t, typ)
	assert.Equal(t, "Greeter", typ.String())

	line, col = start(p.greeter)
	h, err := q.HoverAt("main.rb", line, col)
	require.NoError(t, err)
	require.NotNil(t, h)
	assert.Equal(t, "Greeter", h.Name)
	assert.Equal(t, "class", h.Kind)
	assert.Equal(t, "lib.rb", h.Location.File)
	assert.Contains(t, h.Markdown(), "class Greeter")

	detail, err := q.DetailAt("main.rb", line, col)
	require.NoError(t, err)
	require.NotNil(t, detail)
	var members []string
	for _, m := range detail.Members {
		members = append(members, m.Identifier())
	}
	assert.Contains(t, members, "hello")
	assert.Equal(t, 2, detail.RefCount)
	assert.Empty(t, detail.Parameters)

	h, err = q.HoverAt("main.rb", 999, 0)
	require.NoError(t, err)
	assert.Nil(t, h)
}

func TestQuery_ContextsAt(t *testing.T) {
	t.Parallel()
	p := newProject(t)
	q := p.e.Query()

	lib, _ := p.e.Unit("lib.rb")
	hello := lib.ClassContext("Greeter").Local("hello", graph.Anywhere, nil)
	require.NotNil(t, hello)
	chain, err := q.ContextsAt("lib.rb", hello.Internal.Range().Start.Line, hello.Internal.Range().Start.Column)
	require.NoError(t, err)
	require.GreaterOrEqual(t, len(chain), 3)
	assert.Equal(t, graph.MethodContext, chain[0].Kind)
	assert.Equal(t, graph.TopContext, chain[len(chain)-1].Kind)
}

func TestQuery_DiagnosticsAndDependencies(t *testing.T) {
	t.Parallel()
	p := newProject(t)
	q := p.e.Query()

	ds, err := q.Diagnostics("main.rb")
	require.NoError(t, err)
	assert.Empty(t, ds)
	all, err := q.Diagnostics("")
	require.NoError(t, err)
	assert.Empty(t, all)
	_, err = q.Diagnostics("nope.rb")
	assert.ErrorIs(t, err, ErrUnknownUnit)

	resolved, unresolved, err := q.Dependencies("main.rb")
	require.NoError(t, err)
	assert.Equal(t, []string{"lib.rb"}, resolved)
	assert.Empty(t, unresolved)
	assert.Equal(t, []string{"main.rb"}, q.Dependents("lib.rb"))
	assert.Empty(t, q.Dependents("main.rb"))
}

func TestQuery_Declarations(t *testing.T) {
	t.Parallel()
	p := newProject(t)
	q := p.e.Query()

	classes := q.Declarations(DeclarationFilter{Kinds: []string{"class"}}, Sort{Field: SortByName}, Pagination{})
	require.Equal(t, 2, classes.TotalCount)
	assert.Equal(t, "Greeter", classes.Items[0].Name)
	assert.Equal(t, "Loud", classes.Items[1].Name)
	assert.Equal(t, 2, classes.Items[0].RefCount)
	assert.Equal(t, 1, classes.Items[0].ExternalRefCount)

	page := q.Declarations(DeclarationFilter{File: "main.rb"}, Sort{Field: SortByName, Order: Desc}, Pagination{Limit: 1})
	assert.Equal(t, 2, page.TotalCount)
	require.Len(t, page.Items, 1)
	assert.Equal(t, "y", page.Items[0].Name)

	found, err := q.SearchDeclarations("Gr*", DeclarationFilter{}, Sort{}, Pagination{})
	require.NoError(t, err)
	require.Len(t, found.Items, 1)
	assert.Equal(t, "Greeter", found.Items[0].Name)

	found, err = q.SearchDeclarations("Greeter::*", DeclarationFilter{}, Sort{}, Pagination{})
	require.NoError(t, err)
	require.Len(t, found.Items, 1)
	assert.Equal(t, "Greeter::hello", found.Items[0].Name)
	assert.Equal(t, "method", found.Items[0].Kind)

	_, err = q.SearchDeclarations("[", DeclarationFilter{}, Sort{}, Pagination{})
	assert.Error(t, err)

	units := q.Units("", Pagination{})
	assert.Equal(t, []string{"lib.rb", "main.rb"}, units.Items)

	sum := q.ProjectSummary(1)
	assert.Equal(t, 2, sum.Units)
	assert.Equal(t, 2, sum.Kinds["class"])
	assert.Equal(t, 1, sum.Kinds["module"])
	require.Len(t, sum.TopClasses, 1)
	assert.Equal(t, "Greeter", sum.TopClasses[0].Name)
}

func TestQuery_TypeHierarchy(t *testing.T) {
	t.Parallel()
	p := newProject(t)
	q := p.e.Query()

	loud, err := q.TypeHierarchy("main.rb", "Loud")
	require.NoError(t, err)
	require.NotNil(t, loud)
	assert.Equal(t, "class", loud.Kind)
	require.Len(t, loud.Definitions, 1)
	assert.Equal(t, "lib.rb", loud.Definitions[0].File)
	var ancestors []string
	for _, a := range loud.Ancestors {
		ancestors = append(ancestors, a.Name)
	}
	assert.Equal(t, []string{"Greeter", "Object", "BasicObject"}, ancestors)
	require.Len(t, loud.Mixins, 1)
	assert.Equal(t, "Polite", loud.Mixins[0].Name)
	assert.Equal(t, "include", loud.Mixins[0].Kind)

	greeter, err := q.TypeHierarchy("lib.rb", "Greeter")
	require.NoError(t, err)
	require.Len(t, greeter.Subclasses, 1)
	assert.Equal(t, "Loud", greeter.Subclasses[0].Name)

	polite, err := q.TypeHierarchy("lib.rb", "Polite")
	require.NoError(t, err)
	assert.Equal(t, "module", polite.Kind)
	assert.Empty(t, polite.Ancestors)
	require.Len(t, polite.IncludedBy, 1)
	assert.Equal(t, "Loud", polite.IncludedBy[0].Name)

	missing, err := q.TypeHierarchy("lib.rb", "Nope")
	require.NoError(t, err)
	assert.Nil(t, missing)
}

func TestQuery_RequireGraphs(t *testing.T) {
	t.Parallel()
	p := newProject(t)
	q := p.e.Query()

	g, err := q.TransitiveRequires("main.rb", 5)
	require.NoError(t, err)
	assert.Equal(t, []RequireNode{{Unit: "main.rb"}, {Unit: "lib.rb", Depth: 1}}, g.Nodes)
	assert.Equal(t, []RequireEdge{{From: "main.rb", To: "lib.rb"}}, g.Edges)
	assert.Equal(t, 1, g.Depth)

	root, err := q.TransitiveRequires("main.rb", 0)
	require.NoError(t, err)
	assert.Len(t, root.Nodes, 1)

	rev, err := q.TransitiveDependents("lib.rb", 5)
	require.NoError(t, err)
	assert.Equal(t, []RequireEdge{{From: "main.rb", To: "lib.rb"}}, rev.Edges)

	_, err = q.TransitiveRequires("main.rb", -1)
	assert.Error(t, err)

	assert.Empty(t, q.CircularRequires())
	dg := q.DirectoryGraph()
	assert.Equal(t, []DirectoryNode{{Name: ".", UnitCount: 2}}, dg.Directories)
	assert.Equal(t, []DirectoryEdge{{From: ".", To: ".", RequireCount: 1}}, dg.Edges)
}

func TestQuery_CircularRequires(t *testing.T) {
	t.Parallel()
	e := newTestEngine(t, WithResolver(fixedResolver{"a": {"a.rb"}, "b": {"b.rb"}}))
	ctx := context.Background()
	b := syntaxtest.New()

	_, err := e.Analyze(ctx, "a.rb", b.Program(b.Call(nil, "require", b.Str("b"))), false)
	require.NoError(t, err)
	_, err = e.Analyze(ctx, "b.rb", b.Program(b.Call(nil, "require", b.Str("a"))), false)
	require.NoError(t, err)

	a, _ := e.Unit("a.rb")
	assert.Equal(t, []string{"b.rb"}, a.Imports, "a.rb is re-analyzed once b.rb is published")
	assert.Equal(t, [][]string{{"a.rb", "b.rb", "a.rb"}}, e.Query().CircularRequires())
}
