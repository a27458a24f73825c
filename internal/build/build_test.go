package build_test

import (
	"context"
	"sync"
	"testing"

	"github.com/google/go-cmp/cmp"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/jward/garnet/internal/build"
	"github.com/jward/garnet/internal/builtins"
	"github.com/jward/garnet/internal/diag"
	"github.com/jward/garnet/internal/graph"
	"github.com/jward/garnet/internal/infer"
	"github.com/jward/garnet/internal/syntax"
	"github.com/jward/garnet/internal/syntax/syntaxtest"
	"github.com/jward/garnet/internal/types"
)

var loadBuiltins = sync.OnceValues(func() (*graph.Unit, error) {
	return builtins.Load(context.Background(), nil)
})

func stdlib(t *testing.T) *graph.Unit {
	t.Helper()
	bu, err := loadBuiltins()
	require.NoError(t, err)
	return bu
}

func analyze(t *testing.T, prog *syntax.Program) *graph.Unit {
	t.Helper()
	unit, err := build.Run(context.Background(), build.Input{ID: "main.rb", Root: prog, Builtins: stdlib(t)})
	require.NoError(t, err)
	return unit
}

func local(t *testing.T, ctx *graph.Context, name string) *graph.Declaration {
	t.Helper()
	require.NotNil(t, ctx)
	d := ctx.Local(name, graph.Anywhere, nil)
	require.NotNil(t, d, "no declaration %q in %s", name, ctx.Name)
	return d
}

func hints(unit *graph.Unit) []diag.Diagnostic {
	var out []diag.Diagnostic
	for _, d := range unit.Diagnostics {
		if d.Severity == diag.Hint {
			out = append(out, d)
		}
	}
	return out
}

var (
	fixnum = types.Named("Fixnum")
	str    = types.Named("String")
	sym    = types.Named("Symbol")
)

func TestRun_LiteralTypes(t *testing.T) {
	t.Parallel()
	tests := []struct {
		name  string
		value func(b *syntaxtest.Builder) syntax.Node
		want  types.Type
	}{
		{"integer", func(b *syntaxtest.Builder) syntax.Node { return b.Int("1") }, fixnum},
		{"float", func(b *syntaxtest.Builder) syntax.Node { return b.Float("1.0") }, types.Named("Float")},
		{"string", func(b *syntaxtest.Builder) syntax.Node { return b.Str("x") }, str},
		{"symbol", func(b *syntaxtest.Builder) syntax.Node { return b.Sym("x") }, sym},
		{"regexp", func(b *syntaxtest.Builder) syntax.Node { return b.Regexp() }, types.Named("Regexp")},
		{"nil", func(b *syntaxtest.Builder) syntax.Node { return b.Nil() }, types.Nil},
		{"true", func(b *syntaxtest.Builder) syntax.Node { return b.True() }, types.Named("TrueClass")},
		{"false", func(b *syntaxtest.Builder) syntax.Node { return b.False() }, types.Named("FalseClass")},
		{"range", func(b *syntaxtest.Builder) syntax.Node { return b.Range(b.Int("1"), b.Int("2")) }, types.Named("Range")},
		{"__FILE__", func(b *syntaxtest.Builder) syntax.Node { return b.File() }, str},
		{"__LINE__", func(b *syntaxtest.Builder) syntax.Node { return b.Line() }, fixnum},
		{"__ENCODING__", func(b *syntaxtest.Builder) syntax.Node { return b.Encoding() }, types.Named("Encoding")},
		{"self at top level", func(b *syntaxtest.Builder) syntax.Node { return b.Self() }, types.Named("Object")},
		{"lambda", func(b *syntaxtest.Builder) syntax.Node { return b.Lambda(nil) }, types.Named("Proc")},
		{"array", func(b *syntaxtest.Builder) syntax.Node { return b.Array(b.Int("1"), b.Str("a")) },
			types.Container{Class: "Array", Elem: types.Unsure{Members: []types.Type{fixnum, str}}}},
		{"empty array", func(b *syntaxtest.Builder) syntax.Node { return b.Array() }, types.Container{Class: "Array"}},
		{"hash", func(b *syntaxtest.Builder) syntax.Node { return b.Hash(b.Pair(b.Sym("k"), b.Int("1"))) },
			types.Container{Class: "Hash", Key: sym, Elem: fixnum}},
		{"negation", func(b *syntaxtest.Builder) syntax.Node { return b.Not(b.Int("1")) },
			types.Unsure{Members: []types.Type{types.Named("TrueClass"), types.Named("FalseClass")}}},
		{"arithmetic", func(b *syntaxtest.Builder) syntax.Node { return b.Binary("+", b.Int("1"), b.Int("2")) }, fixnum},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()
			b := syntaxtest.New()
			unit := analyze(t, b.Program(b.Assign(b.Ident("a"), tt.value(b))))
			got := local(t, unit.Top, "a").Type()
			assert.True(t, tt.want.Equal(got), "want %s, got %s", tt.want, got)
		})
	}
}

func TestRun_MultipleAssignment(t *testing.T) {
	t.Parallel()
	b := syntaxtest.New()
	prog := b.Program(
		// a, b = 1, 'x'
		b.MultiAssign([]syntax.Node{b.Ident("a"), b.Ident("b")}, []syntax.Node{b.Int("1"), b.Str("x")}),
		// c, d, e = 1, 2
		b.MultiAssign([]syntax.Node{b.Ident("c"), b.Ident("d"), b.Ident("e")}, []syntax.Node{b.Int("1"), b.Int("2")}),
		// f = 1, 2, 3
		b.MultiAssign([]syntax.Node{b.Ident("f")}, []syntax.Node{b.Int("1"), b.Str("2"), b.Sym("3")}),
		// g, h = 1
		b.MultiAssign([]syntax.Node{b.Ident("g"), b.Ident("h")}, []syntax.Node{b.Int("1")}),
		// i, j = [:s, 'x']
		b.MultiAssign([]syntax.Node{b.Ident("i"), b.Ident("j")}, []syntax.Node{b.Array(b.Sym("s"), b.Str("x"))}),
	)
	unit := analyze(t, prog)

	want := map[string]types.Type{
		"a": fixnum, "b": str,
		"c": fixnum, "d": fixnum, "e": types.Nil,
		"f": fixnum,
		"g": fixnum, "h": types.Nil,
		"i": sym, "j": str,
	}
	for name, typ := range want {
		got := local(t, unit.Top, name).Type()
		assert.True(t, typ.Equal(got), "%s: want %s, got %s", name, typ, got)
	}
}

func TestRun_ReassignmentMergesTypes(t *testing.T) {
	t.Parallel()
	b := syntaxtest.New()
	unit := analyze(t, b.Program(
		b.Assign(b.Ident("a"), b.Int("1")),
		b.Assign(b.Ident("a"), b.Str("x")),
		b.Assign(b.Ident("a"), b.Int("2")),
	))

	var count int
	for _, d := range unit.Top.Declarations() {
		if d.Identifier() == "a" {
			count++
		}
	}
	assert.Equal(t, 1, count)
	assert.Equal(t, "Fixnum | String", local(t, unit.Top, "a").Type().String())
}

func TestRun_CompoundArithmeticWidens(t *testing.T) {
	t.Parallel()
	b := syntaxtest.New()
	unit := analyze(t, b.Program(
		b.Assign(b.Ident("y"), b.Int("1")),
		b.OpAssign(b.Ident("y"), "+", b.Float("2.0")),
		b.Assign(b.Ident("s"), b.Str("a")),
		b.OpAssign(b.Ident("s"), "*", b.Int("3")),
	))

	assert.Equal(t, "Fixnum | Float", local(t, unit.Top, "y").Type().String())
	assert.Equal(t, "String", local(t, unit.Top, "s").Type().String())
}

func TestRun_ReturnMerging(t *testing.T) {
	t.Parallel()
	b := syntaxtest.New()
	// def early(a); return nil if a.nil?; return 'a'; end
	early := b.Def("early", b.Params("a"),
		b.If(b.Call(b.Ident("a"), "nil?"), []syntax.Node{b.Return(b.Nil())}, nil),
		b.Return(b.Str("a")),
	)
	// def fall; 'a'; end
	fall := b.Def("fall", nil, b.Str("a"))
	// def empty; end
	empty := b.Def("empty", nil)
	// def dead; return 1; 'x'; end
	dead := b.Def("dead", nil, b.Return(b.Int("1")), b.Str("x"))
	// def both(x); if x; return 1; else; return 'a'; end; end
	both := b.Def("both", b.Params("x"),
		b.If(b.Ident("x"), []syntax.Node{b.Return(b.Int("1"))}, []syntax.Node{b.Return(b.Str("a"))}),
	)
	unit := analyze(t, b.Program(early, fall, empty, dead, both))

	tests := []struct {
		method string
		want   types.Type
	}{
		{"early", types.Unsure{Members: []types.Type{str, types.Nil}}},
		{"fall", str},
		{"empty", types.Nil},
		{"dead", fixnum},
		{"both", types.Unsure{Members: []types.Type{fixnum, str}}},
	}
	for _, tt := range tests {
		got := local(t, unit.Top, tt.method).ReturnType()
		assert.True(t, tt.want.Equal(got), "%s: want %s, got %s", tt.method, tt.want, got)
	}
	_, wrapped := local(t, unit.Top, "fall").ReturnType().(types.Unsure)
	assert.False(t, wrapped)
}

func TestRun_ClassReopening(t *testing.T) {
	t.Parallel()
	b := syntaxtest.New()
	unit := analyze(t, b.Program(
		b.Class("A", nil, b.Def("x", nil)),
		b.Class("A", nil, b.Def("y", nil)),
	))

	var contexts []*graph.Context
	for _, c := range unit.Contexts() {
		if c.Kind == graph.ClassContext && c.Name.String() == "A" {
			contexts = append(contexts, c)
		}
	}
	require.Len(t, contexts, 1)
	a := contexts[0]
	assert.Len(t, a.Ranges, 2)

	var methods []string
	for _, d := range a.Declarations() {
		if d.Kind == graph.MethodDecl {
			methods = append(methods, d.Identifier())
		}
	}
	assert.Equal(t, []string{"x", "y"}, methods)

	var classDecls int
	for _, d := range unit.Top.Declarations() {
		if d.Kind == graph.ClassDecl {
			classDecls++
		}
	}
	assert.Equal(t, 1, classDecls)
	assert.Empty(t, hints(unit))
}

func TestRun_NestedAndSuperclass(t *testing.T) {
	t.Parallel()
	b := syntaxtest.New()
	unit := analyze(t, b.Program(
		b.Module("Shapes",
			b.Class("Base", nil, b.Def("area", nil, b.Int("0"))),
			b.Class("Square", b.Const("Base")),
		),
		b.Assign(b.Ident("s"), b.Call(b.Const("Shapes::Square"), "new")),
		b.Assign(b.Ident("n"), b.Call(b.Ident("s"), "area")),
	))

	sq := unit.ClassContext("Shapes::Square")
	require.NotNil(t, sq)
	assert.Equal(t, graph.QualifiedName{"Base"}, sq.Superclass)
	assert.Equal(t, "Shapes::Square", local(t, unit.Top, "s").Type().String())
	assert.True(t, fixnum.Equal(local(t, unit.Top, "n").Type()), "area inherited from Shapes::Base")
}

func TestRun_Idempotent(t *testing.T) {
	t.Parallel()
	b := syntaxtest.New()
	prog := b.Program(
		b.Class("Greeter", nil,
			b.Def("initialize", b.Params("name"), b.Assign(b.Ident("@name"), b.Ident("name"))),
			b.Def("greet", nil, b.Binary("+", b.Str("hi "), b.Ident("@name"))),
		),
		b.Assign(b.Ident("g"), b.Call(b.Const("Greeter"), "new", b.Str("bob"))),
		b.Call(nil, "puts", b.Call(b.Ident("g"), "greet")),
		b.Call(nil, "puts", b.Ident("missing")),
	)

	first := snapshot(analyze(t, prog))
	second := snapshot(analyze(t, prog))
	if diff := cmp.Diff(first, second); diff != "" {
		t.Errorf("second run differs (-first +second):\n%s", diff)
	}
	assert.NotEmpty(t, first.Decls)
	assert.NotEmpty(t, first.Uses)
}

type graphSnapshot struct {
	Contexts []string
	Decls    []string
	Uses     []graph.Use
	Diags    []diag.Diagnostic
}

func snapshot(u *graph.Unit) graphSnapshot {
	var s graphSnapshot
	for _, c := range u.Contexts() {
		s.Contexts = append(s.Contexts, c.Kind.String()+" "+c.Name.String()+" "+c.Range().String())
	}
	for _, d := range u.Declarations() {
		s.Decls = append(s.Decls, d.Kind.String()+" "+d.Name.String()+" "+d.Range.String()+" "+d.Type().String())
	}
	s.Uses = u.Uses
	s.Diags = u.Diagnostics
	return s
}

func TestRun_UseResolution(t *testing.T) {
	t.Parallel()
	b := syntaxtest.New()
	xDecl := b.Ident("x")
	first := b.Assign(xDecl, b.Int("1"))
	yDecl := b.Ident("y")
	xUse := b.Ident("x")
	second := b.Assign(yDecl, xUse)
	wDecl := b.Ident("w")
	z := b.Ident("z")
	third := b.Assign(wDecl, z)
	putsCall := b.Call(nil, "puts", b.Ident("y"))
	unit := analyze(t, b.Program(first, second, third, putsCall))
	x := local(t, unit.Top, "x")

	var toX []graph.Use
	for _, u := range unit.Uses {
		if u.Target != nil && *u.Target == x.Ref() {
			toX = append(toX, u)
		}
	}
	require.Len(t, toX, 1, "declaring occurrence gets no edge")
	assert.Equal(t, xUse.Range(), toX[0].Range)

	hs := hints(unit)
	require.Len(t, hs, 1)
	assert.Equal(t, "undefined variable or method: `z`", hs[0].Message)
	assert.Equal(t, z.Range(), hs[0].Range)
	assert.Equal(t, diag.Semantic, hs[0].Category)
	assert.True(t, types.Nil.Equal(local(t, unit.Top, "w").Type()))

	use, ok := unit.UseAt(putsCall.Name.Range().Start)
	require.True(t, ok)
	require.NotNil(t, use.Target)
	assert.Equal(t, builtins.ID, use.Target.Unit)
	assert.Equal(t, "Kernel::puts", use.Target.Name)
}

func TestRun_UndefinedSuggestsNearbyName(t *testing.T) {
	t.Parallel()
	b := syntaxtest.New()
	unit := analyze(t, b.Program(
		b.Assign(b.Ident("counter"), b.Int("0")),
		b.Call(nil, "puts", b.Ident("countr")),
	))

	hs := hints(unit)
	require.Len(t, hs, 1)
	require.Len(t, hs[0].Notes, 1)
	assert.Equal(t, "did you mean `counter`?", hs[0].Notes[0].Msg)
}

func TestRun_ParameterAccretion(t *testing.T) {
	t.Parallel()
	b := syntaxtest.New()
	prog := b.Program(
		b.Def("show", b.Params("value", "label")),
		b.Call(nil, "show", b.Int("1"), b.Str("a")),
		b.Call(nil, "show", b.Str("b")),
		b.Call(nil, "show", b.Sym("c"), b.Str("d")),
		b.Class("Point", nil, b.Def("initialize", b.Params("x"))),
		b.Call(b.Const("Point"), "new", b.Float("1.5")),
	)
	unit := analyze(t, prog)

	show := local(t, unit.Top, "show")
	params := show.Parameters()
	require.Len(t, params, 2)
	assert.Equal(t, "Fixnum | String | Symbol", params[0].Type().String(), "call-site order")
	assert.Equal(t, "String", params[1].Type().String())
	assert.Equal(t, "def(Fixnum | String | Symbol, String) -> NilClass", show.Type().String())

	init := local(t, unit.ClassContext("Point"), "initialize")
	assert.Equal(t, "Float", init.Parameters()[0].Type().String())
	assert.Equal(t, graph.Private, init.Visibility)
}

func TestRun_DefaultParameterTypes(t *testing.T) {
	t.Parallel()
	b := syntaxtest.New()
	unit := analyze(t, b.Program(
		b.Def("pad", []*syntax.Param{b.Param("s"), b.OptParam("width", b.Int("10"))}, b.Ident("width")),
	))

	pad := local(t, unit.Top, "pad")
	assert.Equal(t, "def(NilClass, Fixnum) -> Fixnum", pad.Type().String())
}

func TestRun_BlockParameters(t *testing.T) {
	t.Parallel()
	b := syntaxtest.New()
	arr := b.Array(b.Int("1"), b.Int("2"))
	each := b.WithBlock(b.Call(arr, "each_with_index"), b.Params("v", "i"))
	h := b.Hash(b.Pair(b.Sym("k"), b.Str("v")))
	eachPair := b.WithBlock(b.Call(h, "each"), b.Params("key", "val"))
	unit := analyze(t, b.Program(each, eachPair))

	blk := unit.ContextFor(each.Block)
	require.NotNil(t, blk)
	assert.Equal(t, "Fixnum", local(t, blk, "v").Type().String())
	assert.Equal(t, "Fixnum", local(t, blk, "i").Type().String())

	blk = unit.ContextFor(eachPair.Block)
	require.NotNil(t, blk)
	assert.Equal(t, "Symbol", local(t, blk, "key").Type().String())
	assert.Equal(t, "String", local(t, blk, "val").Type().String())
}

func TestRun_InstanceVariablesAndVisibility(t *testing.T) {
	t.Parallel()
	b := syntaxtest.New()
	unit := analyze(t, b.Program(
		b.Class("Account", nil,
			b.Def("initialize", nil, b.Assign(b.Ident("@balance"), b.Int("0"))),
			b.Def("deposit", b.Params("amount"), b.OpAssign(b.Ident("@balance"), "+", b.Ident("amount"))),
			b.Ident("private"),
			b.Def("audit", nil),
		),
	))

	acct := unit.ClassContext("Account")
	bal := local(t, acct, "@balance")
	assert.Equal(t, graph.QualifiedName{"Account", "@balance"}, bal.Name)
	assert.Equal(t, "Fixnum", bal.Type().String())
	assert.Equal(t, graph.Public, local(t, acct, "deposit").Visibility)
	assert.Equal(t, graph.Private, local(t, acct, "audit").Visibility)
}

func TestRun_Alias(t *testing.T) {
	t.Parallel()
	b := syntaxtest.New()
	unit := analyze(t, b.Program(
		b.Class("Doc", nil,
			b.Def("title", nil, b.Str("t")),
			b.Alias("name", "title"),
		),
	))

	alias := local(t, unit.ClassContext("Doc"), "name")
	assert.Equal(t, graph.AliasDecl, alias.Kind)
	assert.Equal(t, "String", alias.ReturnType().String())
}

type fixedResolver map[string][]string

func (r fixedResolver) Resolve(_ context.Context, required, _ string, _ bool) ([]string, error) {
	return r[required], nil
}

type universe map[string]*graph.Unit

func (u universe) Unit(id string) (*graph.Unit, bool) {
	unit, ok := u[id]
	return unit, ok
}

func TestRun_RequireDefersUntilAvailable(t *testing.T) {
	t.Parallel()
	ctx := context.Background()
	bu := stdlib(t)
	resolver := fixedResolver{"helpers": {"/app/helpers.rb"}}

	b := syntaxtest.New()
	helper := b.Program(b.Def("helper", nil, b.Int("1")))
	helperUnit, err := build.Run(ctx, build.Input{ID: "/app/helpers.rb", Root: helper, Builtins: bu})
	require.NoError(t, err)

	main := b.Program(
		b.Call(nil, "require", b.Str("helpers")),
		b.Assign(b.Ident("n"), b.Call(nil, "helper")),
	)

	first, err := build.Run(ctx, build.Input{ID: "/app/main.rb", Root: main, Builtins: bu, Resolver: resolver})
	require.NoError(t, err)
	assert.Equal(t, []string{"/app/helpers.rb"}, first.Unresolved)
	assert.Empty(t, first.Imports)
	assert.Len(t, hints(first), 1)

	second, err := build.Run(ctx, build.Input{
		ID: "/app/main.rb", Root: main, Builtins: bu, Resolver: resolver,
		Universe: universe{"/app/helpers.rb": helperUnit},
		Update:   true, Previous: first,
	})
	require.NoError(t, err)
	assert.Empty(t, second.Unresolved)
	assert.Equal(t, []string{"/app/helpers.rb"}, second.Imports)
	assert.Empty(t, hints(second))
	assert.Equal(t, 2, second.Revision)
	assert.Equal(t, "Fixnum", local(t, second.Top, "n").Type().String())
}

func TestRun_Mixins(t *testing.T) {
	t.Parallel()
	b := syntaxtest.New()
	unit := analyze(t, b.Program(
		b.Module("Loud", b.Def("shout", nil, b.Str("!"))),
		b.Module("Quiet", b.Def("shout", nil, b.Sym("s"))),
		b.Class("Speaker", nil,
			b.Call(nil, "include", b.Const("Loud")),
			b.Call(nil, "include", b.Const("Quiet")),
		),
		b.Assign(b.Ident("r"), b.Call(b.Call(b.Const("Speaker"), "new"), "shout")),
	))

	assert.Equal(t, "Symbol", local(t, unit.Top, "r").Type().String(), "last include wins")
	imports := unit.ClassContext("Speaker").Imports()
	require.Len(t, imports, 2)
	assert.Equal(t, graph.IncludeImport, imports[0].Kind)
}

func TestRun_KeywordDecisionSharedAcrossPasses(t *testing.T) {
	t.Parallel()
	b := syntaxtest.New()
	loud := b.Module("Loud", b.Def("shout", nil, b.Str("!")))
	inc := b.Call(nil, "include", b.Const("Loud"))
	unit := analyze(t, b.Program(
		loud,
		b.Class("Speaker", nil,
			inc,
			b.Def("include", b.Params("x")),
		),
		b.Assign(b.Ident("r"), b.Call(b.Call(b.Const("Speaker"), "new"), "shout")),
	))

	imports := unit.ClassContext("Speaker").Imports()
	require.Len(t, imports, 1)
	assert.Equal(t, graph.IncludeImport, imports[0].Kind)
	assert.Equal(t, "String", local(t, unit.Top, "r").Type().String())

	_, ok := unit.UseAt(inc.Name.Range().Start)
	assert.False(t, ok, "include stays a keyword after a later def include")
	assert.Empty(t, hints(unit))
}

func TestRun_ImplicitConstructorInSingletonMethod(t *testing.T) {
	t.Parallel()
	b := syntaxtest.New()
	unit := analyze(t, b.Program(
		b.Class("P", nil,
			b.SDef("make", nil, b.Ident("new")),
			b.SDef("build", nil, b.Call(b.Self(), "new")),
			b.SDef("copy", nil, b.Call(nil, "new", b.Int("1"))),
			b.Def("initialize", b.Params("v")),
		),
		b.Assign(b.Ident("m"), b.Call(b.Const("P"), "make")),
	))

	assert.Empty(t, hints(unit))
	p := unit.ClassContext("P")
	for _, name := range []string{"make", "build", "copy"} {
		assert.Equal(t, "P", local(t, p, name).ReturnType().String(), name)
	}
	assert.Equal(t, "P", local(t, unit.Top, "m").Type().String())
	assert.Equal(t, "Fixnum", local(t, p, "initialize").Parameters()[0].Type().String())
}

func TestRun_Cancelled(t *testing.T) {
	t.Parallel()
	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	b := syntaxtest.New()

	unit, err := build.Run(ctx, build.Input{ID: "main.rb", Root: b.Program(), Builtins: stdlib(t)})
	assert.ErrorIs(t, err, context.Canceled)
	assert.Nil(t, unit)
}

func TestRun_IncompleteBuiltins(t *testing.T) {
	t.Parallel()
	ctx := context.Background()
	b := syntaxtest.New()
	tiny, err := build.Run(ctx, build.Input{ID: "tiny", Root: b.Program(b.Class("Object", nil)), Builtin: true})
	require.NoError(t, err)

	_, err = build.Run(ctx, build.Input{ID: "main.rb", Root: b.Program(), Builtins: tiny})
	assert.ErrorIs(t, err, infer.ErrMissingBuiltin)
}

func TestRun_NoTree(t *testing.T) {
	t.Parallel()
	_, err := build.Run(context.Background(), build.Input{ID: "main.rb"})
	assert.Error(t, err)
}
