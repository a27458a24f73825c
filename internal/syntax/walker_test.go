package syntax_test

import (
	"testing"

	"github.com/stretchr/testify/assert"

	"github.com/jward/garnet/internal/syntax"
	"github.com/jward/garnet/internal/syntax/syntaxtest"
)

// recorder logs the hooks it receives.
type recorder struct {
	declared map[string]bool
	events   []string
}

func (r *recorder) Declared(_ syntax.Node, name string) bool { return r.declared[name] }

func (r *recorder) Require(w *syntax.Walker, n *syntax.Call, relative bool) {
	if relative {
		r.events = append(r.events, "require_relative")
		return
	}
	r.events = append(r.events, "require")
}

func (r *recorder) Mixin(w *syntax.Walker, n *syntax.Call, extend bool) {
	if extend {
		r.events = append(r.events, "extend")
		return
	}
	r.events = append(r.events, "include")
}

func (r *recorder) Call(w *syntax.Walker, n *syntax.Call) {
	r.events = append(r.events, "call:"+n.Name.Name)
	w.Children(n)
}

func (r *recorder) Name(w *syntax.Walker, n syntax.Node) {
	r.events = append(r.events, "name:"+syntax.NameOf(n))
}

func (r *recorder) Access(w *syntax.Walker, n syntax.Node, keyword string, args []syntax.Node) {
	r.events = append(r.events, "access:"+keyword)
}

func (r *recorder) Lambda(w *syntax.Walker, n syntax.Node) {
	r.events = append(r.events, "lambda")
}

func TestWalker_PseudoKeywords(t *testing.T) {
	t.Parallel()

	tests := []struct {
		name     string
		declared map[string]bool
		build    func(b *syntaxtest.Builder) syntax.Node
		want     []string
	}{
		{
			name: "require",
			build: func(b *syntaxtest.Builder) syntax.Node {
				return b.Call(nil, "require", b.Str("json"))
			},
			want: []string{"require"},
		},
		{
			name: "require_relative",
			build: func(b *syntaxtest.Builder) syntax.Node {
				return b.Call(nil, "require_relative", b.Str("helper"))
			},
			want: []string{"require_relative"},
		},
		{
			name:     "shadowed include is an ordinary call",
			declared: map[string]bool{"include": true},
			build: func(b *syntaxtest.Builder) syntax.Node {
				return b.Call(nil, "include", b.Ident("Foo"))
			},
			want: []string{"call:include", "name:Foo"},
		},
		{
			name: "extend",
			build: func(b *syntaxtest.Builder) syntax.Node {
				return b.Call(nil, "extend", b.Ident("Foo"))
			},
			want: []string{"extend"},
		},
		{
			name: "receiver makes require ordinary",
			build: func(b *syntaxtest.Builder) syntax.Node {
				return b.Call(b.Ident("obj"), "require")
			},
			want: []string{"call:require", "name:obj"},
		},
		{
			name: "bare private",
			build: func(b *syntaxtest.Builder) syntax.Node {
				return b.Ident("private")
			},
			want: []string{"access:private"},
		},
		{
			name: "lambda call",
			build: func(b *syntaxtest.Builder) syntax.Node {
				return b.WithBlock(b.Call(nil, "lambda"), nil, b.Int("1"))
			},
			want: []string{"lambda"},
		},
		{
			name: "stabby lambda",
			build: func(b *syntaxtest.Builder) syntax.Node {
				return b.Lambda(nil, b.Int("1"))
			},
			want: []string{"lambda"},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()
			r := &recorder{declared: tt.declared}
			syntax.NewWalker(r).Walk(tt.build(syntaxtest.New()))
			assert.Equal(t, tt.want, r.events)
		})
	}
}

type nameOnly struct{ names []string }

func (n *nameOnly) Declared(syntax.Node, string) bool { return false }

func (n *nameOnly) Name(w *syntax.Walker, node syntax.Node) {
	n.names = append(n.names, syntax.NameOf(node))
}

func TestWalker_DefaultTraversalOrder(t *testing.T) {
	t.Parallel()
	b := syntaxtest.New()
	prog := b.Program(
		b.If(b.Ident("a"), []syntax.Node{b.Ident("b")}, []syntax.Node{b.Ident("c")}),
		b.Binary("+", b.Ident("d"), b.Ident("e")),
		b.Class("K", b.Ident("Base"), b.Ident("f")),
		b.Array(b.Ident("g"), b.Ident("h")),
	)

	rec := &nameOnly{}
	syntax.NewWalker(rec).Walk(prog)
	assert.Equal(t, []string{"a", "b", "c", "d", "e", "Base", "f", "g", "h"}, rec.names)
}

func TestWalker_NilChildrenAreSkipped(t *testing.T) {
	t.Parallel()
	b := syntaxtest.New()
	call := b.Call(nil, "foo")
	rec := &nameOnly{}
	assert.NotPanics(t, func() {
		syntax.NewWalker(rec).Walk(call)
		syntax.NewWalker(rec).Walk(b.Return(nil))
	})
}

func TestSegmentsAndNameOf(t *testing.T) {
	t.Parallel()
	b := syntaxtest.New()
	n := b.Const("A::B::C")
	assert.Equal(t, []string{"A", "B", "C"}, syntax.Segments(n))
	assert.Equal(t, "A::B::C", syntax.NameOf(n))
	assert.Equal(t, syntax.ConstantIdent, syntax.KindOf("Foo"))
	assert.Equal(t, syntax.InstanceIdent, syntax.KindOf("@foo"))
	assert.Equal(t, syntax.ClassVarIdent, syntax.KindOf("@@foo"))
	assert.Equal(t, syntax.GlobalIdent, syntax.KindOf("$foo"))
	assert.Equal(t, syntax.LocalIdent, syntax.KindOf("foo"))
}

func TestRangeContains(t *testing.T) {
	t.Parallel()
	r := syntax.NewRange(1, 2, 3, 4)
	assert.True(t, r.Contains(syntax.Position{Line: 1, Column: 2}))
	assert.True(t, r.Contains(syntax.Position{Line: 2, Column: 0}))
	assert.True(t, r.Contains(syntax.Position{Line: 3, Column: 4}))
	assert.False(t, r.Contains(syntax.Position{Line: 3, Column: 5}))
	assert.False(t, r.Contains(syntax.Position{Line: 0, Column: 9}))
}
