package graph

import (
	"github.com/jward/garnet/internal/diag"
	"github.com/jward/garnet/internal/syntax"
)

// Unit is the semantic graph of one source unit: its context tree, the
// declarations in it, the uses resolved in it and its diagnostics.
type Unit struct {
	ID  string
	Top *Context

	Uses        []Use
	Diagnostics []diag.Diagnostic

	// Imports lists the units this unit requires that were available when it
	// was built; Unresolved lists require targets that were not.
	Imports    []string
	Unresolved []string

	// Hash is the content hash the unit was built from. Zero marks the unit
	// stale so that the next request rebuilds it.
	Hash     uint64
	Revision int

	contexts []*Context
	nodes    map[syntax.Node]*Context
	classes  map[string]*Context
	shadowed map[syntax.Node]bool
}

// NewUnit creates an empty unit whose top context spans r.
func NewUnit(id string, r syntax.Range) *Unit {
	u := &Unit{
		ID:       id,
		nodes:    make(map[syntax.Node]*Context),
		classes:  make(map[string]*Context),
		shadowed: make(map[syntax.Node]bool),
	}
	u.Top = &Context{Kind: TopContext, Unit: u, Ranges: []syntax.Range{r}}
	u.contexts = append(u.contexts, u.Top)
	return u
}

// OpenContext creates a child context of parent and associates it with the
// syntax node that opened it.
func (u *Unit) OpenContext(kind ContextKind, name QualifiedName, r syntax.Range, parent *Context, node syntax.Node) *Context {
	ctx := &Context{Kind: kind, Name: name, Parent: parent, Unit: u, Ranges: []syntax.Range{r}}
	if parent != nil {
		parent.children = append(parent.children, ctx)
	}
	u.contexts = append(u.contexts, ctx)
	if node != nil {
		u.nodes[node] = ctx
	}
	if kind == ClassContext || kind == ModuleContext {
		u.classes[name.String()] = ctx
	}
	return ctx
}

// Reopen records another definition of an existing class or module context.
func (u *Unit) Reopen(ctx *Context, r syntax.Range, node syntax.Node) {
	ctx.Ranges = append(ctx.Ranges, r)
	if node != nil {
		u.nodes[node] = ctx
	}
}

// Bind associates node with an existing context.
func (u *Unit) Bind(node syntax.Node, ctx *Context) {
	u.nodes[node] = ctx
}

// Shadowed reports whether the pseudo-keyword occurrence n is an ordinary
// method call because a declaration binds its name. decide runs on the first
// query for n only; later passes reuse the answer, so a method defined after
// n in source order never turns n back into a call.
func (u *Unit) Shadowed(n syntax.Node, decide func() bool) bool {
	if s, ok := u.shadowed[n]; ok {
		return s
	}
	s := decide()
	u.shadowed[n] = s
	return s
}

// ContextFor returns the context opened for node, or nil.
func (u *Unit) ContextFor(node syntax.Node) *Context {
	return u.nodes[node]
}

// ClassContext returns the class or module context with the given
// qualified name, or nil.
func (u *Unit) ClassContext(name string) *Context {
	return u.classes[name]
}

// Contexts returns all contexts in creation order.
func (u *Unit) Contexts() []*Context {
	return u.contexts
}

// ContextAt returns the innermost context containing p.
func (u *Unit) ContextAt(p syntax.Position) *Context {
	return u.Top.InnermostAt(p)
}

// Declarations returns every declaration of the unit, context by context.
func (u *Unit) Declarations() []*Declaration {
	var out []*Declaration
	for _, ctx := range u.contexts {
		out = append(out, ctx.decls...)
	}
	return out
}

// DeclarationAt returns the declaration whose declared range contains p.
func (u *Unit) DeclarationAt(p syntax.Position) *Declaration {
	for _, d := range u.Declarations() {
		if d.Range.Contains(p) {
			return d
		}
	}
	return nil
}

// DeclarationByRef finds a declaration of this unit by reference.
func (u *Unit) DeclarationByRef(ref DeclRef) *Declaration {
	if ref.Unit != u.ID {
		return nil
	}
	for _, d := range u.Declarations() {
		if d.Range == ref.Range && d.Name.String() == ref.Name {
			return d
		}
	}
	return nil
}

// UseAt returns the use whose range contains p.
func (u *Unit) UseAt(p syntax.Position) (Use, bool) {
	for _, use := range u.Uses {
		if use.Range.Contains(p) {
			return use, true
		}
	}
	return Use{}, false
}

// UsesOf returns the uses in this unit referring to ref.
func (u *Unit) UsesOf(ref DeclRef) []Use {
	var out []Use
	for _, use := range u.Uses {
		if use.Target != nil && *use.Target == ref {
			out = append(out, use)
		}
	}
	return out
}

// ParserProblems reports whether the unit carries parser diagnostics.
func (u *Unit) ParserProblems() bool {
	for _, d := range u.Diagnostics {
		if d.Category == diag.Parser {
			return true
		}
	}
	return false
}
