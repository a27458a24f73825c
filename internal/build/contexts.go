package build

import (
	"context"
	"slices"

	"go.uber.org/zap"

	"github.com/jward/garnet/internal/graph"
	"github.com/jward/garnet/internal/syntax"
	"github.com/jward/garnet/internal/types"
)

// bodyState is the per-body state access specifiers change.
type bodyState struct {
	visibility     graph.Visibility
	moduleFunction bool
	singleton      int
}

// contextPass builds the context tree and declares class, module and method
// headers with their parameters.
type contextPass struct {
	ctx      context.Context
	unit     *graph.Unit
	lookup   *graph.Lookup
	resolver Resolver
	log      *zap.Logger

	scopes scopeStack
	bodies []bodyState
}

func newContextPass(ctx context.Context, unit *graph.Unit, lookup *graph.Lookup, resolver Resolver, log *zap.Logger) *contextPass {
	return &contextPass{ctx: ctx, unit: unit, lookup: lookup, resolver: resolver, log: log}
}

func (p *contextPass) run(root *syntax.Program, implicit []string) {
	p.scopes.push(p.unit.Top)
	p.bodies = append(p.bodies, bodyState{})
	for _, id := range implicit {
		p.importUnit(id, syntax.Range{})
	}
	syntax.NewWalker(p).Statements(root.Stmts)
}

func (p *contextPass) body() *bodyState {
	return &p.bodies[len(p.bodies)-1]
}

func (p *contextPass) Declared(n syntax.Node, name string) bool {
	return p.unit.Shadowed(n, func() bool {
		return p.lookup.Declared(p.scopes.cur(), name, graph.Anywhere)
	})
}

// qualify computes the qualified name of a class or module definition.
func (p *contextPass) qualify(name syntax.Node) graph.QualifiedName {
	if sn, ok := name.(*syntax.ScopedName); ok {
		if sn.Scope == nil {
			return graph.QualifiedName{sn.Name.Name}
		}
		prefix := graph.QualifiedName(syntax.Segments(sn.Scope))
		if d := p.lookup.ResolveType(p.scopes.cur(), prefix); d != nil {
			return d.Name.Append(sn.Name.Name)
		}
		return p.scopes.cur().ScopeName().Append(prefix...).Append(sn.Name.Name)
	}
	return p.scopes.cur().ScopeName().Append(syntax.NameOf(name))
}

func (p *contextPass) Class(w *syntax.Walker, n *syntax.ClassDef) {
	ctx := p.openType(graph.ClassContext, n, n.Name, n.Comment)
	if n.Superclass != nil && ctx.Superclass == nil {
		ctx.Superclass = graph.QualifiedName(syntax.Segments(n.Superclass))
	}
	p.enterBody(ctx, w, n.Body)
}

func (p *contextPass) Module(w *syntax.Walker, n *syntax.ModuleDef) {
	ctx := p.openType(graph.ModuleContext, n, n.Name, n.Comment)
	p.enterBody(ctx, w, n.Body)
}

// openType opens a class or module context, reusing an existing context of
// the same qualified name.
func (p *contextPass) openType(kind graph.ContextKind, n syntax.Node, name syntax.Node, comment string) *graph.Context {
	qname := p.qualify(name)
	if existing := p.unit.ClassContext(qname.String()); existing != nil {
		p.unit.Reopen(existing, n.Range(), n)
		if existing.Owner != nil && existing.Owner.Comment == "" {
			existing.Owner.Comment = comment
		}
		p.log.Debug("reopen context", zap.Stringer("name", qname))
		return existing
	}

	host := p.scopes.cur()
	if len(qname) > 1 {
		if outer := p.unit.ClassContext(qname[:len(qname)-1].String()); outer != nil {
			host = outer
		}
	}
	declKind := graph.ClassDecl
	if kind == graph.ModuleContext {
		declKind = graph.ModuleDecl
	}
	decl := &graph.Declaration{
		Name:    qname,
		Kind:    declKind,
		Range:   nameRange(name),
		Scope:   syntax.ConstantIdent,
		Comment: comment,
	}
	decl.SetType(types.Named(qname.String()))
	host.Declare(decl)

	ctx := p.unit.OpenContext(kind, qname, n.Range(), p.scopes.cur(), n)
	ctx.Owner = decl
	decl.Internal = ctx
	p.log.Debug("open context", zap.Stringer("kind", kind), zap.Stringer("name", qname))
	return ctx
}

// nameRange is the range of the last segment of a definition name.
func nameRange(n syntax.Node) syntax.Range {
	if sn, ok := n.(*syntax.ScopedName); ok {
		return sn.Name.Range()
	}
	return n.Range()
}

func (p *contextPass) enterBody(ctx *graph.Context, w *syntax.Walker, body *syntax.Body) {
	p.scopes.push(ctx)
	p.bodies = append(p.bodies, bodyState{})
	w.Walk(body)
	p.bodies = p.bodies[:len(p.bodies)-1]
	p.scopes.pop()
}

func (p *contextPass) SingletonClass(w *syntax.Walker, n *syntax.SingletonClass) {
	p.unit.Bind(n, p.scopes.cur())
	p.body().singleton++
	w.Walk(n.Body)
	p.body().singleton--
}

func (p *contextPass) Method(w *syntax.Walker, n *syntax.MethodDef) {
	host := p.scopes.cur()
	state := p.body()
	name := n.Name.Name
	qname := host.ScopeName().Append(name)

	decl := &graph.Declaration{
		Name:       qname,
		Kind:       graph.MethodDecl,
		Range:      n.Name.Range(),
		Scope:      syntax.LocalIdent,
		Singleton:  n.Receiver != nil || state.singleton > 0 || state.moduleFunction,
		Visibility: state.visibility,
		Comment:    n.Comment,
	}
	if name == "initialize" {
		decl.Visibility = graph.Private
	}
	host.Declare(decl)

	args := p.unit.OpenContext(graph.ArgumentsContext, qname, n.Range(), host, nil)
	var positional []types.Type
	for _, param := range n.Params {
		args.Declare(&graph.Declaration{
			Name:      graph.QualifiedName{param.Name.Name},
			Kind:      graph.VariableDecl,
			Range:     param.Name.Range(),
			Scope:     syntax.LocalIdent,
			Param:     true,
			ParamKind: param.Kind,
		})
		if param.Kind.Positional() {
			positional = append(positional, nil)
		}
	}
	decl.Args = args
	decl.SetType(types.Function{Params: positional})

	body := p.unit.OpenContext(graph.MethodContext, qname, n.Range(), args, n)
	body.Owner = decl
	decl.Internal = body
	p.log.Debug("declare method", zap.Stringer("name", qname), zap.Bool("singleton", decl.Singleton))

	p.scopes.push(args)
	for _, param := range n.Params {
		w.Walk(param.Default)
	}
	p.scopes.pop()

	p.scopes.push(body)
	p.bodies = append(p.bodies, bodyState{})
	w.Walk(n.Body)
	p.bodies = p.bodies[:len(p.bodies)-1]
	p.scopes.pop()
}

func (p *contextPass) Block(w *syntax.Walker, n *syntax.Block) {
	p.openBlock(w, n, n.Params, n.Body)
}

func (p *contextPass) Lambda(w *syntax.Walker, n syntax.Node) {
	switch n := n.(type) {
	case *syntax.Lambda:
		p.openBlock(w, n, n.Params, n.Body)
	case *syntax.Call:
		w.Statements(n.Args)
		w.Walk(n.Block)
	}
}

func (p *contextPass) openBlock(w *syntax.Walker, n syntax.Node, params []*syntax.Param, body *syntax.Body) {
	cur := p.scopes.cur()
	ctx := p.unit.OpenContext(graph.BlockContext, cur.Name, n.Range(), cur, n)
	for _, param := range params {
		ctx.Declare(&graph.Declaration{
			Name:      graph.QualifiedName{param.Name.Name},
			Kind:      graph.VariableDecl,
			Range:     param.Name.Range(),
			Scope:     syntax.LocalIdent,
			Param:     true,
			ParamKind: param.Kind,
		})
	}
	p.scopes.push(ctx)
	for _, param := range params {
		w.Walk(param.Default)
	}
	w.Walk(body)
	p.scopes.pop()
}

func (p *contextPass) Mixin(w *syntax.Walker, n *syntax.Call, extend bool) {
	kind := graph.IncludeImport
	if extend {
		kind = graph.ExtendImport
	}
	cur := p.scopes.cur()
	for _, arg := range n.Args {
		segs := syntax.Segments(arg)
		if len(segs) == 0 {
			continue
		}
		cur.AddImport(graph.Import{Kind: kind, Module: graph.QualifiedName(segs), Scope: cur, Range: arg.Range()})
		p.log.Debug("mixin", zap.Stringer("kind", kind), zap.Strings("module", segs))
	}
}

func (p *contextPass) Require(w *syntax.Walker, n *syntax.Call, relative bool) {
	if len(n.Args) == 0 {
		return
	}
	lit, ok := n.Args[0].(*syntax.String)
	if !ok || len(lit.Parts) > 0 {
		return
	}
	if p.resolver == nil {
		return
	}
	candidates, err := p.resolver.Resolve(p.ctx, lit.Value, p.unit.ID, relative)
	if err != nil {
		p.log.Warn("resolve require", zap.String("target", lit.Value), zap.Error(err))
		return
	}
	for _, id := range candidates {
		p.importUnit(id, n.Range())
	}
}

// importUnit imports an analyzed unit into the top context, or defers it.
func (p *contextPass) importUnit(id string, at syntax.Range) {
	if id == p.unit.ID {
		return
	}
	if _, ok := p.lookup.Unit(id); !ok {
		if !slices.Contains(p.unit.Unresolved, id) {
			p.unit.Unresolved = append(p.unit.Unresolved, id)
		}
		return
	}
	if slices.Contains(p.unit.Imports, id) {
		return
	}
	p.unit.Imports = append(p.unit.Imports, id)
	p.unit.Top.AddImport(graph.Import{Kind: graph.RequireImport, Unit: id, Range: at})
}

func (p *contextPass) Access(w *syntax.Walker, n syntax.Node, keyword string, args []syntax.Node) {
	state := p.body()
	if keyword == "module_function" {
		if len(args) == 0 {
			state.moduleFunction = true
		}
		w.Statements(args)
		return
	}
	vis := visibilityOf(keyword)
	if len(args) == 0 {
		state.visibility = vis
		return
	}

	saved := state.visibility
	state.visibility = vis
	w.Statements(args)
	p.body().visibility = saved

	cur := p.scopes.cur()
	for _, arg := range args {
		var name string
		switch a := arg.(type) {
		case *syntax.Symbol:
			name = a.Name
		case *syntax.String:
			name = a.Value
		default:
			continue
		}
		if d := cur.Local(name, graph.Anywhere, graph.Callables); d != nil {
			d.Visibility = vis
		}
	}
}

func visibilityOf(keyword string) graph.Visibility {
	switch keyword {
	case "private":
		return graph.Private
	case "protected":
		return graph.Protected
	default:
		return graph.Public
	}
}
