package build

import (
	"go.uber.org/zap"

	"github.com/jward/garnet/internal/graph"
	"github.com/jward/garnet/internal/infer"
	"github.com/jward/garnet/internal/syntax"
	"github.com/jward/garnet/internal/types"
)

// declarationPass re-enters the contexts built by the context pass, declares
// variables and types every declaration.
type declarationPass struct {
	unit   *graph.Unit
	lookup *graph.Lookup
	engine *infer.Engine
	log    *zap.Logger

	scopes scopeStack
}

func newDeclarationPass(unit *graph.Unit, engine *infer.Engine, log *zap.Logger) *declarationPass {
	return &declarationPass{unit: unit, lookup: engine.Lookup(), engine: engine, log: log}
}

func (p *declarationPass) run(root *syntax.Program) {
	p.scopes.push(p.unit.Top)
	syntax.NewWalker(p).Statements(root.Stmts)
}

func (p *declarationPass) Declared(n syntax.Node, name string) bool {
	return p.unit.Shadowed(n, func() bool {
		return p.lookup.Declared(p.scopes.cur(), name, graph.Anywhere)
	})
}

// enter walks fn inside the context opened for n, if any.
func (p *declarationPass) enter(n syntax.Node, fn func()) {
	ctx := p.unit.ContextFor(n)
	if ctx == nil {
		fn()
		return
	}
	p.scopes.push(ctx)
	fn()
	p.scopes.pop()
}

func (p *declarationPass) Class(w *syntax.Walker, n *syntax.ClassDef) {
	p.enter(n, func() { w.Walk(n.Body) })
}

func (p *declarationPass) Module(w *syntax.Walker, n *syntax.ModuleDef) {
	p.enter(n, func() { w.Walk(n.Body) })
}

func (p *declarationPass) Method(w *syntax.Walker, n *syntax.MethodDef) {
	ctx := p.unit.ContextFor(n)
	if ctx == nil || ctx.Owner == nil {
		return
	}
	decl := ctx.Owner
	for i, param := range n.Params {
		if param.Default == nil {
			continue
		}
		params := decl.Parameters()
		if i < len(params) {
			params[i].MergeType(p.engine.Infer(decl.Args, param.Default))
		}
	}

	p.scopes.push(ctx)
	w.Walk(n.Body)
	ret := p.returnType(ctx, n.Body)
	p.scopes.pop()

	fn := types.Function{Params: positionalTypes(decl), Return: ret}
	decl.SetType(fn)
	p.log.Debug("typed method", zap.Stringer("name", decl.Name), zap.Stringer("type", fn))
}

// positionalTypes collects the current types of the positional parameters.
func positionalTypes(decl *graph.Declaration) []types.Type {
	var out []types.Type
	for _, param := range decl.Parameters() {
		if param.ParamKind.Positional() {
			out = append(out, param.RawType())
		}
	}
	return out
}

func (p *declarationPass) refreshSignature(decl *graph.Declaration) {
	fn, _ := decl.RawType().(types.Function)
	fn.Params = positionalTypes(decl)
	decl.SetType(fn)
}

func (p *declarationPass) Block(w *syntax.Walker, n *syntax.Block) {
	p.enter(n, func() { w.Walk(n.Body) })
}

func (p *declarationPass) Lambda(w *syntax.Walker, n syntax.Node) {
	switch n := n.(type) {
	case *syntax.Lambda:
		p.enter(n, func() { w.Walk(n.Body) })
	case *syntax.Call:
		w.Statements(n.Args)
		w.Walk(n.Block)
	}
}

func (p *declarationPass) Call(w *syntax.Walker, n *syntax.Call) {
	w.Walk(n.Receiver)
	w.Statements(n.Args)

	cur := p.scopes.cur()
	p.engine.Infer(cur, n)
	if callee := p.engine.Last(); callee != nil {
		if callee.IsType() && n.Name.Name == "new" {
			callee = p.lookup.Member(p.unit, callee.Name.String(), "initialize", graph.InstanceMembers, graph.Callables)
		}
		p.propagate(cur, callee, n.Args)
	}
	if n.Block != nil && n.Receiver != nil {
		p.typeBlockParams(cur, n)
	}
	w.Walk(n.Block)
}

// propagate merges argument types into the parameters of callee when callee
// is a method of the unit under construction. Parameter types accrete over
// call sites in traversal order.
func (p *declarationPass) propagate(cur *graph.Context, callee *graph.Declaration, args []syntax.Node) {
	if callee == nil || callee.Kind != graph.MethodDecl || callee.Unit() != p.unit {
		return
	}
	var positional []*graph.Declaration
	for _, param := range callee.Parameters() {
		if param.ParamKind.Positional() {
			positional = append(positional, param)
		}
	}
	i := 0
	for _, arg := range args {
		switch arg.(type) {
		case *syntax.Pair, *syntax.Splat:
			continue
		}
		if i >= len(positional) {
			break
		}
		positional[i].MergeType(p.engine.Infer(cur, arg))
		i++
	}
	p.refreshSignature(callee)
}

var iterators = map[string]bool{
	"each": true, "map": true, "collect": true, "select": true, "filter": true, "reject": true,
	"find": true, "detect": true, "each_with_index": true, "each_with_object": true,
	"flat_map": true, "any?": true, "all?": true, "none?": true, "count": true, "sum": true,
	"sort_by": true, "min_by": true, "max_by": true, "group_by": true, "partition": true,
	"filter_map": true, "each_key": true, "each_value": true, "each_pair": true,
}

// typeBlockParams types the parameters of a block passed to an iterator
// over an array or hash.
func (p *declarationPass) typeBlockParams(cur *graph.Context, n *syntax.Call) {
	name := n.Name.Name
	if !iterators[name] {
		return
	}
	ctx := p.unit.ContextFor(n.Block)
	if ctx == nil {
		return
	}
	params := ctx.Declarations()
	recv := p.engine.Infer(cur, n.Receiver)
	for _, alt := range types.Alternatives(recv) {
		c, ok := alt.(types.Container)
		if !ok {
			continue
		}
		var yielded []types.Type
		switch {
		case c.Class == types.HashName && name == "each_key":
			yielded = []types.Type{c.Key}
		case c.Class == types.HashName && name == "each_value":
			yielded = []types.Type{c.Elem}
		case c.Class == types.HashName:
			yielded = []types.Type{c.Key, c.Elem}
		default:
			yielded = []types.Type{c.Elem}
		}
		if name == "each_with_index" {
			yielded = append(yielded, p.engine.Literal(infer.FixnumClass))
		}
		for i, t := range yielded {
			if i < len(params) && params[i].Param && t != nil {
				params[i].MergeType(t)
			}
		}
	}
}

func (p *declarationPass) Assign(w *syntax.Walker, n *syntax.Assign) {
	w.Statements(n.Values)
	cur := p.scopes.cur()

	if n.Op != "" && len(n.Targets) == 1 && len(n.Values) == 1 {
		var t types.Type
		if n.Op == "||" || n.Op == "&&" {
			t = p.engine.Infer(cur, n.Values[0])
		} else {
			t = p.engine.Infer(cur, &syntax.Binary{Span: n.Span, Op: n.Op, Left: n.Targets[0], Right: n.Values[0]})
		}
		p.declareTarget(w, n.Targets[0], t)
		return
	}

	for i, t := range assignedTypes(p.engine, cur, n.Targets, n.Values) {
		p.declareTarget(w, n.Targets[i], t)
	}
}

// assignedTypes pairs assignment targets with value types.
//
// Values pair with targets by position and missing values are NilClass. A
// single target takes the first value. A single array literal assigned to
// several targets is unpacked; any other single value types only the first
// target.
func assignedTypes(e *infer.Engine, ctx *graph.Context, targets, values []syntax.Node) []types.Type {
	out := make([]types.Type, len(targets))
	for i := range out {
		out[i] = types.Nil
	}
	switch {
	case len(targets) == 0 || len(values) == 0:
	case len(targets) == 1:
		out[0] = e.Infer(ctx, values[0])
	case len(values) == 1:
		if arr, ok := values[0].(*syntax.Array); ok {
			for i := range targets {
				if i < len(arr.Elements) {
					out[i] = e.Infer(ctx, arr.Elements[i])
				}
			}
			break
		}
		out[0] = e.Infer(ctx, values[0])
	default:
		for i := range targets {
			if i < len(values) {
				out[i] = e.Infer(ctx, values[i])
			}
		}
	}
	return out
}

// declareTarget declares or re-types the variable an assignment target
// names. Attribute and index targets declare nothing.
func (p *declarationPass) declareTarget(w *syntax.Walker, target syntax.Node, t types.Type) {
	switch target := target.(type) {
	case *syntax.Ident:
		p.declareVariable(target, t)
	case *syntax.Splat:
		p.declareTarget(w, target.Value, types.Container{Class: types.ArrayName, Elem: t})
	case *syntax.Array:
		for _, el := range target.Elements {
			p.declareTarget(w, el, types.Nil)
		}
	case *syntax.ScopedName:
		p.declareScopedConstant(target, t)
	case *syntax.Call:
		w.Walk(target.Receiver)
		w.Statements(target.Args)
	case *syntax.Index:
		w.Walk(target.Receiver)
		w.Statements(target.Args)
	}
}

// host returns the context a variable of the given kind lives in.
func (p *declarationPass) host(kind syntax.IdentKind) *graph.Context {
	cur := p.scopes.cur()
	switch kind {
	case syntax.InstanceIdent, syntax.ClassVarIdent, syntax.ConstantIdent:
		if cls := cur.EnclosingClass(); cls != nil {
			return cls
		}
		return p.unit.Top
	case syntax.GlobalIdent:
		return p.unit.Top
	default:
		return cur
	}
}

func isVariable(d *graph.Declaration) bool {
	return d.Kind == graph.VariableDecl
}

func (p *declarationPass) declareVariable(id *syntax.Ident, t types.Type) {
	host := p.host(id.Kind)
	var existing *graph.Declaration
	if id.Kind == syntax.LocalIdent {
		existing = p.lookup.Find(p.scopes.cur(), id.Name, id.Range().Start, isVariable)
		if existing != nil && existing.Unit() != p.unit {
			existing = nil
		}
	} else {
		existing = host.Local(id.Name, graph.Anywhere, isVariable)
	}
	if existing != nil {
		existing.MergeType(t)
		return
	}

	name := graph.QualifiedName{id.Name}
	if id.Kind != syntax.LocalIdent && id.Kind != syntax.GlobalIdent {
		name = host.ScopeName().Append(id.Name)
	}
	d := &graph.Declaration{Name: name, Kind: graph.VariableDecl, Range: id.Range(), Scope: id.Kind}
	d.SetType(t)
	host.Declare(d)
	p.log.Debug("declare variable", zap.Stringer("name", name), zap.Stringer("type", d.Type()))
}

func (p *declarationPass) declareScopedConstant(n *syntax.ScopedName, t types.Type) {
	if n.Scope == nil {
		return
	}
	owner := p.lookup.ResolveType(p.scopes.cur(), graph.QualifiedName(syntax.Segments(n.Scope)))
	if owner == nil || owner.Internal == nil || owner.Unit() != p.unit {
		return
	}
	if existing := owner.Internal.Local(n.Name.Name, graph.Anywhere, isVariable); existing != nil {
		existing.MergeType(t)
		return
	}
	d := &graph.Declaration{
		Name:  owner.Name.Append(n.Name.Name),
		Kind:  graph.VariableDecl,
		Range: n.Name.Range(),
		Scope: syntax.ConstantIdent,
	}
	d.SetType(t)
	owner.Internal.Declare(d)
}

func (p *declarationPass) Alias(w *syntax.Walker, n *syntax.Alias) {
	newName, oldName := syntax.NameOf(n.New), syntax.NameOf(n.Old)
	if newName == "" || oldName == "" {
		return
	}
	cur := p.scopes.cur()
	d := &graph.Declaration{
		Name:  cur.ScopeName().Append(newName),
		Kind:  graph.AliasDecl,
		Range: n.New.Range(),
	}
	if old := p.lookup.Find(cur, oldName, graph.Anywhere, graph.Callables); old != nil {
		d.SetType(old.RawType())
		d.Singleton = old.Singleton
		d.Visibility = old.Visibility
		d.Comment = old.Comment
	}
	cur.Declare(d)
}

func (p *declarationPass) For(w *syntax.Walker, n *syntax.For) {
	w.Walk(n.Iter)
	var elem types.Type = types.Nil
	if c, ok := p.engine.Infer(p.scopes.cur(), n.Iter).(types.Container); ok {
		elem = c.ElemType()
	}
	for i, v := range n.Vars {
		if i == 0 {
			p.declareTarget(w, v, elem)
			continue
		}
		p.declareTarget(w, v, types.Nil)
	}
	w.Statements(n.Body)
}

func (p *declarationPass) Rescue(w *syntax.Walker, n *syntax.Rescue) {
	w.Statements(n.Exceptions)
	if n.Var != nil {
		var t types.Type
		for _, ex := range n.Exceptions {
			if infer.IsClassReference(ex) {
				t = types.Merge(t, types.Named(syntax.NameOf(ex)))
			}
		}
		if t == nil {
			t = types.Named("StandardError")
		}
		p.declareVariable(n.Var, t)
	}
	w.Statements(n.Body)
}
