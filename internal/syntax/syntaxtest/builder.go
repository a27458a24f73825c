// Package syntaxtest builds syntax trees for tests without a parser.
//
// Every node the Builder creates gets a fresh one-line range, and composite
// nodes span their children, so nodes built in source order have increasing,
// distinct positions.
package syntaxtest

import (
	"github.com/jward/garnet/internal/syntax"
)

// Builder allocates ranges and constructs nodes.
type Builder struct {
	line int
}

// New returns a Builder starting at line 0.
func New() *Builder {
	return &Builder{}
}

func (b *Builder) next() syntax.Range {
	r := syntax.NewRange(b.line, 0, b.line, 1)
	b.line++
	return r
}

// span returns the fresh range r widened to cover every non-nil child.
func span(r syntax.Range, children ...syntax.Node) syntax.Range {
	for _, c := range children {
		if c == nil {
			continue
		}
		cr := c.Range()
		if cr.Start.Before(r.Start) {
			r.Start = cr.Start
		}
		if r.End.Before(cr.End) {
			r.End = cr.End
		}
	}
	return r
}

func (b *Builder) spanList(list []syntax.Node, extra ...syntax.Node) syntax.Range {
	return span(b.next(), append(append([]syntax.Node{}, list...), extra...)...)
}

func (b *Builder) Program(stmts ...syntax.Node) *syntax.Program {
	return &syntax.Program{Span: syntax.Span{Loc: b.spanList(stmts)}, Stmts: stmts}
}

func (b *Builder) Ident(name string) *syntax.Ident {
	return &syntax.Ident{Span: syntax.Span{Loc: b.next()}, Name: name, Kind: syntax.KindOf(name)}
}

func (b *Builder) Scoped(scope syntax.Node, name string) *syntax.ScopedName {
	id := b.Ident(name)
	return &syntax.ScopedName{Span: syntax.Span{Loc: span(id.Loc, scope)}, Scope: scope, Name: id}
}

func (b *Builder) Int(text string) *syntax.Integer {
	return &syntax.Integer{Span: syntax.Span{Loc: b.next()}, Text: text}
}

func (b *Builder) Float(text string) *syntax.Float {
	return &syntax.Float{Span: syntax.Span{Loc: b.next()}, Text: text}
}

func (b *Builder) Str(value string) *syntax.String {
	return &syntax.String{Span: syntax.Span{Loc: b.next()}, Value: value}
}

func (b *Builder) Sym(name string) *syntax.Symbol {
	return &syntax.Symbol{Span: syntax.Span{Loc: b.next()}, Name: name}
}

func (b *Builder) Regexp() *syntax.Regexp {
	return &syntax.Regexp{Span: syntax.Span{Loc: b.next()}}
}

func (b *Builder) Nil() *syntax.Nil     { return &syntax.Nil{Span: syntax.Span{Loc: b.next()}} }
func (b *Builder) True() *syntax.True   { return &syntax.True{Span: syntax.Span{Loc: b.next()}} }
func (b *Builder) False() *syntax.False { return &syntax.False{Span: syntax.Span{Loc: b.next()}} }
func (b *Builder) Self() *syntax.Self   { return &syntax.Self{Span: syntax.Span{Loc: b.next()}} }

func (b *Builder) File() *syntax.FileKeyword {
	return &syntax.FileKeyword{Span: syntax.Span{Loc: b.next()}}
}

func (b *Builder) Line() *syntax.LineKeyword {
	return &syntax.LineKeyword{Span: syntax.Span{Loc: b.next()}}
}

func (b *Builder) Encoding() *syntax.EncodingKeyword {
	return &syntax.EncodingKeyword{Span: syntax.Span{Loc: b.next()}}
}

func (b *Builder) Range(low, high syntax.Node) *syntax.RangeExpr {
	return &syntax.RangeExpr{Span: syntax.Span{Loc: span(b.next(), low, high)}, Low: low, High: high}
}

func (b *Builder) Array(elems ...syntax.Node) *syntax.Array {
	return &syntax.Array{Span: syntax.Span{Loc: b.spanList(elems)}, Elements: elems}
}

func (b *Builder) Pair(key, value syntax.Node) *syntax.Pair {
	return &syntax.Pair{Span: syntax.Span{Loc: span(b.next(), key, value)}, Key: key, Value: value}
}

func (b *Builder) Hash(pairs ...*syntax.Pair) *syntax.Hash {
	nodes := make([]syntax.Node, len(pairs))
	for i, p := range pairs {
		nodes[i] = p
	}
	return &syntax.Hash{Span: syntax.Span{Loc: b.spanList(nodes)}, Pairs: pairs}
}

func (b *Builder) Binary(op string, left, right syntax.Node) *syntax.Binary {
	return &syntax.Binary{Span: syntax.Span{Loc: span(b.next(), left, right)}, Op: op, Left: left, Right: right}
}

func (b *Builder) Not(operand syntax.Node) *syntax.Unary {
	return &syntax.Unary{Span: syntax.Span{Loc: span(b.next(), operand)}, Op: "!", Operand: operand}
}

// Assign is target = value.
func (b *Builder) Assign(target, value syntax.Node) *syntax.Assign {
	return b.MultiAssign([]syntax.Node{target}, []syntax.Node{value})
}

// OpAssign is target op= value.
func (b *Builder) OpAssign(target syntax.Node, op string, value syntax.Node) *syntax.Assign {
	a := b.Assign(target, value)
	a.Op = op
	return a
}

func (b *Builder) MultiAssign(targets, values []syntax.Node) *syntax.Assign {
	all := append(append([]syntax.Node{}, targets...), values...)
	return &syntax.Assign{Span: syntax.Span{Loc: b.spanList(all)}, Targets: targets, Values: values}
}

func (b *Builder) If(cond syntax.Node, then, els []syntax.Node) *syntax.If {
	all := append(append([]syntax.Node{cond}, then...), els...)
	return &syntax.If{Span: syntax.Span{Loc: b.spanList(all)}, Cond: cond, Then: then, Else: els}
}

func (b *Builder) When(patterns []syntax.Node, body ...syntax.Node) *syntax.When {
	return &syntax.When{Span: syntax.Span{Loc: b.spanList(patterns, body...)}, Patterns: patterns, Body: body}
}

func (b *Builder) Case(subject syntax.Node, whens []*syntax.When, els ...syntax.Node) *syntax.Case {
	all := []syntax.Node{subject}
	for _, w := range whens {
		all = append(all, w)
	}
	return &syntax.Case{Span: syntax.Span{Loc: b.spanList(all, els...)}, Subject: subject, Whens: whens, Else: els}
}

func (b *Builder) While(cond syntax.Node, body ...syntax.Node) *syntax.While {
	return &syntax.While{Span: syntax.Span{Loc: b.spanList(body, cond)}, Cond: cond, Body: body}
}

func (b *Builder) Return(value syntax.Node) *syntax.Return {
	return &syntax.Return{Span: syntax.Span{Loc: span(b.next(), value)}, Value: value}
}

func (b *Builder) Body(stmts ...syntax.Node) *syntax.Body {
	return &syntax.Body{Span: syntax.Span{Loc: b.spanList(stmts)}, Stmts: stmts}
}

func (b *Builder) Param(name string) *syntax.Param {
	id := b.Ident(name)
	return &syntax.Param{Span: syntax.Span{Loc: id.Loc}, Name: id, Kind: syntax.RequiredParam}
}

func (b *Builder) OptParam(name string, def syntax.Node) *syntax.Param {
	id := b.Ident(name)
	return &syntax.Param{Span: syntax.Span{Loc: span(id.Loc, def)}, Name: id, Kind: syntax.OptionalParam, Default: def}
}

func (b *Builder) Params(names ...string) []*syntax.Param {
	out := make([]*syntax.Param, len(names))
	for i, n := range names {
		out[i] = b.Param(n)
	}
	return out
}

// Def builds def name(params) stmts end. Arguments are evaluated first, so
// the name ident is positioned after the parameters and body.
func (b *Builder) Def(name string, params []*syntax.Param, stmts ...syntax.Node) *syntax.MethodDef {
	return b.def(nil, b.Ident(name), params, stmts)
}

// SDef builds def self.name(params) stmts end.
func (b *Builder) SDef(name string, params []*syntax.Param, stmts ...syntax.Node) *syntax.MethodDef {
	return b.def(b.Self(), b.Ident(name), params, stmts)
}

// DefAt is Def with a name ident created by the caller, for building the
// name before the parameters in source order.
func (b *Builder) DefAt(name *syntax.Ident, params []*syntax.Param, stmts ...syntax.Node) *syntax.MethodDef {
	return b.def(nil, name, params, stmts)
}

func (b *Builder) def(recv syntax.Node, name *syntax.Ident, params []*syntax.Param, stmts []syntax.Node) *syntax.MethodDef {
	body := b.Body(stmts...)
	all := []syntax.Node{name, body}
	if recv != nil {
		all = append(all, recv)
	}
	for _, p := range params {
		all = append(all, p)
	}
	return &syntax.MethodDef{
		Span:     syntax.Span{Loc: b.spanList(all)},
		Receiver: recv,
		Name:     name,
		Params:   params,
		Body:     body,
	}
}

// Class builds class name < super; stmts; end. name may be "A::B".
func (b *Builder) Class(name string, super syntax.Node, stmts ...syntax.Node) *syntax.ClassDef {
	n := b.constPath(name)
	body := b.Body(stmts...)
	return &syntax.ClassDef{
		Span:       syntax.Span{Loc: span(b.next(), n, super, body)},
		Name:       n,
		Superclass: super,
		Body:       body,
	}
}

func (b *Builder) Module(name string, stmts ...syntax.Node) *syntax.ModuleDef {
	n := b.constPath(name)
	body := b.Body(stmts...)
	return &syntax.ModuleDef{Span: syntax.Span{Loc: span(b.next(), n, body)}, Name: n, Body: body}
}

// Const builds an Ident or ScopedName for a path such as "A::B".
func (b *Builder) Const(path string) syntax.Node {
	return b.constPath(path)
}

func (b *Builder) constPath(path string) syntax.Node {
	var node syntax.Node
	start := 0
	for i := 0; i <= len(path); i++ {
		if i < len(path) && !(path[i] == ':' && i+1 < len(path) && path[i+1] == ':') {
			continue
		}
		seg := path[start:i]
		if node == nil {
			node = b.Ident(seg)
		} else {
			node = b.Scoped(node, seg)
		}
		start = i + 2
		i++
	}
	return node
}

// Call builds recv.name(args). recv may be nil.
func (b *Builder) Call(recv syntax.Node, name string, args ...syntax.Node) *syntax.Call {
	id := b.Ident(name)
	all := append([]syntax.Node{id}, args...)
	if recv != nil {
		all = append(all, recv)
	}
	return &syntax.Call{Span: syntax.Span{Loc: b.spanList(all)}, Receiver: recv, Name: id, Args: args}
}

// WithBlock attaches a block to call and widens its range.
func (b *Builder) WithBlock(call *syntax.Call, params []*syntax.Param, stmts ...syntax.Node) *syntax.Call {
	call.Block = b.Block(params, stmts...)
	call.Loc = span(call.Loc, call.Block)
	return call
}

func (b *Builder) Block(params []*syntax.Param, stmts ...syntax.Node) *syntax.Block {
	body := b.Body(stmts...)
	all := []syntax.Node{body}
	for _, p := range params {
		all = append(all, p)
	}
	return &syntax.Block{Span: syntax.Span{Loc: b.spanList(all)}, Params: params, Body: body}
}

func (b *Builder) Lambda(params []*syntax.Param, stmts ...syntax.Node) *syntax.Lambda {
	body := b.Body(stmts...)
	all := []syntax.Node{body}
	for _, p := range params {
		all = append(all, p)
	}
	return &syntax.Lambda{Span: syntax.Span{Loc: b.spanList(all)}, Params: params, Body: body}
}

func (b *Builder) Index(recv syntax.Node, args ...syntax.Node) *syntax.Index {
	return &syntax.Index{Span: syntax.Span{Loc: b.spanList(args, recv)}, Receiver: recv, Args: args}
}

func (b *Builder) Alias(newName, oldName string) *syntax.Alias {
	n, o := b.Ident(newName), b.Ident(oldName)
	return &syntax.Alias{Span: syntax.Span{Loc: span(b.next(), n, o)}, New: n, Old: o}
}
