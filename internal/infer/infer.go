// Package infer computes best-effort types for Ruby expressions.
//
// Inference is total: every expression gets a type, and anything the engine
// cannot reason about is NilClass. The only state the engine keeps between
// calls is the declaration visited last, which callers use to tell a class
// reference from an instance.
package infer

import (
	"errors"
	"fmt"

	"github.com/jward/garnet/internal/graph"
	"github.com/jward/garnet/internal/syntax"
	"github.com/jward/garnet/internal/types"
)

// ErrMissingBuiltin is returned by Verify when the builtins unit lacks a class
// that literals map to.
var ErrMissingBuiltin = errors.New("builtin class missing")

// Literal classes. They must exist in the builtins unit.
const (
	FixnumClass   = "Fixnum"
	FloatClass    = "Float"
	StringClass   = "String"
	SymbolClass   = "Symbol"
	RegexpClass   = "Regexp"
	RangeClass    = "Range"
	EncodingClass = "Encoding"
)

// maxAncestry bounds superclass walks over cyclic or very deep hierarchies.
const maxAncestry = 32

var literalClasses = []string{
	FixnumClass, FloatClass, StringClass, SymbolClass, RegexpClass, RangeClass, EncodingClass,
	types.TrueClassName, types.FalseClassName, types.NilClassName, types.ObjectName,
	types.ArrayName, types.HashName, types.ProcName,
}

// Engine infers expression types against a lookup.
type Engine struct {
	lookup   *graph.Lookup
	literals map[string]types.Type
	last     *graph.Declaration
}

// New returns an engine resolving names through l.
func New(l *graph.Lookup) *Engine {
	e := &Engine{lookup: l, literals: make(map[string]types.Type, len(literalClasses))}
	for _, name := range literalClasses {
		e.literals[name] = types.Named(name)
	}
	return e
}

// Verify checks that b defines every class literals map to.
func Verify(b *graph.Unit) error {
	for _, name := range literalClasses {
		if b.ClassContext(name) == nil {
			return fmt.Errorf("infer: %q: %w", name, ErrMissingBuiltin)
		}
	}
	return nil
}

// Lookup returns the lookup the engine resolves names with.
func (e *Engine) Lookup() *graph.Lookup {
	return e.lookup
}

// Last returns the declaration visited last by Infer, or nil.
func (e *Engine) Last() *graph.Declaration {
	return e.last
}

// Literal returns the type of a literal class.
func (e *Engine) Literal(name string) types.Type {
	if t, ok := e.literals[name]; ok {
		return t
	}
	return types.Named(name)
}

func (e *Engine) boolean() types.Type {
	return types.Merge(e.Literal(types.TrueClassName), e.Literal(types.FalseClassName))
}

// Infer returns the type of n evaluated in ctx.
func (e *Engine) Infer(ctx *graph.Context, n syntax.Node) types.Type {
	e.last = nil
	return types.OrNil(e.infer(ctx, n))
}

// Statements returns the type of the last statement of list.
func (e *Engine) Statements(ctx *graph.Context, list []syntax.Node) types.Type {
	e.last = nil
	return types.OrNil(e.stmts(ctx, list))
}

// Body returns the type a begin/def body evaluates to. An else clause
// replaces the value of the main statements; rescue clauses add theirs.
func (e *Engine) Body(ctx *graph.Context, b *syntax.Body) types.Type {
	e.last = nil
	return types.OrNil(e.body(ctx, b))
}

func (e *Engine) stmts(ctx *graph.Context, list []syntax.Node) types.Type {
	last := syntax.Last(list)
	if last == nil {
		return types.Nil
	}
	return e.infer(ctx, last)
}

func (e *Engine) infer(ctx *graph.Context, n syntax.Node) types.Type {
	switch n := n.(type) {
	case nil:
		return types.Nil
	case *syntax.Integer, *syntax.LineKeyword:
		return e.Literal(FixnumClass)
	case *syntax.Float:
		return e.Literal(FloatClass)
	case *syntax.String, *syntax.FileKeyword:
		return e.Literal(StringClass)
	case *syntax.Symbol:
		return e.Literal(SymbolClass)
	case *syntax.Regexp:
		return e.Literal(RegexpClass)
	case *syntax.RangeExpr:
		return e.Literal(RangeClass)
	case *syntax.EncodingKeyword:
		return e.Literal(EncodingClass)
	case *syntax.True:
		return e.Literal(types.TrueClassName)
	case *syntax.False:
		return e.Literal(types.FalseClassName)
	case *syntax.Nil:
		return e.Literal(types.NilClassName)
	case *syntax.Self:
		if cls := ctx.EnclosingClass(); cls != nil {
			return types.Named(cls.Name.String())
		}
		return e.Literal(types.ObjectName)
	case *syntax.Defined:
		return types.Merge(e.Literal(StringClass), types.Nil)
	case *syntax.Array:
		return e.array(ctx, n)
	case *syntax.Hash:
		return e.hash(ctx, n)
	case *syntax.Ident:
		return e.name(ctx, n)
	case *syntax.ScopedName:
		d := e.lookup.FindQualified(ctx, graph.QualifiedName(syntax.Segments(n)), n.Range().Start, nil)
		e.last = d
		return declType(d)
	case *syntax.Assign:
		if len(n.Values) == 1 {
			return e.infer(ctx, n.Values[0])
		}
		return e.array(ctx, &syntax.Array{Span: n.Span, Elements: n.Values})
	case *syntax.Splat:
		return e.infer(ctx, n.Value)
	case *syntax.If:
		return types.Merge(e.stmts(ctx, n.Then), e.stmts(ctx, n.Else))
	case *syntax.Case:
		var out types.Type
		for _, w := range n.Whens {
			out = types.Merge(out, e.stmts(ctx, w.Body))
		}
		return types.Merge(out, e.stmts(ctx, n.Else))
	case *syntax.Begin:
		return e.body(ctx, n.Body)
	case *syntax.Return:
		return e.infer(ctx, n.Value)
	case *syntax.Binary:
		return e.binary(ctx, n)
	case *syntax.Unary:
		if n.Op == "!" || n.Op == "not" {
			return e.boolean()
		}
		return e.infer(ctx, n.Operand)
	case *syntax.Call:
		return e.call(ctx, n)
	case *syntax.Index:
		return e.index(ctx, n)
	case *syntax.Lambda, *syntax.Block:
		return e.Literal(types.ProcName)
	case *syntax.MethodDef:
		return e.Literal(SymbolClass)
	default:
		return types.Nil
	}
}

func (e *Engine) body(ctx *graph.Context, b *syntax.Body) types.Type {
	if b == nil {
		return types.Nil
	}
	out := e.stmts(ctx, b.Stmts)
	if len(b.Else) > 0 {
		out = e.stmts(ctx, b.Else)
	}
	for _, r := range b.Rescues {
		out = types.Merge(out, e.stmts(ctx, r.Body))
	}
	return out
}

func (e *Engine) array(ctx *graph.Context, n *syntax.Array) types.Type {
	var elem types.Type
	for _, el := range n.Elements {
		t := e.infer(ctx, el)
		if s, ok := el.(*syntax.Splat); ok {
			if c, ok := e.infer(ctx, s.Value).(types.Container); ok {
				t = c.Elem
			}
		}
		elem = types.Merge(elem, t)
	}
	return types.Container{Class: types.ArrayName, Elem: elem}
}

func (e *Engine) hash(ctx *graph.Context, n *syntax.Hash) types.Type {
	var key, elem types.Type
	for _, p := range n.Pairs {
		key = types.Merge(key, e.infer(ctx, p.Key))
		elem = types.Merge(elem, e.infer(ctx, p.Value))
	}
	return types.Container{Class: types.HashName, Key: key, Elem: elem}
}

func (e *Engine) name(ctx *graph.Context, n *syntax.Ident) types.Type {
	d := e.lookup.Find(ctx, n.Name, n.Range().Start, nil)
	e.last = d
	if d != nil && d.Callable() && n.Name == "new" {
		if owner := selfClass(ctx); owner != nil {
			e.last = owner
			return types.Named(owner.Name.String())
		}
	}
	return declType(d)
}

// declType is the type an expression referring to d evaluates to.
func declType(d *graph.Declaration) types.Type {
	switch {
	case d == nil:
		return types.Nil
	case d.IsType():
		return types.Named(d.Name.String())
	case d.Callable():
		return d.ReturnType()
	default:
		return d.Type()
	}
}

func (e *Engine) binary(ctx *graph.Context, n *syntax.Binary) types.Type {
	switch n.Kind() {
	case syntax.Comparison:
		return e.boolean()
	case syntax.Logical:
		return types.Merge(e.infer(ctx, n.Left), e.infer(ctx, n.Right))
	default:
		left := e.infer(ctx, n.Left)
		right := e.infer(ctx, n.Right)
		if e.numeric(ctx, left) && e.numeric(ctx, right) {
			return types.Merge(left, right)
		}
		return left
	}
}

// numeric reports whether every alternative of t is a Numeric subclass.
func (e *Engine) numeric(ctx *graph.Context, t types.Type) bool {
	names := types.ClassNames(t)
	if len(names) == 0 || len(names) != len(types.Alternatives(t)) {
		return false
	}
	for _, cls := range names {
		if !e.inherits(ctx, cls, "Numeric") {
			return false
		}
	}
	return true
}

func (e *Engine) inherits(ctx *graph.Context, cls, ancestor string) bool {
	for range maxAncestry {
		if cls == ancestor {
			return true
		}
		if cls = e.lookup.Superclass(ctx.Unit, cls); cls == "" {
			return false
		}
	}
	return false
}

// IsClassReference reports whether n syntactically names a constant.
func IsClassReference(n syntax.Node) bool {
	switch n := n.(type) {
	case *syntax.Ident:
		return n.Kind == syntax.ConstantIdent
	case *syntax.ScopedName:
		return true
	default:
		return false
	}
}

func (e *Engine) call(ctx *graph.Context, n *syntax.Call) types.Type {
	name := n.Name.Name
	at := n.Name.Range().Start
	if n.Receiver == nil {
		if (name == "lambda" || name == "proc") && !e.lookup.Declared(ctx, name, at) {
			return e.Literal(types.ProcName)
		}
		d := e.lookup.Find(ctx, name, at, graph.Callables)
		e.last = d
		if d == nil {
			return types.Nil
		}
		if owner := selfClass(ctx); name == "new" && owner != nil {
			e.last = owner
			return types.Named(owner.Name.String())
		}
		return d.ReturnType()
	}

	if _, ok := n.Receiver.(*syntax.Self); ok {
		if owner := selfClass(ctx); owner != nil {
			e.last = owner
			return e.classCall(ctx, owner, name)
		}
	}
	recv := e.infer(ctx, n.Receiver)
	if owner := e.last; owner != nil && owner.IsType() && IsClassReference(n.Receiver) {
		return e.classCall(ctx, owner, name)
	}

	e.last = nil
	var out types.Type
	for _, alt := range types.Alternatives(recv) {
		if c, ok := alt.(types.Container); ok {
			if t := containerMethod(c, name); t != nil {
				out = types.Merge(out, t)
				continue
			}
		}
		for _, cls := range types.ClassNames(alt) {
			d := e.lookup.Member(ctx.Unit, cls, name, graph.InstanceMembers, graph.Callables)
			if d != nil {
				e.last = d
				out = types.Merge(out, d.ReturnType())
			}
		}
	}
	return types.OrNil(out)
}

// classCall types a call whose receiver is the class object owner. After
// new, Last stays on owner so callers can find its initialize.
func (e *Engine) classCall(ctx *graph.Context, owner *graph.Declaration, name string) types.Type {
	if name == "new" {
		return types.Named(owner.Name.String())
	}
	d := e.lookup.Member(ctx.Unit, owner.Name.String(), name, graph.SingletonMembers, graph.Callables)
	e.last = d
	if d == nil {
		return types.Nil
	}
	return d.ReturnType()
}

// selfClass returns the class or module self denotes in ctx, nil when self
// is an instance or the top-level object.
func selfClass(ctx *graph.Context) *graph.Declaration {
	cls := ctx.EnclosingClass()
	if cls == nil || graph.SelfMode(ctx) != graph.SingletonMembers {
		return nil
	}
	return cls.Owner
}

// containerMethod types the element accessors of arrays and hashes, which
// the builtins unit cannot express. It returns nil for other methods.
func containerMethod(c types.Container, method string) types.Type {
	switch method {
	case "first", "last", "pop", "shift", "sample", "min", "max", "[]", "fetch", "at":
		return c.ElemType()
	case "keys":
		if c.Class == types.HashName {
			return types.Container{Class: types.ArrayName, Elem: c.Key}
		}
	case "values":
		if c.Class == types.HashName {
			return types.Container{Class: types.ArrayName, Elem: c.Elem}
		}
	case "compact", "uniq", "reverse", "sort", "dup", "select", "reject":
		return c
	}
	return nil
}

func (e *Engine) index(ctx *graph.Context, n *syntax.Index) types.Type {
	recv := e.infer(ctx, n.Receiver)
	e.last = nil
	var out types.Type
	for _, alt := range types.Alternatives(recv) {
		if c, ok := alt.(types.Container); ok {
			out = types.Merge(out, c.ElemType())
			continue
		}
		for _, cls := range types.ClassNames(alt) {
			if d := e.lookup.Member(ctx.Unit, cls, "[]", graph.InstanceMembers, graph.Callables); d != nil {
				out = types.Merge(out, d.ReturnType())
			}
		}
	}
	return types.OrNil(out)
}
