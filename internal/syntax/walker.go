package syntax

// Handler is the capability every pass must supply to the Walker. Declared
// reports whether name, occurring at node n, is bound by a declaration
// visible from the pass's current context; the walker uses it to decide
// whether a pseudo-keyword call such as require or include is the keyword or
// an ordinary method call.
type Handler interface {
	Declared(n Node, name string) bool
}

// Optional hooks. A pass implements only the ones it cares about; for every
// other construct the walker recurses into the children itself. A hook that
// wants the default traversal too calls Walker.Children.

type ClassHandler interface {
	Class(w *Walker, n *ClassDef)
}

type SingletonClassHandler interface {
	SingletonClass(w *Walker, n *SingletonClass)
}

type ModuleHandler interface {
	Module(w *Walker, n *ModuleDef)
}

type MethodHandler interface {
	Method(w *Walker, n *MethodDef)
}

type BlockHandler interface {
	Block(w *Walker, n *Block)
}

// LambdaHandler receives stabby lambdas and unshadowed lambda/proc calls.
type LambdaHandler interface {
	Lambda(w *Walker, n Node)
}

type AssignHandler interface {
	Assign(w *Walker, n *Assign)
}

type CallHandler interface {
	Call(w *Walker, n *Call)
}

// NameHandler receives identifier and scoped-name references.
type NameHandler interface {
	Name(w *Walker, n Node)
}

type RequireHandler interface {
	Require(w *Walker, n *Call, relative bool)
}

type MixinHandler interface {
	Mixin(w *Walker, n *Call, extend bool)
}

// AccessHandler receives unshadowed public/private/protected/module_function.
// args is empty for the bare form that affects all following definitions.
type AccessHandler interface {
	Access(w *Walker, n Node, keyword string, args []Node)
}

type ReturnHandler interface {
	Return(w *Walker, n *Return)
}

type AliasHandler interface {
	Alias(w *Walker, n *Alias)
}

type ForHandler interface {
	For(w *Walker, n *For)
}

type RescueHandler interface {
	Rescue(w *Walker, n *Rescue)
}

type pseudoKeyword uint8

const (
	pseudoRequire pseudoKeyword = iota + 1
	pseudoRequireRelative
	pseudoInclude
	pseudoExtend
	pseudoLambda
	pseudoAccess
)

var pseudoKeywords = map[string]pseudoKeyword{
	"require":          pseudoRequire,
	"require_relative": pseudoRequireRelative,
	"include":          pseudoInclude,
	"extend":           pseudoExtend,
	"lambda":           pseudoLambda,
	"proc":             pseudoLambda,
	"public":           pseudoAccess,
	"private":          pseudoAccess,
	"protected":        pseudoAccess,
	"module_function":  pseudoAccess,
}

// IsPseudoKeyword reports whether name is handled specially by the walker
// when it is not shadowed by a declaration.
func IsPseudoKeyword(name string) bool {
	_, ok := pseudoKeywords[name]
	return ok
}

// Walker dispatches nodes to the hooks of one pass.
type Walker struct {
	h Handler
}

// NewWalker returns a walker driving h.
func NewWalker(h Handler) *Walker {
	return &Walker{h: h}
}

// Statements walks a statement or argument list left to right.
func (w *Walker) Statements(list []Node) {
	for _, n := range list {
		w.Walk(n)
	}
}

// Walk dispatches n to exactly one hook or to the default traversal.
func (w *Walker) Walk(n Node) {
	if isNil(n) {
		return
	}
	switch n := n.(type) {
	case *ClassDef:
		if h, ok := w.h.(ClassHandler); ok {
			h.Class(w, n)
			return
		}
	case *SingletonClass:
		if h, ok := w.h.(SingletonClassHandler); ok {
			h.SingletonClass(w, n)
			return
		}
	case *ModuleDef:
		if h, ok := w.h.(ModuleHandler); ok {
			h.Module(w, n)
			return
		}
	case *MethodDef:
		if h, ok := w.h.(MethodHandler); ok {
			h.Method(w, n)
			return
		}
	case *Block:
		if h, ok := w.h.(BlockHandler); ok {
			h.Block(w, n)
			return
		}
	case *Lambda:
		if h, ok := w.h.(LambdaHandler); ok {
			h.Lambda(w, n)
			return
		}
	case *Assign:
		if h, ok := w.h.(AssignHandler); ok {
			h.Assign(w, n)
			return
		}
	case *Call:
		w.call(n)
		return
	case *Ident:
		if n.Kind == LocalIdent && pseudoKeywords[n.Name] == pseudoAccess && !w.h.Declared(n, n.Name) {
			if h, ok := w.h.(AccessHandler); ok {
				h.Access(w, n, n.Name, nil)
			}
			return
		}
		if h, ok := w.h.(NameHandler); ok {
			h.Name(w, n)
			return
		}
	case *ScopedName:
		if h, ok := w.h.(NameHandler); ok {
			h.Name(w, n)
			return
		}
	case *Return:
		if h, ok := w.h.(ReturnHandler); ok {
			h.Return(w, n)
			return
		}
	case *Alias:
		if h, ok := w.h.(AliasHandler); ok {
			h.Alias(w, n)
			return
		}
	case *For:
		if h, ok := w.h.(ForHandler); ok {
			h.For(w, n)
			return
		}
	case *Rescue:
		if h, ok := w.h.(RescueHandler); ok {
			h.Rescue(w, n)
			return
		}
	}
	w.Children(n)
}

func (w *Walker) call(n *Call) {
	if n.Receiver == nil && n.Name != nil {
		if kw, ok := pseudoKeywords[n.Name.Name]; ok && !w.h.Declared(n, n.Name.Name) {
			w.pseudo(kw, n)
			return
		}
	}
	if h, ok := w.h.(CallHandler); ok {
		h.Call(w, n)
		return
	}
	w.Children(n)
}

func (w *Walker) pseudo(kw pseudoKeyword, n *Call) {
	switch kw {
	case pseudoRequire, pseudoRequireRelative:
		if h, ok := w.h.(RequireHandler); ok {
			h.Require(w, n, kw == pseudoRequireRelative)
			return
		}
		w.Statements(n.Args)
	case pseudoInclude, pseudoExtend:
		if h, ok := w.h.(MixinHandler); ok {
			h.Mixin(w, n, kw == pseudoExtend)
			return
		}
		w.Statements(n.Args)
	case pseudoLambda:
		if h, ok := w.h.(LambdaHandler); ok {
			h.Lambda(w, n)
			return
		}
		w.Statements(n.Args)
		w.Walk(n.Block)
	case pseudoAccess:
		if h, ok := w.h.(AccessHandler); ok {
			h.Access(w, n, n.Name.Name, n.Args)
			return
		}
		w.Statements(n.Args)
	}
}

// Children walks the children of n in their fixed source order. Terminal
// nodes have no children.
func (w *Walker) Children(n Node) {
	switch n := n.(type) {
	case *Program:
		w.Statements(n.Stmts)
	case *Integer, *Float, *True, *False, *Nil, *Self, *FileKeyword,
		*LineKeyword, *EncodingKeyword, *Jump, *EndOfStream, *Ident:
	case *String:
		w.Statements(n.Parts)
	case *Symbol:
		w.Statements(n.Parts)
	case *Regexp:
		w.Statements(n.Parts)
	case *RangeExpr:
		w.Walk(n.Low)
		w.Walk(n.High)
	case *Array:
		w.Statements(n.Elements)
	case *Hash:
		for _, p := range n.Pairs {
			w.Walk(p)
		}
	case *Pair:
		w.Walk(n.Key)
		w.Walk(n.Value)
	case *ScopedName:
		w.Walk(n.Scope)
	case *Binary:
		w.Walk(n.Left)
		w.Walk(n.Right)
	case *Unary:
		w.Walk(n.Operand)
	case *Defined:
		w.Walk(n.Expr)
	case *Assign:
		w.Statements(n.Values)
		w.Statements(n.Targets)
	case *Splat:
		w.Walk(n.Value)
	case *If:
		w.Walk(n.Cond)
		w.Statements(n.Then)
		w.Statements(n.Else)
	case *Case:
		w.Walk(n.Subject)
		for _, wh := range n.Whens {
			w.Walk(wh)
		}
		w.Statements(n.Else)
	case *When:
		w.Statements(n.Patterns)
		w.Statements(n.Body)
	case *While:
		w.Walk(n.Cond)
		w.Statements(n.Body)
	case *For:
		w.Walk(n.Iter)
		w.Statements(n.Vars)
		w.Statements(n.Body)
	case *Begin:
		w.Walk(n.Body)
	case *Body:
		w.Statements(n.Stmts)
		for _, r := range n.Rescues {
			w.Walk(r)
		}
		w.Statements(n.Else)
		w.Statements(n.Ensure)
	case *Rescue:
		w.Statements(n.Exceptions)
		w.Walk(n.Var)
		w.Statements(n.Body)
	case *Return:
		w.Walk(n.Value)
	case *Yield:
		w.Statements(n.Args)
	case *Super:
		w.Statements(n.Args)
		w.Walk(n.Block)
	case *BeginEndBlock:
		w.Statements(n.Stmts)
	case *Alias:
		w.Walk(n.Old)
	case *Undef:
		w.Statements(n.Names)
	case *ClassDef:
		w.Walk(n.Superclass)
		w.Walk(n.Body)
	case *SingletonClass:
		w.Walk(n.Target)
		w.Walk(n.Body)
	case *ModuleDef:
		w.Walk(n.Body)
	case *MethodDef:
		w.Walk(n.Receiver)
		for _, p := range n.Params {
			w.Walk(p)
		}
		w.Walk(n.Body)
	case *Param:
		w.Walk(n.Default)
	case *Call:
		w.Walk(n.Receiver)
		w.Statements(n.Args)
		w.Walk(n.Block)
	case *Block:
		for _, p := range n.Params {
			w.Walk(p)
		}
		w.Walk(n.Body)
	case *Lambda:
		for _, p := range n.Params {
			w.Walk(p)
		}
		w.Walk(n.Body)
	case *Index:
		w.Walk(n.Receiver)
		w.Statements(n.Args)
	}
}

// isNil catches typed nil pointers stored in the Node interface, which occur
// for optional children such as Call.Block.
func isNil(n Node) bool {
	if n == nil {
		return true
	}
	switch n := n.(type) {
	case *Block:
		return n == nil
	case *Body:
		return n == nil
	case *Ident:
		return n == nil
	case *Pair:
		return n == nil
	case *When:
		return n == nil
	case *Rescue:
		return n == nil
	case *Param:
		return n == nil
	}
	return false
}
