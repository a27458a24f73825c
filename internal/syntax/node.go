// Package syntax defines the Ruby syntax tree consumed by the analysis passes
// and the generic walker that traverses it.
//
// The tree is a closed set of variant node types. Each variant carries exactly
// the children it needs; lists of statements or arguments are plain slices.
// Trees are built once by a parser (or by tests) and are read-only afterwards.
package syntax

// Node is implemented by every syntax tree variant in this package.
type Node interface {
	Range() Range
	node()
}

// Span is embedded by every variant to carry its source range.
type Span struct {
	Loc Range
}

// Range returns the source range of the node.
func (s Span) Range() Range { return s.Loc }

// IdentKind classifies an identifier by its sigil and capitalization.
type IdentKind uint8

const (
	LocalIdent    IdentKind = iota // foo
	ConstantIdent                  // Foo
	InstanceIdent                  // @foo
	ClassVarIdent                  // @@foo
	GlobalIdent                    // $foo
)

func (k IdentKind) String() string {
	switch k {
	case LocalIdent:
		return "local"
	case ConstantIdent:
		return "constant"
	case InstanceIdent:
		return "instance"
	case ClassVarIdent:
		return "class"
	case GlobalIdent:
		return "global"
	default:
		return "unknown"
	}
}

// KindOf derives the identifier kind from the spelling of name.
func KindOf(name string) IdentKind {
	switch {
	case len(name) > 1 && name[0] == '@' && name[1] == '@':
		return ClassVarIdent
	case len(name) > 0 && name[0] == '@':
		return InstanceIdent
	case len(name) > 0 && name[0] == '$':
		return GlobalIdent
	case len(name) > 0 && name[0] >= 'A' && name[0] <= 'Z':
		return ConstantIdent
	default:
		return LocalIdent
	}
}

// ParamKind classifies method and block parameters.
type ParamKind uint8

const (
	RequiredParam ParamKind = iota
	OptionalParam           // a = 1
	RestParam               // *args
	KeywordParam            // key: or key: 1
	KeywordRestParam        // **opts
	BlockParam              // &blk
)

func (k ParamKind) String() string {
	switch k {
	case RequiredParam:
		return "required"
	case OptionalParam:
		return "optional"
	case RestParam:
		return "rest"
	case KeywordParam:
		return "keyword"
	case KeywordRestParam:
		return "keyrest"
	case BlockParam:
		return "block"
	default:
		return "unknown"
	}
}

// Positional reports whether arguments bind to the parameter by position.
func (k ParamKind) Positional() bool {
	return k == RequiredParam || k == OptionalParam
}

// JumpKind distinguishes the terminal control keywords.
type JumpKind uint8

const (
	JumpBreak JumpKind = iota
	JumpNext
	JumpRedo
	JumpRetry
)

func (k JumpKind) String() string {
	switch k {
	case JumpBreak:
		return "break"
	case JumpNext:
		return "next"
	case JumpRedo:
		return "redo"
	case JumpRetry:
		return "retry"
	default:
		return "jump"
	}
}

// BinaryKind groups binary operators by the type of value they produce.
type BinaryKind uint8

const (
	Arithmetic BinaryKind = iota
	Comparison
	Logical
)

// Program is the root of a parsed unit.
type Program struct {
	Span
	Stmts []Node
}

// Literals.

type Integer struct {
	Span
	Text string
}

type Float struct {
	Span
	Text string
}

// String is a string literal, heredoc or backtick command. Parts holds the
// interpolated expressions.
type String struct {
	Span
	Value   string
	Parts   []Node
	Heredoc bool
}

type Symbol struct {
	Span
	Name  string
	Parts []Node
}

type Regexp struct {
	Span
	Parts []Node
}

type True struct{ Span }

type False struct{ Span }

type Nil struct{ Span }

type Self struct{ Span }

// FileKeyword is __FILE__.
type FileKeyword struct{ Span }

// LineKeyword is __LINE__.
type LineKeyword struct{ Span }

// EncodingKeyword is __ENCODING__.
type EncodingKeyword struct{ Span }

// RangeExpr is a..b or a...b. Either bound may be nil for endless ranges.
type RangeExpr struct {
	Span
	Low       Node
	High      Node
	Exclusive bool
}

type Array struct {
	Span
	Elements []Node
}

type Hash struct {
	Span
	Pairs []*Pair
}

type Pair struct {
	Span
	Key   Node
	Value Node
}

// Names.

// Ident is a bare name: local variable or method, constant, instance
// variable, class variable or global.
type Ident struct {
	Span
	Name string
	Kind IdentKind
}

// ScopedName is Scope::Name. Scope is nil for a top-level ::Name.
type ScopedName struct {
	Span
	Scope Node
	Name  *Ident
}

// Operators.

type Binary struct {
	Span
	Op    string
	Left  Node
	Right Node
}

// Kind classifies the operator.
func (b *Binary) Kind() BinaryKind {
	switch b.Op {
	case "==", "!=", "<", ">", "<=", ">=", "===", "=~", "!~", "eql?", "equal?":
		return Comparison
	case "&&", "||", "and", "or":
		return Logical
	default:
		return Arithmetic
	}
}

type Unary struct {
	Span
	Op      string
	Operand Node
}

// Defined is defined?(expr).
type Defined struct {
	Span
	Expr Node
}

// Assignment.

// Assign covers single, multiple and operator assignment. Op is empty for
// plain assignment and holds the compound operator ("+", "||", ...) otherwise.
type Assign struct {
	Span
	Targets []Node
	Values  []Node
	Op      string
}

// Splat is *value in an argument or assignment list.
type Splat struct {
	Span
	Value Node
}

// Control flow.

// If covers if, unless, elsif chains, statement modifiers and the ternary
// operator. An elsif is represented as a nested If in Else.
type If struct {
	Span
	Cond    Node
	Then    []Node
	Else    []Node
	Negated bool
	Ternary bool
}

type Case struct {
	Span
	Subject Node
	Whens   []*When
	Else    []Node
}

type When struct {
	Span
	Patterns []Node
	Body     []Node
}

// While covers while and until loops, including modifier forms.
type While struct {
	Span
	Cond  Node
	Body  []Node
	Until bool
}

type For struct {
	Span
	Vars []Node
	Iter Node
	Body []Node
}

// Begin is an explicit begin ... end block.
type Begin struct {
	Span
	Body *Body
}

// Body is a statement list with optional rescue, else and ensure clauses. It
// is shared by begin blocks and by class, module, method and do-block bodies.
type Body struct {
	Span
	Stmts   []Node
	Rescues []*Rescue
	Else    []Node
	Ensure  []Node
}

type Rescue struct {
	Span
	Exceptions []Node
	Var        *Ident
	Body       []Node
}

type Return struct {
	Span
	Value Node
}

type Yield struct {
	Span
	Args []Node
}

type Super struct {
	Span
	Args  []Node
	Block *Block
}

// Jump is break, next, redo or retry.
type Jump struct {
	Span
	Kind JumpKind
}

// BeginEndBlock is BEGIN { ... } or END { ... }.
type BeginEndBlock struct {
	Span
	End   bool
	Stmts []Node
}

type Alias struct {
	Span
	New Node
	Old Node
}

type Undef struct {
	Span
	Names []Node
}

// Definitions.

type ClassDef struct {
	Span
	Name       Node
	Superclass Node
	Body       *Body
	Comment    string
}

// SingletonClass is class << target.
type SingletonClass struct {
	Span
	Target Node
	Body   *Body
}

type ModuleDef struct {
	Span
	Name    Node
	Body    *Body
	Comment string
}

// MethodDef is a def. Receiver is set for singleton definitions such as
// def self.name.
type MethodDef struct {
	Span
	Receiver Node
	Name     *Ident
	Params   []*Param
	Body     *Body
	Comment  string
}

type Param struct {
	Span
	Name    *Ident
	Kind    ParamKind
	Default Node
}

// Calls.

// Call is a method call. Receiver is nil for receiver-less calls.
type Call struct {
	Span
	Receiver Node
	Name     *Ident
	Args     []Node
	Block    *Block
}

// Block is a do ... end or { ... } block attached to a call.
type Block struct {
	Span
	Params []*Param
	Body   *Body
}

// Lambda is the stabby lambda literal ->(x) { ... }.
type Lambda struct {
	Span
	Params []*Param
	Body   *Body
}

// Index is receiver[args].
type Index struct {
	Span
	Receiver Node
	Args     []Node
}

// EndOfStream is the __END__ marker.
type EndOfStream struct{ Span }

func (*Program) node()         {}
func (*Integer) node()         {}
func (*Float) node()           {}
func (*String) node()          {}
func (*Symbol) node()          {}
func (*Regexp) node()          {}
func (*True) node()            {}
func (*False) node()           {}
func (*Nil) node()             {}
func (*Self) node()            {}
func (*FileKeyword) node()     {}
func (*LineKeyword) node()     {}
func (*EncodingKeyword) node() {}
func (*RangeExpr) node()       {}
func (*Array) node()           {}
func (*Hash) node()            {}
func (*Pair) node()            {}
func (*Ident) node()           {}
func (*ScopedName) node()      {}
func (*Binary) node()          {}
func (*Unary) node()           {}
func (*Defined) node()         {}
func (*Assign) node()          {}
func (*Splat) node()           {}
func (*If) node()              {}
func (*Case) node()            {}
func (*When) node()            {}
func (*While) node()           {}
func (*For) node()             {}
func (*Begin) node()           {}
func (*Body) node()            {}
func (*Rescue) node()          {}
func (*Return) node()          {}
func (*Yield) node()           {}
func (*Super) node()           {}
func (*Jump) node()            {}
func (*BeginEndBlock) node()   {}
func (*Alias) node()           {}
func (*Undef) node()           {}
func (*ClassDef) node()        {}
func (*SingletonClass) node()  {}
func (*ModuleDef) node()       {}
func (*MethodDef) node()       {}
func (*Param) node()           {}
func (*Call) node()            {}
func (*Block) node()           {}
func (*Lambda) node()          {}
func (*Index) node()           {}
func (*EndOfStream) node()     {}

// NameOf returns the textual name of a definition name node (Ident or
// ScopedName), joined with "::". It returns "" for other nodes.
func NameOf(n Node) string {
	switch n := n.(type) {
	case *Ident:
		return n.Name
	case *ScopedName:
		if n.Scope == nil {
			return n.Name.Name
		}
		prefix := NameOf(n.Scope)
		if prefix == "" {
			return n.Name.Name
		}
		return prefix + "::" + n.Name.Name
	case *Symbol:
		return n.Name
	case *String:
		return n.Value
	default:
		return ""
	}
}

// Segments splits a definition name node into its qualified segments.
func Segments(n Node) []string {
	switch n := n.(type) {
	case *Ident:
		return []string{n.Name}
	case *ScopedName:
		if n.Scope == nil {
			return []string{n.Name.Name}
		}
		return append(Segments(n.Scope), n.Name.Name)
	default:
		return nil
	}
}

// Last returns the final statement of a list, or nil.
func Last(stmts []Node) Node {
	if len(stmts) == 0 {
		return nil
	}
	return stmts[len(stmts)-1]
}
