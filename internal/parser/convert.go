package parser

import (
	"strings"

	sitter "github.com/smacker/go-tree-sitter"

	"github.com/jward/garnet/internal/syntax"
)

// converter maps tree-sitter Ruby nodes to syntax nodes.
type converter struct {
	src []byte
}

func (c *converter) span(n *sitter.Node) syntax.Span {
	return syntax.Span{Loc: rangeOf(n)}
}

func (c *converter) text(n *sitter.Node) string {
	return n.Content(c.src)
}

func (c *converter) field(n *sitter.Node, name string) syntax.Node {
	if f := n.ChildByFieldName(name); f != nil {
		return c.expr(f)
	}
	return nil
}

// named returns the named children of n except comments.
func named(n *sitter.Node) []*sitter.Node {
	var out []*sitter.Node
	for i := 0; i < int(n.NamedChildCount()); i++ {
		ch := n.NamedChild(i)
		if ch.Type() == "comment" {
			continue
		}
		out = append(out, ch)
	}
	return out
}

// stmts converts the statements directly below n.
func (c *converter) stmts(n *sitter.Node) []syntax.Node {
	if n == nil {
		return nil
	}
	var out []syntax.Node
	for _, ch := range named(n) {
		switch ch.Type() {
		case "empty_statement", "heredoc_body", "rescue", "else", "ensure":
			continue
		}
		if s := c.expr(ch); s != nil {
			out = append(out, s)
		}
	}
	return out
}

// body converts a body_statement-like node with optional rescue, else and
// ensure clauses.
func (c *converter) body(n *sitter.Node) *syntax.Body {
	if n == nil {
		return nil
	}
	switch n.Type() {
	case "body_statement", "begin", "block_body", "do", "then", "do_block", "block":
	default:
		// Endless method definitions have a bare expression body.
		e := c.expr(n)
		if e == nil {
			return &syntax.Body{Span: c.span(n)}
		}
		return &syntax.Body{Span: c.span(n), Stmts: []syntax.Node{e}}
	}
	b := &syntax.Body{Span: c.span(n), Stmts: c.stmts(n)}
	for _, ch := range named(n) {
		switch ch.Type() {
		case "rescue":
			b.Rescues = append(b.Rescues, c.rescue(ch))
		case "else":
			b.Else = c.stmts(ch)
		case "ensure":
			b.Ensure = c.stmts(ch)
		}
	}
	return b
}

func (c *converter) rescue(n *sitter.Node) *syntax.Rescue {
	r := &syntax.Rescue{Span: c.span(n)}
	if ex := n.ChildByFieldName("exceptions"); ex != nil {
		for _, e := range named(ex) {
			if x := c.expr(e); x != nil {
				r.Exceptions = append(r.Exceptions, x)
			}
		}
	}
	if v := n.ChildByFieldName("variable"); v != nil {
		for _, id := range named(v) {
			if x, ok := c.expr(id).(*syntax.Ident); ok {
				r.Var = x
			}
		}
	}
	r.Body = c.stmts(n.ChildByFieldName("body"))
	return r
}

func (c *converter) ident(n *sitter.Node) *syntax.Ident {
	name := c.text(n)
	return &syntax.Ident{Span: c.span(n), Name: name, Kind: syntax.KindOf(name)}
}

// comment returns the contiguous comment lines directly above n.
func (c *converter) comment(n *sitter.Node) string {
	var lines []string
	line := n.StartPoint().Row
	for prev := n.PrevNamedSibling(); prev != nil && prev.Type() == "comment"; prev = prev.PrevNamedSibling() {
		if prev.EndPoint().Row+1 != line {
			break
		}
		lines = append(lines, strings.TrimSpace(strings.TrimPrefix(c.text(prev), "#")))
		line = prev.StartPoint().Row
	}
	for i, j := 0, len(lines)-1; i < j; i, j = i+1, j-1 {
		lines[i], lines[j] = lines[j], lines[i]
	}
	return strings.Join(lines, "\n")
}

// expr converts one expression or statement. Unknown nodes convert to nil.
func (c *converter) expr(n *sitter.Node) syntax.Node {
	if n == nil {
		return nil
	}
	sp := c.span(n)
	switch n.Type() {
	case "integer":
		return &syntax.Integer{Span: sp, Text: c.text(n)}
	case "float", "rational", "complex":
		return &syntax.Float{Span: sp, Text: c.text(n)}
	case "string", "chained_string", "subshell", "character", "heredoc_beginning":
		return c.str(n)
	case "simple_symbol", "delimited_symbol", "hash_key_symbol", "bare_symbol":
		return &syntax.Symbol{Span: sp, Name: strings.Trim(strings.TrimPrefix(c.text(n), ":"), `"'`), Parts: c.interpolations(n)}
	case "regex":
		return &syntax.Regexp{Span: sp, Parts: c.interpolations(n)}
	case "true":
		return &syntax.True{Span: sp}
	case "false":
		return &syntax.False{Span: sp}
	case "nil":
		return &syntax.Nil{Span: sp}
	case "self":
		return &syntax.Self{Span: sp}
	case "file":
		return &syntax.FileKeyword{Span: sp}
	case "line":
		return &syntax.LineKeyword{Span: sp}
	case "encoding":
		return &syntax.EncodingKeyword{Span: sp}
	case "uninterpreted":
		return &syntax.EndOfStream{Span: sp}
	case "identifier", "constant", "instance_variable", "class_variable", "global_variable":
		return c.ident(n)
	case "scope_resolution":
		sn := &syntax.ScopedName{Span: sp, Scope: c.field(n, "scope")}
		if name := n.ChildByFieldName("name"); name != nil {
			sn.Name = c.ident(name)
		} else {
			sn.Name = &syntax.Ident{Span: sp, Kind: syntax.ConstantIdent}
		}
		return sn
	case "range":
		r := &syntax.RangeExpr{Span: sp, Low: c.field(n, "begin"), High: c.field(n, "end")}
		if op := n.ChildByFieldName("operator"); op != nil {
			r.Exclusive = c.text(op) == "..."
		} else {
			r.Exclusive = strings.Contains(c.text(n), "...")
		}
		return r
	case "array", "string_array", "symbol_array":
		a := &syntax.Array{Span: sp}
		for _, ch := range named(n) {
			if e := c.expr(ch); e != nil {
				a.Elements = append(a.Elements, e)
			}
		}
		return a
	case "hash":
		h := &syntax.Hash{Span: sp}
		for _, ch := range named(n) {
			if ch.Type() == "pair" {
				h.Pairs = append(h.Pairs, c.pair(ch))
			}
		}
		return h
	case "pair":
		return c.pair(n)
	case "splat_argument", "hash_splat_argument", "block_argument", "rest_assignment":
		inner := named(n)
		if len(inner) == 0 {
			return nil
		}
		if n.Type() == "block_argument" {
			return c.expr(inner[0])
		}
		return &syntax.Splat{Span: sp, Value: c.expr(inner[0])}
	case "parenthesized_statements", "parenthesized_expression":
		list := c.stmts(n)
		if len(list) == 1 {
			return list[0]
		}
		return &syntax.Begin{Span: sp, Body: &syntax.Body{Span: sp, Stmts: list}}
	case "binary":
		return &syntax.Binary{Span: sp, Op: c.operator(n), Left: c.field(n, "left"), Right: c.field(n, "right")}
	case "unary", "not":
		op := c.operator(n)
		operand := c.field(n, "operand")
		if op == "defined?" {
			return &syntax.Defined{Span: sp, Expr: operand}
		}
		if n.Type() == "not" {
			op = "not"
		}
		return &syntax.Unary{Span: sp, Op: op, Operand: operand}
	case "assignment":
		return c.assign(n, "")
	case "operator_assignment":
		return c.assign(n, strings.TrimSuffix(c.operator(n), "="))
	case "if", "unless", "elsif":
		return c.cond(n)
	case "if_modifier", "unless_modifier":
		return &syntax.If{
			Span:    sp,
			Cond:    c.field(n, "condition"),
			Then:    c.list(n.ChildByFieldName("body")),
			Negated: n.Type() == "unless_modifier",
		}
	case "conditional":
		return &syntax.If{
			Span:    sp,
			Cond:    c.field(n, "condition"),
			Then:    c.list(n.ChildByFieldName("consequence")),
			Else:    c.list(n.ChildByFieldName("alternative")),
			Ternary: true,
		}
	case "while", "until":
		return &syntax.While{Span: sp, Cond: c.field(n, "condition"), Body: c.stmts(n.ChildByFieldName("body")), Until: n.Type() == "until"}
	case "while_modifier", "until_modifier":
		return &syntax.While{Span: sp, Cond: c.field(n, "condition"), Body: c.list(n.ChildByFieldName("body")), Until: n.Type() == "until_modifier"}
	case "case", "case_match":
		return c.caseExpr(n)
	case "for":
		f := &syntax.For{Span: sp, Body: c.stmts(n.ChildByFieldName("body"))}
		if v := n.ChildByFieldName("value"); v != nil {
			if inner := named(v); len(inner) > 0 {
				f.Iter = c.expr(inner[0])
			}
		}
		f.Vars = c.targets(n.ChildByFieldName("pattern"))
		return f
	case "begin":
		return &syntax.Begin{Span: sp, Body: c.body(n)}
	case "rescue_modifier":
		return &syntax.Begin{Span: sp, Body: &syntax.Body{
			Span:    sp,
			Stmts:   c.list(n.ChildByFieldName("body")),
			Rescues: []*syntax.Rescue{{Span: sp, Body: c.list(n.ChildByFieldName("handler"))}},
		}}
	case "return":
		return &syntax.Return{Span: sp, Value: c.argument(n)}
	case "yield":
		return &syntax.Yield{Span: sp, Args: c.arguments(firstOfType(n, "argument_list"))}
	case "break", "next", "redo", "retry":
		return &syntax.Jump{Span: sp, Kind: jumpKinds[n.Type()]}
	case "super":
		return &syntax.Super{Span: sp}
	case "begin_block", "end_block":
		return &syntax.BeginEndBlock{Span: sp, End: n.Type() == "end_block", Stmts: c.stmts(n)}
	case "alias":
		return &syntax.Alias{Span: sp, New: c.methodName(n.ChildByFieldName("name")), Old: c.methodName(n.ChildByFieldName("alias"))}
	case "undef":
		u := &syntax.Undef{Span: sp}
		for _, ch := range named(n) {
			u.Names = append(u.Names, c.methodName(ch))
		}
		return u
	case "class":
		cls := &syntax.ClassDef{Span: sp, Name: c.field(n, "name"), Body: c.body(n.ChildByFieldName("body")), Comment: c.comment(n)}
		if sup := n.ChildByFieldName("superclass"); sup != nil {
			if inner := named(sup); len(inner) > 0 {
				cls.Superclass = c.expr(inner[0])
			}
		}
		if cls.Body == nil {
			cls.Body = &syntax.Body{Span: sp}
		}
		return cls
	case "singleton_class":
		sc := &syntax.SingletonClass{Span: sp, Target: c.field(n, "value"), Body: c.body(n.ChildByFieldName("body"))}
		if sc.Body == nil {
			sc.Body = &syntax.Body{Span: sp}
		}
		return sc
	case "module":
		mod := &syntax.ModuleDef{Span: sp, Name: c.field(n, "name"), Body: c.body(n.ChildByFieldName("body")), Comment: c.comment(n)}
		if mod.Body == nil {
			mod.Body = &syntax.Body{Span: sp}
		}
		return mod
	case "method", "singleton_method":
		return c.method(n)
	case "call", "method_call":
		return c.call(n)
	case "lambda":
		l := &syntax.Lambda{Span: sp, Params: c.params(n.ChildByFieldName("parameters"))}
		if b := n.ChildByFieldName("body"); b != nil {
			l.Params = append(l.Params, c.params(b.ChildByFieldName("parameters"))...)
			l.Body = c.body(b.ChildByFieldName("body"))
		}
		if l.Body == nil {
			l.Body = &syntax.Body{Span: sp}
		}
		return l
	case "element_reference":
		idx := &syntax.Index{Span: sp, Receiver: c.field(n, "object")}
		obj := n.ChildByFieldName("object")
		for _, ch := range named(n) {
			if obj != nil && ch.Equal(obj) {
				continue
			}
			if e := c.expr(ch); e != nil {
				idx.Args = append(idx.Args, e)
			}
		}
		return idx
	case "left_assignment_list", "destructured_left_assignment", "right_assignment_list":
		return &syntax.Array{Span: sp, Elements: c.targets(n)}
	case "interpolation":
		list := c.stmts(n)
		if len(list) == 1 {
			return list[0]
		}
		return &syntax.Begin{Span: sp, Body: &syntax.Body{Span: sp, Stmts: list}}
	}

	// Anything else keeps its children so nothing below it is lost.
	list := c.stmts(n)
	switch len(list) {
	case 0:
		return nil
	case 1:
		return list[0]
	default:
		return &syntax.Begin{Span: sp, Body: &syntax.Body{Span: sp, Stmts: list}}
	}
}

var jumpKinds = map[string]syntax.JumpKind{
	"break": syntax.JumpBreak,
	"next":  syntax.JumpNext,
	"redo":  syntax.JumpRedo,
	"retry": syntax.JumpRetry,
}

func firstOfType(n *sitter.Node, typ string) *sitter.Node {
	for _, ch := range named(n) {
		if ch.Type() == typ {
			return ch
		}
	}
	return nil
}

// operator returns the operator token of a binary, unary or operator
// assignment node.
func (c *converter) operator(n *sitter.Node) string {
	if op := n.ChildByFieldName("operator"); op != nil {
		return c.text(op)
	}
	for i := 0; i < int(n.ChildCount()); i++ {
		if ch := n.Child(i); !ch.IsNamed() {
			return c.text(ch)
		}
	}
	return ""
}

// list converts n as a statement list: statement containers yield their
// statements, any other node yields itself.
func (c *converter) list(n *sitter.Node) []syntax.Node {
	if n == nil {
		return nil
	}
	switch n.Type() {
	case "then", "else", "do", "body_statement", "block_body", "parenthesized_statements":
		return c.stmts(n)
	}
	if e := c.expr(n); e != nil {
		return []syntax.Node{e}
	}
	return nil
}

func (c *converter) str(n *sitter.Node) *syntax.String {
	s := &syntax.String{Span: c.span(n), Heredoc: n.Type() == "heredoc_beginning"}
	var sb strings.Builder
	for _, ch := range named(n) {
		switch ch.Type() {
		case "string_content", "escape_sequence":
			sb.WriteString(c.text(ch))
		case "interpolation":
			if e := c.expr(ch); e != nil {
				s.Parts = append(s.Parts, e)
			}
		case "string":
			inner := c.str(ch)
			sb.WriteString(inner.Value)
			s.Parts = append(s.Parts, inner.Parts...)
		}
	}
	s.Value = sb.String()
	if n.Type() == "character" {
		s.Value = strings.TrimPrefix(c.text(n), "?")
	}
	return s
}

func (c *converter) interpolations(n *sitter.Node) []syntax.Node {
	var out []syntax.Node
	for _, ch := range named(n) {
		if ch.Type() == "interpolation" {
			if e := c.expr(ch); e != nil {
				out = append(out, e)
			}
		}
	}
	return out
}

func (c *converter) pair(n *sitter.Node) *syntax.Pair {
	return &syntax.Pair{Span: c.span(n), Key: c.field(n, "key"), Value: c.field(n, "value")}
}

// argument returns the value of return/break-like statements. Several
// values form an array.
func (c *converter) argument(n *sitter.Node) syntax.Node {
	args := c.arguments(firstOfType(n, "argument_list"))
	switch len(args) {
	case 0:
		return nil
	case 1:
		return args[0]
	default:
		return &syntax.Array{Span: c.span(n), Elements: args}
	}
}

func (c *converter) arguments(n *sitter.Node) []syntax.Node {
	if n == nil {
		return nil
	}
	var out []syntax.Node
	for _, ch := range named(n) {
		if e := c.expr(ch); e != nil {
			out = append(out, e)
		}
	}
	return out
}

func (c *converter) assign(n *sitter.Node, op string) *syntax.Assign {
	a := &syntax.Assign{Span: c.span(n), Op: op, Targets: c.targets(n.ChildByFieldName("left"))}
	right := n.ChildByFieldName("right")
	if right != nil && right.Type() == "right_assignment_list" {
		a.Values = c.arguments(right)
	} else if v := c.expr(right); v != nil {
		a.Values = []syntax.Node{v}
	}
	return a
}

// targets converts the left-hand side of an assignment or for loop.
func (c *converter) targets(n *sitter.Node) []syntax.Node {
	if n == nil {
		return nil
	}
	switch n.Type() {
	case "left_assignment_list", "destructured_left_assignment", "mlhs":
		var out []syntax.Node
		for _, ch := range named(n) {
			if ch.Type() == "destructured_left_assignment" {
				out = append(out, &syntax.Array{Span: c.span(ch), Elements: c.targets(ch)})
				continue
			}
			if e := c.expr(ch); e != nil {
				out = append(out, e)
			}
		}
		return out
	}
	if e := c.expr(n); e != nil {
		return []syntax.Node{e}
	}
	return nil
}

func (c *converter) cond(n *sitter.Node) *syntax.If {
	i := &syntax.If{
		Span:    c.span(n),
		Cond:    c.field(n, "condition"),
		Then:    c.list(n.ChildByFieldName("consequence")),
		Negated: n.Type() == "unless",
	}
	if alt := n.ChildByFieldName("alternative"); alt != nil {
		if alt.Type() == "elsif" {
			i.Else = []syntax.Node{c.cond(alt)}
		} else {
			i.Else = c.stmts(alt)
		}
	}
	return i
}

func (c *converter) caseExpr(n *sitter.Node) *syntax.Case {
	cs := &syntax.Case{Span: c.span(n), Subject: c.field(n, "value")}
	for _, ch := range named(n) {
		switch ch.Type() {
		case "when":
			w := &syntax.When{Span: c.span(ch), Body: c.list(ch.ChildByFieldName("body"))}
			for _, p := range named(ch) {
				if p.Type() != "pattern" {
					continue
				}
				for _, inner := range named(p) {
					if e := c.expr(inner); e != nil {
						w.Patterns = append(w.Patterns, e)
					}
				}
			}
			cs.Whens = append(cs.Whens, w)
		case "in_clause":
			cs.Whens = append(cs.Whens, &syntax.When{Span: c.span(ch), Body: c.list(ch.ChildByFieldName("body"))})
		case "else":
			cs.Else = c.stmts(ch)
		}
	}
	return cs
}

func (c *converter) methodName(n *sitter.Node) syntax.Node {
	if n == nil {
		return nil
	}
	switch n.Type() {
	case "simple_symbol", "delimited_symbol", "bare_symbol":
		return c.expr(n)
	}
	return c.ident(n)
}

func (c *converter) method(n *sitter.Node) *syntax.MethodDef {
	def := &syntax.MethodDef{
		Span:    c.span(n),
		Params:  c.params(n.ChildByFieldName("parameters")),
		Comment: c.comment(n),
	}
	if obj := n.ChildByFieldName("object"); obj != nil {
		def.Receiver = c.expr(obj)
	}
	if name := n.ChildByFieldName("name"); name != nil {
		def.Name = &syntax.Ident{Span: c.span(name), Name: c.text(name), Kind: syntax.LocalIdent}
	} else {
		def.Name = &syntax.Ident{Span: c.span(n), Kind: syntax.LocalIdent}
	}
	def.Body = c.body(n.ChildByFieldName("body"))
	if def.Body == nil {
		def.Body = &syntax.Body{Span: c.span(n)}
	}
	return def
}

func (c *converter) params(n *sitter.Node) []*syntax.Param {
	if n == nil {
		return nil
	}
	var out []*syntax.Param
	for _, ch := range named(n) {
		p := &syntax.Param{Span: c.span(ch)}
		nameNode := ch.ChildByFieldName("name")
		switch ch.Type() {
		case "identifier":
			nameNode = ch
		case "optional_parameter":
			p.Kind = syntax.OptionalParam
			p.Default = c.field(ch, "value")
		case "splat_parameter":
			p.Kind = syntax.RestParam
		case "hash_splat_parameter":
			p.Kind = syntax.KeywordRestParam
		case "block_parameter":
			p.Kind = syntax.BlockParam
		case "keyword_parameter":
			p.Kind = syntax.KeywordParam
			p.Default = c.field(ch, "value")
		case "destructured_parameter":
			out = append(out, c.params(ch)...)
			continue
		default:
			continue
		}
		if nameNode == nil {
			// Anonymous splats still occupy a parameter slot.
			p.Name = &syntax.Ident{Span: c.span(ch), Kind: syntax.LocalIdent}
		} else {
			p.Name = c.ident(nameNode)
		}
		out = append(out, p)
	}
	return out
}

func (c *converter) call(n *sitter.Node) syntax.Node {
	sp := c.span(n)
	method := n.ChildByFieldName("method")
	args := c.arguments(n.ChildByFieldName("arguments"))
	var block *syntax.Block
	if b := n.ChildByFieldName("block"); b != nil {
		block = &syntax.Block{Span: c.span(b), Params: c.params(b.ChildByFieldName("parameters")), Body: c.body(b.ChildByFieldName("body"))}
		if block.Body == nil {
			block.Body = &syntax.Body{Span: c.span(b)}
		}
	}
	if method != nil && method.Type() == "super" {
		return &syntax.Super{Span: sp, Args: args, Block: block}
	}
	call := &syntax.Call{Span: sp, Receiver: c.field(n, "receiver"), Args: args, Block: block}
	if method != nil {
		call.Name = &syntax.Ident{Span: c.span(method), Name: c.text(method), Kind: syntax.LocalIdent}
	} else {
		// recv.() is sugar for recv.call().
		call.Name = &syntax.Ident{Span: sp, Name: "call", Kind: syntax.LocalIdent}
	}
	return call
}
