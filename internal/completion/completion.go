package completion

import (
	"context"
	"fmt"
	"strings"

	"go.uber.org/zap"

	"github.com/jward/garnet/internal/graph"
	"github.com/jward/garnet/internal/infer"
	"github.com/jward/garnet/internal/syntax"
	"github.com/jward/garnet/internal/types"
)

// ExpressionParser parses the expression typed left of a member access.
type ExpressionParser interface {
	ParseExpression(ctx context.Context, src string) (syntax.Node, error)
}

// Lister enumerates require targets reachable from a unit.
type Lister interface {
	List(ctx context.Context, from string) ([]string, error)
}

// Request describes one completion invocation.
//
// Preceding is the document text before the cursor and Following the text
// after it. Context is the innermost context at Position.
type Request struct {
	Context        *graph.Context
	Preceding      string
	Following      string
	Position       syntax.Position
	FullCompletion bool
	Parent         *Request
}

// ItemKind tells what an item inserts.
type ItemKind uint8

const (
	DeclarationItem ItemKind = iota
	KeywordItem
	OneLinerItem
	FileItem
)

// Item is a single completion proposal.
type Item struct {
	Label  string
	Kind   ItemKind
	Detail string
	// Insert is the text to insert when it differs from Label, in snippet
	// syntax ($0 for the final cursor, ${1:text} for a placeholder).
	Insert string
	Decl   *graph.Declaration
}

// Group is a named set of items shown together, highest priority first.
type Group struct {
	Name     string
	Priority int
	Items    []Item
}

// Result holds ungrouped items and item groups.
type Result struct {
	Kind   Kind
	Items  []Item
	Groups []Group
}

// KeywordGroup names the group holding Ruby keywords.
const (
	KeywordGroup    = "Ruby Keyword"
	KeywordPriority = 800
)

// Completer computes completions against analyzed units.
type Completer struct {
	lookup *graph.Lookup
	parser ExpressionParser
	files  Lister
	log    *zap.Logger
}

// Option configures a Completer.
type Option func(*Completer)

// WithFiles sets the lister used after require.
func WithFiles(l Lister) Option {
	return func(c *Completer) { c.files = l }
}

// WithLogger sets the logger.
func WithLogger(log *zap.Logger) Option {
	return func(c *Completer) { c.log = log }
}

// New returns a completer resolving names through lookup and parsing
// member-access receivers with p.
func New(lookup *graph.Lookup, p ExpressionParser, opts ...Option) *Completer {
	c := &Completer{lookup: lookup, parser: p, log: zap.NewNop()}
	for _, o := range opts {
		o(c)
	}
	return c
}

// Complete returns the items for req. A request without a context yields
// an empty result.
func (c *Completer) Complete(ctx context.Context, req Request) (Result, error) {
	var res Result
	if req.Context == nil {
		return res, nil
	}
	text := compress(req.Preceding)
	res.Kind = Classify(req.Preceding)

	var err error
	switch res.Kind {
	case MemberAccess:
		res.Items, err = c.memberItems(ctx, req, strings.TrimSuffix(text, "."), false)
	case ModuleMemberAccess:
		res.Items, err = c.memberItems(ctx, req, strings.TrimSuffix(text, "::"), true)
	case BaseClassAccess:
		res.Items = c.visibleItems(req, graph.Classes)
	case MixinAccess:
		res.Items = c.visibleItems(req, graph.Modules)
	case FileChoice:
		res.Items, err = c.fileItems(ctx, req)
	default:
		if req.Position.Line == 0 && (text == "" || strings.HasPrefix(text, "#")) {
			res.Items = append(res.Items, oneLiners...)
		}
		res.Items = append(res.Items, c.visibleItems(req, nil)...)
		res.Groups = append(res.Groups, Group{Name: KeywordGroup, Priority: KeywordPriority, Items: keywords()})
	}
	if err != nil {
		return Result{}, err
	}

	if req.FullCompletion && req.Parent != nil {
		parent, err := c.Complete(ctx, *req.Parent)
		if err != nil {
			return Result{}, err
		}
		res.Items = append(res.Items, parent.Items...)
		res.Groups = append(res.Groups, parent.Groups...)
	}
	return res, nil
}

func (c *Completer) visibleItems(req Request, f graph.Filter) []Item {
	return declItems(c.lookup.Visible(req.Context, req.Position, f))
}

// memberItems lists the members of the value left of an access operator.
// Class references list singleton methods and nested types; instances list
// instance methods. modules restricts the receiver to classes and modules.
func (c *Completer) memberItems(ctx context.Context, req Request, text string, modules bool) ([]Item, error) {
	start := expressionStart(text)
	fragment := text[start:]
	if strings.TrimSpace(fragment) == "" {
		return nil, nil
	}
	at := offsetPosition(req, start)
	src := strings.Repeat("\n", at.Line) + strings.Repeat(" ", at.Column) + fragment
	expr, err := c.parser.ParseExpression(ctx, src)
	if err != nil {
		c.log.Debug("completion receiver not parsed", zap.String("expr", fragment), zap.Error(err))
		return nil, nil
	}

	engine := infer.New(c.lookup)
	t := engine.Infer(req.Context, expr)
	owner := engine.Last()
	unit := req.Context.Unit

	if owner != nil && owner.IsType() && infer.IsClassReference(expr) {
		return declItems(c.lookup.Members(unit, owner.Name.String(), graph.SingletonMembers, classMember)), nil
	}
	if modules {
		c.log.Debug("completion scope is not a type", zap.String("expr", fragment))
		return nil, nil
	}
	var items []Item
	seen := make(map[string]bool)
	for _, cls := range types.ClassNames(t) {
		for _, d := range c.lookup.Members(unit, cls, graph.InstanceMembers, graph.Callables) {
			if !seen[d.Identifier()] {
				seen[d.Identifier()] = true
				items = append(items, declItem(d))
			}
		}
	}
	if len(items) == 0 {
		c.log.Debug("no members for receiver", zap.String("expr", fragment), zap.Stringer("type", t))
	}
	return items, nil
}

// classMember accepts what may follow Name. or Name::.
func classMember(d *graph.Declaration) bool {
	return d.Callable() || d.IsType() || (d.Kind == graph.VariableDecl && d.Scope == syntax.ConstantIdent)
}

func (c *Completer) fileItems(ctx context.Context, req Request) ([]Item, error) {
	if c.files == nil {
		return nil, nil
	}
	names, err := c.files.List(ctx, req.Context.Unit.ID)
	if err != nil {
		return nil, fmt.Errorf("completion: listing files: %w", err)
	}
	items := make([]Item, len(names))
	for i, n := range names {
		items[i] = Item{Label: n, Kind: FileItem, Insert: fmt.Sprintf("'%s'", n)}
	}
	return items, nil
}

// offsetPosition maps a byte offset in req.Preceding to a document position.
func offsetPosition(req Request, offset int) syntax.Position {
	after := req.Preceding[offset:]
	lines := strings.Count(after, "\n")
	if lines == 0 {
		return syntax.Position{Line: req.Position.Line, Column: max(req.Position.Column-len(after), 0)}
	}
	lineStart := strings.LastIndexByte(req.Preceding[:offset], '\n') + 1
	return syntax.Position{Line: max(req.Position.Line-lines, 0), Column: offset - lineStart}
}

func declItems(decls []*graph.Declaration) []Item {
	items := make([]Item, len(decls))
	for i, d := range decls {
		items[i] = declItem(d)
	}
	return items
}

func declItem(d *graph.Declaration) Item {
	return Item{Label: d.Identifier(), Kind: DeclarationItem, Detail: detail(d), Decl: d}
}

func detail(d *graph.Declaration) string {
	switch d.Kind {
	case graph.ClassDecl, graph.ModuleDecl:
		return d.Kind.String()
	default:
		return d.Type().String()
	}
}
