package garnet

import (
	"fmt"
	"strings"

	"github.com/jward/garnet/internal/graph"
	"github.com/jward/garnet/internal/syntax"
)

// DeclarationDetail bundles a declaration with what a hover or outline needs.
type DeclarationDetail struct {
	DeclarationResult
	Comment    string
	Visibility string
	Singleton  bool
	Parameters []Parameter          // method parameters in order (empty for non-methods)
	Members    []*graph.Declaration // own and inherited members (empty for non-types)
}

// Parameter is one method parameter with its inferred type.
type Parameter struct {
	Name string
	Kind string
	Type string
}

// DetailAt resolves the identifier at (file, line, col) and returns the
// detail of the declaration it refers to. Line and col are 0-based. It
// returns nil with no error when nothing resolves.
func (q *QueryBuilder) DetailAt(file string, line, col int) (*DeclarationDetail, error) {
	u, err := q.unit(file)
	if err != nil {
		return nil, fmt.Errorf("detail at: %w", err)
	}
	d := q.declarationAt(u, syntax.Position{Line: line, Column: col})
	if d == nil {
		return nil, nil
	}
	return q.detail(d), nil
}

func (q *QueryBuilder) detail(d *graph.Declaration) *DeclarationDetail {
	owner := d.Unit()
	id := ""
	if owner != nil {
		id = owner.ID
	}
	rc := countRefs(q.engine.Units())
	res := rc.result(id, d)

	params := []Parameter{}
	for _, p := range d.Parameters() {
		params = append(params, Parameter{Name: p.Identifier(), Kind: p.ParamKind.String(), Type: p.Type().String()})
	}
	members := []*graph.Declaration{}
	if d.IsType() && owner != nil {
		members = q.lookup.Members(owner, d.Name.String(), graph.AllMembers, graph.Callables)
	}
	return &DeclarationDetail{
		DeclarationResult: res,
		Comment:           d.Comment,
		Visibility:        d.Visibility.String(),
		Singleton:         d.Singleton,
		Parameters:        params,
		Members:           members,
	}
}

// ContextsAt returns the context chain at a position, ordered from
// innermost to the top-level context. Line and col are 0-based.
func (q *QueryBuilder) ContextsAt(file string, line, col int) ([]*graph.Context, error) {
	u, err := q.unit(file)
	if err != nil {
		return nil, fmt.Errorf("contexts at: %w", err)
	}
	var chain []*graph.Context
	for c := u.ContextAt(syntax.Position{Line: line, Column: col}); c != nil; c = c.Parent {
		chain = append(chain, c)
	}
	return chain, nil
}

// Hover is the summary shown for an identifier.
type Hover struct {
	Name     string
	Kind     string
	Type     string
	Comment  string
	Location Location
}

// Markdown renders h as a fenced signature followed by the comment.
func (h *Hover) Markdown() string {
	var b strings.Builder
	fmt.Fprintf(&b, "```ruby\n%s %s: %s\n```", h.Kind, h.Name, h.Type)
	if h.Comment != "" {
		b.WriteString("\n\n")
		b.WriteString(h.Comment)
	}
	return b.String()
}

// HoverAt returns the hover of the identifier at (file, line, col), or nil
// with no error when nothing resolves.
func (q *QueryBuilder) HoverAt(file string, line, col int) (*Hover, error) {
	u, err := q.unit(file)
	if err != nil {
		return nil, fmt.Errorf("hover at: %w", err)
	}
	d := q.declarationAt(u, syntax.Position{Line: line, Column: col})
	if d == nil {
		return nil, nil
	}
	h := &Hover{
		Name:    d.Name.String(),
		Kind:    d.Kind.String(),
		Type:    d.Type().String(),
		Comment: d.Comment,
	}
	if owner := d.Unit(); owner != nil {
		h.Location = locationOf(owner.ID, d.Range)
	}
	return h, nil
}
