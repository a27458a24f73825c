// Package parser turns Ruby source into syntax trees using tree-sitter.
//
// The tree-sitter concrete syntax tree is converted into the closed set of
// syntax nodes the analyzer works on. ERROR and MISSING nodes become parser
// diagnostics; a tree with problems is still converted as far as possible.
package parser

import (
	"context"
	"errors"
	"fmt"
	"path/filepath"
	"strings"

	"fortio.org/safecast"
	sitter "github.com/smacker/go-tree-sitter"
	"github.com/smacker/go-tree-sitter/ruby"

	"github.com/jward/garnet/internal/diag"
	"github.com/jward/garnet/internal/syntax"
)

// ErrSyntax is returned when the source has syntax errors.
var ErrSyntax = errors.New("syntax error")

// extensions lists the file extensions parsed as Ruby.
var extensions = map[string]bool{
	".rb":      true,
	".rake":    true,
	".gemspec": true,
	".ru":      true,
}

// IsRuby reports whether path names a Ruby source file.
func IsRuby(path string) bool {
	base := filepath.Base(path)
	if base == "Rakefile" || base == "Gemfile" {
		return true
	}
	return extensions[strings.ToLower(filepath.Ext(path))]
}

// Parser wraps a tree-sitter parser. It is not safe for concurrent use.
type Parser struct {
	p *sitter.Parser
}

// New returns a parser for Ruby.
func New() *Parser {
	p := sitter.NewParser()
	p.SetLanguage(ruby.GetLanguage())
	return &Parser{p: p}
}

// Close releases the tree-sitter parser.
func (p *Parser) Close() {
	p.p.Close()
}

// Parse parses src. When the source has syntax errors the returned error
// wraps ErrSyntax and the problems are returned alongside the partial tree.
func (p *Parser) Parse(ctx context.Context, id string, src []byte) (*syntax.Program, []diag.Diagnostic, error) {
	tree, err := p.p.ParseCtx(ctx, nil, src)
	if err != nil {
		return nil, nil, fmt.Errorf("parser: %s: %w", id, err)
	}
	defer tree.Close()

	root := tree.RootNode()
	c := &converter{src: src}
	prog := &syntax.Program{Span: c.span(root), Stmts: c.stmts(root)}

	problems := collectProblems(root, id, src)
	if len(problems) > 0 {
		return prog, problems, fmt.Errorf("parser: %s: %d problem(s): %w", id, len(problems), ErrSyntax)
	}
	return prog, nil, nil
}

// ParseExpression parses a single expression, as typed left of a member
// access. It returns the last statement of the parsed source.
func (p *Parser) ParseExpression(ctx context.Context, src string) (syntax.Node, error) {
	prog, _, err := p.Parse(ctx, "<expression>", []byte(src))
	if prog == nil {
		return nil, err
	}
	last := syntax.Last(prog.Stmts)
	if last == nil {
		return nil, fmt.Errorf("parser: no expression in %q", src)
	}
	return last, nil
}

func position(p sitter.Point) syntax.Position {
	line, err := safecast.Conv[int](p.Row)
	if err != nil {
		line = 0
	}
	col, err := safecast.Conv[int](p.Column)
	if err != nil {
		col = 0
	}
	return syntax.Position{Line: line, Column: col}
}

func rangeOf(n *sitter.Node) syntax.Range {
	return syntax.Range{Start: position(n.StartPoint()), End: position(n.EndPoint())}
}

// collectProblems reports every ERROR and MISSING node below n.
func collectProblems(n *sitter.Node, id string, src []byte) []diag.Diagnostic {
	var bag diag.Bag
	var visit func(*sitter.Node)
	visit = func(n *sitter.Node) {
		switch {
		case n.IsMissing():
			diag.New(&bag, diag.Error, diag.Parser, id, rangeOf(n),
				fmt.Sprintf("missing `%s`", n.Type())).Emit()
			return
		case n.IsError():
			text := n.Content(src)
			if len(text) > 20 {
				text = text[:20] + "..."
			}
			diag.New(&bag, diag.Error, diag.Parser, id, rangeOf(n),
				fmt.Sprintf("syntax error near `%s`", strings.TrimSpace(text))).Emit()
			return
		case !n.HasError():
			return
		}
		for i := 0; i < int(n.ChildCount()); i++ {
			visit(n.Child(i))
		}
	}
	visit(n)
	return bag.Items()
}
