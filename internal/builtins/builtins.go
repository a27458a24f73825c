// Package builtins builds the unit holding Ruby's core classes and modules.
//
// The unit is generated from a table of class definitions, turned into a
// syntax tree and run through the same pipeline as user code, so builtin
// declarations look exactly like declarations from source. A Ruby stub file
// can replace the table.
package builtins

import (
	"context"
	"fmt"
	"os"
	"strings"

	"go.uber.org/zap"

	"github.com/jward/garnet/internal/build"
	"github.com/jward/garnet/internal/graph"
	"github.com/jward/garnet/internal/infer"
	"github.com/jward/garnet/internal/parser"
	"github.com/jward/garnet/internal/syntax"
)

// ID is the unit id of the builtins unit.
const ID = "<builtins>"

// Load builds the builtins unit from the embedded table.
func Load(ctx context.Context, log *zap.Logger) (*graph.Unit, error) {
	return run(ctx, Program(), log)
}

// LoadFile builds the builtins unit from a Ruby stub file.
func LoadFile(ctx context.Context, path string, log *zap.Logger) (*graph.Unit, error) {
	src, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("builtins: %w", err)
	}
	p := parser.New()
	defer p.Close()
	root, _, err := p.Parse(ctx, path, src)
	if err != nil {
		return nil, fmt.Errorf("builtins: %s: %w", path, err)
	}
	return run(ctx, root, log)
}

func run(ctx context.Context, root *syntax.Program, log *zap.Logger) (*graph.Unit, error) {
	unit, err := build.Run(ctx, build.Input{ID: ID, Root: root, Builtin: true, Logger: log})
	if err != nil {
		return nil, fmt.Errorf("builtins: %w", err)
	}
	if err := infer.Verify(unit); err != nil {
		return nil, fmt.Errorf("builtins: %w", err)
	}
	return unit, nil
}

// Program returns the syntax tree of the builtin table.
func Program() *syntax.Program {
	g := &generator{}
	var stmts []syntax.Node
	for _, c := range table {
		stmts = append(stmts, g.class(c))
	}
	for _, v := range globals {
		target := g.ident(v.name)
		stmts = append(stmts, &syntax.Assign{
			Span:    g.span(),
			Targets: []syntax.Node{target},
			Values:  []syntax.Node{g.result(v.result)},
		})
	}
	return &syntax.Program{Span: syntax.Span{Loc: syntax.NewRange(0, 0, g.line+1, 0)}, Stmts: stmts}
}

// generator allocates one source line per node so every declaration of
// the builtins unit has a distinct range.
type generator struct {
	line int
}

func (g *generator) span() syntax.Span {
	r := syntax.NewRange(g.line, 0, g.line, 1)
	g.line++
	return syntax.Span{Loc: r}
}

// wide returns a span covering every line allocated since start.
func (g *generator) wide(start int) syntax.Span {
	return syntax.Span{Loc: syntax.NewRange(start, 0, g.line, 0)}
}

func (g *generator) ident(name string) *syntax.Ident {
	return &syntax.Ident{Span: g.span(), Name: name, Kind: syntax.KindOf(name)}
}

func (g *generator) call(name string, args ...syntax.Node) *syntax.Call {
	return &syntax.Call{Span: g.span(), Name: g.ident(name), Args: args}
}

func (g *generator) class(c class) syntax.Node {
	start := g.line
	name := g.ident(c.name)
	var stmts []syntax.Node
	for _, m := range c.include {
		stmts = append(stmts, g.call("include", g.ident(m)))
	}
	for _, m := range c.extend {
		stmts = append(stmts, g.call("extend", g.ident(m)))
	}
	for _, m := range c.methods {
		stmts = append(stmts, g.method(m))
	}
	body := &syntax.Body{Span: g.wide(start), Stmts: stmts}
	if c.module {
		return &syntax.ModuleDef{Span: g.wide(start), Name: name, Body: body}
	}
	var super syntax.Node
	if c.super != "" {
		super = g.ident(c.super)
	}
	return &syntax.ClassDef{Span: g.wide(start), Name: name, Superclass: super, Body: body}
}

// method generates a definition from "name(params) -> Result".
func (g *generator) method(sig string) *syntax.MethodDef {
	start := g.line
	head, result, _ := strings.Cut(sig, "->")
	head, result = strings.TrimSpace(head), strings.TrimSpace(result)
	name, params, _ := strings.Cut(head, "(")
	params = strings.TrimSuffix(params, ")")

	def := &syntax.MethodDef{}
	if rest, ok := strings.CutPrefix(name, "self."); ok {
		def.Receiver = &syntax.Self{Span: g.span()}
		name = rest
	}
	def.Name = &syntax.Ident{Span: g.span(), Name: name, Kind: syntax.LocalIdent}
	for _, p := range strings.Split(params, ",") {
		if p = strings.TrimSpace(p); p != "" {
			def.Params = append(def.Params, g.param(p))
		}
	}
	var stmts []syntax.Node
	if result != "" {
		stmts = append(stmts, g.result(result))
	}
	def.Body = &syntax.Body{Span: g.wide(start), Stmts: stmts}
	def.Span = g.wide(start)
	return def
}

func (g *generator) param(p string) *syntax.Param {
	kind := syntax.RequiredParam
	switch {
	case strings.HasPrefix(p, "**"):
		kind, p = syntax.KeywordRestParam, p[2:]
	case strings.HasPrefix(p, "*"):
		kind, p = syntax.RestParam, p[1:]
	case strings.HasPrefix(p, "&"):
		kind, p = syntax.BlockParam, p[1:]
	case strings.HasSuffix(p, "="):
		kind, p = syntax.OptionalParam, p[:len(p)-1]
	case strings.HasSuffix(p, ":"):
		kind, p = syntax.KeywordParam, p[:len(p)-1]
	}
	param := &syntax.Param{Name: &syntax.Ident{Span: g.span(), Name: p, Kind: syntax.LocalIdent}, Kind: kind}
	if kind == syntax.OptionalParam {
		param.Default = &syntax.Nil{Span: g.span()}
	}
	param.Span = param.Name.Span
	return param
}

// result generates an expression evaluating to the named result type.
func (g *generator) result(name string) syntax.Node {
	switch name {
	case "":
		return &syntax.Nil{Span: g.span()}
	case "self":
		return &syntax.Self{Span: g.span()}
	case "bool":
		return &syntax.Binary{Span: g.span(), Op: "||", Left: &syntax.True{Span: g.span()}, Right: &syntax.False{Span: g.span()}}
	case "Array":
		return &syntax.Array{Span: g.span()}
	case "Hash":
		return &syntax.Hash{Span: g.span()}
	case "Proc":
		return &syntax.Lambda{Span: g.span(), Body: &syntax.Body{Span: g.span()}}
	default:
		return &syntax.Call{Span: g.span(), Receiver: g.ident(name), Name: g.ident("new")}
	}
}
