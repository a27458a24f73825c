package build

import (
	"github.com/jward/garnet/internal/graph"
	"github.com/jward/garnet/internal/syntax"
	"github.com/jward/garnet/internal/types"
)

// returnType computes the return type of a method body: the type of the
// value the body falls through with, merged with every reachable explicit
// return in source order. An empty body returns NilClass.
func (p *declarationPass) returnType(ctx *graph.Context, body *syntax.Body) types.Type {
	if body == nil || (len(body.Stmts) == 0 && len(body.Else) == 0 && len(body.Rescues) == 0) {
		return types.Nil
	}
	reachable := *body
	reachable.Stmts = reachablePrefix(body.Stmts)
	out := p.engine.Body(ctx, &reachable)
	c := returns{pass: p}
	c.body(ctx, body)
	for _, r := range c.found {
		out = types.Merge(out, p.engine.Infer(r.ctx, r.value))
	}
	return types.OrNil(out)
}

type foundReturn struct {
	ctx   *graph.Context
	value syntax.Node
}

// returns collects the explicit return statements reachable in a method
// body. Nested definitions and lambdas return from themselves and are
// skipped.
type returns struct {
	pass  *declarationPass
	found []foundReturn
}

func (c *returns) body(ctx *graph.Context, b *syntax.Body) {
	if b == nil {
		return
	}
	c.list(ctx, b.Stmts)
	for _, r := range b.Rescues {
		c.list(ctx, r.Body)
	}
	c.list(ctx, b.Else)
	c.list(ctx, b.Ensure)
}

// list visits statements up to and including the first one that always
// returns; anything after it is unreachable.
func (c *returns) list(ctx *graph.Context, stmts []syntax.Node) {
	for _, n := range stmts {
		c.node(ctx, n)
		if terminates(n) {
			return
		}
	}
}

func (c *returns) node(ctx *graph.Context, n syntax.Node) {
	switch n := n.(type) {
	case *syntax.Return:
		c.found = append(c.found, foundReturn{ctx: ctx, value: n.Value})
	case *syntax.If:
		c.list(ctx, n.Then)
		c.list(ctx, n.Else)
	case *syntax.Case:
		for _, w := range n.Whens {
			c.list(ctx, w.Body)
		}
		c.list(ctx, n.Else)
	case *syntax.While:
		c.list(ctx, n.Body)
	case *syntax.For:
		c.list(ctx, n.Body)
	case *syntax.Begin:
		c.body(ctx, n.Body)
	case *syntax.Call:
		if n.Block != nil {
			inner := ctx
			if bc := c.pass.unit.ContextFor(n.Block); bc != nil {
				inner = bc
			}
			c.body(inner, n.Block.Body)
		}
	case *syntax.Assign:
		for _, v := range n.Values {
			c.node(ctx, v)
		}
	}
}

// terminates reports whether every path through n ends in a return.
func terminates(n syntax.Node) bool {
	switch n := n.(type) {
	case *syntax.Return:
		return true
	case *syntax.If:
		return len(n.Else) > 0 && listTerminates(n.Then) && listTerminates(n.Else)
	case *syntax.Case:
		if len(n.Else) == 0 || !listTerminates(n.Else) {
			return false
		}
		for _, w := range n.Whens {
			if !listTerminates(w.Body) {
				return false
			}
		}
		return true
	case *syntax.Begin:
		return n.Body != nil && listTerminates(n.Body.Stmts)
	default:
		return false
	}
}

// reachablePrefix drops the statements after the first terminating one.
func reachablePrefix(stmts []syntax.Node) []syntax.Node {
	for i, n := range stmts {
		if terminates(n) {
			return stmts[:i+1]
		}
	}
	return stmts
}

func listTerminates(stmts []syntax.Node) bool {
	for _, n := range stmts {
		if terminates(n) {
			return true
		}
	}
	return false
}
