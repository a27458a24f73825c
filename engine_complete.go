package garnet

import (
	"context"
	"fmt"
	"strings"

	"github.com/jward/garnet/internal/completion"
	"github.com/jward/garnet/internal/loader"
	"github.com/jward/garnet/internal/parser"
	"github.com/jward/garnet/internal/syntax"
)

// expressionParser parses member-access receivers with a fresh parser per
// call, so completions may run concurrently.
type expressionParser struct{}

func (expressionParser) ParseExpression(ctx context.Context, src string) (syntax.Node, error) {
	p := parser.New()
	defer p.Close()
	return p.ParseExpression(ctx, src)
}

// Complete returns completions at pos in text, the current content of the
// published unit id. The unit's last analysis supplies the context; text may
// have been edited since. With full set, a special completion such as a
// member access also carries the standard completions at pos.
func (e *Engine) Complete(ctx context.Context, id, text string, pos syntax.Position, full bool) (completion.Result, error) {
	unit, ok := e.Unit(id)
	if !ok {
		return completion.Result{}, fmt.Errorf("garnet: complete %s: %w", id, ErrUnknownUnit)
	}
	offset := offsetOf(text, pos)
	scope := unit.ContextAt(pos)
	if scope == nil {
		scope = unit.Top
	}
	req := completion.Request{
		Context:        scope,
		Preceding:      text[:offset],
		Following:      text[offset:],
		Position:       pos,
		FullCompletion: full,
	}
	if full && completion.Classify(req.Preceding) != completion.StandardAccess {
		req.Parent = &completion.Request{Context: scope, Position: pos}
	}

	var opts []completion.Option
	opts = append(opts, completion.WithLogger(e.log))
	if l, ok := e.resolver.(loader.Lister); ok {
		opts = append(opts, completion.WithFiles(l))
	}
	res, err := completion.New(e.Lookup(), expressionParser{}, opts...).Complete(ctx, req)
	if err != nil {
		return completion.Result{}, fmt.Errorf("garnet: complete %s: %w", id, err)
	}
	return res, nil
}

// offsetOf converts a 0-based line and byte column to an offset into text,
// clamped to the line end and to the text.
func offsetOf(text string, pos syntax.Position) int {
	offset := 0
	for line := 0; line < pos.Line; line++ {
		nl := strings.IndexByte(text[offset:], '\n')
		if nl < 0 {
			return len(text)
		}
		offset += nl + 1
	}
	end := len(text)
	if nl := strings.IndexByte(text[offset:], '\n'); nl >= 0 {
		end = offset + nl
	}
	return min(offset+max(pos.Column, 0), end)
}
