// Package build turns a syntax tree into the semantic graph of one unit.
//
// Run executes the analysis pipeline: the context pass builds the scope
// skeleton (contexts, class, module and method headers, mixins, requires),
// the declaration pass declares variables and types everything through the
// inference engine, and the use pass links every identifier occurrence to
// its declaration. Cancellation is checked between passes; a cancelled run
// returns no unit.
package build

import (
	"context"
	"fmt"

	"go.uber.org/zap"

	"github.com/jward/garnet/internal/graph"
	"github.com/jward/garnet/internal/infer"
	"github.com/jward/garnet/internal/syntax"
	"github.com/jward/garnet/internal/uses"
)

// Resolver maps a require target to candidate unit ids.
type Resolver interface {
	Resolve(ctx context.Context, required, from string, relative bool) ([]string, error)
}

// Input is everything one pipeline run needs.
type Input struct {
	// ID identifies the unit, usually its absolute path.
	ID   string
	Root *syntax.Program

	// Update marks an incremental re-analysis of Previous. The new unit
	// replaces Previous and continues its revision count.
	Update   bool
	Previous *graph.Unit

	// Builtins is the standard library unit. Builtin marks the run that
	// builds it; that unit then serves as its own builtins and pseudo
	// keywords are never shadowed in it.
	Builtins *graph.Unit
	Builtin  bool
	Universe graph.Universe
	Resolver Resolver

	// Implicit lists units imported without a require, e.g. by an
	// autoloader.
	Implicit []string

	Hash   uint64
	Logger *zap.Logger
}

// Run analyzes in.Root and returns the finished unit.
func Run(ctx context.Context, in Input) (*graph.Unit, error) {
	if in.Root == nil {
		return nil, fmt.Errorf("build %s: no syntax tree", in.ID)
	}
	log := in.Logger
	if log == nil {
		log = zap.NewNop()
	}
	log = log.With(zap.String("unit", in.ID))

	unit := graph.NewUnit(in.ID, in.Root.Range())
	unit.Hash = in.Hash
	unit.Revision = 1
	if in.Update && in.Previous != nil {
		unit.Revision = in.Previous.Revision + 1
	}

	builtins := in.Builtins
	switch {
	case in.Builtin:
		builtins = unit
	case builtins != nil:
		if err := infer.Verify(builtins); err != nil {
			return nil, fmt.Errorf("build %s: %w", in.ID, err)
		}
	}
	lookup := graph.NewLookup(builtins, in.Universe)
	engine := infer.New(lookup)

	if err := ctx.Err(); err != nil {
		return nil, err
	}
	newContextPass(ctx, unit, lookup, in.Resolver, log).run(in.Root, in.Implicit)
	log.Debug("contexts built", zap.Int("contexts", len(unit.Contexts())))

	if err := ctx.Err(); err != nil {
		return nil, err
	}
	newDeclarationPass(unit, engine, log).run(in.Root)
	log.Debug("declarations built", zap.Int("declarations", len(unit.Declarations())))

	if err := ctx.Err(); err != nil {
		return nil, err
	}
	if err := uses.Resolve(ctx, unit, in.Root, engine, log); err != nil {
		return nil, err
	}
	log.Debug("uses resolved",
		zap.Int("uses", len(unit.Uses)),
		zap.Int("diagnostics", len(unit.Diagnostics)),
		zap.Strings("unresolved", unit.Unresolved))
	return unit, nil
}

// scopeStack tracks the current context of a pass.
type scopeStack []*graph.Context

func (s *scopeStack) push(c *graph.Context) { *s = append(*s, c) }

func (s *scopeStack) pop() { *s = (*s)[:len(*s)-1] }

func (s scopeStack) cur() *graph.Context { return s[len(s)-1] }
