// Package uses links identifier occurrences to the declarations they refer
// to.
//
// The pass runs after the declaration pass of its unit and after every
// imported unit has been built. It never mutates declarations; it only
// records Use edges and "undefined" hints, and it commits them to the unit
// only once the whole tree has been walked.
package uses

import (
	"context"
	"fmt"
	"strings"

	"github.com/hbollon/go-edlib"
	"go.uber.org/zap"

	"github.com/jward/garnet/internal/diag"
	"github.com/jward/garnet/internal/graph"
	"github.com/jward/garnet/internal/infer"
	"github.com/jward/garnet/internal/syntax"
)

// maxSuggestionDistance bounds the edit distance of "did you mean" notes.
const maxSuggestionDistance = 2

// Resolve walks root and records the uses and hints of unit.
func Resolve(ctx context.Context, unit *graph.Unit, root *syntax.Program, engine *infer.Engine, log *zap.Logger) error {
	if log == nil {
		log = zap.NewNop()
	}
	r := &resolver{unit: unit, lookup: engine.Lookup(), engine: engine, log: log}
	r.scopes = append(r.scopes, unit.Top)
	syntax.NewWalker(r).Statements(root.Stmts)

	if err := ctx.Err(); err != nil {
		return err
	}
	unit.Uses = append(unit.Uses, r.uses...)
	unit.Diagnostics = append(unit.Diagnostics, r.diags.Items()...)
	return nil
}

type resolver struct {
	unit   *graph.Unit
	lookup *graph.Lookup
	engine *infer.Engine
	log    *zap.Logger

	scopes []*graph.Context
	uses   []graph.Use
	diags  diag.Bag
}

func (r *resolver) cur() *graph.Context {
	return r.scopes[len(r.scopes)-1]
}

func (r *resolver) enter(n syntax.Node, fn func()) {
	ctx := r.unit.ContextFor(n)
	if ctx == nil {
		fn()
		return
	}
	r.scopes = append(r.scopes, ctx)
	fn()
	r.scopes = r.scopes[:len(r.scopes)-1]
}

func (r *resolver) Declared(n syntax.Node, name string) bool {
	return r.unit.Shadowed(n, func() bool {
		return r.lookup.Declared(r.cur(), name, graph.Anywhere)
	})
}

// record links an occurrence to d. The declaring occurrence itself gets no
// edge.
func (r *resolver) record(name string, at syntax.Range, d *graph.Declaration) {
	if d.Range == at && d.Unit() == r.unit {
		return
	}
	ref := d.Ref()
	r.uses = append(r.uses, graph.Use{Name: name, Range: at, Target: &ref})
}

// undefined reports an unresolved bare name.
func (r *resolver) undefined(name string, at syntax.Range) {
	b := diag.New(&r.diags, diag.Hint, diag.Semantic, r.unit.ID, at,
		fmt.Sprintf("undefined variable or method: `%s`", name))
	if s := r.suggest(name, at.Start); s != "" {
		b.WithNote(at, fmt.Sprintf("did you mean `%s`?", s))
	}
	b.Emit()
	r.uses = append(r.uses, graph.Use{Name: name, Range: at})
	r.log.Debug("undefined name", zap.String("name", name), zap.Stringer("at", at))
}

// suggest returns the visible name closest to name, or "".
func (r *resolver) suggest(name string, at syntax.Position) string {
	best, bestDist := "", maxSuggestionDistance+1
	for _, d := range r.lookup.Visible(r.cur(), at, nil) {
		cand := d.Identifier()
		if cand == name {
			continue
		}
		if dist := edlib.LevenshteinDistance(name, cand); dist < bestDist && dist < len(name) {
			best, bestDist = cand, dist
		}
	}
	return best
}

func (r *resolver) Class(w *syntax.Walker, n *syntax.ClassDef) {
	w.Walk(n.Superclass)
	r.definitionName(w, n, n.Name)
	r.enter(n, func() { w.Walk(n.Body) })
}

func (r *resolver) Module(w *syntax.Walker, n *syntax.ModuleDef) {
	r.definitionName(w, n, n.Name)
	r.enter(n, func() { w.Walk(n.Body) })
}

// definitionName links the name of a reopened class or module to the
// first definition.
func (r *resolver) definitionName(w *syntax.Walker, n, name syntax.Node) {
	if sn, ok := name.(*syntax.ScopedName); ok {
		w.Walk(sn.Scope)
	}
	ctx := r.unit.ContextFor(n)
	if ctx == nil || ctx.Owner == nil {
		return
	}
	at := name.Range()
	if sn, ok := name.(*syntax.ScopedName); ok {
		at = sn.Name.Range()
	}
	r.record(ctx.Owner.Identifier(), at, ctx.Owner)
}

func (r *resolver) Method(w *syntax.Walker, n *syntax.MethodDef) {
	w.Walk(n.Receiver)
	ctx := r.unit.ContextFor(n)
	if ctx == nil {
		return
	}
	if ctx.Owner != nil && ctx.Owner.Args != nil {
		r.scopes = append(r.scopes, ctx.Owner.Args)
		for _, p := range n.Params {
			w.Walk(p.Default)
		}
		r.scopes = r.scopes[:len(r.scopes)-1]
	}
	r.scopes = append(r.scopes, ctx)
	w.Walk(n.Body)
	r.scopes = r.scopes[:len(r.scopes)-1]
}

func (r *resolver) Block(w *syntax.Walker, n *syntax.Block) {
	r.enter(n, func() {
		for _, p := range n.Params {
			w.Walk(p.Default)
		}
		w.Walk(n.Body)
	})
}

func (r *resolver) Lambda(w *syntax.Walker, n syntax.Node) {
	switch n := n.(type) {
	case *syntax.Lambda:
		r.enter(n, func() {
			for _, p := range n.Params {
				w.Walk(p.Default)
			}
			w.Walk(n.Body)
		})
	case *syntax.Call:
		w.Statements(n.Args)
		w.Walk(n.Block)
	}
}

func (r *resolver) Require(w *syntax.Walker, n *syntax.Call, relative bool) {}

func (r *resolver) Mixin(w *syntax.Walker, n *syntax.Call, extend bool) {
	w.Statements(n.Args)
}

func (r *resolver) Access(w *syntax.Walker, n syntax.Node, keyword string, args []syntax.Node) {
	w.Statements(args)
}

func (r *resolver) Alias(w *syntax.Walker, n *syntax.Alias) {
	name := syntax.NameOf(n.Old)
	if name == "" {
		return
	}
	if d := r.lookup.Find(r.cur(), name, n.Old.Range().Start, graph.Callables); d != nil {
		r.record(name, n.Old.Range(), d)
	}
}

func (r *resolver) Name(w *syntax.Walker, n syntax.Node) {
	cur := r.cur()
	switch n := n.(type) {
	case *syntax.Ident:
		d := r.lookup.Find(cur, n.Name, n.Range().Start, nil)
		if d == nil {
			r.undefined(n.Name, n.Range())
			return
		}
		r.record(n.Name, n.Range(), d)
	case *syntax.ScopedName:
		w.Walk(n.Scope)
		segs := syntax.Segments(n)
		if len(segs) == 0 {
			return
		}
		name := strings.Join(segs, "::")
		at := n.Name.Range()
		d := r.lookup.FindQualified(cur, graph.QualifiedName(segs), n.Range().Start, nil)
		if d == nil {
			r.undefined(name, at)
			return
		}
		r.record(name, at, d)
	}
}

func (r *resolver) Call(w *syntax.Walker, n *syntax.Call) {
	w.Walk(n.Receiver)
	cur := r.cur()
	name := n.Name.Name
	at := n.Name.Range()

	if n.Receiver == nil {
		if d := r.lookup.Find(cur, name, at.Start, graph.Callables); d != nil {
			r.record(name, at, d)
		} else {
			r.undefined(name, at)
		}
	} else {
		r.engine.Infer(cur, n)
		if d := r.engine.Last(); d != nil && d.Callable() {
			r.record(name, at, d)
		}
	}
	w.Statements(n.Args)
	w.Walk(n.Block)
}
