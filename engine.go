package garnet

import (
	"cmp"
	"context"
	"errors"
	"fmt"
	"slices"
	"sort"
	"sync"

	"github.com/cespare/xxhash/v2"
	"go.uber.org/zap"

	"github.com/jward/garnet/internal/build"
	"github.com/jward/garnet/internal/builtins"
	"github.com/jward/garnet/internal/diag"
	"github.com/jward/garnet/internal/graph"
	"github.com/jward/garnet/internal/loader"
	"github.com/jward/garnet/internal/parser"
	"github.com/jward/garnet/internal/store"
	"github.com/jward/garnet/internal/syntax"
)

var (
	// ErrUnknownUnit is returned for queries about units that were never
	// analyzed.
	ErrUnknownUnit = errors.New("unknown unit")
	// ErrNoBuiltins is returned by New when the builtins cannot be loaded.
	ErrNoBuiltins = errors.New("builtins unavailable")
)

// Engine owns the analyzed units of a project and schedules their
// (re)analysis. Queries may run concurrently with analysis; analyses run
// one at a time.
type Engine struct {
	log          *zap.Logger
	builtins     *graph.Unit
	builtinsFile string
	resolver     loader.Resolver
	rails        *loader.Rails
	store        *store.Store
	parallel     int

	// analyzeMu serializes pipeline runs. mu guards units and is never held
	// while a pipeline runs, since the pipeline reads other units through
	// Unit.
	analyzeMu sync.Mutex
	mu        sync.RWMutex
	units     map[string]*entry
}

// entry is a published unit with the tree it was built from. root is nil
// for units that never parsed. hash is the content hash of the last
// successful build, zero when the unit is stale.
type entry struct {
	unit *graph.Unit
	root *syntax.Program
	hash uint64
}

// Option configures an Engine.
type Option func(*Engine)

// WithLogger sets the logger. The default discards everything.
func WithLogger(log *zap.Logger) Option {
	return func(e *Engine) {
		e.log = log
	}
}

// WithResolver sets how require targets map to units. A resolver that also
// implements loader.Lister feeds require completion.
func WithResolver(r loader.Resolver) Option {
	return func(e *Engine) {
		e.resolver = r
	}
}

// WithStore writes every published unit to s. New migrates the schema. The
// engine takes ownership and closes s in Close.
func WithStore(s *store.Store) Option {
	return func(e *Engine) {
		e.store = s
	}
}

// WithParallel bounds the number of files parsed concurrently by
// IndexFiles. Values below 1 mean serial parsing.
func WithParallel(n int) Option {
	return func(e *Engine) {
		e.parallel = n
	}
}

// WithBuiltinsFile replaces the embedded builtins with a Ruby stub file.
func WithBuiltinsFile(path string) Option {
	return func(e *Engine) {
		e.builtinsFile = path
	}
}

// WithRails enables the Rails autoloader for the application at root.
func WithRails(root string) Option {
	return func(e *Engine) {
		e.rails = loader.NewRails(root, nil)
	}
}

// New creates an Engine and loads the builtins.
func New(opts ...Option) (*Engine, error) {
	e := &Engine{
		log:      zap.NewNop(),
		parallel: 1,
		units:    make(map[string]*entry),
	}
	for _, opt := range opts {
		opt(e)
	}
	if e.rails != nil {
		e.rails.Log = e.log
	}

	var err error
	if e.builtinsFile != "" {
		e.builtins, err = builtins.LoadFile(context.Background(), e.builtinsFile, e.log)
	} else {
		e.builtins, err = builtins.Load(context.Background(), e.log)
	}
	if err != nil {
		return nil, fmt.Errorf("garnet: %w: %w", ErrNoBuiltins, err)
	}
	if e.store != nil {
		if err := e.store.Migrate(); err != nil {
			return nil, fmt.Errorf("garnet: migrate store: %w", err)
		}
	}
	e.log.Debug("builtins loaded",
		zap.String("source", cmp.Or(e.builtinsFile, "embedded")),
		zap.Int("declarations", len(e.builtins.Declarations())))
	return e, nil
}

// Close releases the store, if any.
func (e *Engine) Close() error {
	if e.store == nil {
		return nil
	}
	return e.store.Close()
}

// Builtins returns the standard library unit.
func (e *Engine) Builtins() *graph.Unit {
	return e.builtins
}

// Unit returns the published unit for id. It makes the engine the
// graph.Universe of every pipeline run.
func (e *Engine) Unit(id string) (*graph.Unit, bool) {
	e.mu.RLock()
	defer e.mu.RUnlock()
	ent, ok := e.units[id]
	if !ok {
		return nil, false
	}
	return ent.unit, true
}

// Units returns all published units ordered by id.
func (e *Engine) Units() []*graph.Unit {
	e.mu.RLock()
	defer e.mu.RUnlock()
	out := make([]*graph.Unit, 0, len(e.units))
	for _, ent := range e.units {
		out = append(out, ent.unit)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].ID < out[j].ID })
	return out
}

// Invalidate marks id stale so that the next AnalyzeSource rebuilds it
// even when its content is unchanged.
func (e *Engine) Invalidate(id string) {
	e.mu.Lock()
	defer e.mu.Unlock()
	if ent, ok := e.units[id]; ok {
		ent.hash = 0
	}
}

func (e *Engine) current(id string) (hash uint64, ok bool) {
	e.mu.RLock()
	defer e.mu.RUnlock()
	ent, ok := e.units[id]
	if !ok {
		return 0, false
	}
	return ent.hash, true
}

// Lookup returns a lookup over the builtins and every published unit.
func (e *Engine) Lookup() *graph.Lookup {
	return graph.NewLookup(e.builtins, e)
}

// Analyze runs the pipeline on an already-built tree and publishes the
// result. With update set, the unit continues the revision count of its
// previous version.
func (e *Engine) Analyze(ctx context.Context, id string, root *syntax.Program, update bool) (*graph.Unit, error) {
	unit, err := e.analyze(ctx, id, root, 0, update)
	if err != nil {
		return nil, err
	}
	if err := e.schedule(ctx, []string{id}); err != nil {
		return unit, err
	}
	return unit, nil
}

// AnalyzeSource parses src and analyzes it as id. Content whose hash
// matches the published unit is not re-analyzed. On a syntax error the
// previous unit stays published with the parser problems as its
// diagnostics, and the returned error wraps parser.ErrSyntax.
func (e *Engine) AnalyzeSource(ctx context.Context, id string, src []byte) (*graph.Unit, error) {
	hash := xxhash.Sum64(src)
	if prev, ok := e.current(id); ok && prev == hash && hash != 0 {
		e.log.Debug("unchanged", zap.String("unit", id))
		unit, _ := e.Unit(id)
		return unit, nil
	}

	p := parser.New()
	defer p.Close()
	root, problems, err := p.Parse(ctx, id, src)
	if err != nil {
		if !errors.Is(err, parser.ErrSyntax) {
			return nil, fmt.Errorf("garnet: parse %s: %w", id, err)
		}
		return e.publishParseFailure(id, problems), err
	}

	unit, err := e.analyze(ctx, id, root, hash, true)
	if err != nil {
		return nil, err
	}
	if err := e.schedule(ctx, []string{id}); err != nil {
		return unit, err
	}
	return unit, nil
}

// analyze runs the pipeline for one unit and publishes it.
func (e *Engine) analyze(ctx context.Context, id string, root *syntax.Program, hash uint64, update bool) (*graph.Unit, error) {
	e.analyzeMu.Lock()
	defer e.analyzeMu.Unlock()

	prev, _ := e.Unit(id)
	in := build.Input{
		ID:       id,
		Root:     root,
		Update:   update && prev != nil,
		Previous: prev,
		Builtins: e.builtins,
		Universe: e,
		Resolver: e.resolver,
		Hash:     hash,
		Logger:   e.log,
	}
	if e.rails != nil {
		in.Implicit = e.rails.Implicit(id)
	}
	unit, err := build.Run(ctx, in)
	if err != nil {
		return nil, fmt.Errorf("garnet: analyze %s: %w", id, err)
	}
	e.log.Debug("analyzed",
		zap.String("unit", id),
		zap.Int("revision", unit.Revision),
		zap.Int("declarations", len(unit.Declarations())),
		zap.Int("diagnostics", len(unit.Diagnostics)),
		zap.Strings("unresolved", unit.Unresolved))

	if err := e.publish(id, &entry{unit: unit, root: root, hash: hash}); err != nil {
		return unit, err
	}
	return unit, nil
}

// publishParseFailure keeps the previous unit of id, marks it stale and
// replaces its diagnostics with problems. Without a previous unit an empty
// one carrying the problems is published. The previous unit is copied, not
// mutated, since readers may hold it.
func (e *Engine) publishParseFailure(id string, problems []diag.Diagnostic) *graph.Unit {
	e.analyzeMu.Lock()
	defer e.analyzeMu.Unlock()

	e.mu.Lock()
	var ent *entry
	if prev, ok := e.units[id]; ok {
		kept := *prev.unit
		kept.Hash = 0
		kept.Diagnostics = problems
		ent = &entry{unit: &kept, root: prev.root}
	} else {
		unit := graph.NewUnit(id, syntax.Range{})
		unit.Diagnostics = problems
		ent = &entry{unit: unit}
	}
	e.units[id] = ent
	e.mu.Unlock()

	e.log.Debug("parse failed", zap.String("unit", id), zap.Int("problems", len(problems)))
	if err := e.save(ent.unit); err != nil {
		e.log.Warn("store parse failure", zap.String("unit", id), zap.Error(err))
	}
	return ent.unit
}

func (e *Engine) publish(id string, ent *entry) error {
	e.mu.Lock()
	e.units[id] = ent
	e.mu.Unlock()
	return e.save(ent.unit)
}

func (e *Engine) save(u *graph.Unit) error {
	if e.store == nil {
		return nil
	}
	if err := e.store.SaveUnit(u); err != nil {
		return fmt.Errorf("garnet: store %s: %w", u.ID, err)
	}
	return nil
}

// Remove forgets id and re-analyzes the units that required it.
func (e *Engine) Remove(ctx context.Context, id string) error {
	e.mu.Lock()
	_, ok := e.units[id]
	delete(e.units, id)
	e.mu.Unlock()
	if !ok {
		return fmt.Errorf("garnet: remove %s: %w", id, ErrUnknownUnit)
	}
	if e.store != nil {
		if err := e.store.DeleteUnit(id); err != nil {
			return fmt.Errorf("garnet: remove %s: %w", id, err)
		}
	}
	return e.schedule(ctx, []string{id})
}

// schedule re-analyzes, until nothing changes, the units whose deferred
// imports have become available and the dependents of every unit analyzed
// along the way. A unit is re-analyzed as a dependent at most once.
func (e *Engine) schedule(ctx context.Context, changed []string) error {
	done := make(map[string]bool, len(changed))
	for _, id := range changed {
		done[id] = true
	}
	queue := e.dependents(changed, done)
	for round := 1; ; round++ {
		for _, id := range e.pending() {
			if !slices.Contains(queue, id) {
				queue = append(queue, id)
			}
		}
		if len(queue) == 0 {
			return nil
		}
		sort.Strings(queue)
		e.log.Info("scheduling", zap.Int("round", round), zap.Int("units", len(queue)))
		for _, id := range queue {
			if err := ctx.Err(); err != nil {
				return err
			}
			if err := e.reanalyze(ctx, id); err != nil {
				return err
			}
			done[id] = true
		}
		queue = e.dependents(queue, done)
	}
}

func (e *Engine) reanalyze(ctx context.Context, id string) error {
	e.mu.RLock()
	ent, ok := e.units[id]
	e.mu.RUnlock()
	if !ok || ent.root == nil {
		return nil
	}
	_, err := e.analyze(ctx, id, ent.root, ent.hash, true)
	return err
}

// pending lists units with a deferred import that is now published.
func (e *Engine) pending() []string {
	e.mu.RLock()
	defer e.mu.RUnlock()
	var out []string
	for id, ent := range e.units {
		if ent.root == nil {
			continue
		}
		for _, target := range ent.unit.Unresolved {
			if _, ok := e.units[target]; ok {
				out = append(out, id)
				break
			}
		}
	}
	return out
}

// dependents lists units not in done that import any of ids.
func (e *Engine) dependents(ids []string, done map[string]bool) []string {
	e.mu.RLock()
	defer e.mu.RUnlock()
	var out []string
	for id, ent := range e.units {
		if done[id] || ent.root == nil {
			continue
		}
		for _, imp := range ent.unit.Imports {
			if slices.Contains(ids, imp) {
				out = append(out, id)
				break
			}
		}
	}
	return out
}

// Query returns a QueryBuilder over the published units.
func (e *Engine) Query() *QueryBuilder {
	return &QueryBuilder{engine: e, lookup: e.Lookup()}
}
