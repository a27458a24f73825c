package garnet

import (
	"fmt"
	"sort"

	"github.com/jward/garnet/internal/diag"
	"github.com/jward/garnet/internal/graph"
	"github.com/jward/garnet/internal/syntax"
	"github.com/jward/garnet/internal/types"
)

// QueryBuilder answers position-based questions over the published units.
// Positions are 0-based. The lookup is captured when the builder is created;
// units published later are still seen through it.
type QueryBuilder struct {
	engine *Engine
	lookup *graph.Lookup
}

// Location represents a source code position range.
type Location struct {
	File      string
	StartLine int
	StartCol  int
	EndLine   int
	EndCol    int
}

func locationOf(unit string, r syntax.Range) Location {
	return Location{
		File:      unit,
		StartLine: r.Start.Line,
		StartCol:  r.Start.Column,
		EndLine:   r.End.Line,
		EndCol:    r.End.Column,
	}
}

func (q *QueryBuilder) unit(file string) (*graph.Unit, error) {
	u, ok := q.lookup.Unit(file)
	if !ok {
		return nil, fmt.Errorf("%s: %w", file, ErrUnknownUnit)
	}
	return u, nil
}

// declarationAt returns the declaration the identifier at p refers to: the
// target of the use there, or the declaration named there.
func (q *QueryBuilder) declarationAt(u *graph.Unit, p syntax.Position) *graph.Declaration {
	if use, ok := u.UseAt(p); ok {
		if use.Target == nil {
			return nil
		}
		return q.lookup.Resolve(*use.Target)
	}
	return u.DeclarationAt(p)
}

// DefinitionAt finds the definition of the identifier at the given
// position. A position on a declaration's own name yields that declaration.
// It returns an empty slice when nothing resolves.
func (q *QueryBuilder) DefinitionAt(file string, line, col int) ([]Location, error) {
	u, err := q.unit(file)
	if err != nil {
		return nil, fmt.Errorf("definition at: %w", err)
	}
	p := syntax.Position{Line: line, Column: col}
	if use, ok := u.UseAt(p); ok && use.Target != nil {
		return []Location{locationOf(use.Target.Unit, use.Target.Range)}, nil
	}
	if d := u.DeclarationAt(p); d != nil {
		return []Location{locationOf(u.ID, d.Range)}, nil
	}
	return []Location{}, nil
}

// ReferencesTo finds every use, across all published units, of the
// declaration the identifier at the given position refers to. Results are
// ordered by file then position.
func (q *QueryBuilder) ReferencesTo(file string, line, col int) ([]Location, error) {
	u, err := q.unit(file)
	if err != nil {
		return nil, fmt.Errorf("references to: %w", err)
	}
	p := syntax.Position{Line: line, Column: col}
	var ref graph.DeclRef
	if use, ok := u.UseAt(p); ok && use.Target != nil {
		ref = *use.Target
	} else if d := u.DeclarationAt(p); d != nil {
		ref = d.Ref()
	} else {
		return []Location{}, nil
	}

	locations := []Location{}
	for _, other := range q.engine.Units() {
		for _, use := range other.UsesOf(ref) {
			locations = append(locations, locationOf(other.ID, use.Range))
		}
	}
	sortLocations(locations)
	return locations, nil
}

// TypeAt returns the inferred type of the declaration the identifier at the
// given position refers to, or nil when nothing resolves.
func (q *QueryBuilder) TypeAt(file string, line, col int) (types.Type, error) {
	u, err := q.unit(file)
	if err != nil {
		return nil, fmt.Errorf("type at: %w", err)
	}
	d := q.declarationAt(u, syntax.Position{Line: line, Column: col})
	if d == nil {
		return nil, nil
	}
	return d.Type(), nil
}

// Diagnostics returns the diagnostics of file, or of every published unit
// ordered by id when file is empty.
func (q *QueryBuilder) Diagnostics(file string) ([]diag.Diagnostic, error) {
	if file != "" {
		u, err := q.unit(file)
		if err != nil {
			return nil, fmt.Errorf("diagnostics: %w", err)
		}
		return append([]diag.Diagnostic{}, u.Diagnostics...), nil
	}
	out := []diag.Diagnostic{}
	for _, u := range q.engine.Units() {
		out = append(out, u.Diagnostics...)
	}
	return out, nil
}

// Dependencies returns the units file requires, with the unresolved require
// targets listed separately.
func (q *QueryBuilder) Dependencies(file string) (resolved, unresolved []string, err error) {
	u, err := q.unit(file)
	if err != nil {
		return nil, nil, fmt.Errorf("dependencies: %w", err)
	}
	return append([]string{}, u.Imports...), append([]string{}, u.Unresolved...), nil
}

// Dependents returns the published units that require file.
func (q *QueryBuilder) Dependents(file string) []string {
	out := []string{}
	for _, u := range q.engine.Units() {
		for _, imp := range u.Imports {
			if imp == file {
				out = append(out, u.ID)
				break
			}
		}
	}
	return out
}

func sortLocations(locs []Location) {
	sort.Slice(locs, func(i, j int) bool {
		a, b := locs[i], locs[j]
		if a.File != b.File {
			return a.File < b.File
		}
		if a.StartLine != b.StartLine {
			return a.StartLine < b.StartLine
		}
		return a.StartCol < b.StartCol
	})
}
