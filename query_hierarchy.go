package garnet

import (
	"fmt"

	"github.com/jward/garnet/internal/graph"
)

// TypeRelation is a class or module related to the queried one.
type TypeRelation struct {
	Name string
	Kind string // "superclass", "include", "extend", "subclass"
	// Location is where the relation is written, zero for implicit
	// superclasses.
	Location Location
}

// TypeHierarchy is the hierarchy view of one class or module.
type TypeHierarchy struct {
	Name        string
	Kind        string          // "class" or "module"
	Definitions []Location      // every reopening of the class
	Ancestors   []*TypeRelation // superclass chain, nearest first
	Mixins      []*TypeRelation // included and extended modules
	Subclasses  []*TypeRelation // direct subclasses in published units
	IncludedBy  []*TypeRelation // classes and modules mixing this module in
}

// TypeHierarchy returns the hierarchy of the class or module named name, as
// seen from file. It returns nil with no error if the name does not resolve.
func (q *QueryBuilder) TypeHierarchy(file, name string) (*TypeHierarchy, error) {
	u, err := q.unit(file)
	if err != nil {
		return nil, fmt.Errorf("type hierarchy: %w", err)
	}
	d := q.lookup.ResolveType(u.Top, graph.ParseName(name))
	if d == nil {
		return nil, nil
	}
	qualified := d.Name.String()

	h := &TypeHierarchy{
		Name:        qualified,
		Kind:        d.Kind.String(),
		Definitions: []Location{},
		Ancestors:   []*TypeRelation{},
		Mixins:      []*TypeRelation{},
		Subclasses:  []*TypeRelation{},
		IncludedBy:  []*TypeRelation{},
	}
	for _, c := range q.lookup.ClassContexts(u, qualified) {
		for _, r := range c.Ranges {
			h.Definitions = append(h.Definitions, locationOf(c.Unit.ID, r))
		}
		for _, imp := range c.Imports() {
			if imp.Kind == graph.RequireImport {
				continue
			}
			mod := imp.Module.String()
			if m := q.lookup.ResolveType(imp.Scope, imp.Module); m != nil {
				mod = m.Name.String()
			}
			h.Mixins = append(h.Mixins, &TypeRelation{Name: mod, Kind: imp.Kind.String(), Location: locationOf(c.Unit.ID, imp.Range)})
		}
	}

	seen := map[string]bool{qualified: true}
	for super := q.lookup.Superclass(u, qualified); super != "" && !seen[super]; super = q.lookup.Superclass(u, super) {
		seen[super] = true
		h.Ancestors = append(h.Ancestors, &TypeRelation{Name: super, Kind: "superclass"})
	}

	for _, other := range q.engine.Units() {
		for _, c := range other.Contexts() {
			if c.Kind != graph.ClassContext && c.Kind != graph.ModuleContext {
				continue
			}
			if c.Superclass != nil {
				if s := q.lookup.ResolveType(c.Parent, c.Superclass); s != nil && s.Name.String() == qualified {
					h.Subclasses = append(h.Subclasses, &TypeRelation{Name: c.Name.String(), Kind: "subclass", Location: locationOf(other.ID, c.Range())})
				}
			}
			for _, imp := range c.Imports() {
				if imp.Kind == graph.RequireImport {
					continue
				}
				if m := q.lookup.ResolveType(imp.Scope, imp.Module); m != nil && m.Name.String() == qualified {
					h.IncludedBy = append(h.IncludedBy, &TypeRelation{Name: c.Name.String(), Kind: imp.Kind.String(), Location: locationOf(other.ID, imp.Range)})
				}
			}
		}
	}
	return h, nil
}
