package graph

import (
	"math"

	"github.com/jward/garnet/internal/syntax"
)

// Filter selects declarations during lookup. A nil Filter accepts all.
type Filter func(*Declaration) bool

func (f Filter) accepts(d *Declaration) bool {
	return f == nil || f(d)
}

// Callables accepts methods and aliases.
func Callables(d *Declaration) bool { return d.Callable() }

// Types accepts classes and modules.
func Types(d *Declaration) bool { return d.IsType() }

// Classes accepts classes.
func Classes(d *Declaration) bool { return d.Kind == ClassDecl }

// Modules accepts modules.
func Modules(d *Declaration) bool { return d.Kind == ModuleDecl }

func isLocal(d *Declaration) bool {
	return d.Kind == VariableDecl && d.Scope == syntax.LocalIdent
}

// Anywhere is a position after every declaration of a unit.
var Anywhere = syntax.Position{Line: math.MaxInt32}

// MemberMode selects which methods of a class are members: those callable
// on its instances, those callable on the class object, or both.
type MemberMode uint8

const (
	InstanceMembers MemberMode = iota
	SingletonMembers
	AllMembers
)

func (m MemberMode) accepts(d *Declaration) bool {
	if !d.Callable() {
		return true
	}
	switch m {
	case InstanceMembers:
		return !d.Singleton
	case SingletonMembers:
		return d.Singleton
	default:
		return true
	}
}

// Universe gives read access to the graphs of already analyzed units.
type Universe interface {
	Unit(id string) (*Unit, bool)
}

// Lookup resolves names against a unit, the units it imports and the
// builtins unit.
//
// Unqualified names are searched in this order, first match wins:
//  1. local declarations from the innermost context outward;
//  2. at each context level, its imports, most recently added first;
//  3. the members of the nearest enclosing class, including mixins and the
//     superclass chain;
//  4. the builtins unit.
//
// Local variables are only visible after their declaration and do not leak
// into method, class or module bodies.
type Lookup struct {
	builtins *Unit
	universe Universe
}

// NewLookup returns a Lookup. builtins may be nil while the builtins unit
// itself is being built; universe may be nil when there are no other units.
func NewLookup(builtins *Unit, universe Universe) *Lookup {
	return &Lookup{builtins: builtins, universe: universe}
}

// Builtins returns the builtins unit.
func (l *Lookup) Builtins() *Unit {
	return l.builtins
}

// Find returns the first declaration named name visible from ctx at
// position at.
func (l *Lookup) Find(ctx *Context, name string, at syntax.Position, f Filter) *Declaration {
	var found *Declaration
	l.newSearch(ctx.Unit).visible(ctx, at, f, true, func(d *Declaration) bool {
		if d.Identifier() == name {
			found = d
			return true
		}
		return false
	})
	return found
}

// Declared reports whether name is bound by a declaration outside the
// builtins unit that is visible from ctx.
func (l *Lookup) Declared(ctx *Context, name string, at syntax.Position) bool {
	var found bool
	l.newSearch(ctx.Unit).visible(ctx, at, nil, false, func(d *Declaration) bool {
		if d.Identifier() == name && d.Unit() != l.builtins {
			found = true
			return true
		}
		return false
	})
	return found
}

// Visible returns every declaration visible from ctx at position at, in
// lookup order, keeping only the first declaration of each name.
func (l *Lookup) Visible(ctx *Context, at syntax.Position, f Filter) []*Declaration {
	var out []*Declaration
	seen := make(map[string]bool)
	l.newSearch(ctx.Unit).visible(ctx, at, f, true, func(d *Declaration) bool {
		if !seen[d.Identifier()] {
			seen[d.Identifier()] = true
			out = append(out, d)
		}
		return false
	})
	return out
}

// FindQualified resolves a possibly qualified name. The first segment is
// found like Find; the following segments are members of the class or
// module found so far.
func (l *Lookup) FindQualified(ctx *Context, q QualifiedName, at syntax.Position, f Filter) *Declaration {
	if len(q) == 0 {
		return nil
	}
	if len(q) == 1 {
		return l.Find(ctx, q[0], at, f)
	}
	cur := l.Find(ctx, q[0], at, Types)
	for i := 1; cur != nil && i < len(q); i++ {
		sf := Filter(Types)
		if i == len(q)-1 {
			sf = f
		}
		cur = l.Member(ctx.Unit, cur.Name.String(), q[i], AllMembers, sf)
	}
	return cur
}

// ResolveType resolves a class or module name as written in scope. Only
// lexical scopes, required units and builtins are searched, never mixins.
func (l *Lookup) ResolveType(scope *Context, q QualifiedName) *Declaration {
	if len(q) == 0 || scope == nil {
		return nil
	}
	s := l.newSearch(scope.Unit)
	var head *Declaration
	for c := scope; c != nil && head == nil; c = c.Parent {
		head = c.Local(q[0], Anywhere, Types)
		if head == nil {
			s.requires(c, func(d *Declaration) bool {
				if d.IsType() && d.Identifier() == q[0] {
					head = d
					return true
				}
				return false
			})
		}
	}
	if head == nil && l.builtins != nil {
		head = l.builtins.Top.Local(q[0], Anywhere, Types)
	}
	for i := 1; head != nil && i < len(q); i++ {
		head = l.Member(scope.Unit, head.Name.String(), q[i], AllMembers, Types)
	}
	return head
}

// Member returns the member named name of the class or module class as
// seen from unit from.
func (l *Lookup) Member(from *Unit, class, name string, mode MemberMode, f Filter) *Declaration {
	var found *Declaration
	l.newSearch(from).members(class, mode, f, func(d *Declaration) bool {
		if d.Identifier() == name {
			found = d
			return true
		}
		return false
	})
	return found
}

// Members returns all members of class, first declaration of each name.
func (l *Lookup) Members(from *Unit, class string, mode MemberMode, f Filter) []*Declaration {
	var out []*Declaration
	seen := make(map[string]bool)
	l.newSearch(from).members(class, mode, f, func(d *Declaration) bool {
		if !seen[d.Identifier()] {
			seen[d.Identifier()] = true
			out = append(out, d)
		}
		return false
	})
	return out
}

// ClassContexts returns every context defining class, searching from,
// the units it requires (transitively) and builtins, in that order.
func (l *Lookup) ClassContexts(from *Unit, class string) []*Context {
	return l.newSearch(from).classContexts(class)
}

// Superclass returns the qualified superclass name of class as seen from
// unit from, empty for modules, BasicObject and unknown classes.
func (l *Lookup) Superclass(from *Unit, class string) string {
	s := l.newSearch(from)
	ctxs := s.classContexts(class)
	if len(ctxs) == 0 {
		return ""
	}
	return s.superclass(ctxs)
}

// Unit returns an analyzed unit by id.
func (l *Lookup) Unit(id string) (*Unit, bool) {
	if l.builtins != nil && id == l.builtins.ID {
		return l.builtins, true
	}
	if l.universe == nil {
		return nil, false
	}
	return l.universe.Unit(id)
}

// Resolve returns the declaration a reference points to.
func (l *Lookup) Resolve(ref DeclRef) *Declaration {
	u, ok := l.Unit(ref.Unit)
	if !ok {
		return nil
	}
	return u.DeclarationByRef(ref)
}

// search carries the cycle guards of one lookup.
type search struct {
	l         *Lookup
	from      *Unit
	units     []*Unit
	seenUnits map[*Unit]bool
	seenClass map[string]bool
}

func (l *Lookup) newSearch(from *Unit) *search {
	return &search{
		l:         l,
		from:      from,
		seenUnits: make(map[*Unit]bool),
		seenClass: make(map[string]bool),
	}
}

// visible visits declarations in lookup order until fn returns true.
func (s *search) visible(ctx *Context, at syntax.Position, f Filter, withBuiltins bool, fn func(*Declaration) bool) bool {
	localsVisible := true
	for c := ctx; c != nil; c = c.Parent {
		for i := len(c.decls) - 1; i >= 0; i-- {
			d := c.decls[i]
			if !f.accepts(d) {
				continue
			}
			if isLocal(d) && (!localsVisible || at.Before(d.Range.Start)) {
				continue
			}
			if fn(d) {
				return true
			}
		}
		if s.imports(c, f, fn) {
			return true
		}
		if c.Kind.closesLocals() {
			localsVisible = false
		}
	}
	if cls := ctx.EnclosingClass(); cls != nil {
		if s.members(cls.Name.String(), SelfMode(ctx), f, fn) {
			return true
		}
	}
	if !withBuiltins || s.l.builtins == nil {
		return false
	}
	if s.unitTop(s.l.builtins, f, fn) {
		return true
	}
	return s.members("Object", InstanceMembers, f, fn)
}

// SelfMode tells whether self in ctx is an instance or the class object.
func SelfMode(ctx *Context) MemberMode {
	m := ctx.EnclosingMethod()
	if m == nil {
		return SingletonMembers
	}
	if m.Owner != nil && m.Owner.Singleton {
		return SingletonMembers
	}
	return InstanceMembers
}

// imports visits the import list of c, most recent first.
func (s *search) imports(c *Context, f Filter, fn func(*Declaration) bool) bool {
	for i := len(c.imports) - 1; i >= 0; i-- {
		imp := c.imports[i]
		switch imp.Kind {
		case RequireImport:
			u, ok := s.l.Unit(imp.Unit)
			if ok && s.unitTop(u, f, fn) {
				return true
			}
		case IncludeImport, ExtendImport:
			mod := s.l.ResolveType(imp.Scope, imp.Module)
			if mod != nil && s.members(mod.Name.String(), InstanceMembers, f, fn) {
				return true
			}
		}
	}
	return false
}

// unitTop visits the non-local top-level declarations of u and of the
// units it requires.
func (s *search) unitTop(u *Unit, f Filter, fn func(*Declaration) bool) bool {
	if s.seenUnits[u] {
		return false
	}
	s.seenUnits[u] = true
	for i := len(u.Top.decls) - 1; i >= 0; i-- {
		d := u.Top.decls[i]
		if isLocal(d) || !f.accepts(d) {
			continue
		}
		if fn(d) {
			return true
		}
	}
	return s.imports(u.Top, f, fn)
}

// requires visits the top-level declarations of units required from c.
func (s *search) requires(c *Context, fn func(*Declaration) bool) bool {
	for i := len(c.imports) - 1; i >= 0; i-- {
		imp := c.imports[i]
		if imp.Kind != RequireImport {
			continue
		}
		if u, ok := s.l.Unit(imp.Unit); ok && s.unitTop(u, Types, fn) {
			return true
		}
	}
	return false
}

// members visits the members of class: its own declarations in every
// context defining it, then its mixins, then its superclass chain.
func (s *search) members(class string, mode MemberMode, f Filter, fn func(*Declaration) bool) bool {
	key := class + "#" + string(rune('0'+mode))
	if s.seenClass[key] {
		return false
	}
	s.seenClass[key] = true

	ctxs := s.classContexts(class)
	if len(ctxs) == 0 {
		return false
	}
	for _, c := range ctxs {
		for i := len(c.decls) - 1; i >= 0; i-- {
			d := c.decls[i]
			if isLocal(d) || !f.accepts(d) || !mode.accepts(d) {
				continue
			}
			if fn(d) {
				return true
			}
		}
	}
	for _, c := range ctxs {
		for i := len(c.imports) - 1; i >= 0; i-- {
			imp := c.imports[i]
			if imp.Kind == RequireImport {
				continue
			}
			if (imp.Kind == IncludeImport && mode == SingletonMembers) || (imp.Kind == ExtendImport && mode == InstanceMembers) {
				continue
			}
			mod := s.l.ResolveType(imp.Scope, imp.Module)
			if mod != nil && s.members(mod.Name.String(), InstanceMembers, f, fn) {
				return true
			}
		}
	}
	if super := s.superclass(ctxs); super != "" {
		if s.members(super, mode, f, fn) {
			return true
		}
	}
	if mode == SingletonMembers {
		meta := "Class"
		if ctxs[0].Kind == ModuleContext {
			meta = "Module"
		}
		return s.members(meta, InstanceMembers, f, fn)
	}
	return false
}

// superclass returns the qualified superclass name of the class defined by
// ctxs, defaulting to Object for classes.
func (s *search) superclass(ctxs []*Context) string {
	for _, c := range ctxs {
		if c.Superclass == nil {
			continue
		}
		if d := s.l.ResolveType(c.Parent, c.Superclass); d != nil {
			return d.Name.String()
		}
	}
	if ctxs[0].Kind != ClassContext {
		return ""
	}
	switch ctxs[0].Name.String() {
	case "BasicObject":
		return ""
	case "Object":
		return "BasicObject"
	default:
		return "Object"
	}
}

// classContexts returns the contexts defining class in the reachable units.
func (s *search) classContexts(class string) []*Context {
	var out []*Context
	for _, u := range s.reachable() {
		if c := u.ClassContext(class); c != nil {
			out = append(out, c)
		}
	}
	return out
}

// reachable lists from, the units it requires transitively, then builtins.
func (s *search) reachable() []*Unit {
	if s.units != nil {
		return s.units
	}
	seen := make(map[*Unit]bool)
	queue := []*Unit{}
	if s.from != nil {
		queue = append(queue, s.from)
	}
	for len(queue) > 0 {
		u := queue[0]
		queue = queue[1:]
		if seen[u] || u == s.l.builtins {
			continue
		}
		seen[u] = true
		s.units = append(s.units, u)
		for _, id := range u.Imports {
			if dep, ok := s.l.Unit(id); ok {
				queue = append(queue, dep)
			}
		}
	}
	if s.l.builtins != nil {
		s.units = append(s.units, s.l.builtins)
	}
	return s.units
}
