package graph

import (
	"github.com/jward/garnet/internal/syntax"
)

type ContextKind uint8

const (
	TopContext ContextKind = iota
	ClassContext
	ModuleContext
	MethodContext
	ArgumentsContext
	BlockContext
)

func (k ContextKind) String() string {
	switch k {
	case TopContext:
		return "top"
	case ClassContext:
		return "class"
	case ModuleContext:
		return "module"
	case MethodContext:
		return "method"
	case ArgumentsContext:
		return "arguments"
	case BlockContext:
		return "block"
	default:
		return "unknown"
	}
}

// closesLocals reports whether local variables declared outside a context of
// this kind are invisible inside it.
func (k ContextKind) closesLocals() bool {
	return k == ArgumentsContext || k == ClassContext || k == ModuleContext
}

type ImportKind uint8

const (
	RequireImport ImportKind = iota
	IncludeImport
	ExtendImport
)

func (k ImportKind) String() string {
	switch k {
	case IncludeImport:
		return "include"
	case ExtendImport:
		return "extend"
	default:
		return "require"
	}
}

// Import is an entry of a context's import list. Require imports name a
// unit; include and extend name a module resolved lexically from Scope at
// lookup time.
type Import struct {
	Kind   ImportKind
	Unit   string
	Module QualifiedName
	Scope  *Context
	Range  syntax.Range
}

// Context is a lexical scope. Contexts of one unit form a tree rooted at the
// unit's top context.
type Context struct {
	Kind   ContextKind
	Name   QualifiedName
	Parent *Context
	Unit   *Unit
	Owner  *Declaration

	// Ranges holds every source range of the context. Reopened classes and
	// modules have one range per definition.
	Ranges []syntax.Range

	// Superclass is the superclass name as written, resolved from Parent.
	Superclass QualifiedName

	decls    []*Declaration
	imports  []Import
	children []*Context
}

// Range returns the first range of the context.
func (c *Context) Range() syntax.Range {
	if len(c.Ranges) == 0 {
		return syntax.Range{}
	}
	return c.Ranges[0]
}

// Contains reports whether any range of c contains p.
func (c *Context) Contains(p syntax.Position) bool {
	for _, r := range c.Ranges {
		if r.Contains(p) {
			return true
		}
	}
	return false
}

// Declarations returns the local declarations in insertion order.
func (c *Context) Declarations() []*Declaration {
	return c.decls
}

// Imports returns the import list in insertion order.
func (c *Context) Imports() []Import {
	return c.imports
}

func (c *Context) Children() []*Context {
	return c.children
}

// Declare appends d to c.
func (c *Context) Declare(d *Declaration) {
	d.Context = c
	c.decls = append(c.decls, d)
}

// AddImport appends imp. Lookup walks imports most recent first.
func (c *Context) AddImport(imp Import) {
	c.imports = append(c.imports, imp)
}

// Local returns the most recent local declaration named name declared no
// later than at and accepted by f. Only local variables are subject to the
// position check; methods and constants are visible throughout the scope.
func (c *Context) Local(name string, at syntax.Position, f Filter) *Declaration {
	for i := len(c.decls) - 1; i >= 0; i-- {
		d := c.decls[i]
		if d.Identifier() != name || (f != nil && !f(d)) {
			continue
		}
		if d.Kind == VariableDecl && d.Scope == syntax.LocalIdent && at.Before(d.Range.Start) {
			continue
		}
		return d
	}
	return nil
}

// ScopeName is the qualified name of the nearest class or module, empty at
// the top level.
func (c *Context) ScopeName() QualifiedName {
	for ctx := c; ctx != nil; ctx = ctx.Parent {
		if ctx.Kind == ClassContext || ctx.Kind == ModuleContext {
			return ctx.Name
		}
	}
	return nil
}

// EnclosingClass returns the nearest class or module context, or nil.
func (c *Context) EnclosingClass() *Context {
	for ctx := c; ctx != nil; ctx = ctx.Parent {
		if ctx.Kind == ClassContext || ctx.Kind == ModuleContext {
			return ctx
		}
	}
	return nil
}

// EnclosingMethod returns the nearest method context, or nil.
func (c *Context) EnclosingMethod() *Context {
	for ctx := c; ctx != nil; ctx = ctx.Parent {
		switch ctx.Kind {
		case MethodContext:
			return ctx
		case ClassContext, ModuleContext:
			return nil
		}
	}
	return nil
}

// Top returns the root context.
func (c *Context) Top() *Context {
	ctx := c
	for ctx.Parent != nil {
		ctx = ctx.Parent
	}
	return ctx
}

// InnermostAt returns the deepest descendant of c (or c itself) containing p.
func (c *Context) InnermostAt(p syntax.Position) *Context {
	for _, child := range c.children {
		if child.Contains(p) {
			return child.InnermostAt(p)
		}
	}
	return c
}
