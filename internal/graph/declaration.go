package graph

import (
	"strings"

	"github.com/jward/garnet/internal/syntax"
	"github.com/jward/garnet/internal/types"
)

// QualifiedName is an ordered sequence of name segments, such as A::B::c.
type QualifiedName []string

// ParseName splits a "::"-separated name. Leading "::" is ignored.
func ParseName(s string) QualifiedName {
	s = strings.TrimPrefix(s, "::")
	if s == "" {
		return nil
	}
	return QualifiedName(strings.Split(s, "::"))
}

func (q QualifiedName) String() string {
	return strings.Join(q, "::")
}

// Last returns the final segment, or "".
func (q QualifiedName) Last() string {
	if len(q) == 0 {
		return ""
	}
	return q[len(q)-1]
}

// Append returns a new name with seg added.
func (q QualifiedName) Append(seg ...string) QualifiedName {
	out := make(QualifiedName, 0, len(q)+len(seg))
	out = append(out, q...)
	return append(out, seg...)
}

type DeclKind uint8

const (
	VariableDecl DeclKind = iota
	MethodDecl
	ClassDecl
	ModuleDecl
	AliasDecl
)

func (k DeclKind) String() string {
	switch k {
	case VariableDecl:
		return "variable"
	case MethodDecl:
		return "method"
	case ClassDecl:
		return "class"
	case ModuleDecl:
		return "module"
	case AliasDecl:
		return "alias"
	default:
		return "unknown"
	}
}

type Visibility uint8

const (
	Public Visibility = iota
	Protected
	Private
)

func (v Visibility) String() string {
	switch v {
	case Protected:
		return "protected"
	case Private:
		return "private"
	default:
		return "public"
	}
}

// Declaration is a named binding. Its type may be refined after creation
// by re-assignment or call-site propagation; the declaration itself is never
// replaced.
type Declaration struct {
	Name       QualifiedName
	Kind       DeclKind
	Range      syntax.Range
	Scope      syntax.IdentKind
	Singleton  bool
	Visibility Visibility
	Comment    string

	// Param is set for method and block parameters.
	Param     bool
	ParamKind syntax.ParamKind

	// Context is the context the declaration lives in. Args and Internal are
	// the argument and body contexts of methods, classes and modules.
	Context  *Context
	Args     *Context
	Internal *Context

	typ types.Type
}

// Identifier is the unqualified name.
func (d *Declaration) Identifier() string {
	return d.Name.Last()
}

// Type returns the current type, NilClass when none has been inferred.
func (d *Declaration) Type() types.Type {
	return types.OrNil(d.typ)
}

// RawType returns the current type, nil when none has been inferred.
func (d *Declaration) RawType() types.Type {
	return d.typ
}

func (d *Declaration) SetType(t types.Type) {
	d.typ = t
}

// MergeType unions t into the current type.
func (d *Declaration) MergeType(t types.Type) {
	d.typ = types.Merge(d.typ, t)
}

// Unit returns the unit owning the declaration.
func (d *Declaration) Unit() *Unit {
	if d.Context == nil {
		return nil
	}
	return d.Context.Unit
}

// IsType reports whether d declares a class or module.
func (d *Declaration) IsType() bool {
	return d.Kind == ClassDecl || d.Kind == ModuleDecl
}

// Callable reports whether d can be the target of a call.
func (d *Declaration) Callable() bool {
	return d.Kind == MethodDecl || d.Kind == AliasDecl
}

// Parameters returns the parameter declarations of a method in order.
func (d *Declaration) Parameters() []*Declaration {
	if d.Args == nil {
		return nil
	}
	return d.Args.Declarations()
}

// ReturnType returns the return type of a callable, NilClass otherwise.
func (d *Declaration) ReturnType() types.Type {
	if fn, ok := d.typ.(types.Function); ok {
		return fn.ReturnType()
	}
	return types.Nil
}

// Ref returns the stable identifier used to reference d from other units.
func (d *Declaration) Ref() DeclRef {
	ref := DeclRef{Name: d.Name.String(), Range: d.Range}
	if u := d.Unit(); u != nil {
		ref.Unit = u.ID
	}
	return ref
}

// DeclRef identifies a declaration across units by unit id, qualified name
// and declared range.
type DeclRef struct {
	Unit  string
	Name  string
	Range syntax.Range
}

// Use is an identifier occurrence. Target is nil when the name did not
// resolve.
type Use struct {
	Name   string
	Range  syntax.Range
	Target *DeclRef
}

// Resolved reports whether the use has a target.
func (u Use) Resolved() bool {
	return u.Target != nil
}
