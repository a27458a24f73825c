// Package types models the approximate types inferred for Ruby expressions.
//
// A Type is one of Concrete, Function, Container or Unsure. Types are
// immutable values; Merge builds unions without mutating its inputs.
package types

import "strings"

// Type is implemented by the four type variants.
type Type interface {
	String() string
	Equal(Type) bool
	isType()
}

// Concrete is an instance of the named class or module. Name is the
// qualified name joined with "::".
type Concrete struct {
	Name string
}

// Function is the type of a method: parameter types and a return type.
// A nil entry means the type has not been observed yet.
type Function struct {
	Params []Type
	Return Type
}

// Container is an Array or Hash holding any number of elements of Elem
// (keyed by Key for hashes). Elem and Key are nil when no element was
// observed.
type Container struct {
	Class string
	Key   Type
	Elem  Type
}

// Unsure is an ordered, duplicate-free union of alternatives. It always has
// at least two members; Merge collapses smaller unions.
type Unsure struct {
	Members []Type
}

func (Concrete) isType()  {}
func (Function) isType()  {}
func (Container) isType() {}
func (Unsure) isType()    {}

// Builtin class names used by inference.
const (
	NilClassName   = "NilClass"
	TrueClassName  = "TrueClass"
	FalseClassName = "FalseClass"
	ObjectName     = "Object"
	ArrayName      = "Array"
	HashName       = "Hash"
	ProcName       = "Proc"
)

// Nil is the fallback type of every expression whose type is unknown.
var Nil Type = Concrete{Name: NilClassName}

// Named returns the concrete type for a class name.
func Named(name string) Type {
	return Concrete{Name: name}
}

// OrNil returns t, or Nil when t is absent.
func OrNil(t Type) Type {
	if t == nil {
		return Nil
	}
	return t
}

func (c Concrete) String() string { return c.Name }

func (c Concrete) Equal(o Type) bool {
	oc, ok := o.(Concrete)
	return ok && oc.Name == c.Name
}

func (f Function) String() string {
	var sb strings.Builder
	sb.WriteString("def(")
	for i, p := range f.Params {
		if i > 0 {
			sb.WriteString(", ")
		}
		sb.WriteString(OrNil(p).String())
	}
	sb.WriteString(") -> ")
	sb.WriteString(OrNil(f.Return).String())
	return sb.String()
}

func (f Function) Equal(o Type) bool {
	of, ok := o.(Function)
	if !ok || len(of.Params) != len(f.Params) {
		return false
	}
	for i := range f.Params {
		if !equalOrAbsent(f.Params[i], of.Params[i]) {
			return false
		}
	}
	return equalOrAbsent(f.Return, of.Return)
}

// ReturnType returns the return type, Nil when unknown.
func (f Function) ReturnType() Type {
	return OrNil(f.Return)
}

func (c Container) String() string {
	switch {
	case c.Key != nil && c.Elem != nil:
		return c.Class + "<" + c.Key.String() + ", " + c.Elem.String() + ">"
	case c.Elem != nil:
		return c.Class + "<" + c.Elem.String() + ">"
	default:
		return c.Class
	}
}

func (c Container) Equal(o Type) bool {
	oc, ok := o.(Container)
	return ok && oc.Class == c.Class && equalOrAbsent(c.Key, oc.Key) && equalOrAbsent(c.Elem, oc.Elem)
}

// ElemType returns the element type, Nil when no element was observed.
func (c Container) ElemType() Type {
	return OrNil(c.Elem)
}

func (u Unsure) String() string {
	parts := make([]string, len(u.Members))
	for i, m := range u.Members {
		parts[i] = m.String()
	}
	return strings.Join(parts, " | ")
}

func (u Unsure) Equal(o Type) bool {
	ou, ok := o.(Unsure)
	if !ok || len(ou.Members) != len(u.Members) {
		return false
	}
	for i := range u.Members {
		if !u.Members[i].Equal(ou.Members[i]) {
			return false
		}
	}
	return true
}

func equalOrAbsent(a, b Type) bool {
	if a == nil || b == nil {
		return a == nil && b == nil
	}
	return a.Equal(b)
}

// Alternatives returns the members of a union, or t itself.
func Alternatives(t Type) []Type {
	switch t := t.(type) {
	case nil:
		return nil
	case Unsure:
		return t.Members
	default:
		return []Type{t}
	}
}

// Merge unions b into a. Alternatives of b are appended in order unless a
// structurally equal alternative is already present, so the result keeps
// the order in which alternatives were first observed. Merging with an
// absent type returns the other operand; a union of one member collapses to
// that member.
func Merge(a, b Type) Type {
	if a == nil {
		return b
	}
	if b == nil {
		return a
	}
	members := append([]Type(nil), Alternatives(a)...)
	for _, alt := range Alternatives(b) {
		if !contains(members, alt) {
			members = append(members, alt)
		}
	}
	if len(members) == 1 {
		return members[0]
	}
	return Unsure{Members: members}
}

// Union merges ts left to right. It returns Nil for an empty list.
func Union(ts ...Type) Type {
	var out Type
	for _, t := range ts {
		out = Merge(out, t)
	}
	return OrNil(out)
}

func contains(list []Type, t Type) bool {
	for _, m := range list {
		if m.Equal(t) {
			return true
		}
	}
	return false
}

// ClassNames lists the class names a value of type t may be an instance of,
// in order. Functions contribute nothing.
func ClassNames(t Type) []string {
	var out []string
	for _, alt := range Alternatives(t) {
		switch alt := alt.(type) {
		case Concrete:
			out = append(out, alt.Name)
		case Container:
			out = append(out, alt.Class)
		}
	}
	return out
}
