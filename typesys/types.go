// Package typesys contains the type model used to describe what a component produces and what
// a dependency claim requires: declared (possibly generic) types, type variables with bounds,
// arrays and primitives, plus the relations needed to resolve a graph (assignability, erasure,
// template matching and substitution).
package typesys

import (
	"strings"
)

type (
	// Kind discriminates the Type variants.
	Kind int

	// Type is one of *Declared, *TypeVar, *Array or *Primitive.
	Type interface {
		Kind() Kind
		String() string

		sealed()
	}

	// Declared is a reference to a named element, with type arguments when the element is generic.
	// A Declared without arguments on a generic element is raw.
	Declared struct {
		Element *Element
		Args    []Type
	}

	// TypeVar is a type parameter. Identity is the pointer: two variables named T declared by two
	// different owners are different variables.
	TypeVar struct {
		Name  string
		Owner string
		// Bounds are the upper bounds, more than one bound is an intersection.
		Bounds []Type
	}

	// Array is a sequence of Elem, rendered as a Go slice.
	Array struct {
		Elem Type
	}

	// Primitive is a builtin, non-declared type.
	Primitive struct {
		Name string
	}

	// Substitution binds type variables to concrete types.
	Substitution map[*TypeVar]Type
)

const (
	KindDeclared Kind = iota
	KindTypeVar
	KindArray
	KindPrimitive
)

// Any is the top type: everything is assignable to it, it is the erasure of an unbounded
// type variable.
var Any = &Primitive{Name: "any"}

func (k Kind) String() string {
	switch k {
	case KindDeclared:
		return "declared"
	case KindTypeVar:
		return "typevar"
	case KindArray:
		return "array"
	case KindPrimitive:
		return "primitive"
	default:
		return "unknown"
	}
}

// NewDeclared creates a reference to the element with the given type arguments.
func NewDeclared(element *Element, args ...Type) *Declared {
	return &Declared{Element: element, Args: args}
}

// NewTypeVar creates a type variable owned by owner.
func NewTypeVar(name, owner string, bounds ...Type) *TypeVar {
	return &TypeVar{Name: name, Owner: owner, Bounds: bounds}
}

// NewArray creates an array of elem.
func NewArray(elem Type) *Array {
	return &Array{Elem: elem}
}

// NewPrimitive creates a builtin type.
func NewPrimitive(name string) *Primitive {
	if name == Any.Name {
		return Any
	}
	return &Primitive{Name: name}
}

func (d *Declared) Kind() Kind  { return KindDeclared }
func (v *TypeVar) Kind() Kind   { return KindTypeVar }
func (a *Array) Kind() Kind     { return KindArray }
func (p *Primitive) Kind() Kind { return KindPrimitive }

func (d *Declared) sealed()  {}
func (v *TypeVar) sealed()   {}
func (a *Array) sealed()     {}
func (p *Primitive) sealed() {}

// IsRaw returns true if the element is generic but no arguments are given.
func (d *Declared) IsRaw() bool {
	return len(d.Args) == 0 && len(d.Element.Params) > 0
}

func (d *Declared) String() string {
	return format(d, (*Element).ShortName)
}

func (v *TypeVar) String() string {
	return v.Name
}

func (a *Array) String() string {
	return "[]" + a.Elem.String()
}

func (p *Primitive) String() string {
	return p.Name
}

// QualifiedString renders a type with the full package path of every element, this is the form
// hints are matched against.
func QualifiedString(t Type) string {
	return format(t, (*Element).QualifiedName)
}

func format(t Type, name func(*Element) string) string {
	var b strings.Builder
	writeType(&b, t, name)
	return b.String()
}

func writeType(b *strings.Builder, t Type, name func(*Element) string) {
	switch x := t.(type) {
	case *Declared:
		b.WriteString(name(x.Element))
		if len(x.Args) > 0 {
			b.WriteByte('[')
			for i, arg := range x.Args {
				if i > 0 {
					b.WriteString(", ")
				}
				writeType(b, arg, name)
			}
			b.WriteByte(']')
		}
	case *Array:
		b.WriteString("[]")
		writeType(b, x.Elem, name)
	case nil:
		b.WriteString("<nil>")
	default:
		b.WriteString(t.String())
	}
}
