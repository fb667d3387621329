package typesys

import (
	"fmt"
	"path"
)

// RuntimePackage is the import path of the small runtime support package generated code relies on,
// it hosts the predefined Optional and Wrapped elements.
const RuntimePackage = "github.com/a-peyrard/koragraph/kora"

type (
	// Element is a named type.
	Element struct {
		Package string
		Name    string
		Params  []*TypeVar
		// Supertypes are expressed with the element's own Params.
		Supertypes []*Declared

		Interface bool
		Final     bool
		// Pointer is set when values of the element are handled through a pointer.
		Pointer bool

		// Constructible is set when the element can be built directly from its Constructor
		// parameter types, without any declaration.
		Constructible bool
		Constructor   []Type
		// Fields name the struct fields the Constructor types are assigned to.
		Fields  []string
		Methods []Method
	}

	// Method is a member of an element method set, used to generate forwarding proxies.
	Method struct {
		Name     string
		Params   []Type
		Results  []Type
		Variadic bool
	}

	// Universe indexes the elements known during one resolution run.
	Universe struct {
		elements map[string]*Element
		order    []*Element

		optional *Element
		wrapped  *Element
	}
)

// NewUniverse creates a universe containing the predefined Optional[T] and Wrapped[T] elements.
func NewUniverse() *Universe {
	u := &Universe{
		elements: make(map[string]*Element),
	}

	optionalT := NewTypeVar("T", "Optional")
	u.optional = u.MustDefine(&Element{
		Package: RuntimePackage,
		Name:    "Optional",
		Params:  []*TypeVar{optionalT},
		Final:   true,
	})

	wrappedT := NewTypeVar("T", "Wrapped")
	u.wrapped = u.MustDefine(&Element{
		Package:   RuntimePackage,
		Name:      "Wrapped",
		Params:    []*TypeVar{wrappedT},
		Interface: true,
		Methods: []Method{
			{Name: "Value", Results: []Type{wrappedT}},
		},
	})

	return u
}

// Define registers an element, qualified names must be unique.
func (u *Universe) Define(e *Element) (*Element, error) {
	if e.Name == "" {
		return nil, fmt.Errorf("element must have a name")
	}
	name := e.QualifiedName()
	if _, exists := u.elements[name]; exists {
		return nil, fmt.Errorf("element %s is already defined", name)
	}
	u.elements[name] = e
	u.order = append(u.order, e)

	return e, nil
}

func (u *Universe) MustDefine(e *Element) *Element {
	defined, err := u.Define(e)
	if err != nil {
		panic(fmt.Sprintf("failed to define element:\n\t%v", err))
	}
	return defined
}

// Lookup finds an element by qualified name.
func (u *Universe) Lookup(qualifiedName string) (*Element, bool) {
	e, found := u.elements[qualifiedName]
	return e, found
}

// Elements lists the elements in definition order.
func (u *Universe) Elements() []*Element {
	return u.order
}

func (u *Universe) Optional() *Element {
	return u.optional
}

func (u *Universe) Wrapped() *Element {
	return u.wrapped
}

// OptionalOf returns Optional[t].
func (u *Universe) OptionalOf(t Type) *Declared {
	return NewDeclared(u.optional, t)
}

// IsOptional returns the optional content type if t is Optional[X].
func (u *Universe) IsOptional(t Type) (Type, bool) {
	d, ok := t.(*Declared)
	if !ok || d.Element != u.optional || len(d.Args) != 1 {
		return nil, false
	}
	return d.Args[0], true
}

func (e *Element) QualifiedName() string {
	if e.Package == "" {
		return e.Name
	}
	return e.Package + "." + e.Name
}

// ShortName is the name as written from another package: last path segment plus name.
func (e *Element) ShortName() string {
	if e.Package == "" {
		return e.Name
	}
	return path.Base(e.Package) + "." + e.Name
}

// Self returns the generic type of the element, parameterized with its own type parameters.
func (e *Element) Self() *Declared {
	args := make([]Type, len(e.Params))
	for i, p := range e.Params {
		args[i] = p
	}
	return NewDeclared(e, args...)
}

// Bind maps the element type parameters to the arguments of d. A raw reference binds nothing.
func (e *Element) Bind(d *Declared) Substitution {
	subst := make(Substitution, len(e.Params))
	if len(d.Args) != len(e.Params) {
		return subst
	}
	for i, p := range e.Params {
		subst[p] = d.Args[i]
	}
	return subst
}

// CanBeProxied returns true if a forwarding stand-in can be generated for the element.
func (e *Element) CanBeProxied() bool {
	return e.Interface || !e.Final
}
