package gosource

import (
	"fmt"
	"go/types"

	"github.com/rs/zerolog"

	"github.com/a-peyrard/koragraph"
	"github.com/a-peyrard/koragraph/typesys"
)

// converter maps go/types types into a typesys universe. Elements are created on first use and
// completed with their supertypes once every declaration is converted.
type converter struct {
	universe *typesys.Universe
	logger   *zerolog.Logger

	elements map[*types.TypeName]*typesys.Element
	origins  map[*typesys.Element]*types.Named
	vars     map[*types.TypeParam]*typesys.TypeVar
	// implicit lists the struct types annotated @implicit.
	implicit map[*types.TypeName]bool
}

func newConverter(universe *typesys.Universe, logger *zerolog.Logger) *converter {
	return &converter{
		universe: universe,
		logger:   logger,
		elements: make(map[*types.TypeName]*typesys.Element),
		origins:  make(map[*typesys.Element]*types.Named),
		vars:     make(map[*types.TypeParam]*typesys.TypeVar),
		implicit: make(map[*types.TypeName]bool),
	}
}

func (c *converter) toType(t types.Type) (typesys.Type, error) {
	switch x := t.(type) {
	case *types.Alias:
		return c.toType(types.Unalias(x))
	case *types.Basic:
		if x.Kind() == types.UnsafePointer || x.Info()&types.IsUntyped != 0 {
			return nil, fmt.Errorf("unsupported type %s", x)
		}
		return typesys.NewPrimitive(x.Name()), nil
	case *types.Pointer:
		named, ok := types.Unalias(x.Elem()).(*types.Named)
		if !ok || types.IsInterface(named) {
			return nil, fmt.Errorf("unsupported pointer type %s, only pointers to named types are", x)
		}
		d, err := c.toType(named)
		if err != nil {
			return nil, err
		}
		d.(*typesys.Declared).Element.Pointer = true
		return d, nil
	case *types.Slice:
		elem, err := c.toType(x.Elem())
		if err != nil {
			return nil, err
		}
		return typesys.NewArray(elem), nil
	case *types.TypeParam:
		v, found := c.vars[x]
		if !found {
			return nil, fmt.Errorf("type parameter %s is out of scope", x)
		}
		return v, nil
	case *types.Interface:
		if x.Empty() {
			return typesys.Any, nil
		}
		return nil, fmt.Errorf("unsupported anonymous interface %s", x)
	case *types.Named:
		if x.Obj().Pkg() == nil {
			// error
			return typesys.NewPrimitive(x.Obj().Name()), nil
		}
		e, err := c.element(x.Origin())
		if err != nil {
			return nil, err
		}
		var args []typesys.Type
		for i := 0; i < x.TypeArgs().Len(); i++ {
			arg, err := c.toType(x.TypeArgs().At(i))
			if err != nil {
				return nil, err
			}
			args = append(args, arg)
		}
		return typesys.NewDeclared(e, args...), nil
	default:
		return nil, fmt.Errorf("unsupported type %s", t)
	}
}

func (c *converter) tuple(tuple *types.Tuple) ([]typesys.Type, error) {
	var converted []typesys.Type
	for i := 0; i < tuple.Len(); i++ {
		t, err := c.toType(tuple.At(i).Type())
		if err != nil {
			return nil, err
		}
		converted = append(converted, t)
	}
	return converted, nil
}

// element returns the element of a named type, creating it on first use. The predefined elements
// of the universe are reused.
func (c *converter) element(named *types.Named) (*typesys.Element, error) {
	obj := named.Obj()
	if e, found := c.elements[obj]; found {
		return e, nil
	}
	qualified := obj.Pkg().Path() + "." + obj.Name()
	if e, found := c.universe.Lookup(qualified); found {
		c.elements[obj] = e
		return e, nil
	}

	isInterface := types.IsInterface(named)
	e := &typesys.Element{
		Package:   obj.Pkg().Path(),
		Name:      obj.Name(),
		Interface: isInterface,
		Final:     !isInterface,
	}
	if _, err := c.universe.Define(e); err != nil {
		return nil, err
	}
	c.elements[obj] = e
	c.origins[e] = named

	params := named.TypeParams()
	for i := 0; i < params.Len(); i++ {
		v := typesys.NewTypeVar(params.At(i).Obj().Name(), obj.Name())
		c.vars[params.At(i)] = v
		e.Params = append(e.Params, v)
	}
	for i := 0; i < params.Len(); i++ {
		e.Params[i].Bounds = c.bounds(params.At(i))
	}

	if isInterface {
		c.methods(e, named.Underlying().(*types.Interface))
	}
	if c.implicit[obj] {
		c.constructor(e, named)
	}
	return e, nil
}

// bounds converts a named constraint into a bound, other constraints leave the variable
// unbounded.
func (c *converter) bounds(tp *types.TypeParam) []typesys.Type {
	constraint, ok := types.Unalias(tp.Constraint()).(*types.Named)
	if !ok || constraint.Obj().Pkg() == nil {
		return nil
	}
	bound, err := c.toType(constraint)
	if err != nil {
		c.logger.Debug().Err(err).Str("param", tp.Obj().Name()).Msg("constraint ignored")
		return nil
	}
	return []typesys.Type{bound}
}

func (c *converter) methods(e *typesys.Element, iface *types.Interface) {
	for i := 0; i < iface.NumMethods(); i++ {
		m := iface.Method(i)
		sig := m.Type().(*types.Signature)
		params, err := c.tuple(sig.Params())
		if err == nil {
			var results []typesys.Type
			if results, err = c.tuple(sig.Results()); err == nil {
				e.Methods = append(e.Methods, typesys.Method{
					Name:     m.Name(),
					Params:   params,
					Results:  results,
					Variadic: sig.Variadic(),
				})
				continue
			}
		}
		c.logger.Warn().Err(err).
			Str("interface", e.QualifiedName()).
			Str("method", m.Name()).
			Msg("method signature cannot be converted, no forwarding proxy can be generated for this interface")
		e.Methods = nil
		return
	}
}

// constructor makes the element constructible from its exported fields.
func (c *converter) constructor(e *typesys.Element, named *types.Named) {
	st, ok := named.Underlying().(*types.Struct)
	if !ok {
		c.logger.Warn().Str("type", e.QualifiedName()).Msg("only struct types can be implicit")
		return
	}
	var (
		fields      []string
		constructor []typesys.Type
	)
	for i := 0; i < st.NumFields(); i++ {
		field := st.Field(i)
		if !field.Exported() {
			continue
		}
		t, err := c.toType(field.Type())
		if err != nil {
			c.logger.Warn().Err(err).Str("type", e.QualifiedName()).Str("field", field.Name()).Msg("type cannot be implicit")
			return
		}
		fields = append(fields, field.Name())
		constructor = append(constructor, t)
	}
	e.Constructible = true
	e.Fields = fields
	e.Constructor = constructor
}

// complete computes the supertypes of the non generic elements: the non generic interfaces they
// implement, and Wrapped[X] for the types with a `Value() X` method. Only the interfaces met
// during the conversion are considered.
func (c *converter) complete() {
	var interfaces []*typesys.Element
	for _, e := range c.universe.Elements() {
		if named, found := c.origins[e]; found && e.Interface && named.TypeParams().Len() == 0 {
			interfaces = append(interfaces, e)
		}
	}

	for _, e := range c.universe.Elements() {
		named, found := c.origins[e]
		if !found || named.TypeParams().Len() > 0 {
			continue
		}
		var t types.Type = named
		if e.Pointer {
			t = types.NewPointer(named)
		}
		for _, candidate := range interfaces {
			if candidate == e {
				continue
			}
			iface := c.origins[candidate].Underlying().(*types.Interface)
			if types.Implements(t, iface) && !c.equivalent(e, candidate) {
				e.Supertypes = append(e.Supertypes, typesys.NewDeclared(candidate))
			}
		}
		if inner, ok := c.wrapped(t, named.Obj().Pkg()); ok {
			e.Supertypes = append(e.Supertypes, typesys.NewDeclared(c.universe.Wrapped(), inner))
		}
	}
}

// equivalent returns true for two interfaces implementing each other, they are not made
// supertypes of one another to keep the hierarchy acyclic.
func (c *converter) equivalent(e, candidate *typesys.Element) bool {
	if !e.Interface {
		return false
	}
	return types.Implements(c.origins[candidate], c.origins[e].Underlying().(*types.Interface))
}

func (c *converter) wrapped(t types.Type, pkg *types.Package) (typesys.Type, bool) {
	obj, _, _ := types.LookupFieldOrMethod(t, true, pkg, "Value")
	fn, ok := obj.(*types.Func)
	if !ok {
		return nil, false
	}
	sig := fn.Type().(*types.Signature)
	if sig.Params().Len() != 0 || sig.Results().Len() != 1 {
		return nil, false
	}
	inner, err := c.toType(sig.Results().At(0).Type())
	if err != nil {
		return nil, false
	}
	return inner, true
}

// runtimeArg returns the type argument of t if t is the runtime generic type called name.
func runtimeArg(t types.Type, name string) (types.Type, bool) {
	named, ok := types.Unalias(t).(*types.Named)
	if !ok || named.Obj().Pkg() == nil || named.TypeArgs().Len() != 1 {
		return nil, false
	}
	if named.Obj().Pkg().Path() != typesys.RuntimePackage || named.Obj().Name() != name {
		return nil, false
	}
	return named.TypeArgs().At(0), true
}

// claim converts a parameter into a claim. Promise, Value and TypeRef parameters give the claim
// kind, the @inject annotation gives the tags and marks nullable and all-of claims.
func (c *converter) claim(t types.Type, in inject) (koragraph.Claim, error) {
	kind := koragraph.OneRequired
	if in.kind == injectKindAll {
		slice, ok := types.Unalias(t).Underlying().(*types.Slice)
		if !ok {
			return koragraph.Claim{}, fmt.Errorf("parameter of type %s cannot gather all components, it must be a slice", t)
		}
		t, kind = slice.Elem(), koragraph.AllOfOne
		if inner, ok := runtimeArg(t, "Promise"); ok {
			t, kind = inner, koragraph.AllOfPromise
		} else if inner, ok := runtimeArg(t, "Value"); ok {
			t, kind = inner, koragraph.AllOfValue
		}
	} else {
		nullable := in.kind == injectKindNullable
		if nullable {
			kind = koragraph.OneNullable
		}
		if inner, ok := runtimeArg(t, "Promise"); ok {
			t, kind = inner, koragraph.PromiseOf
			if nullable {
				kind = koragraph.NullablePromiseOf
			}
		} else if inner, ok := runtimeArg(t, "Value"); ok {
			t, kind = inner, koragraph.ValueOf
			if nullable {
				kind = koragraph.NullableValueOf
			}
		} else if inner, ok := runtimeArg(t, "TypeRef"); ok {
			if nullable {
				return koragraph.Claim{}, fmt.Errorf("a type reference cannot be nullable")
			}
			t, kind = inner, koragraph.TypeRef
		}
	}

	converted, err := c.toType(t)
	if err != nil {
		return koragraph.Claim{}, err
	}
	return koragraph.NewClaim(converted, kind, in.tags...), nil
}
