package typesys

// Same returns true if both types are structurally identical.
func Same(a, b Type) bool {
	switch x := a.(type) {
	case *Declared:
		y, ok := b.(*Declared)
		if !ok || x.Element != y.Element || len(x.Args) != len(y.Args) {
			return false
		}
		for i := range x.Args {
			if !Same(x.Args[i], y.Args[i]) {
				return false
			}
		}
		return true
	case *TypeVar:
		y, ok := b.(*TypeVar)
		return ok && x == y
	case *Array:
		y, ok := b.(*Array)
		return ok && Same(x.Elem, y.Elem)
	case *Primitive:
		y, ok := b.(*Primitive)
		return ok && x.Name == y.Name
	}
	return false
}

// Erasure drops type arguments. A type variable erases to its first bound, or to Any.
func Erasure(t Type) Type {
	switch x := t.(type) {
	case *Declared:
		if len(x.Args) == 0 {
			return x
		}
		return &Declared{Element: x.Element}
	case *TypeVar:
		if len(x.Bounds) == 0 {
			return Any
		}
		return Erasure(x.Bounds[0])
	case *Array:
		return &Array{Elem: Erasure(x.Elem)}
	}
	return t
}

// AsSuper views t as the target element by walking the supertype hierarchy, substituting type
// arguments along the way. It returns nil if target is not a supertype of t. A raw t gives a raw
// result.
func AsSuper(t *Declared, target *Element) *Declared {
	if t.Element == target {
		return t
	}
	raw := t.IsRaw()
	subst := t.Element.Bind(t)
	for _, super := range t.Element.Supertypes {
		var view *Declared
		if raw {
			view = &Declared{Element: super.Element}
		} else {
			view = Replace(super, subst).(*Declared)
		}
		if found := AsSuper(view, target); found != nil {
			if raw {
				return &Declared{Element: found.Element}
			}
			return found
		}
	}
	return nil
}

// IsAssignable returns true if a value of type from can be used where to is required.
//
// Type arguments are invariant, arrays are covariant for non primitive elements, a raw target
// accepts any parameterization of a subtype.
func IsAssignable(from, to Type) bool {
	if from == nil || to == nil {
		return false
	}
	switch target := to.(type) {
	case *Primitive:
		if target == Any || target.Name == Any.Name {
			return true
		}
		p, ok := from.(*Primitive)
		return ok && p.Name == target.Name
	case *TypeVar:
		if Same(from, target) {
			return true
		}
		if v, ok := from.(*TypeVar); ok {
			for _, bound := range v.Bounds {
				if IsAssignable(bound, target) {
					return true
				}
			}
		}
		return false
	case *Array:
		source, ok := from.(*Array)
		if !ok {
			return false
		}
		if _, primitive := target.Elem.(*Primitive); primitive {
			return Same(source.Elem, target.Elem)
		}
		return IsAssignable(source.Elem, target.Elem)
	case *Declared:
		switch source := from.(type) {
		case *Declared:
			view := AsSuper(source, target.Element)
			if view == nil {
				return false
			}
			if len(target.Args) == 0 || len(view.Args) == 0 {
				return true
			}
			if len(view.Args) != len(target.Args) {
				return false
			}
			for i := range target.Args {
				if !Same(view.Args[i], target.Args[i]) {
					return false
				}
			}
			return true
		case *TypeVar:
			for _, bound := range source.Bounds {
				if IsAssignable(bound, target) {
					return true
				}
			}
			return false
		}
	}
	return false
}

// ContainsTypeVars returns true if a type variable appears anywhere in t.
func ContainsTypeVars(t Type) bool {
	switch x := t.(type) {
	case *TypeVar:
		return true
	case *Declared:
		for _, arg := range x.Args {
			if ContainsTypeVars(arg) {
				return true
			}
		}
	case *Array:
		return ContainsTypeVars(x.Elem)
	}
	return false
}

// Replace substitutes the bound variables of subst throughout t. Unbound variables are kept,
// subtrees without variables are returned as is.
func Replace(t Type, subst Substitution) Type {
	if len(subst) == 0 || t == nil {
		return t
	}
	switch x := t.(type) {
	case *TypeVar:
		if replacement, found := subst[x]; found {
			return replacement
		}
		return x
	case *Declared:
		if !ContainsTypeVars(x) {
			return x
		}
		args := make([]Type, len(x.Args))
		for i, arg := range x.Args {
			args[i] = Replace(arg, subst)
		}
		return &Declared{Element: x.Element, Args: args}
	case *Array:
		if !ContainsTypeVars(x.Elem) {
			return x
		}
		return &Array{Elem: Replace(x.Elem, subst)}
	}
	return t
}

// ReplaceAll applies Replace to every type of the slice.
func ReplaceAll(types []Type, subst Substitution) []Type {
	if types == nil {
		return nil
	}
	replaced := make([]Type, len(types))
	for i, t := range types {
		replaced[i] = Replace(t, subst)
	}
	return replaced
}
