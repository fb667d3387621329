package typesys

// Match decides whether a generic declaration type can be specialized to satisfy required.
//
// At the root the declaration erasure only has to be assignable to the required erasure, inside
// type arguments the erasures must be equal. Type variables of the declaration are bound when
// their bounds accept the required type, every bound of an intersection must accept it. The
// returned substitution maps the declaration variables to the concrete types, a failed match is
// not an error: the template simply does not apply.
func Match(declaration, required Type) (Substitution, bool) {
	subst := make(Substitution)
	if !matchRoot(declaration, required, subst) {
		return nil, false
	}
	return subst, true
}

func matchRoot(declaration, required Type, subst Substitution) bool {
	if v, ok := declaration.(*TypeVar); ok {
		return bind(v, required, subst)
	}

	switch r := required.(type) {
	case *Declared:
		d, ok := declaration.(*Declared)
		if !ok {
			return false
		}
		if !IsAssignable(Erasure(d), Erasure(r)) {
			return false
		}
		return matchArgs(d, r, subst)
	case *Array:
		d, ok := declaration.(*Array)
		if !ok {
			return false
		}
		return matchRoot(d.Elem, r.Elem, subst)
	default:
		return Same(declaration, required)
	}
}

// matchArgs compares, for each type parameter of the required element, the member type of the
// declaration (seen as the required element) with the member type of the requirement.
func matchArgs(d, r *Declared, subst Substitution) bool {
	if len(r.Args) == 0 {
		return true
	}
	view := AsSuper(d, r.Element)
	if view == nil || len(view.Args) != len(r.Args) {
		return false
	}
	for i := range r.Args {
		if !matchMember(view.Args[i], r.Args[i], subst) {
			return false
		}
	}
	return true
}

func matchMember(declaration, required Type, subst Substitution) bool {
	switch d := declaration.(type) {
	case *TypeVar:
		return bind(d, required, subst)
	case *Declared:
		r, ok := required.(*Declared)
		if !ok || d.Element != r.Element || len(d.Args) != len(r.Args) {
			return false
		}
		return matchArgs(d, r, subst)
	case *Array:
		r, ok := required.(*Array)
		if !ok {
			return false
		}
		return matchRoot(d.Elem, r.Elem, subst)
	default:
		return Same(declaration, required)
	}
}

// bind binds v to t if its bounds accept t. A variable already bound must be bound to the same
// type. Bounds are checked after the tentative binding so a bound referring to v itself works.
func bind(v *TypeVar, t Type, subst Substitution) bool {
	if bound, found := subst[v]; found {
		return Same(bound, t)
	}
	subst[v] = t
	for _, upper := range v.Bounds {
		upper = Replace(upper, subst)
		if ContainsTypeVars(upper) {
			upper = Erasure(upper)
		}
		if !IsAssignable(t, upper) {
			delete(subst, v)
			return false
		}
	}
	return true
}
