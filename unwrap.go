package koragraph

import (
	"github.com/a-peyrard/koragraph/typesys"
)

type (
	// Unwrapper describes the wrapper relation: a component of type W[X] can satisfy a claim on X.
	Unwrapper interface {
		// Unwrap returns X if t is a wrapper of X.
		Unwrap(t typesys.Type) (typesys.Type, bool)
		// Wrap returns the wrapper type of t, used to find templates producing wrappers.
		Wrap(t typesys.Type) (typesys.Type, bool)
		// Accessor is the method giving the inner value of a wrapper instance.
		Accessor() string
	}

	// WrappedUnwrapper recognizes every type implementing the Wrapped[T] element of the universe.
	WrappedUnwrapper struct {
		universe *typesys.Universe
	}
)

func NewWrappedUnwrapper(universe *typesys.Universe) *WrappedUnwrapper {
	return &WrappedUnwrapper{universe: universe}
}

func (w *WrappedUnwrapper) Unwrap(t typesys.Type) (typesys.Type, bool) {
	d, ok := t.(*typesys.Declared)
	if !ok {
		return nil, false
	}
	view := typesys.AsSuper(d, w.universe.Wrapped())
	if view == nil || len(view.Args) != 1 {
		return nil, false
	}
	return view.Args[0], true
}

func (w *WrappedUnwrapper) Wrap(t typesys.Type) (typesys.Type, bool) {
	return typesys.NewDeclared(w.universe.Wrapped(), t), true
}

func (w *WrappedUnwrapper) Accessor() string {
	return "Value"
}

// isUnwrappable returns true if candidate is a wrapper whose inner type satisfies required.
func isUnwrappable(u Unwrapper, candidate, required typesys.Type) bool {
	inner, ok := u.Unwrap(candidate)
	return ok && typesys.IsAssignable(inner, required)
}
