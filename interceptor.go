package koragraph

import (
	"strings"

	"github.com/a-peyrard/koragraph/typesys"
)

// AopProxySuffix ends the name of the types generated to apply aspects to another type, they are
// intercepted like the type they decorate.
const AopProxySuffix = "__AopProxy"

// interceptorsOf lists the interceptor declarations targeting t, in declaration order.
func (r *run) interceptorsOf(t typesys.Type) []Declaration {
	var interceptors []Declaration
	for _, d := range r.state.declarations {
		if d.IsInterceptor() && intercepts(r.builder.options.unwrapper, d.InterceptTarget(), t) {
			interceptors = append(interceptors, d)
		}
	}
	return interceptors
}

// associateInterceptors attaches to every resolved component the resolved interceptors
// targeting its type. Promised proxies are never intercepted, and an interceptor never
// intercepts itself.
func (r *run) associateInterceptors() {
	s := r.state
	for _, c := range s.resolved {
		if c.IsProxy() {
			continue
		}
		c.Interceptors = nil
		for _, interceptor := range r.interceptorsOf(c.Type) {
			if interceptor == c.Declaration {
				continue
			}
			if index, resolved := s.byDeclaration[interceptor]; resolved {
				c.Interceptors = append(c.Interceptors, index)
			}
		}
	}
}

// intercepts returns true if an interceptor of target applies to a component of type t: same
// type, wrapper of the target, or aspect proxy of the target.
func intercepts(u Unwrapper, target, t typesys.Type) bool {
	if target == nil || t == nil {
		return false
	}
	if typesys.Same(target, t) {
		return true
	}
	if inner, ok := u.Unwrap(t); ok && typesys.Same(target, inner) {
		return true
	}

	d, ok := t.(*typesys.Declared)
	if !ok || !strings.HasSuffix(d.Element.Name, AopProxySuffix) {
		return false
	}
	original, ok := target.(*typesys.Declared)
	return ok &&
		original.Element.Package == d.Element.Package &&
		original.Element.Name == strings.TrimSuffix(d.Element.Name, AopProxySuffix)
}
