package koragraph

import (
	"fmt"

	"github.com/a-peyrard/koragraph/typesys"
)

// breakCycle checks whether the popped frame re-enters a declaration already in progress while
// its parent waits on a claim. A cycle is broken by handing a promised proxy to the parent, in
// which case true is returned and the popped frame is discarded.
func (r *run) breakCycle(f componentFrame) (bool, error) {
	s := r.state
	top, ok := s.peek()
	if !ok {
		return false, nil
	}
	parent, ok := top.(componentFrame)
	if !ok || !parent.waiting {
		return false, nil
	}
	claim, ok := parent.current()
	if !ok {
		return false, nil
	}

	d := f.declaration
	if !r.satisfies(d.Type(), claim) && !d.IsInterceptor() {
		return false, &CircularDependencyError{
			Declarations: []Declaration{parent.declaration, d},
			Claim:        claim,
			Chain:        s.chain(f),
			Reason:       fmt.Sprintf("%s can't be used for %s", d.Type(), claim),
		}
	}

	start := -1
	for i, other := range s.stack {
		if cf, ok := other.(componentFrame); ok && cf.declaration == d {
			start = i
			break
		}
	}
	if start < 0 {
		return false, nil
	}

	declared, ok := claim.Type.(*typesys.Declared)
	switch {
	case claim.Kind.IsAllOf():
		return false, r.circular(f, claim, start, "a collection can't be proxied")
	case !ok || !declared.Element.CanBeProxied():
		return false, r.circular(f, claim, start, fmt.Sprintf("%s is neither an interface nor an extensible type", claim.Type))
	}

	index := r.proxyFor(claim, declared, d)
	r.logger.Debug().
		Str("claim", claim.String()).
		Str("declaration", describe(d)).
		Int("proxy", index).
		Msg("cycle broken with a promised proxy")

	s.pop()
	parent.advance(wrap(claim, index, false))
	s.requeue(parent)

	return true, nil
}

// proxyFor returns the promised proxy component standing in for real, created once per claimed
// type and tags. The proxy is bound to real when real is committed.
func (r *run) proxyFor(claim Claim, declared *typesys.Declared, real Declaration) int {
	s := r.state
	key := typesys.QualifiedString(claim.Type) + "|" + claim.Tags.Key()
	if index, found := s.proxies[key]; found {
		return index
	}

	proxy := &PromisedProxy{
		Spec: Spec{
			Produces: claim.Type,
			TagSet:   claim.Tags,
			Requires: []Claim{{Type: claim.Type, Tags: claim.Tags, Kind: PromiseOf}},
		},
		Target: declared.Element,
	}
	c := s.commit(componentFrame{
		declaration:  proxy,
		claims:       proxy.Requires,
		dependencies: []Dependency{PromisedProxyDependency{Request: proxy.Requires[0], Component: -1}},
		cursor:       len(proxy.Requires),
	})
	s.proxies[key] = c.Index
	s.pendingProxies[real] = append(s.pendingProxies[real], c.Index)

	return c.Index
}

// circular reports the declarations in progress from the first occurrence of the re-entered
// declaration up to the popped frame.
func (r *run) circular(f componentFrame, claim Claim, start int, reason string) error {
	var declarations []Declaration
	for _, other := range r.state.stack[start:] {
		if cf, ok := other.(componentFrame); ok && (cf.waiting || cf.declaration == f.declaration) {
			declarations = append(declarations, cf.declaration)
		}
	}
	return &CircularDependencyError{
		Declarations: declarations,
		Claim:        claim,
		Chain:        r.state.chain(f),
		Reason:       reason,
	}
}
