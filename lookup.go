package koragraph

import (
	"github.com/a-peyrard/koragraph/slices"
	"github.com/a-peyrard/koragraph/typesys"
)

// satisfies returns true if a component of type t can be handed for the claim, directly or
// through the wrapper relation.
func (r *run) satisfies(t typesys.Type, claim Claim) bool {
	return typesys.IsAssignable(t, claim.Type) || isUnwrappable(r.builder.options.unwrapper, t, claim.Type)
}

// exactly returns true if t is the claimed type itself, or wraps exactly the claimed type.
func (r *run) exactly(t typesys.Type, claim Claim) bool {
	if typesys.Same(t, claim.Type) {
		return true
	}
	inner, ok := r.builder.options.unwrapper.Unwrap(t)
	return ok && typesys.Same(inner, claim.Type)
}

// sourceCandidates lists the concrete declarations able to satisfy the claim, in declaration
// order. Resolved declarations are found here as well, promised proxies never are.
func (r *run) sourceCandidates(claim Claim) []Declaration {
	return slices.Filter(r.state.declarations, func(d Declaration) bool {
		return !d.IsTemplate() && claim.TagsMatch(d.Tags()) && r.satisfies(d.Type(), claim)
	})
}

// allOfCandidates lists the declarations gathered by an all-of claim: concrete and non default
// ones, except the requester itself.
func (r *run) allOfCandidates(requester Declaration, claim Claim) []Declaration {
	return slices.Filter(r.sourceCandidates(claim), func(d Declaration) bool {
		return !d.IsDefault() && d != requester
	})
}

// selectCandidate breaks ties between several declarations: the one producing exactly the
// claimed type first, then the only non default one, then the only exact and non default one.
func (r *run) selectCandidate(f componentFrame, claim Claim, candidates []Declaration) (Declaration, error) {
	if len(candidates) == 1 {
		return candidates[0], nil
	}

	exact := slices.Filter(candidates, func(d Declaration) bool {
		return r.exactly(d.Type(), claim)
	})
	if len(exact) == 1 {
		return exact[0], nil
	}

	nonDefault := slices.Filter(candidates, func(d Declaration) bool {
		return !d.IsDefault()
	})
	if len(nonDefault) == 1 {
		return nonDefault[0], nil
	}

	exactNonDefault := slices.Filter(exact, func(d Declaration) bool {
		return !d.IsDefault()
	})
	if len(exactNonDefault) == 1 {
		return exactNonDefault[0], nil
	}

	return nil, &AmbiguousDependencyError{
		Claim:      claim,
		Candidates: candidates,
		Chain:      r.state.chain(f),
	}
}

// specializeTemplates materializes every template matching the claim, directly or as a
// wrapper of the claimed type. Specializations leaving a type variable unbound are dropped.
func (r *run) specializeTemplates(claim Claim) []Declaration {
	targets := []typesys.Type{claim.Type}
	if wrapper, ok := r.builder.options.unwrapper.Wrap(claim.Type); ok {
		targets = append(targets, wrapper)
	}

	var specialized []Declaration
	for _, template := range r.state.templates {
		if !claim.TagsMatch(template.Tags()) {
			continue
		}
		for _, target := range targets {
			subst, ok := typesys.Match(template.Type(), target)
			if !ok {
				continue
			}
			d := template.Specialize(subst)
			if unbound(d) || !r.satisfies(d.Type(), claim) {
				continue
			}
			specialized = append(specialized, d)
			break
		}
	}
	return specialized
}

func unbound(d Declaration) bool {
	if typesys.ContainsTypeVars(d.Type()) {
		return true
	}
	for _, c := range d.Claims() {
		if typesys.ContainsTypeVars(c.Type) {
			return true
		}
	}
	return false
}
