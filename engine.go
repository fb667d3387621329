package koragraph

import (
	"context"
	"fmt"

	"github.com/rs/zerolog"

	"github.com/a-peyrard/koragraph/typesys"
)

// run is one resolution: the builder configuration and the mutable state it works on.
type run struct {
	builder *GraphBuilder
	state   *state
	logger  zerolog.Logger
}

// loop pops frames until the stack is empty. A fork replaces the state of the run with the
// state of the winning fork, so the state is always read from the run.
func (r *run) loop(ctx context.Context) error {
	for len(r.state.stack) > 0 {
		if err := ctx.Err(); err != nil {
			return fmt.Errorf("resolution aborted:\n\t%w", err)
		}

		var err error
		switch f := r.state.pop().(type) {
		case rootFrame:
			r.processRoot(f)
		case componentFrame:
			err = r.processComponent(ctx, f)
		}
		if err != nil {
			return err
		}
	}
	return nil
}

func (r *run) processRoot(f rootFrame) {
	root := r.state.roots[f.index]
	if r.state.isResolved(root) {
		return
	}
	r.logger.Trace().Int("root", f.index).Str("declaration", describe(root)).Msg("resolving root")
	r.schedule(root)
}

func (r *run) processComponent(ctx context.Context, f componentFrame) error {
	if r.state.isResolved(f.declaration) {
		return nil
	}

	broken, err := r.breakCycle(f)
	if err != nil || broken {
		return err
	}

	for {
		claim, ok := f.current()
		if !ok {
			break
		}
		advanced, err := r.resolveClaim(ctx, &f, claim)
		if err != nil {
			return err
		}
		if !advanced {
			return nil
		}
	}

	c := r.state.commit(f)
	r.logger.Debug().Int("index", c.Index).Str("declaration", describe(c.Declaration)).Msg("component resolved")

	return nil
}

// resolveClaim resolves the current claim of the frame. It returns true if the frame advanced to
// its next claim, false if the frame was put back on the stack (or replaced by a fork) and the
// work it waits for was scheduled on top of it.
func (r *run) resolveClaim(ctx context.Context, f *componentFrame, claim Claim) (bool, error) {
	s := r.state

	switch {
	case claim.Kind.IsAllOf():
		return r.resolveAllOf(f, claim), nil
	case claim.Kind == TypeRef:
		f.advance(TypeRefDependency{Request: claim, Ref: claim.Type})
		return true, nil
	}

	if candidates := r.sourceCandidates(claim); len(candidates) > 0 {
		selected, err := r.selectCandidate(*f, claim, candidates)
		if err != nil {
			return false, err
		}
		return r.use(f, claim, selected), nil
	}

	switch specialized := r.specializeTemplates(claim); len(specialized) {
	case 0:
	case 1:
		r.logger.Trace().Str("claim", claim.String()).Str("template", describe(specialized[0])).Msg("template specialized")
		s.declarations = append(s.declarations, specialized[0])
		return r.use(f, claim, specialized[0]), nil
	default:
		return false, r.fork(ctx, *f, claim, specialized)
	}

	if claim.Kind.IsNullable() {
		f.advance(NullDependency{Request: claim})
		return true, nil
	}

	if inner, ok := r.builder.universe.IsOptional(claim.Type); ok {
		wrapper := &OptionalWrapper{
			Spec: Spec{
				Produces: claim.Type,
				TagSet:   claim.Tags,
				Requires: []Claim{{Type: inner, Tags: claim.Tags, Kind: OneNullable}},
			},
		}
		s.declarations = append(s.declarations, wrapper)
		return r.use(f, claim, wrapper), nil
	}

	if implicit, ok := implicitDeclaration(claim); ok {
		s.declarations = append(s.declarations, implicit)
		return r.use(f, claim, implicit), nil
	}

	found, err := r.askExtensions(ctx, claim)
	if err != nil {
		return false, err
	}
	if found {
		// looked up again, it is now known
		s.requeue(*f)
		return false, nil
	}

	return false, r.unresolved(*f, claim)
}

func (f *componentFrame) advance(dep Dependency) {
	f.dependencies = append(f.dependencies, dep)
	f.cursor++
}

// use hands the component of d to the frame if it is already resolved, otherwise schedules d
// and puts the frame back on the stack.
func (r *run) use(f *componentFrame, claim Claim, d Declaration) bool {
	if index, resolved := r.state.byDeclaration[d]; resolved {
		f.advance(wrap(claim, index, !typesys.IsAssignable(d.Type(), claim.Type)))
		return true
	}
	r.state.requeue(*f)
	r.schedule(d)
	return false
}

// schedule pushes the frame of d, then the frames of the interceptors of its type.
func (r *run) schedule(d Declaration) {
	s := r.state
	r.logger.Trace().Str("declaration", describe(d)).Msg("scheduling")
	s.push(newComponentFrame(d))
	for _, interceptor := range r.interceptorsOf(d.Type()) {
		if interceptor == d || s.isResolved(interceptor) || s.inStack(interceptor) {
			continue
		}
		s.push(newComponentFrame(interceptor))
	}
}

func (r *run) resolveAllOf(f *componentFrame, claim Claim) bool {
	candidates := r.allOfCandidates(f.declaration, claim)
	items := make([]Dependency, 0, len(candidates))
	for _, d := range candidates {
		index, resolved := r.state.byDeclaration[d]
		if !resolved {
			// one at a time, the frame retries once d is resolved
			r.state.requeue(*f)
			r.schedule(d)
			return false
		}
		items = append(items, wrap(claim, index, !typesys.IsAssignable(d.Type(), claim.Type)))
	}
	f.advance(AllOfDependency{Request: claim, Items: items})
	return true
}

// wrap builds the edge handed to the requester, according to the claim kind.
func wrap(claim Claim, index int, unwrapped bool) Dependency {
	switch claim.Kind {
	case PromiseOf, NullablePromiseOf, AllOfPromise:
		return PromiseOfDependency{Request: claim, Component: index, Unwrapped: unwrapped}
	case ValueOf, NullableValueOf, AllOfValue:
		return ValueOfDependency{Request: claim, Component: index, Unwrapped: unwrapped}
	default:
		return TargetDependency{Request: claim, Component: index, Unwrapped: unwrapped}
	}
}

// implicitDeclaration builds a declaration for a final type that can be constructed directly.
func implicitDeclaration(claim Claim) (Declaration, bool) {
	if !claim.Tags.IsEmpty() {
		return nil, false
	}
	d, ok := claim.Type.(*typesys.Declared)
	if !ok || d.IsRaw() || typesys.ContainsTypeVars(d) {
		return nil, false
	}
	e := d.Element
	if !e.Final || e.Interface || !e.Constructible {
		return nil, false
	}

	subst := e.Bind(d)
	claims := make([]Claim, len(e.Constructor))
	for i, param := range e.Constructor {
		claims[i] = Claim{Type: typesys.Replace(param, subst), Kind: OneRequired}
	}
	return &Implicit{Spec: Spec{Produces: d, Requires: claims}, Element: e}, true
}

// askExtensions asks the extensions for the claim, at most once per type and tags during a run.
func (r *run) askExtensions(ctx context.Context, claim Claim) (bool, error) {
	s := r.state
	key := typesys.QualifiedString(claim.Type) + "|" + claim.Tags.Key()
	if _, asked := s.asked[key]; asked {
		return false, nil
	}
	s.asked[key] = struct{}{}

	for _, extension := range r.builder.options.extensions {
		d, ok, err := extension.TryResolve(ctx, claim.Type, claim.Tags)
		if err != nil {
			return false, fmt.Errorf("extension failed to resolve %s:\n\t%w", claim, err)
		}
		if !ok || d == nil {
			continue
		}
		r.logger.Debug().Str("claim", claim.String()).Str("declaration", describe(d)).Msg("declaration synthesized by extension")
		if d.IsTemplate() {
			s.templates = append(s.templates, d)
		} else {
			s.declarations = append(s.declarations, d)
		}
		return true, nil
	}
	return false, nil
}

func (r *run) unresolved(f componentFrame, claim Claim) error {
	var hints []string
	if r.builder.options.hints != nil {
		hints = r.builder.options.hints.Hints(claim.Type, claim.Tags)
	}
	return &UnresolvedDependencyError{
		Claim:     claim,
		Requester: f.declaration,
		Chain:     r.state.chain(f),
		Hints:     hints,
	}
}
