package koragraph

import (
	"errors"
	"fmt"
	"maps"
	"slices"
)

type (
	// frame is a unit of work of the resolution stack, either a rootFrame or a componentFrame.
	frame interface {
		isFrame()
	}

	// rootFrame makes sure the root at index is resolved.
	rootFrame struct {
		index int
	}

	// componentFrame continues the resolution of a declaration from claim number cursor.
	componentFrame struct {
		declaration  Declaration
		claims       []Claim
		dependencies []Dependency
		cursor       int
		// waiting is set once the frame was put back on the stack, blocked on claims[cursor].
		waiting bool
	}

	// state is everything a run mutates. A fork works on its own deep copy.
	state struct {
		declarations []Declaration
		templates    []Declaration
		roots        []Declaration

		stack    []frame
		resolved []*Component

		byDeclaration map[Declaration]int
		// proxies maps a proxied claim to its promised proxy component.
		proxies map[string]int
		// pendingProxies lists the proxies waiting for a declaration to be committed.
		pendingProxies map[Declaration][]int
		// asked records the claims extensions were already asked for.
		asked map[string]struct{}
	}
)

func (rootFrame) isFrame()      {}
func (componentFrame) isFrame() {}

func newComponentFrame(d Declaration) componentFrame {
	return componentFrame{
		declaration:  d,
		claims:       d.Claims(),
		dependencies: make([]Dependency, 0, len(d.Claims())),
	}
}

// current returns the claim the frame is blocked on.
func (f componentFrame) current() (Claim, bool) {
	if f.cursor >= len(f.claims) {
		return Claim{}, false
	}
	return f.claims[f.cursor], true
}

func (s *state) push(f frame) {
	s.stack = append(s.stack, f)
}

func (s *state) pop() frame {
	if len(s.stack) == 0 {
		panic("state: pop from empty stack")
	}
	f := s.stack[len(s.stack)-1]
	s.stack = s.stack[:len(s.stack)-1]
	return f
}

func (s *state) peek() (frame, bool) {
	if len(s.stack) == 0 {
		return nil, false
	}
	return s.stack[len(s.stack)-1], true
}

// requeue puts the frame back on the stack, blocked on its current claim.
func (s *state) requeue(f componentFrame) {
	f.dependencies = slices.Clone(f.dependencies)
	f.waiting = true
	s.push(f)
}

func (s *state) isResolved(d Declaration) bool {
	_, found := s.byDeclaration[d]
	return found
}

func (s *state) inStack(d Declaration) bool {
	for _, f := range s.stack {
		if cf, ok := f.(componentFrame); ok && cf.declaration == d {
			return true
		}
	}
	return false
}

// commit adds the component of a fully resolved frame, its index is the construction order.
func (s *state) commit(f componentFrame) *Component {
	d := f.declaration
	c := &Component{
		Index:        len(s.resolved),
		Declaration:  d,
		Type:         d.Type(),
		Tags:         d.Tags(),
		Dependencies: f.dependencies,
	}
	s.resolved = append(s.resolved, c)
	s.byDeclaration[d] = c.Index

	for _, proxy := range s.pendingProxies[d] {
		p := s.resolved[proxy]
		request := p.Dependencies[0].Claim()
		p.Dependencies[0] = PromisedProxyDependency{Request: request, Component: c.Index}
	}
	delete(s.pendingProxies, d)

	return c
}

// checkPendingProxies reports the proxies whose declaration was never committed, ordered by
// proxy index.
func (s *state) checkPendingProxies() error {
	pending := slices.SortedFunc(maps.Keys(s.pendingProxies), func(a, b Declaration) int {
		return s.pendingProxies[a][0] - s.pendingProxies[b][0]
	})
	errs := make([]error, 0, len(pending))
	for _, d := range pending {
		errs = append(errs, fmt.Errorf("promised proxies %v are bound to %s which was never resolved", s.pendingProxies[d], describe(d)))
	}
	return errors.Join(errs...)
}

// chain walks the waiting frames from the top of the stack down to the root.
func (s *state) chain(f componentFrame) Chain {
	chain := Chain{link(f)}
	for i := len(s.stack) - 1; i >= 0; i-- {
		if cf, ok := s.stack[i].(componentFrame); ok && cf.waiting {
			chain = append(chain, link(cf))
		}
	}
	return chain
}

func link(f componentFrame) ChainLink {
	l := ChainLink{Declaration: f.declaration}
	if claim, ok := f.current(); ok {
		l.Claim = &claim
	}
	return l
}

func (s *state) clone() *state {
	resolved := make([]*Component, len(s.resolved))
	for i, c := range s.resolved {
		copied := *c
		copied.Dependencies = slices.Clone(c.Dependencies)
		copied.Interceptors = slices.Clone(c.Interceptors)
		resolved[i] = &copied
	}
	stack := make([]frame, len(s.stack))
	for i, f := range s.stack {
		if cf, ok := f.(componentFrame); ok {
			cf.dependencies = slices.Clone(cf.dependencies)
			f = cf
		}
		stack[i] = f
	}
	pending := make(map[Declaration][]int, len(s.pendingProxies))
	for d, proxies := range s.pendingProxies {
		pending[d] = slices.Clone(proxies)
	}

	return &state{
		declarations:   slices.Clone(s.declarations),
		templates:      slices.Clone(s.templates),
		roots:          s.roots,
		stack:          stack,
		resolved:       resolved,
		byDeclaration:  maps.Clone(s.byDeclaration),
		proxies:        maps.Clone(s.proxies),
		pendingProxies: pending,
		asked:          maps.Clone(s.asked),
	}
}

func (s *state) graph() *Graph {
	var modules []string
	seen := make(map[string]struct{})
	for _, c := range s.resolved {
		m, ok := c.Declaration.(*ModuleMethod)
		if !ok {
			continue
		}
		if _, found := seen[m.Module]; !found {
			seen[m.Module] = struct{}{}
			modules = append(modules, m.Module)
		}
	}
	return &Graph{
		Components:   s.resolved,
		Declarations: s.declarations,
		Modules:      modules,
	}
}
