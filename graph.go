// Package koragraph resolves a declarative component graph once, ahead of time, into an ordered
// and cycle-free construction plan.
//
// Declarations describe how components can be produced and which dependencies (claims) they
// require. The GraphBuilder walks the claims from a root set with an explicit stack, schedules
// declarations, specializes generic templates, synthesizes optional wrappers and implicit
// declarations, asks extensions, and breaks construction cycles with promised proxies. The
// result is a Graph whose component indices are the construction order.
package koragraph

import (
	"errors"
	"fmt"
	"strings"

	"github.com/a-peyrard/koragraph/typesys"
)

type (
	// Component is a resolved declaration. Its Index is both its identity and its construction
	// order.
	Component struct {
		Index        int
		Declaration  Declaration
		Type         typesys.Type
		Tags         Tags
		Interceptors []int
		Dependencies []Dependency
	}

	// Dependency is a resolved edge, one per claim of the requester. The set of implementations
	// is closed: TargetDependency, PromiseOfDependency, ValueOfDependency, AllOfDependency,
	// NullDependency, TypeRefDependency and PromisedProxyDependency.
	Dependency interface {
		Claim() Claim
		// Deferred edges may point to components constructed later.
		Deferred() bool
		// Targets lists the component indices the edge refers to.
		Targets() []int

		sealed()
	}

	// TargetDependency hands the component itself, or its inner value when Unwrapped.
	TargetDependency struct {
		Request   Claim
		Component int
		Unwrapped bool
	}

	// PromiseOfDependency hands a deferred accessor to the component.
	PromiseOfDependency struct {
		Request   Claim
		Component int
		Unwrapped bool
	}

	// ValueOfDependency hands an accessor to the current value of the component.
	ValueOfDependency struct {
		Request   Claim
		Component int
		Unwrapped bool
	}

	// AllOfDependency hands every matching component, in declaration order.
	AllOfDependency struct {
		Request Claim
		Items   []Dependency
	}

	// NullDependency is the explicit absence of a nullable dependency.
	NullDependency struct {
		Request Claim
	}

	// TypeRefDependency hands a reference to the type itself, not an instance.
	TypeRefDependency struct {
		Request Claim
		Ref     typesys.Type
	}

	// PromisedProxyDependency binds a promised proxy to the real component it stands in for.
	PromisedProxyDependency struct {
		Request   Claim
		Component int
	}

	// Graph is the result of a resolution run.
	Graph struct {
		Components   []*Component
		Declarations []Declaration
		// Modules lists the distinct modules of resolved module methods, in construction order.
		Modules []string
	}
)

func (d TargetDependency) Claim() Claim        { return d.Request }
func (d PromiseOfDependency) Claim() Claim     { return d.Request }
func (d ValueOfDependency) Claim() Claim       { return d.Request }
func (d AllOfDependency) Claim() Claim         { return d.Request }
func (d NullDependency) Claim() Claim          { return d.Request }
func (d TypeRefDependency) Claim() Claim       { return d.Request }
func (d PromisedProxyDependency) Claim() Claim { return d.Request }

func (d TargetDependency) Deferred() bool        { return false }
func (d PromiseOfDependency) Deferred() bool     { return true }
func (d ValueOfDependency) Deferred() bool       { return true }
func (d AllOfDependency) Deferred() bool         { return false }
func (d NullDependency) Deferred() bool          { return false }
func (d TypeRefDependency) Deferred() bool       { return false }
func (d PromisedProxyDependency) Deferred() bool { return true }

func (d TargetDependency) Targets() []int        { return []int{d.Component} }
func (d PromiseOfDependency) Targets() []int     { return []int{d.Component} }
func (d ValueOfDependency) Targets() []int       { return []int{d.Component} }
func (d NullDependency) Targets() []int          { return nil }
func (d TypeRefDependency) Targets() []int       { return nil }
func (d PromisedProxyDependency) Targets() []int { return []int{d.Component} }

func (d AllOfDependency) Targets() []int {
	var targets []int
	for _, item := range d.Items {
		targets = append(targets, item.Targets()...)
	}
	return targets
}

func (d TargetDependency) sealed()        {}
func (d PromiseOfDependency) sealed()     {}
func (d ValueOfDependency) sealed()       {}
func (d AllOfDependency) sealed()         {}
func (d NullDependency) sealed()          {}
func (d TypeRefDependency) sealed()       {}
func (d PromisedProxyDependency) sealed() {}

// IsProxy returns true if the component is a promised proxy.
func (c *Component) IsProxy() bool {
	_, ok := c.Declaration.(*PromisedProxy)
	return ok
}

func (c *Component) String() string {
	return fmt.Sprintf("#%d %s", c.Index, describe(c.Declaration))
}

// Find returns the first non proxy component built from the given declaration.
func (g *Graph) Find(d Declaration) (*Component, bool) {
	for _, c := range g.Components {
		if c.Declaration == d {
			return c, true
		}
	}
	return nil, false
}

// Validate checks the construction order: every non deferred edge points to a component with a
// strictly lower index, deferred edges point to an existing component.
func (g *Graph) Validate() error {
	var errs []error
	for i, c := range g.Components {
		if c.Index != i {
			errs = append(errs, fmt.Errorf("component %s is stored at position %d", c, i))
		}
		for _, dep := range c.Dependencies {
			if err := g.validateEdge(c, dep); err != nil {
				errs = append(errs, err)
			}
		}
		for _, interceptor := range c.Interceptors {
			if interceptor < 0 || interceptor >= len(g.Components) {
				errs = append(errs, fmt.Errorf("component %s has an unknown interceptor %d", c, interceptor))
			}
		}
	}
	return errors.Join(errs...)
}

func (g *Graph) validateEdge(c *Component, dep Dependency) error {
	if all, ok := dep.(AllOfDependency); ok {
		var errs []error
		for _, item := range all.Items {
			if err := g.validateEdge(c, item); err != nil {
				errs = append(errs, err)
			}
		}
		return errors.Join(errs...)
	}
	for _, target := range dep.Targets() {
		switch {
		case target < 0 || target >= len(g.Components):
			return fmt.Errorf("component %s has an edge %s to unknown component %d", c, dep.Claim(), target)
		case !dep.Deferred() && target >= c.Index:
			return fmt.Errorf("component %s has an edge %s to component %d which is not constructed before it", c, dep.Claim(), target)
		}
	}
	return nil
}

// Describe renders the graph in a human readable form.
func (g *Graph) Describe() string {
	var b strings.Builder
	b.WriteString("* Components:\n")
	for _, c := range g.Components {
		b.WriteString(fmt.Sprintf("\t- %s\n", c))
		if len(c.Dependencies) > 0 {
			b.WriteString("\t\tdependencies:\n")
			for _, dep := range c.Dependencies {
				b.WriteString(fmt.Sprintf("\t\t\t- %s\n", describeDependency(dep)))
			}
		}
		if len(c.Interceptors) > 0 {
			b.WriteString("\t\tinterceptors:\n")
			for _, i := range c.Interceptors {
				b.WriteString(fmt.Sprintf("\t\t\t- #%d\n", i))
			}
		}
	}
	if len(g.Modules) > 0 {
		b.WriteString("* Modules:\n")
		for _, m := range g.Modules {
			b.WriteString(fmt.Sprintf("\t- %s\n", m))
		}
	}
	return b.String()
}

func describeDependency(dep Dependency) string {
	switch d := dep.(type) {
	case TargetDependency:
		if d.Unwrapped {
			return fmt.Sprintf("%s -> #%d (unwrapped)", d.Request, d.Component)
		}
		return fmt.Sprintf("%s -> #%d", d.Request, d.Component)
	case PromiseOfDependency:
		return fmt.Sprintf("%s -> promise #%d", d.Request, d.Component)
	case ValueOfDependency:
		return fmt.Sprintf("%s -> value #%d", d.Request, d.Component)
	case AllOfDependency:
		return fmt.Sprintf("%s -> %v", d.Request, d.Targets())
	case NullDependency:
		return fmt.Sprintf("%s -> absent", d.Request)
	case TypeRefDependency:
		return fmt.Sprintf("%s -> type %s", d.Request, d.Ref)
	case PromisedProxyDependency:
		return fmt.Sprintf("%s -> proxied #%d", d.Request, d.Component)
	}
	return fmt.Sprintf("%v", dep)
}
