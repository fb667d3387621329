package koragraph

import (
	"fmt"

	"github.com/a-peyrard/koragraph/typesys"
)

type (
	// Declaration describes how a component of some type can be produced. Declarations are
	// immutable, the engine only creates new ones (specializations, wrappers, proxies). Identity is
	// the pointer.
	//
	// The set of implementations is closed: *ModuleMethod, *AnnotatedType, *FromExtension,
	// *Implicit, *OptionalWrapper and *PromisedProxy.
	Declaration interface {
		Type() typesys.Type
		Tags() Tags
		Claims() []Claim

		IsTemplate() bool
		IsInterceptor() bool
		// InterceptTarget is the type of the components wrapped by an interceptor, nil otherwise.
		InterceptTarget() typesys.Type
		IsDefault() bool

		// Origin is a human readable description of where the declaration comes from.
		Origin() string

		// Specialize materializes a template with the given type variable bindings.
		Specialize(subst typesys.Substitution) Declaration

		sealed()
	}

	// Spec holds what every declaration variant has in common.
	Spec struct {
		Produces typesys.Type
		TagSet   Tags
		Requires []Claim
		// Intercepts is set for interceptors only.
		Intercepts typesys.Type
		Default    bool
	}

	// ModuleMethod is produced by a factory function grouped in a module.
	ModuleMethod struct {
		Spec
		Module       string
		Method       string
		ReturnsError bool

		TypeParams []*typesys.TypeVar
		// TypeArgs are set once specialized, in TypeParams order.
		TypeArgs []typesys.Type
	}

	// AnnotatedType is produced by the constructor of an annotated type.
	AnnotatedType struct {
		Spec
		Package      string
		Constructor  string
		ReturnsError bool

		TypeParams []*typesys.TypeVar
		TypeArgs   []typesys.Type
	}

	// FromExtension is synthesized by an extension during resolution.
	FromExtension struct {
		Spec
		Extension    string
		Package      string
		Func         string
		ReturnsError bool
	}

	// Implicit is discovered from a bare dependency on a final type that can be constructed
	// directly.
	Implicit struct {
		Spec
		Element *typesys.Element
	}

	// OptionalWrapper produces Optional[T] from a nullable claim on T.
	OptionalWrapper struct {
		Spec
	}

	// PromisedProxy is a lazy forwarding stand-in used to break a construction cycle, the real
	// instance is bound once its component is constructed.
	PromisedProxy struct {
		Spec
		Target *typesys.Element
	}
)

func (s Spec) Type() typesys.Type {
	return s.Produces
}

func (s Spec) Tags() Tags {
	return s.TagSet
}

func (s Spec) Claims() []Claim {
	return s.Requires
}

func (s Spec) IsTemplate() bool {
	return typesys.ContainsTypeVars(s.Produces)
}

func (s Spec) IsInterceptor() bool {
	return s.Intercepts != nil
}

func (s Spec) InterceptTarget() typesys.Type {
	return s.Intercepts
}

func (s Spec) IsDefault() bool {
	return s.Default
}

func (s Spec) specialize(subst typesys.Substitution) Spec {
	var claims []Claim
	if s.Requires != nil {
		claims = make([]Claim, len(s.Requires))
		for i, c := range s.Requires {
			claims[i] = c.specialize(subst)
		}
	}
	return Spec{
		Produces:   typesys.Replace(s.Produces, subst),
		TagSet:     s.TagSet,
		Requires:   claims,
		Intercepts: typesys.Replace(s.Intercepts, subst),
		Default:    s.Default,
	}
}

func typeArgs(params []*typesys.TypeVar, subst typesys.Substitution) []typesys.Type {
	if len(params) == 0 {
		return nil
	}
	args := make([]typesys.Type, len(params))
	for i, p := range params {
		args[i] = typesys.Replace(p, subst)
	}
	return args
}

func (m *ModuleMethod) Origin() string {
	return fmt.Sprintf("%s.%s", m.Module, m.Method)
}

func (m *ModuleMethod) Specialize(subst typesys.Substitution) Declaration {
	return &ModuleMethod{
		Spec:         m.Spec.specialize(subst),
		Module:       m.Module,
		Method:       m.Method,
		ReturnsError: m.ReturnsError,
		TypeParams:   m.TypeParams,
		TypeArgs:     typeArgs(m.TypeParams, subst),
	}
}

func (a *AnnotatedType) Origin() string {
	return fmt.Sprintf("%s.%s", a.Package, a.Constructor)
}

func (a *AnnotatedType) Specialize(subst typesys.Substitution) Declaration {
	return &AnnotatedType{
		Spec:         a.Spec.specialize(subst),
		Package:      a.Package,
		Constructor:  a.Constructor,
		ReturnsError: a.ReturnsError,
		TypeParams:   a.TypeParams,
		TypeArgs:     typeArgs(a.TypeParams, subst),
	}
}

func (e *FromExtension) Origin() string {
	return fmt.Sprintf("%s.%s (extension %s)", e.Package, e.Func, e.Extension)
}

func (e *FromExtension) Specialize(subst typesys.Substitution) Declaration {
	return &FromExtension{
		Spec:         e.Spec.specialize(subst),
		Extension:    e.Extension,
		Package:      e.Package,
		Func:         e.Func,
		ReturnsError: e.ReturnsError,
	}
}

func (i *Implicit) Origin() string {
	return fmt.Sprintf("implicit %s", i.Produces)
}

func (i *Implicit) Specialize(subst typesys.Substitution) Declaration {
	return &Implicit{Spec: i.Spec.specialize(subst), Element: i.Element}
}

func (o *OptionalWrapper) Origin() string {
	return fmt.Sprintf("optional %s", o.Produces)
}

func (o *OptionalWrapper) Specialize(subst typesys.Substitution) Declaration {
	return &OptionalWrapper{Spec: o.Spec.specialize(subst)}
}

func (p *PromisedProxy) Origin() string {
	return fmt.Sprintf("promised proxy %s", p.Produces)
}

func (p *PromisedProxy) Specialize(subst typesys.Substitution) Declaration {
	return &PromisedProxy{Spec: p.Spec.specialize(subst), Target: p.Target}
}

func (m *ModuleMethod) sealed()    {}
func (a *AnnotatedType) sealed()   {}
func (e *FromExtension) sealed()   {}
func (i *Implicit) sealed()        {}
func (o *OptionalWrapper) sealed() {}
func (p *PromisedProxy) sealed()   {}

func describe(d Declaration) string {
	if d == nil {
		return "<nil>"
	}
	if d.Tags().IsEmpty() {
		return fmt.Sprintf("%s (%s)", d.Type(), d.Origin())
	}
	return fmt.Sprintf("%s %s (%s)", d.Type(), d.Tags(), d.Origin())
}
