package koragraph

import (
	"context"

	"github.com/a-peyrard/koragraph/option"
	"github.com/a-peyrard/koragraph/typesys"
)

const testPackage = "example.com/app"

type (
	fixture struct {
		universe *typesys.Universe
	}

	hintsFunc func(t typesys.Type, tags []string) []string
)

func (f hintsFunc) Hints(t typesys.Type, tags []string) []string {
	return f(t, tags)
}

func newFixture() *fixture {
	return &fixture{universe: typesys.NewUniverse()}
}

func (fx *fixture) iface(name string, supertypes ...*typesys.Declared) *typesys.Declared {
	return typesys.NewDeclared(fx.universe.MustDefine(&typesys.Element{
		Package:    testPackage,
		Name:       name,
		Supertypes: supertypes,
		Interface:  true,
	}))
}

func (fx *fixture) final(name string, supertypes ...*typesys.Declared) *typesys.Declared {
	return typesys.NewDeclared(fx.universe.MustDefine(&typesys.Element{
		Package:    testPackage,
		Name:       name,
		Supertypes: supertypes,
		Final:      true,
	}))
}

func (fx *fixture) genericInterface(name string) *typesys.Element {
	return fx.universe.MustDefine(&typesys.Element{
		Package:   testPackage,
		Name:      name,
		Params:    []*typesys.TypeVar{typesys.NewTypeVar("T", name)},
		Interface: true,
	})
}

func (fx *fixture) build(input Input, opts ...option.Option[BuilderOptions]) (*Graph, error) {
	return NewGraphBuilder(fx.universe, opts...).Build(context.Background(), input)
}

func provide(method string, produces typesys.Type, claims ...Claim) *ModuleMethod {
	return &ModuleMethod{
		Spec:   Spec{Produces: produces, Requires: claims},
		Module: testPackage,
		Method: method,
	}
}

func one(t typesys.Type, tags ...string) Claim {
	return NewClaim(t, OneRequired, tags...)
}
