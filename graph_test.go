package koragraph

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestGraphValidate(t *testing.T) {
	fx := newFixture()
	a := provide("NewA", fx.iface("A"))
	b := provide("NewB", fx.iface("B"), one(a.Produces))

	t.Run("it should accept edges to components constructed before", func(t *testing.T) {
		// GIVEN
		graph := &Graph{Components: []*Component{
			{Index: 0, Declaration: a, Type: a.Produces},
			{Index: 1, Declaration: b, Type: b.Produces, Dependencies: []Dependency{
				TargetDependency{Request: b.Requires[0], Component: 0},
			}},
		}}

		// WHEN
		err := graph.Validate()

		// THEN
		assert.NoError(t, err)
	})

	t.Run("it should refuse a direct edge to a component constructed later", func(t *testing.T) {
		// GIVEN
		graph := &Graph{Components: []*Component{
			{Index: 0, Declaration: b, Type: b.Produces, Dependencies: []Dependency{
				TargetDependency{Request: b.Requires[0], Component: 1},
			}},
			{Index: 1, Declaration: a, Type: a.Produces},
		}}

		// WHEN
		err := graph.Validate()

		// THEN
		assert.ErrorContains(t, err, "which is not constructed before it")
	})

	t.Run("it should accept a deferred edge to a component constructed later", func(t *testing.T) {
		// GIVEN
		graph := &Graph{Components: []*Component{
			{Index: 0, Declaration: b, Type: b.Produces, Dependencies: []Dependency{
				PromiseOfDependency{Request: b.Requires[0], Component: 1},
			}},
			{Index: 1, Declaration: a, Type: a.Produces},
		}}

		// WHEN
		err := graph.Validate()

		// THEN
		assert.NoError(t, err)
	})

	t.Run("it should check every item of a collection", func(t *testing.T) {
		// GIVEN
		graph := &Graph{Components: []*Component{
			{Index: 0, Declaration: b, Type: b.Produces, Dependencies: []Dependency{
				AllOfDependency{Request: b.Requires[0], Items: []Dependency{
					TargetDependency{Request: b.Requires[0], Component: 3},
				}},
			}},
		}}

		// WHEN
		err := graph.Validate()

		// THEN
		assert.ErrorContains(t, err, "unknown component 3")
	})
}

func TestGraphDescribe(t *testing.T) {
	t.Run("it should list components with their edges and interceptors", func(t *testing.T) {
		// GIVEN
		fx := newFixture()
		a := provide("NewA", fx.iface("A"))
		b := provide("NewB", fx.iface("B"), one(a.Produces))
		graph := &Graph{
			Components: []*Component{
				{Index: 0, Declaration: a, Type: a.Produces},
				{Index: 1, Declaration: b, Type: b.Produces, Interceptors: []int{0}, Dependencies: []Dependency{
					TargetDependency{Request: b.Requires[0], Component: 0},
				}},
			},
			Modules: []string{testPackage},
		}

		// WHEN
		description := graph.Describe()

		// THEN
		assert.Equal(t, "* Components:\n"+
			"\t- #0 app.A (example.com/app.NewA)\n"+
			"\t- #1 app.B (example.com/app.NewB)\n"+
			"\t\tdependencies:\n"+
			"\t\t\t- ONE_REQUIRED app.A -> #0\n"+
			"\t\tinterceptors:\n"+
			"\t\t\t- #0\n"+
			"* Modules:\n"+
			"\t- example.com/app\n", description)
	})
}
