package emit

import (
	"context"
	"os"
	"path/filepath"
	"regexp"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/a-peyrard/koragraph"
	"github.com/a-peyrard/koragraph/set"
	"github.com/a-peyrard/koragraph/typesys"
)

const appPackage = "example.com/app"

type fixture struct {
	universe *typesys.Universe
}

func newFixture() *fixture {
	return &fixture{universe: typesys.NewUniverse()}
}

func (fx *fixture) define(e *typesys.Element) *typesys.Declared {
	e.Package = appPackage
	return typesys.NewDeclared(fx.universe.MustDefine(e))
}

func (fx *fixture) build(t *testing.T, input koragraph.Input) *koragraph.Graph {
	t.Helper()
	graph, err := koragraph.NewGraphBuilder(fx.universe).Build(context.Background(), input)
	require.NoError(t, err)
	return graph
}

func provide(method string, produces typesys.Type, claims ...koragraph.Claim) *koragraph.ModuleMethod {
	return &koragraph.ModuleMethod{
		Spec:   koragraph.Spec{Produces: produces, Requires: claims},
		Module: appPackage,
		Method: method,
	}
}

func claim(t typesys.Type, kind koragraph.ClaimKind) koragraph.Claim {
	return koragraph.NewClaim(t, kind)
}

func TestEmit(t *testing.T) {
	fx := newFixture()
	clock := fx.define(&typesys.Element{Name: "Clock", Final: true, Pointer: true, Constructible: true})
	repo := fx.define(&typesys.Element{Name: "Repo", Interface: true})
	service := fx.define(&typesys.Element{Name: "Service", Final: true, Pointer: true})

	newRepo := provide("NewRepo", repo, claim(clock, koragraph.OneRequired))
	newRepo.ReturnsError = true
	newService := &koragraph.AnnotatedType{
		Spec: koragraph.Spec{
			Produces: service,
			Requires: []koragraph.Claim{
				claim(repo, koragraph.OneRequired),
				claim(clock, koragraph.PromiseOf),
			},
		},
		Package:     appPackage,
		Constructor: "NewService",
	}
	input := koragraph.Input{
		Declarations: []koragraph.Declaration{newRepo, newService},
		Roots:        []koragraph.Declaration{newService},
	}

	t.Run("it should construct the components in index order", func(t *testing.T) {
		// GIVEN
		graph := fx.build(t, input)

		// WHEN
		content, err := New(WithPackage("wiring", "example.com/wiring"), WithRoots(newService)).Emit(graph)

		// THEN
		require.NoError(t, err)
		code := string(content)
		assert.Contains(t, code, "// Code generated by koragraph. DO NOT EDIT.")
		assert.Contains(t, code, "package wiring")
		assert.Contains(t, code, `app "example.com/app"`)
		assert.Contains(t, code, `kora "github.com/a-peyrard/koragraph/kora"`)
		assert.Contains(t, code, "func NewGraph() (*Graph, error) {")
		assert.Contains(t, code, "var err error")
		assert.Contains(t, code, "g.appClock = &app.Clock{}")
		assert.Contains(t, code, "if g.appRepo, err = app.NewRepo(g.appClock); err != nil {")
		assert.Contains(t, code, `return nil, fmt.Errorf("failed to construct app.Repo:\n\t%w", err)`)
		assert.Contains(t, code, "g.appService = app.NewService(g.appRepo, kora.NewPromise(func() *app.Clock { return g.appClock }))")
		assert.Contains(t, code, "func (g *Graph) AppService() *app.Service {")
		assert.Less(t, strings.Index(code, "g.appClock ="), strings.Index(code, "g.appRepo, err ="))
		assert.Less(t, strings.Index(code, "g.appRepo, err ="), strings.Index(code, "g.appService ="))
	})

	t.Run("it should not qualify the types of the generated package", func(t *testing.T) {
		// GIVEN
		graph := fx.build(t, input)

		// WHEN
		content, err := New(WithPackage("app", appPackage), WithGraphName("Application")).Emit(graph)

		// THEN
		require.NoError(t, err)
		code := string(content)
		assert.NotContains(t, code, `"example.com/app"`)
		assert.Contains(t, code, "g.appClock = &Clock{}")
		assert.Contains(t, code, "func NewApplication() (*Application, error) {")
	})

	t.Run("it should write the file", func(t *testing.T) {
		// GIVEN
		graph := fx.build(t, input)
		path := filepath.Join(t.TempDir(), "graph_gen.go")

		// WHEN
		err := New().WriteFile(path, graph)

		// THEN
		require.NoError(t, err)
		content, err := os.ReadFile(path)
		require.NoError(t, err)
		assert.Contains(t, string(content), "package graph")
	})

	t.Run("it should refuse a root which is not part of the graph", func(t *testing.T) {
		graph := fx.build(t, koragraph.Input{Roots: []koragraph.Declaration{newRepo}, Declarations: input.Declarations})

		_, err := New(WithRoots(newService)).Emit(graph)

		require.Error(t, err)
		assert.Contains(t, err.Error(), "is not part of the graph")
	})
}

func TestEmitProxies(t *testing.T) {
	t.Run("it should forward every method of a promised proxy", func(t *testing.T) {
		// GIVEN
		fx := newFixture()
		str := typesys.NewPrimitive("string")
		errType := typesys.NewPrimitive("error")
		a := fx.define(&typesys.Element{
			Name:      "A",
			Interface: true,
			Methods: []typesys.Method{
				{Name: "Name", Results: []typesys.Type{str}},
				{Name: "Greet", Params: []typesys.Type{typesys.NewArray(str)}, Results: []typesys.Type{str, errType}, Variadic: true},
				{Name: "Close"},
			},
		})
		b := fx.define(&typesys.Element{Name: "B", Final: true, Pointer: true})
		newA := provide("NewA", a, claim(b, koragraph.OneRequired))
		newB := provide("NewB", b, claim(a, koragraph.OneRequired))
		graph := fx.build(t, koragraph.Input{
			Declarations: []koragraph.Declaration{newA, newB},
			Roots:        []koragraph.Declaration{newA},
		})

		// WHEN
		content, err := New().Emit(graph)

		// THEN
		require.NoError(t, err)
		code := string(content)
		assert.Contains(t, code, "type proxy0 struct {")
		assert.Contains(t, code, "target kora.Promise[app.A]")
		assert.Contains(t, code, "func (p *proxy0) Name() string {\n\treturn p.target.Get().Name()\n}")
		assert.Contains(t, code, "func (p *proxy0) Greet(a0 ...string) (string, error) {\n\treturn p.target.Get().Greet(a0...)\n}")
		assert.Contains(t, code, "func (p *proxy0) Close() {\n\tp.target.Get().Close()\n}")
		assert.Contains(t, code, "g.appAProxy = &proxy0{target: kora.NewPromise(func() app.A { return g.appA })}")
		assert.Contains(t, code, "g.appB = app.NewB(g.appAProxy)")
		assert.Contains(t, code, "g.appA = app.NewA(g.appB)")
	})

	t.Run("it should refuse to proxy a type which is not an interface", func(t *testing.T) {
		// GIVEN
		fx := newFixture()
		a := fx.define(&typesys.Element{Name: "A", Pointer: true})
		b := fx.define(&typesys.Element{Name: "B", Final: true, Pointer: true})
		newA := provide("NewA", a, claim(b, koragraph.OneRequired))
		newB := provide("NewB", b, claim(a, koragraph.OneRequired))
		graph := fx.build(t, koragraph.Input{
			Declarations: []koragraph.Declaration{newA, newB},
			Roots:        []koragraph.Declaration{newA},
		})
		require.True(t, graph.Components[0].IsProxy())

		// WHEN
		_, err := New().Emit(graph)

		// THEN
		require.Error(t, err)
		assert.Contains(t, err.Error(), "app.A is not an interface, a Go proxy can only stand for an interface")
	})
}

func TestEmitDependencies(t *testing.T) {
	t.Run("it should render every kind of dependency and the interceptors", func(t *testing.T) {
		// GIVEN
		fx := newFixture()
		plugin := fx.define(&typesys.Element{Name: "Plugin", Interface: true})
		missing := fx.define(&typesys.Element{Name: "Missing", Interface: true})
		user := fx.define(&typesys.Element{Name: "User", Final: true})
		logging := fx.define(&typesys.Element{Name: "Logging", Final: true})
		host := fx.define(&typesys.Element{Name: "Host", Final: true, Pointer: true})

		newLogging := provide("NewLogging", logging)
		newLogging.Intercepts = plugin
		newHost := provide("NewHost", host,
			claim(plugin, koragraph.AllOfOne),
			claim(missing, koragraph.OneNullable),
			claim(user, koragraph.TypeRef),
			claim(fx.universe.OptionalOf(missing), koragraph.OneRequired),
			claim(missing, koragraph.NullablePromiseOf),
		)
		graph := fx.build(t, koragraph.Input{
			Declarations: []koragraph.Declaration{
				provide("NewFirst", plugin),
				provide("NewSecond", plugin),
				newLogging,
				newHost,
			},
			Roots: []koragraph.Declaration{newHost},
		})

		// WHEN
		content, err := New().Emit(graph)

		// THEN
		require.NoError(t, err)
		code := string(content)
		assert.Contains(t, code, "g.koraOptionalAppMissing = kora.Empty[app.Missing]()")
		assert.Contains(t, code, "if g.appPlugin, err = kora.Intercept[app.Plugin](g.appPlugin, g.appLogging); err != nil {")
		assert.Contains(t, code, "if g.appPlugin2, err = kora.Intercept[app.Plugin](g.appPlugin2, g.appLogging); err != nil {")
		assert.Regexp(t, regexp.QuoteMeta("g.appHost = app.NewHost([]app.Plugin{")+
			`g\.appPlugin2?, g\.appPlugin2?\}, `+
			regexp.QuoteMeta("kora.Zero[app.Missing](), "+
				"kora.TypeRef[app.User]{}, "+
				"g.koraOptionalAppMissing, "+
				"kora.Zero[kora.Promise[app.Missing]]())"), code)
	})

	t.Run("it should refuse an interceptor constructed after its target", func(t *testing.T) {
		// GIVEN
		fx := newFixture()
		clock := fx.define(&typesys.Element{Name: "Clock", Final: true})
		logging := fx.define(&typesys.Element{Name: "Logging", Final: true})
		graph := &koragraph.Graph{Components: []*koragraph.Component{
			{Index: 0, Declaration: provide("NewClock", clock), Type: clock, Interceptors: []int{1}},
			{Index: 1, Declaration: provide("NewLogging", logging), Type: logging},
		}}

		// WHEN
		_, err := New().Emit(graph)

		// THEN
		require.Error(t, err)
		assert.Contains(t, err.Error(), "interceptor #1 is constructed after the component it intercepts")
	})

	t.Run("it should refuse an invalid graph", func(t *testing.T) {
		fx := newFixture()
		clock := fx.define(&typesys.Element{Name: "Clock", Final: true})
		graph := &koragraph.Graph{Components: []*koragraph.Component{
			{Index: 0, Declaration: provide("NewClock", clock), Type: clock, Dependencies: []koragraph.Dependency{
				koragraph.TargetDependency{Request: claim(clock, koragraph.OneRequired), Component: 0},
			}},
		}}

		_, err := New().Emit(graph)

		require.Error(t, err)
		assert.Contains(t, err.Error(), "cannot emit an invalid graph")
	})
}

func Test_findSuitableAlias(t *testing.T) {
	testCases := []struct {
		name     string
		pkg      string
		aliases  []string
		expected string
	}{
		{name: "no collision", pkg: "github.com/a-peyrard/koragraph/kora", expected: "kora"},
		{name: "one collision", pkg: "github.com/a-peyrard/koragraph/kora", aliases: []string{"kora"}, expected: "kkora"},
		{
			name:     "every segment collides",
			pkg:      "github.com/acme/platform/fn",
			aliases:  []string{"fn", "pfn", "apfn"},
			expected: "gapfn",
		},
		{
			name:     "counter once segments are exhausted",
			pkg:      "github.com/acme/platform/fn",
			aliases:  []string{"fn", "pfn", "apfn", "gapfn", "gapfn0", "gapfn1"},
			expected: "gapfn2",
		},
		{name: "dashes and leading digits", pkg: "example.com/3d-engine", expected: "_3dengine"},
	}
	for _, tc := range testCases {
		t.Run(tc.name, func(t *testing.T) {
			alias := findSuitableAlias(tc.pkg, set.NewWithValues(tc.aliases...))

			assert.Equal(t, tc.expected, alias)
		})
	}
}

func Test_generateFQN(t *testing.T) {
	aliases := map[string]string{"example.com/app": "app"}

	t.Run("it should qualify a type", func(t *testing.T) {
		assert.Equal(t, "app.Clock", generateFQN("example.com/app", "Clock", aliases))
	})
	t.Run("it should keep the pointer marker in front", func(t *testing.T) {
		assert.Equal(t, "*app.Clock", generateFQN("example.com/app", "*Clock", aliases))
	})
	t.Run("it should not qualify a type without alias", func(t *testing.T) {
		assert.Equal(t, "Clock", generateFQN("example.com/other", "Clock", aliases))
		assert.Equal(t, "Clock", generateFQN("", "Clock", aliases))
	})
}

func Test_uniqueName(t *testing.T) {
	t.Run("it should derive unique identifiers", func(t *testing.T) {
		// GIVEN
		taken := set.New[string]()

		// WHEN
		first := uniqueName("app.Repo[app.User] main", taken)
		second := uniqueName("app.Repo[app.User] main", taken)
		keyword := uniqueName("func", taken)

		// THEN
		assert.Equal(t, "appRepoAppUserMain", first)
		assert.Equal(t, "appRepoAppUserMain2", second)
		assert.Equal(t, "func_", keyword)
	})
}
