package main

import (
	"bytes"
	"context"
	"os"
	"path/filepath"
	"testing"

	"github.com/fatih/color"
	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/a-peyrard/koragraph"
	"github.com/a-peyrard/koragraph/typesys"
)

const document = `
types:
  - {package: example.com/app, name: Clock, final: true, pointer: true, constructible: true}
  - {package: example.com/app, name: Service, final: true, pointer: true}
declarations:
  - id: service
    module: example.com/app
    method: NewService
    type: app.Service
    returnsError: true
    claims:
      - type: app.Clock
roots: [service]
`

func TestLoadSettings(t *testing.T) {
	t.Run("it should apply the defaults", func(t *testing.T) {
		// GIVEN
		flags := newFlagSet()
		require.NoError(t, flags.Parse(nil))

		// WHEN
		settings, err := loadSettings(flags)

		// THEN
		require.NoError(t, err)
		assert.Equal(t, []string{"./..."}, settings.Scan)
		assert.Equal(t, "graph_gen.go", settings.Output)
		assert.Equal(t, "Graph", settings.GraphName)
		assert.Equal(t, "Value", settings.Accessor)
		assert.Equal(t, 1, settings.ForkParallelism)
		assert.Equal(t, "info", settings.Log.Level)
	})

	t.Run("it should read the flags and the environment", func(t *testing.T) {
		// GIVEN
		t.Setenv("KORAGRAPH_GRAPH_NAME", "Application")
		flags := newFlagSet()
		require.NoError(t, flags.Parse([]string{"--spec", "graph.yaml", "-o", "wiring/wiring_gen.go", "--fork-parallelism", "4", "--log.level", "debug"}))

		// WHEN
		settings, err := loadSettings(flags)

		// THEN
		require.NoError(t, err)
		assert.Equal(t, "graph.yaml", settings.Spec)
		assert.Empty(t, settings.Scan)
		assert.Equal(t, "wiring/wiring_gen.go", settings.Output)
		assert.Equal(t, "wiring", settings.Package)
		assert.Equal(t, "Application", settings.GraphName)
		assert.Equal(t, 4, settings.ForkParallelism)
		assert.Equal(t, "debug", settings.Log.Level)
	})

	t.Run("it should refuse a spec and scan patterns together", func(t *testing.T) {
		flags := newFlagSet()
		require.NoError(t, flags.Parse([]string{"--spec", "graph.yaml", "--scan", "./..."}))

		_, err := loadSettings(flags)

		require.Error(t, err)
		assert.Contains(t, err.Error(), "spec and scan cannot be used together")
	})

	t.Run("it should refuse an unknown log level", func(t *testing.T) {
		flags := newFlagSet()
		require.NoError(t, flags.Parse([]string{"--log.level", "loud"}))

		_, err := loadSettings(flags)

		require.Error(t, err)
		assert.Contains(t, err.Error(), `invalid log level "loud"`)
	})
}

func TestFindTarget(t *testing.T) {
	t.Run("it should derive the import path of the output directory", func(t *testing.T) {
		// GIVEN
		root := t.TempDir()
		require.NoError(t, os.WriteFile(filepath.Join(root, "go.mod"), []byte("module example.com/app\n\ngo 1.25\n"), 0o600))

		// WHEN
		nested, errNested := findTarget(filepath.Join(root, "internal", "wiring", "graph_gen.go"))
		top, errTop := findTarget(filepath.Join(root, "graph_gen.go"))

		// THEN
		require.NoError(t, errNested)
		require.NoError(t, errTop)
		assert.Equal(t, "example.com/app/internal/wiring", nested.importPath)
		assert.Equal(t, "example.com/app", top.importPath)
	})

	t.Run("it should refuse a go.mod without module", func(t *testing.T) {
		root := t.TempDir()
		require.NoError(t, os.WriteFile(filepath.Join(root, "go.mod"), []byte("go 1.25\n"), 0o600))

		_, err := findTarget(filepath.Join(root, "graph_gen.go"))

		require.Error(t, err)
		assert.Contains(t, err.Error(), "no module declaration found")
	})
}

func TestRun(t *testing.T) {
	color.NoColor = true
	nop := zerolog.Nop()

	setup := func(t *testing.T, dryRun bool) *Settings {
		t.Helper()
		root := t.TempDir()
		require.NoError(t, os.WriteFile(filepath.Join(root, "go.mod"), []byte("module example.com/app\n"), 0o600))
		require.NoError(t, os.WriteFile(filepath.Join(root, "graph.yaml"), []byte(document), 0o600))
		settings := &Settings{
			Spec:   "graph.yaml",
			Dir:    root,
			Output: filepath.Join("wiring", "graph_gen.go"),
			DryRun: dryRun,
			Log:    &LogSettings{},
		}
		settings.Log.ApplyDefault()
		settings.ApplyDefault()
		return settings
	}

	t.Run("it should generate the graph of a document", func(t *testing.T) {
		// GIVEN
		settings := setup(t, false)
		var out bytes.Buffer

		// WHEN
		err := run(context.Background(), settings, &nop, newReporter(&out, false))

		// THEN
		require.NoError(t, err)
		assert.Contains(t, out.String(), "✔ 2 components resolved")
		content, err := os.ReadFile(filepath.Join(settings.Dir, "wiring", "graph_gen.go"))
		require.NoError(t, err)
		assert.Contains(t, string(content), "package wiring")
		assert.Contains(t, string(content), "if g.appService, err = app.NewService(g.appClock); err != nil {")
		assert.Contains(t, string(content), "func (g *Graph) AppService() *app.Service {")
	})

	t.Run("it should not write anything on a dry run", func(t *testing.T) {
		// GIVEN
		settings := setup(t, true)
		var out bytes.Buffer

		// WHEN
		err := run(context.Background(), settings, &nop, newReporter(&out, false))

		// THEN
		require.NoError(t, err)
		assert.Contains(t, out.String(), "would be written to")
		assert.NoFileExists(t, filepath.Join(settings.Dir, "wiring", "graph_gen.go"))
	})
}

func TestReporter(t *testing.T) {
	color.NoColor = true
	clock := typesys.NewDeclared(typesys.NewUniverse().MustDefine(&typesys.Element{Package: "example.com/app", Name: "Clock", Interface: true}))

	t.Run("it should suggest fixes for an unresolved dependency", func(t *testing.T) {
		// GIVEN
		var out bytes.Buffer
		err := &koragraph.UnresolvedDependencyError{Claim: koragraph.NewClaim(clock, koragraph.OneRequired, "utc")}

		// WHEN
		newReporter(&out, false).failure(err)

		// THEN
		assert.Contains(t, out.String(), "✘ unresolved dependency")
		assert.Contains(t, out.String(), "  no component found for app.Clock with tags [utc]")
		assert.Contains(t, out.String(), "hint: declare a component producing app.Clock")
		assert.Contains(t, out.String(), "hint: check the tags [utc], they must match exactly")
	})

	t.Run("it should not add suggestions when hints are known", func(t *testing.T) {
		var out bytes.Buffer
		err := &koragraph.UnresolvedDependencyError{
			Claim: koragraph.NewClaim(clock, koragraph.OneRequired),
			Hints: []string{"app.Clock is usually provided by clockwork"},
		}

		newReporter(&out, false).failure(err)

		assert.Contains(t, out.String(), "app.Clock is usually provided by clockwork")
		assert.NotContains(t, out.String(), "hint:")
	})

	t.Run("it should count the suppressed failures of the forks", func(t *testing.T) {
		var out bytes.Buffer
		err := &koragraph.SuppressedError{
			Err:        &koragraph.AmbiguousDependencyError{Claim: koragraph.NewClaim(clock, koragraph.OneRequired)},
			Suppressed: []error{assert.AnError, assert.AnError},
		}

		newReporter(&out, false).failure(err)

		assert.Contains(t, out.String(), "✘ ambiguous dependency")
		assert.Contains(t, out.String(), "hint: mark one of the candidates with @default")
		assert.Contains(t, out.String(), "2 other candidate(s) failed too")
	})

	t.Run("it should report other failures as they are", func(t *testing.T) {
		var out bytes.Buffer

		newReporter(&out, false).failure(assert.AnError)

		assert.Contains(t, out.String(), "✘ koragraph failed")
		assert.Contains(t, out.String(), assert.AnError.Error())
	})
}
