// Command koragraph resolves a component graph, from a YAML document or from annotated Go
// sources, and generates the Go code constructing it.
//
// Typical use is a go:generate directive in the package receiving the graph:
//
//	//go:generate go run github.com/a-peyrard/koragraph/cmd/koragraph --scan ./... -o graph_gen.go
package main

import (
	"context"
	"errors"
	"fmt"
	"os"
	"os/signal"
	"path/filepath"
	"time"

	"github.com/joho/godotenv"
	"github.com/rs/zerolog"
	"github.com/spf13/pflag"

	"github.com/a-peyrard/koragraph"
	"github.com/a-peyrard/koragraph/config"
	"github.com/a-peyrard/koragraph/emit"
	"github.com/a-peyrard/koragraph/frontend/gosource"
	"github.com/a-peyrard/koragraph/frontend/yamlspec"
	"github.com/a-peyrard/koragraph/hints"
	"github.com/a-peyrard/koragraph/option"
	"github.com/a-peyrard/koragraph/typesys"
)

func main() {
	// a missing .env is fine
	_ = godotenv.Load()

	flags := newFlagSet()
	if err := flags.Parse(os.Args[1:]); err != nil {
		if errors.Is(err, pflag.ErrHelp) {
			os.Exit(0)
		}
		os.Exit(2)
	}

	rep := newReporter(os.Stderr, false)
	settings, err := loadSettings(flags)
	if err != nil {
		rep.failure(err)
		os.Exit(2)
	}

	logger := newLogger(settings.Log.Level)
	rep.verbose = logger.GetLevel() <= zerolog.DebugLevel

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt)
	defer stop()

	if err := run(ctx, settings, &logger, rep); err != nil {
		rep.failure(err)
		stop()
		os.Exit(1)
	}
}

func loadSettings(flags *pflag.FlagSet) (*Settings, error) {
	file, err := flags.GetString("config")
	if err != nil {
		return nil, err
	}
	settings, err := config.Load[Settings](
		config.WithEnvPrefix(envPrefix),
		config.WithFile(file),
		config.WithFlags(flags),
	)
	if err != nil {
		return nil, err
	}
	if err := settings.Validate(); err != nil {
		return nil, fmt.Errorf("invalid settings:\n\t%w", err)
	}
	return settings, nil
}

func newLogger(level string) zerolog.Logger {
	lvl, err := zerolog.ParseLevel(level)
	if err != nil {
		lvl = zerolog.InfoLevel
	}
	return zerolog.New(zerolog.ConsoleWriter{Out: os.Stderr, TimeFormat: time.DateTime}).
		Level(lvl).
		With().
		Timestamp().
		Logger()
}

func run(ctx context.Context, settings *Settings, logger *zerolog.Logger, rep *reporter) error {
	start := time.Now()
	universe := typesys.NewUniverse()

	input, err := loadInput(ctx, settings, universe, logger)
	if err != nil {
		return err
	}
	logger.Info().
		Int("declarations", len(input.Declarations)).
		Int("templates", len(input.Templates)).
		Int("roots", len(input.Roots)).
		Msg("declarations loaded")

	opts := option.Combine(
		koragraph.WithLogger(logger),
		koragraph.WithForkParallelism(settings.ForkParallelism),
	)
	if settings.Hints != "" {
		db, err := hints.LoadFile(settings.Hints)
		if err != nil {
			return err
		}
		logger.Debug().Int("records", db.Len()).Str("path", settings.Hints).Msg("hints loaded")
		opts = option.Combine(opts, koragraph.WithHints(db))
	}

	graph, err := koragraph.NewGraphBuilder(universe, opts).Build(ctx, input)
	if err != nil {
		return err
	}
	logger.Debug().Msgf("resolved graph:\n%s", graph.Describe())

	output := settings.absOutput()
	tgt, err := findTarget(output)
	if err != nil {
		return err
	}
	emitter := emit.New(
		emit.WithLogger(logger),
		emit.WithPackage(settings.Package, tgt.importPath),
		emit.WithGraphName(settings.GraphName),
		emit.WithAccessor(settings.Accessor),
		emit.WithRoots(input.Roots...),
	)

	if settings.DryRun {
		content, err := emitter.Emit(graph)
		if err != nil {
			return err
		}
		rep.success("%d components resolved in %s, %d bytes would be written to %s",
			len(graph.Components), time.Since(start).Round(time.Millisecond), len(content), tgt.path)
		return nil
	}

	if err := os.MkdirAll(filepath.Dir(tgt.path), 0o755); err != nil {
		return fmt.Errorf("failed to create the output directory:\n\t%w", err)
	}
	if err := emitter.WriteFile(tgt.path, graph); err != nil {
		return err
	}
	rep.success("%d components resolved in %s, written to %s",
		len(graph.Components), time.Since(start).Round(time.Millisecond), tgt.path)
	return nil
}

func loadInput(ctx context.Context, settings *Settings, universe *typesys.Universe, logger *zerolog.Logger) (koragraph.Input, error) {
	if settings.Spec == "" {
		scanner := gosource.NewScanner(universe, gosource.WithLogger(logger), gosource.WithDir(settings.Dir))
		return scanner.Scan(ctx, settings.Scan...)
	}

	path := settings.Spec
	if !filepath.IsAbs(path) {
		path = filepath.Join(settings.Dir, path)
	}
	doc, err := yamlspec.LoadFile(path)
	if err != nil {
		return koragraph.Input{}, err
	}
	compiled, err := doc.Compile(universe)
	if err != nil {
		return koragraph.Input{}, fmt.Errorf("invalid document %s:\n\t%w", path, err)
	}
	return compiled.Input, nil
}
