package main

import (
	"fmt"
	"path/filepath"
	"strings"

	"github.com/rs/zerolog"
	"github.com/spf13/pflag"
)

const envPrefix = "KORAGRAPH"

type (
	// Settings are read from the optional config file, KORAGRAPH_* variables and the flags.
	Settings struct {
		// Spec is a YAML document describing the graph, Scan is used when it is empty.
		Spec string `mapstructure:"spec"`
		// Scan lists the package patterns searched for annotated declarations.
		Scan []string `mapstructure:"scan"`
		Dir  string   `mapstructure:"dir"`

		Output          string `mapstructure:"output"`
		Package         string `mapstructure:"package"`
		GraphName       string `mapstructure:"graphName"`
		Accessor        string `mapstructure:"accessor"`
		Hints           string `mapstructure:"hints"`
		ForkParallelism int    `mapstructure:"forkParallelism"`
		DryRun          bool   `mapstructure:"dryRun"`

		Log *LogSettings `mapstructure:"log"`
	}

	LogSettings struct {
		Level string `mapstructure:"level"`
	}
)

func (s *Settings) ApplyDefault() {
	if s.Dir == "" {
		s.Dir = "."
	}
	if s.Spec == "" && len(s.Scan) == 0 {
		s.Scan = []string{"./..."}
	}
	if s.Output == "" {
		s.Output = "graph_gen.go"
	}
	if s.Package == "" {
		s.Package = filepath.Base(filepath.Dir(s.absOutput()))
	}
	if s.GraphName == "" {
		s.GraphName = "Graph"
	}
	if s.Accessor == "" {
		s.Accessor = "Value"
	}
	if s.ForkParallelism < 1 {
		s.ForkParallelism = 1
	}
}

func (l *LogSettings) ApplyDefault() {
	if l.Level == "" {
		l.Level = zerolog.InfoLevel.String()
	}
}

// absOutput is the output path, relative paths are relative to Dir.
func (s *Settings) absOutput() string {
	path := s.Output
	if !filepath.IsAbs(path) {
		path = filepath.Join(s.Dir, path)
	}
	if abs, err := filepath.Abs(path); err == nil {
		return abs
	}
	return path
}

// Validate reports the settings which cannot be used together.
func (s *Settings) Validate() error {
	if s.Spec != "" && len(s.Scan) > 0 {
		return fmt.Errorf("spec and scan cannot be used together, the graph comes from one of them")
	}
	if !strings.HasSuffix(s.Output, ".go") {
		return fmt.Errorf("output %s must be a .go file", s.Output)
	}
	if _, err := zerolog.ParseLevel(s.Log.Level); err != nil {
		return fmt.Errorf("invalid log level %q:\n\t%w", s.Log.Level, err)
	}
	return nil
}

func newFlagSet() *pflag.FlagSet {
	flags := pflag.NewFlagSet("koragraph", pflag.ContinueOnError)
	flags.String("config", "", "configuration file, any format viper reads")
	flags.String("spec", "", "YAML document describing the graph")
	flags.StringSlice("scan", nil, "package patterns searched for annotated declarations")
	flags.String("dir", "", "directory the patterns and the output are relative to")
	flags.StringP("output", "o", "", "generated file")
	flags.String("package", "", "package of the generated file, the output directory name by default")
	flags.String("graph-name", "", "name of the generated graph struct")
	flags.String("accessor", "", "method giving the inner value of a wrapper")
	flags.String("hints", "", "file listing the hints shown for unresolved dependencies")
	flags.Int("fork-parallelism", 0, "number of forks evaluated at the same time")
	flags.Bool("dry-run", false, "resolve and report without writing the output")
	flags.String("log.level", "", "log level: trace, debug, info, warn or error")
	return flags
}
