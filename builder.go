package koragraph

import (
	"context"
	"fmt"
	"slices"

	"github.com/google/uuid"
	"github.com/rs/zerolog"

	"github.com/a-peyrard/koragraph/option"
	"github.com/a-peyrard/koragraph/typesys"
)

type (
	// Input is what a frontend hands to the GraphBuilder.
	Input struct {
		// Declarations are the source declarations, templates found here are moved with the
		// templates.
		Declarations []Declaration
		Templates    []Declaration
		// Roots must always be resolved, in this order. A root missing from Declarations is
		// added to them.
		Roots []Declaration
	}

	// GraphBuilder resolves inputs into graphs. It holds no state between runs and can be used
	// concurrently.
	GraphBuilder struct {
		universe *typesys.Universe
		options  *BuilderOptions
	}

	BuilderOptions struct {
		logger          *zerolog.Logger
		extensions      []Extension
		hints           HintSource
		unwrapper       Unwrapper
		forkParallelism int
	}
)

func WithLogger(logger *zerolog.Logger) option.Option[BuilderOptions] {
	return func(opts *BuilderOptions) {
		opts.logger = logger
	}
}

// WithExtensions registers extensions, they are asked in registration order.
func WithExtensions(extensions ...Extension) option.Option[BuilderOptions] {
	return func(opts *BuilderOptions) {
		opts.extensions = append(opts.extensions, extensions...)
	}
}

func WithHints(hints HintSource) option.Option[BuilderOptions] {
	return func(opts *BuilderOptions) {
		opts.hints = hints
	}
}

func WithUnwrapper(unwrapper Unwrapper) option.Option[BuilderOptions] {
	return func(opts *BuilderOptions) {
		opts.unwrapper = unwrapper
	}
}

// WithForkParallelism sets how many forks are evaluated at the same time when several templates
// match a claim. Forks are evaluated sequentially by default.
func WithForkParallelism(n int) option.Option[BuilderOptions] {
	return func(opts *BuilderOptions) {
		opts.forkParallelism = n
	}
}

func NewGraphBuilder(universe *typesys.Universe, opts ...option.Option[BuilderOptions]) *GraphBuilder {
	nop := zerolog.Nop()
	options := option.Build(
		&BuilderOptions{
			logger:          &nop,
			forkParallelism: 1,
		},
		opts...,
	)
	if options.unwrapper == nil {
		options.unwrapper = NewWrappedUnwrapper(universe)
	}
	if options.forkParallelism < 1 {
		options.forkParallelism = 1
	}

	return &GraphBuilder{
		universe: universe,
		options:  options,
	}
}

// Build resolves the input. Either every root and everything it requires is resolved, or an
// error describing the first failure is returned and no graph is produced.
func (b *GraphBuilder) Build(ctx context.Context, input Input) (*Graph, error) {
	if len(input.Roots) == 0 {
		return nil, &ConfigurationError{Reason: "the root set is empty, nothing to resolve"}
	}
	for _, root := range input.Roots {
		if root == nil {
			return nil, &ConfigurationError{Reason: "the root set contains a nil declaration"}
		}
		if root.IsTemplate() {
			return nil, &ConfigurationError{
				Reason: fmt.Sprintf("root %s is a template, only concrete declarations can be roots", describe(root)),
			}
		}
	}

	logger := b.options.logger.With().Str("run", uuid.NewString()).Logger()
	r := &run{
		builder: b,
		state:   newState(input),
		logger:  logger,
	}
	logger.Debug().
		Int("declarations", len(r.state.declarations)).
		Int("templates", len(r.state.templates)).
		Int("roots", len(r.state.roots)).
		Msg("starting resolution")

	if err := r.loop(ctx); err != nil {
		return nil, err
	}
	if err := r.state.checkPendingProxies(); err != nil {
		return nil, err
	}

	r.associateInterceptors()
	graph := r.state.graph()
	logger.Debug().Int("components", len(graph.Components)).Msg("resolution done")

	return graph, nil
}

func newState(input Input) *state {
	s := &state{
		byDeclaration:  make(map[Declaration]int),
		proxies:        make(map[string]int),
		pendingProxies: make(map[Declaration][]int),
		asked:          make(map[string]struct{}),
	}
	known := make(map[Declaration]struct{})
	add := func(d Declaration) {
		if _, found := known[d]; found || d == nil {
			return
		}
		known[d] = struct{}{}
		if d.IsTemplate() {
			s.templates = append(s.templates, d)
		} else {
			s.declarations = append(s.declarations, d)
		}
	}
	for _, d := range input.Declarations {
		add(d)
	}
	for _, d := range input.Templates {
		add(d)
	}
	for _, d := range input.Roots {
		add(d)
	}
	s.roots = slices.Clone(input.Roots)

	// roots are processed in order, the first one must be on top of the stack
	for i := len(s.roots) - 1; i >= 0; i-- {
		s.push(rootFrame{index: i})
	}

	return s
}
