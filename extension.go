package koragraph

import (
	"context"

	"github.com/a-peyrard/koragraph/typesys"
)

type (
	// Extension synthesizes declarations for types no frontend declared. It must answer the same
	// way for the same type and tags during one run, and must be safe for concurrent use when
	// forks run in parallel.
	Extension interface {
		TryResolve(ctx context.Context, required typesys.Type, tags Tags) (Declaration, bool, error)
	}

	// ExtensionFunc adapts a function to the Extension interface.
	ExtensionFunc func(ctx context.Context, required typesys.Type, tags Tags) (Declaration, bool, error)

	// HintSource suggests likely causes of an unresolved claim.
	HintSource interface {
		Hints(t typesys.Type, tags []string) []string
	}
)

func (f ExtensionFunc) TryResolve(ctx context.Context, required typesys.Type, tags Tags) (Declaration, bool, error) {
	return f(ctx, required, tags)
}
