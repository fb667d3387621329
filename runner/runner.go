// Package runner runs independent units of work with a bounded level of parallelism.
package runner

import (
	"context"

	"golang.org/x/sync/errgroup"
)

// Runnable represents a unit of work that can be run with a context.
type Runnable interface {
	Run(ctx context.Context) error
}

// RunnableFunc adapts a function to the Runnable interface.
type RunnableFunc func(ctx context.Context) error

func (f RunnableFunc) Run(ctx context.Context) error {
	return f(ctx)
}

// RunAll runs all the provided runnables and waits for all of them to finish.
//
// At most limit runnables run at the same time, a limit lower than one means no limit. With a
// limit of one the runnables are run sequentially, in order. The first error cancels the context
// given to the others and is returned.
func RunAll(parentCtx context.Context, limit int, runnables ...Runnable) error {
	group, ctx := errgroup.WithContext(parentCtx)
	if limit > 0 {
		group.SetLimit(limit)
	}

	for _, runnable := range runnables {
		group.Go(func() error {
			if err := ctx.Err(); err != nil {
				return err
			}
			return runnable.Run(ctx)
		})
	}

	return group.Wait()
}
