package koragraph

import (
	"context"
	"fmt"

	"github.com/a-peyrard/koragraph/runner"
)

type forkOutcome struct {
	state *state
	err   error
}

// fork resolves the whole remaining graph once per candidate, each fork on its own copy of the
// state. The state of the only successful fork is adopted.
func (r *run) fork(ctx context.Context, f componentFrame, claim Claim, candidates []Declaration) error {
	r.logger.Debug().Str("claim", claim.String()).Int("candidates", len(candidates)).Msg("several templates match, forking")

	outcomes := make([]forkOutcome, len(candidates))
	runnables := make([]runner.Runnable, len(candidates))
	for i, candidate := range candidates {
		child := &run{
			builder: r.builder,
			state:   r.state.clone(),
			logger:  r.logger.With().Int("fork", i).Logger(),
		}
		child.state.declarations = append(child.state.declarations, candidate)
		child.state.requeue(f)
		child.schedule(candidate)

		runnables[i] = runner.RunnableFunc(func(ctx context.Context) error {
			// a failed fork is an outcome, not an error of the group
			err := child.loop(ctx)
			// a nested fork may have replaced child.state
			outcomes[i] = forkOutcome{state: child.state, err: err}
			return nil
		})
	}

	if err := runner.RunAll(ctx, r.builder.options.forkParallelism, runnables...); err != nil {
		return fmt.Errorf("failed to run forks:\n\t%w", err)
	}
	if err := ctx.Err(); err != nil {
		return fmt.Errorf("resolution aborted:\n\t%w", err)
	}

	var (
		winners  []int
		failures []error
	)
	for i, outcome := range outcomes {
		if outcome.err == nil {
			winners = append(winners, i)
		} else {
			failures = append(failures, outcome.err)
		}
	}

	switch len(winners) {
	case 0:
		return &SuppressedError{Err: failures[0], Suppressed: failures[1:]}
	case 1:
		r.logger.Debug().Str("claim", claim.String()).Str("template", describe(candidates[winners[0]])).Msg("adopting the only successful fork")
		r.state = outcomes[winners[0]].state
		return nil
	default:
		return &AmbiguousTemplateError{
			Claim:      claim,
			Candidates: candidates,
			Chain:      r.state.chain(f),
		}
	}
}
