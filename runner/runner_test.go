package runner

import (
	"context"
	"errors"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// tracker records how many runnables run at the same time.
type tracker struct {
	running atomic.Int32
	peak    atomic.Int32
	done    atomic.Int32
}

func (tr *tracker) runnable(delay time.Duration, err error) Runnable {
	return RunnableFunc(func(ctx context.Context) error {
		current := tr.running.Add(1)
		defer tr.running.Add(-1)
		for {
			peak := tr.peak.Load()
			if current <= peak || tr.peak.CompareAndSwap(peak, current) {
				break
			}
		}

		select {
		case <-time.After(delay):
		case <-ctx.Done():
			return ctx.Err()
		}
		tr.done.Add(1)
		return err
	})
}

func TestRunAll(t *testing.T) {
	t.Run("it should run every runnable", func(t *testing.T) {
		// GIVEN
		tr := &tracker{}

		// WHEN
		err := RunAll(context.Background(), 0, tr.runnable(0, nil), tr.runnable(0, nil), tr.runnable(0, nil))

		// THEN
		require.NoError(t, err)
		assert.Equal(t, int32(3), tr.done.Load())
	})

	t.Run("it should accept an empty list", func(t *testing.T) {
		assert.NoError(t, RunAll(context.Background(), 1))
	})

	t.Run("it should run sequentially and in order with a limit of one", func(t *testing.T) {
		// GIVEN
		var (
			mu    sync.Mutex
			order []int
		)
		record := func(i int) Runnable {
			return RunnableFunc(func(context.Context) error {
				mu.Lock()
				defer mu.Unlock()
				order = append(order, i)
				return nil
			})
		}

		// WHEN
		err := RunAll(context.Background(), 1, record(0), record(1), record(2), record(3))

		// THEN
		require.NoError(t, err)
		assert.Equal(t, []int{0, 1, 2, 3}, order)
	})

	t.Run("it should never exceed the limit", func(t *testing.T) {
		// GIVEN
		tr := &tracker{}
		runnables := make([]Runnable, 6)
		for i := range runnables {
			runnables[i] = tr.runnable(10*time.Millisecond, nil)
		}

		// WHEN
		err := RunAll(context.Background(), 2, runnables...)

		// THEN
		require.NoError(t, err)
		assert.LessOrEqual(t, tr.peak.Load(), int32(2))
		assert.Equal(t, int32(6), tr.done.Load())
	})

	t.Run("it should return the first error and cancel the others", func(t *testing.T) {
		// GIVEN
		tr := &tracker{}
		failure := errors.New("fork failed")

		// WHEN
		err := RunAll(context.Background(), 0, tr.runnable(0, failure), tr.runnable(time.Second, nil))

		// THEN
		require.ErrorIs(t, err, failure)
		assert.Equal(t, int32(1), tr.done.Load())
	})

	t.Run("it should stop when the parent context is cancelled", func(t *testing.T) {
		// GIVEN
		tr := &tracker{}
		ctx, cancel := context.WithCancel(context.Background())
		go func() {
			time.Sleep(20 * time.Millisecond)
			cancel()
		}()

		// WHEN
		err := RunAll(ctx, 0, tr.runnable(time.Second, nil), tr.runnable(time.Second, nil))

		// THEN
		require.ErrorIs(t, err, context.Canceled)
		assert.Equal(t, int32(0), tr.done.Load())
	})
}
