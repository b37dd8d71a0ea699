package cachefall

import (
	"context"
	"errors"
	"testing"

	"github.com/alecthomas/assert/v2"
)

func TestPosition_Handle(t *testing.T) {
	t.Run("query travels deeper", func(t *testing.T) {
		inv := newInvocation[string, string](context.Background())
		pos := position[string, string]{depth: 0, inv: inv}

		next, err := pos.handle(NewQuery[string, string](inv.token, []string{"a"}))
		assert.NoError(t, err)
		assert.Equal(t, 1, next.depth)
	})

	t.Run("retry travels shallower", func(t *testing.T) {
		inv := newInvocation[string, string](context.Background())
		pos := position[string, string]{depth: 1, inv: inv}

		next, err := pos.handle(NewRetry[string, string](inv.token, []string{"a"}))
		assert.NoError(t, err)
		assert.Equal(t, 0, next.depth)
	})

	t.Run("dataset travels shallower and merges first", func(t *testing.T) {
		inv := newInvocation[string, string](context.Background())
		pos := position[string, string]{depth: 0, inv: inv}

		next, err := pos.handle(NewDataSet[string, string](inv.token, map[string]string{"a": "1"}))
		assert.NoError(t, err)
		assert.Equal(t, -1, next.depth)

		// Merged even though the new depth is terminal.
		assert.Equal(t, map[string]string{"a": "1"}, inv.snapshot())
	})

	t.Run("async is not valid transition input", func(t *testing.T) {
		inv := newInvocation[string, string](context.Background())
		pos := position[string, string]{depth: 0, inv: inv}

		async := NewAsync[string, string](inv.token, func(context.Context) ([]Request[string, string], error) {
			return nil, nil
		})
		_, err := pos.handle(async)
		assert.IsError(t, err, ErrRouting)
	})

	t.Run("signal is not valid transition input", func(t *testing.T) {
		inv := newInvocation[string, string](context.Background())
		pos := position[string, string]{depth: 0, inv: inv}

		_, err := pos.handle(NewSignal[string, string](inv.token, SignalSourceRead))
		assert.IsError(t, err, ErrRouting)
	})
}

func TestInvocation_Merge(t *testing.T) {
	t.Run("last writer wins for conflicting ids", func(t *testing.T) {
		inv := newInvocation[string, int](context.Background())

		inv.merge(map[string]int{"a": 1, "b": 1})
		inv.merge(map[string]int{"a": 2})

		assert.Equal(t, map[string]int{"a": 2, "b": 1}, inv.snapshot())
	})

	t.Run("snapshot is a copy", func(t *testing.T) {
		inv := newInvocation[string, int](context.Background())
		inv.merge(map[string]int{"a": 1})

		snap := inv.snapshot()
		snap["a"] = 99

		assert.Equal(t, map[string]int{"a": 1}, inv.snapshot())
	})
}

func TestInvocation_Graceful(t *testing.T) {
	t.Run("own cancellation is graceful", func(t *testing.T) {
		ctx, cancel := context.WithCancel(context.Background())
		inv := newInvocation[string, string](ctx)

		cancel()
		assert.True(t, inv.graceful(context.Canceled))
		assert.True(t, inv.graceful(context.DeadlineExceeded))
	})

	t.Run("cancellation while the invocation is live is escalated", func(t *testing.T) {
		inv := newInvocation[string, string](context.Background())
		assert.False(t, inv.graceful(context.Canceled))
	})

	t.Run("ordinary errors are never graceful", func(t *testing.T) {
		ctx, cancel := context.WithCancel(context.Background())
		inv := newInvocation[string, string](ctx)

		cancel()
		assert.False(t, inv.graceful(errors.New("boom")))
	})
}
