package cachefall

import "context"

// Stage is one layer of the chain, typically a cache, interposed between the
// caller and the source.
//
// Process receives exactly one of Query, Retry or DataSet and answers with an
// emission of follow-up requests:
//
//   - Query: resolve what it can from its own store. Emit a DataSet for the
//     resolved ids, a Query for the remainder, both, or nothing at all (which
//     forwards nothing; re-emit the original Query to forward everything).
//   - Retry: same resolution attempt, but unresolved leftovers are dropped.
//     A stage must never answer a Retry with another Retry.
//   - DataSet: persist the payload, then re-emit the DataSet unchanged to let
//     shallower stages cache it too, or emit nothing to stop propagation.
//
// Long-running work must watch ctx; the stage is not required to suppress
// cancellation errors, the engine sorts those out.
//
// A single stage instance may be invoked concurrently for independent
// requests; its internal storage is its own concern.
type Stage[K comparable, V any] interface {
	Process(ctx context.Context, req Request[K, V]) Emission[K, V]
}

// StageFunc adapts a function to the Stage interface.
type StageFunc[K comparable, V any] func(ctx context.Context, req Request[K, V]) Emission[K, V]

func (f StageFunc[K, V]) Process(ctx context.Context, req Request[K, V]) Emission[K, V] {
	return f(ctx, req)
}

// SignalObserver is an optional extension of Stage. Stages implementing it
// receive lifecycle signals, best effort. Observe must not block; it is
// called inline from the dispatch path.
type SignalObserver[K comparable, V any] interface {
	Observe(sig *Signal[K, V])
}
