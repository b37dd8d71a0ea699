package cachefall

import (
	"context"
	"errors"
	"fmt"
	"sync"

	"golang.org/x/exp/maps"
)

// invocation is the state shared by every branch of one Get call: the token,
// the cancellation signal and the result accumulator. The result map is the
// only thing concurrent branches mutate; it is guarded by a mutex and merges
// are last writer wins, by completion order, for conflicting ids.
type invocation[K comparable, V any] struct {
	token Token
	ctx   context.Context

	mu      sync.Mutex
	results map[K]V
}

func newInvocation[K comparable, V any](ctx context.Context) *invocation[K, V] {
	return &invocation[K, V]{
		token:   newToken(),
		ctx:     ctx,
		results: map[K]V{},
	}
}

func (iv *invocation[K, V]) merge(values map[K]V) {
	iv.mu.Lock()
	defer iv.mu.Unlock()
	for id, v := range values {
		iv.results[id] = v
	}
}

func (iv *invocation[K, V]) snapshot() map[K]V {
	iv.mu.Lock()
	defer iv.mu.Unlock()
	return maps.Clone(iv.results)
}

// graceful reports whether err is this invocation's own cancellation
// surfacing through a stage, the source or an awaited batch. Such a branch
// ends silently. A context error while this invocation is still live comes
// from an unrelated signal and is escalated.
func (iv *invocation[K, V]) graceful(err error) bool {
	if iv.ctx.Err() == nil {
		return false
	}
	return errors.Is(err, context.Canceled) || errors.Is(err, context.DeadlineExceeded)
}

// position tracks where a request currently sits in the chain. Depths 0..N-1
// index the stages, N is the source boundary, -1 is fully exited. A position
// is a value; only the invocation behind it is shared.
type position[K comparable, V any] struct {
	depth int
	inv   *invocation[K, V]
}

// handle computes the position after req. A Query travels deeper, a Retry or
// DataSet travels shallower. A DataSet's payload is merged into the
// invocation's results before the depth changes, unconditionally, so the data
// is kept even if a stage later stops the propagation. Async and Signal are
// not valid input here.
func (p position[K, V]) handle(req Request[K, V]) (position[K, V], error) {
	switch r := req.(type) {
	case *Query[K, V]:
		return position[K, V]{depth: p.depth + 1, inv: p.inv}, nil
	case *Retry[K, V]:
		return position[K, V]{depth: p.depth - 1, inv: p.inv}, nil
	case *DataSet[K, V]:
		p.inv.merge(r.values)
		return position[K, V]{depth: p.depth - 1, inv: p.inv}, nil
	default:
		return p, fmt.Errorf("%w: %s is not valid transition input", ErrRouting, req.name())
	}
}
