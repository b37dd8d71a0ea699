package cachefall

import (
	"context"
	"fmt"
	"sync"

	"go.uber.org/multierr"
	"golang.org/x/sync/errgroup"
)

// Pipeline routes batched lookups through an ordered chain of stages toward
// an authoritative source. Each stage satisfies what it can, the rest travels
// deeper, and resolved values travel back out so every stage on the way gets
// a chance to cache them.
//
// A Pipeline is immutable after construction and safe for any number of
// concurrent Get calls; each call owns its own state.
type Pipeline[K comparable, V any] struct {
	source Source[K, V]
	stages []Stage[K, V]

	cfg config
}

// New creates a Pipeline over source with the given stage chain, ordered
// from the caller inward. An empty chain is valid; every query then goes
// straight to the source.
func New[K comparable, V any](source Source[K, V], stages []Stage[K, V], opts ...Option) *Pipeline[K, V] {
	cfg := config{
		log: NullLogger(),
	}
	for _, opt := range opts {
		opt(&cfg)
	}

	return &Pipeline[K, V]{
		source: source,
		stages: stages,
		cfg:    cfg,
	}
}

// Get resolves ids through the stage chain and returns the merged id to
// value mapping. Ids nobody could resolve are absent from the result.
//
// Cancelling ctx does not fail the call: branches cut off by the
// cancellation end silently and Get returns whatever was resolved before.
// Any other fault fails the call with an *Error that still carries the
// partial results and every collected cause.
func (p *Pipeline[K, V]) Get(ctx context.Context, ids ...K) (map[K]V, error) {
	inv := newInvocation[K, V](ctx)
	pos := position[K, V]{depth: 0, inv: inv}

	p.cfg.log.Debug("get", "token", inv.token, "ids", len(ids), "stages", len(p.stages))

	query := NewQuery[K, V](inv.token, ids)
	if err := p.dispatch(ctx, pos, query); err != nil {
		p.cfg.log.Error("get failed", "token", inv.token, "error", err)
		return nil, &Error[K, V]{Partial: inv.snapshot(), cause: err}
	}

	p.observe(NewSignal[K, V](inv.token, SignalPipelineComplete))
	return inv.snapshot(), nil
}

// dispatch routes one request at its current position: to the source at the
// boundary, nowhere once fully exited, and to the stage at pos.depth
// otherwise.
func (p *Pipeline[K, V]) dispatch(ctx context.Context, pos position[K, V], req Request[K, V]) error {
	n := len(p.stages)
	switch {
	case pos.depth < -1 || pos.depth > n:
		return fmt.Errorf("%w: depth %d with %d stage(s)", ErrRouting, pos.depth, n)
	case pos.depth == -1:
		return nil
	case pos.depth == n:
		return p.readSource(ctx, pos, req)
	}

	p.cfg.log.Debug("dispatch", "token", req.Token(), "depth", pos.depth, "request", req.name())
	return p.dispatchBatch(ctx, pos, p.stages[pos.depth].Process(ctx, req))
}

// readSource hands a query to the source and sends the answer back through
// the chain as a DataSet.
func (p *Pipeline[K, V]) readSource(ctx context.Context, pos position[K, V], req Request[K, V]) error {
	query, ok := req.(*Query[K, V])
	if !ok {
		return fmt.Errorf("%w: %s reached the source boundary", ErrRouting, req.name())
	}

	values, err := p.source.Read(ctx, query)
	if err != nil {
		if pos.inv.graceful(err) {
			return nil
		}
		return fmt.Errorf("source read: %w", err)
	}
	p.observe(NewSignal[K, V](query.Token(), SignalSourceRead))

	ds := NewDataSet[K, V](query.Token(), values)
	next, err := pos.handle(ds)
	if err != nil {
		return err
	}
	return p.dispatch(ctx, next, ds)
}

// dispatchBatch materializes an emission and dispatches its requests
// concurrently. It returns only once every branch has finished, and it
// collects every fault instead of short-circuiting, so sibling branches
// still contribute their results.
func (p *Pipeline[K, V]) dispatchBatch(ctx context.Context, pos position[K, V], em Emission[K, V]) error {
	reqs, enumErr := drain(em)
	if enumErr != nil && pos.inv.graceful(enumErr) {
		enumErr = nil
	}

	var g errgroup.Group
	if p.cfg.maxConcurrency > 0 {
		g.SetLimit(p.cfg.maxConcurrency)
	}

	var mu sync.Mutex
	errs := enumErr
	for _, req := range reqs {
		req := req
		g.Go(func() error {
			if err := p.dispatchOne(ctx, pos, req); err != nil {
				mu.Lock()
				errs = multierr.Append(errs, err)
				mu.Unlock()
			}
			// Faults are collected above; never cancel siblings.
			return nil
		})
	}
	_ = g.Wait()

	return errs
}

// dispatchOne processes a single emitted request. An Async is awaited and
// its resolved batch dispatched at the same depth; the Async value itself
// never transitions the position. Everything else transitions the position
// and is dispatched at the new depth.
func (p *Pipeline[K, V]) dispatchOne(ctx context.Context, pos position[K, V], req Request[K, V]) error {
	if async, ok := req.(*Async[K, V]); ok {
		batch, err := async.Await(ctx)
		if err != nil {
			if pos.inv.graceful(err) {
				return nil
			}
			return fmt.Errorf("await batch: %w", err)
		}
		return p.dispatchBatch(ctx, pos, Emit(batch...))
	}

	next, err := pos.handle(req)
	if err != nil {
		return err
	}
	return p.dispatch(ctx, next, req)
}

// observe delivers a lifecycle signal to every stage that cares.
func (p *Pipeline[K, V]) observe(sig *Signal[K, V]) {
	for _, stage := range p.stages {
		if obs, ok := stage.(SignalObserver[K, V]); ok {
			obs.Observe(sig)
		}
	}
}
