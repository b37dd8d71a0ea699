package cachefall

// Emission is the lazily evaluated sequence of requests a stage produces for
// one Process call.
type Emission[K comparable, V any] interface {
	// Next advances the emission to the next request
	// Returns true if a request is available, false if the emission is done
	Next() bool

	// Request returns the current request
	// Only valid after Next() returns true
	Request() Request[K, V]

	// Err returns any error encountered while producing requests. Requests
	// already produced before the error remain valid and are dispatched.
	Err() error

	// Close releases resources associated with the emission
	Close() error
}

type sliceEmission[K comparable, V any] struct {
	reqs []Request[K, V]
	pos  int
	err  error
}

func (e *sliceEmission[K, V]) Next() bool {
	if e.pos >= len(e.reqs) {
		return false
	}
	e.pos++
	return true
}

func (e *sliceEmission[K, V]) Request() Request[K, V] {
	return e.reqs[e.pos-1]
}

func (e *sliceEmission[K, V]) Err() error { return e.err }

func (e *sliceEmission[K, V]) Close() error { return nil }

// Emit wraps already materialized requests into an Emission.
func Emit[K comparable, V any](reqs ...Request[K, V]) Emission[K, V] {
	return &sliceEmission[K, V]{reqs: reqs}
}

// EmitError returns an empty Emission that fails with err.
func EmitError[K comparable, V any](err error) Emission[K, V] {
	return &sliceEmission[K, V]{err: err}
}

// None is the empty Emission, for stages that swallow a request.
func None[K comparable, V any]() Emission[K, V] {
	return &sliceEmission[K, V]{}
}

// drain materializes an emission. A mid-enumeration failure is returned
// alongside the requests produced before it.
func drain[K comparable, V any](em Emission[K, V]) ([]Request[K, V], error) {
	if em == nil {
		return nil, nil
	}
	var reqs []Request[K, V]
	for em.Next() {
		reqs = append(reqs, em.Request())
	}
	err := em.Err()
	if cerr := em.Close(); err == nil {
		err = cerr
	}
	return reqs, err
}
