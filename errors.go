package cachefall

import (
	"errors"
	"fmt"

	"go.uber.org/multierr"
)

var (
	// ErrRouting indicates a request left the valid depth range. It marks
	// a defect in routing logic, not a data condition, and always fails
	// the call.
	ErrRouting = errors.New("cachefall: request routed out of bounds")

	// ErrNotFound is returned by store backends for an absent key.
	ErrNotFound = errors.New("cachefall: key not found")
)

// Error is the terminal failure of a Get call. It carries every fault
// collected across the dispatch tree and the results that were resolved
// before the failure. Partial work is never lost to a failing branch.
type Error[K comparable, V any] struct {
	// Partial holds the id to value mapping accumulated up to the failure.
	Partial map[K]V

	cause error
}

func (e *Error[K, V]) Error() string {
	return fmt.Sprintf("pipeline failed with %d value(s) resolved: %v", len(e.Partial), e.cause)
}

func (e *Error[K, V]) Unwrap() error {
	return e.cause
}

// Causes returns the flattened individual faults.
func (e *Error[K, V]) Causes() []error {
	return multierr.Errors(e.cause)
}
