package cachefall

import (
	"context"

	"github.com/google/uuid"
	"golang.org/x/exp/maps"
	"golang.org/x/exp/slices"
)

// Token ties a request to the Get invocation that owns it. Stages must mint
// sibling requests with the token of the request they were handed, so the new
// requests stay bound to the same invocation, its cancellation and its result
// accumulation.
type Token struct {
	id uuid.UUID
}

func newToken() Token {
	return Token{id: uuid.New()}
}

func (t Token) String() string {
	return t.id.String()
}

// Request is the message protocol of the pipeline. It is a closed set:
// Query, Retry, DataSet, Async and Signal. Stages only ever receive Query,
// Retry and DataSet; Async and Signal are handled by the engine itself.
//
// Requests are immutable after construction. Constructors copy the id slices
// and value maps they are given.
type Request[K comparable, V any] interface {
	Token() Token

	// name identifies the variant for logs and errors, and seals the
	// interface against outside implementations.
	name() string
}

// Query asks the deeper part of the chain to resolve a set of ids.
type Query[K comparable, V any] struct {
	token Token
	ids   []K
}

func NewQuery[K comparable, V any](token Token, ids []K) *Query[K, V] {
	return &Query[K, V]{token: token, ids: slices.Clone(ids)}
}

func (q *Query[K, V]) Token() Token { return q.token }

// IDs returns a copy of the queried ids, in insertion order. Duplicates are
// the caller's error and are not detected here.
func (q *Query[K, V]) IDs() []K { return slices.Clone(q.ids) }

func (q *Query[K, V]) name() string { return "query" }

// Retry travels back toward the caller and gives each shallower stage one
// more chance to resolve the carried ids. A stage that cannot resolve an id
// from a Retry must drop it; it must never answer a Retry with another Retry.
type Retry[K comparable, V any] struct {
	token Token
	ids   []K
}

func NewRetry[K comparable, V any](token Token, ids []K) *Retry[K, V] {
	return &Retry[K, V]{token: token, ids: slices.Clone(ids)}
}

func (r *Retry[K, V]) Token() Token { return r.token }

// IDs returns a copy of the ids still unresolved, in insertion order.
func (r *Retry[K, V]) IDs() []K { return slices.Clone(r.ids) }

func (r *Retry[K, V]) name() string { return "retry" }

// DataSet carries resolved values back toward the caller. Each stage it
// passes may cache the payload; the engine merges it into the invocation's
// result map before the DataSet travels further, so the data is kept even if
// a stage stops its propagation.
type DataSet[K comparable, V any] struct {
	token  Token
	values map[K]V
}

func NewDataSet[K comparable, V any](token Token, values map[K]V) *DataSet[K, V] {
	return &DataSet[K, V]{token: token, values: maps.Clone(values)}
}

func (d *DataSet[K, V]) Token() Token { return d.token }

// Values returns a copy of the resolved id to value mapping.
func (d *DataSet[K, V]) Values() map[K]V { return maps.Clone(d.values) }

func (d *DataSet[K, V]) name() string { return "dataset" }

// Async wraps a pending computation that yields a batch of further requests.
// The engine awaits it and dispatches the resolved batch at the depth the
// Async was emitted at; the Async value itself is never handed to a stage.
type Async[K comparable, V any] struct {
	token Token
	wait  func(context.Context) ([]Request[K, V], error)
}

func NewAsync[K comparable, V any](token Token, wait func(context.Context) ([]Request[K, V], error)) *Async[K, V] {
	return &Async[K, V]{token: token, wait: wait}
}

func (a *Async[K, V]) Token() Token { return a.token }

// Await blocks until the wrapped computation finishes or ctx is done.
func (a *Async[K, V]) Await(ctx context.Context) ([]Request[K, V], error) {
	return a.wait(ctx)
}

func (a *Async[K, V]) name() string { return "async" }

// SignalKind names a lifecycle notification.
type SignalKind string

const (
	// SignalSourceRead is observed after every successful source read of
	// the invocation.
	SignalSourceRead SignalKind = "SOURCE_READ"
	// SignalPipelineComplete is observed once the invocation's whole
	// dispatch tree has finished without fault.
	SignalPipelineComplete SignalKind = "PIPELINE_COMPLETE"
)

// Signal is a purely informational lifecycle notification. It is delivered
// to stages implementing SignalObserver, best effort, and is never valid
// dispatch input.
type Signal[K comparable, V any] struct {
	token Token
	kind  SignalKind
}

func NewSignal[K comparable, V any](token Token, kind SignalKind) *Signal[K, V] {
	return &Signal[K, V]{token: token, kind: kind}
}

func (s *Signal[K, V]) Token() Token { return s.token }

func (s *Signal[K, V]) Kind() SignalKind { return s.kind }

func (s *Signal[K, V]) name() string { return "signal" }
