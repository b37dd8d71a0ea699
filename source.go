package cachefall

import "context"

// Source is the authoritative backing data provider at the end of the chain.
//
// Read returns the values it found for the queried ids. Ids without a value
// are simply absent from the returned map, never an error. Read is only
// called once a query has passed every stage.
type Source[K comparable, V any] interface {
	Read(ctx context.Context, query *Query[K, V]) (map[K]V, error)
}

// SourceFunc adapts a function to the Source interface.
type SourceFunc[K comparable, V any] func(ctx context.Context, query *Query[K, V]) (map[K]V, error)

func (f SourceFunc[K, V]) Read(ctx context.Context, query *Query[K, V]) (map[K]V, error) {
	return f(ctx, query)
}
