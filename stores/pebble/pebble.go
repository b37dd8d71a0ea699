// Package pebble provides a persistent cache stage backed by a Pebble
// database. Keys and values are serialized with the SerDes given at Open.
package pebble

import (
	"context"
	"errors"
	"fmt"

	"github.com/cachefall/cachefall"
	"github.com/cockroachdb/pebble"
)

type Stage[K comparable, V any] struct {
	db       *pebble.DB
	keySerde cachefall.SerDe[K]
	valSerde cachefall.SerDe[V]
}

var _ cachefall.Stage[string, string] = (*Stage[string, string])(nil)

// Open opens or creates the database at path.
func Open[K comparable, V any](path string, keySerde cachefall.SerDe[K], valSerde cachefall.SerDe[V]) (*Stage[K, V], error) {
	db, err := pebble.Open(path, &pebble.Options{})
	if err != nil {
		return nil, fmt.Errorf("pebble open: %w", err)
	}

	return &Stage[K, V]{
		db:       db,
		keySerde: keySerde,
		valSerde: valSerde,
	}, nil
}

func (s *Stage[K, V]) Process(ctx context.Context, req cachefall.Request[K, V]) cachefall.Emission[K, V] {
	switch r := req.(type) {
	case *cachefall.Query[K, V]:
		hits, misses, err := s.lookup(r.IDs())
		if err != nil {
			return cachefall.EmitError[K, V](err)
		}
		var out []cachefall.Request[K, V]
		if len(hits) > 0 {
			out = append(out, cachefall.NewDataSet[K, V](r.Token(), hits))
		}
		if len(misses) > 0 {
			out = append(out, cachefall.NewQuery[K, V](r.Token(), misses))
		}
		return cachefall.Emit(out...)

	case *cachefall.Retry[K, V]:
		hits, _, err := s.lookup(r.IDs())
		if err != nil {
			return cachefall.EmitError[K, V](err)
		}
		if len(hits) == 0 {
			return cachefall.None[K, V]()
		}
		return cachefall.Emit[K, V](cachefall.NewDataSet[K, V](r.Token(), hits))

	case *cachefall.DataSet[K, V]:
		if err := s.store(r.Values()); err != nil {
			return cachefall.EmitError[K, V](err)
		}
		return cachefall.Emit[K, V](r)

	default:
		return cachefall.EmitError[K, V](fmt.Errorf("pebble: unexpected request %T", req))
	}
}

func (s *Stage[K, V]) lookup(ids []K) (map[K]V, []K, error) {
	hits := map[K]V{}
	var misses []K

	for _, id := range ids {
		v, err := s.get(id)
		if err != nil {
			if errors.Is(err, cachefall.ErrNotFound) {
				misses = append(misses, id)
				continue
			}
			return nil, nil, err
		}
		hits[id] = v
	}
	return hits, misses, nil
}

func (s *Stage[K, V]) get(id K) (V, error) {
	var zero V

	key, err := s.keySerde.Serializer(id)
	if err != nil {
		return zero, fmt.Errorf("encode key: %w", err)
	}

	data, closer, err := s.db.Get(key)
	if err != nil {
		if errors.Is(err, pebble.ErrNotFound) {
			return zero, cachefall.ErrNotFound
		}
		return zero, fmt.Errorf("pebble get: %w", err)
	}
	defer closer.Close()

	// Copy before the closer invalidates the slice.
	buf := make([]byte, len(data))
	copy(buf, data)

	return s.valSerde.Deserializer(buf)
}

func (s *Stage[K, V]) store(values map[K]V) error {
	batch := s.db.NewBatch()
	defer batch.Close()

	for id, v := range values {
		key, err := s.keySerde.Serializer(id)
		if err != nil {
			return fmt.Errorf("encode key: %w", err)
		}
		val, err := s.valSerde.Serializer(v)
		if err != nil {
			return fmt.Errorf("encode value: %w", err)
		}
		if err := batch.Set(key, val, nil); err != nil {
			return fmt.Errorf("pebble batch set: %w", err)
		}
	}

	return batch.Commit(&pebble.WriteOptions{Sync: false})
}

func (s *Stage[K, V]) Flush() error {
	return s.db.Flush()
}

func (s *Stage[K, V]) Close() error {
	if err := s.db.Flush(); err != nil {
		return err
	}
	return s.db.Close()
}
