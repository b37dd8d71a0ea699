// Package memory provides an in-memory, TTL-bound cache stage.
package memory

import (
	"context"
	"fmt"
	"time"

	"github.com/cachefall/cachefall"
	"github.com/karlseguin/ccache/v2"
	"github.com/samber/lo"
)

const (
	DefaultTTL     = time.Hour
	DefaultMaxSize = 10000
)

// Option is a function that configures a Stage
type Option func(*settings)

type settings struct {
	ttl     time.Duration
	maxSize int64
}

// WithTTL sets how long cached values stay fresh
var WithTTL = func(ttl time.Duration) Option {
	return func(s *settings) {
		s.ttl = ttl
	}
}

// WithMaxSize sets the cache capacity in entries
var WithMaxSize = func(n int64) Option {
	return func(s *settings) {
		s.maxSize = n
	}
}

// Stage caches values in process memory. Eviction is LRU via ccache, bounded
// by WithMaxSize; entries expire after WithTTL.
type Stage[K comparable, V any] struct {
	cache *ccache.Cache
	ttl   time.Duration
}

var _ cachefall.Stage[string, string] = (*Stage[string, string])(nil)

func New[K comparable, V any](opts ...Option) *Stage[K, V] {
	s := settings{
		ttl:     DefaultTTL,
		maxSize: DefaultMaxSize,
	}
	for _, opt := range opts {
		opt(&s)
	}

	return &Stage[K, V]{
		cache: ccache.New(ccache.Configure().MaxSize(s.maxSize)),
		ttl:   s.ttl,
	}
}

func (s *Stage[K, V]) Process(ctx context.Context, req cachefall.Request[K, V]) cachefall.Emission[K, V] {
	switch r := req.(type) {
	case *cachefall.Query[K, V]:
		hits, misses := s.lookup(r.IDs())
		var out []cachefall.Request[K, V]
		if len(hits) > 0 {
			out = append(out, cachefall.NewDataSet[K, V](r.Token(), hits))
		}
		if len(misses) > 0 {
			out = append(out, cachefall.NewQuery[K, V](r.Token(), misses))
		}
		return cachefall.Emit(out...)

	case *cachefall.Retry[K, V]:
		// Leftovers are dropped here; a retry is never answered with
		// another retry.
		hits, _ := s.lookup(r.IDs())
		if len(hits) == 0 {
			return cachefall.None[K, V]()
		}
		return cachefall.Emit[K, V](cachefall.NewDataSet[K, V](r.Token(), hits))

	case *cachefall.DataSet[K, V]:
		for id, v := range r.Values() {
			s.cache.Set(s.key(id), v, s.ttl)
		}
		// Pass it along unchanged so shallower stages cache it too.
		return cachefall.Emit[K, V](r)

	default:
		return cachefall.EmitError[K, V](fmt.Errorf("memory: unexpected request %T", req))
	}
}

func (s *Stage[K, V]) lookup(ids []K) (map[K]V, []K) {
	hits := map[K]V{}
	for _, id := range ids {
		item := s.cache.Get(s.key(id))
		if item == nil || item.Expired() {
			continue
		}
		hits[id] = item.Value().(V)
	}

	misses := lo.Filter(ids, func(id K, _ int) bool {
		_, ok := hits[id]
		return !ok
	})
	return hits, misses
}

// Contains reports whether id currently has a fresh cache entry.
func (s *Stage[K, V]) Contains(id K) bool {
	item := s.cache.Get(s.key(id))
	return item != nil && !item.Expired()
}

func (s *Stage[K, V]) key(id K) string {
	return fmt.Sprint(id)
}

// Close stops the cache's background worker.
func (s *Stage[K, V]) Close() {
	s.cache.Stop()
}
