package cache

import (
	"context"
	"time"
)

// Entry is a typed handle on one store key.
type Entry[T any] struct {
	store *Store
	key   string
}

// Register adds key to the store with the given TTL and returns a typed handle.
// Registering an existing key updates its TTL and keeps the stored result.
func Register[T any](s *Store, key string, ttl time.Duration) *Entry[T] {
	s.register(key, ttl)
	return &Entry[T]{store: s, key: key}
}

// Key returns the store key.
func (e *Entry[T]) Key() string {
	return e.key
}

// GetOrCompute returns the fresh cached value, or runs compute and stores its
// result. On error the previous value is kept and the error is returned.
// Concurrent misses share a single compute call. A caller whose ctx ends
// stops waiting with ctx.Err(); the shared compute carries on for the others.
func (e *Entry[T]) GetOrCompute(ctx context.Context, compute func(context.Context) (T, error)) (T, error) {
	v, err := e.store.getOrCompute(ctx, e.key, func(ctx context.Context) (any, error) {
		return compute(ctx)
	})
	if err != nil {
		var zero T
		return zero, err
	}
	return v.(T), nil
}

// Clear resets the entry.
func (e *Entry[T]) Clear() {
	e.store.Clear(e.key)
}

// Age returns the time since the last successful compute.
func (e *Entry[T]) Age() (time.Duration, bool) {
	return e.store.Age(e.key)
}
