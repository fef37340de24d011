// Package cache provides the per-metric freshness store that gates
// recomputation of derived results.
//
// Each metric registers one entry. An entry holds at most one result plus
// the time it was computed; it is fresh while the elapsed time is below its
// TTL. Failed refreshes never touch the stored result.
package cache

import (
	"context"
	"sort"
	"sync"
	"time"

	"golang.org/x/sync/singleflight"
)

// Observer receives cache events. Implementations must be safe for concurrent use.
type Observer interface {
	Hit(key string)
	Miss(key string)
	ComputeFailed(key string)
}

type entry struct {
	data       any
	has        bool
	computedAt time.Time
	ttl        time.Duration
	// gen changes on every reset; a compute only lands on the generation it started from.
	gen uint64
}

// Status describes one entry for health reporting.
type Status struct {
	Key      string
	TTL      time.Duration
	Age      time.Duration
	Computed bool
	Fresh    bool
}

// Store is a process-wide set of cache entries keyed by metric name.
type Store struct {
	mu       sync.Mutex
	entries  map[string]*entry
	clock    Clock
	observer Observer
	group    singleflight.Group
}

// Option configures a Store.
type Option func(*Store)

// WithClock overrides the time source.
func WithClock(c Clock) Option {
	return func(s *Store) {
		if c != nil {
			s.clock = c
		}
	}
}

// WithObserver attaches an event observer.
func WithObserver(o Observer) Option {
	return func(s *Store) {
		s.observer = o
	}
}

// NewStore creates an empty store.
func NewStore(opts ...Option) *Store {
	s := &Store{
		entries: make(map[string]*entry),
		clock:   SystemClock{},
	}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

// Clock returns the store's time source.
func (s *Store) Clock() Clock {
	return s.clock
}

// Clear resets a single entry. Unknown keys are ignored. A compute already
// in flight for key still answers its waiters but no longer stores its result,
// and later callers start a new one.
func (s *Store) Clear(key string) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if e, ok := s.entries[key]; ok {
		e.reset()
		s.group.Forget(key)
	}
}

// ClearAll resets every entry.
func (s *Store) ClearAll() {
	s.mu.Lock()
	defer s.mu.Unlock()
	for key, e := range s.entries {
		e.reset()
		s.group.Forget(key)
	}
}

// Has reports whether key is registered.
func (s *Store) Has(key string) bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	_, ok := s.entries[key]
	return ok
}

// Age returns the time since the last successful compute for key. The
// boolean is false when the entry was never computed (or was cleared).
func (s *Store) Age(key string) (time.Duration, bool) {
	s.mu.Lock()
	defer s.mu.Unlock()
	e, ok := s.entries[key]
	if !ok || !e.has {
		return 0, false
	}
	return s.clock.Now().Sub(e.computedAt), true
}

// Status reports every entry, sorted by key.
func (s *Store) Status() []Status {
	s.mu.Lock()
	defer s.mu.Unlock()
	now := s.clock.Now()
	out := make([]Status, 0, len(s.entries))
	for key, e := range s.entries {
		st := Status{Key: key, TTL: e.ttl, Computed: e.has}
		if e.has {
			st.Age = now.Sub(e.computedAt)
			st.Fresh = e.fresh(now)
		}
		out = append(out, st)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].Key < out[j].Key })
	return out
}

func (s *Store) register(key string, ttl time.Duration) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if e, ok := s.entries[key]; ok {
		e.ttl = ttl
		return
	}
	s.entries[key] = &entry{ttl: ttl}
}

// lookup returns the stored value if the entry is fresh.
func (s *Store) lookup(key string) (any, bool) {
	s.mu.Lock()
	defer s.mu.Unlock()
	e, ok := s.entries[key]
	if !ok || !e.fresh(s.clock.Now()) {
		return nil, false
	}
	return e.data, true
}

func (s *Store) generation(key string) uint64 {
	s.mu.Lock()
	defer s.mu.Unlock()
	if e, ok := s.entries[key]; ok {
		return e.gen
	}
	return 0
}

// store saves data unless the entry was reset since gen was read.
func (s *Store) store(key string, gen uint64, data any) {
	s.mu.Lock()
	defer s.mu.Unlock()
	e, ok := s.entries[key]
	if !ok || e.gen != gen {
		return
	}
	e.data = data
	e.has = true
	e.computedAt = s.clock.Now()
}

func (s *Store) getOrCompute(ctx context.Context, key string, compute func(context.Context) (any, error)) (any, error) {
	if data, ok := s.lookup(key); ok {
		s.hit(key)
		return data, nil
	}
	s.miss(key)

	ch := s.group.DoChan(key, func() (any, error) {
		// Another caller may have refreshed the entry while we queued.
		if data, ok := s.lookup(key); ok {
			return data, nil
		}
		gen := s.generation(key)
		// The flight is shared by every waiter, so it runs detached from
		// the cancellation of whichever caller started it.
		data, err := compute(context.WithoutCancel(ctx))
		if err != nil {
			return nil, err
		}
		s.store(key, gen, data)
		return data, nil
	})

	select {
	case <-ctx.Done():
		return nil, ctx.Err()
	case res := <-ch:
		if res.Err != nil {
			s.failed(key)
			return nil, res.Err
		}
		return res.Val, nil
	}
}

func (s *Store) hit(key string) {
	if s.observer != nil {
		s.observer.Hit(key)
	}
}

func (s *Store) miss(key string) {
	if s.observer != nil {
		s.observer.Miss(key)
	}
}

func (s *Store) failed(key string) {
	if s.observer != nil {
		s.observer.ComputeFailed(key)
	}
}

func (e *entry) fresh(now time.Time) bool {
	return e.has && now.Sub(e.computedAt) < e.ttl
}

func (e *entry) reset() {
	e.gen++
	e.data = nil
	e.has = false
	e.computedAt = time.Time{}
}
