package query

import (
	"context"

	"github.com/huykn/teamup-client/cache"
)

// State is what a hook instance exposes to its caller.
type State[T any] struct {
	Status  cache.Status
	Data    T
	HasData bool
	Err     error
	Stale   bool
}

// IsIdle reports that nothing has been requested.
func (s State[T]) IsIdle() bool { return s.Status == cache.StatusIdle }

// IsLoading reports a request in flight.
func (s State[T]) IsLoading() bool { return s.Status == cache.StatusLoading }

// IsSuccess reports a loaded result.
func (s State[T]) IsSuccess() bool { return s.Status == cache.StatusSuccess }

// IsError reports a failed request.
func (s State[T]) IsError() bool { return s.Status == cache.StatusError }

// Query is one hook instance: a cache key, the request that fills it and
// the options it was built with. Instances with equal keys share data.
type Query[T any] struct {
	f       *Factory
	key     cache.Key
	opts    Options
	enabled bool
	fetch   func(ctx context.Context) (T, error)
}

func newQuery[T any](f *Factory, key cache.Key, opts Options, enabled bool, fetch func(ctx context.Context) (T, error)) *Query[T] {
	return &Query[T]{
		f:       f,
		key:     key,
		opts:    opts,
		enabled: enabled && opts.enabled(),
		fetch:   fetch,
	}
}

// Key returns the cache key of this instance.
func (q *Query[T]) Key() cache.Key { return q.key }

// Enabled reports whether the instance may issue requests.
func (q *Query[T]) Enabled() bool { return q.enabled }

// Fetch returns the cached value when fresh, otherwise loads it. A disabled
// instance returns the zero value and nil without touching the network.
func (q *Query[T]) Fetch(ctx context.Context) (T, error) {
	var zero T
	if !q.enabled {
		return zero, nil
	}

	v, err := q.f.cache.Fetch(ctx, q.key, func(ctx context.Context) (any, error) {
		t, err := q.fetch(ctx)
		if err != nil {
			return nil, err
		}
		return t, nil
	}, q.opts.cacheOptions())
	if err != nil {
		return zero, err
	}
	t, _ := v.(T)
	return t, nil
}

// Refetch reloads the value regardless of freshness.
func (q *Query[T]) Refetch(ctx context.Context) (T, error) {
	if !q.enabled {
		var zero T
		return zero, nil
	}
	if err := q.f.cache.InvalidateExact(ctx, q.key); err != nil {
		var zero T
		return zero, err
	}
	return q.Fetch(ctx)
}

// State returns the current state of the shared cache entry.
func (q *Query[T]) State() State[T] {
	if !q.enabled {
		return State[T]{Status: cache.StatusIdle}
	}
	e, ok := q.f.cache.Peek(q.key)
	if !ok {
		return State[T]{Status: cache.StatusIdle}
	}
	return stateFromEntry[T](e)
}

// Observe subscribes fn to state changes and keeps the entry refreshed
// after invalidation, like a mounted component. The returned function
// unsubscribes. Observing a disabled instance does nothing.
func (q *Query[T]) Observe(fn func(State[T])) func() {
	if !q.enabled {
		return func() {}
	}
	return q.f.cache.Subscribe(q.key, cache.Observer{
		OnChange: func(e cache.Entry) {
			if fn != nil {
				fn(stateFromEntry[T](e))
			}
		},
		Refetch: func(ctx context.Context) error {
			_, err := q.Fetch(ctx)
			return err
		},
	})
}

func stateFromEntry[T any](e cache.Entry) State[T] {
	s := State[T]{
		Status:  e.Status,
		HasData: e.HasData,
		Err:     e.Err,
		Stale:   e.Stale,
	}
	if e.HasData {
		s.Data, _ = e.Data.(T)
	}
	return s
}
