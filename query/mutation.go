package query

import (
	"context"
	"errors"
	"net/http"
	"sync"

	"github.com/huykn/teamup-client/cache"
	"github.com/huykn/teamup-client/httpclient"
)

// ErrMissingID is returned by update and delete calls without a target id.
var ErrMissingID = errors.New("query: missing id")

// Mutation is a write hook instance. After a successful run it invalidates
// every key prefix returned by its invalidation function.
type Mutation[In, Out any] struct {
	f           *Factory
	run         func(ctx context.Context, in In) (Out, error)
	invalidates func(in In, out Out) []cache.Key

	mu    sync.Mutex
	state State[Out]
}

// NewMutation builds a mutation from a run function and the set of keys it
// makes stale. Mutations touching state cached under several unrelated
// keys must list all of them.
func NewMutation[In, Out any](f *Factory, run func(ctx context.Context, in In) (Out, error), invalidates func(in In, out Out) []cache.Key) *Mutation[In, Out] {
	return &Mutation[In, Out]{
		f:           f,
		run:         run,
		invalidates: invalidates,
		state:       State[Out]{Status: cache.StatusIdle},
	}
}

// Mutate runs the mutation. Errors are returned unchanged after the state
// records them; nothing is invalidated on failure.
func (m *Mutation[In, Out]) Mutate(ctx context.Context, in In) (Out, error) {
	m.mu.Lock()
	m.state = State[Out]{Status: cache.StatusLoading, Data: m.state.Data, HasData: m.state.HasData}
	m.mu.Unlock()

	out, err := m.run(ctx, in)
	if err != nil {
		m.mu.Lock()
		m.state = State[Out]{Status: cache.StatusError, Err: err}
		m.mu.Unlock()
		return out, err
	}

	if m.invalidates != nil {
		if keys := m.invalidates(in, out); len(keys) > 0 {
			if ierr := m.f.cache.InvalidateQueries(ctx, keys...); ierr != nil {
				m.f.logger.Warn("Mutation: invalidation failed", "keys", len(keys), "error", ierr)
			}
		}
	}

	m.mu.Lock()
	m.state = State[Out]{Status: cache.StatusSuccess, Data: out, HasData: true}
	m.mu.Unlock()
	return out, nil
}

// State returns the state of the last run.
func (m *Mutation[In, Out]) State() State[Out] {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.state
}

// Reset returns the mutation to idle.
func (m *Mutation[In, Out]) Reset() {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.state = State[Out]{Status: cache.StatusIdle}
}

// UpdateInput carries the target id and the payload of an update.
type UpdateInput[In any] struct {
	ID   string
	Data In
}

type mutationBase struct {
	f     *Factory
	key   string
	url   string
	extra []cache.Key
	byID  []string
}

// MutationOption configures a write hook.
type MutationOption func(*mutationBase)

// AlsoInvalidate adds key prefixes that every successful run makes stale,
// on top of the hook's own family.
func AlsoInvalidate(keys ...cache.Key) MutationOption {
	return func(b *mutationBase) {
		b.extra = append(b.extra, keys...)
	}
}

// InvalidateByID adds [prefix, id] for each prefix after a successful run.
// The id is the update or delete target; create and upload hooks use their
// scope and add nothing when it is empty.
func InvalidateByID(prefixes ...string) MutationOption {
	return func(b *mutationBase) {
		b.byID = append(b.byID, prefixes...)
	}
}

func newMutationBase(f *Factory, key, url string, opts []MutationOption) mutationBase {
	b := mutationBase{f: f, key: key, url: url}
	for _, opt := range opts {
		opt(&b)
	}
	return b
}

func (b *mutationBase) invalidation(scope, id string) []cache.Key {
	keys := make([]cache.Key, 0, 1+len(b.extra)+len(b.byID))
	keys = append(keys, Scoped(b.key, scope))
	keys = append(keys, b.extra...)
	if id != "" {
		for _, prefix := range b.byID {
			keys = append(keys, cache.Key{prefix, id})
		}
	}
	return keys
}

// Create posts to a fixed URL.
type Create[In, Out any] struct{ mutationBase }

// NewCreate builds a create hook for the family cached under key.
func NewCreate[In, Out any](f *Factory, key, url string, opts ...MutationOption) *Create[In, Out] {
	return &Create[In, Out]{newMutationBase(f, key, url, opts)}
}

// Use returns an instance posting to url or url/{scope}, invalidating
// [key] or [key, scope].
func (h *Create[In, Out]) Use(scope string) *Mutation[In, Out] {
	path := joinPath(h.url, scope)
	return NewMutation(h.f, func(ctx context.Context, in In) (Out, error) {
		return Call[Out](ctx, h.f.req, httpclient.Request{Method: http.MethodPost, Path: path, Body: in})
	}, func(In, Out) []cache.Key { return h.invalidation(scope, scope) })
}

// Upload posts multipart/form-data to a fixed URL.
type Upload[Out any] struct{ mutationBase }

// NewUpload builds an upload hook for the family cached under key.
func NewUpload[Out any](f *Factory, key, url string, opts ...MutationOption) *Upload[Out] {
	return &Upload[Out]{newMutationBase(f, key, url, opts)}
}

// Use returns an instance; it behaves like Create with a multipart body.
func (h *Upload[Out]) Use(scope string) *Mutation[*httpclient.Multipart, Out] {
	path := joinPath(h.url, scope)
	return NewMutation(h.f, func(ctx context.Context, form *httpclient.Multipart) (Out, error) {
		return Call[Out](ctx, h.f.req, httpclient.Request{Method: http.MethodPost, Path: path, Multipart: form})
	}, func(*httpclient.Multipart, Out) []cache.Key { return h.invalidation(scope, scope) })
}

// Update puts to url/{id}; the id comes with each call.
type Update[In, Out any] struct{ mutationBase }

// NewUpdate builds an update hook for the family cached under key.
func NewUpdate[In, Out any](f *Factory, key, url string, opts ...MutationOption) *Update[In, Out] {
	return &Update[In, Out]{newMutationBase(f, key, url, opts)}
}

// Use returns an instance invalidating [key] or [key, scope] plus the
// hook's extra keys for the target id.
func (h *Update[In, Out]) Use(scope string) *Mutation[UpdateInput[In], Out] {
	return NewMutation(h.f, func(ctx context.Context, in UpdateInput[In]) (Out, error) {
		if in.ID == "" {
			var zero Out
			return zero, ErrMissingID
		}
		return Call[Out](ctx, h.f.req, httpclient.Request{Method: http.MethodPut, Path: joinPath(h.url, in.ID), Body: in.Data})
	}, func(in UpdateInput[In], _ Out) []cache.Key { return h.invalidation(scope, in.ID) })
}

// Delete deletes url/{id}; the id comes with each call.
type Delete[Out any] struct{ mutationBase }

// NewDelete builds a delete hook for the family cached under key.
func NewDelete[Out any](f *Factory, key, url string, opts ...MutationOption) *Delete[Out] {
	return &Delete[Out]{newMutationBase(f, key, url, opts)}
}

// Use returns an instance invalidating [key] or [key, scope] plus the
// hook's extra keys for the target id.
func (h *Delete[Out]) Use(scope string) *Mutation[string, Out] {
	return NewMutation(h.f, func(ctx context.Context, id string) (Out, error) {
		if id == "" {
			var zero Out
			return zero, ErrMissingID
		}
		return Call[Out](ctx, h.f.req, httpclient.Request{Method: http.MethodDelete, Path: joinPath(h.url, id)})
	}, func(id string, _ Out) []cache.Key { return h.invalidation(scope, id) })
}
