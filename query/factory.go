// Package query turns (cache key, URL) pairs into read and write hooks.
//
// Read hooks share results through a cache.QueryCache; write hooks
// invalidate the cache families they affect once the server confirms the
// change.
package query

import (
	"context"
	"net/http"

	"github.com/huykn/teamup-client/cache"
	"github.com/huykn/teamup-client/httpclient"
)

// Requester performs API calls. *httpclient.Client implements it.
type Requester interface {
	Do(ctx context.Context, req httpclient.Request, out any) error
}

// Factory builds hooks bound to one cache and one requester.
type Factory struct {
	cache  *cache.QueryCache
	req    Requester
	logger cache.Logger
}

// NewFactory creates a factory.
func NewFactory(qc *cache.QueryCache, req Requester, logger cache.Logger) *Factory {
	if logger == nil {
		logger = cache.NewNoOpLogger()
	}
	return &Factory{cache: qc, req: req, logger: logger}
}

// Cache returns the underlying query cache.
func (f *Factory) Cache() *cache.QueryCache {
	return f.cache
}

// Requester returns the underlying requester.
func (f *Factory) Requester() Requester {
	return f.req
}

// Invalidate marks every entry under the given key prefixes stale.
func (f *Factory) Invalidate(ctx context.Context, prefixes ...cache.Key) error {
	return f.cache.InvalidateQueries(ctx, prefixes...)
}

// Call performs req and unwraps the {data} envelope.
func Call[T any](ctx context.Context, r Requester, req httpclient.Request) (T, error) {
	var env httpclient.Envelope[T]
	if err := r.Do(ctx, req, &env); err != nil {
		var zero T
		return zero, err
	}
	return env.Data, nil
}

// Get is Call for a GET request.
func Get[T any](ctx context.Context, r Requester, path string, params map[string]any) (T, error) {
	return Call[T](ctx, r, httpclient.Request{Method: http.MethodGet, Path: path, Query: params})
}

// Scoped returns [prefix] or [prefix, scope] when scope is set.
func Scoped(prefix string, scope string) cache.Key {
	if scope == "" {
		return cache.Key{prefix}
	}
	return cache.Key{prefix, scope}
}

func joinPath(base, id string) string {
	if id == "" {
		return base
	}
	return base + "/" + id
}
