package query

import (
	"context"
	"net/http"
	"strconv"

	"github.com/huykn/teamup-client/cache"
	"github.com/huykn/teamup-client/httpclient"
)

type hookBase struct {
	f    *Factory
	key  string
	url  string
	opts []Option
}

func (h hookBase) request(path string, o Options) httpclient.Request {
	return httpclient.Request{
		Method:  http.MethodGet,
		Path:    path,
		Query:   o.Params,
		Timeout: o.Timeout,
	}
}

// List reads a fixed URL under a fixed key.
type List[T any] struct{ hookBase }

// NewList builds a list hook.
func NewList[T any](f *Factory, key, url string, opts ...Option) *List[T] {
	return &List[T]{hookBase{f: f, key: key, url: url, opts: opts}}
}

// Use returns an instance. Parameters given through WithParams are sent as
// the query string and appended to the key.
func (h *List[T]) Use(opts ...Option) *Query[T] {
	o := resolve(h.f.cache.Defaults(), h.opts, opts)
	o.Params = CleanParams(o.Params)

	key := cache.Key{h.key}
	if len(o.Params) > 0 {
		key = append(key, o.Params)
	}
	req := h.request(h.url, o)
	return newQuery(h.f, key, o, true, func(ctx context.Context) (T, error) {
		return Call[T](ctx, h.f.req, req)
	})
}

// ByID reads url/{id} under [key, id].
type ByID[T any] struct{ hookBase }

// NewByID builds a by-path-parameter hook.
func NewByID[T any](f *Factory, key, url string, opts ...Option) *ByID[T] {
	return &ByID[T]{hookBase{f: f, key: key, url: url, opts: opts}}
}

// Use returns an instance for id. An empty id yields a disabled instance:
// it never requests url/ and stays idle.
func (h *ByID[T]) Use(id string, opts ...Option) *Query[T] {
	o := resolve(h.f.cache.Defaults(), h.opts, opts)
	o.Params = CleanParams(o.Params)

	key := Scoped(h.key, id)
	if len(o.Params) > 0 {
		key = append(key, o.Params)
	}
	req := h.request(joinPath(h.url, id), o)
	return newQuery(h.f, key, o, id != "", func(ctx context.Context) (T, error) {
		return Call[T](ctx, h.f.req, req)
	})
}

// Search reads url with search parameters under [key, params].
type Search[T any] struct{ hookBase }

// NewSearch builds a search hook.
func NewSearch[T any](f *Factory, key, url string, opts ...Option) *Search[T] {
	return &Search[T]{hookBase{f: f, key: key, url: url, opts: opts}}
}

// Use returns an instance for params. Without at least one non-empty
// parameter the instance is disabled.
func (h *Search[T]) Use(params map[string]any, opts ...Option) *Query[T] {
	o := resolve(h.f.cache.Defaults(), h.opts, opts, []Option{WithParams(params)})
	o.Params = CleanParams(o.Params)

	key := cache.Key{h.key, o.Params}
	req := h.request(h.url, o)
	return newQuery(h.f, key, o, len(o.Params) > 0, func(ctx context.Context) (T, error) {
		return Call[T](ctx, h.f.req, req)
	})
}

// Filtered reads url with filter parameters under [key, params]. Unlike
// Search it runs without parameters too.
type Filtered[T any] struct{ hookBase }

// NewFiltered builds a filtered hook.
func NewFiltered[T any](f *Factory, key, url string, opts ...Option) *Filtered[T] {
	return &Filtered[T]{hookBase{f: f, key: key, url: url, opts: opts}}
}

// Use returns an instance for params.
func (h *Filtered[T]) Use(params map[string]any, opts ...Option) *Query[T] {
	o := resolve(h.f.cache.Defaults(), h.opts, opts, []Option{WithParams(params)})
	o.Params = CleanParams(o.Params)

	key := cache.Key{h.key}
	if len(o.Params) > 0 {
		key = append(key, o.Params)
	}
	req := h.request(h.url, o)
	return newQuery(h.f, key, o, true, func(ctx context.Context) (T, error) {
		return Call[T](ctx, h.f.req, req)
	})
}

// Paged reads one page of a {data, pagination} list.
type Paged[T any] struct{ hookBase }

// NewPaged builds a paginated list hook.
func NewPaged[T any](f *Factory, key, url string, opts ...Option) *Paged[T] {
	return &Paged[T]{hookBase{f: f, key: key, url: url, opts: opts}}
}

// Use returns an instance for page (1-based) of size limit.
func (h *Paged[T]) Use(page, limit int, params map[string]any, opts ...Option) *Query[httpclient.Page[T]] {
	if page < 1 {
		page = 1
	}
	paging := map[string]any{"page": strconv.Itoa(page)}
	if limit > 0 {
		paging["limit"] = strconv.Itoa(limit)
	}
	o := resolve(h.f.cache.Defaults(), h.opts, opts, []Option{WithParams(params), WithParams(paging)})
	o.Params = CleanParams(o.Params)

	key := cache.Key{h.key, o.Params}
	req := h.request(h.url, o)
	return newQuery(h.f, key, o, true, func(ctx context.Context) (httpclient.Page[T], error) {
		var page httpclient.Page[T]
		if err := h.f.req.Do(ctx, req, &page); err != nil {
			return httpclient.Page[T]{}, err
		}
		return page, nil
	})
}
