package query

import (
	"time"

	"github.com/huykn/teamup-client/cache"
)

// Options are the per-hook settings. Zero values fall back to the cache
// defaults.
type Options struct {
	StaleTime  time.Duration
	GCTime     time.Duration
	Retry      int
	RetryDelay time.Duration
	Enabled    *bool
	Params     map[string]any
	Timeout    time.Duration

	staleSet bool
	gcSet    bool
	retrySet bool
}

// Option configures a hook.
type Option func(*Options)

// WithStaleTime sets how long a result is served without refetching.
// Zero means every read refetches.
func WithStaleTime(d time.Duration) Option {
	return func(o *Options) { o.StaleTime, o.staleSet = d, true }
}

// WithGCTime sets how long an unobserved result is kept.
func WithGCTime(d time.Duration) Option {
	return func(o *Options) { o.GCTime, o.gcSet = d, true }
}

// WithRetry sets the number of additional attempts after a failure.
func WithRetry(n int) Option {
	return func(o *Options) { o.Retry, o.retrySet = n, true }
}

// WithEnabled turns the hook on or off. A disabled hook never issues a
// request and stays idle.
func WithEnabled(enabled bool) Option {
	return func(o *Options) { o.Enabled = &enabled }
}

// WithParams merges query parameters into the request. They become part of
// the cache key.
func WithParams(params map[string]any) Option {
	return func(o *Options) {
		if o.Params == nil {
			o.Params = make(map[string]any, len(params))
		}
		for k, v := range params {
			o.Params[k] = v
		}
	}
}

// WithTimeout overrides the request timeout.
func WithTimeout(d time.Duration) Option {
	return func(o *Options) { o.Timeout = d }
}

func resolve(defaults cache.QueryOptions, layers ...[]Option) Options {
	var o Options
	for _, opts := range layers {
		for _, opt := range opts {
			opt(&o)
		}
	}
	if !o.staleSet {
		o.StaleTime = defaults.StaleTime
	}
	if !o.gcSet {
		o.GCTime = defaults.GCTime
	}
	if !o.retrySet {
		o.Retry = defaults.Retry
	}
	if o.RetryDelay == 0 {
		o.RetryDelay = defaults.RetryDelay
	}
	return o
}

func (o Options) enabled() bool {
	return o.Enabled == nil || *o.Enabled
}

func (o Options) cacheOptions() cache.QueryOptions {
	return cache.QueryOptions{
		StaleTime:  o.StaleTime,
		GCTime:     o.GCTime,
		Retry:      o.Retry,
		RetryDelay: o.RetryDelay,
	}
}

// CleanParams drops nil and empty-string values. Search keys and search
// gating both use the cleaned form, so {"name": ""} behaves like {}.
func CleanParams(params map[string]any) map[string]any {
	out := make(map[string]any, len(params))
	for k, v := range params {
		switch tv := v.(type) {
		case nil:
			continue
		case string:
			if tv == "" {
				continue
			}
		case *string:
			if tv == nil || *tv == "" {
				continue
			}
			v = *tv
		}
		out[k] = v
	}
	return out
}
