package cache

import (
	"time"
)

// LocalCacheConfig configures the local entry storage.
type LocalCacheConfig struct {
	// NumCounters is the number of counters for the cache (Ristretto only).
	// Recommended: 10 * MaxItems
	NumCounters int64

	// MaxCost is the maximum cost of items in the cache (Ristretto only).
	MaxCost int64

	// BufferItems is the number of items to buffer before eviction (Ristretto only).
	// Recommended: 64
	BufferItems int64

	// IgnoreInternalCost ignores the internal cost of items (Ristretto only).
	IgnoreInternalCost bool

	// MaxSize is the maximum number of entries in the cache (LRU only).
	MaxSize int

	// OnEvict is called with the key of every entry dropped for capacity.
	OnEvict func(key string)
}

// QueryOptions controls freshness and retry for one query family.
type QueryOptions struct {
	// StaleTime is how long a successful result is served without refetching.
	StaleTime time.Duration

	// GCTime is how long an unobserved entry is kept after its last update.
	GCTime time.Duration

	// Retry is the number of additional attempts after a failed fetch.
	// Client errors (4xx) are never retried.
	Retry int

	// RetryDelay is the pause between attempts.
	RetryDelay time.Duration
}

// Options configures a QueryCache instance.
type Options struct {
	// ClientID identifies this cache as the sender of invalidation events.
	ClientID string

	// LocalCacheConfig configures the local entry storage.
	LocalCacheConfig LocalCacheConfig

	// LocalCacheFactory is the factory for creating local cache instances.
	// If nil, defaults to the LRU factory.
	LocalCacheFactory LocalCacheFactory

	// Synchronizer shares invalidations with other caches. Optional.
	Synchronizer Synchronizer

	// Defaults are applied to queries that do not override them.
	Defaults QueryOptions

	// Logger is the logger for debug logging.
	// If nil, defaults to no-op logger.
	Logger Logger

	// DebugMode enables debug logging.
	DebugMode bool

	// ContextTimeout bounds synchronizer publishes.
	ContextTimeout time.Duration

	// OnError is called when an error occurs in background operations.
	OnError func(error)
}

// DefaultQueryOptions returns the freshness policy used by the platform
// screens: five minutes stale, ten minutes kept, one retry.
func DefaultQueryOptions() QueryOptions {
	return QueryOptions{
		StaleTime:  5 * time.Minute,
		GCTime:     10 * time.Minute,
		Retry:      1,
		RetryDelay: 500 * time.Millisecond,
	}
}

// DefaultOptions returns default cache options.
func DefaultOptions() Options {
	return Options{
		ClientID:          "default-client",
		ContextTimeout:    5 * time.Second,
		Defaults:          DefaultQueryOptions(),
		LocalCacheConfig:  DefaultLocalCacheConfig(),
		LocalCacheFactory: nil, // Will default to LRU in New()
		Logger:            nil, // Will default to no-op in New()
		DebugMode:         false,
	}
}

// DefaultLocalCacheConfig returns default local cache configuration.
func DefaultLocalCacheConfig() LocalCacheConfig {
	return LocalCacheConfig{
		NumCounters:        1e5,
		MaxCost:            1 << 14,
		BufferItems:        64,
		IgnoreInternalCost: true,
		MaxSize:            1000,
	}
}

// Validate validates the options.
func (o *Options) Validate() error {
	if o.ClientID == "" {
		return ErrInvalidConfig
	}
	if o.LocalCacheFactory == nil && o.LocalCacheConfig.MaxSize <= 0 {
		return ErrInvalidConfig
	}
	if o.Defaults.StaleTime < 0 || o.Defaults.GCTime < 0 || o.Defaults.Retry < 0 {
		return ErrInvalidConfig
	}
	return nil
}

// ErrInvalidConfig is returned when options are invalid.
var ErrInvalidConfig = NewError("invalid cache configuration")

// NewError creates a new error with the given message.
func NewError(msg string) error {
	return &cacheError{msg: msg}
}

type cacheError struct {
	msg string
}

func (e *cacheError) Error() string {
	return e.msg
}
