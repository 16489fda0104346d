package cache

import (
	"context"

	"github.com/huykn/teamup-client/types"
)

// Logger defines the interface for logging in the query layer.
type Logger interface {
	// Debug logs a debug message.
	Debug(msg string, args ...any)

	// Info logs an info message.
	Info(msg string, args ...any)

	// Warn logs a warning message.
	Warn(msg string, args ...any)

	// Error logs an error message.
	Error(msg string, args ...any)
}

// LocalCache defines the interface for the in-process entry storage backing
// a QueryCache.
type LocalCache interface {
	// Get retrieves a value from the local cache.
	Get(key string) (any, bool)

	// Set stores a value in the local cache.
	Set(key string, value any, cost int64) bool

	// Delete removes a value from the local cache.
	Delete(key string)

	// Clear removes all values from the local cache.
	Clear()

	// Close closes the local cache.
	Close()

	// Metrics returns cache metrics.
	Metrics() LocalCacheMetrics
}

// LocalCacheMetrics represents local cache metrics.
type LocalCacheMetrics struct {
	Hits      int64
	Misses    int64
	Evictions int64
	Size      int64
}

// LocalCacheFactory defines the interface for creating local cache implementations.
type LocalCacheFactory interface {
	// Create creates a new local cache instance.
	Create() (LocalCache, error)
}

// Synchronizer defines the interface for sharing invalidations between
// query caches, in-process or across processes.
type Synchronizer interface {
	// Subscribe starts listening for invalidation events.
	Subscribe(ctx context.Context) error

	// Publish publishes an invalidation event.
	Publish(ctx context.Context, event types.InvalidationEvent) error

	// OnInvalidate registers a callback for invalidation events.
	OnInvalidate(callback func(event types.InvalidationEvent))

	// Close closes the synchronizer.
	Close() error
}

// InvalidationEvent is an alias for types.InvalidationEvent.
type InvalidationEvent = types.InvalidationEvent

// Action is an alias for types.Action.
type Action = types.Action

// Action constants for cache operations
const (
	ActionSet        = types.Set
	ActionInvalidate = types.Invalidate
	ActionDelete     = types.Delete
	ActionClear      = types.Clear
)

// Stats represents query cache statistics.
type Stats struct {
	Hits          int64
	Misses        int64
	Fetches       int64
	Deduplicated  int64
	Errors        int64
	Invalidations int64
	Evictions     int64
}
