// Package teamup is the Go data layer for the team-up platform API.
//
// New assembles the credential manager, HTTP client, query cache, generated
// hooks and domain stores into one Client. Subpackages can be used on their
// own when only part of the stack is needed.
package teamup

import "github.com/huykn/teamup-client/cache"

// Logger is an alias for cache.Logger.
type Logger = cache.Logger

// LocalCache is an alias for cache.LocalCache.
type LocalCache = cache.LocalCache

// LocalCacheMetrics is an alias for cache.LocalCacheMetrics.
type LocalCacheMetrics = cache.LocalCacheMetrics

// LocalCacheFactory is an alias for cache.LocalCacheFactory.
type LocalCacheFactory = cache.LocalCacheFactory

// LocalCacheConfig is an alias for cache.LocalCacheConfig.
type LocalCacheConfig = cache.LocalCacheConfig

// Synchronizer is an alias for cache.Synchronizer.
type Synchronizer = cache.Synchronizer

// InvalidationEvent is an alias for cache.InvalidationEvent.
type InvalidationEvent = cache.InvalidationEvent

// QueryOptions is an alias for cache.QueryOptions.
type QueryOptions = cache.QueryOptions

// Key is an alias for cache.Key.
type Key = cache.Key

// Stats is an alias for cache.Stats.
type Stats = cache.Stats

// DefaultLocalCacheConfig returns default local cache configuration.
func DefaultLocalCacheConfig() LocalCacheConfig {
	return cache.DefaultLocalCacheConfig()
}
