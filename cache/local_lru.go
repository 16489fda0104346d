package cache

import (
	"sync/atomic"

	lru "github.com/hashicorp/golang-lru/v2"
)

// LRUCacheFactory creates LRU cache instances.
type LRUCacheFactory struct {
	maxSize int
	onEvict func(key string)
}

// NewLRUCacheFactory creates a new LRU cache factory.
func NewLRUCacheFactory(maxSize int) LocalCacheFactory {
	return &LRUCacheFactory{maxSize: maxSize}
}

// NewLRUCacheFactoryWithEvict creates an LRU factory whose caches report
// capacity evictions to onEvict.
func NewLRUCacheFactoryWithEvict(maxSize int, onEvict func(key string)) LocalCacheFactory {
	return &LRUCacheFactory{maxSize: maxSize, onEvict: onEvict}
}

// Create creates a new LRU cache instance.
func (lcf *LRUCacheFactory) Create() (LocalCache, error) {
	return newLRUCache(lcf.maxSize, lcf.onEvict)
}

// LRUCache is a local LRU cache implementation using golang-lru.
type LRUCache struct {
	cache     *lru.Cache[string, any]
	hits      int64
	misses    int64
	evictions int64
	maxSize   int64
	purging   atomic.Bool
}

// NewLRUCache creates a new LRU-based local cache.
func NewLRUCache(maxSize int) (*LRUCache, error) {
	return newLRUCache(maxSize, nil)
}

func newLRUCache(maxSize int, onEvict func(key string)) (*LRUCache, error) {
	lc := &LRUCache{maxSize: int64(maxSize)}
	cache, err := lru.NewWithEvict[string, any](maxSize, func(key string, _ any) {
		// Purge and Remove also fire the callback; only capacity drops count.
		if lc.purging.Load() {
			return
		}
		atomic.AddInt64(&lc.evictions, 1)
		if onEvict != nil {
			onEvict(key)
		}
	})
	if err != nil {
		return nil, err
	}
	lc.cache = cache
	return lc, nil
}

// Get retrieves a value from the local cache.
func (lc *LRUCache) Get(key string) (any, bool) {
	value, found := lc.cache.Get(key)
	if found {
		atomic.AddInt64(&lc.hits, 1)
	} else {
		atomic.AddInt64(&lc.misses, 1)
	}
	return value, found
}

// Set stores a value in the local cache.
func (lc *LRUCache) Set(key string, value any, cost int64) bool {
	lc.cache.Add(key, value)
	return true
}

// Delete removes a value from the local cache.
func (lc *LRUCache) Delete(key string) {
	lc.purging.Store(true)
	lc.cache.Remove(key)
	lc.purging.Store(false)
}

// Clear removes all values from the local cache.
func (lc *LRUCache) Clear() {
	lc.purging.Store(true)
	lc.cache.Purge()
	lc.purging.Store(false)
}

// Close closes the local cache.
func (lc *LRUCache) Close() {
	lc.Clear()
}

// Metrics returns cache metrics.
func (lc *LRUCache) Metrics() LocalCacheMetrics {
	return LocalCacheMetrics{
		Hits:      atomic.LoadInt64(&lc.hits),
		Misses:    atomic.LoadInt64(&lc.misses),
		Evictions: atomic.LoadInt64(&lc.evictions),
		Size:      int64(lc.cache.Len()),
	}
}
