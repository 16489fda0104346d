package cache

import (
	"sync/atomic"

	lfu "github.com/dgraph-io/ristretto"
)

// LFUCacheFactory creates Ristretto cache instances.
type LFUCacheFactory struct {
	config LocalCacheConfig
}

// NewLFUCacheFactory creates a new Ristretto cache factory.
func NewLFUCacheFactory(config LocalCacheConfig) LocalCacheFactory {
	return &LFUCacheFactory{config: config}
}

// Create creates a new Ristretto cache instance.
func (rcf *LFUCacheFactory) Create() (LocalCache, error) {
	return NewLFUCache(rcf.config)
}

// lfuItem keeps the string key next to the value: ristretto only hands the
// hashed key to OnEvict.
type lfuItem struct {
	key   string
	value any
}

// NewLFUCache creates a new Ristretto-based local cache.
//
// Ristretto's admission policy may reject a Set; the query cache then treats
// the entry as missing and fetches again on the next read.
func NewLFUCache(config LocalCacheConfig) (*LFUCache, error) {
	rc := &LFUCache{}
	cache, err := lfu.NewCache(&lfu.Config{
		NumCounters:        config.NumCounters,
		MaxCost:            config.MaxCost,
		BufferItems:        config.BufferItems,
		IgnoreInternalCost: config.IgnoreInternalCost,
		OnEvict: func(item *lfu.Item) {
			atomic.AddInt64(&rc.evictions, 1)
			if it, ok := item.Value.(lfuItem); ok && config.OnEvict != nil {
				config.OnEvict(it.key)
			}
		},
	})
	if err != nil {
		return nil, err
	}
	rc.cache = cache
	return rc, nil
}

// LFUCache is a local LFU cache implementation using ristretto.
type LFUCache struct {
	cache     *lfu.Cache
	hits      int64
	misses    int64
	evictions int64
}

// Get retrieves a value from the local cache.
func (rc *LFUCache) Get(key string) (any, bool) {
	value, found := rc.cache.Get(key)
	if !found {
		atomic.AddInt64(&rc.misses, 1)
		return nil, false
	}
	atomic.AddInt64(&rc.hits, 1)
	if it, ok := value.(lfuItem); ok {
		return it.value, true
	}
	return value, true
}

// Set stores a value in the local cache. Sets are applied before returning.
func (rc *LFUCache) Set(key string, value any, cost int64) bool {
	ok := rc.cache.Set(key, lfuItem{key: key, value: value}, cost)
	rc.cache.Wait()
	return ok
}

// Delete removes a value from the local cache.
func (rc *LFUCache) Delete(key string) {
	rc.cache.Del(key)
}

// Clear removes all values from the local cache.
func (rc *LFUCache) Clear() {
	rc.cache.Clear()
}

// Close closes the local cache.
func (rc *LFUCache) Close() {
	rc.cache.Close()
}

// Metrics returns cache metrics.
func (rc *LFUCache) Metrics() LocalCacheMetrics {
	return LocalCacheMetrics{
		Hits:      atomic.LoadInt64(&rc.hits),
		Misses:    atomic.LoadInt64(&rc.misses),
		Evictions: atomic.LoadInt64(&rc.evictions),
		Size:      int64(rc.cache.MaxCost()),
	}
}
