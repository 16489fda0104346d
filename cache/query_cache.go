package cache

import (
	"context"
	"errors"
	"sync"
	"sync/atomic"
	"time"

	"golang.org/x/sync/errgroup"
	"golang.org/x/sync/singleflight"
)

// Status is the lifecycle state of a cache entry or hook instance.
type Status string

const (
	StatusIdle    Status = "idle"
	StatusLoading Status = "loading"
	StatusSuccess Status = "success"
	StatusError   Status = "error"
)

// Entry is a snapshot of one cached query result.
type Entry struct {
	Key        Key
	Data       any
	HasData    bool
	Status     Status
	Err        error
	UpdatedAt  time.Time
	Stale      bool
	FetchCount int

	gen uint64
}

func (e *Entry) fresh(now time.Time, staleTime time.Duration) bool {
	if e.Status != StatusSuccess || e.Stale {
		return false
	}
	return staleTime > 0 && now.Sub(e.UpdatedAt) < staleTime
}

// Fetcher loads the value for one key.
type Fetcher func(ctx context.Context) (any, error)

// Observer is an active subscriber of a key. OnChange receives every state
// change; Refetch, when set, is used to reload the key after invalidation.
type Observer struct {
	OnChange func(Entry)
	Refetch  func(ctx context.Context) error
}

// RetryPolicy decides whether a failed fetch may be attempted again.
// The default refuses client errors reported through a StatusCode() method.
type RetryPolicy func(err error) bool

// QueryCache stores query results by Key, shares in-flight fetches for the
// same key and invalidates entries by key prefix.
type QueryCache struct {
	local        LocalCache
	group        singleflight.Group
	synchronizer Synchronizer
	logger       Logger
	options      Options
	shouldRetry  RetryPolicy
	now          func() time.Time

	mu        sync.Mutex
	index     map[string]Key
	observers map[string]map[uint64]Observer
	nextObsID uint64

	closed int32
	stats  Stats
}

// New creates a new QueryCache instance.
func New(opts Options) (*QueryCache, error) {
	if err := opts.Validate(); err != nil {
		return nil, err
	}

	if opts.Logger == nil {
		opts.Logger = NewNoOpLogger()
	}

	qc := &QueryCache{
		synchronizer: opts.Synchronizer,
		logger:       opts.Logger,
		options:      opts,
		shouldRetry:  defaultRetryPolicy,
		now:          time.Now,
		index:        make(map[string]Key),
		observers:    make(map[string]map[uint64]Observer),
	}

	if opts.LocalCacheFactory == nil {
		opts.LocalCacheFactory = NewLRUCacheFactoryWithEvict(opts.LocalCacheConfig.MaxSize, func(string) {
			atomic.AddInt64(&qc.stats.Evictions, 1)
		})
	}

	local, err := opts.LocalCacheFactory.Create()
	if err != nil {
		return nil, err
	}
	qc.local = local

	if qc.synchronizer != nil {
		ctx, cancel := context.WithTimeout(context.Background(), qc.contextTimeout())
		defer cancel()

		if err := qc.synchronizer.Subscribe(ctx); err != nil {
			local.Close()
			return nil, err
		}
		qc.synchronizer.OnInvalidate(qc.handleInvalidation)
	}

	return qc, nil
}

// SetRetryPolicy replaces the policy deciding which errors are retried.
func (qc *QueryCache) SetRetryPolicy(p RetryPolicy) {
	if p == nil {
		p = defaultRetryPolicy
	}
	qc.shouldRetry = p
}

// Defaults returns the query options applied when a query does not set its own.
func (qc *QueryCache) Defaults() QueryOptions {
	return qc.options.Defaults
}

// Fetch returns the cached value for key when it is fresh, otherwise runs
// fetch. Concurrent calls for the same key share one fetch. The shared fetch
// is detached from the caller's cancellation: a caller that gives up still
// leaves the result in the cache for the next reader.
func (qc *QueryCache) Fetch(ctx context.Context, key Key, fetch Fetcher, opts QueryOptions) (any, error) {
	if atomic.LoadInt32(&qc.closed) != 0 {
		return nil, ErrCacheClosed
	}

	ks := key.String()

	qc.mu.Lock()
	e := qc.lookupLocked(ks, opts.GCTime)
	if e != nil && e.fresh(qc.now(), opts.StaleTime) {
		data := e.Data
		qc.mu.Unlock()
		atomic.AddInt64(&qc.stats.Hits, 1)
		if qc.options.DebugMode {
			qc.logger.Debug("Fetch: served from cache", "key", ks)
		}
		return data, nil
	}

	atomic.AddInt64(&qc.stats.Misses, 1)
	if e == nil {
		e = &Entry{Key: key, Status: StatusIdle}
		qc.storeLocked(ks, e)
	}
	changed := e.Status != StatusLoading
	e.Status = StatusLoading
	snapshot := *e
	qc.mu.Unlock()

	if changed {
		qc.notify(ks, snapshot)
	}

	leader := false
	ch := qc.group.DoChan(ks, func() (any, error) {
		leader = true
		return qc.runFetch(context.WithoutCancel(ctx), ks, key, fetch, opts)
	})

	select {
	case res := <-ch:
		if !leader {
			atomic.AddInt64(&qc.stats.Deduplicated, 1)
		}
		return res.Val, res.Err
	case <-ctx.Done():
		return nil, ctx.Err()
	}
}

func (qc *QueryCache) runFetch(ctx context.Context, ks string, key Key, fetch Fetcher, opts QueryOptions) (any, error) {
	qc.mu.Lock()
	var gen uint64
	if e := qc.getLocked(ks); e != nil {
		gen = e.gen
	}
	qc.mu.Unlock()

	if qc.options.DebugMode {
		qc.logger.Debug("Fetch: requesting", "key", ks)
	}

	var (
		value any
		err   error
	)
	for attempt := 0; attempt <= opts.Retry; attempt++ {
		if attempt > 0 {
			if qc.options.DebugMode {
				qc.logger.Debug("Fetch: retrying", "key", ks, "attempt", attempt, "error", err)
			}
			if opts.RetryDelay > 0 {
				select {
				case <-time.After(opts.RetryDelay):
				case <-ctx.Done():
				}
			}
		}
		atomic.AddInt64(&qc.stats.Fetches, 1)
		value, err = fetch(ctx)
		if err == nil || !qc.shouldRetry(err) {
			break
		}
	}

	qc.mu.Lock()
	e := qc.getLocked(ks)
	if e == nil {
		// Removed or evicted while in flight: keep the value but do not
		// let it count as fresh.
		e = &Entry{Key: key, Stale: true, gen: gen + 1}
		qc.storeLocked(ks, e)
	}
	if err != nil {
		e.Status = StatusError
		e.Err = err
	} else {
		e.Data = value
		e.HasData = true
		e.Status = StatusSuccess
		e.Err = nil
		e.UpdatedAt = qc.now()
		e.FetchCount++
		// An invalidation that landed while the request was out means the
		// value may predate the change.
		e.Stale = e.gen != gen
	}
	snapshot := *e
	qc.mu.Unlock()

	if err != nil {
		atomic.AddInt64(&qc.stats.Errors, 1)
		qc.logger.Warn("Fetch: request failed", "key", ks, "error", err)
	} else if qc.options.DebugMode {
		qc.logger.Debug("Fetch: stored result", "key", ks, "stale", snapshot.Stale)
	}

	qc.notify(ks, snapshot)
	return value, err
}

// Peek returns the entry for key without fetching.
func (qc *QueryCache) Peek(key Key) (Entry, bool) {
	qc.mu.Lock()
	defer qc.mu.Unlock()
	e := qc.getLocked(key.String())
	if e == nil {
		return Entry{}, false
	}
	return *e, true
}

// SetData writes value as a fresh successful result for key.
func (qc *QueryCache) SetData(key Key, value any) {
	if atomic.LoadInt32(&qc.closed) != 0 {
		return
	}
	ks := key.String()

	qc.mu.Lock()
	e := qc.getLocked(ks)
	if e == nil {
		e = &Entry{Key: key}
		qc.storeLocked(ks, e)
	}
	e.Data = value
	e.HasData = true
	e.Status = StatusSuccess
	e.Err = nil
	e.Stale = false
	e.UpdatedAt = qc.now()
	e.gen++
	snapshot := *e
	qc.mu.Unlock()

	qc.group.Forget(ks)
	qc.notify(ks, snapshot)
}

// InvalidateQueries marks every entry whose key starts with one of prefixes
// as stale. Observed entries are refetched in the background; unobserved
// ones refetch on their next read.
func (qc *QueryCache) InvalidateQueries(ctx context.Context, prefixes ...Key) error {
	return qc.invalidate(ctx, false, false, prefixes)
}

// InvalidateExact marks only the entries whose key equals one of keys.
func (qc *QueryCache) InvalidateExact(ctx context.Context, keys ...Key) error {
	return qc.invalidate(ctx, true, false, keys)
}

// RefetchQueries invalidates like InvalidateQueries and waits for the
// observed entries to reload.
func (qc *QueryCache) RefetchQueries(ctx context.Context, prefixes ...Key) error {
	return qc.invalidate(ctx, false, true, prefixes)
}

func (qc *QueryCache) invalidate(ctx context.Context, exact, wait bool, keys []Key) error {
	if atomic.LoadInt32(&qc.closed) != 0 {
		return ErrCacheClosed
	}

	var refetchers []func(context.Context) error
	for _, k := range keys {
		segs := k.Segments()
		refetchers = append(refetchers, qc.applyInvalidation(segs, exact)...)
		qc.publish(ctx, InvalidationEvent{
			Key:      k.String(),
			Segments: segs,
			Exact:    exact,
			Sender:   qc.options.ClientID,
			Action:   ActionInvalidate,
		})
	}

	if wait {
		g, gctx := errgroup.WithContext(ctx)
		for _, r := range refetchers {
			r := r
			g.Go(func() error { return r(gctx) })
		}
		return g.Wait()
	}

	for _, r := range refetchers {
		go qc.backgroundRefetch(r)
	}
	return nil
}

// applyInvalidation marks matching entries stale and returns one refetch
// function per observed entry.
func (qc *QueryCache) applyInvalidation(prefix []string, exact bool) []func(context.Context) error {
	type change struct {
		ks    string
		entry Entry
	}

	var (
		changes    []change
		refetchers []func(context.Context) error
	)

	qc.mu.Lock()
	for ks, key := range qc.index {
		segs := key.Segments()
		if exact {
			if len(segs) != len(prefix) || !hasSegmentPrefix(segs, prefix) {
				continue
			}
		} else if !hasSegmentPrefix(segs, prefix) {
			continue
		}

		e := qc.getLocked(ks)
		if e == nil {
			continue
		}
		e.Stale = true
		e.gen++
		qc.group.Forget(ks)
		atomic.AddInt64(&qc.stats.Invalidations, 1)
		changes = append(changes, change{ks: ks, entry: *e})

		for _, obs := range qc.observers[ks] {
			if obs.Refetch != nil {
				refetchers = append(refetchers, obs.Refetch)
				break
			}
		}
	}
	qc.mu.Unlock()

	for _, c := range changes {
		if qc.options.DebugMode {
			qc.logger.Debug("Invalidate: marked stale", "key", c.ks)
		}
		qc.notify(c.ks, c.entry)
	}
	return refetchers
}

func (qc *QueryCache) backgroundRefetch(r func(context.Context) error) {
	ctx, cancel := context.WithTimeout(context.Background(), qc.contextTimeout())
	defer cancel()
	if err := r(ctx); err != nil {
		if qc.options.OnError != nil {
			qc.options.OnError(err)
		}
		qc.logger.Warn("Invalidate: background refetch failed", "error", err)
	}
}

// Remove drops the entry for key.
func (qc *QueryCache) Remove(ctx context.Context, key Key) error {
	if atomic.LoadInt32(&qc.closed) != 0 {
		return ErrCacheClosed
	}
	qc.removeSegments(key.Segments(), true)
	qc.publish(ctx, InvalidationEvent{
		Key:      key.String(),
		Segments: key.Segments(),
		Exact:    true,
		Sender:   qc.options.ClientID,
		Action:   ActionDelete,
	})
	return nil
}

func (qc *QueryCache) removeSegments(prefix []string, exact bool) {
	qc.mu.Lock()
	defer qc.mu.Unlock()
	for ks, key := range qc.index {
		segs := key.Segments()
		if !hasSegmentPrefix(segs, prefix) || (exact && len(segs) != len(prefix)) {
			continue
		}
		qc.local.Delete(ks)
		delete(qc.index, ks)
		qc.group.Forget(ks)
	}
}

// Clear removes every entry. Observers stay registered.
func (qc *QueryCache) Clear(ctx context.Context) error {
	if atomic.LoadInt32(&qc.closed) != 0 {
		return ErrCacheClosed
	}

	qc.clearLocal()
	if qc.options.DebugMode {
		qc.logger.Debug("Clear: cleared query cache")
	}

	qc.publish(ctx, InvalidationEvent{
		Key:    "*",
		Sender: qc.options.ClientID,
		Action: ActionClear,
	})
	return nil
}

func (qc *QueryCache) clearLocal() {
	qc.mu.Lock()
	defer qc.mu.Unlock()
	for ks := range qc.index {
		qc.group.Forget(ks)
	}
	qc.local.Clear()
	qc.index = make(map[string]Key)
}

// Subscribe registers obs for key and returns a function that removes it.
// An observed entry is never garbage collected.
func (qc *QueryCache) Subscribe(key Key, obs Observer) func() {
	ks := key.String()

	qc.mu.Lock()
	qc.nextObsID++
	id := qc.nextObsID
	if qc.observers[ks] == nil {
		qc.observers[ks] = make(map[uint64]Observer)
	}
	qc.observers[ks][id] = obs
	qc.mu.Unlock()

	var once sync.Once
	return func() {
		once.Do(func() {
			qc.mu.Lock()
			defer qc.mu.Unlock()
			delete(qc.observers[ks], id)
			if len(qc.observers[ks]) == 0 {
				delete(qc.observers, ks)
			}
		})
	}
}

// ActiveKeys returns the keys that currently have observers.
func (qc *QueryCache) ActiveKeys() []Key {
	qc.mu.Lock()
	defer qc.mu.Unlock()
	keys := make([]Key, 0, len(qc.observers))
	for ks := range qc.observers {
		if k, ok := qc.index[ks]; ok {
			keys = append(keys, k)
		}
	}
	return keys
}

// Close closes the cache and releases all resources.
func (qc *QueryCache) Close() error {
	if !atomic.CompareAndSwapInt32(&qc.closed, 0, 1) {
		return nil
	}

	var err error
	if qc.synchronizer != nil {
		err = qc.synchronizer.Close()
	}
	qc.local.Close()
	return err
}

// Stats returns cache statistics.
func (qc *QueryCache) Stats() Stats {
	return Stats{
		Hits:          atomic.LoadInt64(&qc.stats.Hits),
		Misses:        atomic.LoadInt64(&qc.stats.Misses),
		Fetches:       atomic.LoadInt64(&qc.stats.Fetches),
		Deduplicated:  atomic.LoadInt64(&qc.stats.Deduplicated),
		Errors:        atomic.LoadInt64(&qc.stats.Errors),
		Invalidations: atomic.LoadInt64(&qc.stats.Invalidations),
		Evictions:     atomic.LoadInt64(&qc.stats.Evictions),
	}
}

// handleInvalidation applies events published by other caches.
func (qc *QueryCache) handleInvalidation(event InvalidationEvent) {
	if qc.options.DebugMode {
		qc.logger.Info("Received synchronization event", "action", event.Action, "key", event.Key, "sender", event.Sender)
	}

	switch event.Action {
	case ActionInvalidate:
		for _, r := range qc.applyInvalidation(event.Segments, event.Exact) {
			go qc.backgroundRefetch(r)
		}
	case ActionDelete:
		qc.removeSegments(event.Segments, event.Exact)
	case ActionClear:
		qc.clearLocal()
	default:
		if qc.options.DebugMode {
			qc.logger.Warn("Sync: unsupported action", "action", event.Action, "key", event.Key, "sender", event.Sender)
		}
	}
}

func (qc *QueryCache) publish(ctx context.Context, event InvalidationEvent) {
	if qc.synchronizer == nil {
		return
	}
	ctx, cancel := context.WithTimeout(context.WithoutCancel(ctx), qc.contextTimeout())
	defer cancel()

	if err := qc.synchronizer.Publish(ctx, event); err != nil {
		if qc.options.OnError != nil {
			qc.options.OnError(err)
		}
		qc.logger.Warn("Sync: failed to publish event", "key", event.Key, "action", event.Action, "error", err)
	}
}

func (qc *QueryCache) notify(ks string, e Entry) {
	qc.mu.Lock()
	callbacks := make([]func(Entry), 0, len(qc.observers[ks]))
	for _, obs := range qc.observers[ks] {
		if obs.OnChange != nil {
			callbacks = append(callbacks, obs.OnChange)
		}
	}
	qc.mu.Unlock()

	for _, cb := range callbacks {
		cb(e)
	}
}

// lookupLocked returns the entry for ks, dropping it first when it has
// outlived gcTime without observers.
func (qc *QueryCache) lookupLocked(ks string, gcTime time.Duration) *Entry {
	e := qc.getLocked(ks)
	if e == nil {
		return nil
	}
	if gcTime > 0 && e.Status != StatusLoading && !e.UpdatedAt.IsZero() &&
		len(qc.observers[ks]) == 0 && qc.now().Sub(e.UpdatedAt) > gcTime {
		qc.local.Delete(ks)
		delete(qc.index, ks)
		return nil
	}
	return e
}

func (qc *QueryCache) getLocked(ks string) *Entry {
	v, ok := qc.local.Get(ks)
	if !ok {
		delete(qc.index, ks)
		return nil
	}
	e, ok := v.(*Entry)
	if !ok {
		return nil
	}
	return e
}

func (qc *QueryCache) storeLocked(ks string, e *Entry) {
	if qc.local.Set(ks, e, 1) {
		qc.index[ks] = e.Key
	}
}

func (qc *QueryCache) contextTimeout() time.Duration {
	if qc.options.ContextTimeout > 0 {
		return qc.options.ContextTimeout
	}
	return 5 * time.Second
}

type statusCoder interface {
	StatusCode() int
}

type retryable interface {
	Retryable() bool
}

func defaultRetryPolicy(err error) bool {
	if errors.Is(err, context.Canceled) {
		return false
	}
	var r retryable
	if errors.As(err, &r) {
		return r.Retryable()
	}
	var sc statusCoder
	if errors.As(err, &sc) {
		code := sc.StatusCode()
		return code == 0 || code >= 500
	}
	return true
}

// ErrCacheClosed is returned when operations are performed on a closed cache.
var ErrCacheClosed = NewError("cache is closed")
