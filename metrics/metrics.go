// Package metrics exports query cache statistics and API request metrics
// to Prometheus.
package metrics

import (
	"net/http"
	"strconv"
	"sync"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"github.com/huykn/teamup-client/cache"
)

// StatsSource reports cache counters. *cache.QueryCache implements it.
type StatsSource interface {
	Stats() cache.Stats
}

// Collector is a prometheus.Collector over a StatsSource plus request
// counters fed by ObserveResponse.
type Collector struct {
	mu     sync.RWMutex
	source StatsSource

	requests *prometheus.CounterVec
	duration *prometheus.HistogramVec

	hits          *prometheus.Desc
	misses        *prometheus.Desc
	fetches       *prometheus.Desc
	deduplicated  *prometheus.Desc
	errors        *prometheus.Desc
	invalidations *prometheus.Desc
	evictions     *prometheus.Desc
}

// NewCollector creates a collector with metric names under namespace.
func NewCollector(namespace string) *Collector {
	desc := func(name, help string) *prometheus.Desc {
		return prometheus.NewDesc(prometheus.BuildFQName(namespace, "query_cache", name), help, nil, nil)
	}
	return &Collector{
		requests: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: "api",
			Name:      "requests_total",
			Help:      "API requests by method and status class.",
		}, []string{"method", "status"}),
		duration: prometheus.NewHistogramVec(prometheus.HistogramOpts{
			Namespace: namespace,
			Subsystem: "api",
			Name:      "request_duration_seconds",
			Help:      "API request latency.",
			Buckets:   prometheus.DefBuckets,
		}, []string{"method"}),

		hits:          desc("hits_total", "Reads served from a fresh entry."),
		misses:        desc("misses_total", "Reads that needed a fetch."),
		fetches:       desc("fetches_total", "Fetch attempts, retries included."),
		deduplicated:  desc("deduplicated_total", "Reads that joined an in-flight fetch."),
		errors:        desc("errors_total", "Fetches that ended in an error."),
		invalidations: desc("invalidations_total", "Entries marked stale."),
		evictions:     desc("evictions_total", "Entries dropped for capacity."),
	}
}

// Watch sets the cache whose counters are exported.
func (c *Collector) Watch(src StatsSource) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.source = src
}

// ObserveResponse records one API call. Its signature matches
// httpclient.Config.OnResponse.
func (c *Collector) ObserveResponse(method, _ string, status int, elapsed time.Duration) {
	c.requests.WithLabelValues(method, statusClass(status)).Inc()
	c.duration.WithLabelValues(method).Observe(elapsed.Seconds())
}

// Describe implements prometheus.Collector.
func (c *Collector) Describe(ch chan<- *prometheus.Desc) {
	c.requests.Describe(ch)
	c.duration.Describe(ch)
	for _, d := range []*prometheus.Desc{c.hits, c.misses, c.fetches, c.deduplicated, c.errors, c.invalidations, c.evictions} {
		ch <- d
	}
}

// Collect implements prometheus.Collector.
func (c *Collector) Collect(ch chan<- prometheus.Metric) {
	c.requests.Collect(ch)
	c.duration.Collect(ch)

	c.mu.RLock()
	src := c.source
	c.mu.RUnlock()
	if src == nil {
		return
	}

	s := src.Stats()
	for _, m := range []struct {
		desc  *prometheus.Desc
		value int64
	}{
		{c.hits, s.Hits},
		{c.misses, s.Misses},
		{c.fetches, s.Fetches},
		{c.deduplicated, s.Deduplicated},
		{c.errors, s.Errors},
		{c.invalidations, s.Invalidations},
		{c.evictions, s.Evictions},
	} {
		ch <- prometheus.MustNewConstMetric(m.desc, prometheus.CounterValue, float64(m.value))
	}
}

// Handler returns an HTTP handler serving a fresh registry holding only c.
func (c *Collector) Handler() (http.Handler, error) {
	reg := prometheus.NewRegistry()
	if err := reg.Register(c); err != nil {
		return nil, err
	}
	return promhttp.HandlerFor(reg, promhttp.HandlerOpts{}), nil
}

func statusClass(status int) string {
	if status <= 0 {
		return "network"
	}
	return strconv.Itoa(status/100) + "xx"
}
