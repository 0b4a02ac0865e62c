// Package metrics exposes llmemo cache and backend counters to Prometheus.
package metrics

import (
	"net/http"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"github.com/prometheus/client_golang/prometheus/promauto"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

// Collector holds every llmemo metric on a private registry. It satisfies
// memory.Hooks and client.Observer.
type Collector struct {
	reg *prometheus.Registry

	// Cache metrics
	CacheHits      prometheus.Counter
	CacheMisses    prometheus.Counter
	CacheExpired   prometheus.Counter
	CacheEvictions prometheus.Counter
	CacheEntries   prometheus.Gauge

	// Backend metrics
	BackendCalls   *prometheus.CounterVec
	BackendLatency *prometheus.HistogramVec
}

// New creates a Collector whose metric names are prefixed with namespace.
func New(namespace string) *Collector {
	reg := prometheus.NewRegistry()
	reg.MustRegister(collectors.NewGoCollector())
	f := promauto.With(reg)

	return &Collector{
		reg: reg,

		CacheHits: f.NewCounter(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "cache_hits_total",
			Help:      "Total number of cache lookups answered from the cache",
		}),
		CacheMisses: f.NewCounter(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "cache_misses_total",
			Help:      "Total number of cache lookups that went to the backend",
		}),
		CacheExpired: f.NewCounter(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "cache_expired_total",
			Help:      "Total number of entries removed because their TTL passed",
		}),
		CacheEvictions: f.NewCounter(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "cache_evictions_total",
			Help:      "Total number of entries removed by the capacity pass",
		}),
		CacheEntries: f.NewGauge(prometheus.GaugeOpts{
			Namespace: namespace,
			Name:      "cache_entries",
			Help:      "Current number of cache entries, expired or not",
		}),

		BackendCalls: f.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "backend_requests_total",
			Help:      "Total backend generate calls by variant and outcome",
		}, []string{"variant", "outcome"}),
		BackendLatency: f.NewHistogramVec(prometheus.HistogramOpts{
			Namespace: namespace,
			Name:      "backend_request_duration_seconds",
			Help:      "Backend generate latency by variant",
			Buckets:   []float64{.05, .1, .25, .5, 1, 2.5, 5, 10, 20, 30},
		}, []string{"variant"}),
	}
}

func (c *Collector) Hit()          { c.CacheHits.Inc() }
func (c *Collector) Miss()         { c.CacheMisses.Inc() }
func (c *Collector) Expired(n int) { c.CacheExpired.Add(float64(n)) }
func (c *Collector) Evicted(n int) { c.CacheEvictions.Add(float64(n)) }
func (c *Collector) Size(n int)    { c.CacheEntries.Set(float64(n)) }

// BackendCall records one generate call.
func (c *Collector) BackendCall(variant, outcome string, d time.Duration) {
	c.BackendCalls.WithLabelValues(variant, outcome).Inc()
	c.BackendLatency.WithLabelValues(variant).Observe(d.Seconds())
}

// Handler serves the registry in the Prometheus exposition format.
func (c *Collector) Handler() http.Handler {
	return promhttp.HandlerFor(c.reg, promhttp.HandlerOpts{})
}
