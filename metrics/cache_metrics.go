package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

// Indicator cache metrics.
//
// The detail page and every sub-record update read the indicator by id, so
// these show how much of that traffic the cache absorbs. Labels:
//   - backend: "lru" or "redis"

var (
	// CacheHits counts cache lookups that returned a record.
	CacheHits = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: "crits",
			Subsystem: "cache",
			Name:      "hits_total",
			Help:      "Total number of indicator cache hits",
		},
		[]string{"backend"},
	)

	// CacheMisses counts lookups that fell through to storage.
	CacheMisses = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: "crits",
			Subsystem: "cache",
			Name:      "misses_total",
			Help:      "Total number of indicator cache misses",
		},
		[]string{"backend"},
	)

	// CacheErrors counts cache failures by operation.
	// Labels:
	//   - op: "marshal", "unmarshal", "get", "set", "delete", "size_limit"
	CacheErrors = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: "crits",
			Subsystem: "cache",
			Name:      "errors_total",
			Help:      "Total number of indicator cache errors",
		},
		[]string{"backend", "op"},
	)

	// CacheEvictions counts LRU evictions, including TTL expiry.
	CacheEvictions = promauto.NewCounter(
		prometheus.CounterOpts{
			Namespace: "crits",
			Subsystem: "cache",
			Name:      "evictions_total",
			Help:      "Total number of indicator LRU cache evictions",
		},
	)

	// CacheSize is the current number of cached indicators.
	CacheSize = promauto.NewGauge(
		prometheus.GaugeOpts{
			Namespace: "crits",
			Subsystem: "cache",
			Name:      "size",
			Help:      "Current number of indicators in the LRU cache",
		},
	)
)

// RecordCacheHit records a cache hit.
func RecordCacheHit(backend string) {
	CacheHits.WithLabelValues(backend).Inc()
}

// RecordCacheMiss records a cache miss.
func RecordCacheMiss(backend string) {
	CacheMisses.WithLabelValues(backend).Inc()
}

// RecordCacheEviction records an LRU cache eviction.
func RecordCacheEviction() {
	CacheEvictions.Inc()
}

// UpdateCacheSize updates the current cache size gauge.
func UpdateCacheSize(size int) {
	CacheSize.Set(float64(size))
}
