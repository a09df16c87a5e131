// Package cache provides TTL caching for upstream helpdesk responses:
// an in-memory store by default, Redis when a shared cache is configured.
package cache

import (
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

// Store is the cache contract the helpdesk client consumes. Values are
// opaque bytes; callers own serialization.
type Store interface {
	Get(key string) ([]byte, bool)
	Set(key string, value []byte, ttl time.Duration)
	Delete(key string)
	Clear()
	Stop()
}

// Metrics tracks cache performance across backends.
type Metrics struct {
	hits   prometheus.Counter
	misses prometheus.Counter
	errors prometheus.Counter
	sets   prometheus.Counter
}

// NewMetrics registers cache counters labelled by backend.
func NewMetrics(backend string) *Metrics {
	labels := prometheus.Labels{"backend": backend}
	return &Metrics{
		hits: promauto.NewCounter(prometheus.CounterOpts{
			Name:        "billdesk_cache_hits_total",
			Help:        "Total number of cache hits",
			ConstLabels: labels,
		}),
		misses: promauto.NewCounter(prometheus.CounterOpts{
			Name:        "billdesk_cache_misses_total",
			Help:        "Total number of cache misses",
			ConstLabels: labels,
		}),
		errors: promauto.NewCounter(prometheus.CounterOpts{
			Name:        "billdesk_cache_errors_total",
			Help:        "Total number of cache backend errors",
			ConstLabels: labels,
		}),
		sets: promauto.NewCounter(prometheus.CounterOpts{
			Name:        "billdesk_cache_sets_total",
			Help:        "Total number of cache sets",
			ConstLabels: labels,
		}),
	}
}
