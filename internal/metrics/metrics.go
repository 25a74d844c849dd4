// Package metrics defines the Prometheus instrumentation of the client.
package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

// Metrics holds all Prometheus metrics of the campus client.
// Pass to components that need to record metrics; a nil *Metrics disables
// recording.
type Metrics struct {
	RequestsTotal    *prometheus.CounterVec
	RequestDuration  *prometheus.HistogramVec
	CacheHitsTotal   prometheus.Counter
	CacheMissesTotal prometheus.Counter
	SessionRefreshes prometheus.Counter
	BookingsTotal    *prometheus.CounterVec
}

// New creates and registers all metrics with the given registry.
func New(reg prometheus.Registerer) *Metrics {
	return &Metrics{
		RequestsTotal: promauto.With(reg).NewCounterVec(
			prometheus.CounterOpts{
				Namespace: "campus",
				Name:      "requests_total",
				Help:      "Total number of webservice calls issued",
			},
			[]string{"method", "status"}, // status=ok/empty/error
		),
		RequestDuration: promauto.With(reg).NewHistogramVec(
			prometheus.HistogramOpts{
				Namespace: "campus",
				Name:      "request_duration_seconds",
				Help:      "Webservice call duration in seconds",
				Buckets:   prometheus.DefBuckets,
			},
			[]string{"method"},
		),
		CacheHitsTotal: promauto.With(reg).NewCounter(
			prometheus.CounterOpts{
				Namespace: "campus",
				Name:      "cache_hits_total",
				Help:      "Responses served from the cache",
			},
		),
		CacheMissesTotal: promauto.With(reg).NewCounter(
			prometheus.CounterOpts{
				Namespace: "campus",
				Name:      "cache_misses_total",
				Help:      "Cacheable calls that reached the network",
			},
		),
		SessionRefreshes: promauto.With(reg).NewCounter(
			prometheus.CounterOpts{
				Namespace: "campus",
				Name:      "session_refreshes_total",
				Help:      "Re-authentications triggered by rejected sessions",
			},
		),
		BookingsTotal: promauto.With(reg).NewCounterVec(
			prometheus.CounterOpts{
				Namespace: "campus",
				Name:      "library_bookings_total",
				Help:      "Library reservation mutations",
			},
			[]string{"op", "status"}, // op=book/cancel, status=ok/error
		),
	}
}
