package metrics

import (
	"time"

	"github.com/prometheus/client_golang/prometheus"
)

var (
	// Pipeline
	Generations = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "uigen_generations_total",
			Help: "Generate requests by outcome",
		},
		[]string{"result"}, // result: success|invalid|ai_error|store_error
	)

	// AI provider
	AIRequests = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "uigen_ai_requests_total",
			Help: "AI provider calls by provider, stage and result",
		},
		[]string{"provider", "stage", "result"},
	)
	AIRequestDuration = prometheus.NewHistogramVec(
		prometheus.HistogramOpts{
			Name:    "uigen_ai_request_duration_seconds",
			Help:    "Duration of AI provider calls",
			Buckets: prometheus.ExponentialBuckets(0.5, 2, 8), // 0.5s..64s
		},
		[]string{"stage"},
	)

	// Storage
	StoreOps = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "uigen_store_ops_total",
			Help: "Generation store operations",
		},
		[]string{"driver", "op"},
	)
	CacheLookups = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "uigen_recent_cache_lookups_total",
			Help: "Recent feed cache lookups by result",
		},
		[]string{"result"}, // hit|miss|error
	)

	// HTTP
	HTTPRequests = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "uigen_http_requests_total",
			Help: "HTTP requests processed",
		},
		[]string{"method", "path", "status"},
	)
	HTTPDuration = prometheus.NewHistogramVec(
		prometheus.HistogramOpts{
			Name:    "uigen_http_request_duration_seconds",
			Help:    "Duration of HTTP requests",
			Buckets: prometheus.DefBuckets,
		},
		[]string{"method", "path"},
	)

	// Errors
	Errors = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "uigen_errors_total",
			Help: "Errors encountered in components",
		},
		[]string{"component", "type"},
	)
)

func init() {
	prometheus.MustRegister(
		Generations,
		AIRequests,
		AIRequestDuration,
		StoreOps,
		CacheLookups,
		HTTPRequests,
		HTTPDuration,
		Errors,
	)
}

func IncGeneration(result string) {
	Generations.WithLabelValues(result).Inc()
}

func ObserveAIRequest(provider, stage, result string, d time.Duration) {
	AIRequests.WithLabelValues(provider, stage, result).Inc()
	AIRequestDuration.WithLabelValues(stage).Observe(d.Seconds())
}

func IncStoreOp(driver, op string) {
	StoreOps.WithLabelValues(driver, op).Inc()
}

func IncCacheLookup(result string) {
	CacheLookups.WithLabelValues(result).Inc()
}

func ObserveHTTP(method, path, status string, d time.Duration) {
	HTTPRequests.WithLabelValues(method, path, status).Inc()
	HTTPDuration.WithLabelValues(method, path).Observe(d.Seconds())
}

func IncError(component, typ string) {
	Errors.WithLabelValues(component, typ).Inc()
}
