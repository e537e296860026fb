package observability

import (
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

var (
	// RedisErrorRate counts Redis errors by operation type.
	RedisErrorRate = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "writeflow_redis_error_rate_total",
		Help: "Total number of Redis errors by operation type",
	}, []string{"operation"})

	// StoreLatency records blog/user store latency by backend and operation.
	StoreLatency = promauto.NewHistogramVec(prometheus.HistogramOpts{
		Name:    "writeflow_store_latency_seconds",
		Help:    "Store operation latency in seconds",
		Buckets: prometheus.DefBuckets,
	}, []string{"backend", "operation"})

	// CommentMutations counts successful comment tree mutations.
	CommentMutations = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "writeflow_comment_mutations_total",
		Help: "Total number of comment and reply mutations",
	}, []string{"operation"})

	// RevisionConflicts counts saves rejected because the blog changed underneath them.
	RevisionConflicts = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "writeflow_revision_conflicts_total",
		Help: "Total number of stale blog saves",
	}, []string{"outcome"})

	// UpstreamFailures counts failed calls to the AI services and the image store.
	UpstreamFailures = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "writeflow_upstream_failures_total",
		Help: "Total number of failed calls to external services",
	}, []string{"service"})

	// CacheLookups counts blog cache hits and misses.
	CacheLookups = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "writeflow_cache_lookups_total",
		Help: "Blog cache lookups by result",
	}, []string{"result"})
)

// TrackStore returns a function that records the latency of a store call when deferred.
func TrackStore(backend, operation string) func() {
	start := time.Now()
	return func() {
		StoreLatency.WithLabelValues(backend, operation).Observe(time.Since(start).Seconds())
	}
}
