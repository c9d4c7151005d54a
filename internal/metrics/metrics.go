// Package metrics exposes Prometheus collectors for post generation and the
// HTTP API.
package metrics

import (
	"net/http"
	"strconv"
	"sync"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

// Attempt results recorded by ObserveAttempt.
const (
	ResultSuccess     = "success"
	ResultProviderErr = "provider_error"
	ResultRejected    = "rejected"
	ResultRetry       = "retry"
)

// Publish sources recorded by ObservePublished.
const (
	SourceManual = "manual"
	SourceAuto   = "auto"
)

var (
	generationAttemptsTotal    *prometheus.CounterVec
	generationDuplicatesTotal  prometheus.Counter
	generationRunsTotal        *prometheus.CounterVec
	postsPublishedTotal        *prometheus.CounterVec
	httpRequestsTotal          *prometheus.CounterVec
	httpRequestDurationSeconds *prometheus.HistogramVec

	once sync.Once
)

// Init initializes the Prometheus collectors.
// It is safe to call this function multiple times.
func Init() {
	once.Do(func() {
		generationAttemptsTotal = promauto.NewCounterVec(
			prometheus.CounterOpts{
				Name: "aifeed_generation_attempts_total",
				Help: "Total number of provider calls, labeled by provider and result.",
			},
			[]string{"provider", "result"},
		)

		generationDuplicatesTotal = promauto.NewCounter(
			prometheus.CounterOpts{
				Name: "aifeed_generation_duplicates_total",
				Help: "Total number of generated drafts skipped as recent duplicates.",
			},
		)

		generationRunsTotal = promauto.NewCounterVec(
			prometheus.CounterOpts{
				Name: "aifeed_generation_runs_total",
				Help: "Total number of generation runs, labeled by outcome.",
			},
			[]string{"outcome"},
		)

		postsPublishedTotal = promauto.NewCounterVec(
			prometheus.CounterOpts{
				Name: "aifeed_posts_published_total",
				Help: "Total number of posts stored, labeled by source.",
			},
			[]string{"source"},
		)

		httpRequestsTotal = promauto.NewCounterVec(
			prometheus.CounterOpts{
				Name: "aifeed_http_requests_total",
				Help: "Total number of HTTP requests, labeled by method and code.",
			},
			[]string{"method", "code"},
		)

		httpRequestDurationSeconds = promauto.NewHistogramVec(
			prometheus.HistogramOpts{
				Name:    "aifeed_http_request_duration_seconds",
				Help:    "Histogram of HTTP request latencies, labeled by method and route.",
				Buckets: []float64{0.05, 0.1, 0.25, 0.5, 1, 2, 5, 15, 60},
			},
			[]string{"method", "route"},
		)
	})
}

// Handler returns an http.Handler for exposing Prometheus metrics. It
// registers the collectors first so they are listed before any observation.
func Handler() http.Handler {
	Init()
	return promhttp.Handler()
}

// ObserveAttempt counts one provider call.
func ObserveAttempt(provider, result string) {
	Init()
	generationAttemptsTotal.WithLabelValues(provider, result).Inc()
}

// ObserveDuplicate counts a draft dropped by the duplicate guard.
func ObserveDuplicate() {
	Init()
	generationDuplicatesTotal.Inc()
}

// ObserveRun counts a finished generation run. Outcome is "published",
// "duplicate" or "failed".
func ObserveRun(outcome string) {
	Init()
	generationRunsTotal.WithLabelValues(outcome).Inc()
}

// ObservePublished counts a stored post.
func ObservePublished(source string) {
	Init()
	postsPublishedTotal.WithLabelValues(source).Inc()
}

// ObserveHTTPRequest increments the HTTP request metrics.
func ObserveHTTPRequest(method, route string, code int, duration time.Duration) {
	Init()
	httpRequestsTotal.WithLabelValues(method, strconv.Itoa(code)).Inc()
	httpRequestDurationSeconds.WithLabelValues(method, route).Observe(duration.Seconds())
}
