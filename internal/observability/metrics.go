package observability

import (
	"net/http"
	"sync"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"github.com/kjstillabower/weather-report-service/internal/traffic"
)

var (
	registry *prometheus.Registry

	// HTTP request rate. Watch for: sudden drops (service down) or spikes (traffic surge).
	HTTPRequestsTotal *prometheus.CounterVec

	// HTTP request latency per request. Watch for: p95/p99 latency increases.
	HTTPRequestDuration *prometheus.HistogramVec

	// Concurrent requests in flight. Watch for: saturation, capacity limits.
	HTTPRequestsInFlight prometheus.Gauge

	// Upstream call rate per service (forecast, alerts) and status class.
	UpstreamCallsTotal *prometheus.CounterVec

	// Upstream latency. Watch for: p95 > 2s on either service.
	UpstreamDuration *prometheus.HistogramVec

	// Upstream failures by category (see client.CategorizeError).
	UpstreamErrorsTotal *prometheus.CounterVec

	// Cache hits and misses per namespace. Hit rate = hits/(hits+misses).
	CacheHitsTotal   *prometheus.CounterVec
	CacheMissesTotal *prometheus.CounterVec

	// Cache backend failures by operation (get, set). Failures degrade to a miss.
	CacheErrorsTotal *prometheus.CounterVec

	// Callers that joined another caller's in-flight fetch instead of going upstream.
	CacheCoalescedTotal *prometheus.CounterVec

	// Misses observed while another miss for the same key was already in progress.
	CacheStampedeDetectedTotal *prometheus.CounterVec

	// Report compilations by result (success, error).
	ReportsBuiltTotal *prometheus.CounterVec

	// End-to-end report compilation latency, cache hits included.
	ReportBuildDuration prometheus.Histogram

	// Reports that carried a non-empty Bulletins section.
	BulletinsReportedTotal prometheus.Counter

	// Rate limit denials. Watch for: overload, capacity exceeded.
	RateLimitDeniedTotal prometheus.Counter

	// Cache warming runs, failed runs, and run duration.
	CacheWarmingTotal           prometheus.Counter
	CacheWarmingErrorsTotal     prometheus.Counter
	CacheWarmingDurationSeconds prometheus.Histogram

	// Reports handed to the publisher by result (success, error).
	ReportsPublishedTotal *prometheus.CounterVec

	// Upstream circuit breaker state: 0 closed, 1 half-open, 2 open.
	CircuitBreakerState *prometheus.GaugeVec

	rateLimitGaugesOnce sync.Once
)

func init() {
	registry = prometheus.NewRegistry()

	registry.MustRegister(
		collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}),
		collectors.NewGoCollector(),
	)

	HTTPRequestsTotal = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "httpRequestsTotal",
			Help: "Total number of HTTP requests",
		},
		[]string{"method", "route", "statusCode"},
	)
	HTTPRequestDuration = prometheus.NewHistogramVec(
		prometheus.HistogramOpts{
			Name:    "httpRequestDurationSeconds",
			Help:    "HTTP request latency in seconds (per request)",
			Buckets: prometheus.DefBuckets,
		},
		[]string{"method", "route"},
	)
	HTTPRequestsInFlight = prometheus.NewGauge(
		prometheus.GaugeOpts{
			Name: "httpRequestsInFlight",
			Help: "Number of HTTP requests currently being served",
		},
	)
	UpstreamCallsTotal = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "upstreamCallsTotal",
			Help: "Total number of upstream API calls",
		},
		[]string{"service", "status"},
	)
	UpstreamDuration = prometheus.NewHistogramVec(
		prometheus.HistogramOpts{
			Name:    "upstreamDurationSeconds",
			Help:    "Upstream API latency in seconds (per request)",
			Buckets: []float64{.1, .25, .5, 1, 2.5, 5, 10},
		},
		[]string{"service", "status"},
	)
	UpstreamErrorsTotal = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "upstreamErrorsTotal",
			Help: "Upstream failures by category",
		},
		[]string{"service", "category"},
	)
	CacheHitsTotal = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "cacheHitsTotal",
			Help: "Total number of cache hits",
		},
		[]string{"namespace"},
	)
	CacheMissesTotal = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "cacheMissesTotal",
			Help: "Total number of cache misses (absent or expired)",
		},
		[]string{"namespace"},
	)
	CacheErrorsTotal = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "cacheErrorsTotal",
			Help: "Cache backend errors by operation",
		},
		[]string{"operation"},
	)
	CacheCoalescedTotal = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "cacheCoalescedTotal",
			Help: "Requests served by joining an in-flight upstream fetch",
		},
		[]string{"namespace"},
	)
	CacheStampedeDetectedTotal = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "cacheStampedeDetectedTotal",
			Help: "Concurrent misses for the same key",
		},
		[]string{"namespace"},
	)
	ReportsBuiltTotal = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "reportsBuiltTotal",
			Help: "Total number of report compilations",
		},
		[]string{"result"},
	)
	ReportBuildDuration = prometheus.NewHistogram(
		prometheus.HistogramOpts{
			Name:    "reportBuildDurationSeconds",
			Help:    "Report compilation latency in seconds",
			Buckets: []float64{.005, .025, .1, .25, .5, 1, 2.5, 5, 10},
		},
	)
	BulletinsReportedTotal = prometheus.NewCounter(
		prometheus.CounterOpts{
			Name: "bulletinsReportedTotal",
			Help: "Reports that included a Bulletins section",
		},
	)
	RateLimitDeniedTotal = prometheus.NewCounter(
		prometheus.CounterOpts{
			Name: "rateLimitDeniedTotal",
			Help: "Total number of requests denied by rate limiter (429)",
		},
	)
	CacheWarmingTotal = prometheus.NewCounter(
		prometheus.CounterOpts{
			Name: "cacheWarmingTotal",
			Help: "Total number of cache warming runs",
		},
	)
	CacheWarmingErrorsTotal = prometheus.NewCounter(
		prometheus.CounterOpts{
			Name: "cacheWarmingErrorsTotal",
			Help: "Cache warming runs with at least one failed point",
		},
	)
	CacheWarmingDurationSeconds = prometheus.NewHistogram(
		prometheus.HistogramOpts{
			Name:    "cacheWarmingDurationSeconds",
			Help:    "Cache warming run duration in seconds",
			Buckets: []float64{.1, .5, 1, 2.5, 5, 10, 30},
		},
	)
	ReportsPublishedTotal = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "reportsPublishedTotal",
			Help: "Reports handed to the publisher",
		},
		[]string{"result"},
	)
	CircuitBreakerState = prometheus.NewGaugeVec(
		prometheus.GaugeOpts{
			Name: "circuitBreakerState",
			Help: "Upstream circuit breaker state (0 closed, 1 half-open, 2 open)",
		},
		[]string{"service"},
	)

	registry.MustRegister(
		HTTPRequestsTotal, HTTPRequestDuration, HTTPRequestsInFlight,
		UpstreamCallsTotal, UpstreamDuration, UpstreamErrorsTotal,
		CacheHitsTotal, CacheMissesTotal, CacheErrorsTotal,
		CacheCoalescedTotal, CacheStampedeDetectedTotal,
		ReportsBuiltTotal, ReportBuildDuration, BulletinsReportedTotal,
		RateLimitDeniedTotal,
		CacheWarmingTotal, CacheWarmingErrorsTotal, CacheWarmingDurationSeconds,
		ReportsPublishedTotal, CircuitBreakerState,
	)
}

// RegisterRateLimitGauges registers load and rejects gauges for the rate-limited path.
// Call from main after config load with cfg.OverloadWindow. Uses same window as health.
func RegisterRateLimitGauges(window time.Duration) {
	rateLimitGaugesOnce.Do(func() {
		registry.MustRegister(
			prometheus.NewGaugeFunc(
				prometheus.GaugeOpts{
					Name: "rateLimitRequestsInWindow",
					Help: "Requests hitting rate-limited path in sliding window; load/capacity planning",
				},
				func() float64 { return float64(traffic.RequestCount(window)) },
			),
			prometheus.NewGaugeFunc(
				prometheus.GaugeOpts{
					Name: "rateLimitRejectsInWindow",
					Help: "429 responses in sliding window; are we rejecting requests",
				},
				func() float64 { return float64(traffic.DenialCount(window)) },
			),
		)
	})
}

// MetricsHandler returns an http.Handler that serves application and runtime metrics.
func MetricsHandler() http.Handler {
	return promhttp.HandlerFor(registry, promhttp.HandlerOpts{})
}
