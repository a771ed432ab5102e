// Package metrics holds the Prometheus collectors for the validation service.
package metrics

import (
	"net/http"
	"strconv"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

const namespace = "rwa_directory"

var (
	// Registry holds the application-specific Prometheus collectors.
	Registry = prometheus.NewRegistry()

	validations = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: "validation",
			Name:      "runs_total",
			Help:      "Completed validation runs by resulting risk level.",
		},
		[]string{"risk_level"},
	)

	validationDuration = prometheus.NewHistogram(
		prometheus.HistogramOpts{
			Namespace: namespace,
			Subsystem: "validation",
			Name:      "duration_seconds",
			Help:      "Wall time of a full validation run.",
			Buckets:   prometheus.ExponentialBuckets(0.01, 2, 12), // 10ms to ~40s
		},
	)

	checkResults = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: "validation",
			Name:      "check_results_total",
			Help:      "Individual check verdicts.",
		},
		[]string{"check", "outcome"},
	)

	overrides = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: "validation",
			Name:      "overrides_total",
			Help:      "Manual overrides applied by reviewers.",
		},
		[]string{"check"},
	)

	discardedOverrides = prometheus.NewCounter(
		prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: "validation",
			Name:      "discarded_overrides_total",
			Help:      "Manually reviewed records replaced by a re-validation.",
		},
	)

	referenceCalls = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: "reference",
			Name:      "calls_total",
			Help:      "Outbound reference-service calls by service and result.",
		},
		[]string{"service", "result"},
	)

	httpRequests = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: "http",
			Name:      "requests_total",
			Help:      "Total number of HTTP requests handled.",
		},
		[]string{"method", "route", "status"},
	)

	httpDuration = prometheus.NewHistogramVec(
		prometheus.HistogramOpts{
			Namespace: namespace,
			Subsystem: "http",
			Name:      "request_duration_seconds",
			Help:      "Duration of HTTP requests.",
			Buckets:   prometheus.ExponentialBuckets(0.005, 2, 10), // 5ms to ~5s
		},
		[]string{"method", "route"},
	)
)

func init() {
	Registry.MustRegister(
		collectors.NewGoCollector(),
		collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}),
		validations,
		validationDuration,
		checkResults,
		overrides,
		discardedOverrides,
		referenceCalls,
		httpRequests,
		httpDuration,
	)
}

// Handler exposes the registry for scraping.
func Handler() http.Handler {
	return promhttp.HandlerFor(Registry, promhttp.HandlerOpts{})
}

func RecordValidation(riskLevel string, d time.Duration) {
	validations.WithLabelValues(riskLevel).Inc()
	validationDuration.Observe(d.Seconds())
}

// RecordCheck counts a verdict; outcome is "pass", "fail" or "inconclusive".
func RecordCheck(check, outcome string) {
	checkResults.WithLabelValues(check, outcome).Inc()
}

func RecordOverride(check string) {
	overrides.WithLabelValues(check).Inc()
}

func RecordDiscardedOverride() {
	discardedOverrides.Inc()
}

// RecordReferenceCall counts an outbound call; result is "ok", "unavailable" or "error".
func RecordReferenceCall(service, result string) {
	referenceCalls.WithLabelValues(service, result).Inc()
}

func RecordHTTPRequest(method, route string, status int, d time.Duration) {
	httpRequests.WithLabelValues(method, route, strconv.Itoa(status)).Inc()
	httpDuration.WithLabelValues(method, route).Observe(d.Seconds())
}
