// Package observability provides Prometheus metrics and HTTP middleware
// for monitoring the vergleich gateway.
package observability

import (
	"errors"
	"net/http"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"github.com/MewOmOrphic-418/AliYunDashScopeIntegration/pkg/api"
)

// LLMBuckets defines histogram buckets suited for LLM inference latencies,
// ranging from 100ms to 120s.
var LLMBuckets = []float64{0.1, 0.5, 1, 2, 5, 10, 30, 60, 120}

var (
	// RequestsTotal counts all HTTP requests by method, route pattern and
	// status class.
	RequestsTotal = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "vergleich_requests_total",
			Help: "Total requests",
		},
		[]string{"method", "route", "status"},
	)

	// RequestDuration records HTTP request duration in seconds by method and
	// route pattern.
	RequestDuration = prometheus.NewHistogramVec(
		prometheus.HistogramOpts{
			Name:    "vergleich_request_duration_seconds",
			Help:    "Request duration",
			Buckets: LLMBuckets,
		},
		[]string{"method", "route"},
	)

	// ProviderRequestsTotal counts calls sent to a provider by operation
	// (chat, embed) and outcome (success or the error type).
	ProviderRequestsTotal = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "vergleich_provider_requests_total",
			Help: "Provider requests",
		},
		[]string{"provider", "operation", "status"},
	)

	// ProviderLatency records provider latency in seconds.
	ProviderLatency = prometheus.NewHistogramVec(
		prometheus.HistogramOpts{
			Name:    "vergleich_provider_latency_seconds",
			Help:    "Provider latency",
			Buckets: LLMBuckets,
		},
		[]string{"provider", "operation"},
	)

	// ProviderTokensTotal counts tokens processed by direction (input/output).
	ProviderTokensTotal = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "vergleich_provider_tokens_total",
			Help: "Token count",
		},
		[]string{"provider", "model", "direction"},
	)

	// ComparisonOutcomesTotal counts comparator runs by kind (chat,
	// embedding) and outcome (both_ok, partial, both_failed).
	ComparisonOutcomesTotal = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "vergleich_comparison_outcomes_total",
			Help: "Comparison outcomes",
		},
		[]string{"kind", "outcome"},
	)

	// GateRejectionsTotal counts requests short-circuited by the
	// configuration validation gate.
	GateRejectionsTotal = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "vergleich_gate_rejections_total",
			Help: "Configuration gate rejections",
		},
		[]string{"policy"},
	)
)

func init() {
	prometheus.MustRegister(
		RequestsTotal,
		RequestDuration,
		ProviderRequestsTotal,
		ProviderLatency,
		ProviderTokensTotal,
		ComparisonOutcomesTotal,
		GateRejectionsTotal,
	)
}

// Handler returns the HTTP handler serving the default registry.
func Handler() http.Handler {
	return promhttp.Handler()
}

// ProviderStatus returns the status label for a provider call outcome:
// "success" for a nil error, otherwise the error type.
func ProviderStatus(err error) string {
	if err == nil {
		return "success"
	}
	var apiErr *api.APIError
	if errors.As(err, &apiErr) {
		return string(apiErr.Type)
	}
	return string(api.ErrorTypeServerError)
}

// RecordProviderCall records the request counter and latency for one
// provider call.
func RecordProviderCall(provider, operation string, duration time.Duration, err error) {
	ProviderRequestsTotal.WithLabelValues(provider, operation, ProviderStatus(err)).Inc()
	ProviderLatency.WithLabelValues(provider, operation).Observe(duration.Seconds())
}

// RecordTokens adds token usage for a completed chat call.
func RecordTokens(provider, model string, usage api.Usage) {
	ProviderTokensTotal.WithLabelValues(provider, model, "input").Add(float64(usage.InputTokens))
	ProviderTokensTotal.WithLabelValues(provider, model, "output").Add(float64(usage.OutputTokens))
}
