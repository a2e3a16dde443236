// Package observability provides Prometheus metrics and HTTP middleware for
// monitoring the gateway.
package observability

import (
	"strconv"
	"time"

	"github.com/prometheus/client_golang/prometheus"
)

// LLMBuckets defines histogram buckets suited for LLM inference latencies,
// ranging from 100ms to 120s.
var LLMBuckets = []float64{0.1, 0.5, 1, 2, 5, 10, 30, 60, 120}

var (
	// RequestsTotal counts all HTTP requests by method, status class, and
	// route group.
	RequestsTotal = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "modelgate_requests_total",
			Help: "Total requests",
		},
		[]string{"method", "status", "route"},
	)

	// RequestDuration records HTTP request duration in seconds by method and
	// route group.
	RequestDuration = prometheus.NewHistogramVec(
		prometheus.HistogramOpts{
			Name:    "modelgate_request_duration_seconds",
			Help:    "Request duration",
			Buckets: LLMBuckets,
		},
		[]string{"method", "route"},
	)

	// StreamingConnections tracks the number of in-flight streaming responses.
	StreamingConnections = prometheus.NewGauge(
		prometheus.GaugeOpts{
			Name: "modelgate_streaming_connections_active",
			Help: "Active streaming connections",
		},
	)

	// ProviderRequestsTotal counts calls sent to upstream providers.
	ProviderRequestsTotal = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "modelgate_provider_requests_total",
			Help: "Provider requests",
		},
		[]string{"provider", "model", "status"},
	)

	// ProviderLatency records upstream call latency in seconds.
	ProviderLatency = prometheus.NewHistogramVec(
		prometheus.HistogramOpts{
			Name:    "modelgate_provider_latency_seconds",
			Help:    "Provider latency",
			Buckets: LLMBuckets,
		},
		[]string{"provider", "model"},
	)

	// ProviderTokensTotal counts tokens processed by direction (input/output).
	ProviderTokensTotal = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "modelgate_provider_tokens_total",
			Help: "Token count",
		},
		[]string{"provider", "model", "direction"},
	)
)

func init() {
	prometheus.MustRegister(
		RequestsTotal,
		RequestDuration,
		StreamingConnections,
		ProviderRequestsTotal,
		ProviderLatency,
		ProviderTokensTotal,
	)
}

// ObserveProvider records one upstream call outcome: count, latency, and any
// token usage that was reported or estimated.
func ObserveProvider(provider, model string, status int, duration time.Duration, promptTokens, completionTokens int) {
	ProviderRequestsTotal.WithLabelValues(provider, model, statusClass(status)).Inc()
	ProviderLatency.WithLabelValues(provider, model).Observe(duration.Seconds())
	if promptTokens > 0 {
		ProviderTokensTotal.WithLabelValues(provider, model, "input").Add(float64(promptTokens))
	}
	if completionTokens > 0 {
		ProviderTokensTotal.WithLabelValues(provider, model, "output").Add(float64(completionTokens))
	}
}

// statusClass renders a status code as its class label, like "2xx".
func statusClass(status int) string {
	return strconv.Itoa(status/100) + "xx"
}
