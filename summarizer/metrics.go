package summarizer

import (
	"net/http"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

var (
	// Request metrics
	requestsTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "summarizer_requests_total",
			Help: "Total number of provider requests by outcome",
		},
		[]string{"status", "provider"},
	)

	requestDuration = promauto.NewHistogramVec(
		prometheus.HistogramOpts{
			Name:    "summarizer_request_duration_seconds",
			Help:    "Duration of provider requests in seconds",
			Buckets: prometheus.DefBuckets,
		},
		[]string{"provider"},
	)

	// Batch metrics
	batchSize = promauto.NewHistogram(
		prometheus.HistogramOpts{
			Name:    "summarizer_batch_size",
			Help:    "Number of documents per batch",
			Buckets: []float64{1, 2, 5, 10, 20, 50, 100, 200},
		},
	)

	documentsTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "summarizer_documents_total",
			Help: "Total number of documents processed by final status",
		},
		[]string{"status"},
	)

	// Error and retry metrics
	errorsTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "summarizer_errors_total",
			Help: "Total number of failed provider attempts by error kind",
		},
		[]string{"kind"},
	)

	retriesTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "summarizer_retries_total",
			Help: "Total number of retries by triggering error kind",
		},
		[]string{"kind"},
	)

	// Rate limiter metrics
	rateLimitWaits = promauto.NewHistogram(
		prometheus.HistogramOpts{
			Name:    "summarizer_rate_limit_wait_seconds",
			Help:    "Time tasks spent waiting on the rate limiter",
			Buckets: prometheus.DefBuckets,
		},
	)

	// Concurrency metrics
	inFlightRequests = promauto.NewGauge(
		prometheus.GaugeOpts{
			Name: "summarizer_in_flight_requests",
			Help: "Number of provider requests currently in flight",
		},
	)

	// Token metrics
	promptTokens = promauto.NewCounter(
		prometheus.CounterOpts{
			Name: "summarizer_prompt_tokens_total",
			Help: "Estimated number of prompt tokens sent to providers",
		},
	)

	// Circuit breaker metrics
	breakerState = promauto.NewGaugeVec(
		prometheus.GaugeOpts{
			Name: "summarizer_circuit_breaker_state",
			Help: "Current circuit breaker state (0=closed, 1=half-open, 2=open)",
		},
		[]string{"name"},
	)
)

// MetricsRecorder records Prometheus metrics when enabled and is a no-op
// otherwise, so callers never need to guard call sites.
type MetricsRecorder struct {
	enabled bool
}

// NewMetricsRecorder creates a metrics recorder.
func NewMetricsRecorder(enabled bool) *MetricsRecorder {
	return &MetricsRecorder{enabled: enabled}
}

// RecordRequest records one provider attempt's outcome.
func (m *MetricsRecorder) RecordRequest(status string, provider string) {
	if !m.enabled {
		return
	}
	requestsTotal.WithLabelValues(status, provider).Inc()
}

// RecordRequestDuration records a provider attempt's duration.
func (m *MetricsRecorder) RecordRequestDuration(seconds float64, provider string) {
	if !m.enabled {
		return
	}
	requestDuration.WithLabelValues(provider).Observe(seconds)
}

// RecordBatchSize records the size of a submitted batch.
func (m *MetricsRecorder) RecordBatchSize(size int) {
	if !m.enabled {
		return
	}
	batchSize.Observe(float64(size))
}

// RecordDocument records a document's final status.
func (m *MetricsRecorder) RecordDocument(status Status) {
	if !m.enabled {
		return
	}
	documentsTotal.WithLabelValues(string(status)).Inc()
}

// RecordError records a failed attempt by error kind.
func (m *MetricsRecorder) RecordError(kind ErrorKind) {
	if !m.enabled {
		return
	}
	errorsTotal.WithLabelValues(string(kind)).Inc()
}

// RecordRetry records a retry and the kind that triggered it.
func (m *MetricsRecorder) RecordRetry(kind ErrorKind) {
	if !m.enabled {
		return
	}
	retriesTotal.WithLabelValues(string(kind)).Inc()
}

// RecordRateLimitWait records time spent blocked on the rate limiter.
func (m *MetricsRecorder) RecordRateLimitWait(seconds float64) {
	if !m.enabled {
		return
	}
	rateLimitWaits.Observe(seconds)
}

// RecordInFlight adjusts the in-flight request gauge.
func (m *MetricsRecorder) RecordInFlight(delta float64) {
	if !m.enabled {
		return
	}
	inFlightRequests.Add(delta)
}

// RecordPromptSize estimates and records the token size of one prompt.
// Estimation is skipped entirely when metrics are disabled.
func (m *MetricsRecorder) RecordPromptSize(prompt string) {
	if !m.enabled {
		return
	}
	promptTokens.Add(float64(estimateTokens(prompt)))
}

// RecordBreakerState records a circuit breaker state transition.
func (m *MetricsRecorder) RecordBreakerState(name string, state int) {
	if !m.enabled {
		return
	}
	breakerState.WithLabelValues(name).Set(float64(state))
}

// GetMetricsHandler returns an HTTP handler exposing the Prometheus metrics.
func GetMetricsHandler() http.Handler {
	return promhttp.Handler()
}
