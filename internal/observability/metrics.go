package observability

import (
	"sync"

	"github.com/prometheus/client_golang/prometheus"
)

var (
	registerOnce        sync.Once
	httpRequestsTotal   *prometheus.CounterVec
	httpLatencySeconds  *prometheus.HistogramVec
	sessionsTotal       *prometheus.CounterVec
	taskOutcomesTotal   *prometheus.CounterVec
	taskDurationSeconds *prometheus.HistogramVec
	wsConnectionsTotal  prometheus.Counter
)

// RegisterMetrics initialises the Prometheus collectors used across the
// evaluation service.
func RegisterMetrics() {
	registerOnce.Do(func() {
		httpRequestsTotal = prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: "uima",
			Name:      "http_requests_total",
			Help:      "Total number of HTTP requests served.",
		}, []string{"method", "route", "status"})

		httpLatencySeconds = prometheus.NewHistogramVec(prometheus.HistogramOpts{
			Namespace: "uima",
			Name:      "http_latency_seconds",
			Help:      "Latency distribution for HTTP requests.",
			Buckets:   []float64{0.005, 0.01, 0.025, 0.05, 0.1, 0.25, 0.5, 1.0},
		}, []string{"method", "route"})

		sessionsTotal = prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: "uima",
			Name:      "sessions_total",
			Help:      "Evaluation sessions by terminal state.",
		}, []string{"state"})

		taskOutcomesTotal = prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: "uima",
			Name:      "task_outcomes_total",
			Help:      "Evaluation task completions by metric and outcome.",
		}, []string{"metric", "outcome"})

		taskDurationSeconds = prometheus.NewHistogramVec(prometheus.HistogramOpts{
			Namespace: "uima",
			Name:      "task_duration_seconds",
			Help:      "Duration distribution of metric evaluations.",
			Buckets:   []float64{0.01, 0.05, 0.1, 0.5, 1, 5, 15, 60},
		}, []string{"metric"})

		wsConnectionsTotal = prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: "uima",
			Name:      "ws_connections_total",
			Help:      "Total accepted evaluation websocket connections.",
		})

		prometheus.MustRegister(
			httpRequestsTotal,
			httpLatencySeconds,
			sessionsTotal,
			taskOutcomesTotal,
			taskDurationSeconds,
			wsConnectionsTotal,
		)
	})
}

// HTTPRequests exposes the request counter.
func HTTPRequests() *prometheus.CounterVec {
	RegisterMetrics()
	return httpRequestsTotal
}

// HTTPLatency exposes the request latency histogram.
func HTTPLatency() *prometheus.HistogramVec {
	RegisterMetrics()
	return httpLatencySeconds
}

// Sessions exposes the session counter.
func Sessions() *prometheus.CounterVec {
	RegisterMetrics()
	return sessionsTotal
}

// TaskOutcomes exposes the task outcome counter.
func TaskOutcomes() *prometheus.CounterVec {
	RegisterMetrics()
	return taskOutcomesTotal
}

// TaskDuration exposes the task duration histogram.
func TaskDuration() *prometheus.HistogramVec {
	RegisterMetrics()
	return taskDurationSeconds
}

// WSConnections exposes the websocket connection counter.
func WSConnections() prometheus.Counter {
	RegisterMetrics()
	return wsConnectionsTotal
}
