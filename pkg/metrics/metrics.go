// Package metrics provides Prometheus metrics instrumentation.
package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

var (
	// RequestDuration tracks HTTP request duration.
	RequestDuration = promauto.NewHistogramVec(
		prometheus.HistogramOpts{
			Name:    "api_request_duration_seconds",
			Help:    "HTTP request duration in seconds",
			Buckets: []float64{.005, .01, .025, .05, .1, .25, .5, 1, 2.5, 5, 10, 30, 60},
		},
		[]string{"method", "path", "status"},
	)

	// RequestsTotal tracks total HTTP requests.
	RequestsTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "api_requests_total",
			Help: "Total HTTP requests",
		},
		[]string{"method", "path", "status"},
	)

	// ChatExchangesTotal counts finished chat exchanges by outcome code.
	ChatExchangesTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "chat_exchanges_total",
			Help: "Total chat exchanges by outcome",
		},
		[]string{"outcome"},
	)

	// ChatExchangeDuration tracks wall-clock time from thread creation to final answer.
	ChatExchangeDuration = promauto.NewHistogramVec(
		prometheus.HistogramOpts{
			Name:    "chat_exchange_duration_seconds",
			Help:    "Chat exchange duration in seconds",
			Buckets: []float64{1, 2, 5, 10, 20, 30, 45, 60, 90, 120},
		},
		[]string{"outcome"},
	)

	// ActiveRuns tracks runs currently being driven by this process.
	ActiveRuns = promauto.NewGauge(
		prometheus.GaugeOpts{
			Name: "assistant_active_runs",
			Help: "Number of runs currently being polled",
		},
	)

	// RunPollsTotal counts run status retrievals by observed status.
	RunPollsTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "assistant_run_polls_total",
			Help: "Total run status polls by observed status",
		},
		[]string{"status"},
	)

	// ThreadCreateRetriesTotal counts retried thread creation attempts.
	ThreadCreateRetriesTotal = promauto.NewCounter(
		prometheus.CounterOpts{
			Name: "assistant_thread_create_retries_total",
			Help: "Total retried thread creation attempts",
		},
	)

	// ToolCallsTotal counts dispatched tool calls by tool and outcome.
	ToolCallsTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "assistant_tool_calls_total",
			Help: "Total tool calls dispatched by tool and outcome",
		},
		[]string{"tool", "outcome"},
	)

	// QueryDuration tracks data store query duration.
	QueryDuration = promauto.NewHistogramVec(
		prometheus.HistogramOpts{
			Name:    "datastore_query_duration_seconds",
			Help:    "Analytical query duration in seconds",
			Buckets: []float64{.1, .25, .5, 1, 2.5, 5, 10, 20, 40},
		},
		[]string{"outcome"},
	)

	// QueryRejectionsTotal counts statements blocked by the mutation denylist.
	QueryRejectionsTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "datastore_query_rejections_total",
			Help: "Statements rejected by the read-only guard",
		},
		[]string{"keyword"},
	)
)

// RecordRequest records metrics for an HTTP request.
func RecordRequest(method, path, status string, duration float64) {
	RequestDuration.WithLabelValues(method, path, status).Observe(duration)
	RequestsTotal.WithLabelValues(method, path, status).Inc()
}

// RecordExchange records the outcome of one chat exchange.
func RecordExchange(outcome string, duration float64) {
	ChatExchangesTotal.WithLabelValues(outcome).Inc()
	ChatExchangeDuration.WithLabelValues(outcome).Observe(duration)
}

// RecordToolCall records one dispatched tool call.
func RecordToolCall(tool, outcome string) {
	ToolCallsTotal.WithLabelValues(tool, outcome).Inc()
}

// RecordQuery records one data store query.
func RecordQuery(outcome string, duration float64) {
	QueryDuration.WithLabelValues(outcome).Observe(duration)
}
