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

	// LLMCallDuration tracks language model call duration.
	LLMCallDuration = promauto.NewHistogramVec(
		prometheus.HistogramOpts{
			Name:    "llm_call_duration_seconds",
			Help:    "Language model call duration",
			Buckets: []float64{.25, .5, 1, 2, 5, 10, 20, 30, 60, 120},
		},
		[]string{"model", "step", "status"},
	)

	// LLMTokensTotal tracks total LLM tokens processed.
	LLMTokensTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "llm_tokens_total",
			Help: "Total LLM tokens processed",
		},
		[]string{"model", "direction"},
	)

	// RetrievalDuration tracks similarity search duration.
	RetrievalDuration = promauto.NewHistogramVec(
		prometheus.HistogramOpts{
			Name:    "retrieval_duration_seconds",
			Help:    "Course index similarity search duration",
			Buckets: []float64{.005, .01, .025, .05, .1, .25, .5, 1, 2.5},
		},
		[]string{"status"},
	)

	// BranchesTotal counts which branch handled each turn.
	BranchesTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "tutor_branches_total",
			Help: "Turns handled per branch",
		},
		[]string{"mode"},
	)

	// TurnsTotal counts completed and failed chat turns.
	TurnsTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "tutor_turns_total",
			Help: "Chat turns by outcome",
		},
		[]string{"status"},
	)

	// JournalErrorsTotal counts interaction log write failures.
	JournalErrorsTotal = promauto.NewCounter(
		prometheus.CounterOpts{
			Name: "journal_errors_total",
			Help: "Interaction log append failures",
		},
	)
)

// RecordRequest records metrics for an HTTP request.
func RecordRequest(method, path, status string, duration float64) {
	RequestDuration.WithLabelValues(method, path, status).Observe(duration)
	RequestsTotal.WithLabelValues(method, path, status).Inc()
}

// RecordLLMCall records metrics for one language model completion.
func RecordLLMCall(model, step, status string, duration float64, tokensIn, tokensOut int) {
	LLMCallDuration.WithLabelValues(model, step, status).Observe(duration)
	if tokensIn > 0 {
		LLMTokensTotal.WithLabelValues(model, "in").Add(float64(tokensIn))
	}
	if tokensOut > 0 {
		LLMTokensTotal.WithLabelValues(model, "out").Add(float64(tokensOut))
	}
}

// RecordRetrieval records a similarity search.
func RecordRetrieval(status string, duration float64) {
	RetrievalDuration.WithLabelValues(status).Observe(duration)
}

// RecordBranch counts the branch selected for a turn.
func RecordBranch(mode string) {
	BranchesTotal.WithLabelValues(mode).Inc()
}

// RecordTurn counts a finished chat turn.
func RecordTurn(status string) {
	TurnsTotal.WithLabelValues(status).Inc()
}
