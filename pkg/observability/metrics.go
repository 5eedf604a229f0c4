// Package observability provides Prometheus metrics and HTTP middleware
// for monitoring the dozent service.
package observability

import "github.com/prometheus/client_golang/prometheus"

// LLMBuckets defines histogram buckets suited for LLM inference latencies,
// ranging from 100ms to 120s.
var LLMBuckets = []float64{0.1, 0.5, 1, 2, 5, 10, 30, 60, 120}

var (
	// RequestsTotal counts all HTTP requests by method, path, and status class.
	RequestsTotal = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "dozent_requests_total",
			Help: "Total HTTP requests",
		},
		[]string{"method", "path", "status"},
	)

	// RequestDuration records HTTP request duration in seconds by method and path.
	RequestDuration = prometheus.NewHistogramVec(
		prometheus.HistogramOpts{
			Name:    "dozent_request_duration_seconds",
			Help:    "Request duration",
			Buckets: LLMBuckets,
		},
		[]string{"method", "path"},
	)

	// ModelRequestsTotal counts requests sent to the model backend.
	ModelRequestsTotal = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "dozent_model_requests_total",
			Help: "Model backend requests",
		},
		[]string{"provider", "model", "status"},
	)

	// ModelLatency records model backend latency in seconds.
	ModelLatency = prometheus.NewHistogramVec(
		prometheus.HistogramOpts{
			Name:    "dozent_model_latency_seconds",
			Help:    "Model backend latency",
			Buckets: LLMBuckets,
		},
		[]string{"provider", "model"},
	)

	// ModelTokensTotal counts tokens processed by direction (input/output).
	ModelTokensTotal = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "dozent_model_tokens_total",
			Help: "Token count",
		},
		[]string{"provider", "model", "direction"},
	)

	// ToolExecutionsTotal counts tool executions by name and outcome.
	ToolExecutionsTotal = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "dozent_tool_executions_total",
			Help: "Tool executions",
		},
		[]string{"tool_name", "status"},
	)

	// GenerationRounds records the number of tool rounds per exchange.
	GenerationRounds = prometheus.NewHistogram(
		prometheus.HistogramOpts{
			Name:    "dozent_generation_rounds",
			Help:    "Tool-execution rounds per exchange",
			Buckets: []float64{0, 1, 2, 3, 5, 10},
		},
	)

	// SearchesTotal counts vector store searches by outcome.
	SearchesTotal = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "dozent_searches_total",
			Help: "Vector store searches",
		},
		[]string{"status"},
	)

	// IngestedChunksTotal counts document chunks written to the vector store.
	IngestedChunksTotal = prometheus.NewCounter(
		prometheus.CounterOpts{
			Name: "dozent_ingested_chunks_total",
			Help: "Ingested document chunks",
		},
	)
)

func init() {
	prometheus.MustRegister(
		RequestsTotal,
		RequestDuration,
		ModelRequestsTotal,
		ModelLatency,
		ModelTokensTotal,
		ToolExecutionsTotal,
		GenerationRounds,
		SearchesTotal,
		IngestedChunksTotal,
	)
}
