package metrics

import "github.com/prometheus/client_golang/prometheus"

// Embedding, chat and tool Prometheus metrics.
var (
	EmbeddingRequestsTotal = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: "retaildex",
			Name:      "embedding_requests_total",
			Help:      "Total number of embedding requests",
		},
		[]string{"model", "status"},
	)

	EmbeddingRequestDuration = prometheus.NewHistogramVec(
		prometheus.HistogramOpts{
			Namespace: "retaildex",
			Name:      "embedding_request_duration_seconds",
			Help:      "Embedding request duration in seconds",
			Buckets:   []float64{0.05, 0.1, 0.25, 0.5, 1, 2.5, 5, 10},
		},
		[]string{"model"},
	)

	EmbeddingTokensTotal = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: "retaildex",
			Name:      "embedding_tokens_total",
			Help:      "Total embedding tokens consumed",
		},
		[]string{"model", "type"},
	)

	EmbeddingCacheTotal = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: "retaildex",
			Name:      "embedding_cache_total",
			Help:      "Embedding cache hits and misses",
		},
		[]string{"result"}, // "hit" / "miss"
	)

	ChatCompletionsTotal = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: "retaildex",
			Name:      "chat_completions_total",
			Help:      "Total number of chat completion requests",
		},
		[]string{"model", "status"},
	)

	ChatTokensTotal = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: "retaildex",
			Name:      "chat_tokens_total",
			Help:      "Total chat completion tokens consumed",
		},
		[]string{"model", "type"},
	)

	ToolExecutionsTotal = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: "retaildex",
			Name:      "tool_executions_total",
			Help:      "Total number of executed tool calls",
		},
		[]string{"tool", "status"},
	)

	ToolExecutionDuration = prometheus.NewHistogramVec(
		prometheus.HistogramOpts{
			Namespace: "retaildex",
			Name:      "tool_execution_duration_seconds",
			Help:      "Tool execution duration in seconds",
			Buckets:   []float64{0.005, 0.01, 0.05, 0.1, 0.25, 0.5, 1, 2.5, 5},
		},
		[]string{"tool"},
	)
)

var registered bool

// Register registers all retaildex metrics. Must be called once from main.
func Register() {
	if registered {
		return
	}
	prometheus.MustRegister(EmbeddingRequestsTotal)
	prometheus.MustRegister(EmbeddingRequestDuration)
	prometheus.MustRegister(EmbeddingTokensTotal)
	prometheus.MustRegister(EmbeddingCacheTotal)
	prometheus.MustRegister(ChatCompletionsTotal)
	prometheus.MustRegister(ChatTokensTotal)
	prometheus.MustRegister(ToolExecutionsTotal)
	prometheus.MustRegister(ToolExecutionDuration)
	registered = true
}
