package metrics

import "github.com/prometheus/client_golang/prometheus"

// Chat provider Prometheus metrics.
var (
	ChatRequestsTotal = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: "busantable",
			Name:      "chat_requests_total",
			Help:      "Total number of chat completion requests",
		},
		[]string{"provider", "model", "status"},
	)

	ChatRequestDuration = prometheus.NewHistogramVec(
		prometheus.HistogramOpts{
			Namespace: "busantable",
			Name:      "chat_request_duration_seconds",
			Help:      "Chat completion request duration in seconds",
			Buckets:   []float64{0.25, 0.5, 1, 2.5, 5, 10, 20, 30},
		},
		[]string{"provider", "model"},
	)

	ChatTokensTotal = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: "busantable",
			Name:      "chat_tokens_total",
			Help:      "Total chat tokens consumed",
		},
		[]string{"provider", "model", "type"},
	)

	ChatErrorsTotal = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: "busantable",
			Name:      "chat_errors_total",
			Help:      "Total chat provider errors",
		},
		[]string{"provider", "model", "error_type"},
	)

	ChatFallbacksTotal = prometheus.NewCounter(
		prometheus.CounterOpts{
			Namespace: "busantable",
			Name:      "chat_fallbacks_total",
			Help:      "Conversation turns answered by the canned fallback",
		},
	)
)

var chatMetricsRegistered bool

// RegisterChatMetrics registers chat Prometheus metrics. Must be called once from main.
func RegisterChatMetrics() {
	if chatMetricsRegistered {
		return
	}
	prometheus.MustRegister(ChatRequestsTotal)
	prometheus.MustRegister(ChatRequestDuration)
	prometheus.MustRegister(ChatTokensTotal)
	prometheus.MustRegister(ChatErrorsTotal)
	prometheus.MustRegister(ChatFallbacksTotal)
	chatMetricsRegistered = true
}
