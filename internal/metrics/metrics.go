package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

var (
	RequestsTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "chatgateway_requests_total",
			Help: "Total number of chat requests processed",
		},
		[]string{"integration", "model", "status"},
	)

	RequestDuration = promauto.NewHistogramVec(
		prometheus.HistogramOpts{
			Name:    "chatgateway_request_duration_seconds",
			Help:    "Chat request duration in seconds",
			Buckets: []float64{0.1, 0.25, 0.5, 1, 2.5, 5, 10, 30, 60},
		},
		[]string{"integration", "model"},
	)

	TokensTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "chatgateway_tokens_total",
			Help: "Total number of tokens processed",
		},
		[]string{"integration", "model", "type"},
	)

	QuotaDegradedTotal = promauto.NewCounter(
		prometheus.CounterOpts{
			Name: "chatgateway_quota_degraded_total",
			Help: "Requests served by an over-quota model because every quota was exhausted",
		},
	)

	ConnectorErrors = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "chatgateway_connector_errors_total",
			Help: "Total number of connector errors",
		},
		[]string{"integration", "error_type"},
	)

	ConversationsCreated = promauto.NewCounter(
		prometheus.CounterOpts{
			Name: "chatgateway_conversations_created_total",
			Help: "Total number of conversations created",
		},
	)
)

func RecordRequest(integration, model, status string, durationSec float64) {
	RequestsTotal.WithLabelValues(integration, model, status).Inc()
	RequestDuration.WithLabelValues(integration, model).Observe(durationSec)
}

func RecordTokens(integration, model string, promptTokens, completionTokens int) {
	TokensTotal.WithLabelValues(integration, model, "prompt").Add(float64(promptTokens))
	TokensTotal.WithLabelValues(integration, model, "completion").Add(float64(completionTokens))
}

func RecordConnectorError(integration, errorType string) {
	ConnectorErrors.WithLabelValues(integration, errorType).Inc()
}
