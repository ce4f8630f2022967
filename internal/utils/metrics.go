// internal/utils/metrics.go
package utils

import (
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

var (
	llmRequestsTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "sora_prompt_llm_requests_total",
			Help: "Total number of requests to the generative-text API.",
		},
		[]string{"provider", "model", "operation", "status"},
	)
	llmRequestDuration = promauto.NewHistogramVec(
		prometheus.HistogramOpts{
			Name:    "sora_prompt_llm_request_duration_seconds",
			Help:    "Histogram of generative-text API request durations.",
			Buckets: prometheus.DefBuckets,
		},
		[]string{"provider", "model", "operation"},
	)
	llmTokens = promauto.NewHistogramVec(
		prometheus.HistogramOpts{
			Name:    "sora_prompt_llm_tokens",
			Help:    "Histogram of prompt and output token counts.",
			Buckets: prometheus.ExponentialBuckets(16, 2, 12),
		},
		[]string{"provider", "model", "kind"},
	)
	promptCompilationsTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "sora_prompt_compilations_total",
			Help: "Total number of scene list compilations by format and result.",
		},
		[]string{"format", "result"},
	)
	activeSessions = promauto.NewGauge(prometheus.GaugeOpts{
		Name: "sora_prompt_active_sessions",
		Help: "Number of workspace sessions held in memory.",
	})
)

// ObserveLLMRequest records one outbound request. status is "success",
// "credential_error" or "service_error".
func ObserveLLMRequest(provider, model, operation, status string, duration time.Duration) {
	llmRequestsTotal.With(prometheus.Labels{
		"provider": provider, "model": model, "operation": operation, "status": status,
	}).Inc()
	llmRequestDuration.With(prometheus.Labels{
		"provider": provider, "model": model, "operation": operation,
	}).Observe(duration.Seconds())
}

// ObserveTokens records token usage reported by the provider.
func ObserveTokens(provider, model string, promptTokens, outputTokens int) {
	if promptTokens > 0 {
		llmTokens.With(prometheus.Labels{"provider": provider, "model": model, "kind": "prompt"}).Observe(float64(promptTokens))
	}
	if outputTokens > 0 {
		llmTokens.With(prometheus.Labels{"provider": provider, "model": model, "kind": "output"}).Observe(float64(outputTokens))
	}
}

// ObserveCompilation records a prompt compilation.
func ObserveCompilation(format string, ok bool) {
	result := "success"
	if !ok {
		result = "validation_error"
	}
	promptCompilationsTotal.With(prometheus.Labels{"format": format, "result": result}).Inc()
}

// SetActiveSessions updates the session gauge.
func SetActiveSessions(n int) {
	activeSessions.Set(float64(n))
}
