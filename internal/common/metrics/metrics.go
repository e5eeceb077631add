package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

var (
	GenerationsCompleted = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "script_generations_completed_total",
			Help: "Total number of successfully generated scripts",
		},
		[]string{"content_type", "styled"},
	)

	GenerationsFailed = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "script_generations_failed_total",
			Help: "Total number of failed generation requests",
		},
		[]string{"error_code"},
	)

	GenerationDuration = promauto.NewHistogramVec(
		prometheus.HistogramOpts{
			Name: "script_generation_duration_seconds",
			Help: "End-to-end generation duration in seconds",
		},
		[]string{"content_type"},
	)

	StyleAnalysesSwallowed = promauto.NewCounter(
		prometheus.CounterOpts{
			Name: "style_analyses_swallowed_total",
			Help: "Style analysis failures recovered by the fail-open policy",
		},
	)

	ProviderCalls = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "completion_provider_calls_total",
			Help: "Completion provider calls by backend and outcome",
		},
		[]string{"backend", "outcome"},
	)

	QuotaRejections = promauto.NewCounter(
		prometheus.CounterOpts{
			Name: "quota_rejections_total",
			Help: "Generation requests rejected by the free-tier quota",
		},
	)

	WebhookEvents = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "billing_webhook_events_total",
			Help: "Stripe webhook events by type and outcome",
		},
		[]string{"event_type", "outcome"},
	)
)
