// Package metrics exposes the operator metrics spec §6 names:
// healings_total, healings_success_total, healing_duration_seconds,
// llm_requests_total, llm_latency_seconds.
package metrics

import (
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

var (
	HealingsTotal = promauto.NewCounter(prometheus.CounterOpts{
		Name: "recist_healings_total",
		Help: "Total number of incidents that reached a terminal phase.",
	})

	HealingsSuccessTotal = promauto.NewCounter(prometheus.CounterOpts{
		Name: "recist_healings_success_total",
		Help: "Total number of incidents that completed with outcome.success=true.",
	})

	HealingDurationSeconds = promauto.NewHistogram(prometheus.HistogramOpts{
		Name:    "recist_healing_duration_seconds",
		Help:    "Time from incident start to terminal phase.",
		Buckets: prometheus.ExponentialBuckets(1, 2, 12), // 1s..2048s
	})

	LLMRequestsTotal = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "recist_llm_requests_total",
		Help: "Total number of language-model requests, by provider.",
	}, []string{"provider"})

	LLMLatencySeconds = promauto.NewHistogramVec(prometheus.HistogramOpts{
		Name:    "recist_llm_latency_seconds",
		Help:    "Language-model request latency, by provider.",
		Buckets: prometheus.DefBuckets,
	}, []string{"provider"})
)

// RecordHealing records one incident's terminal outcome and duration.
func RecordHealing(success bool, duration time.Duration) {
	HealingsTotal.Inc()
	if success {
		HealingsSuccessTotal.Inc()
	}
	HealingDurationSeconds.Observe(duration.Seconds())
}

// RecordLLMRequest records one language-model call's latency.
func RecordLLMRequest(provider string, duration time.Duration) {
	LLMRequestsTotal.WithLabelValues(provider).Inc()
	LLMLatencySeconds.WithLabelValues(provider).Observe(duration.Seconds())
}
