package service

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

var (
	priceTierTotal = promauto.NewCounterVec(prometheus.CounterOpts{
		Namespace: "advisor",
		Name:      "price_tier_total",
		Help:      "Price tier attempts by tier and result.",
	}, []string{"tier", "result"})

	aiCallTotal = promauto.NewCounterVec(prometheus.CounterOpts{
		Namespace: "advisor",
		Name:      "ai_call_total",
		Help:      "Advisor gateway calls by mode and result.",
	}, []string{"mode", "result"})

	recommendationTotal = promauto.NewCounterVec(prometheus.CounterOpts{
		Namespace: "advisor",
		Name:      "recommendation_total",
		Help:      "Synthesized recommendations by action and AI status.",
	}, []string{"action", "ai_status"})

	runTotal = promauto.NewCounterVec(prometheus.CounterOpts{
		Namespace: "advisor",
		Name:      "run_total",
		Help:      "Pipeline runs by outcome.",
	}, []string{"result"})

	runDuration = promauto.NewHistogram(prometheus.HistogramOpts{
		Namespace: "advisor",
		Name:      "run_duration_seconds",
		Help:      "Duration of completed pipeline runs.",
		Buckets:   prometheus.ExponentialBuckets(1, 2, 12),
	})

	deliveryTotal = promauto.NewCounterVec(prometheus.CounterOpts{
		Namespace: "advisor",
		Name:      "delivery_total",
		Help:      "Report deliveries by channel and result.",
	}, []string{"channel", "result"})
)
