package worker

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

var (
	eventsProcessed = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "eventfeed_events_processed_total",
		Help: "Events handed to a handler and acknowledged, per consumer",
	}, []string{"consumer"})
	eventsSkipped = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "eventfeed_events_skipped_total",
		Help: "Events permanently skipped by topic filtering, per consumer",
	}, []string{"consumer"})
	tickFailures = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "eventfeed_tick_failures_total",
		Help: "Run loop ticks aborted by a store or handler error, per consumer",
	}, []string{"consumer"})
	eventsTruncated = promauto.NewCounter(prometheus.CounterOpts{
		Name: "eventfeed_events_truncated_total",
		Help: "Events removed by watermark truncation",
	})
	claimsProcessed = promauto.NewCounter(prometheus.CounterOpts{
		Name: "eventfeed_claims_processed_total",
		Help: "Events processed and deleted through exclusive claims",
	})
	claimContention = promauto.NewCounter(prometheus.CounterOpts{
		Name: "eventfeed_claim_contention_total",
		Help: "Targeted claims dropped because another worker held the row",
	})
	claimFailures = promauto.NewCounter(prometheus.CounterOpts{
		Name: "eventfeed_claim_failures_total",
		Help: "Claim transactions rolled back by handler or store errors",
	})
	tickDuration = promauto.NewHistogram(prometheus.HistogramOpts{
		Name:    "eventfeed_tick_duration_seconds",
		Help:    "Time spent in productive run loop ticks",
		Buckets: []float64{0.005, 0.025, 0.1, 0.5, 1, 2, 5},
	})
)
