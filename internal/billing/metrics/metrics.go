// Package metrics exposes Prometheus counters for billing.
package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

type Metrics struct {
	// ChargesProcessed counts processor attempts, labelled by outcome.
	ChargesProcessed *prometheus.CounterVec
	// IdempotentHits counts calls answered by an already-recorded charge.
	IdempotentHits prometheus.Counter
	// PreconditionFailures counts charge requests rejected before any effect.
	PreconditionFailures *prometheus.CounterVec
	// ProcessorDuration observes wall time of payment processor calls.
	ProcessorDuration prometheus.Histogram
}

func New() *Metrics {
	return &Metrics{
		ChargesProcessed: promauto.NewCounterVec(prometheus.CounterOpts{
			Name: "procura_charges_processed_total",
			Help: "Total charge attempts sent to the payment processor, by outcome.",
		}, []string{"outcome"}),
		IdempotentHits: promauto.NewCounter(prometheus.CounterOpts{
			Name: "procura_charge_idempotent_hits_total",
			Help: "Total charge requests answered by an existing charge record.",
		}),
		PreconditionFailures: promauto.NewCounterVec(prometheus.CounterOpts{
			Name: "procura_charge_precondition_failures_total",
			Help: "Total charge requests rejected before any side effect, by reason.",
		}, []string{"reason"}),
		ProcessorDuration: promauto.NewHistogram(prometheus.HistogramOpts{
			Name:    "procura_charge_processor_duration_seconds",
			Help:    "Latency of payment processor calls.",
			Buckets: prometheus.DefBuckets,
		}),
	}
}
