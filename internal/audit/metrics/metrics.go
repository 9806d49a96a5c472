// Package metrics exposes Prometheus counters for the audit trail.
package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

type Metrics struct {
	// EntriesSealed counts terminal audit decisions, labelled allowed or denied.
	EntriesSealed *prometheus.CounterVec
	// SealFailures counts entries left pending because the seal write failed.
	SealFailures prometheus.Counter
	// PublishFailures counts sealed entries that could not be handed to a sink.
	PublishFailures prometheus.Counter
}

func New() *Metrics {
	return &Metrics{
		EntriesSealed: promauto.NewCounterVec(prometheus.CounterOpts{
			Name: "procura_audit_entries_sealed_total",
			Help: "Total audit entries sealed, by decision.",
		}, []string{"decision"}),
		SealFailures: promauto.NewCounter(prometheus.CounterOpts{
			Name: "procura_audit_seal_failures_total",
			Help: "Total audit entries whose seal write failed.",
		}),
		PublishFailures: promauto.NewCounter(prometheus.CounterOpts{
			Name: "procura_audit_publish_failures_total",
			Help: "Total sealed audit entries that could not be published.",
		}),
	}
}
