package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

// Metrics provides observability for the mandate module.
type Metrics struct {
	Issued               prometheus.Counter
	Reused               prometheus.Counter
	VerificationFailures *prometheus.CounterVec
}

// New creates a Metrics instance with all mandate module metrics registered.
func New() *Metrics {
	return &Metrics{
		Issued: promauto.NewCounter(prometheus.CounterOpts{
			Name: "procura_mandates_issued_total",
			Help: "Total number of mandates issued",
		}),
		Reused: promauto.NewCounter(prometheus.CounterOpts{
			Name: "procura_mandates_reused_total",
			Help: "Total number of refresh requests satisfied by an existing mandate",
		}),
		VerificationFailures: promauto.NewCounterVec(prometheus.CounterOpts{
			Name: "procura_mandate_verification_failures_total",
			Help: "Total number of failed mandate verifications by reason",
		}, []string{"reason"}),
	}
}
