package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

// Metrics holds Prometheus metrics for the consent registry.
type Metrics struct {
	ConsentsGranted   prometheus.Counter
	ConsentsRevoked   prometheus.Counter
	BulkRevocations   prometheus.Counter
	GrantsBulkRevoked prometheus.Counter
	ValidityChecks    *prometheus.CounterVec
}

// New creates and registers all consent registry metrics.
func New() *Metrics {
	return &Metrics{
		ConsentsGranted: promauto.NewCounter(prometheus.CounterOpts{
			Name: "trustledger_consent_granted_total",
			Help: "Total number of consent grants written",
		}),
		ConsentsRevoked: promauto.NewCounter(prometheus.CounterOpts{
			Name: "trustledger_consent_revoked_total",
			Help: "Total number of single consent revocations",
		}),
		BulkRevocations: promauto.NewCounter(prometheus.CounterOpts{
			Name: "trustledger_consent_bulk_revocations_total",
			Help: "Total number of bulk revocation requests",
		}),
		GrantsBulkRevoked: promauto.NewCounter(prometheus.CounterOpts{
			Name: "trustledger_consent_grants_bulk_revoked_total",
			Help: "Total number of grants revoked via bulk revocation",
		}),
		ValidityChecks: promauto.NewCounterVec(prometheus.CounterOpts{
			Name: "trustledger_consent_validity_checks_total",
			Help: "Total number of consent validity checks, labeled by result",
		}, []string{"result"}),
	}
}
