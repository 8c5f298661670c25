package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

// Metrics holds Prometheus metrics for the identity registry.
type Metrics struct {
	SourcesAdded         prometheus.Counter
	SourcesRemoved       prometheus.Counter
	InformationSubmitted prometheus.Counter
	UsersVerified        prometheus.Counter
	VerificationChecks   *prometheus.CounterVec
}

// New creates and registers all identity registry metrics.
func New() *Metrics {
	return &Metrics{
		SourcesAdded: promauto.NewCounter(prometheus.CounterOpts{
			Name: "trustledger_identity_sources_added_total",
			Help: "Total number of trusted source activations",
		}),
		SourcesRemoved: promauto.NewCounter(prometheus.CounterOpts{
			Name: "trustledger_identity_sources_removed_total",
			Help: "Total number of trusted source deactivations",
		}),
		InformationSubmitted: promauto.NewCounter(prometheus.CounterOpts{
			Name: "trustledger_identity_information_submitted_total",
			Help: "Total number of identity submissions",
		}),
		UsersVerified: promauto.NewCounter(prometheus.CounterOpts{
			Name: "trustledger_identity_users_verified_total",
			Help: "Total number of user verifications",
		}),
		VerificationChecks: promauto.NewCounterVec(prometheus.CounterOpts{
			Name: "trustledger_identity_verification_checks_total",
			Help: "Total number of verification checks, labeled by result",
		}, []string{"result"}),
	}
}
