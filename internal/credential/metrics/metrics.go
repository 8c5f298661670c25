package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

// Metrics holds Prometheus metrics for the credential registry.
type Metrics struct {
	IssuersAuthorized  prometheus.Counter
	IssuersRevoked     prometheus.Counter
	CredentialsIssued  prometheus.Counter
	CredentialsRevoked prometheus.Counter
	ValidityChecks     *prometheus.CounterVec
}

// New creates and registers all credential registry metrics.
func New() *Metrics {
	return &Metrics{
		IssuersAuthorized: promauto.NewCounter(prometheus.CounterOpts{
			Name: "trustledger_credential_issuers_authorized_total",
			Help: "Total number of issuer authorizations",
		}),
		IssuersRevoked: promauto.NewCounter(prometheus.CounterOpts{
			Name: "trustledger_credential_issuers_revoked_total",
			Help: "Total number of issuer authorization revocations",
		}),
		CredentialsIssued: promauto.NewCounter(prometheus.CounterOpts{
			Name: "trustledger_credential_issued_total",
			Help: "Total number of credentials issued",
		}),
		CredentialsRevoked: promauto.NewCounter(prometheus.CounterOpts{
			Name: "trustledger_credential_revoked_total",
			Help: "Total number of credentials revoked",
		}),
		ValidityChecks: promauto.NewCounterVec(prometheus.CounterOpts{
			Name: "trustledger_credential_validity_checks_total",
			Help: "Total number of credential validity checks, labeled by result",
		}, []string{"result"}),
	}
}
