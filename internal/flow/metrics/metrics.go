package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

// Metrics holds the Prometheus metrics for the credential flow.
type Metrics struct {
	SessionsStarted        prometheus.Counter
	VerificationsSucceeded prometheus.Counter
	VerificationsFailed    prometheus.Counter
	VerificationsTimedOut  prometheus.Counter
	CredentialsIssued      prometheus.Counter
	CredentialsErrored     prometheus.Counter
	Aborts                 *prometheus.CounterVec
}

// New creates and registers all flow metrics on the default registry.
func New() *Metrics {
	return &Metrics{
		SessionsStarted: promauto.NewCounter(prometheus.CounterOpts{
			Name: "ecollect_flow_sessions_started_total",
			Help: "Total number of credential flow sessions started",
		}),
		VerificationsSucceeded: promauto.NewCounter(prometheus.CounterOpts{
			Name: "ecollect_verifications_succeeded_total",
			Help: "Total number of identity verifications reported SUCCESS",
		}),
		VerificationsFailed: promauto.NewCounter(prometheus.CounterOpts{
			Name: "ecollect_verifications_failed_total",
			Help: "Total number of identity verifications reported FAILED",
		}),
		VerificationsTimedOut: promauto.NewCounter(prometheus.CounterOpts{
			Name: "ecollect_verifications_timed_out_total",
			Help: "Total number of verification polls that hit the ceiling",
		}),
		CredentialsIssued: promauto.NewCounter(prometheus.CounterOpts{
			Name: "ecollect_credentials_issued_total",
			Help: "Total number of credentials confirmed by the issuer",
		}),
		CredentialsErrored: promauto.NewCounter(prometheus.CounterOpts{
			Name: "ecollect_credentials_errored_total",
			Help: "Total number of issuance attempts that ended in error",
		}),
		Aborts: promauto.NewCounterVec(prometheus.CounterOpts{
			Name: "ecollect_flow_aborts_total",
			Help: "Total number of aborted flow sessions by reason",
		}, []string{"reason"}),
	}
}
