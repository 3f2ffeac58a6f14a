package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"

	"countriapi/internal/ratelimit/models"
)

type Metrics struct {
	Decisions          *prometheus.CounterVec
	FallbackDecisions  *prometheus.CounterVec
	BackendErrors      *prometheus.CounterVec
	CircuitOpen        *prometheus.GaugeVec
	CircuitTransitions *prometheus.CounterVec
}

// New registers the rate limit collectors on reg. Tests pass a fresh
// prometheus.NewRegistry() so repeated construction does not panic.
func New(reg prometheus.Registerer) *Metrics {
	factory := promauto.With(reg)
	return &Metrics{
		Decisions: factory.NewCounterVec(prometheus.CounterOpts{
			Name: "countriapi_ratelimit_decisions_total",
			Help: "Total number of rate limit decisions by tier and outcome",
		}, []string{"tier", "outcome"}),
		FallbackDecisions: factory.NewCounterVec(prometheus.CounterOpts{
			Name: "countriapi_ratelimit_fallback_decisions_total",
			Help: "Total number of decisions served by the in-process fallback window",
		}, []string{"tier"}),
		BackendErrors: factory.NewCounterVec(prometheus.CounterOpts{
			Name: "countriapi_ratelimit_backend_errors_total",
			Help: "Total number of errors returned by the shared rate limit backend",
		}, []string{"tier"}),
		CircuitOpen: factory.NewGaugeVec(prometheus.GaugeOpts{
			Name: "countriapi_ratelimit_circuit_open",
			Help: "1 while the shared backend circuit is open for the tier",
		}, []string{"tier"}),
		CircuitTransitions: factory.NewCounterVec(prometheus.CounterOpts{
			Name: "countriapi_ratelimit_circuit_transitions_total",
			Help: "Total number of circuit breaker state changes",
		}, []string{"tier", "state"}),
	}
}

func (m *Metrics) RecordDecision(tier models.Tier, allowed bool) {
	outcome := "rejected"
	if allowed {
		outcome = "allowed"
	}
	m.Decisions.WithLabelValues(tier.String(), outcome).Inc()
}

func (m *Metrics) RecordFallback(tier models.Tier) {
	m.FallbackDecisions.WithLabelValues(tier.String()).Inc()
}

func (m *Metrics) RecordBackendError(tier models.Tier) {
	m.BackendErrors.WithLabelValues(tier.String()).Inc()
}

func (m *Metrics) RecordCircuitOpened(tier models.Tier) {
	m.CircuitOpen.WithLabelValues(tier.String()).Set(1)
	m.CircuitTransitions.WithLabelValues(tier.String(), "open").Inc()
}

func (m *Metrics) RecordCircuitClosed(tier models.Tier) {
	m.CircuitOpen.WithLabelValues(tier.String()).Set(0)
	m.CircuitTransitions.WithLabelValues(tier.String(), "closed").Inc()
}
