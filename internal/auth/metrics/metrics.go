package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

type Metrics struct {
	Authentications *prometheus.CounterVec
	TokensIssued    prometheus.Counter
}

func New(reg prometheus.Registerer) *Metrics {
	factory := promauto.With(reg)
	return &Metrics{
		Authentications: factory.NewCounterVec(prometheus.CounterOpts{
			Name: "countriapi_auth_attempts_total",
			Help: "Total number of login attempts by outcome",
		}, []string{"outcome"}),
		TokensIssued: factory.NewCounter(prometheus.CounterOpts{
			Name: "countriapi_auth_tokens_issued_total",
			Help: "Total number of session tokens issued",
		}),
	}
}

func (m *Metrics) RecordAttempt(outcome string) {
	m.Authentications.WithLabelValues(outcome).Inc()
}

func (m *Metrics) IncrementTokensIssued() {
	m.TokensIssued.Inc()
}
