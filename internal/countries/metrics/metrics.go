package metrics

import (
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

type Metrics struct {
	Lookups        *prometheus.CounterVec
	LookupDuration *prometheus.HistogramVec
}

func New(reg prometheus.Registerer) *Metrics {
	factory := promauto.With(reg)
	return &Metrics{
		Lookups: factory.NewCounterVec(prometheus.CounterOpts{
			Name: "countriapi_country_lookups_total",
			Help: "Total number of country lookups by tier and response status",
		}, []string{"tier", "status"}),
		LookupDuration: factory.NewHistogramVec(prometheus.HistogramOpts{
			Name:    "countriapi_country_lookup_duration_seconds",
			Help:    "Time spent serving country lookups",
			Buckets: prometheus.DefBuckets,
		}, []string{"tier"}),
	}
}

func (m *Metrics) ObserveLookup(tier string, status int, elapsed time.Duration) {
	m.Lookups.WithLabelValues(tier, statusClass(status)).Inc()
	m.LookupDuration.WithLabelValues(tier).Observe(elapsed.Seconds())
}

func statusClass(status int) string {
	switch {
	case status >= 500:
		return "5xx"
	case status >= 400:
		return "4xx"
	default:
		return "2xx"
	}
}
