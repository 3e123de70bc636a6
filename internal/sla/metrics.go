package sla

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

// metrics mirrors internal/observability/metrics.go's promauto
// construction pattern, scoped to this component.
type metrics struct {
	breaches *prometheus.CounterVec
}

func newMetrics() *metrics {
	return &metrics{
		breaches: promauto.NewCounterVec(prometheus.CounterOpts{
			Name: "resolvr_sla_breach_total",
			Help: "SLA threshold breaches by tier and kind (ttfr, ttr).",
		}, []string{"tier", "kind"}),
	}
}

func (m *metrics) recordBreach(tier Tier, kind BreachKind) {
	m.breaches.WithLabelValues(string(tier), string(kind)).Inc()
}
