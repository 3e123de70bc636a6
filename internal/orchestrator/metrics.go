package orchestrator

import (
	"sync"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

// metrics mirrors internal/observability/metrics.go's promauto
// construction pattern. Built exactly once per process via metricsOnce:
// unlike most components, the Orchestrator is commonly constructed more
// than once within a single test binary, and promauto panics on a
// duplicate registration.
type metrics struct {
	escalations   *prometheus.CounterVec
	vocProcessed  prometheus.Counter
	messages      *prometheus.CounterVec
}

var (
	metricsOnce sync.Once
	sharedMetrics *metrics
)

func newMetrics() *metrics {
	metricsOnce.Do(func() {
		sharedMetrics = &metrics{
			escalations: promauto.NewCounterVec(prometheus.CounterOpts{
				Name: "resolvr_orchestrator_escalations_total",
				Help: "Escalations triggered by the Escalation Policy, by reason (spec §4.11).",
			}, []string{"reason"}),
			vocProcessed: promauto.NewCounter(prometheus.CounterOpts{
				Name: "resolvr_orchestrator_voc_processed_total",
				Help: "Total inbound turns run through the VOC Pre-Processor.",
			}),
			messages: promauto.NewCounterVec(prometheus.CounterOpts{
				Name: "resolvr_orchestrator_messages_processed_total",
				Help: "Total messages processed, by resulting conversation state.",
			}, []string{"state"}),
		}
	})
	return sharedMetrics
}

func (m *metrics) recordEscalation(reason string) {
	m.escalations.WithLabelValues(reason).Inc()
}

func (m *metrics) recordMessageProcessed(state string) {
	m.messages.WithLabelValues(state).Inc()
}
