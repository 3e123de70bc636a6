package toolruntime

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

// metrics mirrors internal/observability/metrics.go's promauto
// construction pattern, scoped to the tool runtime's own concerns
// (spec §4.7 step 13: toolCallDuration{tool,version,status}, retries,
// validation failures, cache hits/misses).
type metrics struct {
	callDuration      *prometheus.HistogramVec
	retries           *prometheus.CounterVec
	validationFailures *prometheus.CounterVec
	cacheHits         *prometheus.CounterVec
	cacheMisses       *prometheus.CounterVec
}

func newMetrics() *metrics {
	return &metrics{
		callDuration: promauto.NewHistogramVec(
			prometheus.HistogramOpts{
				Name:    "resolvr_tool_call_duration_seconds",
				Help:    "Duration of a tool runtime call in seconds, by tool, version, and status",
				Buckets: []float64{0.01, 0.05, 0.1, 0.5, 1, 5, 10, 15, 30},
			},
			[]string{"tool", "version", "status"},
		),
		retries: promauto.NewCounterVec(
			prometheus.CounterOpts{
				Name: "resolvr_tool_retries_total",
				Help: "Total number of tool call retry attempts",
			},
			[]string{"tool"},
		),
		validationFailures: promauto.NewCounterVec(
			prometheus.CounterOpts{
				Name: "resolvr_tool_validation_failures_total",
				Help: "Total number of input/output schema validation failures",
			},
			[]string{"tool", "schema"},
		),
		cacheHits: promauto.NewCounterVec(
			prometheus.CounterOpts{
				Name: "resolvr_tool_cache_hits_total",
				Help: "Total number of tool result cache hits",
			},
			[]string{"tool"},
		),
		cacheMisses: promauto.NewCounterVec(
			prometheus.CounterOpts{
				Name: "resolvr_tool_cache_misses_total",
				Help: "Total number of tool result cache misses",
			},
			[]string{"tool"},
		),
	}
}
