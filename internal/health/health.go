// Package health tracks per-dependency circuit breakers for the fixed set
// of external systems the orchestrator calls out to, and aggregates them
// into a single degradation level the pipeline can act on.
package health

import (
	"time"

	"github.com/haasonsaas/resolvr/internal/infra"
)

// Dependency names tracked by the registry (spec §4.4).
const (
	DependencyRedis     = "redis"
	DependencyOMS       = "oms"
	DependencyTracking  = "tracking"
	DependencyTicketing = "ticketing"
	DependencyLLM       = "llm"
	DependencySearch    = "search"
	DependencyPayment   = "payment"
)

// AllDependencies lists every tracked dependency, in a stable order.
var AllDependencies = []string{
	DependencyRedis, DependencyOMS, DependencyTracking, DependencyTicketing,
	DependencyLLM, DependencySearch, DependencyPayment,
}

// DegradationLevel summarizes how many dependencies are unhealthy.
type DegradationLevel string

const (
	DegradationNone    DegradationLevel = "none"
	DegradationPartial DegradationLevel = "partial"
	DegradationFull    DegradationLevel = "full"
)

// DefaultFailureThreshold is the consecutive-failure count that opens a
// circuit (spec §4.4's default of 5). Degraded status is declared at half
// of this, rounded down.
const DefaultFailureThreshold = 5

// DefaultResetWindow is how long a circuit stays open before a half-open
// probe is allowed (spec §4.4's circuitResetMs default of 30s).
const DefaultResetWindow = 30 * time.Second

// Registry tracks one circuit breaker per dependency. It's a thin,
// domain-specific facade over infra.CircuitBreakerRegistry: the teacher's
// breaker already implements exactly the closed/open/half-open automaton
// this spec calls for (SuccessThreshold=1 closes the circuit again after a
// single successful half-open probe, matching "half-open probe allowed
// once"); this package adds the fixed dependency set and the "degraded"
// midpoint status the teacher's breaker doesn't track on its own.
type Registry struct {
	breakers *infra.CircuitBreakerRegistry
}

// New builds a Registry with a circuit breaker pre-created for every
// tracked dependency, using threshold consecutive failures to open and
// resetWindow before a half-open probe is allowed.
func New(threshold int, resetWindow time.Duration) *Registry {
	if threshold <= 0 {
		threshold = DefaultFailureThreshold
	}
	if resetWindow <= 0 {
		resetWindow = DefaultResetWindow
	}

	reg := infra.NewCircuitBreakerRegistry(infra.CircuitBreakerConfig{
		FailureThreshold: threshold,
		SuccessThreshold: 1,
		Timeout:          resetWindow,
	})
	r := &Registry{breakers: reg}
	for _, dep := range AllDependencies {
		reg.Get(dep)
	}
	return r
}

// RecordSuccess marks a call to name as having succeeded.
func (r *Registry) RecordSuccess(name string) {
	r.breakers.Get(name).RecordSuccess()
}

// RecordFailure marks a call to name as having failed.
func (r *Registry) RecordFailure(name string) {
	r.breakers.Get(name).RecordFailure()
}

// IsAvailable reports whether name's circuit currently allows a call: it's
// closed, or open-but-past-its-reset-window (a half-open probe). Routes
// through the breaker's own canExecute transition (via Allow) rather than
// reading State() directly, so an elapsed open window actually flips the
// circuit to half-open instead of staying open forever.
func (r *Registry) IsAvailable(name string) bool {
	return r.breakers.Get(name).Allow()
}

// Status is the point-in-time view of one dependency's health.
type Status struct {
	Name                string
	ConsecutiveFailures int
	CircuitOpen         bool
	Degraded            bool
}

// Snapshot returns the current status of every tracked dependency.
func (r *Registry) Snapshot() []Status {
	threshold := DefaultFailureThreshold
	out := make([]Status, 0, len(AllDependencies))
	for _, dep := range AllDependencies {
		stats := r.breakers.Get(dep).Stats()
		out = append(out, Status{
			Name:                dep,
			ConsecutiveFailures: stats.Failures,
			CircuitOpen:         stats.State == infra.CircuitOpen,
			Degraded:            stats.State != infra.CircuitOpen && stats.Failures >= threshold/2 && threshold/2 > 0,
		})
	}
	return out
}

// DegradationLevel aggregates dependency statuses per spec §4.4: full
// when 3+ dependencies are down (circuit open), partial when 1+ is down
// or 2+ are degraded, else none.
func (r *Registry) DegradationLevel() DegradationLevel {
	down, degraded := 0, 0
	for _, s := range r.Snapshot() {
		if s.CircuitOpen {
			down++
		} else if s.Degraded {
			degraded++
		}
	}
	switch {
	case down >= 3:
		return DegradationFull
	case down >= 1 || degraded >= 2:
		return DegradationPartial
	default:
		return DegradationNone
	}
}
