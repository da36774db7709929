package conncheck

import (
	"sync/atomic"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
	"github.com/sony/gobreaker"
)

// metricsEnabled controls whether probe metrics are recorded.
var metricsEnabled atomic.Bool

const (
	outcomeOK          = "ok"
	outcomeUnreachable = "unreachable"
	outcomeSuspended   = "suspended"
	outcomeRateLimited = "rate_limited"
)

var (
	probeTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "rhsm_conncheck_probes_total",
			Help: "Total number of server probes performed",
		},
		[]string{"target", "outcome"},
	)

	probeFailures = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "rhsm_conncheck_probe_failures_total",
			Help: "Total number of probes that did not reach the server",
		},
		[]string{"target"},
	)

	probeDuration = promauto.NewHistogramVec(
		prometheus.HistogramOpts{
			Name:    "rhsm_conncheck_probe_duration_seconds",
			Help:    "Duration of server probes in seconds",
			Buckets: []float64{.01, .05, .1, .25, .5, 1, 2.5, 5, 10, 30},
		},
		[]string{"target"},
	)

	circuitState = promauto.NewGaugeVec(
		prometheus.GaugeOpts{
			Name: "rhsm_conncheck_circuit_state",
			Help: "Probe circuit breaker state (0=closed, 1=half-open, 2=open)",
		},
		[]string{"target"},
	)
)

func recordProbe(target, outcome string, latency time.Duration) {
	if !metricsEnabled.Load() {
		return
	}

	probeTotal.With(prometheus.Labels{"target": target, "outcome": outcome}).Inc()
	if outcome != outcomeOK {
		probeFailures.With(prometheus.Labels{"target": target}).Inc()
	}
	if latency > 0 {
		probeDuration.With(prometheus.Labels{"target": target}).Observe(latency.Seconds())
	}
}

func recordCircuitState(target string, state gobreaker.State) {
	if !metricsEnabled.Load() {
		return
	}

	var value float64
	switch state {
	case gobreaker.StateClosed:
		value = 0
	case gobreaker.StateHalfOpen:
		value = 1
	case gobreaker.StateOpen:
		value = 2
	}
	circuitState.With(prometheus.Labels{"target": target}).Set(value)
}
