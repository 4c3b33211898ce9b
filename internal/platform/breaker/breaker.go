// Package breaker builds the circuit breakers guarding calls to external
// dependencies, with state changes logged and exported as metrics.
package breaker

import (
	"log/slog"
	"time"

	"github.com/failsafe-go/failsafe-go/circuitbreaker"
	"github.com/pscheid92/timecapsule/internal/metrics"
)

// DefaultDelay is how long an open breaker waits before letting a probe through.
const DefaultDelay = 30 * time.Second

// New creates a breaker for component with the following settings:
// - WithFailureRateThreshold: 60% failure rate, min 5 requests, 10s rolling window
// - WithDelay: delay before transitioning from open to half-open
// - WithSuccessThreshold: 1 successful request in half-open to close
func New(component string, delay time.Duration) circuitbreaker.CircuitBreaker[any] {
	return circuitbreaker.NewBuilder[any]().
		WithFailureRateThreshold(0.6, 5, 10*time.Second).
		WithDelay(delay).
		WithSuccessThreshold(1).
		OnStateChanged(func(e circuitbreaker.StateChangedEvent) {
			slog.Warn("Circuit breaker state changed",
				"component", component,
				"from", e.OldState.String(),
				"to", e.NewState.String(),
			)
			metrics.CircuitBreakerStateChanges.WithLabelValues(component, e.NewState.String()).Inc()
			metrics.CircuitBreakerState.WithLabelValues(component).Set(StateToFloat(e.NewState))
		}).
		Build()
}

// StateToFloat maps a breaker state to the value exported by the state gauge.
func StateToFloat(state circuitbreaker.State) float64 {
	switch state {
	case circuitbreaker.ClosedState:
		return 0
	case circuitbreaker.HalfOpenState:
		return 1
	case circuitbreaker.OpenState:
		return 2
	default:
		return -1
	}
}
