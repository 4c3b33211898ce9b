package breaker

import (
	"errors"
	"testing"
	"time"

	"github.com/failsafe-go/failsafe-go/circuitbreaker"
	"github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/pscheid92/timecapsule/internal/metrics"
	"github.com/stretchr/testify/assert"
)

func TestNew_OpensAfterFailureRate(t *testing.T) {
	cb := New("test-open", time.Minute)
	for range 5 {
		assert.True(t, cb.TryAcquirePermit())
		cb.RecordError(errors.New("boom"))
	}

	assert.Equal(t, circuitbreaker.OpenState, cb.State())
	assert.False(t, cb.TryAcquirePermit())
	assert.Equal(t, 2.0, testutil.ToFloat64(metrics.CircuitBreakerState.WithLabelValues("test-open")))
	assert.Equal(t, 1.0, testutil.ToFloat64(metrics.CircuitBreakerStateChanges.WithLabelValues("test-open", circuitbreaker.OpenState.String())))
}

func TestNew_StaysClosedBelowMinimum(t *testing.T) {
	cb := New("test-closed", time.Minute)
	for range 4 {
		cb.RecordError(errors.New("boom"))
	}
	assert.Equal(t, circuitbreaker.ClosedState, cb.State())
}

func TestStateToFloat(t *testing.T) {
	assert.Equal(t, 0.0, StateToFloat(circuitbreaker.ClosedState))
	assert.Equal(t, 1.0, StateToFloat(circuitbreaker.HalfOpenState))
	assert.Equal(t, 2.0, StateToFloat(circuitbreaker.OpenState))
}
