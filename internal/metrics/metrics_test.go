package metrics

import (
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestMetricsRegistration(t *testing.T) {
	collectors := []prometheus.Collector{
		SweepRunsTotal,
		SweepDuration,
		CapsulesDueTotal,
		CapsulesRevealedTotal,
		RevealClaimsLostTotal,
		CapsuleErrorsTotal,
		NotificationsTotal,
		ClassificationsTotal,
		ClassifierDuration,
		SentimentCacheTotal,
		CircuitBreakerStateChanges,
		CircuitBreakerState,
		CapsulesCreatedTotal,
		PromptsTotal,
		ResponsesTotal,
		RedisOpsTotal,
		DBQueryDuration,
		DBErrorsTotal,
		HTTPErrorsTotal,
	}

	for _, c := range collectors {
		desc := make(chan *prometheus.Desc, 1)
		c.Describe(desc)
		close(desc)

		require.NotNil(t, <-desc, "metric should have a valid descriptor")
	}
}

func TestCounterVecIncrements(t *testing.T) {
	before := testutil.ToFloat64(NotificationsTotal.WithLabelValues("error"))
	NotificationsTotal.WithLabelValues("error").Inc()
	assert.Equal(t, before+1, testutil.ToFloat64(NotificationsTotal.WithLabelValues("error")))
}

func TestHandlerExposesNamespace(t *testing.T) {
	CapsulesRevealedTotal.Add(0)

	rec := httptest.NewRecorder()
	Handler().ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/metrics", nil))

	assert.Equal(t, http.StatusOK, rec.Code)
	assert.Contains(t, rec.Body.String(), "timecapsule_capsules_revealed_total")
}
