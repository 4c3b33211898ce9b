package metrics

import (
	"net/http"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

const namespace = "timecapsule"

// Reveal sweep metrics
var (
	// SweepRunsTotal counts sweep runs by outcome (ok, store_error, skipped).
	SweepRunsTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "sweep_runs_total",
			Help:      "Reveal sweep runs by outcome",
		},
		[]string{"outcome"},
	)

	SweepDuration = promauto.NewHistogram(
		prometheus.HistogramOpts{
			Namespace: namespace,
			Name:      "sweep_duration_seconds",
			Help:      "Reveal sweep duration in seconds",
			Buckets:   []float64{.01, .05, .1, .25, .5, 1, 2.5, 5, 10, 30},
		},
	)

	CapsulesDueTotal = promauto.NewCounter(
		prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "capsules_due_total",
			Help:      "Capsules found due by reveal sweeps",
		},
	)

	CapsulesRevealedTotal = promauto.NewCounter(
		prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "capsules_revealed_total",
			Help:      "Capsules flipped to revealed",
		},
	)

	// RevealClaimsLostTotal counts due capsules another sweep revealed first.
	RevealClaimsLostTotal = promauto.NewCounter(
		prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "reveal_claims_lost_total",
			Help:      "Due capsules already revealed by a concurrent sweep",
		},
	)

	// CapsuleErrorsTotal counts per-capsule sweep failures by step.
	CapsuleErrorsTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "sweep_capsule_errors_total",
			Help:      "Per-capsule sweep failures by step",
		},
		[]string{"step"},
	)
)

// External capability metrics
var (
	NotificationsTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "notifications_total",
			Help:      "Reveal notifications by result",
		},
		[]string{"result"},
	)

	ClassificationsTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "classifications_total",
			Help:      "Sentiment classifications by source and result",
		},
		[]string{"source", "result"},
	)

	ClassifierDuration = promauto.NewHistogram(
		prometheus.HistogramOpts{
			Namespace: namespace,
			Name:      "classifier_duration_seconds",
			Help:      "Remote sentiment classifier latency in seconds",
			Buckets:   []float64{.05, .1, .25, .5, 1, 2.5, 5, 10},
		},
	)

	SentimentCacheTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "sentiment_cache_total",
			Help:      "Sentiment cache lookups by result (hit, miss, error)",
		},
		[]string{"result"},
	)

	// CircuitBreakerStateChanges tracks circuit breaker state transitions
	CircuitBreakerStateChanges = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "circuit_breaker_state_changes_total",
			Help:      "Circuit breaker state transitions by component and new state",
		},
		[]string{"component", "state"},
	)

	// CircuitBreakerState tracks current circuit breaker state (0=closed, 1=half-open, 2=open)
	CircuitBreakerState = promauto.NewGaugeVec(
		prometheus.GaugeOpts{
			Namespace: namespace,
			Name:      "circuit_breaker_state",
			Help:      "Current circuit breaker state (0=closed, 1=half-open, 2=open)",
		},
		[]string{"component"},
	)
)

// Questionnaire and capsule metrics
var (
	CapsulesCreatedTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "capsules_created_total",
			Help:      "Capsules created, by initial sentiment",
		},
		[]string{"sentiment"},
	)

	// PromptsTotal counts questionnaire visits by resulting state.
	PromptsTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "questionnaire_prompts_total",
			Help:      "Questionnaire visits by resulting state",
		},
		[]string{"state"},
	)

	ResponsesTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "questionnaire_responses_total",
			Help:      "Questionnaire submissions by result (saved, duplicate, error)",
		},
		[]string{"result"},
	)
)

// Infrastructure metrics
var (
	// RedisOpsTotal tracks total Redis operations by operation type and status
	RedisOpsTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "redis_operations_total",
			Help:      "Total Redis operations by operation and status",
		},
		[]string{"operation", "status"},
	)

	// RedisOpDuration tracks Redis operation latency by operation type
	RedisOpDuration = promauto.NewHistogramVec(
		prometheus.HistogramOpts{
			Namespace: namespace,
			Name:      "redis_operation_duration_seconds",
			Help:      "Redis operation latency",
			Buckets:   []float64{.0005, .001, .0025, .005, .01, .025, .05, .1},
		},
		[]string{"operation"},
	)

	// DBQueryDuration tracks database query duration by statement kind
	DBQueryDuration = promauto.NewHistogramVec(
		prometheus.HistogramOpts{
			Namespace: namespace,
			Name:      "db_query_duration_seconds",
			Help:      "Database query duration in seconds",
			Buckets:   []float64{.001, .005, .01, .025, .05, .1, .25, .5, 1},
		},
		[]string{"query"},
	)

	DBErrorsTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "db_errors_total",
			Help:      "Total database errors by query",
		},
		[]string{"query"},
	)

	// HTTPErrorsTotal tracks HTTP errors by type
	HTTPErrorsTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "http_errors_total",
			Help:      "Total HTTP errors by error type",
		},
		[]string{"type"},
	)
)

// Handler serves the default registry, which includes the Go runtime and process collectors.
func Handler() http.Handler {
	return promhttp.Handler()
}
