package metrics

import (
	"github.com/gin-gonic/gin"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

const namespace = "test_report"

var (
	runsStarted = promauto.NewCounter(prometheus.CounterOpts{
		Namespace: namespace,
		Name:      "runs_started_total",
		Help:      "Generation runs that entered InProgress",
	})
	runsFinished = promauto.NewCounterVec(prometheus.CounterOpts{
		Namespace: namespace,
		Name:      "runs_finished_total",
		Help:      "Generation runs that reached a terminal status",
	}, []string{"status", "flow"})
	runDuration = promauto.NewHistogramVec(prometheus.HistogramOpts{
		Namespace: namespace,
		Name:      "run_duration_ms",
		Help:      "Generation run duration in milliseconds",
		Buckets:   []float64{100, 250, 500, 1000, 2000, 5000, 10000, 30000, 60000, 120000, 300000},
	}, []string{"status"})

	generationAttempts = promauto.NewCounterVec(prometheus.CounterOpts{
		Namespace: namespace,
		Name:      "generation_attempts_total",
		Help:      "Calls made to the text-generation provider",
	}, []string{"provider", "outcome"})
	generationTruncated = promauto.NewCounter(prometheus.CounterOpts{
		Namespace: namespace,
		Name:      "generation_truncated_total",
		Help:      "Generations cut at the accumulated character cap",
	})

	notificationsPersisted = promauto.NewCounterVec(prometheus.CounterOpts{
		Namespace: namespace,
		Name:      "notifications_persisted_total",
		Help:      "Notification events written to the store",
	}, []string{"kind"})
	notificationPublishFailures = promauto.NewCounterVec(prometheus.CounterOpts{
		Namespace: namespace,
		Name:      "notification_publish_failures_total",
		Help:      "Live-channel publishes that failed",
	}, []string{"publisher"})
	liveConnections = promauto.NewGauge(prometheus.GaugeOpts{
		Namespace: namespace,
		Name:      "live_connections",
		Help:      "Open websocket connections",
	})

	runsInFlight = promauto.NewGauge(prometheus.GaugeOpts{
		Namespace: namespace,
		Name:      "runs_in_flight",
		Help:      "Runs currently owned by the supervisor",
	})
	runsRejected = promauto.NewCounterVec(prometheus.CounterOpts{
		Namespace: namespace,
		Name:      "runs_rejected_total",
		Help:      "Runs refused at hand-off",
	}, []string{"reason"})

	queueJobs = promauto.NewCounterVec(prometheus.CounterOpts{
		Namespace: namespace,
		Name:      "queue_jobs_total",
		Help:      "Queue messages handled by the worker",
	}, []string{"outcome"})
)

// IncRunStarted counts a Pending -> InProgress transition.
func IncRunStarted() { runsStarted.Inc() }

// IncRunFinished counts a terminal transition for the given flow ("initial" or "versioning").
func IncRunFinished(status, flow string) { runsFinished.WithLabelValues(status, flow).Inc() }

// ObserveRunDurationMs records a run duration in milliseconds.
func ObserveRunDurationMs(status string, value float64) {
	if value < 0 {
		value = 0
	}
	runDuration.WithLabelValues(status).Observe(value)
}

// IncGenerationAttempt counts one provider call with outcome "ok" or "error".
func IncGenerationAttempt(provider, outcome string) {
	generationAttempts.WithLabelValues(provider, outcome).Inc()
}

// IncGenerationTruncated counts a capped generation.
func IncGenerationTruncated() { generationTruncated.Inc() }

// IncNotificationPersisted counts a stored notification.
func IncNotificationPersisted(kind string) { notificationsPersisted.WithLabelValues(kind).Inc() }

// IncNotificationPublishFailure counts a failed live delivery.
func IncNotificationPublishFailure(publisher string) {
	notificationPublishFailures.WithLabelValues(publisher).Inc()
}

// AddLiveConnections adjusts the open websocket gauge.
func AddLiveConnections(delta float64) { liveConnections.Add(delta) }

// SetRunsInFlight reports the supervisor's in-flight set size.
func SetRunsInFlight(n int) { runsInFlight.Set(float64(n)) }

// IncRunRejected counts a hand-off refusal ("in_progress", "queue_full", "shutdown").
func IncRunRejected(reason string) { runsRejected.WithLabelValues(reason).Inc() }

// IncQueueJob counts a worker message outcome.
func IncQueueJob(outcome string) { queueJobs.WithLabelValues(outcome).Inc() }

// Handler exposes the default registry in Prometheus text format.
func Handler() gin.HandlerFunc {
	return gin.WrapH(promhttp.Handler())
}
