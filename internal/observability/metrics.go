package observability

import (
	"net/http"
	"strconv"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"github.com/yungbote/coachflow-backend/internal/pkg/envutil"
)

const namespace = "coachflow"

var (
	httpRequestsTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "http_requests_total",
			Help:      "Total number of HTTP requests",
		},
		[]string{"method", "route", "status"},
	)

	httpRequestDuration = promauto.NewHistogramVec(
		prometheus.HistogramOpts{
			Namespace: namespace,
			Name:      "http_request_duration_seconds",
			Help:      "HTTP request duration in seconds",
			Buckets:   prometheus.DefBuckets,
		},
		[]string{"method", "route"},
	)

	cronRunsTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "cron_runs_total",
			Help:      "Cadence runs by outcome",
		},
		[]string{"cadence", "trigger", "success"},
	)

	cronRunDuration = promauto.NewHistogramVec(
		prometheus.HistogramOpts{
			Namespace: namespace,
			Name:      "cron_run_duration_seconds",
			Help:      "Cadence run duration in seconds",
			Buckets:   []float64{0.1, 0.5, 1, 5, 15, 60, 300, 900},
		},
		[]string{"cadence"},
	)

	cronTaskItems = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "cron_task_items_total",
			Help:      "Items handled by cadence sub-tasks by outcome",
		},
		[]string{"task", "outcome"},
	)

	engagementDeliveries = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "engagement_deliveries_total",
			Help:      "Engagement delivery attempts by type and status",
		},
		[]string{"type", "channel", "status"},
	)

	engagementFallbacks = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "engagement_generation_fallbacks_total",
			Help:      "Engagements that used template content after generation failed",
		},
		[]string{"type"},
	)

	badgesAwarded = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "badges_awarded_total",
			Help:      "Badges awarded",
		},
		[]string{"badge"},
	)

	sequenceSteps = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "sequence_steps_total",
			Help:      "Sequence step sends by channel and status",
		},
		[]string{"channel", "status"},
	)

	notifierSends = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "notifier_sends_total",
			Help:      "Notifier sends by channel and status",
		},
		[]string{"channel", "status"},
	)

	progressEvents = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "progress_events_total",
			Help:      "Progress events dispatched by type and outcome",
		},
		[]string{"type", "outcome"},
	)

	snapshotGauge = promauto.NewGaugeVec(
		prometheus.GaugeOpts{
			Namespace: namespace,
			Name:      "snapshot_value",
			Help:      "Latest computed metric snapshot values",
		},
		[]string{"period", "key"},
	)
)

// Enabled reports whether the HTTP layer records and exposes metrics.
// Collectors register regardless so background tasks never branch on it.
func Enabled() bool {
	return envutil.Bool("METRICS_ENABLED", true)
}

func statusClass(code int) string {
	switch {
	case code >= 500:
		return "5xx"
	case code >= 400:
		return "4xx"
	case code >= 300:
		return "3xx"
	case code >= 200:
		return "2xx"
	default:
		return "unknown"
	}
}

func RecordHTTPRequest(method, route string, statusCode int, d time.Duration) {
	if route == "" {
		route = "unmatched"
	}
	httpRequestsTotal.WithLabelValues(method, route, statusClass(statusCode)).Inc()
	httpRequestDuration.WithLabelValues(method, route).Observe(d.Seconds())
}

func RecordCronRun(cadence, trigger string, success bool, d time.Duration) {
	cronRunsTotal.WithLabelValues(cadence, trigger, strconv.FormatBool(success)).Inc()
	cronRunDuration.WithLabelValues(cadence).Observe(d.Seconds())
}

func RecordTaskItems(task string, processed, errors int) {
	if processed > 0 {
		cronTaskItems.WithLabelValues(task, "processed").Add(float64(processed))
	}
	if errors > 0 {
		cronTaskItems.WithLabelValues(task, "error").Add(float64(errors))
	}
}

func RecordEngagementDelivery(engagementType, channel, status string) {
	engagementDeliveries.WithLabelValues(engagementType, channel, status).Inc()
}

func RecordGenerationFallback(engagementType string) {
	engagementFallbacks.WithLabelValues(engagementType).Inc()
}

func RecordBadgeAwarded(badgeID string) {
	badgesAwarded.WithLabelValues(badgeID).Inc()
}

func RecordSequenceStep(channel, status string) {
	sequenceSteps.WithLabelValues(channel, status).Inc()
}

func RecordNotifierSend(channel, status string) {
	notifierSends.WithLabelValues(channel, status).Inc()
}

func RecordProgressEvent(eventType, outcome string) {
	progressEvents.WithLabelValues(eventType, outcome).Inc()
}

func SetSnapshot(period, key string, v float64) {
	snapshotGauge.WithLabelValues(period, key).Set(v)
}

// Handler serves the default registry in the Prometheus exposition format.
func Handler() http.Handler {
	return promhttp.Handler()
}
