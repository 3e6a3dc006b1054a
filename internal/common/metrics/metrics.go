package metrics

import (
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

const (
	Namespace = "web_monitor"

	MonitorSubsystem = "monitor"
	NotifySubsystem  = "notify"
)

// Общие метрики для всех сервисов.
var (
	HTTPRequestsTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: Namespace,
			Name:      "http_requests_total",
			Help:      "Total number of HTTP requests",
		},
		[]string{"service", "method", "endpoint", "status"},
	)

	HTTPRequestDuration = promauto.NewHistogramVec(
		prometheus.HistogramOpts{
			Namespace: Namespace,
			Name:      "http_request_duration_seconds",
			Help:      "HTTP request duration in seconds",
			Buckets:   prometheus.DefBuckets,
		},
		[]string{"service", "method", "endpoint"},
	)
)

// Метрики проверок ресурсов.
var (
	ActiveResourcesInDB = promauto.NewGaugeVec(
		prometheus.GaugeOpts{
			Namespace: Namespace,
			Subsystem: MonitorSubsystem,
			Name:      "active_resources_count",
			Help:      "Number of active resources in database by type",
		},
		[]string{"resource_type"},
	)

	ResourceChecksTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: Namespace,
			Subsystem: MonitorSubsystem,
			Name:      "resource_checks_total",
			Help:      "Total number of resource checks by outcome",
		},
		[]string{"resource_type", "outcome"},
	)

	ResourceCheckDuration = promauto.NewHistogramVec(
		prometheus.HistogramOpts{
			Namespace: Namespace,
			Subsystem: MonitorSubsystem,
			Name:      "resource_check_duration_seconds",
			Help:      "Resource check duration in seconds (p50, p95, p99)",
			Buckets:   []float64{0.1, 0.25, 0.5, 1, 2.5, 5, 10, 25, 50, 100},
		},
		[]string{"resource_type", "outcome"},
	)

	DigestsGeneratedTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: Namespace,
			Subsystem: MonitorSubsystem,
			Name:      "digests_generated_total",
			Help:      "Total number of digests generated",
		},
		[]string{"change_type"},
	)

	DatabaseQueriesTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: Namespace,
			Subsystem: MonitorSubsystem,
			Name:      "database_queries_total",
			Help:      "Total number of database queries",
		},
		[]string{"operation", "status"},
	)

	DatabaseQueryDuration = promauto.NewHistogramVec(
		prometheus.HistogramOpts{
			Namespace: Namespace,
			Subsystem: MonitorSubsystem,
			Name:      "database_query_duration_seconds",
			Help:      "Database query duration in seconds",
			Buckets:   prometheus.DefBuckets,
		},
		[]string{"operation"},
	)
)

// Метрики доставки уведомлений.
var (
	NotificationsSentTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: Namespace,
			Subsystem: NotifySubsystem,
			Name:      "notifications_sent_total",
			Help:      "Total number of notifications sent by channel",
		},
		[]string{"channel_type", "status"},
	)
)

func RecordHTTPRequest(service, method, endpoint string, statusCode int, duration time.Duration) {
	status := "success"
	if statusCode >= 400 {
		status = "error"
	}

	HTTPRequestsTotal.WithLabelValues(service, method, endpoint, status).Inc()
	HTTPRequestDuration.WithLabelValues(service, method, endpoint).Observe(duration.Seconds())
}

func RecordResourceCheck(resourceType, outcome string, duration time.Duration) {
	ResourceChecksTotal.WithLabelValues(resourceType, outcome).Inc()
	ResourceCheckDuration.WithLabelValues(resourceType, outcome).Observe(duration.Seconds())
}

func RecordDigestGenerated(changeType string) {
	DigestsGeneratedTotal.WithLabelValues(changeType).Inc()
}

func RecordNotificationSent(channelType, status string) {
	NotificationsSentTotal.WithLabelValues(channelType, status).Inc()
}

func UpdateActiveResourcesCount(resourceType string, count float64) {
	ActiveResourcesInDB.WithLabelValues(resourceType).Set(count)
}

func RecordDatabaseQuery(operation, status string, duration time.Duration) {
	DatabaseQueriesTotal.WithLabelValues(operation, status).Inc()
	DatabaseQueryDuration.WithLabelValues(operation).Observe(duration.Seconds())
}
