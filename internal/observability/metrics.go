package observability

import (
	"strconv"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/prometheus/client_golang/prometheus"
)

var (
	httpRequestsTotal = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "groupsync_http_requests_total",
			Help: "Total number of HTTP requests processed by the group sync service.",
		},
		[]string{"method", "route", "status"},
	)
	httpRequestDuration = prometheus.NewHistogramVec(
		prometheus.HistogramOpts{
			Name:    "groupsync_http_request_duration_seconds",
			Help:    "HTTP request latencies in seconds.",
			Buckets: prometheus.DefBuckets,
		},
		[]string{"route"},
	)
	syncPassesTotal = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "groupsync_passes_total",
			Help: "Total number of admin-rights reconciliation passes.",
		},
		[]string{"trigger", "result"},
	)
	syncPassDuration = prometheus.NewHistogram(
		prometheus.HistogramOpts{
			Name:    "groupsync_pass_duration_seconds",
			Help:    "Reconciliation pass latencies in seconds.",
			Buckets: prometheus.DefBuckets,
		},
	)
	syncGroupsTotal = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "groupsync_groups_total",
			Help: "Per-group reconciliation outcomes.",
		},
		[]string{"outcome"},
	)
	syncAdminsWrittenTotal = prometheus.NewCounter(
		prometheus.CounterOpts{
			Name: "groupsync_admins_written_total",
			Help: "Total number of administrator rows written by sync passes.",
		},
	)
	telegramRequestsTotal = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "groupsync_telegram_requests_total",
			Help: "Total number of Telegram API calls.",
		},
		[]string{"method", "result"},
	)
	amqpPublishErrorsTotal = prometheus.NewCounter(
		prometheus.CounterOpts{
			Name: "groupsync_amqp_publish_errors_total",
			Help: "Total number of AMQP publish errors.",
		},
	)
)

func init() {
	prometheus.MustRegister(
		httpRequestsTotal,
		httpRequestDuration,
		syncPassesTotal,
		syncPassDuration,
		syncGroupsTotal,
		syncAdminsWrittenTotal,
		telegramRequestsTotal,
		amqpPublishErrorsTotal,
	)
}

func HTTPMetricsMiddleware() gin.HandlerFunc {
	return func(c *gin.Context) {
		start := time.Now()
		c.Next()

		route := c.FullPath()
		if route == "" {
			route = c.Request.URL.Path
		}
		status := c.Writer.Status()

		httpRequestsTotal.WithLabelValues(c.Request.Method, route, strconv.Itoa(status)).Inc()
		httpRequestDuration.WithLabelValues(route).Observe(time.Since(start).Seconds())
	}
}

func ObserveSyncPass(trigger, result string, elapsed time.Duration) {
	syncPassesTotal.WithLabelValues(trigger, result).Inc()
	syncPassDuration.Observe(elapsed.Seconds())
}

func IncSyncGroup(outcome string) {
	syncGroupsTotal.WithLabelValues(outcome).Inc()
}

func AddAdminsWritten(count int) {
	syncAdminsWrittenTotal.Add(float64(count))
}

func IncTelegramRequest(method, result string) {
	telegramRequestsTotal.WithLabelValues(method, result).Inc()
}

func IncAMQPPublishError() {
	amqpPublishErrorsTotal.Inc()
}
