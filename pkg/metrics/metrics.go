package metrics

import (
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

var (
	// HTTP 请求延迟（秒）
	HTTPRequestDuration = promauto.NewHistogramVec(
		prometheus.HistogramOpts{
			Name:    "http_request_duration_seconds",
			Help:    "HTTP request duration in seconds",
			Buckets: prometheus.ExponentialBuckets(0.001, 2, 12),
		},
		[]string{"method", "path", "status"},
	)

	// 慢查询计数
	SlowQueryCount = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "db_slow_query_total",
			Help: "Number of queries slower than the configured threshold",
		},
		[]string{"command"},
	)

	SlowQueryDuration = promauto.NewHistogram(
		prometheus.HistogramOpts{
			Name:    "db_slow_query_duration_seconds",
			Help:    "Duration of slow queries in seconds",
			Buckets: prometheus.ExponentialBuckets(0.1, 2, 8),
		},
	)

	// MQ 消费延迟（毫秒）
	MQConsumeLatency = promauto.NewHistogramVec(
		prometheus.HistogramOpts{
			Name:    "mq_consume_latency_ms",
			Help:    "MQ message consumption latency in milliseconds",
			Buckets: prometheus.ExponentialBuckets(10, 2, 10),
		},
		[]string{"routing_key", "queue"},
	)

	OutboxEventCount = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "outbox_event_total",
			Help: "Outbox events by routing key and result",
		},
		[]string{"routing_key", "result"}, // result: published, failed, replayed
	)

	ApplicationTransitionCount = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "application_transition_total",
			Help: "Application status transitions",
		},
		[]string{"to"},
	)

	ChatProvisionCount = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "chat_provision_total",
			Help: "Chats created from application.accepted events",
		},
		[]string{"result"}, // created, exists, failed, duplicate
	)

	MessageSentCount = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "chat_message_sent_total",
			Help: "Chat messages appended",
		},
		[]string{"type"},
	)

	RateLimitedCount = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "http_rate_limited_total",
			Help: "Requests rejected by the rate limiter",
		},
		[]string{"path"},
	)
)

// RecordHTTPRequestDuration 记录 HTTP 请求延迟
func RecordHTTPRequestDuration(method, path, status string, duration time.Duration) {
	HTTPRequestDuration.WithLabelValues(method, path, status).Observe(duration.Seconds())
}

// IncrementSlowQuery 记录慢查询
func IncrementSlowQuery(command string, duration time.Duration) {
	SlowQueryCount.WithLabelValues(command).Inc()
	SlowQueryDuration.Observe(duration.Seconds())
}

// RecordMQConsumeLatency 记录 MQ 消费延迟
func RecordMQConsumeLatency(routingKey, queue string, duration time.Duration) {
	MQConsumeLatency.WithLabelValues(routingKey, queue).Observe(float64(duration.Milliseconds()))
}

func IncrementOutboxEvent(routingKey, result string) {
	OutboxEventCount.WithLabelValues(routingKey, result).Inc()
}

func IncrementApplicationTransition(to string) {
	ApplicationTransitionCount.WithLabelValues(to).Inc()
}

func IncrementChatProvision(result string) {
	ChatProvisionCount.WithLabelValues(result).Inc()
}

func IncrementMessageSent(messageType string) {
	MessageSentCount.WithLabelValues(messageType).Inc()
}

func IncrementRateLimited(path string) {
	RateLimitedCount.WithLabelValues(path).Inc()
}
