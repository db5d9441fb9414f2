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
			Name: "chat_client_http_requests_total",
			Help: "Total number of local API requests processed by the chat client.",
		},
		[]string{"method", "route", "status"},
	)
	httpRequestDuration = prometheus.NewHistogramVec(
		prometheus.HistogramOpts{
			Name:    "chat_client_http_request_duration_seconds",
			Help:    "Local API request latencies in seconds.",
			Buckets: prometheus.DefBuckets,
		},
		[]string{"route"},
	)
	gatewayRequestsTotal = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "chat_client_gateway_requests_total",
			Help: "Total number of backend REST calls by operation and outcome.",
		},
		[]string{"op", "outcome"},
	)
	gatewayRequestDuration = prometheus.NewHistogramVec(
		prometheus.HistogramOpts{
			Name:    "chat_client_gateway_request_duration_seconds",
			Help:    "Backend REST call latencies in seconds.",
			Buckets: prometheus.DefBuckets,
		},
		[]string{"op"},
	)
	wsActiveConnections = prometheus.NewGaugeVec(
		prometheus.GaugeOpts{
			Name: "chat_client_ws_active_connections",
			Help: "Number of open push channel connections.",
		},
		[]string{"kind"},
	)
	wsEventsTotal = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "chat_client_ws_events_total",
			Help: "Total number of push channel lifecycle events.",
		},
		[]string{"kind", "event"},
	)
	pushEventsTotal = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "chat_client_push_events_total",
			Help: "Total number of push events by direction and name.",
		},
		[]string{"direction", "event"},
	)
	pushDecodeErrorsTotal = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "chat_client_push_decode_errors_total",
			Help: "Total number of inbound push payloads that could not be decoded.",
		},
		[]string{"event"},
	)
	dispatchedEventsTotal = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "chat_client_dispatched_events_total",
			Help: "Total number of events applied to the conversation store.",
		},
		[]string{"event"},
	)
	unreadMessages = prometheus.NewGauge(
		prometheus.GaugeOpts{
			Name: "chat_client_unread_messages",
			Help: "Unread messages across all conversations.",
		},
	)
	amqpPublishErrorsTotal = prometheus.NewCounter(
		prometheus.CounterOpts{
			Name: "chat_client_amqp_publish_errors_total",
			Help: "Total number of AMQP publish errors.",
		},
	)
)

func init() {
	prometheus.MustRegister(
		httpRequestsTotal,
		httpRequestDuration,
		gatewayRequestsTotal,
		gatewayRequestDuration,
		wsActiveConnections,
		wsEventsTotal,
		pushEventsTotal,
		pushDecodeErrorsTotal,
		dispatchedEventsTotal,
		unreadMessages,
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

// ObserveGateway records one backend call.
func ObserveGateway(op string, err error, elapsed time.Duration) {
	outcome := "ok"
	if err != nil {
		outcome = "error"
	}
	gatewayRequestsTotal.WithLabelValues(op, outcome).Inc()
	gatewayRequestDuration.WithLabelValues(op).Observe(elapsed.Seconds())
}

func IncWSActive(kind string) {
	wsActiveConnections.WithLabelValues(kind).Inc()
}

func DecWSActive(kind string) {
	wsActiveConnections.WithLabelValues(kind).Dec()
}

func IncWSEvent(kind, event string) {
	wsEventsTotal.WithLabelValues(kind, event).Inc()
}

func IncPushEvent(direction, event string) {
	pushEventsTotal.WithLabelValues(direction, event).Inc()
}

func IncPushDecodeError(event string) {
	pushDecodeErrorsTotal.WithLabelValues(event).Inc()
}

func IncDispatched(event string) {
	dispatchedEventsTotal.WithLabelValues(event).Inc()
}

func SetUnread(n int) {
	unreadMessages.Set(float64(n))
}

func IncAMQPPublishError() {
	amqpPublishErrorsTotal.Inc()
}
