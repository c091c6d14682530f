// Package metrics exposes Prometheus collectors for the room service.
package metrics

import (
	"strconv"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/prometheus/client_golang/prometheus"
)

type Metrics struct {
	RequestsTotal         *prometheus.CounterVec
	RequestDuration       *prometheus.HistogramVec
	MessagesPosted        prometheus.Counter
	MessagesEvicted       prometheus.Counter
	UndecryptableMessages prometheus.Counter
	AccessDenied          *prometheus.CounterVec
	ActiveWebSockets      prometheus.Gauge
}

// New creates the collectors and registers them with reg.
func New(reg prometheus.Registerer) *Metrics {
	m := &Metrics{
		RequestsTotal: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "crypton_http_requests_total",
			Help: "HTTP requests by method, route and status.",
		}, []string{"method", "path", "status"}),
		RequestDuration: prometheus.NewHistogramVec(prometheus.HistogramOpts{
			Name:    "crypton_http_request_duration_seconds",
			Help:    "HTTP request latency.",
			Buckets: prometheus.DefBuckets,
		}, []string{"method", "path"}),
		MessagesPosted: prometheus.NewCounter(prometheus.CounterOpts{
			Name: "crypton_messages_posted_total",
			Help: "Messages stored.",
		}),
		MessagesEvicted: prometheus.NewCounter(prometheus.CounterOpts{
			Name: "crypton_messages_evicted_total",
			Help: "Messages removed by the per-room retention bound.",
		}),
		UndecryptableMessages: prometheus.NewCounter(prometheus.CounterOpts{
			Name: "crypton_messages_undecryptable_total",
			Help: "History entries replaced by the undecryptable placeholder.",
		}),
		AccessDenied: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "crypton_access_denied_total",
			Help: "Denied room operations.",
		}, []string{"operation"}),
		ActiveWebSockets: prometheus.NewGauge(prometheus.GaugeOpts{
			Name: "crypton_active_websockets",
			Help: "Connected realtime clients.",
		}),
	}

	reg.MustRegister(
		m.RequestsTotal,
		m.RequestDuration,
		m.MessagesPosted,
		m.MessagesEvicted,
		m.UndecryptableMessages,
		m.AccessDenied,
		m.ActiveWebSockets,
	)
	return m
}

// The helpers below are safe to call on a nil *Metrics.

func (m *Metrics) MessagePosted(evicted int64) {
	if m == nil {
		return
	}
	m.MessagesPosted.Inc()
	if evicted > 0 {
		m.MessagesEvicted.Add(float64(evicted))
	}
}

func (m *Metrics) Undecryptable(n int) {
	if m == nil || n == 0 {
		return
	}
	m.UndecryptableMessages.Add(float64(n))
}

func (m *Metrics) Denied(operation string) {
	if m == nil {
		return
	}
	m.AccessDenied.WithLabelValues(operation).Inc()
}

func (m *Metrics) ClientConnected() {
	if m != nil {
		m.ActiveWebSockets.Inc()
	}
}

func (m *Metrics) ClientDisconnected() {
	if m != nil {
		m.ActiveWebSockets.Dec()
	}
}

func MetricsMiddleware(metrics *Metrics) gin.HandlerFunc {
	return func(c *gin.Context) {
		start := time.Now()
		c.Next()

		duration := time.Since(start).Seconds()
		status := strconv.Itoa(c.Writer.Status())
		path := c.FullPath()
		if path == "" {
			path = "unmatched"
		}

		metrics.RequestsTotal.WithLabelValues(c.Request.Method, path, status).Inc()
		metrics.RequestDuration.WithLabelValues(c.Request.Method, path).Observe(duration)
	}
}
