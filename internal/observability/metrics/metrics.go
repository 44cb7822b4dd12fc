package metrics

import (
	"strconv"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/prometheus/client_golang/prometheus"
)

// Payment tracks webhook and state-transition outcomes per gateway/method.
type Payment struct {
	webhooks    *prometheus.CounterVec
	transitions *prometheus.CounterVec
}

func NewPayment(reg prometheus.Registerer) *Payment {
	p := &Payment{
		webhooks: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: "storefront",
			Subsystem: "payment",
			Name:      "webhooks_total",
			Help:      "Webhook deliveries by gateway and outcome.",
		}, []string{"gateway", "outcome"}),
		transitions: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: "storefront",
			Subsystem: "payment",
			Name:      "transitions_total",
			Help:      "Applied payment status transitions by method and status.",
		}, []string{"method", "status"}),
	}
	reg.MustRegister(p.webhooks, p.transitions)
	return p
}

const (
	WebhookOutcomeProcessed = "processed"
	WebhookOutcomeDuplicate = "duplicate"
	WebhookOutcomeRejected  = "rejected"
	WebhookOutcomeIgnored   = "ignored"
)

func (p *Payment) RecordWebhook(gateway, outcome string) {
	if p == nil {
		return
	}
	p.webhooks.WithLabelValues(gateway, outcome).Inc()
}

func (p *Payment) RecordTransition(method, status string) {
	if p == nil {
		return
	}
	p.transitions.WithLabelValues(method, status).Inc()
}

// HTTP tracks request counts and latency per route.
type HTTP struct {
	requests *prometheus.CounterVec
	duration *prometheus.HistogramVec
}

func NewHTTP(reg prometheus.Registerer) *HTTP {
	h := &HTTP{
		requests: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: "storefront",
			Subsystem: "http",
			Name:      "requests_total",
			Help:      "HTTP requests by route, method and status.",
		}, []string{"route", "method", "status"}),
		duration: prometheus.NewHistogramVec(prometheus.HistogramOpts{
			Namespace: "storefront",
			Subsystem: "http",
			Name:      "request_duration_seconds",
			Help:      "HTTP request latency by route.",
			Buckets:   prometheus.DefBuckets,
		}, []string{"route", "method"}),
	}
	reg.MustRegister(h.requests, h.duration)
	return h
}

// GinMiddleware records a request once its handler chain completes.
func (h *HTTP) GinMiddleware() gin.HandlerFunc {
	return func(c *gin.Context) {
		start := time.Now()
		c.Next()

		route := c.FullPath()
		if route == "" {
			route = "unknown"
		}
		h.requests.WithLabelValues(route, c.Request.Method, strconv.Itoa(c.Writer.Status())).Inc()
		h.duration.WithLabelValues(route, c.Request.Method).Observe(time.Since(start).Seconds())
	}
}
