// Package metrics exposes Prometheus instruments for the API.
package metrics

import (
	"strconv"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/prometheus/client_golang/prometheus"
)

const namespace = "orgtask"

// Metrics holds the registered collectors.
type Metrics struct {
	RequestsTotal   *prometheus.CounterVec
	RequestDuration *prometheus.HistogramVec
	StatusChanges   *prometheus.CounterVec
	InviteCodes     prometheus.Counter
	Invitations     *prometheus.CounterVec
}

// New creates the collectors and registers them with reg.
func New(reg prometheus.Registerer) (*Metrics, error) {
	m := &Metrics{
		RequestsTotal: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "http_requests_total",
			Help:      "HTTP requests by method, route and status.",
		}, []string{"method", "route", "status"}),
		RequestDuration: prometheus.NewHistogramVec(prometheus.HistogramOpts{
			Namespace: namespace,
			Name:      "http_request_duration_seconds",
			Help:      "HTTP request latency by method and route.",
			Buckets:   prometheus.DefBuckets,
		}, []string{"method", "route"}),
		StatusChanges: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "task_status_changes_total",
			Help:      "Accepted task status changes by target status.",
		}, []string{"status"}),
		InviteCodes: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "invite_codes_rotated_total",
			Help:      "Invite codes rotated.",
		}),
		Invitations: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "invitations_total",
			Help:      "Invitation notifications by outcome.",
		}, []string{"outcome"}),
	}

	for _, c := range []prometheus.Collector{
		m.RequestsTotal,
		m.RequestDuration,
		m.StatusChanges,
		m.InviteCodes,
		m.Invitations,
	} {
		if err := reg.Register(c); err != nil {
			return nil, err
		}
	}
	return m, nil
}

// Middleware records request counts and latency. Unmatched routes are
// grouped under a single label to bound cardinality.
func (m *Metrics) Middleware() gin.HandlerFunc {
	return func(c *gin.Context) {
		start := time.Now()
		c.Next()

		route := c.FullPath()
		if route == "" {
			route = "unmatched"
		}
		m.RequestsTotal.WithLabelValues(c.Request.Method, route, strconv.Itoa(c.Writer.Status())).Inc()
		m.RequestDuration.WithLabelValues(c.Request.Method, route).Observe(time.Since(start).Seconds())
	}
}

// RecordStatusChange counts an accepted status transition. Safe on a nil
// receiver so services can run without metrics.
func (m *Metrics) RecordStatusChange(status string) {
	if m == nil {
		return
	}
	m.StatusChanges.WithLabelValues(status).Inc()
}

// RecordInviteCodeRotation counts a rotated invite code.
func (m *Metrics) RecordInviteCodeRotation() {
	if m == nil {
		return
	}
	m.InviteCodes.Inc()
}

// RecordInvitation counts an invitation delivery outcome ("sent" or "failed").
func (m *Metrics) RecordInvitation(outcome string) {
	if m == nil {
		return
	}
	m.Invitations.WithLabelValues(outcome).Inc()
}
