package observability

import (
	"strconv"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"

	"github.com/spec-kit/console-access/internal/access"
)

// Metrics holds the service's Prometheus collectors. A nil *Metrics is valid
// and records nothing.
type Metrics struct {
	requests        *prometheus.CounterVec
	requestDuration *prometheus.HistogramVec
	errors          *prometheus.CounterVec
	decisions       *prometheus.CounterVec
	syncs           *prometheus.CounterVec
	signIns         *prometheus.CounterVec
}

// NewMetrics registers the collectors with reg.
func NewMetrics(reg prometheus.Registerer) *Metrics {
	factory := promauto.With(reg)
	return &Metrics{
		requests: factory.NewCounterVec(prometheus.CounterOpts{
			Name: "console_http_requests_total",
			Help: "HTTP requests by route, method and status",
		}, []string{"route", "method", "status"}),
		requestDuration: factory.NewHistogramVec(prometheus.HistogramOpts{
			Name:    "console_http_request_duration_seconds",
			Help:    "HTTP request latency by route and method",
			Buckets: []float64{0.001, 0.005, 0.01, 0.025, 0.05, 0.1, 0.25, 0.5, 1},
		}, []string{"route", "method"}),
		errors: factory.NewCounterVec(prometheus.CounterOpts{
			Name: "console_http_errors_total",
			Help: "Error responses by route, method and error code",
		}, []string{"route", "method", "code"}),
		decisions: factory.NewCounterVec(prometheus.CounterOpts{
			Name: "console_access_decisions_total",
			Help: "Access guard decisions by outcome and reason",
		}, []string{"outcome", "reason"}),
		syncs: factory.NewCounterVec(prometheus.CounterOpts{
			Name: "console_permission_syncs_total",
			Help: "Permission and role sync operations by result",
		}, []string{"operation", "result"}),
		signIns: factory.NewCounterVec(prometheus.CounterOpts{
			Name: "console_signins_total",
			Help: "Sign-in attempts by result",
		}, []string{"result"}),
	}
}

// RecordRequest counts a served request and its latency.
func (m *Metrics) RecordRequest(route, method string, status int, duration time.Duration) {
	if m == nil {
		return
	}
	m.requests.WithLabelValues(route, method, strconv.Itoa(status)).Inc()
	m.requestDuration.WithLabelValues(route, method).Observe(duration.Seconds())
}

// RecordError counts an error response.
func (m *Metrics) RecordError(route, method, code string) {
	if m == nil {
		return
	}
	m.errors.WithLabelValues(route, method, code).Inc()
}

// RecordDecision counts a guard decision.
func (m *Metrics) RecordDecision(decision access.Decision) {
	if m == nil {
		return
	}
	m.decisions.WithLabelValues(string(decision.Outcome), string(decision.Reason)).Inc()
}

// RecordSync counts a sync operation; result is "success" or an error code.
func (m *Metrics) RecordSync(operation, result string) {
	if m == nil {
		return
	}
	m.syncs.WithLabelValues(operation, result).Inc()
}

// RecordSignIn counts a sign-in attempt; result is "success" or a failure reason.
func (m *Metrics) RecordSignIn(result string) {
	if m == nil {
		return
	}
	m.signIns.WithLabelValues(result).Inc()
}
