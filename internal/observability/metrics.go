package observability

import (
	"strconv"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

// Metrics holds the prometheus collectors exported by the service.
type Metrics struct {
	requestCount    *prometheus.CounterVec
	requestDuration *prometheus.HistogramVec
	errorCount      *prometheus.CounterVec
	transitions     *prometheus.CounterVec
	requestStatus   *prometheus.CounterVec
}

// NewMetrics registers collectors on reg. A nil registerer gets a private registry.
func NewMetrics(reg prometheus.Registerer) *Metrics {
	if reg == nil {
		reg = prometheus.NewRegistry()
	}
	factory := promauto.With(reg)

	return &Metrics{
		requestCount: factory.NewCounterVec(prometheus.CounterOpts{
			Name: "permit_http_requests_total",
			Help: "Total number of HTTP requests.",
		}, []string{"route", "method", "status"}),
		requestDuration: factory.NewHistogramVec(prometheus.HistogramOpts{
			Name:    "permit_http_request_duration_seconds",
			Help:    "Histogram of HTTP request latencies.",
			Buckets: prometheus.DefBuckets,
		}, []string{"route", "method"}),
		errorCount: factory.NewCounterVec(prometheus.CounterOpts{
			Name: "permit_errors_total",
			Help: "Errors returned to callers by code.",
		}, []string{"code"}),
		transitions: factory.NewCounterVec(prometheus.CounterOpts{
			Name: "permit_item_transitions_total",
			Help: "Item status transitions applied.",
		}, []string{"type", "from", "to"}),
		requestStatus: factory.NewCounterVec(prometheus.CounterOpts{
			Name: "permit_request_status_changes_total",
			Help: "Request status updates by new status.",
		}, []string{"status"}),
	}
}

// RecordRequest increments counters for requests.
func (m *Metrics) RecordRequest(route, method string, status int, duration time.Duration) {
	if m == nil {
		return
	}
	m.requestCount.WithLabelValues(route, method, strconv.Itoa(status)).Inc()
	m.requestDuration.WithLabelValues(route, method).Observe(duration.Seconds())
}

// RecordError increments error counters.
func (m *Metrics) RecordError(code string) {
	if m == nil {
		return
	}
	m.errorCount.WithLabelValues(code).Inc()
}

// RecordTransition counts an applied item transition.
func (m *Metrics) RecordTransition(itemType, from, to string) {
	if m == nil {
		return
	}
	m.transitions.WithLabelValues(itemType, from, to).Inc()
}

// RecordRequestStatus counts a request status update.
func (m *Metrics) RecordRequestStatus(status string) {
	if m == nil {
		return
	}
	m.requestStatus.WithLabelValues(status).Inc()
}
