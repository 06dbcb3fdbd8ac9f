package metrics

import (
	"net/http"
	"strconv"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

const namespace = "pickpoint"

type Metrics struct {
	registry *prometheus.Registry

	HTTPRequestsTotal   *prometheus.CounterVec
	HTTPRequestDuration *prometheus.HistogramVec

	Transitions          *prometheus.CounterVec
	FeesCollected        *prometheus.CounterVec
	FeeMismatches        *prometheus.CounterVec
	SchemaWarnings       *prometheus.CounterVec
	Notifications        *prometheus.CounterVec
	CircuitBreakerState  *prometheus.GaugeVec
	PaymentLinksCreated  prometheus.Counter
	MembershipsPurchased prometheus.Counter
}

// New builds a Metrics on its own registry, so tests can create as many as
// they need.
func New() *Metrics {
	registry := prometheus.NewRegistry()
	registry.MustRegister(prometheus.NewGoCollector())
	registry.MustRegister(prometheus.NewProcessCollector(prometheus.ProcessCollectorOpts{}))

	m := &Metrics{registry: registry}

	m.HTTPRequestsTotal = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "http_requests_total",
			Help:      "Total number of HTTP requests",
		},
		[]string{"method", "path", "status"},
	)

	m.HTTPRequestDuration = prometheus.NewHistogramVec(
		prometheus.HistogramOpts{
			Namespace: namespace,
			Name:      "http_request_duration_seconds",
			Help:      "HTTP request duration in seconds",
			Buckets:   []float64{.001, .005, .01, .025, .05, .1, .25, .5, 1, 2.5, 5},
		},
		[]string{"method", "path"},
	)

	m.Transitions = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "package_transitions_total",
			Help:      "Package lifecycle write attempts by operation and result",
		},
		[]string{"operation", "result"},
	)

	m.FeesCollected = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "fees_collected_rupiah_total",
			Help:      "Storage fees frozen onto packages, in Rupiah",
		},
		[]string{"location"},
	)

	m.FeeMismatches = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "fee_mismatch_total",
			Help:      "Pickups where the client-side fee differed from the server fee",
		},
		[]string{"operation"},
	)

	m.SchemaWarnings = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "pricing_schema_warnings_total",
			Help:      "Fee computations that hit a misconfigured pricing schema",
		},
		[]string{"location", "code"},
	)

	m.Notifications = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "notifications_total",
			Help:      "WhatsApp notifications by kind and outcome",
		},
		[]string{"kind", "status"},
	)

	m.CircuitBreakerState = prometheus.NewGaugeVec(
		prometheus.GaugeOpts{
			Namespace: namespace,
			Name:      "circuit_breaker_state",
			Help:      "Circuit breaker state (0=closed, 1=half-open, 2=open)",
		},
		[]string{"name"},
	)

	m.PaymentLinksCreated = prometheus.NewCounter(prometheus.CounterOpts{
		Namespace: namespace,
		Name:      "payment_links_created_total",
		Help:      "Shareable payment links issued",
	})

	m.MembershipsPurchased = prometheus.NewCounter(prometheus.CounterOpts{
		Namespace: namespace,
		Name:      "memberships_purchased_total",
		Help:      "Membership purchases and renewals",
	})

	registry.MustRegister(
		m.HTTPRequestsTotal,
		m.HTTPRequestDuration,
		m.Transitions,
		m.FeesCollected,
		m.FeeMismatches,
		m.SchemaWarnings,
		m.Notifications,
		m.CircuitBreakerState,
		m.PaymentLinksCreated,
		m.MembershipsPurchased,
	)

	return m
}

func (m *Metrics) Handler() http.Handler {
	return promhttp.HandlerFor(m.registry, promhttp.HandlerOpts{EnableOpenMetrics: true})
}

func (m *Metrics) Registry() *prometheus.Registry {
	return m.registry
}

func (m *Metrics) RecordHTTPRequest(method, path string, status int, duration time.Duration) {
	m.HTTPRequestsTotal.WithLabelValues(method, path, strconv.Itoa(status)).Inc()
	m.HTTPRequestDuration.WithLabelValues(method, path).Observe(duration.Seconds())
}

func (m *Metrics) RecordTransition(operation, result string) {
	m.Transitions.WithLabelValues(operation, result).Inc()
}

func (m *Metrics) RecordFeeCollected(locationID string, amount int64) {
	if amount > 0 {
		m.FeesCollected.WithLabelValues(locationID).Add(float64(amount))
	}
}

func (m *Metrics) RecordFeeMismatch(operation string) {
	m.FeeMismatches.WithLabelValues(operation).Inc()
}

func (m *Metrics) RecordSchemaWarning(locationID, code string) {
	m.SchemaWarnings.WithLabelValues(locationID, code).Inc()
}

func (m *Metrics) RecordNotification(kind, status string) {
	m.Notifications.WithLabelValues(kind, status).Inc()
}

func (m *Metrics) SetCircuitBreakerState(name string, state int) {
	m.CircuitBreakerState.WithLabelValues(name).Set(float64(state))
}
