package observability

import (
	"github.com/prometheus/client_golang/prometheus"
)

// Metrics holds all application metrics
type Metrics struct {
	// Payment event metrics
	EventsApplied   *prometheus.CounterVec
	IntentsCreated  *prometheus.CounterVec
	PaymentOutcomes *prometheus.CounterVec

	// Reconciliation metrics
	ReconcilePassDuration prometheus.Histogram
	ReconcileScanned      prometheus.Counter
	ReconcileOutcomes     *prometheus.CounterVec
	ReconcileLeaseMisses  prometheus.Counter

	// Provider metrics
	ProviderCallDuration   *prometheus.HistogramVec
	ProviderErrors         *prometheus.CounterVec
	CircuitBreakerState    *prometheus.GaugeVec
	CircuitBreakerRequests *prometheus.CounterVec

	// HTTP metrics
	HTTPRequestsTotal   *prometheus.CounterVec
	HTTPRequestDuration *prometheus.HistogramVec

	// Notification metrics
	NotifyPublished *prometheus.CounterVec
	NotifyConsumed  *prometheus.CounterVec
}

// NewMetrics creates and registers all metrics against the given registry.
// If reg is nil, prometheus.DefaultRegisterer is used.
func NewMetrics(namespace string, reg prometheus.Registerer) *Metrics {
	if reg == nil {
		reg = prometheus.DefaultRegisterer
	}
	factory := prometheus.WrapRegistererWith(nil, reg)

	m := &Metrics{
		EventsApplied: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Namespace: namespace,
				Name:      "payment_events_applied_total",
				Help:      "Payment events by source and application outcome",
			},
			[]string{"source", "outcome"},
		),
		IntentsCreated: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Namespace: namespace,
				Name:      "payment_intents_created_total",
				Help:      "Payment intents created by provider",
			},
			[]string{"provider"},
		),
		PaymentOutcomes: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Namespace: namespace,
				Name:      "payment_outcomes_total",
				Help:      "Terminal payment outcomes by provider and status",
			},
			[]string{"provider", "status"},
		),
		ReconcilePassDuration: prometheus.NewHistogram(
			prometheus.HistogramOpts{
				Namespace: namespace,
				Name:      "reconcile_pass_duration_seconds",
				Help:      "Reconciliation pass duration in seconds",
				Buckets:   []float64{0.5, 1, 2, 5, 10, 30, 60, 120},
			},
		),
		ReconcileScanned: prometheus.NewCounter(
			prometheus.CounterOpts{
				Namespace: namespace,
				Name:      "reconcile_intents_scanned_total",
				Help:      "Payment intents scanned by the reconciler",
			},
		),
		ReconcileOutcomes: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Namespace: namespace,
				Name:      "reconcile_outcomes_total",
				Help:      "Per-intent reconciliation outcomes",
			},
			[]string{"outcome"},
		),
		ReconcileLeaseMisses: prometheus.NewCounter(
			prometheus.CounterOpts{
				Namespace: namespace,
				Name:      "reconcile_lease_misses_total",
				Help:      "Intents skipped because another worker held the lease",
			},
		),
		ProviderCallDuration: prometheus.NewHistogramVec(
			prometheus.HistogramOpts{
				Namespace: namespace,
				Name:      "provider_call_duration_seconds",
				Help:      "Provider API call duration in seconds",
				Buckets:   []float64{0.1, 0.25, 0.5, 1, 2, 5, 10, 15},
			},
			[]string{"provider", "operation"},
		),
		ProviderErrors: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Namespace: namespace,
				Name:      "provider_errors_total",
				Help:      "Provider API errors by provider and class",
			},
			[]string{"provider", "class"},
		),
		CircuitBreakerState: prometheus.NewGaugeVec(
			prometheus.GaugeOpts{
				Namespace: namespace,
				Name:      "circuit_breaker_state",
				Help:      "Circuit breaker state (0=closed, 1=half-open, 2=open)",
			},
			[]string{"name"},
		),
		CircuitBreakerRequests: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Namespace: namespace,
				Name:      "circuit_breaker_requests_total",
				Help:      "Total number of circuit breaker requests",
			},
			[]string{"name", "result"},
		),
		HTTPRequestsTotal: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Namespace: namespace,
				Name:      "http_requests_total",
				Help:      "Total number of HTTP requests",
			},
			[]string{"method", "path", "status"},
		),
		HTTPRequestDuration: prometheus.NewHistogramVec(
			prometheus.HistogramOpts{
				Namespace: namespace,
				Name:      "http_request_duration_seconds",
				Help:      "HTTP request duration in seconds",
				Buckets:   prometheus.DefBuckets,
			},
			[]string{"method", "path"},
		),
		NotifyPublished: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Namespace: namespace,
				Name:      "notifications_published_total",
				Help:      "Notification intents published by kind and result",
			},
			[]string{"kind", "result"},
		),
		NotifyConsumed: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Namespace: namespace,
				Name:      "notifications_consumed_total",
				Help:      "Notification intents consumed by kind and result",
			},
			[]string{"kind", "result"},
		),
	}

	// Register all collectors
	factory.MustRegister(
		m.EventsApplied,
		m.IntentsCreated,
		m.PaymentOutcomes,
		m.ReconcilePassDuration,
		m.ReconcileScanned,
		m.ReconcileOutcomes,
		m.ReconcileLeaseMisses,
		m.ProviderCallDuration,
		m.ProviderErrors,
		m.CircuitBreakerState,
		m.CircuitBreakerRequests,
		m.HTTPRequestsTotal,
		m.HTTPRequestDuration,
		m.NotifyPublished,
		m.NotifyConsumed,
	)

	return m
}
