package metrics

import (
	"net/http"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"github.com/prometheus/client_golang/prometheus/promauto"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

const namespace = "restore"

// Metrics holds the service's Prometheus collectors.
type Metrics struct {
	gatherer prometheus.Gatherer

	webhookEvents     *prometheus.CounterVec
	ledgerCredits     *prometheus.CounterVec
	ledgerErrors      *prometheus.CounterVec
	quotaDecisions    *prometheus.CounterVec
	restorations      *prometheus.CounterVec
	inferenceDuration *prometheus.HistogramVec
	rateLimited       *prometheus.CounterVec
	balanceMismatches prometheus.Counter
}

// New registers the collectors on reg.
func New(reg *prometheus.Registry) *Metrics {
	factory := promauto.With(reg)
	return &Metrics{
		gatherer: reg,
		webhookEvents: factory.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "webhook_events_total",
			Help:      "Inbound payment events by type and outcome.",
		}, []string{"event_type", "outcome"}),
		ledgerCredits: factory.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "ledger_credits_total",
			Help:      "Credits moved by the ledger, by operation.",
		}, []string{"operation"}),
		ledgerErrors: factory.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "ledger_errors_total",
			Help:      "Failed ledger operations.",
		}, []string{"operation"}),
		quotaDecisions: factory.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "quota_decisions_total",
			Help:      "Free-tier quota decisions.",
		}, []string{"decision"}),
		restorations: factory.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "restorations_total",
			Help:      "Finished restoration sessions by status and funding source.",
		}, []string{"status", "funding"}),
		inferenceDuration: factory.NewHistogramVec(prometheus.HistogramOpts{
			Namespace: namespace,
			Name:      "inference_duration_seconds",
			Help:      "Latency of inference provider calls.",
			Buckets:   []float64{0.5, 1, 2, 5, 10, 20, 30, 60, 120},
		}, []string{"outcome"}),
		rateLimited: factory.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "rate_limited_requests_total",
			Help:      "Requests rejected by the rate limiter.",
		}, []string{"route"}),
		balanceMismatches: factory.NewCounter(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "ledger_balance_mismatches_total",
			Help:      "Cached balances that disagreed with their batches.",
		}),
	}
}

// NewDefault registers the service collectors together with the Go runtime
// and process collectors.
func NewDefault() *Metrics {
	reg := prometheus.NewRegistry()
	reg.MustRegister(
		collectors.NewGoCollector(),
		collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}),
	)
	return New(reg)
}

// NewNop returns metrics bound to a private registry.
func NewNop() *Metrics {
	return New(prometheus.NewRegistry())
}

// Handler serves the registry in the Prometheus text format.
func (m *Metrics) Handler() http.Handler {
	return promhttp.HandlerFor(m.gatherer, promhttp.HandlerOpts{})
}

func (m *Metrics) WebhookEvent(eventType, outcome string) {
	m.webhookEvents.WithLabelValues(eventType, outcome).Inc()
}

func (m *Metrics) LedgerCredits(operation string, credits int) {
	if credits > 0 {
		m.ledgerCredits.WithLabelValues(operation).Add(float64(credits))
	}
}

func (m *Metrics) LedgerError(operation string) {
	m.ledgerErrors.WithLabelValues(operation).Inc()
}

func (m *Metrics) QuotaDecision(decision string) {
	m.quotaDecisions.WithLabelValues(decision).Inc()
}

func (m *Metrics) Restoration(status, funding string) {
	m.restorations.WithLabelValues(status, funding).Inc()
}

func (m *Metrics) ObserveInference(outcome string, elapsed time.Duration) {
	m.inferenceDuration.WithLabelValues(outcome).Observe(elapsed.Seconds())
}

func (m *Metrics) RateLimited(route string) {
	m.rateLimited.WithLabelValues(route).Inc()
}

func (m *Metrics) BalanceMismatch() {
	m.balanceMismatches.Inc()
}
