package metrics

import "github.com/prometheus/client_golang/prometheus"

// BookingMetrics exposes counters/histograms for the booking and
// payment-reconciliation flows.
type BookingMetrics struct {
	bookingAttempts     *prometheus.CounterVec
	webhookOutcomes     *prometheus.CounterVec
	webhookLatency      prometheus.Histogram
	integrityViolations prometheus.Counter
}

func NewBookingMetrics(reg prometheus.Registerer) *BookingMetrics {
	m := &BookingMetrics{
		bookingAttempts: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: "clinic",
			Subsystem: "booking",
			Name:      "attempts_total",
			Help:      "Booking attempts by result",
		}, []string{"result"}),
		webhookOutcomes: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: "clinic",
			Subsystem: "payments",
			Name:      "webhook_total",
			Help:      "Provider webhook notifications by reconciliation outcome",
		}, []string{"outcome"}),
		webhookLatency: prometheus.NewHistogram(prometheus.HistogramOpts{
			Namespace: "clinic",
			Subsystem: "payments",
			Name:      "webhook_latency_seconds",
			Help:      "Latency of webhook reconciliation",
			Buckets:   prometheus.DefBuckets,
		}),
		integrityViolations: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: "clinic",
			Subsystem: "payments",
			Name:      "integrity_violations_total",
			Help:      "Paid intents that lost their slot and need manual refund",
		}),
	}
	if reg == nil {
		reg = prometheus.DefaultRegisterer
	}
	reg.MustRegister(m.bookingAttempts, m.webhookOutcomes, m.webhookLatency, m.integrityViolations)
	return m
}

func (m *BookingMetrics) ObserveBookingAttempt(result string) {
	if m == nil {
		return
	}
	m.bookingAttempts.WithLabelValues(result).Inc()
}

func (m *BookingMetrics) ObserveWebhookOutcome(outcome string) {
	if m == nil {
		return
	}
	m.webhookOutcomes.WithLabelValues(outcome).Inc()
}

func (m *BookingMetrics) ObserveWebhookLatency(seconds float64) {
	if m == nil {
		return
	}
	m.webhookLatency.Observe(seconds)
}

func (m *BookingMetrics) ObserveIntegrityViolation() {
	if m == nil {
		return
	}
	m.integrityViolations.Inc()
}
