package metrics

import (
	"testing"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/testutil"
)

func TestObserveCounters(t *testing.T) {
	reg := prometheus.NewRegistry()
	m := NewBookingMetrics(reg)

	m.ObserveBookingAttempt("accepted")
	m.ObserveBookingAttempt("accepted")
	m.ObserveBookingAttempt("slot_booked")
	m.ObserveWebhookOutcome("booked")
	m.ObserveIntegrityViolation()
	m.ObserveWebhookLatency(0.05)

	if got := testutil.ToFloat64(m.bookingAttempts.WithLabelValues("accepted")); got != 2 {
		t.Fatalf("accepted attempts = %v, want 2", got)
	}
	if got := testutil.ToFloat64(m.bookingAttempts.WithLabelValues("slot_booked")); got != 1 {
		t.Fatalf("slot_booked attempts = %v, want 1", got)
	}
	if got := testutil.ToFloat64(m.webhookOutcomes.WithLabelValues("booked")); got != 1 {
		t.Fatalf("webhook outcomes = %v, want 1", got)
	}
	if got := testutil.ToFloat64(m.integrityViolations); got != 1 {
		t.Fatalf("integrity violations = %v, want 1", got)
	}
}

func TestNilReceiverIsSafe(t *testing.T) {
	var m *BookingMetrics
	m.ObserveBookingAttempt("accepted")
	m.ObserveWebhookOutcome("booked")
	m.ObserveWebhookLatency(0.1)
	m.ObserveIntegrityViolation()
}
