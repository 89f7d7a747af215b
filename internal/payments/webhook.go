package payments

import (
	"io"
	"net/http"
	"time"

	"github.com/namanhealth/booking-api/internal/observability/metrics"
	"github.com/namanhealth/booking-api/pkg/logging"
)

type signatureVerifier interface {
	VerifyWebhookSignature(rawBody []byte, signature string) bool
}

// WebhookHandler receives provider payment notifications. It authenticates
// the raw payload bytes before any parsing, then hands off to the Reconciler.
// Business outcomes are always acknowledged with 200 so the provider does not
// retry-storm; only authentication failures and internal faults are errors.
type WebhookHandler struct {
	verifier   signatureVerifier
	reconciler *Reconciler
	metrics    *metrics.BookingMetrics
	logger     *logging.Logger
}

func NewWebhookHandler(verifier signatureVerifier, reconciler *Reconciler, m *metrics.BookingMetrics, logger *logging.Logger) *WebhookHandler {
	if logger == nil {
		logger = logging.Default()
	}
	return &WebhookHandler{verifier: verifier, reconciler: reconciler, metrics: m, logger: logger}
}

func (h *WebhookHandler) Handle(w http.ResponseWriter, r *http.Request) {
	started := time.Now()
	rawBody, err := io.ReadAll(r.Body)
	if err != nil {
		writeMessage(w, http.StatusBadRequest, "invalid body")
		return
	}

	if !h.verifier.VerifyWebhookSignature(rawBody, r.Header.Get(SignatureHeader)) {
		h.logger.Error("invalid webhook signature")
		writeMessage(w, http.StatusBadRequest, "Invalid signature")
		return
	}

	result, err := h.reconciler.Reconcile(r.Context(), rawBody)
	h.metrics.ObserveWebhookLatency(time.Since(started).Seconds())
	if err != nil {
		h.logger.Error("webhook reconciliation failed", "error", err)
		writeMessage(w, http.StatusInternalServerError, "Webhook processing failed")
		return
	}

	switch result.Outcome {
	case OutcomeIgnored:
		writeJSON(w, http.StatusOK, map[string]bool{"received": true})
	case OutcomeOrderNotTracked:
		writeMessage(w, http.StatusOK, "Order not tracked")
	case OutcomeDuplicate, OutcomeAlreadyFinal:
		writeMessage(w, http.StatusOK, "Already processed")
	case OutcomeNotSuccessful:
		writeMessage(w, http.StatusOK, "Payment not successful")
	case OutcomeSlotConflict:
		writeMessage(w, http.StatusOK, "Slot already taken")
	default:
		writeJSON(w, http.StatusOK, map[string]bool{"processed": true})
	}
}
