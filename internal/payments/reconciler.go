package payments

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"

	"github.com/jackc/pgx/v5"

	"github.com/namanhealth/booking-api/internal/appointments"
	"github.com/namanhealth/booking-api/internal/notify"
	"github.com/namanhealth/booking-api/internal/observability/metrics"
	"github.com/namanhealth/booking-api/pkg/logging"
)

// Outcome classifies what a provider notification did to domain state. Every
// outcome except a transport-level failure is acknowledged to the provider.
type Outcome string

const (
	OutcomeIgnored         Outcome = "ignored"           // payload carried no order id
	OutcomeOrderNotTracked Outcome = "order_not_tracked" // unknown order, nothing actionable
	OutcomeDuplicate       Outcome = "duplicate"         // intent already PAID, replay
	OutcomeAlreadyFinal    Outcome = "already_final"     // intent FAILED/EXPIRED, absorbing
	OutcomeNotSuccessful   Outcome = "not_successful"    // provider reported non-success
	OutcomeSlotConflict    Outcome = "slot_conflict"     // paid but slot was taken meanwhile
	OutcomeBooked          Outcome = "booked"            // appointment created
)

// Result is what one reconciliation run produced.
type Result struct {
	Outcome     Outcome
	Appointment *appointments.Appointment
}

const providerSuccessStatus = "SUCCESS"

type webhookPayload struct {
	Data struct {
		Order struct {
			OrderID string `json:"order_id"`
		} `json:"order"`
		Payment struct {
			Status        string      `json:"payment_status"`
			CfPaymentID   json.Number `json:"cf_payment_id"`
			BankReference string      `json:"bank_reference"`
			PaymentMethod string      `json:"payment_method"`
		} `json:"payment"`
	} `json:"data"`
}

// referenceID is the provider's payment id, falling back to the bank
// reference when the provider omitted it.
func (p *webhookPayload) referenceID() string {
	if id := p.Data.Payment.CfPaymentID.String(); id != "" {
		return id
	}
	return p.Data.Payment.BankReference
}

// Reconciler turns provider notifications into durable domain state exactly
// once. Signature authentication happens earlier, in the webhook handler,
// over the raw payload bytes.
type Reconciler struct {
	intents   *Store
	bookings  *appointments.Store
	guard     *Guard
	directory DoctorDirectory
	mailer    *notify.Service
	metrics   *metrics.BookingMetrics
	logger    *logging.Logger
}

func NewReconciler(intents *Store, bookings *appointments.Store, guard *Guard, directory DoctorDirectory, mailer *notify.Service, m *metrics.BookingMetrics, logger *logging.Logger) *Reconciler {
	if logger == nil {
		logger = logging.Default()
	}
	return &Reconciler{
		intents:   intents,
		bookings:  bookings,
		guard:     guard,
		directory: directory,
		mailer:    mailer,
		metrics:   m,
		logger:    logger,
	}
}

// Reconcile processes one authenticated notification. It is safe to call any
// number of times with the same payload: the PAID check is the primary
// idempotency gate and the guard re-check the secondary safety net. All state
// mutation happens in a single transaction; the confirmation email goes out
// only after commit and only on the run that created the appointment.
func (r *Reconciler) Reconcile(ctx context.Context, rawBody []byte) (*Result, error) {
	var payload webhookPayload
	if err := json.Unmarshal(rawBody, &payload); err != nil {
		r.logger.Warn("webhook payload not parseable", "error", err)
		return r.done(&Result{Outcome: OutcomeIgnored})
	}
	orderID := payload.Data.Order.OrderID
	if orderID == "" {
		return r.done(&Result{Outcome: OutcomeIgnored})
	}

	tx, err := r.intents.Begin(ctx)
	if err != nil {
		return nil, fmt.Errorf("payments: begin reconcile: %w", err)
	}
	defer func() { _ = tx.Rollback(ctx) }()

	intent, err := r.intents.LockByOrderID(ctx, tx, orderID)
	if errors.Is(err, ErrOrderNotTracked) {
		return r.done(&Result{Outcome: OutcomeOrderNotTracked})
	}
	if err != nil {
		return nil, err
	}

	if intent.Status == IntentPaid {
		return r.done(&Result{Outcome: OutcomeDuplicate})
	}
	if intent.Status != IntentPending {
		// FAILED and EXPIRED are absorbing; a late success notification cannot
		// resurrect the attempt.
		r.logger.Warn("notification for finalized intent", "order_id", orderID, "status", intent.Status)
		return r.done(&Result{Outcome: OutcomeAlreadyFinal})
	}

	providerStatus := payload.Data.Payment.Status
	if providerStatus != providerSuccessStatus {
		target := IntentExpired
		if providerStatus == "FAILED" {
			target = IntentFailed
		}
		if err := r.intents.MarkTerminal(ctx, tx, intent.ID, target, rawBody); err != nil {
			return nil, err
		}
		if err := tx.Commit(ctx); err != nil {
			return nil, fmt.Errorf("payments: commit non-success: %w", err)
		}
		r.logger.Info("payment not successful", "order_id", orderID, "provider_status", providerStatus, "intent_status", target)
		return r.done(&Result{Outcome: OutcomeNotSuccessful})
	}

	if err := r.guard.ConfirmReservation(ctx, tx, intent.DoctorID, intent.Date, intent.TimeSlot); err != nil {
		if !errors.Is(err, ErrSlotAlreadyBooked) {
			return nil, err
		}
		return r.finalizeConflict(ctx, tx, intent, rawBody)
	}

	appt, err := r.bookings.Create(ctx, tx, appointments.CreateParams{
		PatientID:          intent.PatientID,
		PatientName:        intent.PatientName,
		PatientEmail:       intent.PatientEmail,
		DoctorID:           intent.DoctorID,
		Date:               intent.Date,
		TimeSlot:           intent.TimeSlot,
		Status:             appointments.StatusConfirmed,
		Notes:              intent.Notes,
		Amount:             intent.Amount,
		PaymentStatus:      appointments.PaymentPaid,
		PaymentProvider:    ProviderName,
		PaymentOrderID:     intent.OrderID,
		PaymentReferenceID: payload.referenceID(),
		PaymentMode:        payload.Data.Payment.PaymentMethod,
	})
	if errors.Is(err, appointments.ErrSlotTaken) {
		// The unique index caught a race the row locks did not cover.
		return r.finalizeConflict(ctx, tx, intent, rawBody)
	}
	if err != nil {
		return nil, err
	}

	if err := r.intents.MarkPaid(ctx, tx, intent.ID, appt.ID, payload.referenceID(), payload.Data.Payment.PaymentMethod, rawBody); err != nil {
		return nil, err
	}
	if err := tx.Commit(ctx); err != nil {
		return nil, fmt.Errorf("payments: commit booking: %w", err)
	}

	r.logger.Info("booking confirmed from payment",
		"order_id", orderID,
		"tracking_code", appt.TrackingCode,
		"doctor_id", appt.DoctorID,
		"time_slot", appt.TimeSlot,
	)
	r.sendConfirmation(ctx, intent, appt)
	return r.done(&Result{Outcome: OutcomeBooked, Appointment: appt})
}

// finalizeConflict records a post-payment conflict: the money moved but the
// slot is gone. The intent fails, nothing links to an appointment, and the
// incident is flagged for manual refund handling.
func (r *Reconciler) finalizeConflict(ctx context.Context, tx pgx.Tx, intent *Intent, rawBody []byte) (*Result, error) {
	if err := r.intents.MarkTerminal(ctx, tx, intent.ID, IntentFailed, rawBody); err != nil {
		return nil, err
	}
	if err := tx.Commit(ctx); err != nil {
		return nil, fmt.Errorf("payments: commit conflict: %w", err)
	}
	r.metrics.ObserveIntegrityViolation()
	r.logger.Error("slot conflict after successful payment; manual refund required",
		"order_id", intent.OrderID,
		"doctor_id", intent.DoctorID,
		"date", intent.Date.Format("2006-01-02"),
		"time_slot", intent.TimeSlot,
		"amount", intent.Amount,
	)
	return r.done(&Result{Outcome: OutcomeSlotConflict})
}

// sendConfirmation is strictly post-commit and best effort.
func (r *Reconciler) sendConfirmation(ctx context.Context, intent *Intent, appt *appointments.Appointment) {
	if r.mailer == nil {
		return
	}
	doctorName := ""
	if r.directory != nil {
		if doctor, err := r.directory.GetByID(ctx, intent.DoctorID); err == nil {
			doctorName = doctor.Name
		} else {
			r.logger.Warn("doctor lookup for confirmation email failed", "error", err, "doctor_id", intent.DoctorID)
		}
	}
	err := r.mailer.SendBookingConfirmation(ctx, notify.BookingDetails{
		PatientName:  intent.PatientName,
		PatientEmail: intent.PatientEmail,
		DoctorName:   doctorName,
		TrackingCode: appt.TrackingCode,
		Date:         appt.Date,
		TimeSlot:     appt.TimeSlot,
	})
	if err != nil {
		r.logger.Error("confirmation email failed; booking stands", "error", err, "tracking_code", appt.TrackingCode)
	}
}

func (r *Reconciler) done(res *Result) (*Result, error) {
	r.metrics.ObserveWebhookOutcome(string(res.Outcome))
	return res, nil
}
