package payments

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"

	"github.com/namanhealth/booking-api/internal/appointments"
	"github.com/namanhealth/booking-api/internal/doctors"
	"github.com/namanhealth/booking-api/internal/observability/metrics"
	"github.com/namanhealth/booking-api/internal/schedule"
	"github.com/namanhealth/booking-api/pkg/logging"
)

var (
	// ErrInvalidRequest covers missing or malformed booking fields.
	ErrInvalidRequest = errors.New("payments: invalid request")
	// ErrDoctorUnavailable is returned for unknown or inactive doctors.
	ErrDoctorUnavailable = errors.New("payments: doctor not found or not active")
	// ErrNotAuthorized is returned when a requester may not view an order.
	ErrNotAuthorized = errors.New("payments: not authorized for order")
	// ErrProviderUnavailable wraps provider call failures; callers may retry.
	ErrProviderUnavailable = errors.New("payments: payment provider unavailable")
)

// DoctorDirectory is the narrow read interface onto the doctor records.
type DoctorDirectory interface {
	GetByID(ctx context.Context, id uuid.UUID) (*doctors.Doctor, error)
}

type orderCreator interface {
	CreateOrder(ctx context.Context, req OrderRequest) (*OrderResponse, error)
}

// ServiceConfig carries the booking-flow settings resolved at startup.
type ServiceConfig struct {
	DefaultFee    int64
	Currency      string
	ReturnURLBase string // frontend base; order id is appended as a query param
	NotifyURL     string // webhook endpoint handed to the provider
}

// Service opens payment intents for booking attempts and answers order-status
// queries. Appointment creation happens later, in the Reconciler.
type Service struct {
	intents   *Store
	guard     *Guard
	directory DoctorDirectory
	provider  orderCreator
	cfg       ServiceConfig
	metrics   *metrics.BookingMetrics
	logger    *logging.Logger
	now       func() time.Time
}

func NewService(intents *Store, guard *Guard, directory DoctorDirectory, provider orderCreator, cfg ServiceConfig, m *metrics.BookingMetrics, logger *logging.Logger) *Service {
	if logger == nil {
		logger = logging.Default()
	}
	if cfg.Currency == "" {
		cfg.Currency = "INR"
	}
	return &Service{
		intents:   intents,
		guard:     guard,
		directory: directory,
		provider:  provider,
		cfg:       cfg,
		metrics:   m,
		logger:    logger,
		now:       time.Now,
	}
}

// WithClock overrides the time source, for tests.
func (s *Service) WithClock(now func() time.Time) *Service {
	s.now = now
	return s
}

// StartBookingRequest is one patient checkout attempt.
type StartBookingRequest struct {
	DoctorID     uuid.UUID
	Date         time.Time
	TimeSlot     string
	Notes        string
	PatientID    uuid.UUID
	PatientName  string
	PatientEmail string
	PatientPhone string
}

// CheckoutDetails is returned to the client so it can hand the patient to the
// provider's hosted checkout.
type CheckoutDetails struct {
	OrderID          string          `json:"orderId"`
	PaymentSessionID string          `json:"paymentSessionId"`
	PaymentLink      string          `json:"paymentLink"`
	Amount           int64           `json:"amount"`
	Currency         string          `json:"currency"`
	Doctor           *doctors.Doctor `json:"doctor"`
}

// StartBooking validates the slot, reserves it with a PENDING intent and
// returns the provider checkout reference. The guard check runs twice: once
// before the provider call (failing fast and expiring stale holds) and again
// around the intent insert, so the slot cannot be given away during the
// provider round-trip.
func (s *Service) StartBooking(ctx context.Context, req StartBookingRequest) (*CheckoutDetails, error) {
	if req.DoctorID == uuid.Nil || req.Date.IsZero() || req.TimeSlot == "" {
		return nil, fmt.Errorf("%w: doctor, date and time slot are required", ErrInvalidRequest)
	}
	if !schedule.ValidSlotValue(req.TimeSlot) {
		return nil, fmt.Errorf("%w: time slot %q is not a valid HH:MM label", ErrInvalidRequest, req.TimeSlot)
	}

	doctor, err := s.directory.GetByID(ctx, req.DoctorID)
	if errors.Is(err, doctors.ErrNotFound) {
		return nil, ErrDoctorUnavailable
	}
	if err != nil {
		return nil, err
	}
	if !doctor.IsActive {
		return nil, ErrDoctorUnavailable
	}

	if err := s.reserve(ctx, req); err != nil {
		s.observeAttempt(err)
		return nil, err
	}

	amount := doctor.ConsultationFee
	if amount <= 0 {
		amount = s.cfg.DefaultFee
	}
	orderID := NewOrderID(s.now())
	date := schedule.NormalizeDate(req.Date)

	order, err := s.provider.CreateOrder(ctx, OrderRequest{
		OrderID:  orderID,
		Amount:   amount,
		Currency: s.cfg.Currency,
		Customer: CustomerDetails{
			ID:    req.PatientID.String(),
			Name:  req.PatientName,
			Email: req.PatientEmail,
			Phone: req.PatientPhone,
		},
		ReturnURL: fmt.Sprintf("%s/payment-status?order_id=%s", s.cfg.ReturnURLBase, orderID),
		NotifyURL: s.cfg.NotifyURL,
		Note:      fmt.Sprintf("Consultation with %s on %s @ %s", doctor.Name, date.Format("2 Jan 2006"), req.TimeSlot),
	})
	if err != nil {
		s.logger.Error("provider order creation failed", "error", err, "order_id", orderID)
		return nil, fmt.Errorf("%w: %v", ErrProviderUnavailable, err)
	}

	link := HostedCheckoutLink(order.OrderID, order.PaymentSessionID)

	intent, err := s.openIntent(ctx, req, InsertParams{
		OrderID:          orderID,
		PaymentSessionID: order.PaymentSessionID,
		PaymentLink:      link,
		Amount:           amount,
		Currency:         s.cfg.Currency,
		PatientID:        req.PatientID,
		PatientName:      req.PatientName,
		PatientEmail:     req.PatientEmail,
		DoctorID:         req.DoctorID,
		Date:             date,
		TimeSlot:         req.TimeSlot,
		Notes:            req.Notes,
	})
	if err != nil {
		s.observeAttempt(err)
		return nil, err
	}

	s.observeAttempt(nil)
	s.logger.Info("booking started",
		"order_id", intent.OrderID,
		"doctor_id", req.DoctorID,
		"date", date.Format("2006-01-02"),
		"time_slot", req.TimeSlot,
	)
	return &CheckoutDetails{
		OrderID:          intent.OrderID,
		PaymentSessionID: intent.PaymentSessionID,
		PaymentLink:      intent.PaymentLink,
		Amount:           intent.Amount,
		Currency:         intent.Currency,
		Doctor:           doctor,
	}, nil
}

// reserve runs the guard in its own transaction so lazy expiry of a stale hold
// commits even when the attempt later fails.
func (s *Service) reserve(ctx context.Context, req StartBookingRequest) error {
	tx, err := s.intents.Begin(ctx)
	if err != nil {
		return fmt.Errorf("payments: begin reserve: %w", err)
	}
	defer func() { _ = tx.Rollback(ctx) }()

	if err := s.guard.TryReserve(ctx, tx, req.DoctorID, req.Date, req.TimeSlot); err != nil {
		return err
	}
	if err := tx.Commit(ctx); err != nil {
		return fmt.Errorf("payments: commit reserve: %w", err)
	}
	return nil
}

// openIntent re-checks the guard and inserts the PENDING intent in one
// transaction; the partial unique index is the backstop for any race that
// slips between the check and the insert.
func (s *Service) openIntent(ctx context.Context, req StartBookingRequest, params InsertParams) (*Intent, error) {
	tx, err := s.intents.Begin(ctx)
	if err != nil {
		return nil, fmt.Errorf("payments: begin open intent: %w", err)
	}
	defer func() { _ = tx.Rollback(ctx) }()

	if err := s.guard.TryReserve(ctx, tx, req.DoctorID, req.Date, req.TimeSlot); err != nil {
		return nil, err
	}
	intent, err := s.intents.Insert(ctx, tx, params)
	if errors.Is(err, ErrIntentConflict) {
		return nil, ErrSlotPaymentInProgress
	}
	if err != nil {
		return nil, err
	}
	if err := tx.Commit(ctx); err != nil {
		return nil, fmt.Errorf("payments: commit open intent: %w", err)
	}
	return intent, nil
}

func (s *Service) observeAttempt(err error) {
	switch {
	case err == nil:
		s.metrics.ObserveBookingAttempt("accepted")
	case errors.Is(err, ErrSlotAlreadyBooked):
		s.metrics.ObserveBookingAttempt("slot_booked")
	case errors.Is(err, ErrSlotPaymentInProgress):
		s.metrics.ObserveBookingAttempt("payment_in_progress")
	default:
		s.metrics.ObserveBookingAttempt("error")
	}
}

// OrderStatus is the owner-facing view of a payment attempt.
type OrderStatus struct {
	OrderID     string                    `json:"orderId"`
	Status      string                    `json:"status"`
	Amount      int64                     `json:"amount"`
	Currency    string                    `json:"currency"`
	Appointment *appointments.Appointment `json:"appointment,omitempty"`
}

type appointmentLoader interface {
	GetByID(ctx context.Context, id uuid.UUID) (*appointments.Appointment, error)
}

// GetOrderStatus returns the intent state for its owner or an administrator.
func (s *Service) GetOrderStatus(ctx context.Context, bookings appointmentLoader, orderID string, requesterID uuid.UUID, isAdmin bool) (*OrderStatus, error) {
	intent, err := s.intents.GetByOrderID(ctx, nil, orderID)
	if err != nil {
		return nil, err
	}
	if !isAdmin && intent.PatientID != requesterID {
		return nil, ErrNotAuthorized
	}

	status := &OrderStatus{
		OrderID:  intent.OrderID,
		Status:   intent.Status,
		Amount:   intent.Amount,
		Currency: intent.Currency,
	}
	if intent.AppointmentID != nil && bookings != nil {
		appt, err := bookings.GetByID(ctx, *intent.AppointmentID)
		if err != nil {
			s.logger.Warn("linked appointment lookup failed", "error", err, "order_id", orderID)
		} else {
			status.Appointment = appt
		}
	}
	return status, nil
}
