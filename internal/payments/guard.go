package payments

import (
	"context"
	"errors"
	"time"

	"github.com/google/uuid"

	"github.com/namanhealth/booking-api/internal/appointments"
	"github.com/namanhealth/booking-api/pkg/logging"
)

// Rejection reasons surfaced to callers so they can distinguish "pick another
// slot" from "try again in a few minutes".
var (
	ErrSlotAlreadyBooked     = errors.New("payments: slot already booked")
	ErrSlotPaymentInProgress = errors.New("payments: another payment in progress for slot")
)

// DefaultPendingGrace bounds how long an abandoned PENDING intent may hold a slot.
const DefaultPendingGrace = 10 * time.Minute

const expiryReason = "expired automatically after pending grace window"

type intentSlotStore interface {
	FindPendingForSlot(ctx context.Context, q Querier, doctorID uuid.UUID, date time.Time, timeSlot string) (*Intent, error)
	Expire(ctx context.Context, q Querier, id uuid.UUID, reason string) error
}

type bookingConflictStore interface {
	FindActiveBooking(ctx context.Context, q appointments.Querier, doctorID uuid.UUID, date time.Time, timeSlot string) (*appointments.Appointment, error)
}

// Guard decides atomically whether a slot commitment may proceed. All checks
// and the lazy expiry of stale intents run against the caller's transaction;
// the guard holds no state of its own.
type Guard struct {
	intents  intentSlotStore
	bookings bookingConflictStore
	grace    time.Duration
	logger   *logging.Logger
	now      func() time.Time
}

func NewGuard(intents *Store, bookings *appointments.Store, grace time.Duration, logger *logging.Logger) *Guard {
	if grace <= 0 {
		grace = DefaultPendingGrace
	}
	if logger == nil {
		logger = logging.Default()
	}
	return &Guard{
		intents:  intents,
		bookings: bookings,
		grace:    grace,
		logger:   logger,
		now:      time.Now,
	}
}

// WithClock overrides the time source, for tests.
func (g *Guard) WithClock(now func() time.Time) *Guard {
	g.now = now
	return g
}

// TryReserve checks the slot inside the supplied transaction. It returns nil
// when the caller may commit to the slot, ErrSlotAlreadyBooked when a
// non-cancelled appointment holds it, and ErrSlotPaymentInProgress when a live
// PENDING intent within the grace period holds it. A stale PENDING intent is
// expired as part of the same check-and-act.
func (g *Guard) TryReserve(ctx context.Context, q Querier, doctorID uuid.UUID, date time.Time, timeSlot string) error {
	booked, err := g.bookings.FindActiveBooking(ctx, q, doctorID, date, timeSlot)
	if err != nil {
		return err
	}
	if booked != nil {
		return ErrSlotAlreadyBooked
	}

	pending, err := g.intents.FindPendingForSlot(ctx, q, doctorID, date, timeSlot)
	if err != nil {
		return err
	}
	if pending == nil {
		return nil
	}

	age := g.now().Sub(pending.CreatedAt)
	if age <= g.grace {
		return ErrSlotPaymentInProgress
	}

	if err := g.intents.Expire(ctx, q, pending.ID, expiryReason); err != nil {
		return err
	}
	g.logger.Info("expired stale payment intent",
		"order_id", pending.OrderID,
		"doctor_id", doctorID,
		"time_slot", timeSlot,
		"age", age.String(),
	)
	return nil
}

// ConfirmReservation re-checks the appointment side of the slot for an intent
// that already holds the PENDING reservation. Payment success can race another
// successful payment or a direct admin booking, so this runs again inside the
// reconciliation transaction just before the appointment is materialized.
func (g *Guard) ConfirmReservation(ctx context.Context, q Querier, doctorID uuid.UUID, date time.Time, timeSlot string) error {
	booked, err := g.bookings.FindActiveBooking(ctx, q, doctorID, date, timeSlot)
	if err != nil {
		return err
	}
	if booked != nil {
		return ErrSlotAlreadyBooked
	}
	return nil
}
