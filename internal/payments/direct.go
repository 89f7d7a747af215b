package payments

import (
	"context"
	"errors"
	"fmt"

	"github.com/namanhealth/booking-api/internal/appointments"
	"github.com/namanhealth/booking-api/pkg/logging"
)

// DirectBookingService creates appointments without an online payment — the
// admin/doctor booking path. It shares the reconciliation guard so the check
// and the insert happen in one transaction. Unlike patient checkout it does
// not defer to in-flight payment attempts: the front desk wins the slot, and
// a racing payment is failed later by the reconciler's re-check.
type DirectBookingService struct {
	intents  *Store
	bookings *appointments.Store
	guard    *Guard
	logger   *logging.Logger
}

func NewDirectBookingService(intents *Store, bookings *appointments.Store, guard *Guard, logger *logging.Logger) *DirectBookingService {
	if logger == nil {
		logger = logging.Default()
	}
	return &DirectBookingService{intents: intents, bookings: bookings, guard: guard, logger: logger}
}

// BookDirect atomically checks the slot and inserts the appointment. Conflicts
// surface as appointments.ErrSlotTaken regardless of which check caught them.
func (s *DirectBookingService) BookDirect(ctx context.Context, p appointments.CreateParams) (*appointments.Appointment, error) {
	tx, err := s.intents.Begin(ctx)
	if err != nil {
		return nil, fmt.Errorf("payments: begin direct booking: %w", err)
	}
	defer func() { _ = tx.Rollback(ctx) }()

	if err := s.guard.ConfirmReservation(ctx, tx, p.DoctorID, p.Date, p.TimeSlot); err != nil {
		if errors.Is(err, ErrSlotAlreadyBooked) {
			return nil, appointments.ErrSlotTaken
		}
		return nil, err
	}

	appt, err := s.bookings.Create(ctx, tx, p)
	if err != nil {
		return nil, err
	}
	if err := tx.Commit(ctx); err != nil {
		return nil, fmt.Errorf("payments: commit direct booking: %w", err)
	}

	s.logger.Info("direct booking created",
		"tracking_code", appt.TrackingCode,
		"doctor_id", appt.DoctorID,
		"date", appt.Date.Format("2006-01-02"),
		"time_slot", appt.TimeSlot,
	)
	return appt, nil
}
