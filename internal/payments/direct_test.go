package payments

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/google/uuid"
	pgxmock "github.com/pashagolub/pgxmock/v4"

	"github.com/namanhealth/booking-api/internal/appointments"
	"github.com/namanhealth/booking-api/pkg/logging"
)

func TestBookDirect_CreatesAppointment(t *testing.T) {
	mock := newMockPool(t)
	intentStore := NewStore(mock)
	apptStore := appointments.NewStore(mock)
	guard := NewGuard(intentStore, apptStore, 10*time.Minute, logging.Default())
	svc := NewDirectBookingService(intentStore, apptStore, guard, logging.Default())

	params := appointments.CreateParams{
		PatientName:   "Walk In",
		DoctorID:      uuid.New(),
		Date:          time.Date(2026, 9, 10, 0, 0, 0, 0, time.UTC),
		TimeSlot:      "11:00",
		Status:        appointments.StatusPending,
		Amount:        500,
		PaymentStatus: appointments.PaymentUnpaid,
	}

	mock.ExpectBegin()
	mock.ExpectQuery("FROM appointments").
		WithArgs(params.DoctorID, params.Date, params.TimeSlot).
		WillReturnRows(mock.NewRows(appointmentTestColumns))
	mock.ExpectQuery("INSERT INTO appointments").
		WithArgs(pgxmock.AnyArg(), pgxmock.AnyArg(), pgxmock.AnyArg(), pgxmock.AnyArg(),
			pgxmock.AnyArg(), pgxmock.AnyArg(), pgxmock.AnyArg(), pgxmock.AnyArg(),
			pgxmock.AnyArg(), pgxmock.AnyArg(), pgxmock.AnyArg(), pgxmock.AnyArg(),
			pgxmock.AnyArg(), pgxmock.AnyArg(), pgxmock.AnyArg()).
		WillReturnRows(mock.NewRows(appointmentTestColumns).AddRow(
			uuid.New(), "NAM-0003", uuid.Nil, "Walk In", "", params.DoctorID,
			params.Date, params.TimeSlot, appointments.StatusPending, "", int64(500), appointments.PaymentUnpaid,
			"", "", "", "",
			time.Now(), time.Now(),
		))
	mock.ExpectCommit()

	appt, err := svc.BookDirect(context.Background(), params)
	if err != nil {
		t.Fatalf("book direct: %v", err)
	}
	if appt.TrackingCode != "NAM-0003" {
		t.Fatalf("unexpected appointment %+v", appt)
	}
	if err := mock.ExpectationsWereMet(); err != nil {
		t.Fatalf("expectations: %v", err)
	}
}

func TestBookDirect_PendingIntentDoesNotBlockFrontDesk(t *testing.T) {
	// A live payment attempt holds no veto over the front desk; the reconciler
	// fails the intent later when the payment lands on a taken slot.
	mock := newMockPool(t)
	intentStore := NewStore(mock)
	apptStore := appointments.NewStore(mock)
	guard := NewGuard(intentStore, apptStore, 10*time.Minute, logging.Default())
	svc := NewDirectBookingService(intentStore, apptStore, guard, logging.Default())

	params := appointments.CreateParams{
		PatientName: "Walk In",
		DoctorID:    uuid.New(),
		Date:        time.Date(2026, 9, 10, 0, 0, 0, 0, time.UTC),
		TimeSlot:    "11:30",
		Status:      appointments.StatusPending,
	}

	mock.ExpectBegin()
	// Only the appointment side is consulted; payment_intents is never queried.
	mock.ExpectQuery("FROM appointments").
		WithArgs(params.DoctorID, params.Date, params.TimeSlot).
		WillReturnRows(mock.NewRows(appointmentTestColumns))
	mock.ExpectQuery("INSERT INTO appointments").
		WithArgs(pgxmock.AnyArg(), pgxmock.AnyArg(), pgxmock.AnyArg(), pgxmock.AnyArg(),
			pgxmock.AnyArg(), pgxmock.AnyArg(), pgxmock.AnyArg(), pgxmock.AnyArg(),
			pgxmock.AnyArg(), pgxmock.AnyArg(), pgxmock.AnyArg(), pgxmock.AnyArg(),
			pgxmock.AnyArg(), pgxmock.AnyArg(), pgxmock.AnyArg()).
		WillReturnRows(mock.NewRows(appointmentTestColumns).AddRow(
			uuid.New(), "NAM-0004", uuid.Nil, "Walk In", "", params.DoctorID,
			params.Date, params.TimeSlot, appointments.StatusPending, "", int64(0), "",
			"", "", "", "",
			time.Now(), time.Now(),
		))
	mock.ExpectCommit()

	if _, err := svc.BookDirect(context.Background(), params); err != nil {
		t.Fatalf("book direct: %v", err)
	}
	if err := mock.ExpectationsWereMet(); err != nil {
		t.Fatalf("expectations: %v", err)
	}
}

func TestBookDirect_TakenSlotRejected(t *testing.T) {
	mock := newMockPool(t)
	intentStore := NewStore(mock)
	apptStore := appointments.NewStore(mock)
	guard := NewGuard(intentStore, apptStore, 10*time.Minute, logging.Default())
	svc := NewDirectBookingService(intentStore, apptStore, guard, logging.Default())

	params := appointments.CreateParams{
		PatientName: "Walk In",
		DoctorID:    uuid.New(),
		Date:        time.Date(2026, 9, 10, 0, 0, 0, 0, time.UTC),
		TimeSlot:    "12:00",
	}

	mock.ExpectBegin()
	mock.ExpectQuery("FROM appointments").
		WithArgs(params.DoctorID, params.Date, params.TimeSlot).
		WillReturnRows(mock.NewRows(appointmentTestColumns).AddRow(
			uuid.New(), "NAM-0005", uuid.New(), "Other", "", params.DoctorID,
			params.Date, params.TimeSlot, appointments.StatusConfirmed, "", int64(500), appointments.PaymentPaid,
			"CASHFREE", "NAMCF-5", "", "",
			time.Now(), time.Now(),
		))
	mock.ExpectRollback()

	_, err := svc.BookDirect(context.Background(), params)
	if !errors.Is(err, appointments.ErrSlotTaken) {
		t.Fatalf("expected ErrSlotTaken, got %v", err)
	}
}
