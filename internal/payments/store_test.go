package payments

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5/pgconn"
	pgxmock "github.com/pashagolub/pgxmock/v4"
)

var intentTestColumns = []string{
	"id", "order_id", "payment_session_id", "payment_link", "status", "amount", "currency",
	"patient_id", "patient_name", "patient_email", "doctor_id", "date", "time_slot", "notes",
	"appointment_id", "payment_reference_id", "payment_mode", "created_at", "updated_at",
}

func intentRow(mock pgxmock.PgxPoolIface, in Intent) *pgxmock.Rows {
	return mock.NewRows(intentTestColumns).AddRow(
		in.ID, in.OrderID, in.PaymentSessionID, in.PaymentLink, in.Status, in.Amount, in.Currency,
		in.PatientID, in.PatientName, in.PatientEmail, in.DoctorID, in.Date, in.TimeSlot, in.Notes,
		in.AppointmentID, in.PaymentReferenceID, in.PaymentMode, in.CreatedAt, in.UpdatedAt,
	)
}

func newMockPool(t *testing.T) pgxmock.PgxPoolIface {
	t.Helper()
	mock, err := pgxmock.NewPool()
	if err != nil {
		t.Fatalf("pgxmock: %v", err)
	}
	t.Cleanup(mock.Close)
	return mock
}

func TestIntentInsert(t *testing.T) {
	mock := newMockPool(t)
	store := NewStore(mock)

	date := time.Date(2026, 9, 10, 0, 0, 0, 0, time.UTC)
	params := InsertParams{
		OrderID:          "NAMCF-100",
		PaymentSessionID: "sess_1",
		PaymentLink:      "https://payments.cashfree.com/order/#/?payment_session_id=sess_1",
		Amount:           500,
		Currency:         "INR",
		PatientID:        uuid.New(),
		DoctorID:         uuid.New(),
		Date:             date,
		TimeSlot:         "10:30",
	}
	expected := Intent{
		ID: uuid.New(), OrderID: params.OrderID, PaymentSessionID: params.PaymentSessionID,
		PaymentLink: params.PaymentLink, Status: IntentPending, Amount: 500, Currency: "INR",
		PatientID: params.PatientID, DoctorID: params.DoctorID, Date: date, TimeSlot: "10:30",
		CreatedAt: time.Now(), UpdatedAt: time.Now(),
	}

	mock.ExpectQuery("INSERT INTO payment_intents").
		WithArgs(pgxmock.AnyArg(), params.OrderID, params.PaymentSessionID, params.PaymentLink,
			params.Amount, params.Currency, params.PatientID, params.PatientName, params.PatientEmail,
			params.DoctorID, date, params.TimeSlot, params.Notes).
		WillReturnRows(intentRow(mock, expected))

	in, err := store.Insert(context.Background(), nil, params)
	if err != nil {
		t.Fatalf("insert: %v", err)
	}
	if in.Status != IntentPending || in.OrderID != "NAMCF-100" {
		t.Fatalf("unexpected intent %+v", in)
	}
	if err := mock.ExpectationsWereMet(); err != nil {
		t.Fatalf("expectations: %v", err)
	}
}

func TestIntentInsert_UniqueViolationMapsToConflict(t *testing.T) {
	mock := newMockPool(t)
	store := NewStore(mock)

	mock.ExpectQuery("INSERT INTO payment_intents").
		WithArgs(pgxmock.AnyArg(), pgxmock.AnyArg(), pgxmock.AnyArg(), pgxmock.AnyArg(),
			pgxmock.AnyArg(), pgxmock.AnyArg(), pgxmock.AnyArg(), pgxmock.AnyArg(),
			pgxmock.AnyArg(), pgxmock.AnyArg(), pgxmock.AnyArg(), pgxmock.AnyArg(),
			pgxmock.AnyArg()).
		WillReturnError(&pgconn.PgError{Code: "23505"})

	_, err := store.Insert(context.Background(), nil, InsertParams{OrderID: "NAMCF-101"})
	if !errors.Is(err, ErrIntentConflict) {
		t.Fatalf("expected ErrIntentConflict, got %v", err)
	}
}

func TestGetByOrderID_NotTracked(t *testing.T) {
	mock := newMockPool(t)
	store := NewStore(mock)

	mock.ExpectQuery("FROM payment_intents").
		WithArgs("NAMCF-404").
		WillReturnRows(mock.NewRows(intentTestColumns))

	_, err := store.GetByOrderID(context.Background(), nil, "NAMCF-404")
	if !errors.Is(err, ErrOrderNotTracked) {
		t.Fatalf("expected ErrOrderNotTracked, got %v", err)
	}
}

func TestExpire_RequiresPendingRow(t *testing.T) {
	mock := newMockPool(t)
	store := NewStore(mock)
	id := uuid.New()

	mock.ExpectExec("UPDATE payment_intents").
		WithArgs(id, "gone stale").
		WillReturnResult(pgxmock.NewResult("UPDATE", 0))

	if err := store.Expire(context.Background(), nil, id, "gone stale"); err == nil {
		t.Fatal("expected error when no pending row matched")
	}
}

func TestMarkTerminal_RejectsNonTerminalStatus(t *testing.T) {
	mock := newMockPool(t)
	store := NewStore(mock)

	if err := store.MarkTerminal(context.Background(), nil, uuid.New(), IntentPaid, nil); err == nil {
		t.Fatal("PAID must not be assignable through MarkTerminal")
	}
}

func TestMarkPaid_FailsWhenIntentNoLongerPending(t *testing.T) {
	mock := newMockPool(t)
	store := NewStore(mock)
	id, apptID := uuid.New(), uuid.New()

	mock.ExpectExec("UPDATE payment_intents").
		WithArgs(id, apptID, "cf_123", "upi", []byte(`{}`)).
		WillReturnResult(pgxmock.NewResult("UPDATE", 0))

	if err := store.MarkPaid(context.Background(), nil, id, apptID, "cf_123", "upi", []byte(`{}`)); err == nil {
		t.Fatal("expected error when intent already finalized")
	}
}
