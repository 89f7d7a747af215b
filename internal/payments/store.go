package payments

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"

	"github.com/namanhealth/booking-api/internal/schedule"
)

// ErrOrderNotTracked is returned when an order id is unknown to the store.
var ErrOrderNotTracked = errors.New("payments: order not tracked")

// ErrIntentConflict is returned when the live-pending uniqueness constraint
// rejects an insert.
var ErrIntentConflict = errors.New("payments: pending intent exists for slot")

type Querier interface {
	Exec(ctx context.Context, sql string, args ...any) (pgconn.CommandTag, error)
	Query(ctx context.Context, sql string, args ...any) (pgx.Rows, error)
	QueryRow(ctx context.Context, sql string, args ...any) pgx.Row
}

type PgxPool interface {
	Begin(ctx context.Context) (pgx.Tx, error)
	Exec(ctx context.Context, sql string, args ...any) (pgconn.CommandTag, error)
	Query(ctx context.Context, sql string, args ...any) (pgx.Rows, error)
	QueryRow(ctx context.Context, sql string, args ...any) pgx.Row
}

// Store persists payment intents and their lifecycle transitions.
type Store struct {
	pool PgxPool
}

func NewStore(pool PgxPool) *Store {
	if pool == nil {
		return nil
	}
	return &Store{pool: pool}
}

func (s *Store) Begin(ctx context.Context) (pgx.Tx, error) {
	return s.pool.Begin(ctx)
}

const intentColumns = `
	id, order_id, payment_session_id, payment_link, status, amount, currency,
	patient_id, patient_name, patient_email, doctor_id, date, time_slot, notes,
	appointment_id, payment_reference_id, payment_mode, created_at, updated_at`

func scanIntent(row pgx.Row) (*Intent, error) {
	var in Intent
	err := row.Scan(
		&in.ID, &in.OrderID, &in.PaymentSessionID, &in.PaymentLink, &in.Status, &in.Amount, &in.Currency,
		&in.PatientID, &in.PatientName, &in.PatientEmail, &in.DoctorID, &in.Date, &in.TimeSlot, &in.Notes,
		&in.AppointmentID, &in.PaymentReferenceID, &in.PaymentMode, &in.CreatedAt, &in.UpdatedAt,
	)
	if err != nil {
		return nil, err
	}
	return &in, nil
}

// InsertParams carries a new PENDING intent.
type InsertParams struct {
	OrderID          string
	PaymentSessionID string
	PaymentLink      string
	Amount           int64
	Currency         string
	PatientID        uuid.UUID
	PatientName      string
	PatientEmail     string
	DoctorID         uuid.UUID
	Date             time.Time
	TimeSlot         string
	Notes            string
}

// Insert persists a fresh PENDING intent. The partial unique index on
// (doctor_id, date, time_slot) WHERE status = 'PENDING' is the storage-level
// backstop for the one-live-attempt-per-slot invariant.
func (s *Store) Insert(ctx context.Context, q Querier, p InsertParams) (*Intent, error) {
	if q == nil {
		q = s.pool
	}
	query := `
		INSERT INTO payment_intents (
			id, order_id, payment_session_id, payment_link, status, amount, currency,
			patient_id, patient_name, patient_email, doctor_id, date, time_slot, notes
		)
		VALUES ($1, $2, $3, $4, 'PENDING', $5, $6, $7, $8, $9, $10, $11, $12, $13)
		RETURNING` + intentColumns
	row := q.QueryRow(ctx, query,
		uuid.New(), p.OrderID, p.PaymentSessionID, p.PaymentLink, p.Amount, p.Currency,
		p.PatientID, p.PatientName, p.PatientEmail, p.DoctorID, schedule.NormalizeDate(p.Date), p.TimeSlot, p.Notes,
	)
	in, err := scanIntent(row)
	if err != nil {
		var pgErr *pgconn.PgError
		if errors.As(err, &pgErr) && pgErr.Code == "23505" {
			return nil, ErrIntentConflict
		}
		return nil, fmt.Errorf("payments: insert intent: %w", err)
	}
	return in, nil
}

// FindPendingForSlot loads the live PENDING intent holding a slot, locking the
// row for the rest of the transaction so a concurrent attempt cannot expire or
// confirm it underneath us.
func (s *Store) FindPendingForSlot(ctx context.Context, q Querier, doctorID uuid.UUID, date time.Time, timeSlot string) (*Intent, error) {
	if q == nil {
		q = s.pool
	}
	query := `
		SELECT` + intentColumns + `
		FROM payment_intents
		WHERE doctor_id = $1 AND date = $2 AND time_slot = $3 AND status = 'PENDING'
		FOR UPDATE
	`
	in, err := scanIntent(q.QueryRow(ctx, query, doctorID, schedule.NormalizeDate(date), timeSlot))
	if errors.Is(err, pgx.ErrNoRows) {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("payments: find pending for slot: %w", err)
	}
	return in, nil
}

// GetByOrderID loads an intent by provider order id.
func (s *Store) GetByOrderID(ctx context.Context, q Querier, orderID string) (*Intent, error) {
	if q == nil {
		q = s.pool
	}
	query := `SELECT` + intentColumns + ` FROM payment_intents WHERE order_id = $1`
	in, err := scanIntent(q.QueryRow(ctx, query, orderID))
	if errors.Is(err, pgx.ErrNoRows) {
		return nil, ErrOrderNotTracked
	}
	if err != nil {
		return nil, fmt.Errorf("payments: load by order id: %w", err)
	}
	return in, nil
}

// LockByOrderID is GetByOrderID with a row lock, for use inside the
// reconciliation transaction so duplicate notifications serialize.
func (s *Store) LockByOrderID(ctx context.Context, q Querier, orderID string) (*Intent, error) {
	if q == nil {
		q = s.pool
	}
	query := `SELECT` + intentColumns + ` FROM payment_intents WHERE order_id = $1 FOR UPDATE`
	in, err := scanIntent(q.QueryRow(ctx, query, orderID))
	if errors.Is(err, pgx.ErrNoRows) {
		return nil, ErrOrderNotTracked
	}
	if err != nil {
		return nil, fmt.Errorf("payments: lock by order id: %w", err)
	}
	return in, nil
}

// Expire moves a stale PENDING intent to EXPIRED, recording why in the audit payload.
func (s *Store) Expire(ctx context.Context, q Querier, id uuid.UUID, reason string) error {
	if q == nil {
		q = s.pool
	}
	query := `
		UPDATE payment_intents
		SET status = 'EXPIRED',
			raw_webhook_payload = jsonb_build_object('expiredAt', to_char(now() AT TIME ZONE 'UTC', 'YYYY-MM-DD"T"HH24:MI:SS"Z"'), 'reason', $2::text),
			updated_at = now()
		WHERE id = $1 AND status = 'PENDING'
	`
	tag, err := q.Exec(ctx, query, id, reason)
	if err != nil {
		return fmt.Errorf("payments: expire intent: %w", err)
	}
	if tag.RowsAffected() == 0 {
		return fmt.Errorf("payments: expire intent %s: no pending row", id)
	}
	return nil
}

// MarkTerminal transitions a PENDING intent to FAILED or EXPIRED with the raw
// provider payload attached.
func (s *Store) MarkTerminal(ctx context.Context, q Querier, id uuid.UUID, status string, rawPayload []byte) error {
	if q == nil {
		q = s.pool
	}
	if status != IntentFailed && status != IntentExpired {
		return fmt.Errorf("payments: %q is not a terminal non-success status", status)
	}
	query := `
		UPDATE payment_intents
		SET status = $2, raw_webhook_payload = $3, updated_at = now()
		WHERE id = $1 AND status = 'PENDING'
	`
	if _, err := q.Exec(ctx, query, id, status, rawPayload); err != nil {
		return fmt.Errorf("payments: mark %s: %w", status, err)
	}
	return nil
}

// MarkPaid finalizes a successful intent: PAID status, appointment link set
// exactly once, provider references and the raw payload recorded.
func (s *Store) MarkPaid(ctx context.Context, q Querier, id, appointmentID uuid.UUID, referenceID, mode string, rawPayload []byte) error {
	if q == nil {
		q = s.pool
	}
	query := `
		UPDATE payment_intents
		SET status = 'PAID', appointment_id = $2, payment_reference_id = $3,
			payment_mode = $4, raw_webhook_payload = $5, updated_at = now()
		WHERE id = $1 AND status = 'PENDING'
	`
	tag, err := q.Exec(ctx, query, id, appointmentID, referenceID, mode, rawPayload)
	if err != nil {
		return fmt.Errorf("payments: mark paid: %w", err)
	}
	if tag.RowsAffected() == 0 {
		return fmt.Errorf("payments: mark paid %s: intent no longer pending", id)
	}
	return nil
}
