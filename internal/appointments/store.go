package appointments

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

// ErrNotFound is returned when an appointment cannot be located.
var ErrNotFound = errors.New("appointments: not found")

// ErrSlotTaken is returned when the active-slot uniqueness constraint rejects an insert.
var ErrSlotTaken = errors.New("appointments: slot already booked")

// Querier is satisfied by a pgx pool or an open transaction. Methods that
// participate in the conflict-guard boundary accept one so callers control
// the transaction.
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

// Store persists appointment records in Postgres.
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

const appointmentColumns = `
	id, tracking_code, patient_id, patient_name, patient_email, doctor_id,
	date, time_slot, status, notes, amount, payment_status,
	payment_provider, payment_order_id, payment_reference_id, payment_mode,
	created_at, updated_at`

func scanAppointment(row pgx.Row) (*Appointment, error) {
	var a Appointment
	err := row.Scan(
		&a.ID, &a.TrackingCode, &a.PatientID, &a.PatientName, &a.PatientEmail, &a.DoctorID,
		&a.Date, &a.TimeSlot, &a.Status, &a.Notes, &a.Amount, &a.PaymentStatus,
		&a.PaymentProvider, &a.PaymentOrderID, &a.PaymentReferenceID, &a.PaymentMode,
		&a.CreatedAt, &a.UpdatedAt,
	)
	if err != nil {
		return nil, err
	}
	return &a, nil
}

// Create inserts an appointment. The tracking code is assigned from a sequence
// inside the insert so it stays monotonic under concurrent writers. The partial
// unique index on (doctor_id, date, time_slot) for non-cancelled rows is the
// storage-level backstop for the slot invariant; violations map to ErrSlotTaken.
func (s *Store) Create(ctx context.Context, q Querier, p CreateParams) (*Appointment, error) {
	if q == nil {
		q = s.pool
	}
	query := `
		INSERT INTO appointments (
			id, tracking_code, patient_id, patient_name, patient_email, doctor_id,
			date, time_slot, status, notes, amount, payment_status,
			payment_provider, payment_order_id, payment_reference_id, payment_mode
		)
		VALUES (
			$1, 'NAM-' || lpad(nextval('appointment_tracking_seq')::text, 4, '0'),
			$2, $3, $4, $5, $6, $7, $8, $9, $10, $11, $12, $13, $14, $15
		)
		RETURNING` + appointmentColumns
	row := q.QueryRow(ctx, query,
		uuid.New(), p.PatientID, p.PatientName, p.PatientEmail, p.DoctorID,
		schedule.NormalizeDate(p.Date), p.TimeSlot, p.Status, p.Notes, p.Amount, p.PaymentStatus,
		p.PaymentProvider, p.PaymentOrderID, p.PaymentReferenceID, p.PaymentMode,
	)
	appt, err := scanAppointment(row)
	if err != nil {
		var pgErr *pgconn.PgError
		if errors.As(err, &pgErr) && pgErr.Code == "23505" {
			return nil, ErrSlotTaken
		}
		return nil, fmt.Errorf("appointments: insert: %w", err)
	}
	return appt, nil
}

// FindActiveBooking returns the non-cancelled appointment occupying the slot, if any.
func (s *Store) FindActiveBooking(ctx context.Context, q Querier, doctorID uuid.UUID, date time.Time, timeSlot string) (*Appointment, error) {
	if q == nil {
		q = s.pool
	}
	query := `
		SELECT` + appointmentColumns + `
		FROM appointments
		WHERE doctor_id = $1 AND date = $2 AND time_slot = $3 AND status <> 'CANCELLED'
		LIMIT 1
	`
	appt, err := scanAppointment(q.QueryRow(ctx, query, doctorID, schedule.NormalizeDate(date), timeSlot))
	if errors.Is(err, pgx.ErrNoRows) {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("appointments: find active booking: %w", err)
	}
	return appt, nil
}

// TakenSlots lists the time-slot labels already held by non-cancelled
// appointments for the doctor on the given date.
func (s *Store) TakenSlots(ctx context.Context, doctorID uuid.UUID, date time.Time) (map[string]bool, error) {
	query := `
		SELECT time_slot
		FROM appointments
		WHERE doctor_id = $1 AND date = $2 AND status <> 'CANCELLED'
	`
	rows, err := s.pool.Query(ctx, query, doctorID, schedule.NormalizeDate(date))
	if err != nil {
		return nil, fmt.Errorf("appointments: taken slots: %w", err)
	}
	defer rows.Close()

	taken := make(map[string]bool)
	for rows.Next() {
		var slot string
		if err := rows.Scan(&slot); err != nil {
			return nil, fmt.Errorf("appointments: scan slot: %w", err)
		}
		taken[slot] = true
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("appointments: rows: %w", err)
	}
	return taken, nil
}

// GetByID loads one appointment.
func (s *Store) GetByID(ctx context.Context, id uuid.UUID) (*Appointment, error) {
	query := `SELECT` + appointmentColumns + ` FROM appointments WHERE id = $1`
	appt, err := scanAppointment(s.pool.QueryRow(ctx, query, id))
	if errors.Is(err, pgx.ErrNoRows) {
		return nil, ErrNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("appointments: load by id: %w", err)
	}
	return appt, nil
}

// GetByTrackingCode loads an appointment by its public tracking code.
func (s *Store) GetByTrackingCode(ctx context.Context, code string) (*Appointment, error) {
	query := `SELECT` + appointmentColumns + ` FROM appointments WHERE tracking_code = upper($1)`
	appt, err := scanAppointment(s.pool.QueryRow(ctx, query, code))
	if errors.Is(err, pgx.ErrNoRows) {
		return nil, ErrNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("appointments: load by tracking code: %w", err)
	}
	return appt, nil
}

// UpdateStatus applies a lifecycle transition and returns the updated row.
func (s *Store) UpdateStatus(ctx context.Context, id uuid.UUID, status string) (*Appointment, error) {
	query := `
		UPDATE appointments
		SET status = $2, updated_at = now()
		WHERE id = $1
		RETURNING` + appointmentColumns
	appt, err := scanAppointment(s.pool.QueryRow(ctx, query, id, status))
	if errors.Is(err, pgx.ErrNoRows) {
		return nil, ErrNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("appointments: update status: %w", err)
	}
	return appt, nil
}

// ListAll returns every appointment, most recent first. Admin listing only.
func (s *Store) ListAll(ctx context.Context) ([]Appointment, error) {
	query := `SELECT` + appointmentColumns + ` FROM appointments ORDER BY date DESC, time_slot DESC`
	return s.list(ctx, query)
}

// ListForDoctor returns a doctor's appointments ordered by date.
func (s *Store) ListForDoctor(ctx context.Context, doctorID uuid.UUID) ([]Appointment, error) {
	query := `SELECT` + appointmentColumns + ` FROM appointments WHERE doctor_id = $1 ORDER BY date, time_slot`
	return s.list(ctx, query, doctorID)
}

// ListForPatient returns a patient's appointments, most recent first.
func (s *Store) ListForPatient(ctx context.Context, patientID uuid.UUID) ([]Appointment, error) {
	query := `SELECT` + appointmentColumns + ` FROM appointments WHERE patient_id = $1 ORDER BY date DESC, time_slot DESC`
	return s.list(ctx, query, patientID)
}

func (s *Store) list(ctx context.Context, query string, args ...any) ([]Appointment, error) {
	rows, err := s.pool.Query(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("appointments: list: %w", err)
	}
	defer rows.Close()

	var out []Appointment
	for rows.Next() {
		var a Appointment
		if err := rows.Scan(
			&a.ID, &a.TrackingCode, &a.PatientID, &a.PatientName, &a.PatientEmail, &a.DoctorID,
			&a.Date, &a.TimeSlot, &a.Status, &a.Notes, &a.Amount, &a.PaymentStatus,
			&a.PaymentProvider, &a.PaymentOrderID, &a.PaymentReferenceID, &a.PaymentMode,
			&a.CreatedAt, &a.UpdatedAt,
		); err != nil {
			return nil, fmt.Errorf("appointments: scan: %w", err)
		}
		out = append(out, a)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("appointments: rows: %w", err)
	}
	return out, nil
}
