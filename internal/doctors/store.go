package doctors

import (
	"context"
	"errors"
	"fmt"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
)

// ErrNotFound is returned when a doctor id is unknown.
var ErrNotFound = errors.New("doctors: not found")

type PgxPool interface {
	Exec(ctx context.Context, sql string, args ...any) (pgconn.CommandTag, error)
	Query(ctx context.Context, sql string, args ...any) (pgx.Rows, error)
	QueryRow(ctx context.Context, sql string, args ...any) pgx.Row
}

// Store reads doctor directory records from Postgres.
type Store struct {
	pool PgxPool
}

func NewStore(pool PgxPool) *Store {
	if pool == nil {
		return nil
	}
	return &Store{pool: pool}
}

// GetByID loads one doctor.
func (s *Store) GetByID(ctx context.Context, id uuid.UUID) (*Doctor, error) {
	return s.getBy(ctx, "id", id)
}

// GetByUserID loads the doctor profile belonging to a user account.
func (s *Store) GetByUserID(ctx context.Context, userID uuid.UUID) (*Doctor, error) {
	return s.getBy(ctx, "user_id", userID)
}

func (s *Store) getBy(ctx context.Context, column string, id uuid.UUID) (*Doctor, error) {
	query := `
		SELECT id, user_id, name, specialty, consultation_fee, is_active
		FROM doctors
		WHERE ` + column + ` = $1
	`
	var d Doctor
	err := s.pool.QueryRow(ctx, query, id).Scan(&d.ID, &d.UserID, &d.Name, &d.Specialty, &d.ConsultationFee, &d.IsActive)
	if errors.Is(err, pgx.ErrNoRows) {
		return nil, ErrNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("doctors: load by %s: %w", column, err)
	}
	return &d, nil
}

// ListActive returns the doctors currently accepting bookings.
func (s *Store) ListActive(ctx context.Context) ([]Doctor, error) {
	query := `
		SELECT id, user_id, name, specialty, consultation_fee, is_active
		FROM doctors
		WHERE is_active
		ORDER BY name
	`
	rows, err := s.pool.Query(ctx, query)
	if err != nil {
		return nil, fmt.Errorf("doctors: list active: %w", err)
	}
	defer rows.Close()

	var out []Doctor
	for rows.Next() {
		var d Doctor
		if err := rows.Scan(&d.ID, &d.UserID, &d.Name, &d.Specialty, &d.ConsultationFee, &d.IsActive); err != nil {
			return nil, fmt.Errorf("doctors: scan: %w", err)
		}
		out = append(out, d)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("doctors: rows: %w", err)
	}
	return out, nil
}
