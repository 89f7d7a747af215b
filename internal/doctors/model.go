package doctors

import (
	"github.com/google/uuid"
)

// Doctor is the directory record referenced by bookings. Ownership of doctor
// administration lives elsewhere; this package only reads.
type Doctor struct {
	ID              uuid.UUID `json:"id"`
	UserID          uuid.UUID `json:"userId"`
	Name            string    `json:"name"`
	Specialty       string    `json:"specialty"`
	ConsultationFee int64     `json:"consultationFee"`
	IsActive        bool      `json:"isActive"`
}
