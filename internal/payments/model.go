package payments

import (
	"fmt"
	"time"

	"github.com/google/uuid"
)

// Payment-intent statuses. PENDING is the only non-terminal state; every
// transition out of it is one-way.
const (
	IntentPending = "PENDING"
	IntentPaid    = "PAID"
	IntentFailed  = "FAILED"
	IntentExpired = "EXPIRED"
)

// ProviderName identifies the payment provider on appointment records.
const ProviderName = "CASHFREE"

// Intent tracks one payment attempt for a specific slot. It is never deleted;
// the raw provider payload column is its audit trail.
type Intent struct {
	ID               uuid.UUID  `json:"id"`
	OrderID          string     `json:"orderId"`
	PaymentSessionID string     `json:"paymentSessionId,omitempty"`
	PaymentLink      string     `json:"paymentLink,omitempty"`
	Status           string     `json:"status"`
	Amount           int64      `json:"amount"`
	Currency         string     `json:"currency"`
	PatientID        uuid.UUID  `json:"patientId"`
	PatientName      string     `json:"patientName,omitempty"`
	PatientEmail     string     `json:"patientEmail,omitempty"`
	DoctorID         uuid.UUID  `json:"doctorId"`
	Date             time.Time  `json:"date"`
	TimeSlot         string     `json:"timeSlot"`
	Notes            string     `json:"notes,omitempty"`
	AppointmentID    *uuid.UUID `json:"appointmentId,omitempty"`

	PaymentReferenceID string `json:"paymentReferenceId,omitempty"`
	PaymentMode        string `json:"paymentMode,omitempty"`

	CreatedAt time.Time `json:"createdAt"`
	UpdatedAt time.Time `json:"updatedAt"`
}

// NewOrderID mints the provider-facing order identifier. The millisecond
// timestamp keeps ids unique enough for a single clinic while staying
// human-correlatable in provider dashboards.
func NewOrderID(now time.Time) string {
	return fmt.Sprintf("NAMCF-%d", now.UnixMilli())
}
