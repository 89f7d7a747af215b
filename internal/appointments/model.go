package appointments

import (
	"time"

	"github.com/google/uuid"
)

// Lifecycle statuses for an appointment.
const (
	StatusPending   = "PENDING"
	StatusConfirmed = "CONFIRMED"
	StatusCompleted = "COMPLETED"
	StatusCancelled = "CANCELLED"
)

// Payment statuses carried on the appointment record.
const (
	PaymentUnpaid   = "UNPAID"
	PaymentPending  = "PENDING"
	PaymentPaid     = "PAID"
	PaymentRefunded = "REFUNDED"
	PaymentFailed   = "FAILED"
)

// ValidStatus reports whether s is a known lifecycle status.
func ValidStatus(s string) bool {
	switch s {
	case StatusPending, StatusConfirmed, StatusCompleted, StatusCancelled:
		return true
	}
	return false
}

// Appointment is the durable booking record.
type Appointment struct {
	ID            uuid.UUID `json:"id"`
	TrackingCode  string    `json:"trackingCode"`
	PatientID     uuid.UUID `json:"patientId"`
	PatientName   string    `json:"patientName,omitempty"`
	PatientEmail  string    `json:"patientEmail,omitempty"`
	DoctorID      uuid.UUID `json:"doctorId"`
	Date          time.Time `json:"date"`
	TimeSlot      string    `json:"timeSlot"`
	Status        string    `json:"status"`
	Notes         string    `json:"notes,omitempty"`
	Amount        int64     `json:"amount"`
	PaymentStatus string    `json:"paymentStatus"`

	PaymentProvider    string `json:"paymentProvider,omitempty"`
	PaymentOrderID     string `json:"paymentOrderId,omitempty"`
	PaymentReferenceID string `json:"paymentReferenceId,omitempty"`
	PaymentMode        string `json:"paymentMode,omitempty"`

	CreatedAt time.Time `json:"createdAt"`
	UpdatedAt time.Time `json:"updatedAt"`
}

// CreateParams carries everything needed to insert a new appointment row.
type CreateParams struct {
	PatientID    uuid.UUID
	PatientName  string
	PatientEmail string
	DoctorID     uuid.UUID
	Date         time.Time
	TimeSlot     string
	Status       string
	Notes        string
	Amount       int64

	PaymentStatus      string
	PaymentProvider    string
	PaymentOrderID     string
	PaymentReferenceID string
	PaymentMode        string
}
