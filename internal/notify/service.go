package notify

import (
	"context"
	"fmt"
	"time"

	"github.com/namanhealth/booking-api/pkg/logging"
)

// BookingDetails carries everything the patient-facing templates need. The
// notify package stays decoupled from the domain records themselves.
type BookingDetails struct {
	PatientName  string
	PatientEmail string
	DoctorName   string
	TrackingCode string
	Date         time.Time
	TimeSlot     string
}

// Service renders and dispatches patient emails. Callers on the booking path
// treat failures as log-and-continue; a lost email never rolls back a booking.
type Service struct {
	email  EmailSender
	logger *logging.Logger
}

func NewService(email EmailSender, logger *logging.Logger) *Service {
	if logger == nil {
		logger = logging.Default()
	}
	return &Service{email: email, logger: logger}
}

func (d BookingDetails) patientGreeting() string {
	if d.PatientName != "" {
		return d.PatientName
	}
	return "there"
}

func (d BookingDetails) doctorLabel() string {
	if d.DoctorName != "" {
		return d.DoctorName
	}
	return "our doctor"
}

// SendBookingConfirmation emails the patient after a paid booking is committed.
func (s *Service) SendBookingConfirmation(ctx context.Context, d BookingDetails) error {
	if s.email == nil || d.PatientEmail == "" {
		s.logger.Warn("booking confirmation skipped: no recipient", "tracking_code", d.TrackingCode)
		return nil
	}

	body := fmt.Sprintf(`Hi %s,

Your payment was received and your appointment with %s is confirmed.

Date: %s
Slot: %s
Tracking ID: %s

Thank you for choosing Naman Hospital.`,
		d.patientGreeting(), d.doctorLabel(), d.Date.Format("Monday, 2 January 2006"), d.TimeSlot, d.TrackingCode)

	html := fmt.Sprintf(`<p>Hi %s,</p>
<p>Your payment was received and your appointment with <strong>%s</strong> is confirmed.</p>
<p><strong>Date:</strong> %s<br/>
<strong>Slot:</strong> %s<br/>
<strong>Tracking ID:</strong> %s</p>
<p>Thank you for choosing Naman Hospital.</p>`,
		d.patientGreeting(), d.doctorLabel(), d.Date.Format("Monday, 2 January 2006"), d.TimeSlot, d.TrackingCode)

	msg := EmailMessage{
		To:      d.PatientEmail,
		ToName:  d.PatientName,
		Subject: "Appointment booked successfully",
		Body:    body,
		HTML:    html,
	}
	if err := s.email.Send(ctx, msg); err != nil {
		return fmt.Errorf("notify: booking confirmation: %w", err)
	}
	return nil
}

type statusTemplate struct {
	subject string
	body    func(d BookingDetails) string
}

var statusTemplates = map[string]statusTemplate{
	"CONFIRMED": {
		subject: "Your appointment is confirmed",
		body: func(d BookingDetails) string {
			return fmt.Sprintf(`<p>Hi %s,</p>
<p>Your appointment with %s on %s at %s has been <strong>confirmed</strong>.</p>
<p>Please arrive 10 minutes early with your previous medical records (if any).</p>
<p>— Naman Hospital Team</p>`, d.patientGreeting(), d.doctorLabel(), d.Date.Format("2 January 2006"), d.TimeSlot)
		},
	},
	"COMPLETED": {
		subject: "Appointment completed",
		body: func(d BookingDetails) string {
			return fmt.Sprintf(`<p>Hi %s,</p>
<p>Your appointment with %s has been marked as <strong>completed</strong>.</p>
<p>Thank you for trusting Naman Hospital. We wish you good health!</p>
<p>— Naman Hospital Team</p>`, d.patientGreeting(), d.doctorLabel())
		},
	},
	"CANCELLED": {
		subject: "Appointment cancelled",
		body: func(d BookingDetails) string {
			return fmt.Sprintf(`<p>Hi %s,</p>
<p>Your appointment with %s scheduled on %s at %s has been <strong>cancelled</strong>.</p>
<p>Please contact us if you would like to reschedule.</p>
<p>— Naman Hospital Team</p>`, d.patientGreeting(), d.doctorLabel(), d.Date.Format("2 January 2006"), d.TimeSlot)
		},
	},
}

// SendStatusChange emails the patient about a lifecycle transition. Statuses
// without a template are silently skipped.
func (s *Service) SendStatusChange(ctx context.Context, status string, d BookingDetails) error {
	if s.email == nil || d.PatientEmail == "" {
		return nil
	}
	tmpl, ok := statusTemplates[status]
	if !ok {
		return nil
	}
	msg := EmailMessage{
		To:      d.PatientEmail,
		ToName:  d.PatientName,
		Subject: tmpl.subject,
		HTML:    tmpl.body(d),
		Body:    tmpl.subject,
	}
	if err := s.email.Send(ctx, msg); err != nil {
		return fmt.Errorf("notify: status change %s: %w", status, err)
	}
	return nil
}
