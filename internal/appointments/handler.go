package appointments

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/google/uuid"

	"github.com/namanhealth/booking-api/internal/doctors"
	"github.com/namanhealth/booking-api/internal/http/middleware"
	"github.com/namanhealth/booking-api/internal/notify"
	"github.com/namanhealth/booking-api/internal/schedule"
	"github.com/namanhealth/booking-api/pkg/logging"
)

// DirectBooker creates an appointment without an online payment, with the
// slot check and insert in one transaction.
type DirectBooker interface {
	BookDirect(ctx context.Context, p CreateParams) (*Appointment, error)
}

type doctorDirectory interface {
	GetByID(ctx context.Context, id uuid.UUID) (*doctors.Doctor, error)
	GetByUserID(ctx context.Context, userID uuid.UUID) (*doctors.Doctor, error)
}

// Handler exposes the appointment endpoints.
type Handler struct {
	store        *Store
	availability *AvailabilityService
	doctors      doctorDirectory
	booker       DirectBooker
	mailer       *notify.Service
	logger       *logging.Logger
}

func NewHandler(store *Store, availability *AvailabilityService, directory doctorDirectory, booker DirectBooker, mailer *notify.Service, logger *logging.Logger) *Handler {
	if logger == nil {
		logger = logging.Default()
	}
	return &Handler{
		store:        store,
		availability: availability,
		doctors:      directory,
		booker:       booker,
		mailer:       mailer,
		logger:       logger,
	}
}

// GetAvailability serves the public slot grid for one doctor and date.
func (h *Handler) GetAvailability(w http.ResponseWriter, r *http.Request) {
	doctorIDRaw := r.URL.Query().Get("doctorId")
	dateRaw := r.URL.Query().Get("date")
	if doctorIDRaw == "" || dateRaw == "" {
		writeMessage(w, http.StatusBadRequest, "doctorId and date are required")
		return
	}
	doctorID, err := uuid.Parse(doctorIDRaw)
	if err != nil {
		writeMessage(w, http.StatusBadRequest, "invalid doctor id")
		return
	}
	date, err := time.Parse("2006-01-02", dateRaw)
	if err != nil {
		writeMessage(w, http.StatusBadRequest, "invalid date, expected YYYY-MM-DD")
		return
	}

	doctor, err := h.doctors.GetByID(r.Context(), doctorID)
	if errors.Is(err, doctors.ErrNotFound) {
		writeMessage(w, http.StatusNotFound, "Doctor not found or not active")
		return
	}
	if err != nil {
		h.logger.Error("doctor lookup failed", "error", err, "doctor_id", doctorID)
		writeMessage(w, http.StatusInternalServerError, "availability unavailable")
		return
	}
	if !doctor.IsActive {
		writeMessage(w, http.StatusNotFound, "Doctor not found or not active")
		return
	}

	day, err := h.availability.ForDay(r.Context(), doctorID, date)
	if err != nil {
		h.logger.Error("availability computation failed", "error", err, "doctor_id", doctorID, "date", dateRaw)
		writeMessage(w, http.StatusInternalServerError, "availability unavailable")
		return
	}
	writeJSON(w, http.StatusOK, map[string]any{
		"doctor": map[string]any{
			"id":        doctor.ID,
			"name":      doctor.Name,
			"specialty": doctor.Specialty,
		},
		"availability": day,
	})
}

type createAppointmentRequest struct {
	DoctorID     string `json:"doctorId"`
	Date         string `json:"date"`
	TimeSlot     string `json:"timeSlot"`
	PatientID    string `json:"patientId,omitempty"`
	PatientName  string `json:"patientName"`
	PatientEmail string `json:"patientEmail,omitempty"`
	Notes        string `json:"notes,omitempty"`
	Amount       int64  `json:"amount,omitempty"`
}

// Create books a slot directly, bypassing the payment flow. Admins book for
// walk-ins; doctors book into their own calendar. Patients are redirected to
// the paid checkout flow.
func (h *Handler) Create(w http.ResponseWriter, r *http.Request) {
	claims, ok := middleware.UserFromContext(r.Context())
	if !ok {
		http.Error(w, "unauthenticated", http.StatusUnauthorized)
		return
	}
	if claims.Role == middleware.RolePatient {
		writeMessage(w, http.StatusForbidden, "Patients must complete online payment to book appointments. Please use the checkout flow.")
		return
	}

	var req createAppointmentRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeMessage(w, http.StatusBadRequest, "invalid payload")
		return
	}
	if req.DoctorID == "" || req.Date == "" || req.TimeSlot == "" || req.PatientName == "" {
		writeMessage(w, http.StatusBadRequest, "Doctor, date, time slot and patient name are required")
		return
	}
	doctorID, err := uuid.Parse(req.DoctorID)
	if err != nil {
		writeMessage(w, http.StatusBadRequest, "invalid doctor id")
		return
	}
	date, err := time.Parse("2006-01-02", req.Date)
	if err != nil {
		writeMessage(w, http.StatusBadRequest, "invalid date, expected YYYY-MM-DD")
		return
	}
	if !schedule.ValidSlotValue(req.TimeSlot) {
		writeMessage(w, http.StatusBadRequest, "invalid time slot, expected HH:MM")
		return
	}

	doctor, err := h.doctors.GetByID(r.Context(), doctorID)
	if errors.Is(err, doctors.ErrNotFound) {
		writeMessage(w, http.StatusNotFound, "Doctor not found or not active")
		return
	}
	if err != nil {
		h.logger.Error("doctor lookup failed", "error", err, "doctor_id", doctorID)
		writeMessage(w, http.StatusInternalServerError, "booking failed")
		return
	}
	if !doctor.IsActive {
		writeMessage(w, http.StatusNotFound, "Doctor not found or not active")
		return
	}
	if claims.Role == middleware.RoleDoctor && !h.ownsDoctor(r, claims, doctorID) {
		writeMessage(w, http.StatusForbidden, "Doctors can only book their own slots")
		return
	}

	patientID := uuid.Nil
	if req.PatientID != "" {
		patientID, err = uuid.Parse(req.PatientID)
		if err != nil {
			writeMessage(w, http.StatusBadRequest, "invalid patient id")
			return
		}
	}
	amount := req.Amount
	if amount <= 0 {
		amount = doctor.ConsultationFee
	}

	appt, err := h.booker.BookDirect(r.Context(), CreateParams{
		PatientID:     patientID,
		PatientName:   req.PatientName,
		PatientEmail:  req.PatientEmail,
		DoctorID:      doctorID,
		Date:          date,
		TimeSlot:      req.TimeSlot,
		Status:        StatusPending,
		Notes:         req.Notes,
		Amount:        amount,
		PaymentStatus: PaymentUnpaid,
	})
	switch {
	case err == nil:
		writeJSON(w, http.StatusCreated, map[string]any{"appointment": appt})
	case errors.Is(err, ErrSlotTaken):
		writeMessage(w, http.StatusConflict, "This slot has already been booked. Please choose another one.")
	default:
		h.logger.Error("direct booking failed", "error", err, "doctor_id", doctorID)
		writeMessage(w, http.StatusInternalServerError, "booking failed")
	}
}

type updateStatusRequest struct {
	Status string `json:"status"`
}

// UpdateStatus applies a lifecycle transition. Admins may update any
// appointment; doctors only their own. The patient is emailed about the
// change after the update commits.
func (h *Handler) UpdateStatus(w http.ResponseWriter, r *http.Request) {
	claims, ok := middleware.UserFromContext(r.Context())
	if !ok {
		http.Error(w, "unauthenticated", http.StatusUnauthorized)
		return
	}
	id, err := uuid.Parse(chi.URLParam(r, "appointmentID"))
	if err != nil {
		writeMessage(w, http.StatusBadRequest, "invalid appointment id")
		return
	}
	var req updateStatusRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeMessage(w, http.StatusBadRequest, "invalid payload")
		return
	}
	if !ValidStatus(req.Status) {
		writeMessage(w, http.StatusBadRequest, "Invalid status value")
		return
	}

	appt, err := h.store.GetByID(r.Context(), id)
	if errors.Is(err, ErrNotFound) {
		writeMessage(w, http.StatusNotFound, "Appointment not found")
		return
	}
	if err != nil {
		h.logger.Error("appointment lookup failed", "error", err, "appointment_id", id)
		writeMessage(w, http.StatusInternalServerError, "update failed")
		return
	}
	if claims.Role == middleware.RoleDoctor && !h.ownsDoctor(r, claims, appt.DoctorID) {
		writeMessage(w, http.StatusForbidden, "Not authorized to update this appointment")
		return
	}

	updated, err := h.store.UpdateStatus(r.Context(), id, req.Status)
	if err != nil {
		h.logger.Error("status update failed", "error", err, "appointment_id", id)
		writeMessage(w, http.StatusInternalServerError, "update failed")
		return
	}

	h.notifyStatusChange(r.Context(), updated)
	writeJSON(w, http.StatusOK, map[string]any{"appointment": updated})
}

// Track resolves an appointment by its public tracking code. No auth; the
// code itself is the credential.
func (h *Handler) Track(w http.ResponseWriter, r *http.Request) {
	code := chi.URLParam(r, "trackingCode")
	appt, err := h.store.GetByTrackingCode(r.Context(), code)
	if errors.Is(err, ErrNotFound) {
		writeMessage(w, http.StatusNotFound, "No appointment found with this tracking ID")
		return
	}
	if err != nil {
		h.logger.Error("tracking lookup failed", "error", err, "tracking_code", code)
		writeMessage(w, http.StatusInternalServerError, "lookup failed")
		return
	}
	writeJSON(w, http.StatusOK, map[string]any{
		"appointment": map[string]any{
			"trackingCode": appt.TrackingCode,
			"doctorId":     appt.DoctorID,
			"date":         appt.Date.Format("2006-01-02"),
			"timeSlot":     appt.TimeSlot,
			"status":       appt.Status,
		},
	})
}

// List returns the appointments visible to the caller: all of them for
// admins, their calendar for doctors, their own bookings for patients.
func (h *Handler) List(w http.ResponseWriter, r *http.Request) {
	claims, ok := middleware.UserFromContext(r.Context())
	if !ok {
		http.Error(w, "unauthenticated", http.StatusUnauthorized)
		return
	}

	var (
		list []Appointment
		err  error
	)
	switch claims.Role {
	case middleware.RoleAdmin:
		list, err = h.store.ListAll(r.Context())
	case middleware.RoleDoctor:
		userID, parseErr := uuid.Parse(claims.UserID)
		if parseErr != nil {
			writeMessage(w, http.StatusBadRequest, "invalid user id in token")
			return
		}
		doctor, lookupErr := h.doctors.GetByUserID(r.Context(), userID)
		if errors.Is(lookupErr, doctors.ErrNotFound) {
			writeMessage(w, http.StatusForbidden, "No doctor profile linked to this account")
			return
		}
		if lookupErr != nil {
			h.logger.Error("doctor profile lookup failed", "error", lookupErr, "user_id", userID)
			writeMessage(w, http.StatusInternalServerError, "listing failed")
			return
		}
		list, err = h.store.ListForDoctor(r.Context(), doctor.ID)
	default:
		userID, parseErr := uuid.Parse(claims.UserID)
		if parseErr != nil {
			writeMessage(w, http.StatusBadRequest, "invalid user id in token")
			return
		}
		list, err = h.store.ListForPatient(r.Context(), userID)
	}
	if err != nil {
		h.logger.Error("appointment listing failed", "error", err, "role", claims.Role)
		writeMessage(w, http.StatusInternalServerError, "listing failed")
		return
	}
	if list == nil {
		list = []Appointment{}
	}
	writeJSON(w, http.StatusOK, map[string]any{"appointments": list})
}

// ownsDoctor reports whether the authenticated doctor account is linked to
// the given doctor record.
func (h *Handler) ownsDoctor(r *http.Request, claims middleware.Claims, doctorID uuid.UUID) bool {
	userID, err := uuid.Parse(claims.UserID)
	if err != nil {
		return false
	}
	doctor, err := h.doctors.GetByUserID(r.Context(), userID)
	if err != nil {
		return false
	}
	return doctor.ID == doctorID
}

func (h *Handler) notifyStatusChange(ctx context.Context, appt *Appointment) {
	if h.mailer == nil || appt.PatientEmail == "" {
		return
	}
	doctorName := ""
	if doctor, err := h.doctors.GetByID(ctx, appt.DoctorID); err == nil {
		doctorName = doctor.Name
	}
	err := h.mailer.SendStatusChange(ctx, appt.Status, notify.BookingDetails{
		PatientName:  appt.PatientName,
		PatientEmail: appt.PatientEmail,
		DoctorName:   doctorName,
		TrackingCode: appt.TrackingCode,
		Date:         appt.Date,
		TimeSlot:     appt.TimeSlot,
	})
	if err != nil {
		h.logger.Error("status change email failed", "error", err, "tracking_code", appt.TrackingCode)
	}
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(v)
}

func writeMessage(w http.ResponseWriter, status int, message string) {
	writeJSON(w, status, map[string]string{"message": message})
}
