package payments

import (
	"encoding/json"
	"errors"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/google/uuid"

	"github.com/namanhealth/booking-api/internal/appointments"
	"github.com/namanhealth/booking-api/internal/http/middleware"
	"github.com/namanhealth/booking-api/pkg/logging"
)

// Handler exposes the checkout and order-status endpoints.
type Handler struct {
	service  *Service
	bookings *appointments.Store
	logger   *logging.Logger
}

func NewHandler(service *Service, bookings *appointments.Store, logger *logging.Logger) *Handler {
	if logger == nil {
		logger = logging.Default()
	}
	return &Handler{service: service, bookings: bookings, logger: logger}
}

type createOrderRequest struct {
	DoctorID string `json:"doctorId"`
	Date     string `json:"date"`
	TimeSlot string `json:"timeSlot"`
	Notes    string `json:"notes,omitempty"`
}

// CreateOrder starts a booking attempt for the authenticated patient.
func (h *Handler) CreateOrder(w http.ResponseWriter, r *http.Request) {
	claims, ok := middleware.UserFromContext(r.Context())
	if !ok {
		http.Error(w, "unauthenticated", http.StatusUnauthorized)
		return
	}

	var req createOrderRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeMessage(w, http.StatusBadRequest, "invalid payload")
		return
	}
	if req.DoctorID == "" || req.Date == "" || req.TimeSlot == "" {
		writeMessage(w, http.StatusBadRequest, "Doctor, date and time slot are required")
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
	patientID, err := uuid.Parse(claims.UserID)
	if err != nil {
		writeMessage(w, http.StatusBadRequest, "invalid user id in token")
		return
	}

	details, err := h.service.StartBooking(r.Context(), StartBookingRequest{
		DoctorID:     doctorID,
		Date:         date,
		TimeSlot:     req.TimeSlot,
		Notes:        req.Notes,
		PatientID:    patientID,
		PatientName:  claims.Name,
		PatientEmail: claims.Email,
		PatientPhone: claims.Phone,
	})
	switch {
	case err == nil:
		writeJSON(w, http.StatusCreated, details)
	case errors.Is(err, ErrInvalidRequest):
		writeMessage(w, http.StatusBadRequest, err.Error())
	case errors.Is(err, ErrDoctorUnavailable):
		writeMessage(w, http.StatusNotFound, "Doctor not found or not active")
	case errors.Is(err, ErrSlotAlreadyBooked):
		writeMessage(w, http.StatusConflict, "This slot has already been booked. Please choose another one.")
	case errors.Is(err, ErrSlotPaymentInProgress):
		writeMessage(w, http.StatusConflict, "Another payment is already in progress for this slot. Please wait a few minutes or pick a different slot.")
	case errors.Is(err, ErrProviderUnavailable):
		writeMessage(w, http.StatusBadGateway, "Unable to start payment. Please try again.")
	default:
		h.logger.Error("start booking failed", "error", err)
		writeMessage(w, http.StatusInternalServerError, "Unable to start payment. Please try again.")
	}
}

// GetOrderStatus returns an intent's state to its owner or an administrator.
func (h *Handler) GetOrderStatus(w http.ResponseWriter, r *http.Request) {
	claims, ok := middleware.UserFromContext(r.Context())
	if !ok {
		http.Error(w, "unauthenticated", http.StatusUnauthorized)
		return
	}
	requesterID, err := uuid.Parse(claims.UserID)
	if err != nil {
		writeMessage(w, http.StatusBadRequest, "invalid user id in token")
		return
	}

	orderID := chi.URLParam(r, "orderID")
	status, err := h.service.GetOrderStatus(r.Context(), h.bookings, orderID, requesterID, claims.IsAdmin())
	switch {
	case err == nil:
		writeJSON(w, http.StatusOK, map[string]any{"order": status})
	case errors.Is(err, ErrOrderNotTracked):
		writeMessage(w, http.StatusNotFound, "Order not found")
	case errors.Is(err, ErrNotAuthorized):
		writeMessage(w, http.StatusForbidden, "Not authorized to view this order")
	default:
		h.logger.Error("order status lookup failed", "error", err, "order_id", orderID)
		writeMessage(w, http.StatusInternalServerError, "order status unavailable")
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
