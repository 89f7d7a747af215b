package doctors

import (
	"encoding/json"
	"errors"
	"net/http"

	"github.com/go-chi/chi/v5"
	"github.com/google/uuid"

	"github.com/namanhealth/booking-api/pkg/logging"
)

// Handler exposes the public doctor directory.
type Handler struct {
	store  *Store
	logger *logging.Logger
}

func NewHandler(store *Store, logger *logging.Logger) *Handler {
	if logger == nil {
		logger = logging.Default()
	}
	return &Handler{store: store, logger: logger}
}

// List returns the doctors currently accepting bookings.
func (h *Handler) List(w http.ResponseWriter, r *http.Request) {
	list, err := h.store.ListActive(r.Context())
	if err != nil {
		h.logger.Error("doctor listing failed", "error", err)
		writeMessage(w, http.StatusInternalServerError, "doctor listing unavailable")
		return
	}
	if list == nil {
		list = []Doctor{}
	}
	writeJSON(w, http.StatusOK, map[string]any{"doctors": list})
}

// Get returns one doctor by id.
func (h *Handler) Get(w http.ResponseWriter, r *http.Request) {
	id, err := uuid.Parse(chi.URLParam(r, "doctorID"))
	if err != nil {
		writeMessage(w, http.StatusBadRequest, "invalid doctor id")
		return
	}
	doctor, err := h.store.GetByID(r.Context(), id)
	if errors.Is(err, ErrNotFound) {
		writeMessage(w, http.StatusNotFound, "Doctor not found")
		return
	}
	if err != nil {
		h.logger.Error("doctor lookup failed", "error", err, "doctor_id", id)
		writeMessage(w, http.StatusInternalServerError, "doctor lookup failed")
		return
	}
	writeJSON(w, http.StatusOK, map[string]any{"doctor": doctor})
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(v)
}

func writeMessage(w http.ResponseWriter, status int, message string) {
	writeJSON(w, status, map[string]string{"message": message})
}
