package payments

import (
	"bytes"
	"context"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/google/uuid"
	pgxmock "github.com/pashagolub/pgxmock/v4"

	"github.com/namanhealth/booking-api/internal/appointments"
	"github.com/namanhealth/booking-api/internal/http/middleware"
	"github.com/namanhealth/booking-api/pkg/logging"
)

func patientRequest(t *testing.T, body string) *http.Request {
	t.Helper()
	req := httptest.NewRequest(http.MethodPost, "/api/payments/orders", bytes.NewBufferString(body))
	claims := middleware.Claims{
		UserID: uuid.New().String(),
		Name:   "Asha",
		Email:  "asha@example.com",
		Role:   middleware.RolePatient,
	}
	return req.WithContext(middleware.WithUser(req.Context(), claims))
}

func TestCreateOrder_Unauthenticated(t *testing.T) {
	handler := NewHandler(nil, nil, logging.Default())
	req := httptest.NewRequest(http.MethodPost, "/api/payments/orders", bytes.NewBufferString(`{}`))
	rec := httptest.NewRecorder()
	handler.CreateOrder(rec, req)
	if rec.Code != http.StatusUnauthorized {
		t.Fatalf("expected 401, got %d", rec.Code)
	}
}

func TestCreateOrder_MissingFields(t *testing.T) {
	handler := NewHandler(nil, nil, logging.Default())
	rec := httptest.NewRecorder()
	handler.CreateOrder(rec, patientRequest(t, `{"doctorId":""}`))
	if rec.Code != http.StatusBadRequest {
		t.Fatalf("expected 400, got %d", rec.Code)
	}
	if !strings.Contains(rec.Body.String(), "required") {
		t.Fatalf("unexpected body %s", rec.Body.String())
	}
}

func TestCreateOrder_SlotConflictMessage(t *testing.T) {
	f := newServiceFixture(t)
	handler := NewHandler(f.service, nil, logging.Default())

	f.mock.ExpectBegin()
	f.mock.ExpectQuery("FROM appointments").
		WithArgs(pgxmock.AnyArg(), pgxmock.AnyArg(), pgxmock.AnyArg()).
		WillReturnRows(f.mock.NewRows(appointmentTestColumns).AddRow(
			uuid.New(), "NAM-0009", uuid.New(), "Other", "", f.doctor.ID,
			time.Date(2026, 9, 10, 0, 0, 0, 0, time.UTC), "10:30", appointments.StatusConfirmed, "",
			int64(500), appointments.PaymentPaid, "CASHFREE", "NAMCF-9", "", "",
			time.Now(), time.Now(),
		))
	f.mock.ExpectRollback()

	body := `{"doctorId":"` + f.doctor.ID.String() + `","date":"2026-09-10","timeSlot":"10:30"}`
	rec := httptest.NewRecorder()
	handler.CreateOrder(rec, patientRequest(t, body))
	if rec.Code != http.StatusConflict {
		t.Fatalf("expected 409, got %d: %s", rec.Code, rec.Body.String())
	}
	if !strings.Contains(rec.Body.String(), "already been booked") {
		t.Fatalf("unexpected body %s", rec.Body.String())
	}
}

func TestGetOrderStatus_UnknownOrder(t *testing.T) {
	f := newServiceFixture(t)
	handler := NewHandler(f.service, nil, logging.Default())

	f.mock.ExpectQuery("FROM payment_intents").
		WithArgs("NAMCF-404").
		WillReturnRows(f.mock.NewRows(intentTestColumns))

	req := httptest.NewRequest(http.MethodGet, "/api/payments/orders/NAMCF-404", nil)
	claims := middleware.Claims{UserID: uuid.New().String(), Role: middleware.RolePatient}
	req = req.WithContext(middleware.WithUser(req.Context(), claims))

	rctx := chi.NewRouteContext()
	rctx.URLParams.Add("orderID", "NAMCF-404")
	req = req.WithContext(context.WithValue(req.Context(), chi.RouteCtxKey, rctx))

	rec := httptest.NewRecorder()
	handler.GetOrderStatus(rec, req)
	if rec.Code != http.StatusNotFound {
		t.Fatalf("expected 404, got %d", rec.Code)
	}
	if !strings.Contains(rec.Body.String(), "Order not found") {
		t.Fatalf("unexpected body %s", rec.Body.String())
	}
}
