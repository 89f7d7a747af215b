package router

import (
	"net/http"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"

	"github.com/namanhealth/booking-api/internal/appointments"
	"github.com/namanhealth/booking-api/internal/doctors"
	httpmiddleware "github.com/namanhealth/booking-api/internal/http/middleware"
	"github.com/namanhealth/booking-api/internal/payments"
	"github.com/namanhealth/booking-api/pkg/logging"
)

// Config holds router configuration
type Config struct {
	Logger              *logging.Logger
	DoctorsHandler      *doctors.Handler
	AppointmentsHandler *appointments.Handler
	PaymentsHandler     *payments.Handler
	WebhookHandler      *payments.WebhookHandler
	HealthHandler       http.HandlerFunc
	MetricsHandler      http.Handler
	JWTSecret           string
	CORSAllowedOrigins  []string
}

// New creates a new Chi router with all routes configured
func New(cfg *Config) http.Handler {
	r := chi.NewRouter()

	// Middleware
	r.Use(middleware.RequestID)
	r.Use(middleware.RealIP)
	r.Use(middleware.Recoverer)
	r.Use(middleware.Compress(5))
	if len(cfg.CORSAllowedOrigins) > 0 {
		r.Use(httpmiddleware.CORS(cfg.CORSAllowedOrigins))
	}
	if cfg.Logger != nil {
		r.Use(httpmiddleware.RequestLogger(cfg.Logger))
	}

	// Public endpoints (availability, webhooks, tracking, health)
	r.Group(func(public chi.Router) {
		if cfg.HealthHandler != nil {
			public.Get("/health", cfg.HealthHandler)
		}
		if cfg.MetricsHandler != nil {
			public.Handle("/metrics", cfg.MetricsHandler)
		}
		if cfg.DoctorsHandler != nil {
			public.Route("/api/doctors", func(r chi.Router) {
				r.Get("/", cfg.DoctorsHandler.List)
				r.Get("/{doctorID}", cfg.DoctorsHandler.Get)
			})
		}
		if cfg.AppointmentsHandler != nil {
			public.Get("/api/availability", cfg.AppointmentsHandler.GetAvailability)
			public.Get("/api/appointments/track/{trackingCode}", cfg.AppointmentsHandler.Track)
		}
		if cfg.WebhookHandler != nil {
			public.Post("/api/payments/webhook", cfg.WebhookHandler.Handle)
		}
	})

	// Authenticated endpoints
	if cfg.JWTSecret != "" {
		r.Group(func(authed chi.Router) {
			authed.Use(httpmiddleware.Auth(cfg.JWTSecret))

			if cfg.PaymentsHandler != nil {
				authed.Route("/api/payments/orders", func(r chi.Router) {
					r.With(httpmiddleware.RequireRoles(httpmiddleware.RolePatient)).
						Post("/", cfg.PaymentsHandler.CreateOrder)
					r.Get("/{orderID}", cfg.PaymentsHandler.GetOrderStatus)
				})
			}
			if cfg.AppointmentsHandler != nil {
				authed.Route("/api/appointments", func(r chi.Router) {
					r.Get("/", cfg.AppointmentsHandler.List)
					r.With(httpmiddleware.RequireRoles(httpmiddleware.RoleAdmin, httpmiddleware.RoleDoctor, httpmiddleware.RolePatient)).
						Post("/", cfg.AppointmentsHandler.Create)
					r.With(httpmiddleware.RequireRoles(httpmiddleware.RoleAdmin, httpmiddleware.RoleDoctor)).
						Patch("/{appointmentID}", cfg.AppointmentsHandler.UpdateStatus)
				})
			}
		})
	}

	return r
}
