package main

import (
	"context"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/joho/godotenv"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"github.com/redis/go-redis/v9"

	"github.com/namanhealth/booking-api/internal/api/router"
	"github.com/namanhealth/booking-api/internal/appointments"
	appconfig "github.com/namanhealth/booking-api/internal/config"
	"github.com/namanhealth/booking-api/internal/doctors"
	"github.com/namanhealth/booking-api/internal/notify"
	"github.com/namanhealth/booking-api/internal/observability/metrics"
	"github.com/namanhealth/booking-api/internal/payments"
	"github.com/namanhealth/booking-api/internal/schedule"
	"github.com/namanhealth/booking-api/pkg/logging"
)

func main() {
	// Load .env in development; ignore absence in production.
	_ = godotenv.Load()

	cfg := appconfig.Load()
	logger := logging.New(cfg.LogLevel)
	logger.Info("starting booking API server",
		"env", cfg.Env,
		"port", cfg.Port,
	)

	ctx := context.Background()

	if cfg.DatabaseURL == "" {
		logger.Error("DATABASE_URL is required")
		os.Exit(1)
	}
	pool, err := pgxpool.New(ctx, cfg.DatabaseURL)
	if err != nil {
		logger.Error("failed to create database pool", "error", err)
		os.Exit(1)
	}
	defer pool.Close()
	if err := pool.Ping(ctx); err != nil {
		logger.Error("database unreachable", "error", err)
		os.Exit(1)
	}

	window, err := schedule.ParseWindow(cfg.ClinicDayStart, cfg.ClinicDayEnd)
	if err != nil {
		logger.Error("invalid clinic window", "error", err)
		os.Exit(1)
	}

	var cache *redis.Client
	if cfg.RedisAddr != "" {
		cache = redis.NewClient(&redis.Options{
			Addr:     cfg.RedisAddr,
			Password: cfg.RedisPassword,
		})
		if err := cache.Ping(ctx).Err(); err != nil {
			logger.Warn("redis unreachable, availability cache disabled", "error", err)
			cache = nil
		}
	}

	var emailSender notify.EmailSender
	if sg := notify.NewSendGridSender(notify.SendGridConfig{
		APIKey:    cfg.SendGridAPIKey,
		FromEmail: cfg.SendGridFromEmail,
		FromName:  cfg.SendGridFromName,
	}, logger.WithComponent("sendgrid")); sg != nil {
		emailSender = sg
	} else {
		logger.Warn("SENDGRID_API_KEY not set, emails will be logged only")
		emailSender = notify.NewStubEmailSender(logger.WithComponent("email-stub"))
	}
	mailer := notify.NewService(emailSender, logger.WithComponent("notify"))

	bookingMetrics := metrics.NewBookingMetrics(nil)

	doctorStore := doctors.NewStore(pool)
	apptStore := appointments.NewStore(pool)
	intentStore := payments.NewStore(pool)

	guard := payments.NewGuard(intentStore, apptStore, cfg.PendingGrace, logger.WithComponent("guard"))
	cashfree := payments.NewCashfreeClient(cfg.CashfreeAppID, cfg.CashfreeSecretKey, cfg.CashfreeEnv, logger.WithComponent("cashfree"))
	paymentService := payments.NewService(intentStore, guard, doctorStore, cashfree, payments.ServiceConfig{
		DefaultFee:    cfg.DefaultFee,
		Currency:      cfg.Currency,
		ReturnURLBase: cfg.FrontendURL,
		NotifyURL:     cfg.WebhookURL(),
	}, bookingMetrics, logger.WithComponent("payments"))
	reconciler := payments.NewReconciler(intentStore, apptStore, guard, doctorStore, mailer, bookingMetrics, logger.WithComponent("reconciler"))
	directBooking := payments.NewDirectBookingService(intentStore, apptStore, guard, logger.WithComponent("direct-booking"))

	availability := appointments.NewAvailabilityService(apptStore, cache, window, cfg.SlotMinutes, cfg.AvailabilityCacheTTL, logger.WithComponent("availability"))

	r := router.New(&router.Config{
		Logger:              logger,
		DoctorsHandler:      doctors.NewHandler(doctorStore, logger.WithComponent("doctors")),
		AppointmentsHandler: appointments.NewHandler(apptStore, availability, doctorStore, directBooking, mailer, logger.WithComponent("appointments")),
		PaymentsHandler:     payments.NewHandler(paymentService, apptStore, logger.WithComponent("payments-http")),
		WebhookHandler:      payments.NewWebhookHandler(cashfree, reconciler, bookingMetrics, logger.WithComponent("webhook")),
		HealthHandler:       healthHandler(pool),
		MetricsHandler:      promhttp.Handler(),
		JWTSecret:           cfg.JWTSecret,
		CORSAllowedOrigins:  []string{cfg.FrontendURL},
	})

	srv := &http.Server{
		Addr:         ":" + cfg.Port,
		Handler:      r,
		ReadTimeout:  15 * time.Second,
		WriteTimeout: 15 * time.Second,
		IdleTimeout:  60 * time.Second,
	}

	go func() {
		logger.Info("server listening", "addr", srv.Addr)
		if err := srv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			logger.Error("server error", "error", err)
			os.Exit(1)
		}
	}()

	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit
	logger.Info("shutting down server")

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 15*time.Second)
	defer cancel()
	if err := srv.Shutdown(shutdownCtx); err != nil {
		logger.Error("server shutdown failed", "error", err)
		os.Exit(1)
	}
	logger.Info("server stopped")
}

func healthHandler(pool *pgxpool.Pool) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		ctx, cancel := context.WithTimeout(r.Context(), 2*time.Second)
		defer cancel()
		w.Header().Set("Content-Type", "application/json")
		if err := pool.Ping(ctx); err != nil {
			w.WriteHeader(http.StatusServiceUnavailable)
			_, _ = w.Write([]byte(`{"status":"degraded","database":"down"}`))
			return
		}
		_, _ = w.Write([]byte(`{"status":"ok"}`))
	}
}
