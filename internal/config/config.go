package config

import (
	"os"
	"strconv"
	"strings"
	"time"
)

// Config holds application configuration
type Config struct {
	Port          string
	Env           string
	PublicBaseURL string
	FrontendURL   string
	LogLevel      string
	DatabaseURL   string

	// Clinic schedule
	ClinicDayStart string
	ClinicDayEnd   string
	SlotMinutes    int

	// Payments (Cashfree)
	CashfreeAppID     string
	CashfreeSecretKey string
	CashfreeEnv       string
	PaymentWebhookURL string
	DefaultFee        int64
	Currency          string
	PendingGrace      time.Duration

	// Auth
	JWTSecret string

	// Redis availability cache
	RedisAddr            string
	RedisPassword        string
	AvailabilityCacheTTL time.Duration

	// SendGrid email
	SendGridAPIKey    string
	SendGridFromEmail string
	SendGridFromName  string
}

// Load reads configuration from environment variables
func Load() *Config {
	return &Config{
		Port:          getEnv("PORT", "8080"),
		Env:           getEnv("ENV", "development"),
		PublicBaseURL: strings.TrimRight(getEnv("PUBLIC_BASE_URL", "http://localhost:8080"), "/"),
		FrontendURL:   strings.TrimRight(getEnv("FRONTEND_URL", "https://localhost:5173"), "/"),
		LogLevel:      getEnv("LOG_LEVEL", "info"),
		DatabaseURL:   getEnv("DATABASE_URL", ""),

		ClinicDayStart: getEnv("CLINIC_DAY_START", "09:00"),
		ClinicDayEnd:   getEnv("CLINIC_DAY_END", "17:00"),
		SlotMinutes:    getEnvAsInt("APPOINTMENT_SLOT_MINUTES", 15),

		CashfreeAppID:     getEnv("CASHFREE_APP_ID", ""),
		CashfreeSecretKey: getEnv("CASHFREE_SECRET_KEY", ""),
		CashfreeEnv:       strings.ToLower(getEnv("CASHFREE_ENV", "test")),
		PaymentWebhookURL: getEnv("PAYMENT_WEBHOOK_URL", ""),
		DefaultFee:        int64(getEnvAsInt("DEFAULT_CONSULTATION_FEE", 500)),
		Currency:          getEnv("PAYMENT_CURRENCY", "INR"),
		PendingGrace:      getEnvAsDuration("PAYMENT_PENDING_GRACE", 10*time.Minute),

		JWTSecret: getEnv("JWT_SECRET", ""),

		RedisAddr:            getEnv("REDIS_ADDR", ""),
		RedisPassword:        getEnv("REDIS_PASSWORD", ""),
		AvailabilityCacheTTL: getEnvAsDuration("AVAILABILITY_CACHE_TTL", 30*time.Second),

		SendGridAPIKey:    getEnv("SENDGRID_API_KEY", ""),
		SendGridFromEmail: getEnv("SENDGRID_FROM_EMAIL", "no-reply@namanhospital.in"),
		SendGridFromName:  getEnv("SENDGRID_FROM_NAME", "Naman Hospital"),
	}
}

// WebhookURL returns the notify URL handed to the payment provider.
func (c *Config) WebhookURL() string {
	if c.PaymentWebhookURL != "" {
		return c.PaymentWebhookURL
	}
	return c.PublicBaseURL + "/api/payments/webhook"
}

// getEnv retrieves an environment variable or returns a default value
func getEnv(key, defaultValue string) string {
	if value := os.Getenv(key); value != "" {
		return value
	}
	return defaultValue
}

// getEnvAsInt retrieves an environment variable as an integer or returns a default value
func getEnvAsInt(key string, defaultValue int) int {
	valueStr := getEnv(key, "")
	if value, err := strconv.Atoi(valueStr); err == nil {
		return value
	}
	return defaultValue
}

func getEnvAsDuration(key string, defaultValue time.Duration) time.Duration {
	valueStr := getEnv(key, "")
	if valueStr == "" {
		return defaultValue
	}
	if value, err := time.ParseDuration(valueStr); err == nil {
		return value
	}
	return defaultValue
}
