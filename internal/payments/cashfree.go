package payments

import (
	"bytes"
	"context"
	"crypto/hmac"
	"crypto/sha256"
	"encoding/base64"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strings"
	"time"

	"github.com/namanhealth/booking-api/pkg/logging"
)

const cashfreeAPIVersion = "2022-09-01"

// SignatureHeader is the provider header carrying the webhook HMAC.
const SignatureHeader = "x-webhook-signature"

// CashfreeClient talks to the Cashfree payment-gateway REST API.
type CashfreeClient struct {
	appID      string
	secretKey  string
	baseURL    string
	httpClient *http.Client
	logger     *logging.Logger
}

// NewCashfreeClient builds a client for the given environment ("test" or
// "prod"-like values select the sandbox or live host).
func NewCashfreeClient(appID, secretKey, env string, logger *logging.Logger) *CashfreeClient {
	if logger == nil {
		logger = logging.Default()
	}
	baseURL := "https://sandbox.cashfree.com/pg"
	switch strings.ToLower(env) {
	case "prod", "production", "live":
		baseURL = "https://api.cashfree.com/pg"
	}
	return &CashfreeClient{
		appID:      appID,
		secretKey:  secretKey,
		baseURL:    baseURL,
		httpClient: &http.Client{Timeout: 10 * time.Second},
		logger:     logger,
	}
}

// WithBaseURL overrides the API host (tests point this at a local server).
func (c *CashfreeClient) WithBaseURL(baseURL string) *CashfreeClient {
	if baseURL == "" {
		return c
	}
	c.baseURL = strings.TrimRight(baseURL, "/")
	return c
}

// CustomerDetails identifies the paying patient to the provider.
type CustomerDetails struct {
	ID    string `json:"customer_id"`
	Name  string `json:"customer_name"`
	Email string `json:"customer_email"`
	Phone string `json:"customer_phone"`
}

// OrderRequest is the createOrder call input.
type OrderRequest struct {
	OrderID   string
	Amount    int64
	Currency  string
	Customer  CustomerDetails
	ReturnURL string
	NotifyURL string
	Note      string
}

// OrderResponse is the subset of the provider reply the booking flow needs.
type OrderResponse struct {
	OrderID          string `json:"order_id"`
	PaymentSessionID string `json:"payment_session_id"`
}

// CreateOrder registers an order with the provider and returns the checkout
// session reference. Failures leave no local state behind; callers treat them
// as retryable upstream errors.
func (c *CashfreeClient) CreateOrder(ctx context.Context, req OrderRequest) (*OrderResponse, error) {
	if c.appID == "" || c.secretKey == "" {
		return nil, fmt.Errorf("payments: cashfree credentials not configured")
	}

	body := map[string]any{
		"order_id":         req.OrderID,
		"order_amount":     req.Amount,
		"order_currency":   req.Currency,
		"customer_details": req.Customer,
		"order_meta": map[string]string{
			"return_url": req.ReturnURL,
			"notify_url": req.NotifyURL,
		},
		"order_note": req.Note,
	}
	reqBody, err := json.Marshal(body)
	if err != nil {
		return nil, fmt.Errorf("payments: cashfree payload: %w", err)
	}

	httpReq, err := http.NewRequestWithContext(ctx, http.MethodPost, c.baseURL+"/orders", bytes.NewReader(reqBody))
	if err != nil {
		return nil, fmt.Errorf("payments: cashfree request: %w", err)
	}
	httpReq.Header.Set("x-client-id", c.appID)
	httpReq.Header.Set("x-client-secret", c.secretKey)
	httpReq.Header.Set("x-api-version", cashfreeAPIVersion)
	httpReq.Header.Set("Content-Type", "application/json")

	resp, err := c.httpClient.Do(httpReq)
	if err != nil {
		return nil, fmt.Errorf("payments: cashfree http: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode >= http.StatusMultipleChoices {
		respBody, _ := io.ReadAll(resp.Body)
		return nil, fmt.Errorf("payments: cashfree api status %d: %s", resp.StatusCode, string(respBody))
	}

	var parsed OrderResponse
	if err := json.NewDecoder(resp.Body).Decode(&parsed); err != nil {
		return nil, fmt.Errorf("payments: cashfree decode: %w", err)
	}
	if parsed.OrderID == "" {
		parsed.OrderID = req.OrderID
	}
	return &parsed, nil
}

// VerifyWebhookSignature checks the provider HMAC over the exact received
// payload bytes. The payload must not be re-serialized before this check.
func (c *CashfreeClient) VerifyWebhookSignature(rawBody []byte, signature string) bool {
	return verifyCashfreeSignature(c.secretKey, rawBody, signature)
}

func verifyCashfreeSignature(secret string, rawBody []byte, signature string) bool {
	if secret == "" || signature == "" {
		return false
	}
	mac := hmac.New(sha256.New, []byte(secret))
	mac.Write(rawBody)
	expected := base64.StdEncoding.EncodeToString(mac.Sum(nil))
	return hmac.Equal([]byte(expected), []byte(signature))
}

// HostedCheckoutLink builds the hosted payment page URL for an order.
func HostedCheckoutLink(orderID, paymentSessionID string) string {
	base := "https://payments.cashfree.com/order"
	if paymentSessionID != "" {
		return base + "/#/?payment_session_id=" + url.QueryEscape(paymentSessionID)
	}
	if orderID == "" {
		return ""
	}
	return base + "/#/?order_id=" + url.QueryEscape(orderID)
}
