package payments

import (
	"context"
	"crypto/hmac"
	"crypto/sha256"
	"encoding/base64"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/namanhealth/booking-api/pkg/logging"
)

func signPayload(secret string, body []byte) string {
	mac := hmac.New(sha256.New, []byte(secret))
	mac.Write(body)
	return base64.StdEncoding.EncodeToString(mac.Sum(nil))
}

func TestCreateOrder_SendsCredentialsAndPayload(t *testing.T) {
	var got map[string]any
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.Method != http.MethodPost || r.URL.Path != "/orders" {
			t.Errorf("unexpected request %s %s", r.Method, r.URL.Path)
		}
		if r.Header.Get("x-client-id") != "app-1" {
			t.Errorf("missing x-client-id header")
		}
		if r.Header.Get("x-client-secret") != "secret-1" {
			t.Errorf("missing x-client-secret header")
		}
		if r.Header.Get("x-api-version") != "2022-09-01" {
			t.Errorf("wrong api version %q", r.Header.Get("x-api-version"))
		}
		if err := json.NewDecoder(r.Body).Decode(&got); err != nil {
			t.Errorf("decode body: %v", err)
		}
		w.Header().Set("Content-Type", "application/json")
		_, _ = w.Write([]byte(`{"order_id":"NAMCF-1","payment_session_id":"session_abc"}`))
	}))
	defer srv.Close()

	client := NewCashfreeClient("app-1", "secret-1", "test", logging.Default()).WithBaseURL(srv.URL)
	resp, err := client.CreateOrder(context.Background(), OrderRequest{
		OrderID:   "NAMCF-1",
		Amount:    500,
		Currency:  "INR",
		Customer:  CustomerDetails{ID: "pat-1", Name: "Asha", Email: "asha@example.com", Phone: "9999999999"},
		ReturnURL: "https://clinic.example/payment-status?order_id=NAMCF-1",
		NotifyURL: "https://clinic.example/api/payments/webhook",
	})
	if err != nil {
		t.Fatalf("create order: %v", err)
	}
	if resp.PaymentSessionID != "session_abc" {
		t.Fatalf("expected session id, got %q", resp.PaymentSessionID)
	}
	if got["order_id"] != "NAMCF-1" || got["order_currency"] != "INR" {
		t.Fatalf("payload not forwarded: %v", got)
	}
	meta, _ := got["order_meta"].(map[string]any)
	if meta["notify_url"] != "https://clinic.example/api/payments/webhook" {
		t.Fatalf("notify url not forwarded: %v", meta)
	}
}

func TestCreateOrder_APIErrorSurfacesBody(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusUnauthorized)
		_, _ = w.Write([]byte(`{"message":"bad credentials"}`))
	}))
	defer srv.Close()

	client := NewCashfreeClient("app-1", "wrong", "test", logging.Default()).WithBaseURL(srv.URL)
	_, err := client.CreateOrder(context.Background(), OrderRequest{OrderID: "NAMCF-2", Amount: 500, Currency: "INR"})
	if err == nil || !strings.Contains(err.Error(), "401") {
		t.Fatalf("expected status error, got %v", err)
	}
}

func TestCreateOrder_MissingCredentials(t *testing.T) {
	client := NewCashfreeClient("", "", "test", logging.Default())
	if _, err := client.CreateOrder(context.Background(), OrderRequest{OrderID: "NAMCF-3"}); err == nil {
		t.Fatal("expected error without credentials")
	}
}

func TestVerifyWebhookSignature(t *testing.T) {
	secret := "whsec"
	body := []byte(`{"data":{"order":{"order_id":"NAMCF-4"}}}`)
	client := NewCashfreeClient("app", secret, "test", logging.Default())

	if !client.VerifyWebhookSignature(body, signPayload(secret, body)) {
		t.Fatal("valid signature rejected")
	}
	if client.VerifyWebhookSignature([]byte(`{"data":{}}`), signPayload(secret, body)) {
		t.Fatal("signature over different bytes accepted")
	}
	if client.VerifyWebhookSignature(body, "") {
		t.Fatal("empty signature accepted")
	}
}

func TestHostedCheckoutLink(t *testing.T) {
	link := HostedCheckoutLink("NAMCF-5", "session xyz")
	if !strings.Contains(link, "payment_session_id=session+xyz") {
		t.Fatalf("session link wrong: %s", link)
	}
	link = HostedCheckoutLink("NAMCF-5", "")
	if !strings.Contains(link, "order_id=NAMCF-5") {
		t.Fatalf("order fallback link wrong: %s", link)
	}
	if HostedCheckoutLink("", "") != "" {
		t.Fatal("expected empty link without identifiers")
	}
}
