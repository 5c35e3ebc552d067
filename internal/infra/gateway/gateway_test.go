package gateway

import (
	"context"
	"crypto/hmac"
	"crypto/sha256"
	"encoding/base64"
	"encoding/hex"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"

	"badgeshop/internal/config"
	"badgeshop/internal/usecase"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func sessionInput() usecase.PaymentSessionInput {
	return usecase.PaymentSessionInput{
		GatewayOrderID: "BS_7_1700000000000_abcd1234",
		Amount:         449,
		Currency:       "INR",
		Customer:       usecase.PaymentCustomer{ID: 7, Name: "Asha", Email: "asha@example.com", Phone: "9876543210"},
		NotifyURL:      "http://api.local/webhooks/cashfree",
		ReturnURL:      "http://fe.local/orders/1",
	}
}

func TestCashfree_CreateSession(t *testing.T) {
	var got map[string]any
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "/pg/orders", r.URL.Path)
		assert.Equal(t, "app-id", r.Header.Get("x-client-id"))
		assert.Equal(t, "secret", r.Header.Get("x-client-secret"))
		assert.Equal(t, "2023-08-01", r.Header.Get("x-api-version"))
		require.NoError(t, json.NewDecoder(r.Body).Decode(&got))
		w.Header().Set("Content-Type", "application/json")
		_, _ = w.Write([]byte(`{"cf_order_id": 2149460581, "order_id": "BS_7_1700000000000_abcd1234", "payment_session_id": "session_abc"}`))
	}))
	defer srv.Close()

	c := NewCashfree(config.Cashfree{AppID: "app-id", SecretKey: "secret", BaseURL: srv.URL, APIVersion: "2023-08-01"})
	s, err := c.CreateSession(context.Background(), sessionInput())
	require.NoError(t, err)

	assert.Equal(t, "cashfree", s.Gateway)
	assert.Equal(t, "2149460581", s.ProviderOrderID)
	assert.Equal(t, "session_abc", s.SessionID)
	assert.Equal(t, "BS_7_1700000000000_abcd1234", got["order_id"])
	assert.Equal(t, float64(449), got["order_amount"])
	meta := got["order_meta"].(map[string]any)
	assert.Equal(t, "http://api.local/webhooks/cashfree", meta["notify_url"])
}

func TestCashfree_CreateSession_APIError(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusBadRequest)
		_, _ = w.Write([]byte(`{"message":"order_amount invalid"}`))
	}))
	defer srv.Close()

	c := NewCashfree(config.Cashfree{AppID: "a", SecretKey: "s", BaseURL: srv.URL})
	_, err := c.CreateSession(context.Background(), sessionInput())
	require.Error(t, err)

	var apiErr *APIError
	require.ErrorAs(t, err, &apiErr)
	assert.Equal(t, http.StatusBadRequest, apiErr.StatusCode)
}

func TestCashfree_VerifyWebhookSignature(t *testing.T) {
	c := NewCashfree(config.Cashfree{SecretKey: "secret"})
	body := []byte(`{"type":"PAYMENT_SUCCESS_WEBHOOK"}`)
	ts := "1700000000"

	mac := hmac.New(sha256.New, []byte("secret"))
	mac.Write([]byte(ts))
	mac.Write(body)
	sig := base64.StdEncoding.EncodeToString(mac.Sum(nil))

	assert.True(t, c.VerifyWebhookSignature(ts, body, sig))
	assert.False(t, c.VerifyWebhookSignature(ts, []byte(`{"type":"tampered"}`), sig))
	assert.False(t, c.VerifyWebhookSignature("", body, sig))
	assert.False(t, c.VerifyWebhookSignature(ts, body, ""))
}

func TestRazorpay_CreateSession(t *testing.T) {
	var got razorpayOrderRequest
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "/v1/orders", r.URL.Path)
		user, pass, ok := r.BasicAuth()
		assert.True(t, ok)
		assert.Equal(t, "rzp_key", user)
		assert.Equal(t, "rzp_secret", pass)
		require.NoError(t, json.NewDecoder(r.Body).Decode(&got))
		_, _ = w.Write([]byte(`{"id":"order_Nabc123","status":"created"}`))
	}))
	defer srv.Close()

	r := NewRazorpay(config.Razorpay{KeyID: "rzp_key", KeySecret: "rzp_secret", BaseURL: srv.URL})
	s, err := r.CreateSession(context.Background(), sessionInput())
	require.NoError(t, err)

	assert.Equal(t, "razorpay", s.Gateway)
	assert.Equal(t, "order_Nabc123", s.ProviderOrderID)
	assert.Equal(t, "rzp_key", s.KeyID)
	assert.Equal(t, int64(44900), got.Amount)
	assert.Equal(t, "BS_7_1700000000000_abcd1234", got.Notes["gateway_order_id"])
}

func TestRazorpay_Signatures(t *testing.T) {
	r := NewRazorpay(config.Razorpay{KeySecret: "key_secret", WebhookSecret: "hook_secret"})

	body := []byte(`{"event":"payment.captured"}`)
	mac := hmac.New(sha256.New, []byte("hook_secret"))
	mac.Write(body)
	assert.True(t, r.VerifyWebhookSignature(body, hex.EncodeToString(mac.Sum(nil))))
	assert.False(t, r.VerifyWebhookSignature(body, "deadbeef"))

	mac = hmac.New(sha256.New, []byte("key_secret"))
	mac.Write([]byte("order_1|pay_1"))
	sig := hex.EncodeToString(mac.Sum(nil))
	assert.True(t, r.VerifyPaymentSignature("order_1", "pay_1", sig))
	assert.False(t, r.VerifyPaymentSignature("order_1", "pay_2", sig))
}

func TestRazorpay_MissingCredentials(t *testing.T) {
	r := NewRazorpay(config.Razorpay{})
	_, err := r.CreateSession(context.Background(), sessionInput())
	assert.Error(t, err)
	assert.False(t, r.VerifyWebhookSignature([]byte("{}"), "x"))
}
