package gateway

import (
	"context"
	"crypto/hmac"
	"crypto/sha256"
	"encoding/hex"
	"errors"
	"net/http"
	"strings"

	"badgeshop/internal/config"
	"badgeshop/internal/usecase"

	"github.com/shopspring/decimal"
)

const NameRazorpay = "razorpay"

type Razorpay struct {
	cfg  config.Razorpay
	http *http.Client
}

func NewRazorpay(cfg config.Razorpay) *Razorpay {
	return &Razorpay{cfg: cfg, http: defaultHTTPClient()}
}

func (r *Razorpay) Name() string { return NameRazorpay }

type razorpayOrderRequest struct {
	Amount   int64             `json:"amount"`
	Currency string            `json:"currency"`
	Receipt  string            `json:"receipt"`
	Notes    map[string]string `json:"notes"`
}

type razorpayOrderResponse struct {
	ID     string `json:"id"`
	Status string `json:"status"`
}

// 金額はパイサ（最小通貨単位）
func toPaise(rupees int64) int64 {
	return decimal.NewFromInt(rupees).Mul(decimal.NewFromInt(100)).IntPart()
}

// CreateSession はRazorpay注文を作る。notesにgateway_order_idを入れてwebhookで突き合わせる。
func (r *Razorpay) CreateSession(ctx context.Context, in usecase.PaymentSessionInput) (usecase.PaymentSession, error) {
	if r.cfg.KeyID == "" || r.cfg.KeySecret == "" {
		return usecase.PaymentSession{}, errors.New("razorpay credentials not configured")
	}

	req := razorpayOrderRequest{
		Amount:   toPaise(in.Amount),
		Currency: in.Currency,
		Receipt:  in.GatewayOrderID,
		Notes:    map[string]string{"gateway_order_id": in.GatewayOrderID},
	}

	var res razorpayOrderResponse
	url := strings.TrimRight(r.cfg.BaseURL, "/") + "/v1/orders"
	err := postJSON(ctx, r.http, NameRazorpay, url, nil, req, &res, func(hr *http.Request) {
		hr.SetBasicAuth(r.cfg.KeyID, r.cfg.KeySecret)
	})
	if err != nil {
		return usecase.PaymentSession{}, err
	}
	if res.ID == "" {
		return usecase.PaymentSession{}, errors.New("razorpay response missing order id")
	}

	return usecase.PaymentSession{
		Gateway:         NameRazorpay,
		ProviderOrderID: res.ID,
		KeyID:           r.cfg.KeyID,
	}, nil
}

// webhook: hex(HMAC-SHA256(webhook_secret, rawBody))
func (r *Razorpay) VerifyWebhookSignature(body []byte, signature string) bool {
	if r.cfg.WebhookSecret == "" {
		return false
	}
	return equalSignature(hexHMAC(r.cfg.WebhookSecret, body), signature)
}

// checkout完了: hex(HMAC-SHA256(key_secret, order_id + "|" + payment_id))
func (r *Razorpay) VerifyPaymentSignature(providerOrderID string, paymentID string, signature string) bool {
	if r.cfg.KeySecret == "" || providerOrderID == "" || paymentID == "" {
		return false
	}
	return equalSignature(hexHMAC(r.cfg.KeySecret, []byte(providerOrderID+"|"+paymentID)), signature)
}

func hexHMAC(secret string, msg []byte) string {
	mac := hmac.New(sha256.New, []byte(secret))
	mac.Write(msg)
	return hex.EncodeToString(mac.Sum(nil))
}
