package gateway

import (
	"context"
	"crypto/hmac"
	"crypto/sha256"
	"encoding/base64"
	"encoding/json"
	"errors"
	"net/http"
	"strconv"
	"strings"

	"badgeshop/internal/config"
	"badgeshop/internal/usecase"

	"github.com/shopspring/decimal"
)

const NameCashfree = "cashfree"

type Cashfree struct {
	cfg  config.Cashfree
	http *http.Client
}

func NewCashfree(cfg config.Cashfree) *Cashfree {
	return &Cashfree{cfg: cfg, http: defaultHTTPClient()}
}

func (c *Cashfree) Name() string { return NameCashfree }

type cashfreeCustomer struct {
	CustomerID    string `json:"customer_id"`
	CustomerName  string `json:"customer_name,omitempty"`
	CustomerEmail string `json:"customer_email,omitempty"`
	CustomerPhone string `json:"customer_phone"`
}

type cashfreeOrderMeta struct {
	ReturnURL string `json:"return_url,omitempty"`
	NotifyURL string `json:"notify_url,omitempty"`
}

type cashfreeOrderRequest struct {
	OrderID         string            `json:"order_id"`
	OrderAmount     float64           `json:"order_amount"`
	OrderCurrency   string            `json:"order_currency"`
	CustomerDetails cashfreeCustomer  `json:"customer_details"`
	OrderMeta       cashfreeOrderMeta `json:"order_meta"`
}

type cashfreeOrderResponse struct {
	CfOrderID        json.Number `json:"cf_order_id"`
	OrderID          string      `json:"order_id"`
	PaymentSessionID string      `json:"payment_session_id"`
}

// CreateSession はPG注文を作成してpayment_session_idを返す。
func (c *Cashfree) CreateSession(ctx context.Context, in usecase.PaymentSessionInput) (usecase.PaymentSession, error) {
	if c.cfg.AppID == "" || c.cfg.SecretKey == "" {
		return usecase.PaymentSession{}, errors.New("cashfree credentials not configured")
	}

	req := cashfreeOrderRequest{
		OrderID:       in.GatewayOrderID,
		OrderAmount:   decimal.NewFromInt(in.Amount).Round(2).InexactFloat64(),
		OrderCurrency: in.Currency,
		CustomerDetails: cashfreeCustomer{
			CustomerID:    "user_" + strconv.FormatInt(in.Customer.ID, 10),
			CustomerName:  in.Customer.Name,
			CustomerEmail: in.Customer.Email,
			CustomerPhone: in.Customer.Phone,
		},
		OrderMeta: cashfreeOrderMeta{ReturnURL: in.ReturnURL, NotifyURL: in.NotifyURL},
	}
	headers := map[string]string{
		"x-client-id":     c.cfg.AppID,
		"x-client-secret": c.cfg.SecretKey,
		"x-api-version":   c.cfg.APIVersion,
	}

	var res cashfreeOrderResponse
	url := strings.TrimRight(c.cfg.BaseURL, "/") + "/pg/orders"
	if err := postJSON(ctx, c.http, NameCashfree, url, headers, req, &res, nil); err != nil {
		return usecase.PaymentSession{}, err
	}
	if res.PaymentSessionID == "" {
		return usecase.PaymentSession{}, errors.New("cashfree response missing payment_session_id")
	}

	return usecase.PaymentSession{
		Gateway:         NameCashfree,
		ProviderOrderID: res.CfOrderID.String(),
		SessionID:       res.PaymentSessionID,
	}, nil
}

// 署名 = base64(HMAC-SHA256(secret, timestamp + rawBody))
func (c *Cashfree) VerifyWebhookSignature(timestamp string, body []byte, signature string) bool {
	if c.cfg.SecretKey == "" || timestamp == "" {
		return false
	}
	return equalSignature(c.sign(timestamp, body), signature)
}

func (c *Cashfree) sign(timestamp string, body []byte) string {
	mac := hmac.New(sha256.New, []byte(c.cfg.SecretKey))
	mac.Write([]byte(timestamp))
	mac.Write(body)
	return base64.StdEncoding.EncodeToString(mac.Sum(nil))
}
