package usecase

import (
	"context"
	"crypto/sha256"
	"encoding/hex"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"strings"

	"badgeshop/internal/domain/model"
	repo "badgeshop/internal/repository"
)

var (
	ErrInvalidSignature = errors.New("invalid signature")
	ErrMalformedPayload = errors.New("malformed payload")
	ErrUnknownOrder     = errors.New("unknown order")
)

const (
	GatewayCashfree = "cashfree"
	GatewayRazorpay = "razorpay"
)

// handlerがヘッダから詰める
type WebhookRequest struct {
	Signature string
	Timestamp string
	EventID   string
	Body      []byte
}

type cashfreeWebhook struct {
	Type string `json:"type"`
	Data struct {
		Order struct {
			OrderID string `json:"order_id"`
		} `json:"order"`
		Payment struct {
			CfPaymentID   json.RawMessage `json:"cf_payment_id"`
			PaymentStatus string          `json:"payment_status"`
			PaymentMethod map[string]any  `json:"payment_method"`
		} `json:"payment"`
	} `json:"data"`
}

type razorpayWebhook struct {
	Event   string `json:"event"`
	Payload struct {
		Payment struct {
			Entity struct {
				ID      string          `json:"id"`
				OrderID string          `json:"order_id"`
				Status  string          `json:"status"`
				Method  string          `json:"method"`
				Notes   json.RawMessage `json:"notes"`
			} `json:"entity"`
		} `json:"payment"`
	} `json:"payload"`
}

// event idが無い場合は本文のハッシュで重複判定
func webhookEventID(req WebhookRequest) string {
	if id := strings.TrimSpace(req.EventID); id != "" {
		return id
	}
	sum := sha256.Sum256(req.Body)
	return hex.EncodeToString(sum[:])
}

// 数値でも文字列でも来る
func rawID(raw json.RawMessage) string {
	s := strings.TrimSpace(string(raw))
	if s == "" || s == "null" {
		return ""
	}
	return strings.Trim(s, `"`)
}

// HandleCashfreeWebhook は署名検証→重複排除→Settle。
// 戻り値のエラーはログ用（HTTPは常に200）。
func (u *SettlementUsecase) HandleCashfreeWebhook(ctx context.Context, req WebhookRequest) error {
	if u.Cashfree == nil || !u.Cashfree.VerifyWebhookSignature(req.Timestamp, req.Body, req.Signature) {
		return u.webhookFailed(ctx, GatewayCashfree, "invalid_signature", ErrInvalidSignature)
	}

	eventID := webhookEventID(req)
	dup, err := u.Webhooks.Exists(ctx, GatewayCashfree, eventID)
	if err != nil {
		return u.webhookFailed(ctx, GatewayCashfree, "dedupe_failed", err)
	}
	if dup {
		return nil
	}

	var p cashfreeWebhook
	if err := json.Unmarshal(req.Body, &p); err != nil || p.Data.Order.OrderID == "" {
		return u.webhookFailed(ctx, GatewayCashfree, "malformed_payload", ErrMalformedPayload)
	}

	_, err = u.Settle(ctx, SettleInput{
		Gateway:        GatewayCashfree,
		GatewayOrderID: p.Data.Order.OrderID,
		Status:         p.Data.Payment.PaymentStatus,
		PaymentID:      rawID(p.Data.Payment.CfPaymentID),
		PaymentMethod:  ResolvePaymentMethod(p.Data.Payment.PaymentMethod),
	})
	if err != nil {
		return u.webhookFailed(ctx, GatewayCashfree, settleFailureReason(err), err)
	}

	if err := u.Webhooks.MarkProcessed(ctx, GatewayCashfree, eventID, p.Type); err != nil {
		return u.webhookFailed(ctx, GatewayCashfree, "dedupe_failed", err)
	}
	return nil
}

func (u *SettlementUsecase) HandleRazorpayWebhook(ctx context.Context, req WebhookRequest) error {
	if u.Razorpay == nil || !u.Razorpay.VerifyWebhookSignature(req.Body, req.Signature) {
		return u.webhookFailed(ctx, GatewayRazorpay, "invalid_signature", ErrInvalidSignature)
	}

	eventID := webhookEventID(req)
	dup, err := u.Webhooks.Exists(ctx, GatewayRazorpay, eventID)
	if err != nil {
		return u.webhookFailed(ctx, GatewayRazorpay, "dedupe_failed", err)
	}
	if dup {
		return nil
	}

	var p razorpayWebhook
	if err := json.Unmarshal(req.Body, &p); err != nil {
		return u.webhookFailed(ctx, GatewayRazorpay, "malformed_payload", ErrMalformedPayload)
	}
	entity := p.Payload.Payment.Entity
	if entity.OrderID == "" && len(entity.Notes) == 0 {
		return u.webhookFailed(ctx, GatewayRazorpay, "malformed_payload", ErrMalformedPayload)
	}

	gatewayOrderID, err := u.resolveRazorpayOrder(ctx, entity.OrderID, entity.Notes)
	if err != nil {
		return u.webhookFailed(ctx, GatewayRazorpay, "unknown_order", err)
	}

	_, err = u.Settle(ctx, SettleInput{
		Gateway:        GatewayRazorpay,
		GatewayOrderID: gatewayOrderID,
		Status:         entity.Status,
		PaymentID:      entity.ID,
		PaymentMethod:  PaymentMethodFromString(entity.Method),
	})
	if err != nil {
		return u.webhookFailed(ctx, GatewayRazorpay, settleFailureReason(err), err)
	}

	if err := u.Webhooks.MarkProcessed(ctx, GatewayRazorpay, eventID, p.Event); err != nil {
		return u.webhookFailed(ctx, GatewayRazorpay, "dedupe_failed", err)
	}
	return nil
}

// provider側の注文IDから引く。無ければnotes.gateway_order_id
func (u *SettlementUsecase) resolveRazorpayOrder(ctx context.Context, providerOrderID string, notes json.RawMessage) (string, error) {
	var found string
	err := u.Tx.WithinTx(ctx, func(r repo.TxRepos) error {
		if providerOrderID != "" {
			o, err := r.Orders().FindByProviderOrderID(ctx, GatewayRazorpay, providerOrderID)
			if err == nil {
				found = o.GatewayOrderID
				return nil
			}
			if !errors.Is(err, repo.ErrNotFound) {
				return err
			}
		}

		// 空のnotesは[]で来る
		var m map[string]any
		if err := json.Unmarshal(notes, &m); err != nil {
			return ErrUnknownOrder
		}
		id, _ := m["gateway_order_id"].(string)
		if id == "" {
			return ErrUnknownOrder
		}
		found = id
		return nil
	})
	if err != nil {
		return "", err
	}
	return found, nil
}

func settleFailureReason(err error) string {
	if he, ok := AsHTTPError(err); ok && he.Status == http.StatusNotFound {
		return "unknown_order"
	}
	return "settle_failed"
}

func (u *SettlementUsecase) webhookFailed(ctx context.Context, gateway, reason string, err error) error {
	u.Log.WarnContext(ctx, "webhook not processed",
		slog.String("gateway", gateway),
		slog.String("reason", reason),
		slog.Any("err", err),
	)
	u.Metrics.WebhookError(gateway, reason)
	return fmt.Errorf("%s webhook %s: %w", gateway, reason, err)
}

type RazorpayVerifyInput struct {
	RazorpayOrderID   string
	RazorpayPaymentID string
	RazorpaySignature string
}

// VerifyRazorpayPayment はクライアントから来た支払い完了を署名で確認してから確定する。
func (u *SettlementUsecase) VerifyRazorpayPayment(ctx context.Context, userID int64, in RazorpayVerifyInput) (SettleResult, error) {
	if userID <= 0 {
		return SettleResult{}, NewHTTPError(http.StatusUnauthorized, "unauthorized")
	}
	if in.RazorpayOrderID == "" || in.RazorpayPaymentID == "" || in.RazorpaySignature == "" {
		return SettleResult{}, NewHTTPError(http.StatusBadRequest, "missing fields")
	}
	if u.Razorpay == nil || !u.Razorpay.VerifyPaymentSignature(in.RazorpayOrderID, in.RazorpayPaymentID, in.RazorpaySignature) {
		return SettleResult{}, NewHTTPError(http.StatusBadRequest, "invalid signature")
	}

	var o model.Order
	err := u.Tx.WithinTx(ctx, func(r repo.TxRepos) error {
		var err error
		o, err = r.Orders().FindByProviderOrderID(ctx, GatewayRazorpay, in.RazorpayOrderID)
		if errors.Is(err, repo.ErrNotFound) {
			return NewHTTPError(http.StatusNotFound, "not found")
		}
		if err != nil {
			return NewHTTPError(http.StatusInternalServerError, "db error")
		}
		if o.UserID != userID {
			return NewHTTPError(http.StatusNotFound, "not found")
		}
		return nil
	})
	if err != nil {
		return SettleResult{}, err
	}

	res, err := u.Settle(ctx, SettleInput{
		Gateway:        GatewayRazorpay,
		GatewayOrderID: o.GatewayOrderID,
		Status:         "CAPTURED",
		PaymentID:      in.RazorpayPaymentID,
		PaymentMethod:  model.PaymentMethodUnknown,
	})
	if err != nil {
		if _, ok := AsHTTPError(err); ok {
			return SettleResult{}, err
		}
		return SettleResult{}, NewHTTPError(http.StatusInternalServerError, "settlement error")
	}
	return res, nil
}
