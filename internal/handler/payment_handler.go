package handler

import (
	"io"
	"log/slog"
	"net/http"

	"badgeshop/internal/config"
	"badgeshop/internal/repository"
	"badgeshop/internal/usecase"

	"github.com/labstack/echo/v4"
)

// webhook本文の上限
const maxWebhookBody = 1 << 20

// 決済ゲートウェイからの通知とRazorpayのクライアント確認
type PaymentHandler struct {
	uc  *usecase.SettlementUsecase
	log *slog.Logger
}

func NewPaymentHandler(uc *usecase.SettlementUsecase, log *slog.Logger) *PaymentHandler {
	if log == nil {
		log = slog.Default()
	}
	return &PaymentHandler{uc: uc, log: log}
}

type razorpayVerifyRequest struct {
	RazorpayOrderID   string `json:"razorpay_order_id"`
	RazorpayPaymentID string `json:"razorpay_payment_id"`
	RazorpaySignature string `json:"razorpay_signature"`
}

type webhookAck struct {
	Status string `json:"status"`
}

func (h *PaymentHandler) RegisterRoutes(e *echo.Echo, cfg config.Config, userRepo repository.UserRepository) {
	e.POST("/webhooks/cashfree", h.cashfreeWebhook)
	e.POST("/webhooks/razorpay", h.razorpayWebhook)

	e.POST("/payments/razorpay/verify", h.razorpayVerify, authChain(cfg, userRepo)...)
}

// 署名検証は生の本文で行うのでBindしない
func readWebhookBody(c echo.Context) ([]byte, error) {
	return io.ReadAll(io.LimitReader(c.Request().Body, maxWebhookBody))
}

// ゲートウェイの再送を止めるため常に200
func (h *PaymentHandler) cashfreeWebhook(c echo.Context) error {
	body, err := readWebhookBody(c)
	if err != nil {
		h.log.WarnContext(c.Request().Context(), "read webhook body failed", slog.String("gateway", usecase.GatewayCashfree), slog.Any("err", err))
		return c.JSON(http.StatusOK, webhookAck{Status: "ok"})
	}

	r := c.Request()
	_ = h.uc.HandleCashfreeWebhook(r.Context(), usecase.WebhookRequest{
		Signature: r.Header.Get("x-webhook-signature"),
		Timestamp: r.Header.Get("x-webhook-timestamp"),
		EventID:   r.Header.Get("x-webhook-id"),
		Body:      body,
	})
	return c.JSON(http.StatusOK, webhookAck{Status: "ok"})
}

func (h *PaymentHandler) razorpayWebhook(c echo.Context) error {
	body, err := readWebhookBody(c)
	if err != nil {
		h.log.WarnContext(c.Request().Context(), "read webhook body failed", slog.String("gateway", usecase.GatewayRazorpay), slog.Any("err", err))
		return c.JSON(http.StatusOK, webhookAck{Status: "ok"})
	}

	r := c.Request()
	_ = h.uc.HandleRazorpayWebhook(r.Context(), usecase.WebhookRequest{
		Signature: r.Header.Get("X-Razorpay-Signature"),
		EventID:   r.Header.Get("X-Razorpay-Event-Id"),
		Body:      body,
	})
	return c.JSON(http.StatusOK, webhookAck{Status: "ok"})
}

func (h *PaymentHandler) razorpayVerify(c echo.Context) error {
	userID, ok := getUserIDFromContext(c)
	if !ok {
		return unauthorized(c)
	}

	var req razorpayVerifyRequest
	if err := c.Bind(&req); err != nil {
		return badRequest(c, "invalid body")
	}

	res, err := h.uc.VerifyRazorpayPayment(c.Request().Context(), userID, usecase.RazorpayVerifyInput{
		RazorpayOrderID:   req.RazorpayOrderID,
		RazorpayPaymentID: req.RazorpayPaymentID,
		RazorpaySignature: req.RazorpaySignature,
	})
	return respond(c, http.StatusOK, res, err)
}
