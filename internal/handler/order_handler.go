package handler

import (
	"net/http"
	"strings"

	"badgeshop/internal/config"
	"badgeshop/internal/domain/model"
	"badgeshop/internal/repository"
	"badgeshop/internal/usecase"

	"github.com/labstack/echo/v4"
)

type OrderHandler struct {
	uc *usecase.OrderUsecase
}

func NewOrderHandler(uc *usecase.OrderUsecase) *OrderHandler {
	return &OrderHandler{uc: uc}
}

type OrderCreateRequest struct {
	ShippingAddress model.ShippingAddress `json:"shipping_address"`
	PromoCode       string                `json:"promo_code"`
	Gateway         string                `json:"gateway"`
	IdempotencyKey  string                `json:"idempotency_key"`
}

func (h *OrderHandler) RegisterRoutes(e *echo.Echo, cfg config.Config, userRepo repository.UserRepository) {
	g := e.Group("/orders", authChain(cfg, userRepo)...)

	g.POST("", h.create)
	g.GET("", h.list)
	g.GET("/:id", h.detail)
	g.GET("/:id/invoice.pdf", h.invoicePDF)
}

func (h *OrderHandler) create(c echo.Context) error {
	userID, ok := getUserIDFromContext(c)
	if !ok {
		return unauthorized(c)
	}

	var req OrderCreateRequest
	if err := c.Bind(&req); err != nil {
		return badRequest(c, "invalid body")
	}

	//二重送信防止キーはヘッダー優先（無ければbody）
	idemKey := strings.TrimSpace(c.Request().Header.Get("X-Idempotency-Key"))
	if idemKey == "" {
		idemKey = strings.TrimSpace(req.IdempotencyKey)
	}

	out, err := h.uc.CreateOrder(c.Request().Context(), userID, usecase.CreateOrderInput{
		Address:        req.ShippingAddress,
		PromoCode:      req.PromoCode,
		Gateway:        req.Gateway,
		IdempotencyKey: idemKey,
	})
	return respond(c, http.StatusCreated, out, err)
}

func (h *OrderHandler) list(c echo.Context) error {
	userID, ok := getUserIDFromContext(c)
	if !ok {
		return unauthorized(c)
	}

	page, limit, err := pageParams(c, 20)
	if err != nil {
		return writeError(c, err)
	}

	out, err := h.uc.ListMyOrders(c.Request().Context(), userID, page, limit)
	return respond(c, http.StatusOK, out, err)
}

func (h *OrderHandler) detail(c echo.Context) error {
	userID, ok := getUserIDFromContext(c)
	if !ok {
		return unauthorized(c)
	}

	id, ok := paramID(c, "id")
	if !ok {
		return badRequest(c, "invalid id")
	}

	out, err := h.uc.GetMyOrderDetail(c.Request().Context(), userID, id)
	return respond(c, http.StatusOK, out, err)
}

func (h *OrderHandler) invoicePDF(c echo.Context) error {
	userID, ok := getUserIDFromContext(c)
	if !ok {
		return unauthorized(c)
	}

	id, ok := paramID(c, "id")
	if !ok {
		return badRequest(c, "invalid id")
	}

	pdf, err := h.uc.GetInvoicePDF(c.Request().Context(), userID, getUserRoleFromContext(c), id)
	if err != nil {
		return writeError(c, err)
	}

	c.Response().Header().Set(echo.HeaderContentDisposition, `attachment; filename="`+pdf.Filename+`"`)
	return c.Blob(http.StatusOK, "application/pdf", pdf.Content)
}
