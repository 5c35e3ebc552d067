package handler

import (
	"net/http"

	"badgeshop/internal/config"
	"badgeshop/internal/domain/model"
	"badgeshop/internal/repository"
	"badgeshop/internal/usecase"

	"github.com/labstack/echo/v4"
)

type AdminOrderHandler struct {
	uc *usecase.AdminOrderUsecase
}

func NewAdminOrderHandler(uc *usecase.AdminOrderUsecase) *AdminOrderHandler {
	return &AdminOrderHandler{uc: uc}
}

// 手動の決済反映（SUCCESS/FAILED）
type OrderStatusUpdateRequest struct {
	Status        string `json:"status"`
	PaymentID     string `json:"payment_id"`
	PaymentMethod string `json:"payment_method"`
}

func (h *AdminOrderHandler) RegisterRoutes(e *echo.Echo, cfg config.Config, userRepo repository.UserRepository) {
	admin := e.Group("/admin", authChain(cfg, userRepo, model.RoleAdmin)...)

	admin.GET("/orders", h.list)
	admin.PUT("/orders/:id/status", h.updateStatus)
}

func (h *AdminOrderHandler) list(c echo.Context) error {
	page, limit, err := pageParams(c, 50)
	if err != nil {
		return writeError(c, err)
	}

	userID, ok := queryInt64Ptr(c, "user_id")
	if !ok {
		return badRequest(c, "invalid user_id")
	}

	// from/toの形式チェックはusecase側
	out, err := h.uc.List(c.Request().Context(), usecase.AdminOrderListInput{
		Page:           page,
		Limit:          limit,
		Status:         c.QueryParam("status"),
		UserID:         userID,
		GatewayOrderID: c.QueryParam("gateway_order_id"),
		From:           c.QueryParam("from"),
		To:             c.QueryParam("to"),
	})
	return respond(c, http.StatusOK, out, err)
}

func (h *AdminOrderHandler) updateStatus(c echo.Context) error {
	orderID, ok := paramID(c, "id")
	if !ok {
		return badRequest(c, "invalid id")
	}

	var req OrderStatusUpdateRequest
	if err := c.Bind(&req); err != nil {
		return badRequest(c, "invalid body")
	}

	// 操作した管理者IDを取得（監査ログ用）
	adminID, ok := getUserIDFromContext(c)
	if !ok {
		return unauthorized(c)
	}

	res, err := h.uc.UpdateStatus(c.Request().Context(), adminID, orderID, usecase.AdminUpdateOrderStatusInput{
		Status:        req.Status,
		PaymentID:     req.PaymentID,
		PaymentMethod: req.PaymentMethod,
	})
	return respond(c, http.StatusOK, res, err)
}
