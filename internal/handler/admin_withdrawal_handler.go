package handler

import (
	"net/http"

	"badgeshop/internal/config"
	"badgeshop/internal/domain/model"
	"badgeshop/internal/repository"
	"badgeshop/internal/usecase"

	"github.com/labstack/echo/v4"
)

type AdminWithdrawalHandler struct {
	uc *usecase.WithdrawalUsecase
}

func NewAdminWithdrawalHandler(uc *usecase.WithdrawalUsecase) *AdminWithdrawalHandler {
	return &AdminWithdrawalHandler{uc: uc}
}

type WithdrawalStatusUpdateRequest struct {
	Status        string `json:"status"`
	AdminNote     string `json:"admin_note"`
	TransactionID string `json:"transaction_id"`
}

func (h *AdminWithdrawalHandler) RegisterRoutes(e *echo.Echo, cfg config.Config, userRepo repository.UserRepository) {
	admin := e.Group("/admin", authChain(cfg, userRepo, model.RoleAdmin)...)

	admin.GET("/withdrawals", h.list)
	admin.PUT("/withdrawals/:id/status", h.updateStatus)
}

func (h *AdminWithdrawalHandler) list(c echo.Context) error {
	page, limit, err := pageParams(c, 50)
	if err != nil {
		return writeError(c, err)
	}
	influencerID, ok := queryInt64Ptr(c, "influencer_id")
	if !ok {
		return badRequest(c, "invalid influencer_id")
	}

	out, err := h.uc.AdminList(c.Request().Context(), usecase.WithdrawalListInput{
		Page:         page,
		Limit:        limit,
		Status:       c.QueryParam("status"),
		InfluencerID: influencerID,
	})
	return respond(c, http.StatusOK, out, err)
}

func (h *AdminWithdrawalHandler) updateStatus(c echo.Context) error {
	id, ok := paramID(c, "id")
	if !ok {
		return badRequest(c, "invalid id")
	}

	var req WithdrawalStatusUpdateRequest
	if err := c.Bind(&req); err != nil {
		return badRequest(c, "invalid body")
	}

	// 操作した管理者IDを取得（監査ログ用）
	adminID, ok := getUserIDFromContext(c)
	if !ok {
		return unauthorized(c)
	}

	w, err := h.uc.AdminUpdateStatus(c.Request().Context(), adminID, id, usecase.AdminWithdrawalStatusInput{
		Status:        req.Status,
		AdminNote:     req.AdminNote,
		TransactionID: req.TransactionID,
	})
	return respond(c, http.StatusOK, w, err)
}
