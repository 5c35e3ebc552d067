package handler

import (
	"net/http"

	"badgeshop/internal/config"
	"badgeshop/internal/domain/model"
	"badgeshop/internal/repository"
	"badgeshop/internal/usecase"

	"github.com/labstack/echo/v4"
)

// /influencer（本人）と /admin/influencers
type InfluencerHandler struct {
	uc          *usecase.InfluencerUsecase
	withdrawals *usecase.WithdrawalUsecase
}

func NewInfluencerHandler(uc *usecase.InfluencerUsecase, withdrawals *usecase.WithdrawalUsecase) *InfluencerHandler {
	return &InfluencerHandler{uc: uc, withdrawals: withdrawals}
}

type withdrawalCreateRequest struct {
	Amount  int64          `json:"amount"`
	Method  string         `json:"method"`
	Details map[string]any `json:"details"`
}

func (h *InfluencerHandler) RegisterRoutes(e *echo.Echo, cfg config.Config, userRepo repository.UserRepository) {
	inf := e.Group("/influencer", authChain(cfg, userRepo, model.RoleInfluencer)...)
	inf.GET("/me", h.me)
	inf.GET("/earnings", h.earnings)
	inf.GET("/balance", h.balance)
	inf.GET("/withdrawals", h.listWithdrawals)
	inf.POST("/withdrawals", h.requestWithdrawal)

	admin := e.Group("/admin", authChain(cfg, userRepo, model.RoleAdmin)...)
	admin.GET("/influencers", h.adminList)
	admin.POST("/influencers/:id/reconcile", h.adminReconcile)
	admin.GET("/influencers/:id/earnings", h.adminEarnings)
}

func (h *InfluencerHandler) me(c echo.Context) error {
	userID, ok := getUserIDFromContext(c)
	if !ok {
		return unauthorized(c)
	}

	out, err := h.uc.Me(c.Request().Context(), userID)
	return respond(c, http.StatusOK, out, err)
}

func (h *InfluencerHandler) earnings(c echo.Context) error {
	userID, ok := getUserIDFromContext(c)
	if !ok {
		return unauthorized(c)
	}
	return h.listEarnings(c, userID)
}

func (h *InfluencerHandler) listEarnings(c echo.Context, influencerID int64) error {
	page, limit, err := pageParams(c, 20)
	if err != nil {
		return writeError(c, err)
	}

	out, err := h.uc.ListEarnings(c.Request().Context(), influencerID, usecase.EarningListInput{
		Page:   page,
		Limit:  limit,
		Status: c.QueryParam("status"),
	})
	return respond(c, http.StatusOK, out, err)
}

func (h *InfluencerHandler) balance(c echo.Context) error {
	userID, ok := getUserIDFromContext(c)
	if !ok {
		return unauthorized(c)
	}

	out, err := h.withdrawals.Balance(c.Request().Context(), userID)
	return respond(c, http.StatusOK, out, err)
}

func (h *InfluencerHandler) listWithdrawals(c echo.Context) error {
	userID, ok := getUserIDFromContext(c)
	if !ok {
		return unauthorized(c)
	}
	page, limit, err := pageParams(c, 20)
	if err != nil {
		return writeError(c, err)
	}

	out, err := h.withdrawals.ListMine(c.Request().Context(), userID, usecase.WithdrawalListInput{
		Page:   page,
		Limit:  limit,
		Status: c.QueryParam("status"),
	})
	return respond(c, http.StatusOK, out, err)
}

func (h *InfluencerHandler) requestWithdrawal(c echo.Context) error {
	userID, ok := getUserIDFromContext(c)
	if !ok {
		return unauthorized(c)
	}

	var req withdrawalCreateRequest
	if err := c.Bind(&req); err != nil {
		return badRequest(c, "invalid body")
	}

	w, err := h.withdrawals.Request(c.Request().Context(), userID, usecase.WithdrawalInput{
		Amount:  req.Amount,
		Method:  req.Method,
		Details: req.Details,
	})
	return respond(c, http.StatusCreated, w, err)
}

func (h *InfluencerHandler) adminList(c echo.Context) error {
	page, limit, err := pageParams(c, 20)
	if err != nil {
		return writeError(c, err)
	}

	out, err := h.uc.AdminList(c.Request().Context(), page, limit, c.QueryParam("q"))
	return respond(c, http.StatusOK, out, err)
}

// 集計値を明細から再計算
func (h *InfluencerHandler) adminReconcile(c echo.Context) error {
	adminID, ok := getUserIDFromContext(c)
	if !ok {
		return unauthorized(c)
	}
	id, ok := paramID(c, "id")
	if !ok {
		return badRequest(c, "invalid id")
	}

	profile, err := h.uc.Reconcile(c.Request().Context(), adminID, id)
	return respond(c, http.StatusOK, profile, err)
}

func (h *InfluencerHandler) adminEarnings(c echo.Context) error {
	id, ok := paramID(c, "id")
	if !ok {
		return badRequest(c, "invalid id")
	}
	return h.listEarnings(c, id)
}
