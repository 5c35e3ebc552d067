package handler

import (
	"net/http"
	"strconv"
	"time"

	"badgeshop/internal/config"
	"badgeshop/internal/domain/model"
	"badgeshop/internal/repository"
	"badgeshop/internal/usecase"

	"github.com/labstack/echo/v4"
	"github.com/shopspring/decimal"
)

type PromoHandler struct {
	uc *usecase.PromoUsecase
}

func NewPromoHandler(uc *usecase.PromoUsecase) *PromoHandler {
	return &PromoHandler{uc: uc}
}

type promoValidateRequest struct {
	Code string `json:"code"`
}

// discount_valueは数値でも文字列でもよい
type PromoRequest struct {
	Code           string          `json:"code"`
	Description    string          `json:"description"`
	PromoType      string          `json:"promo_type"`
	DiscountType   string          `json:"discount_type"`
	DiscountValue  decimal.Decimal `json:"discount_value"`
	MinOrderAmount int64           `json:"min_order_amount"`
	MaxDiscount    *int64          `json:"max_discount"`
	UsageLimit     *int64          `json:"usage_limit"`
	ValidFrom      time.Time       `json:"valid_from"`
	ValidUntil     time.Time       `json:"valid_until"`
	IsActive       bool            `json:"is_active"`
	InfluencerID   *int64          `json:"influencer_id"`
	EarningPerUnit *int64          `json:"earning_per_unit"`
}

func (r PromoRequest) toInput() usecase.PromoInput {
	return usecase.PromoInput{
		Code:           r.Code,
		Description:    r.Description,
		PromoType:      model.PromoType(r.PromoType),
		DiscountType:   model.DiscountType(r.DiscountType),
		DiscountValue:  r.DiscountValue,
		MinOrderAmount: r.MinOrderAmount,
		MaxDiscount:    r.MaxDiscount,
		UsageLimit:     r.UsageLimit,
		ValidFrom:      r.ValidFrom,
		ValidUntil:     r.ValidUntil,
		IsActive:       r.IsActive,
		InfluencerID:   r.InfluencerID,
		EarningPerUnit: r.EarningPerUnit,
	}
}

func (h *PromoHandler) RegisterRoutes(e *echo.Echo, cfg config.Config, userRepo repository.UserRepository) {
	e.POST("/promos/validate", h.validate, authChain(cfg, userRepo)...)

	admin := e.Group("/admin", authChain(cfg, userRepo, model.RoleAdmin)...)
	admin.GET("/promos", h.adminList)
	admin.POST("/promos", h.adminCreate)
	admin.PUT("/promos/:id", h.adminUpdate)
	admin.DELETE("/promos/:id", h.adminDeactivate)
	admin.GET("/promos/:id/usages", h.adminUsages)
}

// 使用回数は消費しない（確認だけ）
func (h *PromoHandler) validate(c echo.Context) error {
	userID, ok := getUserIDFromContext(c)
	if !ok {
		return unauthorized(c)
	}

	var req promoValidateRequest
	if err := c.Bind(&req); err != nil {
		return badRequest(c, "invalid body")
	}

	out, err := h.uc.Validate(c.Request().Context(), userID, req.Code)
	return respond(c, http.StatusOK, out, err)
}

func (h *PromoHandler) adminList(c echo.Context) error {
	page, limit, err := pageParams(c, 20)
	if err != nil {
		return writeError(c, err)
	}

	in := usecase.ListPromosInput{
		Page:      page,
		Limit:     limit,
		Q:         c.QueryParam("q"),
		PromoType: c.QueryParam("promo_type"),
	}
	if v := c.QueryParam("is_active"); v != "" {
		b, err := strconv.ParseBool(v)
		if err != nil {
			return badRequest(c, "invalid is_active")
		}
		in.IsActive = &b
	}
	var ok bool
	if in.InfluencerID, ok = queryInt64Ptr(c, "influencer_id"); !ok {
		return badRequest(c, "invalid influencer_id")
	}

	out, err := h.uc.ListPromos(c.Request().Context(), in)
	return respond(c, http.StatusOK, out, err)
}

func (h *PromoHandler) adminCreate(c echo.Context) error {
	adminID, ok := getUserIDFromContext(c)
	if !ok {
		return unauthorized(c)
	}

	var req PromoRequest
	if err := c.Bind(&req); err != nil {
		return badRequest(c, "invalid body")
	}

	p, err := h.uc.CreatePromo(c.Request().Context(), adminID, req.toInput())
	return respond(c, http.StatusCreated, p, err)
}

func (h *PromoHandler) adminUpdate(c echo.Context) error {
	adminID, ok := getUserIDFromContext(c)
	if !ok {
		return unauthorized(c)
	}
	id, ok := paramID(c, "id")
	if !ok {
		return badRequest(c, "invalid id")
	}

	var req PromoRequest
	if err := c.Bind(&req); err != nil {
		return badRequest(c, "invalid body")
	}

	p, err := h.uc.UpdatePromo(c.Request().Context(), adminID, id, req.toInput())
	return respond(c, http.StatusOK, p, err)
}

// 使用履歴が残るので物理削除はしない
func (h *PromoHandler) adminDeactivate(c echo.Context) error {
	adminID, ok := getUserIDFromContext(c)
	if !ok {
		return unauthorized(c)
	}
	id, ok := paramID(c, "id")
	if !ok {
		return badRequest(c, "invalid id")
	}

	if err := h.uc.DeactivatePromo(c.Request().Context(), adminID, id); err != nil {
		return writeError(c, err)
	}
	return c.JSON(http.StatusOK, SuccessResponse{Message: "deactivated"})
}

func (h *PromoHandler) adminUsages(c echo.Context) error {
	id, ok := paramID(c, "id")
	if !ok {
		return badRequest(c, "invalid id")
	}
	page, limit, err := pageParams(c, 20)
	if err != nil {
		return writeError(c, err)
	}

	out, err := h.uc.ListPromoUsages(c.Request().Context(), id, page, limit)
	return respond(c, http.StatusOK, out, err)
}
