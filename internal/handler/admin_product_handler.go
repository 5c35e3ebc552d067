package handler

import (
	"net/http"

	"badgeshop/internal/config"
	"badgeshop/internal/domain/model"
	"badgeshop/internal/repository"
	"badgeshop/internal/usecase"

	"github.com/labstack/echo/v4"
)

// 作成・更新で共通（PUTは全項目置き換え）
type ProductRequest struct {
	Name        string `json:"name"`
	Description string `json:"description"`
	Category    string `json:"category"`
	Price       int64  `json:"price"`
	ImageURL    string `json:"image_url"`
	IsActive    bool   `json:"is_active"`
}

type createdResponse struct {
	ID int64 `json:"id"`
}

type AdminProductHandler struct {
	uc *usecase.ProductUsecase
}

func NewAdminProductHandler(uc *usecase.ProductUsecase) *AdminProductHandler {
	return &AdminProductHandler{uc: uc}
}

func (h *AdminProductHandler) RegisterRoutes(e *echo.Echo, cfg config.Config, userRepo repository.UserRepository) {
	g := e.Group("/admin/products", authChain(cfg, userRepo, model.RoleAdmin)...)

	g.POST("", h.create)
	g.PUT("/:id", h.update)
	g.DELETE("/:id", h.remove)
}

func (h *AdminProductHandler) create(c echo.Context) error {
	adminID, ok := getUserIDFromContext(c)
	if !ok {
		return unauthorized(c)
	}
	var req ProductRequest
	if err := c.Bind(&req); err != nil {
		return badRequest(c, "invalid body")
	}

	id, err := h.uc.AdminCreateProduct(c.Request().Context(), adminID, usecase.AdminProductInput(req))
	return respond(c, http.StatusCreated, createdResponse{ID: id}, err)
}

func (h *AdminProductHandler) update(c echo.Context) error {
	adminID, ok := getUserIDFromContext(c)
	if !ok {
		return unauthorized(c)
	}
	id, ok := paramID(c, "id")
	if !ok {
		return badRequest(c, "invalid id")
	}
	var req ProductRequest
	if err := c.Bind(&req); err != nil {
		return badRequest(c, "invalid body")
	}

	err := h.uc.AdminUpdateProduct(c.Request().Context(), adminID, id, usecase.AdminProductInput(req))
	return respond(c, http.StatusOK, SuccessResponse{Message: "updated"}, err)
}

func (h *AdminProductHandler) remove(c echo.Context) error {
	adminID, ok := getUserIDFromContext(c)
	if !ok {
		return unauthorized(c)
	}
	id, ok := paramID(c, "id")
	if !ok {
		return badRequest(c, "invalid id")
	}

	err := h.uc.AdminDeleteProduct(c.Request().Context(), adminID, id)
	return respond(c, http.StatusOK, SuccessResponse{Message: "deleted"}, err)
}
