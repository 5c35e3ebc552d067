package handler

import (
	"net/http"

	"badgeshop/internal/config"
	"badgeshop/internal/domain/model"
	"badgeshop/internal/repository"
	"badgeshop/internal/usecase"

	"github.com/labstack/echo/v4"
)

type AdminUserHandler struct {
	cfg      config.Config
	userRepo repository.UserRepository
	auth     *usecase.AuthUsecase
	uc       *usecase.AdminUserUsecase
}

func NewAdminUserHandler(cfg config.Config, userRepo repository.UserRepository, auth *usecase.AuthUsecase, uc *usecase.AdminUserUsecase) *AdminUserHandler {
	return &AdminUserHandler{cfg: cfg, userRepo: userRepo, auth: auth, uc: uc}
}

// 指定した項目だけ更新
type UserUpdateRequest struct {
	Role     *string `json:"role"`
	IsActive *bool   `json:"is_active"`
}

func (h *AdminUserHandler) RegisterRoutes(e *echo.Echo) {
	// /admin 配下は全部「JWT必須 + token_version一致 + ADMIN限定」
	admin := e.Group("/admin", authChain(h.cfg, h.userRepo, model.RoleAdmin)...)

	admin.GET("/users", h.list)
	admin.PATCH("/users/:id", h.update)
	admin.POST("/users/:id/force-logout", h.forceLogout)
}

func (h *AdminUserHandler) list(c echo.Context) error {
	page, limit, err := pageParams(c, 20)
	if err != nil {
		return writeError(c, err)
	}

	out, err := h.uc.List(c.Request().Context(), usecase.AdminUserListInput{
		Page:  page,
		Limit: limit,
		Role:  c.QueryParam("role"),
		Q:     c.QueryParam("q"),
	})
	return respond(c, http.StatusOK, out, err)
}

func (h *AdminUserHandler) update(c echo.Context) error {
	adminID, ok := getUserIDFromContext(c)
	if !ok {
		return unauthorized(c)
	}
	userID, ok := paramID(c, "id")
	if !ok {
		return badRequest(c, "invalid user_id")
	}

	var req UserUpdateRequest
	if err := c.Bind(&req); err != nil {
		return badRequest(c, "invalid body")
	}

	out, err := h.uc.Update(c.Request().Context(), adminID, userID, usecase.AdminUpdateUserInput{
		Role:     req.Role,
		IsActive: req.IsActive,
	})
	return respond(c, http.StatusOK, out, err)
}

func (h *AdminUserHandler) forceLogout(c echo.Context) error {
	userID, ok := paramID(c, "id")
	if !ok {
		return badRequest(c, "invalid user_id")
	}

	res, err := h.auth.ForceLogout(c.Request().Context(), userID)
	return respond(c, http.StatusOK, res, err)
}
