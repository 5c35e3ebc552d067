package handler

import (
	"net/http"

	"badgeshop/internal/config"
	"badgeshop/internal/domain/model"
	"badgeshop/internal/repository"
	"badgeshop/internal/usecase"

	"github.com/labstack/echo/v4"
)

type AdminAuditHandler struct {
	uc *usecase.AuditLogUsecase
}

func NewAdminAuditHandler(uc *usecase.AuditLogUsecase) *AdminAuditHandler {
	return &AdminAuditHandler{uc: uc}
}

func (h *AdminAuditHandler) RegisterRoutes(e *echo.Echo, cfg config.Config, userRepo repository.UserRepository) {
	admin := e.Group("/admin", authChain(cfg, userRepo, model.RoleAdmin)...)
	admin.GET("/audit-logs", h.list)
}

// GET /admin/audit-logs?actor_user_id=&action=&resource_type=&resource_id=&from=&to=
func (h *AdminAuditHandler) list(c echo.Context) error {
	page, limit, err := pageParams(c, 50)
	if err != nil {
		return writeError(c, err)
	}
	actorID, ok := queryInt64Ptr(c, "actor_user_id")
	if !ok {
		return badRequest(c, "invalid actor_user_id")
	}
	resourceID, ok := queryInt64Ptr(c, "resource_id")
	if !ok {
		return badRequest(c, "invalid resource_id")
	}

	out, err := h.uc.List(c.Request().Context(), usecase.AuditLogListInput{
		Page:         page,
		Limit:        limit,
		ActorUserID:  actorID,
		Action:       c.QueryParam("action"),
		ResourceType: c.QueryParam("resource_type"),
		ResourceID:   resourceID,
		From:         c.QueryParam("from"),
		To:           c.QueryParam("to"),
	})
	return respond(c, http.StatusOK, out, err)
}
