package handler

import (
	"net/http"

	"badgeshop/internal/config"
	"badgeshop/internal/repository"
	"badgeshop/internal/usecase"

	"github.com/labstack/echo/v4"
)

type CartHandler struct {
	uc *usecase.CartUsecase
}

func NewCartHandler(uc *usecase.CartUsecase) *CartHandler {
	return &CartHandler{uc: uc}
}

type CartLineRequest struct {
	ProductID int64 `json:"product_id"`
	Quantity  int64 `json:"quantity"`
}

type CartQuantityRequest struct {
	Quantity int64 `json:"quantity"`
}

// ログイン前にブラウザで持っていたカート
type CartSyncRequest struct {
	Items []CartLineRequest `json:"items"`
}

func (h *CartHandler) RegisterRoutes(e *echo.Echo, cfg config.Config, userRepo repository.UserRepository) {
	g := e.Group("/cart", authChain(cfg, userRepo)...)

	g.GET("", h.get)
	g.POST("", h.add)
	g.PUT("/sync", h.sync)
	g.PUT("/:id", h.setQuantity)
	g.DELETE("/:id", h.remove)
}

func (h *CartHandler) get(c echo.Context) error {
	userID, ok := getUserIDFromContext(c)
	if !ok {
		return unauthorized(c)
	}
	out, err := h.uc.GetCart(c.Request().Context(), userID)
	return respond(c, http.StatusOK, out, err)
}

func (h *CartHandler) add(c echo.Context) error {
	userID, ok := getUserIDFromContext(c)
	if !ok {
		return unauthorized(c)
	}
	var req CartLineRequest
	if err := c.Bind(&req); err != nil {
		return badRequest(c, "invalid body")
	}
	out, err := h.uc.AddToCart(c.Request().Context(), userID, usecase.AddCartInput(req))
	return respond(c, http.StatusOK, out, err)
}

func (h *CartHandler) setQuantity(c echo.Context) error {
	userID, ok := getUserIDFromContext(c)
	if !ok {
		return unauthorized(c)
	}
	itemID, ok := paramID(c, "id")
	if !ok {
		return badRequest(c, "invalid id")
	}
	var req CartQuantityRequest
	if err := c.Bind(&req); err != nil {
		return badRequest(c, "invalid body")
	}
	out, err := h.uc.UpdateCartItem(c.Request().Context(), userID, itemID, usecase.UpdateCartItemInput(req))
	return respond(c, http.StatusOK, out, err)
}

func (h *CartHandler) remove(c echo.Context) error {
	userID, ok := getUserIDFromContext(c)
	if !ok {
		return unauthorized(c)
	}
	itemID, ok := paramID(c, "id")
	if !ok {
		return badRequest(c, "invalid id")
	}
	out, err := h.uc.DeleteCartItem(c.Request().Context(), userID, itemID)
	return respond(c, http.StatusOK, out, err)
}

func (h *CartHandler) sync(c echo.Context) error {
	userID, ok := getUserIDFromContext(c)
	if !ok {
		return unauthorized(c)
	}
	var req CartSyncRequest
	if err := c.Bind(&req); err != nil {
		return badRequest(c, "invalid body")
	}
	lines := make([]usecase.SyncCartItem, 0, len(req.Items))
	for _, it := range req.Items {
		lines = append(lines, usecase.SyncCartItem(it))
	}
	out, err := h.uc.SyncCart(c.Request().Context(), userID, lines)
	return respond(c, http.StatusOK, out, err)
}
