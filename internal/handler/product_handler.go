package handler

import (
	"net/http"

	"badgeshop/internal/usecase"

	"github.com/labstack/echo/v4"
)

// /products の公開API
type ProductHandler struct {
	uc *usecase.ProductUsecase
}

// DI
func NewProductHandler(uc *usecase.ProductUsecase) *ProductHandler {
	return &ProductHandler{uc: uc}
}

// 公開商品のルートを登録
func (h *ProductHandler) RegisterRoutes(e *echo.Echo) {
	e.GET("/products", h.list)
	e.GET("/products/:id", h.detail)
}

func (h *ProductHandler) list(c echo.Context) error {
	// page（default 1）/ limit（default 20）
	page, limit, err := pageParams(c, 20)
	if err != nil {
		return writeError(c, err)
	}

	minPrice, ok := queryInt64Ptr(c, "min_price")
	if !ok {
		return badRequest(c, "invalid min_price")
	}
	maxPrice, ok := queryInt64Ptr(c, "max_price")
	if !ok {
		return badRequest(c, "invalid max_price")
	}

	out, err := h.uc.ListPublicProducts(c.Request().Context(), usecase.ListProductsInput{
		Page:     page,
		Limit:    limit,
		Q:        c.QueryParam("q"),
		Category: c.QueryParam("category"),
		MinPrice: minPrice,
		MaxPrice: maxPrice,
		Sort:     c.QueryParam("sort"),
	})
	return respond(c, http.StatusOK, out, err)
}

func (h *ProductHandler) detail(c echo.Context) error {
	id, ok := paramID(c, "id")
	if !ok {
		return badRequest(c, "invalid id")
	}

	p, err := h.uc.GetProductDetail(c.Request().Context(), id)
	return respond(c, http.StatusOK, p, err)
}
