package handler

import (
	"net/http"
	"strconv"

	"badgeshop/internal/config"
	"badgeshop/internal/domain/model"
	"badgeshop/internal/middleware"
	"badgeshop/internal/repository"
	"badgeshop/internal/usecase"

	"github.com/labstack/echo/v4"
)

type ErrorResponse struct {
	Error string `json:"error"`
}

// { message: string }
type SuccessResponse struct {
	Message string `json:"message"`
}

func writeError(c echo.Context, err error) error {
	if err == nil {
		return nil
	}
	if he, ok := usecase.AsHTTPError(err); ok {
		return c.JSON(he.Status, ErrorResponse{Error: he.Message})
	}

	//500
	return c.JSON(http.StatusInternalServerError, ErrorResponse{Error: "internal error"})
}

// usecaseの戻り値をそのまま返す
func respond[T any](c echo.Context, status int, out T, err error) error {
	if err != nil {
		return writeError(c, err)
	}
	return c.JSON(status, out)
}

func badRequest(c echo.Context, msg string) error {
	return c.JSON(http.StatusBadRequest, ErrorResponse{Error: msg})
}

func unauthorized(c echo.Context) error {
	return c.JSON(http.StatusUnauthorized, ErrorResponse{Error: "unauthorized"})
}

// JWT必須 + token_version一致 (+ ロール)
func authChain(cfg config.Config, userRepo repository.UserRepository, roles ...model.Role) []echo.MiddlewareFunc {
	chain := []echo.MiddlewareFunc{
		middleware.AuthJWT(cfg),
		middleware.TokenVersionGuard(userRepo),
	}
	if len(roles) > 0 {
		chain = append(chain, middleware.RoleGuard(roles...))
	}
	return chain
}

//middleware.AuthJWT が c.Set("user_id", int64) した値を取り出す
func getUserIDFromContext(c echo.Context) (int64, bool) {
	id, ok := c.Get(middleware.CtxUserIDKey).(int64)
	if !ok || id <= 0 {
		return 0, false
	}
	return id, true
}

func getUserRoleFromContext(c echo.Context) model.Role {
	role, _ := c.Get(middleware.CtxUserRoleKey).(string)
	return model.Role(role)
}

// クエリの整数（空ならdef）
func queryInt(c echo.Context, name string, def int) (int, bool) {
	v := c.QueryParam(name)
	if v == "" {
		return def, true
	}
	n, err := strconv.Atoi(v)
	if err != nil {
		return 0, false
	}
	return n, true
}

func queryInt64Ptr(c echo.Context, name string) (*int64, bool) {
	v := c.QueryParam(name)
	if v == "" {
		return nil, true
	}
	n, err := strconv.ParseInt(v, 10, 64)
	if err != nil {
		return nil, false
	}
	return &n, true
}

func paramID(c echo.Context, name string) (int64, bool) {
	id, err := strconv.ParseInt(c.Param(name), 10, 64)
	if err != nil || id <= 0 {
		return 0, false
	}
	return id, true
}

// page/limit（不正ならHTTPError）
func pageParams(c echo.Context, defLimit int) (int, int, error) {
	page, ok := queryInt(c, "page", 1)
	if !ok {
		return 0, 0, usecase.NewHTTPError(http.StatusBadRequest, "invalid page")
	}
	limit, ok := queryInt(c, "limit", defLimit)
	if !ok {
		return 0, 0, usecase.NewHTTPError(http.StatusBadRequest, "invalid limit")
	}
	return page, limit, nil
}
