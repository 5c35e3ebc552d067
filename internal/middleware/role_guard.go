package middleware

import (
	"net/http"

	"badgeshop/internal/domain/model"

	"github.com/labstack/echo/v4"
)

// contextに入っているroleが許可リストに含まれるか確認します。
func RoleGuard(roles ...model.Role) echo.MiddlewareFunc {
	allowed := make(map[string]struct{}, len(roles))
	for _, r := range roles {
		allowed[string(r)] = struct{}{}
	}

	return func(next echo.HandlerFunc) echo.HandlerFunc {
		return func(c echo.Context) error {
			rawRole := c.Get(CtxUserRoleKey)
			role, ok := rawRole.(string)
			if !ok || role == "" {
				return deny(c, http.StatusUnauthorized, "unauthorized")
			}

			if _, ok := allowed[role]; !ok {
				return deny(c, http.StatusForbidden, "forbidden")
			}

			return next(c)
		}
	}
}

// 管理者だけ
func AdminOnly() echo.MiddlewareFunc {
	return RoleGuard(model.RoleAdmin)
}
