package middleware

import (
	"net/http"

	"badgeshop/internal/repository"

	"github.com/labstack/echo/v4"
)

// TokenVersionGuard はJWTのtvとDBのtoken_versionを突き合わせる。
// 強制ログアウト・パスワード再設定・ロール変更でtvが上がると古いトークンは401になる。
func TokenVersionGuard(userRepo repository.UserRepository) echo.MiddlewareFunc {
	return func(next echo.HandlerFunc) echo.HandlerFunc {
		return func(c echo.Context) error {
			userID, _ := c.Get(CtxUserIDKey).(int64)
			tv, hasTV := c.Get(CtxTokenVersionKey).(int)
			if userID <= 0 || !hasTV || tv < 0 {
				return deny(c, http.StatusUnauthorized, "unauthorized")
			}

			user, err := userRepo.FindByID(c.Request().Context(), userID)
			switch {
			case err != nil || user == nil:
				return deny(c, http.StatusUnauthorized, "unauthorized")
			case user.TokenVersion != tv:
				return deny(c, http.StatusUnauthorized, "unauthorized")
			case !user.IsActive:
				return deny(c, http.StatusForbidden, "user inactive")
			}

			// roleはDBの値を正とする
			c.Set(CtxUserRoleKey, string(user.Role))
			return next(c)
		}
	}
}
