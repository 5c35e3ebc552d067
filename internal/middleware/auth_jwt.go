package middleware

import (
	"errors"
	"net/http"
	"strings"

	"badgeshop/internal/config"

	"github.com/golang-jwt/jwt/v4"
	"github.com/labstack/echo/v4"
)

const (
	CtxUserIDKey       = "user_id"       // int64
	CtxUserRoleKey     = "user_role"     // string
	CtxTokenVersionKey = "token_version" // int
)

var errNoBearer = errors.New("bearer token required")

// アクセストークンのclaims。subは数値で発行している
type accessClaims struct {
	Sub  int64  `json:"sub"`
	Role string `json:"role"`
	TV   int    `json:"tv"`
	jwt.RegisteredClaims
}

// AuthJWT はBearerトークンを検証して user_id / role / tv をcontextに積む。
// 失敗はすべて401 "unauthorized"。
func AuthJWT(cfg config.Config) echo.MiddlewareFunc {
	parser := jwt.NewParser(jwt.WithValidMethods([]string{jwt.SigningMethodHS256.Alg()}))
	secret := []byte(cfg.JWTSecret)
	keyFunc := func(*jwt.Token) (interface{}, error) { return secret, nil }

	return func(next echo.HandlerFunc) echo.HandlerFunc {
		return func(c echo.Context) error {
			raw, err := bearerToken(c.Request())
			if err != nil {
				return deny(c, http.StatusUnauthorized, "unauthorized")
			}

			var claims accessClaims
			token, err := parser.ParseWithClaims(raw, &claims, keyFunc)
			if err != nil || !token.Valid {
				return deny(c, http.StatusUnauthorized, "unauthorized")
			}
			if claims.Sub <= 0 || claims.Role == "" || claims.TV < 0 {
				return deny(c, http.StatusUnauthorized, "unauthorized")
			}

			c.Set(CtxUserIDKey, claims.Sub)
			c.Set(CtxUserRoleKey, claims.Role)
			c.Set(CtxTokenVersionKey, claims.TV)
			return next(c)
		}
	}
}

// Authorization: Bearer <token>
func bearerToken(r *http.Request) (string, error) {
	scheme, token, ok := strings.Cut(r.Header.Get("Authorization"), " ")
	if !ok || !strings.EqualFold(scheme, "Bearer") {
		return "", errNoBearer
	}
	token = strings.TrimSpace(token)
	if token == "" {
		return "", errNoBearer
	}
	return token, nil
}

type errorResponse struct {
	Error string `json:"error"`
}

func deny(c echo.Context, status int, msg string) error {
	return c.JSON(status, errorResponse{Error: msg})
}
