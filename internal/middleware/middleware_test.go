package middleware_test

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"

	"badgeshop/internal/config"
	"badgeshop/internal/domain/model"
	"badgeshop/internal/middleware"
	"badgeshop/internal/repository"

	"github.com/golang-jwt/jwt/v4"
	"github.com/labstack/echo/v4"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
)

type mwErrorResponse struct {
	Error string `json:"error"`
}

type mwOKResponse struct {
	UserID       int64  `json:"user_id"`
	Role         string `json:"role"`
	TokenVersion int    `json:"token_version"`
}

// FindByIDだけモック（他のメソッドは呼ばれない）
type mockUserRepo struct {
	repository.UserRepository
	mock.Mock
}

func (m *mockUserRepo) FindByID(ctx context.Context, id int64) (*model.User, error) {
	args := m.Called(ctx, id)
	u, _ := args.Get(0).(*model.User)
	return u, args.Error(1)
}

const testSecret = "test-secret"

func mustMakeJWT(t *testing.T, secret string, sub int64, role string, tv int, signingMethod jwt.SigningMethod) string {
	t.Helper()

	claims := jwt.MapClaims{
		"sub":  sub,
		"role": role,
		"tv":   tv,
		"iat":  1,
		"exp":  9999999999,
	}

	s, err := jwt.NewWithClaims(signingMethod, claims).SignedString([]byte(secret))
	if err != nil {
		t.Fatalf("SignedString failed: %v", err)
	}
	return s
}

func runRequest(t *testing.T, e *echo.Echo, path string, authHeader string) *httptest.ResponseRecorder {
	t.Helper()

	req := httptest.NewRequest(http.MethodGet, path, nil)
	if authHeader != "" {
		req.Header.Set("Authorization", authHeader)
	}
	rec := httptest.NewRecorder()
	e.ServeHTTP(rec, req)
	return rec
}

func decodeError(t *testing.T, rec *httptest.ResponseRecorder) string {
	t.Helper()
	var r mwErrorResponse
	_ = json.NewDecoder(rec.Body).Decode(&r)
	return r.Error
}

func okHandler(c echo.Context) error {
	userID, _ := c.Get(middleware.CtxUserIDKey).(int64)
	role, _ := c.Get(middleware.CtxUserRoleKey).(string)
	tv, _ := c.Get(middleware.CtxTokenVersionKey).(int)
	return c.JSON(http.StatusOK, mwOKResponse{UserID: userID, Role: role, TokenVersion: tv})
}

func TestAuthJWT_Rejects(t *testing.T) {
	cfg := config.Config{JWTSecret: testSecret}

	tests := []struct {
		name   string
		header string
	}{
		{"no header", ""},
		{"bad scheme", "Token abc.def.ghi"},
		{"empty token", "Bearer  "},
		{"bad signature", "Bearer " + mustMakeJWT(t, "wrong-secret", 1, "USER", 0, jwt.SigningMethodHS256)},
		{"wrong alg", "Bearer " + mustMakeJWT(t, testSecret, 1, "USER", 0, jwt.SigningMethodHS512)},
		{"missing role", "Bearer " + mustMakeJWT(t, testSecret, 1, "", 0, jwt.SigningMethodHS256)},
		{"bad sub", "Bearer " + mustMakeJWT(t, testSecret, 0, "USER", 0, jwt.SigningMethodHS256)},
	}
	for _, tc := range tests {
		t.Run(tc.name, func(t *testing.T) {
			e := echo.New()
			e.GET("/protected", okHandler, middleware.AuthJWT(cfg))

			rec := runRequest(t, e, "/protected", tc.header)
			assert.Equal(t, http.StatusUnauthorized, rec.Code)
			assert.Equal(t, "unauthorized", decodeError(t, rec))
		})
	}
}

func TestAuthJWT_SetsContext(t *testing.T) {
	e := echo.New()
	cfg := config.Config{JWTSecret: testSecret}
	e.GET("/protected", okHandler, middleware.AuthJWT(cfg))

	raw := mustMakeJWT(t, testSecret, 123, "INFLUENCER", 7, jwt.SigningMethodHS256)
	rec := runRequest(t, e, "/protected", "Bearer "+raw)
	assert.Equal(t, http.StatusOK, rec.Code)

	var body mwOKResponse
	_ = json.NewDecoder(rec.Body).Decode(&body)
	assert.Equal(t, int64(123), body.UserID)
	assert.Equal(t, "INFLUENCER", body.Role)
	assert.Equal(t, 7, body.TokenVersion)
}

func TestTokenVersionGuard_MissingContext(t *testing.T) {
	e := echo.New()
	e.GET("/protected", okHandler, middleware.TokenVersionGuard(&mockUserRepo{}))

	rec := runRequest(t, e, "/protected", "")
	assert.Equal(t, http.StatusUnauthorized, rec.Code)
}

func TestTokenVersionGuard(t *testing.T) {
	cfg := config.Config{JWTSecret: testSecret}

	tests := []struct {
		name     string
		user     *model.User
		wantCode int
	}{
		{"version mismatch", &model.User{ID: 1, Role: model.RoleUser, TokenVersion: 1, IsActive: true}, http.StatusUnauthorized},
		{"user gone", nil, http.StatusUnauthorized},
		{"inactive", &model.User{ID: 1, Role: model.RoleUser, TokenVersion: 0, IsActive: false}, http.StatusForbidden},
		{"ok", &model.User{ID: 1, Role: model.RoleUser, TokenVersion: 0, IsActive: true}, http.StatusOK},
	}
	for _, tc := range tests {
		t.Run(tc.name, func(t *testing.T) {
			users := &mockUserRepo{}
			users.On("FindByID", mock.Anything, int64(1)).Return(tc.user, nil)

			e := echo.New()
			e.GET("/protected", okHandler, middleware.AuthJWT(cfg), middleware.TokenVersionGuard(users))

			raw := mustMakeJWT(t, testSecret, 1, "USER", 0, jwt.SigningMethodHS256)
			rec := runRequest(t, e, "/protected", "Bearer "+raw)
			assert.Equal(t, tc.wantCode, rec.Code)
			users.AssertExpectations(t)
		})
	}
}

func TestRoleGuard(t *testing.T) {
	cfg := config.Config{JWTSecret: testSecret}

	tests := []struct {
		name     string
		role     string
		guard    echo.MiddlewareFunc
		wantCode int
	}{
		{"admin allowed", "ADMIN", middleware.AdminOnly(), http.StatusOK},
		{"user on admin route", "USER", middleware.AdminOnly(), http.StatusForbidden},
		{"influencer allowed", "INFLUENCER", middleware.RoleGuard(model.RoleInfluencer), http.StatusOK},
		{"user on influencer route", "USER", middleware.RoleGuard(model.RoleInfluencer), http.StatusForbidden},
		{"any of several", "ADMIN", middleware.RoleGuard(model.RoleInfluencer, model.RoleAdmin), http.StatusOK},
	}
	for _, tc := range tests {
		t.Run(tc.name, func(t *testing.T) {
			e := echo.New()
			e.GET("/protected", okHandler, middleware.AuthJWT(cfg), tc.guard)

			raw := mustMakeJWT(t, testSecret, 1, tc.role, 0, jwt.SigningMethodHS256)
			rec := runRequest(t, e, "/protected", "Bearer "+raw)
			assert.Equal(t, tc.wantCode, rec.Code)
		})
	}
}

func TestRoleGuard_NoRoleInContext(t *testing.T) {
	e := echo.New()
	e.GET("/protected", okHandler, middleware.AdminOnly())

	rec := runRequest(t, e, "/protected", "")
	assert.Equal(t, http.StatusUnauthorized, rec.Code)
}
