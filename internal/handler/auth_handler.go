package handler

import (
	"net/http"

	"badgeshop/internal/config"
	"badgeshop/internal/repository"
	"badgeshop/internal/usecase"

	"github.com/labstack/echo/v4"
)

type AuthHandler struct {
	uc       *usecase.AuthUsecase
	cfg      config.Config
	userRepo repository.UserRepository
}

// DIコンストラクタ
func NewAuthHandler(uc *usecase.AuthUsecase, cfg config.Config, userRepo repository.UserRepository) *AuthHandler {
	return &AuthHandler{uc: uc, cfg: cfg, userRepo: userRepo}
}

// /auth/register のリクエストボディ。
type registerRequest struct {
	Email    string `json:"email"`
	Password string `json:"password"`
	Name     string `json:"name"`
	Phone    string `json:"phone"`
}

type influencerRegisterRequest struct {
	registerRequest
	Handle string `json:"handle"`
}

// /auth/login のリクエストボディ。
type loginRequest struct {
	Email    string `json:"email"`
	Password string `json:"password"`
}

type forgotPasswordRequest struct {
	Email string `json:"email"`
}

type resetPasswordRequest struct {
	Token       string `json:"token"`
	NewPassword string `json:"new_password"`
}

func (h *AuthHandler) RegisterRoutes(e *echo.Echo) {
	e.POST("/auth/register", h.register)
	e.POST("/auth/login", h.login)
	e.POST("/auth/password/forgot", h.forgotPassword)
	e.POST("/auth/password/reset", h.resetPassword)
	e.POST("/influencers/register", h.registerInfluencer)

	e.GET("/auth/me", h.me, authChain(h.cfg, h.userRepo)...)
}

// POST /auth/register
func (h *AuthHandler) register(c echo.Context) error {
	var req registerRequest
	if err := c.Bind(&req); err != nil {
		return badRequest(c, "invalid body")
	}

	out, err := h.uc.Register(c.Request().Context(), usecase.AuthRegisterRequest{
		Email:    req.Email,
		Password: req.Password,
		Name:     req.Name,
		Phone:    req.Phone,
	})
	return respond(c, http.StatusCreated, out, err)
}

// POST /influencers/register
func (h *AuthHandler) registerInfluencer(c echo.Context) error {
	var req influencerRegisterRequest
	if err := c.Bind(&req); err != nil {
		return badRequest(c, "invalid body")
	}

	out, err := h.uc.RegisterInfluencer(c.Request().Context(), usecase.InfluencerRegisterRequest{
		AuthRegisterRequest: usecase.AuthRegisterRequest{
			Email:    req.Email,
			Password: req.Password,
			Name:     req.Name,
			Phone:    req.Phone,
		},
		Handle: req.Handle,
	})
	return respond(c, http.StatusCreated, out, err)
}

// POST /auth/login
func (h *AuthHandler) login(c echo.Context) error {
	var req loginRequest
	if err := c.Bind(&req); err != nil {
		return badRequest(c, "invalid body")
	}

	out, err := h.uc.Login(c.Request().Context(), usecase.AuthLoginRequest{
		Email:    req.Email,
		Password: req.Password,
	})
	if err != nil {
		return writeError(c, err)
	}

	//JSONレスポンス（user + token）
	return c.JSON(http.StatusOK, out)
}

func (h *AuthHandler) me(c echo.Context) error {
	userID, ok := getUserIDFromContext(c)
	if !ok {
		return unauthorized(c)
	}

	out, err := h.uc.Me(c.Request().Context(), userID)
	return respond(c, http.StatusOK, out, err)
}

// 登録有無が分からないように常に同じ応答
func (h *AuthHandler) forgotPassword(c echo.Context) error {
	var req forgotPasswordRequest
	if err := c.Bind(&req); err != nil {
		return badRequest(c, "invalid body")
	}

	if err := h.uc.ForgotPassword(c.Request().Context(), req.Email); err != nil {
		return writeError(c, err)
	}
	return c.JSON(http.StatusOK, SuccessResponse{Message: "if the account exists, a reset link has been sent"})
}

func (h *AuthHandler) resetPassword(c echo.Context) error {
	var req resetPasswordRequest
	if err := c.Bind(&req); err != nil {
		return badRequest(c, "invalid body")
	}

	if err := h.uc.ResetPassword(c.Request().Context(), req.Token, req.NewPassword); err != nil {
		return writeError(c, err)
	}
	return c.JSON(http.StatusOK, SuccessResponse{Message: "password updated"})
}
