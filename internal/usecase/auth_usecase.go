package usecase

import (
	"context"
	"errors"
	"log/slog"
	"net/http"
	"net/url"
	"strings"

	"badgeshop/internal/config"
	"badgeshop/internal/domain/model"
	"badgeshop/internal/repository"

	"golang.org/x/crypto/bcrypt"
)

type JwtAccessTokenDTO struct {
	AccessToken  string `json:"access_token"`
	ExpiresIn    int    `json:"expires_in"`
	TokenVersion int    `json:"token_version"`
}

type AuthRegisterRequest struct {
	Email    string
	Password string
	Name     string
	Phone    string
}

type InfluencerRegisterRequest struct {
	AuthRegisterRequest
	Handle string
}

type AuthLoginRequest struct {
	Email    string
	Password string
}

type AuthLoginResponse struct {
	User  UserDTO           `json:"user"`
	Token JwtAccessTokenDTO `json:"token"`
}

type ForceLogoutResponse struct {
	UserID          int64 `json:"user_id"`
	NewTokenVersion int   `json:"new_token_version"`
}

var (
	errInvalidCredentials = NewHTTPError(http.StatusUnauthorized, "invalid credentials")
	errInactiveUser       = NewHTTPError(http.StatusForbidden, "user inactive")
	errBadResetToken      = NewHTTPError(http.StatusBadRequest, "invalid or expired token")
)

type AuthUsecase struct {
	cfg         config.Config
	users       repository.UserRepository
	resetTokens repository.PasswordResetTokenRepository
	validator   AuthValidator
	notifier    Notifier
	clock       Clock
	ids         IDGenerator
	log         *slog.Logger
}

// notifierがnilならリセットメールは送らない
func NewAuthUsecase(
	cfg config.Config,
	users repository.UserRepository,
	resetTokens repository.PasswordResetTokenRepository,
	validator AuthValidator,
	notifier Notifier,
	log *slog.Logger,
) *AuthUsecase {
	if log == nil {
		log = slog.Default()
	}
	return &AuthUsecase{
		cfg:         cfg,
		users:       users,
		resetTokens: resetTokens,
		validator:   validator,
		notifier:    notifier,
		clock:       realClock{},
		ids:         uuidGenerator{},
		log:         log,
	}
}

func authInputError(err error) error {
	switch {
	case errors.Is(err, ErrConflict):
		return NewHTTPError(http.StatusConflict, "email already used")
	case errors.Is(err, ErrValidation):
		return NewHTTPError(http.StatusBadRequest, err.Error())
	default:
		return NewHTTPError(http.StatusBadRequest, "validation error")
	}
}

func (u *AuthUsecase) Register(ctx context.Context, req AuthRegisterRequest) (*UserDTO, error) {
	if err := u.validator.ValidateRegister(ctx, req.Email, req.Password); err != nil {
		return nil, authInputError(err)
	}
	return u.signUp(ctx, req, model.RoleUser, model.InfluencerProfile{})
}

// 最低出金額は登録時点のshop設定を写す
func (u *AuthUsecase) RegisterInfluencer(ctx context.Context, req InfluencerRegisterRequest) (*UserDTO, error) {
	if err := u.validator.ValidateRegisterInfluencer(ctx, req.Email, req.Password, req.Handle); err != nil {
		return nil, authInputError(err)
	}
	profile := model.InfluencerProfile{
		Handle:        strings.TrimSpace(req.Handle),
		MinWithdrawal: u.cfg.Shop.MinWithdrawal,
	}
	return u.signUp(ctx, req.AuthRegisterRequest, model.RoleInfluencer, profile)
}

func (u *AuthUsecase) signUp(ctx context.Context, req AuthRegisterRequest, role model.Role, profile model.InfluencerProfile) (*UserDTO, error) {
	hash, err := hashPassword(req.Password)
	if err != nil {
		return nil, err
	}
	user := &model.User{
		Email:        normalizeEmail(req.Email),
		Name:         strings.TrimSpace(req.Name),
		Phone:        strings.TrimSpace(req.Phone),
		PasswordHash: hash,
		Role:         role,
		IsActive:     true,
		Influencer:   profile,
	}

	// validator通過後の同時登録はunique制約で弾く
	err = u.users.Create(ctx, user)
	if errors.Is(err, repository.ErrConflict) {
		return nil, NewHTTPError(http.StatusConflict, "email already used")
	}
	if err != nil {
		return nil, NewHTTPError(http.StatusInternalServerError, "db error")
	}
	dto := toUserDTO(user)
	return &dto, nil
}

func (u *AuthUsecase) Login(ctx context.Context, req AuthLoginRequest) (*AuthLoginResponse, error) {
	if err := u.validator.ValidateLogin(ctx, req.Email, req.Password); err != nil {
		return nil, authInputError(err)
	}

	// 存在しない・パスワード違いは区別しない
	user, err := u.users.FindByEmail(ctx, req.Email)
	if err != nil || user == nil {
		return nil, errInvalidCredentials
	}
	if bcrypt.CompareHashAndPassword([]byte(user.PasswordHash), []byte(req.Password)) != nil {
		return nil, errInvalidCredentials
	}
	if !user.IsActive {
		return nil, errInactiveUser
	}

	now := u.clock.Now()
	user.LastLoginAt = &now
	if err := u.users.Update(ctx, user); err != nil {
		u.log.WarnContext(ctx, "update last_login failed", slog.Int64("user_id", user.ID), slog.Any("err", err))
	}

	token, err := u.issueAccessToken(user)
	if err != nil {
		return nil, NewHTTPError(http.StatusInternalServerError, "internal error")
	}
	return &AuthLoginResponse{User: toUserDTO(user), Token: token}, nil
}

func (u *AuthUsecase) Me(ctx context.Context, userID int64) (*UserDTO, error) {
	if userID <= 0 {
		return nil, NewHTTPError(http.StatusUnauthorized, "unauthorized")
	}
	user, err := u.users.FindByID(ctx, userID)
	if err != nil || user == nil {
		return nil, NewHTTPError(http.StatusUnauthorized, "unauthorized")
	}
	if !user.IsActive {
		return nil, errInactiveUser
	}
	dto := toUserDTO(user)
	return &dto, nil
}

// ForceLogout は token_version を上げ、発行済みのaccess tokenを全て無効にする。
func (u *AuthUsecase) ForceLogout(ctx context.Context, targetUserID int64) (*ForceLogoutResponse, error) {
	if err := u.validator.ValidateForceLogout(ctx, targetUserID); err != nil {
		return nil, authInputError(err)
	}
	if err := u.users.IncrementTokenVersion(ctx, targetUserID); err != nil {
		return nil, storeError(err)
	}

	user, err := u.users.FindByID(ctx, targetUserID)
	if err != nil || user == nil {
		return nil, NewHTTPError(http.StatusInternalServerError, "db error")
	}
	return &ForceLogoutResponse{UserID: user.ID, NewTokenVersion: user.TokenVersion}, nil
}

// ForgotPassword はアカウントの有無を漏らさないため、内部で失敗しても成功を返す。
func (u *AuthUsecase) ForgotPassword(ctx context.Context, email string) error {
	if err := u.validator.ValidateForgotPassword(ctx, email); err != nil {
		return authInputError(err)
	}

	user, err := u.users.FindByEmail(ctx, email)
	if err != nil {
		u.log.ErrorContext(ctx, "forgot password lookup failed", slog.Any("err", err))
		return nil
	}
	if user == nil || !user.IsActive {
		return nil
	}

	resetURL, err := u.issueResetToken(ctx, user.ID)
	if err != nil {
		u.log.ErrorContext(ctx, "issue reset token failed", slog.Int64("user_id", user.ID), slog.Any("err", err))
		return nil
	}
	if u.notifier == nil {
		return nil
	}
	if err := u.notifier.SendPasswordReset(context.WithoutCancel(ctx), *user, resetURL); err != nil {
		u.log.ErrorContext(ctx, "password reset mail failed", slog.Int64("user_id", user.ID), slog.Any("err", err))
	}
	return nil
}

// 有効なリセットトークンはユーザーごとに1つ
func (u *AuthUsecase) issueResetToken(ctx context.Context, userID int64) (string, error) {
	if err := u.resetTokens.DeleteAllByUserID(ctx, userID); err != nil {
		return "", err
	}
	plain, hash, err := newResetToken()
	if err != nil {
		return "", err
	}
	now := u.clock.Now()
	err = u.resetTokens.Create(ctx, &model.PasswordResetToken{
		ID:        u.ids.NewID(),
		UserID:    userID,
		TokenHash: hash,
		ExpiresAt: now.Add(resetTokenTTL),
		CreatedAt: now,
	})
	if err != nil {
		return "", err
	}
	return strings.TrimRight(u.cfg.FEURL, "/") + "/reset-password?token=" + url.QueryEscape(plain), nil
}

// ResetPassword はトークンを消費してパスワードを差し替え、既存セッションも切る。
func (u *AuthUsecase) ResetPassword(ctx context.Context, token string, newPassword string) error {
	if err := u.validator.ValidateResetPassword(ctx, token, newPassword); err != nil {
		return authInputError(err)
	}

	rt, err := u.resetTokens.FindByTokenHash(ctx, hashResetToken(strings.TrimSpace(token)))
	switch {
	case errors.Is(err, repository.ErrResetTokenNotFound):
		return errBadResetToken
	case err != nil:
		return NewHTTPError(http.StatusInternalServerError, "db error")
	case rt == nil:
		return errBadResetToken
	}
	now := u.clock.Now()
	if rt.UsedAt != nil || now.After(rt.ExpiresAt) {
		return errBadResetToken
	}

	hash, err := hashPassword(newPassword)
	if err != nil {
		return err
	}
	if err := u.resetTokens.MarkUsed(ctx, rt.ID, now); err != nil {
		if errors.Is(err, repository.ErrResetTokenNotFound) {
			return errBadResetToken
		}
		return NewHTTPError(http.StatusInternalServerError, "db error")
	}
	if err := u.users.UpdatePasswordHash(ctx, rt.UserID, hash); err != nil {
		return NewHTTPError(http.StatusInternalServerError, "db error")
	}
	if err := u.users.IncrementTokenVersion(ctx, rt.UserID); err != nil {
		return NewHTTPError(http.StatusInternalServerError, "db error")
	}
	return nil
}

func hashPassword(plain string) (string, error) {
	b, err := bcrypt.GenerateFromPassword([]byte(plain), bcrypt.DefaultCost)
	if err != nil {
		return "", NewHTTPError(http.StatusInternalServerError, "internal error")
	}
	return string(b), nil
}

func normalizeEmail(email string) string {
	return strings.ToLower(strings.TrimSpace(email))
}
