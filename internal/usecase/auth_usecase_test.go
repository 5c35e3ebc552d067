package usecase_test

import (
	"context"
	"net/url"
	"testing"

	"badgeshop/internal/config"
	gormrepo "badgeshop/internal/infra/repository"
	"badgeshop/internal/usecase"
	"badgeshop/internal/validator"

	"github.com/golang-jwt/jwt/v4"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newAuthUsecase(env *testEnv) *usecase.AuthUsecase {
	cfg := config.Config{JWTSecret: "test-secret", FEURL: "http://fe.local", Shop: testShop}
	return usecase.NewAuthUsecase(
		cfg,
		env.users,
		gormrepo.NewPasswordResetTokenRepository(env.db),
		validator.NewAuthValidator(env.users),
		env.notifier,
		nil,
	)
}

func TestAuth_RegisterLoginAndTokenClaims(t *testing.T) {
	env := newTestEnv(t)
	uc := newAuthUsecase(env)
	ctx := context.Background()

	u, err := uc.Register(ctx, usecase.AuthRegisterRequest{Email: " Asha@Example.com ", Password: "password123", Name: "Asha"})
	require.NoError(t, err)
	assert.Equal(t, "asha@example.com", u.Email)
	assert.Equal(t, "USER", u.Role)

	_, err = uc.Register(ctx, usecase.AuthRegisterRequest{Email: "asha@example.com", Password: "password123"})
	assert.Equal(t, 409, httpStatus(t, err))

	_, err = uc.Register(ctx, usecase.AuthRegisterRequest{Email: "short@example.com", Password: "short"})
	assert.Equal(t, 400, httpStatus(t, err))

	_, err = uc.Login(ctx, usecase.AuthLoginRequest{Email: "asha@example.com", Password: "wrong-password"})
	assert.Equal(t, 401, httpStatus(t, err))

	res, err := uc.Login(ctx, usecase.AuthLoginRequest{Email: "asha@example.com", Password: "password123"})
	require.NoError(t, err)

	claims := jwt.MapClaims{}
	tok, err := jwt.ParseWithClaims(res.Token.AccessToken, claims, func(token *jwt.Token) (interface{}, error) {
		return []byte("test-secret"), nil
	})
	require.NoError(t, err)
	assert.True(t, tok.Valid)
	assert.Equal(t, "USER", claims["role"])
	assert.Equal(t, float64(u.ID), claims["sub"])
	assert.Equal(t, float64(0), claims["tv"])
	assert.Equal(t, 900, res.Token.ExpiresIn)
}

func TestAuth_RegisterInfluencerGetsProfile(t *testing.T) {
	env := newTestEnv(t)
	uc := newAuthUsecase(env)
	ctx := context.Background()

	u, err := uc.RegisterInfluencer(ctx, usecase.InfluencerRegisterRequest{
		AuthRegisterRequest: usecase.AuthRegisterRequest{Email: "inf@example.com", Password: "password123", Name: "Inf"},
		Handle:              "asha.creates",
	})
	require.NoError(t, err)
	assert.Equal(t, "INFLUENCER", u.Role)
	require.NotNil(t, u.Influencer)
	assert.Equal(t, "asha.creates", u.Influencer.Handle)
	assert.Equal(t, int64(100), u.Influencer.MinWithdrawal)

	_, err = uc.RegisterInfluencer(ctx, usecase.InfluencerRegisterRequest{
		AuthRegisterRequest: usecase.AuthRegisterRequest{Email: "inf2@example.com", Password: "password123"},
		Handle:              "x",
	})
	assert.Equal(t, 400, httpStatus(t, err))
}

func TestAuth_ForgotAndResetPassword(t *testing.T) {
	env := newTestEnv(t)
	uc := newAuthUsecase(env)
	ctx := context.Background()

	u, err := uc.Register(ctx, usecase.AuthRegisterRequest{Email: "asha@example.com", Password: "password123"})
	require.NoError(t, err)

	// 未登録でも成功扱い（送信はしない）
	require.NoError(t, uc.ForgotPassword(ctx, "nobody@example.com"))
	assert.Empty(t, env.notifier.resetURLs)

	require.NoError(t, uc.ForgotPassword(ctx, "asha@example.com"))
	require.Len(t, env.notifier.resetURLs, 1)

	link, err := url.Parse(env.notifier.resetURLs[0])
	require.NoError(t, err)
	assert.Equal(t, "/reset-password", link.Path)
	token := link.Query().Get("token")
	require.NotEmpty(t, token)

	require.NoError(t, uc.ResetPassword(ctx, token, "new-password-1"))

	// 使用済みトークンは再利用不可
	err = uc.ResetPassword(ctx, token, "another-password")
	assert.Equal(t, 400, httpStatus(t, err))

	_, err = uc.Login(ctx, usecase.AuthLoginRequest{Email: "asha@example.com", Password: "password123"})
	assert.Equal(t, 401, httpStatus(t, err))
	res, err := uc.Login(ctx, usecase.AuthLoginRequest{Email: "asha@example.com", Password: "new-password-1"})
	require.NoError(t, err)
	assert.Equal(t, 1, res.Token.TokenVersion)
	assert.Equal(t, u.ID, res.User.ID)
}

func TestAuth_ForceLogoutBumpsTokenVersion(t *testing.T) {
	env := newTestEnv(t)
	uc := newAuthUsecase(env)
	ctx := context.Background()

	u, err := uc.Register(ctx, usecase.AuthRegisterRequest{Email: "asha@example.com", Password: "password123"})
	require.NoError(t, err)

	res, err := uc.ForceLogout(ctx, u.ID)
	require.NoError(t, err)
	assert.Equal(t, 1, res.NewTokenVersion)

	_, err = uc.ForceLogout(ctx, 9999)
	assert.Equal(t, 404, httpStatus(t, err))
}
