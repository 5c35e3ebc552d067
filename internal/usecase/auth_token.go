package usecase

import (
	"crypto/rand"
	"crypto/sha256"
	"encoding/base64"
	"time"

	"badgeshop/internal/domain/model"

	"github.com/golang-jwt/jwt/v4"
)

const (
	accessTokenTTL = 15 * time.Minute
	resetTokenTTL  = time.Hour
)

// middleware.AuthJWT が読む形と揃える
type accessClaims struct {
	Sub  int64  `json:"sub"`
	Role string `json:"role"`
	TV   int    `json:"tv"`
	jwt.RegisteredClaims
}

func (u *AuthUsecase) issueAccessToken(user *model.User) (JwtAccessTokenDTO, error) {
	now := u.clock.Now()
	claims := accessClaims{
		Sub:  user.ID,
		Role: string(user.Role),
		TV:   user.TokenVersion,
		RegisteredClaims: jwt.RegisteredClaims{
			IssuedAt:  jwt.NewNumericDate(now),
			ExpiresAt: jwt.NewNumericDate(now.Add(accessTokenTTL)),
		},
	}
	signed, err := jwt.NewWithClaims(jwt.SigningMethodHS256, claims).SignedString([]byte(u.cfg.JWTSecret))
	if err != nil {
		return JwtAccessTokenDTO{}, err
	}
	return JwtAccessTokenDTO{
		AccessToken:  signed,
		ExpiresIn:    int(accessTokenTTL / time.Second),
		TokenVersion: user.TokenVersion,
	}, nil
}

// 平文はメールで渡し、DBにはハッシュだけ置く
func newResetToken() (plain, hash string, err error) {
	b := make([]byte, 32)
	if _, err := rand.Read(b); err != nil {
		return "", "", err
	}
	plain = base64.RawURLEncoding.EncodeToString(b)
	return plain, hashResetToken(plain), nil
}

func hashResetToken(plain string) string {
	sum := sha256.Sum256([]byte(plain))
	return base64.RawURLEncoding.EncodeToString(sum[:])
}
