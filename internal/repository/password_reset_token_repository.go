package repository

import (
	"badgeshop/internal/domain/model"
	"context"
	"errors"
	"time"
)

var ErrResetTokenNotFound = errors.New("reset token not found")

// パスワード再設定トークンの保存・取得・更新・削除
type PasswordResetTokenRepository interface {
	Create(ctx context.Context, token *model.PasswordResetToken) error
	FindByTokenHash(ctx context.Context, tokenHash string) (*model.PasswordResetToken, error)
	MarkUsed(ctx context.Context, tokenID string, usedAt time.Time) error
	DeleteAllByUserID(ctx context.Context, userID int64) error
}
