package repository

import (
	"context"
	"errors"
	"time"

	"badgeshop/internal/domain/model"
	repo "badgeshop/internal/repository"

	"gorm.io/gorm"
)

type ResetTokenGormRepository struct {
	db *gorm.DB
}

func NewPasswordResetTokenRepository(db *gorm.DB) repo.PasswordResetTokenRepository {
	return &ResetTokenGormRepository{db: db}
}

func (r *ResetTokenGormRepository) Create(ctx context.Context, t *model.PasswordResetToken) error {
	return r.db.WithContext(ctx).Create(t).Error
}

func (r *ResetTokenGormRepository) FindByTokenHash(ctx context.Context, tokenHash string) (*model.PasswordResetToken, error) {
	var t model.PasswordResetToken
	err := r.db.WithContext(ctx).Take(&t, "token_hash = ?", tokenHash).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, repo.ErrResetTokenNotFound
	}
	if err != nil {
		return nil, err
	}
	return &t, nil
}

// 未使用のときだけ立てる。同じトークンの同時使用は片方が ErrResetTokenNotFound
func (r *ResetTokenGormRepository) MarkUsed(ctx context.Context, tokenID string, usedAt time.Time) error {
	err := affected(r.db.WithContext(ctx).
		Model(&model.PasswordResetToken{}).
		Where("id = ? AND used_at IS NULL", tokenID).
		Update("used_at", usedAt))
	if errors.Is(err, repo.ErrNotFound) {
		return repo.ErrResetTokenNotFound
	}
	return err
}

func (r *ResetTokenGormRepository) DeleteAllByUserID(ctx context.Context, userID int64) error {
	return r.db.WithContext(ctx).Where("user_id = ?", userID).Delete(&model.PasswordResetToken{}).Error
}
