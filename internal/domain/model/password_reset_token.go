package model

import "time"

// パスワード再設定用のワンタイムトークン（DBにはhashだけ保存）
type PasswordResetToken struct {
	ID        string     `json:"id" gorm:"type:varchar(36);primaryKey"`
	UserID    int64      `json:"user_id" gorm:"not null;index"`
	TokenHash string     `json:"-" gorm:"not null;uniqueIndex"`
	ExpiresAt time.Time  `json:"expires_at" gorm:"not null;index"`
	UsedAt    *time.Time `json:"used_at" gorm:"index"`
	CreatedAt time.Time  `json:"created_at" gorm:"not null;autoCreateTime"`
}
