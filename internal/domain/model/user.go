package model

import "time"

type Role string

const (
	RoleUser       Role = "USER"
	RoleAdmin      Role = "ADMIN"
	RoleInfluencer Role = "INFLUENCER"
)

// インフルエンサー用の集計値（台帳から再計算できるキャッシュ）
type InfluencerProfile struct {
	Handle string `gorm:"type:varchar(100)"`
	// 支払確定済みの報酬累計
	TotalEarnings int64 `gorm:"not null;default:0"`
	// 注文確定待ちの報酬
	PendingEarnings int64 `gorm:"not null;default:0"`
	// 出金済み累計
	WithdrawnAmount int64 `gorm:"not null;default:0"`
	// 最低出金額（0ならshop設定）
	MinWithdrawal int64 `gorm:"not null;default:0"`
}

type User struct {
	ID           int64  `gorm:"primaryKey;autoIncrement"`
	Email        string `gorm:"uniqueIndex;not null"`
	Name         string `gorm:"type:varchar(255)"`
	Phone        string `gorm:"type:varchar(30)"`
	PasswordHash string `gorm:"column:password_hash;not null"`
	Role         Role   `gorm:"type:varchar(20);not null;default:'USER';index"`
	TokenVersion int    `gorm:"not null;default:0"`
	IsActive     bool   `gorm:"not null;default:true"`

	Influencer InfluencerProfile `gorm:"embedded;embeddedPrefix:inf_"`

	LastLoginAt *time.Time
	CreatedAt   time.Time
	UpdatedAt   time.Time
}
