package model

import (
	"time"

	"github.com/shopspring/decimal"
)

type PromoType string

const (
	PromoTypeCompany    PromoType = "company"
	PromoTypeInfluencer PromoType = "influencer"
)

type DiscountType string

const (
	DiscountTypePercentage DiscountType = "percentage"
	DiscountTypeFixed      DiscountType = "fixed"
)

type PromoCode struct {
	ID           int64           `gorm:"primaryKey;autoIncrement" json:"id"`
	Code         string          `gorm:"type:varchar(64);not null;uniqueIndex" json:"code"`
	Description  string          `gorm:"type:varchar(255)" json:"description"`
	PromoType    PromoType       `gorm:"type:varchar(20);not null;index" json:"promo_type"`
	DiscountType DiscountType    `gorm:"type:varchar(20);not null" json:"discount_type"`
	// percentageなら%、fixedなら金額
	DiscountValue  decimal.Decimal `gorm:"type:numeric(12,2);not null" json:"discount_value"`
	MinOrderAmount int64           `gorm:"not null;default:0" json:"min_order_amount"`
	MaxDiscount    *int64          `json:"max_discount,omitempty"`
	UsageLimit     *int64          `json:"usage_limit,omitempty"`
	// 注文確定時だけ増える
	UsedCount  int64     `gorm:"not null;default:0" json:"used_count"`
	ValidFrom  time.Time `gorm:"not null" json:"valid_from"`
	ValidUntil time.Time `gorm:"not null" json:"valid_until"`
	IsActive   bool      `gorm:"not null;default:true;index" json:"is_active"`

	// influencer用
	InfluencerID   *int64 `gorm:"index" json:"influencer_id,omitempty"`
	EarningPerUnit *int64 `json:"earning_per_unit,omitempty"`
	TotalEarnings  int64  `gorm:"not null;default:0" json:"total_earnings"`
	TotalUnits     int64  `gorm:"not null;default:0" json:"total_units"`

	CreatedByUserID int64     `gorm:"not null;index" json:"created_by_user_id"`
	CreatedAt       time.Time `gorm:"not null;autoCreateTime" json:"created_at"`
	UpdatedAt       time.Time `gorm:"not null;autoUpdateTime" json:"updated_at"`
}

// 利用履歴（追記のみ）
type PromoUsage struct {
	ID          int64     `gorm:"primaryKey;autoIncrement" json:"id"`
	PromoCodeID int64     `gorm:"not null;uniqueIndex:idx_promo_usage_order" json:"promo_code_id"`
	OrderID     int64     `gorm:"not null;uniqueIndex:idx_promo_usage_order" json:"order_id"`
	UserID      int64     `gorm:"not null;index" json:"user_id"`
	Discount    int64     `gorm:"not null" json:"discount"`
	Units       int64     `gorm:"not null;default:0" json:"units"`
	Earning     int64     `gorm:"not null;default:0" json:"earning"`
	CreatedAt   time.Time `gorm:"not null;autoCreateTime" json:"created_at"`
}
