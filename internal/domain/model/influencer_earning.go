package model

import "time"

type EarningStatus string

const (
	EarningStatusPending   EarningStatus = "pending"
	EarningStatusPaid      EarningStatus = "paid"
	EarningStatusCancelled EarningStatus = "cancelled"
)

// promo適用1件（promo, order）につき1行
type InfluencerEarning struct {
	ID               int64         `gorm:"primaryKey;autoIncrement" json:"id"`
	InfluencerID     int64         `gorm:"not null;index" json:"influencer_id"`
	PromoCodeID      int64         `gorm:"not null;uniqueIndex:idx_earning_promo_order" json:"promo_code_id"`
	OrderID          int64         `gorm:"not null;uniqueIndex:idx_earning_promo_order" json:"order_id"`
	CustomerID       int64         `gorm:"not null;index" json:"customer_id"`
	Units            int64         `gorm:"not null" json:"units"`
	RatePerUnit      int64         `gorm:"not null" json:"rate_per_unit"`
	TotalEarning     int64         `gorm:"not null" json:"total_earning"`
	OrderAmount      int64         `gorm:"not null" json:"order_amount"`
	Status           EarningStatus `gorm:"type:varchar(20);not null;index" json:"status"`
	PaidAt           *time.Time    `json:"paid_at,omitempty"`
	PaymentReference string        `gorm:"type:varchar(100)" json:"payment_reference,omitempty"`
	CreatedAt        time.Time     `gorm:"not null;autoCreateTime" json:"created_at"`
	UpdatedAt        time.Time     `gorm:"not null;autoUpdateTime" json:"updated_at"`
}
