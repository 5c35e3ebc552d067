package model

import "time"

type CartStatus string

const (
	CartStatusActive     CartStatus = "ACTIVE"
	CartStatusCheckedOut CartStatus = "CHECKED_OUT"
)

// ユーザーごとにACTIVEは1つ。決済確定でCHECKED_OUTになり、次の追加で新しいカートを作る
type Cart struct {
	ID        int64      `gorm:"primaryKey;autoIncrement" json:"id"`
	UserID    int64      `gorm:"not null;index:idx_cart_user_status" json:"user_id"`
	Status    CartStatus `gorm:"type:varchar(20);not null;index:idx_cart_user_status" json:"status"`
	CreatedAt time.Time  `json:"created_at"`
	UpdatedAt time.Time  `json:"updated_at"`
}

// 1カート1商品1行。価格は追加時点の値
type CartItem struct {
	ID                int64     `gorm:"primaryKey;autoIncrement" json:"id"`
	CartID            int64     `gorm:"not null;uniqueIndex:uq_cart_item_product" json:"cart_id"`
	ProductID         int64     `gorm:"not null;uniqueIndex:uq_cart_item_product" json:"product_id"`
	Quantity          int64     `gorm:"not null" json:"quantity"`
	UnitPriceSnapshot int64     `gorm:"not null" json:"unit_price_snapshot"`
	CreatedAt         time.Time `json:"created_at"`
	UpdatedAt         time.Time `json:"updated_at"`
}

// 行小計
func (i CartItem) LineTotal() int64 {
	return i.UnitPriceSnapshot * i.Quantity
}
