package model

import "time"

// SUCCESSの注文に1件だけ発行する。発行後は変更しない。
type Invoice struct {
	ID               int64           `gorm:"primaryKey;autoIncrement" json:"id"`
	OrderID          int64           `gorm:"not null;uniqueIndex" json:"order_id"`
	UserID           int64           `gorm:"not null;index" json:"user_id"`
	InvoiceNumber    string          `gorm:"type:varchar(50);not null;uniqueIndex" json:"invoice_number"`
	Subtotal         int64           `gorm:"not null" json:"subtotal"`
	DeliveryCharge   int64           `gorm:"not null" json:"delivery_charge"`
	Discount         int64           `gorm:"not null" json:"discount"`
	Amount           int64           `gorm:"not null" json:"amount"`
	Currency         string          `gorm:"type:varchar(3);not null" json:"currency"`
	PaymentMethod    PaymentMethod   `gorm:"type:varchar(20);not null" json:"payment_method"`
	GatewayPaymentID string          `gorm:"type:varchar(100)" json:"gateway_payment_id"`
	BillingAddress   ShippingAddress `gorm:"embedded;embeddedPrefix:bill_" json:"billing_address"`
	IssuedAt         time.Time       `gorm:"not null" json:"issued_at"`
	CreatedAt        time.Time       `gorm:"not null;autoCreateTime" json:"created_at"`
}

// 注文履歴用の user <-> order <-> invoice
type UserOrder struct {
	ID        int64     `gorm:"primaryKey;autoIncrement" json:"id"`
	UserID    int64     `gorm:"not null;index" json:"user_id"`
	OrderID   int64     `gorm:"not null;uniqueIndex" json:"order_id"`
	InvoiceID int64     `gorm:"not null" json:"invoice_id"`
	CreatedAt time.Time `gorm:"not null;autoCreateTime" json:"created_at"`
}
