package model

import "time"

type OrderStatus string

const (
	OrderStatusPending OrderStatus = "PENDING"
	OrderStatusSuccess OrderStatus = "SUCCESS"
	OrderStatusFailed  OrderStatus = "FAILED"
)

// SUCCESS/FAILEDからは遷移しない
func (s OrderStatus) IsTerminal() bool {
	return s == OrderStatusSuccess || s == OrderStatusFailed
}

type PaymentMethod string

const (
	PaymentMethodUPI        PaymentMethod = "UPI"
	PaymentMethodCard       PaymentMethod = "CARD"
	PaymentMethodNetbanking PaymentMethod = "NETBANKING"
	PaymentMethodWallet     PaymentMethod = "WALLET"
	PaymentMethodUnknown    PaymentMethod = "UNKNOWN"
)

// 注文時点の配送先スナップショット
type ShippingAddress struct {
	Name       string `gorm:"type:varchar(255);not null" json:"name"`
	Email      string `gorm:"type:varchar(255);not null" json:"email"`
	Phone      string `gorm:"type:varchar(30);not null" json:"phone"`
	Line1      string `gorm:"type:varchar(255);not null" json:"line1"`
	Line2      string `gorm:"type:varchar(255)" json:"line2"`
	City       string `gorm:"type:varchar(100);not null" json:"city"`
	State      string `gorm:"type:varchar(100);not null" json:"state"`
	PostalCode string `gorm:"type:varchar(20);not null" json:"postal_code"`
	Country    string `gorm:"type:varchar(50);not null" json:"country"`
}

// amount = subtotal + delivery_charge - discount
type Order struct {
	ID             int64       `gorm:"primaryKey;autoIncrement" json:"id"`
	UserID         int64       `gorm:"not null;index" json:"user_id"`
	Status         OrderStatus `gorm:"type:varchar(20);not null;index" json:"status"`
	Subtotal       int64       `gorm:"not null" json:"subtotal"`
	DeliveryCharge int64       `gorm:"not null" json:"delivery_charge"`
	Discount       int64       `gorm:"not null;default:0" json:"discount"`
	Amount         int64       `gorm:"not null" json:"amount"`
	Currency       string      `gorm:"type:varchar(3);not null" json:"currency"`

	PromoCode   string `gorm:"type:varchar(64)" json:"promo_code,omitempty"`
	PromoCodeID *int64 `gorm:"index" json:"promo_code_id,omitempty"`

	Gateway          string        `gorm:"type:varchar(20);not null" json:"gateway"`
	GatewayOrderID   string        `gorm:"type:varchar(100);not null;uniqueIndex" json:"gateway_order_id"`
	ProviderOrderID  string        `gorm:"type:varchar(100);index" json:"provider_order_id,omitempty"`
	PaymentSessionID string        `gorm:"type:varchar(255)" json:"payment_session_id,omitempty"`
	GatewayPaymentID string        `gorm:"type:varchar(100)" json:"gateway_payment_id,omitempty"`
	PaymentMethod    PaymentMethod `gorm:"type:varchar(20)" json:"payment_method,omitempty"`
	InvoiceID        *int64        `gorm:"index" json:"invoice_id,omitempty"`

	// 二重送信防止キー（任意）
	IdempotencyKey *string `gorm:"type:varchar(255);uniqueIndex" json:"-"`

	ShippingAddress ShippingAddress `gorm:"embedded;embeddedPrefix:ship_" json:"shipping_address"`

	PaidAt    *time.Time `json:"paid_at,omitempty"`
	CreatedAt time.Time  `gorm:"not null;autoCreateTime" json:"created_at"`
	UpdatedAt time.Time  `gorm:"not null;autoUpdateTime" json:"updated_at"`
}

// 注文時点の商品名・画像・単価を持つ。カタログを変えても請求書は変わらない
type OrderItem struct {
	ID                  int64     `gorm:"primaryKey;autoIncrement" json:"id"`
	OrderID             int64     `gorm:"not null;index" json:"order_id"`
	ProductID           int64     `gorm:"not null;index" json:"product_id"`
	ProductNameSnapshot string    `gorm:"type:varchar(255);not null" json:"product_name"`
	ImageSnapshot       string    `gorm:"type:varchar(500)" json:"image_url"`
	UnitPriceSnapshot   int64     `gorm:"not null" json:"unit_price"`
	Quantity            int64     `gorm:"not null" json:"quantity"`
	CreatedAt           time.Time `json:"created_at"`
}

func (i OrderItem) LineTotal() int64 {
	return i.UnitPriceSnapshot * i.Quantity
}
