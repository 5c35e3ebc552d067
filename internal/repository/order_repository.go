package repository

import (
	"context"
	"time"

	"badgeshop/internal/domain/model"
)

type AdminOrderListFilter struct {
	Page           int
	Limit          int
	Status         string
	UserID         *int64
	GatewayOrderID string
	From           *time.Time
	To             *time.Time
}

// 決済確定時の更新内容
type OrderPaidUpdate struct {
	GatewayPaymentID string
	PaymentMethod    model.PaymentMethod
	InvoiceID        int64
	PaidAt           time.Time
}

type OrderRepository interface {
	FindByID(ctx context.Context, orderID int64) (model.Order, error)
	FindByGatewayOrderID(ctx context.Context, gatewayOrderID string) (model.Order, error)
	// 決済反映はこの行ロックで直列化する
	FindByGatewayOrderIDForUpdate(ctx context.Context, gatewayOrderID string) (model.Order, error)
	FindByProviderOrderID(ctx context.Context, gateway string, providerOrderID string) (model.Order, error)
	ListByUserID(ctx context.Context, userID int64, page int, limit int) ([]model.Order, int64, error)
	Create(ctx context.Context, order model.Order) (int64, error)

	// ゲートウェイ側の注文ID/セッションIDを保存
	SetProviderSession(ctx context.Context, orderID int64, providerOrderID string, sessionID string) error
	// PENDINGのときだけSUCCESSにする
	MarkPaid(ctx context.Context, orderID int64, u OrderPaidUpdate) error
	// PENDINGのときだけFAILEDにする
	MarkFailed(ctx context.Context, orderID int64, gatewayPaymentID string) error

	//検索（同じキーなら同じ結果を返す）
	FindByIdempotencyKey(ctx context.Context, userID int64, key string) (model.Order, bool, error)
	//管理者用の注文一覧
	ListAdmin(ctx context.Context, f AdminOrderListFilter) ([]model.Order, int64, error)
}

type OrderItemRepository interface {
	CreateBulk(ctx context.Context, orderID int64, items []model.OrderItem) error
	ListByOrderID(ctx context.Context, orderID int64) ([]model.OrderItem, error)
	// 一覧用。注文IDごとにまとめて返す
	ListByOrderIDs(ctx context.Context, orderIDs []int64) (map[int64][]model.OrderItem, error)
}
