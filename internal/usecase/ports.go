package usecase

import (
	"context"
	"time"

	"badgeshop/internal/domain/model"

	"github.com/google/uuid"
)

// 時刻（テストで固定できるように）
type Clock interface {
	Now() time.Time
}

type IDGenerator interface {
	NewID() string
}

type realClock struct{}

func (realClock) Now() time.Time { return time.Now() }

type uuidGenerator struct{}

func (uuidGenerator) NewID() string { return uuid.NewString() }

// 決済セッション作成の入力
type PaymentCustomer struct {
	ID    int64
	Name  string
	Email string
	Phone string
}

type PaymentSessionInput struct {
	GatewayOrderID string
	Amount         int64
	Currency       string
	Customer       PaymentCustomer
	NotifyURL      string
	ReturnURL      string
}

// クライアントがチェックアウト画面を開くのに必要な値
type PaymentSession struct {
	Gateway         string `json:"gateway"`
	ProviderOrderID string `json:"provider_order_id"`
	SessionID       string `json:"payment_session_id,omitempty"`
	KeyID           string `json:"key_id,omitempty"`
}

type PaymentGateway interface {
	Name() string
	CreateSession(ctx context.Context, in PaymentSessionInput) (PaymentSession, error)
}

type CashfreeWebhookVerifier interface {
	VerifyWebhookSignature(timestamp string, body []byte, signature string) bool
}

type RazorpayVerifier interface {
	VerifyWebhookSignature(body []byte, signature string) bool
	VerifyPaymentSignature(providerOrderID string, paymentID string, signature string) bool
}

// メール送信（失敗しても呼び出し側の処理は戻さない）
type Notifier interface {
	SendOrderConfirmation(ctx context.Context, order model.Order, inv model.Invoice, items []model.OrderItem, pdf []byte) error
	SendAdminOrderNotification(ctx context.Context, order model.Order, inv model.Invoice, items []model.OrderItem) error
	SendPromoUsage(ctx context.Context, influencer model.User, promo model.PromoCode, order model.Order, units int64, earning int64) error
	SendPasswordReset(ctx context.Context, user model.User, resetURL string) error
	SendWithdrawalPaid(ctx context.Context, influencer model.User, w model.WithdrawalRequest) error
}

type InvoiceRenderer interface {
	Render(inv model.Invoice, order model.Order, items []model.OrderItem) ([]byte, error)
}

type EventPublisher interface {
	PublishOrderCreated(ctx context.Context, order model.Order) error
	PublishOrderSettled(ctx context.Context, order model.Order, previous model.OrderStatus) error
	PublishWithdrawalStatusChanged(ctx context.Context, w model.WithdrawalRequest, previous model.WithdrawalStatus) error
}

// 同じ注文の決済反映を同時に走らせないためのロック
type SettlementLock interface {
	Acquire(ctx context.Context, key string, ttl time.Duration) (release func(), acquired bool, err error)
}

// usecaseがValidatorInterfaceに依存する約束
type AuthValidator interface {
	ValidateRegister(ctx context.Context, email string, password string) error
	ValidateRegisterInfluencer(ctx context.Context, email string, password string, handle string) error
	ValidateLogin(ctx context.Context, email string, password string) error
	ValidateForceLogout(ctx context.Context, targetUserID int64) error
	ValidateForgotPassword(ctx context.Context, email string) error
	ValidateResetPassword(ctx context.Context, token string, newPassword string) error
}

type CheckoutValidator interface {
	ValidateShippingAddress(a model.ShippingAddress) error
}

type WithdrawalValidator interface {
	ValidateWithdrawal(method model.WithdrawalMethod, details map[string]any) error
}

// 商品詳細のキャッシュ。失敗してもDBから読む
type ProductCache interface {
	Get(ctx context.Context, id int64) (model.Product, bool, error)
	Set(ctx context.Context, p model.Product) error
	Invalidate(ctx context.Context, id int64) error
}
