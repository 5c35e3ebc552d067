package usecase_test

import (
	"context"
	"path/filepath"
	"sync"
	"testing"
	"time"

	"badgeshop/internal/config"
	"badgeshop/internal/domain/model"
	"badgeshop/internal/infra/db"
	gormrepo "badgeshop/internal/infra/repository"
	"badgeshop/internal/metrics"
	repo "badgeshop/internal/repository"
	"badgeshop/internal/usecase"
	"badgeshop/internal/validator"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"
	"gorm.io/gorm"
	"gorm.io/gorm/logger"
)

var testShop = config.Shop{
	DeliveryCharge:        99,
	Currency:              "INR",
	DefaultEarningPerUnit: 5,
	MinWithdrawal:         100,
	AdminEmail:            "admin@badgeshop.in",
	DefaultGateway:        "cashfree",
}

type fixedClock struct{ t time.Time }

func (c fixedClock) Now() time.Time { return c.t }

// 決済ゲートウェイのモック
type gatewayMock struct {
	mock.Mock
	name string
}

func (m *gatewayMock) Name() string { return m.name }

func (m *gatewayMock) CreateSession(ctx context.Context, in usecase.PaymentSessionInput) (usecase.PaymentSession, error) {
	args := m.Called(ctx, in)
	s, _ := args.Get(0).(usecase.PaymentSession)
	return s, args.Error(1)
}

// 送信内容を記録するだけ
type recordingNotifier struct {
	mu                 sync.Mutex
	confirmations      []int64
	adminNotifications []int64
	promoUsages        []int64
	resetURLs          []string
	withdrawalsPaid    []int64
}

func (n *recordingNotifier) SendOrderConfirmation(ctx context.Context, order model.Order, inv model.Invoice, items []model.OrderItem, pdf []byte) error {
	n.mu.Lock()
	defer n.mu.Unlock()
	n.confirmations = append(n.confirmations, order.ID)
	return nil
}

func (n *recordingNotifier) SendAdminOrderNotification(ctx context.Context, order model.Order, inv model.Invoice, items []model.OrderItem) error {
	n.mu.Lock()
	defer n.mu.Unlock()
	n.adminNotifications = append(n.adminNotifications, order.ID)
	return nil
}

func (n *recordingNotifier) SendPromoUsage(ctx context.Context, influencer model.User, promo model.PromoCode, order model.Order, units int64, earning int64) error {
	n.mu.Lock()
	defer n.mu.Unlock()
	n.promoUsages = append(n.promoUsages, earning)
	return nil
}

func (n *recordingNotifier) SendPasswordReset(ctx context.Context, user model.User, resetURL string) error {
	n.mu.Lock()
	defer n.mu.Unlock()
	n.resetURLs = append(n.resetURLs, resetURL)
	return nil
}

func (n *recordingNotifier) SendWithdrawalPaid(ctx context.Context, influencer model.User, w model.WithdrawalRequest) error {
	n.mu.Lock()
	defer n.mu.Unlock()
	n.withdrawalsPaid = append(n.withdrawalsPaid, w.ID)
	return nil
}

type stubVerifier struct{ ok bool }

func (v stubVerifier) VerifyWebhookSignature(timestamp string, body []byte, signature string) bool {
	return v.ok
}

type testEnv struct {
	db          *gorm.DB
	tx          repo.TransactionManager
	users       repo.UserRepository
	clock       fixedClock
	metrics     *metrics.Metrics
	notifier    *recordingNotifier
	gateway     *gatewayMock
	razorpay    *gatewayMock
	commission  *usecase.CommissionCalculator
	orders      *usecase.OrderUsecase
	settlement  *usecase.SettlementUsecase
	withdrawals *usecase.WithdrawalUsecase
	promos      *usecase.PromoUsecase
}

func newTestEnv(t *testing.T) *testEnv {
	t.Helper()

	gdb, err := db.OpenSQLite(filepath.Join(t.TempDir(), "test.db"), logger.Silent)
	require.NoError(t, err)
	require.NoError(t, db.Migrate(gdb))

	tx := gormrepo.NewTxManagerGorm(gdb)
	clock := fixedClock{t: time.Date(2026, 10, 1, 10, 0, 0, 0, time.UTC)}
	m := metrics.New(prometheus.NewRegistry())
	notifier := &recordingNotifier{}
	gw := &gatewayMock{name: "cashfree"}
	rz := &gatewayMock{name: "razorpay"}
	commission := usecase.NewCommissionCalculator(tx, testShop, clock, nil)

	env := &testEnv{
		db:         gdb,
		tx:         tx,
		users:      gormrepo.NewUserGormRepository(gdb),
		clock:      clock,
		metrics:    m,
		notifier:   notifier,
		gateway:    gw,
		razorpay:   rz,
		commission: commission,
	}
	env.orders = usecase.NewOrderUsecase(usecase.OrderUsecaseDeps{
		Tx:         tx,
		Shop:       testShop,
		APIBaseURL: "http://api.local",
		FEURL:      "http://fe.local",
		Gateways:   map[string]usecase.PaymentGateway{"cashfree": gw, "razorpay": rz},
		Commission: commission,
		Validator:  validator.NewCheckoutValidator(),
		Metrics:    m,
		Clock:      clock,
	})
	env.settlement = usecase.NewSettlementUsecase(usecase.SettlementDeps{
		Tx:         tx,
		Webhooks:   gormrepo.NewWebhookEventGormRepository(gdb),
		Commission: commission,
		Notifier:   notifier,
		Metrics:    m,
		Cashfree:   stubVerifier{ok: true},
		Clock:      clock,
	})
	env.withdrawals = usecase.NewWithdrawalUsecase(usecase.WithdrawalDeps{
		Tx:        tx,
		Shop:      testShop,
		Validator: validator.NewWithdrawalValidator(),
		Notifier:  notifier,
		Metrics:   m,
		Clock:     clock,
	})
	env.promos = usecase.NewPromoUsecase(tx, testShop, clock)
	return env
}

func (e *testEnv) createUser(t *testing.T, email string, role model.Role) model.User {
	t.Helper()
	u := model.User{Email: email, Name: "Test " + string(role), PasswordHash: "x", Role: role, IsActive: true}
	require.NoError(t, e.db.Create(&u).Error)
	return u
}

func (e *testEnv) createProduct(t *testing.T, name string, price int64) model.Product {
	t.Helper()
	p := model.Product{Name: name, Category: "badge", Price: price, IsActive: true}
	require.NoError(t, e.db.Create(&p).Error)
	return p
}

// カートに商品を入れる（価格は追加時点）
func (e *testEnv) fillCart(t *testing.T, userID int64, p model.Product, qty int64) {
	t.Helper()
	carts := gormrepo.NewCartGormRepository(e.db)
	ctx := context.Background()
	cart, err := carts.GetOrCreateActiveByUserID(ctx, userID)
	require.NoError(t, err)
	require.NoError(t, carts.AddQuantity(ctx, cart.ID, p.ID, qty, p.Price))
}

// ST20: 20%（上限100）
func (e *testEnv) createPromo(t *testing.T, code string, influencerID *int64) model.PromoCode {
	t.Helper()
	maxDiscount := int64(100)
	p := model.PromoCode{
		Code:            code,
		PromoType:       model.PromoTypeCompany,
		DiscountType:    model.DiscountTypePercentage,
		DiscountValue:   decimal.NewFromInt(20),
		MaxDiscount:     &maxDiscount,
		ValidFrom:       e.clock.t.Add(-24 * time.Hour),
		ValidUntil:      e.clock.t.Add(24 * time.Hour),
		IsActive:        true,
		CreatedByUserID: 1,
	}
	if influencerID != nil {
		p.PromoType = model.PromoTypeInfluencer
		p.InfluencerID = influencerID
	}
	require.NoError(t, e.db.Create(&p).Error)
	return p
}

func (e *testEnv) expectSession(providerOrderID string) {
	e.gateway.On("CreateSession", mock.Anything, mock.Anything).Return(usecase.PaymentSession{
		Gateway:         "cashfree",
		ProviderOrderID: providerOrderID,
		SessionID:       "session_" + providerOrderID,
	}, nil)
}

func (e *testEnv) expectRazorpayOrder(providerOrderID string) {
	e.razorpay.On("CreateSession", mock.Anything, mock.Anything).Return(usecase.PaymentSession{
		Gateway:         "razorpay",
		ProviderOrderID: providerOrderID,
		KeyID:           "rzp_test",
	}, nil)
}

func (e *testEnv) reloadUser(t *testing.T, id int64) model.User {
	t.Helper()
	var u model.User
	require.NoError(t, e.db.First(&u, id).Error)
	return u
}

func validAddress() model.ShippingAddress {
	return model.ShippingAddress{
		Name:       "Asha Rao",
		Email:      "asha@example.com",
		Phone:      "9876543210",
		Line1:      "12 MG Road",
		City:       "Pune",
		State:      "MH",
		PostalCode: "411001",
	}
}

func httpStatus(t *testing.T, err error) int {
	t.Helper()
	he, ok := usecase.AsHTTPError(err)
	require.True(t, ok, "expected HTTPError, got %v", err)
	return he.Status
}
