package usecase_test

import (
	"context"
	"fmt"
	"strings"
	"testing"

	"badgeshop/internal/domain/model"
	"badgeshop/internal/usecase"

	"github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"
)

func TestCheckoutAndSettle_InfluencerPromo(t *testing.T) {
	env := newTestEnv(t)
	ctx := context.Background()

	customer := env.createUser(t, "asha@example.com", model.RoleUser)
	influencer := env.createUser(t, "inf@example.com", model.RoleInfluencer)
	badge := env.createProduct(t, "Enamel Pin", 49)
	promo := env.createPromo(t, "ST20", &influencer.ID)
	env.fillCart(t, customer.ID, badge, 10)
	env.expectSession("cf_1001")

	out, err := env.orders.CreateOrder(ctx, customer.ID, usecase.CreateOrderInput{
		Address:   validAddress(),
		PromoCode: " st20 ",
	})
	require.NoError(t, err)

	// 490 + 99 - min(118, 100)
	assert.Equal(t, int64(490), out.Order.Subtotal)
	assert.Equal(t, int64(99), out.Order.DeliveryCharge)
	assert.Equal(t, int64(100), out.Order.Discount)
	assert.Equal(t, int64(489), out.Order.Amount)
	assert.Equal(t, "PENDING", out.Order.Status)
	assert.Equal(t, "ST20", out.Order.PromoCode)
	assert.True(t, strings.HasPrefix(out.Order.GatewayOrderID, fmt.Sprintf("BS_%d_", customer.ID)))
	require.NotNil(t, out.Payment)
	assert.Equal(t, "session_cf_1001", out.Payment.SessionID)

	var p model.PromoCode
	require.NoError(t, env.db.First(&p, promo.ID).Error)
	assert.Equal(t, int64(1), p.UsedCount)

	// 注文時点で報酬はpending
	var earning model.InfluencerEarning
	require.NoError(t, env.db.Where("order_id = ?", out.Order.ID).First(&earning).Error)
	assert.Equal(t, int64(10), earning.Units)
	assert.Equal(t, int64(5), earning.RatePerUnit)
	assert.Equal(t, int64(50), earning.TotalEarning)
	assert.Equal(t, model.EarningStatusPending, earning.Status)
	assert.Equal(t, int64(50), env.reloadUser(t, influencer.ID).Influencer.PendingEarnings)

	res, err := env.settlement.Settle(ctx, usecase.SettleInput{
		Gateway:        "cashfree",
		GatewayOrderID: out.Order.GatewayOrderID,
		Status:         "SUCCESS",
		PaymentID:      "pay_1",
		PaymentMethod:  model.PaymentMethodUPI,
	})
	require.NoError(t, err)
	assert.True(t, res.Applied)
	require.NotNil(t, res.Invoice)
	assert.Equal(t, fmt.Sprintf("INV-20261001-%06d", out.Order.ID), res.Invoice.InvoiceNumber)
	assert.Equal(t, int64(489), res.Invoice.Amount)
	assert.Equal(t, model.OrderStatusSuccess, res.Order.Status)

	require.NoError(t, env.db.First(&earning, earning.ID).Error)
	assert.Equal(t, model.EarningStatusPaid, earning.Status)
	assert.Equal(t, "pay_1", earning.PaymentReference)

	inf := env.reloadUser(t, influencer.ID)
	assert.Equal(t, int64(50), inf.Influencer.TotalEarnings)
	assert.Equal(t, int64(0), inf.Influencer.PendingEarnings)

	var cart model.Cart
	require.NoError(t, env.db.Where("user_id = ?", customer.ID).First(&cart).Error)
	assert.Equal(t, model.CartStatusCheckedOut, cart.Status)

	assert.Equal(t, []int64{out.Order.ID}, env.notifier.confirmations)
	assert.Equal(t, []int64{out.Order.ID}, env.notifier.adminNotifications)
	assert.Equal(t, []int64{50}, env.notifier.promoUsages)
	assert.Equal(t, float64(1), testutil.ToFloat64(env.metrics.Settlements.WithLabelValues("cashfree", "SUCCESS")))
	env.gateway.AssertNumberOfCalls(t, "CreateSession", 1)
}

func TestSettle_DuplicateDeliveryIsNoop(t *testing.T) {
	env := newTestEnv(t)
	ctx := context.Background()

	customer := env.createUser(t, "asha@example.com", model.RoleUser)
	env.fillCart(t, customer.ID, env.createProduct(t, "Sticker", 100), 2)
	env.expectSession("cf_2001")

	out, err := env.orders.CreateOrder(ctx, customer.ID, usecase.CreateOrderInput{Address: validAddress()})
	require.NoError(t, err)

	in := usecase.SettleInput{Gateway: "cashfree", GatewayOrderID: out.Order.GatewayOrderID, Status: "SUCCESS", PaymentID: "pay_9"}
	first, err := env.settlement.Settle(ctx, in)
	require.NoError(t, err)
	require.True(t, first.Applied)

	second, err := env.settlement.Settle(ctx, in)
	require.NoError(t, err)
	assert.False(t, second.Applied)
	assert.Equal(t, "already_settled", second.Reason)

	// 後からFAILEDが来ても変わらない
	third, err := env.settlement.Settle(ctx, usecase.SettleInput{Gateway: "cashfree", GatewayOrderID: out.Order.GatewayOrderID, Status: "FAILED"})
	require.NoError(t, err)
	assert.False(t, third.Applied)

	var invoices int64
	require.NoError(t, env.db.Model(&model.Invoice{}).Where("order_id = ?", out.Order.ID).Count(&invoices).Error)
	assert.Equal(t, int64(1), invoices)
	assert.Len(t, env.notifier.confirmations, 1)

	var o model.Order
	require.NoError(t, env.db.First(&o, out.Order.ID).Error)
	assert.Equal(t, model.OrderStatusSuccess, o.Status)
	assert.Equal(t, model.PaymentMethodUnknown, o.PaymentMethod)
}

func TestSettle_FailedCancelsPendingEarning(t *testing.T) {
	env := newTestEnv(t)
	ctx := context.Background()

	customer := env.createUser(t, "asha@example.com", model.RoleUser)
	influencer := env.createUser(t, "inf@example.com", model.RoleInfluencer)
	promo := env.createPromo(t, "ST20", &influencer.ID)
	env.fillCart(t, customer.ID, env.createProduct(t, "Pin", 49), 10)
	env.expectSession("cf_3001")

	out, err := env.orders.CreateOrder(ctx, customer.ID, usecase.CreateOrderInput{Address: validAddress(), PromoCode: "ST20"})
	require.NoError(t, err)

	res, err := env.settlement.Settle(ctx, usecase.SettleInput{Gateway: "cashfree", GatewayOrderID: out.Order.GatewayOrderID, Status: "USER_DROPPED"})
	require.NoError(t, err)
	assert.True(t, res.Applied)
	assert.Equal(t, model.OrderStatusFailed, res.Order.Status)
	assert.Nil(t, res.Invoice)

	var earning model.InfluencerEarning
	require.NoError(t, env.db.Where("order_id = ?", out.Order.ID).First(&earning).Error)
	assert.Equal(t, model.EarningStatusCancelled, earning.Status)

	inf := env.reloadUser(t, influencer.ID)
	assert.Equal(t, int64(0), inf.Influencer.PendingEarnings)
	assert.Equal(t, int64(0), inf.Influencer.TotalEarnings)

	var p model.PromoCode
	require.NoError(t, env.db.First(&p, promo.ID).Error)
	assert.Equal(t, int64(0), p.TotalEarnings)
	assert.Empty(t, env.notifier.confirmations)

	// FAILEDは終端
	again, err := env.settlement.Settle(ctx, usecase.SettleInput{Gateway: "cashfree", GatewayOrderID: out.Order.GatewayOrderID, Status: "SUCCESS", PaymentID: "late"})
	require.NoError(t, err)
	assert.False(t, again.Applied)
}

func TestSettle_UnknownStatusAndOrder(t *testing.T) {
	env := newTestEnv(t)
	ctx := context.Background()

	res, err := env.settlement.Settle(ctx, usecase.SettleInput{GatewayOrderID: "BS_1_1_x", Status: "PENDING"})
	require.NoError(t, err)
	assert.Equal(t, "ignored_status", res.Reason)

	_, err = env.settlement.Settle(ctx, usecase.SettleInput{GatewayOrderID: "BS_404", Status: "SUCCESS"})
	require.Error(t, err)
	assert.Equal(t, 404, httpStatus(t, err))
}

func TestCreateOrder_IdempotencyKeyReplaysSameOrder(t *testing.T) {
	env := newTestEnv(t)
	ctx := context.Background()

	customer := env.createUser(t, "asha@example.com", model.RoleUser)
	env.fillCart(t, customer.ID, env.createProduct(t, "Pin", 49), 1)
	env.expectSession("cf_4001")

	in := usecase.CreateOrderInput{Address: validAddress(), IdempotencyKey: "checkout-1"}
	first, err := env.orders.CreateOrder(ctx, customer.ID, in)
	require.NoError(t, err)
	second, err := env.orders.CreateOrder(ctx, customer.ID, in)
	require.NoError(t, err)

	assert.Equal(t, first.Order.ID, second.Order.ID)
	require.NotNil(t, second.Payment)
	assert.Equal(t, "cf_4001", second.Payment.ProviderOrderID)
	env.gateway.AssertNumberOfCalls(t, "CreateSession", 1)

	var n int64
	require.NoError(t, env.db.Model(&model.Order{}).Where("user_id = ?", customer.ID).Count(&n).Error)
	assert.Equal(t, int64(1), n)
}

func TestCreateOrder_Rejections(t *testing.T) {
	env := newTestEnv(t)
	ctx := context.Background()
	customer := env.createUser(t, "asha@example.com", model.RoleUser)

	_, err := env.orders.CreateOrder(ctx, customer.ID, usecase.CreateOrderInput{Address: validAddress()})
	assert.Equal(t, 400, httpStatus(t, err), "empty cart")

	env.fillCart(t, customer.ID, env.createProduct(t, "Pin", 49), 1)

	bad := validAddress()
	bad.Phone = "12"
	_, err = env.orders.CreateOrder(ctx, customer.ID, usecase.CreateOrderInput{Address: bad})
	assert.Equal(t, 400, httpStatus(t, err), "invalid phone")

	_, err = env.orders.CreateOrder(ctx, customer.ID, usecase.CreateOrderInput{Address: validAddress(), Gateway: "paypal"})
	assert.Equal(t, 400, httpStatus(t, err), "unknown gateway")

	_, err = env.orders.CreateOrder(ctx, customer.ID, usecase.CreateOrderInput{Address: validAddress(), PromoCode: "NOPE"})
	he, ok := usecase.AsHTTPError(err)
	require.True(t, ok)
	assert.Equal(t, "promo not_found", he.Message)
}

func TestCreateOrder_GatewayFailureLeavesPendingOrder(t *testing.T) {
	env := newTestEnv(t)
	ctx := context.Background()

	customer := env.createUser(t, "asha@example.com", model.RoleUser)
	env.fillCart(t, customer.ID, env.createProduct(t, "Pin", 49), 1)
	env.gateway.On("CreateSession", mock.Anything, mock.Anything).Return(usecase.PaymentSession{}, assert.AnError)

	_, err := env.orders.CreateOrder(ctx, customer.ID, usecase.CreateOrderInput{Address: validAddress()})
	assert.Equal(t, 502, httpStatus(t, err))

	var o model.Order
	require.NoError(t, env.db.Where("user_id = ?", customer.ID).First(&o).Error)
	assert.Equal(t, model.OrderStatusPending, o.Status)
	assert.Empty(t, o.ProviderOrderID)
}
