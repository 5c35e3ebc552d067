package usecase_test

import (
	"context"
	"fmt"
	"testing"

	"badgeshop/internal/domain/model"
	"badgeshop/internal/usecase"

	"github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func cashfreeBody(gatewayOrderID, status string) []byte {
	return []byte(fmt.Sprintf(`{
		"type": "PAYMENT_SUCCESS_WEBHOOK",
		"data": {
			"order": {"order_id": %q, "order_amount": 299},
			"payment": {"cf_payment_id": 5114910581, "payment_status": %q, "payment_method": {"upi": {"upi_id": "asha@okaxis"}}}
		}
	}`, gatewayOrderID, status))
}

func TestHandleCashfreeWebhook_SettlesOnceAcrossRedeliveries(t *testing.T) {
	env := newTestEnv(t)
	ctx := context.Background()

	customer := env.createUser(t, "asha@example.com", model.RoleUser)
	env.fillCart(t, customer.ID, env.createProduct(t, "Sticker", 100), 2)
	env.expectSession("cf_5001")
	out, err := env.orders.CreateOrder(ctx, customer.ID, usecase.CreateOrderInput{Address: validAddress()})
	require.NoError(t, err)

	req := usecase.WebhookRequest{Signature: "sig", Timestamp: "1759312800", EventID: "evt_1", Body: cashfreeBody(out.Order.GatewayOrderID, "SUCCESS")}
	require.NoError(t, env.settlement.HandleCashfreeWebhook(ctx, req))

	var o model.Order
	require.NoError(t, env.db.First(&o, out.Order.ID).Error)
	assert.Equal(t, model.OrderStatusSuccess, o.Status)
	assert.Equal(t, "5114910581", o.GatewayPaymentID)
	assert.Equal(t, model.PaymentMethodUPI, o.PaymentMethod)

	// 同じevent idは重複排除
	require.NoError(t, env.settlement.HandleCashfreeWebhook(ctx, req))
	// event idが違っても注文は確定済み
	req.EventID = "evt_2"
	require.NoError(t, env.settlement.HandleCashfreeWebhook(ctx, req))

	var invoices int64
	require.NoError(t, env.db.Model(&model.Invoice{}).Count(&invoices).Error)
	assert.Equal(t, int64(1), invoices)
	assert.Len(t, env.notifier.confirmations, 1)
}

func TestHandleCashfreeWebhook_Rejections(t *testing.T) {
	env := newTestEnv(t)
	ctx := context.Background()

	err := env.settlement.HandleCashfreeWebhook(ctx, usecase.WebhookRequest{Body: []byte(`{not json`), Timestamp: "1"})
	assert.ErrorIs(t, err, usecase.ErrMalformedPayload)

	err = env.settlement.HandleCashfreeWebhook(ctx, usecase.WebhookRequest{Body: cashfreeBody("BS_missing", "SUCCESS"), Timestamp: "1"})
	require.Error(t, err)
	assert.Equal(t, float64(1), testutil.ToFloat64(env.metrics.WebhookErrors.WithLabelValues("cashfree", "unknown_order")))

	env.settlement.Cashfree = stubVerifier{ok: false}
	err = env.settlement.HandleCashfreeWebhook(ctx, usecase.WebhookRequest{Body: cashfreeBody("BS_x", "SUCCESS")})
	assert.ErrorIs(t, err, usecase.ErrInvalidSignature)
	assert.Equal(t, float64(1), testutil.ToFloat64(env.metrics.WebhookErrors.WithLabelValues("cashfree", "invalid_signature")))
}

type razorpayStub struct{ ok bool }

func (r razorpayStub) VerifyWebhookSignature(body []byte, signature string) bool { return r.ok }

func (r razorpayStub) VerifyPaymentSignature(providerOrderID, paymentID, signature string) bool {
	return r.ok
}

func TestHandleRazorpayWebhook_ResolvesByProviderOrderID(t *testing.T) {
	env := newTestEnv(t)
	ctx := context.Background()
	env.settlement.Razorpay = razorpayStub{ok: true}

	customer := env.createUser(t, "asha@example.com", model.RoleUser)
	env.fillCart(t, customer.ID, env.createProduct(t, "Sticker", 100), 1)
	env.expectRazorpayOrder("order_Rz1")
	out, err := env.orders.CreateOrder(ctx, customer.ID, usecase.CreateOrderInput{Address: validAddress(), Gateway: "razorpay"})
	require.NoError(t, err)

	body := []byte(`{"event":"payment.captured","payload":{"payment":{"entity":{"id":"pay_Rz1","order_id":"order_Rz1","status":"captured","method":"card","notes":[]}}}}`)
	require.NoError(t, env.settlement.HandleRazorpayWebhook(ctx, usecase.WebhookRequest{Signature: "sig", EventID: "evt_rz_1", Body: body}))

	var o model.Order
	require.NoError(t, env.db.First(&o, out.Order.ID).Error)
	assert.Equal(t, model.OrderStatusSuccess, o.Status)
	assert.Equal(t, model.PaymentMethodCard, o.PaymentMethod)
}

func TestVerifyRazorpayPayment_OtherUsersOrderIsNotFound(t *testing.T) {
	env := newTestEnv(t)
	ctx := context.Background()
	env.settlement.Razorpay = razorpayStub{ok: true}

	owner := env.createUser(t, "asha@example.com", model.RoleUser)
	other := env.createUser(t, "ravi@example.com", model.RoleUser)
	env.fillCart(t, owner.ID, env.createProduct(t, "Sticker", 100), 1)
	env.expectRazorpayOrder("order_Rz2")
	out, err := env.orders.CreateOrder(ctx, owner.ID, usecase.CreateOrderInput{Address: validAddress(), Gateway: "razorpay"})
	require.NoError(t, err)
	assert.Equal(t, "razorpay", out.Order.Gateway)

	in := usecase.RazorpayVerifyInput{RazorpayOrderID: "order_Rz2", RazorpayPaymentID: "pay_2", RazorpaySignature: "sig"}
	_, err = env.settlement.VerifyRazorpayPayment(ctx, other.ID, in)
	assert.Equal(t, 404, httpStatus(t, err))

	res, err := env.settlement.VerifyRazorpayPayment(ctx, owner.ID, in)
	require.NoError(t, err)
	assert.True(t, res.Applied)
	assert.Equal(t, model.OrderStatusSuccess, res.Order.Status)
}
