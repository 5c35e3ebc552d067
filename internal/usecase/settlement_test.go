package usecase

import (
	"testing"

	"badgeshop/internal/domain/model"

	"github.com/stretchr/testify/assert"
)

func TestCanonicalPaymentStatus(t *testing.T) {
	assert.Equal(t, model.OrderStatusSuccess, CanonicalPaymentStatus("captured"))
	assert.Equal(t, model.OrderStatusSuccess, CanonicalPaymentStatus("PAID"))
	assert.Equal(t, model.OrderStatusFailed, CanonicalPaymentStatus("USER_DROPPED"))
	assert.Equal(t, model.OrderStatus(""), CanonicalPaymentStatus("PENDING"))
}

func TestResolvePaymentMethod(t *testing.T) {
	assert.Equal(t, model.PaymentMethodUPI, ResolvePaymentMethod(map[string]any{"upi": map[string]any{"upi_id": "a@ok"}}))
	assert.Equal(t, model.PaymentMethodCard, ResolvePaymentMethod(map[string]any{"card": map[string]any{}}))
	assert.Equal(t, model.PaymentMethodUnknown, ResolvePaymentMethod(nil))
}

func TestInvoiceNumber(t *testing.T) {
	assert.Equal(t, "INV-20261001-000042", invoiceNumber(42, evalNow))
}

func TestCommissionUnitsAndRate(t *testing.T) {
	items := []model.OrderItem{{Quantity: 4}, {Quantity: 6}}
	assert.Equal(t, int64(10), CommissionUnits(items))

	p := model.PromoCode{}
	assert.Equal(t, int64(5), CommissionRate(p, 5))
	p.EarningPerUnit = i64(8)
	assert.Equal(t, int64(8), CommissionRate(p, 5))
}
