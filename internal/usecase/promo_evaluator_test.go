package usecase

import (
	"testing"
	"time"

	"badgeshop/internal/domain/model"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func i64(v int64) *int64 { return &v }

var evalNow = time.Date(2026, 10, 1, 12, 0, 0, 0, time.UTC)

func activePromo() model.PromoCode {
	return model.PromoCode{
		Code:          "ST20",
		PromoType:     model.PromoTypeCompany,
		DiscountType:  model.DiscountTypePercentage,
		DiscountValue: decimal.NewFromInt(20),
		MaxDiscount:   i64(100),
		ValidFrom:     evalNow.Add(-24 * time.Hour),
		ValidUntil:    evalNow.Add(24 * time.Hour),
		IsActive:      true,
	}
}

func TestEvaluatePromo_PercentageCappedOnSubtotalPlusDelivery(t *testing.T) {
	// 10 x 49 = 490, 送料99 → 基準589, 20% = 118 → 上限100
	d, err := EvaluatePromo(activePromo(), 490, 99, evalNow)
	require.NoError(t, err)
	assert.Equal(t, int64(100), d)
	assert.Equal(t, int64(489), 490+99-d)
}

func TestEvaluatePromo_PercentageRoundsHalfAwayFromZero(t *testing.T) {
	p := activePromo()
	p.MaxDiscount = nil
	p.DiscountValue = decimal.NewFromInt(10)

	// 基準 105 → 10.5 → 11
	d, err := EvaluatePromo(p, 100, 5, evalNow)
	require.NoError(t, err)
	assert.Equal(t, int64(11), d)
}

func TestEvaluatePromo_FixedClampedToBasis(t *testing.T) {
	p := activePromo()
	p.DiscountType = model.DiscountTypeFixed
	p.DiscountValue = decimal.NewFromInt(1000)
	p.MaxDiscount = nil

	d, err := EvaluatePromo(p, 200, 99, evalNow)
	require.NoError(t, err)
	assert.Equal(t, int64(299), d)
}

func TestEvaluatePromo_Rejections(t *testing.T) {
	tests := []struct {
		name   string
		mutate func(p *model.PromoCode)
		sub    int64
		want   error
		reason string
	}{
		{"inactive", func(p *model.PromoCode) { p.IsActive = false }, 490, ErrPromoNotFound, "not_found"},
		{"not yet active", func(p *model.PromoCode) { p.ValidFrom = evalNow.Add(time.Hour) }, 490, ErrPromoNotYetActive, "not_yet_active"},
		{"expired", func(p *model.PromoCode) { p.ValidUntil = evalNow.Add(-time.Hour) }, 490, ErrPromoExpired, "expired"},
		{"limit reached", func(p *model.PromoCode) { p.UsageLimit = i64(5); p.UsedCount = 5 }, 490, ErrPromoLimitReached, "limit_reached"},
		{"below minimum", func(p *model.PromoCode) { p.MinOrderAmount = 500 }, 490, ErrPromoBelowMinimum, "below_minimum"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			p := activePromo()
			tt.mutate(&p)
			_, err := EvaluatePromo(p, tt.sub, 99, evalNow)
			assert.ErrorIs(t, err, tt.want)
			assert.Equal(t, tt.reason, PromoReason(err))
		})
	}
}

func TestEvaluatePromo_BoundariesAreInclusive(t *testing.T) {
	p := activePromo()
	p.ValidFrom = evalNow
	p.ValidUntil = evalNow
	p.MinOrderAmount = 490

	_, err := EvaluatePromo(p, 490, 99, evalNow)
	assert.NoError(t, err)
}

func TestNormalizePromoCode(t *testing.T) {
	assert.Equal(t, "ST20", NormalizePromoCode("  st20 "))
}
