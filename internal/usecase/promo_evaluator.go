package usecase

import (
	"errors"
	"strings"
	"time"

	"badgeshop/internal/domain/model"

	"github.com/shopspring/decimal"
)

var (
	ErrPromoNotFound     = errors.New("promo code not found")
	ErrPromoNotYetActive = errors.New("promo code not yet active")
	ErrPromoExpired      = errors.New("promo code expired")
	ErrPromoLimitReached = errors.New("promo code usage limit reached")
	ErrPromoBelowMinimum = errors.New("order below promo minimum")
)

var hundred = decimal.NewFromInt(100)

// 大文字 + 前後空白除去
func NormalizePromoCode(code string) string {
	return strings.ToUpper(strings.TrimSpace(code))
}

// 割引の基準額は「小計 + 送料」で統一
func DiscountBasis(subtotal, deliveryCharge int64) int64 {
	return subtotal + deliveryCharge
}

// EvaluatePromo は適用可否と割引額を返す。書き込みはしない。
func EvaluatePromo(p model.PromoCode, subtotal, deliveryCharge int64, now time.Time) (int64, error) {
	if !p.IsActive {
		return 0, ErrPromoNotFound
	}
	if now.Before(p.ValidFrom) {
		return 0, ErrPromoNotYetActive
	}
	if now.After(p.ValidUntil) {
		return 0, ErrPromoExpired
	}
	if p.UsageLimit != nil && p.UsedCount >= *p.UsageLimit {
		return 0, ErrPromoLimitReached
	}
	if subtotal < p.MinOrderAmount {
		return 0, ErrPromoBelowMinimum
	}

	basis := DiscountBasis(subtotal, deliveryCharge)

	var discount int64
	switch p.DiscountType {
	case model.DiscountTypePercentage:
		discount = decimal.NewFromInt(basis).Mul(p.DiscountValue).Div(hundred).Round(0).IntPart()
		if p.MaxDiscount != nil && discount > *p.MaxDiscount {
			discount = *p.MaxDiscount
		}
	case model.DiscountTypeFixed:
		discount = p.DiscountValue.Round(0).IntPart()
	}

	// 合計がマイナスにならないように
	if discount > basis {
		discount = basis
	}
	if discount < 0 {
		discount = 0
	}
	return discount, nil
}

// 検証APIで返す理由コード
func PromoReason(err error) string {
	switch {
	case errors.Is(err, ErrPromoNotFound):
		return "not_found"
	case errors.Is(err, ErrPromoNotYetActive):
		return "not_yet_active"
	case errors.Is(err, ErrPromoExpired):
		return "expired"
	case errors.Is(err, ErrPromoLimitReached):
		return "limit_reached"
	case errors.Is(err, ErrPromoBelowMinimum):
		return "below_minimum"
	default:
		return "invalid"
	}
}
