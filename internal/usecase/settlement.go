package usecase

import (
	"fmt"
	"strings"
	"time"

	"badgeshop/internal/domain/model"
)

// ゲートウェイごとの表記ゆれを正規化。不明なら空文字（無視）
func CanonicalPaymentStatus(raw string) model.OrderStatus {
	switch strings.ToUpper(strings.TrimSpace(raw)) {
	case "SUCCESS", "PAID", "COMPLETED", "CAPTURED":
		return model.OrderStatusSuccess
	case "FAILED", "FAILURE", "USER_DROPPED", "CANCELLED":
		return model.OrderStatusFailed
	default:
		return ""
	}
}

// payment_method: {"upi": {...}} のようなネスト形式
func ResolvePaymentMethod(m map[string]any) model.PaymentMethod {
	if m == nil {
		return model.PaymentMethodUnknown
	}
	if _, ok := m["upi"]; ok {
		return model.PaymentMethodUPI
	}
	if _, ok := m["card"]; ok {
		return model.PaymentMethodCard
	}
	if _, ok := m["netbanking"]; ok {
		return model.PaymentMethodNetbanking
	}
	if _, ok := m["wallet"]; ok {
		return model.PaymentMethodWallet
	}
	if _, ok := m["app"]; ok {
		return model.PaymentMethodWallet
	}
	return model.PaymentMethodUnknown
}

// Razorpayのフラットなmethod文字列
func PaymentMethodFromString(s string) model.PaymentMethod {
	switch strings.ToLower(strings.TrimSpace(s)) {
	case "upi":
		return model.PaymentMethodUPI
	case "card", "credit_card", "debit_card", "emi":
		return model.PaymentMethodCard
	case "netbanking", "net_banking":
		return model.PaymentMethodNetbanking
	case "wallet", "app":
		return model.PaymentMethodWallet
	default:
		return model.PaymentMethodUnknown
	}
}

// INV-<yyyymmdd>-<注文ID 6桁>
func invoiceNumber(orderID int64, issuedAt time.Time) string {
	return fmt.Sprintf("INV-%s-%06d", issuedAt.Format("20060102"), orderID)
}
