package model

// AutoMigrate対象のモデル一覧
func All() []interface{} {
	return []interface{}{
		&User{},
		&PasswordResetToken{},
		&Product{},
		&Cart{},
		&CartItem{},
		&PromoCode{},
		&PromoUsage{},
		&Order{},
		&OrderItem{},
		&Invoice{},
		&UserOrder{},
		&InfluencerEarning{},
		&WithdrawalRequest{},
		&WebhookEvent{},
		&AuditLog{},
	}
}
