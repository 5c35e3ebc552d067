package model

import "time"

// 処理済みWebhookの記録（重複配信の検知用）
type WebhookEvent struct {
	ID          int64     `gorm:"primaryKey;autoIncrement"`
	Gateway     string    `gorm:"type:varchar(20);not null;uniqueIndex:idx_webhook_gateway_event"`
	EventID     string    `gorm:"type:varchar(128);not null;uniqueIndex:idx_webhook_gateway_event"`
	EventType   string    `gorm:"type:varchar(64)"`
	ProcessedAt time.Time `gorm:"not null"`
}
