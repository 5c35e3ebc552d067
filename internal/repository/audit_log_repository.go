package repository

import (
	"context"
	"time"

	"badgeshop/internal/domain/model"
)

// 管理画面の監査ログ検索条件（nil/空は条件なし）
type AuditLogFilter struct {
	Page         int
	Limit        int
	ActorUserID  *int64
	Action       model.AuditAction
	ResourceType model.AuditResourceType
	ResourceID   *int64
	From         *time.Time
	To           *time.Time
}

type AuditLogRepository interface {
	Create(ctx context.Context, log model.AuditLog) error
	// 新しい順
	List(ctx context.Context, f AuditLogFilter) ([]model.AuditLog, int64, error)
}
