package model

import (
	"time"

	"gorm.io/datatypes"
)

type AuditAction string

const (
	AuditActionUpdateOrderStatus   AuditAction = "UPDATE_ORDER_STATUS"
	AuditActionUpdateWithdrawal    AuditAction = "UPDATE_WITHDRAWAL_STATUS"
	AuditActionCreatePromo         AuditAction = "CREATE_PROMO"
	AuditActionUpdatePromo         AuditAction = "UPDATE_PROMO"
	AuditActionReconcileInfluencer AuditAction = "RECONCILE_INFLUENCER"
	AuditActionUpdateUser          AuditAction = "UPDATE_USER"
	AuditActionCreateProduct       AuditAction = "CREATE_PRODUCT"
	AuditActionUpdateProduct       AuditAction = "UPDATE_PRODUCT"
	AuditActionDeleteProduct       AuditAction = "DELETE_PRODUCT"
)

// 一覧の絞り込みで受け付ける値か
func (a AuditAction) Valid() bool {
	switch a {
	case AuditActionUpdateOrderStatus, AuditActionUpdateWithdrawal,
		AuditActionCreatePromo, AuditActionUpdatePromo,
		AuditActionReconcileInfluencer, AuditActionUpdateUser,
		AuditActionCreateProduct, AuditActionUpdateProduct, AuditActionDeleteProduct:
		return true
	}
	return false
}

type AuditResourceType string

const (
	AuditResourceProduct    AuditResourceType = "product"
	AuditResourceOrder      AuditResourceType = "order"
	AuditResourceUser       AuditResourceType = "user"
	AuditResourcePromo      AuditResourceType = "promo"
	AuditResourceWithdrawal AuditResourceType = "withdrawal"
)

// 管理者・運用操作の記録。Before/Afterは変更した項目だけのJSON
type AuditLog struct {
	ID           int64             `gorm:"primaryKey;autoIncrement" json:"id"`
	ActorUserID  int64             `gorm:"not null;index" json:"actor_user_id"`
	Action       AuditAction       `gorm:"type:varchar(50);not null;index" json:"action"`
	ResourceType AuditResourceType `gorm:"type:varchar(30);not null;index:idx_audit_resource" json:"resource_type"`
	ResourceID   int64             `gorm:"not null;index:idx_audit_resource" json:"resource_id"`
	Before       datatypes.JSON    `gorm:"column:before_json" json:"before,omitempty"`
	After        datatypes.JSON    `gorm:"column:after_json" json:"after,omitempty"`
	CreatedAt    time.Time         `gorm:"not null;index" json:"created_at"`
}
