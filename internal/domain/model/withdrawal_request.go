package model

import (
	"time"

	"gorm.io/datatypes"
)

type WithdrawalMethod string

const (
	WithdrawalMethodUPI          WithdrawalMethod = "upi"
	WithdrawalMethodBankTransfer WithdrawalMethod = "bank_transfer"
	WithdrawalMethodPaytm        WithdrawalMethod = "paytm"
)

type WithdrawalStatus string

const (
	WithdrawalStatusPending  WithdrawalStatus = "pending"
	WithdrawalStatusApproved WithdrawalStatus = "approved"
	WithdrawalStatusRejected WithdrawalStatus = "rejected"
	WithdrawalStatusPaid     WithdrawalStatus = "paid"
)

// 残高を押さえているステータス
var WithdrawalReservedStatuses = []WithdrawalStatus{
	WithdrawalStatusPending,
	WithdrawalStatusApproved,
	WithdrawalStatusPaid,
}

type WithdrawalRequest struct {
	ID            int64             `gorm:"primaryKey;autoIncrement" json:"id"`
	InfluencerID  int64             `gorm:"not null;index" json:"influencer_id"`
	Amount        int64             `gorm:"not null" json:"amount"`
	Method        WithdrawalMethod  `gorm:"type:varchar(20);not null" json:"method"`
	Details       datatypes.JSONMap `json:"details"`
	Status        WithdrawalStatus  `gorm:"type:varchar(20);not null;index" json:"status"`
	AdminNote     string            `gorm:"type:text" json:"admin_note,omitempty"`
	TransactionID string            `gorm:"type:varchar(100)" json:"transaction_id,omitempty"`
	ProcessedAt   *time.Time        `json:"processed_at,omitempty"`
	ProcessedBy   *int64            `json:"processed_by,omitempty"`
	CreatedAt     time.Time         `gorm:"not null;autoCreateTime" json:"created_at"`
	UpdatedAt     time.Time         `gorm:"not null;autoUpdateTime" json:"updated_at"`
}
