package repository

import (
	"context"

	"badgeshop/internal/domain/model"
)

type PromoListFilter struct {
	Page         int
	Limit        int
	Q            string
	PromoType    string
	IsActive     *bool
	InfluencerID *int64
}

type PromoRepository interface {
	FindByID(ctx context.Context, id int64) (model.PromoCode, error)
	// codeは正規化済みで渡す
	FindByCode(ctx context.Context, code string) (model.PromoCode, error)
	// 有効なpromoを行ロック付きで取得
	FindActiveByCodeForUpdate(ctx context.Context, code string) (model.PromoCode, error)
	Create(ctx context.Context, p model.PromoCode) (model.PromoCode, error)
	Update(ctx context.Context, p model.PromoCode) error
	List(ctx context.Context, f PromoListFilter) ([]model.PromoCode, int64, error)

	// 上限未満のときだけused_countを+1。上限到達ならfalse
	IncrementUsage(ctx context.Context, promoID int64) (bool, error)
	AddTotals(ctx context.Context, promoID int64, earningDelta int64, unitsDelta int64) error

	CreateUsage(ctx context.Context, u model.PromoUsage) error
	UpdateUsageEarning(ctx context.Context, promoID int64, orderID int64, units int64, earning int64) error
	ListUsages(ctx context.Context, promoID int64, page int, limit int) ([]model.PromoUsage, int64, error)
}
