package repository

import (
	"context"
	"time"

	"badgeshop/internal/domain/model"
)

type InfluencerEarningRepository interface {
	// (promo, order)重複は ErrConflict
	Create(ctx context.Context, e model.InfluencerEarning) (model.InfluencerEarning, error)
	ListByOrderAndStatus(ctx context.Context, orderID int64, status model.EarningStatus) ([]model.InfluencerEarning, error)
	// 現在のステータスがfromのときだけ更新する
	Transition(ctx context.Context, earningID int64, from model.EarningStatus, to model.EarningStatus, paidAt *time.Time, paymentRef string) (bool, error)
	ListByInfluencer(ctx context.Context, influencerID int64, status string, page int, limit int) ([]model.InfluencerEarning, int64, error)
	SumByInfluencerAndStatus(ctx context.Context, influencerID int64, status model.EarningStatus) (int64, error)
}
