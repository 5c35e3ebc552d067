package repository

import (
	"context"

	"badgeshop/internal/domain/model"
)

type WithdrawalListFilter struct {
	Page         int
	Limit        int
	Status       string
	InfluencerID *int64
}

type WithdrawalRepository interface {
	Create(ctx context.Context, w model.WithdrawalRequest) (model.WithdrawalRequest, error)
	FindByID(ctx context.Context, id int64) (model.WithdrawalRequest, error)
	FindByIDForUpdate(ctx context.Context, id int64) (model.WithdrawalRequest, error)
	Update(ctx context.Context, w model.WithdrawalRequest) error
	List(ctx context.Context, f WithdrawalListFilter) ([]model.WithdrawalRequest, int64, error)
	SumByInfluencerAndStatuses(ctx context.Context, influencerID int64, statuses []model.WithdrawalStatus) (int64, error)
}
